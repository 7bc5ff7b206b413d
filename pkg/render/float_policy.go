package render

import (
	"sync"
	"sync/atomic"
)

// FloatPolicy decides when the modality rescale must produce floating point
// output regardless of slope. It is safe for concurrent use; writers race
// with last-writer-wins semantics and there is no eviction, so callers clear
// entries they no longer need.
type FloatPolicy struct {
	series sync.Map // series instance UID -> bool
	always atomic.Bool
}

// NewFloatPolicy returns an empty policy
func NewFloatPolicy() *FloatPolicy {
	return &FloatPolicy{}
}

// AddSeries forces (float=true) or suppresses (float=false) promotion for a
// series. A series entry overrides the always-float flag.
func (p *FloatPolicy) AddSeries(seriesUID string, float bool) {
	p.series.Store(seriesUID, float)
}

// RemoveSeries drops a series entry
func (p *FloatPolicy) RemoveSeries(seriesUID string) {
	p.series.Delete(seriesUID)
}

// SetAlwaysFloat sets the global flag
func (p *FloatPolicy) SetAlwaysFloat(v bool) {
	p.always.Store(v)
}

// AlwaysFloat reports the global flag
func (p *FloatPolicy) AlwaysFloat() bool {
	return p.always.Load()
}

// Clear removes every series entry and resets the global flag
func (p *FloatPolicy) Clear() {
	p.series.Range(func(k, _ any) bool {
		p.series.Delete(k)
		return true
	})
	p.always.Store(false)
}

// Forced reports whether the policy itself (independent of slope) asks for
// float output on the given series. A nil policy never forces.
func (p *FloatPolicy) Forced(seriesUID string) bool {
	if p == nil {
		return false
	}
	if v, ok := p.series.Load(seriesUID); ok {
		return v.(bool)
	}
	return p.always.Load()
}
