package presentation

// Capability flags what a presentation state type can carry
type Capability uint16

const (
	// VOI: Softcopy VOI LUT and Presentation LUT apply
	VOI Capability = 1 << iota
	// Overlays: graphic annotations and overlay activation
	Overlays
	// Color: ICC profile driven color display
	Color
	// PseudoColor: palette applied to grayscale
	PseudoColor
	// Blending: two referenced series are blended
	Blending
	// Volumetric: rendered from a volume rather than an image
	Volumetric
	// ModalityLUT: per-frame modality LUT selection
	ModalityLUT
)

// Type describes one of the presentation state SOP classes
type Type struct {
	UID   string
	Name  string
	Group string // presentation group: SOFTCOPY or VOLUMETRIC
	Caps  Capability
}

// Has reports whether the type carries every capability in c
func (t Type) Has(c Capability) bool {
	return t.Caps&c == c
}

// types are the 12 SOP classes under 1.2.840.10008.5.1.4.1.1.11
var types = []Type{
	{UID: "1.2.840.10008.5.1.4.1.1.11.1", Name: "Grayscale Softcopy Presentation State", Group: "SOFTCOPY", Caps: VOI | Overlays},
	{UID: "1.2.840.10008.5.1.4.1.1.11.2", Name: "Color Softcopy Presentation State", Group: "SOFTCOPY", Caps: Color | Overlays},
	{UID: "1.2.840.10008.5.1.4.1.1.11.3", Name: "Pseudo-Color Softcopy Presentation State", Group: "SOFTCOPY", Caps: VOI | PseudoColor | Overlays},
	{UID: "1.2.840.10008.5.1.4.1.1.11.4", Name: "Blending Softcopy Presentation State", Group: "SOFTCOPY", Caps: VOI | Blending | Overlays},
	{UID: "1.2.840.10008.5.1.4.1.1.11.5", Name: "XA/XRF Grayscale Softcopy Presentation State", Group: "SOFTCOPY", Caps: VOI | Overlays},
	{UID: "1.2.840.10008.5.1.4.1.1.11.6", Name: "Grayscale Planar MPR Volumetric Presentation State", Group: "VOLUMETRIC", Caps: VOI | Volumetric},
	{UID: "1.2.840.10008.5.1.4.1.1.11.7", Name: "Compositing Planar MPR Volumetric Presentation State", Group: "VOLUMETRIC", Caps: Color | Blending | Volumetric},
	{UID: "1.2.840.10008.5.1.4.1.1.11.8", Name: "Advanced Blending Presentation State", Group: "SOFTCOPY", Caps: Color | Blending},
	{UID: "1.2.840.10008.5.1.4.1.1.11.9", Name: "Volume Rendering Volumetric Presentation State", Group: "VOLUMETRIC", Caps: Color | Volumetric},
	{UID: "1.2.840.10008.5.1.4.1.1.11.10", Name: "Segmented Volume Rendering Volumetric Presentation State", Group: "VOLUMETRIC", Caps: Color | Volumetric},
	{UID: "1.2.840.10008.5.1.4.1.1.11.11", Name: "Multiple Volume Rendering Volumetric Presentation State", Group: "VOLUMETRIC", Caps: Color | Blending | Volumetric},
	{UID: "1.2.840.10008.5.1.4.1.1.11.12", Name: "Variable Modality LUT Softcopy Presentation State", Group: "SOFTCOPY", Caps: VOI | ModalityLUT | Overlays},
}

var typeByUID = func() map[string]Type {
	m := make(map[string]Type, len(types))
	for _, t := range types {
		m[t.UID] = t
	}
	return m
}()

// LookupType returns the presentation state type of a SOP Class UID
func LookupType(sopClassUID string) (Type, bool) {
	t, ok := typeByUID[sopClassUID]
	return t, ok
}

// Types returns every known presentation state type
func Types() []Type {
	out := make([]Type, len(types))
	copy(out, types)
	return out
}
