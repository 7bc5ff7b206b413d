package transfer

import (
	"testing"

	"github.com/jpfielding/dcmimage/pkg/raster"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolve(t *testing.T) {
	tests := []struct {
		name       string
		bitsStored int
		kind       raster.Type
		requested  Syntax
		want       Syntax
	}{
		{"baseline keeps 8 bit", 8, raster.TypeU8, JPEGBaseline, JPEGBaseline},
		{"baseline 12 bit goes SV1", 12, raster.TypeU16, JPEGBaseline, JPEGLosslessSV1},
		{"extended signed goes SV1", 16, raster.TypeS16, JPEGExtended, JPEGLosslessSV1},
		{"spectral 8 bit kept", 8, raster.TypeU8, JPEGSpectralSelection, JPEGSpectralSelection},
		{"float beats baseline", 32, raster.TypeF32, JPEGBaseline, ExplicitVRLittleEndian},
		{"double beats jpeg-ls", 64, raster.TypeF64, JPEGLSLossless, ExplicitVRLittleEndian},
		{"implicit normalized", 8, raster.TypeU8, ImplicitVRLittleEndian, ExplicitVRLittleEndian},
		{"deflated normalized", 16, raster.TypeU16, DeflatedExplicitVR, ExplicitVRLittleEndian},
		{"jpeg-ls passes", 16, raster.TypeS16, JPEGLSNearLossless, JPEGLSNearLossless},
		{"j2k passes", 16, raster.TypeU16, JPEG2000, JPEG2000},
		{"rle passes", 16, raster.TypeU16, RLELossless, RLELossless},
		{"progressive passes", 12, raster.TypeU16, JPEGFullProgression, JPEGFullProgression},
		{"video to native", 8, raster.TypeU8, MPEG2MainProfile, ExplicitVRLittleEndian},
		{"jpip to native", 8, raster.TypeU8, JPIPReferenced, ExplicitVRLittleEndian},
		{"unknown passes", 8, raster.TypeU8, "1.2.3.4", "1.2.3.4"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Resolve(tt.bitsStored, tt.kind, tt.requested)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolve_BigEndianRejected(t *testing.T) {
	_, err := Resolve(16, raster.TypeU16, ExplicitVRBigEndian)
	assert.ErrorIs(t, err, ErrUnsupportedSyntax)
}

func TestResolve_TotalOverKinds(t *testing.T) {
	kinds := []raster.Type{raster.TypeU8, raster.TypeU16, raster.TypeS16, raster.TypeF32, raster.TypeF64}
	for _, p := range Profiles() {
		if p.UID == ExplicitVRBigEndian {
			continue
		}
		for _, k := range kinds {
			got, err := Resolve(k.Bits(), k, p.UID)
			require.NoError(t, err, "%s %s", p.UID, k)
			assert.NotEmpty(t, got)
		}
	}
}

func TestBuild_Defaults(t *testing.T) {
	tests := []struct {
		uid        Syntax
		lossless   bool
		quality    int
		near       int
		ratio      float64
		prediction int
		mode       int
	}{
		{JPEGBaseline, false, 85, 2, 10, 1, ModeBaseline},
		{JPEGExtended, false, 85, 2, 10, 1, ModeExtended},
		{JPEGSpectralSelection, false, 85, 2, 10, 1, ModeSpectral},
		{JPEGFullProgression, false, 85, 2, 10, 1, ModeProgressive},
		{JPEGLossless, true, 0, 0, 0, 6, ModeLossless},
		{JPEGLosslessSV1, true, 0, 0, 0, 1, ModeLossless},
		{JPEGLSLossless, true, 0, 0, 0, 0, 0},
		{JPEGLSNearLossless, false, 85, 2, 10, 0, 0},
		{JPEG2000Lossless, true, 0, 0, 0, 0, 0},
		{JPEG2000, false, 85, 2, 10, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.uid.Name(), func(t *testing.T) {
			cp, err := Build(tt.uid)
			require.NoError(t, err)
			assert.Equal(t, tt.uid, cp.UID())
			assert.Equal(t, tt.lossless, cp.Lossless())
			assert.Equal(t, tt.quality, cp.Quality())
			assert.Equal(t, tt.near, cp.NearLosslessError())
			assert.Equal(t, tt.ratio, cp.CompressionRatioFactor())
			assert.Equal(t, tt.prediction, cp.Prediction())
			assert.Equal(t, tt.mode, cp.JPEGMode())
		})
	}
}

func TestBuild_Unsupported(t *testing.T) {
	for _, uid := range []Syntax{
		ImplicitVRLittleEndian, ExplicitVRLittleEndian, DeflatedExplicitVR,
		RLELossless, MPEG4HighProfile, JPIPReferenced, "1.2.3",
	} {
		_, err := Build(uid)
		assert.ErrorIs(t, err, ErrUnsupportedSyntax, string(uid))
	}
}

func TestCodecParams_Setters(t *testing.T) {
	cp, err := Build(JPEGLSNearLossless)
	require.NoError(t, err)

	assert.ErrorIs(t, cp.SetNearLosslessError(-1), ErrInvalidParameter)
	assert.Equal(t, 2, cp.NearLosslessError())
	require.NoError(t, cp.SetNearLosslessError(0))
	assert.Equal(t, 0, cp.NearLosslessError())

	assert.ErrorIs(t, cp.SetSourceRegion(0, 0, 0, 10), ErrInvalidParameter)
	assert.ErrorIs(t, cp.SetSourceRegion(-1, 0, 10, 10), ErrInvalidParameter)
	_, ok := cp.SourceRegion()
	assert.False(t, ok)
	require.NoError(t, cp.SetSourceRegion(2, 3, 10, 20))
	r, ok := cp.SourceRegion()
	require.True(t, ok)
	assert.Equal(t, 10, r.Dx())
	assert.Equal(t, 3, r.Min.Y)

	assert.ErrorIs(t, cp.SetQuality(101), ErrInvalidParameter)
	require.NoError(t, cp.SetQuality(50))
	assert.Equal(t, 50, cp.Quality())
	assert.ErrorIs(t, cp.SetPrediction(0), ErrInvalidParameter)
	assert.ErrorIs(t, cp.SetJPEGMode(5), ErrInvalidParameter)

	// immutable identity survives tuning
	assert.Equal(t, JPEGLSNearLossless, cp.UID())
	assert.Equal(t, JPEGLSFamily, cp.Family())
	assert.False(t, cp.Lossless())
}

func TestSyntaxHelpers(t *testing.T) {
	assert.True(t, JPEGBaseline.IsEncapsulated())
	assert.False(t, ExplicitVRLittleEndian.IsEncapsulated())
	assert.False(t, ImplicitVRLittleEndian.IsExplicitVR())
	assert.False(t, ExplicitVRBigEndian.IsLittleEndian())
	assert.True(t, RLELossless.IsLossless())
	assert.Equal(t, "JPEG_LS", JPEGLSLossless.Family().String())
	assert.Equal(t, Unsupported, Syntax("9.9").Family())
	assert.Equal(t, "9.9", Syntax("9.9").Name())
}
