package molecule

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/keggminer/pkg/errors"
)

func mustFingerprint(t *testing.T, smiles string, radius, nBits int) *Fingerprint {
	t.Helper()
	m, err := ParseSMILES(smiles)
	require.NoError(t, err)
	fp, err := MorganFingerprint(m, radius, nBits)
	require.NoError(t, err)
	return fp
}

func TestFingerprint_BitOperations(t *testing.T) {
	fp := NewFingerprint(make([]byte, 2), 16, 0)
	assert.False(t, fp.GetBit(3))
	fp.SetBit(3)
	fp.SetBit(3)
	fp.SetBit(15)
	fp.SetBit(16) // out of range, ignored
	fp.SetBit(-1)
	assert.True(t, fp.GetBit(3))
	assert.True(t, fp.GetBit(15))
	assert.False(t, fp.GetBit(16))
	assert.Equal(t, 2, fp.NumOnBits)
	assert.Equal(t, []byte{0x08, 0x80}, fp.ToBytes())
}

func TestFingerprintFromBytes(t *testing.T) {
	fp, err := FingerprintFromBytes([]byte{0xFF, 0x01}, 16, 2)
	require.NoError(t, err)
	assert.Equal(t, 9, fp.NumOnBits)
	assert.Equal(t, 2, fp.Radius)

	_, err = FingerprintFromBytes([]byte{0xFF}, 16, 2)
	assert.True(t, errors.IsCode(err, errors.ErrCodeSerialization))

	_, err = FingerprintFromBytes(nil, 0, 2)
	assert.Error(t, err)
}

func TestMorganFingerprint_Shape(t *testing.T) {
	fp := mustFingerprint(t, "CC(=O)Oc1ccccc1C(=O)O", DefaultRadius, DefaultNBits)
	assert.Equal(t, DefaultNBits, fp.NumBits)
	assert.Len(t, fp.Bits, DefaultNBits/8)
	assert.Equal(t, DefaultRadius, fp.Radius)
	assert.Greater(t, fp.NumOnBits, 5)
	assert.LessOrEqual(t, fp.NumOnBits, 13*(DefaultRadius+1))
}

func TestMorganFingerprint_Deterministic(t *testing.T) {
	a := mustFingerprint(t, "CC(=O)Oc1ccccc1C(=O)O", 2, 1024)
	b := mustFingerprint(t, "OC(=O)c1ccccc1OC(C)=O", 2, 1024)
	assert.Equal(t, a.Bits, b.Bits)
}

func TestMorganFingerprint_KekuleMatchesAromatic(t *testing.T) {
	a := mustFingerprint(t, "C1=CC=CC=C1O", 2, 2048)
	b := mustFingerprint(t, "Oc1ccccc1", 2, 2048)
	assert.Equal(t, 1.0, Tanimoto(a, b))
}

func TestMorganFingerprint_RadiusZero(t *testing.T) {
	fp := mustFingerprint(t, "c1ccccc1", 0, 2048)
	// All six carbons share one invariant.
	assert.Equal(t, 1, fp.NumOnBits)
}

func TestMorganFingerprint_InvalidArguments(t *testing.T) {
	m, err := ParseSMILES("CCO")
	require.NoError(t, err)

	_, err = MorganFingerprint(m, 2, 0)
	assert.True(t, errors.IsCode(err, errors.ErrCodeFingerprintGenerationFailed))
	_, err = MorganFingerprint(m, -1, 2048)
	assert.True(t, errors.IsCode(err, errors.ErrCodeFingerprintGenerationFailed))
	_, err = MorganFingerprint(nil, 2, 2048)
	assert.True(t, errors.IsCode(err, errors.ErrCodeFingerprintGenerationFailed))
	_, err = MorganFingerprint(NewMolecule(), 2, 2048)
	assert.Error(t, err)
}

func TestTanimoto(t *testing.T) {
	full := NewFingerprint([]byte{0xFF, 0xFF}, 16, 0)
	half := NewFingerprint([]byte{0xFF, 0x00}, 16, 0)
	other := NewFingerprint([]byte{0x00, 0xFF}, 16, 0)
	empty := NewFingerprint([]byte{0x00, 0x00}, 16, 0)
	wide := NewFingerprint([]byte{0xFF, 0xFF, 0xFF}, 24, 0)

	tests := []struct {
		name string
		a, b *Fingerprint
		want float64
	}{
		{"identical", full, full, 1.0},
		{"subset", half, full, 0.5},
		{"disjoint", half, other, 0.0},
		{"both_empty", empty, empty, 0.0},
		{"nil_left", nil, full, 0.0},
		{"nil_right", full, nil, 0.0},
		{"width_mismatch", full, wide, 0.0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, Tanimoto(tt.a, tt.b), 1e-12)
		})
	}
}

func TestTanimoto_Molecules(t *testing.T) {
	aspirin := mustFingerprint(t, "CC(=O)Oc1ccccc1C(=O)O", 2, 2048)
	salicylic := mustFingerprint(t, "OC(=O)c1ccccc1O", 2, 2048)
	hexane := mustFingerprint(t, "CCCCCC", 2, 2048)

	assert.Equal(t, 1.0, Tanimoto(aspirin, aspirin))
	assert.Equal(t, Tanimoto(aspirin, salicylic), Tanimoto(salicylic, aspirin))

	near := Tanimoto(aspirin, salicylic)
	far := Tanimoto(aspirin, hexane)
	assert.Greater(t, near, far)
	assert.Greater(t, near, 0.0)
	assert.Less(t, near, 1.0)
}
