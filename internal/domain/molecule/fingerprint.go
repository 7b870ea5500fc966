package molecule

import (
	"encoding/binary"
	"math/bits"
	"sort"

	"github.com/cespare/xxhash/v2"

	"github.com/turtacn/keggminer/pkg/errors"
)

// Default Morgan parameters, matching the ECFP4 2048-bit vectors the miner
// has always scored with.
const (
	DefaultRadius = 2
	DefaultNBits  = 2048
)

// ─────────────────────────────────────────────────────────────────────────────
// Fingerprint Structure
// ─────────────────────────────────────────────────────────────────────────────

// Fingerprint is a folded bit vector. Bit i lives in byte i/8 at position i%8.
// A fingerprint handed out by the cache is shared and must not be mutated.
type Fingerprint struct {
	// Bits is the packed bit vector.
	Bits []byte `json:"bits"`

	// NumBits is the vector width.
	NumBits int `json:"num_bits"`

	// NumOnBits is the popcount of Bits.
	NumOnBits int `json:"num_on_bits"`

	// Radius is the number of Morgan refinement rounds used.
	Radius int `json:"radius"`
}

// NewFingerprint wraps packed bit data, computing the popcount.
func NewFingerprint(data []byte, numBits, radius int) *Fingerprint {
	onBits := 0
	for _, b := range data {
		onBits += bits.OnesCount8(b)
	}
	return &Fingerprint{
		Bits:      data,
		NumBits:   numBits,
		NumOnBits: onBits,
		Radius:    radius,
	}
}

// GetBit reports whether bit index is set.
func (fp *Fingerprint) GetBit(index int) bool {
	if index < 0 || index >= fp.NumBits {
		return false
	}
	return fp.Bits[index/8]&(1<<uint(index%8)) != 0
}

// SetBit sets bit index to 1.
func (fp *Fingerprint) SetBit(index int) {
	if index < 0 || index >= fp.NumBits {
		return
	}
	old := fp.Bits[index/8]
	fp.Bits[index/8] |= 1 << uint(index%8)
	if old != fp.Bits[index/8] {
		fp.NumOnBits++
	}
}

// ToBytes returns the packed vector for storage.
func (fp *Fingerprint) ToBytes() []byte {
	return fp.Bits
}

// FingerprintFromBytes rebuilds a fingerprint read back from storage. The
// data length must match numBits.
func FingerprintFromBytes(data []byte, numBits, radius int) (*Fingerprint, error) {
	if numBits <= 0 || len(data) != (numBits+7)/8 {
		return nil, errors.New(errors.ErrCodeSerialization, "fingerprint length mismatch").
			WithDetailf("got %d bytes for %d bits", len(data), numBits)
	}
	buf := make([]byte, len(data))
	copy(buf, data)
	return NewFingerprint(buf, numBits, radius), nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Morgan (Circular) Fingerprint
// ─────────────────────────────────────────────────────────────────────────────

// MorganFingerprint computes an ECFP-style circular fingerprint. Every atom
// starts from a hash of its local invariants; each of the radius rounds
// rehashes an atom's identifier with the sorted (bond order, neighbour
// identifier) pairs around it. Every identifier produced in any round sets
// bit id % nBits.
func MorganFingerprint(m *Molecule, radius, nBits int) (*Fingerprint, error) {
	if m == nil || len(m.Atoms) == 0 {
		return nil, errors.New(errors.ErrCodeFingerprintGenerationFailed, "molecule has no atoms")
	}
	if nBits <= 0 {
		return nil, errors.New(errors.ErrCodeFingerprintGenerationFailed, "nBits must be positive").
			WithDetailf("nBits=%d", nBits)
	}
	if radius < 0 {
		return nil, errors.New(errors.ErrCodeFingerprintGenerationFailed, "radius must not be negative").
			WithDetailf("radius=%d", radius)
	}

	fp := NewFingerprint(make([]byte, (nBits+7)/8), nBits, radius)
	ri := perceiveRings(m, len(m.Atoms)+1)

	ids := make([]uint64, len(m.Atoms))
	for i := range m.Atoms {
		ids[i] = initialInvariant(m, i, ri)
		fp.SetBit(int(ids[i] % uint64(nBits)))
	}

	type pair struct {
		order uint64
		id    uint64
	}
	buf := make([]byte, 0, 128)
	for round := 1; round <= radius; round++ {
		next := make([]uint64, len(ids))
		for i := range m.Atoms {
			env := make([]pair, 0, len(m.adj[i]))
			for _, b := range m.adj[i] {
				bond := m.Bonds[b]
				env = append(env, pair{order: uint64(bond.Order), id: ids[bond.Other(i)]})
			}
			sort.Slice(env, func(x, y int) bool {
				if env[x].order != env[y].order {
					return env[x].order < env[y].order
				}
				return env[x].id < env[y].id
			})

			buf = buf[:0]
			buf = binary.LittleEndian.AppendUint64(buf, uint64(round))
			buf = binary.LittleEndian.AppendUint64(buf, ids[i])
			for _, p := range env {
				buf = binary.LittleEndian.AppendUint64(buf, p.order)
				buf = binary.LittleEndian.AppendUint64(buf, p.id)
			}
			next[i] = xxhash.Sum64(buf)
			fp.SetBit(int(next[i] % uint64(nBits)))
		}
		ids = next
	}
	return fp, nil
}

func initialInvariant(m *Molecule, i int, ri *ringInfo) uint64 {
	a := m.Atoms[i]
	ring := int64(0)
	if ri.atomInRing[i] {
		ring = 1
	}
	var buf [48]byte
	binary.LittleEndian.PutUint64(buf[0:], uint64(a.Number))
	binary.LittleEndian.PutUint64(buf[8:], uint64(m.Degree(i)))
	binary.LittleEndian.PutUint64(buf[16:], uint64(a.HCount))
	binary.LittleEndian.PutUint64(buf[24:], uint64(int64(a.Charge)))
	binary.LittleEndian.PutUint64(buf[32:], uint64(a.Isotope))
	binary.LittleEndian.PutUint64(buf[40:], uint64(ring))
	return xxhash.Sum64(buf[:])
}
