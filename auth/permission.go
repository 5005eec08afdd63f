package auth

import (
	"math/bits"

	mapset "github.com/deckarep/golang-set/v2"
)

// A PermissionSet is a set of permissions of type P.
type PermissionSet[P comparable] interface {
	Add(p ...P)
	Has(p P) bool
	HasAll(ps ...P) bool
	HasAny(ps ...P) bool
	Len() int
	Merge(other PermissionSet[P])
	Remove(p ...P)
	Slice() []P
}

// Flag is a permission type whose values are single bits.
type Flag interface {
	~uint8 | ~uint16 | ~uint32 | ~uint64
}

// BitSet is a PermissionSet which stores flags in a bitmask.
//
// A value which has more than one bit set is treated as a combination of permissions:
// Has returns true only if all of its bits are set.
type BitSet[P Flag] struct {
	mask P
}

func NewBitSet[P Flag](ps ...P) *BitSet[P] {
	var s = &BitSet[P]{}
	s.Add(ps...)
	return s
}

// Mask returns the underlying bitmask.
func (s *BitSet[P]) Mask() P {
	return s.mask
}

func (s *BitSet[P]) Add(ps ...P) {
	for _, p := range ps {
		s.mask |= p
	}
}

func (s *BitSet[P]) Has(p P) bool {
	return p != 0 && s.mask&p == p
}

func (s *BitSet[P]) HasAll(ps ...P) bool {
	for _, p := range ps {
		if !s.Has(p) {
			return false
		}
	}
	return true
}

func (s *BitSet[P]) HasAny(ps ...P) bool {
	for _, p := range ps {
		if s.Has(p) {
			return true
		}
	}
	return false
}

func (s *BitSet[P]) Len() int {
	return bits.OnesCount64(uint64(s.mask))
}

func (s *BitSet[P]) Merge(other PermissionSet[P]) {
	if o, ok := other.(*BitSet[P]); ok {
		s.mask |= o.mask
		return
	}
	s.Add(other.Slice()...)
}

func (s *BitSet[P]) Remove(ps ...P) {
	for _, p := range ps {
		s.mask &^= p
	}
}

// Slice returns the single-bit flags contained in the set, lowest bit first.
func (s *BitSet[P]) Slice() []P {
	var result = make([]P, 0, s.Len())
	for m := uint64(s.mask); m != 0; m &= m - 1 {
		result = append(result, P(uint64(1)<<bits.TrailingZeros64(m)))
	}
	return result
}

// HashSet is a PermissionSet for arbitrary comparable permission types. It is safe for concurrent use.
type HashSet[P comparable] struct {
	set mapset.Set[P]
}

func NewHashSet[P comparable](ps ...P) *HashSet[P] {
	return &HashSet[P]{
		set: mapset.NewSet[P](ps...),
	}
}

func (s *HashSet[P]) Add(ps ...P) {
	for _, p := range ps {
		s.set.Add(p)
	}
}

func (s *HashSet[P]) Has(p P) bool {
	return s.set.Contains(p)
}

func (s *HashSet[P]) HasAll(ps ...P) bool {
	return s.set.Contains(ps...)
}

func (s *HashSet[P]) HasAny(ps ...P) bool {
	for _, p := range ps {
		if s.set.Contains(p) {
			return true
		}
	}
	return false
}

func (s *HashSet[P]) Len() int {
	return s.set.Cardinality()
}

func (s *HashSet[P]) Merge(other PermissionSet[P]) {
	if o, ok := other.(*HashSet[P]); ok {
		s.set = s.set.Union(o.set)
		return
	}
	s.Add(other.Slice()...)
}

func (s *HashSet[P]) Remove(ps ...P) {
	for _, p := range ps {
		s.set.Remove(p)
	}
}

// Slice returns the permissions in unspecified order.
func (s *HashSet[P]) Slice() []P {
	return s.set.ToSlice()
}
