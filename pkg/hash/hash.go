// Package hash provides the case-insensitive string hashes used to identify
// joints and submeshes across skeleton, skin and animation files.
package hash

const (
	fnvOffsetBasis uint32 = 0x811c9dc5
	fnvPrime       uint32 = 0x01000193
)

// FNV1a returns the 32-bit FNV-1a hash of s with ASCII letters lowercased.
// Submesh names are identified by this hash.
func FNV1a(s string) uint32 {
	h := fnvOffsetBasis
	for _, c := range s {
		h = (h ^ uint32(lower(c))) * fnvPrime
	}
	return h
}

// ELF returns the PJW/ELF hash of s with ASCII letters lowercased.
// Joint names in classic skeletons and legacy animations are identified by this hash.
func ELF(s string) uint32 {
	var h uint32
	for _, c := range s {
		h = (h << 4) + uint32(lower(c))
		if t := h & 0xf0000000; t != 0 {
			h ^= t >> 24
			h ^= t
		}
	}
	return h
}

func lower(c rune) rune {
	if c >= 'A' && c <= 'Z' {
		return c + ('a' - 'A')
	}
	return c
}
