package formats

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/Faultbox/lolanim/pkg/hash"
	lmath "github.com/Faultbox/lolanim/pkg/math"
)

const (
	sknMagic        uint32 = 0x00112233
	sknNameSize            = 64
	sknSubmeshSize         = sknNameSize + 8 + 4 + 4
	sknVertexSize          = 12 + 4 + 16 + 12 + 8
	sknExtraVertex         = 4
	baseSubmeshName        = "Base"
)

// Submesh is a named range of the index buffer drawn with one material.
type Submesh struct {
	Name       string
	Hash       uint32 // FNV1a of Name
	IndexStart uint32
	IndexCount uint32
}

// Skin is a decoded SKN file. Vertex attribute slices are parallel.
type Skin struct {
	Version     Version
	Center      mgl32.Vec3
	BoundingBox [2]mgl32.Vec3 // min, max

	Positions  []mgl32.Vec3
	Normals    []mgl32.Vec3
	UVs        []mgl32.Vec2
	Influences [][4]uint16 // Skin-local until ApplySkeleton, joint indices after
	Weights    []mgl32.Vec4

	Indices   []uint16
	Submeshes []Submesh
}

// DecodeSkin decodes SKN data for versions 0, 1, 2 and 4.
func DecodeSkin(data []byte) (*Skin, error) {
	r := newReader("skn", data)

	magic := r.u32()
	if r.err == nil && magic != sknMagic {
		r.pos = 0
		r.fail(ErrInvalidSignature, fmt.Sprintf("magic 0x%08x", magic))
	}

	skn := &Skin{Version: Version{Major: r.u16(), Minor: r.u16()}}
	if r.err != nil {
		return nil, r.err
	}
	switch skn.Version.Major {
	case 0, 1, 2, 4:
	default:
		r.fail(ErrUnsupportedVersion, skn.Version.String())
		return nil, r.err
	}

	if skn.Version.Major > 0 {
		count := int(r.u32())
		if !r.fits(count, sknSubmeshSize) {
			return nil, r.err
		}
		skn.Submeshes = make([]Submesh, count)
		for i := range skn.Submeshes {
			sm := &skn.Submeshes[i]
			sm.Name = r.fixedString(sknNameSize)
			sm.Hash = hash.FNV1a(sm.Name)
			r.skip(8) // vertex start, vertex count
			sm.IndexStart = r.u32()
			sm.IndexCount = r.u32()
		}
		if skn.Version.Major == 4 {
			r.skip(4) // flags
		}
	}

	indexCount := int(r.u32())
	vertexCount := int(r.u32())

	bbMin := mgl32.Vec3{math.MaxFloat32, math.MaxFloat32, math.MaxFloat32}
	bbMax := mgl32.Vec3{-math.MaxFloat32, -math.MaxFloat32, -math.MaxFloat32}

	var vertexType uint32
	if skn.Version.Major == 4 {
		r.skip(4) // vertex size
		vertexType = r.u32()
		bbMin = r.vec3()
		bbMax = r.vec3()
		r.skip(16) // bounding sphere
	}

	if !r.fits(indexCount, 2) {
		return nil, r.err
	}
	skn.Indices = make([]uint16, indexCount)
	for i := range skn.Indices {
		skn.Indices[i] = r.u16()
	}

	stride := sknVertexSize
	if vertexType > 0 {
		stride += sknExtraVertex
	}
	if !r.fits(vertexCount, stride) {
		return nil, r.err
	}

	skn.Positions = make([]mgl32.Vec3, vertexCount)
	skn.Normals = make([]mgl32.Vec3, vertexCount)
	skn.UVs = make([]mgl32.Vec2, vertexCount)
	skn.Influences = make([][4]uint16, vertexCount)
	skn.Weights = make([]mgl32.Vec4, vertexCount)

	for i := 0; i < vertexCount; i++ {
		skn.Positions[i] = r.vec3()
		for k := 0; k < 4; k++ {
			skn.Influences[i][k] = uint16(r.u8())
		}
		skn.Weights[i] = r.vec4()
		skn.Normals[i] = normalize(r.vec3())
		skn.UVs[i] = r.vec2()
		if vertexType > 0 {
			r.skip(sknExtraVertex) // vertex color
		}
	}
	if r.err != nil {
		return nil, r.err
	}

	if skn.Version.Major != 4 {
		for _, p := range skn.Positions {
			bbMin = lmath.MinVec3(bbMin, p)
			bbMax = lmath.MaxVec3(bbMax, p)
		}
	}
	skn.BoundingBox = [2]mgl32.Vec3{bbMin, bbMax}
	skn.Center = bbMin.Add(bbMax).Mul(0.5)

	if skn.Version.Major == 0 {
		skn.Submeshes = []Submesh{{
			Name:       baseSubmeshName,
			Hash:       hash.FNV1a(baseSubmeshName),
			IndexStart: 0,
			IndexCount: uint32(indexCount),
		}}
	}

	if err := skn.validate(); err != nil {
		return nil, err
	}
	return skn, nil
}

// validate checks that submesh ranges and indices stay inside their buffers.
func (s *Skin) validate() error {
	for _, sm := range s.Submeshes {
		if uint64(sm.IndexStart)+uint64(sm.IndexCount) > uint64(len(s.Indices)) {
			return &FormatError{Format: "skn", Err: ErrBadOffset,
				Detail: fmt.Sprintf("submesh %q range %d+%d exceeds %d indices", sm.Name, sm.IndexStart, sm.IndexCount, len(s.Indices))}
		}
	}
	for i, idx := range s.Indices {
		if int(idx) >= len(s.Positions) {
			return &FormatError{Format: "skn", Err: ErrBadOffset,
				Detail: fmt.Sprintf("index %d references vertex %d of %d", i, idx, len(s.Positions))}
		}
	}
	return nil
}

func normalize(v mgl32.Vec3) mgl32.Vec3 {
	if l := v.Len(); l > 0 {
		return v.Mul(1 / l)
	}
	return v
}

// CheckInfluences reports whether every vertex influence can be remapped
// through skl and lands on one of its joints.
func (s *Skin) CheckInfluences(skl *Skeleton) error {
	for i, inf := range s.Influences {
		for _, idx := range inf {
			if int(idx) >= len(skl.Influences) {
				return &FormatError{Format: "skn", Err: ErrBadOffset,
					Detail: fmt.Sprintf("vertex %d influence %d of %d", i, idx, len(skl.Influences))}
			}
			if joint := skl.Influences[idx]; int(joint) >= len(skl.Joints) {
				return &FormatError{Format: "skl", Err: ErrBadOffset,
					Detail: fmt.Sprintf("influence %d maps to joint %d of %d", idx, joint, len(skl.Joints))}
			}
		}
	}
	return nil
}

// ApplySkeleton rewrites every vertex influence from a skin-local index to a
// joint index through the skeleton's influence table. Call CheckInfluences
// first; indices outside the table panic.
func (s *Skin) ApplySkeleton(skl *Skeleton) {
	for i := range s.Influences {
		for k := 0; k < 4; k++ {
			s.Influences[i][k] = skl.Influences[s.Influences[i][k]]
		}
	}
}

// UnnormalizedWeights returns the vertices whose four weights do not sum to
// 1 within tolerance.
func (s *Skin) UnnormalizedWeights(tolerance float32) []int {
	var bad []int
	for i, w := range s.Weights {
		sum := w[0] + w[1] + w[2] + w[3]
		if d := sum - 1; d > tolerance || d < -tolerance {
			bad = append(bad, i)
		}
	}
	return bad
}

// SubmeshByName returns the submesh with the given name (case-insensitive), or nil.
func (s *Skin) SubmeshByName(name string) *Submesh {
	h := hash.FNV1a(name)
	for i := range s.Submeshes {
		if s.Submeshes[i].Hash == h {
			return &s.Submeshes[i]
		}
	}
	return nil
}

// SubmeshIndices returns the slice of the index buffer drawn by sm.
func (s *Skin) SubmeshIndices(sm *Submesh) []uint16 {
	return s.Indices[sm.IndexStart : sm.IndexStart+sm.IndexCount]
}

// VertexCount returns the number of vertices.
func (s *Skin) VertexCount() int {
	return len(s.Positions)
}
