package formats

import (
	"fmt"
	"strings"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/Faultbox/lolanim/pkg/hash"
	lmath "github.com/Faultbox/lolanim/pkg/math"
)

// Skeleton type tags, read as a u32 at offset 4.
const (
	sklClassicTag   uint32 = 0x746C6B73 // "sklt" of "r3d2sklt"
	sklVersionedTag uint32 = 0x22FD4FC3
)

const (
	sklClassicSignature   = "r3d2sklt"
	sklNameSize           = 32
	sklClassicJointSize   = sklNameSize + 4 + 4 + 12*4
	sklVersionedJointSize = 100
)

// SkeletonType identifies which binary layout a skeleton was decoded from.
type SkeletonType int

const (
	SkeletonClassic   SkeletonType = 0 // r3d2sklt, fixed joint records
	SkeletonVersioned SkeletonType = 1 // offset-table driven layout
)

// String returns a human-readable layout name.
func (t SkeletonType) String() string {
	switch t {
	case SkeletonClassic:
		return "Classic"
	case SkeletonVersioned:
		return "Versioned"
	default:
		return fmt.Sprintf("Unknown(%d)", t)
	}
}

// Joint is a node of the skeleton hierarchy in bind pose.
type Joint struct {
	Name     string
	Hash     uint32 // Stable identifier shared with animation tracks
	ID       int16  // Index in the joint table
	ParentID int16  // -1 for root joints

	Local         mgl32.Mat4 // Relative to parent
	Global        mgl32.Mat4 // Relative to model origin
	InverseGlobal mgl32.Mat4

	Children []int // Filled after all joints are read
}

// IsRoot reports whether the joint has no parent.
func (j *Joint) IsRoot() bool {
	return j.ParentID < 0
}

// Skeleton is a decoded SKL file.
type Skeleton struct {
	Type    SkeletonType
	Version uint32
	Joints  []Joint

	// Influences maps skin-local influence indices to joint indices.
	Influences []uint16
}

// DecodeSkeleton decodes SKL data in either the classic or versioned layout.
func DecodeSkeleton(data []byte) (*Skeleton, error) {
	r := newReader("skl", data)

	r.skip(4)
	tag := r.u32()
	if r.err != nil {
		return nil, r.err
	}

	var skl *Skeleton
	switch tag {
	case sklClassicTag:
		skl = decodeClassicSkeleton(r)
	case sklVersionedTag:
		skl = decodeVersionedSkeleton(r)
	default:
		r.pos = 4
		r.fail(ErrInvalidSignature, fmt.Sprintf("type 0x%08x", tag))
	}
	if r.err != nil {
		return nil, r.err
	}

	if err := linkChildren(skl); err != nil {
		return nil, err
	}
	return skl, nil
}

func decodeClassicSkeleton(r *reader) *Skeleton {
	r.seek(0)
	if sig := string(r.take(len(sklClassicSignature))); r.err == nil && sig != sklClassicSignature {
		r.pos = 0
		r.fail(ErrInvalidSignature, fmt.Sprintf("%q", sig))
	}

	version := r.u32()
	if r.err == nil && version != 1 && version != 2 {
		r.fail(ErrUnsupportedVersion, fmt.Sprintf("classic version %d", version))
	}
	r.skip(4) // designer id

	jointCount := int(r.u32())
	if !r.fits(jointCount, sklClassicJointSize) {
		return nil
	}

	skl := &Skeleton{
		Type:    SkeletonClassic,
		Version: version,
		Joints:  make([]Joint, jointCount),
	}

	for i := range skl.Joints {
		joint := &skl.Joints[i]
		joint.Name = r.fixedString(sklNameSize)
		joint.Hash = hash.ELF(joint.Name)
		joint.ID = int16(i)

		parent := r.i32()
		if parent < -1 || parent >= int32(jointCount) {
			r.fail(ErrBadOffset, fmt.Sprintf("joint %d parent %d", i, parent))
		}
		joint.ParentID = int16(parent)

		r.skip(4) // radius

		var rows [12]float32
		for k := range rows {
			rows[k] = r.f32()
		}
		joint.Global = lmath.Mat4FromRows3x4(rows)
		joint.InverseGlobal = joint.Global.Inv()
	}
	if r.err != nil {
		return nil
	}

	// Parents may be stored after their children, so locals need every global first.
	for i := range skl.Joints {
		joint := &skl.Joints[i]
		if joint.IsRoot() {
			joint.Local = joint.Global
			continue
		}
		parent := &skl.Joints[joint.ParentID]
		joint.Local = parent.InverseGlobal.Mul4(joint.Global)
	}

	switch version {
	case 1:
		skl.Influences = make([]uint16, jointCount)
		for i := range skl.Influences {
			skl.Influences[i] = uint16(i)
		}
	case 2:
		count := int(r.u32())
		if !r.fits(count, 4) {
			return nil
		}
		skl.Influences = make([]uint16, count)
		for i := range skl.Influences {
			skl.Influences[i] = uint16(r.u32())
		}
	}

	return skl
}

func decodeVersionedSkeleton(r *reader) *Skeleton {
	r.seek(8)
	version := r.u32()
	r.skip(2) // flags

	jointCount := int(r.u16())
	influenceCount := int(r.u32())
	jointsOffset := int(r.u32())
	r.skip(4) // joint index table
	influencesOffset := int(r.u32())
	if r.err != nil {
		return nil
	}

	r.seek(jointsOffset)
	if !r.fits(jointCount, sklVersionedJointSize) {
		return nil
	}

	skl := &Skeleton{
		Type:    SkeletonVersioned,
		Version: version,
		Joints:  make([]Joint, jointCount),
	}

	for i := range skl.Joints {
		joint := &skl.Joints[i]

		r.skip(2) // flags
		joint.ID = r.i16()
		joint.ParentID = r.i16()
		r.skip(2)
		joint.Hash = r.u32()
		r.skip(4) // radius

		localPos := r.vec3()
		localScale := r.vec3()
		localRot := r.quat()
		joint.Local = lmath.ComposeTRS(localPos, localRot, localScale)

		invPos := r.vec3()
		invScale := r.vec3()
		invRot := r.quat()
		joint.InverseGlobal = lmath.ComposeTRS(invPos, invRot, invScale)
		joint.Global = joint.InverseGlobal.Inv()

		// The name offset is relative to the offset field itself.
		fieldPos := r.pos
		nameOffset := int(r.i32())
		joint.Name = r.cstringAt(fieldPos + nameOffset)

		if r.err == nil && (joint.ParentID < -1 || int(joint.ParentID) >= jointCount) {
			r.fail(ErrBadOffset, fmt.Sprintf("joint %d parent %d", i, joint.ParentID))
		}
	}

	r.seek(influencesOffset)
	if !r.fits(influenceCount, 2) {
		return nil
	}
	skl.Influences = make([]uint16, influenceCount)
	for i := range skl.Influences {
		skl.Influences[i] = r.u16()
	}

	return skl
}

// linkChildren fills each joint's child list and rejects hierarchies that
// are not a forest.
func linkChildren(skl *Skeleton) error {
	for i := range skl.Joints {
		parent := skl.Joints[i].ParentID
		if parent < 0 {
			continue
		}
		skl.Joints[parent].Children = append(skl.Joints[parent].Children, i)
	}

	visited := 0
	stack := skl.Roots()
	for len(stack) > 0 {
		i := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		visited++
		stack = append(stack, skl.Joints[i].Children...)
	}
	if visited != len(skl.Joints) {
		return &FormatError{Format: "skl", Err: ErrBadOffset, Detail: "joint hierarchy contains a cycle"}
	}
	return nil
}

// Roots returns the indices of joints without a parent.
func (s *Skeleton) Roots() []int {
	var roots []int
	for i := range s.Joints {
		if s.Joints[i].IsRoot() {
			roots = append(roots, i)
		}
	}
	return roots
}

// JointByHash returns the index of the joint with the given hash, or -1.
func (s *Skeleton) JointByHash(h uint32) int {
	for i := range s.Joints {
		if s.Joints[i].Hash == h {
			return i
		}
	}
	return -1
}

// JointByName returns the index of the named joint (case-insensitive), or -1.
func (s *Skeleton) JointByName(name string) int {
	for i := range s.Joints {
		if strings.EqualFold(s.Joints[i].Name, name) {
			return i
		}
	}
	return -1
}
