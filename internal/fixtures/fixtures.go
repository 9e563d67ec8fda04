// Package fixtures encodes small skeleton, skin and animation files for tests.
// Only the oldest layout of each format is produced.
package fixtures

import (
	"bytes"
	"encoding/binary"

	"github.com/go-gl/mathgl/mgl32"
)

type buffer struct {
	bytes.Buffer
}

func (b *buffer) put(v any) {
	binary.Write(&b.Buffer, binary.LittleEndian, v)
}

func (b *buffer) name(s string) {
	var n [32]byte
	copy(n[:], s)
	b.Write(n[:])
}

// Joint describes one classic skeleton record.
type Joint struct {
	Name   string
	Parent int32
	Global mgl32.Mat4
}

// SkeletonV1 encodes a classic version 1 skeleton.
func SkeletonV1(joints ...Joint) []byte {
	var b buffer
	b.WriteString("r3d2sklt")
	b.put(uint32(1))
	b.put(uint32(0))
	b.put(uint32(len(joints)))
	for _, j := range joints {
		b.name(j.Name)
		b.put(j.Parent)
		b.put(float32(1))
		for row := 0; row < 3; row++ {
			for col := 0; col < 4; col++ {
				b.put(j.Global.At(row, col))
			}
		}
	}
	return b.Bytes()
}

// Vertex describes one skin vertex.
type Vertex struct {
	Pos        mgl32.Vec3
	Influences [4]uint8
	Weights    mgl32.Vec4
}

// SkinV0 encodes a version 0 skin, which has a single implicit submesh.
func SkinV0(indices []uint16, vertices ...Vertex) []byte {
	var b buffer
	b.put(uint32(0x00112233))
	b.put(uint16(0))
	b.put(uint16(1))
	b.put(uint32(len(indices)))
	b.put(uint32(len(vertices)))
	b.put(indices)
	for _, v := range vertices {
		b.put(v.Pos)
		b.put(v.Influences)
		b.put(v.Weights)
		b.put(mgl32.Vec3{0, 1, 0})
		b.put(mgl32.Vec2{})
	}
	return b.Bytes()
}

// Track holds one translation per frame for a named joint. Rotations stay
// identity.
type Track struct {
	Joint        string
	Translations []mgl32.Vec3
}

// AnimationV1 encodes a legacy version 1 animation. Every track must have
// the same number of frames.
func AnimationV1(fps int32, tracks ...Track) []byte {
	var b buffer
	b.WriteString("r3d2anmd")
	b.put(uint32(1))
	b.put(uint32(0))
	b.put(uint32(len(tracks)))
	frames := 0
	if len(tracks) > 0 {
		frames = len(tracks[0].Translations)
	}
	b.put(uint32(frames))
	b.put(fps)
	for _, tr := range tracks {
		b.name(tr.Joint)
		b.put(uint32(0))
		for _, t := range tr.Translations {
			b.put([4]float32{0, 0, 0, 1})
			b.put(t)
		}
	}
	return b.Bytes()
}

// Triangle returns three vertices bound to joints 0 and 1. The last vertex's
// weights sum to 0.7.
func Triangle() []Vertex {
	return []Vertex{
		{mgl32.Vec3{0, 0, 0}, [4]uint8{0, 0, 0, 0}, mgl32.Vec4{1, 0, 0, 0}},
		{mgl32.Vec3{1, 0, 0}, [4]uint8{1, 0, 0, 0}, mgl32.Vec4{1, 0, 0, 0}},
		{mgl32.Vec3{1, 1, 0}, [4]uint8{1, 0, 0, 0}, mgl32.Vec4{0.5, 0.2, 0, 0}},
	}
}

// ArmSkeleton is a root at the origin with an "arm" child at (1, 0, 0).
func ArmSkeleton() []byte {
	return SkeletonV1(
		Joint{"root", -1, mgl32.Ident4()},
		Joint{"arm", 0, mgl32.Translate3D(1, 0, 0)},
	)
}

// Wave moves the arm from (1, 0, 0) to (1, 4, 0) over three frames at 2 fps.
func Wave() []byte {
	return AnimationV1(2, Track{"arm", []mgl32.Vec3{{1, 0, 0}, {1, 2, 0}, {1, 4, 0}}})
}

// Idle holds the root still.
func Idle() []byte {
	return AnimationV1(30, Track{"root", []mgl32.Vec3{{0, 0, 0}}})
}

// Files returns a model laid out as annie/annie.skl, annie/annie.skn and
// annie/anims/{idle,wave}.anm.
func Files() map[string][]byte {
	return map[string][]byte{
		"annie/annie.skl":      ArmSkeleton(),
		"annie/annie.skn":      SkinV0([]uint16{0, 1, 2}, Triangle()...),
		"annie/anims/wave.anm": Wave(),
		"annie/anims/idle.anm": Idle(),
	}
}
