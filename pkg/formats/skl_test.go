package formats

import (
	"errors"
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/Faultbox/lolanim/pkg/hash"
	lmath "github.com/Faultbox/lolanim/pkg/math"
)

const matEps = 1e-4

type classicJoint struct {
	name   string
	parent int32
	global mgl32.Mat4
}

// makeClassicSkeleton builds an r3d2sklt file. influences is only written for version 2.
func makeClassicSkeleton(version uint32, joints []classicJoint, influences []uint32) []byte {
	var b testBuf
	b.WriteString(sklClassicSignature)
	b.put(version)
	b.put(uint32(0)) // designer id
	b.put(uint32(len(joints)))
	for _, j := range joints {
		b.name(j.name, sklNameSize)
		b.put(j.parent)
		b.put(float32(1)) // radius
		for row := 0; row < 3; row++ {
			for col := 0; col < 4; col++ {
				b.put(j.global.At(row, col))
			}
		}
	}
	if version == 2 {
		b.put(uint32(len(influences)))
		b.put(influences)
	}
	return b.Bytes()
}

type versionedJoint struct {
	name       string
	parent     int16
	hash       uint32
	localPos   mgl32.Vec3
	localRot   mgl32.Quat
	localScale mgl32.Vec3
	invPos     mgl32.Vec3
	invRot     mgl32.Quat
	invScale   mgl32.Vec3
}

// makeVersionedSkeleton builds an offset-table skeleton with names stored after the influences.
func makeVersionedSkeleton(joints []versionedJoint, influences []uint16) []byte {
	const headerSize = 32
	jointsOffset := headerSize
	influencesOffset := jointsOffset + len(joints)*sklVersionedJointSize
	namesOffset := influencesOffset + len(influences)*2

	var b testBuf
	b.put(uint32(0)) // file size, patched below
	b.put(sklVersionedTag)
	b.put(uint32(0)) // version
	b.put(uint16(0)) // flags
	b.put(uint16(len(joints)))
	b.put(uint32(len(influences)))
	b.put(uint32(jointsOffset))
	b.put(uint32(0))
	b.put(uint32(influencesOffset))

	namePos := namesOffset
	for i, j := range joints {
		b.put(uint16(0))
		b.put(int16(i))
		b.put(j.parent)
		b.put(uint16(0))
		b.put(j.hash)
		b.put(float32(1))
		b.put(j.localPos)
		b.put(orOne(j.localScale))
		b.quat(j.localRot)
		b.put(j.invPos)
		b.put(orOne(j.invScale))
		b.quat(j.invRot)
		fieldPos := b.Len()
		b.put(int32(namePos - fieldPos))
		namePos += len(j.name) + 1
	}
	b.put(influences)
	for _, j := range joints {
		b.WriteString(j.name)
		b.WriteByte(0)
	}
	b.patchU32(0, uint32(b.Len()))
	return b.Bytes()
}

func orOne(v mgl32.Vec3) mgl32.Vec3 {
	if v == (mgl32.Vec3{}) {
		return mgl32.Vec3{1, 1, 1}
	}
	return v
}

func chainJoints() []classicJoint {
	rootG := mgl32.Translate3D(0, 1, 0)
	midG := rootG.Mul4(mgl32.HomogRotate3DY(float32(math.Pi / 4))).Mul4(mgl32.Translate3D(0, 2, 0))
	tipG := midG.Mul4(mgl32.HomogRotate3DX(0.3)).Mul4(mgl32.Translate3D(1, 0, 0))
	return []classicJoint{
		{"root", -1, rootG},
		{"mid", 0, midG},
		{"tip", 1, tipG},
	}
}

func TestDecodeSkeleton_SignatureValidation(t *testing.T) {
	tests := []struct {
		name    string
		data    []byte
		wantErr error
	}{
		{"empty data", []byte{}, ErrTruncated},
		{"short data", []byte{'r', '3', 'd'}, ErrTruncated},
		{"unknown type", []byte{'r', '3', 'd', '2', 'x', 'x', 'x', 'x', 0, 0, 0, 0}, ErrInvalidSignature},
		{"bad classic prefix", append([]byte("XXXXsklt"), make([]byte, 16)...), ErrInvalidSignature},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			skl, err := DecodeSkeleton(tt.data)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("error = %v, want %v", err, tt.wantErr)
			}
			if skl != nil {
				t.Error("expected no skeleton on error")
			}
			var fe *FormatError
			if !errors.As(err, &fe) || fe.Format != "skl" {
				t.Errorf("expected *FormatError for skl, got %T", err)
			}
		})
	}
}

func TestDecodeSkeleton_ClassicUnsupportedVersion(t *testing.T) {
	data := makeClassicSkeleton(3, chainJoints(), nil)
	if _, err := DecodeSkeleton(data); !errors.Is(err, ErrUnsupportedVersion) {
		t.Errorf("error = %v, want ErrUnsupportedVersion", err)
	}
}

func TestDecodeSkeleton_ClassicChildren(t *testing.T) {
	skl, err := DecodeSkeleton(makeClassicSkeleton(1, chainJoints(), nil))
	if err != nil {
		t.Fatalf("DecodeSkeleton failed: %v", err)
	}

	if skl.Type != SkeletonClassic {
		t.Errorf("Type = %s, want Classic", skl.Type)
	}
	if len(skl.Joints) != 3 {
		t.Fatalf("joint count = %d, want 3", len(skl.Joints))
	}

	want := [][]int{{1}, {2}, nil}
	for i, children := range want {
		got := skl.Joints[i].Children
		if len(got) != len(children) {
			t.Errorf("joint %d children = %v, want %v", i, got, children)
			continue
		}
		for k := range children {
			if got[k] != children[k] {
				t.Errorf("joint %d children = %v, want %v", i, got, children)
			}
		}
	}

	if skl.Joints[1].Name != "mid" || skl.Joints[1].Hash != hash.ELF("mid") {
		t.Errorf("joint 1 = %q/0x%x, want mid/0x%x", skl.Joints[1].Name, skl.Joints[1].Hash, hash.ELF("mid"))
	}
}

func TestDecodeSkeleton_ClassicIdentityInfluences(t *testing.T) {
	skl, err := DecodeSkeleton(makeClassicSkeleton(1, chainJoints(), nil))
	if err != nil {
		t.Fatalf("DecodeSkeleton failed: %v", err)
	}
	for i, v := range skl.Influences {
		if int(v) != i {
			t.Errorf("Influences[%d] = %d, want identity", i, v)
		}
	}
	if len(skl.Influences) != 3 {
		t.Errorf("influence count = %d, want 3", len(skl.Influences))
	}
}

func TestDecodeSkeleton_ClassicExplicitInfluences(t *testing.T) {
	skl, err := DecodeSkeleton(makeClassicSkeleton(2, chainJoints(), []uint32{2, 0}))
	if err != nil {
		t.Fatalf("DecodeSkeleton failed: %v", err)
	}
	if len(skl.Influences) != 2 || skl.Influences[0] != 2 || skl.Influences[1] != 0 {
		t.Errorf("Influences = %v, want [2 0]", skl.Influences)
	}
}

func TestDecodeSkeleton_ClassicParentAfterChild(t *testing.T) {
	// Child stored before its parent: locals must still come out right.
	joints := chainJoints()
	reordered := []classicJoint{
		{joints[2].name, 1, joints[2].global},
		{joints[1].name, 2, joints[1].global},
		{joints[0].name, -1, joints[0].global},
	}

	skl, err := DecodeSkeleton(makeClassicSkeleton(1, reordered, nil))
	if err != nil {
		t.Fatalf("DecodeSkeleton failed: %v", err)
	}
	assertHierarchy(t, skl)

	if roots := skl.Roots(); len(roots) != 1 || roots[0] != 2 {
		t.Errorf("Roots = %v, want [2]", roots)
	}
}

func TestDecodeSkeleton_ClassicTruncated(t *testing.T) {
	data := makeClassicSkeleton(2, chainJoints(), []uint32{0, 1, 2})
	for _, cut := range []int{20, 60, len(data) - 1} {
		if _, err := DecodeSkeleton(data[:cut]); !errors.Is(err, ErrTruncated) {
			t.Errorf("cut at %d: error = %v, want ErrTruncated", cut, err)
		}
	}
}

func TestDecodeSkeleton_ClassicBadParent(t *testing.T) {
	joints := chainJoints()
	joints[2].parent = 7
	if _, err := DecodeSkeleton(makeClassicSkeleton(1, joints, nil)); !errors.Is(err, ErrBadOffset) {
		t.Errorf("error = %v, want ErrBadOffset", err)
	}
}

func TestDecodeSkeleton_Cycle(t *testing.T) {
	joints := chainJoints()
	joints[0].parent = 2
	if _, err := DecodeSkeleton(makeClassicSkeleton(1, joints, nil)); !errors.Is(err, ErrBadOffset) {
		t.Errorf("error = %v, want ErrBadOffset", err)
	}
}

func versionedChain() []versionedJoint {
	rootRot := mgl32.QuatRotate(0.5, mgl32.Vec3{0, 1, 0})
	midRot := mgl32.QuatRotate(-0.25, mgl32.Vec3{1, 0, 0})

	rootLocal := lmath.ComposeTRS(mgl32.Vec3{0, 1, 0}, rootRot, mgl32.Vec3{1, 1, 1})
	midLocal := lmath.ComposeTRS(mgl32.Vec3{0, 2, 0}, midRot, mgl32.Vec3{1, 1, 1})
	midGlobal := rootLocal.Mul4(midLocal)

	// Inverse-global of a rigid transform: rotation conjugate, rotated negated translation.
	inverse := func(m mgl32.Mat4, q mgl32.Quat) (mgl32.Vec3, mgl32.Quat) {
		inv := q.Conjugate()
		return inv.Rotate(lmath.Translation(m).Mul(-1)), inv
	}
	rootInvPos, rootInvRot := inverse(rootLocal, rootRot)
	midInvPos, midInvRot := inverse(midGlobal, rootRot.Mul(midRot))

	return []versionedJoint{
		{name: "Root", parent: -1, hash: hash.ELF("Root"),
			localPos: mgl32.Vec3{0, 1, 0}, localRot: rootRot, invPos: rootInvPos, invRot: rootInvRot},
		{name: "Spine", parent: 0, hash: hash.ELF("Spine"),
			localPos: mgl32.Vec3{0, 2, 0}, localRot: midRot, invPos: midInvPos, invRot: midInvRot},
	}
}

func TestDecodeSkeleton_Versioned(t *testing.T) {
	data := makeVersionedSkeleton(versionedChain(), []uint16{1, 0})

	skl, err := DecodeSkeleton(data)
	if err != nil {
		t.Fatalf("DecodeSkeleton failed: %v", err)
	}

	if skl.Type != SkeletonVersioned {
		t.Errorf("Type = %s, want Versioned", skl.Type)
	}
	if len(skl.Joints) != 2 {
		t.Fatalf("joint count = %d, want 2", len(skl.Joints))
	}
	if skl.Joints[0].Name != "Root" || skl.Joints[1].Name != "Spine" {
		t.Errorf("names = %q, %q, want Root, Spine", skl.Joints[0].Name, skl.Joints[1].Name)
	}
	if skl.Joints[1].ParentID != 0 || skl.Joints[1].ID != 1 {
		t.Errorf("joint 1 id/parent = %d/%d, want 1/0", skl.Joints[1].ID, skl.Joints[1].ParentID)
	}
	if len(skl.Joints[0].Children) != 1 || skl.Joints[0].Children[0] != 1 {
		t.Errorf("root children = %v, want [1]", skl.Joints[0].Children)
	}
	if len(skl.Influences) != 2 || skl.Influences[0] != 1 {
		t.Errorf("Influences = %v, want [1 0]", skl.Influences)
	}
	if skl.JointByName("spine") != 1 {
		t.Errorf("JointByName(spine) = %d, want 1", skl.JointByName("spine"))
	}
	if skl.JointByHash(hash.ELF("Root")) != 0 {
		t.Errorf("JointByHash(Root) = %d, want 0", skl.JointByHash(hash.ELF("Root")))
	}

	assertHierarchy(t, skl)
}

func TestDecodeSkeleton_VersionedBadNameOffset(t *testing.T) {
	data := makeVersionedSkeleton(versionedChain(), []uint16{0, 1})
	// Point the first joint's name offset past the end of the file.
	nameField := 32 + sklVersionedJointSize - 4
	putU32(data, nameField, uint32(len(data)))

	if _, err := DecodeSkeleton(data); !errors.Is(err, ErrBadOffset) {
		t.Errorf("error = %v, want ErrBadOffset", err)
	}
}

func TestDecodeSkeleton_VersionedBadJointOffset(t *testing.T) {
	data := makeVersionedSkeleton(versionedChain(), []uint16{0, 1})
	putU32(data, 20, uint32(len(data)+100))

	if _, err := DecodeSkeleton(data); !errors.Is(err, ErrBadOffset) {
		t.Errorf("error = %v, want ErrBadOffset", err)
	}
}

func TestDecodeSkeleton_VersionedTruncatedInfluences(t *testing.T) {
	data := makeVersionedSkeleton(versionedChain(), []uint16{0, 1})
	// Claim far more influences than the file holds.
	putU32(data, 16, 5000)

	if _, err := DecodeSkeleton(data); !errors.Is(err, ErrTruncated) {
		t.Errorf("error = %v, want ErrTruncated", err)
	}
}

// assertHierarchy checks that global = inverse(inverseGlobal) and that
// composing locals from the root reproduces every global.
func assertHierarchy(t *testing.T, skl *Skeleton) {
	t.Helper()

	for i := range skl.Joints {
		j := &skl.Joints[i]
		if !lmath.ApproxEqualMat4(j.Global, j.InverseGlobal.Inv(), matEps) {
			t.Errorf("joint %s: global != inverse(inverseGlobal)", j.Name)
		}

		composed := j.Local
		for p := j.ParentID; p >= 0; p = skl.Joints[p].ParentID {
			composed = skl.Joints[p].Local.Mul4(composed)
		}
		if !lmath.ApproxEqualMat4(composed, j.Global, matEps) {
			t.Errorf("joint %s: composed locals %v != global %v", j.Name, composed, j.Global)
		}
	}
}

func TestSkeletonType_String(t *testing.T) {
	tests := []struct {
		typ  SkeletonType
		want string
	}{
		{SkeletonClassic, "Classic"},
		{SkeletonVersioned, "Versioned"},
		{SkeletonType(9), "Unknown(9)"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := tt.typ.String(); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}
