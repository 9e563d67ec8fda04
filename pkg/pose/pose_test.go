package pose

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/Faultbox/lolanim/pkg/formats"
	"github.com/Faultbox/lolanim/pkg/hash"
	lmath "github.com/Faultbox/lolanim/pkg/math"
)

const eps = 1e-4

type testJoint struct {
	name   string
	parent int16
	local  mgl32.Mat4
}

// makeSkeleton builds a skeleton from bind locals, deriving globals through
// the parent chain in any joint order.
func makeSkeleton(joints []testJoint) *formats.Skeleton {
	skl := &formats.Skeleton{Joints: make([]formats.Joint, len(joints))}
	for i, j := range joints {
		skl.Joints[i] = formats.Joint{
			Name:     j.name,
			Hash:     hash.ELF(j.name),
			ID:       int16(i),
			ParentID: j.parent,
			Local:    j.local,
		}
	}
	for i, j := range joints {
		if j.parent >= 0 {
			skl.Joints[j.parent].Children = append(skl.Joints[j.parent].Children, i)
		}
	}

	var global func(i int) mgl32.Mat4
	global = func(i int) mgl32.Mat4 {
		j := &skl.Joints[i]
		if j.ParentID < 0 {
			return j.Local
		}
		return global(int(j.ParentID)).Mul4(j.Local)
	}
	for i := range skl.Joints {
		skl.Joints[i].Global = global(i)
		skl.Joints[i].InverseGlobal = skl.Joints[i].Global.Inv()
	}
	return skl
}

func translate(x, y, z float32) mgl32.Mat4 {
	return mgl32.Translate3D(x, y, z)
}

func chain() *formats.Skeleton {
	return makeSkeleton([]testJoint{
		{"root", -1, translate(0, 1, 0)},
		{"mid", 0, lmath.ComposeTRS(mgl32.Vec3{0, 2, 0}, mgl32.QuatRotate(0.4, mgl32.Vec3{1, 0, 0}), mgl32.Vec3{1, 1, 1})},
		{"tip", 1, translate(0, 0, 3)},
	})
}

func constTrack(name string, t mgl32.Vec3, q mgl32.Quat, s mgl32.Vec3) formats.Track {
	return formats.Track{
		Hash:         hash.ELF(name),
		Translations: []formats.VecKey{{Time: 0, Value: t}},
		Rotations:    []formats.QuatKey{{Time: 0, Value: q}},
		Scales:       []formats.VecKey{{Time: 0, Value: s}},
	}
}

func assertIdentity(t *testing.T, mats []mgl32.Mat4) {
	t.Helper()
	for i, m := range mats {
		if !lmath.ApproxEqualMat4(m, mgl32.Ident4(), eps) {
			t.Errorf("joint %d skinning matrix = %v, want identity", i, m)
		}
	}
}

func TestEvaluate_NoAnimationIsBindPose(t *testing.T) {
	skl := chain()
	out := Evaluate(skl, nil, 0.5)

	if len(out) != len(skl.Joints) {
		t.Fatalf("got %d matrices, want %d", len(out), len(skl.Joints))
	}
	assertIdentity(t, out)
}

func TestEvaluate_BindPoseTracks(t *testing.T) {
	skl := chain()
	anim := &formats.Animation{
		Duration: 1,
		Tracks: []formats.Track{
			constTrack("root", mgl32.Vec3{0, 1, 0}, mgl32.QuatIdent(), mgl32.Vec3{1, 1, 1}),
			constTrack("mid", mgl32.Vec3{0, 2, 0}, mgl32.QuatRotate(0.4, mgl32.Vec3{1, 0, 0}), mgl32.Vec3{1, 1, 1}),
		},
	}

	for _, tm := range []float32{0, 0.5, 3} {
		assertIdentity(t, Evaluate(skl, anim, tm))
	}
}

func TestEvaluate_MissingTrackFallsBack(t *testing.T) {
	skl := makeSkeleton([]testJoint{
		{"root", -1, mgl32.Ident4()},
		{"arm_l", 0, translate(-1, 0, 0)},
		{"arm_r", 0, translate(1, 0, 0)},
	})
	anim := &formats.Animation{
		Duration: 1,
		Tracks: []formats.Track{{
			Hash: hash.ELF("arm_l"),
			Translations: []formats.VecKey{
				{Time: 0, Value: mgl32.Vec3{-1, 0, 0}},
				{Time: 1, Value: mgl32.Vec3{-1, 4, 0}},
			},
		}},
	}

	s := NewState(skl, anim)
	if got := s.BoundJoints(); got != 1 {
		t.Errorf("BoundJoints = %d, want 1", got)
	}

	out := s.Evaluate(0.5, nil)

	wantLeft := translate(-1, 2, 0)
	if !lmath.ApproxEqualMat4(s.Globals()[1], wantLeft, eps) {
		t.Errorf("arm_l global = %v, want %v", s.Globals()[1], wantLeft)
	}
	if !lmath.ApproxEqualMat4(out[1], translate(0, 2, 0), eps) {
		t.Errorf("arm_l skinning = %v, want translation (0, 2, 0)", out[1])
	}

	if !lmath.ApproxEqualMat4(s.Globals()[2], skl.Joints[2].Global, eps) {
		t.Errorf("arm_r global = %v, want bind global", s.Globals()[2])
	}
	assertIdentity(t, []mgl32.Mat4{out[0], out[2]})
}

func TestEvaluate_Hierarchy(t *testing.T) {
	skl := chain()
	quarter := mgl32.QuatRotate(mgl32.DegToRad(90), mgl32.Vec3{0, 0, 1})
	anim := &formats.Animation{
		Duration: 1,
		Tracks: []formats.Track{
			constTrack("root", mgl32.Vec3{1, 0, 0}, quarter, mgl32.Vec3{1, 1, 1}),
			constTrack("mid", mgl32.Vec3{0, 1, 0}, mgl32.QuatIdent(), mgl32.Vec3{1, 1, 1}),
			constTrack("tip", mgl32.Vec3{0, 0, 1}, mgl32.QuatIdent(), mgl32.Vec3{2, 2, 2}),
		},
	}

	s := NewState(skl, anim)
	s.Evaluate(0, nil)
	globals := s.Globals()

	// The root's quarter turn carries mid's +Y offset onto -X.
	if got := lmath.Translation(globals[1]); !lmath.ApproxEqualVec3(got, mgl32.Vec3{0, 0, 0}, eps) {
		t.Errorf("mid position = %v, want origin", got)
	}
	if got := lmath.Translation(globals[2]); !lmath.ApproxEqualVec3(got, mgl32.Vec3{0, 0, 1}, eps) {
		t.Errorf("tip position = %v, want (0, 0, 1)", got)
	}

	for i := range skl.Joints {
		j := &skl.Joints[i]
		if j.IsRoot() {
			continue
		}
		local := s.sampleTrack(anim.TrackByHash(j.Hash), &cursors{}, 0)
		want := globals[j.ParentID].Mul4(local)
		if !lmath.ApproxEqualMat4(globals[i], want, eps) {
			t.Errorf("joint %d global does not compose from its parent", i)
		}
	}
}

func TestEvaluate_ChildBeforeParent(t *testing.T) {
	skl := makeSkeleton([]testJoint{
		{"hand", 1, translate(0, 1, 0)},
		{"root", -1, translate(5, 0, 0)},
	})
	anim := &formats.Animation{
		Duration: 1,
		Tracks: []formats.Track{
			{Hash: hash.ELF("root"), Translations: []formats.VecKey{{Time: 0, Value: mgl32.Vec3{7, 0, 0}}}},
		},
	}

	s := NewState(skl, anim)
	out := s.Evaluate(0, nil)

	if got := lmath.Translation(s.Globals()[0]); !lmath.ApproxEqualVec3(got, mgl32.Vec3{7, 1, 0}, eps) {
		t.Errorf("hand position = %v, want (7, 1, 0)", got)
	}
	if !lmath.ApproxEqualMat4(out[0], translate(2, 0, 0), eps) {
		t.Errorf("hand skinning = %v, want translation (2, 0, 0)", out[0])
	}
}

func TestEvaluate_Interpolation(t *testing.T) {
	skl := makeSkeleton([]testJoint{{"root", -1, mgl32.Ident4()}})
	anim := &formats.Animation{
		Duration: 2,
		Tracks: []formats.Track{{
			Hash: hash.ELF("root"),
			Rotations: []formats.QuatKey{
				{Time: 0, Value: mgl32.QuatIdent()},
				{Time: 2, Value: mgl32.QuatRotate(mgl32.DegToRad(90), mgl32.Vec3{0, 0, 1})},
			},
			Scales: []formats.VecKey{
				{Time: 0, Value: mgl32.Vec3{1, 1, 1}},
				{Time: 2, Value: mgl32.Vec3{3, 3, 3}},
			},
		}},
	}

	s := NewState(skl, anim)
	s.Evaluate(1, nil)

	want := lmath.ComposeTRS(mgl32.Vec3{}, mgl32.QuatRotate(mgl32.DegToRad(45), mgl32.Vec3{0, 0, 1}), mgl32.Vec3{2, 2, 2})
	if !lmath.ApproxEqualMat4(s.Globals()[0], want, eps) {
		t.Errorf("pose at t=1 = %v, want %v", s.Globals()[0], want)
	}

	// Past the last key the boundary key holds.
	s.Evaluate(10, nil)
	want = lmath.ComposeTRS(mgl32.Vec3{}, mgl32.QuatRotate(mgl32.DegToRad(90), mgl32.Vec3{0, 0, 1}), mgl32.Vec3{3, 3, 3})
	if !lmath.ApproxEqualMat4(s.Globals()[0], want, eps) {
		t.Errorf("pose at t=10 = %v, want %v", s.Globals()[0], want)
	}

	// Looping back to the start resets the cursors.
	s.Evaluate(0, nil)
	if !lmath.ApproxEqualMat4(s.Globals()[0], mgl32.Ident4(), eps) {
		t.Errorf("pose at t=0 = %v, want identity", s.Globals()[0])
	}
}

func TestState_EvaluateInPlace(t *testing.T) {
	skl := chain()
	s := NewState(skl, nil)

	buf := make([]mgl32.Mat4, len(skl.Joints))
	out := s.Evaluate(0, buf)
	if &out[0] != &buf[0] {
		t.Error("Evaluate allocated a new buffer despite sufficient capacity")
	}

	short := s.Evaluate(0, make([]mgl32.Mat4, 1))
	if len(short) != len(skl.Joints) {
		t.Errorf("len = %d, want %d", len(short), len(skl.Joints))
	}
}

func TestState_Bind(t *testing.T) {
	skl := chain()
	walk := &formats.Animation{Duration: 1, Tracks: []formats.Track{
		constTrack("root", mgl32.Vec3{0, 5, 0}, mgl32.QuatIdent(), mgl32.Vec3{1, 1, 1}),
		constTrack("tip", mgl32.Vec3{0, 0, 3}, mgl32.QuatIdent(), mgl32.Vec3{1, 1, 1}),
	}}
	idle := &formats.Animation{Duration: 1, Tracks: []formats.Track{
		constTrack("unknown_joint", mgl32.Vec3{}, mgl32.QuatIdent(), mgl32.Vec3{1, 1, 1}),
	}}

	s := NewState(skl, walk)
	if s.BoundJoints() != 2 || s.Animation() != walk {
		t.Fatalf("BoundJoints = %d, want 2", s.BoundJoints())
	}
	s.Evaluate(0.5, nil)

	s.Bind(idle)
	if s.BoundJoints() != 0 || s.Animation() != idle {
		t.Errorf("after Bind: BoundJoints = %d, want 0", s.BoundJoints())
	}
	assertIdentity(t, s.Evaluate(0.5, nil))
}

func TestEvaluate_EmptyChannelsUseIdentity(t *testing.T) {
	skl := makeSkeleton([]testJoint{{"root", -1, translate(9, 9, 9)}})
	anim := &formats.Animation{Duration: 1, Tracks: []formats.Track{{Hash: hash.ELF("root")}}}

	s := NewState(skl, anim)
	s.Evaluate(0, nil)
	if !lmath.ApproxEqualMat4(s.Globals()[0], mgl32.Ident4(), eps) {
		t.Errorf("global = %v, want identity", s.Globals()[0])
	}
}
