// Package pose samples animations against a skeleton and produces skinning
// matrices.
//
// A State carries the per-model search cursors between frames, so each model
// instance needs its own State. Evaluation never fails: joints without a
// matching track keep their bind pose and times outside a track's keys hold
// the boundary key.
package pose

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/Faultbox/lolanim/pkg/formats"
	lmath "github.com/Faultbox/lolanim/pkg/math"
)

type cursors struct {
	translation, rotation, scale int
}

// State evaluates one animation on one skeleton. It is not safe for
// concurrent use.
type State struct {
	skl  *formats.Skeleton
	anim *formats.Animation

	tracks  []*formats.Track // Per joint, nil when the animation has no track for it
	cursors []cursors
	order   []int // Parents before children
	globals []mgl32.Mat4
}

// NewState prepares evaluation of anim on skl. anim may be nil, in which case
// every joint stays in bind pose.
func NewState(skl *formats.Skeleton, anim *formats.Animation) *State {
	n := len(skl.Joints)
	s := &State{
		skl:     skl,
		tracks:  make([]*formats.Track, n),
		cursors: make([]cursors, n),
		order:   traversalOrder(skl),
		globals: make([]mgl32.Mat4, n),
	}
	for i := range s.globals {
		s.globals[i] = skl.Joints[i].Global
	}
	s.Bind(anim)
	return s
}

// traversalOrder lists joints breadth-first from the roots.
func traversalOrder(skl *formats.Skeleton) []int {
	order := make([]int, 0, len(skl.Joints))
	order = append(order, skl.Roots()...)
	for i := 0; i < len(order); i++ {
		order = append(order, skl.Joints[order[i]].Children...)
	}
	return order
}

// Bind switches to another animation, matching tracks to joints by hash,
// and resets the search cursors.
func (s *State) Bind(anim *formats.Animation) {
	s.anim = anim
	for i := range s.skl.Joints {
		s.cursors[i] = cursors{}
		s.tracks[i] = nil
		if anim != nil {
			s.tracks[i] = anim.TrackByHash(s.skl.Joints[i].Hash)
		}
	}
}

// Animation returns the bound animation, or nil.
func (s *State) Animation() *formats.Animation {
	return s.anim
}

// BoundJoints returns how many joints have a matching track.
func (s *State) BoundJoints() int {
	n := 0
	for _, t := range s.tracks {
		if t != nil {
			n++
		}
	}
	return n
}

// Globals returns the posed model-space joint transforms from the last
// Evaluate call. The slice is reused by the next call.
func (s *State) Globals() []mgl32.Mat4 {
	return s.globals
}

// Evaluate poses the skeleton at time t (seconds) and writes one skinning
// matrix per joint into out, growing it if needed. The returned slice is
// index-aligned with the skeleton's joints.
func (s *State) Evaluate(t float32, out []mgl32.Mat4) []mgl32.Mat4 {
	n := len(s.skl.Joints)
	if cap(out) < n {
		out = make([]mgl32.Mat4, n)
	}
	out = out[:n]

	for _, i := range s.order {
		joint := &s.skl.Joints[i]

		local := joint.Local
		if track := s.tracks[i]; track != nil {
			local = s.sampleTrack(track, &s.cursors[i], t)
		}

		if joint.IsRoot() {
			s.globals[i] = local
		} else {
			s.globals[i] = s.globals[joint.ParentID].Mul4(local)
		}
		out[i] = s.globals[i].Mul4(joint.InverseGlobal)
	}
	return out
}

func (s *State) sampleTrack(track *formats.Track, c *cursors, t float32) mgl32.Mat4 {
	translation := sampleVec3(track.Translations, t, &c.translation, mgl32.Vec3{})
	scale := sampleVec3(track.Scales, t, &c.scale, mgl32.Vec3{1, 1, 1})

	rotation := mgl32.QuatIdent()
	if len(track.Rotations) > 0 {
		lo, hi, alpha := FindBracket(track.Rotations, t, &c.rotation)
		rotation = lmath.Nlerp(track.Rotations[lo].Value, track.Rotations[hi].Value, alpha)
	}
	return lmath.ComposeTRS(translation, rotation, scale)
}

func sampleVec3(keys []formats.VecKey, t float32, cursor *int, fallback mgl32.Vec3) mgl32.Vec3 {
	if len(keys) == 0 {
		return fallback
	}
	lo, hi, alpha := FindBracket(keys, t, cursor)
	return lmath.LerpVec3(keys[lo].Value, keys[hi].Value, alpha)
}

// Evaluate poses skl with anim at time t using a fresh State.
func Evaluate(skl *formats.Skeleton, anim *formats.Animation, t float32) []mgl32.Mat4 {
	return NewState(skl, anim).Evaluate(t, nil)
}
