package formats

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/Faultbox/lolanim/pkg/hash"
)

const (
	anmDenseSignature      = "r3d2anmd"
	anmCompressedSignature = "r3d2canm"
	anmNameSize            = 32

	// Offsets in v4, v5 and compressed headers are relative to this position.
	anmOffsetBase = 12

	anmV4FrameSize     = 4 + 2 + 2 + 2 + 2
	anmV5FrameSize     = 2 + 2 + 2
	anmLegacyFrameSize = 16 + 12
	anmPackedQuatSize  = 6
)

// AnimationFormat identifies which encoding an animation was decoded from.
type AnimationFormat int

const (
	AnimationLegacy     AnimationFormat = 0 // r3d2anmd v1-v3, dense per-joint frames
	AnimationV4         AnimationFormat = 1 // r3d2anmd v4, shared pools keyed by hash
	AnimationV5         AnimationFormat = 2 // r3d2anmd v5, shared pools, packed rotations
	AnimationCompressed AnimationFormat = 3 // r3d2canm, quantized sparse keys
)

// String returns a human-readable encoding name.
func (f AnimationFormat) String() string {
	switch f {
	case AnimationLegacy:
		return "Legacy"
	case AnimationV4:
		return "V4"
	case AnimationV5:
		return "V5"
	case AnimationCompressed:
		return "Compressed"
	default:
		return fmt.Sprintf("Unknown(%d)", f)
	}
}

// VecKey is a translation or scale keyframe.
type VecKey struct {
	Time  float32 // Seconds
	Value mgl32.Vec3
}

// KeyTime returns the keyframe time.
func (k VecKey) KeyTime() float32 { return k.Time }

// QuatKey is a rotation keyframe.
type QuatKey struct {
	Time  float32 // Seconds
	Value mgl32.Quat
}

// KeyTime returns the keyframe time.
func (k QuatKey) KeyTime() float32 { return k.Time }

// Track holds the keyframes of one joint. The three channels are sampled
// independently and each is sorted by time.
type Track struct {
	Hash         uint32 // Joint hash, matched against Joint.Hash
	Translations []VecKey
	Rotations    []QuatKey
	Scales       []VecKey
}

// Animation is a decoded ANM file.
type Animation struct {
	Format     AnimationFormat
	Version    uint32
	FPS        float32
	Duration   float32 // Seconds
	FrameDelay float32 // Seconds between nominal frames
	Tracks     []Track
}

// TrackByHash returns the track bound to the joint hash, or nil.
func (a *Animation) TrackByHash(h uint32) *Track {
	for i := range a.Tracks {
		if a.Tracks[i].Hash == h {
			return &a.Tracks[i]
		}
	}
	return nil
}

// KeyCount returns the total number of keyframes across all tracks and channels.
func (a *Animation) KeyCount() int {
	n := 0
	for i := range a.Tracks {
		t := &a.Tracks[i]
		n += len(t.Translations) + len(t.Rotations) + len(t.Scales)
	}
	return n
}

// DecodeAnimation decodes ANM data in any of the legacy, v4, v5 or
// compressed encodings.
func DecodeAnimation(data []byte) (*Animation, error) {
	r := newReader("anm", data)

	sig := string(r.take(8))
	if r.err != nil {
		return nil, r.err
	}

	var anm *Animation
	switch sig {
	case anmCompressedSignature:
		anm = decodeCompressedAnimation(r)
	case anmDenseSignature:
		version := r.u32()
		switch version {
		case 5:
			anm = decodeV5Animation(r)
		case 4:
			anm = decodeV4Animation(r)
		case 1, 2, 3:
			anm = decodeLegacyAnimation(r, version)
		default:
			r.pos -= 4
			r.fail(ErrUnsupportedVersion, fmt.Sprintf("r3d2anmd version %d", version))
		}
	default:
		r.pos = 0
		r.fail(ErrInvalidSignature, fmt.Sprintf("%q", sig))
	}
	if r.err != nil {
		return nil, r.err
	}
	return anm, nil
}

func decodeLegacyAnimation(r *reader, version uint32) *Animation {
	r.skip(4) // skeleton id

	jointCount := int(r.u32())
	frameCount := int(r.u32())
	fps := r.i32()
	if r.err == nil && fps <= 0 {
		r.fail(ErrInvalidHeader, fmt.Sprintf("fps %d", fps))
	}
	if !r.fits(jointCount, anmNameSize+4) {
		return nil
	}

	anm := &Animation{
		Format:     AnimationLegacy,
		Version:    version,
		FPS:        float32(fps),
		FrameDelay: 1 / float32(fps),
		Tracks:     make([]Track, 0, jointCount),
	}
	anm.Duration = float32(frameCount) * anm.FrameDelay

	for j := 0; j < jointCount; j++ {
		name := r.fixedString(anmNameSize)
		r.skip(4) // flags
		if !r.fits(frameCount, anmLegacyFrameSize) {
			return nil
		}

		track := Track{
			Hash:         hash.ELF(name),
			Translations: make([]VecKey, frameCount),
			Rotations:    make([]QuatKey, frameCount),
			Scales:       make([]VecKey, frameCount),
		}
		for f := 0; f < frameCount; f++ {
			t := float32(f) * anm.FrameDelay
			track.Rotations[f] = QuatKey{Time: t, Value: r.quat()}
			track.Translations[f] = VecKey{Time: t, Value: r.vec3()}
			track.Scales[f] = VecKey{Time: t, Value: mgl32.Vec3{1, 1, 1}}
		}
		anm.Tracks = append(anm.Tracks, track)
	}
	return anm
}

// frameIndices selects one pooled value per channel for a joint at one frame.
type frameIndices struct {
	translation, scale, rotation uint16
}

func decodeV4Animation(r *reader) *Animation {
	r.skip(16) // resource size, format token, version, flags

	jointCount := int(r.u32())
	frameCount := int(r.u32())
	frameDelay := r.f32()
	r.skip(12) // track info, asset name, time offsets

	vectorsOffset := int(r.u32()) + anmOffsetBase
	rotationsOffset := int(r.u32()) + anmOffsetBase
	framesOffset := int(r.u32()) + anmOffsetBase
	if r.err != nil {
		return nil
	}
	if frameDelay <= 0 {
		r.fail(ErrInvalidHeader, fmt.Sprintf("frame delay %v", frameDelay))
		return nil
	}
	if rotationsOffset < vectorsOffset || framesOffset < rotationsOffset {
		r.fail(ErrBadOffset, "pool offsets out of order")
		return nil
	}

	vectors := readVec3Pool(r, vectorsOffset, (rotationsOffset-vectorsOffset)/12)
	rotations := readQuatPool(r, rotationsOffset, (framesOffset-rotationsOffset)/16)

	r.seek(framesOffset)
	if !r.fitsTable(jointCount, frameCount, anmV4FrameSize) {
		return nil
	}

	// Records are grouped by joint hash; tracks keep first-seen order.
	var order []uint32
	frames := make(map[uint32][]frameIndices, jointCount)
	for i := 0; i < jointCount*frameCount; i++ {
		h := r.u32()
		fi := frameIndices{translation: r.u16(), scale: r.u16(), rotation: r.u16()}
		r.skip(2)
		if _, ok := frames[h]; !ok {
			order = append(order, h)
		}
		frames[h] = append(frames[h], fi)
	}
	if r.err != nil {
		return nil
	}

	anm := &Animation{
		Format:     AnimationV4,
		Version:    4,
		FPS:        1 / frameDelay,
		Duration:   float32(frameCount) * frameDelay,
		FrameDelay: frameDelay,
		Tracks:     make([]Track, 0, len(order)),
	}

	for _, h := range order {
		track, ok := buildTrack(r, h, frames[h], frameDelay, vectors, func(i uint16) (mgl32.Quat, bool) {
			if int(i) >= len(rotations) {
				return mgl32.Quat{}, false
			}
			return rotations[i], true
		})
		if !ok {
			return nil
		}
		anm.Tracks = append(anm.Tracks, track)
	}
	return anm
}

func decodeV5Animation(r *reader) *Animation {
	r.skip(16) // resource size, format token, version, flags

	jointCount := int(r.u32())
	frameCount := int(r.u32())
	frameDelay := r.f32()

	hashesOffset := int(r.u32()) + anmOffsetBase
	r.skip(8) // asset name, time offsets
	vectorsOffset := int(r.u32()) + anmOffsetBase
	rotationsOffset := int(r.u32()) + anmOffsetBase
	framesOffset := int(r.u32()) + anmOffsetBase
	if r.err != nil {
		return nil
	}
	if frameDelay <= 0 {
		r.fail(ErrInvalidHeader, fmt.Sprintf("frame delay %v", frameDelay))
		return nil
	}
	if rotationsOffset < vectorsOffset || hashesOffset < rotationsOffset || framesOffset < hashesOffset {
		r.fail(ErrBadOffset, "pool offsets out of order")
		return nil
	}

	hashCount := (framesOffset - hashesOffset) / 4
	if hashCount < jointCount {
		r.fail(ErrBadOffset, fmt.Sprintf("%d hashes for %d joints", hashCount, jointCount))
		return nil
	}
	r.seek(hashesOffset)
	if !r.fits(hashCount, 4) {
		return nil
	}
	hashes := make([]uint32, hashCount)
	for i := range hashes {
		hashes[i] = r.u32()
	}

	vectors := readVec3Pool(r, vectorsOffset, (rotationsOffset-vectorsOffset)/12)

	r.seek(rotationsOffset)
	rotationCount := (hashesOffset - rotationsOffset) / anmPackedQuatSize
	if !r.fits(rotationCount, anmPackedQuatSize) {
		return nil
	}
	packed := make([]uint64, rotationCount)
	for i := range packed {
		packed[i] = r.u48()
	}

	// The frame table is frame-major: every joint for frame 0, then frame 1, ...
	r.seek(framesOffset)
	if !r.fitsTable(jointCount, frameCount, anmV5FrameSize) {
		return nil
	}
	perJoint := make([][]frameIndices, jointCount)
	for j := range perJoint {
		perJoint[j] = make([]frameIndices, 0, frameCount)
	}
	for f := 0; f < frameCount; f++ {
		for j := 0; j < jointCount; j++ {
			perJoint[j] = append(perJoint[j], frameIndices{translation: r.u16(), scale: r.u16(), rotation: r.u16()})
		}
	}
	if r.err != nil {
		return nil
	}

	anm := &Animation{
		Format:     AnimationV5,
		Version:    5,
		FPS:        1 / frameDelay,
		Duration:   float32(frameCount) * frameDelay,
		FrameDelay: frameDelay,
		Tracks:     make([]Track, 0, jointCount),
	}

	for j := 0; j < jointCount; j++ {
		track, ok := buildTrack(r, hashes[j], perJoint[j], frameDelay, vectors, func(i uint16) (mgl32.Quat, bool) {
			if int(i) >= len(packed) {
				return mgl32.Quat{}, false
			}
			return DecompressQuat(packed[i]), true
		})
		if !ok {
			return nil
		}
		anm.Tracks = append(anm.Tracks, track)
	}
	return anm
}

func readVec3Pool(r *reader, offset, count int) []mgl32.Vec3 {
	r.seek(offset)
	if !r.fits(count, 12) {
		return nil
	}
	pool := make([]mgl32.Vec3, count)
	for i := range pool {
		pool[i] = r.vec3()
	}
	return pool
}

func readQuatPool(r *reader, offset, count int) []mgl32.Quat {
	r.seek(offset)
	if !r.fits(count, 16) {
		return nil
	}
	pool := make([]mgl32.Quat, count)
	for i := range pool {
		pool[i] = r.quat()
	}
	return pool
}

// buildTrack resolves pooled indices into keyframes at uniform spacing.
func buildTrack(r *reader, h uint32, frames []frameIndices, frameDelay float32,
	vectors []mgl32.Vec3, rotation func(uint16) (mgl32.Quat, bool)) (Track, bool) {
	track := Track{
		Hash:         h,
		Translations: make([]VecKey, len(frames)),
		Rotations:    make([]QuatKey, len(frames)),
		Scales:       make([]VecKey, len(frames)),
	}
	for f, fi := range frames {
		if int(fi.translation) >= len(vectors) || int(fi.scale) >= len(vectors) {
			r.fail(ErrBadOffset, fmt.Sprintf("joint 0x%08x frame %d vector index", h, f))
			return Track{}, false
		}
		q, ok := rotation(fi.rotation)
		if !ok {
			r.fail(ErrBadOffset, fmt.Sprintf("joint 0x%08x frame %d rotation index %d", h, f, fi.rotation))
			return Track{}, false
		}

		t := float32(f) * frameDelay
		track.Translations[f] = VecKey{Time: t, Value: vectors[fi.translation]}
		track.Scales[f] = VecKey{Time: t, Value: vectors[fi.scale]}
		track.Rotations[f] = QuatKey{Time: t, Value: q}
	}
	return track, true
}
