package formats

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// Channel tags of compressed animation entries.
const (
	entryRotation    uint8 = 0
	entryTranslation uint8 = 64
	entryScale       uint8 = 128
)

const (
	compressedEntrySize = 2 + 1 + 1 + 6
	quantizedMax        = 65535.0
	packedQuatMax       = 32767.0
)

// compressedKey is a quantized keyframe before decompression.
type compressedKey struct {
	time uint16
	data uint64
}

// compressedBuckets holds one joint's keys split by channel.
type compressedBuckets struct {
	translations, rotations, scales []compressedKey
}

func decodeCompressedAnimation(r *reader) *Animation {
	version := r.u32()
	r.skip(12) // resource size, format token, flags

	jointCount := int(r.u32())
	entryCount := int(r.i32())
	r.skip(4) // jump cache count

	duration := r.f32()
	fps := r.f32()
	r.skip(24) // rotation, translation and scale error metrics

	translationMin := r.vec3()
	translationMax := r.vec3()
	scaleMin := r.vec3()
	scaleMax := r.vec3()

	entriesOffset := int(r.u32()) + anmOffsetBase
	r.skip(4) // jump caches offset
	hashesOffset := int(r.u32()) + anmOffsetBase
	if r.err != nil {
		return nil
	}
	if fps <= 0 || duration < 0 {
		r.fail(ErrInvalidHeader, fmt.Sprintf("fps %v duration %v", fps, duration))
		return nil
	}
	if entryCount < 0 {
		r.fail(ErrInvalidHeader, fmt.Sprintf("entry count %d", entryCount))
		return nil
	}

	r.seek(hashesOffset)
	if !r.fits(jointCount, 4) {
		return nil
	}
	hashes := make([]uint32, jointCount)
	for i := range hashes {
		hashes[i] = r.u32()
	}

	r.seek(entriesOffset)
	if !r.fits(entryCount, compressedEntrySize) {
		return nil
	}
	buckets := make([]compressedBuckets, jointCount)
	for i := 0; i < entryCount; i++ {
		key := compressedKey{time: r.u16()}
		joint := int(r.u8())
		channel := r.u8()
		key.data = r.u48()
		if r.err != nil {
			return nil
		}

		if joint >= jointCount {
			r.pos -= compressedEntrySize
			r.fail(ErrBadOffset, fmt.Sprintf("entry %d joint %d of %d", i, joint, jointCount))
			return nil
		}
		b := &buckets[joint]
		switch channel {
		case entryRotation:
			b.rotations = append(b.rotations, key)
		case entryTranslation:
			b.translations = append(b.translations, key)
		case entryScale:
			b.scales = append(b.scales, key)
		default:
			r.pos -= compressedEntrySize
			r.fail(ErrUnknownEntryType, fmt.Sprintf("entry %d type %d", i, channel))
			return nil
		}
	}

	anm := &Animation{
		Format:     AnimationCompressed,
		Version:    version,
		FPS:        fps,
		Duration:   duration,
		FrameDelay: 1 / fps,
		Tracks:     make([]Track, jointCount),
	}

	for j := range anm.Tracks {
		b := &buckets[j]
		track := Track{
			Hash:         hashes[j],
			Translations: make([]VecKey, len(b.translations)),
			Rotations:    make([]QuatKey, len(b.rotations)),
			Scales:       make([]VecKey, len(b.scales)),
		}
		for i, k := range b.translations {
			track.Translations[i] = VecKey{
				Time:  DecompressTime(k.time, duration),
				Value: DecompressVec3(translationMin, translationMax, k.data),
			}
		}
		for i, k := range b.scales {
			track.Scales[i] = VecKey{
				Time:  DecompressTime(k.time, duration),
				Value: DecompressVec3(scaleMin, scaleMax, k.data),
			}
		}
		for i, k := range b.rotations {
			track.Rotations[i] = QuatKey{
				Time:  DecompressTime(k.time, duration),
				Value: DecompressQuat(k.data),
			}
		}
		anm.Tracks[j] = track
	}
	return anm
}

// DecompressTime maps a 16-bit fraction of the animation length to seconds.
func DecompressTime(t uint16, duration float32) float32 {
	return float32(t) / quantizedMax * duration
}

// DecompressVec3 maps three 16-bit fractions packed in the low 48 bits of
// data (x lowest) into the [lo, hi] box.
func DecompressVec3(lo, hi mgl32.Vec3, data uint64) mgl32.Vec3 {
	var v mgl32.Vec3
	for axis := 0; axis < 3; axis++ {
		c := uint16(data >> (16 * axis))
		v[axis] = lo[axis] + (hi[axis]-lo[axis])*(float32(c)/quantizedMax)
	}
	return v
}

// DecompressQuat unpacks a smallest-three quaternion: bits 45-46 select the
// omitted component, bits 30-44, 15-29 and 0-14 hold the other three in
// order as fractions of [-1/sqrt2, 1/sqrt2].
func DecompressQuat(data uint64) mgl32.Quat {
	selector := int((data >> 45) & 0x3)
	packed := [3]uint16{
		uint16((data >> 30) & 0x7FFF),
		uint16((data >> 15) & 0x7FFF),
		uint16(data & 0x7FFF),
	}

	var kept [3]float32
	sum := float32(0)
	for i, p := range packed {
		kept[i] = float32(p)/packedQuatMax*math.Sqrt2 - 1/math.Sqrt2
		sum += kept[i] * kept[i]
	}
	omitted := float32(math.Sqrt(float64(max(0, 1-sum))))

	// Components in x, y, z, w order.
	var xyzw [4]float32
	k := 0
	for i := range xyzw {
		if i == selector {
			xyzw[i] = omitted
			continue
		}
		xyzw[i] = kept[k]
		k++
	}
	return mgl32.Quat{W: xyzw[3], V: mgl32.Vec3{xyzw[0], xyzw[1], xyzw[2]}}
}
