package formats

import (
	"bytes"
	"encoding/binary"
	"math"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/Faultbox/lolanim/pkg/encoding"
)

// testBuf assembles little-endian test files.
type testBuf struct {
	bytes.Buffer
}

func (b *testBuf) put(v any) {
	binary.Write(&b.Buffer, binary.LittleEndian, v)
}

func (b *testBuf) name(s string, size int) {
	b.Write(encoding.EncodeFixedName(s, size))
}

func (b *testBuf) pad(n int) {
	b.Write(make([]byte, n))
}

func (b *testBuf) u48(v uint64) {
	for i := 0; i < 6; i++ {
		b.WriteByte(byte(v >> (8 * i)))
	}
}

func (b *testBuf) quat(q mgl32.Quat) {
	b.put([4]float32{q.V[0], q.V[1], q.V[2], q.W})
}

func (b *testBuf) patchU32(at int, v uint32) {
	putU32(b.Bytes(), at, v)
}

func putU32(data []byte, at int, v uint32) {
	binary.LittleEndian.PutUint32(data[at:], v)
}

// compressQuat packs q with the smallest-three scheme used by DecompressQuat.
func compressQuat(q mgl32.Quat) uint64 {
	xyzw := [4]float32{q.V[0], q.V[1], q.V[2], q.W}
	selector := 0
	for i := 1; i < 4; i++ {
		if abs32(xyzw[i]) > abs32(xyzw[selector]) {
			selector = i
		}
	}
	if xyzw[selector] < 0 {
		for i := range xyzw {
			xyzw[i] = -xyzw[i]
		}
	}

	data := uint64(selector) << 45
	shift := 30
	for i, c := range xyzw {
		if i == selector {
			continue
		}
		v := math.Round(float64((c + 1/math.Sqrt2) / math.Sqrt2 * packedQuatMax))
		data |= uint64(v) << shift
		shift -= 15
	}
	return data
}

// compressVec3 quantizes v inside [lo, hi] into 48 bits.
func compressVec3(lo, hi, v mgl32.Vec3) uint64 {
	var data uint64
	for axis := 0; axis < 3; axis++ {
		f := (v[axis] - lo[axis]) / (hi[axis] - lo[axis])
		data |= uint64(math.Round(float64(f*quantizedMax))) << (16 * axis)
	}
	return data
}

func abs32(f float32) float32 {
	if f < 0 {
		return -f
	}
	return f
}
