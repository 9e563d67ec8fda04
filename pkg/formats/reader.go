package formats

import (
	"encoding/binary"
	"math"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/Faultbox/lolanim/pkg/encoding"
)

// reader is a bounds-checked little-endian cursor over a byte slice.
// The first failure is kept and every later read returns zero values,
// so callers check err once per section.
type reader struct {
	format string
	data   []byte
	pos    int
	err    error
}

func newReader(format string, data []byte) *reader {
	return &reader{format: format, data: data}
}

func (r *reader) fail(cause error, detail string) {
	if r.err == nil {
		r.err = &FormatError{Format: r.format, Offset: r.pos, Detail: detail, Err: cause}
	}
}

func (r *reader) remaining() int {
	return len(r.data) - r.pos
}

func (r *reader) take(n int) []byte {
	if r.err != nil {
		return nil
	}
	if n < 0 || n > r.remaining() {
		r.fail(ErrTruncated, "")
		return nil
	}
	b := r.data[r.pos : r.pos+n]
	r.pos += n
	return b
}

// fits reports whether count records of size bytes remain, failing otherwise.
// Called before allocating from untrusted counts.
func (r *reader) fits(count, size int) bool {
	if r.err != nil {
		return false
	}
	if count < 0 || (size > 0 && count > r.remaining()/size) {
		r.fail(ErrTruncated, "")
		return false
	}
	return true
}

// fitsTable is fits for a rows x cols table without overflowing the product.
func (r *reader) fitsTable(rows, cols, size int) bool {
	if r.err == nil && cols > 0 && rows > r.remaining()/cols {
		r.fail(ErrTruncated, "")
		return false
	}
	return r.fits(rows*cols, size)
}

func (r *reader) seek(offset int) {
	if r.err != nil {
		return
	}
	if offset < 0 || offset > len(r.data) {
		r.fail(ErrBadOffset, "")
		return
	}
	r.pos = offset
}

func (r *reader) skip(n int) {
	r.take(n)
}

func (r *reader) u8() uint8 {
	b := r.take(1)
	if b == nil {
		return 0
	}
	return b[0]
}

func (r *reader) u16() uint16 {
	b := r.take(2)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint16(b)
}

func (r *reader) i16() int16 {
	return int16(r.u16())
}

func (r *reader) u32() uint32 {
	b := r.take(4)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint32(b)
}

func (r *reader) i32() int32 {
	return int32(r.u32())
}

func (r *reader) f32() float32 {
	return math.Float32frombits(r.u32())
}

// u48 reads a 48-bit little-endian unsigned integer.
func (r *reader) u48() uint64 {
	b := r.take(6)
	if b == nil {
		return 0
	}
	return uint64(b[0]) | uint64(b[1])<<8 | uint64(b[2])<<16 |
		uint64(b[3])<<24 | uint64(b[4])<<32 | uint64(b[5])<<40
}

func (r *reader) vec2() mgl32.Vec2 {
	return mgl32.Vec2{r.f32(), r.f32()}
}

func (r *reader) vec3() mgl32.Vec3 {
	return mgl32.Vec3{r.f32(), r.f32(), r.f32()}
}

func (r *reader) vec4() mgl32.Vec4 {
	return mgl32.Vec4{r.f32(), r.f32(), r.f32(), r.f32()}
}

// quat reads a quaternion stored as x, y, z, w.
func (r *reader) quat() mgl32.Quat {
	v := r.vec3()
	return mgl32.Quat{W: r.f32(), V: v}
}

// fixedString reads a null-padded name of exactly n bytes.
func (r *reader) fixedString(n int) string {
	b := r.take(n)
	if b == nil {
		return ""
	}
	return encoding.DecodeName(b)
}

// cstringAt reads a null-terminated string at an absolute offset without
// moving the cursor.
func (r *reader) cstringAt(offset int) string {
	if r.err != nil {
		return ""
	}
	if offset < 0 || offset >= len(r.data) {
		r.fail(ErrBadOffset, "name offset")
		return ""
	}
	end := offset
	for end < len(r.data) && r.data[end] != 0 {
		end++
	}
	if end == len(r.data) {
		r.fail(ErrTruncated, "unterminated name")
		return ""
	}
	return encoding.DecodeName(r.data[offset:end])
}
