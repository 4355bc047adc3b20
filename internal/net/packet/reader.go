package packet

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

var ErrShortPayload = errors.New("short payload")

// maxLength bounds length prefixes so a corrupt payload cannot make the
// reader allocate unbounded memory.
const maxLength = 64 << 20

// Reader reads fields written by Writer. The first failure is sticky:
// later reads return zero values and Err reports the failure.
type Reader struct {
	data []byte
	off  int
	err  error
}

func NewReader(data []byte) *Reader {
	return &Reader{data: data}
}

func (r *Reader) fail(err error) {
	if r.err == nil {
		r.err = err
	}
}

func (r *Reader) take(n int, what string) []byte {
	if r.err != nil {
		return nil
	}
	if n < 0 || r.off+n > len(r.data) {
		r.fail(fmt.Errorf("read %s at %d: %w", what, r.off, ErrShortPayload))
		return nil
	}
	b := r.data[r.off : r.off+n]
	r.off += n
	return b
}

// ReadU8 reads 1 byte.
func (r *Reader) ReadU8() uint8 {
	b := r.take(1, "u8")
	if b == nil {
		return 0
	}
	return b[0]
}

func (r *Reader) ReadBool() bool {
	switch v := r.ReadU8(); v {
	case 0:
		return false
	case 1:
		return true
	default:
		r.fail(fmt.Errorf("invalid bool %d", v))
		return false
	}
}

// ReadU32 reads 4 bytes big-endian.
func (r *Reader) ReadU32() uint32 {
	b := r.take(4, "u32")
	if b == nil {
		return 0
	}
	return binary.BigEndian.Uint32(b)
}

// ReadTag reads a union discriminant.
func (r *Reader) ReadTag() uint32 {
	return r.ReadU32()
}

// ReadU64 reads 8 bytes big-endian.
func (r *Reader) ReadU64() uint64 {
	b := r.take(8, "u64")
	if b == nil {
		return 0
	}
	return binary.BigEndian.Uint64(b)
}

func (r *Reader) ReadI64() int64 {
	return int64(r.ReadU64())
}

func (r *Reader) ReadF64() float64 {
	return math.Float64frombits(r.ReadU64())
}

// ReadLen reads a u32 length prefix and checks it against the remaining
// payload when each element takes at least minSize bytes.
func (r *Reader) ReadLen(minSize int) int {
	n := int(r.ReadU32())
	if r.err != nil {
		return 0
	}
	if n > maxLength || (minSize > 0 && n*minSize > r.Remaining()) {
		r.fail(fmt.Errorf("length %d exceeds payload: %w", n, ErrShortPayload))
		return 0
	}
	return n
}

func (r *Reader) ReadString() string {
	n := r.ReadLen(1)
	return string(r.take(n, "string"))
}

func (r *Reader) ReadBytes() []byte {
	n := r.ReadLen(1)
	b := r.take(n, "bytes")
	if b == nil {
		return nil
	}
	return append([]byte(nil), b...)
}

// ReadUUID reads 16 raw bytes.
func (r *Reader) ReadUUID() [16]byte {
	var id [16]byte
	copy(id[:], r.take(16, "uuid"))
	return id
}

// Remaining returns the number of unread bytes.
func (r *Reader) Remaining() int {
	return len(r.data) - r.off
}

// Failf records a decoding error found by the caller.
func (r *Reader) Failf(format string, args ...any) {
	r.fail(fmt.Errorf(format, args...))
}

func (r *Reader) Err() error {
	return r.err
}

// Finish returns the sticky error, or an error when bytes are left unread.
func (r *Reader) Finish() error {
	if r.err != nil {
		return r.err
	}
	if r.Remaining() != 0 {
		return fmt.Errorf("%d trailing bytes", r.Remaining())
	}
	return nil
}
