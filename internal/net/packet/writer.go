package packet

import (
	"encoding/binary"
	"math"
)

// Writer builds a message payload. Multi-byte values are big-endian;
// strings and byte slices are prefixed by their u32 length.
type Writer struct {
	buf []byte
}

func NewWriter() *Writer {
	return &Writer{buf: make([]byte, 0, 64)}
}

// NewWriterWithTag starts a payload with a union tag.
func NewWriterWithTag(tag uint32) *Writer {
	w := NewWriter()
	w.WriteU32(tag)
	return w
}

// WriteU8 writes 1 byte.
func (w *Writer) WriteU8(v uint8) {
	w.buf = append(w.buf, v)
}

func (w *Writer) WriteBool(v bool) {
	if v {
		w.WriteU8(1)
		return
	}
	w.WriteU8(0)
}

// WriteU32 writes 4 bytes big-endian.
func (w *Writer) WriteU32(v uint32) {
	w.buf = binary.BigEndian.AppendUint32(w.buf, v)
}

// WriteTag writes a union discriminant.
func (w *Writer) WriteTag(tag uint32) {
	w.WriteU32(tag)
}

// WriteU64 writes 8 bytes big-endian.
func (w *Writer) WriteU64(v uint64) {
	w.buf = binary.BigEndian.AppendUint64(w.buf, v)
}

func (w *Writer) WriteI64(v int64) {
	w.WriteU64(uint64(v))
}

func (w *Writer) WriteF64(v float64) {
	w.WriteU64(math.Float64bits(v))
}

// WriteString writes a u32 length followed by the UTF-8 bytes.
func (w *Writer) WriteString(s string) {
	w.WriteU32(uint32(len(s)))
	w.buf = append(w.buf, s...)
}

// WriteBytes writes a u32 length followed by the raw bytes.
func (w *Writer) WriteBytes(b []byte) {
	w.WriteU32(uint32(len(b)))
	w.buf = append(w.buf, b...)
}

// WriteUUID writes the 16 raw bytes of an id.
func (w *Writer) WriteUUID(id [16]byte) {
	w.buf = append(w.buf, id[:]...)
}

// WriteRaw appends b without a length prefix.
func (w *Writer) WriteRaw(b []byte) {
	w.buf = append(w.buf, b...)
}

func (w *Writer) Len() int {
	return len(w.buf)
}

// Bytes returns the built payload.
func (w *Writer) Bytes() []byte {
	return w.buf
}
