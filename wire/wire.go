// SPDX-FileCopyrightText: © 2026 David Stainton
// SPDX-License-Identifier: AGPL-3.0-only

// Package wire implements the length+type framed message codec spoken by
// the GNUnet daemon over its unix domain sockets.
//
// Every frame starts with a 4 byte envelope: a big endian uint16 size
// which counts the envelope itself, followed by a big endian uint16
// message type.  The body occupies exactly size-4 bytes.
package wire

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/katzenpost/gnunet/wire/constants"
)

var (
	// ErrFrameTooLarge is returned when a body does not fit in a frame.
	ErrFrameTooLarge = errors.New("wire: frame exceeds maximum size")

	// ErrShortFrame is returned when a header declares a size smaller
	// than the header itself.
	ErrShortFrame = errors.New("wire: frame size smaller than header")

	// ErrTruncated is returned when a body ends before a field does.
	ErrTruncated = errors.New("wire: truncated message body")
)

// ProtocolError is returned when the daemon answers with a message type
// the conversation does not allow at that point.
type ProtocolError struct {
	Expected []uint16
	Got      uint16
}

// Error implements the error interface.
func (e *ProtocolError) Error() string {
	names := make([]string, 0, len(e.Expected))
	for _, t := range e.Expected {
		names = append(names, constants.TypeName(t))
	}
	return fmt.Sprintf("wire: protocol violation: got %s (%d), expected one of %v",
		constants.TypeName(e.Got), e.Got, names)
}

// Header is the frame envelope.
type Header struct {
	Size uint16
	Type uint16
}

// BodySize returns the number of body bytes following the header.
func (h *Header) BodySize() int {
	return int(h.Size) - constants.HeaderSize
}

// Frame is one complete message.
type Frame struct {
	Type uint16
	Body []byte
}

// Size returns the total on-wire size of the frame.
func (f *Frame) Size() int {
	return constants.HeaderSize + len(f.Body)
}

// MarshalBinary returns the frame's wire encoding.
func (f *Frame) MarshalBinary() ([]byte, error) {
	if len(f.Body) > constants.MaxBodySize {
		return nil, ErrFrameTooLarge
	}
	out := make([]byte, constants.HeaderSize, f.Size())
	binary.BigEndian.PutUint16(out[0:2], uint16(f.Size()))
	binary.BigEndian.PutUint16(out[2:4], f.Type)
	return append(out, f.Body...), nil
}

// WriteUint16 writes v big endian.
func WriteUint16(w io.Writer, v uint16) error {
	var b [2]byte
	binary.BigEndian.PutUint16(b[:], v)
	_, err := w.Write(b[:])
	return err
}

// WriteUint32 writes v big endian.
func WriteUint32(w io.Writer, v uint32) error {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	_, err := w.Write(b[:])
	return err
}

// WriteBytes writes b verbatim.
func WriteBytes(w io.Writer, b []byte) error {
	_, err := w.Write(b)
	return err
}

// WriteZString writes the bytes of s followed by a NUL.
func WriteZString(w io.Writer, s string) error {
	if err := WriteBytes(w, []byte(s)); err != nil {
		return err
	}
	return WriteBytes(w, []byte{0})
}

// WriteHeader writes a frame envelope.
func WriteHeader(w io.Writer, msgType uint16, size uint16) error {
	if err := WriteUint16(w, size); err != nil {
		return err
	}
	return WriteUint16(w, msgType)
}

// ReadUint16 reads a big endian uint16.
func ReadUint16(r io.Reader) (uint16, error) {
	var b [2]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(b[:]), nil
}

// ReadUint32 reads a big endian uint32.
func ReadUint32(r io.Reader) (uint32, error) {
	var b [4]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(b[:]), nil
}

// ReadBytes reads exactly n bytes.
func ReadBytes(r io.Reader, n int) ([]byte, error) {
	b := make([]byte, n)
	if _, err := io.ReadFull(r, b); err != nil {
		return nil, err
	}
	return b, nil
}

// ReadZString reads n bytes of string data and, when terminated is set,
// the NUL that follows them.  Some daemon versions omit the terminator,
// so callers derive terminated from the declared frame size.
func ReadZString(r io.Reader, n int, terminated bool) (string, error) {
	b, err := ReadBytes(r, n)
	if err != nil {
		return "", err
	}
	if terminated {
		if _, err := ReadBytes(r, 1); err != nil {
			return "", err
		}
	}
	return string(b), nil
}

// ReadHeader reads and validates a frame envelope.
func ReadHeader(r io.Reader) (*Header, error) {
	size, err := ReadUint16(r)
	if err != nil {
		return nil, err
	}
	msgType, err := ReadUint16(r)
	if err != nil {
		return nil, err
	}
	h := &Header{Size: size, Type: msgType}
	if h.BodySize() < 0 {
		return nil, ErrShortFrame
	}
	return h, nil
}

// ReadFrame reads one complete frame.
func ReadFrame(r io.Reader) (*Frame, error) {
	h, err := ReadHeader(r)
	if err != nil {
		return nil, err
	}
	body, err := ReadBytes(r, h.BodySize())
	if err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return nil, err
	}
	return &Frame{Type: h.Type, Body: body}, nil
}

// WriteFrame writes f with a single Write call.
func WriteFrame(w io.Writer, f *Frame) error {
	b, err := f.MarshalBinary()
	if err != nil {
		return err
	}
	count, err := w.Write(b)
	if err != nil {
		return err
	}
	if count != len(b) {
		return fmt.Errorf("wire: short write: %d != %d", count, len(b))
	}
	return nil
}

// Builder accumulates a frame body.
type Builder struct {
	buf bytes.Buffer
}

// NewBuilder returns an empty Builder.
func NewBuilder() *Builder {
	return new(Builder)
}

// PutUint16 appends v big endian.
func (b *Builder) PutUint16(v uint16) *Builder {
	WriteUint16(&b.buf, v)
	return b
}

// PutUint32 appends v big endian.
func (b *Builder) PutUint32(v uint32) *Builder {
	WriteUint32(&b.buf, v)
	return b
}

// PutBytes appends raw bytes.
func (b *Builder) PutBytes(p []byte) *Builder {
	b.buf.Write(p)
	return b
}

// PutZString appends s and a NUL.
func (b *Builder) PutZString(s string) *Builder {
	WriteZString(&b.buf, s)
	return b
}

// Len returns the current body length.
func (b *Builder) Len() int {
	return b.buf.Len()
}

// Frame returns the accumulated body as a frame of type msgType.
func (b *Builder) Frame(msgType uint16) (*Frame, error) {
	if b.buf.Len() > constants.MaxBodySize {
		return nil, ErrFrameTooLarge
	}
	return &Frame{Type: msgType, Body: b.buf.Bytes()}, nil
}

// Reader parses a frame body.  Every accessor fails with ErrTruncated
// once the body is exhausted.
type Reader struct {
	r *bytes.Reader
}

// NewReader returns a Reader over body.
func NewReader(body []byte) *Reader {
	return &Reader{r: bytes.NewReader(body)}
}

// Len returns the number of unread bytes.
func (r *Reader) Len() int {
	return r.r.Len()
}

// Uint16 reads a big endian uint16.
func (r *Reader) Uint16() (uint16, error) {
	v, err := ReadUint16(r.r)
	return v, truncated(err)
}

// Uint32 reads a big endian uint32.
func (r *Reader) Uint32() (uint32, error) {
	v, err := ReadUint32(r.r)
	return v, truncated(err)
}

// Bytes reads exactly n bytes.
func (r *Reader) Bytes(n int) ([]byte, error) {
	if n < 0 || n > r.r.Len() {
		return nil, ErrTruncated
	}
	b, err := ReadBytes(r.r, n)
	return b, truncated(err)
}

// String reads a string field of n bytes.  The daemon is inconsistent
// about whether n counts the terminating NUL and about whether the NUL
// is sent at all, so a trailing NUL inside the n bytes is dropped and a
// NUL immediately following them is consumed.
func (r *Reader) String(n int) (string, error) {
	b, err := r.Bytes(n)
	if err != nil {
		return "", err
	}
	if len(b) > 0 && b[len(b)-1] == 0 {
		b = b[:len(b)-1]
	} else if r.r.Len() > 0 {
		if _, err := ReadZString(r.r, 0, peekNUL(r.r)); err != nil {
			return "", truncated(err)
		}
	}
	return string(b), nil
}

// Rest returns every unread byte.
func (r *Reader) Rest() []byte {
	b, _ := r.Bytes(r.r.Len())
	return b
}

// ZString reads a NUL terminated string spanning the remainder of the
// body.  A missing terminator is tolerated.
func (r *Reader) ZString() string {
	b := r.Rest()
	if i := bytes.IndexByte(b, 0); i >= 0 {
		b = b[:i]
	}
	return string(b)
}

func peekNUL(r *bytes.Reader) bool {
	c, err := r.ReadByte()
	if err != nil {
		return false
	}
	r.UnreadByte()
	return c == 0
}

func truncated(err error) error {
	if err == io.EOF || err == io.ErrUnexpectedEOF {
		return ErrTruncated
	}
	return err
}
