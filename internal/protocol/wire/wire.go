// Package wire reads and writes the primitive encodings of the note
// message format: base-128 varints, length-delimited byte strings and
// little-endian IEEE754 fixed-width numbers.
package wire

import (
	"encoding/binary"
	"errors"
	"math"
)

// Wire types carried in the low three bits of a field tag word.
const (
	TypeVarint     uint8 = 0
	TypeFixed64    uint8 = 1
	TypeBytes      uint8 = 2
	TypeStartGroup uint8 = 3
	TypeEndGroup   uint8 = 4
	TypeFixed32    uint8 = 5
)

// MaxVarintLen is the longest encoding of a 64-bit value.
const MaxVarintLen = 10

var ErrTruncated = errors.New("wire: truncated input")

// ReadVarint decodes one varint starting at pos and returns the value and
// the position after it.
func ReadVarint(buf []byte, pos int) (uint64, int, error) {
	var x uint64
	var shift uint
	for i := 0; i < MaxVarintLen; i++ {
		if pos < 0 || pos >= len(buf) {
			return 0, pos, ErrTruncated
		}
		b := buf[pos]
		pos++
		x |= uint64(b&0x7f) << shift
		if b < 0x80 {
			return x, pos, nil
		}
		shift += 7
	}
	return 0, pos, ErrTruncated
}

// ReadLengthDelimited reads a varint length followed by that many bytes.
// The returned slice aliases buf.
func ReadLengthDelimited(buf []byte, pos int) ([]byte, int, error) {
	n, next, err := ReadVarint(buf, pos)
	if err != nil {
		return nil, pos, err
	}
	if n > uint64(len(buf)-next) {
		return nil, pos, ErrTruncated
	}
	end := next + int(n)
	return buf[next:end:end], end, nil
}

func ReadFixed64Double(buf []byte, pos int) (float64, int, error) {
	if pos < 0 || len(buf)-pos < 8 {
		return 0, pos, ErrTruncated
	}
	bits := binary.LittleEndian.Uint64(buf[pos : pos+8])
	return math.Float64frombits(bits), pos + 8, nil
}

func ReadFixed32Float(buf []byte, pos int) (float32, int, error) {
	if pos < 0 || len(buf)-pos < 4 {
		return 0, pos, ErrTruncated
	}
	bits := binary.LittleEndian.Uint32(buf[pos : pos+4])
	return math.Float32frombits(bits), pos + 4, nil
}

// SplitTag separates a tag word into field number and wire type.
func SplitTag(word uint64) (uint64, uint8) {
	return word >> 3, uint8(word & 7)
}

func AppendVarint(dst []byte, v uint64) []byte {
	for v >= 0x80 {
		dst = append(dst, byte(v)|0x80)
		v >>= 7
	}
	return append(dst, byte(v))
}

func AppendTag(dst []byte, field uint64, wireType uint8) []byte {
	return AppendVarint(dst, field<<3|uint64(wireType&7))
}

func AppendBytes(dst []byte, field uint64, b []byte) []byte {
	dst = AppendTag(dst, field, TypeBytes)
	dst = AppendVarint(dst, uint64(len(b)))
	return append(dst, b...)
}

func AppendString(dst []byte, field uint64, s string) []byte {
	return AppendBytes(dst, field, []byte(s))
}

func AppendUint(dst []byte, field uint64, v uint64) []byte {
	dst = AppendTag(dst, field, TypeVarint)
	return AppendVarint(dst, v)
}

func AppendDouble(dst []byte, field uint64, v float64) []byte {
	dst = AppendTag(dst, field, TypeFixed64)
	return binary.LittleEndian.AppendUint64(dst, math.Float64bits(v))
}

func AppendFloat(dst []byte, field uint64, v float32) []byte {
	dst = AppendTag(dst, field, TypeFixed32)
	return binary.LittleEndian.AppendUint32(dst, math.Float32bits(v))
}
