// Package bitio implements the MSB-first, word-aligned bit accumulator used
// by the DUB tile codec's bitstream.
package bitio

// A Buffer accumulates bits until there are enough to flush as whole 16-bit
// words. It is MSB-first in the sense that fields are written to the stream
// in the order they are appended: the earliest-appended bits end up in the
// low-numbered bits of the earliest-flushed word, which is what lets a
// decoder walk the stream one field at a time without ever looking ahead.
//
// The zero value is an empty buffer, ready to use.
type Buffer struct {
	acc uint64
	n   uint
}

// Reset discards any buffered bits.
func (b *Buffer) Reset() {
	b.acc = 0
	b.n = 0
}

// Len returns the number of bits currently buffered. This is used to measure
// the packed length of a candidate code without committing it: encode the
// code into a scratch Buffer and read Len().
func (b *Buffer) Len() int {
	return int(b.n)
}

// Append places the low width bits of value into the buffer, after any bits
// already buffered.
func (b *Buffer) Append(value uint32, width uint) {
	if width == 0 {
		return
	}
	mask := uint64(1)<<width - 1
	b.acc |= (uint64(value) & mask) << b.n
	b.n += width
}

// AppendVar appends value (which must be non-negative) as a sequence of
// chunk-bit groups, least-significant group first. Each group is preceded by
// a 1-bit continuation flag: 1 if another group follows, 0 if it is the
// last. At least one group is always emitted, even for value == 0.
func (b *Buffer) AppendVar(value uint32, chunk uint) {
	for {
		group := value & (uint32(1)<<chunk - 1)
		value >>= chunk
		if value != 0 {
			b.Append(1, 1)
			b.Append(group, chunk)
			continue
		}
		b.Append(0, 1)
		b.Append(group, chunk)
		return
	}
}

// Flush removes whole 16-bit words from the buffer and appends them,
// little-endian, to *out. If final is true, any remaining bits are
// right-padded with zeros to a full word and flushed as well, leaving the
// buffer empty.
func (b *Buffer) Flush(out *[]uint16, final bool) {
	for b.n >= 16 {
		*out = append(*out, uint16(b.acc))
		b.acc >>= 16
		b.n -= 16
	}
	if final && b.n > 0 {
		*out = append(*out, uint16(b.acc))
		b.acc = 0
		b.n = 0
	}
}
