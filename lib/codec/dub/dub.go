// Package dub implements the DUB codec: a lossless, blocked, deduplicated,
// bit-packed encoding for arrays of 16-bit tile indices.
//
// Tiles are encoded in BlockSize-by-BlockSize blocks, scanned left to right
// and top to bottom within each block, and each block's bitstream is
// deduplicated against every previously-seen block with byte-identical
// contents.
package dub

import (
	"errors"

	"github.com/sifteo/assetc/lib/bitio"
)

// BlockSize is the edge length, in tiles, of a DUB compression block.
const BlockSize = 8

// chunk is the group width used by every variable-length integer in a DUB
// bitstream; experimentally this is the sweet spot for tile-index deltas.
const chunk = 3

// ErrTooLarge is returned by Encode when the compressed index plus block
// data would not fit in a 16-bit word count.
var ErrTooLarge = errors.New("dub: compressed result exceeds 65535 words")

// codeType distinguishes the three code shapes a tile can be packed as.
type codeType int

const (
	codeDelta codeType = iota
	codeRef
	codeRepeat
)

// code is a single packed unit: either a signed delta from the previous
// tile in scan order, a backward reference by dictionary distance, or a
// repeat count following a run of two identical codes.
type code struct {
	kind  codeType
	value int
}

// packCode writes code's bit encoding to bits:
//
//   - DELTA: a 0 type bit, a sign bit, then |value| as a chunk-3 varint.
//   - REF: a 1 type bit, then value (a backward distance) as a chunk-3 varint.
//   - REPEAT: value as a chunk-3 varint, with no header bits at all. This
//     shape only ever appears immediately after two identical codes, so a
//     decoder knows to expect it without a tag.
func packCode(bits *bitio.Buffer, c code) {
	switch c.kind {
	case codeDelta:
		bits.Append(0, 1)
		if c.value < 0 {
			bits.Append(1, 1)
			bits.AppendVar(uint32(-c.value), chunk)
		} else {
			bits.Append(0, 1)
			bits.AppendVar(uint32(c.value), chunk)
		}
	case codeRef:
		bits.Append(1, 1)
		bits.AppendVar(uint32(c.value), chunk)
	case codeRepeat:
		bits.AppendVar(uint32(c.value), chunk)
	}
}

// codeLen measures the bit length packCode would produce for c, using a
// scratch buffer.
func codeLen(c code) int {
	var bits bitio.Buffer
	packCode(&bits, c)
	return bits.Len()
}

// findBestCode chooses the shortest code for tile given the tiles already
// scanned in this block (dict, in scan order, most recent last). Ties
// between a DELTA and a REF code are broken in favor of REF, and among REF
// candidates the most recent (shortest backward distance) always wins,
// since the scan below stops at the first match.
func findBestCode(dict []uint16, tile uint16) code {
	var best code
	var bestLen int

	if len(dict) == 0 {
		// An empty dictionary makes DELTA codes literal: the nonexistent
		// "previous" tile is treated as zero.
		best = code{kind: codeDelta, value: int(tile)}
		bestLen = codeLen(best)
	} else {
		delta := int(tile) - int(dict[len(dict)-1])
		best = code{kind: codeDelta, value: delta}
		bestLen = codeLen(best)
	}

	for i := 0; i < len(dict); i++ {
		if tile == dict[len(dict)-1-i] {
			candidate := code{kind: codeRef, value: i}
			length := codeLen(candidate)
			if length <= bestLen {
				best = candidate
				bestLen = length
				// Distance only grows as i increases; this is already the
				// best REF available.
				break
			}
		}
	}

	return best
}

// encodeBlock packs a BlockSize-by-BlockSize (or smaller, at the source
// edges) rectangle of tiles, read from src at row stride, into a sequence
// of whole 16-bit words.
func encodeBlock(src []uint16, stride, width, height int) []uint16 {
	var bits bitio.Buffer
	var out []uint16
	var dict []uint16

	prevValid := false
	var prevCode code
	repeating := false
	repeatCount := 0

	flushRun := func() {
		rep := code{kind: codeRepeat, value: repeatCount}
		packCode(&bits, rep)
		bits.Flush(&out, false)
		repeating = false
	}

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			tile := src[y*stride+x]

			c := findBestCode(dict, tile)
			dict = append(dict, tile)

			sameCode := prevValid && c == prevCode
			prevCode = c
			prevValid = true

			if repeating {
				if sameCode {
					repeatCount++
					continue
				}
				flushRun()
			} else if sameCode {
				repeating = true
				repeatCount = 0
			}

			packCode(&bits, c)
			bits.Flush(&out, false)
		}
	}

	if repeating {
		flushRun()
	}

	bits.Flush(&out, true)
	return out
}

// Result is the output of Encode.
type Result struct {
	// Words is the complete compressed representation: the index followed
	// by the deduplicated block data.
	Words []uint16
	// Index16 reports whether the index uses 16-bit entries. When false,
	// entries are 8-bit, packed two to a word.
	Index16 bool
	// NumBlocks is the number of blocks the index addresses.
	NumBlocks int
}

// TileCount returns the number of source tiles width*height*frames
// addresses; used by callers to compute a compression ratio.
func TileCount(width, height, frames int) int {
	return width * height * frames
}

// Encode compresses tiles, a frames-deep stack of height-by-width tile
// index arrays stored frame-major, row-major, into a DUB stream.
//
// width and height need not be multiples of BlockSize: the final row or
// column of blocks is simply narrower or shorter.
func Encode(tiles []uint16, width, height, frames int) (Result, error) {
	blocksX := (width + BlockSize - 1) / BlockSize
	blocksY := (height + BlockSize - 1) / BlockSize
	numBlocks := blocksX * blocksY * frames

	type memoKey string
	memo := make(map[memoKey]uint16, numBlocks)

	var blockWords []uint16
	indexAddr := make([]uint16, 0, numBlocks)

	scratch := make([]uint16, BlockSize*BlockSize)

	for f := 0; f < frames; f++ {
		base := f * width * height
		for by := 0; by < height; by += BlockSize {
			for bx := 0; bx < width; bx += BlockSize {
				w := BlockSize
				if bx+w > width {
					w = width - bx
				}
				h := BlockSize
				if by+h > height {
					h = height - by
				}

				src := scratch[:0]
				for row := 0; row < h; row++ {
					off := base + (by+row)*width + bx
					src = append(src, tiles[off:off+w]...)
				}
				encoded := encodeBlock(src, w, w, h)

				key := memoKey(wordsKey(encoded))
				if addr, ok := memo[key]; ok {
					indexAddr = append(indexAddr, addr)
				} else {
					addr := uint16(len(blockWords))
					memo[key] = addr
					indexAddr = append(indexAddr, addr)
					blockWords = append(blockWords, encoded...)
				}
			}
		}
	}

	index16 := false
	indexSize := packedIndexSize(len(indexAddr), false)
	for i := range indexAddr {
		if packIndex(indexAddr, i, indexSize, false) >= 0x100 {
			index16 = true
			break
		}
	}
	indexSize = packedIndexSize(len(indexAddr), index16)

	if uint64(indexSize)+uint64(len(blockWords)) >= 0x10000 {
		return Result{}, ErrTooLarge
	}

	words := make([]uint16, 0, indexSize+len(blockWords))
	if index16 {
		for i := range indexAddr {
			words = append(words, uint16(packIndex(indexAddr, i, indexSize, true)))
		}
	} else {
		index8 := make([]byte, 0, len(indexAddr)+1)
		for i := range indexAddr {
			index8 = append(index8, byte(packIndex(indexAddr, i, indexSize, false)))
		}
		if len(index8)&1 != 0 {
			index8 = append(index8, 0)
		}
		for i := 0; i < len(index8); i += 2 {
			words = append(words, uint16(index8[i])|uint16(index8[i+1])<<8)
		}
	}
	words = append(words, blockWords...)

	return Result{Words: words, Index16: index16, NumBlocks: len(indexAddr)}, nil
}

// wordsKey turns a []uint16 into a comparable map key without risking
// aliasing into the backing array.
func wordsKey(words []uint16) string {
	b := make([]byte, len(words)*2)
	for i, w := range words {
		b[2*i] = byte(w)
		b[2*i+1] = byte(w >> 8)
	}
	return string(b)
}

// packedIndexSize returns the size, in words, of the index for numEntries
// entries: one word per entry for a 16-bit index, two entries per word
// (rounding up) for an 8-bit index.
func packedIndexSize(numEntries int, index16 bool) int {
	if index16 {
		return numEntries
	}
	return (numEntries + 1) / 2
}

// packIndex returns the relative, word-offset-encoded form of
// indexAddr[i]: a distance from the word immediately after the index entry
// that holds it, to the start of its block's data.
func packIndex(indexAddr []uint16, i, indexSize int, index16 bool) int {
	var nextWord int
	if index16 {
		nextWord = i + 1
	} else {
		nextWord = (i + 2) / 2
	}
	return indexSize + int(indexAddr[i]) - nextWord
}
