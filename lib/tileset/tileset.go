// Package tileset ingests frames of tile indices for the DUB codec: either
// from an indexed PNG, where each pixel's palette index is a tile index, or
// from a raw little-endian uint16 dump.
package tileset

import (
	"encoding/binary"
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strings"
)

// Frame is a single width-by-height grid of tile indices, row-major.
type Frame struct {
	Width, Height int
	Tiles         []uint16
}

// IsBlank reports whether every tile in the frame is index 0, which lets
// callers skip emitting all-background frames entirely if the target
// platform treats a missing frame as blank.
func (f *Frame) IsBlank() bool {
	for _, t := range f.Tiles {
		if t != 0 {
			return false
		}
	}
	return true
}

// Sequence is one or more frames sharing the same dimensions, the input
// shape the DUB encoder expects.
type Sequence struct {
	Width, Height int
	Frames        []Frame
}

// Concat flattens the sequence into the frame-major, row-major uint16
// array dub.Encode expects.
func (s *Sequence) Concat() []uint16 {
	out := make([]uint16, 0, s.Width*s.Height*len(s.Frames))
	for _, f := range s.Frames {
		out = append(out, f.Tiles...)
	}
	return out
}

// ReadIndexedPNG reads a single-frame tileset from an indexed (paletted)
// PNG, where each pixel's palette index is taken directly as a tile index.
func ReadIndexedPNG(filename string) (Frame, error) {
	ext := filepath.Ext(filename)
	if !strings.EqualFold(ext, ".png") {
		return Frame{}, fmt.Errorf("file does not have .png extension: %q", filename)
	}
	fp, err := os.Open(filename)
	if err != nil {
		return Frame{}, err
	}
	defer fp.Close()
	im, err := png.Decode(fp)
	if err != nil {
		return Frame{}, fmt.Errorf("could not decode %q: %w", filename, err)
	}
	pal, ok := im.(*image.Paletted)
	if !ok {
		return Frame{}, fmt.Errorf("%q is not a paletted (indexed-color) PNG", filename)
	}

	w := pal.Rect.Dx()
	h := pal.Rect.Dy()
	tiles := make([]uint16, w*h)
	for y := 0; y < h; y++ {
		off := pal.PixOffset(pal.Rect.Min.X, pal.Rect.Min.Y+y)
		row := pal.Pix[off : off+w]
		for x, idx := range row {
			tiles[y*w+x] = uint16(idx)
		}
	}
	return Frame{Width: w, Height: h, Tiles: tiles}, nil
}

// ReadRaw16 reads a sequence of frames from a raw little-endian uint16
// dump: frameCount frames of width*height tiles each, concatenated.
func ReadRaw16(data []byte, width, height, frameCount int) (Sequence, error) {
	perFrame := width * height
	want := perFrame * frameCount * 2
	if len(data) != want {
		return Sequence{}, fmt.Errorf("raw tile data is %d bytes, want %d for %d frame(s) of %dx%d", len(data), want, frameCount, width, height)
	}
	seq := Sequence{Width: width, Height: height, Frames: make([]Frame, frameCount)}
	for f := 0; f < frameCount; f++ {
		tiles := make([]uint16, perFrame)
		base := f * perFrame * 2
		for i := range tiles {
			tiles[i] = binary.LittleEndian.Uint16(data[base+2*i:])
		}
		seq.Frames[f] = Frame{Width: width, Height: height, Tiles: tiles}
	}
	return seq, nil
}
