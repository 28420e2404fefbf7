package tileset

import (
	"bytes"
	"encoding/binary"
	"image"
	"image/color"
	"image/png"
	"os"
	"testing"
)

func buildIndexedPNG(t *testing.T, w, h int, pix []byte) []byte {
	t.Helper()
	pal := color.Palette(make([]color.Color, 256))
	for i := range pal {
		pal[i] = color.Gray{Y: uint8(i)}
	}
	im := image.NewPaletted(image.Rect(0, 0, w, h), pal)
	copy(im.Pix, pix)
	var buf bytes.Buffer
	if err := png.Encode(&buf, im); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestReadIndexedPNG(t *testing.T) {
	pix := []byte{0, 1, 2, 3}
	data := buildIndexedPNG(t, 2, 2, pix)

	dir := t.TempDir()
	path := dir + "/test.png"
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}

	f, err := ReadIndexedPNG(path)
	if err != nil {
		t.Fatal(err)
	}
	if f.Width != 2 || f.Height != 2 {
		t.Fatalf("dims = %dx%d, want 2x2", f.Width, f.Height)
	}
	want := []uint16{0, 1, 2, 3}
	for i := range want {
		if f.Tiles[i] != want[i] {
			t.Errorf("tile %d = %d, want %d", i, f.Tiles[i], want[i])
		}
	}
}

func TestReadIndexedPNGRejectsNonIndexed(t *testing.T) {
	im := image.NewRGBA(image.Rect(0, 0, 2, 2))
	var buf bytes.Buffer
	if err := png.Encode(&buf, im); err != nil {
		t.Fatal(err)
	}
	dir := t.TempDir()
	path := dir + "/rgba.png"
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := ReadIndexedPNG(path); err == nil {
		t.Fatal("expected error for non-indexed PNG")
	}
}

func TestReadRaw16(t *testing.T) {
	tiles := []uint16{0, 1, 2, 3, 4, 5, 6, 7}
	data := make([]byte, len(tiles)*2)
	for i, v := range tiles {
		binary.LittleEndian.PutUint16(data[2*i:], v)
	}
	seq, err := ReadRaw16(data, 2, 2, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(seq.Frames) != 2 {
		t.Fatalf("len(Frames) = %d, want 2", len(seq.Frames))
	}
	concat := seq.Concat()
	for i, v := range tiles {
		if concat[i] != v {
			t.Errorf("concat[%d] = %d, want %d", i, concat[i], v)
		}
	}
}

func TestReadRaw16WrongSize(t *testing.T) {
	_, err := ReadRaw16(make([]byte, 3), 2, 2, 1)
	if err == nil {
		t.Fatal("expected error for wrong-sized raw data")
	}
}

func TestFrameIsBlank(t *testing.T) {
	blank := Frame{Width: 2, Height: 1, Tiles: []uint16{0, 0}}
	if !blank.IsBlank() {
		t.Error("expected blank frame")
	}
	nonBlank := Frame{Width: 2, Height: 1, Tiles: []uint16{0, 1}}
	if nonBlank.IsBlank() {
		t.Error("expected non-blank frame")
	}
}
