package dub

import (
	"encoding/json"
	"fmt"
	"os"
)

// Sidecar carries the dimension and index-width metadata a DUB stream needs
// to be decoded, but which is deliberately not packed into the word stream
// itself: the original wire format has no dimension header, so a decoder
// must be told the source rectangle out of band.
type Sidecar struct {
	Width     int  `json:"width"`
	Height    int  `json:"height"`
	Frames    int  `json:"frames"`
	Index16   bool `json:"index16"`
	NumBlocks int  `json:"numBlocks"`
}

// WriteSidecar writes res's metadata, plus the source rectangle, to
// filename as JSON.
func WriteSidecar(filename string, width, height, frames int, res Result) error {
	sc := Sidecar{
		Width:     width,
		Height:    height,
		Frames:    frames,
		Index16:   res.Index16,
		NumBlocks: res.NumBlocks,
	}
	data, err := json.MarshalIndent(sc, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	if err := os.WriteFile(filename, data, 0o666); err != nil {
		return fmt.Errorf("could not write sidecar: %w", err)
	}
	return nil
}

// ReadSidecar reads a Sidecar previously written by WriteSidecar.
func ReadSidecar(filename string) (Sidecar, error) {
	var sc Sidecar
	data, err := os.ReadFile(filename)
	if err != nil {
		return sc, err
	}
	if err := json.Unmarshal(data, &sc); err != nil {
		return sc, fmt.Errorf("could not parse sidecar %q: %w", filename, err)
	}
	return sc, nil
}
