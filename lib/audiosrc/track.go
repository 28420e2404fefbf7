package audiosrc

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/depp/extended"
)

// Track is an ingested mono 16-bit PCM source track, ready to hand to a
// codec encoder.
type Track struct {
	// PCM is little-endian signed 16-bit mono sample data.
	PCM []byte
	// SampleRate is the track's sample rate, as stored in the AIFF file's
	// 80-bit extended-precision COMM chunk field.
	SampleRate extended.Extended
	// LoopStart and LoopEnd are sample offsets marking a sustain loop, or
	// both zero if the track does not loop.
	LoopStart, LoopEnd int
}

// ReadTrack parses an AIFF file's bytes into a Track. Only uncompressed
// (PCM) mono 16-bit source audio is supported: this pipeline always
// re-compresses from an uncompressed master, so there is no reason to
// ingest an already-lossy source.
func ReadTrack(data []byte) (*Track, error) {
	a, err := parseAIFF(data)
	if err != nil {
		return nil, err
	}
	if a.Common.isCompressed() {
		return nil, fmt.Errorf("unsupported compression: %q", a.Common.Compression[:])
	}
	if a.Common.SampleSize != 16 {
		return nil, fmt.Errorf("sample size is %d, but only 16 is supported", a.Common.SampleSize)
	}
	if a.Common.NumChannels != 1 {
		return nil, fmt.Errorf("track has %d channels, but only one is supported", a.Common.NumChannels)
	}
	if len(a.Data.Data) == 0 {
		return nil, errors.New("empty track")
	}

	pcm := bigEndianToLittleEndian16(a.Data.Data)

	tr := &Track{
		PCM:        pcm,
		SampleRate: a.Common.SampleRate,
	}
	if a.Instrument != nil {
		if begin := a.markerPosition(a.Instrument.SustainLoopBegin); begin >= 0 {
			if end := a.markerPosition(a.Instrument.SustainLoopEnd); end >= 0 {
				tr.LoopStart = begin
				tr.LoopEnd = end
			}
		}
	}
	return tr, nil
}

// ApplyMetadata overrides a track's loop points using an external sidecar,
// when present. LeadIn and LoopLength are given in samples.
func (t *Track) ApplyMetadata(md Metadata) {
	t.LoopStart = int(md.LeadIn + 0.5)
	if md.LoopLength != nil {
		t.LoopEnd = t.LoopStart + int(*md.LoopLength+0.5)
	}
}

func bigEndianToLittleEndian16(data []byte) []byte {
	n := len(data) &^ 1
	out := make([]byte, n)
	for i := 0; i < n; i += 2 {
		v := binary.BigEndian.Uint16(data[i : i+2])
		binary.LittleEndian.PutUint16(out[i:i+2], v)
	}
	return out
}
