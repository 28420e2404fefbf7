// Package audiosrc ingests source audio for the asset pipeline: AIFF and
// AIFF-C files are parsed down to mono 16-bit PCM, and an optional JSON
// sidecar supplies loop points that don't fit naturally in the AIFF
// container.
package audiosrc

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/depp/extended"
)

// aiffStandardVersion is the recognized AIFF-C format-version timestamp;
// unused here since this package only reads files, never writes them, but
// recorded for anyone extending it to round-trip AIFF-C.
const aiffStandardVersion = 0xA2805140

// pcmCompressionType is the four-character compression tag for
// uncompressed audio.
const pcmCompressionType = "NONE"

var errUnexpectedEOF = errors.New("audiosrc: unexpected end of file in AIFF data")

// ErrNotAIFF indicates that the file is not an AIFF or AIFF-C file.
var ErrNotAIFF = errors.New("audiosrc: not an AIFF file")

// aiffCommon is the COMM chunk: channel count, frame count, sample
// resolution and rate.
type aiffCommon struct {
	NumChannels int
	NumFrames   int
	SampleSize  int
	SampleRate  extended.Extended
	Compression [4]byte
}

func (c *aiffCommon) parse(data []byte, compressed bool) error {
	if compressed {
		if len(data) < 23 {
			return fmt.Errorf("invalid common chunk: len = %d, should be at least 23", len(data))
		}
	} else if len(data) != 18 {
		return fmt.Errorf("invalid common chunk: len = %d, should be 18", len(data))
	}
	c.NumChannels = int(binary.BigEndian.Uint16(data[0:2]))
	c.NumFrames = int(binary.BigEndian.Uint32(data[2:6]))
	c.SampleSize = int(binary.BigEndian.Uint16(data[6:8]))
	c.SampleRate = extended.FromBytesBigEndian(data[8:])
	if compressed {
		copy(c.Compression[:], data[18:22])
	} else {
		copy(c.Compression[:], pcmCompressionType)
	}
	return nil
}

func (c *aiffCommon) isCompressed() bool {
	return string(c.Compression[:]) != pcmCompressionType
}

// aiffSoundData is the SSND chunk: the raw sample bytes, big-endian.
type aiffSoundData struct {
	Offset    uint32
	BlockSize uint32
	Data      []byte
}

func (c *aiffSoundData) parse(data []byte) error {
	if len(data) < 8 {
		return errors.New("sound data chunk too short")
	}
	c.Offset = binary.BigEndian.Uint32(data[:4])
	c.BlockSize = binary.BigEndian.Uint32(data[4:8])
	d := make([]byte, len(data)-8)
	copy(d, data[8:])
	c.Data = d
	return nil
}

// aiffMarker is a single named sample position, as used to anchor a loop.
type aiffMarker struct {
	ID       int
	Position int
	Name     string
}

func parseMarkers(data []byte) ([]aiffMarker, error) {
	if len(data) < 2 {
		return nil, errUnexpectedEOF
	}
	count := int(binary.BigEndian.Uint16(data))
	markers := make([]aiffMarker, count)
	d := data[2:]
	for i := range markers {
		if len(d) < 7 {
			return nil, errUnexpectedEOF
		}
		id := int(binary.BigEndian.Uint16(d))
		pos := int(binary.BigEndian.Uint32(d[2:]))
		n := int(d[6])
		sz := (7 + n + 1) &^ 1
		if len(d) < sz {
			return nil, errUnexpectedEOF
		}
		markers[i] = aiffMarker{ID: id, Position: pos, Name: string(d[7 : 7+n])}
		d = d[sz:]
	}
	return markers, nil
}

// aiffInstrument is the INST chunk; only the sustain loop's marker pair
// matters to this pipeline.
type aiffInstrument struct {
	SustainLoopBegin int // Marker ID, or 0 for no loop.
	SustainLoopEnd   int
}

func (c *aiffInstrument) parse(data []byte) error {
	if len(data) < 20 {
		return errors.New("instrument chunk too short")
	}
	// Sustain loop record starts at offset 8: mode(2), begin marker(2), end
	// marker(2).
	c.SustainLoopBegin = int(binary.BigEndian.Uint16(data[10:]))
	c.SustainLoopEnd = int(binary.BigEndian.Uint16(data[12:]))
	return nil
}

// aiffFile is the parsed subset of an AIFF or AIFF-C file this pipeline
// cares about: enough to recover mono 16-bit PCM and an optional sustain
// loop expressed as sample offsets.
type aiffFile struct {
	Common     aiffCommon
	Data       aiffSoundData
	Markers    []aiffMarker
	Instrument *aiffInstrument
	haveCommon bool
	haveData   bool
}

// parseAIFF parses an AIFF or AIFF-C file down to the chunks this package
// understands. Chunks outside that set (FVER, APPL, and anything
// unrecognized) are skipped rather than rejected, since they carry no
// information this pipeline consumes.
func parseAIFF(data []byte) (*aiffFile, error) {
	if len(data) < 12 {
		return nil, errors.New("AIFF too short")
	}
	header := data[0:12:12]
	if string(header[0:4]) != "FORM" {
		return nil, ErrNotAIFF
	}
	var compressed bool
	switch string(header[8:12]) {
	case "AIFF":
	case "AIFC":
		compressed = true
	default:
		return nil, ErrNotAIFF
	}
	flen := binary.BigEndian.Uint32(header[4:8])
	if int(flen) > len(data)-8 {
		return nil, errors.New("AIFF file shorter than header indicates")
	}

	rest := data[12:]
	var a aiffFile
	for len(rest) > 0 {
		if len(rest) < 8 {
			return nil, errUnexpectedEOF
		}
		ch := rest[0:8:8]
		rest = rest[8:]
		clen := binary.BigEndian.Uint32(ch[4:])
		if int(clen) > len(rest) {
			return nil, errUnexpectedEOF
		}
		cdata := rest[:clen]
		rest = rest[clen:]
		if clen&1 != 0 {
			if len(rest) == 0 {
				return nil, errUnexpectedEOF
			}
			rest = rest[1:]
		}

		switch string(ch[:4]) {
		case "COMM":
			if a.haveCommon {
				return nil, errors.New("multiple common chunks")
			}
			if err := a.Common.parse(cdata, compressed); err != nil {
				return nil, fmt.Errorf("could not parse COMM chunk: %w", err)
			}
			a.haveCommon = true
		case "SSND":
			if a.haveData {
				return nil, errors.New("multiple sound data chunks")
			}
			if err := a.Data.parse(cdata); err != nil {
				return nil, fmt.Errorf("could not parse SSND chunk: %w", err)
			}
			a.haveData = true
		case "MARK":
			markers, err := parseMarkers(cdata)
			if err != nil {
				return nil, fmt.Errorf("could not parse MARK chunk: %w", err)
			}
			a.Markers = markers
		case "INST":
			inst := new(aiffInstrument)
			if err := inst.parse(cdata); err != nil {
				return nil, fmt.Errorf("could not parse INST chunk: %w", err)
			}
			a.Instrument = inst
		default:
			// FVER, APPL (VADPCM codebooks/loops), and anything else: this
			// pipeline only ever sees uncompressed source audio.
		}
	}
	if !a.haveCommon {
		return nil, errors.New("missing common chunk")
	}
	if !a.haveData {
		return nil, errors.New("missing data chunk")
	}
	return &a, nil
}

// markerPosition returns the sample offset of the marker with the given
// ID, or -1 if there is none.
func (a *aiffFile) markerPosition(id int) int {
	for _, m := range a.Markers {
		if m.ID == id {
			return m.Position
		}
	}
	return -1
}
