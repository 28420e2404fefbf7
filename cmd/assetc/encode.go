package main

import (
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/sifteo/assetc/lib/audiosrc"
	"github.com/sifteo/assetc/lib/codec/adpcma"
	"github.com/sifteo/assetc/lib/codec/dispatch"
	"github.com/sifteo/assetc/lib/codec/dub"
	"github.com/sifteo/assetc/lib/codec/pcm"
	"github.com/sifteo/assetc/lib/tileset"
)

var encodeFlags struct {
	input    string
	output   string
	metadata string
	width    int
	height   int
	frames   int
}

var cmdEncode = cobra.Command{
	Use:   "encode <pcm|adpcm|dub> --input=<file> --output=<file>",
	Short: "Encode a single asset with the named codec.",
	Args:  cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		kind, err := dispatch.Lookup(args[0])
		if err != nil {
			return err
		}
		if encodeFlags.input == "" {
			return errors.New("missing required flag -input")
		}
		if encodeFlags.output == "" {
			return errors.New("missing required flag -output")
		}
		switch kind {
		case dispatch.PCM, dispatch.ADPCMA:
			return encodeAudio(kind)
		case dispatch.DUB:
			return encodeTiles()
		default:
			return fmt.Errorf("unsupported codec: %q", args[0])
		}
	},
}

func init() {
	f := cmdEncode.Flags()
	f.StringVar(&encodeFlags.input, "input", "", "input asset file")
	f.StringVar(&encodeFlags.output, "output", "", "output encoded asset file")
	f.StringVar(&encodeFlags.metadata, "metadata", "", "optional loop/sidecar JSON file")
	f.IntVar(&encodeFlags.width, "width", 0, "tile frame width, in tiles (dub only)")
	f.IntVar(&encodeFlags.height, "height", 0, "tile frame height, in tiles (dub only)")
	f.IntVar(&encodeFlags.frames, "frames", 1, "number of tile frames (dub only)")
}

func encodeAudio(kind dispatch.Kind) error {
	in := encodeFlags.input
	if ext := filepath.Ext(in); !strings.EqualFold(ext, ".aiff") && !strings.EqualFold(ext, ".aifc") {
		logrus.Warnf("input file does not have .aiff or .aifc extension: %q", in)
	}
	data, err := os.ReadFile(in)
	if err != nil {
		return err
	}
	tr, err := audiosrc.ReadTrack(data)
	if err != nil {
		return &fileError{in, err}
	}
	if encodeFlags.metadata != "" {
		md, err := audiosrc.ReadMetadata(encodeFlags.metadata)
		if err != nil {
			return &fileError{encodeFlags.metadata, err}
		}
		tr.ApplyMetadata(md)
	}

	var out []byte
	switch kind {
	case dispatch.PCM:
		out = pcm.Encode(tr.PCM)
	case dispatch.ADPCMA:
		res := adpcma.Encode(tr.PCM)
		out = res.Data
	}
	if err := os.WriteFile(encodeFlags.output, out, 0o666); err != nil {
		return err
	}
	return nil
}

func encodeTiles() error {
	in := encodeFlags.input
	var seq tileset.Sequence

	if strings.EqualFold(filepath.Ext(in), ".png") {
		if encodeFlags.frames != 1 {
			return errors.New("-frames must be 1 when reading a single PNG")
		}
		frame, err := tileset.ReadIndexedPNG(in)
		if err != nil {
			return &fileError{in, err}
		}
		seq = tileset.Sequence{Width: frame.Width, Height: frame.Height, Frames: []tileset.Frame{frame}}
	} else {
		if encodeFlags.width == 0 || encodeFlags.height == 0 {
			return errors.New("-width and -height are required for raw tile input")
		}
		data, err := os.ReadFile(in)
		if err != nil {
			return err
		}
		s, err := tileset.ReadRaw16(data, encodeFlags.width, encodeFlags.height, encodeFlags.frames)
		if err != nil {
			return &fileError{in, err}
		}
		seq = s
	}

	res, err := dub.Encode(seq.Concat(), seq.Width, seq.Height, len(seq.Frames))
	if err != nil {
		return &fileError{in, err}
	}

	out := make([]byte, len(res.Words)*2)
	for i, w := range res.Words {
		binary.LittleEndian.PutUint16(out[2*i:], w)
	}
	if err := os.WriteFile(encodeFlags.output, out, 0o666); err != nil {
		return err
	}

	sidecar := encodeFlags.metadata
	if sidecar == "" {
		sidecar = encodeFlags.output + ".json"
	}
	return dub.WriteSidecar(sidecar, seq.Width, seq.Height, len(seq.Frames), res)
}
