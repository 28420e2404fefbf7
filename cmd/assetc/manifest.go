package main

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/spf13/cobra"

	"github.com/sifteo/assetc/lib/audiosrc"
	"github.com/sifteo/assetc/lib/codec/adpcma"
	"github.com/sifteo/assetc/lib/codec/dispatch"
	"github.com/sifteo/assetc/lib/codec/dub"
	"github.com/sifteo/assetc/lib/codec/pcm"
	"github.com/sifteo/assetc/lib/getpath"
	"github.com/sifteo/assetc/lib/tileset"
)

// assetType distinguishes the two manifest categories: an audio track, or a
// tile texture.
type assetType int

const (
	assetUnknown assetType = iota
	assetTrack
	assetTexture
)

func parseAssetType(s string) (assetType, error) {
	switch strings.ToLower(s) {
	case "track":
		return assetTrack, nil
	case "texture":
		return assetTexture, nil
	default:
		return assetUnknown, fmt.Errorf("unknown asset type: %q", s)
	}
}

var validIdent = regexp.MustCompile("^[A-Za-z][A-Za-z0-9_]*$")

// manifestEntry is one parsed line from a manifest file: an asset type, a
// Go identifier, a path relative to a search directory, and an optional
// codec override (columns are whitespace-separated; a trailing "#"
// introduces a comment).
type manifestEntry struct {
	atype    assetType
	codec    dispatch.Kind
	ident    string
	filename string
	fullpath string
}

func defaultCodec(t assetType) dispatch.Kind {
	if t == assetTexture {
		return dispatch.DUB
	}
	return dispatch.ADPCMA
}

func parseManifestLine(line []byte) (*manifestEntry, error) {
	if !utf8.Valid(line) {
		return nil, errors.New("invalid UTF-8")
	}
	if i := bytes.IndexByte(line, '#'); i != -1 {
		line = line[:i]
	}
	fields := bytes.Fields(line)
	if len(fields) == 0 {
		return nil, nil
	}
	if len(fields) != 3 && len(fields) != 4 {
		return nil, fmt.Errorf("got %d fields, expected 3 or 4", len(fields))
	}
	at, err := parseAssetType(string(fields[0]))
	if err != nil {
		return nil, err
	}
	ident := string(fields[1])
	if !validIdent.MatchString(ident) {
		return nil, fmt.Errorf("invalid identifier: %q", ident)
	}
	filename := path.Clean(string(fields[2]))
	if path.IsAbs(filename) {
		return nil, errors.New("path is absolute")
	}
	codec := defaultCodec(at)
	if len(fields) == 4 {
		codec, err = dispatch.Lookup(string(fields[3]))
		if err != nil {
			return nil, err
		}
	}
	return &manifestEntry{atype: at, codec: codec, ident: ident, filename: filename}, nil
}

func readManifestFile(filename string) ([]*manifestEntry, error) {
	var entries []*manifestEntry
	fp, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer fp.Close()
	sc := bufio.NewScanner(fp)
	for lineno := 1; sc.Scan(); lineno++ {
		e, err := parseManifestLine(sc.Bytes())
		if err != nil {
			return nil, fmt.Errorf("%s:%d: %w", filename, lineno, err)
		}
		if e != nil {
			entries = append(entries, e)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}

func resolveManifestInputs(entries []*manifestEntry, dirs []string) error {
	for _, e := range entries {
		var fullpath string
		for _, dir := range dirs {
			p := filepath.Join(dir, e.filename)
			if _, err := os.Stat(p); err == nil {
				fullpath = p
				break
			}
		}
		if fullpath == "" {
			return fmt.Errorf("could not find file: %q", e.filename)
		}
		e.fullpath = fullpath
	}
	return nil
}

// encodeEntry runs the codec named by e against its resolved input file and
// returns the compressed bytes.
func encodeEntry(e *manifestEntry) ([]byte, error) {
	data, err := os.ReadFile(e.fullpath)
	if err != nil {
		return nil, fmt.Errorf("could not load %s: %w", e.filename, err)
	}
	switch e.atype {
	case assetTrack:
		tr, err := audiosrc.ReadTrack(data)
		if err != nil {
			return nil, fmt.Errorf("could not parse %s: %w", e.filename, err)
		}
		switch e.codec {
		case dispatch.PCM:
			return pcm.Encode(tr.PCM), nil
		case dispatch.ADPCMA:
			return adpcma.Encode(tr.PCM).Data, nil
		default:
			return nil, fmt.Errorf("codec %v is not valid for a track", e.codec)
		}
	case assetTexture:
		if e.codec != dispatch.DUB {
			return nil, fmt.Errorf("codec %v is not valid for a texture", e.codec)
		}
		frame, err := tileset.ReadIndexedPNG(e.fullpath)
		if err != nil {
			return nil, fmt.Errorf("could not parse %s: %w", e.filename, err)
		}
		res, err := dub.Encode(frame.Tiles, frame.Width, frame.Height, 1)
		if err != nil {
			return nil, fmt.Errorf("could not encode %s: %w", e.filename, err)
		}
		out := make([]byte, len(res.Words)*2)
		for i, w := range res.Words {
			binary.LittleEndian.PutUint16(out[2*i:], w)
		}
		return out, nil
	default:
		panic("bad asset type")
	}
}

// packedAsset is one entry's position and length in the packed data blob.
type packedAsset struct {
	entry  *manifestEntry
	offset int
	data   []byte
}

func buildPack(entries []*manifestEntry) ([]packedAsset, error) {
	packed := make([]packedAsset, len(entries))
	pos := 0
	for i, e := range entries {
		data, err := encodeEntry(e)
		if err != nil {
			return nil, err
		}
		pos = (pos + 1) &^ 1 // word-align each asset
		packed[i] = packedAsset{entry: e, offset: pos, data: data}
		pos += len(data)
	}
	return packed, nil
}

func writePackData(filename string, packed []packedAsset) error {
	const headerSize = 8
	total := headerSize * len(packed)
	for _, p := range packed {
		total = (total + 1) &^ 1
		total += len(p.data)
	}
	out := make([]byte, total)
	pos := headerSize * len(packed)
	for i, p := range packed {
		pos = (pos + 1) &^ 1
		h := out[i*headerSize : (i+1)*headerSize : (i+1)*headerSize]
		binary.BigEndian.PutUint32(h[0:4], uint32(pos))
		binary.BigEndian.PutUint32(h[4:8], uint32(len(p.data)))
		copy(out[pos:], p.data)
		pos += len(p.data)
	}
	return os.WriteFile(filename, out, 0o666)
}

func writePackHeader(filename string, packed []packedAsset) error {
	var buf bytes.Buffer
	buf.WriteString("// Code generated by assetc manifest. DO NOT EDIT.\n\n")
	buf.WriteString("package assets\n\n")
	buf.WriteString("const (\n")
	for i, p := range packed {
		fmt.Fprintf(&buf, "\tAsset%s = %d\n", p.entry.ident, i)
	}
	buf.WriteString(")\n")
	return os.WriteFile(filename, buf.Bytes(), 0o666)
}

var manifestFlags struct {
	manifest  string
	dataOut   string
	headerOut string
	dirs      []string
}

var cmdManifest = cobra.Command{
	Use:   "manifest --manifest=<file> [--out-data=<file>] [--out-header=<file>]",
	Short: "Build a packed asset blob and header from a manifest file.",
	Args:  cobra.NoArgs,
	RunE: func(_ *cobra.Command, _ []string) error {
		if manifestFlags.manifest == "" {
			return errors.New("missing required flag -manifest")
		}
		inManifest := getpath.GetPath(manifestFlags.manifest)
		entries, err := readManifestFile(inManifest)
		if err != nil {
			return err
		}
		if manifestFlags.dataOut == "" && manifestFlags.headerOut == "" {
			return errors.New("at least one of -out-data or -out-header is required")
		}
		if manifestFlags.dataOut != "" {
			if err := resolveManifestInputs(entries, manifestFlags.dirs); err != nil {
				return err
			}
			packed, err := buildPack(entries)
			if err != nil {
				return err
			}
			if err := writePackData(getpath.GetPath(manifestFlags.dataOut), packed); err != nil {
				return err
			}
			if manifestFlags.headerOut != "" {
				if err := writePackHeader(getpath.GetPath(manifestFlags.headerOut), packed); err != nil {
					return err
				}
			}
		} else {
			// The header lists identifiers only, so no input is encoded.
			packed := make([]packedAsset, len(entries))
			for i, e := range entries {
				packed[i].entry = e
			}
			if err := writePackHeader(getpath.GetPath(manifestFlags.headerOut), packed); err != nil {
				return err
			}
		}
		return nil
	},
}

func init() {
	f := cmdManifest.Flags()
	f.StringVar(&manifestFlags.manifest, "manifest", "", "input manifest file")
	f.StringVar(&manifestFlags.dataOut, "out-data", "", "output packed data file")
	f.StringVar(&manifestFlags.headerOut, "out-header", "", "output Go header file")
	f.StringArrayVar(&manifestFlags.dirs, "dir", nil, "search for files in this directory")
}
