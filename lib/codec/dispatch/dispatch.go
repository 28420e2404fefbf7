// Package dispatch resolves a codec name, as it appears in a manifest file
// or on the command line, to the encoder it selects. It does not invoke
// encoders itself: pcm, adpcma and dub take different argument shapes (a
// raw byte stream versus a tile array plus dimensions), so the caller is
// the one that knows which to call once it has resolved a Kind.
package dispatch

import (
	"errors"
	"strings"
)

// Kind identifies one of the codecs a manifest entry can name.
type Kind int

const (
	// Unknown is the zero Kind; Lookup never returns it on success.
	Unknown Kind = iota
	PCM
	ADPCMA
	DUB
)

// String returns the canonical, lowercase name for k.
func (k Kind) String() string {
	switch k {
	case PCM:
		return "pcm"
	case ADPCMA:
		return "adpcm"
	case DUB:
		return "dub"
	default:
		return "unknown"
	}
}

// ErrNotFound is returned by Lookup when name does not match any codec.
var ErrNotFound = errors.New("dispatch: unknown codec name")

// Lookup resolves name to a Kind. Matching is case-insensitive, and "" is
// treated as an alias for "adpcm", so an empty name selects the ADPCM-A
// encoder.
func Lookup(name string) (Kind, error) {
	switch strings.ToLower(name) {
	case "", "adpcm":
		return ADPCMA, nil
	case "pcm":
		return PCM, nil
	case "dub":
		return DUB, nil
	default:
		return Unknown, ErrNotFound
	}
}
