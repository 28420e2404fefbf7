package audiosrc

import (
	"encoding/json"
	"fmt"
	"os"
)

// Metadata holds the loop-timing information that accompanies a source
// track as a JSON sidecar, for tracks that loop on a boundary the AIFF
// container's own markers can't express precisely (e.g. a fractional-sample
// lead-in measured externally).
type Metadata struct {
	LeadIn     float64  `json:"leadIn"`
	LoopLength *float64 `json:"loopLength"`
}

// ReadMetadata reads a sidecar metadata file.
func ReadMetadata(filename string) (Metadata, error) {
	var md Metadata
	fp, err := os.Open(filename)
	if err != nil {
		return md, fmt.Errorf("could not read metadata: %w", err)
	}
	defer fp.Close()
	dec := json.NewDecoder(fp)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&md); err != nil {
		return md, fmt.Errorf("could not parse metadata file %q: %w", filename, err)
	}
	return md, nil
}
