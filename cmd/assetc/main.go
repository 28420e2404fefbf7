// Command assetc is the offline asset compiler: it encodes audio and tile
// assets with the pcm, adpcm, and dub codecs, and can build a packed binary
// plus header from a manifest of such assets.
package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// fileError wraps an error with the path of the file it occurred while
// processing, so top-level error output always names the offending file.
type fileError struct {
	name string
	err  error
}

func (e *fileError) Error() string {
	return fmt.Sprintf("%q: %v", e.name, e.err)
}

func (e *fileError) Unwrap() error {
	return e.err
}

var cmdRoot = cobra.Command{
	Use:           "assetc",
	Short:         "assetc encodes and packs offline game assets.",
	SilenceErrors: true,
	SilenceUsage:  true,
}

func main() {
	cmdRoot.AddCommand(&cmdEncode)
	cmdRoot.AddCommand(&cmdManifest)
	if err := cmdRoot.Execute(); err != nil {
		logrus.Error(err)
		os.Exit(1)
	}
}
