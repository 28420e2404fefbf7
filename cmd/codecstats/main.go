// Command codecstats reports compression ratio and, for ADPCM-A, predictor
// error energy across a corpus of source assets. It walks the corpus and
// calls the codec packages in-process rather than shelling out to an
// external transcoder: the assets here are encoded, not transcoded, so
// there's nothing an external process would tell us that the library can't.
package main

import (
	"encoding/csv"
	"errors"
	"flag"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/sifteo/assetc/lib/audiosrc"
	"github.com/sifteo/assetc/lib/codec/adpcma"
	"github.com/sifteo/assetc/lib/codec/dub"
	"github.com/sifteo/assetc/lib/tileset"
)

type assetKind int

const (
	kindTrack assetKind = iota
	kindTexture
)

type fileinfo struct {
	path string
	kind assetKind
}

func listFiles(dir string) ([]fileinfo, error) {
	var files []fileinfo
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		switch ext := strings.ToLower(filepath.Ext(path)); ext {
		case ".aiff", ".aifc":
			files = append(files, fileinfo{path: path, kind: kindTrack})
		case ".png":
			files = append(files, fileinfo{path: path, kind: kindTexture})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return files, nil
}

// result is one file's compression statistics: the ratio, expressed as a
// percentage of space saved, and (for tracks) the RMS predictor error over
// the initial-condition search window.
type result struct {
	ratio    float64
	rmsError float64
	hasError bool
}

func processFile(fi fileinfo) (result, error) {
	data, err := os.ReadFile(fi.path)
	if err != nil {
		return result{}, err
	}
	switch fi.kind {
	case kindTrack:
		tr, err := audiosrc.ReadTrack(data)
		if err != nil {
			return result{}, err
		}
		enc := adpcma.Encode(tr.PCM)
		ratio := 100.0 - float64(len(enc.Data))*100.0/float64(len(tr.PCM))
		numSamples := len(tr.PCM) / 2
		if numSamples == 0 {
			return result{ratio: ratio}, nil
		}
		n := numSamples
		if n > 100 {
			n = 100
		}
		rms := math.Sqrt(float64(enc.PrefixError) / float64(n))
		return result{ratio: ratio, rmsError: rms, hasError: true}, nil

	case kindTexture:
		frame, err := tileset.ReadIndexedPNG(fi.path)
		if err != nil {
			return result{}, err
		}
		res, err := dub.Encode(frame.Tiles, frame.Width, frame.Height, 1)
		if err != nil {
			return result{}, err
		}
		tileCount := dub.TileCount(frame.Width, frame.Height, 1)
		compressedWords := len(res.Words)
		ratio := 100.0 - float64(compressedWords)*100.0/float64(tileCount)
		return result{ratio: ratio}, nil

	default:
		panic("bad asset kind")
	}
}

func writeCSV(outPath string, files []fileinfo, results []result) error {
	fp, err := os.Create(outPath)
	if err != nil {
		return err
	}
	defer fp.Close()
	w := csv.NewWriter(fp)
	if err := w.Write([]string{"File", "Ratio", "RMSError"}); err != nil {
		return err
	}
	for i, fi := range files {
		r := results[i]
		row := []string{fi.path, strconv.FormatFloat(r.ratio, 'f', 2, 64)}
		if r.hasError {
			row = append(row, strconv.FormatFloat(r.rmsError, 'e', 7, 64))
		} else {
			row = append(row, "")
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

func mainE() error {
	flag.Parse()
	args := flag.Args()
	if len(args) < 1 || 2 < len(args) {
		fmt.Fprintln(os.Stderr, "Usage: codecstats <dir> [<out.csv>]")
		return nil
	}
	rootDir := args[0]
	var outPath string
	if len(args) >= 2 {
		outPath = args[1]
	}

	files, err := listFiles(rootDir)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return errors.New("found no files")
	}

	var wg sync.WaitGroup
	n := runtime.NumCPU()
	wg.Add(n)
	var pos, nerrors uint32
	results := make([]result, len(files))
	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			for {
				i := int(atomic.AddUint32(&pos, 1) - 1)
				if i >= len(files) {
					break
				}
				r, err := processFile(files[i])
				if err != nil {
					fmt.Fprintln(os.Stderr, "Error:", files[i].path, err)
					atomic.AddUint32(&nerrors, 1)
					continue
				}
				results[i] = r
			}
		}()
	}
	wg.Wait()
	if n := atomic.LoadUint32(&nerrors); n > 0 {
		return fmt.Errorf("%d errors occurred during processing", n)
	}

	if outPath != "" {
		if err := writeCSV(outPath, files, results); err != nil {
			return err
		}
	}

	var sum float64
	for _, r := range results {
		sum += r.ratio
	}
	fmt.Printf("Average compression: %.2f%% over %d files\n", sum/float64(len(results)), len(results))

	return nil
}

func main() {
	if err := mainE(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
