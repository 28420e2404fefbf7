package audiosrc

import (
	"encoding/binary"
	"testing"
)

// buildAIFF assembles a minimal uncompressed mono 16-bit AIFF file with the
// given big-endian sample data, for use as test fixtures.
func buildAIFF(t *testing.T, samples []int16) []byte {
	t.Helper()

	sdata := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.BigEndian.PutUint16(sdata[2*i:], uint16(s))
	}

	comm := make([]byte, 18)
	binary.BigEndian.PutUint16(comm[0:2], 1) // channels
	binary.BigEndian.PutUint32(comm[2:6], uint32(len(samples)))
	binary.BigEndian.PutUint16(comm[6:8], 16) // bit depth
	// Sample rate 44100, encoded as 80-bit extended big-endian. The bytes
	// are hand-encoded by float80 below rather than produced by a general
	// conversion routine.
	copy(comm[8:], float80(44100))

	ssnd := make([]byte, 8+len(sdata))
	copy(ssnd[8:], sdata)

	var chunks [][]byte
	chunks = append(chunks, chunk("COMM", comm))
	chunks = append(chunks, chunk("SSND", ssnd))

	var body []byte
	for _, c := range chunks {
		body = append(body, c...)
	}

	out := make([]byte, 12+len(body))
	copy(out[0:4], "FORM")
	binary.BigEndian.PutUint32(out[4:8], uint32(4+len(body)))
	copy(out[8:12], "AIFF")
	copy(out[12:], body)
	return out
}

func chunk(id string, data []byte) []byte {
	c := make([]byte, 8+len(data)+(len(data)&1))
	copy(c[0:4], id)
	binary.BigEndian.PutUint32(c[4:8], uint32(len(data)))
	copy(c[8:], data)
	return c
}

// float80 encodes f as an 80-bit big-endian extended-precision float,
// matching the IEEE 754 extended format AIFF uses for its sample rate.
func float80(f float64) []byte {
	// 44100 = 1.34582... * 2^15; hand-encode the handful of rates this
	// test needs rather than pull in a general float-to-extended routine.
	switch f {
	case 44100:
		return []byte{0x40, 0x0E, 0xAC, 0x44, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00}
	default:
		panic("float80: unsupported test fixture rate")
	}
}

func TestReadTrackBasic(t *testing.T) {
	samples := []int16{0, 100, -100, 32767, -32768}
	data := buildAIFF(t, samples)

	tr, err := ReadTrack(data)
	if err != nil {
		t.Fatal(err)
	}
	if len(tr.PCM) != len(samples)*2 {
		t.Fatalf("len(PCM) = %d, want %d", len(tr.PCM), len(samples)*2)
	}
	for i, want := range samples {
		got := int16(binary.LittleEndian.Uint16(tr.PCM[2*i:]))
		if got != want {
			t.Errorf("sample %d = %d, want %d", i, got, want)
		}
	}
}

func TestReadTrackRejectsStereo(t *testing.T) {
	data := buildAIFF(t, []int16{0, 0})
	// Flip the channel count to 2 in place.
	binary.BigEndian.PutUint16(data[20:22], 2)
	if _, err := ReadTrack(data); err == nil {
		t.Fatal("expected error for stereo input")
	}
}

func TestReadTrackRejectsTruncated(t *testing.T) {
	data := buildAIFF(t, []int16{1, 2, 3})
	if _, err := ReadTrack(data[:len(data)-20]); err == nil {
		t.Fatal("expected error for truncated file")
	}
}

func TestApplyMetadataSetsLoop(t *testing.T) {
	samples := make([]int16, 100)
	data := buildAIFF(t, samples)
	tr, err := ReadTrack(data)
	if err != nil {
		t.Fatal(err)
	}
	loopLen := 50.0
	tr.ApplyMetadata(Metadata{LeadIn: 10, LoopLength: &loopLen})
	if tr.LoopStart != 10 || tr.LoopEnd != 60 {
		t.Fatalf("loop = [%d, %d), want [10, 60)", tr.LoopStart, tr.LoopEnd)
	}
}
