// Package adpcma implements the ADPCM-A codec: a 4-bit-per-sample variant of
// IMA ADPCM, with per-stream initial conditions chosen to minimize the
// decoder's convergence time.
//
// The encoder is a pure function of its input: it allocates its own output
// buffer and returns it, and it touches no package-level mutable state
// beyond the immutable lookup tables below.
package adpcma

// IndexMax is the largest legal step-table index.
const IndexMax = 88

// HeaderSize is the size, in bytes, of the initial-conditions header that
// precedes every encoded stream.
const HeaderSize = 3

// stepSizeTable is the standard 89-entry IMA ADPCM step size table.
var stepSizeTable = [89]uint16{
	7, 8, 9, 10, 11, 12, 13, 14, 16, 17, 19, 21, 23, 25, 28, 31,
	34, 37, 41, 45, 50, 55, 60, 66, 73, 80, 88, 97, 107, 118, 130,
	143, 157, 173, 190, 209, 230, 253, 279, 307, 337, 371, 408, 449,
	494, 544, 598, 658, 724, 796, 876, 963, 1060, 1166, 1282, 1411,
	1552, 1707, 1878, 2066, 2272, 2499, 2749, 3024, 3327, 3660, 4026,
	4428, 4871, 5358, 5894, 6484, 7132, 7845, 8630, 9493, 10442, 11487,
	12635, 13899, 15289, 16818, 18500, 20350, 22385, 24623, 27086, 29794, 32767,
}

// codeTable gives, for each of the 16 four-bit codes, a 32-bit word whose
// low byte is a signed multiplier (applied to the current step size to get a
// candidate delta) and whose value shifted right 8 arithmetically gives the
// step index adjustment. This is not quite standard IMA ADPCM: the rounding
// is chosen to match a decoder that computes the delta with a single
// multiply and shift.
var codeTable = [16]int32{
	-255, -253, -251, -249,
	int32(0x00000209), int32(0x0000040B), int32(0x0000060D), int32(0x0000080F),
	-1, -3, -5, -7,
	int32(0x000002F7), int32(0x000004F5), int32(0x000006F3), int32(0x000008F1),
}

// codeDelta returns ((m(c) widened to unsigned 32-bit) * step), reinterpreted
// as signed 32-bit, arithmetic-shifted right by 3, for the given step size
// and code. The reinterpret-then-arithmetic-shift order matters: it mirrors
// the target decoder's multiply-then-shift instruction sequence, and the
// eight negative-multiplier codes depend on the shift being arithmetic to
// come out as small negative deltas rather than huge positive ones.
func codeDelta(step uint16, code int) int32 {
	m := int8(codeTable[code] & 0xFF)
	widened := uint32(int32(m))
	return int32(widened*uint32(step)) >> 3
}

// codeIndexAdjust returns the step-index adjustment associated with code.
func codeIndexAdjust(code int) int {
	return int(codeTable[code] >> 8)
}

// State is the codec's running predictor state: the current predicted
// sample and step-table index. It doubles as the 3-byte stream header.
type State struct {
	Sample int16
	Index  int
}

func clamp16(v int32) int16 {
	if v < -32768 {
		return -32768
	}
	if v > 32767 {
		return 32767
	}
	return int16(v)
}

func clampIndex(v int) int {
	if v < 0 {
		return 0
	}
	if v > IndexMax {
		return IndexMax
	}
	return v
}

// encodeSample encodes a single sample, updating state in place, and returns
// the chosen 4-bit code.
func encodeSample(state *State, sample int32) uint8 {
	step := stepSizeTable[state.Index]
	diff := sample - int32(state.Sample)

	var bestCode int
	bestDelta := int32(0x100000)
	for code := 0; code < 16; code++ {
		delta := codeDelta(step, code)
		thisError := max32(delta-diff, diff-delta)
		bestError := max32(bestDelta-diff, diff-bestDelta)
		if thisError <= bestError {
			bestDelta = delta
			bestCode = code
		}
	}

	state.Sample = clamp16(int32(state.Sample) + bestDelta)
	state.Index = clampIndex(state.Index + codeIndexAdjust(bestCode))
	return uint8(bestCode)
}

func max32(a, b int32) int32 {
	if a > b {
		return a
	}
	return b
}

// encodePair encodes two samples into one output nybble-pair byte, updating
// state in place, and returns the squared predictor error for both samples.
func encodePair(state *State, s1, s2 int32) (byte, uint64) {
	n1 := encodeSample(state, s1)
	e1 := int64(state.Sample) - int64(s1)
	n2 := encodeSample(state, s2)
	e2 := int64(state.Sample) - int64(s2)
	return n1 | n2<<4, uint64(e1*e1) + uint64(e2*e2)
}

// encodeFrom runs the full encode loop over samples starting from state
// (passed by value, so the caller's copy is untouched), appending output
// bytes to out if out is non-nil, and returns the total squared predictor
// error. state is updated in a local copy only.
func encodeFrom(state State, samples []int16, out *[]byte) uint64 {
	var errSum uint64
	n := len(samples)
	pairs := n / 2
	for i := 0; i < pairs; i++ {
		s1 := int32(samples[2*i])
		s2 := int32(samples[2*i+1])
		b, e := encodePair(&state, s1, s2)
		if out != nil {
			*out = append(*out, b)
		}
		errSum += e
	}
	if n&1 != 0 {
		s1 := int32(samples[n-1])
		b, e := encodePair(&state, s1, s1)
		if out != nil {
			*out = append(*out, b)
		}
		errSum += e
	}
	return errSum
}

// optimizeSamples caps how many samples the initial-condition search
// measures error over.
const optimizeSamples = 100

// optimizeIC searches for the best initial (sample, index) pair for encoding
// samples: try every index against a short prefix, then hill-climb sample
// and index by single steps.
func optimizeIC(samples []int16) (State, uint64) {
	state := State{Sample: samples[0], Index: 0}
	prefix := samples
	if len(prefix) > optimizeSamples {
		prefix = prefix[:optimizeSamples]
	}

	bestError := encodeFrom(state, prefix, nil)
	bestIndex := 0
	for index := 1; index <= IndexMax; index++ {
		state.Index = index
		if e := encodeFrom(state, prefix, nil); e < bestError {
			bestError = e
			bestIndex = index
		}
	}
	state.Index = bestIndex

	for {
		state.Sample++
		if e := encodeFrom(state, prefix, nil); e < bestError {
			bestError = e
			continue
		}
		state.Sample -= 2
		if e := encodeFrom(state, prefix, nil); e < bestError {
			bestError = e
			continue
		}
		state.Sample++

		if state.Index < IndexMax {
			state.Index++
			if e := encodeFrom(state, prefix, nil); e < bestError {
				bestError = e
				continue
			}
			state.Index--
		}

		if state.Index > 0 {
			state.Index--
			if e := encodeFrom(state, prefix, nil); e < bestError {
				bestError = e
				continue
			}
			state.Index++
		}

		break
	}

	return state, bestError
}

// Result is the output of Encode: the encoded byte stream plus the initial
// conditions that were chosen and stored in its header.
type Result struct {
	Data        []byte
	InitialIC   State
	PrefixError uint64
}

// Encode compresses pcm, a little-endian signed 16-bit mono PCM byte stream,
// into an ADPCM-A stream: a 3-byte header followed by packed 4-bit codes,
// two samples per byte.
//
// pcm is truncated to an even number of bytes before encoding, since a
// trailing partial sample carries no complete value to encode.
func Encode(pcm []byte) Result {
	pcm = pcm[:len(pcm)&^1]
	samples := bytesToSamples(pcm)

	var ic State
	var prefixError uint64
	if len(pcm) < 4 {
		ic = State{Sample: 0, Index: 0}
	} else {
		ic, prefixError = optimizeIC(samples)
	}

	out := make([]byte, 0, HeaderSize+(len(samples)+1)/2)
	out = append(out, byte(ic.Sample), byte(ic.Sample>>8), byte(ic.Index))
	encodeFrom(ic, samples, &out)

	return Result{Data: out, InitialIC: ic, PrefixError: prefixError}
}

func bytesToSamples(pcm []byte) []int16 {
	samples := make([]int16, len(pcm)/2)
	for i := range samples {
		samples[i] = int16(uint16(pcm[2*i]) | uint16(pcm[2*i+1])<<8)
	}
	return samples
}

// BodyLen returns the number of body bytes Encode would produce for
// numSamples complete samples: two samples pack into one byte, rounding up.
func BodyLen(numSamples int) int {
	return (numSamples + 1) / 2
}
