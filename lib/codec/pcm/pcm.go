// Package pcm implements the trivial "pcm" codec: asset data that should be
// embedded uncompressed, with no header and no transformation at all.
package pcm

// Encode returns data unchanged. It exists so pcm can be selected through
// the same dispatch path as the compressed codecs.
func Encode(data []byte) []byte {
	return data
}
