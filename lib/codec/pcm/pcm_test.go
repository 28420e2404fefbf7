package pcm

import "testing"

func TestEncodeIdentity(t *testing.T) {
	in := []byte{1, 2, 3, 4, 5}
	out := Encode(in)
	if len(out) != len(in) {
		t.Fatalf("len(out) = %d, want %d", len(out), len(in))
	}
	for i := range in {
		if out[i] != in[i] {
			t.Fatalf("out[%d] = %d, want %d", i, out[i], in[i])
		}
	}
}

func TestEncodeEmpty(t *testing.T) {
	if out := Encode(nil); len(out) != 0 {
		t.Fatalf("Encode(nil) = %v, want empty", out)
	}
}
