package dispatch

import "testing"

func TestLookupKnownNames(t *testing.T) {
	cases := map[string]Kind{
		"pcm":   PCM,
		"adpcm": ADPCMA,
		"":      ADPCMA,
		"dub":   DUB,
		"DUB":   DUB,
		"PCM":   PCM,
	}
	for name, want := range cases {
		got, err := Lookup(name)
		if err != nil {
			t.Fatalf("Lookup(%q) error: %v", name, err)
		}
		if got != want {
			t.Errorf("Lookup(%q) = %v, want %v", name, got, want)
		}
	}
}

func TestLookupUnknown(t *testing.T) {
	_, err := Lookup("mp3")
	if err != ErrNotFound {
		t.Fatalf("Lookup(\"mp3\") err = %v, want ErrNotFound", err)
	}
}

func TestKindString(t *testing.T) {
	if ADPCMA.String() != "adpcm" {
		t.Errorf("ADPCMA.String() = %q, want %q", ADPCMA.String(), "adpcm")
	}
}
