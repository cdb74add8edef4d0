package multibase

import "testing"

func TestEncodeDecodeRoundTrip(t *testing.T) {
	cases := []string{
		"meshcast-position",
		"",
		"hello world! éè",
		"{\"node_id\":\"n1\"}",
	}
	for _, s := range cases {
		enc, err := EncodeTopic(s)
		if err != nil {
			t.Fatalf("EncodeTopic(%q): %v", s, err)
		}
		if !HasExpectedPrefix(enc) {
			t.Fatalf("EncodeTopic(%q) = %q: missing 'u' prefix", s, enc)
		}
		dec, err := DecodeTopic(enc)
		if err != nil {
			t.Fatalf("DecodeTopic(%q): %v", enc, err)
		}
		if dec != s {
			t.Fatalf("round trip mismatch: got %q want %q", dec, s)
		}
	}
}

func TestDecodeTopicRejectsMissingPrefix(t *testing.T) {
	if _, err := DecodeTopic("aGVsbG8"); err == nil {
		t.Fatal("expected error for missing 'u' prefix")
	}
}
