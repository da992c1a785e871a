package b64

import "testing"

func TestEncodeDecodeRoundTrip(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"hello", "aGVsbG8="},
		{"user:pass", "dXNlcjpwYXNz"},
	}
	for _, tc := range cases {
		got := Encode(tc.in)
		if got != tc.want {
			t.Errorf("Encode(%q) = %q, want %q", tc.in, got, tc.want)
		}
		back, err := Decode(got)
		if err != nil {
			t.Fatalf("Decode(%q): %v", got, err)
		}
		if back != tc.in {
			t.Errorf("Decode(Encode(%q)) = %q", tc.in, back)
		}
	}
}

func TestDecodeRejectsInvalidInput(t *testing.T) {
	t.Parallel()

	if out, err := Decode("not base64!!"); err == nil {
		t.Fatalf("Decode accepted invalid input, got %q", out)
	}
}
