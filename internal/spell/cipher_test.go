package spell

import (
	"bytes"
	"testing"
)

func TestDecode(t *testing.T) {
	tests := []struct {
		name    string
		encoded []byte
		want    []byte
	}{
		{
			name:    "key three",
			encoded: []byte{3, 'D', 'h', 'o', 'o'},
			want:    []byte("Aell"),
		},
		{
			name:    "key wraps around alphabet",
			encoded: append([]byte{29}, []byte("Dhoo")...),
			want:    []byte("Aell"),
		},
		{
			name:    "mixed case",
			encoded: []byte{1, 'B', 'c', 'A', 'a'},
			want:    []byte("AbZz"),
		},
		{
			name:    "non-alphabetic pass through",
			encoded: []byte{5, 'M', 'j', 'q', 'q', 't', ',', ' ', '1', '!'},
			want:    []byte("Hell, 1!"),
		},
		{
			name:    "zero key is identity",
			encoded: []byte{0, 'k', 'e', 'e', 'p'},
			want:    []byte("keep"),
		},
		{
			name:    "key byte only",
			encoded: []byte{7},
			want:    []byte{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Decode(tt.encoded)
			if !bytes.Equal(got, tt.want) {
				t.Errorf("Decode(%v) = %q, want %q", tt.encoded, got, tt.want)
			}
		})
	}
}

func TestDecodeEmpty(t *testing.T) {
	if got := Decode(nil); len(got) != 0 {
		t.Errorf("Decode(nil) = %q, want empty", got)
	}
	if got := Decode([]byte{}); len(got) != 0 {
		t.Errorf("Decode(empty) = %q, want empty", got)
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	messages := [][]byte{
		[]byte("Agll"),
		[]byte("The quick brown fox jumps over the lazy dog"),
		[]byte("MiXeD CaSe 123 !@#"),
		[]byte(""),
	}

	for _, msg := range messages {
		for key := byte(0); key < 30; key += 7 {
			encoded := Encode(key, msg)
			decoded := Decode(encoded)
			if !bytes.Equal(decoded, msg) && !(len(decoded) == 0 && len(msg) == 0) {
				t.Errorf("round trip key %d: got %q, want %q", key, decoded, msg)
			}
		}
	}
}

func TestEncodePrependsKey(t *testing.T) {
	encoded := Encode(3, []byte("Aell"))
	if encoded[0] != 3 {
		t.Errorf("first byte = %d, want key 3", encoded[0])
	}
	if !bytes.Equal(encoded[1:], []byte("Dhoo")) {
		t.Errorf("cipher text = %q, want %q", encoded[1:], "Dhoo")
	}
}
