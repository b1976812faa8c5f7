// Package spell implements the barrier cipher: a Caesar shift keyed by the
// message's own first byte. Both directions are pure functions with no
// retained state, so they are safe to call from any context.
package spell

// Decode decodes a keyed message. The first byte of encoded is the numeric
// shift key; the remaining bytes are the cipher text. Each alphabetic byte
// is shifted backward by key mod 26 within its own case, wrapping around;
// everything else passes through unchanged. Empty input yields empty output.
func Decode(encoded []byte) []byte {
	if len(encoded) == 0 {
		return nil
	}

	key := int(encoded[0]) % 26
	decoded := make([]byte, 0, len(encoded)-1)

	for _, c := range encoded[1:] {
		decoded = append(decoded, shift(c, -key))
	}
	return decoded
}

// Encode is the inverse of Decode: it shifts each alphabetic byte of msg
// forward by key mod 26 and prepends the key byte, producing input Decode
// will restore to msg.
func Encode(key byte, msg []byte) []byte {
	k := int(key) % 26
	encoded := make([]byte, 0, len(msg)+1)
	encoded = append(encoded, key)

	for _, c := range msg {
		encoded = append(encoded, shift(c, k))
	}
	return encoded
}

// shift rotates an alphabetic byte by n positions within its case,
// biasing the sum positive before reduction so negative shifts wrap
// correctly. Non-alphabetic bytes are returned unchanged.
func shift(c byte, n int) byte {
	var base byte
	switch {
	case c >= 'a' && c <= 'z':
		base = 'a'
	case c >= 'A' && c <= 'Z':
		base = 'A'
	default:
		return c
	}
	return base + byte((int(c-base)+n+26)%26)
}
