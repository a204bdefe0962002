// Package randid generates short random identifiers for correlating requests
// in logs.
package randid

import "math/rand/v2"

// alphabet omits characters that are easy to misread in a terminal (0/o, 1/l).
const alphabet = "abcdefghijkmnpqrstuvwxyz23456789"

// Generate returns a random identifier of the given length.
func Generate(length int) string {
	if length <= 0 {
		return ""
	}
	b := make([]byte, length)
	for i := range b {
		b[i] = alphabet[rand.IntN(len(alphabet))]
	}
	return string(b)
}
