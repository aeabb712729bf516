package utils

import "crypto/rand"

// codeAlphabet holds the characters used in confirmation codes. Uppercase
// letters and digits keep codes easy to read back over the phone.
const codeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// CodeLength is the length of a confirmation code. 36^8 possible codes keep
// the collision probability negligible at hotel booking volumes; uniqueness
// is additionally backed by a unique index on the column.
const CodeLength = 8

// NewConfirmationCode returns a random 8-character uppercase alphanumeric
// code. Codes must never be guessable in sequence, so they are drawn from
// crypto/rand rather than a counter.
func NewConfirmationCode() (string, error) {
	// 252 is the largest multiple of 36 below 256; bytes above it are
	// rejected so every character is equally likely.
	const limit = 256 - 256%len(codeAlphabet)
	out := make([]byte, 0, CodeLength)
	buf := make([]byte, CodeLength)
	for len(out) < CodeLength {
		if _, err := rand.Read(buf); err != nil {
			return "", err
		}
		for _, b := range buf {
			if int(b) >= limit {
				continue
			}
			out = append(out, codeAlphabet[int(b)%len(codeAlphabet)])
			if len(out) == CodeLength {
				break
			}
		}
	}
	return string(out), nil
}
