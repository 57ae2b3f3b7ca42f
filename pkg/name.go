package pkg

import "math/rand/v2"

const nameAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

// UniqueName appends a dash and n random lowercase alphanumerics to prefix.
// The result is usable as a mongo database name and as a docker container name.
func UniqueName(prefix string, n int) string {
	if n <= 0 {
		return prefix
	}
	suffix := make([]byte, n)
	for i := range suffix {
		suffix[i] = nameAlphabet[rand.IntN(len(nameAlphabet))] //nolint:gosec
	}
	return prefix + "-" + string(suffix)
}
