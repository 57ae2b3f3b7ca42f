package types

import "fmt"

const (
	MinAccountIDLen = 2
	MaxAccountIDLen = 64
)

// ValidateAccountID checks the host account naming rules: 2 to 64 characters,
// lower case alphanumeric parts separated by a single '-', '_' or '.'.
func ValidateAccountID(id string) error {
	if len(id) < MinAccountIDLen || len(id) > MaxAccountIDLen {
		return fmt.Errorf("account id %q must be between %d and %d characters", id, MinAccountIDLen, MaxAccountIDLen)
	}

	lastWasSeparator := true
	for i := 0; i < len(id); i++ {
		c := id[i]
		switch {
		case c >= 'a' && c <= 'z', c >= '0' && c <= '9':
			lastWasSeparator = false
		case c == '-', c == '_', c == '.':
			if lastWasSeparator {
				return fmt.Errorf("account id %q has a misplaced separator at %d", id, i)
			}
			lastWasSeparator = true
		default:
			return fmt.Errorf("account id %q contains invalid character %q", id, c)
		}
	}
	if lastWasSeparator {
		return fmt.Errorf("account id %q ends with a separator", id)
	}

	return nil
}

// SubAccountID returns "<prefix>.<parent>".
func SubAccountID(prefix, parent string) string {
	return prefix + "." + parent
}
