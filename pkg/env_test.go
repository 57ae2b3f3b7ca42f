package pkg

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetenv(t *testing.T) {
	const key = "PRICE_VAULT_FACTORY_TEST_IMAGE"

	testCases := []struct {
		name     string
		set      bool
		value    string
		expected string
	}{
		{name: "unset key falls back", expected: "7.0.12"},
		{name: "explicit empty value is kept", set: true, value: "", expected: ""},
		{name: "set value wins", set: true, value: "8.0.4", expected: "8.0.4"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if tc.set {
				t.Setenv(key, tc.value)
			}
			assert.Equal(t, tc.expected, Getenv(key, "7.0.12"))
		})
	}
}
