package types

import (
	"errors"
	"fmt"
)

const FTMetadataSpec = "ft-1.0.0"

// FungibleTokenMetadata is the human readable description of a fungible asset.
type FungibleTokenMetadata struct {
	Spec          string  `json:"spec" bson:"spec"`
	Name          string  `json:"name" bson:"name"`
	Symbol        string  `json:"symbol" bson:"symbol"`
	Icon          *string `json:"icon,omitempty" bson:"icon,omitempty"`
	Reference     *string `json:"reference,omitempty" bson:"reference,omitempty"`
	ReferenceHash []byte  `json:"reference_hash,omitempty" bson:"reference_hash,omitempty"`
	Decimals      uint8   `json:"decimals" bson:"decimals"`
}

func (m *FungibleTokenMetadata) Validate() error {
	if m.Spec != FTMetadataSpec {
		return fmt.Errorf("unsupported metadata spec %q", m.Spec)
	}
	if (m.Reference == nil) != (m.ReferenceHash == nil) {
		return errors.New("reference and reference hash must be set together")
	}
	if m.ReferenceHash != nil && len(m.ReferenceHash) != 32 {
		return errors.New("reference hash has to be 32 bytes")
	}
	return nil
}

// IsValidSymbol reports whether s only contains [a-z0-9_-].
func IsValidSymbol(s string) bool {
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= '0' && c <= '9', c >= 'a' && c <= 'z', c == '_', c == '-':
		default:
			return false
		}
	}
	return true
}
