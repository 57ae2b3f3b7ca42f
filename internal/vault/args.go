package vault

import (
	sdkmath "cosmossdk.io/math"

	"github.com/babylonlabs-io/price-vault-factory/internal/types"
)

const (
	MethodNew            = "new"
	MethodFtOnTransfer   = "ft_on_transfer"
	MethodOracleOnCall   = "oracle_on_call"
	MethodUnlock         = "unlock"
	MethodUnwrap         = "unwrap"
	MethodFtTransfer     = "ft_transfer"
	MethodFtTransferCall = "ft_transfer_call"
)

// InitArgs is the payload of the init call issued by the factory.
type InitArgs struct {
	Config types.VaultConfig `json:"config"`
}

type FtTransferArgs struct {
	ReceiverID string       `json:"receiver_id"`
	Amount     sdkmath.Uint `json:"amount"`
	Memo       *string      `json:"memo,omitempty"`
}

type FtTransferCallArgs struct {
	ReceiverID string       `json:"receiver_id"`
	Amount     sdkmath.Uint `json:"amount"`
	Memo       *string      `json:"memo,omitempty"`
	Msg        string       `json:"msg"`
}

type FtOnTransferArgs struct {
	SenderID string       `json:"sender_id"`
	Amount   sdkmath.Uint `json:"amount"`
	Msg      string       `json:"msg"`
}

type OracleOnCallArgs struct {
	SenderID string          `json:"sender_id"`
	Data     types.PriceData `json:"data"`
	Msg      string          `json:"msg"`
}
