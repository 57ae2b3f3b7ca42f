package vault

import (
	"context"
	"encoding/json"
	"fmt"

	sdkmath "cosmossdk.io/math"
	"github.com/rs/zerolog/log"

	"github.com/babylonlabs-io/price-vault-factory/internal/calls"
)

// AssetExecutor applies calls made to backing asset tokens held in the
// vault store. Tokens receiving ft_transfer_call forward the deposit to the
// receiving vault and refund it when the vault rejects it.
type AssetExecutor struct {
	host *Host
}

func (h *Host) Assets() *AssetExecutor {
	return &AssetExecutor{host: h}
}

func (a *AssetExecutor) Execute(ctx context.Context, call calls.Call) calls.Result {
	var value json.RawMessage
	for _, action := range call.Actions {
		var err error
		switch action.Kind {
		case calls.ActionTransfer:
			err = a.host.transferNative(call.Predecessor, call.Target, action.Amount)
		case calls.ActionFunctionCall:
			if err = a.host.transferNative(call.Predecessor, call.Target, action.Amount); err == nil {
				value, err = a.call(ctx, call.Predecessor, call.Target, action)
			}
		default:
			err = fmt.Errorf("unsupported action %s on token %s", action.Kind, call.Target)
		}
		if err != nil {
			return calls.FailureResult(call.ID, err)
		}
	}
	return calls.SuccessResult(call.ID, value)
}

func (a *AssetExecutor) call(ctx context.Context, predecessor, token string, action calls.Action) (json.RawMessage, error) {
	ledger := a.host.store.Asset(token)

	switch action.Method {
	case MethodFtTransfer:
		var args FtTransferArgs
		if err := json.Unmarshal(action.Args, &args); err != nil {
			return nil, fmt.Errorf("invalid %s args: %w", action.Method, err)
		}
		return nil, ledger.Transfer(predecessor, args.ReceiverID, args.Amount)
	case MethodFtTransferCall:
		var args FtTransferCallArgs
		if err := json.Unmarshal(action.Args, &args); err != nil {
			return nil, fmt.Errorf("invalid %s args: %w", action.Method, err)
		}
		if err := ledger.Transfer(predecessor, args.ReceiverID, args.Amount); err != nil {
			return nil, err
		}

		used := args.Amount
		v, err := a.host.Vault(args.ReceiverID)
		if err == nil {
			err = v.Deposit(ctx, token, predecessor, args.Amount)
		}
		if err != nil {
			log.Ctx(ctx).Info().Err(err).
				Str("token", token).
				Str("receiver", args.ReceiverID).
				Msg("transfer call rejected, refunding sender")
			if refundErr := ledger.Transfer(args.ReceiverID, predecessor, args.Amount); refundErr != nil {
				return nil, fmt.Errorf("failed to refund %s: %w", predecessor, refundErr)
			}
			used = sdkmath.ZeroUint()
		}
		return json.Marshal(used)
	default:
		return nil, fmt.Errorf("unknown method %s on token %s", action.Method, token)
	}
}
