package vault

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"sync"
	"time"

	sdkmath "cosmossdk.io/math"
	"github.com/rs/zerolog/log"

	"github.com/babylonlabs-io/price-vault-factory/internal/calls"
	"github.com/babylonlabs-io/price-vault-factory/internal/types"
	"github.com/babylonlabs-io/price-vault-factory/internal/vaultstore"
)

type HostConfig struct {
	MinStorageDeposit sdkmath.Uint
	TransferGas       uint64
	Now               func() time.Time
}

// Host runs every vault instance stored in a vaultstore.Store. It is also the
// executor applying deployment and vault calls in-process.
type Host struct {
	store *vaultstore.Store
	cfg   HostConfig

	mu         sync.RWMutex
	dispatcher Dispatcher
	vaults     map[string]*Vault
}

func NewHost(store *vaultstore.Store, cfg HostConfig) *Host {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.TransferGas == 0 {
		cfg.TransferGas = DefaultTransferGas
	}
	return &Host{
		store:  store,
		cfg:    cfg,
		vaults: make(map[string]*Vault),
	}
}

// Attach loads every stored vault and resumes their pending transfers through
// dispatcher. It must be called once before the host serves requests.
func (h *Host) Attach(ctx context.Context, dispatcher Dispatcher) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.dispatcher = dispatcher
	records, err := h.store.ListVaults()
	if err != nil {
		return fmt.Errorf("failed to list hosted vaults: %w", err)
	}
	for _, record := range records {
		v := h.newVault(record)
		if err := v.resumeTransfers(ctx); err != nil {
			return err
		}
		h.vaults[record.AccountID] = v
	}

	log.Ctx(ctx).Info().Int("vaults", len(h.vaults)).Msg("vault host attached")
	return nil
}

func (h *Host) newVault(record *vaultstore.VaultRecord) *Vault {
	return New(
		record,
		h.store,
		h.store.Ledger(record.AccountID, h.cfg.MinStorageDeposit),
		h.store.Journal(record.AccountID),
		h.dispatcher,
		WithClock(h.cfg.Now),
		WithTransferGas(h.cfg.TransferGas),
	)
}

func (h *Host) Vault(accountID string) (*Vault, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	v, ok := h.vaults[accountID]
	if !ok {
		return nil, types.NewErrorWithMsg(
			http.StatusNotFound, types.NotFound,
			fmt.Sprintf("vault %s is not hosted", accountID),
		)
	}
	return v, nil
}

// Vaults returns the hosted vaults ordered by account id.
func (h *Host) Vaults() []*Vault {
	h.mu.RLock()
	defer h.mu.RUnlock()

	vaults := make([]*Vault, 0, len(h.vaults))
	for _, v := range h.vaults {
		vaults = append(vaults, v)
	}
	sort.Slice(vaults, func(i, j int) bool {
		return vaults[i].accountID < vaults[j].accountID
	})
	return vaults
}

// Execute applies the actions of call in order. Actions applied before a
// failing one are kept.
func (h *Host) Execute(ctx context.Context, call calls.Call) calls.Result {
	var value json.RawMessage
	for i, action := range call.Actions {
		var err error
		switch action.Kind {
		case calls.ActionCreateAccount:
			err = h.store.CreateAccount(call.Target)
		case calls.ActionTransfer:
			err = h.transferNative(call.Predecessor, call.Target, action.Amount)
		case calls.ActionDeployCode:
			err = h.store.InstallCode(call.Target, action.CodeSize)
		case calls.ActionFunctionCall:
			if err = h.transferNative(call.Predecessor, call.Target, action.Amount); err == nil {
				value, err = h.call(ctx, call.Predecessor, call.Target, action)
			}
		default:
			err = fmt.Errorf("unsupported action %s", action.Kind)
		}

		if err != nil {
			log.Ctx(ctx).Warn().Err(err).
				Str("call_id", call.ID.String()).
				Str("target", call.Target).
				Int("action", i).
				Stringer("kind", action.Kind).
				Msg("call action failed")
			return calls.FailureResult(call.ID, err)
		}
	}
	return calls.SuccessResult(call.ID, value)
}

func (h *Host) call(ctx context.Context, predecessor, target string, action calls.Action) (json.RawMessage, error) {
	if action.Method == MethodNew {
		return nil, h.initVault(ctx, predecessor, target, action.Args)
	}

	v, err := h.Vault(target)
	if err != nil {
		return nil, err
	}

	switch action.Method {
	case MethodFtOnTransfer:
		var args FtOnTransferArgs
		if err := json.Unmarshal(action.Args, &args); err != nil {
			return nil, fmt.Errorf("invalid %s args: %w", action.Method, err)
		}
		if err := v.Deposit(ctx, predecessor, args.SenderID, args.Amount); err != nil {
			return nil, err
		}
		// nothing of the transferred amount is returned to the sender
		return json.Marshal(sdkmath.ZeroUint())
	case MethodOracleOnCall:
		var args OracleOnCallArgs
		if err := json.Unmarshal(action.Args, &args); err != nil {
			return nil, fmt.Errorf("invalid %s args: %w", action.Method, err)
		}
		status, err := v.OnPriceUpdate(ctx, predecessor, args.Data)
		if err != nil {
			return nil, err
		}
		return json.Marshal(status)
	case MethodUnlock:
		return nil, v.Unlock(ctx, predecessor)
	case MethodUnwrap:
		pending, err := v.BeginWithdraw(ctx, predecessor)
		if err != nil {
			return nil, err
		}
		return json.Marshal(pending)
	default:
		return nil, fmt.Errorf("unknown method %s on %s", action.Method, target)
	}
}

func (h *Host) initVault(ctx context.Context, predecessor, target string, payload json.RawMessage) error {
	var args InitArgs
	if err := json.Unmarshal(payload, &args); err != nil {
		return fmt.Errorf("invalid %s args: %w", MethodNew, err)
	}
	if err := args.Config.Validate(); err != nil {
		return fmt.Errorf("invalid vault config: %w", err)
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.dispatcher == nil {
		return errors.New("vault host is not attached")
	}
	if err := h.store.InitVault(target, args.Config, types.LockedStatus()); err != nil {
		return err
	}
	record, err := h.store.LoadVault(target)
	if err != nil {
		return err
	}
	h.vaults[target] = h.newVault(record)

	log.Ctx(ctx).Info().
		Str("vault", target).
		Str("factory", predecessor).
		Str("asset", args.Config.AssetID).
		Stringer("trigger", args.Config.MinimumUnlockPrice).
		Msg("vault initialized")
	return nil
}

// transferNative moves attached value. Accounts not hosted here have no
// tracked native balance and are treated as external sources.
func (h *Host) transferNative(from, to string, amount *sdkmath.Uint) error {
	if amount == nil || amount.IsZero() {
		return nil
	}
	hosted, err := h.store.AccountExists(from)
	if err != nil {
		return err
	}
	if hosted {
		return h.store.TransferNative(from, to, *amount)
	}
	return h.store.CreditNative(to, *amount)
}
