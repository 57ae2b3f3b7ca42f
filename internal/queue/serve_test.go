package queue

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"
	"time"

	sdkmath "cosmossdk.io/math"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/babylonlabs-io/price-vault-factory/internal/calls"
	"github.com/babylonlabs-io/price-vault-factory/internal/config"
	"github.com/babylonlabs-io/price-vault-factory/internal/vaultstore"
)

type countingExecutor struct {
	executed int
}

func (e *countingExecutor) Execute(ctx context.Context, call calls.Call) calls.Result {
	e.executed++
	return calls.SuccessResult(call.ID, json.RawMessage(`"transferred"`))
}

func setupApplier(t *testing.T) (*countingExecutor, *vaultstore.Store, calls.Applier) {
	t.Helper()
	store, err := vaultstore.Open(&config.VaultStoreConfig{
		Path:        filepath.Join(t.TempDir(), "vaults.db"),
		OpenTimeout: time.Second,
	})
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	executor := &countingExecutor{}
	return executor, store, calls.NewOnce(executor, store)
}

func transferBody(t *testing.T) (calls.Call, []byte) {
	t.Helper()
	call, err := calls.NewFunctionCall(
		"vault.factory.near", "wbtc.near", "ft_transfer",
		map[string]string{"receiver_id": "alice.near", "amount": "10"},
		sdkmath.OneUint(), 10,
	)
	require.NoError(t, err)
	body, err := json.Marshal(call)
	require.NoError(t, err)
	return call, body
}

func TestServeCall(t *testing.T) {
	ctx := context.Background()
	qm := &QueueManager{logger: zap.NewNop()}

	t.Run("redelivery after failed publish replays the result", func(t *testing.T) {
		executor, _, applier := setupApplier(t)
		call, body := transferBody(t)

		var published []amqp.Publishing
		failing := func(msg amqp.Publishing) error { return errors.New("channel closed") }
		working := func(msg amqp.Publishing) error {
			published = append(published, msg)
			return nil
		}

		assert.True(t, qm.serveCall(ctx, applier, body, failing))
		assert.False(t, qm.serveCall(ctx, applier, body, working))
		assert.False(t, qm.serveCall(ctx, applier, body, working))
		assert.Equal(t, 1, executor.executed)

		require.Len(t, published, 2)
		for _, msg := range published {
			result, err := decodeResult(msg.Body)
			require.NoError(t, err)
			assert.Equal(t, call.ID, result.CallID)
			assert.True(t, result.Success)
			assert.JSONEq(t, `"transferred"`, string(result.Value))
		}
	})
	t.Run("unresolved call is acked without a result", func(t *testing.T) {
		executor, store, applier := setupApplier(t)
		call, body := transferBody(t)
		_, err := store.StartCall(call.ID)
		require.NoError(t, err)

		publishes := 0
		publish := func(msg amqp.Publishing) error {
			publishes++
			return nil
		}
		assert.False(t, qm.serveCall(ctx, applier, body, publish))
		assert.Zero(t, executor.executed)
		assert.Zero(t, publishes)
	})
	t.Run("malformed call is dropped", func(t *testing.T) {
		executor, _, applier := setupApplier(t)
		assert.False(t, qm.serveCall(ctx, applier, []byte("{"), func(amqp.Publishing) error { return nil }))
		assert.Zero(t, executor.executed)
	})
}
