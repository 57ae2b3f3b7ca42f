package e2etest

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	sdkmath "cosmossdk.io/math"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/babylonlabs-io/price-vault-factory/e2etest/container"
	"github.com/babylonlabs-io/price-vault-factory/internal/api"
	"github.com/babylonlabs-io/price-vault-factory/internal/api/handlers"
	"github.com/babylonlabs-io/price-vault-factory/internal/calls"
	"github.com/babylonlabs-io/price-vault-factory/internal/config"
	"github.com/babylonlabs-io/price-vault-factory/internal/db"
	"github.com/babylonlabs-io/price-vault-factory/internal/db/model"
	"github.com/babylonlabs-io/price-vault-factory/internal/queue"
	"github.com/babylonlabs-io/price-vault-factory/internal/services"
	"github.com/babylonlabs-io/price-vault-factory/internal/vault"
	"github.com/babylonlabs-io/price-vault-factory/internal/vaultstore"
	"github.com/babylonlabs-io/price-vault-factory/pkg"
)

var (
	eventuallyWaitTimeOut = 40 * time.Second
	eventuallyPollTime    = 500 * time.Millisecond
)

const (
	factoryAccount = "factory.near"
	ownerAccount   = "owner.near"
)

// TestManager runs the whole factory against dockerized mongo and rabbitmq,
// with deferred calls travelling through the broker.
type TestManager struct {
	Config   *config.Config
	DbClient *db.Database
	Store    *vaultstore.Store
	Queue    *queue.QueueManager
	Server   *httptest.Server

	manager *container.Manager
	cancel  context.CancelFunc
}

func DefaultFactoryConfig(t *testing.T) *config.Config {
	cfg := &config.Config{
		Db: config.DbConfig{
			Username: container.MongoUsername,
			Password: container.MongoPassword,
			DbName:   pkg.UniqueName("vault-factory-e2e", 4),
		},
		VaultStore: config.VaultStoreConfig{
			Path: filepath.Join(t.TempDir(), "vaults.db"),
		},
		Factory: config.FactoryConfig{
			AccountID:           factoryAccount,
			OwnerID:             ownerAccount,
			StoragePricePerByte: "10",
			CodeSize:            1_000,
		},
		Calls: config.CallsConfig{Transport: config.CallsTransportAmqp},
		Queue: &config.QueueConfig{
			QueueUser:      container.QueueUser,
			QueuePassword:  container.QueuePassword,
			ReconnectDelay: time.Second,
		},
		Server: config.ServerConfig{
			Host:         "127.0.0.1",
			Port:         8080,
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 5 * time.Second,
			IdleTimeout:  5 * time.Second,
		},
		Metrics: config.MetricsConfig{Host: "127.0.0.1", Port: 0},
	}
	return cfg
}

// StartManager creates a test manager
func StartManager(t *testing.T) *TestManager {
	manager, err := container.NewManager(t)
	require.NoError(t, err)

	cfg := DefaultFactoryConfig(t)
	cfg.Db.Address = manager.RunMongoResource(t)
	cfg.Queue.Url = manager.RunRabbitMQResource(t)
	require.NoError(t, cfg.Validate())

	ctx, cancel := context.WithCancel(context.Background())

	// mongo may still be starting up
	require.Eventually(t, func() bool {
		return model.Setup(ctx, &cfg.Db) == nil
	}, eventuallyWaitTimeOut, eventuallyPollTime)

	dbClient, err := db.New(ctx, cfg.Db)
	require.NoError(t, err)

	store, err := vaultstore.Open(&cfg.VaultStore)
	require.NoError(t, err)

	host := vault.NewHost(store, vault.HostConfig{
		MinStorageDeposit: sdkmath.NewUint(cfg.Factory.RegistrationBytes).Mul(cfg.Factory.PricePerByte()),
		TransferGas:       cfg.Factory.TransferGas,
	})
	router := calls.NewRouter().
		HandleSuffix(factoryAccount, host).
		HandleDefault(host.Assets())

	applier := calls.NewOnce(router, store)
	qm, err := queue.NewQueueManager(cfg.Queue, zap.NewNop())
	require.NoError(t, err)
	go func() {
		_ = qm.Start(ctx)
	}()
	go func() {
		_ = qm.ServeCalls(ctx, applier)
	}()

	dispatcher := calls.NewDispatcher(qm)
	require.NoError(t, host.Attach(ctx, dispatcher))

	service := services.NewService(cfg, db.NewDbWithMetrics(dbClient), host, dispatcher)
	server := httptest.NewServer(api.New(&cfg.Server, service).Handler())

	return &TestManager{
		Config:   cfg,
		DbClient: dbClient,
		Store:    store,
		Queue:    qm,
		Server:   server,
		manager:  manager,
		cancel:   cancel,
	}
}

func (tm *TestManager) Stop(t *testing.T) {
	tm.Server.Close()
	tm.cancel()
	tm.Queue.Shutdown()
	require.NoError(t, tm.Store.Close())
	require.NoError(t, tm.manager.ClearResources())
}

// Do sends a request on behalf of caller and decodes the data field of the
// response into out when out is not nil.
func (tm *TestManager) Do(t *testing.T, method, path, caller, body string, out any) int {
	t.Helper()
	req, err := http.NewRequest(method, tm.Server.URL+path, strings.NewReader(body))
	require.NoError(t, err)
	if caller != "" {
		req.Header.Set(handlers.CallerHeader, caller)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := tm.Server.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if out != nil && resp.StatusCode < http.StatusBadRequest {
		var wrapped struct {
			Data json.RawMessage `json:"data"`
		}
		require.NoError(t, json.Unmarshal(payload, &wrapped), string(payload))
		require.NoError(t, json.Unmarshal(wrapped.Data, out), string(payload))
	}
	return resp.StatusCode
}
