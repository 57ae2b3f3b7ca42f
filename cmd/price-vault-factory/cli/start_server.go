package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	sdkmath "cosmossdk.io/math"
	"github.com/rs/zerolog/log"
	"github.com/sourcegraph/conc/pool"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/babylonlabs-io/price-vault-factory/internal/api"
	"github.com/babylonlabs-io/price-vault-factory/internal/calls"
	"github.com/babylonlabs-io/price-vault-factory/internal/config"
	"github.com/babylonlabs-io/price-vault-factory/internal/db"
	dbmodel "github.com/babylonlabs-io/price-vault-factory/internal/db/model"
	"github.com/babylonlabs-io/price-vault-factory/internal/observability/metrics"
	"github.com/babylonlabs-io/price-vault-factory/internal/observability/tracing"
	"github.com/babylonlabs-io/price-vault-factory/internal/queue"
	"github.com/babylonlabs-io/price-vault-factory/internal/services"
	"github.com/babylonlabs-io/price-vault-factory/internal/vault"
	"github.com/babylonlabs-io/price-vault-factory/internal/vaultstore"
)

const shutdownTimeout = 10 * time.Second

func StartServerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "start-server",
		Short: "Starts the price vault factory server",
		Args:  cobra.ExactArgs(0),
		RunE:  startServer,
	}

	return cmd
}

func startServer(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ctx = tracing.InjectTraceID(ctx)
	log := log.Ctx(ctx)

	// load config
	cfgPath := GetConfigPath()
	cfg, err := config.New(cfgPath)
	if err != nil {
		log.Fatal().Err(err).Msg(fmt.Sprintf("error while loading config file: %s", cfgPath))
	}

	err = dbmodel.Setup(ctx, &cfg.Db)
	if err != nil {
		log.Fatal().Err(err).Msg("error while setting up vault factory db model")
	}

	// create new db client
	var dbClient db.DbInterface
	dbClient, err = db.New(ctx, cfg.Db)
	if err != nil {
		log.Fatal().Err(err).Msg("error while creating db client")
	}
	dbClient = db.NewDbWithMetrics(dbClient)

	store, err := vaultstore.Open(&cfg.VaultStore)
	if err != nil {
		log.Fatal().Err(err).Msg("error while opening vault store")
	}
	defer store.Close()

	host := vault.NewHost(store, vault.HostConfig{
		MinStorageDeposit: sdkmath.NewUint(cfg.Factory.RegistrationBytes).Mul(cfg.Factory.PricePerByte()),
		TransferGas:       cfg.Factory.TransferGas,
	})
	router := calls.NewRouter().
		HandleSuffix(cfg.Factory.AccountID, host).
		HandleDefault(host.Assets())
	applier := calls.NewOnce(router, store)

	// the first failing component stops the others
	p := pool.New().WithContext(ctx).WithCancelOnError().WithFirstError()

	var facility calls.Facility
	switch cfg.Calls.Transport {
	case config.CallsTransportAmqp:
		// Create a basic zap logger
		zapLogger, err := zap.NewProduction()
		if err != nil {
			log.Fatal().Err(err).Msg("error while creating zap logger")
		}
		qm, err := queue.NewQueueManager(cfg.Queue, zapLogger)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to initialize queue manager")
		}
		defer qm.Shutdown()

		p.Go(qm.Start)
		p.Go(func(ctx context.Context) error {
			return qm.ServeCalls(ctx, applier)
		})
		facility = qm
	default:
		loopback := calls.NewLoopback(applier, cfg.Calls.QueueSize)
		p.Go(func(ctx context.Context) error {
			loopback.Start(ctx)
			return nil
		})
		facility = loopback
	}

	dispatcher := calls.NewDispatcher(facility)
	if err := host.Attach(ctx, dispatcher); err != nil {
		log.Fatal().Err(err).Msg("error while attaching vault host")
	}

	service := services.NewService(cfg, dbClient, host, dispatcher)

	// initialize metrics with the metrics port from config
	metricsPort := cfg.Metrics.GetMetricsPort()
	metrics.Init(metricsPort)

	service.StartStatsPoller(ctx)

	server := api.New(&cfg.Server, service)
	p.Go(func(ctx context.Context) error {
		return server.Start()
	})
	p.Go(func(ctx context.Context) error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := p.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	log.Info().Msg("price vault factory stopped")
	return nil
}
