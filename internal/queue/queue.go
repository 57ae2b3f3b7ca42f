package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/avast/retry-go/v4"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog/log"
	"go.uber.org/zap"

	"github.com/babylonlabs-io/price-vault-factory/internal/calls"
	"github.com/babylonlabs-io/price-vault-factory/internal/config"
	"github.com/babylonlabs-io/price-vault-factory/internal/observability/metrics"
)

const (
	exchangeKind    = "direct"
	contentTypeJSON = "application/json"
	callIDHeader    = "call_id"
)

// QueueManager is the RabbitMQ deferred call facility. Calls are published to
// the call queue, results are consumed from the result queue and handed to the
// registered result handler.
type QueueManager struct {
	cfg    *config.QueueConfig
	logger *zap.Logger
	conn   *amqp.Connection

	publishMu sync.Mutex
	publishCh *amqp.Channel

	handlerMu sync.RWMutex
	handler   calls.ResultHandler
}

func NewQueueManager(cfg *config.QueueConfig, logger *zap.Logger) (*QueueManager, error) {
	conn, err := dial(cfg, logger)
	if err != nil {
		return nil, err
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}
	if err := declareTopology(ch, cfg); err != nil {
		conn.Close()
		return nil, err
	}

	return &QueueManager{
		cfg:       cfg,
		logger:    logger,
		conn:      conn,
		publishCh: ch,
	}, nil
}

func dial(cfg *config.QueueConfig, logger *zap.Logger) (*amqp.Connection, error) {
	url := fmt.Sprintf("amqp://%s:%s@%s", cfg.QueueUser, cfg.QueuePassword, cfg.Url)
	return retry.DoWithData(
		func() (*amqp.Connection, error) {
			return amqp.Dial(url)
		},
		retry.Attempts(cfg.MaxReconnectTimes),
		retry.Delay(cfg.ReconnectDelay),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			logger.Warn("failed to connect to queue, retrying",
				zap.String("address", cfg.Url),
				zap.Uint("attempt", n+1),
				zap.Error(err),
			)
		}),
	)
}

// declareTopology declares the exchange and both durable queues, each bound
// under its own name.
func declareTopology(ch *amqp.Channel, cfg *config.QueueConfig) error {
	if err := ch.ExchangeDeclare(cfg.Exchange, exchangeKind, true, false, false, false, nil); err != nil {
		return fmt.Errorf("failed to declare exchange %s: %w", cfg.Exchange, err)
	}
	for _, name := range []string{cfg.CallQueue, cfg.ResultQueue} {
		if _, err := ch.QueueDeclare(name, true, false, false, false, amqp.Table{
			"x-queue-type": "quorum",
		}); err != nil {
			return fmt.Errorf("failed to declare queue %s: %w", name, err)
		}
		if err := ch.QueueBind(name, name, cfg.Exchange, false, nil); err != nil {
			return fmt.Errorf("failed to bind queue %s: %w", name, err)
		}
	}
	return nil
}

func (qm *QueueManager) OnResult(handler calls.ResultHandler) {
	qm.handlerMu.Lock()
	defer qm.handlerMu.Unlock()
	qm.handler = handler
}

// Submit publishes call to the call queue.
func (qm *QueueManager) Submit(ctx context.Context, call calls.Call) error {
	msg, err := newCallPublishing(call)
	if err != nil {
		return err
	}
	if err := qm.publish(ctx, qm.cfg.CallQueue, msg); err != nil {
		metrics.RecordQueueSendError()
		return err
	}
	qm.logger.Debug("call published",
		zap.String("call_id", call.ID.String()),
		zap.String("target", call.Target),
		zap.String("method", call.Method()),
	)
	return nil
}

func (qm *QueueManager) publish(ctx context.Context, queue string, msg amqp.Publishing) error {
	qm.publishMu.Lock()
	defer qm.publishMu.Unlock()
	return qm.publishCh.PublishWithContext(ctx, qm.cfg.Exchange, queue, true, false, msg)
}

// Start consumes call results until ctx is done or the broker closes the
// delivery channel.
func (qm *QueueManager) Start(ctx context.Context) error {
	return qm.consume(ctx, qm.cfg.ResultQueue, func(ctx context.Context, d amqp.Delivery) bool {
		result, err := decodeResult(d.Body)
		if err != nil {
			qm.logger.Error("dropping malformed call result", zap.String("message_id", d.MessageId), zap.Error(err))
			return false
		}

		qm.handlerMu.RLock()
		handler := qm.handler
		qm.handlerMu.RUnlock()
		if handler == nil {
			qm.logger.Warn("no result handler registered, requeueing", zap.String("call_id", result.CallID.String()))
			return true
		}
		handler(ctx, result)
		return false
	})
}

// ServeCalls consumes the call queue, applies every call with applier and
// publishes its result. A redelivered call gets its stored result published
// again instead of being applied twice.
func (qm *QueueManager) ServeCalls(ctx context.Context, applier calls.Applier) error {
	return qm.consume(ctx, qm.cfg.CallQueue, func(ctx context.Context, d amqp.Delivery) bool {
		return qm.serveCall(ctx, applier, d.Body, func(msg amqp.Publishing) error {
			return qm.publish(ctx, qm.cfg.ResultQueue, msg)
		})
	})
}

func (qm *QueueManager) serveCall(
	ctx context.Context, applier calls.Applier, body []byte, publish func(amqp.Publishing) error,
) (requeue bool) {
	var call calls.Call
	if err := json.Unmarshal(body, &call); err != nil {
		qm.logger.Error("dropping malformed call", zap.Error(err))
		return false
	}

	result, err := applier.Apply(ctx, call)
	if err != nil {
		qm.logger.Error("dropping call without a result",
			zap.String("call_id", call.ID.String()),
			zap.Bool("operator_action_required", errors.Is(err, calls.ErrCallUnresolved)),
			zap.Error(err),
		)
		return false
	}
	msg, err := newResultPublishing(result)
	if err != nil {
		qm.logger.Error("failed to encode call result", zap.String("call_id", call.ID.String()), zap.Error(err))
		return false
	}
	if err := publish(msg); err != nil {
		metrics.RecordQueueSendError()
		qm.logger.Error("failed to publish call result", zap.String("call_id", call.ID.String()), zap.Error(err))
		return true
	}
	return false
}

// consume runs handle for every delivery of queue. A delivery is acked unless
// handle asks for it to be requeued.
func (qm *QueueManager) consume(
	ctx context.Context, queue string, handle func(ctx context.Context, d amqp.Delivery) (requeue bool),
) error {
	ch, err := qm.conn.Channel()
	if err != nil {
		return fmt.Errorf("failed to open channel: %w", err)
	}
	defer ch.Close()

	if err := ch.Qos(qm.cfg.PrefetchCount, 0, false); err != nil {
		return fmt.Errorf("failed to set qos: %w", err)
	}
	deliveries, err := ch.ConsumeWithContext(ctx, queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("failed to consume %s: %w", queue, err)
	}

	log.Ctx(ctx).Info().Str("queue", queue).Msg("Starting queue consumer")
	for {
		select {
		case <-ctx.Done():
			log.Ctx(ctx).Info().Str("queue", queue).Msg("Queue consumer stopped due to context cancellation")
			return nil
		case d, ok := <-deliveries:
			if !ok {
				return errors.New("delivery channel of " + queue + " closed")
			}
			if requeue := handle(ctx, d); requeue {
				if err := d.Nack(false, true); err != nil {
					qm.logger.Error("failed to nack delivery", zap.Error(err))
				}
				continue
			}
			if err := d.Ack(false); err != nil {
				qm.logger.Error("failed to ack delivery", zap.Error(err))
			}
		}
	}
}

// Shutdown gracefully stops the interaction with the queue, ensuring all resources are properly released.
func (qm *QueueManager) Shutdown() {
	log.Info().Msg("Shutting down queue manager")
	if err := qm.publishCh.Close(); err != nil && !errors.Is(err, amqp.ErrClosed) {
		qm.logger.Warn("failed to close channel", zap.Error(err))
	}
	if err := qm.conn.Close(); err != nil && !errors.Is(err, amqp.ErrClosed) {
		qm.logger.Warn("failed to close connection", zap.Error(err))
	}
	if err := qm.logger.Sync(); err != nil {
		log.Debug().Err(err).Msg("failed to sync queue logger")
	}
}
