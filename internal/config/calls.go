package config

import "fmt"

const (
	CallsTransportLoopback = "loopback"
	CallsTransportAmqp     = "amqp"
)

type CallsConfig struct {
	// Transport selects the deferred call facility: loopback executes calls
	// in-process against the local vault host, amqp hands them to an external host
	Transport string `mapstructure:"transport"`
	// QueueSize bounds the loopback facility backlog
	QueueSize int `mapstructure:"queue-size"`
}

func (cfg *CallsConfig) Validate() error {
	switch cfg.Transport {
	case CallsTransportLoopback, CallsTransportAmqp:
	case "":
		cfg.Transport = CallsTransportLoopback
	default:
		return fmt.Errorf("unsupported calls transport: %s", cfg.Transport)
	}

	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 1024
	}

	return nil
}
