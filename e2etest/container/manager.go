package container

import (
	"fmt"
	"testing"
	"time"

	"github.com/ory/dockertest/v3"
	"github.com/ory/dockertest/v3/docker"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/require"

	"github.com/babylonlabs-io/price-vault-factory/pkg"
)

const (
	MongoUsername = "user"
	MongoPassword = "password"
	QueueUser     = "user"
	QueuePassword = "password"

	containerMaxWait = 60 * time.Second
)

// Manager is a wrapper around all Docker instances, and the Docker API.
// It provides utilities to run and interact with all Docker containers used within e2e testing.
type Manager struct {
	cfg       ImageConfig
	pool      *dockertest.Pool
	resources map[string]*dockertest.Resource
	prefix    string
}

// NewManager creates a new Manager instance and initializes
// all Docker specific utilities. Returns an error if initialization fails.
func NewManager(t *testing.T) (*Manager, error) {
	pool, err := dockertest.NewPool("")
	if err != nil {
		return nil, err
	}
	pool.MaxWait = containerMaxWait

	// container names are unique per docker host and old containers may still run
	return &Manager{
		cfg:       NewImageConfig(),
		pool:      pool,
		resources: make(map[string]*dockertest.Resource),
		prefix:    pkg.UniqueName("e2e", 4),
	}, nil
}

func (m *Manager) run(t *testing.T, name string, opts *dockertest.RunOptions) *dockertest.Resource {
	t.Helper()
	opts.Name = fmt.Sprintf("%s-%s", m.prefix, name)
	resource, err := m.pool.RunWithOptions(opts, func(config *docker.HostConfig) {
		config.AutoRemove = true
		config.RestartPolicy = docker.RestartPolicy{
			Name: "no",
		}
	})
	require.NoError(t, err)
	m.resources[name] = resource
	return resource
}

// RunMongoResource starts mongo and returns its connection uri once it accepts
// connections.
func (m *Manager) RunMongoResource(t *testing.T) string {
	resource := m.run(t, "mongo", &dockertest.RunOptions{
		Repository: m.cfg.MongoRepository,
		Tag:        m.cfg.MongoVersion,
		Env: []string{
			"MONGO_INITDB_ROOT_USERNAME=" + MongoUsername,
			"MONGO_INITDB_ROOT_PASSWORD=" + MongoPassword,
		},
	})
	return fmt.Sprintf("mongodb://localhost:%s/", resource.GetPort("27017/tcp"))
}

// RunRabbitMQResource starts the broker and returns its host:port once it
// accepts amqp connections.
func (m *Manager) RunRabbitMQResource(t *testing.T) string {
	resource := m.run(t, "rabbitmq", &dockertest.RunOptions{
		Repository: m.cfg.RabbitMQRepository,
		Tag:        m.cfg.RabbitMQVersion,
		Env: []string{
			"RABBITMQ_DEFAULT_USER=" + QueueUser,
			"RABBITMQ_DEFAULT_PASS=" + QueuePassword,
		},
	})
	addr := fmt.Sprintf("localhost:%s", resource.GetPort("5672/tcp"))

	err := m.pool.Retry(func() error {
		conn, err := amqp.Dial(fmt.Sprintf("amqp://%s:%s@%s", QueueUser, QueuePassword, addr))
		if err != nil {
			return err
		}
		return conn.Close()
	})
	require.NoError(t, err)
	return addr
}

// ClearResources removes all outstanding Docker resources created by the Manager.
func (m *Manager) ClearResources() error {
	for _, resource := range m.resources {
		if err := m.pool.Purge(resource); err != nil {
			return err
		}
	}
	return nil
}
