package client

import (
	"context"

	"github.com/core-tools/hsu-bot/pkg/logging"
)

// Client is the core bot connection. Start returns once the connection is up
// and keeps it running in the background until ctx is cancelled. An error
// from Start is fatal to the process.
type Client interface {
	Start(ctx context.Context) error
}

// StartFunc adapts a plain function to Client
type StartFunc func(ctx context.Context) error

func (f StartFunc) Start(ctx context.Context) error {
	return f(ctx)
}

// idleClient stands in for a real protocol client: it connects to nothing and
// stays "connected" until the process shuts down.
type idleClient struct {
	name   string
	logger logging.Logger
}

func NewIdleClient(name string, logger logging.Logger) Client {
	return &idleClient{
		name:   name,
		logger: logger,
	}
}

func (c *idleClient) Start(ctx context.Context) error {
	c.logger.Infof("Client started, name: %s", c.name)

	go func() {
		<-ctx.Done()
		c.logger.Infof("Client disconnected, name: %s", c.name)
	}()

	return nil
}
