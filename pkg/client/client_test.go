package client

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

type TestLogger struct{}

func (l *TestLogger) LogLevelf(level int, format string, args ...interface{}) {}
func (l *TestLogger) Debugf(format string, args ...interface{})               {}
func (l *TestLogger) Infof(format string, args ...interface{})                {}
func (l *TestLogger) Warnf(format string, args ...interface{})                {}
func (l *TestLogger) Errorf(format string, args ...interface{})               {}

func TestStartFunc(t *testing.T) {
	called := false
	var client Client = StartFunc(func(ctx context.Context) error {
		called = true
		return errors.New("login rejected")
	})

	err := client.Start(context.Background())

	assert.True(t, called)
	assert.EqualError(t, err, "login rejected")
}

func TestIdleClient(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	client := NewIdleClient("test-bot", &TestLogger{})

	assert.NoError(t, client.Start(ctx))
}
