package utils

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestShutdownManager(t *testing.T) {
	t.Run("drains in reverse registration order", func(t *testing.T) {
		_, sm := NewShutdownManager(context.Background())

		var order []string
		for _, name := range []string{"mongodb", "redis", "http server"} {
			name := name
			sm.Register(name, func(context.Context) error {
				order = append(order, name)
				return nil
			})
		}

		sm.Shutdown(context.Background())
		assert.Equal(t, []string{"http server", "redis", "mongodb"}, order)
	})

	t.Run("a failing step does not stop the drain", func(t *testing.T) {
		_, sm := NewShutdownManager(context.Background())

		var order []string
		sm.Register("mongodb", func(context.Context) error {
			order = append(order, "mongodb")
			return nil
		})
		sm.Register("redis", func(context.Context) error {
			order = append(order, "redis")
			return errors.New("connection reset")
		})

		sm.Shutdown(context.Background())
		assert.Equal(t, []string{"redis", "mongodb"}, order)
	})

	t.Run("cancels the base context", func(t *testing.T) {
		ctx, sm := NewShutdownManager(context.Background())
		sm.cancelFunc()
		assert.Error(t, ctx.Err())
	})
}
