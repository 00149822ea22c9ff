package main

import (
	"testing"

	"ticket-fulfillment/config"

	"github.com/stretchr/testify/assert"
)

func TestRootCommand(t *testing.T) {
	root := newRootCmd()

	names := make([]string, 0, len(root.Commands()))
	for _, cmd := range root.Commands() {
		names = append(names, cmd.Name())
	}
	assert.ElementsMatch(t, []string{"orders", "inventory", "migrate"}, names)
}

func TestRetryPolicy(t *testing.T) {
	t.Run("Success - uses configured values", func(t *testing.T) {
		cfg := config.LoadTestConfig()
		policy := retryPolicy(cfg)

		assert.Equal(t, cfg.Retry.Attempts, policy.Attempts)
		assert.Equal(t, cfg.Retry.Delay, policy.Delay)
		assert.NotNil(t, policy.Retryable)
	})

	t.Run("Success - falls back to defaults", func(t *testing.T) {
		policy := retryPolicy(&config.Config{})

		assert.Equal(t, 3, policy.Attempts)
		assert.NotZero(t, policy.Delay)
	})
}
