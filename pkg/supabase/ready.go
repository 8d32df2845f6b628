package supabase

import (
	"context"
	"fmt"
	"time"
)

// WaitReady polls the auth health endpoint until it answers, at most attempts
// times with delay between tries.
func (c *Client) WaitReady(ctx context.Context, attempts int, delay time.Duration) error {
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for i := 0; i < attempts; i++ {
		if lastErr = c.Auth().Health(ctx); lastErr == nil {
			return nil
		}
		if i == attempts-1 {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
	return fmt.Errorf("supabase not ready after %d attempts: %w", attempts, lastErr)
}
