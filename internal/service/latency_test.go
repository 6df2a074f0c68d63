package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLatencyWait(t *testing.T) {
	start := time.Now()
	assert.NoError(t, Latency{Scale: 0.01}.Wait(context.Background(), 500*time.Millisecond))
	assert.GreaterOrEqual(t, time.Since(start), 5*time.Millisecond)
}

func TestLatencyDisabled(t *testing.T) {
	start := time.Now()
	assert.NoError(t, NoLatency.Wait(context.Background(), time.Hour))
	assert.Less(t, time.Since(start), time.Second)
}

func TestLatencyCancelled(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	err := Latency{Scale: 1}.Wait(ctx, time.Hour)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestErrorResult(t *testing.T) {
	assert.Equal(t, "ok", errorResult(nil))
	assert.Equal(t, "not_found", errorResult(fmt.Errorf("wrapped: %w", ErrNotFound)))
	assert.Equal(t, "invalid", errorResult(validationErrorf("bad")))
	assert.Equal(t, "conflict", errorResult(conflictErrorf("dup")))
	assert.Equal(t, "error", errorResult(errors.New("boom")))
}
