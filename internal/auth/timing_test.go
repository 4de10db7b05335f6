package auth_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/podguard/podguard/internal/auth"
)

func TestTimingDelay_SuccessReturnsImmediately(t *testing.T) {
	td := auth.NewTimingDelay(auth.TimingConfig{BaseDelayMs: 200, RandomDelayMs: 100})

	start := time.Now()
	td.Wait(true)
	assert.Less(t, time.Since(start), 50*time.Millisecond)
}

func TestTimingDelay_FailureWaitsAtLeastBase(t *testing.T) {
	td := auth.NewTimingDelay(auth.TimingConfig{BaseDelayMs: 50, RandomDelayMs: 50})

	start := time.Now()
	td.Wait(false)
	elapsed := time.Since(start)

	assert.GreaterOrEqual(t, elapsed, 50*time.Millisecond)
	assert.Less(t, elapsed, 200*time.Millisecond)
}

func TestTimingDelay_ZeroConfigIsNoop(t *testing.T) {
	td := auth.NewTimingDelay(auth.TimingConfig{})

	start := time.Now()
	td.Wait(false)
	assert.Less(t, time.Since(start), 50*time.Millisecond)
}
