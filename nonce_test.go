package main

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRegistryIssueConsumeOnce(t *testing.T) {
	reg := NewStateRegistry(time.Minute)
	defer reg.Stop()

	nonce, err := reg.Issue()
	require.NoError(t, err)
	require.Len(t, nonce, 32) // 16 random bytes, hex encoded

	require.True(t, reg.Consume(nonce))
	require.False(t, reg.Consume(nonce), "replay must fail")
	require.False(t, reg.Consume(nonce))
}

func TestRegistryUnknownNonceRejected(t *testing.T) {
	reg := NewStateRegistry(time.Minute)
	defer reg.Stop()

	require.False(t, reg.Consume("never-issued"))
	require.False(t, reg.Consume(""))
}

func TestRegistryDistinctNoncesSameInstant(t *testing.T) {
	reg := NewStateRegistry(time.Minute)
	defer reg.Stop()

	a, err := reg.Issue()
	require.NoError(t, err)
	b, err := reg.Issue()
	require.NoError(t, err)
	require.NotEqual(t, a, b)
	require.Equal(t, 2, reg.Pending())
}

func TestRegistryExpiredNonceRejected(t *testing.T) {
	reg := NewStateRegistry(20 * time.Millisecond)
	defer reg.Stop()

	nonce, err := reg.Issue()
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return reg.Pending() == 0
	}, time.Second, 5*time.Millisecond)

	require.False(t, reg.Consume(nonce), "expired nonce must be unconsumable")
}

func TestRegistryConsumeStopsExpiry(t *testing.T) {
	reg := NewStateRegistry(20 * time.Millisecond)
	defer reg.Stop()

	nonce, err := reg.Issue()
	require.NoError(t, err)
	require.True(t, reg.Consume(nonce))

	// Let the expiry deadline pass; the stopped (or already-fired) timer
	// must neither panic nor bring the nonce back.
	time.Sleep(50 * time.Millisecond)
	require.False(t, reg.Consume(nonce))
	require.Equal(t, 0, reg.Pending())
}

func TestRegistryConcurrentConsumeSingleWinner(t *testing.T) {
	reg := NewStateRegistry(time.Minute)
	defer reg.Stop()

	nonce, err := reg.Issue()
	require.NoError(t, err)

	const attempts = 32
	var wg sync.WaitGroup
	results := make(chan bool, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- reg.Consume(nonce)
		}()
	}
	wg.Wait()
	close(results)

	wins := 0
	for ok := range results {
		if ok {
			wins++
		}
	}
	require.Equal(t, 1, wins, "exactly one consume may succeed")
}

func TestRegistryStopDropsPending(t *testing.T) {
	reg := NewStateRegistry(time.Minute)

	nonce, err := reg.Issue()
	require.NoError(t, err)

	reg.Stop()
	require.False(t, reg.Consume(nonce))
	require.Equal(t, 0, reg.Pending())
}
