package main

import (
	"crypto/rand"
	"encoding/hex"
	"sync"
	"time"
)

// DefaultStateTTL bounds how long an authorization attempt may sit between
// the redirect and the callback.
const DefaultStateTTL = 5 * time.Minute

// StateRegistry issues one-time state nonces for the OAuth redirect and
// validates them on callback. A nonce is consumable exactly once; after its
// TTL it silently disappears. Consume and expiry both remove the entry under
// the same mutex, so the two can never race into a double removal or a
// resurrected nonce.
type StateRegistry struct {
	mu      sync.Mutex
	ttl     time.Duration
	pending map[string]*time.Timer
}

func NewStateRegistry(ttl time.Duration) *StateRegistry {
	if ttl <= 0 {
		ttl = DefaultStateTTL
	}
	return &StateRegistry{
		ttl:     ttl,
		pending: make(map[string]*time.Timer),
	}
}

// Issue returns a new crypto-random nonce and schedules its expiry. The
// token carries 128 bits of entropy, so collisions among pending nonces are
// not a practical concern; the loop guards against them anyway.
func (r *StateRegistry) Issue() (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var nonce string
	for {
		b := make([]byte, 16)
		if _, err := rand.Read(b); err != nil {
			return "", err
		}
		nonce = hex.EncodeToString(b)
		if _, exists := r.pending[nonce]; !exists {
			break
		}
	}

	r.pending[nonce] = time.AfterFunc(r.ttl, func() {
		r.expire(nonce)
	})
	return nonce, nil
}

// Consume removes the nonce and reports whether it was pending. Unknown,
// expired and already-consumed nonces are indistinguishable: all return
// false.
func (r *StateRegistry) Consume(nonce string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	timer, ok := r.pending[nonce]
	if !ok {
		return false
	}
	delete(r.pending, nonce)
	timer.Stop()
	return true
}

// expire is the timer callback. If Consume won the race and already removed
// the entry, this is a no-op.
func (r *StateRegistry) expire(nonce string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.pending, nonce)
}

// Pending reports the number of outstanding nonces.
func (r *StateRegistry) Pending() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.pending)
}

// Stop cancels all outstanding expiry timers. Pending nonces are dropped;
// nothing is persisted across restarts.
func (r *StateRegistry) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for nonce, timer := range r.pending {
		timer.Stop()
		delete(r.pending, nonce)
	}
}
