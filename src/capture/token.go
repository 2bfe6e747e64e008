package capture

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Token is a one-time screen-capture authorization. It is opaque to everything
// except the Coordinator, which consumes it when a session starts. The issuer
// may revoke it at any time.
type Token struct {
	id       string
	issuedAt time.Time

	mu       sync.Mutex
	used     bool
	revoked  bool
	nextID   int
	watchers map[int]func()
}

func NewToken() *Token {
	return &Token{
		id:       uuid.NewString(),
		issuedAt: time.Now(),
		watchers: make(map[int]func()),
	}
}

func (t *Token) ID() string          { return t.id }
func (t *Token) IssuedAt() time.Time { return t.issuedAt }

func (t *Token) Revoked() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.revoked
}

// Revoke invalidates the token and notifies every registered watcher once.
// Watchers run on the caller's goroutine, outside the token lock.
func (t *Token) Revoke() {
	t.mu.Lock()
	if t.revoked {
		t.mu.Unlock()
		return
	}
	t.revoked = true
	fns := make([]func(), 0, len(t.watchers))
	for _, fn := range t.watchers {
		fns = append(fns, fn)
	}
	t.watchers = nil
	t.mu.Unlock()

	for _, fn := range fns {
		fn()
	}
}

func (t *Token) consume() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.revoked {
		return errAuthorization("token revoked")
	}
	if t.used {
		return errAuthorization("token already used")
	}
	t.used = true
	return nil
}

// watch registers fn to run on revocation. If the token is already revoked
// fn is not registered and watch reports false.
func (t *Token) watch(fn func()) (unwatch func(), ok bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.revoked {
		return func() {}, false
	}
	id := t.nextID
	t.nextID++
	t.watchers[id] = fn
	return func() {
		t.mu.Lock()
		defer t.mu.Unlock()
		delete(t.watchers, id)
	}, true
}
