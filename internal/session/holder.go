package session

import (
	"errors"
	"strings"
	"sync"

	"github.com/sorynturda/link-sharing/types"
)

// ErrEmptyToken is returned when saving a blank token.
var ErrEmptyToken = errors.New("empty token")

// Holder owns the session token slot. It is passed explicitly to every
// component that needs the token; only login/registration write it and only
// logout or a failed verification clear it.
type Holder struct {
	store Store

	mu          sync.Mutex
	token       string
	loaded      bool
	nextID      int
	subscribers map[int]func(token string)
}

func NewHolder(store Store) *Holder {
	return &Holder{
		store:       store,
		subscribers: make(map[int]func(string)),
	}
}

// Get returns the stored token, reading the backing store once.
func (h *Holder) Get() (string, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if !h.loaded {
		token, err := h.store.Load()
		if err != nil {
			return "", false
		}
		h.token = token
		h.loaded = true
	}
	return h.token, h.token != ""
}

// Set persists token and notifies subscribers.
func (h *Holder) Set(token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return ErrEmptyToken
	}
	if err := h.store.Save(token); err != nil {
		return err
	}
	h.update(token)
	return nil
}

// Clear removes the token and notifies subscribers with "".
func (h *Holder) Clear() error {
	if err := h.store.Clear(); err != nil {
		return err
	}
	h.update("")
	return nil
}

// Claims decodes the current token payload.
func (h *Holder) Claims() (types.Claims, bool) {
	token, ok := h.Get()
	if !ok {
		return types.Claims{}, false
	}
	return DecodeClaims(token)
}

// Subscribe registers fn for token changes and returns a function that
// removes it.
func (h *Holder) Subscribe(fn func(token string)) func() {
	h.mu.Lock()
	defer h.mu.Unlock()

	id := h.nextID
	h.nextID++
	h.subscribers[id] = fn
	return func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		delete(h.subscribers, id)
	}
}

func (h *Holder) update(token string) {
	h.mu.Lock()
	h.token = token
	h.loaded = true
	subscribers := make([]func(string), 0, len(h.subscribers))
	for _, fn := range h.subscribers {
		subscribers = append(subscribers, fn)
	}
	h.mu.Unlock()

	for _, fn := range subscribers {
		fn(token)
	}
}
