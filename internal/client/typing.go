package client

import (
	"sync"
	"time"
)

// DefaultTypingTimeout is how long after the last keystroke the typing-false
// signal is emitted. This is the only timer in the system and it lives on
// the client; the server never expires typing state.
const DefaultTypingTimeout = 2 * time.Second

// Typist drives the typing signal for the local user. Touch on every
// keystroke emits typing-true once and resets (not accumulates) the
// inactivity timer; when the timer fires, one final typing-false is emitted
// without further caller action.
type Typist struct {
	emit    func(chatID string, isTyping bool)
	timeout time.Duration

	mu     sync.Mutex
	timers map[string]*time.Timer // chatID -> inactivity timer
	active map[string]bool
}

func NewTypist(store *Store) *Typist {
	return newTypist(store.SendTyping, DefaultTypingTimeout)
}

func newTypist(emit func(chatID string, isTyping bool), timeout time.Duration) *Typist {
	return &Typist{
		emit:    emit,
		timeout: timeout,
		timers:  make(map[string]*time.Timer),
		active:  make(map[string]bool),
	}
}

// Touch records a keystroke in chatID.
func (t *Typist) Touch(chatID string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.active[chatID] {
		t.active[chatID] = true
		t.emit(chatID, true)
	}

	if timer, ok := t.timers[chatID]; ok {
		timer.Stop()
	}
	t.timers[chatID] = time.AfterFunc(t.timeout, func() {
		t.expire(chatID)
	})
}

func (t *Typist) expire(chatID string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.active[chatID] {
		return
	}
	t.active[chatID] = false
	delete(t.timers, chatID)
	t.emit(chatID, false)
}

// Stop clears typing state immediately, emitting typing-false if the local
// user was typing. Called when a message is sent or the screen closes.
func (t *Typist) Stop(chatID string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if timer, ok := t.timers[chatID]; ok {
		timer.Stop()
		delete(t.timers, chatID)
	}
	if t.active[chatID] {
		t.active[chatID] = false
		t.emit(chatID, false)
	}
}
