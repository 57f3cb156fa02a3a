package feed

import (
	"context"
	"sync"
	"time"

	"github.com/crmchat/internal/logger"
)

const DefaultTypingStopDelay = 3 * time.Second

// TypingEmitter publishes typing signals for a channel.
type TypingEmitter interface {
	SendTyping(ctx context.Context, channelID string, typing bool) error
}

// TypingNotifier debounces keystrokes into start/stop signals: start on the
// first keystroke, stop a fixed delay after the last one or on send.
type TypingNotifier struct {
	mu        sync.Mutex
	emitter   TypingEmitter
	channelID string
	delay     time.Duration
	timer     *time.Timer
	gen       uint64
	typing    bool
}

func NewTypingNotifier(emitter TypingEmitter, channelID string, delay time.Duration) *TypingNotifier {
	if delay <= 0 {
		delay = DefaultTypingStopDelay
	}
	return &TypingNotifier{emitter: emitter, channelID: channelID, delay: delay}
}

// Keystroke records input activity and resets the stop timer.
func (n *TypingNotifier) Keystroke() {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.timer != nil {
		n.timer.Stop()
	}
	if !n.typing {
		n.typing = true
		n.emit(true)
	}
	n.gen++
	gen := n.gen
	n.timer = time.AfterFunc(n.delay, func() { n.expire(gen) })
}

// Sent clears the timer and emits stop immediately.
func (n *TypingNotifier) Sent() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.stopLocked()
}

// Close stops a pending timer without emitting.
func (n *TypingNotifier) Close() {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.timer != nil {
		n.timer.Stop()
		n.timer = nil
	}
}

// expire ignores timers superseded by a later keystroke.
func (n *TypingNotifier) expire(gen uint64) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if gen != n.gen {
		return
	}
	n.stopLocked()
}

func (n *TypingNotifier) stopLocked() {
	if n.timer != nil {
		n.timer.Stop()
		n.timer = nil
	}
	if n.typing {
		n.typing = false
		n.emit(false)
	}
}

// emit runs under the lock to keep start/stop ordered; emitters must not block.
func (n *TypingNotifier) emit(typing bool) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := n.emitter.SendTyping(ctx, n.channelID, typing); err != nil {
		logger.Errorf("typing channel=%s typing=%v: %v", n.channelID, typing, err)
	}
}
