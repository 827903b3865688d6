// Package status holds the transient status banner.
package status

import (
	"log/slog"
	"sync"
	"time"

	"github.com/embiggen/planetmap/internal/errors"
)

// DefaultTTL is how long a message stays visible.
const DefaultTTL = 3 * time.Second

// Level distinguishes informational messages from failures.
type Level string

const (
	LevelInfo  Level = "info"
	LevelError Level = "error"
)

// Message is one banner entry.
type Message struct {
	Text    string
	Level   Level
	ShownAt time.Time
}

// Listener observes banner changes. visible is false when the banner clears.
type Listener func(msg Message, visible bool)

// Banner shows at most one message at a time; each message auto-dismisses
// after the TTL unless replaced first.
type Banner struct {
	mu        sync.Mutex
	ttl       time.Duration
	current   Message
	visible   bool
	seq       uint64
	timer     *time.Timer
	listeners []Listener
	logger    *slog.Logger
}

// New creates a banner. A non-positive ttl uses DefaultTTL.
func New(ttl time.Duration, logger *slog.Logger) *Banner {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Banner{ttl: ttl, logger: logger}
}

// OnChange registers a listener.
func (b *Banner) OnChange(l Listener) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.listeners = append(b.listeners, l)
}

// Info shows an informational message.
func (b *Banner) Info(text string) {
	b.Show(text, LevelInfo)
}

// Error shows a failure message.
func (b *Banner) Error(text string) {
	b.Show(text, LevelError)
}

// Show replaces the current message and restarts the dismiss timer.
func (b *Banner) Show(text string, level Level) {
	b.mu.Lock()
	b.seq++
	seq := b.seq
	if b.timer != nil {
		b.timer.Stop()
	}
	msg := Message{Text: text, Level: level, ShownAt: time.Now()}
	b.current = msg
	b.visible = true
	b.timer = time.AfterFunc(b.ttl, func() { b.expire(seq) })
	listeners := append([]Listener(nil), b.listeners...)
	b.mu.Unlock()

	b.logger.Debug("status shown", "text", text, "level", level)
	for _, l := range listeners {
		l(msg, true)
	}
}

// Report shows err unless it is a silent kind. Errors outside the
// taxonomy are shown verbatim.
func (b *Banner) Report(err error) {
	if err == nil {
		return
	}
	var domainErr *errors.Error
	if errors.As(err, &domainErr) {
		if domainErr.Code.Silent() {
			b.logger.Debug("silent error", "code", domainErr.Code, "error", err)
			return
		}
		b.Error(domainErr.Message)
		return
	}
	b.Error(err.Error())
}

// Current returns the visible message.
func (b *Banner) Current() (Message, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.current, b.visible
}

// Dismiss clears the banner immediately.
func (b *Banner) Dismiss() {
	b.mu.Lock()
	b.seq++
	seq := b.seq
	b.mu.Unlock()
	b.expire(seq)
}

func (b *Banner) expire(seq uint64) {
	b.mu.Lock()
	if seq != b.seq || !b.visible {
		b.mu.Unlock()
		return
	}
	if b.timer != nil {
		b.timer.Stop()
		b.timer = nil
	}
	msg := b.current
	b.visible = false
	listeners := append([]Listener(nil), b.listeners...)
	b.mu.Unlock()

	for _, l := range listeners {
		l(msg, false)
	}
}
