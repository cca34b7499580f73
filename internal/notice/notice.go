// Package notice carries user-visible notifications from background
// components to the UI without blocking the producer.
package notice

import (
	"fmt"
	"sync"
	"time"
)

// Level is the severity of a notice.
type Level int

const (
	Info Level = iota
	Warning
	Error
)

func (l Level) String() string {
	switch l {
	case Info:
		return "info"
	case Warning:
		return "warning"
	case Error:
		return "error"
	default:
		return fmt.Sprintf("unknown(%d)", int(l))
	}
}

// Notice is one notification.
type Notice struct {
	Level Level
	Text  string
	At    time.Time
}

// Poster is implemented by anything that accepts notices.
type Poster interface {
	Post(level Level, text string)
}

var (
	_ Poster = (*Center)(nil)
	_ Poster = (*Recorder)(nil)
)

const defaultBuffer = 32

// Center is a bounded notice queue. When full, the oldest notice is dropped.
type Center struct {
	ch  chan Notice
	now func() time.Time
}

// NewCenter returns a Center holding up to size pending notices.
func NewCenter(size int) *Center {
	if size <= 0 {
		size = defaultBuffer
	}
	return &Center{ch: make(chan Notice, size), now: time.Now}
}

// Post enqueues a notice.
func (c *Center) Post(level Level, text string) {
	n := Notice{Level: level, Text: text, At: c.now()}
	for {
		select {
		case c.ch <- n:
			return
		default:
		}
		select {
		case <-c.ch:
		default:
		}
	}
}

// C returns the delivery channel.
func (c *Center) C() <-chan Notice { return c.ch }

// Recorder collects notices in memory. Useful in tests.
type Recorder struct {
	mu      sync.Mutex
	notices []Notice
}

// Post implements Poster.
func (r *Recorder) Post(level Level, text string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notices = append(r.notices, Notice{Level: level, Text: text, At: time.Now()})
}

// All returns a copy of the recorded notices.
func (r *Recorder) All() []Notice {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Notice(nil), r.notices...)
}

// Count returns how many notices of level were recorded.
func (r *Recorder) Count(level Level) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, x := range r.notices {
		if x.Level == level {
			n++
		}
	}
	return n
}
