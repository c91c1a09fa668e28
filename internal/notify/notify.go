// Package notify delivers transient user-facing notifications raised by sync
// operations.
package notify

import (
	"log"
	"sync"
	"time"
)

type Level string

const (
	LevelInfo    Level = "info"
	LevelSuccess Level = "success"
	LevelError   Level = "error"
)

type Notice struct {
	Level   Level     `json:"level"`
	Message string    `json:"message"`
	At      time.Time `json:"at"`
}

type Notifier interface {
	Notify(n Notice)
}

func Error(n Notifier, msg string) {
	n.Notify(Notice{Level: LevelError, Message: msg, At: time.Now().UTC()})
}

func Success(n Notifier, msg string) {
	n.Notify(Notice{Level: LevelSuccess, Message: msg, At: time.Now().UTC()})
}

// LogNotifier writes notices to the process log. Tag identifies the client.
type LogNotifier struct {
	Tag string
}

func (l LogNotifier) Notify(n Notice) {
	log.Printf("notice client=%s level=%s message=%q", l.Tag, n.Level, n.Message)
}

// Queue buffers notices for one client until the view layer drains them.
// When full, the oldest notice is dropped.
type Queue struct {
	mu    sync.Mutex
	items []Notice
	max   int
}

func NewQueue(max int) *Queue {
	if max <= 0 {
		max = 20
	}
	return &Queue{max: max}
}

func (q *Queue) Notify(n Notice) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) >= q.max {
		q.items = append(q.items[:0], q.items[1:]...)
	}
	q.items = append(q.items, n)
}

// Drain returns the pending notices oldest first and empties the queue.
func (q *Queue) Drain() []Notice {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := q.items
	q.items = nil
	if out == nil {
		return []Notice{}
	}
	return out
}

type Multi []Notifier

func (m Multi) Notify(n Notice) {
	for _, x := range m {
		if x != nil {
			x.Notify(n)
		}
	}
}

// Discard drops every notice.
type Discard struct{}

func (Discard) Notify(Notice) {}
