// Package notify keeps short-lived user notices (success, error, info) per recipient.
package notify

import (
	"sync"
	"time"

	"landai/app/internal/platform/id"
)

// Kind classifies a notice for display.
type Kind string

const (
	KindSuccess Kind = "success"
	KindError   Kind = "error"
	KindInfo    Kind = "info"
)

// DefaultTTL is how long a notice stays available when no TTL is configured.
const DefaultTTL = 5 * time.Second

// Notice is one queued message for a recipient.
type Notice struct {
	ID        string    `json:"id"`
	Kind      Kind      `json:"type"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"createdAt"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Queue is a process-wide notice store keyed by recipient. Safe for concurrent use.
type Queue struct {
	mu      sync.Mutex
	entries map[string][]Notice
	ttl     time.Duration
	now     func() time.Time

	done      chan struct{}
	startOnce sync.Once
	stopOnce  sync.Once
}

// NewQueue constructs a queue whose notices expire after ttl.
func NewQueue(ttl time.Duration) *Queue {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Queue{
		entries: make(map[string][]Notice),
		ttl:     ttl,
		now:     time.Now,
		done:    make(chan struct{}),
	}
}

// StartSweeper prunes expired notices of every recipient each interval until Stop
// is called. Later calls are no-ops.
func (q *Queue) StartSweeper(interval time.Duration) {
	if interval <= 0 {
		interval = q.ttl
	}
	q.startOnce.Do(func() {
		go q.sweep(interval)
	})
}

// Stop ends the sweeper.
func (q *Queue) Stop() {
	q.stopOnce.Do(func() {
		close(q.done)
	})
}

// Recipients returns the number of recipients with stored notices.
func (q *Queue) Recipients() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.entries)
}

func (q *Queue) sweep(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-q.done:
			return
		case <-ticker.C:
			q.Prune()
		}
	}
}

// Enqueue appends a notice for recipient and returns it.
func (q *Queue) Enqueue(recipient string, kind Kind, message string) Notice {
	now := q.now()
	notice := Notice{
		ID:        id.MustGenerate(id.PrefixNotice),
		Kind:      kind,
		Message:   message,
		CreatedAt: now,
		ExpiresAt: now.Add(q.ttl),
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	q.entries[recipient] = append(q.live(recipient, now), notice)
	return notice
}

// Success enqueues a success notice.
func (q *Queue) Success(recipient, message string) Notice {
	return q.Enqueue(recipient, KindSuccess, message)
}

// Error enqueues an error notice.
func (q *Queue) Error(recipient, message string) Notice {
	return q.Enqueue(recipient, KindError, message)
}

// Info enqueues an informational notice.
func (q *Queue) Info(recipient, message string) Notice {
	return q.Enqueue(recipient, KindInfo, message)
}

// Drain returns the unexpired notices for recipient in enqueue order and removes them.
func (q *Queue) Drain(recipient string) []Notice {
	now := q.now()

	q.mu.Lock()
	defer q.mu.Unlock()

	notices := q.live(recipient, now)
	delete(q.entries, recipient)
	if notices == nil {
		return []Notice{}
	}
	return notices
}

// Dismiss removes a single notice and reports whether it was present.
func (q *Queue) Dismiss(recipient, noticeID string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	notices := q.entries[recipient]
	for i, notice := range notices {
		if notice.ID == noticeID {
			q.entries[recipient] = append(notices[:i:i], notices[i+1:]...)
			if len(q.entries[recipient]) == 0 {
				delete(q.entries, recipient)
			}
			return true
		}
	}
	return false
}

// Prune drops expired notices for every recipient.
func (q *Queue) Prune() {
	now := q.now()

	q.mu.Lock()
	defer q.mu.Unlock()

	for recipient := range q.entries {
		if notices := q.live(recipient, now); len(notices) > 0 {
			q.entries[recipient] = notices
		} else {
			delete(q.entries, recipient)
		}
	}
}

// live returns the unexpired notices for recipient. Caller holds q.mu.
func (q *Queue) live(recipient string, now time.Time) []Notice {
	notices := q.entries[recipient]
	var kept []Notice
	for _, notice := range notices {
		if now.Before(notice.ExpiresAt) {
			kept = append(kept, notice)
		}
	}
	return kept
}
