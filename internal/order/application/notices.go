package application

import (
	"log/slog"
	"sync"
	"time"
)

const (
	NoticeFetchFailure = "fetch_failure"
	NoticeWriteFailure = "write_failure"

	defaultNoticeRetention = 50
)

type Notice struct {
	Kind    string    `json:"kind"`
	Message string    `json:"message"`
	At      time.Time `json:"at"`
}

// NoticeLog keeps the most recent failure notices so the dashboard can show
// them as transient, user-actionable messages. Nothing here ever escalates
// to a crash.
type NoticeLog struct {
	log *slog.Logger

	mu      sync.Mutex
	notices []Notice
	limit   int
}

func NewNoticeLog(log *slog.Logger) *NoticeLog {
	return &NoticeLog{log: log, limit: defaultNoticeRetention}
}

func (n *NoticeLog) Notify(kind, message string) {
	n.mu.Lock()
	n.notices = append(n.notices, Notice{Kind: kind, Message: message, At: time.Now().UTC()})
	if len(n.notices) > n.limit {
		n.notices = n.notices[len(n.notices)-n.limit:]
	}
	n.mu.Unlock()

	n.log.Warn("notice", "kind", kind, "message", message)
}

// Recent returns notices newest first.
func (n *NoticeLog) Recent() []Notice {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]Notice, 0, len(n.notices))
	for i := len(n.notices) - 1; i >= 0; i-- {
		out = append(out, n.notices[i])
	}
	return out
}
