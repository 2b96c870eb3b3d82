package tasks

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Notification event types.
const (
	NotificationTaskCompleted = "task_completed_successfully"
	NotificationTaskFailed    = "task_failed"
	NotificationGeneralInfo   = "general_info"
)

const defaultNotificationLimit = 200

// Notification is one entry in the user-facing feed.
type Notification struct {
	ID            string    `json:"notification_id"`
	EventType     string    `json:"event_type"`
	Summary       string    `json:"summary"`
	RelatedItemID string    `json:"related_item_id,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	Read          bool      `json:"read"`
}

// NotificationManager keeps a bounded in-memory notification feed.
// Safe for concurrent use.
type NotificationManager struct {
	mu    sync.Mutex
	items []Notification
	limit int
}

func NewNotificationManager() *NotificationManager {
	return &NotificationManager{limit: defaultNotificationLimit}
}

// Add appends a notification, evicting the oldest past the limit.
func (n *NotificationManager) Add(eventType, summary, relatedItemID string) Notification {
	item := Notification{
		ID:            "notif_" + uuid.New().String()[:8],
		EventType:     eventType,
		Summary:       summary,
		RelatedItemID: relatedItemID,
		CreatedAt:     time.Now().UTC(),
	}
	n.mu.Lock()
	n.items = append(n.items, item)
	if len(n.items) > n.limit {
		n.items = n.items[len(n.items)-n.limit:]
	}
	n.mu.Unlock()
	return item
}

// List returns notifications, newest first. unreadOnly filters out
// read entries.
func (n *NotificationManager) List(unreadOnly bool) []Notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]Notification, 0, len(n.items))
	for i := len(n.items) - 1; i >= 0; i-- {
		if unreadOnly && n.items[i].Read {
			continue
		}
		out = append(out, n.items[i])
	}
	return out
}

// MarkRead marks one notification read.
func (n *NotificationManager) MarkRead(id string) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	for i := range n.items {
		if n.items[i].ID == id {
			n.items[i].Read = true
			return true
		}
	}
	return false
}
