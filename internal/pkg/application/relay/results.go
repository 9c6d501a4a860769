package relay

import "time"

type NotifyResult struct {
	id string
}

func NewNotifyResult(id string) *NotifyResult {
	return &NotifyResult{id: id}
}

func (r NotifyResult) ID() string {
	return r.id
}

// UnreadNotification is a flattened notification target, as handed to callers
// that know nothing about resources and relationships.
type UnreadNotification struct {
	ID         string     `json:"id"`
	Type       string     `json:"type"`
	Parameters []any      `json:"parameters"`
	URL        string     `json:"url,omitempty"`
	Agent      string     `json:"agent,omitempty"`
	CreatedAt  *time.Time `json:"createdAt,omitempty"`
}
