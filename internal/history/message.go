package history

import "time"

// ChatMessage is one persisted chat_history row.
type ChatMessage struct {
	ID          int64     `json:"id"`
	Timestamp   time.Time `json:"timestamp"`
	AuthorID    int64     `json:"author_id"`
	ChannelName string    `json:"channel_name"`
	Content     string    `json:"content"`
}
