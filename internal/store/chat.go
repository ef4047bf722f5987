package store

import (
	"time"

	"github.com/generativejunkie/antigravity-bridge/pkg/models"
	"github.com/google/uuid"
)

// Chat is the uncapped chat message log.
type Chat struct {
	log *Log[models.ChatMessage]
}

// OpenChat opens the chat log at path.
func OpenChat(path string) (*Chat, error) {
	l, err := OpenLog[models.ChatMessage](path)
	if err != nil {
		return nil, err
	}
	return &Chat{log: l}, nil
}

// Append persists a new message tagged with the given sender and
// returns it. An empty timestamp defaults to now.
func (c *Chat) Append(sender, text string, ts time.Time) (models.ChatMessage, error) {
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	msg := models.ChatMessage{
		ID:        uuid.New().String(),
		Sender:    sender,
		Text:      text,
		Timestamp: ts,
	}
	if err := c.log.Append(msg); err != nil {
		return models.ChatMessage{}, err
	}
	return msg, nil
}

// Messages returns all messages in insertion order.
func (c *Chat) Messages() ([]models.ChatMessage, error) {
	return c.log.All()
}

// Clear resets the chat log to empty.
func (c *Chat) Clear() error {
	return c.log.Replace(nil)
}
