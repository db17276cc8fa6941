package chat

import (
	"sync"

	"github.com/BradenHooton/inspireokc/internal/models"
)

// Conversation is the ordered message list of one chat session.
type Conversation struct {
	mu       sync.RWMutex
	messages []models.ChatMessage
}

// NewConversation creates a conversation seeded with messages.
func NewConversation(messages ...models.ChatMessage) *Conversation {
	c := &Conversation{}
	c.messages = append(c.messages, messages...)
	return c
}

// Append adds msg and returns its index.
func (c *Conversation) Append(msg models.ChatMessage) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.messages = append(c.messages, msg)
	return len(c.messages) - 1
}

// AddUser appends a user turn.
func (c *Conversation) AddUser(content string) {
	c.Append(models.ChatMessage{Role: models.RoleUser, Content: content})
}

// SetContent replaces the content of the message at index.
func (c *Conversation) SetContent(index int, content string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if index >= 0 && index < len(c.messages) {
		c.messages[index].Content = content
	}
}

// WriteReply stores the growing assistant reply and returns its index.
// A negative index reuses a trailing assistant message, replacing its content,
// and appends a new assistant turn otherwise.
func (c *Conversation) WriteReply(index int, content string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if index < 0 {
		last := len(c.messages) - 1
		if last >= 0 && c.messages[last].Role == models.RoleAssistant {
			index = last
		} else {
			c.messages = append(c.messages, models.ChatMessage{Role: models.RoleAssistant})
			index = len(c.messages) - 1
		}
	}
	if index < len(c.messages) {
		c.messages[index].Content = content
	}
	return index
}

// Messages returns a copy of the messages.
func (c *Conversation) Messages() []models.ChatMessage {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]models.ChatMessage, len(c.messages))
	copy(out, c.messages)
	return out
}

// Last returns the final message, if any.
func (c *Conversation) Last() (models.ChatMessage, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if len(c.messages) == 0 {
		return models.ChatMessage{}, false
	}
	return c.messages[len(c.messages)-1], true
}

func (c *Conversation) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.messages)
}
