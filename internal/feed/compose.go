package feed

import (
	"context"
	"strings"
	"sync"

	"github.com/crmchat/internal/model"
)

// Sender is the part of the channel provider the compose surface talks to.
type Sender interface {
	SendMessage(ctx context.Context, draft model.Draft) (bool, error)
	EditMessage(ctx context.Context, messageID string, draft model.Draft) error
}

// Composer is the compose surface: current text, reply target and edit target.
type Composer struct {
	mu         sync.Mutex
	channelID  string
	sender     Sender
	text       string
	replyTo    *string
	editTarget string
}

func NewComposer(channelID string, sender Sender) *Composer {
	return &Composer{channelID: channelID, sender: sender}
}

func (c *Composer) SetText(text string) {
	c.mu.Lock()
	c.text = text
	c.mu.Unlock()
}

func (c *Composer) Text() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.text
}

// ReplyTo sets the parent of the next message; empty clears it.
func (c *Composer) ReplyTo(parentID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if parentID == "" {
		c.replyTo = nil
		return
	}
	c.replyTo = &parentID
}

// StartEdit loads an existing message into the compose surface.
func (c *Composer) StartEdit(messageID, text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.editTarget = messageID
	c.text = text
	c.replyTo = nil
}

// CancelEdit leaves edit mode and clears the text.
func (c *Composer) CancelEdit() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.editTarget != "" {
		c.editTarget = ""
		c.text = ""
	}
}

func (c *Composer) EditTarget() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.editTarget
}

// Submit sends or edits the current text. The edit target is cleared
// whatever the outcome; a new message clears the input only when the send
// resolves truthy. Blank input is ignored.
func (c *Composer) Submit(ctx context.Context) (bool, error) {
	c.mu.Lock()
	text := c.text
	editTarget := c.editTarget
	replyTo := c.replyTo
	c.mu.Unlock()

	if strings.TrimSpace(text) == "" {
		return false, nil
	}
	draft := model.Draft{
		ChannelID:   c.channelID,
		Body:        text,
		PlainText:   strings.TrimSpace(text),
		ContentType: model.ContentTypeText,
		ParentID:    replyTo,
	}

	if editTarget != "" {
		err := c.sender.EditMessage(ctx, editTarget, draft)
		c.mu.Lock()
		c.editTarget = ""
		if err == nil {
			c.text = ""
		}
		c.mu.Unlock()
		return err == nil, err
	}

	ok, err := c.sender.SendMessage(ctx, draft)
	if ok {
		c.mu.Lock()
		if c.text == text {
			c.text = ""
		}
		c.replyTo = nil
		c.mu.Unlock()
	}
	return ok, err
}
