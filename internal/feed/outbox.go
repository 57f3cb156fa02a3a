package feed

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/crmchat/internal/model"
)

// SendState is a message's position in the send lifecycle.
type SendState int

const (
	StateComposing SendState = iota
	StateOptimistic
	StateConfirmed
	StateFailed
)

func (s SendState) String() string {
	switch s {
	case StateComposing:
		return "composing"
	case StateOptimistic:
		return "optimistic"
	case StateConfirmed:
		return "confirmed"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("SendState(%d)", int(s))
	}
}

var (
	ErrInvalidTransition = errors.New("invalid send state transition")
	ErrUnknownMessage    = errors.New("unknown local message")
)

// LocalIDPrefix marks ids synthesized on the client.
const LocalIDPrefix = "local-"

// transition is the only place the send lifecycle is checked.
func transition(from, to SendState) error {
	switch {
	case from == StateComposing && to == StateOptimistic,
		from == StateOptimistic && to == StateConfirmed,
		from == StateOptimistic && to == StateFailed,
		from == StateFailed && to == StateOptimistic:
		return nil
	}
	return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
}

type pending struct {
	state SendState
	draft model.Draft
	msg   model.Message
}

// Outbox tracks messages between submit and server confirmation.
type Outbox struct {
	mu      sync.Mutex
	sender  model.UserPublic
	now     func() time.Time
	entries map[string]*pending
}

// NewOutbox creates an outbox for messages authored by sender.
func NewOutbox(sender model.UserPublic) *Outbox {
	return &Outbox{sender: sender, now: time.Now, entries: make(map[string]*pending)}
}

// Begin synthesizes the optimistic placeholder for draft.
func (o *Outbox) Begin(draft model.Draft) model.Message {
	o.mu.Lock()
	defer o.mu.Unlock()

	if draft.ClientNonce == "" {
		draft.ClientNonce = uuid.NewString()
	}
	if draft.ContentType == "" {
		draft.ContentType = model.ContentTypeText
	}
	sender := o.sender
	msg := model.Message{
		ID:           LocalIDPrefix + draft.ClientNonce,
		ChannelID:    draft.ChannelID,
		SenderID:     sender.ID,
		Sender:       &sender,
		Body:         draft.Body,
		PlainText:    draft.PlainText,
		ContentType:  draft.ContentType,
		ParentID:     draft.ParentID,
		ClientNonce:  draft.ClientNonce,
		CreatedAt:    o.now(),
		IsOptimistic: true,
	}
	// Composing -> Optimistic is always valid for a fresh entry.
	o.entries[msg.ID] = &pending{state: StateOptimistic, draft: draft, msg: msg}
	return msg
}

// Confirm replaces the placeholder with the server entity. Receipts start empty.
func (o *Outbox) Confirm(localID string, confirmed model.Message) (model.Message, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	p, err := o.step(localID, StateConfirmed)
	if err != nil {
		return model.Message{}, err
	}
	confirmed.IsOptimistic = false
	confirmed.IsFailed = false
	confirmed.Receipts = nil
	if confirmed.ClientNonce == "" {
		confirmed.ClientNonce = p.draft.ClientNonce
	}
	if confirmed.Sender == nil {
		confirmed.Sender = p.msg.Sender
	}
	delete(o.entries, localID)
	return confirmed, nil
}

// Fail marks the placeholder as failed; it stays in the list for retry.
func (o *Outbox) Fail(localID string) (model.Message, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	p, err := o.step(localID, StateFailed)
	if err != nil {
		return model.Message{}, err
	}
	p.msg.IsOptimistic = false
	p.msg.IsFailed = true
	return p.msg, nil
}

// Retry moves a failed message back to optimistic and returns the draft to resend.
func (o *Outbox) Retry(localID string) (model.Draft, model.Message, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	p, err := o.step(localID, StateOptimistic)
	if err != nil {
		return model.Draft{}, model.Message{}, err
	}
	p.msg.IsFailed = false
	p.msg.IsOptimistic = true
	return p.draft, p.msg, nil
}

// Discard drops a failed message the user gave up on.
func (o *Outbox) Discard(localID string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	p, ok := o.entries[localID]
	if !ok || p.state != StateFailed {
		return false
	}
	delete(o.entries, localID)
	return true
}

// State returns the lifecycle state of a local message. Unknown ids are
// either never begun or already confirmed.
func (o *Outbox) State(localID string) (SendState, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	p, ok := o.entries[localID]
	if !ok {
		return 0, false
	}
	return p.state, true
}

// LocalIDForNonce finds the pending entry created with nonce.
func (o *Outbox) LocalIDForNonce(nonce string) (string, bool) {
	if nonce == "" {
		return "", false
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	id := LocalIDPrefix + nonce
	_, ok := o.entries[id]
	return id, ok
}

func (o *Outbox) step(localID string, to SendState) (*pending, error) {
	p, ok := o.entries[localID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownMessage, localID)
	}
	if err := transition(p.state, to); err != nil {
		return nil, err
	}
	p.state = to
	return p, nil
}
