package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"time"

	"github.com/crmchat/internal/logger"
	"github.com/crmchat/internal/model"
)

const maxPageSize = 100

// Page is one page of channel history, oldest message first.
type Page struct {
	Messages []model.Message
	HasMore  bool
}

func (c *Client) FetchChannel(ctx context.Context, channelID string) (model.Channel, error) {
	defer logger.DeferLogDuration("api.FetchChannel", time.Now())()
	body, err := c.do(ctx, http.MethodGet, "/channels/"+url.PathEscape(channelID), nil, nil)
	if err != nil {
		return model.Channel{}, fmt.Errorf("api.FetchChannel: %w", err)
	}
	ch, err := decodeObject[model.Channel](body)
	if err != nil {
		return model.Channel{}, fmt.Errorf("api.FetchChannel: %w", err)
	}
	return ch, nil
}

// FetchMessages returns up to limit messages older than before (empty = newest page).
func (c *Client) FetchMessages(ctx context.Context, channelID, before string, limit int) (Page, error) {
	defer logger.DeferLogDuration("api.FetchMessages", time.Now())()
	if limit <= 0 || limit > maxPageSize {
		limit = maxPageSize
	}
	q := url.Values{}
	q.Set("limit", strconv.Itoa(limit))
	if before != "" {
		q.Set("before", before)
	}
	body, err := c.do(ctx, http.MethodGet, "/channels/"+url.PathEscape(channelID)+"/messages", q, nil)
	if err != nil {
		return Page{}, fmt.Errorf("api.FetchMessages: %w", err)
	}
	page, err := decodePage(body, limit)
	if err != nil {
		return Page{}, fmt.Errorf("api.FetchMessages: %w", err)
	}
	return page, nil
}

// decodePage accepts {messages, has_more} (optionally inside data) or any list shape;
// without an explicit flag a full page means more history may exist.
func decodePage(body []byte, limit int) (Page, error) {
	var page Page
	var obj struct {
		Messages []model.Message `json:"messages"`
		HasMore  *bool           `json:"has_more"`
	}
	raw := bytes.TrimSpace(body)
	if len(raw) > 0 && raw[0] == '{' {
		var env envelope
		if err := json.Unmarshal(raw, &env); err == nil {
			if err := env.failure(); err != nil {
				return Page{}, err
			}
			if d := bytes.TrimSpace(env.Data); len(d) > 0 && d[0] == '{' {
				raw = d
			}
		}
	}
	if len(raw) > 0 && raw[0] == '{' && json.Unmarshal(raw, &obj) == nil && obj.Messages != nil {
		page.Messages = obj.Messages
		if obj.HasMore != nil {
			page.HasMore = *obj.HasMore
		} else {
			page.HasMore = len(obj.Messages) >= limit
		}
	} else {
		msgs, err := decodeList[model.Message](body)
		if err != nil {
			return Page{}, err
		}
		page.Messages = msgs
		page.HasMore = len(msgs) >= limit
	}
	sort.SliceStable(page.Messages, func(i, j int) bool {
		return page.Messages[i].CreatedAt.Before(page.Messages[j].CreatedAt)
	})
	return page, nil
}

func (c *Client) SendMessage(ctx context.Context, draft model.Draft) (model.Message, error) {
	defer logger.DeferLogDuration("api.SendMessage", time.Now())()
	body, err := c.do(ctx, http.MethodPost, "/channels/"+url.PathEscape(draft.ChannelID)+"/messages", nil, draft)
	if err != nil {
		return model.Message{}, fmt.Errorf("api.SendMessage: %w", err)
	}
	msg, err := decodeObject[model.Message](body)
	if err != nil {
		return model.Message{}, fmt.Errorf("api.SendMessage: %w", err)
	}
	if msg.ClientNonce == "" {
		msg.ClientNonce = draft.ClientNonce
	}
	return msg, nil
}

type editRequest struct {
	Body      string `json:"body"`
	PlainText string `json:"plain_text"`
}

func (c *Client) EditMessage(ctx context.Context, messageID string, draft model.Draft) (model.Message, error) {
	defer logger.DeferLogDuration("api.EditMessage", time.Now())()
	req := editRequest{Body: draft.Body, PlainText: draft.PlainText}
	body, err := c.do(ctx, http.MethodPatch, "/messages/"+url.PathEscape(messageID), nil, req)
	if err != nil {
		return model.Message{}, fmt.Errorf("api.EditMessage: %w", err)
	}
	msg, err := decodeObject[model.Message](body)
	if err != nil {
		return model.Message{}, fmt.Errorf("api.EditMessage: %w", err)
	}
	return msg, nil
}

func (c *Client) DeleteMessage(ctx context.Context, messageID string) error {
	defer logger.DeferLogDuration("api.DeleteMessage", time.Now())()
	body, err := c.do(ctx, http.MethodDelete, "/messages/"+url.PathEscape(messageID), nil, nil)
	if err != nil {
		return fmt.Errorf("api.DeleteMessage: %w", err)
	}
	if _, err := decodeOK(body); err != nil {
		return fmt.Errorf("api.DeleteMessage: %w", err)
	}
	return nil
}

func (c *Client) MarkMessageRead(ctx context.Context, messageID string) error {
	defer logger.DeferLogDuration("api.MarkMessageRead", time.Now())()
	body, err := c.do(ctx, http.MethodPost, "/messages/"+url.PathEscape(messageID)+"/read", nil, nil)
	if err != nil {
		return fmt.Errorf("api.MarkMessageRead: %w", err)
	}
	if _, err := decodeOK(body); err != nil {
		return fmt.Errorf("api.MarkMessageRead: %w", err)
	}
	return nil
}

type reactRequest struct {
	Emoji string `json:"emoji"`
}

// ReactToMessage toggles the viewer's reaction.
func (c *Client) ReactToMessage(ctx context.Context, messageID, emoji string) error {
	defer logger.DeferLogDuration("api.ReactToMessage", time.Now())()
	body, err := c.do(ctx, http.MethodPost, "/messages/"+url.PathEscape(messageID)+"/reactions", nil, reactRequest{Emoji: emoji})
	if err != nil {
		return fmt.Errorf("api.ReactToMessage: %w", err)
	}
	if _, err := decodeOK(body); err != nil {
		return fmt.Errorf("api.ReactToMessage: %w", err)
	}
	return nil
}

type forwardMessagesRequest struct {
	MessageIDs []string `json:"message_ids"`
	ChannelIDs []string `json:"channel_ids"`
}

func (c *Client) ForwardMessages(ctx context.Context, messageIDs, targetChannelIDs []string) error {
	defer logger.DeferLogDuration("api.ForwardMessages", time.Now())()
	req := forwardMessagesRequest{MessageIDs: messageIDs, ChannelIDs: targetChannelIDs}
	body, err := c.do(ctx, http.MethodPost, "/messages/forward", nil, req)
	if err != nil {
		return fmt.Errorf("api.ForwardMessages: %w", err)
	}
	if _, err := decodeOK(body); err != nil {
		return fmt.Errorf("api.ForwardMessages: %w", err)
	}
	return nil
}

// FetchReceipts returns the channel-wide read receipts.
func (c *Client) FetchReceipts(ctx context.Context, channelID string) ([]model.ReadReceipt, error) {
	defer logger.DeferLogDuration("api.FetchReceipts", time.Now())()
	body, err := c.do(ctx, http.MethodGet, "/channels/"+url.PathEscape(channelID)+"/receipts", nil, nil)
	if err != nil {
		return nil, fmt.Errorf("api.FetchReceipts: %w", err)
	}
	out, err := decodeList[model.ReadReceipt](body)
	if err != nil {
		return nil, fmt.Errorf("api.FetchReceipts: %w", err)
	}
	return out, nil
}

func (c *Client) FetchMembers(ctx context.Context, channelID string) ([]model.ChannelMember, error) {
	defer logger.DeferLogDuration("api.FetchMembers", time.Now())()
	body, err := c.do(ctx, http.MethodGet, "/channels/"+url.PathEscape(channelID)+"/members", nil, nil)
	if err != nil {
		return nil, fmt.Errorf("api.FetchMembers: %w", err)
	}
	out, err := decodeList[model.ChannelMember](body)
	if err != nil {
		return nil, fmt.Errorf("api.FetchMembers: %w", err)
	}
	return out, nil
}

// FetchPermissions returns the viewer's team permissions.
func (c *Client) FetchPermissions(ctx context.Context) (model.UserPermissions, error) {
	defer logger.DeferLogDuration("api.FetchPermissions", time.Now())()
	body, err := c.do(ctx, http.MethodGet, "/me/permissions", nil, nil)
	if err != nil {
		return model.UserPermissions{}, fmt.Errorf("api.FetchPermissions: %w", err)
	}
	p, err := decodeObject[model.UserPermissions](body)
	if err != nil {
		return model.UserPermissions{}, fmt.Errorf("api.FetchPermissions: %w", err)
	}
	return p, nil
}
