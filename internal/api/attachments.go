package api

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/crmchat/internal/logger"
	"github.com/crmchat/internal/model"
	"github.com/crmchat/internal/storage"
)

const defaultAttachmentsLimit = 50

type AttachmentQuery struct {
	ChannelID string
	Limit     int
}

type cachedAttachments struct {
	Limit int                `json:"limit"`
	Items []model.Attachment `json:"items"`
}

// FetchChannelAttachments lists files shared in a channel. Results are cached per channel.
func (c *Client) FetchChannelAttachments(ctx context.Context, q AttachmentQuery) ([]model.Attachment, error) {
	defer logger.DeferLogDuration("api.FetchChannelAttachments", time.Now())()
	limit := q.Limit
	if limit <= 0 {
		limit = defaultAttachmentsLimit
	}
	key := storage.AttachmentsKey(q.ChannelID)
	var hit cachedAttachments
	if c.cached(ctx, key, &hit) && hit.Limit >= limit {
		if len(hit.Items) > limit {
			return hit.Items[:limit], nil
		}
		return hit.Items, nil
	}

	params := url.Values{}
	params.Set("limit", strconv.Itoa(limit))
	body, err := c.do(ctx, http.MethodGet, "/channels/"+url.PathEscape(q.ChannelID)+"/attachments", params, nil)
	if err != nil {
		return nil, fmt.Errorf("api.FetchChannelAttachments: %w", err)
	}
	out, err := decodeList[model.Attachment](body)
	if err != nil {
		return nil, fmt.Errorf("api.FetchChannelAttachments: %w", err)
	}
	for i := range out {
		if out[i].ChannelID == "" {
			out[i].ChannelID = q.ChannelID
		}
	}
	c.store(ctx, key, cachedAttachments{Limit: limit, Items: out})
	return out, nil
}

// InvalidateAttachments drops the cached list, e.g. after a new file message arrives.
func (c *Client) InvalidateAttachments(ctx context.Context, channelID string) {
	c.invalidate(ctx, storage.AttachmentsKey(channelID))
}

// DownloadAttachment streams the file into dir and returns the written path.
func (c *Client) DownloadAttachment(ctx context.Context, att model.Attachment, dir string) (string, error) {
	defer logger.DeferLogDuration("api.DownloadAttachment", time.Now())()
	if att.FileURL == "" {
		return "", fmt.Errorf("api.DownloadAttachment: attachment %s has no url", att.ID)
	}
	rawURL := att.FileURL
	if !strings.HasPrefix(rawURL, "http://") && !strings.HasPrefix(rawURL, "https://") {
		rawURL = c.baseURL + "/" + strings.TrimLeft(rawURL, "/")
	}
	req, err := c.newRequest(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", fmt.Errorf("api.DownloadAttachment: %w", err)
	}
	req.Header.Del("Accept")
	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("api.DownloadAttachment: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("api.DownloadAttachment: %w", &StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(data))})
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("api.DownloadAttachment: %w", err)
	}
	name := safeFileName(att)
	tmp, err := os.CreateTemp(dir, "."+name+".*")
	if err != nil {
		return "", fmt.Errorf("api.DownloadAttachment: %w", err)
	}
	if _, err := io.Copy(tmp, resp.Body); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", fmt.Errorf("api.DownloadAttachment: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("api.DownloadAttachment: %w", err)
	}
	dst := filepath.Join(dir, name)
	if err := os.Rename(tmp.Name(), dst); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("api.DownloadAttachment: %w", err)
	}
	return dst, nil
}

func safeFileName(att model.Attachment) string {
	name := filepath.Base(strings.ReplaceAll(att.FileName, "\\", "/"))
	if name == "." || name == "/" || name == ".." || name == "" {
		name = "attachment-" + att.ID
	}
	return name
}

type forwardAttachmentRequest struct {
	ChannelIDs []string `json:"channel_ids"`
	Message    string   `json:"message,omitempty"`
}

// ForwardAttachment shares a file into other channels with an optional message.
// The result is the backend's success flag.
func (c *Client) ForwardAttachment(ctx context.Context, attachmentID string, targetChannelIDs []string, message string) (bool, error) {
	defer logger.DeferLogDuration("api.ForwardAttachment", time.Now())()
	if len(targetChannelIDs) == 0 {
		return false, fmt.Errorf("api.ForwardAttachment: no target channels")
	}
	req := forwardAttachmentRequest{ChannelIDs: targetChannelIDs, Message: strings.TrimSpace(message)}
	body, err := c.do(ctx, http.MethodPost, "/attachments/"+url.PathEscape(attachmentID)+"/forward", nil, req)
	if err != nil {
		return false, fmt.Errorf("api.ForwardAttachment: %w", err)
	}
	ok, err := decodeOK(body)
	if err != nil {
		return false, fmt.Errorf("api.ForwardAttachment: %w", err)
	}
	return ok, nil
}
