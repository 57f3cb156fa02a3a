package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrUnexpectedShape is returned when a response matches none of the known envelopes.
var ErrUnexpectedShape = errors.New("unexpected response shape")

// envelope covers the response wrappers the backend and its proxies use:
// {success, data}, {data}, {items}, {success:false, error|message} and
// the rejected-request shape {payload:{message}}.
type envelope struct {
	Success *bool           `json:"success"`
	Data    json.RawMessage `json:"data"`
	Items   json.RawMessage `json:"items"`
	Error   string          `json:"error"`
	Message string          `json:"message"`
	Payload *struct {
		Message string `json:"message"`
	} `json:"payload"`
}

func (e *envelope) failure() error {
	if e.Success != nil && !*e.Success {
		msg := e.Error
		if msg == "" {
			msg = e.Message
		}
		if msg == "" {
			msg = "request failed"
		}
		return errors.New(msg)
	}
	if e.Payload != nil && e.Payload.Message != "" && len(e.Data) == 0 && len(e.Items) == 0 {
		return errors.New(e.Payload.Message)
	}
	return nil
}

func isNull(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) == 0 || bytes.Equal(raw, []byte("null"))
}

// decodeList turns any known list response into []T. An empty or null body is an empty list.
func decodeList[T any](body []byte) ([]T, error) {
	body = bytes.TrimSpace(body)
	if isNull(body) {
		return []T{}, nil
	}
	switch body[0] {
	case '[':
		var out []T
		if err := json.Unmarshal(body, &out); err != nil {
			return nil, err
		}
		return out, nil
	case '{':
	default:
		return nil, ErrUnexpectedShape
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, err
	}
	if err := env.failure(); err != nil {
		return nil, err
	}
	switch {
	case !isNull(env.Data):
		return decodeList[T](env.Data)
	case !isNull(env.Items):
		return decodeList[T](env.Items)
	case env.Data != nil || env.Items != nil:
		return []T{}, nil
	}
	return nil, ErrUnexpectedShape
}

// decodeObject accepts a bare object or one wrapped in {success, data} / {data}.
func decodeObject[T any](body []byte) (T, error) {
	var zero T
	body = bytes.TrimSpace(body)
	if len(body) == 0 || body[0] != '{' {
		return zero, ErrUnexpectedShape
	}
	var env envelope
	if err := json.Unmarshal(body, &env); err == nil {
		if err := env.failure(); err != nil {
			return zero, err
		}
		if !isNull(env.Data) && bytes.HasPrefix(bytes.TrimSpace(env.Data), []byte("{")) {
			body = env.Data
		}
	}
	var out T
	if err := json.Unmarshal(body, &out); err != nil {
		return zero, err
	}
	return out, nil
}

// decodeOK reads a boolean outcome. An empty body or any non-failure envelope is success.
func decodeOK(body []byte) (bool, error) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 || body[0] != '{' {
		return true, nil
	}
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return false, err
	}
	if err := env.failure(); err != nil {
		return false, err
	}
	return true, nil
}

// errorMessage extracts a human-readable message from an error body.
func errorMessage(body []byte) string {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return ""
	}
	if body[0] != '{' {
		return truncate(string(body), 200)
	}
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return truncate(string(body), 200)
	}
	switch {
	case env.Error != "":
		return env.Error
	case env.Message != "":
		return env.Message
	case env.Payload != nil:
		return env.Payload.Message
	}
	return ""
}

func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return fmt.Sprintf("%s...", s[:n])
}
