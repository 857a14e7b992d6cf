package socket

import (
	"bytes"
	"encoding/json"
	"errors"
	"strconv"
	"time"
)

var ErrMalformedMessage = errors.New("malformed socket message")

// Message is one JSON object received on a channel. Raw keeps the original
// payload for consumers that need fields not modelled here.
type Message struct {
	Type           string          `json:"type"`
	Title          string          `json:"title,omitempty"`
	Message        string          `json:"message,omitempty"`
	Priority       string          `json:"priority,omitempty"`
	NotificationID string          `json:"notification_id,omitempty"`
	Channel        string          `json:"channel,omitempty"`
	Code           string          `json:"code,omitempty"`
	Data           json.RawMessage `json:"data,omitempty"`
	Timestamp      time.Time       `json:"timestamp"`
	Raw            json.RawMessage `json:"-"`
}

// ParseMessage decodes a socket payload. A payload that is not a JSON object
// with a non-empty "type" is malformed. notification_id may be a string or a
// number.
func ParseMessage(b []byte) (Message, error) {
	var aux struct {
		Type           string          `json:"type"`
		Title          string          `json:"title"`
		Message        string          `json:"message"`
		Priority       string          `json:"priority"`
		NotificationID json.RawMessage `json:"notification_id"`
		Channel        string          `json:"channel"`
		Code           string          `json:"code"`
		Data           json.RawMessage `json:"data"`
		Timestamp      json.RawMessage `json:"timestamp"`
	}
	if err := json.Unmarshal(b, &aux); err != nil {
		return Message{}, errors.Join(ErrMalformedMessage, err)
	}
	if aux.Type == "" {
		return Message{}, ErrMalformedMessage
	}

	msg := Message{
		Type:     aux.Type,
		Title:    aux.Title,
		Message:  aux.Message,
		Priority: aux.Priority,
		Channel:  aux.Channel,
		Code:     aux.Code,
		Data:     aux.Data,
		Raw:      append(json.RawMessage(nil), b...),
	}

	if id := bytes.TrimSpace(aux.NotificationID); len(id) > 0 && !bytes.Equal(id, []byte("null")) {
		var s string
		if err := json.Unmarshal(id, &s); err == nil {
			msg.NotificationID = s
		} else {
			var n json.Number
			if err := json.Unmarshal(id, &n); err != nil {
				return Message{}, errors.Join(ErrMalformedMessage, err)
			}
			msg.NotificationID = n.String()
		}
	}

	if len(aux.Timestamp) > 0 {
		var ts time.Time
		if err := json.Unmarshal(aux.Timestamp, &ts); err == nil {
			msg.Timestamp = ts
		} else {
			var ms int64
			if err := json.Unmarshal(aux.Timestamp, &ms); err == nil {
				msg.Timestamp = time.UnixMilli(ms).UTC()
			}
		}
	}
	return msg, nil
}

// DataString returns a string field from Data, or "" when absent.
func (m Message) DataString(key string) string {
	var data map[string]any
	if len(m.Data) == 0 || json.Unmarshal(m.Data, &data) != nil {
		return ""
	}
	switch v := data[key].(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	}
	return ""
}
