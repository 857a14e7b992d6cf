package realtime

import (
	"encoding/json"
	"time"
)

// Channels a client may subscribe to at /ws/:channel.
const (
	ChannelNotifications = "notifications"
	ChannelAdmin         = "admin"
)

// Event types pushed to clients.
const (
	EventConnectionEstablished      = "connection_established"
	EventAdminConnectionEstablished = "admin_connection_established"
	EventNotification               = "notification"
	EventAdminRequestSubmitted      = "admin_request_submitted"
	EventAdminRequestStatusUpdate   = "admin_request_status_update"
	EventAdminPrivilegesGranted     = "admin_privileges_granted"
	EventDocumentUploaded           = "document_uploaded"
	EventEmailVerificationUpdate    = "email_verification_update"
	EventSubscribed                 = "subscribed"
	EventPong                       = "pong"
	EventError                      = "error"
)

// Event is the JSON object written to a socket. Only Type is mandatory.
type Event struct {
	Type           string    `json:"type"`
	Title          string    `json:"title,omitempty"`
	Message        string    `json:"message,omitempty"`
	Priority       string    `json:"priority,omitempty"`
	NotificationID string    `json:"notification_id,omitempty"`
	Channel        string    `json:"channel,omitempty"`
	Code           string    `json:"code,omitempty"`
	Data           any       `json:"data,omitempty"`
	Timestamp      time.Time `json:"timestamp"`
}

// Envelope routes an encoded event through a Broker. UserID 0 means every
// subscriber of the channel.
type Envelope struct {
	Channel string          `json:"channel"`
	UserID  int64           `json:"user_id,omitempty"`
	Event   json.RawMessage `json:"event"`
}

func NewEnvelope(channel string, userID int64, ev Event) (Envelope, error) {
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now().UTC()
	}
	raw, err := json.Marshal(ev)
	if err != nil {
		return Envelope{}, err
	}
	return Envelope{Channel: channel, UserID: userID, Event: raw}, nil
}

func handshakeFor(channel string) Event {
	t := EventConnectionEstablished
	if channel == ChannelAdmin {
		t = EventAdminConnectionEstablished
	}
	return Event{Type: t, Channel: channel, Timestamp: time.Now().UTC()}
}

// clientMessage is what clients send to the server.
type clientMessage struct {
	Type    string `json:"type"`
	Channel string `json:"channel,omitempty"`
}
