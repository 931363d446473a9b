package domain

import "time"

// MessageKind tags what the body carries. Text messages may still attach
// a media URL (a caption accompanying an upload sends both).
type MessageKind string

const (
	KindText  MessageKind = "text"
	KindImage MessageKind = "image"
	KindVideo MessageKind = "video"
	KindAudio MessageKind = "audio"
	KindFile  MessageKind = "file"
)

// Message is one persisted direct message. Immutable after construction;
// the timestamp is always server-assigned.
type Message struct {
	Sender    UserID      `json:"sender_id"`
	Receiver  UserID      `json:"receiver_id"`
	Text      string      `json:"message,omitempty"`
	MediaURL  string      `json:"media_url,omitempty"`
	Kind      MessageKind `json:"message_type"`
	CreatedAt time.Time   `json:"created_at"`
}

func NewMessage(sender, receiver UserID, text, mediaURL string, kind MessageKind) *Message {
	if kind == "" {
		kind = KindText
	}
	return &Message{
		Sender:    sender,
		Receiver:  receiver,
		Text:      text,
		MediaURL:  mediaURL,
		Kind:      kind,
		CreatedAt: time.Now().UTC(),
	}
}
