package core

import (
	"encoding/json"

	"github.com/bokoth/chatrelay/internal/domain"
)

// Outbound event type tags. Inbound tags live with the ws adapter; these
// are shared because app components construct the events they emit.
const (
	EvReceiveMessage   = "receive_message"
	EvUserStatusUpdate = "user_status_update"
	EvPresenceState    = "presence_state"
	EvWebRTCOffer      = "webrtc_offer"
	EvWebRTCAnswer     = "webrtc_answer"
	EvWebRTCCandidate  = "webrtc_ice_candidate"
	EvWebRTCCallEnded  = "webrtc_call_ended"
	EvError            = "error"
)

const (
	StatusOnline  = "online"
	StatusOffline = "offline"
)

// MessageEvent is the delivered form of a persisted message, pushed to
// the receiver's connections and echoed to the sender's.
type MessageEvent struct {
	Type           string             `json:"type"`
	SenderID       domain.UserID      `json:"sender_id"`
	SenderUsername string             `json:"sender_username,omitempty"`
	ReceiverID     domain.UserID      `json:"receiver_id"`
	Text           string             `json:"message,omitempty"`
	MediaURL       string             `json:"media_url,omitempty"`
	Kind           domain.MessageKind `json:"message_type"`
	Timestamp      string             `json:"timestamp"`
}

// StatusEvent announces one identity's reachability transition.
type StatusEvent struct {
	Type   string        `json:"type"`
	UserID domain.UserID `json:"user_id"`
	Status string        `json:"status"`
}

// PresenceStateEvent is the full online set, pushed once to a newly
// accepted connection so late joiners see who is already here.
type PresenceStateEvent struct {
	Type   string          `json:"type"`
	Online []domain.UserID `json:"online"`
}

// ErrorEvent is the only error surface; it carries no internal state.
type ErrorEvent struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// Encode marshals an event into a Frame. Marshal failures are programmer
// errors (all event types are plain structs), so the frame is simply nil.
func Encode(v any) Frame {
	b, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return Frame(b)
}
