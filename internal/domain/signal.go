package domain

import "github.com/pion/webrtc/v4"

// SignalKind enumerates the call-setup hops the relay forwards.
type SignalKind string

const (
	SignalOffer     SignalKind = "offer"
	SignalAnswer    SignalKind = "answer"
	SignalCandidate SignalKind = "candidate"
	SignalEnd       SignalKind = "end"
)

// Envelope is one signaling hop: sender to target, payload opaque.
// It lives for a single relay call and is never persisted. SDP and ICE
// contents are not inspected; the media itself flows peer-to-peer.
type Envelope struct {
	Kind      SignalKind
	Sender    UserID
	Target    UserID
	SDP       *webrtc.SessionDescription
	Candidate *webrtc.ICECandidateInit
}
