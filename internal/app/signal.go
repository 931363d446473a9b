package app

import (
	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"

	"github.com/bokoth/chatrelay/internal/core"
	"github.com/bokoth/chatrelay/internal/domain"
	"github.com/bokoth/chatrelay/internal/metrics"
)

// SignalRelay forwards call-setup envelopes between two identities.
// It is a dumb pipe: payloads are decoded only far enough to re-tag the
// sender, never interpreted. Nothing is retained between hops.
type SignalRelay struct {
	registry *Registry
}

func NewSignalRelay(registry *Registry) *SignalRelay {
	return &SignalRelay{registry: registry}
}

type sdpEvent struct {
	Type     string                     `json:"type"`
	SenderID domain.UserID              `json:"sender_id"`
	SDP      *webrtc.SessionDescription `json:"sdp"`
}

type candidateEvent struct {
	Type      string                   `json:"type"`
	SenderID  domain.UserID            `json:"sender_id"`
	Candidate *webrtc.ICECandidateInit `json:"ice_candidate"`
}

type callEndedEvent struct {
	Type     string        `json:"type"`
	SenderID domain.UserID `json:"sender_id"`
}

// Forward relays one envelope to every live connection of the target.
// An unreachable target errors back to the sender only; for call-end the
// caller may treat that as advisory.
func (s *SignalRelay) Forward(env domain.Envelope) error {
	if env.Sender == "" {
		return core.ErrUnauthenticated
	}
	if env.Target == "" {
		return core.ErrInvalidPayload
	}

	var event any
	switch env.Kind {
	case domain.SignalOffer:
		if env.SDP == nil {
			return core.ErrInvalidPayload
		}
		event = sdpEvent{Type: core.EvWebRTCOffer, SenderID: env.Sender, SDP: env.SDP}
	case domain.SignalAnswer:
		if env.SDP == nil {
			return core.ErrInvalidPayload
		}
		event = sdpEvent{Type: core.EvWebRTCAnswer, SenderID: env.Sender, SDP: env.SDP}
	case domain.SignalCandidate:
		if env.Candidate == nil {
			return core.ErrInvalidPayload
		}
		event = candidateEvent{Type: core.EvWebRTCCandidate, SenderID: env.Sender, Candidate: env.Candidate}
	case domain.SignalEnd:
		event = callEndedEvent{Type: core.EvWebRTCCallEnded, SenderID: env.Sender}
	default:
		return core.ErrInvalidPayload
	}

	conns := s.registry.Resolve(env.Target)
	if len(conns) == 0 {
		log.Info().Str("module", "app.signal").Str("kind", string(env.Kind)).Str("target", string(env.Target)).Msg("signal target offline")
		return core.ErrTargetUnreachable
	}

	frame := core.Encode(event)
	for _, conn := range conns {
		if err := conn.TrySend(frame); err != nil {
			log.Warn().Err(err).Str("module", "app.signal").Str("target", string(env.Target)).Str("conn", string(conn.ID())).Msg("dropped signal")
		}
	}
	metrics.SignalsRelayed.WithLabelValues(string(env.Kind)).Inc()
	return nil
}
