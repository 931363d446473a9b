package ws

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"

	"github.com/bokoth/chatrelay/internal/app"
	"github.com/bokoth/chatrelay/internal/core"
	"github.com/bokoth/chatrelay/internal/domain"
)

// Inbound event type tags.
const (
	evSendMessage     = "send_message"
	evWebRTCOffer     = "webrtc_offer"
	evWebRTCAnswer    = "webrtc_answer"
	evWebRTCCandidate = "webrtc_ice_candidate"
	evWebRTCCallEnd   = "webrtc_call_end"
	evPing            = "ping"
)

func (ctl *Controller) dispatch(ctx context.Context, uid domain.UserID, c *chatConn, data []byte) {
	var env struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		log.Warn().Err(err).Str("module", "ws").Msg("bad json")
		ctl.sendError(c, core.ErrInvalidPayload)
		return
	}

	switch env.Type {
	case evSendMessage:
		ctl.handleSendMessage(ctx, uid, c, data)
	case evWebRTCOffer:
		ctl.handleSDP(uid, c, data, domain.SignalOffer)
	case evWebRTCAnswer:
		ctl.handleSDP(uid, c, data, domain.SignalAnswer)
	case evWebRTCCandidate:
		ctl.handleCandidate(uid, c, data)
	case evWebRTCCallEnd:
		ctl.handleCallEnd(uid, c, data)
	case evPing:
		ctl.handlePing(c)
	default:
		log.Warn().Str("module", "ws").Str("type", env.Type).Msg("unknown event")
	}
}

func (ctl *Controller) sendJSON(c *chatConn, v any) {
	if err := c.TrySend(core.Encode(v)); err != nil {
		log.Warn().Err(err).Str("module", "ws").Str("conn", string(c.ID())).Msg("send dropped")
	}
}

func (ctl *Controller) sendError(c *chatConn, err error) {
	ctl.sendJSON(c, core.ErrorEvent{Type: core.EvError, Message: err.Error()})
}

// relayErr maps component failures onto the error event surface. Only
// the taxonomy errors reach the client; anything else gets a generic
// delivery failure so internals never leak.
func (ctl *Controller) relayErr(c *chatConn, err error) {
	switch {
	case errors.Is(err, core.ErrUnauthenticated),
		errors.Is(err, core.ErrInvalidPayload),
		errors.Is(err, core.ErrTargetUnreachable),
		errors.Is(err, core.ErrDeliveryFailed):
		ctl.sendError(c, err)
	default:
		ctl.sendError(c, core.ErrDeliveryFailed)
	}
}

func (ctl *Controller) handleSendMessage(ctx context.Context, uid domain.UserID, c *chatConn, data []byte) {
	if uid == "" {
		ctl.sendError(c, core.ErrUnauthenticated)
		return
	}
	type sendPayload struct {
		Type       string `json:"type"`
		ReceiverID string `json:"receiver_id" validate:"required"`
		Message    string `json:"message"`
		MediaURL   string `json:"media_url"`
		Kind       string `json:"message_type"`
	}
	var p sendPayload
	if err := json.Unmarshal(data, &p); err != nil {
		log.Warn().Err(err).Str("module", "ws").Msg("bad send payload")
		ctl.sendError(c, core.ErrInvalidPayload)
		return
	}
	if err := ctl.validate.Struct(p); err != nil {
		ctl.sendError(c, core.ErrInvalidPayload)
		return
	}
	if !ctl.limiter.Allow(uid) {
		ctl.sendError(c, errTooManyMessages)
		return
	}

	err := ctl.Relay.Router.Send(ctx, uid, app.SendRequest{
		Receiver: domain.UserID(p.ReceiverID),
		Text:     p.Message,
		MediaURL: p.MediaURL,
		Kind:     domain.MessageKind(p.Kind),
	})
	if err != nil {
		ctl.relayErr(c, err)
	}
}

func (ctl *Controller) handleSDP(uid domain.UserID, c *chatConn, data []byte, kind domain.SignalKind) {
	if uid == "" {
		ctl.sendError(c, core.ErrUnauthenticated)
		return
	}
	type sdpPayload struct {
		Type         string                     `json:"type"`
		TargetUserID string                     `json:"target_user_id" validate:"required"`
		SDP          *webrtc.SessionDescription `json:"sdp" validate:"required"`
	}
	var p sdpPayload
	if err := json.Unmarshal(data, &p); err != nil {
		log.Warn().Err(err).Str("module", "ws").Msg("bad sdp payload")
		ctl.sendError(c, core.ErrInvalidPayload)
		return
	}
	if err := ctl.validate.Struct(p); err != nil {
		ctl.sendError(c, core.ErrInvalidPayload)
		return
	}

	err := ctl.Relay.Signals.Forward(domain.Envelope{
		Kind:   kind,
		Sender: uid,
		Target: domain.UserID(p.TargetUserID),
		SDP:    p.SDP,
	})
	if err != nil {
		ctl.relayErr(c, err)
	}
}

func (ctl *Controller) handleCandidate(uid domain.UserID, c *chatConn, data []byte) {
	if uid == "" {
		ctl.sendError(c, core.ErrUnauthenticated)
		return
	}
	type candidatePayload struct {
		Type         string                   `json:"type"`
		TargetUserID string                   `json:"target_user_id" validate:"required"`
		Candidate    *webrtc.ICECandidateInit `json:"ice_candidate" validate:"required"`
	}
	var p candidatePayload
	if err := json.Unmarshal(data, &p); err != nil {
		log.Warn().Err(err).Str("module", "ws").Msg("bad candidate payload")
		ctl.sendError(c, core.ErrInvalidPayload)
		return
	}
	if err := ctl.validate.Struct(p); err != nil {
		ctl.sendError(c, core.ErrInvalidPayload)
		return
	}

	err := ctl.Relay.Signals.Forward(domain.Envelope{
		Kind:      domain.SignalCandidate,
		Sender:    uid,
		Target:    domain.UserID(p.TargetUserID),
		Candidate: p.Candidate,
	})
	if err != nil {
		ctl.relayErr(c, err)
	}
}

func (ctl *Controller) handleCallEnd(uid domain.UserID, c *chatConn, data []byte) {
	if uid == "" {
		ctl.sendError(c, core.ErrUnauthenticated)
		return
	}
	type callEndPayload struct {
		Type         string `json:"type"`
		TargetUserID string `json:"target_user_id" validate:"required"`
	}
	var p callEndPayload
	if err := json.Unmarshal(data, &p); err != nil {
		log.Warn().Err(err).Str("module", "ws").Msg("bad call end payload")
		ctl.sendError(c, core.ErrInvalidPayload)
		return
	}
	if err := ctl.validate.Struct(p); err != nil {
		ctl.sendError(c, core.ErrInvalidPayload)
		return
	}

	err := ctl.Relay.Signals.Forward(domain.Envelope{
		Kind:   domain.SignalEnd,
		Sender: uid,
		Target: domain.UserID(p.TargetUserID),
	})
	if err != nil {
		ctl.relayErr(c, err)
	}
}

func (ctl *Controller) handlePing(c *chatConn) {
	ctl.sendJSON(c, struct {
		Type string `json:"type"`
	}{Type: "pong"})
}
