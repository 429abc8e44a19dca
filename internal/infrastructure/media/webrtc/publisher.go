package webrtc

import (
	"context"
	"fmt"
	"sync"
	"time"

	"communiconnect/internal/core/domain"

	"github.com/pion/rtcp"
	"github.com/pion/rtp"
	"github.com/pion/webrtc/v3"
	"go.uber.org/zap"
)

const (
	rtpClockRateVideo = 90000
	rtpClockRateAudio = 48000
	framesPerSecond   = 30
)

// Config is the WebRTC transport configuration for the broadcast uplink.
type Config struct {
	ICEServers []webrtc.ICEServer
	PortRange  struct {
		Min uint16
		Max uint16
	}
}

// Broadcast is one running uplink: the session's current media handle
// packetized onto local RTP tracks of a peer connection.
type Broadcast struct {
	SessionID    domain.SessionID
	LivestreamID domain.LivestreamID
	PC           *webrtc.PeerConnection
	CreatedAt    time.Time

	cancel context.CancelFunc
}

// PublisherService pushes a session's live tracks to remote viewers over
// WebRTC. The session state machine stays unaware of it; the publisher reads
// whatever frames the current handle delivers and stops when tracks end.
type PublisherService struct {
	config Config
	logger *zap.SugaredLogger

	mu         sync.RWMutex
	broadcasts map[domain.SessionID]*Broadcast

	// keyframeRequested is poked when a viewer sends a PLI; the frame
	// source is expected to emit a keyframe soon after.
	keyframeRequested func(domain.SessionID)
}

func NewPublisherService(config Config, logger *zap.SugaredLogger) *PublisherService {
	return &PublisherService{
		config:     config,
		logger:     logger,
		broadcasts: make(map[domain.SessionID]*Broadcast),
	}
}

// OnKeyframeRequested registers the PLI callback.
func (s *PublisherService) OnKeyframeRequested(fn func(domain.SessionID)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.keyframeRequested = fn
}

// StartBroadcast creates a peer connection carrying the handle's tracks and
// returns the SDP offer for the viewer side. The uplink runs until the handle
// is released or StopBroadcast is called.
func (s *PublisherService) StartBroadcast(
	ctx context.Context,
	sessionID domain.SessionID,
	livestreamID domain.LivestreamID,
	handle *domain.MediaStreamHandle,
) (webrtc.SessionDescription, error) {
	if handle == nil || handle.Simulated() {
		return webrtc.SessionDescription{}, domain.ErrNoSourceBound
	}

	pc, err := s.createPeerConnection()
	if err != nil {
		return webrtc.SessionDescription{}, fmt.Errorf("failed to create peer connection: %w", err)
	}

	runCtx, cancel := context.WithCancel(context.Background())
	broadcast := &Broadcast{
		SessionID:    sessionID,
		LivestreamID: livestreamID,
		PC:           pc,
		CreatedAt:    time.Now(),
		cancel:       cancel,
	}

	for _, track := range handle.Tracks() {
		local, err := s.localTrackFor(track)
		if err != nil {
			cancel()
			pc.Close()
			return webrtc.SessionDescription{}, err
		}
		sender, err := pc.AddTrack(local)
		if err != nil {
			cancel()
			pc.Close()
			return webrtc.SessionDescription{}, fmt.Errorf("failed to add track: %w", err)
		}
		go s.forwardFrames(runCtx, sessionID, track, local)
		go s.readRTCP(runCtx, sessionID, sender)
	}

	pc.OnICEConnectionStateChange(func(state webrtc.ICEConnectionState) {
		s.logger.Infow("broadcast ICE state changed",
			"session_id", sessionID, "ice_state", state)
		if state == webrtc.ICEConnectionStateFailed || state == webrtc.ICEConnectionStateClosed {
			s.StopBroadcast(sessionID)
		}
	})

	s.mu.Lock()
	if old, exists := s.broadcasts[sessionID]; exists {
		old.cancel()
		old.PC.Close()
	}
	s.broadcasts[sessionID] = broadcast
	s.mu.Unlock()

	offer, err := pc.CreateOffer(nil)
	if err != nil {
		s.StopBroadcast(sessionID)
		return webrtc.SessionDescription{}, fmt.Errorf("failed to create offer: %w", err)
	}
	if err := pc.SetLocalDescription(offer); err != nil {
		s.StopBroadcast(sessionID)
		return webrtc.SessionDescription{}, fmt.Errorf("failed to set local description: %w", err)
	}

	s.logger.Infow("broadcast started",
		"session_id", sessionID, "livestream_id", livestreamID,
		"handle_id", handle.ID, "tracks", len(handle.Tracks()))
	return offer, nil
}

// HandleAnswer applies the viewer's SDP answer.
func (s *PublisherService) HandleAnswer(sessionID domain.SessionID, answer webrtc.SessionDescription) error {
	s.mu.RLock()
	broadcast, exists := s.broadcasts[sessionID]
	s.mu.RUnlock()

	if !exists {
		return domain.ErrSessionNotFound
	}
	return broadcast.PC.SetRemoteDescription(answer)
}

// StopBroadcast tears down the uplink for a session. Idempotent.
func (s *PublisherService) StopBroadcast(sessionID domain.SessionID) {
	s.mu.Lock()
	broadcast, exists := s.broadcasts[sessionID]
	if exists {
		delete(s.broadcasts, sessionID)
	}
	s.mu.Unlock()

	if !exists {
		return
	}
	broadcast.cancel()
	if err := broadcast.PC.Close(); err != nil {
		s.logger.Warnw("error closing broadcast peer connection",
			"session_id", sessionID, "error", err)
	}
	s.logger.Infow("broadcast stopped", "session_id", sessionID)
}

// StopAll tears down every running uplink, used on shutdown.
func (s *PublisherService) StopAll() {
	s.mu.Lock()
	broadcasts := s.broadcasts
	s.broadcasts = make(map[domain.SessionID]*Broadcast)
	s.mu.Unlock()

	for id, broadcast := range broadcasts {
		broadcast.cancel()
		if err := broadcast.PC.Close(); err != nil {
			s.logger.Warnw("error closing broadcast peer connection",
				"session_id", id, "error", err)
		}
	}
}

// LivestreamFor reports the livestream a session is currently broadcasting.
func (s *PublisherService) LivestreamFor(sessionID domain.SessionID) (domain.LivestreamID, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	broadcast, exists := s.broadcasts[sessionID]
	if !exists {
		return "", false
	}
	return broadcast.LivestreamID, true
}

func (s *PublisherService) Active(sessionID domain.SessionID) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, exists := s.broadcasts[sessionID]
	return exists
}

func (s *PublisherService) createPeerConnection() (*webrtc.PeerConnection, error) {
	config := webrtc.Configuration{
		ICEServers:   s.config.ICEServers,
		SDPSemantics: webrtc.SDPSemanticsUnifiedPlanWithFallback,
	}

	settingEngine := webrtc.SettingEngine{}
	if s.config.PortRange.Min > 0 && s.config.PortRange.Max > 0 {
		if err := settingEngine.SetEphemeralUDPPortRange(s.config.PortRange.Min, s.config.PortRange.Max); err != nil {
			return nil, fmt.Errorf("invalid UDP port range: %w", err)
		}
	}

	api := webrtc.NewAPI(webrtc.WithSettingEngine(settingEngine))
	return api.NewPeerConnection(config)
}

func (s *PublisherService) localTrackFor(track *domain.Track) (*webrtc.TrackLocalStaticRTP, error) {
	var capability webrtc.RTPCodecCapability
	switch track.Kind {
	case domain.TrackKindAudio:
		capability = webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeOpus}
	default:
		capability = webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeVP8}
	}

	local, err := webrtc.NewTrackLocalStaticRTP(capability, string(track.ID), string(track.Kind))
	if err != nil {
		return nil, fmt.Errorf("failed to create local track: %w", err)
	}
	return local, nil
}

// forwardFrames drains the domain track's frame channel, wraps each frame in
// an RTP packet and writes it to the local track. Ends when the source track
// stops or the broadcast is cancelled.
func (s *PublisherService) forwardFrames(ctx context.Context, sessionID domain.SessionID, src *domain.Track, dst *webrtc.TrackLocalStaticRTP) {
	var (
		seq       uint16
		timestamp uint32
		step      uint32
	)
	switch src.Kind {
	case domain.TrackKindAudio:
		step = rtpClockRateAudio / framesPerSecond
	default:
		step = rtpClockRateVideo / framesPerSecond
	}

	for {
		select {
		case <-ctx.Done():
			return
		case frame, ok := <-src.Frames():
			if !ok {
				s.logger.Debugw("source track ended, stopping forward",
					"session_id", sessionID, "track_id", src.ID)
				return
			}

			packet := &rtp.Packet{
				Header: rtp.Header{
					Version:        2,
					SequenceNumber: seq,
					Timestamp:      timestamp,
					Marker:         true,
				},
				Payload: frame,
			}
			seq++
			timestamp += step

			if err := dst.WriteRTP(packet); err != nil {
				s.logger.Warnw("error writing RTP packet",
					"session_id", sessionID, "track_id", src.ID, "error", err)
			}
		}
	}
}

// readRTCP drains viewer feedback. PLIs trigger the keyframe callback;
// receiver reports are logged for quality visibility.
func (s *PublisherService) readRTCP(ctx context.Context, sessionID domain.SessionID, sender *webrtc.RTPSender) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		packets, _, err := sender.ReadRTCP()
		if err != nil {
			return
		}

		for _, packet := range packets {
			switch p := packet.(type) {
			case *rtcp.PictureLossIndication:
				s.logger.Debugw("received PLI", "session_id", sessionID)
				s.mu.RLock()
				fn := s.keyframeRequested
				s.mu.RUnlock()
				if fn != nil {
					fn(sessionID)
				}
			case *rtcp.ReceiverReport:
				for _, report := range p.Reports {
					if report.FractionLost > 0 {
						s.logger.Debugw("viewer reporting loss",
							"session_id", sessionID,
							"fraction_lost", report.FractionLost,
							"jitter", report.Jitter)
					}
				}
			case *rtcp.TransportLayerNack:
				s.logger.Debugw("received NACK",
					"session_id", sessionID, "nacks", len(p.Nacks))
			}
		}
	}
}
