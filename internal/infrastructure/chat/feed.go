package chat

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"communiconnect/internal/core/domain"
	"communiconnect/internal/core/ports"
	"communiconnect/pkg/utils"

	"go.uber.org/zap"
)

var feedAuthors = []string{"viewer_42", "stream_fan", "night_owl", "first_timer", "lurker_99"}

var feedLines = []string{
	"great stream!",
	"hello from the feed",
	"what camera is that?",
	"audio sounds good today",
	"anyone else lagging?",
	"this is awesome",
}

// SimulatedFeed periodically injects synthetic viewer messages into a
// livestream's chat, keeping demo rooms alive without real traffic.
type SimulatedFeed struct {
	chat     ports.ChatService
	server   *Server
	interval time.Duration
	logger   *zap.SugaredLogger

	mu      sync.Mutex
	cancels map[domain.LivestreamID]context.CancelFunc
}

func NewSimulatedFeed(chat ports.ChatService, server *Server, interval time.Duration, logger *zap.SugaredLogger) *SimulatedFeed {
	if interval <= 0 {
		interval = 15 * time.Second
	}
	return &SimulatedFeed{
		chat:     chat,
		server:   server,
		interval: interval,
		logger:   logger,
		cancels:  make(map[domain.LivestreamID]context.CancelFunc),
	}
}

// Start begins feeding a livestream. Idempotent per stream.
func (f *SimulatedFeed) Start(livestreamID domain.LivestreamID) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, running := f.cancels[livestreamID]; running {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	f.cancels[livestreamID] = cancel
	go f.run(ctx, livestreamID)

	f.logger.Infow("simulated chat feed started",
		"livestream_id", livestreamID, "interval", f.interval)
}

// Stop halts the feed for a livestream.
func (f *SimulatedFeed) Stop(livestreamID domain.LivestreamID) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if cancel, ok := f.cancels[livestreamID]; ok {
		cancel()
		delete(f.cancels, livestreamID)
	}
}

// StopAll halts every running feed.
func (f *SimulatedFeed) StopAll() {
	f.mu.Lock()
	defer f.mu.Unlock()
	for id, cancel := range f.cancels {
		cancel()
		delete(f.cancels, id)
	}
}

func (f *SimulatedFeed) run(ctx context.Context, livestreamID domain.LivestreamID) {
	ticker := time.NewTicker(f.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			msg := &domain.ChatMessage{
				ID:           domain.MessageID(utils.GenerateMessageID()),
				LivestreamID: livestreamID,
				Author:       feedAuthors[rand.Intn(len(feedAuthors))],
				Text:         feedLines[rand.Intn(len(feedLines))],
				Timestamp:    time.Now().UTC(),
			}
			if err := f.chat.Append(ctx, msg); err != nil {
				f.logger.Warnw("failed to append feed message",
					"livestream_id", livestreamID, "error", err)
				continue
			}
			if f.server != nil {
				f.server.BroadcastMessage(livestreamID, msg)
			}
		}
	}
}
