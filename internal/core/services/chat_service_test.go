package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"communiconnect/internal/core/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type fakeChatRepo struct {
	mu        sync.Mutex
	messages  []*domain.ChatMessage
	trimCalls []int
	appendErr error
}

func (r *fakeChatRepo) Append(ctx context.Context, msg *domain.ChatMessage) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.appendErr != nil {
		return r.appendErr
	}
	r.messages = append(r.messages, msg)
	return nil
}

func (r *fakeChatRepo) History(ctx context.Context, livestreamID domain.LivestreamID, limit int) ([]*domain.ChatMessage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if limit > len(r.messages) {
		limit = len(r.messages)
	}
	return r.messages[len(r.messages)-limit:], nil
}

func (r *fakeChatRepo) Trim(ctx context.Context, livestreamID domain.LivestreamID, max int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.trimCalls = append(r.trimCalls, max)
	return nil
}

type fakeChatFeed struct {
	mu        sync.Mutex
	published []*domain.ChatMessage
	err       error
}

func (f *fakeChatFeed) Publish(ctx context.Context, msg *domain.ChatMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.published = append(f.published, msg)
	return nil
}

func newChatFixture(t *testing.T, cfg ChatServiceConfig) (*ChatService, *fakeChatRepo, *fakeChatFeed) {
	t.Helper()
	repo := &fakeChatRepo{}
	feed := &fakeChatFeed{}
	svc := NewChatService(cfg, repo, feed, zaptest.NewLogger(t).Sugar())
	return svc, repo, feed
}

func TestSubmitStoresAndPublishes(t *testing.T) {
	svc, repo, feed := newChatFixture(t, DefaultChatServiceConfig())

	msg, err := svc.Submit(context.Background(), "ls-1", "alice", "  hello world  ")
	require.NoError(t, err)
	require.NotNil(t, msg)

	assert.Equal(t, "hello world", msg.Text)
	assert.Equal(t, "alice", msg.Author)
	assert.Equal(t, domain.LivestreamID("ls-1"), msg.LivestreamID)
	assert.NotEmpty(t, msg.ID)
	assert.False(t, msg.Timestamp.IsZero())

	require.Len(t, repo.messages, 1)
	require.Len(t, feed.published, 1)
	assert.Same(t, msg, feed.published[0])
}

func TestSubmitIgnoresBlankInput(t *testing.T) {
	svc, repo, feed := newChatFixture(t, DefaultChatServiceConfig())

	for _, text := range []string{"", "   ", "\n\t  "} {
		msg, err := svc.Submit(context.Background(), "ls-1", "alice", text)
		require.NoError(t, err)
		assert.Nil(t, msg)
	}
	assert.Empty(t, repo.messages)
	assert.Empty(t, feed.published)
}

func TestSubmitTruncatesLongMessages(t *testing.T) {
	cfg := DefaultChatServiceConfig()
	cfg.MaxMessageLength = 10
	svc, _, _ := newChatFixture(t, cfg)

	msg, err := svc.Submit(context.Background(), "ls-1", "alice", strings.Repeat("x", 50))
	require.NoError(t, err)
	require.NotNil(t, msg)
	assert.Len(t, msg.Text, 10)
}

func TestSubmitRejectsInvalidAuthor(t *testing.T) {
	svc, repo, _ := newChatFixture(t, DefaultChatServiceConfig())

	_, err := svc.Submit(context.Background(), "ls-1", "", "hello")
	require.Error(t, err)
	assert.Empty(t, repo.messages)
}

func TestSubmitRateLimitsPerAuthor(t *testing.T) {
	cfg := DefaultChatServiceConfig()
	cfg.MessagesPerSecond = 1
	cfg.Burst = 2
	svc, _, _ := newChatFixture(t, cfg)

	ctx := context.Background()
	for i := 0; i < 2; i++ {
		_, err := svc.Submit(ctx, "ls-1", "spammer", "msg")
		require.NoError(t, err)
	}
	_, err := svc.Submit(ctx, "ls-1", "spammer", "one too many")
	assert.ErrorIs(t, err, domain.ErrRateLimited)

	// Limiters are per author; others are unaffected.
	_, err = svc.Submit(ctx, "ls-1", "bob", "hello")
	assert.NoError(t, err)
}

func TestAppendTrimsToHistoryLimit(t *testing.T) {
	cfg := DefaultChatServiceConfig()
	cfg.HistoryLimit = 42
	svc, repo, _ := newChatFixture(t, cfg)

	_, err := svc.Submit(context.Background(), "ls-1", "alice", "hello")
	require.NoError(t, err)

	require.Len(t, repo.trimCalls, 1)
	assert.Equal(t, 42, repo.trimCalls[0])
}

func TestAppendSurfacesRepoError(t *testing.T) {
	svc, repo, feed := newChatFixture(t, DefaultChatServiceConfig())
	repo.appendErr = errors.New("store down")

	_, err := svc.Submit(context.Background(), "ls-1", "alice", "hello")
	require.Error(t, err)
	assert.Empty(t, feed.published)
}

func TestAppendToleratesFeedError(t *testing.T) {
	svc, repo, feed := newChatFixture(t, DefaultChatServiceConfig())
	feed.err = errors.New("bus down")

	msg, err := svc.Submit(context.Background(), "ls-1", "alice", "hello")
	require.NoError(t, err)
	require.NotNil(t, msg)
	assert.Len(t, repo.messages, 1)
}

func TestHistoryClampsLimit(t *testing.T) {
	cfg := DefaultChatServiceConfig()
	cfg.HistoryLimit = 3
	svc, _, _ := newChatFixture(t, cfg)

	ctx := context.Background()
	for _, text := range []string{"one", "two", "three", "four"} {
		_, err := svc.Submit(ctx, "ls-1", "alice", text)
		require.NoError(t, err)
	}

	// Requests above the configured limit or non-positive fall back to it.
	for _, limit := range []int{0, -5, 100} {
		msgs, err := svc.History(ctx, "ls-1", limit)
		require.NoError(t, err)
		assert.Len(t, msgs, 3)
	}
}
