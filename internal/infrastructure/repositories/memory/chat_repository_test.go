package memory

import (
	"context"
	"fmt"
	"testing"
	"time"

	"communiconnect/internal/core/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chatMsg(id, stream, text string) *domain.ChatMessage {
	return &domain.ChatMessage{
		ID:           domain.MessageID(id),
		LivestreamID: domain.LivestreamID(stream),
		Author:       "alice",
		Text:         text,
		Timestamp:    time.Now().UTC(),
	}
}

func TestChatAppendAndHistory(t *testing.T) {
	repo := NewChatRepository()
	ctx := context.Background()

	require.NoError(t, repo.Append(ctx, chatMsg("m1", "ls-1", "first")))
	require.NoError(t, repo.Append(ctx, chatMsg("m2", "ls-1", "second")))
	require.NoError(t, repo.Append(ctx, chatMsg("m3", "ls-2", "other stream")))

	msgs, err := repo.History(ctx, "ls-1", 10)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "first", msgs[0].Text)
	assert.Equal(t, "second", msgs[1].Text)

	msgs, err = repo.History(ctx, "ls-2", 10)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "other stream", msgs[0].Text)
}

func TestChatHistoryReturnsNewestTail(t *testing.T) {
	repo := NewChatRepository()
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.NoError(t, repo.Append(ctx, chatMsg(fmt.Sprintf("m%d", i), "ls-1", fmt.Sprintf("msg-%d", i))))
	}

	msgs, err := repo.History(ctx, "ls-1", 2)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "msg-3", msgs[0].Text)
	assert.Equal(t, "msg-4", msgs[1].Text)
}

func TestChatHistoryEmptyStream(t *testing.T) {
	repo := NewChatRepository()
	msgs, err := repo.History(context.Background(), "no-such-stream", 10)
	require.NoError(t, err)
	assert.Empty(t, msgs)
}

func TestChatTrimKeepsNewest(t *testing.T) {
	repo := NewChatRepository()
	ctx := context.Background()

	for i := 0; i < 6; i++ {
		require.NoError(t, repo.Append(ctx, chatMsg(fmt.Sprintf("m%d", i), "ls-1", fmt.Sprintf("msg-%d", i))))
	}
	require.NoError(t, repo.Trim(ctx, "ls-1", 3))

	msgs, err := repo.History(ctx, "ls-1", 10)
	require.NoError(t, err)
	require.Len(t, msgs, 3)
	assert.Equal(t, "msg-3", msgs[0].Text)
	assert.Equal(t, "msg-5", msgs[2].Text)
}

func TestChatTrimBelowKeepIsNoop(t *testing.T) {
	repo := NewChatRepository()
	ctx := context.Background()

	require.NoError(t, repo.Append(ctx, chatMsg("m1", "ls-1", "only")))
	require.NoError(t, repo.Trim(ctx, "ls-1", 100))

	msgs, err := repo.History(ctx, "ls-1", 10)
	require.NoError(t, err)
	assert.Len(t, msgs, 1)
}
