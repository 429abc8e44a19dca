package services

import (
	"context"
	"testing"
	"time"

	"communiconnect/internal/core/domain"
	memoryrepo "communiconnect/internal/infrastructure/repositories/memory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func newLivestreamService(t *testing.T) *LivestreamService {
	t.Helper()
	return NewLivestreamService(memoryrepo.NewLivestreamRepository(), zaptest.NewLogger(t).Sugar())
}

func TestCreateLivestream(t *testing.T) {
	svc := newLivestreamService(t)

	ls, err := svc.Create(context.Background(), "Morning show", "alice", "talk")
	require.NoError(t, err)

	assert.NotEmpty(t, ls.ID)
	assert.True(t, ls.Active)
	assert.Equal(t, "Morning show", ls.Title)
	assert.False(t, ls.StartedAt.IsZero())
}

func TestCreateLivestreamValidation(t *testing.T) {
	svc := newLivestreamService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, "", "alice", "talk")
	assert.Error(t, err)
	_, err = svc.Create(ctx, "Title", "", "talk")
	assert.Error(t, err)
}

func TestEndLivestream(t *testing.T) {
	svc := newLivestreamService(t)
	ctx := context.Background()

	ls, err := svc.Create(ctx, "Show", "alice", "talk")
	require.NoError(t, err)
	require.NoError(t, svc.End(ctx, ls.ID))

	got, err := svc.Get(ctx, ls.ID)
	require.NoError(t, err)
	assert.False(t, got.Active)

	list, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestEndMissingLivestream(t *testing.T) {
	svc := newLivestreamService(t)
	assert.ErrorIs(t, svc.End(context.Background(), "nope"), domain.ErrLivestreamNotFound)
}

func TestSetViewerCount(t *testing.T) {
	svc := newLivestreamService(t)
	ctx := context.Background()

	ls, err := svc.Create(ctx, "Show", "alice", "talk")
	require.NoError(t, err)
	require.NoError(t, svc.SetViewerCount(ctx, ls.ID, 17))

	got, err := svc.Get(ctx, ls.ID)
	require.NoError(t, err)
	assert.Equal(t, 17, got.ViewerCount)
}

// countingLivestreamService records how many calls reach the inner service,
// so cache hits are observable.
type countingLivestreamService struct {
	inner     *LivestreamService
	getCalls  int
	listCalls int
}

func (c *countingLivestreamService) Create(ctx context.Context, title, streamer, category string) (*domain.Livestream, error) {
	return c.inner.Create(ctx, title, streamer, category)
}

func (c *countingLivestreamService) Get(ctx context.Context, id domain.LivestreamID) (*domain.Livestream, error) {
	c.getCalls++
	return c.inner.Get(ctx, id)
}

func (c *countingLivestreamService) List(ctx context.Context) ([]*domain.Livestream, error) {
	c.listCalls++
	return c.inner.List(ctx)
}

func (c *countingLivestreamService) End(ctx context.Context, id domain.LivestreamID) error {
	return c.inner.End(ctx, id)
}

func (c *countingLivestreamService) SetViewerCount(ctx context.Context, id domain.LivestreamID, count int) error {
	return c.inner.SetViewerCount(ctx, id, count)
}

func TestCachedServiceServesRepeatReadsFromCache(t *testing.T) {
	counting := &countingLivestreamService{inner: newLivestreamService(t)}
	svc := NewCachedLivestreamService(counting, time.Minute)
	ctx := context.Background()

	ls, err := svc.Create(ctx, "Show", "alice", "talk")
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		_, err := svc.Get(ctx, ls.ID)
		require.NoError(t, err)
	}
	assert.Equal(t, 1, counting.getCalls)

	for i := 0; i < 3; i++ {
		_, err := svc.List(ctx)
		require.NoError(t, err)
	}
	assert.Equal(t, 1, counting.listCalls)
}

func TestCachedServiceInvalidatesOnMutation(t *testing.T) {
	counting := &countingLivestreamService{inner: newLivestreamService(t)}
	svc := NewCachedLivestreamService(counting, time.Minute)
	ctx := context.Background()

	ls, err := svc.Create(ctx, "Show", "alice", "talk")
	require.NoError(t, err)

	_, err = svc.Get(ctx, ls.ID)
	require.NoError(t, err)
	require.NoError(t, svc.End(ctx, ls.ID))

	got, err := svc.Get(ctx, ls.ID)
	require.NoError(t, err)
	assert.False(t, got.Active)
	assert.Equal(t, 2, counting.getCalls)
}
