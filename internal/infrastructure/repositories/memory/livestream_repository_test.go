package memory

import (
	"context"
	"testing"
	"time"

	"communiconnect/internal/core/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func stream(id string, active bool, startedAt time.Time) *domain.Livestream {
	return &domain.Livestream{
		ID:        domain.LivestreamID(id),
		Title:     "title-" + id,
		Streamer:  "streamer",
		Active:    active,
		StartedAt: startedAt,
	}
}

func TestLivestreamCreateAndGet(t *testing.T) {
	repo := NewLivestreamRepository()
	ctx := context.Background()

	ls := stream("ls-1", true, time.Now())
	require.NoError(t, repo.Create(ctx, ls))

	got, err := repo.GetByID(ctx, "ls-1")
	require.NoError(t, err)
	assert.Equal(t, ls.Title, got.Title)

	// Stored copy is isolated from caller mutation.
	ls.Title = "mutated"
	got, err = repo.GetByID(ctx, "ls-1")
	require.NoError(t, err)
	assert.Equal(t, "title-ls-1", got.Title)
}

func TestLivestreamGetMissing(t *testing.T) {
	repo := NewLivestreamRepository()
	_, err := repo.GetByID(context.Background(), "nope")
	assert.ErrorIs(t, err, domain.ErrLivestreamNotFound)
}

func TestLivestreamUpdate(t *testing.T) {
	repo := NewLivestreamRepository()
	ctx := context.Background()

	ls := stream("ls-1", true, time.Now())
	require.NoError(t, repo.Create(ctx, ls))

	ls.ViewerCount = 42
	require.NoError(t, repo.Update(ctx, ls))

	got, err := repo.GetByID(ctx, "ls-1")
	require.NoError(t, err)
	assert.Equal(t, 42, got.ViewerCount)

	assert.ErrorIs(t, repo.Update(ctx, stream("nope", true, time.Now())), domain.ErrLivestreamNotFound)
}

func TestLivestreamDelete(t *testing.T) {
	repo := NewLivestreamRepository()
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, stream("ls-1", true, time.Now())))
	require.NoError(t, repo.Delete(ctx, "ls-1"))

	_, err := repo.GetByID(ctx, "ls-1")
	assert.ErrorIs(t, err, domain.ErrLivestreamNotFound)
	assert.ErrorIs(t, repo.Delete(ctx, "ls-1"), domain.ErrLivestreamNotFound)
}

func TestListActiveSortedByStart(t *testing.T) {
	repo := NewLivestreamRepository()
	ctx := context.Background()
	base := time.Now()

	require.NoError(t, repo.Create(ctx, stream("newer", true, base.Add(time.Hour))))
	require.NoError(t, repo.Create(ctx, stream("older", true, base)))
	require.NoError(t, repo.Create(ctx, stream("ended", false, base.Add(-time.Hour))))

	out, err := repo.ListActive(ctx)
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, domain.LivestreamID("older"), out[0].ID)
	assert.Equal(t, domain.LivestreamID("newer"), out[1].ID)
}
