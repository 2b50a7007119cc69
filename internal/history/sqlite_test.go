package history

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// fakeClock hands out increasing instants so tests control "now".
type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time { return c.t }

func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestStore(t *testing.T) (*SQLiteStore, *fakeClock) {
	t.Helper()
	s, err := OpenSQLite(filepath.Join(t.TempDir(), "history.db"), 5*time.Second)
	require.NoError(t, err)
	t.Cleanup(s.Close)

	clock := &fakeClock{t: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
	s.now = clock.now
	require.NoError(t, s.EnsureSchema(context.Background()))
	return s, clock
}

func TestSQLiteStore_AppendThenQuery(t *testing.T) {
	ctx := context.Background()
	s, clock := newTestStore(t)

	require.NoError(t, s.Append(ctx, ChatMessage{AuthorID: 42, ChannelName: "general", Content: "first"}))
	clock.advance(time.Second)
	require.NoError(t, s.Append(ctx, ChatMessage{AuthorID: 7, ChannelName: "general", Content: "someone else"}))
	clock.advance(time.Second)
	require.NoError(t, s.Append(ctx, ChatMessage{AuthorID: 42, ChannelName: "random", Content: "second"}))

	got := s.Query(ctx, 42, 0)
	require.Len(t, got, 2)
	require.Equal(t, "first", got[0].Content)
	require.Equal(t, "general", got[0].ChannelName)
	require.Equal(t, "second", got[1].Content)
	require.Equal(t, "random", got[1].ChannelName)
	require.True(t, got[0].Timestamp.Before(got[1].Timestamp))
	require.Less(t, got[0].ID, got[1].ID)
	require.Equal(t, int64(42), got[1].AuthorID)
}

func TestSQLiteStore_QueryOrdersTiesByID(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)

	for _, c := range []string{"a", "b", "c"} {
		require.NoError(t, s.Append(ctx, ChatMessage{AuthorID: 1, ChannelName: "x", Content: c}))
	}

	got := s.Query(ctx, 1, -5*time.Second)
	require.Len(t, got, 3)
	require.Equal(t, []string{"a", "b", "c"}, []string{got[0].Content, got[1].Content, got[2].Content})
}

func TestSQLiteStore_QueryWindow(t *testing.T) {
	ctx := context.Background()
	s, clock := newTestStore(t)

	require.NoError(t, s.Append(ctx, ChatMessage{AuthorID: 1, ChannelName: "c", Content: "old"}))
	clock.advance(2 * time.Hour)
	require.NoError(t, s.Append(ctx, ChatMessage{AuthorID: 1, ChannelName: "c", Content: "recent"}))
	clock.advance(10 * time.Minute)

	got := s.Query(ctx, 1, time.Hour)
	require.Len(t, got, 1)
	require.Equal(t, "recent", got[0].Content)

	// Exactly on the boundary is still included.
	got = s.Query(ctx, 1, 10*time.Minute)
	require.Len(t, got, 1)

	require.Len(t, s.Query(ctx, 1, 0), 2)
	require.Len(t, s.Query(ctx, 1, 3*time.Hour), 2)
}

func TestSQLiteStore_QueryUnknownAuthor(t *testing.T) {
	s, _ := newTestStore(t)
	got := s.Query(context.Background(), 999, 0)
	require.NotNil(t, got)
	require.Empty(t, got)
}

func TestSQLiteStore_ChannelNameClamped(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)

	long := strings.Repeat("é", 80)
	require.NoError(t, s.Append(ctx, ChatMessage{AuthorID: 3, ChannelName: long, Content: "hi"}))

	got := s.Query(ctx, 3, 0)
	require.Len(t, got, 1)
	require.Equal(t, maxChannelLen, len([]rune(got[0].ChannelName)))
}

func TestSQLiteStore_SchemaIdempotentAndPurge(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)

	require.NoError(t, s.EnsureSchema(ctx))
	exists, err := s.TableExists(ctx)
	require.NoError(t, err)
	require.True(t, exists)

	require.NoError(t, s.Append(ctx, ChatMessage{AuthorID: 5, ChannelName: "c", Content: "bye"}))
	require.NoError(t, s.Purge(ctx))
	require.Empty(t, s.Query(ctx, 5, 0))

	exists, err = s.TableExists(ctx)
	require.NoError(t, err)
	require.True(t, exists)
}

func TestSQLiteStore_FailuresDegrade(t *testing.T) {
	ctx := context.Background()
	s, err := OpenSQLite(filepath.Join(t.TempDir(), "history.db"), time.Second)
	require.NoError(t, err)
	s.Close()

	err = s.Append(ctx, ChatMessage{AuthorID: 1, ChannelName: "c", Content: "lost"})
	var storeErr *StoreError
	require.True(t, errors.As(err, &storeErr))
	require.Equal(t, "append", storeErr.Op)

	got := s.Query(ctx, 1, 0)
	require.NotNil(t, got)
	require.Empty(t, got)
}

func TestSQLiteStore_MissingTableIsWriteError(t *testing.T) {
	ctx := context.Background()
	s, err := OpenSQLite(filepath.Join(t.TempDir(), "history.db"), time.Second)
	require.NoError(t, err)
	t.Cleanup(s.Close)

	exists, err := s.TableExists(ctx)
	require.NoError(t, err)
	require.False(t, exists)

	require.Error(t, s.Append(ctx, ChatMessage{AuthorID: 1, ChannelName: "c", Content: "x"}))
	require.Empty(t, s.Query(ctx, 1, 0))
}

func TestOpenSQLite_PathWithURICharacters(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "odd?name#1.db")

	s, err := OpenSQLite(path, 5*time.Second)
	require.NoError(t, err)
	t.Cleanup(s.Close)

	ctx := context.Background()
	require.NoError(t, s.EnsureSchema(ctx))
	require.NoError(t, s.Append(ctx, ChatMessage{AuthorID: 7, ChannelName: "general", Content: "perl"}))
	require.Len(t, s.Query(ctx, 7, 0), 1)

	require.FileExists(t, path)
	require.NoFileExists(t, filepath.Join(dir, "odd"))
}

func TestSQLiteDSN(t *testing.T) {
	require.Equal(t, "file:history.db?_pragma=busy_timeout(10000)", sqliteDSN("history.db"))
	require.Equal(t, "file:/tmp/a%3Fb%23c.db?_pragma=busy_timeout(10000)", sqliteDSN("/tmp/a?b#c.db"))
}
