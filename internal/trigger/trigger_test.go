package trigger

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/comigor/bad-employee-go/internal/chat"
)

func TestKeywords_ShouldRespond(t *testing.T) {
	k := NewKeywords()

	require.True(t, k.ShouldRespond("I love PERL"))
	require.True(t, k.ShouldRespond("perl"))
	require.True(t, k.ShouldRespond("superlative Perlish code"))
	require.False(t, k.ShouldRespond("I love Python"))
	require.False(t, k.ShouldRespond(""))
}

func TestKeywords_Custom(t *testing.T) {
	k := NewKeywords(" Raku ", "", "COBOL")
	require.True(t, k.ShouldRespond("raku is perl 6"))
	require.True(t, k.ShouldRespond("cobol forever"))
	require.False(t, k.ShouldRespond("plain perl"))
}

func TestMemoryCooldown(t *testing.T) {
	now := time.Unix(1000, 0)
	c := NewMemoryCooldown(time.Minute)
	c.now = func() time.Time { return now }
	ctx := context.Background()

	require.True(t, c.Allow(ctx, 1))
	require.False(t, c.Allow(ctx, 1))
	require.True(t, c.Allow(ctx, 2))

	now = now.Add(time.Minute)
	require.True(t, c.Allow(ctx, 1))
}

type denyAll struct{ calls int }

func (d *denyAll) Allow(context.Context, int64) bool {
	d.calls++
	return false
}

func TestGate(t *testing.T) {
	ctx := context.Background()
	perl := chat.Inbound{AuthorID: 1, Content: "PERL rules"}
	python := chat.Inbound{AuthorID: 1, Content: "python rules"}

	g := Gate{Policy: NewKeywords()}
	require.True(t, g.Allow(ctx, perl))
	require.False(t, g.Allow(ctx, python))

	limiter := &denyAll{}
	g.Limiter = limiter
	require.False(t, g.Allow(ctx, perl))
	require.False(t, g.Allow(ctx, python))
	require.Equal(t, 1, limiter.calls, "limiter only consulted for matching messages")
}

func TestRedisCooldown(t *testing.T) {
	addr := os.Getenv("BAD_EMPLOYEE_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("BAD_EMPLOYEE_TEST_REDIS_ADDR not set")
	}
	ctx := context.Background()
	client, err := NewRedisClient(ctx, addr, "", 0)
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })

	c := NewRedisCooldown(client, time.Second)
	c.prefix = "bad_employee:test:" + time.Now().Format(time.RFC3339Nano) + ":"

	require.True(t, c.Allow(ctx, 7))
	require.False(t, c.Allow(ctx, 7))
	require.True(t, c.Allow(ctx, 8))
}
