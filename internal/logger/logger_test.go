package logger

import (
	"bytes"
	"io"
	"log/slog"
	"os"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func restore(t *testing.T) {
	t.Cleanup(func() {
		SetOutput(os.Stdout)
		require.NoError(t, SetFormat("json"))
		SetLevel("info")
	})
}

func TestSetLevel(t *testing.T) {
	t.Cleanup(func() { SetLevel("info") })

	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"WARN":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"bogus":   slog.LevelInfo,
	}
	for in, want := range cases {
		SetLevel(in)
		require.Equal(t, want, levelVar.Level(), in)
	}
}

func TestSetFormat(t *testing.T) {
	restore(t)

	var buf bytes.Buffer
	SetOutput(&buf)
	require.NoError(t, SetFormat("text"))
	L.Info("hello", "k", "v")
	require.Contains(t, buf.String(), "msg=hello k=v")

	require.NoError(t, SetFormat("json"))
	require.Error(t, SetFormat("xml"))
	buf.Reset()
	L.Info("still json")
	require.Contains(t, buf.String(), `"msg":"still json"`)
}

func TestSetOutput(t *testing.T) {
	restore(t)

	var buf bytes.Buffer
	SetOutput(&buf)
	L.Info("hello", "k", "v")
	require.Contains(t, buf.String(), `"msg":"hello"`)
	require.Contains(t, buf.String(), `"k":"v"`)
}

func TestDerivedLoggerFollowsSwap(t *testing.T) {
	restore(t)

	child := L.With("correlation", "abc").WithGroup("req")
	var buf bytes.Buffer
	SetOutput(&buf)
	child.Info("done", "status", 200)

	require.Contains(t, buf.String(), `"correlation":"abc"`)
	require.Contains(t, buf.String(), `"req":{"status":200}`)
}

func TestSwapWhileLogging(t *testing.T) {
	restore(t)
	SetOutput(io.Discard)

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		i := i
		go func() {
			defer wg.Done()
			child := L.With("worker", i)
			for j := 0; j < 200; j++ {
				L.Info("tick", "j", j)
				child.Debug("tock")
			}
		}()
	}
	for i := 0; i < 100; i++ {
		SetOutput(io.Discard)
		if i%2 == 0 {
			require.NoError(t, SetFormat("text"))
		} else {
			require.NoError(t, SetFormat("json"))
		}
	}
	wg.Wait()
}
