package sudo

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"emacsup/internal/shell"
)

// TestKeepAlive_StopsOnCancel verifies the keep-alive returns nil
// promptly when its context is cancelled — the guarantee the errgroup
// wiring in the run command depends on.
func TestKeepAlive_StopsOnCancel(t *testing.T) {
	rec := shell.NewRecorder()
	keep := NewKeepAliveInterval(rec, 10*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- keep.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err, "cancellation is a clean stop, not an error")
	case <-time.After(time.Second):
		t.Fatal("keep-alive did not stop after cancellation")
	}
}

// TestKeepAlive_RefreshesOnInterval verifies the periodic sudo -nv
// refresh. Running as root the loop idles by design, so the refresh
// assertion only applies to unprivileged runs.
func TestKeepAlive_RefreshesOnInterval(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("running as root: keep-alive idles without refreshing")
	}

	rec := shell.NewRecorder()
	keep := NewKeepAliveInterval(rec, 5*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- keep.Run(ctx) }()

	time.Sleep(40 * time.Millisecond)
	cancel()
	require.NoError(t, <-done)

	require.NotEmpty(t, rec.Commands, "expected at least one refresh")
	for _, cmd := range rec.Commands {
		assert.Equal(t, "sudo -nv", cmd)
	}
}

// TestAuthenticate verifies the one-time credential check. As root the
// call is a no-op; otherwise it must be exactly `sudo -v`.
func TestAuthenticate(t *testing.T) {
	rec := shell.NewRecorder()
	require.NoError(t, Authenticate(context.Background(), rec))

	if os.Geteuid() == 0 {
		assert.Empty(t, rec.Commands)
	} else {
		assert.Equal(t, []string{"sudo -v"}, rec.Commands)
	}
}
