package shell

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestFormat verifies the display form used for Recorder keys and
// error messages.
func TestFormat(t *testing.T) {
	assert.Equal(t, "make", Format("make"))
	assert.Equal(t, "git clone url dir", Format("git", "clone", "url", "dir"))
}

// TestRecorder verifies invocation recording, canned outputs, and
// canned failures.
func TestRecorder(t *testing.T) {
	rec := NewRecorder()
	rec.Outputs["pkg-config --modversion webkit2gtk-4.1"] = "2.44.1"
	rec.Fail["sudo apt-get update"] = errors.New("exit status 100")

	out, err := rec.Output(context.Background(), "", "pkg-config", "--modversion", "webkit2gtk-4.1")
	require.NoError(t, err)
	assert.Equal(t, "2.44.1", out)

	err = rec.Run(context.Background(), "", "sudo", "apt-get", "update")
	assert.Error(t, err)

	require.NoError(t, rec.Run(context.Background(), "/tmp", "make", "-j4"))

	assert.Equal(t, []string{
		"pkg-config --modversion webkit2gtk-4.1",
		"sudo apt-get update",
		"make -j4",
	}, rec.Commands)
}

// TestExec_Run verifies real execution: success, non-zero exit as
// error, and streaming of stdout to the configured writer.
func TestExec_Run(t *testing.T) {
	var out bytes.Buffer
	e := &Exec{Stdout: &out, Stderr: &out}
	ctx := context.Background()

	require.NoError(t, e.Run(ctx, "", "true"))

	err := e.Run(ctx, "", "false")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "false failed")

	require.NoError(t, e.Run(ctx, "", "echo", "hello"))
	assert.Contains(t, out.String(), "hello")
}

// TestExec_Output verifies captured stdout is trimmed and stderr is
// folded into the error on failure.
func TestExec_Output(t *testing.T) {
	e := NewExec()
	ctx := context.Background()

	out, err := e.Output(ctx, "", "echo", "hello")
	require.NoError(t, err)
	assert.Equal(t, "hello", out)

	_, err = e.Output(ctx, "", "sh", "-c", "echo oops >&2; exit 3")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "oops")
}

// TestExec_Dir verifies the working directory is applied.
func TestExec_Dir(t *testing.T) {
	dir := t.TempDir()
	e := NewExec()

	out, err := e.Output(context.Background(), dir, "pwd")
	require.NoError(t, err)
	assert.Equal(t, dir, out)
}
