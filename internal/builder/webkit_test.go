package builder

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"emacsup/internal/shell"
)

// TestNeedsCompositingFix covers the version boundary: the DMA-BUF
// renderer shipped in 2.42, so everything from there up is affected.
func TestNeedsCompositingFix(t *testing.T) {
	tests := []struct {
		version  string
		affected bool
	}{
		{"2.40.5", false},
		{"2.41.90", false},
		{"2.42.0", true},
		{"2.44.1", true},
		{"3.0.1", true},
		{"1.10.2", false},
		{"2.42", true},
		{"garbage", true}, // unparseable: assume affected
		{"", true},
	}

	for _, tt := range tests {
		t.Run(tt.version, func(t *testing.T) {
			assert.Equal(t, tt.affected, NeedsCompositingFix(tt.version))
		})
	}
}

// TestWebKitVersion verifies the pkg-config invocation and that a
// missing development package surfaces as an error.
func TestWebKitVersion(t *testing.T) {
	rec := shell.NewRecorder()
	rec.Outputs["pkg-config --modversion webkit2gtk-4.1"] = "2.44.1"

	version, err := WebKitVersion(context.Background(), rec)
	require.NoError(t, err)
	assert.Equal(t, "2.44.1", version)
	assert.Equal(t, []string{"pkg-config --modversion webkit2gtk-4.1"}, rec.Commands)

	rec = shell.NewRecorder()
	rec.Fail["pkg-config --modversion webkit2gtk-4.1"] = errors.New("not found")

	_, err = WebKitVersion(context.Background(), rec)
	assert.Error(t, err)
}
