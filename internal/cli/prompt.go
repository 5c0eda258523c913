package cli

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/gookit/color"

	"emacsup/internal/pipeline"
)

// confirmer asks the operator a yes/no question per pipeline step.
// An empty answer defaults to yes; closing stdin cancels the run.
type confirmer struct {
	in *bufio.Reader
}

// newConfirmer creates a confirmer reading answers from r.
// The reader is injected so tests can script the answers.
func newConfirmer(r io.Reader) *confirmer {
	return &confirmer{in: bufio.NewReader(r)}
}

// Confirm implements pipeline.ConfirmFunc. Unrecognized answers
// re-prompt rather than guessing.
func (c *confirmer) Confirm(step pipeline.Step) (bool, error) {
	for {
		color.Bold.Printf("run %s", step.Name)
		fmt.Printf(" — %s? [Y/n]: ", step.Description)

		line, err := c.in.ReadString('\n')
		if err != nil {
			// EOF (Ctrl+D) or a closed pipe: treat as cancellation,
			// not as an implicit yes.
			return false, fmt.Errorf("input closed: %w", err)
		}

		switch strings.ToLower(strings.TrimSpace(line)) {
		case "", "y", "yes":
			return true, nil
		case "n", "no":
			return false, nil
		default:
			color.Warn.Println("please answer y or n")
		}
	}
}
