// Package pipeline implements the ordered step pipeline that drives a
// build run.
//
// A Pipeline is declared once with its full step list; a prerequisite
// check may append further steps before selection. Selection filters the
// declared list down to the steps that will run — by inclusion list, by
// exclusion list, or not at all — and never reorders it. Execution is
// strictly sequential: the first failing step aborts the run.
package pipeline

import (
	"context"
	"fmt"
	"io"
	"strings"

	"emacsup/internal/model"
)

// Step is one named unit of the pipeline. The action carries all side
// effects; the pipeline itself only decides whether and when to call it.
type Step struct {
	// Name uniquely identifies the step for --steps/--skip selection.
	Name string

	// Description is the one-line summary shown before the step runs
	// and in the `steps` listing.
	Description string

	// Action performs the step. A nil Action is a declaration error
	// and fails the step immediately.
	Action func(ctx context.Context) error
}

// ConfirmFunc asks the operator whether a step should run. Returning
// false skips the step without failing the pipeline. An error cancels
// the whole run.
type ConfirmFunc func(step Step) (bool, error)

// Pipeline holds the declared, ordered step list.
type Pipeline struct {
	steps []Step
}

// New creates a Pipeline from the declared steps, in order.
func New(steps ...Step) *Pipeline {
	return &Pipeline{steps: steps}
}

// Append adds a step after the declared ones. Prerequisite checks use
// this to augment the pipeline at startup; it must happen before Select
// so that the new step participates in filtering like any other.
func (p *Pipeline) Append(step Step) {
	p.steps = append(p.steps, step)
}

// Steps returns the declared steps in order.
func (p *Pipeline) Steps() []Step {
	return p.steps
}

// Names returns the declared step names in order.
func (p *Pipeline) Names() []string {
	names := make([]string, 0, len(p.steps))
	for _, s := range p.steps {
		names = append(names, s.Name)
	}
	return names
}

// Select resolves the steps to execute. Exactly one of include/exclude
// may be non-empty; the CLI layer enforces that before calling.
//
// Inclusion runs exactly the named subset, in declaration order — the
// order of the inclusion list itself is irrelevant. A name that matches
// no declared step is a usage error: silently skipping it would turn a
// typo into a partial run. Exclusion runs everything else; unknown
// excluded names are ignored, since excluding a step that does not
// exist is already satisfied.
func (p *Pipeline) Select(include, exclude []string) ([]Step, error) {
	if len(include) > 0 {
		wanted := make(map[string]bool, len(include))
		for _, name := range include {
			wanted[strings.TrimSpace(name)] = true
		}

		var selected []Step
		for _, s := range p.steps {
			if wanted[s.Name] {
				selected = append(selected, s)
				delete(wanted, s.Name)
			}
		}

		if len(wanted) > 0 {
			unknown := make([]string, 0, len(wanted))
			for name := range wanted {
				unknown = append(unknown, name)
			}
			return nil, model.NewCLIError(model.ExitUsageError,
				fmt.Sprintf("unknown step name(s): %s (valid: %s)",
					strings.Join(unknown, ", "), strings.Join(p.Names(), ", ")))
		}
		return selected, nil
	}

	if len(exclude) > 0 {
		skipped := make(map[string]bool, len(exclude))
		for _, name := range exclude {
			skipped[strings.TrimSpace(name)] = true
		}

		var selected []Step
		for _, s := range p.steps {
			if !skipped[s.Name] {
				selected = append(selected, s)
			}
		}
		return selected, nil
	}

	return p.steps, nil
}

// RunOptions controls how Run executes the selected steps.
type RunOptions struct {
	// DryRun reports each step without calling its action.
	DryRun bool

	// Confirm, when non-nil, is asked before every step. A negative
	// answer skips the step; an error cancels the run.
	Confirm ConfirmFunc

	// Out receives the per-step progress lines. Defaults to io.Discard
	// when nil, which the tests rely on.
	Out io.Writer
}

// Run executes the selected steps in order. The first failing step
// aborts the run and its error is returned wrapped with the step name;
// no later step starts. Context cancellation between steps aborts the
// run the same way.
func (p *Pipeline) Run(ctx context.Context, steps []Step, opts RunOptions) error {
	out := opts.Out
	if out == nil {
		out = io.Discard
	}

	total := len(steps)
	for i, step := range steps {
		if err := ctx.Err(); err != nil {
			return model.WrapCLIError(model.ExitGeneralError, "run cancelled", err)
		}

		if opts.DryRun {
			fmt.Fprintf(out, "[%d/%d] would run %s — %s\n", i+1, total, step.Name, step.Description)
			continue
		}

		if opts.Confirm != nil {
			ok, err := opts.Confirm(step)
			if err != nil {
				return model.WrapCLIError(model.ExitUserCancelled, "run cancelled", err)
			}
			if !ok {
				fmt.Fprintf(out, "[%d/%d] skipped %s\n", i+1, total, step.Name)
				continue
			}
		}

		fmt.Fprintf(out, "[%d/%d] %s — %s\n", i+1, total, step.Name, step.Description)

		if step.Action == nil {
			return model.NewCLIError(model.ExitGeneralError,
				fmt.Sprintf("step %q has no action", step.Name))
		}
		if err := step.Action(ctx); err != nil {
			return fmt.Errorf("step %q: %w", step.Name, err)
		}
	}

	return nil
}
