// Package cli — steps.go implements the "emacsup steps" command.
//
// steps prints the declared pipeline, optionally filtered the same way
// a run would be, as text, JSON, or YAML. It never executes anything
// and never touches the config file — it describes the tool, not a
// particular machine.
package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"emacsup/internal/builder"
	"emacsup/internal/configure"
	"emacsup/internal/model"
	"emacsup/internal/pipeline"
)

// stepsFlags holds the flag values for the steps command.
type stepsFlags struct {
	steps   string // --steps: resolve this inclusion list
	skip    string // --skip: resolve this exclusion list
	options string // --options: configure overrides to merge
	prefix  string // --prefix: prefix shown in the configure args
	yamlOut bool   // --yaml: YAML output
}

// NewStepsCommand creates the "steps" cobra command.
// It is called from NewRootCommand to register as a subcommand.
func NewStepsCommand() *cobra.Command {
	flags := &stepsFlags{}

	cmd := &cobra.Command{
		Use:   "steps",
		Short: "Show the pipeline steps and the plan a run would use",
		Long: `Show the declared pipeline steps in execution order, together with the
configure options that would be passed to the build.

With --steps or --skip, the listing is filtered exactly like a run,
which makes this the way to check a selection before committing to it.

Examples:
  emacsup steps
  emacsup steps --skip install-deps
  emacsup steps --options --without-xwidgets --yaml`,

		Args: cobra.NoArgs,

		RunE: func(cmd *cobra.Command, args []string) error {
			return runSteps(flags)
		},
	}

	cmd.Flags().StringVar(&flags.steps, "steps", "", "Comma-separated list of steps to run exclusively")
	cmd.Flags().StringVar(&flags.skip, "skip", "", "Comma-separated list of steps to skip")
	cmd.Flags().StringVar(&flags.options, "options", "", "Comma-separated configure option overrides")
	cmd.Flags().StringVar(&flags.prefix, "prefix", model.DefaultPrefix, "Installation prefix shown in the configure args")
	cmd.Flags().BoolVar(&flags.yamlOut, "yaml", false, "Output the plan as YAML")

	return cmd
}

// runSteps is the main logic function for the steps command.
func runSteps(flags *stepsFlags) error {
	if flags.steps != "" && flags.skip != "" {
		return model.NewCLIError(model.ExitUsageError,
			"--steps and --skip are mutually exclusive")
	}

	merged := configure.Merge(configure.Defaults(), configure.ParseList(flags.options))

	// A throwaway builder declares the steps; no runner is needed
	// because nothing executes. The conditional fix-xwidgets step is
	// absent here by design: whether it exists depends on the machine
	// a real run happens on.
	cfg := model.BuildConfig{
		Prefix:           flags.prefix,
		ConfigureOptions: configure.Strings(merged),
	}
	b := builder.New(cfg, nil)
	pipe := pipeline.New(b.Steps()...)

	selected, err := pipe.Select(splitList(flags.steps), splitList(flags.skip))
	if err != nil {
		return err
	}

	plan := pipeline.BuildPlan(selected, b.ConfigureArgs())

	switch {
	case flags.yamlOut:
		data, err := yaml.Marshal(plan)
		if err != nil {
			return model.WrapCLIError(model.ExitGeneralError, "cannot marshal plan", err)
		}
		fmt.Print(string(data))
	case IsJSONOutput():
		data, _ := json.MarshalIndent(plan, "", "  ")
		fmt.Println(string(data))
	default:
		printPlanText(plan)
	}

	return nil
}

// printPlanText outputs the plan as a human-readable listing.
func printPlanText(plan pipeline.Plan) {
	fmt.Fprintln(os.Stdout, "Steps:")
	for i, s := range plan.Steps {
		fmt.Fprintf(os.Stdout, "  %d. %-18s %s\n", i+1, s.Name, s.Description)
	}
	fmt.Fprintln(os.Stdout)
	fmt.Fprintln(os.Stdout, "Configure options:")
	for _, opt := range plan.ConfigureOptions {
		fmt.Fprintf(os.Stdout, "  %s\n", opt)
	}
}
