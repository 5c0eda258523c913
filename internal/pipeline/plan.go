package pipeline

// Plan is the serializable description of what a run would do: the
// resolved step sequence and the merged configure option list. Dry runs
// and the `steps` command report it; the YAML form exists so CI jobs
// can diff the plan of a pending invocation.
type Plan struct {
	// Steps is the resolved step sequence, post selection filtering.
	Steps []PlanStep `json:"steps" yaml:"steps"`

	// ConfigureOptions is the merged option list as passed to
	// configure, including the --prefix flag.
	ConfigureOptions []string `json:"configureOptions" yaml:"configureOptions"`
}

// PlanStep is one step in a Plan.
type PlanStep struct {
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description" yaml:"description"`
}

// BuildPlan assembles a Plan from the resolved steps and the final
// configure arguments.
func BuildPlan(steps []Step, configureArgs []string) Plan {
	plan := Plan{
		Steps:            make([]PlanStep, 0, len(steps)),
		ConfigureOptions: configureArgs,
	}
	for _, s := range steps {
		plan.Steps = append(plan.Steps, PlanStep{Name: s.Name, Description: s.Description})
	}
	return plan
}
