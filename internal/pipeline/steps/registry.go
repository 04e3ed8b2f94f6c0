// Package steps provides step definitions and dependency validation for the
// advisory pipeline whose state the custody layer records.
package steps

import (
	"fmt"

	"github.com/jonathan/pathway-advisor/internal/types"
)

// Step categories
const (
	CategoryIntake   = "intake"
	CategoryEvidence = "evidence"
	CategoryAnalysis = "analysis"
	CategoryPlanning = "planning"
	CategoryReview   = "review"
)

// StepDefinition defines metadata for a pipeline step
type StepDefinition struct {
	Name         string
	Category     string
	Dependencies []string
	Optional     []string
	// ArtifactKey is the AgentState field the step is expected to populate.
	ArtifactKey string
}

// StepRegistry holds all step definitions
var StepRegistry = map[string]StepDefinition{
	types.StepRoleIntake: {
		Name:         types.StepRoleIntake,
		Category:     CategoryIntake,
		Dependencies: []string{},
		Optional:     []string{},
		ArtifactKey:  "role_model",
	},
	types.StepEvidenceIngestion: {
		Name:         types.StepEvidenceIngestion,
		Category:     CategoryEvidence,
		Dependencies: []string{},
		Optional:     []string{types.StepRoleIntake},
		ArtifactKey:  "student_model",
	},
	types.StepGapAnalysis: {
		Name:         types.StepGapAnalysis,
		Category:     CategoryAnalysis,
		Dependencies: []string{types.StepRoleIntake, types.StepEvidenceIngestion},
		Optional:     []string{},
		ArtifactKey:  "gap_report",
	},
	types.StepPathwayPlanning: {
		Name:         types.StepPathwayPlanning,
		Category:     CategoryPlanning,
		Dependencies: []string{types.StepGapAnalysis},
		Optional:     []string{},
		ArtifactKey:  "plan",
	},
	types.StepCritique: {
		Name:         types.StepCritique,
		Category:     CategoryReview,
		Dependencies: []string{types.StepPathwayPlanning},
		Optional:     []string{},
		ArtifactKey:  "critique",
	},
	types.StepExplanation: {
		Name:         types.StepExplanation,
		Category:     CategoryReview,
		Dependencies: []string{types.StepCritique},
		Optional:     []string{},
	},
}

// Order is the canonical execution order of the registry.
var Order = []string{
	types.StepRoleIntake,
	types.StepEvidenceIngestion,
	types.StepGapAnalysis,
	types.StepPathwayPlanning,
	types.StepCritique,
	types.StepExplanation,
}

// Known reports whether name is a registered step.
func Known(name string) bool {
	_, ok := StepRegistry[name]
	return ok
}

// DependencyError represents a dependency validation error
type DependencyError struct {
	Step                string
	MissingDependencies []string
}

func (e *DependencyError) Error() string {
	return fmt.Sprintf("missing dependencies: %v", e.MissingDependencies)
}

// ValidateDependencies checks if all required dependencies for a step are completed
func ValidateDependencies(completed map[string]bool, stepName string) error {
	def, ok := StepRegistry[stepName]
	if !ok {
		return fmt.Errorf("unknown step: %s", stepName)
	}

	var missing []string
	for _, dep := range def.Dependencies {
		if !completed[dep] {
			missing = append(missing, dep)
		}
	}

	if len(missing) > 0 {
		return &DependencyError{
			Step:                stepName,
			MissingDependencies: missing,
		}
	}
	return nil
}

// Completed collects the registered steps that have at least one log entry.
// Unknown step names are ignored.
func Completed(entries []types.RunStateEntry) map[string]bool {
	done := make(map[string]bool, len(entries))
	for _, e := range entries {
		if Known(e.Step) {
			done[e.Step] = true
		}
	}
	return done
}

// AvailableSteps returns steps that can be executed (dependencies met), in order
func AvailableSteps(completed map[string]bool) []string {
	var available []string
	for _, name := range Order {
		if completed[name] {
			continue
		}
		if err := ValidateDependencies(completed, name); err != nil {
			continue
		}
		available = append(available, name)
	}
	return available
}

// BlockedSteps returns incomplete steps whose dependencies are not met, in order
func BlockedSteps(completed map[string]bool) []string {
	var blocked []string
	for _, name := range Order {
		if completed[name] {
			continue
		}
		if err := ValidateDependencies(completed, name); err != nil {
			blocked = append(blocked, name)
		}
	}
	return blocked
}

// NextStep returns the first available step, or "" when the pipeline is finished.
func NextStep(completed map[string]bool) string {
	if available := AvailableSteps(completed); len(available) > 0 {
		return available[0]
	}
	return ""
}
