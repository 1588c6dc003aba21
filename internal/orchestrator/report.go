package orchestrator

import (
	"fmt"
	"strings"
	"time"

	"github.com/LexiestLeszek/LocalComputerUse/internal/action"
	"github.com/LexiestLeszek/LocalComputerUse/internal/planner"
)

// StepResult records what happened to one instruction.
type StepResult struct {
	Index       int             `json:"index"`
	Instruction string          `json:"instruction"`
	Action      action.Action   `json:"action"`
	Raw         string          `json:"raw,omitempty"`
	// Captured is the screenshot geometry the model grounded against.
	Captured    action.Geometry `json:"captured"`
	Resolved    action.Resolved `json:"resolved"`
	Success     bool            `json:"success"`
	Reason      string          `json:"reason,omitempty"`
	Err         error           `json:"-"`
	Duration    time.Duration   `json:"duration"`
}

// Report is the outcome of one goal.
type Report struct {
	RunID     string       `json:"run_id"`
	Goal      string       `json:"goal"`
	Plan      planner.Plan `json:"plan"`
	PlanErr   error        `json:"-"`
	Steps     []StepResult `json:"steps"`
	Succeeded int          `json:"succeeded"`
	Failed    int          `json:"failed"`
	Started   time.Time    `json:"started"`
	Finished  time.Time    `json:"finished"`
}

func (r *Report) add(s StepResult) {
	r.Steps = append(r.Steps, s)
	if s.Success {
		r.Succeeded++
	} else {
		r.Failed++
	}
}

// Summary renders the report for a terminal.
func (r *Report) Summary() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Goal: %s\n", r.Goal)
	switch {
	case r.PlanErr != nil:
		fmt.Fprintf(&b, "Planning failed: %v\n", r.PlanErr)
	case len(r.Plan) == 0:
		b.WriteString("The planner returned no steps.\n")
	default:
		fmt.Fprintf(&b, "Plan (%d steps):\n", len(r.Plan))
		for i, s := range r.Plan {
			fmt.Fprintf(&b, "  %d. %s\n", i+1, s)
		}
	}

	for _, s := range r.Steps {
		fmt.Fprintf(&b, "\nStep %d: %s\n", s.Index+1, s.Instruction)
		fmt.Fprintf(&b, "  Parsed action: %s\n", s.Action)
		if s.Success {
			fmt.Fprintf(&b, "  Action executed successfully at %s\n", s.Resolved.Pixel)
			continue
		}
		fmt.Fprintf(&b, "  Failed to execute action (%s)", s.Reason)
		if s.Err != nil {
			fmt.Fprintf(&b, ": %v", s.Err)
		}
		b.WriteByte('\n')
	}

	if skipped := len(r.Plan) - len(r.Steps); skipped > 0 {
		fmt.Fprintf(&b, "\n%d step(s) not attempted.\n", skipped)
	}
	elapsed := r.Finished.Sub(r.Started).Round(time.Millisecond)
	fmt.Fprintf(&b, "\nCompleted: %d succeeded, %d failed in %s [run %s]\n", r.Succeeded, r.Failed, elapsed, r.RunID)
	return b.String()
}
