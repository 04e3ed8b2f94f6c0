// Package observability provides formatted output utilities for verbose CLI mode.
package observability

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/jonathan/pathway-advisor/internal/custody"
	"github.com/jonathan/pathway-advisor/internal/pipeline/steps"
	"github.com/jonathan/pathway-advisor/internal/types"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 60
	// maxItemsToShow is the default number of items to display in lists
	maxItemsToShow = 5
	// timeLayout is used for entry timestamps
	timeLayout = "2006-01-02 15:04:05"
)

// Printer handles formatted output for verbose mode
type Printer struct {
	out io.Writer
}

// NewPrinter creates a new Printer that writes to the given writer
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// printBox prints a formatted box with a title and content
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, title)
	fmt.Fprintf(p.out, "├%s┤\n", border)

	lines := strings.Split(content, "\n")
	for _, line := range lines {
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, clip(line, boxWidth-4))
	}

	fmt.Fprintf(p.out, "└%s┘\n", border)
}

// clip shortens s to limit runes, marking the cut with "..."
func clip(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit-3]) + "..."
}

// PrintRunProgress outputs where a run stands in the pipeline.
func (p *Printer) PrintRunProgress(progress *custody.RunProgress) {
	if progress == nil || progress.Run == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Run:      %s\n", progress.Run.ID))
	sb.WriteString(fmt.Sprintf("Role:     %s\n", progress.Run.DesiredRole))
	sb.WriteString(fmt.Sprintf("Status:   %s\n", progress.Run.Status))
	sb.WriteString(fmt.Sprintf("Entries:  %d\n", progress.Entries))
	sb.WriteString("\n")

	done := make(map[string]bool, len(progress.Completed))
	for _, name := range progress.Completed {
		done[name] = true
	}
	blocked := make(map[string]bool, len(progress.Blocked))
	for _, name := range progress.Blocked {
		blocked[name] = true
	}

	sb.WriteString("Steps:\n")
	for _, name := range steps.Order {
		mark := "○"
		switch {
		case done[name]:
			mark = "✓"
		case name == progress.NextStep:
			mark = "▶"
		case blocked[name]:
			mark = "·"
		}
		sb.WriteString(fmt.Sprintf("  %s %s\n", mark, name))
	}

	if progress.Latest != nil {
		sb.WriteString(fmt.Sprintf("\nLatest:   #%d %s at %s", progress.Latest.Seq, progress.Latest.Step,
			progress.Latest.CreatedAt.Format(timeLayout)))
	} else {
		sb.WriteString("\nLatest:   (no entries yet)")
	}

	p.printBox("RUN PROGRESS", sb.String())
}

// PrintHistory outputs the run state log, oldest first.
func (p *Printer) PrintHistory(entries []types.RunStateEntry) {
	if len(entries) == 0 {
		p.printBox("RUN STATE HISTORY", "(no entries yet)")
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d entries:\n\n", len(entries)))
	for i, e := range entries {
		sb.WriteString(fmt.Sprintf("#%-4d %-20s %s\n", e.Seq, e.Step, e.CreatedAt.Format(timeLayout)))
		if keys := stateKeys(e.State); keys != "" {
			sb.WriteString(fmt.Sprintf("      keys: %s\n", keys))
		}
		if e.ContainsFreeText {
			sb.WriteString("      contains free text\n")
		}
		if i < len(entries)-1 {
			sb.WriteString("\n")
		}
	}

	p.printBox("RUN STATE HISTORY", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintEntry outputs one log entry and any artifacts it carries.
func (p *Printer) PrintEntry(entry *types.RunStateEntry) {
	if entry == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Entry:    %s\n", entry.ID))
	sb.WriteString(fmt.Sprintf("Step:     %s\n", entry.Step))
	sb.WriteString(fmt.Sprintf("Seq:      %d\n", entry.Seq))
	sb.WriteString(fmt.Sprintf("Created:  %s\n", entry.CreatedAt.Format(timeLayout)))
	if keys := stateKeys(entry.State); keys != "" {
		sb.WriteString(fmt.Sprintf("Keys:     %s", keys))
	} else {
		sb.WriteString("Keys:     (empty)")
	}
	p.printBox("RUN STATE ENTRY", sb.String())

	state, err := types.FromPayload[types.AgentState](entry.State)
	if err != nil {
		return
	}
	p.PrintGapReport(state.GapReport)
	p.PrintCareerPlan(state.Plan)
}

// PrintGapReport outputs the gaps found by gap analysis.
func (p *Printer) PrintGapReport(report *types.GapReport) {
	if report == nil || len(report.Gaps) == 0 {
		return
	}

	var sb strings.Builder
	if report.Summary != "" {
		sb.WriteString(report.Summary + "\n\n")
	}

	gaps := make([]types.GapItem, len(report.Gaps))
	copy(gaps, report.Gaps)
	sort.SliceStable(gaps, func(i, j int) bool {
		return gaps[i].TargetPriority > gaps[j].TargetPriority
	})

	count := min(len(gaps), maxItemsToShow)
	for i := 0; i < count; i++ {
		g := gaps[i]
		sb.WriteString(fmt.Sprintf("• %s (%s, %s, P%d)\n", g.Label, g.Category, g.GapType, g.TargetPriority))
	}
	if len(gaps) > maxItemsToShow {
		sb.WriteString(fmt.Sprintf("  ... and %d more\n", len(gaps)-maxItemsToShow))
	}

	p.printBox("GAP REPORT", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintCareerPlan outputs the plan's milestones.
func (p *Printer) PrintCareerPlan(plan *types.CareerPlan) {
	if plan == nil || len(plan.Milestones) == 0 {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Timeline: %d weeks\n\n", plan.TimelineWeeks))

	count := min(len(plan.Milestones), maxItemsToShow)
	for i := 0; i < count; i++ {
		m := plan.Milestones[i]
		sb.WriteString(fmt.Sprintf("%d. %s (%dw)\n", i+1, m.Title, m.Weeks))
		sb.WriteString(fmt.Sprintf("   → %s\n", m.Outcome))
	}
	if len(plan.Milestones) > maxItemsToShow {
		sb.WriteString(fmt.Sprintf("... and %d more milestones\n", len(plan.Milestones)-maxItemsToShow))
	}

	if len(plan.Risks) > 0 {
		sb.WriteString("\nRisks:\n")
		count := min(len(plan.Risks), 3)
		for i := 0; i < count; i++ {
			sb.WriteString(fmt.Sprintf("  ⚠ %s\n", plan.Risks[i]))
		}
	}

	p.printBox("CAREER PLAN", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintEvidenceItems outputs items after consent filtering.
func (p *Printer) PrintEvidenceItems(items []types.EvidenceItem) {
	if len(items) == 0 {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d items:\n\n", len(items)))

	count := min(len(items), maxItemsToShow)
	for i := 0; i < count; i++ {
		item := items[i]
		sb.WriteString(fmt.Sprintf("• [%s] %s (%.2f)\n", item.ItemType, item.Label, item.Confidence))
		if item.Snippet != nil {
			sb.WriteString(fmt.Sprintf("  \"%s\"\n", *item.Snippet))
		}
	}
	if len(items) > maxItemsToShow {
		sb.WriteString(fmt.Sprintf("... and %d more items\n", len(items)-maxItemsToShow))
	}

	p.printBox("EVIDENCE ITEMS", strings.TrimSuffix(sb.String(), "\n"))
}

func stateKeys(state map[string]any) string {
	if len(state) == 0 {
		return ""
	}
	keys := make([]string, 0, len(state))
	for k := range state {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return strings.Join(keys, ", ")
}
