// Package report renders the end-of-run summary: the cloudlet execution
// table and the scaling activity recap, styled for the terminal.
package report

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/google/uuid"

	"github.com/hollenbach/scalesim/internal/controller"
	"github.com/hollenbach/scalesim/internal/event"
	"github.com/hollenbach/scalesim/internal/job"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#A78BFA")).
			MarginBottom(1)

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#F9FAFB"))

	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#10B981"))
	failedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#F87171"))
	cellStyle    = lipgloss.NewStyle().Padding(0, 1)

	borderStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280"))
)

// Report is the rendered outcome of one simulation run.
type Report struct {
	RunID       string
	Stats       controller.Stats
	Completions []job.Completion
	History     []event.CycleCompletedEvent
}

// New assembles a report with a fresh run identifier.
func New(stats controller.Stats, completions []job.Completion, history []event.CycleCompletedEvent) *Report {
	return &Report{
		RunID:       uuid.NewString(),
		Stats:       stats,
		Completions: completions,
		History:     history,
	}
}

// Render produces the full human-readable report.
func (r *Report) Render() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(fmt.Sprintf("Simulation run %s", r.RunID)))
	b.WriteString("\n")
	b.WriteString(r.cloudletTable())
	b.WriteString("\n")
	b.WriteString(r.summary())
	b.WriteString("\n")
	return b.String()
}

// cloudletTable renders one row per completed cloudlet, in completion order.
func (r *Report) cloudletTable() string {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(borderStyle).
		Headers("CLOUDLET", "STATUS", "VM", "TIME", "START", "FINISH").
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle.Padding(0, 1)
			}
			if col == 1 {
				if r.Completions[row].Status == job.StatusSuccess {
					return successStyle.Padding(0, 1)
				}
				return failedStyle.Padding(0, 1)
			}
			return cellStyle
		})

	for _, c := range r.Completions {
		t.Row(
			fmt.Sprintf("%d", c.JobID),
			c.Status.String(),
			fmt.Sprintf("%d", c.VMID),
			fmt.Sprintf("%.2f", c.ExecTime()),
			fmt.Sprintf("%.2f", c.StartTime),
			fmt.Sprintf("%.2f", c.FinishTime),
		)
	}
	return t.Render()
}

// summary renders the scaling recap beneath the cloudlet table.
func (r *Report) summary() string {
	s := r.Stats
	lines := []string{
		fmt.Sprintf("Cycles:          %d", s.Cycles),
		fmt.Sprintf("Scale-ups:       %d", s.ScaleUps),
		fmt.Sprintf("Scale-downs:     %d", s.ScaleDowns),
		fmt.Sprintf("Final pool size: %d", s.FinalPoolSize),
	}
	if s.SampleFailures > 0 {
		lines = append(lines, fmt.Sprintf("Failed samples:  %d", s.SampleFailures))
	}
	if s.FailedSubmits > 0 {
		lines = append(lines, fmt.Sprintf("Failed submits:  %d", s.FailedSubmits))
	}
	if s.FailedRemovals > 0 {
		lines = append(lines, fmt.Sprintf("Failed removals: %d", s.FailedRemovals))
	}
	return headerStyle.Render("Scaling summary") + "\n" + strings.Join(lines, "\n")
}

// jsonReport is the machine-readable shape emitted by JSON.
type jsonReport struct {
	RunID       string              `json:"run_id"`
	Stats       controller.Stats    `json:"stats"`
	Cloudlets   []jsonCloudlet      `json:"cloudlets"`
	CycleCounts []jsonCycleActivity `json:"cycles"`
}

type jsonCloudlet struct {
	ID     int     `json:"id"`
	Status string  `json:"status"`
	VMID   int     `json:"vm_id"`
	Time   float64 `json:"exec_time"`
	Start  float64 `json:"start_time"`
	Finish float64 `json:"finish_time"`
}

type jsonCycleActivity struct {
	Cycle      int `json:"cycle"`
	PoolSize   int `json:"pool_size"`
	ScaleUps   int `json:"scale_ups"`
	ScaleDowns int `json:"scale_downs"`
}

// JSON renders the report as indented JSON for scripted consumers.
func (r *Report) JSON() ([]byte, error) {
	out := jsonReport{
		RunID:       r.RunID,
		Stats:       r.Stats,
		Cloudlets:   make([]jsonCloudlet, 0, len(r.Completions)),
		CycleCounts: make([]jsonCycleActivity, 0, len(r.History)),
	}
	for _, c := range r.Completions {
		out.Cloudlets = append(out.Cloudlets, jsonCloudlet{
			ID:     c.JobID,
			Status: c.Status.String(),
			VMID:   c.VMID,
			Time:   c.ExecTime(),
			Start:  c.StartTime,
			Finish: c.FinishTime,
		})
	}
	for _, h := range r.History {
		out.CycleCounts = append(out.CycleCounts, jsonCycleActivity{
			Cycle:      h.Cycle,
			PoolSize:   h.PoolSize,
			ScaleUps:   h.ScaleUps,
			ScaleDowns: h.ScaleDowns,
		})
	}
	return json.MarshalIndent(out, "", "  ")
}
