package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/fatih/color"
	"gopkg.in/yaml.v3"

	"github.com/olivere/jobqueue/v2/history"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("170"))
	summaryStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("57")).Padding(0, 1)
)

// writeStructured writes v as JSON or YAML. It reports false for any
// other format, leaving the text rendering to the caller.
func writeStructured(w io.Writer, format string, v interface{}) (bool, error) {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return true, enc.Encode(v)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return true, err
		}
		return true, enc.Close()
	default:
		return false, nil
	}
}

// writeRunText prints the per-job report of a run, followed by a summary.
func writeRunText(w io.Writer, run *history.Run) {
	for _, job := range run.Jobs {
		result := job.Value
		if job.Error != "" {
			result = color.RedString("error: %s", job.Error)
		} else if result == "" {
			result = "null"
		}
		fmt.Fprintf(w, "\n%s %s\n", color.New(color.Bold).Sprint(job.ID), job.Name)
		fmt.Fprintf(w, "   result: %s\n", result)
		fmt.Fprintf(w, "   Exec Time(s) = %.0f, Q Time(s) = %.0f\n",
			math.Round(job.ExecSeconds), math.Round(job.QueueSeconds))
	}
	fmt.Fprintf(w, "\nTotal Run Time(s): %v\n", run.Seconds)
	fmt.Fprintln(w, summaryStyle.Render(summaryText(run)))
}

func summaryText(run *history.Run) string {
	var sb strings.Builder
	sb.WriteString(titleStyle.Render("Run " + run.ID))
	sb.WriteString("\n")
	sb.WriteString(fmt.Sprintf("Concurrency: %d\n", run.Concurrency))
	sb.WriteString(color.GreenString("✓ Succeeded: %d", run.Succeeded))
	sb.WriteString("\n")
	sb.WriteString(color.RedString("✗ Failed:    %d", run.Failed))
	return sb.String()
}

// writeRunsText prints one line per run.
func writeRunsText(w io.Writer, runs []*history.Run) {
	if len(runs) == 0 {
		fmt.Fprintln(w, "No runs recorded.")
		return
	}
	header := fmt.Sprintf("%-36s  %-25s  %8s  %4s  %4s", "ID", "STARTED", "SECONDS", "OK", "FAIL")
	fmt.Fprintln(w, color.New(color.Bold).Sprint(header))
	for _, run := range runs {
		fmt.Fprintf(w, "%-36s  %-25s  %8.2f  %4d  %4d\n",
			run.ID, run.Started.Format("2006-01-02T15:04:05Z07:00"), run.Seconds, run.Succeeded, run.Failed)
	}
}
