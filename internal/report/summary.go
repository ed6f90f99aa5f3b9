package report

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/hochfrequenz/branch-eval/internal/domain"
)

var (
	headerStyle = lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("205")).
		Padding(0, 1)

	cellStyle = lipgloss.NewStyle().Padding(0, 1)

	borderStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))

	passStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	failStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	mutedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
)

// Summary renders records as a table followed by a totals line
func Summary(w io.Writer, records []domain.Record) error {
	rows := make([][]string, 0, len(records))
	for i, rec := range records {
		rows = append(rows, []string{
			fmt.Sprint(i),
			rec.Branch,
			rec.ID,
			mark(rec.Compile),
			mark(rec.Test),
			stageCell(rec),
		})
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(borderStyle).
		Headers("#", "BRANCH", "ID", "COMPILE", "TEST", "STAGE").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})

	if _, err := fmt.Fprintln(w, t.Render()); err != nil {
		return err
	}
	_, err := fmt.Fprintln(w, Totals(records))
	return err
}

// Totals returns a one-line count of candidates, builds and passes
func Totals(records []domain.Record) string {
	var run domain.Run
	run.Tally(records)
	return fmt.Sprintf("%d candidates | %d compiled | %d passed",
		run.Candidates, run.Compiled, run.Passed)
}

func mark(ok bool) string {
	if ok {
		return passStyle.Render("yes")
	}
	return failStyle.Render("no")
}

func stageCell(rec domain.Record) string {
	switch {
	case rec.Failed != domain.StageNone:
		return failStyle.Render("failed at " + string(rec.Failed))
	case rec.Completed():
		return passStyle.Render("done")
	case rec.Reached == domain.StageNone:
		return mutedStyle.Render("-")
	default:
		return mutedStyle.Render("reached " + string(rec.Reached))
	}
}
