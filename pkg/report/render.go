package report

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// Table renders the per-format outcome counts with a totals footer.
func Table(s Summary) string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{"Format", "Succeeded", "Skipped", "Failed"})
	for _, f := range s.Formats {
		tw.AppendRow(table.Row{string(f.Format), f.Counts.Succeeded, f.Counts.Skipped, f.Counts.Failed})
	}
	tw.AppendFooter(table.Row{"Total", s.Totals.Succeeded, s.Totals.Skipped, s.Totals.Failed})

	configs := []table.ColumnConfig{{Number: 1, Align: text.AlignLeft}}
	for i := 2; i <= 4; i++ {
		configs = append(configs, table.ColumnConfig{
			Number:      i,
			Align:       text.AlignRight,
			AlignHeader: text.AlignLeft,
			AlignFooter: text.AlignRight,
		})
	}
	tw.SetColumnConfigs(configs)
	return tw.Render()
}

// ToMarkdown renders a summary as a markdown document.
func ToMarkdown(s Summary) string {
	var sb strings.Builder

	sb.WriteString("# Conversion Report\n\n")
	if s.RunID != "" {
		sb.WriteString(fmt.Sprintf("- **Run:** `%s`\n", s.RunID))
	}
	sb.WriteString(fmt.Sprintf("- **Source:** `%s`\n", s.Source))
	sb.WriteString(fmt.Sprintf("- **Output:** `%s`\n", s.Dest))
	if !s.Started.IsZero() {
		sb.WriteString(fmt.Sprintf("- **Started:** %s\n", s.Started.Format(time.RFC3339)))
	}
	sb.WriteString(fmt.Sprintf("- **Duration:** %s\n", s.Elapsed.Round(time.Millisecond)))
	sb.WriteString(fmt.Sprintf("- **Directories:** %d, **files:** %d, **written:** %s\n\n",
		s.Directories, len(s.Files), humanBytes(s.Bytes)))

	sb.WriteString("## Outcomes\n\n")
	sb.WriteString("| Format | Succeeded | Skipped | Failed |\n")
	sb.WriteString("|--------|----------:|--------:|-------:|\n")
	for _, f := range s.Formats {
		sb.WriteString(fmt.Sprintf("| %s | %d | %d | %d |\n", f.Format, f.Counts.Succeeded, f.Counts.Skipped, f.Counts.Failed))
	}
	sb.WriteString(fmt.Sprintf("| **Total** | %d | %d | %d |\n\n", s.Totals.Succeeded, s.Totals.Skipped, s.Totals.Failed))

	if len(s.Files) > 0 {
		sb.WriteString("## Files\n\n")
		sb.WriteString("| File | Succeeded | Skipped | Failed | Time |\n")
		sb.WriteString("|------|----------:|--------:|-------:|-----:|\n")
		for _, f := range s.Files {
			name := relativeTo(s.Source, f.Source)
			if f.Err != nil {
				name += " (aborted)"
			}
			sb.WriteString(fmt.Sprintf("| `%s` | %d | %d | %d | %s |\n",
				name, f.Counts.Succeeded, f.Counts.Skipped, f.Counts.Failed, f.Elapsed.Round(time.Millisecond)))
		}
		sb.WriteString("\n")
	}

	if len(s.Failures) > 0 {
		sb.WriteString("## Failures\n\n")
		for _, f := range s.Failures {
			target := relativeTo(s.Source, f.Source)
			if f.Task != nil {
				target = fmt.Sprintf("%s → %s", target, filepath.Base(f.Task.Destination()))
			}
			sb.WriteString(fmt.Sprintf("- `%s`: %s\n", target, oneLine(f.Err)))
		}
		sb.WriteString("\n")
	}

	return sb.String()
}

func relativeTo(root, path string) string {
	if root == "" {
		return path
	}
	if rel, err := filepath.Rel(root, path); err == nil && rel != "." && !strings.HasPrefix(rel, "..") {
		return filepath.ToSlash(rel)
	}
	return filepath.Base(path)
}

func oneLine(err error) string {
	if err == nil {
		return "unknown error"
	}
	return strings.Join(strings.Fields(err.Error()), " ")
}

func humanBytes(n int) string {
	const unit = 1024
	if n < unit {
		return strconv.Itoa(n) + " B"
	}
	div, exp := unit, 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
