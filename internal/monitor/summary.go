package monitor

import (
	"fmt"
	"sort"
	"strings"

	"github.com/san-kum/mpm/internal/storage"
)

// Summary renders stored run metadata as a panel.
func Summary(meta *storage.RunMetadata) string {
	var b strings.Builder
	b.WriteString(Title.Render(meta.ID) + "\n")
	b.WriteString(Subtle.Render(meta.Timestamp.Format("2006-01-02 15:04:05")) + "\n\n")

	rows := [][2]string{
		{"scenario", meta.Scenario},
		{"kernel", meta.Kernel},
		{"materials", strings.Join(meta.Materials, ", ")},
		{"dt", fmt.Sprintf("%.4g", meta.Dt)},
		{"final time", fmt.Sprintf("%.4g", meta.FinalTime)},
		{"stopped", meta.Reason},
		{"steps", fmt.Sprintf("%d", meta.Steps)},
		{"time", fmt.Sprintf("%.4g", meta.Time)},
		{"checkpoints", fmt.Sprintf("%d", meta.Checkpoints)},
	}
	names := make([]string, 0, len(meta.Metrics))
	for name := range meta.Metrics {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		rows = append(rows, [2]string{name, fmt.Sprintf("%.6g", meta.Metrics[name])})
	}

	for _, r := range rows {
		b.WriteString(MetricLabel.Render(fmt.Sprintf("%-16s", r[0])) + MetricValue.Render(r[1]) + "\n")
	}
	if meta.Error != "" {
		b.WriteString("\n" + StatusFailed.Render(meta.Error) + "\n")
	}
	return Panel.Render(strings.TrimRight(b.String(), "\n"))
}
