package console

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
)

var (
	progressStyle = lipgloss.NewStyle().Faint(true)
	okStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	failStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
)

// DownloadReporter renders build download progress as a single updating
// line. It implements builds.ProgressReporter.
type DownloadReporter struct {
	out         io.Writer
	name        string
	total       int64
	transferred int64
	lastPercent int
}

// NewDownloadReporter creates a reporter writing to out.
func NewDownloadReporter(out io.Writer) *DownloadReporter {
	return &DownloadReporter{out: out}
}

// Begin announces a new transfer. A negative total means the size is
// unknown and only byte counts are shown.
func (r *DownloadReporter) Begin(name string, total int64) {
	r.name = name
	r.total = total
	r.transferred = 0
	r.lastPercent = -1
	fmt.Fprintf(r.out, "%s\n", progressStyle.Render(fmt.Sprintf("downloading %s ...", name)))
}

// Advance reports n additional transferred bytes.
func (r *DownloadReporter) Advance(n int64) {
	r.transferred += n

	if r.total <= 0 {
		fmt.Fprintf(r.out, "\r%s", progressStyle.Render(
			fmt.Sprintf("%s: %s", r.name, formatBytes(r.transferred))))
		return
	}

	percent := int(float64(r.transferred) / float64(r.total) * 100)
	if percent == r.lastPercent {
		return
	}
	r.lastPercent = percent
	fmt.Fprintf(r.out, "\r%s", progressStyle.Render(
		fmt.Sprintf("%s: %3d%% (%s / %s)", r.name, percent,
			formatBytes(r.transferred), formatBytes(r.total))))
}

// Done closes the transfer line.
func (r *DownloadReporter) Done(err error) {
	if err != nil {
		fmt.Fprintf(r.out, "\r%s\n", failStyle.Render(
			fmt.Sprintf("%s: download failed: %v", r.name, err)))
		return
	}
	fmt.Fprintf(r.out, "\r%s\n", okStyle.Render(
		fmt.Sprintf("%s: download complete (%s)", r.name, formatBytes(r.transferred))))
}

func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
