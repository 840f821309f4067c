package console

import (
	"fmt"
	"io"
	"sort"

	"github.com/charmbracelet/lipgloss"

	"github.com/warden-sh/warden/internal/orchestrate"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true)
	keyStyle    = lipgloss.NewStyle().Faint(true)
)

// WriteRunSummary renders the outcome of one orchestration run: which
// worlds were affected, what happened to each, and whether the update
// itself went through. Every failure names the entity it belongs to.
func WriteRunSummary(w io.Writer, rec *orchestrate.Record) {
	fmt.Fprintln(w, headerStyle.Render(fmt.Sprintf("%s - update run %s", rec.Build, rec.RunID)))

	if len(rec.Affected) == 0 {
		fmt.Fprintln(w, "  no online world runs this build")
	}

	for _, world := range rec.Affected {
		out, ok := rec.StopResults.Get(world)
		switch {
		case !ok:
			// Never reached: an earlier world blocked the stop sequence,
			// this one is still online and untouched.
			fmt.Fprintf(w, "  %s %s\n", keyStyle.Render("not reached:"), world)
		case !out.OK():
			fmt.Fprintf(w, "  %s %s\n", failStyle.Render("stop failed:"),
				fmt.Sprintf("%s (%v)", world, out.Err))
		default:
			fmt.Fprintf(w, "  %s %s\n", okStyle.Render("stopped:"), world)
		}
	}

	switch {
	case rec.BlockedBy != "":
		fmt.Fprintf(w, "  %s world %q refused to stop, the build was not touched\n",
			failStyle.Render("update blocked:"), rec.BlockedBy)
	case rec.UpdateErr != nil:
		fmt.Fprintf(w, "  %s %v\n", failStyle.Render("update failed:"), rec.UpdateErr)
	case rec.UpdateAttempted:
		fmt.Fprintf(w, "  %s\n", okStyle.Render("update complete"))
	}

	for _, world := range rec.Stopped() {
		out, ok := rec.RestartResults.Get(world)
		if !ok {
			continue
		}
		if out.OK() {
			fmt.Fprintf(w, "  %s %s\n", okStyle.Render("restarted:"), world)
		} else {
			fmt.Fprintf(w, "  %s %s (%v)\n", failStyle.Render("restart failed:"), world, out.Err)
		}
	}
}

// WriteOptions renders a named option map with stable key order, used for
// the --configuration printout.
func WriteOptions(w io.Writer, title string, options map[string]string) {
	fmt.Fprintln(w, headerStyle.Render(title))
	if len(options) == 0 {
		fmt.Fprintln(w, "  (empty)")
		return
	}

	keys := make([]string, 0, len(options))
	for k := range options {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		fmt.Fprintf(w, "  %s = %s\n", keyStyle.Render(k), options[k])
	}
}
