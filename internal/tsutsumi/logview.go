package tsutsumi

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
	"golang.org/x/term"
)

// logSection is one titled chunk of the build log: the report summary
// first, then one section per captured step log.
type logSection struct {
	Title string
	Lines []string
}

// collectBuildLog gathers the last build report and the step logs under
// LogDir into ordered sections. Step logs sort by file name, which puts
// deps before package.
func collectBuildLog() ([]logSection, error) {
	var sections []logSection

	if report, err := LoadBuildReport(); err == nil {
		sections = append(sections, logSection{
			Title: "summary",
			Lines: summaryLines(report),
		})
	}

	logFiles, err := filepath.Glob(filepath.Join(LogDir, "*.log"))
	if err != nil {
		return nil, err
	}
	sort.Strings(logFiles)

	for _, logFile := range logFiles {
		data, err := os.ReadFile(logFile)
		if err != nil {
			continue
		}
		sections = append(sections, logSection{
			Title: strings.TrimSuffix(filepath.Base(logFile), ".log"),
			Lines: strings.Split(strings.TrimRight(string(data), "\n"), "\n"),
		})
	}

	if len(sections) == 0 {
		return nil, fmt.Errorf("no logs found in %s, run a build first", LogDir)
	}
	return sections, nil
}

// summaryLines renders the report header and one row per step.
func summaryLines(report *BuildReport) []string {
	status := "FAILED"
	if report.Success {
		status = "OK"
	}
	lines := []string{
		fmt.Sprintf("Build of %s at %s: %s (%s)",
			report.App,
			report.StartedAt.Format(time.RFC3339),
			status,
			report.Duration.Round(time.Millisecond)),
	}
	for _, step := range report.Steps {
		line := fmt.Sprintf("  %-8s %-6s %s", step.Name, step.Status, step.Duration.Round(time.Millisecond))
		if step.Error != "" {
			line += "  " + step.Error
		}
		lines = append(lines, line)
	}
	return lines
}

// plainBuildLog writes the sections with a banner line each.
func plainBuildLog(w io.Writer, sections []logSection) {
	for i, sec := range sections {
		if i > 0 {
			fmt.Fprintln(w)
		}
		fmt.Fprintf(w, "===== %s =====\n", sec.Title)
		for _, line := range sec.Lines {
			fmt.Fprintln(w, line)
		}
	}
}

func logLineCount(sections []logSection) int {
	total := 0
	for i, sec := range sections {
		if i > 0 {
			total++
		}
		total += len(sec.Lines) + 1
	}
	return total
}

// showLogView displays the sections in a scrollable TUI. Captured step
// output may carry ANSI color, which the view translates.
func showLogView(sections []logSection) error {
	app := tview.NewApplication()

	textView := tview.NewTextView().
		SetDynamicColors(true).
		SetScrollable(true).
		SetWrap(false)
	textView.SetBorder(true).SetTitle(" " + AppName + " build log ")

	// Remember the row each section starts on so n/p can jump.
	var offsets []int
	row := 0
	w := tview.ANSIWriter(textView)
	for i, sec := range sections {
		if i > 0 {
			fmt.Fprintln(w)
			row++
		}
		offsets = append(offsets, row)
		fmt.Fprintf(w, "[yellow]===== %s =====[-]\n", sec.Title)
		row++
		for _, line := range sec.Lines {
			fmt.Fprintln(w, line)
			row++
		}
	}

	current := 0
	jump := func(delta int) {
		next := current + delta
		if next < 0 || next >= len(offsets) {
			return
		}
		current = next
		textView.ScrollTo(offsets[current], 0)
	}

	footer := tview.NewTextView().
		SetDynamicColors(true).
		SetTextAlign(tview.AlignCenter).
		SetText("[gray]↑/↓ scroll, n/p next/previous section, 'q' or Esc to quit.[white]")

	flex := tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(textView, 0, 1, true).
		AddItem(footer, 1, 0, false)

	app.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		switch event.Key() {
		case tcell.KeyEsc, tcell.KeyCtrlQ:
			app.Stop()
			return nil
		case tcell.KeyTab:
			jump(1)
			return nil
		case tcell.KeyRune:
			switch event.Rune() {
			case 'q':
				app.Stop()
				return nil
			case 'n':
				jump(1)
				return nil
			case 'p':
				jump(-1)
				return nil
			}
		}
		return event
	})

	if err := app.SetRoot(flex, true).SetFocus(textView).Run(); err != nil {
		return fmt.Errorf("log view failed: %w", err)
	}
	return nil
}

// HandleLogCommand implements 'tsutsumi log': show the last build report
// summary followed by the captured step logs, in a scrollable view when
// stdout is an interactive terminal and the log does not fit it.
func HandleLogCommand() error {
	sections, err := collectBuildLog()
	if err != nil {
		return err
	}

	fd := int(os.Stdout.Fd())
	if !term.IsTerminal(fd) || NoColor {
		plainBuildLog(os.Stdout, sections)
		return nil
	}

	// 2 rows of border around the text view.
	if _, height, err := term.GetSize(fd); err == nil && logLineCount(sections) <= height-2 {
		plainBuildLog(os.Stdout, sections)
		return nil
	}

	return showLogView(sections)
}
