package tsutsumi

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"sync"

	"golang.org/x/term"
)

// interactiveMu ensures only one interactive prompt reads stdin at a time.
var interactiveMu sync.Mutex

// askForConfirmation asks a yes-default question and loops until it
// gets an answer. EOF counts as no, so a closed stdin never approves
// a destructive action.
func askForConfirmation(p colorPrinter, format string, a ...any) bool {
	interactiveMu.Lock()
	defer interactiveMu.Unlock()

	question := fmt.Sprintf(format, a...)
	scanner := bufio.NewScanner(os.Stdin)
	for {
		cPrintf(p, "%s [Y/n]: ", question)
		if !scanner.Scan() {
			return false
		}
		switch strings.ToLower(strings.TrimSpace(scanner.Text())) {
		case "", "y", "yes":
			return true
		case "n", "no":
			return false
		}
		cPrintln(colWarn, "Please answer y or n.")
	}
}

// WaitForKeypress blocks until the user presses a key, so a terminal
// window opened just for the build does not close before the final
// message can be read. On a TTY a single key suffices; otherwise a full
// line is read so piped runs cannot wedge on raw-mode.
func WaitForKeypress() {
	interactiveMu.Lock()
	defer interactiveMu.Unlock()

	arrow()
	cPrintln(colNote, "Press any key to exit.")

	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		oldState, err := term.MakeRaw(fd)
		if err == nil {
			defer term.Restore(fd, oldState)
			buf := make([]byte, 1)
			os.Stdin.Read(buf)
			return
		}
		debugf("raw mode unavailable: %v\n", err)
	}

	reader := bufio.NewReader(os.Stdin)
	reader.ReadString('\n')
}
