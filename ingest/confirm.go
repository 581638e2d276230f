package ingest

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// Confirmer answers a yes/no question before a batch run starts. Injecting
// it keeps the runner testable and lets service surfaces bypass the prompt.
type Confirmer interface {
	Confirm(prompt string) (bool, error)
}

// AutoConfirm always answers with a fixed value. Used by the HTTP and MCP
// surfaces where there is no terminal to ask.
type AutoConfirm bool

func (a AutoConfirm) Confirm(string) (bool, error) { return bool(a), nil }

// TerminalConfirmer prompts on Out and reads the answer from In. An
// unrecognized answer reprompts instead of being treated as consent.
type TerminalConfirmer struct {
	In  io.Reader
	Out io.Writer
}

func (t *TerminalConfirmer) Confirm(prompt string) (bool, error) {
	scanner := bufio.NewScanner(t.In)
	for {
		fmt.Fprintf(t.Out, "%s [y/n]: ", prompt)
		if !scanner.Scan() {
			if err := scanner.Err(); err != nil {
				return false, err
			}
			// EOF counts as a refusal, never as consent.
			return false, nil
		}
		switch strings.ToLower(strings.TrimSpace(scanner.Text())) {
		case "y", "yes":
			return true, nil
		case "n", "no":
			return false, nil
		default:
			fmt.Fprintln(t.Out, "Please answer 'y' or 'n'.")
		}
	}
}
