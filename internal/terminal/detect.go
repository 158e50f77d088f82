// Package terminal provides terminal detection utilities.
package terminal

import (
	"os"

	"golang.org/x/term"
)

// isTerminal is swapped in tests to simulate terminal states.
var isTerminal = func(fd int) bool { return term.IsTerminal(fd) }

// IsInteractive reports whether stdin and stdout are both interactive
// terminals. Overwrite confirmations and other prompts are only shown when
// this is true.
func IsInteractive() bool {
	return isTerminal(int(os.Stdin.Fd())) && isTerminal(int(os.Stdout.Fd()))
}
