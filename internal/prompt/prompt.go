// Package prompt renders the installer's interactive confirmations.
package prompt

import (
	"errors"
	"fmt"
	"io"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"

	"github.com/openpcli/pcli-setup/internal/messages"
	"github.com/openpcli/pcli-setup/internal/terminal"
)

// ErrAborted is returned when the user abandons a prompt (Ctrl+C / Esc).
var ErrAborted = errors.New(messages.PromptAborted)

// UI asks the user yes/no questions.
type UI interface {
	Confirm(title string, value *bool) error
}

// HuhUI implements UI using charmbracelet/huh.
type HuhUI struct {
	isTerminal func() bool
}

var runFormFunc = func(form *huh.Form) error { return form.Run() }

// NewHuhUI creates a HuhUI using the default terminal check.
func NewHuhUI() *HuhUI {
	return &HuhUI{isTerminal: terminal.IsInteractive}
}

// ensureInteractive returns an error when the UI is invoked without a terminal.
func (ui *HuhUI) ensureInteractive() error {
	checker := ui.isTerminal
	if checker == nil {
		checker = terminal.IsInteractive
	}
	if checker() {
		return nil
	}
	return errors.New(messages.PromptRequiresTerminal)
}

// Confirm renders a yes/no prompt.
func (ui *HuhUI) Confirm(title string, value *bool) error {
	if err := ui.ensureInteractive(); err != nil {
		return err
	}

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title(title).
				Value(value),
		),
	)
	// The form renders on stderr so piped stdout stays clean.
	form.WithProgramOptions(tea.WithOutput(os.Stderr))

	err := runFormFunc(form)
	if errors.Is(err, huh.ErrUserAborted) {
		return ErrAborted
	}
	return err
}

// ReplacePrompter adapts a UI to the staging layer's overwrite confirmation.
// The diff preview is printed to Out before the question.
type ReplacePrompter struct {
	UI  UI
	Out io.Writer
}

// ConfirmReplace shows the preview and asks whether to replace path.
func (p ReplacePrompter) ConfirmReplace(path string, preview string) (bool, error) {
	if preview != "" && p.Out != nil {
		fmt.Fprintln(p.Out, preview)
	}
	ok := false
	title := fmt.Sprintf(messages.InstallOverwritePromptFmt, path)
	if err := p.UI.Confirm(title, &ok); err != nil {
		return false, err
	}
	return ok, nil
}
