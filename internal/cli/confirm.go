package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/tcnksm/go-input"

	"github.com/comigor/convoview/internal/logger"
	"github.com/comigor/convoview/internal/view"
)

// promptConfirmer asks on the terminal. Anything but an explicit yes
// declines.
type promptConfirmer struct {
	ui *input.UI
}

func newPromptConfirmer(r io.Reader, w io.Writer) view.Confirmer {
	return &promptConfirmer{ui: &input.UI{Reader: r, Writer: w}}
}

func (c *promptConfirmer) Confirm(_ context.Context, prompt string) bool {
	answer, err := c.ui.Ask(prompt+" [y/n]", &input.Options{
		Default:     "n",
		HideDefault: true,
		HideOrder:   true,
		Loop:        true,
		ValidateFunc: func(answer string) error {
			switch answer {
			case "y", "Y", "n", "N":
				return nil
			default:
				return fmt.Errorf("please enter 'y' or 'n'")
			}
		},
	})
	if err != nil {
		logger.L.Warn("confirmation prompt failed", "error", err)
		return false
	}
	return answer == "y" || answer == "Y"
}
