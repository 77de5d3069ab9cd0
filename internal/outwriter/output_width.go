package outwriter

import (
	"os"

	"github.com/huangsam/svncoord/internal/contract"
	"golang.org/x/term"
)

// Fixed column budgets for each table, including borders and padding.
const (
	commitColumnsWidth  = 60 // Revision + Items + Author + Date + Error
	changeColumnsWidth  = 25 // Kind + Action + Props
	journalColumnsWidth = 70 // Txn + Status + Revision + Items + Start
	itemColumnsWidth    = 30 // Kind + Actions
)

// GetMaxTablePathWidth calculates the maximum width for paths and URLs in table
// output based on terminal width and the width taken by the other columns.
func GetMaxTablePathWidth(cfg *contract.Config, reserved int) int {
	var termWidth int

	// Check for absolute width override from flag/env
	if cfg.Width > 0 {
		termWidth = cfg.Width
	}

	if termWidth == 0 { // Not set by override
		detectedWidth, _, err := term.GetSize(int(os.Stdout.Fd()))
		if err != nil || detectedWidth <= 0 {
			// Fallback to conservative default if terminal size can't be detected
			termWidth = 80
		} else {
			termWidth = detectedWidth
		}
	}

	// Reserve space for table borders, separators, and padding
	baseWidth := reserved + 10

	available := termWidth - baseWidth
	if available < 15 {
		return 15
	}
	if available > 70 {
		return 70
	}
	return available
}
