package tui

import (
	"fmt"
	"strings"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/stacksave/stacksave/internal/restic"
)

// BrowseSnapshots shows the repository's snapshots in an interactive table.
// Enter opens a detail view for the selected snapshot; q or ESC quits.
func BrowseSnapshots(snapshots []restic.Snapshot) error {
	app := NewApp()

	table := tview.NewTable().
		SetFixed(1, 0).
		SetSelectable(true, false)

	headers := []string{"ID", "Time", "Tags", "Paths"}
	for col, h := range headers {
		table.SetCell(0, col, tview.NewTableCell(h).
			SetTextColor(accent).
			SetSelectable(false).
			SetAttributes(tcell.AttrBold))
	}

	for row, snap := range snapshots {
		id := snap.ShortID
		if id == "" {
			id = snap.ID
		}
		cells := []string{
			id,
			snap.Time.Format("2006-01-02 15:04:05"),
			strings.Join(snap.Tags, ","),
			strings.Join(snap.Paths, " "),
		}
		for col, text := range cells {
			table.SetCell(row+1, col, tview.NewTableCell(text).SetExpansion(1))
		}
	}

	pages := tview.NewPages()

	table.SetSelectedFunc(func(row, _ int) {
		if row < 1 || row > len(snapshots) {
			return
		}
		snap := snapshots[row-1]
		detail := tview.NewModal().
			SetText(formatSnapshot(snap)).
			AddButtons([]string{"Close"}).
			SetDoneFunc(func(int, string) {
				pages.RemovePage("detail")
			})
		pages.AddPage("detail", detail, true, true)
	})

	table.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		if event.Key() == tcell.KeyEscape || event.Rune() == 'q' {
			app.Stop()
			return nil
		}
		return event
	})

	table.SetBorder(true).
		SetTitle(fmt.Sprintf(" Snapshots (%d) ", len(snapshots))).
		SetTitleAlign(tview.AlignCenter)
	pages.AddPage("table", table, true, true)

	app.SetRoot(pages, true)
	return app.Run()
}

func formatSnapshot(snap restic.Snapshot) string {
	return fmt.Sprintf(
		"ID: %s\nTime: %s\nHost: %s\nTags: %s\nPaths:\n  %s",
		snap.ID,
		snap.Time.Format("2006-01-02 15:04:05"),
		snap.Hostname,
		strings.Join(snap.Tags, ", "),
		strings.Join(snap.Paths, "\n  "),
	)
}
