// Package tui contains the interactive snapshot browser.
package tui

import (
	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
)

// accent is the highlight color used for borders and titles.
var accent = tcell.ColorSteelBlue

// App wraps tview.Application with stacksave styling.
type App struct {
	*tview.Application
}

// NewApp creates a new TUI application with the stacksave theme.
func NewApp() *App {
	app := &App{
		Application: tview.NewApplication(),
	}

	app.EnableMouse(true)

	tview.Styles.PrimitiveBackgroundColor = tcell.ColorBlack
	tview.Styles.ContrastBackgroundColor = tcell.ColorBlack
	tview.Styles.BorderColor = accent
	tview.Styles.TitleColor = accent
	tview.Styles.GraphicsColor = accent
	tview.Styles.PrimaryTextColor = tcell.ColorWhite
	tview.Styles.SecondaryTextColor = tcell.ColorLightGray

	return app
}
