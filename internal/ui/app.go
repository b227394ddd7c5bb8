// Package ui implements the terminal screens on bubbletea's Elm
// architecture: every screen is a model with Update/View, network
// calls run as tea.Cmd functions, and their results come back through
// the message loop. Screens compose the session store, API client,
// reconciler, poller and dispatcher; none of them talks to the network
// directly.
package ui

import (
	"context"
	"log/slog"

	tea "github.com/charmbracelet/bubbletea"

	"opora/internal/actions"
	"opora/internal/api"
	"opora/internal/config"
	"opora/internal/filecache"
	"opora/internal/reconcile"
	"opora/internal/session"
)

// Deps is the single injected bundle every screen draws from. Screens
// never open their own stores or clients, so there is exactly one read
// path for the session.
type Deps struct {
	Cfg        *config.Config
	Store      *session.Store
	API        *api.Client
	Reconciler *reconcile.Reconciler
	Dispatcher *actions.Dispatcher
	Files      *filecache.Cache
	Log        *slog.Logger
}

// Screen is one UI page. Update returns the next screen so a page can
// hand control to another (e.g. login -> home).
type Screen interface {
	Init() tea.Cmd
	Update(msg tea.Msg) (Screen, tea.Cmd)
	View() string
}

// App is the bubbletea root model: it owns the active screen, the
// theme, and the terminal size, and forwards everything else.
type App struct {
	deps   Deps
	theme  Theme
	screen Screen
	width  int
	height int
}

// navigateMsg swaps the active screen.
type navigateMsg struct {
	screen Screen
}

func navigate(s Screen) tea.Cmd {
	return func() tea.Msg { return navigateMsg{screen: s} }
}

// refreshMsg asks the active screen to re-run its fetch; the action
// dispatcher emits it (via Program.Send) after every successful action.
type refreshMsg struct {
	kind actions.Kind
}

// RefreshAfter adapts refreshMsg delivery for the dispatcher hook.
func RefreshAfter(send func(tea.Msg)) func(actions.Kind) {
	return func(kind actions.Kind) {
		send(refreshMsg{kind: kind})
	}
}

// themeChangedMsg is emitted when bubble preferences are saved so the
// whole app re-styles immediately.
type themeChangedMsg struct{}

func New(deps Deps) *App {
	app := &App{
		deps:  deps,
		theme: NewTheme(deps.Store.BubblePrefs()),
	}
	// Stored token decides the initial route: without one, every
	// ticket operation is off limits.
	if deps.Store.Get().Authenticated() {
		app.screen = NewHomeScreen(deps, &app.theme)
	} else {
		app.screen = NewLoginScreen(deps, &app.theme)
	}
	return app
}

func (a *App) Init() tea.Cmd {
	return a.screen.Init()
}

func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return a, tea.Quit
		}
	case navigateMsg:
		a.screen = msg.screen
		return a, a.screen.Init()
	case themeChangedMsg:
		a.theme = NewTheme(a.deps.Store.BubblePrefs())
		return a, nil
	}

	next, cmd := a.screen.Update(msg)
	a.screen = next
	return a, cmd
}

func (a *App) View() string {
	return a.screen.View()
}

// cmdContext is the context screens use for their network commands.
// Commands run until completion; cancellation happens at program
// shutdown via the process context in main.
func cmdContext() context.Context {
	return context.Background()
}
