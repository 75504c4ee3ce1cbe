// studyhall TUI - A terminal client for the StudyHall campus platform.
//
// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/studyhall-tui/internal/api"
	"github.com/jeranaias/studyhall-tui/internal/campus"
	"github.com/jeranaias/studyhall-tui/internal/cli"
	"github.com/jeranaias/studyhall-tui/internal/config"
	"github.com/jeranaias/studyhall-tui/internal/session"
	"github.com/jeranaias/studyhall-tui/internal/storage"
	"github.com/jeranaias/studyhall-tui/internal/store"
	"github.com/jeranaias/studyhall-tui/internal/ui/board"
	"github.com/jeranaias/studyhall-tui/internal/ui/chat"
	"github.com/jeranaias/studyhall-tui/internal/ui/components"
	"github.com/jeranaias/studyhall-tui/internal/ui/styles"
)

// Version information (set at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// Global program reference so API client callbacks can push messages into
// the running Bubble Tea loop.
var (
	programRef *tea.Program
	programMu  sync.Mutex
)

func init() {
	// Sync version info with cli package
	cli.Version = Version
	cli.GitCommit = GitCommit
	cli.BuildDate = BuildDate
}

func main() {
	cmd, args := cli.Parse(os.Args[1:])

	switch cmd {
	case cli.CmdTUI:
		runTUI(args)
	case cli.CmdAsk:
		exitOnError(cli.HandleAsk(args))
	case cli.CmdChat:
		exitOnError(cli.HandleChat(args))
	case cli.CmdHistory:
		exitOnError(cli.HandleHistory(args))
	case cli.CmdConfig:
		exitOnError(cli.HandleConfig(args))
	case cli.CmdVersion:
		cli.PrintVersion()
	case cli.CmdHelp:
		cli.PrintUsage()
	default:
		runTUI(args)
	}
}

func exitOnError(err error) {
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// programSend pushes a message into the running program, if any.
func programSend(msg tea.Msg) {
	programMu.Lock()
	p := programRef
	programMu.Unlock()
	if p != nil {
		p.Send(msg)
	}
}

// runTUI starts the full-screen interface.
func runTUI(args cli.Args) {
	cfg := config.Global()

	if err := config.EnsureConfigDir(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	dir, err := config.ConfigDir()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	// Session cookies persist across runs through the encrypted jar.
	sessions, err := session.NewStore(dir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: could not open session store: %v\n", err)
		os.Exit(1)
	}
	jar, err := sessions.Jar(cfg.Server.BaseURL)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	// Account-state callbacks feed the running UI through programSend; the
	// same conditions also surface as errors on the calls that hit them.
	client := api.NewClient(api.Config{
		BaseURL:           cfg.Server.BaseURL,
		CSRFCookie:        cfg.Server.CSRFCookie,
		RequireCSRF:       cfg.Server.RequireCSRF,
		RequestsPerSecond: cfg.Server.RequestsPerSecond,
	}, jar, api.Callbacks{
		OnUnauthenticated: func() {
			programSend(chat.SessionExpiredMsg{})
		},
		OnUpgradeRequired: func(reason, plan string) {
			programSend(chat.UpsellMsg{Reason: reason, Plan: plan})
		},
	})

	cache := store.New()
	svc := campus.NewService(client, cache)

	// Transcript history is best-effort: the tutor works without it.
	var history *storage.Store
	if cfg.History.Enabled {
		if path, err := cfg.HistoryPath(); err == nil {
			if history, err = storage.Open(path); err != nil {
				fmt.Fprintf(os.Stderr, "warning: transcript history unavailable: %v\n", err)
				history = nil
			}
		}
	}
	if history != nil && cfg.History.MaxTranscripts > 0 {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := history.Prune(ctx, cfg.History.MaxTranscripts); err != nil {
			fmt.Fprintf(os.Stderr, "warning: could not prune transcripts: %v\n", err)
		}
		cancel()
	}

	var recorder campus.TurnRecorder
	if history != nil {
		recorder = history
	}
	tutor := campus.NewTutor(client, recorder)

	// Pick up config edits made while the TUI is running.
	watcher, err := config.Watch(nil)
	if err == nil {
		defer watcher.Close()
	}

	theme := styles.NewTheme()
	m := newAppModel(theme, cfg, svc, tutor)

	p := tea.NewProgram(
		m,
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
	)

	programMu.Lock()
	programRef = p
	programMu.Unlock()

	_, runErr := p.Run()

	if err := jar.Save(); err != nil {
		fmt.Fprintf(os.Stderr, "warning: could not save session: %v\n", err)
	}
	if history != nil {
		history.Close()
	}
	if runErr != nil {
		fmt.Fprintf(os.Stderr, "Error running studyhall: %v\n", runErr)
		os.Exit(1)
	}
}

// =============================================================================
// APPLICATION MODEL
// =============================================================================

// Tab identifies one of the top-level screens.
type Tab int

const (
	TabCourses Tab = iota
	TabAssignments
	TabQuestions
	TabTutor
	tabCount
)

func (t Tab) String() string {
	switch t {
	case TabCourses:
		return "Courses"
	case TabAssignments:
		return "Assignments"
	case TabQuestions:
		return "Questions"
	case TabTutor:
		return "Tutor"
	default:
		return "?"
	}
}

// appModel is the root Bubble Tea model: a tab bar over the three board
// pages and the tutor chat, plus toast and upsell chrome shared by all tabs.
type appModel struct {
	theme  *styles.Theme
	config *config.Config

	width  int
	height int

	activeTab Tab

	courses     board.Courses
	assignments board.Assignments
	questions   board.Questions
	chatModel   chat.Model

	toasts *components.ToastManager
	upsell components.UpsellBanner

	// A 401 can surface twice for one call, once through the client
	// callback and once through the failed operation itself.
	sessionExpired bool
}

// newAppModel assembles the root model.
func newAppModel(theme *styles.Theme, cfg *config.Config, svc *campus.Service, tutor *campus.Tutor) *appModel {
	return &appModel{
		theme:       theme,
		config:      cfg,
		courses:     board.NewCourses(theme, svc),
		assignments: board.NewAssignments(theme, svc),
		questions:   board.NewQuestions(theme, svc),
		chatModel:   chat.New(theme, tutor),
		toasts:      components.NewToastManager(),
	}
}

// =============================================================================
// BUBBLE TEA INTERFACE
// =============================================================================

// Init loads the course list and starts the chat model.
func (m *appModel) Init() tea.Cmd {
	return tea.Batch(
		m.courses.Load(false),
		m.chatModel.Init(),
	)
}

// chromeHeight is the number of rows the header and status bar occupy.
const chromeHeight = 2

// Update handles messages and updates the model.
func (m *appModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.theme.SetSize(msg.Width, msg.Height)

		contentHeight := msg.Height - chromeHeight
		if contentHeight < 1 {
			contentHeight = 1
		}
		m.courses.SetSize(msg.Width, contentHeight)
		m.assignments.SetSize(msg.Width, contentHeight)
		m.questions.SetSize(msg.Width, contentHeight)
		m.chatModel.SetSize(msg.Width, contentHeight)
		return m, nil

	case tea.KeyMsg:
		return m.handleKeyPress(msg)

	// Board results route to their page regardless of the active tab.
	case board.CoursesLoadedMsg:
		var cmd tea.Cmd
		m.courses, cmd = m.courses.Update(msg)
		return m, tea.Batch(cmd, m.accountCmd(msg.Err, "Could not load courses", m.courses.Refetch(true)))

	case board.CourseSelectedMsg:
		cmds := []tea.Cmd{
			m.assignments.SetCourse(msg.Course),
			m.questions.SetCourse(msg.Course),
		}
		m.activeTab = TabAssignments
		return m, tea.Batch(cmds...)

	case board.AssignmentsLoadedMsg:
		var cmd tea.Cmd
		m.assignments, cmd = m.assignments.Update(msg)
		return m, tea.Batch(cmd, m.accountCmd(msg.Err, "Could not load assignments", m.assignments.Refetch(true)))

	case board.QuestionsLoadedMsg:
		var cmd tea.Cmd
		m.questions, cmd = m.questions.Update(msg)
		return m, tea.Batch(cmd, m.accountCmd(msg.Err, "Could not load questions", m.questions.Refetch(true)))

	case board.ToggleResultMsg:
		var cmd tea.Cmd
		m.assignments, cmd = m.assignments.Update(msg)
		return m, tea.Batch(cmd, m.accountCmd(msg.Err, "Toggle rejected, reverted", msg.Retry))

	case board.VoteResultMsg:
		var cmd tea.Cmd
		m.questions, cmd = m.questions.Update(msg)
		return m, tea.Batch(cmd, m.accountCmd(msg.Err, "Vote rejected, reverted", msg.Retry))

	case board.QuestionCreatedMsg:
		var cmd tea.Cmd
		m.questions, cmd = m.questions.Update(msg)
		if msg.Err == nil {
			m.toasts.AddSuccess("Question posted")
			return m, tea.Batch(cmd, components.ToastTickCmd())
		}
		return m, tea.Batch(cmd, m.accountCmd(msg.Err, "Could not post question", msg.Retry))

	// Account-state messages from the chat model or the client callbacks.
	case chat.SessionExpiredMsg:
		if m.sessionExpired {
			return m, nil
		}
		m.sessionExpired = true
		m.toasts.AddError("Session expired. Sign in from the campus web app, then restart studyhall.")
		return m, components.ToastTickCmd()

	case chat.UpsellMsg:
		feature := msg.Reason
		if feature == "" {
			feature = "This feature"
		}
		m.upsell = components.NewUpsellBanner(feature, msg.Plan)
		return m, nil

	// Toast lifecycle.
	case components.ToastTickMsg:
		if len(m.toasts.TickToasts()) > 0 {
			return m, components.ToastTickCmd()
		}
		return m, nil

	case components.ToastDismissMsg:
		m.toasts.RemoveToast(msg.ID)
		return m, nil

	case components.ToastRetryMsg:
		if toast, ok := m.toasts.FindToast(msg.ID); ok && toast.RetryAction != nil {
			m.toasts.RemoveToast(msg.ID)
			return m, tea.Cmd(toast.RetryAction)
		}
		return m, nil
	}

	// Everything else (spinner ticks, stream ticks, input blinks) goes to
	// every page; each ignores what it does not handle.
	var cmds []tea.Cmd
	var cmd tea.Cmd
	m.chatModel, cmd = m.chatModel.Update(msg)
	cmds = append(cmds, cmd)
	m.questions, cmd = m.questions.Update(msg)
	cmds = append(cmds, cmd)
	return m, tea.Batch(cmds...)
}

// handleKeyPress processes keyboard input.
func (m *appModel) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()

	if m.upsell.Visible && key == "esc" {
		m.upsell.Dismiss()
		return m, nil
	}

	switch key {
	case "ctrl+c":
		return m, tea.Quit
	case "ctrl+t":
		m.activeTab = (m.activeTab + 1) % tabCount
		return m, nil
	}

	// Text-entry contexts own the keyboard apart from the globals above.
	typing := m.activeTab == TabTutor ||
		(m.activeTab == TabQuestions && m.questions.Composing())

	// The newest toast claims r and x while it is showing.
	if !typing && m.toasts.HasToasts() {
		if toasts := m.toasts.GetToasts(); len(toasts) > 0 {
			newest := toasts[0]
			if key == "r" && newest.ShowRetry {
				return m, func() tea.Msg { return components.ToastRetryMsg{ID: newest.ID} }
			}
			if key == "x" && newest.Dismissible {
				return m, func() tea.Msg { return components.ToastDismissMsg{ID: newest.ID} }
			}
		}
	}

	if !typing {
		switch key {
		case "q":
			return m, tea.Quit
		case "1":
			m.activeTab = TabCourses
			return m, nil
		case "2":
			m.activeTab = TabAssignments
			return m, nil
		case "3":
			m.activeTab = TabQuestions
			return m, nil
		case "4":
			m.activeTab = TabTutor
			return m, nil
		case "tab", "]":
			m.activeTab = (m.activeTab + 1) % tabCount
			return m, nil
		case "shift+tab", "[":
			m.activeTab = (m.activeTab + tabCount - 1) % tabCount
			return m, nil
		}
	}

	var cmd tea.Cmd
	switch m.activeTab {
	case TabCourses:
		m.courses, cmd = m.courses.Update(msg)
	case TabAssignments:
		m.assignments, cmd = m.assignments.Update(msg)
	case TabQuestions:
		m.questions, cmd = m.questions.Update(msg)
	case TabTutor:
		m.chatModel, cmd = m.chatModel.Update(msg)
	}
	return m, cmd
}

// accountCmd converts an operation error into the right piece of chrome:
// session-expiry and upsell conditions get dedicated treatment, transient
// failures become a toast with a retry action, everything else a plain
// error toast.
func (m *appModel) accountCmd(err error, context string, retry tea.Cmd) tea.Cmd {
	if err == nil {
		return nil
	}

	var apiErr *api.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.Kind {
		case api.KindUnauthorized:
			// The client callback already pushed SessionExpiredMsg.
			return nil
		case api.KindUpgradeRequired, api.KindPaymentRequired:
			return nil
		}
		if apiErr.Retryable() && retry != nil {
			m.toasts.AddToast(components.NewRetryableErrorToast(context+": "+err.Error(), retry))
			return components.ToastTickCmd()
		}
	}

	m.toasts.AddError(context + ": " + err.Error())
	return components.ToastTickCmd()
}

// =============================================================================
// VIEW
// =============================================================================

// View renders the active tab under the shared header.
func (m *appModel) View() string {
	if m.width == 0 {
		return "Loading studyhall..."
	}

	var b strings.Builder
	b.WriteString(m.renderHeader())
	b.WriteString("\n")

	content := m.activeTabView()
	b.WriteString(content)
	b.WriteString("\n")

	if m.upsell.Visible {
		b.WriteString(m.upsell.Render(m.width))
		b.WriteString("\n")
	}
	b.WriteString(m.renderStatusBar())

	baseView := b.String()

	if m.toasts.HasToasts() {
		stack := components.RenderToastStack(m.toasts.GetToasts(), m.width, 0)
		return m.overlayToasts(baseView, stack)
	}
	return baseView
}

func (m *appModel) activeTabView() string {
	switch m.activeTab {
	case TabCourses:
		return m.courses.View()
	case TabAssignments:
		return m.assignments.View()
	case TabQuestions:
		return m.questions.View()
	case TabTutor:
		return m.chatModel.View()
	default:
		return ""
	}
}

// renderHeader draws the brand and tab bar.
func (m *appModel) renderHeader() string {
	t := m.theme

	brand := t.HeaderBrand.Render("studyhall")

	var tabs []string
	for tab := TabCourses; tab < tabCount; tab++ {
		label := tab.String()
		if tab == TabAssignments || tab == TabQuestions {
			if code := m.assignments.Course().Code; code != "" {
				label += " (" + code + ")"
			}
		}
		if tab == m.activeTab {
			tabs = append(tabs, t.TabActive.Render(label))
		} else {
			tabs = append(tabs, t.Tab.Render(label))
		}
	}

	return lipgloss.JoinHorizontal(lipgloss.Top,
		brand, "  ", lipgloss.JoinHorizontal(lipgloss.Top, tabs...))
}

// renderStatusBar draws context-sensitive shortcuts.
func (m *appModel) renderStatusBar() string {
	t := m.theme

	pair := func(key, desc string) string {
		return t.ShortcutKey.Render(key) + t.ShortcutDesc.Render(" "+desc+"  ")
	}

	var b strings.Builder
	switch m.activeTab {
	case TabCourses:
		b.WriteString(pair("enter", "open"))
		b.WriteString(pair("r", "refresh"))
	case TabAssignments:
		b.WriteString(pair("space", "toggle"))
		b.WriteString(pair("r", "refresh"))
	case TabQuestions:
		if m.questions.Composing() {
			b.WriteString(pair("enter", "post"))
			b.WriteString(pair("esc", "cancel"))
		} else {
			b.WriteString(pair("+/-", "vote"))
			b.WriteString(pair("n", "ask"))
		}
	case TabTutor:
		b.WriteString(pair("enter", "send"))
		b.WriteString(pair("esc", "stop"))
	}
	if m.activeTab == TabTutor || (m.activeTab == TabQuestions && m.questions.Composing()) {
		b.WriteString(pair("ctrl+t", "next tab"))
		b.WriteString(pair("ctrl+c", "quit"))
	} else {
		b.WriteString(pair("tab", "next tab"))
		b.WriteString(pair("q", "quit"))
	}

	return t.StatusBar.Width(m.width).Render(b.String())
}

// overlayToasts layers the toast stack over the bottom-right corner of the
// base view without reserving layout space for it.
func (m *appModel) overlayToasts(baseView, toastView string) string {
	baseLines := strings.Split(baseView, "\n")
	toastLines := strings.Split(toastView, "\n")

	startRow := len(baseLines) - len(toastLines) - 1
	if startRow < 0 {
		startRow = 0
	}

	result := make([]string, len(baseLines))
	for i, baseLine := range baseLines {
		idx := i - startRow
		if idx < 0 || idx >= len(toastLines) || lipgloss.Width(toastLines[idx]) == 0 {
			result[i] = baseLine
			continue
		}
		toastLine := toastLines[idx]
		room := m.width - lipgloss.Width(toastLine) - 1
		if room > 0 && lipgloss.Width(baseLine) <= room {
			pad := room - lipgloss.Width(baseLine)
			result[i] = baseLine + strings.Repeat(" ", pad) + " " + toastLine
		} else {
			// No room next to the content on this row; right-align the
			// toast on its own.
			result[i] = lipgloss.PlaceHorizontal(m.width, lipgloss.Right, toastLine)
		}
	}
	return strings.Join(result, "\n")
}
