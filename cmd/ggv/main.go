// ggv is a real-time TUI viewer for the grokgates multi-agent beacon system.
//
// It merges websocket push updates and a polling fallback into one stable
// render model and displays the live agent dialogue, beacon feed, dominance
// plan, and conversation history, with an animated mascot on top.
//
// Usage:
//
//	ggv                           # Connect to $GATEVIEW_SERVER or localhost:8080
//	ggv --server <url>            # Use a specific server
//	ggv --art <path>              # Override the mascot art with a local file (live-reloaded)
//	ggv --cache <path>            # Use a specific persisted-cache database
//	ggv --refresh 5s              # Set the conversations poll interval
//	ggv --no-anim                 # Keep the mascot static
//	ggv --json                    # Dump the current conversations as JSON and exit
//	ggv --version                 # Print version and exit
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	"github.com/joho/godotenv"

	"github.com/grokgates/gateview/internal/anim"
	"github.com/grokgates/gateview/internal/cache"
	"github.com/grokgates/gateview/internal/grid"
	"github.com/grokgates/gateview/internal/reconcile"
	"github.com/grokgates/gateview/internal/snapshot"
	"github.com/grokgates/gateview/internal/transport"
)

// Version is set via ldflags at build time (e.g. -X main.Version=v0.1.0).
var Version = "dev"

const defaultServer = "http://localhost:8080"

// defaultArt is the fallback mascot used when the art endpoint is
// unreachable and no local override is given.
const defaultArt = `    _______
   |.-----.|
   ||x . x||
   ||_.-._||
   '--)-(--'
  __[=== o]___
 |:::::::::::|
 '-=========-'`

func main() {
	// .env is optional; flags and real env still win.
	godotenv.Load()

	serverFlag := flag.String("server", "", "grokgates server URL (default: $GATEVIEW_SERVER or "+defaultServer+")")
	artFlag := flag.String("art", "", "local mascot art file, watched for live edits (default: fetch from server)")
	cacheFlag := flag.String("cache", "", "persisted cache database path (default: $GATEVIEW_CACHE or ~/.gateview/cache.db)")
	refreshDur := flag.Duration("refresh", 3*time.Second, "conversations poll interval")
	noAnim := flag.Bool("no-anim", false, "keep the mascot static")
	jsonMode := flag.Bool("json", false, "dump current conversations as JSON and exit (no TUI)")
	logFlag := flag.String("log", "", "append debug logs to this file (default: $GATEVIEW_LOG or discard)")
	versionFlag := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *versionFlag {
		fmt.Printf("ggv %s\n", Version)
		os.Exit(0)
	}

	server := firstNonEmpty(*serverFlag, os.Getenv("GATEVIEW_SERVER"), defaultServer)
	server = strings.TrimRight(server, "/")

	// The TUI owns stdout, so logs go to a file or nowhere.
	logFile, err := setupLogging(firstNonEmpty(*logFlag, os.Getenv("GATEVIEW_LOG")))
	if err != nil {
		fmt.Fprintf(os.Stderr, "ggv: log: %v\n", err)
		os.Exit(1)
	}
	if logFile != nil {
		defer logFile.Close()
	}

	adapter := transport.New(server, transport.WithPollInterval(*refreshDur))

	// --json mode: one conversations fetch, print, exit.
	if *jsonMode {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		payload, err := adapter.FetchConversations(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "ggv: %v\n", err)
			os.Exit(1)
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(buildJSONOutput(payload)); err != nil {
			fmt.Fprintf(os.Stderr, "ggv: json: %v\n", err)
			os.Exit(1)
		}
		os.Exit(0)
	}

	cachePath, err := resolveCachePath(*cacheFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ggv: cache: %v\n", err)
		os.Exit(1)
	}
	kv, err := cache.OpenSQLite(cachePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ggv: cache: %v\n", err)
		os.Exit(1)
	}
	defer kv.Close()

	persisted, err := cache.Load(kv)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ggv: cache: %v\n", err)
		os.Exit(1)
	}

	art := loadArt(adapter, *artFlag)
	sched := anim.NewScheduler(grid.Load(art))

	m := newModel(reconcile.New(persisted), persisted, sched, adapter)
	p := tea.NewProgram(m, tea.WithAltScreen())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go adapter.Run(ctx)
	if !*noAnim {
		go anim.NewDirector(sched).Run(ctx)
	}

	// Bridge transport and animation channels into the TUI.
	go func() {
		for snap := range adapter.Snapshots() {
			p.Send(snapshotMsg{snap: snap})
		}
	}()
	go func() {
		for ev := range adapter.Events() {
			p.Send(connMsg{online: ev.Online})
		}
	}()
	go func() {
		for f := range sched.Frames() {
			p.Send(frameMsg{frame: f})
		}
	}()

	// Live-reload a local art override on edit.
	if *artFlag != "" {
		w, err := transport.NewArtWatcher(*artFlag)
		if err != nil {
			slog.Warn("art watch unavailable", "path", *artFlag, "error", err)
		} else {
			defer w.Close()
			go func() {
				for range w.Changes() {
					src, err := w.Read()
					if err != nil {
						slog.Warn("art reload failed", "error", err)
						continue
					}
					p.Send(artMsg{src: src})
				}
			}()
		}
	}

	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "ggv: %v\n", err)
		os.Exit(1)
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func setupLogging(path string) (*os.File, error) {
	if path == "" {
		slog.SetDefault(slog.New(slog.NewTextHandler(io.Discard, nil)))
		return nil, nil
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, err
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(f, &slog.HandlerOptions{Level: slog.LevelDebug})))
	return f, nil
}

func resolveCachePath(flagValue string) (string, error) {
	path := firstNonEmpty(flagValue, os.Getenv("GATEVIEW_CACHE"))
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		path = filepath.Join(home, ".gateview", "cache.db")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", err
	}
	return path, nil
}

// loadArt resolves the mascot art source: local override, then the server
// endpoint, then the embedded fallback.
func loadArt(a *transport.Adapter, override string) string {
	if override != "" {
		data, err := os.ReadFile(override)
		if err == nil {
			return string(data)
		}
		slog.Warn("art override unreadable, falling back", "path", override, "error", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	art, err := a.FetchArt(ctx)
	if err != nil || strings.TrimSpace(art) == "" {
		slog.Warn("art fetch failed, using embedded mascot", "error", err)
		return defaultArt
	}
	return art
}

// jsonOutput is the structure for --json mode.
type jsonOutput struct {
	Conversation *jsonConversation `json:"conversation"`
	History      []jsonHistory     `json:"history"`
}

type jsonConversation struct {
	ID       string        `json:"id"`
	Title    string        `json:"title"`
	Status   string        `json:"status"`
	Messages []jsonMessage `json:"messages"`
}

type jsonMessage struct {
	Agent     string `json:"agent"`
	Timestamp int64  `json:"timestamp"`
	Content   string `json:"content"`
}

type jsonHistory struct {
	ID           string `json:"id"`
	Title        string `json:"title"`
	Status       string `json:"status"`
	MessageCount int    `json:"message_count"`
	StartedAt    string `json:"started_at"`
}

// buildJSONOutput converts a conversations payload into the JSON output
// structure.
func buildJSONOutput(payload *snapshot.ConversationsPayload) jsonOutput {
	var conv *jsonConversation
	if payload.Current != nil {
		msgs := make([]jsonMessage, len(payload.Current.Messages))
		for i, msg := range payload.Current.Messages {
			msgs[i] = jsonMessage{Agent: msg.Agent, Timestamp: msg.Timestamp, Content: msg.Content}
		}
		conv = &jsonConversation{
			ID:       payload.Current.ID,
			Title:    payload.Current.Title(),
			Status:   payload.Current.Status,
			Messages: msgs,
		}
	}

	history := make([]jsonHistory, len(payload.History))
	for i, h := range payload.History {
		history[i] = jsonHistory{
			ID:           h.ID,
			Title:        h.Topic,
			Status:       h.Status,
			MessageCount: h.MessageCount,
			StartedAt:    h.StartedAt,
		}
	}

	return jsonOutput{Conversation: conv, History: history}
}

// --- Messages ---

type snapshotMsg struct {
	snap *snapshot.Snapshot
}

type connMsg struct {
	online bool
}

type frameMsg struct {
	frame grid.Grid
}

type artMsg struct {
	src string
}

type revealTickMsg struct{}

type tickMsg struct{}

// --- Key bindings ---

type keyMap struct {
	Quit  key.Binding
	Tab   key.Binding
	Up    key.Binding
	Down  key.Binding
	Enter key.Binding
	Esc   key.Binding
	Theme key.Binding
	Help  key.Binding
}

var keys = keyMap{
	Quit:  key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	Tab:   key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "next view")),
	Up:    key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("k/up", "up")),
	Down:  key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("j/down", "down")),
	Enter: key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "open thread")),
	Esc:   key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "back")),
	Theme: key.NewBinding(key.WithKeys("i"), key.WithHelp("i", "invert theme")),
	Help:  key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
}

// viewKeysByName maps single keys to views for fast navigation.
var viewKeysByName = map[string]viewID{
	"c": viewDialogue,
	"b": viewBeacon,
	"p": viewPlan,
	"h": viewHistory,
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Tab, k.Theme, k.Help, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Tab, k.Up, k.Down, k.Enter},
		{k.Esc, k.Theme, k.Help, k.Quit},
	}
}

// contextHelp returns help text appropriate for the current view.
func contextHelp(v viewID) string {
	switch v {
	case viewDialogue:
		return "j/k: scroll | c/b/p/h: views | tab: next | i: invert | ?: help | q: quit"
	case viewHistory:
		return "j/k: select | enter: open thread | c/b/p/h: views | ?: help | q: quit"
	case viewThread:
		return "esc: back to history | c/b/p/h: views | ?: help | q: quit"
	default:
		return "j/k: scroll | c/b/p/h: views | tab: next | ?: help | q: quit"
	}
}

// --- Views ---

type viewID int

const (
	viewDialogue viewID = iota
	viewBeacon
	viewPlan
	viewHistory
	viewCount // sentinel, views below here are not in the tab bar
	viewThread
)

func (v viewID) String() string {
	switch v {
	case viewDialogue:
		return "Dialogue"
	case viewBeacon:
		return "Beacon"
	case viewPlan:
		return "Plan"
	case viewHistory:
		return "History"
	case viewThread:
		return "Thread"
	}
	return "?"
}

// --- Reveal queue ---

const (
	// revealChunk is how many runes each tick uncovers.
	revealChunk = 2
	// revealPeriod spaces the typewriter ticks.
	revealPeriod = 30 * time.Millisecond
)

// revealState is the typewriter queue for newly arrived messages. Only the
// head is partially visible; later entries stay hidden until reached.
type revealState struct {
	queue []string
	shown int
}

func revealTick() tea.Cmd {
	return tea.Tick(revealPeriod, func(time.Time) tea.Msg {
		return revealTickMsg{}
	})
}

// --- Model ---

type uiModel struct {
	recon   *reconcile.Reconciler
	cache   *cache.Cache
	sched   *anim.Scheduler
	adapter *transport.Adapter

	activeView viewID
	width      int
	height     int
	scrollPos  int

	selectedHistory int
	threadID        string

	online  bool
	gotData bool
	last    time.Time

	frame  grid.Grid
	reveal revealState

	feed viewport.Model
	spin spinner.Model
	help help.Model

	showHelp bool
	styles   styleSet
}

func newModel(r *reconcile.Reconciler, c *cache.Cache, sched *anim.Scheduler, a *transport.Adapter) uiModel {
	return uiModel{
		recon:   r,
		cache:   c,
		sched:   sched,
		adapter: a,
		frame:   sched.Base(),
		feed:    viewport.New(0, 0),
		spin:    spinner.New(spinner.WithSpinner(spinner.Dot)),
		help:    help.New(),
		styles:  newStyles(c.Theme()),
		last:    time.Now(),
	}
}

func (m uiModel) Init() tea.Cmd {
	return tea.Batch(m.spin.Tick, tickEvery())
}

func tickEvery() tea.Cmd {
	return tea.Tick(time.Second, func(time.Time) tea.Msg {
		return tickMsg{}
	})
}

func typingCmd(a *transport.Adapter, isTyping bool) tea.Cmd {
	return func() tea.Msg {
		a.SendTyping(isTyping)
		return nil
	}
}

func (m uiModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		// Single-key view shortcuts first (always available).
		if v, ok := viewKeysByName[msg.String()]; ok {
			m.activeView = v
			m.scrollPos = 0
			m.threadID = ""
			return m, nil
		}

		switch {
		case key.Matches(msg, keys.Quit):
			return m, tea.Quit

		case key.Matches(msg, keys.Tab):
			if m.activeView == viewThread {
				m.activeView = viewHistory
				m.threadID = ""
			} else {
				m.activeView = (m.activeView + 1) % viewCount
			}
			m.scrollPos = 0

		case key.Matches(msg, keys.Esc):
			if m.activeView == viewThread {
				m.activeView = viewHistory
				m.threadID = ""
				m.scrollPos = 0
			}

		case key.Matches(msg, keys.Enter):
			if m.activeView == viewHistory {
				history := m.recon.History()
				if m.selectedHistory >= 0 && m.selectedHistory < len(history) {
					m.threadID = history[m.selectedHistory].ID
					m.activeView = viewThread
					m.scrollPos = 0
				}
			}

		case key.Matches(msg, keys.Up):
			switch m.activeView {
			case viewDialogue:
				m.feed.LineUp(1)
			case viewHistory:
				if m.selectedHistory > 0 {
					m.selectedHistory--
				}
			default:
				if m.scrollPos > 0 {
					m.scrollPos--
				}
			}

		case key.Matches(msg, keys.Down):
			switch m.activeView {
			case viewDialogue:
				m.feed.LineDown(1)
			case viewHistory:
				if m.selectedHistory < len(m.recon.History())-1 {
					m.selectedHistory++
				}
			default:
				m.scrollPos++
			}

		case key.Matches(msg, keys.Theme):
			next := cache.ThemeInverted
			if m.cache.Theme() == cache.ThemeInverted {
				next = cache.ThemeNormal
			}
			if err := m.cache.SetTheme(next); err != nil {
				slog.Warn("theme persist failed", "error", err)
			}
			m.styles = newStyles(next)
			m.syncFeed()

		case key.Matches(msg, keys.Help):
			m.showHelp = !m.showHelp
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m.layoutFeed()
		m.syncFeed()
		m.feed.GotoBottom()

	case snapshotMsg:
		return m.applySnapshot(msg.snap)

	case connMsg:
		m.online = msg.online

	case frameMsg:
		m.frame = msg.frame

	case artMsg:
		m.sched.SetBase(grid.Load(msg.src))
		m.frame = m.sched.Base()
		m.layoutFeed()

	case revealTickMsg:
		return m.advanceReveal()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd

	case tickMsg:
		return m, tickEvery()
	}

	return m, nil
}

// applySnapshot runs one reconciliation pass and reacts to its result:
// enqueue reveals, tear the queue down on a conversation reset, and keep the
// feed pinned to the bottom when it already was.
func (m uiModel) applySnapshot(snap *snapshot.Snapshot) (tea.Model, tea.Cmd) {
	res := m.recon.Apply(snap)
	m.gotData = true
	m.last = time.Now()

	var cmds []tea.Cmd

	if res.Reset && len(m.reveal.queue) > 0 {
		m.reveal = revealState{}
		cmds = append(cmds, typingCmd(m.adapter, false))
	}

	if len(res.Revealed) > 0 {
		wasIdle := len(m.reveal.queue) == 0
		m.reveal.queue = append(m.reveal.queue, res.Revealed...)
		if wasIdle {
			m.reveal.shown = 0
			cmds = append(cmds, typingCmd(m.adapter, true), revealTick())
		}
	}

	if m.selectedHistory >= len(m.recon.History()) {
		m.selectedHistory = max(0, len(m.recon.History())-1)
	}

	m.syncFeed()
	return m, tea.Batch(cmds...)
}

// advanceReveal uncovers the next chunk of the queue head.
func (m uiModel) advanceReveal() (tea.Model, tea.Cmd) {
	if len(m.reveal.queue) == 0 {
		return m, nil
	}

	node, ok := m.recon.Store().Get(m.reveal.queue[0])
	if !ok {
		// Garbage-collected mid-reveal, drop it.
		m.reveal.queue = m.reveal.queue[1:]
		m.reveal.shown = 0
	} else {
		m.reveal.shown += revealChunk
		if m.reveal.shown >= len([]rune(node.Content)) {
			m.reveal.queue = m.reveal.queue[1:]
			m.reveal.shown = 0
		}
	}

	m.syncFeed()
	if len(m.reveal.queue) == 0 {
		return m, typingCmd(m.adapter, false)
	}
	return m, revealTick()
}

// layoutFeed sizes the dialogue viewport under the art pane.
func (m *uiModel) layoutFeed() {
	feedH := m.height - m.frame.Height() - 9
	if feedH < 3 {
		feedH = 3
	}
	m.feed.Width = max(0, m.width)
	m.feed.Height = feedH
}

// syncFeed re-renders the feed content, preserving stick-to-bottom.
func (m *uiModel) syncFeed() {
	atBottom := m.feed.AtBottom()
	m.feed.SetContent(m.renderFeed())
	if atBottom {
		m.feed.GotoBottom()
	}
}

// --- Styles ---

// styleSet is the active color palette. Inverted is the persisted default,
// matching the page the system originally shipped with.
type styleSet struct {
	title       lipgloss.Style
	tabActive   lipgloss.Style
	tabInactive lipgloss.Style
	header      lipgloss.Style
	mascot      lipgloss.Style
	agent       lipgloss.Style
	agentAlt    lipgloss.Style
	accent      lipgloss.Style
	warn        lipgloss.Style
	dim         lipgloss.Style
	online      lipgloss.Style
	offline     lipgloss.Style
	statusBar   lipgloss.Style
}

func newStyles(theme string) styleSet {
	if theme == cache.ThemeNormal {
		return styleSet{
			title:       lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#1E1E2E")).Background(lipgloss.Color("#A6E3A1")).Padding(0, 1),
			tabActive:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#1E1E2E")).Background(lipgloss.Color("#89B4FA")).Padding(0, 1),
			tabInactive: lipgloss.NewStyle().Foreground(lipgloss.Color("#45475A")).Padding(0, 1),
			header:      lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#1E66F5")),
			mascot:      lipgloss.NewStyle().Foreground(lipgloss.Color("#40A02B")),
			agent:       lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#1E66F5")),
			agentAlt:    lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#8839EF")),
			accent:      lipgloss.NewStyle().Foreground(lipgloss.Color("#40A02B")),
			warn:        lipgloss.NewStyle().Foreground(lipgloss.Color("#D20F39")),
			dim:         lipgloss.NewStyle().Foreground(lipgloss.Color("#9CA0B0")),
			online:      lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#40A02B")),
			offline:     lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#D20F39")),
			statusBar:   lipgloss.NewStyle().Foreground(lipgloss.Color("#4C4F69")),
		}
	}
	return styleSet{
		title:       lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#A6E3A1")).Background(lipgloss.Color("#1E1E2E")).Padding(0, 1),
		tabActive:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#1E1E2E")).Background(lipgloss.Color("#A6E3A1")).Padding(0, 1),
		tabInactive: lipgloss.NewStyle().Foreground(lipgloss.Color("#6C7086")).Background(lipgloss.Color("#313244")).Padding(0, 1),
		header:      lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#89B4FA")),
		mascot:      lipgloss.NewStyle().Foreground(lipgloss.Color("#A6E3A1")),
		agent:       lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#89B4FA")),
		agentAlt:    lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#CBA6F7")),
		accent:      lipgloss.NewStyle().Foreground(lipgloss.Color("#A6E3A1")),
		warn:        lipgloss.NewStyle().Foreground(lipgloss.Color("#F38BA8")),
		dim:         lipgloss.NewStyle().Foreground(lipgloss.Color("#6C7086")),
		online:      lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#A6E3A1")),
		offline:     lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#F38BA8")),
		statusBar:   lipgloss.NewStyle().Foreground(lipgloss.Color("#CDD6F4")),
	}
}

// agentStyle alternates colors between the two dialogue agents.
func (m uiModel) agentStyle(agent string) lipgloss.Style {
	var sum int
	for _, r := range agent {
		sum += int(r)
	}
	if sum%2 == 0 {
		return m.styles.agent
	}
	return m.styles.agentAlt
}

// --- View rendering ---

func (m uiModel) View() string {
	if m.width == 0 {
		return "Loading..."
	}

	var b strings.Builder

	b.WriteString(m.renderTitleBar())
	b.WriteRune('\n')
	b.WriteString(m.renderTabBar())
	b.WriteRune('\n')
	b.WriteRune('\n')

	contentHeight := m.height - 5 // title + tabs + status + padding
	if m.showHelp {
		contentHeight -= 3
	}

	var content string
	switch m.activeView {
	case viewDialogue:
		content = m.renderDialogue()
	case viewBeacon:
		content = m.renderBeacon()
	case viewPlan:
		content = m.renderPlan()
	case viewHistory:
		content = m.renderHistory()
	case viewThread:
		content = m.renderThread()
	}

	// The dialogue view scrolls through its viewport; the rest scroll by
	// slicing lines like any pager.
	if m.activeView != viewDialogue {
		lines := strings.Split(content, "\n")
		scrollPos := m.scrollPos
		if scrollPos >= len(lines) {
			scrollPos = max(0, len(lines)-1)
		}
		if scrollPos > 0 && scrollPos < len(lines) {
			lines = lines[scrollPos:]
		}
		if len(lines) > contentHeight {
			lines = lines[:contentHeight]
		}
		content = strings.Join(lines, "\n")
	}

	// Truncate each line to terminal width so content doesn't wrap on
	// resize. Uses ANSI-aware width measurement.
	content = truncateLines(content, m.width)
	b.WriteString(content)

	// Pad to fill screen.
	rendered := strings.Count(b.String(), "\n")
	for rendered < m.height-2 {
		b.WriteRune('\n')
		rendered++
	}

	if m.showHelp {
		b.WriteString(m.help.View(keys))
	} else {
		b.WriteString(m.renderStatusBar())
	}

	return b.String()
}

func (m uiModel) renderTitleBar() string {
	title := m.styles.title.Render("grokgates gateview")
	counts := fmt.Sprintf("%d messages", m.recon.Store().Len())
	if stats := m.recon.Stats(); stats != nil {
		counts = fmt.Sprintf("%d messages | %d boards | %d beacons",
			m.recon.Store().Len(), stats.BoardCount, stats.BeaconCount)
	}
	stats := m.styles.dim.Render(counts)
	gap := strings.Repeat(" ", max(0, m.width-lipgloss.Width(title)-lipgloss.Width(stats)-2))
	return title + gap + stats
}

func (m uiModel) renderTabBar() string {
	var tabs []string
	for i := viewID(0); i < viewCount; i++ {
		if i == m.activeView {
			tabs = append(tabs, m.styles.tabActive.Render(i.String()))
		} else {
			tabs = append(tabs, m.styles.tabInactive.Render(i.String()))
		}
	}
	if m.activeView == viewThread {
		tabs = append(tabs, m.styles.tabActive.Render("Thread: "+m.threadID))
	}
	return strings.Join(tabs, " ")
}

func (m uiModel) renderStatusBar() string {
	indicator := m.styles.offline.Render("○ offline")
	if m.online {
		indicator = m.styles.online.Render("● live")
	}

	phase := ""
	if status := m.recon.Status(); status != nil && status.Phase != "" {
		phase = " | " + status.Phase
		if status.Urge != nil && status.Urge.EuphoriaMode {
			phase += " | euphoria"
		}
	}

	typing := ""
	if len(m.reveal.queue) > 0 {
		typing = " | " + m.spin.View() + "transmitting"
	}

	left := " " + contextHelp(m.activeView)
	right := fmt.Sprintf("%s%s%s | updated %s ago ",
		indicator, phase, typing, time.Since(m.last).Truncate(time.Second))
	gap := strings.Repeat(" ", max(0, m.width-lipgloss.Width(left)-lipgloss.Width(right)))
	return m.styles.statusBar.Render(left) + gap + right
}

// --- Dialogue view ---

func (m uiModel) renderDialogue() string {
	var b strings.Builder

	// Mascot art pane, disjoint from the data regions below it.
	for _, row := range m.frame {
		b.WriteString("  ")
		b.WriteString(m.styles.mascot.Render(row))
		b.WriteRune('\n')
	}
	b.WriteRune('\n')

	conv := m.recon.Current()
	if conv == nil {
		b.WriteString(m.styles.header.Render("Dialogue"))
		b.WriteRune('\n')
		if m.gotData {
			b.WriteString(m.styles.dim.Render("  (awaiting dialogue)"))
		} else {
			b.WriteString(m.styles.dim.Render("  " + m.spin.View() + "reaching the gates..."))
		}
		b.WriteRune('\n')
		return b.String()
	}

	badge := m.styles.accent.Render(strings.ToUpper(conv.Status))
	if conv.Status == "" {
		badge = m.styles.dim.Render("UNKNOWN")
	}
	b.WriteString(m.styles.header.Render(conv.Title()))
	b.WriteString("  ")
	b.WriteString(badge)
	b.WriteRune('\n')
	b.WriteRune('\n')

	b.WriteString(m.feed.View())
	b.WriteRune('\n')
	return b.String()
}

// renderFeed builds the dialogue viewport content. Queue members after the
// head are withheld entirely; the head shows its revealed prefix.
func (m uiModel) renderFeed() string {
	nodes := m.recon.Store().Nodes()
	if len(nodes) == 0 {
		return m.styles.dim.Render("  (no messages yet)")
	}

	hidden := make(map[string]bool, len(m.reveal.queue))
	for i, key := range m.reveal.queue {
		if i > 0 {
			hidden[key] = true
		}
	}
	var headKey string
	if len(m.reveal.queue) > 0 {
		headKey = m.reveal.queue[0]
	}

	bodyIndent := "    "
	bodyWidth := m.feed.Width - len(bodyIndent) - 1
	if bodyWidth < 20 {
		bodyWidth = 20
	}

	var b strings.Builder
	for _, node := range nodes {
		if hidden[node.Key] {
			continue
		}

		content := node.Content
		if node.Key == headKey {
			runes := []rune(content)
			n := m.reveal.shown
			if n > len(runes) {
				n = len(runes)
			}
			content = string(runes[:n]) + "▊"
		}

		ts := m.styles.dim.Render("[" + time.UnixMilli(node.Timestamp).Format("15:04:05") + "]")
		b.WriteString(fmt.Sprintf("  %s %s\n", ts, m.agentStyle(node.Agent).Render(node.Agent)))
		for _, line := range wrapText(content, bodyWidth) {
			b.WriteString(bodyIndent)
			b.WriteString(line)
			b.WriteRune('\n')
		}
		b.WriteRune('\n')
	}

	return strings.TrimRight(b.String(), "\n")
}

// --- Beacon view ---

func (m uiModel) renderBeacon() string {
	var b strings.Builder
	b.WriteString(m.styles.header.Render("Beacon Feed"))
	b.WriteRune('\n')

	entries := m.recon.Beacon()
	if len(entries) == 0 {
		b.WriteString(m.styles.dim.Render("  (beacon silent)"))
		b.WriteRune('\n')
		return b.String()
	}

	bodyWidth := m.width - 6
	if bodyWidth < 20 {
		bodyWidth = 20
	}

	// Most recent first.
	for i := len(entries) - 1; i >= 0; i-- {
		e := entries[i]
		switch e.Kind {
		case snapshot.BeaconTweets:
			header := fmt.Sprintf("live signals (%d)", e.TotalCount)
			if e.Phase != "" {
				header = e.Phase + " | " + header
			}
			b.WriteString("  ")
			b.WriteString(m.styles.accent.Render(header))
			if e.Timestamp != "" {
				b.WriteString(m.styles.dim.Render("  " + e.Timestamp))
			}
			b.WriteRune('\n')
			for _, tw := range e.Tweets {
				b.WriteString("    ")
				b.WriteString(m.styles.agent.Render("@" + tw.Handle))
				b.WriteRune('\n')
				for _, line := range wrapText(tw.Text, bodyWidth) {
					b.WriteString("      ")
					b.WriteString(line)
					b.WriteRune('\n')
				}
				if tw.URL != "" {
					b.WriteString("      ")
					b.WriteString(m.styles.dim.Render(tw.URL))
					b.WriteRune('\n')
				}
			}

		case snapshot.BeaconPosts:
			for _, post := range e.Posts {
				b.WriteString("  ")
				b.WriteString(m.styles.accent.Render("[" + post.Topic + "]"))
				if post.Handle != "" {
					b.WriteString(" ")
					b.WriteString(m.styles.agent.Render("@" + post.Handle))
				}
				b.WriteRune('\n')
				for _, line := range wrapText(post.Content, bodyWidth) {
					b.WriteString("      ")
					b.WriteString(line)
					b.WriteRune('\n')
				}
			}

		default:
			for _, line := range wrapText(e.Text, bodyWidth) {
				b.WriteString("  ")
				b.WriteString(line)
				b.WriteRune('\n')
			}
		}
		b.WriteRune('\n')
	}

	return b.String()
}

// --- Plan view ---

func (m uiModel) renderPlan() string {
	var b strings.Builder
	b.WriteString(m.styles.header.Render("Dominance Plan"))
	b.WriteRune('\n')

	plan := m.recon.Plan()
	switch plan.Kind {
	case snapshot.PlanProtocol:
		m.renderProtocolPlan(&b, plan.Protocol)
	case snapshot.PlanToken:
		m.renderTokenPlan(&b, plan.Token)
	default:
		b.WriteString(m.styles.dim.Render("  (no active plan)"))
		b.WriteRune('\n')
	}

	return b.String()
}

func (m uiModel) renderProtocolPlan(b *strings.Builder, p *snapshot.ProtocolPlan) {
	b.WriteString("  ")
	b.WriteString(m.styles.accent.Render("mission: "))
	b.WriteString(p.Mission)
	b.WriteRune('\n')
	if p.Hypothesis != "" {
		b.WriteString("  ")
		b.WriteString(m.styles.dim.Render("hypothesis: " + p.Hypothesis))
		b.WriteRune('\n')
	}

	m.renderPhases(b, p.Phases)
	m.renderSection(b, "External Hooks", p.Hooks)
	m.renderSection(b, "Risk Controls", p.RiskControls)
	m.renderSection(b, "Success Criteria", p.SuccessCriteria)
	m.renderSection(b, "Notes", p.Notes)
	m.renderKV(b, "Agent Consensus", p.AgentConsensus)
}

func (m uiModel) renderTokenPlan(b *strings.Builder, p *snapshot.TokenPlan) {
	b.WriteString("  ")
	b.WriteString(m.styles.accent.Render("token: "))
	b.WriteString(p.TokenName)
	if p.Archetype != "" {
		b.WriteString(m.styles.dim.Render("  (" + p.Archetype + ")"))
	}
	b.WriteRune('\n')
	if p.RiskLevel != "" || p.Timeline != "" {
		b.WriteString("  ")
		b.WriteString(m.styles.dim.Render(fmt.Sprintf("risk: %s | timeline: %s", p.RiskLevel, p.Timeline)))
		b.WriteRune('\n')
	}

	m.renderPhases(b, p.Phases)
	m.renderSection(b, "Tactics", p.Tactics)
	m.renderSection(b, "Viral Mechanics", p.ViralMechanics)
	m.renderSection(b, "Meme Concepts", p.MemeConcepts)
	m.renderSection(b, "Key Messages", p.KeyMessages)
	m.renderSection(b, "Target Audience", p.TargetAudience)
	m.renderKV(b, "Success Metrics", p.SuccessMetrics)
}

func (m uiModel) renderPhases(b *strings.Builder, phases []snapshot.PlanPhase) {
	if len(phases) == 0 {
		return
	}
	b.WriteRune('\n')
	b.WriteString(m.styles.header.Render("  Phases"))
	b.WriteRune('\n')
	for i, ph := range phases {
		b.WriteString(fmt.Sprintf("    %d. ", i+1))
		b.WriteString(m.styles.accent.Render(ph.Name))
		if ph.Description != "" {
			b.WriteString(m.styles.dim.Render(" - " + ph.Description))
		}
		b.WriteRune('\n')
		for _, action := range ph.Actions {
			b.WriteString("       - ")
			b.WriteString(action)
			b.WriteRune('\n')
		}
	}
}

// renderSection prints a bulleted list section, omitted entirely when empty.
func (m uiModel) renderSection(b *strings.Builder, title string, items []string) {
	if len(items) == 0 {
		return
	}
	b.WriteRune('\n')
	b.WriteString(m.styles.header.Render("  " + title))
	b.WriteRune('\n')
	for _, item := range items {
		b.WriteString("    - ")
		b.WriteString(item)
		b.WriteRune('\n')
	}
}

// renderKV prints a sorted key/value section, omitted entirely when empty.
func (m uiModel) renderKV(b *strings.Builder, title string, kv map[string]string) {
	if len(kv) == 0 {
		return
	}
	keys := make([]string, 0, len(kv))
	for k := range kv {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	b.WriteRune('\n')
	b.WriteString(m.styles.header.Render("  " + title))
	b.WriteRune('\n')
	for _, k := range keys {
		b.WriteString("    ")
		b.WriteString(m.styles.accent.Render(k + ": "))
		b.WriteString(kv[k])
		b.WriteRune('\n')
	}
}

// --- History view ---

func (m uiModel) renderHistory() string {
	var b strings.Builder
	b.WriteString(m.styles.header.Render("Conversation History"))
	b.WriteRune('\n')

	history := m.recon.History()
	if len(history) == 0 {
		b.WriteString(m.styles.dim.Render("  (no past conversations)"))
		b.WriteRune('\n')
		return b.String()
	}

	b.WriteString(m.styles.dim.Render(fmt.Sprintf("  %-40s %-10s %-6s %s",
		"Topic", "Status", "Msgs", "Started")))
	b.WriteRune('\n')

	for i, h := range history {
		cursor := "  "
		if i == m.selectedHistory {
			cursor = "> "
		}
		line := fmt.Sprintf("%s%-40s %-10s %-6d %s",
			cursor, truncate(h.Topic, 38), h.Status, h.MessageCount, shortTimestamp(h.StartedAt))
		if i == m.selectedHistory {
			b.WriteString(m.styles.accent.Bold(true).Render(line))
		} else {
			b.WriteString(line)
		}
		b.WriteRune('\n')
	}

	return b.String()
}

// --- Thread view ---

func (m uiModel) renderThread() string {
	var b strings.Builder

	var entry *snapshot.HistoryEntry
	for i := range m.recon.History() {
		if m.recon.History()[i].ID == m.threadID {
			entry = &m.recon.History()[i]
			break
		}
	}

	if entry == nil {
		b.WriteString(m.styles.dim.Render(fmt.Sprintf("  Thread %q not found", m.threadID)))
		return b.String()
	}

	b.WriteString(m.styles.header.Render(entry.Topic))
	b.WriteRune('\n')
	b.WriteString(m.styles.dim.Render(fmt.Sprintf("  id: %s | status: %s | %d messages | started %s",
		entry.ID, entry.Status, entry.MessageCount, shortTimestamp(entry.StartedAt))))
	b.WriteRune('\n')
	b.WriteRune('\n')

	if m.recon.Current() != nil && m.recon.Current().ID == entry.ID {
		b.WriteString(m.styles.accent.Render("  This thread is live, see the Dialogue view."))
	} else {
		b.WriteString(m.styles.dim.Render("  Archived thread. Message bodies are only retained for the live dialogue."))
	}
	b.WriteRune('\n')

	return b.String()
}

// --- Helpers ---

// truncateLines truncates each line in content to at most width visible
// characters, preserving ANSI escape codes. This prevents terminal line
// wrapping when the window is resized narrower.
func truncateLines(content string, width int) string {
	if width <= 0 {
		return content
	}
	lines := strings.Split(content, "\n")
	for i, line := range lines {
		if lipgloss.Width(line) > width {
			lines[i] = ansi.Truncate(line, width, "")
		}
	}
	return strings.Join(lines, "\n")
}

// wrapText breaks s into lines of at most width characters, splitting on word
// boundaries where possible. Embedded newlines are respected.
func wrapText(s string, width int) []string {
	if width <= 0 {
		width = 80
	}
	var lines []string
	for _, para := range strings.Split(s, "\n") {
		lines = append(lines, wrapParagraph(para, width)...)
	}
	return lines
}

// wrapParagraph wraps a single paragraph (no embedded newlines) to width.
// A word longer than the width is hard-split.
func wrapParagraph(s string, width int) []string {
	if len(s) <= width {
		return []string{s}
	}

	var lines []string
	for len(s) > 0 {
		if len(s) <= width {
			lines = append(lines, s)
			break
		}
		cut := -1
		for i := width; i > 0; i-- {
			if s[i] == ' ' {
				cut = i
				break
			}
		}
		if cut <= 0 {
			cut = width
			lines = append(lines, s[:cut])
			s = s[cut:]
		} else {
			lines = append(lines, s[:cut])
			s = s[cut+1:] // skip the space
		}
	}
	return lines
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// shortTimestamp compacts an RFC 3339 timestamp for table display. Anything
// unparseable is passed through as-is.
func shortTimestamp(s string) string {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return s
	}
	return t.Format("Jan 02 15:04")
}
