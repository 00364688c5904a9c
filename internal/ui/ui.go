// Package ui implements the interactive terminal dashboard: a connection
// form, the live tunnel log, and the system proxy toggle.
package ui

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/xenitz/cloudsocks/internal/events"
	"github.com/xenitz/cloudsocks/internal/history"
	"github.com/xenitz/cloudsocks/internal/launcher"
	"github.com/xenitz/cloudsocks/internal/model"
	"github.com/xenitz/cloudsocks/internal/resolver"
	"github.com/xenitz/cloudsocks/internal/settings"
	"github.com/xenitz/cloudsocks/internal/supervisor"
	"github.com/xenitz/cloudsocks/internal/sysproxy"
)

// maxLogLines bounds the in-memory log panel.
const maxLogLines = 200

// recentLimit bounds the recent-targets panel shown next to the form.
const recentLimit = 5

type tickMsg time.Time

type statusMsg string

// tunnelEventMsg wraps one supervisor notification.
type tunnelEventMsg supervisor.Event

// tunnelClosedMsg signals the event channel closed: the session is over.
type tunnelClosedMsg struct{}

type modelUI struct {
	cfg  settings.Config
	form *connForm

	sup    *supervisor.Supervisor
	evts   <-chan supervisor.Event
	req    model.TunnelRequest
	state  model.TunnelState
	logged bool // first connected event journaled

	proxy   sysproxy.Manager
	proxyOn bool

	journal *events.Store
	recent  []string

	logs   []string
	status string
	width  int
	height int
}

func initialModel() modelUI {
	cfg, err := settings.Load()
	if err != nil {
		cfg = settings.Default()
	}
	m := modelUI{
		cfg:     cfg,
		form:    newForm(cfg),
		state:   model.StateIdle,
		proxy:   sysproxy.New(),
		journal: events.NewStore(),
	}
	m.status = "Fill in the target and press Enter to connect."
	if err != nil {
		m.status = "settings error: " + err.Error() + " (using defaults)"
	}
	if st, err := m.proxy.Current(); err == nil {
		m.proxyOn = st.Enabled
	}
	if recent, err := history.RecentTargets(recentLimit); err == nil {
		m.recent = recent
	}
	return m
}

func tickCmd(seconds int) tea.Cmd {
	if seconds <= 0 {
		seconds = 3
	}
	return tea.Tick(time.Duration(seconds)*time.Second, func(t time.Time) tea.Msg { return tickMsg(t) })
}

// waitForEvent blocks on the supervisor channel and feeds the next
// notification into the update loop.
func waitForEvent(ch <-chan supervisor.Event) tea.Cmd {
	return func() tea.Msg {
		evt, ok := <-ch
		if !ok {
			return tunnelClosedMsg{}
		}
		return tunnelEventMsg(evt)
	}
}

func (m modelUI) Init() tea.Cmd {
	return tickCmd(m.cfg.UI.RefreshSeconds)
}

// sessionActive reports whether a tunnel session is running (or starting).
func (m modelUI) sessionActive() bool {
	return m.state != model.StateIdle && !m.state.Terminal()
}

func (m modelUI) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tickMsg:
		if st, err := m.proxy.Current(); err == nil {
			m.proxyOn = st.Enabled
		}
		return m, tickCmd(m.cfg.UI.RefreshSeconds)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tunnelEventMsg:
		return m.handleTunnelEvent(supervisor.Event(msg))

	case tunnelClosedMsg:
		if m.sup != nil {
			m.state = m.sup.State()
		}
		switch m.state {
		case model.StateFailed:
			m.status = "Tunnel failed. Adjust parameters and press Enter to retry."
		default:
			m.status = "Tunnel stopped."
		}
		m.sup = nil
		m.evts = nil
		return m, nil

	case statusMsg:
		m.status = string(msg)
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m modelUI) handleTunnelEvent(evt supervisor.Event) (tea.Model, tea.Cmd) {
	switch evt.Kind {
	case supervisor.EventLog:
		m.logs = append(m.logs, evt.Line)
		if len(m.logs) > maxLogLines {
			m.logs = m.logs[len(m.logs)-maxLogLines:]
		}
	case supervisor.EventStatus:
		if evt.Connected {
			m.state = model.StateConnected
			m.status = fmt.Sprintf("Connected. SOCKS proxy on 127.0.0.1:%d. Press p to route the system through it.", m.req.SocksPort)
			if !m.logged {
				m.logged = true
				m.appendJournal(events.TypeConnected, "")
				if err := history.Touch(m.req.Target()); err != nil {
					slog.Warn("failed to record history", "error", err)
				} else if recent, err := history.RecentTargets(recentLimit); err == nil {
					m.recent = recent
				}
			}
		} else if m.state == model.StateConnected {
			m.state = model.StateStarting
		}
	}
	return m, waitForEvent(m.evts)
}

func (m modelUI) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		return m.quit()
	}

	if m.sessionActive() {
		switch msg.String() {
		case "q", "esc":
			return m.quit()
		case "d":
			return m.disconnect()
		case "p":
			return m.toggleProxy()
		}
		return m, nil
	}

	// Form mode: most keys belong to the text inputs.
	switch msg.String() {
	case "esc":
		return m.quit()
	case "ctrl+p":
		return m.toggleProxy()
	}
	req, cmd := m.form.update(msg)
	if req == nil {
		return m, cmd
	}
	return m.connect(*req)
}

func (m modelUI) quit() (tea.Model, tea.Cmd) {
	if m.sup != nil {
		m.sup.Stop()
		m.appendJournal(events.TypeStopped, "")
	}
	return m, tea.Quit
}

func (m modelUI) connect(req model.TunnelRequest) (tea.Model, tea.Cmd) {
	m.rememberRequest(req)

	opts := supervisor.Options{}
	if req.NeedsResolution() {
		r, err := resolver.NewEC2(context.Background(), req.Region)
		if err != nil {
			m.status = "EC2 client error: " + err.Error()
			return m, nil
		}
		opts.Resolver = r
	}
	sup := supervisor.New(launcher.New(), opts)
	ch, err := sup.Start(context.Background(), req)
	if err != nil {
		m.status = "Start failed: " + err.Error()
		return m, nil
	}

	m.sup = sup
	m.evts = ch
	m.req = req
	m.state = model.StateStarting
	m.logged = false
	m.logs = nil
	m.status = "Starting tunnel to " + req.Target() + "..."
	m.appendJournal(events.TypeStartRequested, "")
	return m, waitForEvent(ch)
}

func (m modelUI) disconnect() (tea.Model, tea.Cmd) {
	if m.sup == nil {
		return m, nil
	}
	m.status = "Stopping tunnel..."
	sup := m.sup
	m.appendJournal(events.TypeStopped, "")
	// Stop blocks up to the grace period; keep the UI responsive.
	return m, func() tea.Msg {
		sup.Stop()
		return statusMsg("Tunnel stopped.")
	}
}

func (m modelUI) toggleProxy() (tea.Model, tea.Cmd) {
	if m.proxyOn {
		if err := m.proxy.Disable(); err != nil {
			m.status = "Proxy disable failed: " + err.Error()
			return m, nil
		}
		m.proxyOn = false
		m.status = "System proxy disabled."
		m.appendJournalEvent(events.Event{EventType: events.TypeProxyDisabled})
		return m, nil
	}
	if err := m.proxy.Enable(m.cfg.Proxy.Host, m.cfg.Proxy.Port); err != nil {
		m.status = "Proxy enable failed: " + err.Error()
		return m, nil
	}
	m.proxyOn = true
	m.status = fmt.Sprintf("System proxy enabled: %s:%d", m.cfg.Proxy.Host, m.cfg.Proxy.Port)
	m.appendJournalEvent(events.Event{
		EventType: events.TypeProxyEnabled,
		Message:   m.cfg.Proxy.Host + ":" + strconv.Itoa(m.cfg.Proxy.Port),
	})
	return m, nil
}

// rememberRequest persists the accepted form values as the new defaults.
func (m *modelUI) rememberRequest(req model.TunnelRequest) {
	m.cfg.Provider = string(req.Provider)
	m.cfg.Proxy.Port = req.SocksPort
	switch req.Provider {
	case model.ProviderGCP:
		m.cfg.GCP = settings.GCPConfig{Project: req.Project, Zone: req.Zone, Instance: req.Instance}
	case model.ProviderAWS:
		m.cfg.AWS = settings.AWSConfig{
			Region: req.Region, InstanceID: req.InstanceID,
			Host: req.Host, User: req.User, KeyFile: req.KeyFile,
		}
	}
	if err := settings.Save(m.cfg); err != nil {
		slog.Warn("failed to save settings", "error", err)
	}
}

func (m modelUI) appendJournal(eventType, message string) {
	m.appendJournalEvent(events.Event{
		Provider:  m.req.Provider,
		Target:    m.req.Target(),
		EventType: eventType,
		Message:   message,
	})
}

func (m modelUI) appendJournalEvent(evt events.Event) {
	if err := m.journal.Append(evt); err != nil {
		slog.Warn("failed to append event", "type", evt.EventType, "error", err)
	}
}

func (m modelUI) View() string {
	head := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39")).Render("cloudsocks")
	subhead := fmt.Sprintf("state=%s proxy=%s refresh=%ds", m.state, onOff(m.proxyOn), clampRefresh(m.cfg.UI.RefreshSeconds))

	width := m.effectiveWidth()
	var top string
	if m.sessionActive() {
		top = m.renderPanel("Tunnel", m.tunnelBlock(), width, lipgloss.Color("63"))
	} else {
		top = m.form.view(m.renderPanel, width)
		if len(m.recent) > 0 {
			recent := m.renderPanel("Recent Targets", m.recentBlock(), width, lipgloss.Color("241"))
			top = lipgloss.JoinVertical(lipgloss.Left, top, recent)
		}
	}

	logs := m.renderPanel("SSH Output", m.logBlock(), width, lipgloss.Color("69"))
	status := m.renderPanel("Status", m.status, width, lipgloss.Color("205"))

	quickHelp := "Keys: Enter connect | Esc/q quit"
	if m.sessionActive() {
		quickHelp = "Keys: d disconnect | p toggle system proxy | q quit"
	}

	return lipgloss.JoinVertical(
		lipgloss.Left,
		head,
		subhead,
		quickHelp,
		top,
		logs,
		status,
	)
}

func (m modelUI) tunnelBlock() string {
	var b strings.Builder
	b.WriteString("Target: " + m.req.Target() + "\n")
	b.WriteString(fmt.Sprintf("SOCKS:  127.0.0.1:%d\n", m.req.SocksPort))
	b.WriteString("State:  " + string(m.state) + "\n")
	b.WriteString("Proxy:  " + onOff(m.proxyOn))
	return b.String()
}

func (m modelUI) recentBlock() string {
	var b strings.Builder
	for i, target := range m.recent {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(target)
	}
	return b.String()
}

func (m modelUI) logBlock() string {
	if len(m.logs) == 0 {
		return "(no output yet)"
	}
	visible := m.logs
	if limit := m.visibleLogLines(); len(visible) > limit {
		visible = visible[len(visible)-limit:]
	}
	return strings.Join(visible, "\n")
}

// visibleLogLines keeps the log panel from pushing the status line off
// screen on short terminals.
func (m modelUI) visibleLogLines() int {
	if m.height <= 0 {
		return 15
	}
	n := m.height - 18
	if n < 5 {
		n = 5
	}
	return n
}

func onOff(v bool) string {
	if v {
		return "on"
	}
	return "off"
}

func clampRefresh(seconds int) int {
	if seconds <= 0 {
		return 3
	}
	return seconds
}

func (m modelUI) effectiveWidth() int {
	if m.width <= 0 {
		return 100
	}
	return m.width
}

func (m modelUI) renderPanel(title, body string, width int, accent lipgloss.Color) string {
	if width < 24 {
		width = 24
	}
	header := lipgloss.NewStyle().Bold(true).Foreground(accent).Render(title)
	content := strings.TrimSuffix(body, "\n")
	panel := strings.TrimSpace(header + "\n" + content)
	return lipgloss.NewStyle().
		Width(width).
		Border(lipgloss.RoundedBorder()).
		BorderForeground(accent).
		Padding(0, 1).
		Render(panel)
}

// Run starts the dashboard and blocks until the user quits.
func Run() error {
	p := tea.NewProgram(initialModel(), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
