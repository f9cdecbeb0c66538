package console

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"

	"cityops/internal/activity"
	"cityops/internal/chat"
	"cityops/internal/mapsync"
	"cityops/internal/scenario"
	"cityops/internal/session"
)

const (
	defaultFocusStep  = 5
	refinePollEvery   = 250 * time.Millisecond
	maxActivityLines  = 200
	activityPaneLines = 4
)

// revealMsg delivers a copilot reply once its typing delay has passed.
type revealMsg struct {
	area string
	rep  chat.Reply
}

// refinePollMsg asks the model to check on a running refinement.
type refinePollMsg struct{}

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	mutedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	userStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("14"))
	botStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	upStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	downStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	panelStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("8")).Padding(0, 1)
)

type model struct {
	registry  *scenario.Registry
	sess      *session.Session
	area      string
	focusStep float64

	table      table.Model
	transcript viewport.Model
	activityVP viewport.Model
	input      textinput.Model

	current    *scenario.Definition
	focus      float64
	lines      []string
	activity   []string
	typing     bool
	refining   bool
	refineArea string
	wrap       bool
	status     string
	width      int
	height     int
	record     activity.Writer
}

func newModel(opts Options) model {
	reg := opts.Registry
	if reg == nil {
		reg = scenario.DefaultRegistry()
	}
	area := opts.Area
	if area == "" {
		area = defaultArea
	}
	step := opts.FocusStep
	if step <= 0 {
		step = defaultFocusStep
	}

	cols := []table.Column{
		{Title: "Scenario", Width: 20},
		{Title: "Title", Width: 28},
		{Title: "Layers", Width: 7},
	}
	var rows []table.Row
	for _, d := range reg.All() {
		rows = append(rows, table.Row{d.Key, d.Title, strconv.Itoa(len(d.Layers))})
	}
	t := table.New(table.WithColumns(cols), table.WithRows(rows), table.WithHeight(len(rows)+1), table.WithFocused(true))

	in := textinput.New()
	in.Placeholder = "ask the copilot (tab to type)"
	in.CharLimit = 500

	m := model{
		registry:   reg,
		sess:       opts.Session,
		area:       area,
		focusStep:  step,
		table:      t,
		transcript: viewport.New(0, 0),
		activityVP: viewport.New(0, activityPaneLines),
		input:      in,
		focus:      mapsync.DefaultFocus,
	}
	if m.sess != nil {
		st := m.sess.State()
		m.focus = st.Focus
		if d, err := reg.Get(st.Scenario); err == nil {
			m.current = d
			m.table.SetCursor(indexOf(reg.Keys(), d.Key))
		}
	}
	return m
}

func indexOf(keys []string, key string) int {
	for i, k := range keys {
		if k == key {
			return i
		}
	}
	return 0
}

func (m model) Init() tea.Cmd { return nil }

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.table.SetWidth(msg.Width / 2)
		m.transcript.Width = msg.Width
		m.activityVP.Width = msg.Width
		m.input.Width = msg.Width - 4
		m.layout()
		m.refreshTranscript()
		m.refreshActivity()
	case setRecorderMsg:
		m.record = msg.w
	case activityMsg:
		m.activity = append(m.activity, formatRow(msg.row))
		if len(m.activity) > maxActivityLines {
			m.activity = m.activity[len(m.activity)-maxActivityLines:]
		}
		m.refreshActivity()
	case revealMsg:
		m.typing = false
		m.say("copilot", msg.rep.Text)
		if msg.rep.State.Refining {
			m.refining = true
			m.refineArea = msg.area
			return m, pollRefine()
		}
	case refinePollMsg:
		return m, m.checkRefine()
	case tea.KeyMsg:
		if m.input.Focused() {
			return m.updateInput(msg)
		}
		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit
		case "left", "h":
			m.setFocus(m.focus - m.focusStep)
		case "right", "l":
			m.setFocus(m.focus + m.focusStep)
		case "enter":
			m.selectScenario()
		case "tab", "i":
			return m, m.input.Focus()
		case "a":
			m.toggleArea()
		case "w":
			m.wrap = !m.wrap
			m.refreshTranscript()
		default:
			var cmd tea.Cmd
			m.table, cmd = m.table.Update(msg)
			return m, cmd
		}
	}
	return m, nil
}

func (m model) updateInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc, tea.KeyTab:
		m.input.Blur()
		return m, nil
	case tea.KeyCtrlC:
		return m, tea.Quit
	case tea.KeyEnter:
		text := strings.TrimSpace(m.input.Value())
		m.input.SetValue("")
		if text == "" || m.typing {
			return m, nil
		}
		return m, m.send(text)
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// send posts text to the copilot and returns the command that reveals the
// reply after its typing delay.
func (m *model) send(text string) tea.Cmd {
	m.say("you", text)
	if m.sess == nil {
		return nil
	}
	rep, err := m.sess.Chat(m.area, "", text)
	if err != nil {
		m.status = err.Error()
		return nil
	}
	m.typing = true
	area := m.area
	m.recordRow(activity.Row{Kind: activity.KindChatTurn, Detail: m.area + "/" + rep.Section + " " + rep.Intent})
	if rep.RevealAfter <= 0 {
		return func() tea.Msg { return revealMsg{area: area, rep: rep} }
	}
	return tea.Tick(rep.RevealAfter, func(time.Time) tea.Msg { return revealMsg{area: area, rep: rep} })
}

func pollRefine() tea.Cmd {
	return tea.Tick(refinePollEvery, func(time.Time) tea.Msg { return refinePollMsg{} })
}

func (m *model) checkRefine() tea.Cmd {
	if m.sess == nil || !m.refining {
		return nil
	}
	st, err := m.sess.ChatState(m.refineArea)
	if err != nil {
		m.refining = false
		return nil
	}
	if st.Refining {
		return pollRefine()
	}
	m.refining = false
	if n := len(st.Transcript); n > 0 {
		m.say("copilot", st.Transcript[n-1].Text)
	}
	return nil
}

func (m *model) setFocus(f float64) {
	if m.sess == nil {
		m.focus = mapsync.ClampFocus(f)
		return
	}
	got, err := m.sess.SetFocus(f)
	if err != nil {
		m.status = err.Error()
		return
	}
	m.focus = got
	m.sess.Ops(false)
	m.recordRow(activity.Row{Kind: activity.KindFocusChanged, Scenario: m.scenarioKey(), Focus: got})
}

func (m *model) selectScenario() {
	row := m.table.SelectedRow()
	if len(row) == 0 {
		return
	}
	if m.sess == nil {
		if d, err := m.registry.Get(row[0]); err == nil {
			m.current = d
		}
		return
	}
	def, v, err := m.sess.SelectScenario(row[0])
	if err != nil {
		m.status = err.Error()
		return
	}
	m.current = def
	ops := m.sess.Ops(false)
	m.status = fmt.Sprintf("%s: %d map ops, viewport %s", def.Key, len(ops), v.Mode)
	m.recordRow(activity.Row{Kind: activity.KindScenarioSelected, Scenario: def.Key, Focus: m.focus})
}

func (m *model) toggleArea() {
	if m.area == chat.AreaInsights {
		m.area = chat.AreaUpload
	} else {
		m.area = chat.AreaInsights
	}
	m.status = "copilot area: " + m.area
}

func (m *model) recordRow(row activity.Row) {
	if m.record == nil {
		return
	}
	if m.sess != nil {
		row.SessionID = m.sess.ID
	}
	if row.Timestamp.IsZero() {
		row.Timestamp = time.Now()
	}
	if err := m.record.Write(row); err != nil {
		m.status = "activity: " + err.Error()
	}
}

func (m model) scenarioKey() string {
	if m.current == nil {
		return ""
	}
	return m.current.Key
}

func (m *model) say(who, text string) {
	style := botStyle
	if who == "you" {
		style = userStyle
	}
	m.lines = append(m.lines, style.Render(who+":")+" "+text)
	m.refreshTranscript()
}

func (m *model) layout() {
	h := m.height - lipgloss.Height(m.renderHeader()) - activityPaneLines - 8
	if h < 1 {
		h = 1
	}
	m.transcript.Height = h
	m.transcript.GotoBottom()
}

func (m *model) refreshTranscript() {
	var lines []string
	for _, l := range m.lines {
		if m.wrap && m.transcript.Width > 0 {
			l = wordwrap.String(l, m.transcript.Width)
		}
		lines = append(lines, l)
	}
	m.transcript.SetContent(strings.Join(lines, "\n"))
	m.transcript.GotoBottom()
}

func (m *model) refreshActivity() {
	content := mutedStyle.Render("none")
	if len(m.activity) > 0 {
		content = strings.Join(m.activity, "\n")
	}
	m.activityVP.SetContent(content)
	m.activityVP.GotoBottom()
}

func (m model) View() string {
	divider := strings.Repeat("─", max(m.width, 1))
	typing := ""
	if m.typing {
		typing = mutedStyle.Render("copilot is typing…")
	}
	sections := []string{
		m.renderHeader(),
		divider,
		titleStyle.Render("Copilot · " + m.area),
		m.transcript.View(),
		typing,
		m.input.View(),
		divider,
		"Activity:",
		m.activityVP.View(),
		divider,
		m.renderBottom(),
	}
	return strings.Join(sections, "\n")
}

func (m model) renderHeader() string {
	return lipgloss.JoinHorizontal(lipgloss.Top, m.table.View(), " ", m.renderKPIs())
}

func (m model) renderKPIs() string {
	if m.current == nil {
		return panelStyle.Render(mutedStyle.Render("no scenario"))
	}
	var b strings.Builder
	b.WriteString(titleStyle.Render(m.current.Title))
	for _, k := range m.current.KPIs {
		change := k.Change
		switch k.Direction {
		case "up":
			change = upStyle.Render("▲ " + change)
		case "down":
			change = downStyle.Render("▼ " + change)
		}
		fmt.Fprintf(&b, "\n%-24s %s%s %s", k.Label, strconv.FormatFloat(k.Value, 'f', -1, 64), k.Unit, change)
	}
	return panelStyle.Render(b.String())
}

func (m model) renderBottom() string {
	bar := focusBar(m.focus, 20)
	line := fmt.Sprintf("focus %s %3.0f  intensity ×%.2f", bar, m.focus, mapsync.IntensityScalar(m.focus))
	if m.refining {
		line += "  " + mutedStyle.Render("refining…")
	}
	help := mutedStyle.Render("↑/↓ scenario · enter select · ←/→ focus · tab chat · a area · w wrap · q quit")
	if m.status != "" {
		return line + "\n" + m.status + "\n" + help
	}
	return line + "\n" + help
}

func focusBar(focus float64, width int) string {
	n := int(mapsync.ClampFocus(focus) / mapsync.FocusMax * float64(width))
	return "[" + strings.Repeat("█", n) + strings.Repeat("░", width-n) + "]"
}

func formatRow(r activity.Row) string {
	id := r.SessionID
	if len(id) > 8 {
		id = id[:8]
	}
	line := fmt.Sprintf("%s %s %s", mutedStyle.Render(r.Timestamp.Format("15:04:05")), id, r.Kind)
	if r.Scenario != "" {
		line += " scenario=" + r.Scenario
	}
	if r.Detail != "" {
		line += " " + r.Detail
	}
	return line
}
