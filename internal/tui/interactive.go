package tui

import (
	"fmt"
	"math"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"
	"github.com/san-kum/ctrlab/internal/analysis"
	"github.com/san-kum/ctrlab/internal/compens"
	"github.com/san-kum/ctrlab/internal/jsonx"
	"github.com/san-kum/ctrlab/internal/lti"
)

var (
	markStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#00ffff")).Bold(true)
	activeStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#ffffff")).Bold(true)
	descStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#ff88ff"))
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#555566"))
	dimmerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#444455"))
	errStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#ff5555")).Bold(true)
	keyStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#00aaaa")).Bold(true)
	headStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#00cccc")).Bold(true)
	subStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#666688"))
)

var taskInfo = map[string]string{
	"analyze": "step response and stability",
	"margins": "gain and phase margins",
	"lead":    "lead compensator design",
	"lag":     "lag compensator design",
	"laglead": "lag-lead compensator design",
}

const (
	stateMenu = iota
	stateConfig
	stateResult
)

type model struct {
	state, cursor int
	tasks         []string
	selected      string
	numBuf        string
	denBuf        string
	params        map[string]float64
	paramNames    []string
	fieldCursor   int
	editing       bool
	editBuf       string
	result        string
	resultErr     string
	width, height int
}

func NewApp() *model {
	return &model{
		state:  stateMenu,
		tasks:  []string{"analyze", "margins", "lead", "lag", "laglead"},
		numBuf: "1",
		denBuf: "1,1,0",
		params: map[string]float64{"phase_margin": 50, "kv": 10, "safety": 5},
		width:  80, height: 24,
	}
}

func (m model) Init() tea.Cmd { return nil }

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
	}
	return m, nil
}

func (m model) handleKey(msg tea.KeyMsg) (model, tea.Cmd) {
	switch m.state {
	case stateMenu:
		return m.menuKey(msg)
	case stateConfig:
		return m.configKey(msg)
	case stateResult:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "escape", "enter":
			m.state = stateConfig
		}
	}
	return m, nil
}

func (m model) menuKey(msg tea.KeyMsg) (model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.tasks)-1 {
			m.cursor++
		}
	case "enter", " ":
		m.selected = m.tasks[m.cursor]
		m.state, m.fieldCursor = stateConfig, 0
		m.setFieldsForTask()
	}
	return m, nil
}

func (m *model) setFieldsForTask() {
	switch m.selected {
	case "lead":
		m.paramNames = []string{"phase_margin", "safety"}
	case "lag":
		m.paramNames = []string{"kv"}
	case "laglead":
		m.paramNames = []string{"phase_margin", "kv", "safety"}
	default:
		m.paramNames = nil
	}
}

// fields returns the editable config fields: the two coefficient buffers
// followed by the numeric design parameters for the selected task.
func (m model) fields() []string {
	return append([]string{"numerator", "denominator"}, m.paramNames...)
}

func (m model) configKey(msg tea.KeyMsg) (model, tea.Cmd) {
	fields := m.fields()
	if m.editing {
		switch msg.String() {
		case "enter":
			m.commitEdit(fields[m.fieldCursor])
			m.editing, m.editBuf = false, ""
		case "escape":
			m.editing, m.editBuf = false, ""
		case "backspace":
			if len(m.editBuf) > 0 {
				m.editBuf = m.editBuf[:len(m.editBuf)-1]
			}
		default:
			if len(msg.String()) == 1 {
				c := msg.String()[0]
				if (c >= '0' && c <= '9') || c == '.' || c == '-' || c == ',' {
					m.editBuf += string(c)
				}
			}
		}
		return m, nil
	}
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "escape":
		m.state = stateMenu
	case "up", "k":
		if m.fieldCursor > 0 {
			m.fieldCursor--
		}
	case "down", "j":
		if m.fieldCursor < len(fields)-1 {
			m.fieldCursor++
		}
	case "enter", " ":
		m.editing, m.editBuf = true, m.fieldValue(fields[m.fieldCursor])
	case "left", "h":
		if m.fieldCursor >= 2 {
			m.params[fields[m.fieldCursor]] -= 1
		}
	case "right", "l":
		if m.fieldCursor >= 2 {
			m.params[fields[m.fieldCursor]] += 1
		}
	case "s":
		m.run()
		m.state = stateResult
	}
	return m, nil
}

func (m *model) commitEdit(field string) {
	switch field {
	case "numerator":
		m.numBuf = m.editBuf
	case "denominator":
		m.denBuf = m.editBuf
	default:
		var val float64
		fmt.Sscanf(m.editBuf, "%f", &val)
		m.params[field] = val
	}
}

func (m model) fieldValue(field string) string {
	switch field {
	case "numerator":
		return m.numBuf
	case "denominator":
		return m.denBuf
	default:
		return fmt.Sprintf("%.1f", m.params[field])
	}
}

// ParseCoeffs parses a comma-separated coefficient list, highest degree
// first.
func ParseCoeffs(s string) ([]float64, error) {
	parts := strings.Split(s, ",")
	out := make([]float64, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		var v float64
		if _, err := fmt.Sscanf(p, "%f", &v); err != nil {
			return nil, fmt.Errorf("bad coefficient %q", p)
		}
		out = append(out, v)
	}
	return out, nil
}

func (m *model) run() {
	m.result, m.resultErr = "", ""
	num, err := ParseCoeffs(m.numBuf)
	if err != nil {
		m.resultErr = err.Error()
		return
	}
	den, err := ParseCoeffs(m.denBuf)
	if err != nil {
		m.resultErr = err.Error()
		return
	}
	sys, err := lti.New(num, den)
	if err != nil {
		m.resultErr = err.Error()
		return
	}

	switch m.selected {
	case "analyze":
		report, err := analysis.AnalyzeTF(sys)
		if err != nil {
			m.resultErr = err.Error()
			return
		}
		m.result = renderAnalysis(sys, report)
	case "margins":
		m.result = renderMargins(compens.ExtractMargins(sys))
	case "lead":
		report, err := compens.DesignLead(sys, m.params["phase_margin"], m.params["safety"], compens.DefaultSweep())
		if err != nil {
			m.resultErr = err.Error()
			return
		}
		m.result = renderDesign(report.Message, report.Performance, report.Plots)
	case "lag":
		report, err := compens.DesignLag(sys, m.params["kv"], compens.DefaultSweep())
		if err != nil {
			m.resultErr = err.Error()
			return
		}
		m.result = renderDesign(report.Message, report.Performance, report.Plots)
	case "laglead":
		report, err := compens.DesignLagLead(sys, m.params["phase_margin"], m.params["kv"], m.params["safety"], compens.DefaultSweep())
		if err != nil {
			m.resultErr = err.Error()
			return
		}
		m.result = renderDesign(report.Message, report.Performance, report.Plots)
	}
}

func renderAnalysis(sys lti.TF, report *analysis.TFReport) string {
	var b strings.Builder
	fmt.Fprintf(&b, "stability: %s\n", report.Stability.Status)
	for _, p := range report.Stability.Poles {
		fmt.Fprintf(&b, "  pole %s\n", p)
	}
	met := report.Metrics
	fmt.Fprintf(&b, "\nrise time:      %s\npeak time:      %s\novershoot:      %s\nsettling (2%%):  %s\n",
		met.RiseTime, met.PeakTime, met.MaxOvershoot, met.SettlingTime2Pct)
	if times, resp, err := sys.Feedback().StepResponse(); err == nil && len(resp) > 1 {
		b.WriteString("\n" + asciigraph.Plot(thin(resp, 80),
			asciigraph.Height(10), asciigraph.Width(72),
			asciigraph.Caption("closed-loop step response")))
		fmt.Fprintf(&b, "\nhorizon: %.2fs\n", times[len(times)-1])
	}
	return b.String()
}

func renderMargins(ms compens.MarginSet) string {
	return fmt.Sprintf("gain margin:   %s dB (at %s rad/s)\nphase margin:  %s deg (at %s rad/s)",
		fmtFloat(float64(ms.GainMarginDB)), fmtFloat(float64(ms.PhaseCrossoverFreq)),
		fmtFloat(float64(ms.PhaseMargin)), fmtFloat(float64(ms.GainCrossoverFreq)))
}

func renderDesign(msg string, perf compens.Performance, plots compens.Plots) string {
	var b strings.Builder
	b.WriteString(msg + "\n\n")
	fmt.Fprintf(&b, "phase margin: %s -> %s deg\ngain margin:  %s -> %s dB\n",
		fmtFloat(float64(perf.Before.PhaseMargin)), fmtFloat(float64(perf.After.PhaseMargin)),
		fmtFloat(float64(perf.Before.GainMarginDB)), fmtFloat(float64(perf.After.GainMarginDB)))
	if perf.Before.Kv != nil && perf.After.Kv != nil {
		fmt.Fprintf(&b, "kv:           %s -> %s\n", fmtFloat(float64(*perf.Before.Kv)), fmtFloat(float64(*perf.After.Kv)))
	}
	if resp := floats(plots.Step.CompResponse); len(resp) > 1 {
		b.WriteString("\n" + asciigraph.Plot(thin(resp, 80),
			asciigraph.Height(10), asciigraph.Width(72),
			asciigraph.Caption("compensated step response")))
	}
	return b.String()
}

func fmtFloat(v float64) string {
	switch {
	case math.IsNaN(v):
		return "n/a"
	case math.IsInf(v, 1):
		return "inf"
	case math.IsInf(v, -1):
		return "-inf"
	}
	return fmt.Sprintf("%.2f", v)
}

func floats(xs []jsonx.Float) []float64 {
	out := make([]float64, len(xs))
	for i, x := range xs {
		out[i] = float64(x)
	}
	return out
}

func thin(data []float64, n int) []float64 {
	if len(data) <= n {
		return data
	}
	out := make([]float64, n)
	for i := range out {
		out[i] = data[i*len(data)/n]
	}
	return out
}

func (m model) View() string {
	switch m.state {
	case stateMenu:
		return m.viewMenu()
	case stateConfig:
		return m.viewConfig()
	case stateResult:
		return m.viewResult()
	}
	return ""
}

func (m model) viewMenu() string {
	var b strings.Builder
	b.WriteString("\n\n    " + headStyle.Render("CTRLAB") + "\n    " + subStyle.Render("control system design lab") + "\n    " + subStyle.Render("─────────────────────────") + "\n\n")
	for i, name := range m.tasks {
		if i == m.cursor {
			b.WriteString(fmt.Sprintf("    %s %s  %s\n", markStyle.Render("▸"), activeStyle.Render(fmt.Sprintf("%-10s", name)), descStyle.Render(taskInfo[name])))
		} else {
			b.WriteString(fmt.Sprintf("    %s  %s\n", dimStyle.Render(fmt.Sprintf("  %-10s", name)), dimmerStyle.Render(taskInfo[name])))
		}
	}
	b.WriteString("\n    " + keyHelp("j/k", "navigate", "enter", "select", "q", "quit"))
	return b.String()
}

func (m model) viewConfig() string {
	var b strings.Builder
	b.WriteString("\n\n    " + headStyle.Render(strings.ToUpper(m.selected)) + "\n    " + subStyle.Render(taskInfo[m.selected]) + "\n    " + subStyle.Render("─────────────────────────") + "\n\n")
	for i, name := range m.fields() {
		val := m.fieldValue(name)
		if m.editing && i == m.fieldCursor {
			val = m.editBuf + "_"
		}
		if i == m.fieldCursor {
			b.WriteString(fmt.Sprintf("    %s %s %s\n", markStyle.Render("▸"), activeStyle.Render(fmt.Sprintf("%-14s", name)), descStyle.Render(val)))
		} else {
			b.WriteString(fmt.Sprintf("    %s %s\n", dimStyle.Render(fmt.Sprintf("  %-14s", name)), dimmerStyle.Render(val)))
		}
	}
	b.WriteString("\n    " + keyHelp("j/k", "select", "enter", "edit", "s", "run", "esc", "back"))
	return b.String()
}

func (m model) viewResult() string {
	var b strings.Builder
	b.WriteString("\n\n    " + headStyle.Render(strings.ToUpper(m.selected)) + "\n\n")
	if m.resultErr != "" {
		b.WriteString("    " + errStyle.Render(m.resultErr) + "\n")
	} else {
		for _, line := range strings.Split(m.result, "\n") {
			b.WriteString("    " + line + "\n")
		}
	}
	b.WriteString("\n    " + keyHelp("esc", "back", "q", "quit"))
	return b.String()
}

func keyHelp(pairs ...string) string {
	var b strings.Builder
	for i := 0; i+1 < len(pairs); i += 2 {
		b.WriteString(keyStyle.Render(pairs[i]) + dimStyle.Render(" "+pairs[i+1]+"  "))
	}
	return b.String() + "\n"
}

func RunInteractive() error {
	_, err := tea.NewProgram(NewApp(), tea.WithAltScreen()).Run()
	return err
}
