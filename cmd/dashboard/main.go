// Command dashboard is a thin terminal poller of the engine's control API:
// every 2s it polls the get_stats action and shows the result (positions,
// today's and cumulative PnL, circuit-breaker state) without touching the
// engine's internals directly.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/go-resty/resty/v2"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("10"))
	panelStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1).Margin(0, 1)
	errStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	okStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
)

type tickMsg time.Time

type statsMsg struct {
	stats map[string]interface{}
	err   error
}

type model struct {
	addr   string
	http   *resty.Client
	stats  map[string]interface{}
	lastErr error
	width  int
}

func newModel(addr string) model {
	return model{addr: addr, http: resty.New().SetTimeout(5 * time.Second)}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(m.poll(), tea.Tick(2*time.Second, func(t time.Time) tea.Msg { return tickMsg(t) }))
}

func (m model) poll() tea.Cmd {
	return func() tea.Msg {
		var resp map[string]interface{}
		r, err := m.http.R().
			SetBody(map[string]string{"action": "get_stats"}).
			SetResult(&resp).
			Post(m.addr + "/")
		if err != nil {
			return statsMsg{err: err}
		}
		if r.IsError() {
			return statsMsg{err: fmt.Errorf("control api returned %s", r.Status())}
		}
		return statsMsg{stats: resp}
	}
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil
	case tickMsg:
		return m, tea.Batch(m.poll(), tea.Tick(2*time.Second, func(t time.Time) tea.Msg { return tickMsg(t) }))
	case statsMsg:
		m.stats = msg.stats
		m.lastErr = msg.err
		return m, nil
	case tea.KeyMsg:
		if msg.String() == "q" || msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m model) View() string {
	var b strings.Builder
	b.WriteString(headerStyle.Render("quoting engine dashboard") + "\n\n")

	if m.lastErr != nil {
		b.WriteString(panelStyle.Render(errStyle.Render("poll failed: "+m.lastErr.Error())) + "\n")
		return b.String()
	}

	pretty, _ := json.MarshalIndent(m.stats, "", "  ")
	breaker := "false"
	if v, ok := m.stats["circuitBreaker"].(bool); ok && v {
		breaker = okStyle.Render("TRIPPED")
	}
	b.WriteString(panelStyle.Render(fmt.Sprintf("circuit breaker: %s\n\n%s", breaker, string(pretty))) + "\n")
	b.WriteString("\nq to quit\n")
	return b.String()
}

func main() {
	addr := flag.String("addr", "http://localhost:8080", "engine control API base URL")
	flag.Parse()

	if _, err := tea.NewProgram(newModel(*addr)).Run(); err != nil {
		fmt.Println("dashboard exited with error:", err)
	}
}
