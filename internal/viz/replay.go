package viz

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/san-kum/rkadapt/internal/dynamo"
	"github.com/san-kum/rkadapt/internal/trajectory"
)

type tickMsg time.Time

// Replay steps through a stored trajectory one record at a time.
type Replay struct {
	title    string
	records  []dynamo.Record
	cursor   int
	playing  bool
	interval time.Duration
	width    int
}

func NewReplay(title string, records []dynamo.Record, interval time.Duration) Replay {
	if interval <= 0 {
		interval = 100 * time.Millisecond
	}
	return Replay{title: title, records: records, interval: interval, width: 80}
}

func (m Replay) Cursor() int { return m.cursor }

func (m Replay) tick() tea.Cmd {
	return tea.Tick(m.interval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m Replay) Init() tea.Cmd { return nil }

func (m Replay) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)
	case tea.WindowSizeMsg:
		m.width = msg.Width
	case tickMsg:
		if !m.playing {
			return m, nil
		}
		if m.cursor >= len(m.records)-1 {
			m.playing = false
			return m, nil
		}
		m.cursor++
		return m, m.tick()
	}
	return m, nil
}

func (m Replay) handleKey(msg tea.KeyMsg) (Replay, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c", "esc":
		return m, tea.Quit
	case "right", "l":
		if m.cursor < len(m.records)-1 {
			m.cursor++
		}
	case "left", "h":
		if m.cursor > 0 {
			m.cursor--
		}
	case "home", "g":
		m.cursor = 0
	case "end", "G":
		m.cursor = max(len(m.records)-1, 0)
	case " ":
		m.playing = !m.playing
		if m.playing {
			return m, m.tick()
		}
	}
	return m, nil
}

func (m Replay) View() string {
	if len(m.records) == 0 {
		return "no records\n"
	}

	rec := m.records[m.cursor]
	var b strings.Builder
	b.WriteString(Title.Render(m.title))
	b.WriteString(Subtle.Render(fmt.Sprintf("  record %d/%d", m.cursor+1, len(m.records))))
	b.WriteString("\n\n")
	b.WriteString(trajectory.FormatLine(rec))
	b.WriteString("\n\n")

	span := m.records[len(m.records)-1].Time - m.records[0].Time
	progress := 1.0
	if span > 0 {
		progress = (rec.Time - m.records[0].Time) / span
	}
	barWidth := max(min(m.width-10, 60), 10)
	b.WriteString(ProgressBar(progress, barWidth))
	b.WriteString("\n")

	steps := make([]float64, 0, m.cursor)
	for _, r := range m.records[1 : m.cursor+1] {
		steps = append(steps, r.StepSize)
	}
	b.WriteString(Subtle.Render("h " + Sparkline(steps, barWidth)))
	b.WriteString("\n\n")

	state := "paused"
	if m.playing {
		state = "playing"
	}
	b.WriteString(KeyHint.Render(fmt.Sprintf("%s · ←/→ step · space play · g/G ends · q quit", state)))
	b.WriteString("\n")
	return b.String()
}
