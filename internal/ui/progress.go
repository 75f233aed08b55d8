// Package ui renders batch build progress in the terminal.
package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"quill/internal/buildpipeline"
)

type progressModel struct {
	title      string
	events     <-chan buildpipeline.Event
	spinner    spinner.Model
	prog       progress.Model
	items      []fileItem
	index      map[string]int
	stageLabel string
	width      int
	done       bool
}

type fileItem struct {
	path     string
	status   string
	stage    buildpipeline.Stage
	finished bool
	reason   string // first line of the failure, if any
}

type eventMsg buildpipeline.Event
type doneMsg struct{}

// NewProgressModel returns a Bubble Tea model listing files with their
// current stage. It quits when events is closed.
func NewProgressModel(title string, files []string, events <-chan buildpipeline.Event) tea.Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))

	prog := progress.New(progress.WithDefaultGradient())
	prog.Width = 76

	items := make([]fileItem, 0, len(files))
	index := make(map[string]int, len(files))
	for i, file := range files {
		items = append(items, fileItem{path: file, status: "queued"})
		index[file] = i
	}
	return &progressModel{
		title:   title,
		events:  events,
		spinner: sp,
		prog:    prog,
		items:   items,
		index:   index,
		width:   80,
	}
}

func (m *progressModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.listenForEvent())
}

func (m *progressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case eventMsg:
		cmd := m.applyEvent(buildpipeline.Event(msg))
		return m, tea.Batch(cmd, m.listenForEvent())
	case doneMsg:
		m.done = true
		return m, tea.Quit
	case spinner.TickMsg:
		if m.done {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case tea.WindowSizeMsg:
		if msg.Width > 0 {
			m.width = msg.Width
			m.prog.Width = msg.Width - 4
		}
		return m, nil
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
	case progress.FrameMsg:
		pm, cmd := m.prog.Update(msg)
		m.prog = pm.(progress.Model)
		return m, cmd
	}
	return m, nil
}

func (m *progressModel) View() string {
	if len(m.items) == 0 {
		return ""
	}
	header := m.title
	if m.stageLabel != "" && !m.done {
		header += " (" + m.stageLabel + ")"
	}
	if m.done {
		header = "done: " + header
	} else {
		header = m.spinner.View() + " " + header
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render(header))
	b.WriteString("\n\n")

	const statusWidth = 12
	nameWidth := max(m.width-statusWidth-4, 20)
	for _, item := range m.items {
		status := styleStatus(item.status).Render(fmt.Sprintf("%*s", statusWidth, item.status))
		fmt.Fprintf(&b, "  %s %s\n", status, truncate(item.path, nameWidth))
		if item.reason != "" {
			fmt.Fprintf(&b, "  %*s %s\n", statusWidth, "", reasonStyle.Render(truncate(item.reason, nameWidth)))
		}
	}

	b.WriteString("\n")
	if m.done {
		b.WriteString(m.prog.ViewAs(1.0))
	} else {
		b.WriteString(m.prog.View())
	}
	b.WriteString("\n")
	b.WriteString(m.tally())
	b.WriteString("\n")
	return b.String()
}

// tally summarises finished templates: "2 compiled, 1 cached, 1 failed of 5".
func (m *progressModel) tally() string {
	var compiled, cached, failed int
	for _, item := range m.items {
		if !item.finished {
			continue
		}
		switch item.status {
		case "cached":
			cached++
		case "error":
			failed++
		default:
			compiled++
		}
	}
	parts := []string{fmt.Sprintf("%d compiled", compiled)}
	if cached > 0 {
		parts = append(parts, fmt.Sprintf("%d cached", cached))
	}
	if failed > 0 {
		parts = append(parts, styleStatus("error").Render(fmt.Sprintf("%d failed", failed)))
	}
	return strings.Join(parts, ", ") + fmt.Sprintf(" of %d", len(m.items))
}

func (m *progressModel) listenForEvent() tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-m.events
		if !ok {
			return doneMsg{}
		}
		return eventMsg(ev)
	}
}

func (m *progressModel) applyEvent(ev buildpipeline.Event) tea.Cmd {
	if ev.File == "" {
		if label := stageLabel(ev.Stage); label != "" {
			m.stageLabel = label
		}
		return nil
	}
	idx, ok := m.index[ev.File]
	if !ok && ev.Status == buildpipeline.StatusQueued {
		// files discovered by the build itself
		idx = len(m.items)
		m.items = append(m.items, fileItem{path: ev.File, status: "queued"})
		m.index[ev.File] = idx
		return nil
	}
	if !ok || m.items[idx].finished {
		return nil
	}
	item := &m.items[idx]
	switch {
	case ev.Status == buildpipeline.StatusError:
		item.status, item.finished = "error", true
		if ev.Err != nil {
			item.reason, _, _ = strings.Cut(ev.Err.Error(), "\n")
		}
	case ev.Status == buildpipeline.StatusDone && ev.Stage == buildpipeline.StageWrite:
		if item.status != "cached" {
			item.status = "done"
		}
		item.finished = true
	case ev.Status == buildpipeline.StatusCached:
		item.status = "cached"
	case ev.Status == buildpipeline.StatusWorking:
		item.status = stageLabel(ev.Stage)
	}
	item.stage = ev.Stage
	return m.prog.SetPercent(m.percent())
}

func (m *progressModel) percent() float64 {
	if len(m.items) == 0 {
		return 0
	}
	total := 0.0
	for _, item := range m.items {
		if item.finished {
			total++
			continue
		}
		total += stageWeight[item.stage]
	}
	return total / float64(len(m.items))
}

// stageWeight is the share of a template's work done once it reaches a
// stage.
var stageWeight = map[buildpipeline.Stage]float64{
	buildpipeline.StageResolve: 0.2,
	buildpipeline.StageAnalyze: 0.5,
	buildpipeline.StageCompile: 0.8,
	buildpipeline.StageWrite:   0.9,
}

func stageLabel(stage buildpipeline.Stage) string {
	switch stage {
	case buildpipeline.StageResolve:
		return "resolving"
	case buildpipeline.StageAnalyze:
		return "analyzing"
	case buildpipeline.StageCompile:
		return "compiling"
	case buildpipeline.StageWrite:
		return "writing"
	default:
		return ""
	}
}

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("7"))
	reasonStyle = lipgloss.NewStyle().Faint(true)
	statusColor = map[string]lipgloss.Color{
		"done":      "2",
		"cached":    "2",
		"error":     "1",
		"resolving": "6",
		"analyzing": "6",
		"compiling": "6",
		"writing":   "6",
	}
)

func styleStatus(status string) lipgloss.Style {
	c, ok := statusColor[status]
	if !ok {
		c = "7"
	}
	return lipgloss.NewStyle().Foreground(c)
}

func truncate(value string, width int) string {
	if width <= 0 || runewidth.StringWidth(value) <= width {
		return value
	}
	if width <= 3 {
		return runewidth.Truncate(value, width, "")
	}
	return runewidth.Truncate(value, width, "...")
}
