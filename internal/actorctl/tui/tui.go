package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/codeready-toolchain/actorflow/internal/actorctl/reader"
)

// supportedViews lists the view types Run accepts.
var supportedViews = map[string]bool{
	"config":   true,
	"actor":    true,
	"pipeline": true,
}

// IsSupported reports whether viewType has a dashboard.
func IsSupported(viewType string) bool {
	return supportedViews[viewType]
}

// Run starts the Bubble Tea program for viewType with data.
func Run(viewType string, data any) error {
	_, err := tea.NewProgram(newModel(viewType, data)).Run()
	return err
}

var keys = struct {
	Quit key.Binding
}{
	Quit: key.NewBinding(key.WithKeys("q", "ctrl+c", "esc")),
}

type model struct {
	viewType string
	data     any
	quitting bool
}

func newModel(viewType string, data any) model {
	return model{viewType: viewType, data: data}
}

func (m model) Init() tea.Cmd { return nil }

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if key.Matches(msg, keys.Quit) {
			m.quitting = true
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m model) View() string {
	if m.quitting {
		return ""
	}

	var content string
	switch m.viewType {
	case "config":
		content = m.renderConfig()
	case "actor":
		content = m.renderActor()
	case "pipeline":
		content = m.renderPipeline()
	default:
		content = fmt.Sprintf("unknown view type: %s", m.viewType)
	}

	return content + "\n" + HelpStyle.Render("press q to quit")
}

func (m model) renderConfig() string {
	data, ok := m.data.(reader.ConfigSummary)
	if !ok {
		return "invalid data for config view"
	}
	var b strings.Builder
	b.WriteString(TitleStyle.Render("Configuration"))
	b.WriteString("\n\n")
	boxes := []string{
		statBox("Actor Types", len(data.ActorTypes), highlightColor),
		statBox("Pipelines", len(data.Pipelines), highlightColor),
	}
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, boxes...))
	b.WriteString("\n\n")
	b.WriteString(LabelStyle.Render("Config dir:"))
	b.WriteString(ValueStyle.Render(data.ConfigDir))
	return b.String()
}

func (m model) renderActor() string {
	data, ok := m.data.(*reader.ActorDetail)
	if !ok {
		return "invalid data for actor view"
	}
	var b strings.Builder
	b.WriteString(TitleStyle.Render("Actor: " + data.ActorID))
	b.WriteString("\n\n")
	boxes := []string{
		statBox("Entries", data.EntryCount, highlightColor),
	}
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, boxes...))
	b.WriteString("\n\n")
	if data.HasSnapshot {
		b.WriteString(SuccessStyle.Render(fmt.Sprintf("snapshot at cursor %d", data.Snapshot.Cursor)))
	} else {
		b.WriteString(WarningStyle.Render("no snapshot"))
	}
	return b.String()
}

func (m model) renderPipeline() string {
	data, ok := m.data.(*reader.PipelineDetail)
	if !ok {
		return "invalid data for pipeline view"
	}
	var b strings.Builder
	b.WriteString(TitleStyle.Render("Pipeline: " + data.Instance.PipelineID))
	b.WriteString("\n\n")
	for name, state := range data.Instance.StageStates {
		style := StateStyle(string(state.Status))
		fmt.Fprintf(&b, "%s %s\n", LabelStyle.Render(name+":"), style.Render(string(state.Status)))
	}
	b.WriteString("\n")
	b.WriteString(ValueStyle.Render(fmt.Sprintf("pending outbox: %d", len(data.PendingOutbox))))
	return b.String()
}

func statBox(label string, value int, color lipgloss.Color) string {
	box := StatBoxStyle.BorderForeground(color)
	return box.Render(StatLabelStyle.Render(label) + "\n" + StatValueStyle.Render(fmt.Sprintf("%d", value)))
}
