package cmd

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/cntsep/go-gsioc/fc203b"
	"github.com/cntsep/go-gsioc/positions"
)

// Jog step sizes in millimeters, selected with the number keys.
var jogSteps = []float64{1, 5, 10, 20}

// teachLabels maps save keys to position labels. The corresponding
// uppercase key moves to the taught position.
var teachLabels = map[string]string{
	"m": positions.Metallic,
	"c": positions.Semiconducting,
	"v": positions.Waste,
}

type moveDoneMsg struct {
	x   fc203b.AxisReading
	y   fc203b.AxisReading
	err error
}

type teachModel struct {
	ctrl  *fc203b.Controller
	store *positions.Store

	// Last confirmed head position.
	x, y float64

	stepIdx int
	busy    bool
	status  string

	quitting bool
}

func initialTeachModel(ctrl *fc203b.Controller, store *positions.Store) teachModel {
	return teachModel{
		ctrl:   ctrl,
		store:  store,
		status: "ready",
	}
}

func (m teachModel) Init() tea.Cmd {
	return m.readPositionCmd()
}

// readPositionCmd asks the collector where its head actually is.
func (m teachModel) readPositionCmd() tea.Cmd {
	ctrl := m.ctrl

	return func() tea.Msg {
		x, y, err := ctrl.Position()

		return moveDoneMsg{x: x, y: y, err: err}
	}
}

// moveCmd issues a move and reads the resulting position back. Exactly one
// of these runs at a time; the busy flag guards the half-duplex bus.
func (m teachModel) moveCmd(x, y float64) tea.Cmd {
	ctrl := m.ctrl

	return func() tea.Msg {
		if err := ctrl.MoveToXY(context.Background(), x, y); err != nil {
			return moveDoneMsg{err: err}
		}

		gotX, gotY, err := ctrl.Position()

		return moveDoneMsg{x: gotX, y: gotY, err: err}
	}
}

func (m teachModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case moveDoneMsg:
		m.busy = false

		if msg.err != nil {
			m.status = fmt.Sprintf("error: %v", msg.err)

			return m, nil
		}

		if msg.x.Valid {
			m.x = msg.x.MM
		}
		if msg.y.Valid {
			m.y = msg.y.MM
		}

		m.status = "ready"

		return m, nil
	}

	return m, nil
}

func (m teachModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()

	if key == "q" || key == "ctrl+c" {
		m.quitting = true

		return m, tea.Quit
	}

	if m.busy {
		m.status = "busy, wait for the current move"

		return m, nil
	}

	// Step size selection.
	for i := range jogSteps {
		if key == fmt.Sprintf("%d", i+1) {
			m.stepIdx = i
			m.status = fmt.Sprintf("step %.0fmm", jogSteps[i])

			return m, nil
		}
	}

	step := jogSteps[m.stepIdx]

	switch key {
	case "w":
		return m.startMove(m.x, m.y+step)
	case "s":
		return m.startMove(m.x, m.y-step)
	case "a":
		return m.startMove(m.x-step, m.y)
	case "d":
		return m.startMove(m.x+step, m.y)
	case "h":
		return m.startMove(0, 0)
	}

	if label, ok := teachLabels[key]; ok {
		m.store.Set(label, positions.Point{X: m.x, Y: m.y})

		if err := m.store.Save(); err != nil {
			m.status = fmt.Sprintf("save failed: %v", err)
		} else {
			m.status = fmt.Sprintf("saved %s = (%.1f, %.1f)", label, m.x, m.y)
		}

		return m, nil
	}

	if label, ok := teachLabels[strings.ToLower(key)]; ok {
		p, taught := m.store.Get(label)
		if !taught {
			m.status = fmt.Sprintf("no position taught for %s", label)

			return m, nil
		}

		return m.startMove(p.X, p.Y)
	}

	return m, nil
}

func (m teachModel) startMove(x, y float64) (tea.Model, tea.Cmd) {
	m.busy = true
	m.status = fmt.Sprintf("moving to (%.1f, %.1f)...", x, y)

	return m, m.moveCmd(x, y)
}

func (m teachModel) View() string {
	if m.quitting {
		return "Done.\n"
	}

	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("12")).
		Padding(0, 1)

	labelStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("12")).
		Bold(true)

	valueStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("10"))

	helpStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("241"))

	boxStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("240")).
		Padding(0, 1)

	var s strings.Builder

	s.WriteString(titleStyle.Render("TEACH POSITIONS"))
	s.WriteString("\n\n")

	s.WriteString(fmt.Sprintf("%s %s   %s %s\n",
		labelStyle.Render("Position:"),
		valueStyle.Render(fmt.Sprintf("X=%.1fmm Y=%.1fmm", m.x, m.y)),
		labelStyle.Render("Step:"),
		valueStyle.Render(fmt.Sprintf("%.0fmm", jogSteps[m.stepIdx]))))
	s.WriteString("\n")

	var taught strings.Builder

	taught.WriteString(labelStyle.Render("TAUGHT"))
	taught.WriteString("\n")

	if m.store.Len() == 0 {
		taught.WriteString(helpStyle.Render("(none yet)"))
	} else {
		for _, label := range m.store.Labels() {
			p, _ := m.store.Get(label)
			taught.WriteString(fmt.Sprintf("%-15s (%.1f, %.1f)\n", label, p.X, p.Y))
		}
	}

	s.WriteString(boxStyle.Render(taught.String()))
	s.WriteString("\n\n")

	s.WriteString(fmt.Sprintf("%s %s\n", labelStyle.Render("Status:"), m.status))
	s.WriteString("\n")
	s.WriteString(helpStyle.Render(
		"wasd=jog  1-4=step  h=home  m/c/v=save metallic/semiconducting/waste\n" +
			"M/C/V=go to taught position  q=quit"))
	s.WriteString("\n")

	return s.String()
}

var teachCmd = &cobra.Command{
	Use:   "teach",
	Short: "Interactively jog the head and teach collection positions",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		store, err := positions.Load(cfg.PositionsFile)
		if err != nil {
			return err
		}

		ctrl, cleanup, err := openController(cfg)
		if err != nil {
			return err
		}
		defer cleanup()

		_, err = tea.NewProgram(initialTeachModel(ctrl, store)).Run()

		return err
	},
}

func init() {
	rootCmd.AddCommand(teachCmd)
}
