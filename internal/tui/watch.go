// watch.go implements the `bubbletea` model backing `run --watch`: a live
// one-line progress view (steps executed, current PC, last syscall),
// updated from internal/log.Logger's step/syscall callbacks while the
// emulator runs on a background goroutine. Emulator.Run and RunSteps emit
// no step events (only RecordStep calls log.L.Step), so under `run --watch`
// the step count and PC stay at zero; the syscall field does update.
package tui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/flexemu-go/mipsevm/internal/log"
)

// stepMsg reports one executed instruction.
type stepMsg struct {
	pc   uint64
	step uint64
}

// syscallMsg reports one dispatched syscall.
type syscallMsg struct {
	name string
}

// doneMsg signals the driven run has returned, successfully or not.
type doneMsg struct{ err error }

var (
	labelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	valueStyle = lipgloss.NewStyle().Bold(true)
	errorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("204")).Bold(true)
)

type model struct {
	spinner spinner.Model
	events  <-chan tea.Msg

	steps       uint64
	pc          uint64
	lastSyscall string

	done bool
	err  error
}

func newModel(events <-chan tea.Msg) model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))
	return model{spinner: s, events: events}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, waitForEvent(m.events))
}

func waitForEvent(events <-chan tea.Msg) tea.Cmd {
	return func() tea.Msg { return <-events }
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case stepMsg:
		m.steps = msg.step
		m.pc = msg.pc
		return m, waitForEvent(m.events)
	case syscallMsg:
		m.lastSyscall = msg.name
		return m, waitForEvent(m.events)
	case doneMsg:
		m.done = true
		m.err = msg.err
		return m, tea.Quit
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m model) View() string {
	if m.done {
		if m.err != nil {
			return errorStyle.Render(fmt.Sprintf("run failed after %d steps: %v", m.steps, m.err)) + "\n"
		}
		return valueStyle.Render(fmt.Sprintf("run complete after %d steps", m.steps)) + "\n"
	}
	return fmt.Sprintf(
		"%s %s %s  %s %s  %s %s\n",
		m.spinner.View(),
		labelStyle.Render("step"), valueStyle.Render(fmt.Sprint(m.steps)),
		labelStyle.Render("pc"), Address(m.pc),
		labelStyle.Render("syscall"), SyscallName(m.lastSyscall),
	)
}

// Watch drives fn (the actual run/recorded-step loop) on a background
// goroutine while rendering its progress, wiring into the global logger's
// step and syscall callbacks; fn is expected to invoke emulator methods
// that in turn call log.L.Step/log.L.Syscall.
func Watch(fn func() error) error {
	events := make(chan tea.Msg, 256)

	if log.L != nil {
		log.L.SetOnStep(func(pc, step uint64) {
			events <- stepMsg{pc: pc, step: step}
		})
		log.L.SetOnSyscall(func(name string) {
			events <- syscallMsg{name: name}
		})
	}

	p := tea.NewProgram(newModel(events))

	var runErr error
	go func() {
		runErr = fn()
		events <- doneMsg{err: runErr}
	}()

	if _, err := p.Run(); err != nil {
		return err
	}
	return runErr
}
