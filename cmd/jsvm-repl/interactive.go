package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/jsvm/jsvm/bytecode"
	"github.com/jsvm/jsvm/host"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	funcStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#98FB98"))

	typeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB"))

	resultStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#90EE90"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

type replState int

const (
	stateEnterPath replState = iota
	stateLoaded
	stateResult
)

type replModel struct {
	cfg   *host.Config
	vm    *host.VM
	prog  *host.Program
	mod   *bytecode.Module
	path  string
	input textinput.Model
	state replState
	err   error
	result string
}

func runInteractive(cfg *host.Config, modulePath string) error {
	m := &replModel{cfg: cfg, path: modulePath}
	if modulePath == "" {
		ti := textinput.New()
		ti.Placeholder = "path to a compiled bytecode module"
		ti.Focus()
		ti.Width = 60
		m.input = ti
		m.state = stateEnterPath
	} else {
		m.state = stateLoaded
	}

	p := tea.NewProgram(m)
	_, err := p.Run()
	return err
}

type loadedMsg struct {
	mod  *bytecode.Module
	vm   *host.VM
	prog *host.Program
	err  error
}

type evalMsg struct {
	result string
	err    error
}

func (m *replModel) Init() tea.Cmd {
	if m.state == stateLoaded {
		return m.load
	}
	return textinput.Blink
}

func (m *replModel) load() tea.Msg {
	ctx := context.Background()
	mod, data, err := loadModuleFile(m.path)
	if err != nil {
		return loadedMsg{err: err}
	}
	vm, err := host.NewWithConfig(ctx, m.cfg)
	if err != nil {
		return loadedMsg{err: err}
	}
	prog, err := vm.LoadModule(ctx, data)
	if err != nil {
		vm.Close(ctx)
		return loadedMsg{err: err}
	}
	return loadedMsg{mod: mod, vm: vm, prog: prog}
}

func (m *replModel) run() tea.Msg {
	result, err := m.prog.Eval(context.Background())
	if err != nil {
		return evalMsg{err: err}
	}
	return evalMsg{result: formatValue(result)}
}

func (m *replModel) closeVM() {
	if m.vm != nil {
		m.vm.Close(context.Background())
	}
}

func (m *replModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			m.closeVM()
			return m, tea.Quit

		case "enter":
			switch m.state {
			case stateEnterPath:
				m.path = m.input.Value()
				if m.path == "" {
					return m, nil
				}
				m.state = stateLoaded
				return m, m.load
			case stateLoaded:
				if m.err == nil && m.prog != nil {
					return m, m.run
				}
			case stateResult:
				m.state = stateLoaded
				m.result = ""
				m.err = nil
				return m, m.run
			}

		case "esc":
			if m.state == stateResult {
				m.state = stateLoaded
				m.result = ""
				m.err = nil
			}
		}

	case loadedMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.mod, m.vm, m.prog = msg.mod, msg.vm, msg.prog

	case evalMsg:
		m.result = msg.result
		m.err = msg.err
		m.state = stateResult
	}

	if m.state == stateEnterPath {
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m *replModel) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("jsvm-repl"))
	b.WriteString("\n\n")

	switch m.state {
	case stateEnterPath:
		b.WriteString("Module path:\n\n")
		b.WriteString(m.input.View())
		b.WriteString("\n\n")
		b.WriteString(helpStyle.Render("enter load • ctrl+c quit"))

	case stateLoaded:
		if m.err != nil {
			b.WriteString(errorStyle.Render(fmt.Sprintf("Error: %v", m.err)))
			b.WriteString("\n\n")
			b.WriteString(helpStyle.Render("q quit"))
			break
		}
		if m.mod == nil {
			b.WriteString("Loading...")
			break
		}
		b.WriteString(fmt.Sprintf("Module: %s\n\n", funcStyle.Render(m.mod.Name)))
		for i, fn := range m.mod.Functions {
			b.WriteString(fmt.Sprintf("  [%d] %s(%s)\n", i, fn.Name,
				typeStyle.Render(fmt.Sprintf("%d params, %d registers", fn.NumParams, fn.NumRegisters))))
		}
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("enter run entry function • q quit"))

	case stateResult:
		b.WriteString(fmt.Sprintf("Result of %s:\n\n", funcStyle.Render(m.mod.Functions[0].Name)))
		if m.err != nil {
			b.WriteString(errorStyle.Render(fmt.Sprintf("Error: %v", m.err)))
		} else {
			b.WriteString(resultStyle.Render(m.result))
		}
		b.WriteString("\n\n")
		b.WriteString(helpStyle.Render("enter run again • esc back • q quit"))
	}

	return b.String()
}
