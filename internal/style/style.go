// Package style holds the lipgloss styles for shell output. Lipgloss
// downgrades rendering automatically when stdout is not a terminal.
package style

import "github.com/charmbracelet/lipgloss"

var (
	colorRunning = lipgloss.Color("76")  // green
	colorStopped = lipgloss.Color("214") // orange
	colorDone    = lipgloss.Color("242") // gray
	colorPrompt  = lipgloss.Color("39")  // blue
	colorErr     = lipgloss.Color("196") // bright red
)

var (
	Prompt = lipgloss.NewStyle().Bold(true).Foreground(colorPrompt)

	JobID = lipgloss.NewStyle().Bold(true)

	Error = lipgloss.NewStyle().Foreground(colorErr)

	stateRunning = lipgloss.NewStyle().Foreground(colorRunning)
	stateStopped = lipgloss.NewStyle().Foreground(colorStopped)
	stateDone    = lipgloss.NewStyle().Foreground(colorDone)
)

// JobState renders a job state name in its color.
func JobState(name string) string {
	switch name {
	case "Running":
		return stateRunning.Render(name)
	case "Stopped":
		return stateStopped.Render(name)
	case "Done":
		return stateDone.Render(name)
	}
	return name
}
