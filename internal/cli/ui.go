package cli

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"

	"github.com/matzehuels/mvnkit/pkg/maven"
	"github.com/matzehuels/mvnkit/pkg/solver"
)

// =============================================================================
// Color Palette
// =============================================================================

var (
	colorCyan   = lipgloss.Color("36")  // primary
	colorGreen  = lipgloss.Color("35")  // success, cached sources
	colorYellow = lipgloss.Color("220") // warnings
	colorRed    = lipgloss.Color("167") // errors, missing artifacts
	colorBlue   = lipgloss.Color("75")  // commands
	colorWhite  = lipgloss.Color("255") // coordinates
	colorGray   = lipgloss.Color("245") // icons
	colorDim    = lipgloss.Color("240") // details
)

var (
	styleTitle   = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	styleDim     = lipgloss.NewStyle().Foreground(colorDim)
	styleCoord   = lipgloss.NewStyle().Foreground(colorWhite)
	styleWarning = lipgloss.NewStyle().Foreground(colorYellow)
	styleCommand = lipgloss.NewStyle().Foreground(colorBlue)
	styleSources = lipgloss.NewStyle().Foreground(colorGreen)
	styleMissing = lipgloss.NewStyle().Foreground(colorRed)
	styleSpinner = lipgloss.NewStyle().Foreground(colorCyan)

	styleIconSuccess = lipgloss.NewStyle().Foreground(colorGreen)
	styleIconWarning = lipgloss.NewStyle().Foreground(colorYellow)
	styleIconInfo    = lipgloss.NewStyle().Foreground(colorGray)
)

const (
	iconSuccess = "✓"
	iconWarning = "!"
	iconInfo    = "›"
	iconSources = "sources"
	iconMissing = "missing"
)

// =============================================================================
// Printer
// =============================================================================

// printer writes styled status lines. Commands print status to stderr so
// that stdout carries only machine-readable output.
type printer struct {
	w io.Writer
}

func newPrinter(w io.Writer) printer {
	return printer{w: w}
}

func (p printer) line(s string) {
	fmt.Fprintln(p.w, s)
}

func (p printer) success(format string, args ...any) {
	p.line(styleIconSuccess.Render(iconSuccess) + " " + fmt.Sprintf(format, args...))
}

func (p printer) warning(format string, args ...any) {
	p.line(styleIconWarning.Render(iconWarning) + " " + styleWarning.Render(fmt.Sprintf(format, args...)))
}

func (p printer) info(format string, args ...any) {
	p.line(styleIconInfo.Render(iconInfo) + " " + fmt.Sprintf(format, args...))
}

// detail prints an indented secondary line.
func (p printer) detail(format string, args ...any) {
	p.line("  " + styleDim.Render(fmt.Sprintf(format, args...)))
}

// nextStep prints a suggested follow-up command.
func (p printer) nextStep(description, cmd string) {
	p.line(styleDim.Render(description+":") + " " + styleCommand.Render(cmd))
}

// scope prints a scope heading followed by its artifacts.
func (p printer) scope(scope maven.Scope, artifacts []solver.Artifact) {
	p.line("")
	p.line(styleTitle.Render(scope.String()) + " " + styleDim.Render(fmt.Sprintf("(%d)", len(artifacts))))
	for _, a := range artifacts {
		p.artifact(a)
	}
}

// artifact prints one solved dependency with its scope, ring and cache state.
func (p printer) artifact(a solver.Artifact) {
	line := "  " + styleCoord.Render(a.String())
	line += styleDim.Render(" · " + a.Scope.String())
	if a.Ring > 1 {
		line += styleDim.Render(fmt.Sprintf(" · ring %d", a.Ring))
	}
	switch {
	case a.Path == "":
		line += styleDim.Render(" · ") + styleMissing.Render(iconMissing)
	case a.SourcesPath != "":
		line += styleDim.Render(" · ") + styleSources.Render(iconSources)
	}
	p.line(line)
}
