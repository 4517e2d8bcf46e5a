// Package diagnostics provides leveled console output for the docmeta CLI.
// A *System also satisfies engine.Logger.
package diagnostics

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/fatih/color"
)

// Level represents the level of diagnostic output
type Level int

const (
	Silent Level = iota
	Error
	Warn
	Info
	Verbose
	Debug
)

// String returns the tag printed in front of messages of this level
func (l Level) String() string {
	switch l {
	case Error:
		return "ERROR"
	case Warn:
		return "WARN"
	case Info:
		return "INFO"
	case Verbose:
		return "VERBOSE"
	case Debug:
		return "DEBUG"
	default:
		return "SILENT"
	}
}

// System provides structured, user-friendly output
type System struct {
	level     Level
	useColors bool
	showTime  bool
	output    io.Writer
	errorOut  io.Writer
	indent    int
	progress  string
}

// New creates a diagnostic system writing to stdout and stderr
func New(level Level) *System {
	return &System{
		level:     level,
		useColors: shouldUseColors(),
		showTime:  level >= Verbose,
		output:    os.Stdout,
		errorOut:  os.Stderr,
	}
}

// NewQuiet creates a diagnostic system that only shows errors
func NewQuiet() *System {
	return New(Error)
}

// NewVerbose creates a diagnostic system with full output
func NewVerbose() *System {
	return New(Verbose)
}

// WithWriters redirects regular and error output
func (d *System) WithWriters(output, errorOut io.Writer) *System {
	d.output = output
	d.errorOut = errorOut
	return d
}

// WithColors forces colored output on or off
func (d *System) WithColors(enabled bool) *System {
	d.useColors = enabled
	return d
}

// WithTimestamps toggles the time prefix on leveled messages
func (d *System) WithTimestamps(enabled bool) *System {
	d.showTime = enabled
	return d
}

// Level returns the configured level
func (d *System) Level() Level { return d.level }

// Enabled reports whether messages of level l are shown
func (d *System) Enabled(l Level) bool { return d.level >= l }

func (d *System) paint(attr color.Attribute) *color.Color {
	c := color.New(attr)
	if d.useColors {
		c.EnableColor()
	} else {
		c.DisableColor()
	}
	return c
}

// Error outputs error messages (always shown unless silent)
func (d *System) Error(format string, args ...interface{}) {
	if d.level >= Error {
		d.writeMessage(d.errorOut, Error, color.FgRed, format, args...)
	}
}

// Warn outputs warning messages
func (d *System) Warn(format string, args ...interface{}) {
	if d.level >= Warn {
		d.writeMessage(d.output, Warn, color.FgYellow, format, args...)
	}
}

// Info outputs informational messages
func (d *System) Info(format string, args ...interface{}) {
	if d.level >= Info {
		d.writeMessage(d.output, Info, color.FgBlue, format, args...)
	}
}

// Success outputs success messages with emphasis
func (d *System) Success(format string, args ...interface{}) {
	if d.level >= Info {
		fmt.Fprintf(d.output, "%s%s\n", d.getIndent(), d.paint(color.FgGreen).Sprintf(format, args...))
	}
}

// Verbose outputs detailed messages (verbose mode only)
func (d *System) Verbose(format string, args ...interface{}) {
	if d.level >= Verbose {
		d.writeMessage(d.output, Verbose, color.FgHiBlack, format, args...)
	}
}

// Debug outputs debug messages (highest verbosity)
func (d *System) Debug(format string, args ...interface{}) {
	if d.level >= Debug {
		d.writeMessage(d.output, Debug, color.FgMagenta, format, args...)
	}
}

// Section creates a prominent section header
func (d *System) Section(title string) {
	if d.level >= Info {
		fmt.Fprintf(d.output, "%s\n", d.paint(color.FgCyan).Sprint(title))
	}
}

// Subsection creates a subsection header
func (d *System) Subsection(title string) {
	if d.level >= Info {
		fmt.Fprintf(d.output, "\n%s%s:\n", d.getIndent(), d.paint(color.FgBlue).Sprint(title))
	}
}

// List outputs a bulleted list item
func (d *System) List(format string, args ...interface{}) {
	if d.level >= Info {
		fmt.Fprintf(d.output, "%s- %s\n", d.getIndent(), fmt.Sprintf(format, args...))
	}
}

// Indent increases the indentation level
func (d *System) Indent() {
	d.indent++
}

// Unindent decreases the indentation level
func (d *System) Unindent() {
	if d.indent > 0 {
		d.indent--
	}
}

// StartProgress announces a step whose outcome EndProgress reports
func (d *System) StartProgress(message string) {
	d.progress = message
	d.Verbose("%s...", message)
}

// EndProgress reports the outcome of the step started by StartProgress
func (d *System) EndProgress(ok bool, detail string) {
	message := d.progress
	d.progress = ""
	if detail != "" {
		message = fmt.Sprintf("%s (%s)", message, detail)
	}
	if message == "" || d.level < Verbose {
		return
	}
	if ok {
		fmt.Fprintf(d.output, "%s%s %s\n", d.getIndent(), d.paint(color.FgGreen).Sprint("✓"), message)
	} else {
		fmt.Fprintf(d.output, "%s%s %s\n", d.getIndent(), d.paint(color.FgRed).Sprint("✗"), message)
	}
}

// Summary outputs a final summary with statistics in key order
func (d *System) Summary(title string, stats map[string]interface{}) {
	if d.level < Info {
		return
	}
	fmt.Fprintf(d.output, "\n%s\n", d.paint(color.FgGreen).Sprint(title))

	keys := make([]string, 0, len(stats))
	for key := range stats {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		fmt.Fprintf(d.output, "   %s: %v\n", key, stats[key])
	}
}

// writeMessage is the internal message writing function
func (d *System) writeMessage(writer io.Writer, level Level, attr color.Attribute, format string, args ...interface{}) {
	message := fmt.Sprintf(format, args...)

	var output strings.Builder
	output.WriteString(d.getIndent())

	if d.showTime {
		output.WriteString(time.Now().Format("15:04:05 "))
	}

	output.WriteString(d.paint(attr).Sprintf("[%s]", level))
	output.WriteString(" ")
	output.WriteString(message)
	output.WriteString("\n")

	fmt.Fprint(writer, output.String())
}

// getIndent returns the current indentation string
func (d *System) getIndent() string {
	return strings.Repeat("  ", d.indent)
}

// shouldUseColors determines if colors should be used
func shouldUseColors() bool {
	// NO_COLOR wins over everything (https://no-color.org)
	if os.Getenv("NO_COLOR") != "" {
		return false
	}

	if os.Getenv("FORCE_COLOR") != "" {
		return true
	}

	term := os.Getenv("TERM")
	return term != "" && term != "dumb"
}
