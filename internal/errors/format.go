package errors

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

const (
	ansiReset = "\033[0m"
	ansiRed   = "\033[31m"
	ansiCyan  = "\033[36m"
	ansiGray  = "\033[90m"
	ansiBold  = "\033[1m"
)

// colorEnabled controls ANSI output of Format. It starts enabled when
// stderr is a terminal and NO_COLOR is unset.
var colorEnabled = stderrIsTerminal() && os.Getenv("NO_COLOR") == ""

func stderrIsTerminal() bool {
	fi, err := os.Stderr.Stat()
	return err == nil && fi.Mode()&os.ModeCharDevice != 0
}

// SetColor turns ANSI colors in Format on or off.
func SetColor(on bool) {
	colorEnabled = on
}

// paint wraps text in an ANSI sequence when colors are on.
type paint bool

func (p paint) wrap(code, text string) string {
	if !p {
		return text
	}
	return code + text + ansiReset
}

// Format returns a multi-line error message for terminal display.
func (e *CodedError) Format() string {
	p := paint(colorEnabled)
	var b strings.Builder

	head := "error"
	if e.Code != "" {
		head = "error[" + e.Code + "]"
	}
	b.WriteString(p.wrap(ansiRed+ansiBold, head))
	b.WriteString(p.wrap(ansiBold, ": "+e.Message))
	b.WriteByte('\n')

	for _, line := range wrap(e.Detail, 72) {
		b.WriteString("  | ")
		b.WriteString(line)
		b.WriteByte('\n')
	}
	if e.Wrapped != nil {
		b.WriteString("  = ")
		b.WriteString(p.wrap(ansiGray, "caused by: "))
		b.WriteString(e.Wrapped.Error())
		b.WriteByte('\n')
	}
	if e.Suggestion != "" {
		b.WriteString("  = ")
		b.WriteString(p.wrap(ansiCyan, "help: "))
		b.WriteString(e.Suggestion)
		b.WriteByte('\n')
	}
	return b.String()
}

// FormatCompact returns the error on one line, for log messages.
func (e *CodedError) FormatCompact() string {
	s := e.Message
	if e.Code != "" {
		s = e.Code + ": " + s
	}
	if e.Detail != "" {
		s += ": " + e.Detail
	}
	return s
}

// LogValue implements slog.LogValuer so coded errors log as a group.
func (e *CodedError) LogValue() slog.Value {
	attrs := []slog.Attr{
		slog.String("code", e.Code),
		slog.String("category", string(e.Category)),
		slog.String("message", e.Message),
	}
	if e.Detail != "" {
		attrs = append(attrs, slog.String("detail", e.Detail))
	}
	if e.Wrapped != nil {
		attrs = append(attrs, slog.String("cause", e.Wrapped.Error()))
	}
	return slog.GroupValue(attrs...)
}

// wrap splits text into lines of at most width bytes, breaking at spaces.
// Words longer than width get a line of their own.
func wrap(text string, width int) []string {
	var lines []string
	line := ""
	for _, word := range strings.Fields(text) {
		switch {
		case line == "":
			line = word
		case len(line)+1+len(word) > width:
			lines = append(lines, line)
			line = word
		default:
			line += " " + word
		}
	}
	if line != "" {
		lines = append(lines, line)
	}
	return lines
}

// Fprint writes err to w: coded errors anywhere in the chain use Format,
// others a single line.
func Fprint(w io.Writer, err error) {
	var ce *CodedError
	if errors.As(err, &ce) {
		fmt.Fprint(w, ce.Format())
		return
	}
	p := paint(colorEnabled)
	fmt.Fprintf(w, "%s: %s\n", p.wrap(ansiRed+ansiBold, "error"), err)
}
