package util

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/xplshn/ucc/pkg/token"
	"golang.org/x/term"
)

// SourceFileRecord tracks the name and content of a single input file.
type SourceFileRecord struct {
	Name    string
	Content []rune
}

var (
	sourceFiles []SourceFileRecord
	stderr      io.Writer = os.Stderr
	useColor              = term.IsTerminal(int(os.Stderr.Fd()))
)

// SetSourceFiles stores the input files for rich diagnostics. Content may be
// nil, in which case no source line is printed under the message
func SetSourceFiles(files []SourceFileRecord) {
	sourceFiles = files
}

// SetOutput redirects diagnostics and decides whether they are colored
func SetOutput(w io.Writer, color bool) {
	stderr, useColor = w, color
}

// PosError is an error anchored to a token's coordinate
type PosError struct {
	Tok token.Token
	Msg string
}

func (e *PosError) Error() string {
	return fmt.Sprintf("%d:%d: %s", e.Tok.Line, e.Tok.Column, e.Msg)
}

// Errorf builds a *PosError without reporting it
func Errorf(tok token.Token, format string, args ...interface{}) *PosError {
	return &PosError{Tok: tok, Msg: fmt.Sprintf(format, args...)}
}

func findFileAndLine(tok token.Token) (filename string, line, col int) {
	if tok.FileIndex < 0 || tok.FileIndex >= len(sourceFiles) {
		return "unknown", tok.Line, tok.Column
	}
	return sourceFiles[tok.FileIndex].Name, tok.Line, tok.Column
}

func paint(code, s string) string {
	if !useColor {
		return s
	}
	return "\033[" + code + "m" + s + "\033[0m"
}

// printErrorLine prints the source line and a caret indicating the position
func printErrorLine(w io.Writer, tok token.Token) {
	if tok.FileIndex < 0 || tok.FileIndex >= len(sourceFiles) || tok.Line == 0 || tok.Column == 0 {
		return
	}
	content := sourceFiles[tok.FileIndex].Content
	if len(content) == 0 {
		return
	}

	lineNum := tok.Line
	lineStart := 0
	for i, r := range content {
		if lineNum <= 1 {
			break
		}
		if r == '\n' {
			lineNum--
			lineStart = i + 1
		}
	}
	if lineNum > 1 {
		return
	}

	lineEnd := len(content)
	for i := lineStart; i < len(content); i++ {
		if content[i] == '\n' {
			lineEnd = i
			break
		}
	}

	fmt.Fprintf(w, "  %s\n", string(content[lineStart:lineEnd]))
	caret := "^"
	if tok.Len > 1 {
		caret += strings.Repeat("~", tok.Len-1)
	}
	fmt.Fprintf(w, "  %s%s\n", strings.Repeat(" ", tok.Column-1), paint("32", caret))
}

// Report writes one diagnostic. tag names the warning switch and is
// appended as [-Wtag] when non-empty
func Report(severity string, tok token.Token, msg, tag string) {
	filename, line, col := findFileAndLine(tok)
	color := "31"
	if severity == "warning" {
		color = "33"
	}
	fmt.Fprintf(stderr, "%s:%d:%d: %s %s", filename, line, col, paint(color, severity+":"), msg)
	if tag != "" {
		fmt.Fprintf(stderr, " [-W%s]", tag)
	}
	fmt.Fprintln(stderr)
	printErrorLine(stderr, tok)
}

// Error prints a formatted error message and exits the program
func Error(tok token.Token, format string, args ...interface{}) {
	Report("error", tok, fmt.Sprintf(format, args...), "")
	os.Exit(1)
}

// Warn prints a formatted warning tagged with its switch name
func Warn(tag string, tok token.Token, format string, args ...interface{}) {
	Report("warning", tok, fmt.Sprintf(format, args...), tag)
}
