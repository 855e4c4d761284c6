package diag

import (
	"fmt"
	"strings"

	"github.com/fatih/color"

	"github.com/esplang/espc/token"
)

// SourceContext supplies what the renderer needs to show source excerpts.
type SourceContext struct {
	Path string
	Text string
	Map  *token.SourceMap
}

// NewSourceContext indexes text for rendering.
func NewSourceContext(path, text string) *SourceContext {
	return &SourceContext{Path: path, Text: text, Map: token.NewSourceMap(text)}
}

var (
	errorLabel   = color.New(color.FgRed, color.Bold)
	warningLabel = color.New(color.FgYellow, color.Bold)
	infoLabel    = color.New(color.FgCyan, color.Bold)
	gutterColor  = color.New(color.FgBlue, color.Bold)
	hintColor    = color.New(color.FgGreen)
)

// Render formats a diagnostic in the cargo style:
//
//	error[E042]: unmatched block delimiter
//	  --> policy.esp:12:3
//	   |
//	12 |   STATE_END
//	   |   ^^^^^^^^^
//	   = help: close the OBJECT block before ending the state
//
// src may be nil, in which case no source line or caret renders; a span still
// renders its --> line:col location.
func Render(d *Diagnostic, src *SourceContext) string {
	var b strings.Builder

	label := errorLabel
	switch d.Severity {
	case SeverityWarning:
		label = warningLabel
	case SeverityInfo, SeverityDebug:
		label = infoLabel
	}
	b.WriteString(label.Sprintf("%s[%s]", d.Severity, d.Code))
	b.WriteString(": ")
	b.WriteString(d.Message)
	b.WriteString("\n")

	if d.Span != nil && src != nil {
		renderSpan(&b, d.Span, src)
	} else if d.Span != nil {
		b.WriteString(gutterColor.Sprint("  --> "))
		fmt.Fprintf(&b, "%d:%d\n", d.Span.Start.Line, d.Span.Start.Column)
	}

	for _, f := range d.Context {
		b.WriteString(gutterColor.Sprint("   = "))
		fmt.Fprintf(&b, "%s: %s\n", f.Key, f.Value)
	}
	if d.Hint != "" {
		b.WriteString(gutterColor.Sprint("   = "))
		b.WriteString(hintColor.Sprint("help"))
		fmt.Fprintf(&b, ": %s\n", d.Hint)
	}
	return b.String()
}

func renderSpan(b *strings.Builder, span *token.Span, src *SourceContext) {
	line := span.Start.Line
	col := span.Start.Column

	b.WriteString(gutterColor.Sprint("  --> "))
	fmt.Fprintf(b, "%s:%d:%d\n", src.Path, line, col)

	text := src.Map.LineText(src.Text, line)
	gutter := fmt.Sprintf("%d", line)
	pad := strings.Repeat(" ", len(gutter))

	b.WriteString(gutterColor.Sprintf("%s |\n", pad))
	b.WriteString(gutterColor.Sprintf("%s | ", gutter))
	b.WriteString(text)
	b.WriteString("\n")
	b.WriteString(gutterColor.Sprintf("%s | ", pad))

	width := 1
	if span.End.Line == line && span.End.Column > col {
		width = span.End.Column - col
	}
	if col > 1 {
		b.WriteString(strings.Repeat(" ", col-1))
	}
	b.WriteString(errorLabel.Sprint(strings.Repeat("^", width)))
	b.WriteString("\n")
}

// RenderAll renders every diagnostic, separated by blank lines.
func RenderAll(diags []*Diagnostic, src *SourceContext) string {
	parts := make([]string, 0, len(diags))
	for _, d := range diags {
		parts = append(parts, Render(d, src))
	}
	return strings.Join(parts, "\n")
}
