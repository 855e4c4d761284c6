package diag

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/esplang/espc/token"
)

// Sentinel errors
var (
	ErrCollectorFull = errors.New("diagnostic collector reached its error cap")
)

// Severity classifies a diagnostic.
type Severity int

const (
	SeverityDebug Severity = iota
	SeverityInfo
	SeverityWarning
	SeverityError
)

// String returns the lowercase name of the severity.
func (s Severity) String() string {
	switch s {
	case SeverityDebug:
		return "debug"
	case SeverityInfo:
		return "info"
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	default:
		return "unknown"
	}
}

// Field is one ordered context key-value pair attached to a diagnostic.
type Field struct {
	Key   string
	Value string
}

// Diagnostic is a single compiler message: a stable code, a severity, a
// one-line message, an optional source span, ordered context fields, and an
// optional remediation hint.
type Diagnostic struct {
	Code     Code
	Severity Severity
	Message  string
	Span     *token.Span
	Context  []Field
	Hint     string
}

// Error implements the error interface for fatal diagnostics.
func (d *Diagnostic) Error() string {
	if d.Span != nil {
		return fmt.Sprintf("%s[%s]: %s at %d:%d",
			d.Severity, d.Code, d.Message, d.Span.Start.Line, d.Span.Start.Column)
	}
	return fmt.Sprintf("%s[%s]: %s", d.Severity, d.Code, d.Message)
}

// With appends a context field and returns the diagnostic for chaining.
func (d *Diagnostic) With(key, value string) *Diagnostic {
	d.Context = append(d.Context, Field{Key: key, Value: value})
	return d
}

// WithHint sets the remediation hint.
func (d *Diagnostic) WithHint(hint string) *Diagnostic {
	d.Hint = hint
	return d
}

// Errorf builds an error diagnostic with a formatted message.
func Errorf(code Code, span *token.Span, format string, args ...any) *Diagnostic {
	return &Diagnostic{
		Code:     code,
		Severity: SeverityError,
		Message:  fmt.Sprintf(format, args...),
		Span:     span,
	}
}

// Warnf builds a warning diagnostic with a formatted message.
func Warnf(code Code, span *token.Span, format string, args ...any) *Diagnostic {
	return &Diagnostic{
		Code:     code,
		Severity: SeverityWarning,
		Message:  fmt.Sprintf(format, args...),
		Span:     span,
	}
}

// Infof builds an informational diagnostic.
func Infof(code Code, format string, args ...any) *Diagnostic {
	return &Diagnostic{
		Code:     code,
		Severity: SeverityInfo,
		Message:  fmt.Sprintf(format, args...),
	}
}

// Collector accumulates diagnostics in emission order. It is append-only and
// safe for concurrent use so a single collector can be shared across batch
// workers. A zero maxErrors means unlimited.
type Collector struct {
	mu        sync.Mutex
	diags     []*Diagnostic
	maxErrors int
	errors    int
	warnings  int
}

// NewCollector creates a Collector that stops accepting error diagnostics
// after maxErrors have been recorded (0 = unlimited).
func NewCollector(maxErrors int) *Collector {
	return &Collector{maxErrors: maxErrors}
}

// Add records a diagnostic. It returns ErrCollectorFull once the error cap is
// crossed; the triggering diagnostic is still recorded so the cap itself is
// visible in the output.
func (c *Collector) Add(d *Diagnostic) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if d.Severity == SeverityError {
		if c.maxErrors > 0 && c.errors >= c.maxErrors {
			return ErrCollectorFull
		}
		c.errors++
	}
	if d.Severity == SeverityWarning {
		c.warnings++
	}
	c.diags = append(c.diags, d)
	if d.Severity == SeverityError && c.maxErrors > 0 && c.errors >= c.maxErrors {
		return ErrCollectorFull
	}
	return nil
}

// HasErrors reports whether any error diagnostic has been recorded.
func (c *Collector) HasErrors() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.errors > 0
}

// ErrorCount returns the number of error diagnostics recorded.
func (c *Collector) ErrorCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.errors
}

// WarningCount returns the number of warning diagnostics recorded.
func (c *Collector) WarningCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.warnings
}

// All returns a snapshot of every recorded diagnostic in emission order.
func (c *Collector) All() []*Diagnostic {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]*Diagnostic, len(c.diags))
	copy(out, c.diags)
	return out
}

// Errors returns a snapshot of the error diagnostics in emission order.
func (c *Collector) Errors() []*Diagnostic {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []*Diagnostic
	for _, d := range c.diags {
		if d.Severity == SeverityError {
			out = append(out, d)
		}
	}
	return out
}

// Summary returns a one-line digest, e.g. "3 errors, 1 warning".
func (c *Collector) Summary() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	parts := []string{}
	if c.errors > 0 {
		parts = append(parts, plural(c.errors, "error"))
	}
	if c.warnings > 0 {
		parts = append(parts, plural(c.warnings, "warning"))
	}
	if len(parts) == 0 {
		return "no diagnostics"
	}
	return strings.Join(parts, ", ")
}

func plural(n int, word string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s", word)
	}
	return fmt.Sprintf("%d %ss", n, word)
}
