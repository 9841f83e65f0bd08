package diagnostics

import (
	"strings"
	"testing"

	"github.com/gyxos-logan/angel-lsp/internal/token"
)

func locAt(line, col, offset int) token.Location {
	return token.Location{
		Path:  "test.as",
		Start: token.Position{Line: line, Column: col, Offset: offset},
		End:   token.Position{Line: line, Column: col + 1, Offset: offset + 1},
	}
}

func TestSinkDeduplicatesSamePosition(t *testing.T) {
	var s Sink
	s.Add(locAt(1, 5, 4), "first")
	s.Add(locAt(1, 5, 4), "second")
	s.Add(locAt(1, 6, 5), "third")

	if len(s.List()) != 2 {
		t.Fatalf("expected 2 diagnostics, got %d", len(s.List()))
	}
	if s.List()[0].Message != "first" {
		t.Errorf("the first diagnostic at a position must win, got %q", s.List()[0].Message)
	}
}

func TestSinkTruncates(t *testing.T) {
	var s Sink
	for i := 0; i < maxDiagnostics+50; i++ {
		s.Add(locAt(i+1, 1, i*10), "err")
	}

	list := s.List()
	if len(list) != maxDiagnostics+1 {
		t.Fatalf("expected %d diagnostics, got %d", maxDiagnostics+1, len(list))
	}
	last := list[len(list)-1]
	if !strings.Contains(last.Message, "truncated") {
		t.Errorf("last diagnostic must note truncation, got %q", last.Message)
	}
}

func TestHasErrors(t *testing.T) {
	var s Sink
	s.AddSeverity(locAt(1, 1, 0), "warn", SeverityWarning)
	if s.HasErrors() {
		t.Error("warnings alone must not count as errors")
	}
	s.Add(locAt(2, 1, 10), "boom")
	if !s.HasErrors() {
		t.Error("expected errors")
	}
}

func TestReporterFormat(t *testing.T) {
	r := NewReporter()
	r.SetSource("test.as", "int x = 1\nbool b = a;")

	out := r.Format(Diagnostic{
		Location: token.Location{
			Path:  "test.as",
			Start: token.Position{Line: 2, Column: 10, Offset: 19},
			End:   token.Position{Line: 2, Column: 11, Offset: 20},
		},
		Message:  "Type mismatch",
		Severity: SeverityError,
	})

	for _, want := range []string{"error: Type mismatch", "test.as:2:10", "bool b = a;", "^"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}
