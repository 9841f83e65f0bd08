package tokenizer

import (
	"testing"

	"github.com/gyxos-logan/angel-lsp/internal/token"
)

func kinds(tokens []*token.Token) []token.Kind {
	out := make([]token.Kind, len(tokens))
	for i, tok := range tokens {
		out[i] = tok.Kind
	}
	return out
}

func TestScanBasic(t *testing.T) {
	tokens := Tokenize(`int x = 42;`, "test.as")

	expected := []struct {
		kind token.Kind
		text string
	}{
		{token.Reserved, "int"},
		{token.Identifier, "x"},
		{token.Reserved, "="},
		{token.Number, "42"},
		{token.Reserved, ";"},
	}
	if len(tokens) != len(expected) {
		t.Fatalf("expected %d tokens, got %d: %v", len(expected), len(tokens), kinds(tokens))
	}
	for i, e := range expected {
		if tokens[i].Kind != e.kind || tokens[i].Text != e.text {
			t.Errorf("token %d: got %s(%q), want %s(%q)", i, tokens[i].Kind, tokens[i].Text, e.kind, e.text)
		}
	}
}

func TestScanNumbers(t *testing.T) {
	tests := []struct {
		input string
		kind  token.NumberKind
	}{
		{"42", token.NumberInt},
		{"0xFF", token.NumberHex},
		{"0o17", token.NumberOctal},
		{"0b1010", token.NumberBinary},
		{"3.14", token.NumberFloat},
		{"0.5f", token.NumberFloat},
		{"1e10", token.NumberFloat},
		{"2.5e-3", token.NumberFloat},
	}

	for _, tt := range tests {
		tokens := Tokenize(tt.input, "test.as")
		if len(tokens) != 1 {
			t.Errorf("input %q: expected 1 token, got %d", tt.input, len(tokens))
			continue
		}
		if tokens[0].Kind != token.Number {
			t.Errorf("input %q: kind = %s, want Number", tt.input, tokens[0].Kind)
			continue
		}
		if tokens[0].NumberKind != tt.kind {
			t.Errorf("input %q: number kind = %d, want %d", tt.input, tokens[0].NumberKind, tt.kind)
		}
	}
}

func TestScanStrings(t *testing.T) {
	tests := []struct {
		input string
		text  string
	}{
		{`"hello"`, `"hello"`},
		{`'single'`, `'single'`},
		{`"esc\"aped"`, `"esc\"aped"`},
		{`"""multi
line"""`, "\"\"\"multi\nline\"\"\""},
	}

	for _, tt := range tests {
		tokens := Tokenize(tt.input, "test.as")
		if len(tokens) != 1 || tokens[0].Kind != token.String {
			t.Errorf("input %q: expected single string token, got %v", tt.input, kinds(tokens))
			continue
		}
		if tokens[0].Text != tt.text {
			t.Errorf("input %q: text = %q, want %q", tt.input, tokens[0].Text, tt.text)
		}
	}
}

func TestScanComments(t *testing.T) {
	tokens := Tokenize("a // line\nb /* block\nspan */ c", "test.as")

	var comments, idents int
	for _, tok := range tokens {
		switch tok.Kind {
		case token.Comment:
			comments++
		case token.Identifier:
			idents++
		}
	}
	if comments != 2 {
		t.Errorf("comments = %d, want 2", comments)
	}
	if idents != 3 {
		t.Errorf("identifiers = %d, want 3", idents)
	}
}

func TestRightAngleStaysSingle(t *testing.T) {
	// '>' 永远单独成符；组合由语法分析器按上下文合成
	tokens := Tokenize("a >> b", "test.as")
	if len(tokens) != 4 {
		t.Fatalf("expected 4 tokens, got %d", len(tokens))
	}
	if tokens[1].Text != ">" || tokens[2].Text != ">" {
		t.Fatalf("expected two single '>' tokens, got %q %q", tokens[1].Text, tokens[2].Text)
	}
	if !token.Adjacent(tokens[1], tokens[2]) {
		t.Error("the two '>' of '>>' must be lexically adjacent")
	}

	spaced := Tokenize("a > > b", "test.as")
	if token.Adjacent(spaced[1], spaced[2]) {
		t.Error("'> >' with a gap must not be adjacent")
	}
}

func TestCompoundMarks(t *testing.T) {
	tests := []struct {
		input string
		texts []string
	}{
		{"a::b", []string{"a", "::", "b"}},
		{"a:b", []string{"a", ":", "b"}},
		{"x<<=1", []string{"x", "<<=", "1"}},
		{"x**=y", []string{"x", "**=", "y"}},
		{"i++", []string{"i", "++"}},
		{"a<=b", []string{"a", "<=", "b"}},
	}

	for _, tt := range tests {
		tokens := Tokenize(tt.input, "test.as")
		if len(tokens) != len(tt.texts) {
			t.Errorf("input %q: expected %d tokens, got %d", tt.input, len(tt.texts), len(tokens))
			continue
		}
		for i, text := range tt.texts {
			if tokens[i].Text != text {
				t.Errorf("input %q token %d: got %q, want %q", tt.input, i, tokens[i].Text, text)
			}
		}
	}
}

func TestLocations(t *testing.T) {
	tokens := Tokenize("ab\n cd", "test.as")
	if len(tokens) != 2 {
		t.Fatalf("expected 2 tokens, got %d", len(tokens))
	}

	first := tokens[0].Location
	if first.Start.Line != 1 || first.Start.Column != 1 || first.Start.Offset != 0 {
		t.Errorf("first start = %+v", first.Start)
	}
	if first.End.Offset != 2 {
		t.Errorf("first end offset = %d, want 2", first.End.Offset)
	}

	second := tokens[1].Location
	if second.Start.Line != 2 || second.Start.Column != 2 || second.Start.Offset != 4 {
		t.Errorf("second start = %+v", second.Start)
	}
}

func TestUnterminated(t *testing.T) {
	tk := New(`"open`, "test.as")
	tokens := tk.ScanTokens()
	if !tk.HasErrors() {
		t.Error("expected error for unterminated string")
	}
	if len(tokens) != 1 || tokens[0].Kind != token.String {
		t.Errorf("expected recovery into a string token, got %v", kinds(tokens))
	}

	tk = New("/* open", "test.as")
	tk.ScanTokens()
	if !tk.HasErrors() {
		t.Error("expected error for unterminated block comment")
	}
}
