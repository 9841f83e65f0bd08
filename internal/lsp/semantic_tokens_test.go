package lsp

import (
	"testing"

	"go.lsp.dev/protocol"

	"github.com/gyxos-logan/angel-lsp/internal/token"
)

func TestEncodeSemanticTokensDelta(t *testing.T) {
	tokens := []semanticToken{
		{line: 0, startChar: 0, length: 3, tokenType: 9},
		{line: 0, startChar: 4, length: 1, tokenType: 6},
		{line: 2, startChar: 2, length: 5, tokenType: 8},
	}

	data := encodeSemanticTokens(tokens)
	expected := []uint32{
		0, 0, 3, 9, 0, // 首个 token 绝对定位
		0, 4, 1, 6, 0, // 同行：列增量
		2, 2, 5, 8, 0, // 跨行：列重新绝对
	}
	if len(data) != len(expected) {
		t.Fatalf("data length = %d, want %d", len(data), len(expected))
	}
	for i, want := range expected {
		if data[i] != want {
			t.Errorf("data[%d] = %d, want %d", i, data[i], want)
		}
	}
}

func TestLocationToRange(t *testing.T) {
	loc := token.Location{
		Path:  "test.as",
		Start: token.Position{Line: 3, Column: 5, Offset: 40},
		End:   token.Position{Line: 3, Column: 8, Offset: 43},
	}
	r := locationToRange(loc)
	if r.Start.Line != 2 || r.Start.Character != 4 {
		t.Errorf("start = %+v, want 2:4", r.Start)
	}
	if r.End.Line != 2 || r.End.Character != 7 {
		t.Errorf("end = %+v, want 2:7", r.End)
	}
}

func TestPositionInLocation(t *testing.T) {
	loc := token.Location{
		Start: token.Position{Line: 2, Column: 3},
		End:   token.Position{Line: 2, Column: 7},
	}

	inside := protocol.Position{Line: 1, Character: 4}
	before := protocol.Position{Line: 1, Character: 1}
	otherLine := protocol.Position{Line: 3, Character: 4}

	if !positionInLocation(inside, loc) {
		t.Error("position inside the span must match")
	}
	if positionInLocation(before, loc) {
		t.Error("position before the span must not match")
	}
	if positionInLocation(otherLine, loc) {
		t.Error("position on another line must not match")
	}
}
