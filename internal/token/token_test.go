package token

import "testing"

func TestLookupReserved(t *testing.T) {
	tests := []struct {
		text string
		ok   bool
		want func(Property) bool
	}{
		{"int", true, func(p Property) bool { return p.IsPrimeType }},
		{"double", true, func(p Property) bool { return p.IsPrimeType }},
		{"is", true, func(p Property) bool { return p.IsCompOp && !p.IsMark }},
		{"and", true, func(p Property) bool { return p.IsLogicOp }},
		{"not", true, func(p Property) bool { return p.IsExprPreOp }},
		{"+", true, func(p Property) bool { return p.IsMathOp && p.IsExprPreOp }},
		{"++", true, func(p Property) bool { return p.IsExprPreOp && p.IsExprPostOp }},
		{"<=", true, func(p Property) bool { return p.IsCompOp }},
		{"**=", true, func(p Property) bool { return p.IsAssignOp }},
		{"class", true, func(p Property) bool { return !p.IsExprOp() }},
		{"foobar", false, nil},
	}

	for _, tt := range tests {
		p, ok := LookupReserved(tt.text)
		if ok != tt.ok {
			t.Errorf("LookupReserved(%q): ok = %v, want %v", tt.text, ok, tt.ok)
			continue
		}
		if tt.want != nil && !tt.want(p) {
			t.Errorf("LookupReserved(%q): unexpected property %+v", tt.text, p)
		}
	}
}

func TestSynthesizedProperties(t *testing.T) {
	// 合成记号不参与词法扫描，但属性必须已登记
	synthesized := map[string]func(Property) bool{
		">=":   func(p Property) bool { return p.IsCompOp },
		">>":   func(p Property) bool { return p.IsBitOp },
		">>>":  func(p Property) bool { return p.IsBitOp },
		">>=":  func(p Property) bool { return p.IsAssignOp },
		">>>=": func(p Property) bool { return p.IsAssignOp },
		"!is":  func(p Property) bool { return p.IsCompOp },
	}
	for text, check := range synthesized {
		if !check(PropertyOf(text)) {
			t.Errorf("PropertyOf(%q): unexpected property %+v", text, PropertyOf(text))
		}
	}

	// 并且不在扫描表中
	for _, mark := range Marks {
		if _, ok := synthesized[mark]; ok {
			t.Errorf("synthesized token %q must not be in Marks", mark)
		}
	}
}

func TestAdjacent(t *testing.T) {
	a := &Token{Location: Location{Path: "a.as",
		Start: Position{Line: 1, Column: 1, Offset: 0},
		End:   Position{Line: 1, Column: 2, Offset: 1}}}
	b := &Token{Location: Location{Path: "a.as",
		Start: Position{Line: 1, Column: 2, Offset: 1},
		End:   Position{Line: 1, Column: 3, Offset: 2}}}
	c := &Token{Location: Location{Path: "a.as",
		Start: Position{Line: 1, Column: 4, Offset: 3},
		End:   Position{Line: 1, Column: 5, Offset: 4}}}

	if !Adjacent(a, b) {
		t.Error("expected a and b adjacent")
	}
	if Adjacent(b, c) {
		t.Error("b and c are separated, must not be adjacent")
	}
	if Adjacent(nil, b) {
		t.Error("nil is never adjacent")
	}
}

func TestNewVirtual(t *testing.T) {
	a := &Token{Kind: Reserved, Text: ">", Index: 5, Location: Location{
		Start: Position{Line: 1, Column: 3, Offset: 2},
		End:   Position{Line: 1, Column: 4, Offset: 3}}}
	b := &Token{Kind: Reserved, Text: ">", Index: 6, Location: Location{
		Start: Position{Line: 1, Column: 4, Offset: 3},
		End:   Position{Line: 1, Column: 5, Offset: 4}}}

	v := NewVirtual(">>", a, b)
	if !v.Virtual {
		t.Error("expected virtual token")
	}
	if v.Covers != 2 {
		t.Errorf("covers = %d, want 2", v.Covers)
	}
	if v.Index != 5 {
		t.Errorf("index = %d, want 5", v.Index)
	}
	if v.Location.Start.Offset != 2 || v.Location.End.Offset != 4 {
		t.Errorf("location = %+v, want covering 2..4", v.Location)
	}
	if !v.Property.IsBitOp {
		t.Errorf("expected bit-op property, got %+v", v.Property)
	}
}
