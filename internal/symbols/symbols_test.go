package symbols

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gyxos-logan/angel-lsp/internal/token"
)

func TestInsertChainsOverloads(t *testing.T) {
	scope := NewGlobalScope()

	f1 := &Function{Name: "f"}
	f2 := &Function{Name: "f"}
	f3 := &Function{Name: "f"}
	require.True(t, scope.Insert(f1))
	require.True(t, scope.Insert(f2))
	require.True(t, scope.Insert(f3))

	head, ok := scope.Lookup("f").(*Function)
	require.True(t, ok)
	require.Len(t, head.Overloads(), 3)
	require.Same(t, f1, head)
	require.Same(t, f2, head.NextOverload)
	require.Same(t, f3, head.NextOverload.NextOverload)
}

func TestInsertRejectsConflicts(t *testing.T) {
	scope := NewGlobalScope()

	require.True(t, scope.Insert(&Variable{Name: "x"}))
	require.False(t, scope.Insert(&Variable{Name: "x"}))
	require.False(t, scope.Insert(&Function{Name: "x"}))
}

func TestLookupWithParents(t *testing.T) {
	global := NewGlobalScope()
	outer := global.Child("Outer")
	inner := outer.Child("Inner")

	v := &Variable{Name: "val"}
	outer.Insert(v)

	sym, at := inner.LookupWithParents("val")
	require.Same(t, v, sym)
	require.Same(t, outer, at)

	require.Nil(t, inner.Lookup("val"), "shallow lookup must not climb")
}

func TestChildIsIdempotent(t *testing.T) {
	global := NewGlobalScope()
	a := global.Child("NS")
	b := global.Child("NS")
	require.Same(t, a, b)

	anon1 := global.AnonymousChild(nil)
	anon2 := global.AnonymousChild(nil)
	require.NotSame(t, anon1, anon2)
	require.NotEqual(t, anon1.Key, anon2.Key)
}

func TestPrimeTypeAliases(t *testing.T) {
	require.Same(t, PrimeType("int"), PrimeType("int32"))
	require.Same(t, PrimeType("uint"), PrimeType("uint32"))
	require.NotSame(t, PrimeType("int"), PrimeType("int64"))
	require.True(t, PrimeType("double").IsNumberType)
	require.False(t, PrimeType("bool").IsNumberType)
	require.Nil(t, PrimeType("unknown"))
}

func TestResolvedTypeTranslate(t *testing.T) {
	param := &token.Token{Kind: token.Identifier, Text: "T"}
	inner := ResolveType(TypeInt32)
	rt := &ResolvedType{
		Type:              &Type{Name: "array", TemplateParams: []*token.Token{param}},
		TemplateTranslate: TemplateTranslation{param: inner},
	}

	require.Same(t, inner, rt.Translate(param))
	require.Nil(t, rt.Translate(&token.Token{Text: "T"}), "translation is keyed by token identity")
}
