package analyzer

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gyxos-logan/angel-lsp/internal/diagnostics"
	"github.com/gyxos-logan/angel-lsp/internal/parser"
	"github.com/gyxos-logan/angel-lsp/internal/symbols"
	"github.com/gyxos-logan/angel-lsp/internal/tokenizer"
)

func analyzeSource(t *testing.T, src string) (*parser.State, *symbols.Scope) {
	t.Helper()
	tokens := tokenizer.Tokenize(src, "test.as")
	script, state := parser.Parse(tokens, "test.as")
	global := Analyze(script, state)
	return state, global
}

func requireClean(t *testing.T, state *parser.State) {
	t.Helper()
	for _, d := range state.Diagnostics().List() {
		t.Errorf("unexpected diagnostic: %v", d)
	}
}

func findDiag(state *parser.State, substr string) *diagnostics.Diagnostic {
	for _, d := range state.Diagnostics().List() {
		if strings.Contains(d.Message, substr) {
			return &d
		}
	}
	return nil
}

func TestSimpleVarResolution(t *testing.T) {
	// S1: int x = 1 + 2 * 3;
	state, global := analyzeSource(t, `int x = 1 + 2 * 3;`)
	requireClean(t, state)

	v, ok := global.Lookup("x").(*symbols.Variable)
	require.True(t, ok, "x must be a variable symbol")
	require.NotNil(t, v.Type)
	require.Equal(t, symbols.TypeInt32, v.Type.Type)
}

func TestClassWithConstructor(t *testing.T) {
	// S2: 类 + 字段 + 构造函数 + 构造实参变量
	state, global := analyzeSource(t, `class A { int v; A(int x) { v = x; } } A a(42);`)
	requireClean(t, state)

	classType, ok := global.Lookup("A").(*symbols.Type)
	require.True(t, ok, "A must be a type symbol")
	require.NotNil(t, classType.Members)

	field, ok := classType.Members.Lookup("v").(*symbols.Variable)
	require.True(t, ok, "v must be a member variable")
	require.Equal(t, symbols.TypeInt32, field.Type.Type)

	ctor, ok := classType.Members.Lookup("A").(*symbols.Function)
	require.True(t, ok, "constructor must be registered beside the type")
	require.Len(t, ctor.Overloads(), 1)
	require.Len(t, ctor.ParamTypes, 1)
	require.Equal(t, symbols.TypeInt32, ctor.ParamTypes[0].Type)
	require.Equal(t, classType, ctor.ReturnType.Type)

	v, ok := global.Lookup("a").(*symbols.Variable)
	require.True(t, ok)
	require.Equal(t, classType, v.Type.Type)
}

func TestTypeMismatchDiagnostic(t *testing.T) {
	// S3: int → bool 不可隐式转换
	state, global := analyzeSource(t, `int a = 1; bool b = a;`)

	d := findDiag(state, "Type mismatch")
	require.NotNil(t, d, "expected a type mismatch diagnostic")

	// 诊断覆盖右侧的 a
	require.Equal(t, 1, d.Location.Start.Line)
	require.Equal(t, 21, d.Location.Start.Column)

	// 变量仍按声明类型插入
	b, ok := global.Lookup("b").(*symbols.Variable)
	require.True(t, ok)
	require.Equal(t, symbols.TypeBool, b.Type.Type)
}

func TestEnumConstructor(t *testing.T) {
	// S4: 枚举成员与枚举构造
	state, global := analyzeSource(t, `enum E { X, Y = 5, Z, } E e = E(1);`)
	requireClean(t, state)

	enumType, ok := global.Lookup("E").(*symbols.Type)
	require.True(t, ok)
	for _, name := range []string{"X", "Y", "Z"} {
		member, ok := enumType.Members.Lookup(name).(*symbols.Variable)
		require.True(t, ok, "enum member %s", name)
		require.Equal(t, enumType, member.Type.Type)
	}

	e, ok := global.Lookup("e").(*symbols.Variable)
	require.True(t, ok)
	require.Equal(t, enumType, e.Type.Type)
}

func TestEnumConstructorRequiresInteger(t *testing.T) {
	state, _ := analyzeSource(t, `enum E { X } E e = E("no");`)
	require.NotNil(t, findDiag(state, "Enum constructor requires an integer"))
}

func TestOverloadResolution(t *testing.T) {
	// S5: 重载链与调用决议
	state, global := analyzeSource(t,
		`int f(int x) { return x; } int f(float x) { return 0; } f(1);`)
	requireClean(t, state)

	fn, ok := global.Lookup("f").(*symbols.Function)
	require.True(t, ok)
	overloads := fn.Overloads()
	require.Len(t, overloads, 2)

	// 调用标识符的引用指向 int 重载
	var target *symbols.Function
	for _, ref := range global.ReferencedList {
		if ref.From.Text == "f" {
			if cand, ok := ref.Target.(*symbols.Function); ok {
				target = cand
			}
		}
	}
	require.NotNil(t, target, "call must be recorded in the referenced list")
	require.Equal(t, symbols.TypeInt32, target.ParamTypes[0].Type)
}

func TestOverloadDeterminism(t *testing.T) {
	src := `int f(int x) { return x; } int f(float x) { return 0; } f(1);`
	pick := func() *symbols.Function {
		_, global := analyzeSource(t, src)
		for _, ref := range global.ReferencedList {
			if fn, ok := ref.Target.(*symbols.Function); ok && fn.Name == "f" {
				return fn
			}
		}
		return nil
	}
	first := pick()
	second := pick()
	require.NotNil(t, first)
	require.NotNil(t, second)
	require.Equal(t, first.ParamTypes[0].Type, second.ParamTypes[0].Type)
}

func TestPrecedenceTable(t *testing.T) {
	// 调度场使用的优先级与参考表一致
	expected := map[string]int{
		"**": 0,
		"*":  -1, "/": -1, "%": -1,
		"+": -2, "-": -2,
		"<<": -3, ">>": -3, ">>>": -3,
		"&": -4,
		"^": -5,
		"|": -6,
		"<": -7, "<=": -7, ">": -7, ">=": -7,
		"==": -8, "!=": -8, "is": -8, "!is": -8, "xor": -8, "^^": -8,
		"and": -9, "&&": -9,
		"or": -10, "||": -10,
	}
	for op, want := range expected {
		require.Equal(t, want, opPrecedence(op), "precedence of %q", op)
	}
}

func TestNumericPromotion(t *testing.T) {
	state, global := analyzeSource(t, `double d = 1 + 2 * 3.0; int i = 1 + 2 * 3;`)
	requireClean(t, state)

	d := global.Lookup("d").(*symbols.Variable)
	require.Equal(t, symbols.TypeDouble, d.Type.Type)
	i := global.Lookup("i").(*symbols.Variable)
	require.Equal(t, symbols.TypeInt32, i.Type.Type)
}

func TestOperatorAlias(t *testing.T) {
	state, global := analyzeSource(t, `
		class Vec { Vec opAdd(Vec other) { return other; } }
		Vec a; Vec b;
		Vec c = a + b;
	`)
	requireClean(t, state)

	vecType := global.Lookup("Vec").(*symbols.Type)
	c := global.Lookup("c").(*symbols.Variable)
	require.Equal(t, vecType, c.Type.Type)
}

func TestOperatorAliasReflected(t *testing.T) {
	state, global := analyzeSource(t, `
		class Vec { Vec opMul_r(int k) { Vec r; return r; } }
		Vec v;
		Vec w = 2 * v;
	`)
	requireClean(t, state)

	vecType := global.Lookup("Vec").(*symbols.Type)
	w := global.Lookup("w").(*symbols.Variable)
	require.Equal(t, vecType, w.Type.Type)
}

func TestOperatorNotDefined(t *testing.T) {
	state, _ := analyzeSource(t, `class Box {} Box x; Box y = x + x;`)
	require.NotNil(t, findDiag(state, "Operator '+' of 'Box' is not defined"))
}

func TestLogicOpsForceBool(t *testing.T) {
	state, _ := analyzeSource(t, `bool ok = true && (1 < 2);`)
	requireClean(t, state)

	state, _ = analyzeSource(t, `bool bad = 1 && true;`)
	require.NotNil(t, findDiag(state, "not convertible to 'bool'"))
}

func TestConditionMustBeBool(t *testing.T) {
	state, _ := analyzeSource(t, `void f() { if (1) {} }`)
	require.NotNil(t, findDiag(state, "not convertible to 'bool'"))

	state, _ = analyzeSource(t, `void f() { while (true) {} }`)
	requireClean(t, state)
}

func TestVoidReturnWithValue(t *testing.T) {
	state, _ := analyzeSource(t, `void f() { return 1; }`)
	require.NotNil(t, findDiag(state, "cannot return a value"))
}

func TestGetterReturnsPropertyType(t *testing.T) {
	state, _ := analyzeSource(t, `class C { int val { get { return 1; } set {} } }`)
	requireClean(t, state)

	state, _ = analyzeSource(t, `class C { bool val { get { return 1; } } }`)
	require.NotNil(t, findDiag(state, "Type mismatch"))
}

func TestFunctionWithoutHandler(t *testing.T) {
	state, _ := analyzeSource(t, `void g() {} void f() { g; }`)
	require.NotNil(t, findDiag(state, "Function call without handler."))
}

func TestAccessControl(t *testing.T) {
	state, _ := analyzeSource(t, `
		class A { private int secret; }
		void f() { A a; int x = a.secret; }
	`)
	require.NotNil(t, findDiag(state, "is not public member"))

	state, _ = analyzeSource(t, `
		class A { private int secret; int peek() { return secret; } }
	`)
	requireClean(t, state)
}

func TestAutoType(t *testing.T) {
	state, global := analyzeSource(t, `auto x = 1.5; auto y = 1;`)
	requireClean(t, state)

	require.Equal(t, symbols.TypeDouble, global.Lookup("x").(*symbols.Variable).Type.Type)
	require.Equal(t, symbols.TypeInt32, global.Lookup("y").(*symbols.Variable).Type.Type)
}

func TestArrayTemplateTranslation(t *testing.T) {
	state, global := analyzeSource(t, `
		int[] xs;
		void f() { xs.insertLast(1); int v = xs.opIndex(0); int w = xs[0]; }
	`)
	requireClean(t, state)

	xs := global.Lookup("xs").(*symbols.Variable)
	require.Equal(t, "array", xs.Type.Type.Name)
	require.Len(t, xs.Type.TemplateTranslate, 1)
}

func TestClassTemplates(t *testing.T) {
	state, global := analyzeSource(t, `
		class Holder<T> { T value; T take() { return value; } }
		Holder<int> h;
		void f() { int x = h.value; int y = h.take(); }
	`)
	requireClean(t, state)

	h := global.Lookup("h").(*symbols.Variable)
	require.NotNil(t, h.Type.TemplateTranslate)
}

func TestNamespaceResolution(t *testing.T) {
	state, global := analyzeSource(t, `namespace NS { int val; } int x = NS::val;`)
	requireClean(t, state)

	require.NotNil(t, global.Lookup("x"))

	// 每跳发射一条命名空间补全提示
	var hints int
	for _, hint := range global.Hints {
		if _, ok := hint.(*symbols.NamespaceHint); ok {
			hints++
		}
	}
	require.Greater(t, hints, 0, "expected namespace completion hints")
}

func TestFuncdefHandler(t *testing.T) {
	state, _ := analyzeSource(t, `
		funcdef void CB();
		void target() {}
		void g() { CB@ cb = @target; }
	`)
	requireClean(t, state)
}

func TestUndefinedSymbol(t *testing.T) {
	state, _ := analyzeSource(t, `int x = missing;`)
	require.NotNil(t, findDiag(state, "'missing' is not defined"))
}

func TestMethodCallAndFieldAccess(t *testing.T) {
	state, global := analyzeSource(t, `
		class P { int x; int fetch() { return x; } }
		void f() { P p; int a = p.x; int b = p.fetch(); }
	`)
	requireClean(t, state)
	require.NotNil(t, global.Lookup("P"))
}

func TestNotAMethod(t *testing.T) {
	state, _ := analyzeSource(t, `
		class P { int x; }
		void f() { P p; p.x(); }
	`)
	require.NotNil(t, findDiag(state, "is not a method"))
}

func TestArgumentsHintEmitted(t *testing.T) {
	_, global := analyzeSource(t, `void g(int a, int b) {} void f() { g(1, 2); }`)

	found := false
	var walk func(*symbols.Scope)
	walk = func(s *symbols.Scope) {
		for _, hint := range s.Hints {
			if _, ok := hint.(*symbols.ArgumentsHint); ok {
				found = true
			}
		}
		for _, c := range s.Children {
			walk(c)
		}
	}
	walk(global)
	require.True(t, found, "expected an arguments completion hint")
}

func TestAmbiguousOverload(t *testing.T) {
	state, _ := analyzeSource(t, `
		void f(int a, float b) {}
		void f(float a, int b) {}
		void g() { f(1.5, 2.5); }
	`)
	require.NotNil(t, findDiag(state, "Ambiguous call to 'f'"))
}
