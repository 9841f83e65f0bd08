package analyzer

import (
	"github.com/gyxos-logan/angel-lsp/internal/ast"
	"github.com/gyxos-logan/angel-lsp/internal/highlight"
	"github.com/gyxos-logan/angel-lsp/internal/symbols"
	"github.com/gyxos-logan/angel-lsp/internal/token"
)

// ============================================================================
// 语句与声明分析
// ============================================================================

// analyzeStatBlockInto 在给定作用域中分析语句块内容（不另建子作用域）
func (a *Analyzer) analyzeStatBlockInto(scope *symbols.Scope, block *ast.StatBlock) {
	if block == nil {
		return
	}
	for _, stmt := range block.Stats {
		a.analyzeStatement(scope, stmt)
	}
}

// analyzeStatement 分析单条语句
func (a *Analyzer) analyzeStatement(scope *symbols.Scope, stmt ast.Statement) {
	switch n := stmt.(type) {
	case *ast.StatBlock:
		child := scope.AnonymousChild(n)
		a.analyzeStatBlockInto(child, n)

	case *ast.Var:
		a.analyzeLocalVar(scope, n)

	case *ast.If:
		a.checkBoolCondition(scope, n.Cond)
		if n.Then != nil {
			a.analyzeStatement(scope, n.Then)
		}
		if n.Else != nil {
			a.analyzeStatement(scope, n.Else)
		}

	case *ast.For:
		child := scope.AnonymousChild(n)
		if n.Init != nil {
			a.analyzeStatement(child, n.Init)
		}
		a.analyzeAssign(child, n.Cond)
		for _, post := range n.Post {
			a.analyzeAssign(child, post)
		}
		if n.Body != nil {
			a.analyzeStatement(child, n.Body)
		}

	case *ast.While:
		child := scope.AnonymousChild(n)
		a.checkBoolCondition(child, n.Cond)
		if n.Body != nil {
			a.analyzeStatement(child, n.Body)
		}

	case *ast.DoWhile:
		child := scope.AnonymousChild(n)
		if n.Body != nil {
			a.analyzeStatement(child, n.Body)
		}
		a.checkBoolCondition(child, n.Cond)

	case *ast.Switch:
		child := scope.AnonymousChild(n)
		a.analyzeAssign(child, n.Cond)
		for _, c := range n.Cases {
			if c.Expr != nil {
				a.analyzeExpr(child, c.Expr)
			}
			for _, stat := range c.Stats {
				a.analyzeStatement(child, stat)
			}
		}

	case *ast.Try:
		tryScope := scope.AnonymousChild(n)
		a.analyzeStatBlockInto(tryScope, n.TryBlock)
		catchScope := scope.AnonymousChild(n)
		a.analyzeStatBlockInto(catchScope, n.CatchBlock)

	case *ast.Return:
		a.analyzeReturn(scope, n)

	case *ast.Break, *ast.Continue:
		// 无需分析

	case *ast.ExprStat:
		a.analyzeExprStat(scope, n)
	}
}

// checkBoolCondition 控制流条件必须可转换为 bool
func (a *Analyzer) checkBoolCondition(scope *symbols.Scope, cond *ast.Assign) {
	t := a.analyzeAssign(scope, cond)
	if t == nil || cond == nil {
		return
	}
	if !canTypeConvert(t, symbols.ResolvedBool) {
		a.diagAt(cond.Range, "Type mismatch: '"+t.Name()+"' is not convertible to 'bool'")
	}
}

// analyzeExprStat 表达式语句
//
// 解析为裸函数符号（既没有调用也没有取句柄）时给出提示性错误。
func (a *Analyzer) analyzeExprStat(scope *symbols.Scope, n *ast.ExprStat) {
	if n.Expr == nil {
		return
	}
	t := a.analyzeAssign(scope, n.Expr)
	if t != nil && t.Func != nil && t.Type == nil && !t.IsHandler {
		a.diagAt(n.Range, "Function call without handler.")
	}
}

// analyzeLocalVar 局部变量声明
func (a *Analyzer) analyzeLocalVar(scope *symbols.Scope, node *ast.Var) {
	declType := a.analyzeType(scope, node.Type)
	for _, d := range node.Declarators {
		if d.Ident == nil {
			continue
		}
		varType := a.analyzeVarInit(scope, declType, d)
		v := &symbols.Variable{
			Name:      d.Ident.Text,
			DeclToken: d.Ident,
			Type:      varType,
			Access:    node.Access,
			DeclScope: scope,
		}
		if !scope.Insert(v) {
			a.state.ErrorAt(d.Ident, "'"+d.Ident.Text+"' is already declared")
		}
	}
}

// analyzeVarInit 分析单个声明子项的初始化式，返回变量的最终类型
//
// 初始化式是三者之一：赋值表达式、初始化列表、构造实参表。
// 声明类型为 auto 时由初始化表达式的类型替换。
func (a *Analyzer) analyzeVarInit(scope *symbols.Scope, declType *symbols.ResolvedType, d *ast.VarDeclarator) *symbols.ResolvedType {
	isAuto := declType != nil && declType.Type == symbols.TypeAuto

	switch init := d.Init.(type) {
	case *ast.Assign:
		t := a.analyzeAssign(scope, init)
		if isAuto {
			return t
		}
		if t != nil && declType != nil && !canTypeConvert(t, declType) {
			a.diagAt(init.Range, "Type mismatch: '"+t.Name()+"' is not convertible to '"+declType.Name()+"'")
		}
		return declType

	case *ast.InitList:
		// 初始化列表暂不推断类型
		a.analyzeInitList(scope, init)
		return declType

	case *ast.ArgList:
		// 构造调用形式 A a(42);
		if isAuto {
			a.analyzeArgValues(scope, init)
			return nil
		}
		return a.analyzeConstructorCall(scope, declType, d.Ident, init)
	}
	return declType
}

// analyzeInitList 初始化列表：分析内容但不产出类型
func (a *Analyzer) analyzeInitList(scope *symbols.Scope, il *ast.InitList) *symbols.ResolvedType {
	for _, item := range il.Items {
		switch it := item.(type) {
		case *ast.Assign:
			a.analyzeAssign(scope, it)
		case *ast.InitList:
			a.analyzeInitList(scope, it)
		}
	}
	return nil
}

// ============================================================================
// 类型解析
// ============================================================================

// analyzeType 解析类型标注
//
// 先解析作用域前缀，再在得到的作用域中查找类型名（无前缀时沿
// 父链向上）；命中构造函数时上退一层重试；命中 funcdef 时解析为
// 该函数类型的句柄；T[] 改写为内建数组模板的实例。
func (a *Analyzer) analyzeType(scope *symbols.Scope, t *ast.Type) *symbols.ResolvedType {
	if t == nil || t.DataType == nil {
		return nil
	}

	base := a.analyzeBaseType(scope, t)
	if base == nil {
		return nil
	}

	if t.IsArray {
		trans := symbols.TemplateTranslation{a.arrayParam: base}
		base = &symbols.ResolvedType{Type: a.arrayType, TemplateTranslate: trans}
	}
	if t.RefModifier != ast.RefNone {
		base = &symbols.ResolvedType{
			Type:              base.Type,
			Func:              base.Func,
			TemplateTranslate: base.TemplateTranslate,
			IsHandler:         true,
		}
	}
	return base
}

func (a *Analyzer) analyzeBaseType(scope *symbols.Scope, t *ast.Type) *symbols.ResolvedType {
	name := t.DataType.Text

	// 基本类型（含 '?' 与 'auto'）
	if t.Scope == nil {
		if prime := symbols.PrimeType(name); prime != nil {
			return symbols.ResolveType(prime)
		}
	}

	search := scope
	shallow := false
	if t.Scope != nil {
		search = a.analyzeScope(scope, t.Scope)
		if search == nil {
			return nil
		}
		shallow = true
	}

	var sym symbols.Symbol
	foundIn := search
	if shallow {
		sym = search.Lookup(name)
	} else {
		sym, foundIn = search.LookupWithParents(name)
	}

	// 构造函数与所构造类型互为兄弟：在类体内查类名会先命中
	// 构造函数，从命中处上退一层重试
	if _, isFunc := sym.(*symbols.Function); isFunc && foundIn != nil && foundIn.Parent != nil {
		if shallow {
			sym = foundIn.Parent.Lookup(name)
		} else {
			sym, _ = foundIn.Parent.LookupWithParents(name)
		}
	}

	switch hit := sym.(type) {
	case nil:
		a.state.ErrorAt(t.DataType, "'"+name+"' is not defined")
		return nil

	case *symbols.Type:
		scope.AddReference(t.DataType, hit)
		a.reclassifyType(t.DataType, hit)
		scope.AddHint(&symbols.TypeHint{Location: t.DataType.Location, Target: hit})

		// funcdef：解析为该函数类型的句柄
		if hit.Signature != nil {
			return &symbols.ResolvedType{Func: hit.Signature, IsHandler: true}
		}

		var trans symbols.TemplateTranslation
		if len(t.TypeTemplates) > 0 && len(hit.TemplateParams) > 0 {
			trans = make(symbols.TemplateTranslation)
			count := len(t.TypeTemplates)
			if len(hit.TemplateParams) < count {
				count = len(hit.TemplateParams)
			}
			for i := 0; i < count; i++ {
				trans[hit.TemplateParams[i]] = a.analyzeType(scope, t.TypeTemplates[i])
			}
		}
		return &symbols.ResolvedType{Type: hit, TemplateTranslate: trans}

	default:
		a.state.ErrorAt(t.DataType, "'"+name+"' is not a type")
		return nil
	}
}

// lookupSymbol 浅查找或沿父链查找
func lookupSymbol(scope *symbols.Scope, name string, shallow bool) symbols.Symbol {
	if shallow {
		return scope.Lookup(name)
	}
	sym, _ := scope.LookupWithParents(name)
	return sym
}

// reclassifyType 按符号来源改判类型记号的高亮类别
func (a *Analyzer) reclassifyType(tok *token.Token, t *symbols.Type) {
	switch t.Source.(type) {
	case *ast.Class:
		a.state.Reclassify(tok, highlight.Class)
	case *ast.Interface:
		a.state.Reclassify(tok, highlight.Interface)
	case *ast.Enum:
		a.state.Reclassify(tok, highlight.Enum)
	default:
		a.state.Reclassify(tok, highlight.Type)
	}
}

// analyzeScope 解析作用域前缀 [::] id1::id2::...
//
// 从全局作用域（'::' 前缀）或当前作用域出发逐段浅查找；
// 首段在非全局作用域失配时沿父链上退重试。每段发射一条
// 覆盖标识符到 '::' 的命名空间补全提示。
func (a *Analyzer) analyzeScope(scope *symbols.Scope, sc *ast.Scope) *symbols.Scope {
	if sc == nil {
		return scope
	}
	search := scope
	if sc.IsGlobal {
		search = scope.GlobalScope()
	}

	for i, name := range sc.Names {
		hop := search.FindChild(name.Text)
		if hop == nil && i == 0 && !sc.IsGlobal {
			for cur := scope.Parent; cur != nil; cur = cur.Parent {
				if found := cur.FindChild(name.Text); found != nil {
					hop = found
					break
				}
			}
		}
		if hop == nil {
			a.state.ErrorAt(name, "Invalid scope")
			return nil
		}

		loc := name.Location
		if i < len(sc.Seps) {
			loc = token.Merge(loc, sc.Seps[i].Location)
		}
		scope.AddHint(&symbols.NamespaceHint{Location: loc, Names: sc.Names[:i+1]})
		search = hop
	}
	return search
}

// ============================================================================
// 返回语句
// ============================================================================

// analyzeReturn 返回语句
//
// 上溯最近的函数样作用域（函数、虚属性访问器、lambda）确定期望
// 返回类型：void 函数带值返回是错误；getter 返回属性变量的类型；
// setter 不返回值；lambda 的返回类型推断未实现，跳过检查。
func (a *Analyzer) analyzeReturn(scope *symbols.Scope, r *ast.Return) {
	var valueType *symbols.ResolvedType
	if r.Value != nil {
		valueType = a.analyzeAssign(scope, r.Value)
	}

	expected, check := a.enclosingReturnType(scope)
	if !check {
		return
	}

	isVoid := expected == nil || expected.Type == symbols.TypeVoid
	if isVoid {
		if r.Value != nil {
			a.diagAt(r.Range, "A function of type 'void' cannot return a value")
		}
		return
	}
	if r.Value == nil {
		a.diagAt(r.Range, "Return value expected")
		return
	}
	if valueType != nil && !canTypeConvert(valueType, expected) {
		a.diagAt(r.Value.Range, "Type mismatch: '"+valueType.Name()+"' is not convertible to '"+expected.Name()+"'")
	}
}

// enclosingReturnType 上溯函数样作用域，返回期望类型与是否检查
func (a *Analyzer) enclosingReturnType(scope *symbols.Scope) (*symbols.ResolvedType, bool) {
	for cur := scope; cur != nil; cur = cur.Parent {
		switch n := cur.LinkedNode.(type) {
		case *ast.Func:
			fn := a.funcsByNode[n]
			if fn == nil {
				return nil, false
			}
			if n.Head != ast.HeadRegular {
				// 构造/析构函数不返回值
				return nil, true
			}
			return fn.ReturnType, true
		case *ast.PropAccessor:
			prop := a.accessorProp[n]
			if n.Keyword != nil && n.Keyword.Text == "get" && prop != nil {
				return prop.Type, true
			}
			return nil, true // setter 不返回值
		case *ast.Lambda:
			return nil, false // 返回类型推断未实现
		}
	}
	return nil, false
}

// diagAt 在节点范围处发射诊断
func (a *Analyzer) diagAt(r ast.NodeRange, message string) {
	a.state.Diagnostics().Add(r.Location(), message)
}
