package analyzer

import (
	"github.com/gyxos-logan/angel-lsp/internal/ast"
	"github.com/gyxos-logan/angel-lsp/internal/highlight"
	"github.com/gyxos-logan/angel-lsp/internal/symbols"
	"github.com/gyxos-logan/angel-lsp/internal/token"
)

// ============================================================================
// 调用分析与重载决议
// ============================================================================

// analyzeFuncCall 函数调用 a(args)，按被调符号的种类分发
//
// 类型 → 构造调用；委托变量 → 直接调用；用户类型变量 → opCall；
// 函数 → 重载决议。
func (a *Analyzer) analyzeFuncCall(scope *symbols.Scope, n *ast.FuncCall) *symbols.ResolvedType {
	search := scope
	shallow := false
	if n.Scope != nil {
		search = a.analyzeScope(scope, n.Scope)
		if search == nil {
			return nil
		}
		shallow = true
	}
	if n.Ident == nil {
		return nil
	}

	sym := lookupSymbol(search, n.Ident.Text, shallow)
	switch hit := sym.(type) {
	case nil:
		a.state.ErrorAt(n.Ident, "'"+n.Ident.Text+"' is not defined")
		return nil

	case *symbols.Type:
		a.reclassifyType(n.Ident, hit)
		scope.AddReference(n.Ident, hit)
		return a.analyzeConstructorCall(scope, symbols.ResolveType(hit), n.Ident, n.Args)

	case *symbols.Variable:
		scope.AddReference(n.Ident, hit)
		a.reclassifyVariable(n.Ident, hit)
		if hit.Type == nil {
			a.analyzeArgValues(scope, n.Args)
			return nil
		}
		if hit.Type.Func != nil {
			// 委托值的直接调用
			argTypes, argLocs := a.analyzeArgs(scope, n.Args)
			return a.checkFunctionMatch(scope, n.Ident, hit.Type.Func, argTypes, argLocs, nil)
		}
		// 用户类型值：改写为 opCall
		return a.analyzeOperatorAliasCall(scope, hit.Type, "opCall", n.Ident, n.Args, n.Range)

	case *symbols.Function:
		a.state.Reclassify(n.Ident, highlight.Function)
		argTypes, argLocs := a.analyzeArgs(scope, n.Args)
		return a.checkFunctionMatch(scope, n.Ident, hit, argTypes, argLocs, nil)
	}

	a.state.ErrorAt(n.Ident, "'"+n.Ident.Text+"' cannot be called")
	return nil
}

// analyzeConstructorCall 构造调用
//
// 类型成员作用域中以类型名命名的函数是构造函数；存在时走重载
// 决议。否则退回内建构造语义：枚举要求恰好一个可转换为整数的
// 实参；其余类型零实参默认构造静默成功，否则报错。
func (a *Analyzer) analyzeConstructorCall(scope *symbols.Scope, t *symbols.ResolvedType, ident *token.Token, args *ast.ArgList) *symbols.ResolvedType {
	if t == nil || t.Type == nil {
		a.analyzeArgValues(scope, args)
		return nil
	}

	if t.Type.Members != nil {
		if ctor, ok := t.Type.Members.Lookup(t.Type.Name).(*symbols.Function); ok {
			argTypes, argLocs := a.analyzeArgs(scope, args)
			a.checkFunctionMatch(scope, ident, ctor, argTypes, argLocs, t.TemplateTranslate)
			return t
		}
	}

	argTypes, _ := a.analyzeArgs(scope, args)

	// 基本类型的值转换形式 int(x)
	if t.Type.IsSystemType && len(argTypes) == 1 {
		return t
	}

	if _, isEnum := t.Type.Source.(*ast.Enum); isEnum {
		if len(argTypes) != 1 || !canTypeConvert(argTypes[0], symbols.ResolvedInt) {
			a.errorNear(ident, args, "Enum constructor requires an integer")
		}
		return t
	}

	if len(argTypes) > 0 {
		a.errorNear(ident, args, "Type '"+t.Type.Name+"' has no matching constructor")
	}
	return t
}

// analyzeMethodCall 方法调用 value.name(args)
//
// 左侧必须是带成员作用域的类型；重载决议使用左侧类型的模板翻译。
func (a *Analyzer) analyzeMethodCall(scope *symbols.Scope, t *symbols.ResolvedType, ident *token.Token, args *ast.ArgList) *symbols.ResolvedType {
	if t == nil || ident == nil {
		a.analyzeArgValues(scope, args)
		return nil
	}
	if t.Type == nil || t.Type.Members == nil {
		a.state.ErrorAt(ident, "'"+t.Name()+"' has no members")
		return nil
	}

	sym := t.Type.Members.Lookup(ident.Text)
	if sym == nil {
		a.state.ErrorAt(ident, "'"+ident.Text+"' is not defined")
		a.analyzeArgValues(scope, args)
		return nil
	}
	fn, ok := sym.(*symbols.Function)
	if !ok {
		a.state.ErrorAt(ident, "'"+ident.Text+"' is not a method")
		a.analyzeArgValues(scope, args)
		return nil
	}

	a.state.Reclassify(ident, highlight.Function)
	argTypes, argLocs := a.analyzeArgs(scope, args)
	return a.checkFunctionMatch(scope, ident, fn, argTypes, argLocs, t.TemplateTranslate)
}

// analyzeValueCall 对值的直接调用 value(args)
//
// 委托值直接匹配；其余改写为值类型上的 opCall。
func (a *Analyzer) analyzeValueCall(scope *symbols.Scope, t *symbols.ResolvedType, n *ast.PostCall) *symbols.ResolvedType {
	if t == nil {
		a.analyzeArgValues(scope, n.Args)
		return nil
	}
	if t.Func != nil {
		argTypes, argLocs := a.analyzeArgs(scope, n.Args)
		return a.checkFunctionMatch(scope, t.Func.DeclToken, t.Func, argTypes, argLocs, nil)
	}
	return a.analyzeOperatorAliasCall(scope, t, "opCall", nil, n.Args, n.Range)
}

// analyzeOperatorAliasCall 以别名方法的形式调用运算（opIndex、opCall）
func (a *Analyzer) analyzeOperatorAliasCall(scope *symbols.Scope, t *symbols.ResolvedType, alias string, ident *token.Token, args *ast.ArgList, rng ast.NodeRange) *symbols.ResolvedType {
	if t == nil {
		a.analyzeArgValues(scope, args)
		return nil
	}
	if t.Type == nil || t.Type.Members == nil {
		a.diagAt(rng, "Operator '"+alias+"' of '"+t.Name()+"' is not defined")
		a.analyzeArgValues(scope, args)
		return nil
	}
	fn, ok := t.Type.Members.Lookup(alias).(*symbols.Function)
	if !ok {
		a.diagAt(rng, "Operator '"+alias+"' of '"+t.Name()+"' is not defined")
		a.analyzeArgValues(scope, args)
		return nil
	}
	argTypes, argLocs := a.analyzeArgs(scope, args)
	return a.checkFunctionMatch(scope, ident, fn, argTypes, argLocs, t.TemplateTranslate)
}

// analyzeArgs 分析实参表，返回类型与位置序列
func (a *Analyzer) analyzeArgs(scope *symbols.Scope, args *ast.ArgList) ([]*symbols.ResolvedType, []token.Location) {
	if args == nil {
		return nil, nil
	}
	types := make([]*symbols.ResolvedType, 0, len(args.Args))
	locs := make([]token.Location, 0, len(args.Args))
	for _, arg := range args.Args {
		types = append(types, a.analyzeAssign(scope, arg.Value))
		locs = append(locs, arg.Range.Location())
	}
	return types, locs
}

// analyzeArgValues 只分析实参内容，不收集类型（错误恢复路径）
func (a *Analyzer) analyzeArgValues(scope *symbols.Scope, args *ast.ArgList) {
	if args == nil {
		return
	}
	for _, arg := range args.Args {
		a.analyzeAssign(scope, arg.Value)
	}
}

// errorNear 在调用标识符（或实参表）处发射诊断
func (a *Analyzer) errorNear(ident *token.Token, args *ast.ArgList, message string) {
	if ident != nil {
		a.state.ErrorAt(ident, message)
		return
	}
	if args != nil {
		a.diagAt(args.Range, message)
	}
}

// ============================================================================
// 重载决议
// ============================================================================

// checkFunctionMatch 在重载链上决议一次调用
//
// 候选按参数匹配打分：精确匹配优于可转换匹配；最高分并列时报
// 二义性。未知实参类型按可转换计。胜者记入所在作用域的引用表，
// 并发射 Arguments 补全提示。返回胜者在模板翻译下的返回类型。
func (a *Analyzer) checkFunctionMatch(scope *symbols.Scope, callerIdent *token.Token, callee *symbols.Function, argTypes []*symbols.ResolvedType, argLocs []token.Location, trans symbols.TemplateTranslation) *symbols.ResolvedType {
	const (
		scoreExact   = 2
		scoreConvert = 1
	)

	var best *symbols.Function
	bestScore := -1
	ambiguous := false

	for _, cand := range callee.Overloads() {
		if len(argTypes) < cand.MinArgs || len(argTypes) > len(cand.ParamTypes) {
			continue
		}
		score := 0
		matched := true
		for i, argType := range argTypes {
			param := applyTranslation(cand.ParamTypes[i], trans)
			switch {
			case argType == nil || param == nil:
				score += scoreConvert
			case sameType(argType, param):
				score += scoreExact
			case canTypeConvert(argType, param):
				score += scoreConvert
			default:
				matched = false
			}
			if !matched {
				break
			}
		}
		if !matched {
			continue
		}
		if score > bestScore {
			best = cand
			bestScore = score
			ambiguous = false
		} else if score == bestScore {
			ambiguous = true
		}
	}

	if callerIdent != nil {
		scope.AddHint(&symbols.ArgumentsHint{
			Location:          callerIdent.Location,
			Callee:            callee,
			PassingRanges:     argLocs,
			TemplateTranslate: trans,
		})
	}

	if best == nil {
		a.matchFailure(callerIdent, callee, argTypes, argLocs)
		return nil
	}
	if ambiguous {
		if callerIdent != nil {
			a.state.ErrorAt(callerIdent, "Ambiguous call to '"+callee.Name+"'")
		}
		return applyTranslation(best.ReturnType, trans)
	}

	scope.AddReference(callerIdent, best)
	return applyTranslation(best.ReturnType, trans)
}

// matchFailure 无候选时的诊断
//
// 单一重载给出具体的不匹配原因，多重载给出整体性消息。
func (a *Analyzer) matchFailure(callerIdent *token.Token, callee *symbols.Function, argTypes []*symbols.ResolvedType, argLocs []token.Location) {
	overloads := callee.Overloads()
	if len(overloads) == 1 {
		cand := overloads[0]
		if len(argTypes) < cand.MinArgs || len(argTypes) > len(cand.ParamTypes) {
			if callerIdent != nil {
				a.state.ErrorAt(callerIdent, "Wrong number of arguments to '"+callee.Name+"'")
			}
			return
		}
		for i, argType := range argTypes {
			param := cand.ParamTypes[i]
			if argType != nil && param != nil && !canTypeConvert(argType, param) {
				loc := token.Location{}
				if i < len(argLocs) {
					loc = argLocs[i]
				}
				a.state.Diagnostics().Add(loc,
					"Type mismatch: '"+argType.Name()+"' is not convertible to '"+param.Name()+"'")
				return
			}
		}
	}
	if callerIdent != nil {
		a.state.ErrorAt(callerIdent, "No matching overload for '"+callee.Name+"'")
	}
}

// ============================================================================
// 类型转换
// ============================================================================

// sameType 两个解析类型是否同一
func sameType(x, y *symbols.ResolvedType) bool {
	if x == nil || y == nil {
		return false
	}
	if x.Func != nil || y.Func != nil {
		return x.Func == y.Func
	}
	return x.Type == y.Type
}

// canTypeConvert 隐式转换可行性
//
// 未知类型静默通过（错误已在上游报告过）。数值类型互相转换；
// 枚举可转换为数值；bool 不与数值互转；派生类可转换为基类。
func canTypeConvert(from, to *symbols.ResolvedType) bool {
	if from == nil || to == nil {
		return true
	}
	if to.Type == symbols.TypeAny {
		return true
	}
	if from.Func != nil || to.Func != nil {
		// 委托：函数引用可以赋给 funcdef 句柄
		return from.Func != nil && to.Func != nil
	}

	ft, tt := from.Type, to.Type
	if ft == nil || tt == nil {
		return false
	}
	if ft == tt {
		return true
	}
	if tt == symbols.TypeBool || ft == symbols.TypeBool {
		return false
	}
	if ft.IsNumberType && tt.IsNumberType {
		return true
	}
	// 枚举隐式转换为数值
	if _, isEnum := ft.Source.(*ast.Enum); isEnum && tt.IsNumberType {
		return true
	}
	return isDerivedFrom(ft, tt)
}

// isDerivedFrom 沿基类链判断派生关系
func isDerivedFrom(t, base *symbols.Type) bool {
	for _, b := range t.Bases {
		if b == base || isDerivedFrom(b, base) {
			return true
		}
	}
	return false
}
