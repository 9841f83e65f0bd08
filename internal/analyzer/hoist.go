package analyzer

import (
	"github.com/gyxos-logan/angel-lsp/internal/ast"
	"github.com/gyxos-logan/angel-lsp/internal/parser"
	"github.com/gyxos-logan/angel-lsp/internal/symbols"
	"github.com/gyxos-logan/angel-lsp/internal/token"
)

// ============================================================================
// Hoist - 顶层声明提升
// ============================================================================
//
// 语义分析分三步：
// 1. 提升：把所有顶层声明登记进作用域树，使相互引用的定义
//    不受源码顺序约束
// 2. 签名解析：函数形参/返回类型、成员变量类型、基类（签名队列）
// 3. 函数体分析（函数体队列）
//
// HoistResult 的 AnalyzeQueue 按签名先、函数体后的顺序排列，
// 逐项执行完成整个分析。
//
// ============================================================================

// HoistResult 提升结果
type HoistResult struct {
	GlobalScope  *symbols.Scope
	AnalyzeQueue []func()
}

// Analyzer 语义分析器
type Analyzer struct {
	state         *parser.State
	global        *symbols.Scope
	arrayTypeName string

	arrayType  *symbols.Type
	arrayParam *token.Token

	funcsByNode  map[*ast.Func]*symbols.Function
	accessorProp map[*ast.PropAccessor]*symbols.Variable

	sigJobs  []func()
	bodyJobs []func()
}

// Option 分析器配置项
type Option func(*Analyzer)

// WithArrayType 设置 T[] 语法改写成的内建数组类型名
func WithArrayType(name string) Option {
	return func(a *Analyzer) {
		if name != "" {
			a.arrayTypeName = name
		}
	}
}

// Analyze 提升并完整分析一个脚本，返回全局作用域
func Analyze(script *ast.Script, s *parser.State, opts ...Option) *symbols.Scope {
	hoisted := Hoist(script, s, opts...)
	for _, job := range hoisted.AnalyzeQueue {
		job()
	}
	return hoisted.GlobalScope
}

// Hoist 提升顶层声明，返回全局作用域与待执行的分析队列
func Hoist(script *ast.Script, s *parser.State, opts ...Option) *HoistResult {
	a := &Analyzer{
		state:         s,
		arrayTypeName: "array",
		funcsByNode:   make(map[*ast.Func]*symbols.Function),
		accessorProp:  make(map[*ast.PropAccessor]*symbols.Variable),
	}
	for _, opt := range opts {
		opt(a)
	}

	a.global = symbols.NewGlobalScope()
	a.registerBuiltins()
	a.hoistScript(a.global, script)

	return &HoistResult{
		GlobalScope:  a.global,
		AnalyzeQueue: append(a.sigJobs, a.bodyJobs...),
	}
}

// registerBuiltins 登记引擎内建类型
//
// T[] 语法依赖内建数组模板；string 由宿主引擎注册，
// 这里提供最常用的成员。
func (a *Analyzer) registerBuiltins() {
	// 数组模板：唯一的模板形参记号是合成的，翻译表以它为键
	a.arrayParam = &token.Token{Kind: token.Identifier, Text: "T"}
	paramType := &symbols.Type{Name: "T", DeclToken: a.arrayParam}
	elem := symbols.ResolveType(paramType)

	members := a.global.Child(a.arrayTypeName)
	a.arrayType = &symbols.Type{
		Name:           a.arrayTypeName,
		Source:         nil,
		TemplateParams: []*token.Token{a.arrayParam},
		Members:        members,
		IsSystemType:   true,
	}
	a.global.Insert(a.arrayType)
	members.Insert(paramType)
	members.Insert(&symbols.Function{Name: "length", ReturnType: symbols.ResolvedInt, DeclScope: members})
	members.Insert(&symbols.Function{Name: "opIndex", ReturnType: elem, ParamTypes: []*symbols.ResolvedType{symbols.ResolvedInt}, MinArgs: 1, DeclScope: members})
	members.Insert(&symbols.Function{Name: "insertLast", ReturnType: symbols.ResolvedVoid, ParamTypes: []*symbols.ResolvedType{elem}, MinArgs: 1, DeclScope: members})
	members.Insert(&symbols.Function{Name: "removeLast", ReturnType: symbols.ResolvedVoid, DeclScope: members})

	strMembers := a.global.Child("string")
	strType := &symbols.Type{Name: "string", Members: strMembers, IsSystemType: true}
	strResolved := symbols.ResolveType(strType)
	a.global.Insert(strType)
	strMembers.Insert(&symbols.Function{Name: "length", ReturnType: symbols.ResolvedInt, DeclScope: strMembers})
	strMembers.Insert(&symbols.Function{Name: "substr", ReturnType: strResolved, ParamTypes: []*symbols.ResolvedType{symbols.ResolvedInt, symbols.ResolvedInt}, MinArgs: 1, DeclScope: strMembers})
	strMembers.Insert(&symbols.Function{Name: "opAdd", ReturnType: strResolved, ParamTypes: []*symbols.ResolvedType{strResolved}, MinArgs: 1, DeclScope: strMembers})
	strMembers.Insert(&symbols.Function{Name: "opEquals", ReturnType: symbols.ResolvedBool, ParamTypes: []*symbols.ResolvedType{strResolved}, MinArgs: 1, DeclScope: strMembers})
	strMembers.Insert(&symbols.Function{Name: "opCmp", ReturnType: symbols.ResolvedInt, ParamTypes: []*symbols.ResolvedType{strResolved}, MinArgs: 1, DeclScope: strMembers})
}

// hoistScript 提升一个脚本（或命名空间体）的全部声明
func (a *Analyzer) hoistScript(scope *symbols.Scope, script *ast.Script) {
	for _, decl := range script.Decls {
		switch d := decl.(type) {
		case *ast.Namespace:
			a.hoistNamespace(scope, d)
		case *ast.Class:
			a.hoistClass(scope, d)
		case *ast.Mixin:
			if d.Class != nil {
				a.hoistClass(scope, d.Class)
			}
		case *ast.Interface:
			a.hoistInterface(scope, d)
		case *ast.Enum:
			a.hoistEnum(scope, d)
		case *ast.TypeDef:
			a.hoistTypeDef(scope, d)
		case *ast.FuncDef:
			a.hoistFuncDef(scope, d)
		case *ast.Func:
			a.hoistFunc(scope, d, nil)
		case *ast.VirtualProp:
			a.hoistVirtualProp(scope, d, false)
		case *ast.Var:
			a.hoistVar(scope, d, false)
		case *ast.Import:
			a.hoistImport(scope, d)
		}
	}

	// 入口脚本的顶层语句按源码顺序入队
	for _, stmt := range script.Stats {
		stmt := stmt
		a.bodyJobs = append(a.bodyJobs, func() {
			a.analyzeStatement(scope, stmt)
		})
	}
}

// hoistNamespace 命名空间：逐段取或建子作用域后提升其内容
func (a *Analyzer) hoistNamespace(scope *symbols.Scope, n *ast.Namespace) {
	ns := scope
	for _, name := range n.Names {
		ns = ns.Child(name.Text)
	}
	if ns.LinkedNode == nil {
		ns.LinkedNode = n
	}
	a.hoistScript(ns, n.Script)
}

// hoistClass 类：类型符号 + 成员作用域，构造函数以类名登记在成员
// 作用域内（与所构造类型互为兄弟）
func (a *Analyzer) hoistClass(scope *symbols.Scope, c *ast.Class) {
	if c.Ident == nil {
		return
	}
	members := scope.Child(c.Ident.Text)
	members.LinkedNode = c

	t := &symbols.Type{
		Name:           c.Ident.Text,
		DeclToken:      c.Ident,
		Source:         c,
		TemplateParams: c.TypeTemplates,
		Members:        members,
	}
	if !scope.Insert(t) {
		a.state.ErrorAt(c.Ident, "'"+c.Ident.Text+"' is already declared")
	}

	for _, p := range c.TypeTemplates {
		members.Insert(&symbols.Type{Name: p.Text, DeclToken: p})
	}

	// 基类在签名阶段解析（基类可以声明在后）
	bases := c.Bases
	a.sigJobs = append(a.sigJobs, func() {
		for _, b := range bases {
			sym, _ := scope.LookupWithParents(b.Text)
			if base, ok := sym.(*symbols.Type); ok {
				t.Bases = append(t.Bases, base)
				scope.AddReference(b, base)
			} else {
				a.state.ErrorAt(b, "'"+b.Text+"' is not a type")
			}
		}
	})

	for _, m := range c.Members {
		switch d := m.(type) {
		case *ast.Func:
			a.hoistFunc(members, d, t)
		case *ast.Var:
			a.hoistVar(members, d, true)
		case *ast.VirtualProp:
			a.hoistVirtualProp(members, d, true)
		case *ast.FuncDef:
			a.hoistFuncDef(members, d)
		}
	}
}

// hoistInterface 接口：类型符号 + 方法签名
func (a *Analyzer) hoistInterface(scope *symbols.Scope, i *ast.Interface) {
	if i.Ident == nil {
		return
	}
	members := scope.Child(i.Ident.Text)
	members.LinkedNode = i

	t := &symbols.Type{
		Name:      i.Ident.Text,
		DeclToken: i.Ident,
		Source:    i,
		Members:   members,
	}
	if !scope.Insert(t) {
		a.state.ErrorAt(i.Ident, "'"+i.Ident.Text+"' is already declared")
	}

	bases := i.Bases
	a.sigJobs = append(a.sigJobs, func() {
		for _, b := range bases {
			if base, ok := scopeLookupType(scope, b.Text); ok {
				t.Bases = append(t.Bases, base)
				scope.AddReference(b, base)
			} else {
				a.state.ErrorAt(b, "'"+b.Text+"' is not a type")
			}
		}
	})

	for _, m := range i.Members {
		switch d := m.(type) {
		case *ast.IntfMethod:
			a.hoistIntfMethod(members, d)
		case *ast.VirtualProp:
			a.hoistVirtualProp(members, d, true)
		}
	}
}

func scopeLookupType(scope *symbols.Scope, name string) (*symbols.Type, bool) {
	sym, _ := scope.LookupWithParents(name)
	t, ok := sym.(*symbols.Type)
	return t, ok
}

// hoistEnum 枚举：类型符号 + 成员变量
//
// 成员登记进枚举的成员作用域，同时按 AngelScript 的可见性规则
// 注入外围作用域，允许不带限定的访问。
func (a *Analyzer) hoistEnum(scope *symbols.Scope, e *ast.Enum) {
	if e.Ident == nil {
		return
	}
	members := scope.Child(e.Ident.Text)
	members.LinkedNode = e

	t := &symbols.Type{
		Name:      e.Ident.Text,
		DeclToken: e.Ident,
		Source:    e,
		Members:   members,
	}
	if !scope.Insert(t) {
		a.state.ErrorAt(e.Ident, "'"+e.Ident.Text+"' is already declared")
	}

	resolved := symbols.ResolveType(t)
	for _, m := range e.Members {
		v := &symbols.Variable{
			Name:      m.Ident.Text,
			DeclToken: m.Ident,
			Type:      resolved,
			DeclScope: members,
		}
		members.Insert(v)
		scope.Insert(v)

		if m.Value != nil {
			value := m.Value
			a.sigJobs = append(a.sigJobs, func() {
				a.analyzeExpr(members, value)
			})
		}
	}
}

// hoistTypeDef 类型别名：保留别名的数值性，别名是独立的命名类型
func (a *Analyzer) hoistTypeDef(scope *symbols.Scope, td *ast.TypeDef) {
	if td.Ident == nil {
		return
	}
	aliased := symbols.PrimeType(td.PrimType.Text)
	t := &symbols.Type{
		Name:      td.Ident.Text,
		DeclToken: td.Ident,
		Source:    td,
	}
	if aliased != nil {
		t.IsNumberType = aliased.IsNumberType
	}
	if !scope.Insert(t) {
		a.state.ErrorAt(td.Ident, "'"+td.Ident.Text+"' is already declared")
	}
}

// hoistFuncDef 函数类型定义：类型符号携带函数签名，
// 引用处解析为该函数类型的句柄
func (a *Analyzer) hoistFuncDef(scope *symbols.Scope, fd *ast.FuncDef) {
	if fd.Ident == nil {
		return
	}
	sig := &symbols.Function{
		Name:      fd.Ident.Text,
		DeclToken: fd.Ident,
		DeclScope: scope,
	}
	t := &symbols.Type{
		Name:      fd.Ident.Text,
		DeclToken: fd.Ident,
		Source:    fd,
		Signature: sig,
	}
	if !scope.Insert(t) {
		a.state.ErrorAt(fd.Ident, "'"+fd.Ident.Text+"' is already declared")
	}

	a.sigJobs = append(a.sigJobs, func() {
		sig.ReturnType = a.analyzeType(scope, fd.ReturnType)
		a.resolveParams(scope, sig, fd.Params)
	})
}

// hoistFunc 函数：符号立即登记（重载链接），签名与函数体入队
func (a *Analyzer) hoistFunc(scope *symbols.Scope, f *ast.Func, owner *symbols.Type) {
	if f.Ident == nil {
		return
	}
	fn := &symbols.Function{
		Name:      f.Ident.Text,
		DeclToken: f.Ident,
		Node:      f,
		DeclScope: scope,
	}
	a.funcsByNode[f] = fn

	name := fn.Name
	if f.Head == ast.HeadDestructor {
		name = "~" + name
		fn.Name = name
	}
	if !scope.Insert(fn) {
		a.state.ErrorAt(f.Ident, "'"+name+"' is already declared")
	}

	a.sigJobs = append(a.sigJobs, func() {
		switch f.Head {
		case ast.HeadConstructor:
			if owner != nil {
				fn.ReturnType = symbols.ResolveType(owner)
			}
		case ast.HeadDestructor:
			fn.ReturnType = symbols.ResolvedVoid
		default:
			fn.ReturnType = a.analyzeType(scope, f.ReturnType)
		}
		a.resolveParams(scope, fn, f.Params)
	})

	a.bodyJobs = append(a.bodyJobs, func() {
		a.analyzeFuncBody(scope, fn, f)
	})
}

// hoistIntfMethod 接口方法只有签名
func (a *Analyzer) hoistIntfMethod(scope *symbols.Scope, m *ast.IntfMethod) {
	if m.Ident == nil {
		return
	}
	fn := &symbols.Function{
		Name:      m.Ident.Text,
		DeclToken: m.Ident,
		DeclScope: scope,
	}
	scope.Insert(fn)

	a.sigJobs = append(a.sigJobs, func() {
		fn.ReturnType = a.analyzeType(scope, m.ReturnType)
		a.resolveParams(scope, fn, m.Params)
	})
}

// resolveParams 解析形参类型并计算最少实参数
func (a *Analyzer) resolveParams(scope *symbols.Scope, fn *symbols.Function, params *ast.ParamList) {
	if params == nil {
		return
	}
	minArgs := 0
	sawDefault := false
	for _, p := range params.Params {
		fn.ParamTypes = append(fn.ParamTypes, a.analyzeType(scope, p.Type))
		fn.ParamNames = append(fn.ParamNames, p.Ident)
		if p.Default != nil {
			sawDefault = true
		}
		if !sawDefault {
			minArgs++
		}
	}
	fn.MinArgs = minArgs
}

// hoistVirtualProp 虚属性：变量符号，访问器函数体入队
func (a *Analyzer) hoistVirtualProp(scope *symbols.Scope, vp *ast.VirtualProp, instance bool) {
	if vp.Ident == nil {
		return
	}
	v := &symbols.Variable{
		Name:             vp.Ident.Text,
		DeclToken:        vp.Ident,
		IsInstanceMember: instance,
		Access:           vp.Access,
		DeclScope:        scope,
	}
	if !scope.Insert(v) {
		a.state.ErrorAt(vp.Ident, "'"+vp.Ident.Text+"' is already declared")
	}

	a.sigJobs = append(a.sigJobs, func() {
		v.Type = a.analyzeType(scope, vp.Type)
	})

	for _, acc := range vp.Accessors {
		a.accessorProp[acc] = v
		if acc.Body == nil {
			continue
		}
		acc := acc
		a.bodyJobs = append(a.bodyJobs, func() {
			body := scope.AnonymousChild(acc)
			a.analyzeStatBlockInto(body, acc.Body)
		})
	}
}

// hoistVar 全局/成员变量：符号立即登记，类型与初始化式入队
func (a *Analyzer) hoistVar(scope *symbols.Scope, node *ast.Var, instance bool) {
	for _, d := range node.Declarators {
		if d.Ident == nil {
			continue
		}
		v := &symbols.Variable{
			Name:             d.Ident.Text,
			DeclToken:        d.Ident,
			IsInstanceMember: instance,
			Access:           node.Access,
			DeclScope:        scope,
		}
		if !scope.Insert(v) {
			a.state.ErrorAt(d.Ident, "'"+d.Ident.Text+"' is already declared")
		}

		declType := node.Type
		d := d
		a.sigJobs = append(a.sigJobs, func() {
			v.Type = a.analyzeType(scope, declType)
		})
		a.bodyJobs = append(a.bodyJobs, func() {
			v.Type = a.analyzeVarInit(scope, v.Type, d)
		})
	}
}

// hoistImport 导入的函数只有签名
func (a *Analyzer) hoistImport(scope *symbols.Scope, im *ast.Import) {
	if im.Ident == nil {
		return
	}
	fn := &symbols.Function{
		Name:      im.Ident.Text,
		DeclToken: im.Ident,
		DeclScope: scope,
	}
	scope.Insert(fn)

	a.sigJobs = append(a.sigJobs, func() {
		fn.ReturnType = a.analyzeType(scope, im.Type)
		a.resolveParams(scope, fn, im.Params)
	})
}

// analyzeFuncBody 在函数自身的作用域中分析函数体
func (a *Analyzer) analyzeFuncBody(scope *symbols.Scope, fn *symbols.Function, f *ast.Func) {
	body := scope.AnonymousChild(f)
	if f.Params != nil {
		for i, p := range f.Params.Params {
			if p.Ident == nil {
				continue
			}
			var pt *symbols.ResolvedType
			if i < len(fn.ParamTypes) {
				pt = fn.ParamTypes[i]
			}
			body.Insert(&symbols.Variable{
				Name:        p.Ident.Text,
				DeclToken:   p.Ident,
				Type:        pt,
				IsParameter: true,
				DeclScope:   body,
			})
			if p.Default != nil {
				a.analyzeAssign(body, p.Default)
			}
		}
	}
	a.analyzeStatBlockInto(body, f.Body)
}
