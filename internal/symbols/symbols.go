package symbols

import (
	"fmt"

	"github.com/gyxos-logan/angel-lsp/internal/ast"
	"github.com/gyxos-logan/angel-lsp/internal/token"
)

// ============================================================================
// 符号图
// ============================================================================
//
// 语义分析以全局作用域为根构建 Scope 树。符号归声明它的作用域所有；
// 作用域在分析结束后仍然存活，供语言服务查询（补全、跳转定义）。
// ResolvedType 一经创建不再修改。
//
// ============================================================================

// Symbol 作用域中的一个绑定：类型、变量或函数
type Symbol interface {
	SymbolName() string
	DeclaredAt() *token.Token
}

// Type 类型符号
//
// Source 指回创建它的声明节点（*ast.Class、*ast.Interface、*ast.Enum、
// *ast.TypeDef、*ast.FuncDef），内建基本类型为 nil。
type Type struct {
	Name           string
	DeclToken      *token.Token
	Source         ast.Node
	TemplateParams []*token.Token
	Members        *Scope    // 类/接口/枚举的成员作用域，可为 nil
	Signature      *Function // funcdef 的函数签名，其余为 nil
	Bases          []*Type   // 已解析的基类/基接口
	IsSystemType   bool
	IsNumberType   bool
}

func (t *Type) SymbolName() string        { return t.Name }
func (t *Type) DeclaredAt() *token.Token  { return t.DeclToken }

// Variable 变量符号
type Variable struct {
	Name             string
	DeclToken        *token.Token
	Type             *ResolvedType // 可为 nil（解析失败）
	IsInstanceMember bool
	IsParameter      bool
	Access           ast.AccessModifier
	DeclScope        *Scope
}

func (v *Variable) SymbolName() string       { return v.Name }
func (v *Variable) DeclaredAt() *token.Token { return v.DeclToken }

// Function 函数符号
//
// 同名重载经 NextOverload 链接成单向链表。
type Function struct {
	Name         string
	DeclToken    *token.Token
	Node         *ast.Func
	ReturnType   *ResolvedType
	ParamTypes   []*ResolvedType
	ParamNames   []*token.Token
	MinArgs      int // 考虑默认实参后的最少实参数
	NextOverload *Function
	DeclScope    *Scope
}

func (f *Function) SymbolName() string       { return f.Name }
func (f *Function) DeclaredAt() *token.Token { return f.DeclToken }

// Overloads 展开重载链
func (f *Function) Overloads() []*Function {
	var out []*Function
	for cur := f; cur != nil; cur = cur.NextOverload {
		out = append(out, cur)
	}
	return out
}

// ============================================================================
// ResolvedType - 解析后的类型
// ============================================================================

// TemplateTranslation 模板形参记号（按指针同一性）到替换类型的映射
type TemplateTranslation map[*token.Token]*ResolvedType

// ResolvedType 包装一个类型符号或函数符号（函数句柄）
type ResolvedType struct {
	Type              *Type
	Func              *Function // funcdef 句柄时有效
	IsHandler         bool
	TemplateTranslate TemplateTranslation
}

// ResolveType 把类型符号包装为 ResolvedType
func ResolveType(t *Type) *ResolvedType {
	if t == nil {
		return nil
	}
	return &ResolvedType{Type: t}
}

// Name 返回可读类型名（诊断消息用）
func (r *ResolvedType) Name() string {
	if r == nil {
		return "?"
	}
	if r.Func != nil {
		return r.Func.Name
	}
	if r.Type != nil {
		name := r.Type.Name
		if r.IsHandler {
			name += "@"
		}
		return name
	}
	return "?"
}

// Translate 在模板替换下求某个记号对应的类型
//
// 形参记号按同一性查找；不在映射中时返回 nil。
func (r *ResolvedType) Translate(param *token.Token) *ResolvedType {
	if r == nil || r.TemplateTranslate == nil {
		return nil
	}
	return r.TemplateTranslate[param]
}

// ============================================================================
// Scope - 作用域
// ============================================================================

// Reference 一次已解析的引用：使用处记号 → 被引用符号
//
// 跳转定义查询消费此表。
type Reference struct {
	From   *token.Token
	Target Symbol
}

// Scope 命名的、可嵌套的符号绑定容器
//
// 对应命名空间、类、函数或匿名块。LinkedNode 指回创建该作用域的
// AST 节点（全局作用域与内建类型的成员作用域为 nil）。
type Scope struct {
	Key            string
	Parent         *Scope
	Children       []*Scope
	Symbols        map[string]Symbol
	ReferencedList []Reference
	Hints          []CompletionHint
	LinkedNode     ast.Node

	anonCount int
}

// NewGlobalScope 创建全局作用域
func NewGlobalScope() *Scope {
	return &Scope{Key: "", Symbols: make(map[string]Symbol)}
}

// IsGlobal 是否为全局作用域
func (s *Scope) IsGlobal() bool {
	return s.Parent == nil
}

// Child 按键查找或创建子作用域
func (s *Scope) Child(key string) *Scope {
	for _, c := range s.Children {
		if c.Key == key {
			return c
		}
	}
	c := &Scope{Key: key, Parent: s, Symbols: make(map[string]Symbol)}
	s.Children = append(s.Children, c)
	return c
}

// AnonymousChild 创建匿名子作用域（块、循环、try 等）
func (s *Scope) AnonymousChild(linked ast.Node) *Scope {
	s.anonCount++
	c := &Scope{
		Key:        fmt.Sprintf("~%d", s.anonCount),
		Parent:     s,
		Symbols:    make(map[string]Symbol),
		LinkedNode: linked,
	}
	s.Children = append(s.Children, c)
	return c
}

// FindChild 按键查找子作用域，不创建
func (s *Scope) FindChild(key string) *Scope {
	for _, c := range s.Children {
		if c.Key == key {
			return c
		}
	}
	return nil
}

// Insert 插入符号
//
// 同名函数链到既有重载链尾部；其余同名冲突返回 false，
// 原符号保留。
func (s *Scope) Insert(sym Symbol) bool {
	name := sym.SymbolName()
	existing, ok := s.Symbols[name]
	if !ok {
		s.Symbols[name] = sym
		return true
	}

	newFunc, newIsFunc := sym.(*Function)
	oldFunc, oldIsFunc := existing.(*Function)
	if newIsFunc && oldIsFunc {
		cur := oldFunc
		for cur.NextOverload != nil {
			cur = cur.NextOverload
		}
		cur.NextOverload = newFunc
		return true
	}
	return false
}

// Lookup 浅查找：只查本作用域
func (s *Scope) Lookup(name string) Symbol {
	return s.Symbols[name]
}

// LookupWithParents 沿父链向上查找
func (s *Scope) LookupWithParents(name string) (Symbol, *Scope) {
	for cur := s; cur != nil; cur = cur.Parent {
		if sym, ok := cur.Symbols[name]; ok {
			return sym, cur
		}
	}
	return nil, nil
}

// AddReference 登记一次已解析的引用
func (s *Scope) AddReference(from *token.Token, target Symbol) {
	if from == nil || target == nil {
		return
	}
	s.ReferencedList = append(s.ReferencedList, Reference{From: from, Target: target})
}

// AddHint 登记一条补全提示
func (s *Scope) AddHint(hint CompletionHint) {
	s.Hints = append(s.Hints, hint)
}

// GlobalScope 返回树根
func (s *Scope) GlobalScope() *Scope {
	cur := s
	for cur.Parent != nil {
		cur = cur.Parent
	}
	return cur
}

// ============================================================================
// 补全提示
// ============================================================================

// CompletionHint 供外部补全器消费的提示
type CompletionHint interface {
	HintLocation() token.Location
}

// NamespaceHint 命名空间限定提示，覆盖标识符到 '::' 的范围
type NamespaceHint struct {
	Location token.Location
	Names    []*token.Token
}

func (h *NamespaceHint) HintLocation() token.Location { return h.Location }

// TypeHint 类型成员提示
type TypeHint struct {
	Location token.Location
	Target   *Type
}

func (h *TypeHint) HintLocation() token.Location { return h.Location }

// ArgumentsHint 实参提示：期望的被调函数与已传入实参的范围
type ArgumentsHint struct {
	Location          token.Location
	Callee            *Function
	PassingRanges     []token.Location
	TemplateTranslate TemplateTranslation
}

func (h *ArgumentsHint) HintLocation() token.Location { return h.Location }
