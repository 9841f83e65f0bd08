package ast

import (
	"strings"

	"github.com/gyxos-logan/angel-lsp/internal/token"
)

// ============================================================================
// 节点基础定义
// ============================================================================
//
// 每个文法产生式对应一个节点结构体。节点持有原始记号的引用，
// Range 记录节点覆盖的首尾记号，保证：
//   - Range.Start 在记号序列中不晚于 Range.End
//   - 兄弟节点的 Range 两两不重叠
//
// ============================================================================

// NodeRange 节点覆盖的记号范围（闭区间）
type NodeRange struct {
	Start *token.Token
	End   *token.Token
}

// Location 返回范围对应的源代码位置
func (r NodeRange) Location() token.Location {
	if r.Start == nil {
		return token.Location{}
	}
	loc := r.Start.Location
	if r.End != nil {
		loc = token.Merge(loc, r.End.Location)
	}
	return loc
}

// Node 是所有 AST 节点的基接口
type Node interface {
	NodeRange() NodeRange
}

// Declaration 表示一个声明节点
type Declaration interface {
	Node
	declNode()
}

// Statement 表示一个语句节点
type Statement interface {
	Node
	stmtNode()
}

// ExprValue 表示表达式项的值部分
type ExprValue interface {
	Node
	exprValueNode()
}

// ExprPostOp 表示表达式项的后缀运算
type ExprPostOp interface {
	Node
	exprPostOpNode()
}

// ExprTerm 表示表达式项（两种变体：初始化列表项、值项）
type ExprTerm interface {
	Node
	exprTermNode()
}

// ============================================================================
// 修饰符
// ============================================================================

// EntityAttrs 实体属性 {shared, external, abstract, final}
type EntityAttrs struct {
	IsShared   bool
	IsExternal bool
	IsAbstract bool
	IsFinal    bool
}

// AccessModifier 访问修饰符
type AccessModifier int

const (
	AccessNone AccessModifier = iota
	AccessPrivate
	AccessProtected
)

// FuncAttrs 函数属性 {override, final, explicit, property}
type FuncAttrs struct {
	IsOverride bool
	IsFinal    bool
	IsExplicit bool
	IsProperty bool
}

// RefModifier 类型的引用修饰符
type RefModifier int

const (
	RefNone    RefModifier = iota
	RefAt                  // @
	RefAtConst             // @const
)

// FuncHeadKind 函数头变体
type FuncHeadKind int

const (
	HeadRegular FuncHeadKind = iota
	HeadConstructor
	HeadDestructor
)

// ============================================================================
// 脚本与顶层声明
// ============================================================================

// Script 一个源文件的顶层声明序列
//
// 入口脚本允许顶层语句，按源码顺序保存在 Stats。
type Script struct {
	Range NodeRange
	Path  string
	Decls []Declaration
	Stats []Statement
}

func (n *Script) NodeRange() NodeRange { return n.Range }

// Import 导入声明
// IMPORT ::= 'import' TYPE ['&'] IDENT PARAMLIST FUNCATTR 'from' STRING ';'
type Import struct {
	Range    NodeRange
	Type     *Type
	IsRef    bool
	Ident    *token.Token
	Params   *ParamList
	FuncAttr FuncAttrs
	From     *token.Token // 字符串字面量
}

func (n *Import) NodeRange() NodeRange { return n.Range }
func (n *Import) declNode()            {}

// TypeDef 类型别名
// TYPEDEF ::= 'typedef' PRIMTYPE IDENT ';'
type TypeDef struct {
	Range    NodeRange
	PrimType *token.Token
	Ident    *token.Token
}

func (n *TypeDef) NodeRange() NodeRange { return n.Range }
func (n *TypeDef) declNode()            {}

// Mixin 混入类
// MIXIN ::= 'mixin' CLASS
type Mixin struct {
	Range NodeRange
	Class *Class
}

func (n *Mixin) NodeRange() NodeRange { return n.Range }
func (n *Mixin) declNode()            {}

// Namespace 命名空间
// NAMESPACE ::= 'namespace' IDENT {'::' IDENT} '{' SCRIPT '}'
type Namespace struct {
	Range  NodeRange
	Names  []*token.Token
	Script *Script
}

func (n *Namespace) NodeRange() NodeRange { return n.Range }
func (n *Namespace) declNode()            {}

// Class 类声明
//
// ScopeRange 是大括号内的成员区域，与节点本身的 Range 不同。
type Class struct {
	Range         NodeRange
	Metadata      [][]*token.Token // 每组 [...] 内保留的原始记号
	Attrs         EntityAttrs
	Ident         *token.Token
	TypeTemplates []*token.Token // 模板形参 (class Array<T> 中的 T)
	Bases         []*token.Token
	Members       []Declaration // VirtualProp | Var | Func | FuncDef
	ScopeRange    NodeRange
}

func (n *Class) NodeRange() NodeRange { return n.Range }
func (n *Class) declNode()            {}

// Interface 接口声明
type Interface struct {
	Range      NodeRange
	Attrs      EntityAttrs
	Ident      *token.Token
	Bases      []*token.Token
	Members    []Declaration // IntfMethod | VirtualProp
	ScopeRange NodeRange
}

func (n *Interface) NodeRange() NodeRange { return n.Range }
func (n *Interface) declNode()            {}

// Enum 枚举声明
type Enum struct {
	Range      NodeRange
	Attrs      EntityAttrs
	Ident      *token.Token
	Members    []*EnumMember
	ScopeRange NodeRange
}

func (n *Enum) NodeRange() NodeRange { return n.Range }
func (n *Enum) declNode()            {}

// EnumMember 枚举成员 IDENT ['=' EXPR]
type EnumMember struct {
	Range NodeRange
	Ident *token.Token
	Value *Expr
}

func (n *EnumMember) NodeRange() NodeRange { return n.Range }

// FuncDef 函数类型定义
// FUNCDEF ::= {'external'|'shared'} 'funcdef' TYPE ['&'] IDENT PARAMLIST ';'
type FuncDef struct {
	Range      NodeRange
	Attrs      EntityAttrs
	ReturnType *Type
	IsRef      bool
	Ident      *token.Token
	Params     *ParamList
}

func (n *FuncDef) NodeRange() NodeRange { return n.Range }
func (n *FuncDef) declNode()            {}

// Func 函数声明
//
// Body 永远非 nil：以 ';' 结尾的声明得到一个空语句块。
type Func struct {
	Range         NodeRange
	Metadata      [][]*token.Token
	Attrs         EntityAttrs
	Access        AccessModifier
	Head          FuncHeadKind
	ReturnType    *Type // Head == HeadRegular 时有效
	IsRef         bool
	Ident         *token.Token
	TypeTemplates []*token.Token
	Params        *ParamList
	IsConst       bool
	FuncAttr      FuncAttrs
	Body          *StatBlock
}

func (n *Func) NodeRange() NodeRange { return n.Range }
func (n *Func) declNode()            {}

// IntfMethod 接口方法
// INTFMTHD ::= TYPE ['&'] IDENT PARAMLIST ['const'] ';'
type IntfMethod struct {
	Range      NodeRange
	ReturnType *Type
	IsRef      bool
	Ident      *token.Token
	Params     *ParamList
	IsConst    bool
}

func (n *IntfMethod) NodeRange() NodeRange { return n.Range }
func (n *IntfMethod) declNode()            {}

// VirtualProp 虚属性声明
type VirtualProp struct {
	Range     NodeRange
	Metadata  [][]*token.Token
	Access    AccessModifier
	Type      *Type
	IsRef     bool
	Ident     *token.Token
	Accessors []*PropAccessor
}

func (n *VirtualProp) NodeRange() NodeRange { return n.Range }
func (n *VirtualProp) declNode()            {}

// PropAccessor 虚属性的 get/set 访问器；Body 为 nil 表示以 ';' 结尾
type PropAccessor struct {
	Range    NodeRange
	Keyword  *token.Token // 'get' 或 'set'
	IsConst  bool
	FuncAttr FuncAttrs
	Body     *StatBlock
}

func (n *PropAccessor) NodeRange() NodeRange { return n.Range }

// Var 变量声明（既可以是顶层/类成员声明，也可以是语句）
type Var struct {
	Range       NodeRange
	Metadata    [][]*token.Token
	Access      AccessModifier
	Type        *Type
	Declarators []*VarDeclarator
}

func (n *Var) NodeRange() NodeRange { return n.Range }
func (n *Var) declNode()            {}
func (n *Var) stmtNode()            {}

// VarDeclarator 单个声明子项 IDENT [('=' INITLIST|ASSIGN) | ARGLIST]
//
// Init 为 *Assign、*InitList、*ArgList 三者之一或 nil。
type VarDeclarator struct {
	Range NodeRange
	Ident *token.Token
	Init  Node
}

func (n *VarDeclarator) NodeRange() NodeRange { return n.Range }

// ============================================================================
// 类型
// ============================================================================

// Type 类型标注
// TYPE ::= ['const'] SCOPE DATATYPE ['<' TYPE {',' TYPE} '>'] { '[' ']' | '@' ['const'] }
type Type struct {
	Range         NodeRange
	IsConst       bool
	Scope         *Scope
	DataType      *token.Token // 标识符、基本类型、'?' 或 'auto'
	TypeTemplates []*Type
	IsArray       bool
	RefModifier   RefModifier
}

func (n *Type) NodeRange() NodeRange { return n.Range }

// String 返回类型的可读表示（用于诊断消息）
func (n *Type) String() string {
	var sb strings.Builder
	if n.IsConst {
		sb.WriteString("const ")
	}
	if n.Scope != nil {
		sb.WriteString(n.Scope.String())
	}
	if n.DataType != nil {
		sb.WriteString(n.DataType.Text)
	}
	if len(n.TypeTemplates) > 0 {
		parts := make([]string, len(n.TypeTemplates))
		for i, t := range n.TypeTemplates {
			parts[i] = t.String()
		}
		sb.WriteString("<" + strings.Join(parts, ", ") + ">")
	}
	if n.IsArray {
		sb.WriteString("[]")
	}
	switch n.RefModifier {
	case RefAt:
		sb.WriteString("@")
	case RefAtConst:
		sb.WriteString("@const")
	}
	return sb.String()
}

// Scope 作用域前缀
// SCOPE ::= ['::'] {IDENT '::'} [IDENT ['<' TYPE {',' TYPE} '>'] '::']
type Scope struct {
	Range        NodeRange
	IsGlobal     bool
	Names        []*token.Token
	Seps         []*token.Token // 各段后的 '::'，与 Names 对齐
	TemplateArgs []*Type        // 最后一段的模板实参（Outer::Tmpl<int>::Inner 形式）
}

func (n *Scope) NodeRange() NodeRange { return n.Range }

// String 返回作用域前缀的可读表示
func (n *Scope) String() string {
	var sb strings.Builder
	if n.IsGlobal {
		sb.WriteString("::")
	}
	for _, name := range n.Names {
		sb.WriteString(name.Text)
		sb.WriteString("::")
	}
	return sb.String()
}

// ParamList 形参列表
type ParamList struct {
	Range  NodeRange
	Params []*Param
}

func (n *ParamList) NodeRange() NodeRange { return n.Range }

// Param 单个形参 TYPE [('in'|'out'|'inout')] [IDENT] ['=' EXPR]
type Param struct {
	Range    NodeRange
	Type     *Type
	Modifier *token.Token // in / out / inout，可为 nil
	Ident    *token.Token // 可为 nil（仅类型的形参）
	Default  *Assign
}

func (n *Param) NodeRange() NodeRange { return n.Range }

// ============================================================================
// 表达式
// ============================================================================

// Expr 以二元运算符分隔的项列表（右倾结构）
// EXPR ::= EXPRTERM {EXPROP EXPRTERM}
//
// 优先级不在语法阶段处理，语义分析用调度场算法重排（见 analyzer）。
type Expr struct {
	Range NodeRange
	Head  ExprTerm
	Op    *token.Token // 可为 nil
	Tail  *Expr        // Op 非 nil 时有效
}

func (n *Expr) NodeRange() NodeRange { return n.Range }

// InitListTerm 表达式项变体 1：[TYPE '='] INITLIST
type InitListTerm struct {
	Range NodeRange
	Type  *Type // 可为 nil
	List  *InitList
}

func (n *InitListTerm) NodeRange() NodeRange { return n.Range }
func (n *InitListTerm) exprTermNode()        {}

// ValueTerm 表达式项变体 2：{preOp} EXPRVALUE {postOp}
type ValueTerm struct {
	Range   NodeRange
	PreOps  []*token.Token
	Value   ExprValue
	PostOps []ExprPostOp
}

func (n *ValueTerm) NodeRange() NodeRange { return n.Range }
func (n *ValueTerm) exprTermNode()        {}

// VoidExpr 'void' 作为表达式值（丢弃返回值的占位）
type VoidExpr struct {
	Range NodeRange
	Token *token.Token
}

func (n *VoidExpr) NodeRange() NodeRange { return n.Range }
func (n *VoidExpr) exprValueNode()       {}

// Literal 字面量（数字、字符串、true、false、null）
type Literal struct {
	Range NodeRange
	Token *token.Token
}

func (n *Literal) NodeRange() NodeRange { return n.Range }
func (n *Literal) exprValueNode()       {}

// FuncCall 函数调用 [SCOPE] IDENT ARGLIST
type FuncCall struct {
	Range NodeRange
	Scope *Scope
	Ident *token.Token
	Args  *ArgList
}

func (n *FuncCall) NodeRange() NodeRange { return n.Range }
func (n *FuncCall) exprValueNode()       {}

// VarAccess 变量访问 [SCOPE] IDENT
type VarAccess struct {
	Range NodeRange
	Scope *Scope
	Ident *token.Token
}

func (n *VarAccess) NodeRange() NodeRange { return n.Range }
func (n *VarAccess) exprValueNode()       {}

// ConstructCall 构造调用 TYPE ARGLIST
type ConstructCall struct {
	Range NodeRange
	Type  *Type
	Args  *ArgList
}

func (n *ConstructCall) NodeRange() NodeRange { return n.Range }
func (n *ConstructCall) exprValueNode()       {}

// Cast 类型转换 cast<TYPE>(ASSIGN)
type Cast struct {
	Range NodeRange
	Type  *Type
	Expr  *Assign
}

func (n *Cast) NodeRange() NodeRange { return n.Range }
func (n *Cast) exprValueNode()       {}

// ParenAssign 括号表达式 '(' ASSIGN ')'
type ParenAssign struct {
	Range  NodeRange
	Assign *Assign
}

func (n *ParenAssign) NodeRange() NodeRange { return n.Range }
func (n *ParenAssign) exprValueNode()       {}

// Lambda 匿名函数 'function' '(' [params] ')' STATBLOCK
type Lambda struct {
	Range  NodeRange
	Params []*LambdaParam
	Body   *StatBlock
}

func (n *Lambda) NodeRange() NodeRange { return n.Range }
func (n *Lambda) exprValueNode()       {}

// LambdaParam 匿名函数形参；类型与名字都可省略
type LambdaParam struct {
	Range NodeRange
	Type  *Type
	Ident *token.Token
}

func (n *LambdaParam) NodeRange() NodeRange { return n.Range }

// PostMember 后缀：成员访问 '.' IDENT
type PostMember struct {
	Range NodeRange
	Ident *token.Token
}

func (n *PostMember) NodeRange() NodeRange { return n.Range }
func (n *PostMember) exprPostOpNode()      {}

// PostMethodCall 后缀：方法调用 '.' IDENT ARGLIST
type PostMethodCall struct {
	Range NodeRange
	Ident *token.Token
	Args  *ArgList
}

func (n *PostMethodCall) NodeRange() NodeRange { return n.Range }
func (n *PostMethodCall) exprPostOpNode()      {}

// PostIndex 后缀：下标访问 '[' ... ']'
type PostIndex struct {
	Range NodeRange
	Args  *ArgList
}

func (n *PostIndex) NodeRange() NodeRange { return n.Range }
func (n *PostIndex) exprPostOpNode()      {}

// PostCall 后缀：直接调用 ARGLIST（opCall）
type PostCall struct {
	Range NodeRange
	Args  *ArgList
}

func (n *PostCall) NodeRange() NodeRange { return n.Range }
func (n *PostCall) exprPostOpNode()      {}

// PostIncDec 后缀：'++' 或 '--'
type PostIncDec struct {
	Range NodeRange
	Op    *token.Token
}

func (n *PostIncDec) NodeRange() NodeRange { return n.Range }
func (n *PostIncDec) exprPostOpNode()      {}

// Assign 赋值表达式（右结合）
// ASSIGN ::= CONDITION [ASSIGNOP ASSIGN]
type Assign struct {
	Range     NodeRange
	Condition *Condition
	Op        *token.Token // 可为 nil
	Next      *Assign      // Op 非 nil 时有效
}

func (n *Assign) NodeRange() NodeRange { return n.Range }

// Condition 条件表达式，携带三目分支
//
// TrueAssign 与 FalseAssign 要么同时存在要么同时为 nil。
type Condition struct {
	Range       NodeRange
	Expr        *Expr
	TrueAssign  *Assign
	FalseAssign *Assign
}

func (n *Condition) NodeRange() NodeRange { return n.Range }

// InitList 初始化列表 '{' ... '}'
//
// Items 的元素为 *Assign 或 *InitList。
type InitList struct {
	Range NodeRange
	Items []Node
}

func (n *InitList) NodeRange() NodeRange { return n.Range }

// ArgList 实参列表 '(' [[IDENT ':'] ASSIGN {',' ...}] ')'
type ArgList struct {
	Range NodeRange
	Args  []*Arg
}

func (n *ArgList) NodeRange() NodeRange { return n.Range }

// Arg 单个实参，可带名字（命名实参 name: value）
type Arg struct {
	Range NodeRange
	Name  *token.Token // 可为 nil
	Value *Assign
}

func (n *Arg) NodeRange() NodeRange { return n.Range }

// ============================================================================
// 语句
// ============================================================================

// StatBlock 语句块 '{' {VAR|STATEMENT} '}'
type StatBlock struct {
	Range NodeRange
	Stats []Statement
}

func (n *StatBlock) NodeRange() NodeRange { return n.Range }
func (n *StatBlock) stmtNode()            {}

// If 条件语句
type If struct {
	Range NodeRange
	Cond  *Assign
	Then  Statement
	Else  Statement // 可为 nil
}

func (n *If) NodeRange() NodeRange { return n.Range }
func (n *If) stmtNode()            {}

// For 循环语句
type For struct {
	Range NodeRange
	Init  Statement // *Var 或 *ExprStat（可为空语句 nil）
	Cond  *Assign   // 可为 nil
	Post  []*Assign
	Body  Statement
}

func (n *For) NodeRange() NodeRange { return n.Range }
func (n *For) stmtNode()            {}

// While 循环语句
type While struct {
	Range NodeRange
	Cond  *Assign
	Body  Statement
}

func (n *While) NodeRange() NodeRange { return n.Range }
func (n *While) stmtNode()            {}

// DoWhile 循环语句
type DoWhile struct {
	Range NodeRange
	Body  Statement
	Cond  *Assign
}

func (n *DoWhile) NodeRange() NodeRange { return n.Range }
func (n *DoWhile) stmtNode()            {}

// Switch 分支语句
type Switch struct {
	Range NodeRange
	Cond  *Assign
	Cases []*Case
}

func (n *Switch) NodeRange() NodeRange { return n.Range }
func (n *Switch) stmtNode()            {}

// Case 分支；Expr 为 nil 表示 default
//
// 语句吸收到下一个 case / default / '}' 为止。
type Case struct {
	Range NodeRange
	Expr  *Expr
	Stats []Statement
}

func (n *Case) NodeRange() NodeRange { return n.Range }

// Try 异常处理语句
type Try struct {
	Range      NodeRange
	TryBlock   *StatBlock
	CatchBlock *StatBlock
}

func (n *Try) NodeRange() NodeRange { return n.Range }
func (n *Try) stmtNode()            {}

// Return 返回语句
type Return struct {
	Range NodeRange
	Value *Assign // 可为 nil
}

func (n *Return) NodeRange() NodeRange { return n.Range }
func (n *Return) stmtNode()            {}

// Break 跳出语句
type Break struct {
	Range NodeRange
}

func (n *Break) NodeRange() NodeRange { return n.Range }
func (n *Break) stmtNode()            {}

// Continue 继续语句
type Continue struct {
	Range NodeRange
}

func (n *Continue) NodeRange() NodeRange { return n.Range }
func (n *Continue) stmtNode()            {}

// ExprStat 表达式语句
type ExprStat struct {
	Range NodeRange
	Expr  *Assign // 可为 nil（空语句 ';'）
}

func (n *ExprStat) NodeRange() NodeRange { return n.Range }
func (n *ExprStat) stmtNode()            {}
