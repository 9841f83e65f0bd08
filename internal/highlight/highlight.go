package highlight

import (
	"fmt"

	"github.com/gyxos-logan/angel-lsp/internal/token"
)

// ============================================================================
// 高亮分类
// ============================================================================
//
// 语法分析在提交记号时给出初步分类；语义分析解析出符号后可以改判
// （例如把标识符从 Variable 改为 EnumMember）。两个阶段都通过同一个
// Sink 记录，后写的分类覆盖先写的。
//
// ============================================================================

// Kind 高亮类别
type Kind int

const (
	None Kind = iota
	Operator
	Builtin
	Keyword
	Namespace
	Type
	Class
	Interface
	Enum
	EnumMember
	Function
	Variable
	Parameter
	Number
	String
	Comment
	Decorator
)

var kindNames = map[Kind]string{
	None:       "none",
	Operator:   "operator",
	Builtin:    "builtin",
	Keyword:    "keyword",
	Namespace:  "namespace",
	Type:       "type",
	Class:      "class",
	Interface:  "interface",
	Enum:       "enum",
	EnumMember: "enumMember",
	Function:   "function",
	Variable:   "variable",
	Parameter:  "parameter",
	Number:     "number",
	String:     "string",
	Comment:    "comment",
	Decorator:  "decorator",
}

// String 返回 Kind 的字符串表示
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Kind(%d)", k)
}

// Classified 一条分类记录：记号 → 高亮类别
type Classified struct {
	Token *token.Token
	Kind  Kind
}

// Sink 分类收集器
//
// 按提交顺序保留记录；同一记号的后写覆盖先写（Resolve 时取最后一条）。
type Sink struct {
	list []Classified
}

// Classify 记录一个记号的高亮类别
//
// 虚拟记号展开为对其覆盖范围的一条记录，消费方按位置归并。
func (s *Sink) Classify(tok *token.Token, kind Kind) {
	if tok == nil || tok.IsEnd() {
		return
	}
	s.list = append(s.list, Classified{Token: tok, Kind: kind})
}

// List 返回全部分类记录（按提交顺序）
func (s *Sink) List() []Classified {
	return s.list
}

// Resolve 返回每个记号的最终类别（同一记号取最后一条记录）
func (s *Sink) Resolve() map[*token.Token]Kind {
	out := make(map[*token.Token]Kind, len(s.list))
	for _, c := range s.list {
		out[c.Token] = c.Kind
	}
	return out
}
