package parser

import (
	"github.com/gyxos-logan/angel-lsp/internal/ast"
	"github.com/gyxos-logan/angel-lsp/internal/highlight"
	"github.com/gyxos-logan/angel-lsp/internal/token"
)

// ============================================================================
// Parser - 递归下降语法分析器
// ============================================================================
//
// 每个解析函数返回三值结果：
//   - Ok       解析成功，返回节点
//   - Mismatch 首记号不匹配该产生式，游标未移动，调用方可尝试其他分支
//   - Pending  产生式已开始但中途失败，游标停在已消费前缀之后，
//              诊断已发射；调用方不得在此位置尝试其他分支，
//              但可以继续解析外围结构
//
// 前缀有歧义的产生式（类/枚举/接口共享实体属性前缀、构造调用与
// 变量访问等）在入口留快照，内部失败时经 Backtrack 回退。
//
// ============================================================================

// Res 三值解析结果
type Res int

const (
	Ok Res = iota
	Mismatch
	Pending
)

// Parse 解析一个记号序列，返回脚本节点与携带诊断/高亮的状态
func Parse(tokens []*token.Token, path string) (*ast.Script, *State) {
	s := NewState(tokens, path)
	script := parseScript(s, false)
	return script, s
}

// parseScript 解析顶层声明序列
// SCRIPT ::= {IMPORT|ENUM|TYPEDEF|CLASS|MIXIN|INTERFACE|FUNCDEF|VIRTPROP|VAR|FUNC|NAMESPACE|';'}
//
// nested 为 true 时在 '}' 前停住（命名空间体）。
func parseScript(s *State, nested bool) *ast.Script {
	start := s.Next()
	script := &ast.Script{Path: s.Next().Location.Path}

	for !s.IsEnd() {
		if nested && s.Next().Is("}") {
			break
		}
		if s.Next().Is(";") {
			s.Commit(highlight.Operator)
			continue
		}

		decl, res := parseDeclaration(s)
		if res == Ok {
			script.Decls = append(script.Decls, decl)
			continue
		}
		if res == Pending {
			continue
		}

		// 入口脚本允许顶层语句
		stmt, res := parseStatement(s)
		if res == Ok {
			script.Stats = append(script.Stats, stmt)
			continue
		}
		if res == Pending {
			continue
		}

		// 声明与语句都不匹配：报告并消费一个记号，保证游标前进
		s.Error("Unexpected token '" + s.Next().Text + "'")
		s.Step()
	}

	script.Range = ast.NodeRange{Start: start, End: s.Prev()}
	return script
}

// parseDeclaration 解析单个顶层声明，按固定顺序尝试各产生式
func parseDeclaration(s *State) (ast.Declaration, Res) {
	switch s.Next().Text {
	case "import":
		return parseImport(s)
	case "typedef":
		return parseTypeDef(s)
	case "namespace":
		return parseNamespace(s)
	case "mixin":
		return parseMixin(s)
	}

	if n, res := parseEnum(s); res != Mismatch {
		return n, res
	}
	if n, res := parseClass(s); res != Mismatch {
		return n, res
	}
	if n, res := parseInterface(s); res != Mismatch {
		return n, res
	}
	if n, res := parseFuncDef(s); res != Mismatch {
		return n, res
	}
	if n, res := parseFunc(s, false); res != Mismatch {
		return n, res
	}
	if n, res := parseVirtualProp(s); res != Mismatch {
		return n, res
	}
	if n, res := parseVar(s); res != Mismatch {
		return n, res
	}
	return nil, Mismatch
}

// ============================================================================
// 列表收尾与通用小产生式
// ============================================================================

// loopCtl expectContinuousOrClose 的循环控制结果
type loopCtl int

const (
	loopContinue loopCtl = iota // 消费了分隔符，继续下一项
	loopClose                   // 消费了闭合符，正常结束
	loopBreak                   // 两者都不是，诊断已发射，终止循环
)

// expectContinuousOrClose 统一的列表收尾判断
//
// 在每一项之后调用：下一记号若是 close 则提交并结束；
// 否则若 allowSep 且是 sep 则提交并继续；否则发射诊断并终止。
// 统一使用它保证畸形列表必然终止而不是死循环。
func expectContinuousOrClose(s *State, sep, close string, allowSep bool) loopCtl {
	if s.Next().Is(close) {
		s.Commit(highlight.Operator)
		return loopClose
	}
	if allowSep && s.Next().Is(sep) {
		s.Commit(highlight.Operator)
		return loopContinue
	}
	s.Error("Expected '" + sep + "' or '" + close + "'")
	return loopBreak
}

// parseEntityAttribute 实体属性 {'shared'|'abstract'|'final'|'external'}
//
// 备忘缓存：类/接口/枚举/函数定义在同一位置反复推测此前缀。
func parseEntityAttribute(s *State) ast.EntityAttrs {
	cache := s.Cache(CacheEntityAttribute)
	if stored, hit := cache.Restore(); hit {
		return stored.(ast.EntityAttrs)
	}

	var attrs ast.EntityAttrs
	for {
		switch s.Next().Text {
		case "shared":
			attrs.IsShared = true
		case "external":
			attrs.IsExternal = true
		case "abstract":
			attrs.IsAbstract = true
		case "final":
			attrs.IsFinal = true
		default:
			cache.Store(attrs)
			return attrs
		}
		s.Commit(highlight.Keyword)
	}
}

// parseAccessModifier 访问修饰符 ['private' | 'protected']
func parseAccessModifier(s *State) ast.AccessModifier {
	switch s.Next().Text {
	case "private":
		s.Commit(highlight.Keyword)
		return ast.AccessPrivate
	case "protected":
		s.Commit(highlight.Keyword)
		return ast.AccessProtected
	}
	return ast.AccessNone
}

// parseFuncAttr 函数属性 {'override'|'final'|'explicit'|'property'}
func parseFuncAttr(s *State) ast.FuncAttrs {
	var attrs ast.FuncAttrs
	for {
		switch s.Next().Text {
		case "override":
			attrs.IsOverride = true
		case "final":
			attrs.IsFinal = true
		case "explicit":
			attrs.IsExplicit = true
		case "property":
			attrs.IsProperty = true
		default:
			return attrs
		}
		s.Commit(highlight.Keyword)
	}
}

// parseMetadata 声明前的元数据块 [...]
//
// 方括号配对计数，内部记号原样保留并分类为 Decorator；
// 未闭合时干净回退，不发射诊断。
func parseMetadata(s *State) [][]*token.Token {
	var blocks [][]*token.Token
	for s.Next().Is("[") {
		snapshot := s.Next()
		s.Commit(highlight.Decorator)

		var inner []*token.Token
		depth := 1
		for depth > 0 {
			if s.IsEnd() {
				s.Backtrack(snapshot)
				return blocks
			}
			tok := s.Next()
			if tok.Is("[") {
				depth++
			} else if tok.Is("]") {
				depth--
				if depth == 0 {
					s.Commit(highlight.Decorator)
					break
				}
			}
			inner = append(inner, tok)
			s.Commit(highlight.Decorator)
		}
		blocks = append(blocks, inner)
	}
	return blocks
}

// ============================================================================
// 顶层声明
// ============================================================================

// parseImport 导入声明
// IMPORT ::= 'import' TYPE ['&'] IDENT PARAMLIST FUNCATTR 'from' STRING ';'
func parseImport(s *State) (*ast.Import, Res) {
	start := s.Next()
	if !start.Is("import") {
		return nil, Mismatch
	}
	s.Commit(highlight.Keyword)

	n := &ast.Import{}
	ty, res := parseType(s)
	if res != Ok {
		s.Error("Expected type")
		return nil, Pending
	}
	n.Type = ty
	if s.Next().Is("&") {
		s.Commit(highlight.Operator)
		n.IsRef = true
	}
	if !s.Next().IsIdentifier() {
		s.Error("Expected identifier")
		return nil, Pending
	}
	n.Ident = s.Next()
	s.Commit(highlight.Function)

	params, res := parseParamList(s)
	if res != Ok {
		s.Error("Expected parameter list")
		return nil, Pending
	}
	n.Params = params
	n.FuncAttr = parseFuncAttr(s)

	if !s.Expect("from", highlight.Keyword) {
		return nil, Pending
	}
	if s.Next().Kind != token.String {
		s.Error("Expected string literal")
		return nil, Pending
	}
	n.From = s.Next()
	s.Commit(highlight.String)
	s.Expect(";", highlight.Operator)

	n.Range = ast.NodeRange{Start: start, End: s.Prev()}
	return n, Ok
}

// parseTypeDef 类型别名
// TYPEDEF ::= 'typedef' PRIMTYPE IDENT ';'
func parseTypeDef(s *State) (*ast.TypeDef, Res) {
	start := s.Next()
	if !start.Is("typedef") {
		return nil, Mismatch
	}
	s.Commit(highlight.Keyword)

	n := &ast.TypeDef{}
	if !s.Next().Property.IsPrimeType {
		s.Error("Expected primitive type")
		return nil, Pending
	}
	n.PrimType = s.Next()
	s.Commit(highlight.Builtin)

	if !s.Next().IsIdentifier() {
		s.Error("Expected identifier")
		return nil, Pending
	}
	n.Ident = s.Next()
	s.Commit(highlight.Type)
	s.Expect(";", highlight.Operator)

	n.Range = ast.NodeRange{Start: start, End: s.Prev()}
	return n, Ok
}

// parseNamespace 命名空间
// NAMESPACE ::= 'namespace' IDENT {'::' IDENT} '{' SCRIPT '}'
func parseNamespace(s *State) (*ast.Namespace, Res) {
	start := s.Next()
	if !start.Is("namespace") {
		return nil, Mismatch
	}
	s.Commit(highlight.Keyword)

	n := &ast.Namespace{}
	if !s.Next().IsIdentifier() {
		s.Error("Expected identifier")
		return nil, Pending
	}
	n.Names = append(n.Names, s.Next())
	s.Commit(highlight.Namespace)

	for s.Next().Is("::") {
		s.Commit(highlight.Operator)
		if !s.Next().IsIdentifier() {
			s.Error("Expected identifier")
			return nil, Pending
		}
		n.Names = append(n.Names, s.Next())
		s.Commit(highlight.Namespace)
	}

	if !s.Expect("{", highlight.Operator) {
		return nil, Pending
	}
	n.Script = parseScript(s, true)
	s.Expect("}", highlight.Operator)

	n.Range = ast.NodeRange{Start: start, End: s.Prev()}
	return n, Ok
}

// parseMixin 混入类
// MIXIN ::= 'mixin' CLASS
func parseMixin(s *State) (*ast.Mixin, Res) {
	start := s.Next()
	if !start.Is("mixin") {
		return nil, Mismatch
	}
	s.Commit(highlight.Keyword)

	class, res := parseClass(s)
	if res != Ok {
		if res == Mismatch {
			s.Error("Expected class declaration")
		}
		return nil, Pending
	}
	return &ast.Mixin{
		Range: ast.NodeRange{Start: start, End: s.Prev()},
		Class: class,
	}, Ok
}

// parseClass 类声明
// CLASS ::= {attrs} 'class' IDENT (';' | [':' IDENT {',' IDENT}] '{' {VIRTPROP|FUNC|VAR|FUNCDEF} '}')
func parseClass(s *State) (*ast.Class, Res) {
	start := s.Next()
	metadata := parseMetadata(s)
	attrs := parseEntityAttribute(s)
	if !s.Next().Is("class") {
		s.Backtrack(start)
		return nil, Mismatch
	}
	s.Commit(highlight.Keyword)

	n := &ast.Class{Metadata: metadata, Attrs: attrs}
	if !s.Next().IsIdentifier() {
		s.Error("Expected identifier")
		return nil, Pending
	}
	n.Ident = s.Next()
	s.Commit(highlight.Class)

	n.TypeTemplates = parseTemplateParams(s)

	// 仅声明，无类体
	if s.Next().Is(";") {
		s.Commit(highlight.Operator)
		n.Range = ast.NodeRange{Start: start, End: s.Prev()}
		return n, Ok
	}

	if s.Next().Is(":") {
		s.Commit(highlight.Operator)
		for {
			if !s.Next().IsIdentifier() {
				s.Error("Expected identifier")
				break
			}
			n.Bases = append(n.Bases, s.Next())
			s.Commit(highlight.Type)
			if !s.Next().Is(",") {
				break
			}
			s.Commit(highlight.Operator)
		}
	}

	if !s.Expect("{", highlight.Operator) {
		return nil, Pending
	}
	scopeStart := s.Prev()

	for !s.IsEnd() && !s.Next().Is("}") {
		if s.Next().Is(";") {
			s.Commit(highlight.Operator)
			continue
		}
		member, res := parseClassMember(s)
		if res == Ok {
			n.Members = append(n.Members, member)
			continue
		}
		if res == Pending {
			continue
		}
		s.Error("Expected class member.")
		s.Step()
	}
	s.Expect("}", highlight.Operator)

	n.ScopeRange = ast.NodeRange{Start: scopeStart, End: s.Prev()}
	n.Range = ast.NodeRange{Start: start, End: s.Prev()}
	return n, Ok
}

// parseClassMember 类成员，固定顺序 FUNCDEF → FUNC → VIRTPROP → VAR，
// 取第一个非 Mismatch 的结果
func parseClassMember(s *State) (ast.Declaration, Res) {
	if n, res := parseFuncDef(s); res != Mismatch {
		return n, res
	}
	if n, res := parseFunc(s, true); res != Mismatch {
		return n, res
	}
	if n, res := parseVirtualProp(s); res != Mismatch {
		return n, res
	}
	if n, res := parseVar(s); res != Mismatch {
		return n, res
	}
	return nil, Mismatch
}

// parseInterface 接口声明
// INTERFACE ::= {attrs} 'interface' IDENT (';' | [':' IDENT {',' IDENT}] '{' {VIRTPROP|INTFMTHD} '}')
func parseInterface(s *State) (*ast.Interface, Res) {
	start := s.Next()
	attrs := parseEntityAttribute(s)
	if !s.Next().Is("interface") {
		s.Backtrack(start)
		return nil, Mismatch
	}
	s.Commit(highlight.Keyword)

	n := &ast.Interface{Attrs: attrs}
	if !s.Next().IsIdentifier() {
		s.Error("Expected identifier")
		return nil, Pending
	}
	n.Ident = s.Next()
	s.Commit(highlight.Interface)

	if s.Next().Is(";") {
		s.Commit(highlight.Operator)
		n.Range = ast.NodeRange{Start: start, End: s.Prev()}
		return n, Ok
	}

	if s.Next().Is(":") {
		s.Commit(highlight.Operator)
		for {
			if !s.Next().IsIdentifier() {
				s.Error("Expected identifier")
				break
			}
			n.Bases = append(n.Bases, s.Next())
			s.Commit(highlight.Type)
			if !s.Next().Is(",") {
				break
			}
			s.Commit(highlight.Operator)
		}
	}

	if !s.Expect("{", highlight.Operator) {
		return nil, Pending
	}
	scopeStart := s.Prev()

	for !s.IsEnd() && !s.Next().Is("}") {
		if s.Next().Is(";") {
			s.Commit(highlight.Operator)
			continue
		}
		if m, res := parseVirtualProp(s); res != Mismatch {
			if res == Ok {
				n.Members = append(n.Members, m)
			}
			continue
		}
		if m, res := parseIntfMethod(s); res != Mismatch {
			if res == Ok {
				n.Members = append(n.Members, m)
			}
			continue
		}
		s.Error("Expected interface member.")
		s.Step()
	}
	s.Expect("}", highlight.Operator)

	n.ScopeRange = ast.NodeRange{Start: scopeStart, End: s.Prev()}
	n.Range = ast.NodeRange{Start: start, End: s.Prev()}
	return n, Ok
}

// parseIntfMethod 接口方法
// INTFMTHD ::= TYPE ['&'] IDENT PARAMLIST ['const'] ';'
func parseIntfMethod(s *State) (*ast.IntfMethod, Res) {
	start := s.Next()
	ty, res := parseType(s)
	if res != Ok {
		return nil, Mismatch
	}

	n := &ast.IntfMethod{ReturnType: ty}
	if s.Next().Is("&") {
		s.Commit(highlight.Operator)
		n.IsRef = true
	}
	if !s.Next().IsIdentifier() {
		s.Backtrack(start)
		return nil, Mismatch
	}
	n.Ident = s.Next()
	s.Commit(highlight.Function)

	params, res := parseParamList(s)
	if res != Ok {
		s.Backtrack(start)
		return nil, Mismatch
	}
	n.Params = params

	if s.Next().Is("const") {
		s.Commit(highlight.Keyword)
		n.IsConst = true
	}
	s.Expect(";", highlight.Operator)

	n.Range = ast.NodeRange{Start: start, End: s.Prev()}
	return n, Ok
}

// parseEnum 枚举声明
// ENUM ::= {attrs} 'enum' IDENT (';' | '{' IDENT ['=' EXPR] {',' IDENT ['=' EXPR]} [','] '}')
func parseEnum(s *State) (*ast.Enum, Res) {
	start := s.Next()
	attrs := parseEntityAttribute(s)
	if !s.Next().Is("enum") {
		s.Backtrack(start)
		return nil, Mismatch
	}
	s.Commit(highlight.Keyword)

	n := &ast.Enum{Attrs: attrs}
	if !s.Next().IsIdentifier() {
		s.Error("Expected identifier")
		return nil, Pending
	}
	n.Ident = s.Next()
	s.Commit(highlight.Enum)

	if s.Next().Is(";") {
		s.Commit(highlight.Operator)
		n.Range = ast.NodeRange{Start: start, End: s.Prev()}
		return n, Ok
	}

	if !s.Expect("{", highlight.Operator) {
		return nil, Pending
	}
	scopeStart := s.Prev()

	for !s.IsEnd() {
		if s.Next().Is("}") {
			s.Commit(highlight.Operator)
			break
		}
		if !s.Next().IsIdentifier() {
			s.Error("Expected enum member")
			s.Step()
			continue
		}
		member := &ast.EnumMember{Ident: s.Next()}
		memberStart := s.Next()
		s.Commit(highlight.EnumMember)

		if s.Next().Is("=") {
			s.Commit(highlight.Operator)
			expr, res := parseExpr(s)
			if res != Ok {
				s.Error("Expected expression")
			} else {
				member.Value = expr
			}
		}
		member.Range = ast.NodeRange{Start: memberStart, End: s.Prev()}
		n.Members = append(n.Members, member)

		if ctl := expectContinuousOrClose(s, ",", "}", true); ctl != loopContinue {
			break
		}
	}

	n.ScopeRange = ast.NodeRange{Start: scopeStart, End: s.Prev()}
	n.Range = ast.NodeRange{Start: start, End: s.Prev()}
	return n, Ok
}

// parseFuncDef 函数类型定义
// FUNCDEF ::= {attrs} 'funcdef' TYPE ['&'] IDENT PARAMLIST ';'
func parseFuncDef(s *State) (*ast.FuncDef, Res) {
	start := s.Next()
	attrs := parseEntityAttribute(s)
	if !s.Next().Is("funcdef") {
		s.Backtrack(start)
		return nil, Mismatch
	}
	s.Commit(highlight.Keyword)

	n := &ast.FuncDef{Attrs: attrs}
	ty, res := parseType(s)
	if res != Ok {
		s.Error("Expected type")
		return nil, Pending
	}
	n.ReturnType = ty
	if s.Next().Is("&") {
		s.Commit(highlight.Operator)
		n.IsRef = true
	}
	if !s.Next().IsIdentifier() {
		s.Error("Expected identifier")
		return nil, Pending
	}
	n.Ident = s.Next()
	s.Commit(highlight.Type)

	params, res := parseParamList(s)
	if res != Ok {
		s.Error("Expected parameter list")
		return nil, Pending
	}
	n.Params = params
	s.Expect(";", highlight.Operator)

	n.Range = ast.NodeRange{Start: start, End: s.Prev()}
	return n, Ok
}

// parseFunc 函数声明
// FUNC ::= {attrs} [access] [TYPE ['&'] | '~'] IDENT PARAMLIST ['const'] FUNCATTR (';' | STATBLOCK)
//
// 与 VAR 的歧义（A a(42); 是带构造实参的变量）由 PARAMLIST 解决：
// 形参无法按 TYPE 解析时 PARAMLIST 返回 Mismatch，整个 FUNC 回退。
// 构造/析构函数头只在类体内成立（inClass），否则顶层的 g(); 会被
// 误读成构造函数声明。
func parseFunc(s *State, inClass bool) (*ast.Func, Res) {
	start := s.Next()
	metadata := parseMetadata(s)
	attrs := parseEntityAttribute(s)
	access := parseAccessModifier(s)

	n := &ast.Func{Metadata: metadata, Attrs: attrs, Access: access}

	if s.Next().Is("~") && !inClass {
		s.Backtrack(start)
		return nil, Mismatch
	}
	if s.Next().Is("~") {
		// 析构函数
		s.Commit(highlight.Operator)
		n.Head = ast.HeadDestructor
		if !s.Next().IsIdentifier() {
			s.Error("Expected identifier")
			return nil, Pending
		}
		n.Ident = s.Next()
		s.Commit(highlight.Function)
	} else {
		ty, res := parseType(s)
		if res != Ok {
			s.Backtrack(start)
			return nil, Mismatch
		}
		isRef := false
		if s.Next().Is("&") {
			s.Commit(highlight.Operator)
			isRef = true
		}

		if s.Next().IsIdentifier() {
			n.Head = ast.HeadRegular
			n.ReturnType = ty
			n.IsRef = isRef
			n.Ident = s.Next()
			s.Commit(highlight.Function)
		} else if inClass && s.Next().Is("(") && !isRef && isPlainTypeName(ty) {
			// 返回类型缺席且紧跟实参表：构造函数，类型名即函数名
			n.Head = ast.HeadConstructor
			n.Ident = ty.DataType
		} else {
			s.Backtrack(start)
			return nil, Mismatch
		}
	}

	n.TypeTemplates = parseTemplateParams(s)

	if !s.Next().Is("(") {
		s.Backtrack(start)
		return nil, Mismatch
	}
	params, res := parseParamList(s)
	if res != Ok {
		s.Backtrack(start)
		return nil, Mismatch
	}
	n.Params = params

	if s.Next().Is("const") {
		s.Commit(highlight.Keyword)
		n.IsConst = true
	}
	n.FuncAttr = parseFuncAttr(s)

	// 函数体永远非 nil：声明以 ';' 结尾时给空语句块
	if s.Next().Is(";") {
		semi := s.Next()
		s.Commit(highlight.Operator)
		n.Body = &ast.StatBlock{Range: ast.NodeRange{Start: semi, End: semi}}
	} else {
		body, res := parseStatBlock(s)
		if res != Ok {
			s.Error("Expected function body")
			n.Body = &ast.StatBlock{Range: ast.NodeRange{Start: s.Next(), End: s.Next()}}
			n.Range = ast.NodeRange{Start: start, End: s.Prev()}
			return n, Pending
		}
		n.Body = body
	}

	n.Range = ast.NodeRange{Start: start, End: s.Prev()}
	return n, Ok
}

// isPlainTypeName 类型是否只是一个裸标识符（无 const/作用域/模板/数组/引用）
func isPlainTypeName(ty *ast.Type) bool {
	return ty != nil && !ty.IsConst && ty.Scope == nil && len(ty.TypeTemplates) == 0 &&
		!ty.IsArray && ty.RefModifier == ast.RefNone &&
		ty.DataType != nil && ty.DataType.IsIdentifier()
}

// parseVirtualProp 虚属性
// VIRTPROP ::= [access] TYPE ['&'] IDENT '{' {('get'|'set') ['const'] FUNCATTR (STATBLOCK|';')} '}'
func parseVirtualProp(s *State) (*ast.VirtualProp, Res) {
	start := s.Next()
	metadata := parseMetadata(s)
	access := parseAccessModifier(s)

	ty, res := parseType(s)
	if res != Ok {
		s.Backtrack(start)
		return nil, Mismatch
	}

	n := &ast.VirtualProp{Metadata: metadata, Access: access, Type: ty}
	if s.Next().Is("&") {
		s.Commit(highlight.Operator)
		n.IsRef = true
	}
	if !s.Next().IsIdentifier() {
		s.Backtrack(start)
		return nil, Mismatch
	}
	n.Ident = s.Next()

	if !s.Next(1).Is("{") {
		s.Backtrack(start)
		return nil, Mismatch
	}
	s.Commit(highlight.Variable)
	s.Commit(highlight.Operator) // '{'

	for !s.IsEnd() && !s.Next().Is("}") {
		if !s.Next().Is("get") && !s.Next().Is("set") {
			s.Error("Expected 'get' or 'set'")
			s.Step()
			continue
		}
		acc := &ast.PropAccessor{Keyword: s.Next()}
		accStart := s.Next()
		s.Commit(highlight.Builtin)

		if s.Next().Is("const") {
			s.Commit(highlight.Keyword)
			acc.IsConst = true
		}
		acc.FuncAttr = parseFuncAttr(s)

		if s.Next().Is(";") {
			s.Commit(highlight.Operator)
		} else {
			body, res := parseStatBlock(s)
			if res != Ok {
				s.Error("Expected '{' or ';'")
			} else {
				acc.Body = body
			}
		}
		acc.Range = ast.NodeRange{Start: accStart, End: s.Prev()}
		n.Accessors = append(n.Accessors, acc)
	}
	s.Expect("}", highlight.Operator)

	n.Range = ast.NodeRange{Start: start, End: s.Prev()}
	return n, Ok
}

// parseVar 变量声明
// VAR ::= [access] TYPE IDENT [('=' INITLIST|ASSIGN) | ARGLIST] {',' IDENT [...]} ';'
func parseVar(s *State) (*ast.Var, Res) {
	start := s.Next()
	metadata := parseMetadata(s)
	access := parseAccessModifier(s)

	ty, res := parseType(s)
	if res != Ok {
		s.Backtrack(start)
		return nil, Mismatch
	}
	if !s.Next().IsIdentifier() {
		s.Backtrack(start)
		return nil, Mismatch
	}

	n := &ast.Var{Metadata: metadata, Access: access, Type: ty}
	for {
		if !s.Next().IsIdentifier() {
			s.Error("Expected identifier")
			break
		}
		d := &ast.VarDeclarator{Ident: s.Next()}
		declStart := s.Next()
		s.Commit(highlight.Variable)

		if s.Next().Is("=") {
			s.Commit(highlight.Operator)
			if s.Next().Is("{") {
				il, res := parseInitList(s)
				if res == Ok {
					d.Init = il
				}
			} else {
				a, res := parseAssign(s)
				if res != Ok {
					s.Error("Expected expression")
				} else {
					d.Init = a
				}
			}
		} else if s.Next().Is("(") {
			args, res := parseArgList(s)
			if res == Ok {
				d.Init = args
			}
		}
		d.Range = ast.NodeRange{Start: declStart, End: s.Prev()}
		n.Declarators = append(n.Declarators, d)

		if !s.Next().Is(",") {
			break
		}
		s.Commit(highlight.Operator)
	}
	s.Expect(";", highlight.Operator)

	n.Range = ast.NodeRange{Start: start, End: s.Prev()}
	return n, Ok
}

// ============================================================================
// 类型
// ============================================================================

// parseType 类型标注
// TYPE ::= ['const'] SCOPE DATATYPE ['<' TYPE {',' TYPE} '>'] { '[' ']' | '@' ['const'] }
func parseType(s *State) (*ast.Type, Res) {
	start := s.Next()
	n := &ast.Type{}

	if s.Next().Is("const") {
		s.Commit(highlight.Keyword)
		n.IsConst = true
	}
	n.Scope = parseScope(s)

	next := s.Next()
	switch {
	case next.IsIdentifier():
		s.Commit(highlight.Type)
	case next.Property.IsPrimeType, next.Is("?"), next.Is("auto"):
		s.Commit(highlight.Builtin)
	default:
		s.Backtrack(start)
		return nil, Mismatch
	}
	n.DataType = next

	n.TypeTemplates = parseTypeTemplates(s)

	for {
		if s.Next().Is("[") && s.Next(1).Is("]") {
			s.Commit(highlight.Operator)
			s.Commit(highlight.Operator)
			n.IsArray = true
			continue
		}
		if s.Next().Is("@") {
			s.Commit(highlight.Operator)
			n.RefModifier = ast.RefAt
			if s.Next().Is("const") {
				s.Commit(highlight.Keyword)
				n.RefModifier = ast.RefAtConst
			}
			continue
		}
		break
	}

	n.Range = ast.NodeRange{Start: start, End: s.Prev()}
	return n, Ok
}

// parseScope 作用域前缀（可缺席，缺席返回 nil）
// SCOPE ::= ['::'] {IDENT '::'} [IDENT ['<' TYPE {',' TYPE} '>'] '::']
//
// 备忘缓存：每个类型、调用与变量访问处都会推测作用域前缀。
func parseScope(s *State) *ast.Scope {
	cache := s.Cache(CacheScope)
	if stored, hit := cache.Restore(); hit {
		if stored == nil {
			return nil
		}
		return stored.(*ast.Scope)
	}

	start := s.Next()
	n := &ast.Scope{}

	if s.Next().Is("::") {
		s.Commit(highlight.Operator)
		n.IsGlobal = true
	}

	for {
		tok := s.Next()
		if !tok.IsIdentifier() {
			break
		}
		if s.Next(1).Is("::") {
			n.Names = append(n.Names, tok)
			s.Commit(highlight.Namespace)
			n.Seps = append(n.Seps, s.Next())
			s.Commit(highlight.Operator)
			continue
		}
		// 末段可以带模板实参：Outer::Tmpl<int>::Inner
		if s.Next(1).Is("<") {
			snapshot := s.Next()
			s.Commit(highlight.Namespace)
			args := parseTypeTemplates(s)
			if args != nil && s.Next().Is("::") {
				sep := s.Next()
				s.Commit(highlight.Operator)
				n.Names = append(n.Names, tok)
				n.Seps = append(n.Seps, sep)
				n.TemplateArgs = args
				break
			}
			s.Backtrack(snapshot)
		}
		break
	}

	if !n.IsGlobal && len(n.Names) == 0 {
		s.Backtrack(start)
		cache.Store(nil)
		return nil
	}

	n.Range = ast.NodeRange{Start: start, End: s.Prev()}
	cache.Store(n)
	return n
}

// parseTypeTemplates 模板实参列表（可缺席，缺席或不成立返回 nil）
// '<' TYPE {',' TYPE} '>'
//
// 备忘缓存；a < b 这类比较表达式在此试败后干净回退。
func parseTypeTemplates(s *State) []*ast.Type {
	cache := s.Cache(CacheTypeTemplates)
	if stored, hit := cache.Restore(); hit {
		if stored == nil {
			return nil
		}
		return stored.([]*ast.Type)
	}

	start := s.Next()
	if !start.Is("<") {
		cache.Store(nil)
		return nil
	}
	s.Commit(highlight.Operator)

	var args []*ast.Type
	for {
		ty, res := parseType(s)
		if res != Ok {
			s.Backtrack(start)
			cache.Store(nil)
			return nil
		}
		args = append(args, ty)
		if s.Next().Is(",") {
			s.Commit(highlight.Operator)
			continue
		}
		break
	}

	if !s.Next().Is(">") {
		s.Backtrack(start)
		cache.Store(nil)
		return nil
	}
	s.Commit(highlight.Operator)

	cache.Store(args)
	return args
}

// parseTemplateParams 声明处的模板形参 '<' IDENT {',' IDENT} '>'
//
// 与实参列表不同，形参只允许裸标识符；不成立时干净回退返回 nil。
func parseTemplateParams(s *State) []*token.Token {
	start := s.Next()
	if !start.Is("<") {
		return nil
	}
	s.Commit(highlight.Operator)

	var params []*token.Token
	for {
		if !s.Next().IsIdentifier() {
			s.Backtrack(start)
			return nil
		}
		params = append(params, s.Next())
		s.Commit(highlight.Type)
		if s.Next().Is(",") {
			s.Commit(highlight.Operator)
			continue
		}
		break
	}
	if !s.Next().Is(">") {
		s.Backtrack(start)
		return nil
	}
	s.Commit(highlight.Operator)
	return params
}

// parseParamList 形参列表
// PARAMLIST ::= '(' [TYPE ['&' ['in'|'out'|'inout']] [IDENT] ['=' EXPR] {',' ...}] ')'
//
// 任一形参无法按 TYPE 解析时整个列表 Mismatch 并回退到 '(' 之前，
// 使 A a(42); 能够按带构造实参的变量声明解析。
func parseParamList(s *State) (*ast.ParamList, Res) {
	start := s.Next()
	if !start.Is("(") {
		return nil, Mismatch
	}
	s.Commit(highlight.Operator)

	n := &ast.ParamList{}
	if s.Next().Is(")") {
		s.Commit(highlight.Operator)
		n.Range = ast.NodeRange{Start: start, End: s.Prev()}
		return n, Ok
	}

	for {
		ty, res := parseType(s)
		if res != Ok {
			s.Backtrack(start)
			return nil, Mismatch
		}
		p := &ast.Param{Type: ty}
		pStart := ty.Range.Start

		if s.Next().Is("&") {
			s.Commit(highlight.Operator)
			if t := s.Next().Text; t == "in" || t == "out" || t == "inout" {
				p.Modifier = s.Next()
				s.Commit(highlight.Keyword)
			}
		}
		if s.Next().IsIdentifier() {
			p.Ident = s.Next()
			s.Commit(highlight.Parameter)
		}
		if s.Next().Is("=") {
			s.Commit(highlight.Operator)
			def, res := parseAssign(s)
			if res != Ok {
				s.Error("Expected expression")
			} else {
				p.Default = def
			}
		}
		p.Range = ast.NodeRange{Start: pStart, End: s.Prev()}
		n.Params = append(n.Params, p)

		if ctl := expectContinuousOrClose(s, ",", ")", true); ctl != loopContinue {
			break
		}
	}

	n.Range = ast.NodeRange{Start: start, End: s.Prev()}
	return n, Ok
}
