package token

import "fmt"

// ============================================================================
// Token 类型定义
// ============================================================================
//
// AngelScript 词法分析产出的记号分为六类：
// 1. Identifier - 标识符
// 2. Number     - 数字字面量（含进制子类）
// 3. String     - 字符串字面量
// 4. Reserved   - 保留字与运算符号（携带属性标志）
// 5. Comment    - 注释
// 6. Unknown    - 无法识别的字符
//
// ============================================================================

// Kind 表示 Token 的类别
type Kind int

const (
	Unknown    Kind = iota // 非法字符
	Identifier             // 标识符
	Number                 // 数字字面量
	String                 // 字符串字面量
	Reserved               // 保留字 / 运算符号
	Comment                // 注释
	End                    // 记号流结束哨兵
)

var kindNames = map[Kind]string{
	Unknown:    "Unknown",
	Identifier: "Identifier",
	Number:     "Number",
	String:     "String",
	Reserved:   "Reserved",
	Comment:    "Comment",
	End:        "End",
}

// String 返回 Kind 的字符串表示
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Kind(%d)", k)
}

// NumberKind 数字字面量的进制类别
type NumberKind int

const (
	NumberInt    NumberKind = iota // 十进制整数
	NumberHex                      // 0x 十六进制
	NumberOctal                    // 0o 八进制
	NumberBinary                   // 0b 二进制
	NumberFloat                    // 浮点数
)

// ============================================================================
// Property - 保留字属性标志
// ============================================================================
//
// 每个 Reserved 记号携带一组布尔属性，语法分析器据此判断记号
// 能否出现在某个文法位置（表达式运算符、前缀运算符、赋值符等）。
//
// ============================================================================

// Property 保留字的属性标志集
type Property struct {
	IsMark       bool // 符号类记号（非单词）
	IsPrimeType  bool // 基本类型关键字 (void, int, float, ...)
	IsExprPreOp  bool // 表达式前缀运算符 (-, !, ~, ++, --, @, not)
	IsExprPostOp bool // 表达式后缀运算符 (++, --)
	IsMathOp     bool // 算术运算符
	IsCompOp     bool // 比较运算符
	IsLogicOp    bool // 逻辑运算符
	IsBitOp      bool // 位运算符
	IsAssignOp   bool // 赋值运算符
}

// IsExprOp 是否为二元表达式运算符（算术/比较/逻辑/位运算之一）
func (p Property) IsExprOp() bool {
	return p.IsMathOp || p.IsCompOp || p.IsLogicOp || p.IsBitOp
}

// ============================================================================
// 符号表
// ============================================================================
//
// Marks 按长度降序排列，词法分析使用最长匹配。
//
// 注意：'>' 永远单独成符。'>='、'>>'、'>>='、'>>>'、'>>>=' 不在表中，
// 由语法分析器按上下文从相邻记号合成（见 parser 的虚拟记号），
// 否则模板参数列表 Dict<string, Array<int>> 的连续 '>' 无法闭合。
//
// ============================================================================

// Marks 全部符号记号，按长度降序
var Marks = []string{
	"**=", "<<=",
	"::", "++", "--", "**", "==", "!=", "<=",
	"+=", "-=", "*=", "/=", "%=", "&=", "|=", "^=",
	"&&", "||", "^^", "<<",
	"(", ")", "{", "}", "[", "]",
	",", ";", ".", ":", "?", "@",
	"*", "/", "%", "+", "-",
	"<", ">", "=", "&", "|", "^", "~", "!",
}

// markProperties 符号记号的属性
// 合成记号（>=、>>、>>>、>>=、>>>=、!is）也在此登记，但不参与词法扫描。
var markProperties = map[string]Property{
	"(": {IsMark: true},
	")": {IsMark: true},
	"{": {IsMark: true},
	"}": {IsMark: true},
	"[": {IsMark: true},
	"]": {IsMark: true},
	",": {IsMark: true},
	";": {IsMark: true},
	":": {IsMark: true},
	"::": {IsMark: true},
	"?": {IsMark: true},
	".": {IsMark: true},

	"@": {IsMark: true, IsExprPreOp: true},
	"~": {IsMark: true, IsExprPreOp: true},
	"!": {IsMark: true, IsExprPreOp: true},

	"++": {IsMark: true, IsExprPreOp: true, IsExprPostOp: true},
	"--": {IsMark: true, IsExprPreOp: true, IsExprPostOp: true},

	"+":  {IsMark: true, IsMathOp: true, IsExprPreOp: true},
	"-":  {IsMark: true, IsMathOp: true, IsExprPreOp: true},
	"*":  {IsMark: true, IsMathOp: true},
	"/":  {IsMark: true, IsMathOp: true},
	"%":  {IsMark: true, IsMathOp: true},
	"**": {IsMark: true, IsMathOp: true},

	"==":  {IsMark: true, IsCompOp: true},
	"!=":  {IsMark: true, IsCompOp: true},
	"<":   {IsMark: true, IsCompOp: true},
	"<=":  {IsMark: true, IsCompOp: true},
	">":   {IsMark: true, IsCompOp: true},
	">=":  {IsMark: true, IsCompOp: true},
	"!is": {IsMark: true, IsCompOp: true},

	"&&": {IsMark: true, IsLogicOp: true},
	"||": {IsMark: true, IsLogicOp: true},
	"^^": {IsMark: true, IsLogicOp: true},

	"&":   {IsMark: true, IsBitOp: true},
	"|":   {IsMark: true, IsBitOp: true},
	"^":   {IsMark: true, IsBitOp: true},
	"<<":  {IsMark: true, IsBitOp: true},
	">>":  {IsMark: true, IsBitOp: true},
	">>>": {IsMark: true, IsBitOp: true},

	"=":    {IsMark: true, IsAssignOp: true},
	"+=":   {IsMark: true, IsAssignOp: true},
	"-=":   {IsMark: true, IsAssignOp: true},
	"*=":   {IsMark: true, IsAssignOp: true},
	"/=":   {IsMark: true, IsAssignOp: true},
	"%=":   {IsMark: true, IsAssignOp: true},
	"**=":  {IsMark: true, IsAssignOp: true},
	"&=":   {IsMark: true, IsAssignOp: true},
	"|=":   {IsMark: true, IsAssignOp: true},
	"^=":   {IsMark: true, IsAssignOp: true},
	"<<=":  {IsMark: true, IsAssignOp: true},
	">>=":  {IsMark: true, IsAssignOp: true},
	">>>=": {IsMark: true, IsAssignOp: true},
}

// ============================================================================
// 保留字表
// ============================================================================

// wordProperties 单词类保留字的属性
var wordProperties = map[string]Property{
	// 基本类型
	"void":   {IsPrimeType: true},
	"int":    {IsPrimeType: true},
	"int8":   {IsPrimeType: true},
	"int16":  {IsPrimeType: true},
	"int32":  {IsPrimeType: true},
	"int64":  {IsPrimeType: true},
	"uint":   {IsPrimeType: true},
	"uint8":  {IsPrimeType: true},
	"uint16": {IsPrimeType: true},
	"uint32": {IsPrimeType: true},
	"uint64": {IsPrimeType: true},
	"float":  {IsPrimeType: true},
	"double": {IsPrimeType: true},
	"bool":   {IsPrimeType: true},

	// 单词形式的运算符
	"and": {IsLogicOp: true},
	"or":  {IsLogicOp: true},
	"xor": {IsLogicOp: true},
	"not": {IsExprPreOp: true},
	"is":  {IsCompOp: true},

	// 其余保留字
	"abstract":  {},
	"auto":      {},
	"break":     {},
	"case":      {},
	"cast":      {},
	"catch":     {},
	"class":     {},
	"const":     {},
	"continue":  {},
	"default":   {},
	"do":        {},
	"else":      {},
	"enum":      {},
	"explicit":  {},
	"external":  {},
	"false":     {},
	"final":     {},
	"for":       {},
	"from":      {},
	"funcdef":   {},
	"function":  {},
	"get":       {},
	"if":        {},
	"import":    {},
	"in":        {},
	"inout":     {},
	"interface": {},
	"mixin":     {},
	"namespace": {},
	"null":      {},
	"out":       {},
	"override":  {},
	"private":   {},
	"property":  {},
	"protected": {},
	"public":    {},
	"return":    {},
	"set":       {},
	"shared":    {},
	"super":     {},
	"switch":    {},
	"this":      {},
	"true":      {},
	"try":       {},
	"typedef":   {},
	"while":     {},
}

// LookupReserved 查找文本是否为保留字（单词或符号），返回其属性
func LookupReserved(text string) (Property, bool) {
	if p, ok := wordProperties[text]; ok {
		return p, true
	}
	if p, ok := markProperties[text]; ok {
		return p, true
	}
	return Property{}, false
}

// PropertyOf 返回记号文本的属性；未登记的文本返回零值
//
// 合成记号（>>、!is 等）也通过此函数取属性。
func PropertyOf(text string) Property {
	p, _ := LookupReserved(text)
	return p
}

// ============================================================================
// Position / Location - 源代码位置
// ============================================================================

// Position 表示源代码中的一个点
type Position struct {
	Line   int // 行号 (从1开始)
	Column int // 列号 (从1开始)
	Offset int // 字节偏移量 (从0开始)
}

// String 返回位置的字符串表示
func (p Position) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Column)
}

// Before 判断 p 是否在 q 之前
func (p Position) Before(q Position) bool {
	return p.Offset < q.Offset
}

// Location 表示源代码中的一个范围
type Location struct {
	Path  string   // 文件路径
	Start Position // 开始位置
	End   Position // 结束位置（半开区间，指向记号后第一个字符）
}

// String 返回范围的字符串表示，格式为 "path:line:column"
func (l Location) String() string {
	if l.Path != "" {
		return fmt.Sprintf("%s:%d:%d", l.Path, l.Start.Line, l.Start.Column)
	}
	return l.Start.String()
}

// Merge 合并两个范围，取最早的起点和最晚的终点
func Merge(a, b Location) Location {
	out := a
	if b.Start.Before(a.Start) {
		out.Start = b.Start
	}
	if a.End.Before(b.End) {
		out.End = b.End
	}
	return out
}

// ============================================================================
// Token - 词法单元
// ============================================================================

// Token 表示一个词法单元
//
// Index 是记号在序列中的下标，语法分析器的回溯与备忘缓存以它为键。
// 合成记号（虚拟记号）的 Index 取其首个底层记号的下标，Virtual 为 true，
// Covers 记录覆盖的真实记号数量。
type Token struct {
	Kind       Kind       // 记号类别
	Text       string     // 原始文本
	Location   Location   // 位置信息
	Index      int        // 序列下标
	NumberKind NumberKind // 仅 Kind == Number 时有效
	Property   Property   // 仅 Kind == Reserved 时有效
	Virtual    bool       // 是否为语法分析器合成的虚拟记号
	Covers     int        // 虚拟记号覆盖的真实记号数量（真实记号为 0）
}

// Is 判断记号是否为指定文本的保留字
func (t *Token) Is(text string) bool {
	return t.Kind == Reserved && t.Text == text
}

// IsIdentifier 判断记号是否为标识符
func (t *Token) IsIdentifier() bool {
	return t.Kind == Identifier
}

// IsEnd 判断记号是否为结束哨兵
func (t *Token) IsEnd() bool {
	return t.Kind == End
}

// String 返回 Token 的字符串表示（用于调试）
func (t *Token) String() string {
	return fmt.Sprintf("%s(%q) at %s", t.Kind, t.Text, t.Location)
}

// Adjacent 判断 b 是否与 a 严格相邻（中间无空白、无注释）
//
// 虚拟记号合成（>> 、!is 等）依赖此判断。
func Adjacent(a, b *Token) bool {
	if a == nil || b == nil {
		return false
	}
	return a.Location.Path == b.Location.Path &&
		a.Location.End.Offset == b.Location.Start.Offset
}

// NewVirtual 合成一个虚拟记号
//
// text 为合成后的文本，parts 为被覆盖的真实记号（至少一个，按顺序相邻）。
// 虚拟记号不插入输入序列，位置覆盖全部底层记号。
func NewVirtual(text string, parts ...*Token) *Token {
	loc := parts[0].Location
	covers := 0
	for _, part := range parts {
		loc = Merge(loc, part.Location)
		covers += 1 + part.Covers
	}
	return &Token{
		Kind:     Reserved,
		Text:     text,
		Location: loc,
		Index:    parts[0].Index,
		Property: PropertyOf(text),
		Virtual:  true,
		Covers:   covers,
	}
}

// NewEnd 创建结束哨兵记号
func NewEnd(path string, pos Position, index int) *Token {
	return &Token{
		Kind:     End,
		Location: Location{Path: path, Start: pos, End: pos},
		Index:    index,
	}
}
