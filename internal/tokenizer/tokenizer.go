package tokenizer

import (
	"fmt"
	"strings"

	"github.com/gyxos-logan/angel-lsp/internal/token"
)

// ============================================================================
// Tokenizer - 词法分析器
// ============================================================================
//
// 词法分析器负责将 AngelScript 源代码字符串转换为 Token 序列。
//
// 产出的序列包含注释记号，语法分析器构造时再过滤；
// 相邻性判断（虚拟记号合成）基于字节偏移，因此过滤不影响正确性。
//
// 性能说明：
// 1. ASCII 快速路径：大多数源代码字符是 ASCII
// 2. Token 切片预分配：根据源码长度预估 token 数量
// 3. 符号最长匹配：按 token.Marks 的长度降序逐一尝试
//
// ============================================================================

// Tokenizer 词法分析器结构体
type Tokenizer struct {
	source string         // 源代码字符串
	path   string         // 源文件路径（用于位置信息）
	tokens []*token.Token // 已扫描的 Token 列表

	start     int // 当前 Token 的起始位置（字节偏移）
	current   int // 当前扫描位置（字节偏移）
	line      int // 当前行号（从1开始）
	lineStart int // 当前行的起始偏移（用于计算列号）
	startLine int // 当前 Token 起始行号
	startCol  int // 当前 Token 起始列号

	errors []Error // 词法错误列表
}

// Error 表示词法分析错误
type Error struct {
	Pos     token.Position
	Message string
}

func (e Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Pos, e.Message)
}

// New 创建一个新的词法分析器
func New(source, path string) *Tokenizer {
	estimated := len(source) / 5
	if estimated < 16 {
		estimated = 16
	}
	return &Tokenizer{
		source: source,
		path:   path,
		tokens: make([]*token.Token, 0, estimated),
		line:   1,
	}
}

// Tokenize 扫描源代码，返回完整的 Token 序列
//
// 扫描包括注释记号；不追加结束哨兵，记号流结束由消费方合成。
func Tokenize(source, path string) []*token.Token {
	t := New(source, path)
	return t.ScanTokens()
}

// ScanTokens 扫描所有 tokens
func (t *Tokenizer) ScanTokens() []*token.Token {
	for !t.isAtEnd() {
		t.start = t.current
		t.startLine = t.line
		t.startCol = t.current - t.lineStart + 1
		t.scanToken()
	}
	return t.tokens
}

// Errors 返回所有词法错误
func (t *Tokenizer) Errors() []Error {
	return t.errors
}

// HasErrors 检查是否有错误
func (t *Tokenizer) HasErrors() bool {
	return len(t.errors) > 0
}

// ============================================================================
// 核心扫描逻辑
// ============================================================================

func (t *Tokenizer) scanToken() {
	ch := t.peekByte()

	switch {
	// 空白字符（代码中最常见）
	case ch == ' ' || ch == '\t' || ch == '\r':
		t.advance()

	case ch == '\n':
		t.advance()
		t.newLine()

	// 注释
	case ch == '/' && t.peekByteAt(1) == '/':
		t.lineComment()

	case ch == '/' && t.peekByteAt(1) == '*':
		t.blockComment()

	// 数字字面量（.5 这类以点开头的浮点数也在此处理）
	case isDigit(ch) || (ch == '.' && isDigit(t.peekByteAt(1))):
		t.scanNumber()

	// 字符串字面量
	case ch == '"' || ch == '\'':
		t.scanString(ch)

	// 标识符 / 保留字
	case isAlpha(ch):
		t.scanWord()

	default:
		t.scanMark()
	}
}

// lineComment 行注释 // ...
func (t *Tokenizer) lineComment() {
	for !t.isAtEnd() && t.peekByte() != '\n' {
		t.advance()
	}
	t.addToken(token.Comment)
}

// blockComment 块注释 /* ... */，允许不闭合（容错到文件尾）
func (t *Tokenizer) blockComment() {
	t.advance() // /
	t.advance() // *
	for !t.isAtEnd() {
		if t.peekByte() == '*' && t.peekByteAt(1) == '/' {
			t.advance()
			t.advance()
			t.addToken(token.Comment)
			return
		}
		if t.peekByte() == '\n' {
			t.advance()
			t.newLine()
		} else {
			t.advance()
		}
	}
	t.error("unterminated block comment")
	t.addToken(token.Comment)
}

// scanNumber 数字字面量
//
// 支持 0x 十六进制、0o 八进制、0b 二进制、十进制整数与浮点数。
// 浮点数允许指数 (1e10, 2.5e-3) 与 f 后缀 (0.5f)。
func (t *Tokenizer) scanNumber() {
	kind := token.NumberInt

	if t.peekByte() == '0' && (t.peekByteAt(1) == 'x' || t.peekByteAt(1) == 'X') {
		kind = token.NumberHex
		t.advance()
		t.advance()
		for isHexDigit(t.peekByte()) {
			t.advance()
		}
	} else if t.peekByte() == '0' && (t.peekByteAt(1) == 'o' || t.peekByteAt(1) == 'O') {
		kind = token.NumberOctal
		t.advance()
		t.advance()
		for t.peekByte() >= '0' && t.peekByte() <= '7' {
			t.advance()
		}
	} else if t.peekByte() == '0' && (t.peekByteAt(1) == 'b' || t.peekByteAt(1) == 'B') {
		kind = token.NumberBinary
		t.advance()
		t.advance()
		for t.peekByte() == '0' || t.peekByte() == '1' {
			t.advance()
		}
	} else {
		for isDigit(t.peekByte()) {
			t.advance()
		}
		// 小数部分；`1..2` 这类区间写法不属于本语言，点后必须是数字
		if t.peekByte() == '.' && isDigit(t.peekByteAt(1)) {
			kind = token.NumberFloat
			t.advance()
			for isDigit(t.peekByte()) {
				t.advance()
			}
		} else if t.peekByte() == '.' && !isAlpha(t.peekByteAt(1)) {
			// `1.` 形式（点后既非数字也非字母）
			kind = token.NumberFloat
			t.advance()
		}
		// 指数部分
		if t.peekByte() == 'e' || t.peekByte() == 'E' {
			next := t.peekByteAt(1)
			if isDigit(next) || ((next == '+' || next == '-') && isDigit(t.peekByteAt(2))) {
				kind = token.NumberFloat
				t.advance()
				if t.peekByte() == '+' || t.peekByte() == '-' {
					t.advance()
				}
				for isDigit(t.peekByte()) {
					t.advance()
				}
			}
		}
		// f 后缀
		if t.peekByte() == 'f' || t.peekByte() == 'F' {
			kind = token.NumberFloat
			t.advance()
		}
	}

	tok := t.addToken(token.Number)
	tok.NumberKind = kind
}

// scanString 字符串字面量
//
// 支持 '...'、"..." 与跨行的 """...""" 三引号形式。
func (t *Tokenizer) scanString(quote byte) {
	// 三引号字符串
	if quote == '"' && t.peekByteAt(1) == '"' && t.peekByteAt(2) == '"' {
		t.advance()
		t.advance()
		t.advance()
		for !t.isAtEnd() {
			if t.peekByte() == '"' && t.peekByteAt(1) == '"' && t.peekByteAt(2) == '"' {
				t.advance()
				t.advance()
				t.advance()
				t.addToken(token.String)
				return
			}
			if t.peekByte() == '\n' {
				t.advance()
				t.newLine()
			} else {
				t.advance()
			}
		}
		t.error("unterminated string")
		t.addToken(token.String)
		return
	}

	t.advance() // 开引号
	for !t.isAtEnd() && t.peekByte() != quote && t.peekByte() != '\n' {
		if t.peekByte() == '\\' && t.current+1 < len(t.source) {
			t.advance()
		}
		t.advance()
	}
	if t.isAtEnd() || t.peekByte() == '\n' {
		t.error("unterminated string")
	} else {
		t.advance() // 闭引号
	}
	t.addToken(token.String)
}

// scanWord 标识符或保留字
func (t *Tokenizer) scanWord() {
	for isAlphaNumeric(t.peekByte()) {
		t.advance()
	}
	text := t.source[t.start:t.current]
	if prop, ok := token.LookupReserved(text); ok && !prop.IsMark {
		tok := t.addToken(token.Reserved)
		tok.Property = prop
		return
	}
	t.addToken(token.Identifier)
}

// scanMark 符号记号，按 token.Marks 最长匹配
func (t *Tokenizer) scanMark() {
	rest := t.source[t.current:]
	for _, mark := range token.Marks {
		if strings.HasPrefix(rest, mark) {
			t.current += len(mark)
			tok := t.addToken(token.Reserved)
			tok.Property = token.PropertyOf(mark)
			return
		}
	}

	// 无法识别的字符
	t.advance()
	t.error(fmt.Sprintf("unexpected character %q", t.source[t.start:t.current]))
	t.addToken(token.Unknown)
}

// ============================================================================
// 辅助方法
// ============================================================================

func (t *Tokenizer) isAtEnd() bool {
	return t.current >= len(t.source)
}

func (t *Tokenizer) advance() byte {
	ch := t.source[t.current]
	t.current++
	return ch
}

func (t *Tokenizer) peekByte() byte {
	if t.isAtEnd() {
		return 0
	}
	return t.source[t.current]
}

func (t *Tokenizer) peekByteAt(offset int) byte {
	if t.current+offset >= len(t.source) {
		return 0
	}
	return t.source[t.current+offset]
}

func (t *Tokenizer) newLine() {
	t.line++
	t.lineStart = t.current
}

// addToken 以 [start, current) 为范围追加一个记号
func (t *Tokenizer) addToken(kind token.Kind) *token.Token {
	tok := &token.Token{
		Kind: kind,
		Text: t.source[t.start:t.current],
		Location: token.Location{
			Path:  t.path,
			Start: token.Position{Line: t.startLine, Column: t.startCol, Offset: t.start},
			End:   token.Position{Line: t.line, Column: t.current - t.lineStart + 1, Offset: t.current},
		},
		Index: len(t.tokens),
	}
	t.tokens = append(t.tokens, tok)
	return tok
}

func (t *Tokenizer) error(message string) {
	t.errors = append(t.errors, Error{
		Pos:     token.Position{Line: t.startLine, Column: t.startCol, Offset: t.start},
		Message: message,
	})
}

func isDigit(ch byte) bool {
	return ch >= '0' && ch <= '9'
}

func isHexDigit(ch byte) bool {
	return isDigit(ch) || (ch >= 'a' && ch <= 'f') || (ch >= 'A' && ch <= 'F')
}

func isAlpha(ch byte) bool {
	return (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z') || ch == '_' || ch >= 0x80
}

func isAlphaNumeric(ch byte) bool {
	return isAlpha(ch) || isDigit(ch)
}
