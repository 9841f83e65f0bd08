package lsp

import (
	"sort"

	"github.com/segmentio/encoding/json"
	"go.lsp.dev/protocol"

	"github.com/gyxos-logan/angel-lsp/internal/highlight"
)

// ============================================================================
// 语义高亮
// ============================================================================
//
// 语法分析提交的分类加上语义分析的改判（同一记号后写覆盖先写）
// 编码为 LSP 的增量语义 token 数组。
//
// ============================================================================

// semanticTokenTypes 能力声明中的类型表；数组下标即编码值
var semanticTokenTypes = []string{
	"namespace",
	"type",
	"class",
	"enum",
	"interface",
	"parameter",
	"variable",
	"enumMember",
	"function",
	"keyword",
	"comment",
	"string",
	"number",
	"operator",
	"decorator",
}

// kindIndex 高亮类别 → 类型表下标
var kindIndex = map[highlight.Kind]uint32{
	highlight.Namespace:  0,
	highlight.Type:       1,
	highlight.Builtin:    1,
	highlight.Class:      2,
	highlight.Enum:       3,
	highlight.Interface:  4,
	highlight.Parameter:  5,
	highlight.Variable:   6,
	highlight.EnumMember: 7,
	highlight.Function:   8,
	highlight.Keyword:    9,
	highlight.Comment:    10,
	highlight.String:     11,
	highlight.Number:     12,
	highlight.Operator:   13,
	highlight.Decorator:  14,
}

// semanticTokensProviderOptions 能力声明
func semanticTokensProviderOptions() map[string]interface{} {
	return map[string]interface{}{
		"legend": map[string]interface{}{
			"tokenTypes":     semanticTokenTypes,
			"tokenModifiers": []string{},
		},
		"full": true,
	}
}

// semanticToken 单个编码前的语义 token
type semanticToken struct {
	line      uint32
	startChar uint32
	length    uint32
	tokenType uint32
}

// handleSemanticTokensFull 全量语义 token 请求
func (s *Server) handleSemanticTokensFull(id json.RawMessage, params json.RawMessage) {
	if !s.cfg.Server.SemanticHighlighting {
		s.sendResult(id, protocol.SemanticTokens{})
		return
	}

	var p protocol.SemanticTokensParams
	if err := json.Unmarshal(params, &p); err != nil {
		s.sendError(id, -32700, "Parse error")
		return
	}

	doc := s.documents.Get(string(p.TextDocument.URI))
	if doc == nil || doc.State == nil {
		s.sendResult(id, protocol.SemanticTokens{})
		return
	}

	s.sendResult(id, protocol.SemanticTokens{
		Data: encodeSemanticTokens(collectSemanticTokens(doc)),
	})
}

// collectSemanticTokens 收集文档的最终分类
func collectSemanticTokens(doc *Document) []semanticToken {
	resolved := doc.State.Highlights().Resolve()
	tokens := make([]semanticToken, 0, len(resolved))
	for tok, kind := range resolved {
		idx, ok := kindIndex[kind]
		if !ok {
			continue
		}
		loc := tok.Location
		length := loc.End.Offset - loc.Start.Offset
		if length <= 0 {
			continue
		}
		tokens = append(tokens, semanticToken{
			line:      uint32(max0(loc.Start.Line - 1)),
			startChar: uint32(max0(loc.Start.Column - 1)),
			length:    uint32(length),
			tokenType: idx,
		})
	}

	sort.Slice(tokens, func(i, j int) bool {
		if tokens[i].line != tokens[j].line {
			return tokens[i].line < tokens[j].line
		}
		return tokens[i].startChar < tokens[j].startChar
	})
	return tokens
}

// encodeSemanticTokens 按 LSP 规范做增量编码
func encodeSemanticTokens(tokens []semanticToken) []uint32 {
	data := make([]uint32, 0, len(tokens)*5)
	var prevLine, prevChar uint32
	for _, t := range tokens {
		deltaLine := t.line - prevLine
		deltaChar := t.startChar
		if deltaLine == 0 {
			deltaChar = t.startChar - prevChar
		}
		data = append(data, deltaLine, deltaChar, t.length, t.tokenType, 0)
		prevLine = t.line
		prevChar = t.startChar
	}
	return data
}
