package lsp

import (
	"github.com/segmentio/encoding/json"
	"go.lsp.dev/protocol"

	"github.com/gyxos-logan/angel-lsp/internal/symbols"
)

// ============================================================================
// 跳转定义
// ============================================================================
//
// 语义分析把每次解析成功的引用登记进所在作用域的 ReferencedList；
// 这里在整棵作用域树中找覆盖光标的引用，回答其声明位置。
//
// ============================================================================

// handleDefinition 跳转定义请求
func (s *Server) handleDefinition(id json.RawMessage, params json.RawMessage) {
	var p protocol.DefinitionParams
	if err := json.Unmarshal(params, &p); err != nil {
		s.sendError(id, -32700, "Parse error")
		return
	}

	doc := s.documents.Get(string(p.TextDocument.URI))
	if doc == nil || doc.Global == nil {
		s.sendResult(id, nil)
		return
	}

	ref := findReferenceAt(doc.Global, p.Position)
	if ref == nil {
		s.sendResult(id, nil)
		return
	}
	decl := ref.Target.DeclaredAt()
	if decl == nil {
		s.sendResult(id, nil)
		return
	}

	s.sendResult(id, protocol.Location{
		URI:   protocol.DocumentURI(doc.URI),
		Range: locationToRange(decl.Location),
	})
}

// findReferenceAt 在作用域树中找覆盖给定位置的引用
func findReferenceAt(scope *symbols.Scope, pos protocol.Position) *symbols.Reference {
	for i := range scope.ReferencedList {
		ref := &scope.ReferencedList[i]
		if ref.From != nil && positionInLocation(pos, ref.From.Location) {
			return ref
		}
	}
	for _, child := range scope.Children {
		if found := findReferenceAt(child, pos); found != nil {
			return found
		}
	}
	return nil
}
