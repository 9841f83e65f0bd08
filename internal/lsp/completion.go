package lsp

import (
	"github.com/segmentio/encoding/json"
	"go.lsp.dev/protocol"

	"github.com/gyxos-logan/angel-lsp/internal/ast"
	"github.com/gyxos-logan/angel-lsp/internal/symbols"
)

// ============================================================================
// 代码补全
// ============================================================================
//
// 语义分析为命名空间限定、类型成员与实参位置登记了补全提示；
// 光标落在命名空间或类型提示的范围内时按提示给出候选（实参提示
// 在此不产生候选），否则给出光标处作用域沿父链可见的全部符号。
//
// ============================================================================

// handleCompletion 补全请求
func (s *Server) handleCompletion(id json.RawMessage, params json.RawMessage) {
	var p protocol.CompletionParams
	if err := json.Unmarshal(params, &p); err != nil {
		s.sendError(id, -32700, "Parse error")
		return
	}

	doc := s.documents.Get(string(p.TextDocument.URI))
	if doc == nil || doc.Global == nil {
		s.sendResult(id, protocol.CompletionList{IsIncomplete: false})
		return
	}

	// 先查补全提示
	if items, ok := hintCompletion(doc.Global, p.Position); ok {
		s.sendResult(id, protocol.CompletionList{Items: items})
		return
	}

	// 回落：光标处作用域可见的全部符号
	scope := deepestScopeAt(doc.Global, p.Position)
	var items []protocol.CompletionItem
	seen := make(map[string]bool)
	for cur := scope; cur != nil; cur = cur.Parent {
		items = appendScopeItems(items, cur, seen)
	}
	s.sendResult(id, protocol.CompletionList{Items: items})
}

// hintCompletion 按语义分析登记的提示给出候选
func hintCompletion(scope *symbols.Scope, pos protocol.Position) ([]protocol.CompletionItem, bool) {
	for _, hint := range scope.Hints {
		if !positionInLocation(pos, hint.HintLocation()) {
			continue
		}
		switch h := hint.(type) {
		case *symbols.NamespaceHint:
			// 命名空间限定：列出末段命名空间的内容
			target := scope
			for _, name := range h.Names {
				if next := target.FindChild(name.Text); next != nil {
					target = next
				}
			}
			return appendScopeItems(nil, target, make(map[string]bool)), true

		case *symbols.TypeHint:
			if h.Target != nil && h.Target.Members != nil {
				return appendScopeItems(nil, h.Target.Members, make(map[string]bool)), true
			}
		}
	}
	for _, child := range scope.Children {
		if items, ok := hintCompletion(child, pos); ok {
			return items, ok
		}
	}
	return nil, false
}

// deepestScopeAt 找覆盖位置的最深作用域
func deepestScopeAt(scope *symbols.Scope, pos protocol.Position) *symbols.Scope {
	for _, child := range scope.Children {
		if child.LinkedNode == nil {
			continue
		}
		if positionInLocation(pos, child.LinkedNode.NodeRange().Location()) {
			return deepestScopeAt(child, pos)
		}
	}
	return scope
}

// appendScopeItems 把一个作用域的符号追加为补全候选
func appendScopeItems(items []protocol.CompletionItem, scope *symbols.Scope, seen map[string]bool) []protocol.CompletionItem {
	for name, sym := range scope.Symbols {
		if seen[name] {
			continue
		}
		seen[name] = true
		items = append(items, protocol.CompletionItem{
			Label: name,
			Kind:  completionKind(sym),
		})
	}
	for _, child := range scope.Children {
		// 只把命名空间作为候选；匿名块与类型成员作用域不参与
		_, isNamespace := child.LinkedNode.(*ast.Namespace)
		if (child.LinkedNode == nil || isNamespace) && child.Key != "" && child.Key[0] != '~' && !seen[child.Key] {
			seen[child.Key] = true
			items = append(items, protocol.CompletionItem{
				Label: child.Key,
				Kind:  protocol.CompletionItemKindModule,
			})
		}
	}
	return items
}

// completionKind 符号种类 → 补全项种类
func completionKind(sym symbols.Symbol) protocol.CompletionItemKind {
	switch s := sym.(type) {
	case *symbols.Function:
		return protocol.CompletionItemKindFunction
	case *symbols.Type:
		switch s.Source.(type) {
		case *ast.Enum:
			return protocol.CompletionItemKindEnum
		case *ast.Interface:
			return protocol.CompletionItemKindInterface
		}
		return protocol.CompletionItemKindClass
	case *symbols.Variable:
		return protocol.CompletionItemKindVariable
	}
	return protocol.CompletionItemKindText
}
