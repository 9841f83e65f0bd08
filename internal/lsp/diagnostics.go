package lsp

import (
	"go.lsp.dev/protocol"

	"github.com/gyxos-logan/angel-lsp/internal/diagnostics"
	"github.com/gyxos-logan/angel-lsp/internal/token"
)

// ============================================================================
// 诊断发布
// ============================================================================

// publishDiagnostics 把文档的诊断推送给客户端
func (s *Server) publishDiagnostics(doc *Document) {
	if doc == nil || doc.State == nil {
		return
	}

	list := doc.State.Diagnostics().List()
	out := make([]protocol.Diagnostic, 0, len(list))
	for _, d := range list {
		out = append(out, protocol.Diagnostic{
			Range:    locationToRange(d.Location),
			Severity: severityOf(d.Severity),
			Source:   "angel",
			Message:  d.Message,
		})
	}

	s.sendNotification("textDocument/publishDiagnostics", protocol.PublishDiagnosticsParams{
		URI:         protocol.DocumentURI(doc.URI),
		Version:     uint32(doc.Version.Load()),
		Diagnostics: out,
	})
}

// severityOf 诊断级别映射
func severityOf(sev diagnostics.Severity) protocol.DiagnosticSeverity {
	switch sev {
	case diagnostics.SeverityWarning:
		return protocol.DiagnosticSeverityWarning
	case diagnostics.SeverityInfo:
		return protocol.DiagnosticSeverityInformation
	case diagnostics.SeverityHint:
		return protocol.DiagnosticSeverityHint
	}
	return protocol.DiagnosticSeverityError
}

// locationToRange 1 起始的源位置 → 0 起始的 LSP 范围
func locationToRange(loc token.Location) protocol.Range {
	return protocol.Range{
		Start: protocol.Position{
			Line:      uint32(max0(loc.Start.Line - 1)),
			Character: uint32(max0(loc.Start.Column - 1)),
		},
		End: protocol.Position{
			Line:      uint32(max0(loc.End.Line - 1)),
			Character: uint32(max0(loc.End.Column - 1)),
		},
	}
}

// positionInLocation 0 起始的 LSP 位置是否落在源范围内
func positionInLocation(pos protocol.Position, loc token.Location) bool {
	line := int(pos.Line) + 1
	col := int(pos.Character) + 1
	if line < loc.Start.Line || line > loc.End.Line {
		return false
	}
	if line == loc.Start.Line && col < loc.Start.Column {
		return false
	}
	if line == loc.End.Line && col > loc.End.Column {
		return false
	}
	return true
}

func max0(v int) int {
	if v < 0 {
		return 0
	}
	return v
}
