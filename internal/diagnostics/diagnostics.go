package diagnostics

import (
	"fmt"

	"github.com/gyxos-logan/angel-lsp/internal/token"
)

// ============================================================================
// 诊断模型
// ============================================================================
//
// 诊断从不中断分析：语法与语义阶段把诊断追加到内存收集器后继续
// 尽力恢复。与上一条诊断位置相同的诊断被丢弃，超过上限后停止收集，
// 避免错误级联刷屏。
//
// ============================================================================

// Severity 诊断级别
type Severity int

const (
	SeverityError Severity = iota
	SeverityWarning
	SeverityInfo
	SeverityHint
)

// String 返回级别的字符串表示
func (s Severity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	case SeverityInfo:
		return "info"
	case SeverityHint:
		return "hint"
	}
	return fmt.Sprintf("Severity(%d)", s)
}

// Diagnostic 一条诊断
type Diagnostic struct {
	Location token.Location
	Message  string
	Severity Severity
}

// Error 实现 error 接口，便于 CLI 用 multierr 聚合
func (d Diagnostic) Error() string {
	return fmt.Sprintf("%s: %s", d.Location, d.Message)
}

// maxDiagnostics 单次分析的诊断数量上限
const maxDiagnostics = 100

// Sink 诊断收集器
type Sink struct {
	list      []Diagnostic
	truncated bool
}

// Add 追加一条错误级诊断
func (s *Sink) Add(loc token.Location, message string) {
	s.AddSeverity(loc, message, SeverityError)
}

// AddSeverity 追加一条指定级别的诊断
//
// 与上一条诊断位置相同的诊断被丢弃（只比较最近一条，不相邻的同位置诊断仍会保留）；
// 到达上限后追加一条截断提示并停止收集。
func (s *Sink) AddSeverity(loc token.Location, message string, sev Severity) {
	if s.truncated {
		return
	}
	if len(s.list) > 0 {
		last := s.list[len(s.list)-1]
		if last.Location.Path == loc.Path && last.Location.Start == loc.Start {
			return
		}
	}
	if len(s.list) >= maxDiagnostics {
		s.list = append(s.list, Diagnostic{
			Location: loc,
			Message:  "too many diagnostics, output truncated",
			Severity: SeverityError,
		})
		s.truncated = true
		return
	}
	s.list = append(s.list, Diagnostic{Location: loc, Message: message, Severity: sev})
}

// List 返回收集到的全部诊断（源代码顺序追加）
func (s *Sink) List() []Diagnostic {
	return s.list
}

// HasErrors 是否存在错误级诊断
func (s *Sink) HasErrors() bool {
	for _, d := range s.list {
		if d.Severity == SeverityError {
			return true
		}
	}
	return false
}
