package diagnostics

import (
	"fmt"
	"strings"
)

// ============================================================================
// 报告格式化
// ============================================================================
//
// CLI 输出格式：
//
//   error: Expected ';'
//     --> script.as:3:14
//      |
//    3 | int x = 1 + 2
//      |              ^
//
// ============================================================================

// Reporter 把诊断渲染为带源码上下文的文本
type Reporter struct {
	sources map[string][]string // 路径 -> 源代码行
}

// NewReporter 创建报告器
func NewReporter() *Reporter {
	return &Reporter{sources: make(map[string][]string)}
}

// SetSource 登记一个文件的源代码
func (r *Reporter) SetSource(path, content string) {
	r.sources[path] = strings.Split(content, "\n")
}

// Format 渲染单条诊断
func (r *Reporter) Format(d Diagnostic) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s: %s\n", d.Severity, d.Message)
	fmt.Fprintf(&sb, "  --> %s:%d:%d\n", d.Location.Path, d.Location.Start.Line, d.Location.Start.Column)

	lines, ok := r.sources[d.Location.Path]
	line := d.Location.Start.Line
	if !ok || line < 1 || line > len(lines) {
		return sb.String()
	}

	src := lines[line-1]
	gutter := len(fmt.Sprintf("%d", line))
	fmt.Fprintf(&sb, "%s |\n", strings.Repeat(" ", gutter))
	fmt.Fprintf(&sb, "%d | %s\n", line, src)

	// 下划线覆盖诊断范围（跨行时只标到行尾）
	startCol := d.Location.Start.Column
	endCol := d.Location.End.Column
	if d.Location.End.Line != line || endCol <= startCol {
		endCol = startCol + 1
	}
	if startCol < 1 {
		startCol = 1
	}
	fmt.Fprintf(&sb, "%s | %s%s\n",
		strings.Repeat(" ", gutter),
		strings.Repeat(" ", startCol-1),
		strings.Repeat("^", endCol-startCol))

	return sb.String()
}

// FormatAll 渲染一组诊断
func (r *Reporter) FormatAll(list []Diagnostic) string {
	var sb strings.Builder
	for i, d := range list {
		if i > 0 {
			sb.WriteByte('\n')
		}
		sb.WriteString(r.Format(d))
	}
	return sb.String()
}
