package parser

import (
	"github.com/gyxos-logan/angel-lsp/internal/diagnostics"
	"github.com/gyxos-logan/angel-lsp/internal/highlight"
	"github.com/gyxos-logan/angel-lsp/internal/token"
)

// ============================================================================
// State - 语法分析器状态
// ============================================================================
//
// State 是记号序列上的游标，提供提交/回溯、期望匹配、诊断发射
// 与子分析备忘缓存。注释记号在构造时过滤并直接分类，
// 相邻性判断基于字节偏移，不受过滤影响。
//
// ============================================================================

// State 语法分析器状态
type State struct {
	tokens []*token.Token
	cursor int
	path   string
	end    *token.Token // 结束哨兵，越界访问时返回

	diags  *diagnostics.Sink
	hl     *highlight.Sink
	caches map[cacheKey]cacheEntry
}

// NewState 创建语法分析器状态
//
// 输入为词法分析产出的完整序列；注释在此过滤并分类，
// 其余记号重新编号，回溯以编号为键。
func NewState(tokens []*token.Token, path string) *State {
	s := &State{
		path:   path,
		diags:  &diagnostics.Sink{},
		hl:     &highlight.Sink{},
		caches: make(map[cacheKey]cacheEntry),
	}

	filtered := make([]*token.Token, 0, len(tokens))
	for _, tok := range tokens {
		if tok.Kind == token.Comment {
			s.hl.Classify(tok, highlight.Comment)
			continue
		}
		tok.Index = len(filtered)
		filtered = append(filtered, tok)
	}
	s.tokens = filtered

	endPos := token.Position{Line: 1, Column: 1}
	if len(filtered) > 0 {
		endPos = filtered[len(filtered)-1].Location.End
	}
	s.end = token.NewEnd(path, endPos, len(filtered))
	return s
}

// Next 窥视游标偏移 offset 处的记号，不消费
//
// 越界时返回结束哨兵。
func (s *State) Next(offset ...int) *token.Token {
	idx := s.cursor
	if len(offset) > 0 {
		idx += offset[0]
	}
	if idx >= len(s.tokens) {
		return s.end
	}
	return s.tokens[idx]
}

// Prev 返回最近提交的记号
func (s *State) Prev() *token.Token {
	if s.cursor == 0 {
		return s.end
	}
	return s.tokens[s.cursor-1]
}

// Commit 给当前记号记录高亮类别并前进游标
func (s *State) Commit(kind highlight.Kind) {
	s.hl.Classify(s.Next(), kind)
	s.Step()
}

// CommitVirtual 提交一个虚拟记号
//
// 游标前进虚拟记号覆盖的真实记号数量。
func (s *State) CommitVirtual(v *token.Token, kind highlight.Kind) {
	s.hl.Classify(v, kind)
	for i := 0; i < v.Covers; i++ {
		s.Step()
	}
}

// Step 前进游标但不做分类（错误恢复用）
func (s *State) Step() {
	if s.cursor < len(s.tokens) {
		s.cursor++
	}
}

// Backtrack 把游标回退到此前观察过的记号处
func (s *State) Backtrack(tok *token.Token) {
	s.cursor = tok.Index
}

// Expect 若当前记号文本等于 text 则提交并返回 true；
// 否则发射 "Expected 'text'" 诊断并返回 false（游标不动）。
func (s *State) Expect(text string, kind highlight.Kind) bool {
	if s.Next().Text == text && !s.Next().IsEnd() {
		s.Commit(kind)
		return true
	}
	s.Error("Expected '" + text + "'")
	return false
}

// Error 在当前记号位置发射一条诊断
func (s *State) Error(message string) {
	s.diags.Add(s.Next().Location, message)
}

// ErrorAt 在指定记号位置发射一条诊断
func (s *State) ErrorAt(tok *token.Token, message string) {
	s.diags.Add(tok.Location, message)
}

// IsEnd 游标是否已越过最后一个记号
func (s *State) IsEnd() bool {
	return s.cursor >= len(s.tokens)
}

// Reclassify 语义分析改判记号的高亮类别
func (s *State) Reclassify(tok *token.Token, kind highlight.Kind) {
	s.hl.Classify(tok, kind)
}

// Diagnostics 返回诊断收集器
func (s *State) Diagnostics() *diagnostics.Sink {
	return s.diags
}

// Highlights 返回高亮分类收集器
func (s *State) Highlights() *highlight.Sink {
	return s.hl
}

// ============================================================================
// 备忘缓存
// ============================================================================
//
// Scope、TypeTemplates、EntityAttribute 这三个产生式在每个类型、
// 每个调用、每个变量访问处都会被推测性尝试；不加缓存时递归下降
// 在病态输入上呈超线性。键为 (产生式, 游标位置)，值为解析结果
// （nil 哨兵表示"试过且失败"）与解析后的游标位置。
//
// Restore 同时回放存储期间记录的高亮分类，保证后写覆盖的次序
// 与首次解析一致。
//
// ============================================================================

// CacheKind 被缓存的非终结符
type CacheKind int

const (
	CacheScope CacheKind = iota
	CacheTypeTemplates
	CacheEntityAttribute
)

type cacheKey struct {
	kind CacheKind
	pos  int
}

type cacheEntry struct {
	result     any
	endCursor  int
	highlights []highlight.Classified
}

// CacheHandle 一次备忘查询的句柄
type CacheHandle struct {
	s       *State
	key     cacheKey
	hlStart int
}

// Cache 在当前游标位置为指定非终结符创建备忘句柄
//
// 调用方先查 Restore，未命中时执行解析再 Store 结果。
func (s *State) Cache(kind CacheKind) *CacheHandle {
	return &CacheHandle{
		s:       s,
		key:     cacheKey{kind: kind, pos: s.cursor},
		hlStart: len(s.hl.List()),
	}
}

// Restore 查询缓存；命中时返回存储的结果并把游标移到解析后位置
func (c *CacheHandle) Restore() (any, bool) {
	entry, ok := c.s.caches[c.key]
	if !ok {
		return nil, false
	}
	c.s.cursor = entry.endCursor
	for _, h := range entry.highlights {
		c.s.hl.Classify(h.Token, h.Kind)
	}
	return entry.result, true
}

// Store 把解析结果与当前游标位置存入缓存
func (c *CacheHandle) Store(result any) {
	hls := c.s.hl.List()[c.hlStart:]
	stored := make([]highlight.Classified, len(hls))
	copy(stored, hls)
	c.s.caches[c.key] = cacheEntry{
		result:     result,
		endCursor:  c.s.cursor,
		highlights: stored,
	}
}
