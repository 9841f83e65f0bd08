package lsp

import (
	"sync"

	"go.uber.org/atomic"

	"github.com/gyxos-logan/angel-lsp/internal/ast"
	"github.com/gyxos-logan/angel-lsp/internal/analyzer"
	"github.com/gyxos-logan/angel-lsp/internal/config"
	"github.com/gyxos-logan/angel-lsp/internal/parser"
	"github.com/gyxos-logan/angel-lsp/internal/symbols"
	"github.com/gyxos-logan/angel-lsp/internal/token"
	"github.com/gyxos-logan/angel-lsp/internal/tokenizer"
)

// ============================================================================
// 文档管理
// ============================================================================
//
// 每个打开的文档持有一份完整的分析产物（记号、AST、作用域树、
// 诊断与高亮）。分析是单线程的；多个文档可以并行分析，互不共享
// 状态。
//
// ============================================================================

// Document 一个打开的文档及其分析产物
type Document struct {
	URI     string
	Path    string
	Text    string
	Version atomic.Int32

	Tokens []*token.Token
	Script *ast.Script
	State  *parser.State
	Global *symbols.Scope
}

// analyze 重新分析文档：记号化 → 语法分析 → 语义分析
func (d *Document) analyze(cfg *config.Config) {
	d.Tokens = tokenizer.Tokenize(d.Text, d.Path)
	d.Script, d.State = parser.Parse(d.Tokens, d.Path)
	d.Global = analyzer.Analyze(d.Script, d.State,
		analyzer.WithArrayType(cfg.Engine.ArrayType))
}

// DocumentManager 打开文档的集合
type DocumentManager struct {
	mu   sync.RWMutex
	docs map[string]*Document
	cfg  *config.Config
}

// NewDocumentManager 创建文档管理器
func NewDocumentManager(cfg *config.Config) *DocumentManager {
	if cfg == nil {
		cfg = config.Default()
	}
	return &DocumentManager{
		docs: make(map[string]*Document),
		cfg:  cfg,
	}
}

// Open 打开文档并做首次分析
func (m *DocumentManager) Open(uri, path, text string, version int32) *Document {
	d := &Document{URI: uri, Path: path, Text: text}
	d.Version.Store(version)
	d.analyze(m.cfg)

	m.mu.Lock()
	m.docs[uri] = d
	m.mu.Unlock()
	return d
}

// Update 全量更新文档内容并重新分析
func (m *DocumentManager) Update(uri, text string, version int32) *Document {
	m.mu.Lock()
	d, ok := m.docs[uri]
	m.mu.Unlock()
	if !ok {
		return nil
	}
	d.Text = text
	d.Version.Store(version)
	d.analyze(m.cfg)
	return d
}

// Close 关闭文档
func (m *DocumentManager) Close(uri string) {
	m.mu.Lock()
	delete(m.docs, uri)
	m.mu.Unlock()
}

// Get 取得已打开的文档
func (m *DocumentManager) Get(uri string) *Document {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.docs[uri]
}
