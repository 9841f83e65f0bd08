package lsp

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/segmentio/encoding/json"
	"go.lsp.dev/protocol"
	"go.lsp.dev/uri"
	"go.uber.org/zap"

	"github.com/gyxos-logan/angel-lsp/internal/config"
)

// ============================================================================
// Server - 语言服务器
// ============================================================================
//
// 通过标准输入输出与编辑器通信：Content-Length 帧 + JSON-RPC 2.0。
// 编解码使用 segmentio/encoding 的 json 实现。
//
// ============================================================================

// Server LSP 服务器
type Server struct {
	documents *DocumentManager
	cfg       *config.Config
	logger    *zap.Logger

	reader *bufio.Reader
	writer io.Writer
	mu     sync.Mutex // 写入串行化

	initialized bool
	shutdown    bool
}

// NewServer 创建 LSP 服务器
func NewServer(cfg *config.Config) *Server {
	if cfg == nil {
		cfg = config.Default()
	}
	return &Server{
		documents: NewDocumentManager(cfg),
		cfg:       cfg,
		logger:    newLogger(cfg.Server.LogFile),
		reader:    bufio.NewReader(os.Stdin),
		writer:    os.Stdout,
	}
}

// Run 启动服务器主循环
func (s *Server) Run(ctx context.Context) error {
	s.logger.Info("angel language server started")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		msg, err := s.readMessage()
		if err != nil {
			if err == io.EOF {
				s.logger.Info("client disconnected")
				return nil
			}
			s.logger.Error("read message", zap.Error(err))
			continue
		}

		s.handleMessage(msg)

		if s.shutdown {
			s.logger.Info("server shutdown")
			return nil
		}
	}
}

// readMessage 读取一帧 LSP 消息
func (s *Server) readMessage() ([]byte, error) {
	var contentLength int
	for {
		line, err := s.reader.ReadString('\n')
		if err != nil {
			return nil, err
		}
		line = strings.TrimSpace(line)
		if line == "" {
			break
		}
		if strings.HasPrefix(line, "Content-Length:") {
			lengthStr := strings.TrimSpace(strings.TrimPrefix(line, "Content-Length:"))
			contentLength, err = strconv.Atoi(lengthStr)
			if err != nil {
				return nil, fmt.Errorf("invalid Content-Length: %s", lengthStr)
			}
		}
	}
	if contentLength == 0 {
		return nil, fmt.Errorf("missing Content-Length header")
	}

	content := make([]byte, contentLength)
	if _, err := io.ReadFull(s.reader, content); err != nil {
		return nil, err
	}
	return content, nil
}

// sendMessage 发送一帧 LSP 消息
func (s *Server) sendMessage(msg interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	content, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	header := fmt.Sprintf("Content-Length: %d\r\n\r\n", len(content))
	if _, err := s.writer.Write([]byte(header)); err != nil {
		return err
	}
	_, err = s.writer.Write(content)
	return err
}

// handleMessage 解析并分发一条消息
func (s *Server) handleMessage(msg []byte) {
	var baseMsg struct {
		JSONRPC string          `json:"jsonrpc"`
		ID      json.RawMessage `json:"id,omitempty"`
		Method  string          `json:"method"`
		Params  json.RawMessage `json:"params,omitempty"`
	}
	if err := json.Unmarshal(msg, &baseMsg); err != nil {
		s.logger.Error("parse message", zap.Error(err))
		return
	}

	s.logger.Debug("received", zap.String("method", baseMsg.Method))

	switch baseMsg.Method {
	case "initialize":
		s.handleInitialize(baseMsg.ID, baseMsg.Params)
	case "initialized":
		s.initialized = true
	case "shutdown":
		s.sendResult(baseMsg.ID, nil)
	case "exit":
		s.shutdown = true
	case "textDocument/didOpen":
		s.handleDidOpen(baseMsg.Params)
	case "textDocument/didChange":
		s.handleDidChange(baseMsg.Params)
	case "textDocument/didClose":
		s.handleDidClose(baseMsg.Params)
	case "textDocument/completion":
		s.handleCompletion(baseMsg.ID, baseMsg.Params)
	case "textDocument/definition":
		s.handleDefinition(baseMsg.ID, baseMsg.Params)
	case "textDocument/semanticTokens/full":
		s.handleSemanticTokensFull(baseMsg.ID, baseMsg.Params)
	case "$/cancelRequest":
		// 分析是同步完成的，取消请求直接忽略
	default:
		if baseMsg.ID != nil {
			s.sendError(baseMsg.ID, -32601, "Method not found: "+baseMsg.Method)
		}
	}
}

// handleInitialize 返回服务器能力
func (s *Server) handleInitialize(id json.RawMessage, params json.RawMessage) {
	var initParams protocol.InitializeParams
	if err := json.Unmarshal(params, &initParams); err != nil {
		s.sendError(id, -32700, "Parse error")
		return
	}

	result := map[string]interface{}{
		"capabilities": map[string]interface{}{
			"textDocumentSync": map[string]interface{}{
				"openClose": true,
				"change":    1, // TextDocumentSyncKindFull
			},
			"completionProvider": map[string]interface{}{
				"triggerCharacters": []string{".", ":"},
			},
			"definitionProvider":     true,
			"semanticTokensProvider": semanticTokensProviderOptions(),
		},
		"serverInfo": map[string]interface{}{
			"name":    "angelsd",
			"version": "0.1.0",
		},
	}
	s.sendResult(id, result)
}

// handleDidOpen 文档打开
func (s *Server) handleDidOpen(params json.RawMessage) {
	var p protocol.DidOpenTextDocumentParams
	if err := json.Unmarshal(params, &p); err != nil {
		s.logger.Error("didOpen params", zap.Error(err))
		return
	}
	docURI := string(p.TextDocument.URI)
	doc := s.documents.Open(docURI, uriToPath(docURI), p.TextDocument.Text, p.TextDocument.Version)
	s.publishDiagnostics(doc)
}

// handleDidChange 文档变更（全量同步）
func (s *Server) handleDidChange(params json.RawMessage) {
	var p protocol.DidChangeTextDocumentParams
	if err := json.Unmarshal(params, &p); err != nil {
		s.logger.Error("didChange params", zap.Error(err))
		return
	}
	if len(p.ContentChanges) == 0 {
		return
	}
	text := p.ContentChanges[len(p.ContentChanges)-1].Text
	doc := s.documents.Update(string(p.TextDocument.URI), text, p.TextDocument.Version)
	if doc != nil {
		s.publishDiagnostics(doc)
	}
}

// handleDidClose 文档关闭，清空诊断
func (s *Server) handleDidClose(params json.RawMessage) {
	var p protocol.DidCloseTextDocumentParams
	if err := json.Unmarshal(params, &p); err != nil {
		s.logger.Error("didClose params", zap.Error(err))
		return
	}
	s.documents.Close(string(p.TextDocument.URI))
	s.sendNotification("textDocument/publishDiagnostics", protocol.PublishDiagnosticsParams{
		URI:         p.TextDocument.URI,
		Diagnostics: []protocol.Diagnostic{},
	})
}

// sendResult 发送成功响应
func (s *Server) sendResult(id json.RawMessage, result interface{}) {
	s.sendMessage(map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      id,
		"result":  result,
	})
}

// sendError 发送错误响应
func (s *Server) sendError(id json.RawMessage, code int, message string) {
	s.sendMessage(map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      id,
		"error": map[string]interface{}{
			"code":    code,
			"message": message,
		},
	})
}

// sendNotification 发送通知
func (s *Server) sendNotification(method string, params interface{}) {
	s.sendMessage(map[string]interface{}{
		"jsonrpc": "2.0",
		"method":  method,
		"params":  params,
	})
}

// uriToPath URI 转文件路径
func uriToPath(docURI string) string {
	u, err := uri.Parse(docURI)
	if err != nil {
		return docURI
	}
	return u.Filename()
}
