package lsp

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ============================================================================
// 日志
// ============================================================================
//
// stdio 被 JSON-RPC 占用，日志只能写文件。通过环境变量
// ANGEL_LSP_DEBUG=1 启用调试级别；错误级别始终写入 stderr。
//
// ============================================================================

// newLogger 创建服务器日志器
//
// logPath 为空时只保留 stderr 的错误输出。
func newLogger(logPath string) *zap.Logger {
	debug := os.Getenv("ANGEL_LSP_DEBUG")
	enabled := debug == "1" || debug == "true" || debug == "on"

	level := zapcore.ErrorLevel
	if enabled {
		level = zapcore.DebugLevel
	}

	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encoder := zapcore.NewConsoleEncoder(encoderCfg)

	cores := []zapcore.Core{
		zapcore.NewCore(encoder, zapcore.Lock(os.Stderr), zapcore.ErrorLevel),
	}
	if logPath != "" {
		f, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err == nil {
			cores = append(cores, zapcore.NewCore(encoder, zapcore.AddSync(f), level))
		}
	}

	return zap.New(zapcore.NewTee(cores...))
}
