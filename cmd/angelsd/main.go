package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/gyxos-logan/angel-lsp/internal/config"
	"github.com/gyxos-logan/angel-lsp/internal/lsp"
)

const Version = "0.1.0"

func main() {
	showVersion := flag.Bool("version", false, "显示版本信息")
	showHelp := flag.Bool("help", false, "显示帮助信息")
	logFile := flag.String("log", "", "日志文件路径（设置环境变量 ANGEL_LSP_DEBUG=1 启用调试日志）")
	configFile := flag.String("config", "", "angel.toml 配置文件路径")

	flag.Parse()

	if *showVersion {
		fmt.Printf("AngelScript Language Server v%s\n", Version)
		os.Exit(0)
	}
	if *showHelp {
		printUsage()
		os.Exit(0)
	}

	cfg := config.Default()
	if *configFile != "" {
		loaded, err := config.Load(*configFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "config error: %v\n", err)
			os.Exit(1)
		}
		cfg = loaded
	} else if wd, err := os.Getwd(); err == nil {
		cfg = config.LoadNear(wd)
	}
	if *logFile != "" {
		cfg.Server.LogFile = *logFile
	}

	server := lsp.NewServer(cfg)
	if err := server.Run(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "LSP server error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("AngelScript Language Server")
	fmt.Println()
	fmt.Println("用法:")
	fmt.Println("  angelsd [options]")
	fmt.Println()
	fmt.Println("选项:")
	fmt.Println("  --version        显示版本信息")
	fmt.Println("  --help           显示帮助信息")
	fmt.Println("  --log <file>     日志文件路径")
	fmt.Println("  --config <file>  angel.toml 配置文件路径")
	fmt.Println()
	fmt.Println("环境变量:")
	fmt.Println("  ANGEL_LSP_DEBUG=1  启用调试日志（默认关闭）")
	fmt.Println()
	fmt.Println("LSP 服务器通过标准输入输出 (stdio) 与编辑器通信。")
}
