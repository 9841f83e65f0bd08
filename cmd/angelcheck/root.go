package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/multierr"

	"github.com/gyxos-logan/angel-lsp/internal/analyzer"
	"github.com/gyxos-logan/angel-lsp/internal/ast"
	"github.com/gyxos-logan/angel-lsp/internal/config"
	"github.com/gyxos-logan/angel-lsp/internal/diagnostics"
	"github.com/gyxos-logan/angel-lsp/internal/parser"
	"github.com/gyxos-logan/angel-lsp/internal/tokenizer"
)

// angelcheck 是语言服务前端的批处理入口：
// 对一组脚本做完整的语法与语义分析并打印诊断。

var rootCmd = &cobra.Command{
	Use:   "angelcheck",
	Short: "AngelScript 脚本静态检查",
	Long:  "对 AngelScript 脚本做语法与语义分析，输出诊断、AST 或记号序列。",
}

func init() {
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(astCmd)
	rootCmd.AddCommand(tokensCmd)
}

var checkCmd = &cobra.Command{
	Use:   "check <file>...",
	Short: "分析脚本并打印诊断",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var errs error
		for _, path := range args {
			if err := checkFile(path); err != nil {
				errs = multierr.Append(errs, err)
			}
		}
		if errs != nil {
			cmd.SilenceUsage = true
			cmd.SilenceErrors = true
			return errs
		}
		return nil
	},
}

// checkFile 分析单个文件；存在错误级诊断时返回聚合错误
func checkFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	source := string(data)

	_, state := analyzeSource(source, path)

	reporter := diagnostics.NewReporter()
	reporter.SetSource(path, source)

	list := state.Diagnostics().List()
	if len(list) == 0 {
		fmt.Printf("%s: ok\n", path)
		return nil
	}
	fmt.Print(reporter.FormatAll(list))

	var errs error
	for _, d := range list {
		if d.Severity == diagnostics.SeverityError {
			errs = multierr.Append(errs, d)
		}
	}
	return errs
}

// analyzeSource 完整的分析流水线：记号化 → 语法 → 语义
func analyzeSource(source, path string) (*ast.Script, *parser.State) {
	cfg := config.LoadNear(path)
	tokens := tokenizer.Tokenize(source, path)
	script, state := parser.Parse(tokens, path)
	analyzer.Analyze(script, state, analyzer.WithArrayType(cfg.Engine.ArrayType))
	return script, state
}

var tokensCmd = &cobra.Command{
	Use:   "tokens <file>",
	Short: "打印记号序列",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}
		for _, tok := range tokenizer.Tokenize(string(data), args[0]) {
			fmt.Println(tok.String())
		}
		return nil
	},
}
