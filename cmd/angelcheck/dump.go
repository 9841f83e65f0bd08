package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/xlab/treeprint"

	"github.com/gyxos-logan/angel-lsp/internal/ast"
	"github.com/gyxos-logan/angel-lsp/internal/token"
)

// ============================================================================
// AST 树打印
// ============================================================================

var astCmd = &cobra.Command{
	Use:   "ast <file>",
	Short: "打印语法树",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}
		script, _ := analyzeSource(string(data), args[0])

		tree := treeprint.NewWithRoot("Script " + args[0])
		for _, decl := range script.Decls {
			dumpDecl(tree, decl)
		}
		for _, stmt := range script.Stats {
			dumpStmt(tree, stmt)
		}
		fmt.Print(tree.String())
		return nil
	},
}

func nodeLabel(kind string, r ast.NodeRange) string {
	loc := r.Location()
	return fmt.Sprintf("%s [%d:%d]", kind, loc.Start.Line, loc.Start.Column)
}

func dumpDecl(tree treeprint.Tree, decl ast.Declaration) {
	switch n := decl.(type) {
	case *ast.Namespace:
		branch := tree.AddBranch(nodeLabel("Namespace "+scopeNames(n.Names), n.Range))
		for _, d := range n.Script.Decls {
			dumpDecl(branch, d)
		}
	case *ast.Class:
		branch := tree.AddBranch(nodeLabel("Class "+n.Ident.Text, n.Range))
		for _, m := range n.Members {
			dumpDecl(branch, m)
		}
	case *ast.Interface:
		branch := tree.AddBranch(nodeLabel("Interface "+n.Ident.Text, n.Range))
		for _, m := range n.Members {
			dumpDecl(branch, m)
		}
	case *ast.Enum:
		branch := tree.AddBranch(nodeLabel("Enum "+n.Ident.Text, n.Range))
		for _, m := range n.Members {
			branch.AddNode(m.Ident.Text)
		}
	case *ast.Func:
		branch := tree.AddBranch(nodeLabel("Func "+n.Ident.Text, n.Range))
		if n.Body != nil {
			for _, stmt := range n.Body.Stats {
				dumpStmt(branch, stmt)
			}
		}
	case *ast.Var:
		for _, d := range n.Declarators {
			tree.AddNode(nodeLabel("Var "+d.Ident.Text+" : "+n.Type.String(), n.Range))
		}
	case *ast.VirtualProp:
		tree.AddNode(nodeLabel("VirtualProp "+n.Ident.Text, n.Range))
	case *ast.FuncDef:
		tree.AddNode(nodeLabel("FuncDef "+n.Ident.Text, n.Range))
	case *ast.TypeDef:
		tree.AddNode(nodeLabel("TypeDef "+n.Ident.Text, n.Range))
	case *ast.Import:
		tree.AddNode(nodeLabel("Import "+n.Ident.Text, n.Range))
	case *ast.Mixin:
		branch := tree.AddBranch(nodeLabel("Mixin", n.Range))
		dumpDecl(branch, n.Class)
	case *ast.IntfMethod:
		tree.AddNode(nodeLabel("IntfMethod "+n.Ident.Text, n.Range))
	}
}

func dumpStmt(tree treeprint.Tree, stmt ast.Statement) {
	switch n := stmt.(type) {
	case *ast.StatBlock:
		branch := tree.AddBranch(nodeLabel("Block", n.Range))
		for _, s := range n.Stats {
			dumpStmt(branch, s)
		}
	case *ast.Var:
		dumpDecl(tree, n)
	case *ast.If:
		branch := tree.AddBranch(nodeLabel("If", n.Range))
		if n.Then != nil {
			dumpStmt(branch, n.Then)
		}
		if n.Else != nil {
			dumpStmt(branch, n.Else)
		}
	case *ast.For:
		branch := tree.AddBranch(nodeLabel("For", n.Range))
		if n.Body != nil {
			dumpStmt(branch, n.Body)
		}
	case *ast.While:
		branch := tree.AddBranch(nodeLabel("While", n.Range))
		if n.Body != nil {
			dumpStmt(branch, n.Body)
		}
	case *ast.DoWhile:
		branch := tree.AddBranch(nodeLabel("DoWhile", n.Range))
		if n.Body != nil {
			dumpStmt(branch, n.Body)
		}
	case *ast.Switch:
		branch := tree.AddBranch(nodeLabel("Switch", n.Range))
		for _, c := range n.Cases {
			caseBranch := branch.AddBranch(nodeLabel("Case", c.Range))
			for _, s := range c.Stats {
				dumpStmt(caseBranch, s)
			}
		}
	case *ast.Try:
		tree.AddNode(nodeLabel("Try", n.Range))
	case *ast.Return:
		tree.AddNode(nodeLabel("Return", n.Range))
	case *ast.Break:
		tree.AddNode(nodeLabel("Break", n.Range))
	case *ast.Continue:
		tree.AddNode(nodeLabel("Continue", n.Range))
	case *ast.ExprStat:
		tree.AddNode(nodeLabel("ExprStat", n.Range))
	}
}

func scopeNames(names []*token.Token) string {
	out := ""
	for i, name := range names {
		if i > 0 {
			out += "::"
		}
		out += name.Text
	}
	return out
}
