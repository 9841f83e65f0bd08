package parser

import (
	"github.com/gyxos-logan/angel-lsp/internal/ast"
	"github.com/gyxos-logan/angel-lsp/internal/highlight"
)

// ============================================================================
// 语句
// ============================================================================

// parseStatBlock 语句块
// STATBLOCK ::= '{' {VAR | STATEMENT} '}'
//
// 块内无成员匹配时发射诊断并消费一个记号后重试，保证游标前进。
func parseStatBlock(s *State) (*ast.StatBlock, Res) {
	start := s.Next()
	if !start.Is("{") {
		return nil, Mismatch
	}
	s.Commit(highlight.Operator)

	n := &ast.StatBlock{}
	for !s.IsEnd() && !s.Next().Is("}") {
		if v, res := parseVar(s); res != Mismatch {
			if res == Ok {
				n.Stats = append(n.Stats, v)
			}
			continue
		}
		if stmt, res := parseStatement(s); res != Mismatch {
			if res == Ok {
				n.Stats = append(n.Stats, stmt)
			}
			continue
		}
		s.Error("Unexpected token '" + s.Next().Text + "'")
		s.Step()
	}
	s.Expect("}", highlight.Operator)

	n.Range = ast.NodeRange{Start: start, End: s.Prev()}
	return n, Ok
}

// parseStatement 单条语句
// STATEMENT ::= IF|FOR|WHILE|RETURN|STATBLOCK|BREAK|CONTINUE|DOWHILE|SWITCH|EXPRSTAT|TRY
func parseStatement(s *State) (ast.Statement, Res) {
	switch s.Next().Text {
	case "{":
		return parseStatBlock(s)
	case "if":
		return parseIf(s)
	case "for":
		return parseFor(s)
	case "while":
		return parseWhile(s)
	case "do":
		return parseDoWhile(s)
	case "switch":
		return parseSwitch(s)
	case "try":
		return parseTry(s)
	case "return":
		return parseReturn(s)
	case "break":
		return parseBreak(s)
	case "continue":
		return parseContinue(s)
	}
	return parseExprStat(s)
}

// parseIf 条件语句
// IF ::= 'if' '(' ASSIGN ')' STATEMENT ['else' STATEMENT]
func parseIf(s *State) (*ast.If, Res) {
	start := s.Next()
	s.Commit(highlight.Keyword)

	n := &ast.If{}
	if !s.Expect("(", highlight.Operator) {
		return nil, Pending
	}
	cond, res := parseAssign(s)
	if res != Ok {
		s.Error("Expected expression")
	} else {
		n.Cond = cond
	}
	s.Expect(")", highlight.Operator)

	then, res := parseStatement(s)
	if res != Ok {
		s.Error("Expected statement")
		n.Range = ast.NodeRange{Start: start, End: s.Prev()}
		return n, Pending
	}
	n.Then = then

	if s.Next().Is("else") {
		s.Commit(highlight.Keyword)
		els, res := parseStatement(s)
		if res != Ok {
			s.Error("Expected statement")
		} else {
			n.Else = els
		}
	}

	n.Range = ast.NodeRange{Start: start, End: s.Prev()}
	return n, Ok
}

// parseFor 循环语句
// FOR ::= 'for' '(' (VAR|EXPRSTAT) EXPRSTAT [ASSIGN {',' ASSIGN}] ')' STATEMENT
func parseFor(s *State) (*ast.For, Res) {
	start := s.Next()
	s.Commit(highlight.Keyword)

	n := &ast.For{}
	if !s.Expect("(", highlight.Operator) {
		return nil, Pending
	}

	if v, res := parseVar(s); res == Ok {
		n.Init = v
	} else if res == Mismatch {
		if stmt, res := parseExprStat(s); res == Ok {
			n.Init = stmt
		} else {
			s.Error("Expected initializer statement")
		}
	}

	// 条件部分是一个表达式语句（允许为空）
	if s.Next().Is(";") {
		s.Commit(highlight.Operator)
	} else {
		cond, res := parseAssign(s)
		if res != Ok {
			s.Error("Expected expression")
		} else {
			n.Cond = cond
		}
		s.Expect(";", highlight.Operator)
	}

	for !s.IsEnd() && !s.Next().Is(")") {
		post, res := parseAssign(s)
		if res != Ok {
			s.Error("Expected expression")
			break
		}
		n.Post = append(n.Post, post)
		if !s.Next().Is(",") {
			break
		}
		s.Commit(highlight.Operator)
	}
	s.Expect(")", highlight.Operator)

	body, res := parseStatement(s)
	if res != Ok {
		s.Error("Expected statement")
		n.Range = ast.NodeRange{Start: start, End: s.Prev()}
		return n, Pending
	}
	n.Body = body

	n.Range = ast.NodeRange{Start: start, End: s.Prev()}
	return n, Ok
}

// parseWhile 循环语句
// WHILE ::= 'while' '(' ASSIGN ')' STATEMENT
func parseWhile(s *State) (*ast.While, Res) {
	start := s.Next()
	s.Commit(highlight.Keyword)

	n := &ast.While{}
	if !s.Expect("(", highlight.Operator) {
		return nil, Pending
	}
	cond, res := parseAssign(s)
	if res != Ok {
		s.Error("Expected expression")
	} else {
		n.Cond = cond
	}
	s.Expect(")", highlight.Operator)

	body, res := parseStatement(s)
	if res != Ok {
		s.Error("Expected statement")
		n.Range = ast.NodeRange{Start: start, End: s.Prev()}
		return n, Pending
	}
	n.Body = body

	n.Range = ast.NodeRange{Start: start, End: s.Prev()}
	return n, Ok
}

// parseDoWhile 循环语句
// DOWHILE ::= 'do' STATEMENT 'while' '(' ASSIGN ')' ';'
func parseDoWhile(s *State) (*ast.DoWhile, Res) {
	start := s.Next()
	s.Commit(highlight.Keyword)

	n := &ast.DoWhile{}
	body, res := parseStatement(s)
	if res != Ok {
		s.Error("Expected statement")
		return nil, Pending
	}
	n.Body = body

	if !s.Expect("while", highlight.Keyword) {
		n.Range = ast.NodeRange{Start: start, End: s.Prev()}
		return n, Pending
	}
	s.Expect("(", highlight.Operator)
	cond, res := parseAssign(s)
	if res != Ok {
		s.Error("Expected expression")
	} else {
		n.Cond = cond
	}
	s.Expect(")", highlight.Operator)
	s.Expect(";", highlight.Operator)

	n.Range = ast.NodeRange{Start: start, End: s.Prev()}
	return n, Ok
}

// parseSwitch 分支语句
// SWITCH ::= 'switch' '(' ASSIGN ')' '{' {CASE} '}'
func parseSwitch(s *State) (*ast.Switch, Res) {
	start := s.Next()
	s.Commit(highlight.Keyword)

	n := &ast.Switch{}
	s.Expect("(", highlight.Operator)
	cond, res := parseAssign(s)
	if res != Ok {
		s.Error("Expected expression")
	} else {
		n.Cond = cond
	}
	s.Expect(")", highlight.Operator)

	if !s.Expect("{", highlight.Operator) {
		n.Range = ast.NodeRange{Start: start, End: s.Prev()}
		return n, Pending
	}

	for !s.IsEnd() && !s.Next().Is("}") {
		c, res := parseCase(s)
		if res == Ok {
			n.Cases = append(n.Cases, c)
			continue
		}
		if res == Pending {
			continue
		}
		s.Error("Expected 'case' or 'default'")
		s.Step()
	}
	s.Expect("}", highlight.Operator)

	n.Range = ast.NodeRange{Start: start, End: s.Prev()}
	return n, Ok
}

// parseCase 单个分支；Expr 为 nil 表示 default
// CASE ::= (('case' EXPR) | 'default') ':' {STATEMENT}
//
// 语句吸收到下一个 Mismatch 为止（即兄弟 case 或右大括号）；
// Pending 既不终止循环也不追加语句。
func parseCase(s *State) (*ast.Case, Res) {
	start := s.Next()
	n := &ast.Case{}

	switch start.Text {
	case "case":
		s.Commit(highlight.Keyword)
		expr, res := parseExpr(s)
		if res != Ok {
			s.Error("Expected expression")
		} else {
			n.Expr = expr
		}
	case "default":
		s.Commit(highlight.Keyword)
	default:
		return nil, Mismatch
	}
	s.Expect(":", highlight.Operator)

	for !s.IsEnd() {
		if v, res := parseVar(s); res != Mismatch {
			if res == Ok {
				n.Stats = append(n.Stats, v)
			}
			continue
		}
		stmt, res := parseStatement(s)
		if res == Mismatch {
			break
		}
		if res == Ok {
			n.Stats = append(n.Stats, stmt)
		}
	}

	n.Range = ast.NodeRange{Start: start, End: s.Prev()}
	return n, Ok
}

// parseTry 异常处理语句
// TRY ::= 'try' STATBLOCK 'catch' STATBLOCK
func parseTry(s *State) (*ast.Try, Res) {
	start := s.Next()
	s.Commit(highlight.Keyword)

	n := &ast.Try{}
	tryBlock, res := parseStatBlock(s)
	if res != Ok {
		s.Error("Expected statement block")
		return nil, Pending
	}
	n.TryBlock = tryBlock

	if !s.Expect("catch", highlight.Keyword) {
		n.Range = ast.NodeRange{Start: start, End: s.Prev()}
		return n, Pending
	}
	catchBlock, res := parseStatBlock(s)
	if res != Ok {
		s.Error("Expected statement block")
		n.Range = ast.NodeRange{Start: start, End: s.Prev()}
		return n, Pending
	}
	n.CatchBlock = catchBlock

	n.Range = ast.NodeRange{Start: start, End: s.Prev()}
	return n, Ok
}

// parseReturn 返回语句
// RETURN ::= 'return' [ASSIGN] ';'
func parseReturn(s *State) (*ast.Return, Res) {
	start := s.Next()
	s.Commit(highlight.Keyword)

	n := &ast.Return{}
	if !s.Next().Is(";") {
		value, res := parseAssign(s)
		if res != Ok {
			s.Error("Expected expression")
		} else {
			n.Value = value
		}
	}
	s.Expect(";", highlight.Operator)

	n.Range = ast.NodeRange{Start: start, End: s.Prev()}
	return n, Ok
}

// parseBreak 跳出语句
func parseBreak(s *State) (*ast.Break, Res) {
	start := s.Next()
	s.Commit(highlight.Keyword)
	s.Expect(";", highlight.Operator)
	return &ast.Break{Range: ast.NodeRange{Start: start, End: s.Prev()}}, Ok
}

// parseContinue 继续语句
func parseContinue(s *State) (*ast.Continue, Res) {
	start := s.Next()
	s.Commit(highlight.Keyword)
	s.Expect(";", highlight.Operator)
	return &ast.Continue{Range: ast.NodeRange{Start: start, End: s.Prev()}}, Ok
}

// parseExprStat 表达式语句（';' 单独成句时表达式为 nil）
// EXPRSTAT ::= [ASSIGN] ';'
func parseExprStat(s *State) (*ast.ExprStat, Res) {
	start := s.Next()
	if start.Is(";") {
		s.Commit(highlight.Operator)
		return &ast.ExprStat{Range: ast.NodeRange{Start: start, End: s.Prev()}}, Ok
	}

	expr, res := parseAssign(s)
	if res != Ok {
		return nil, res
	}
	s.Expect(";", highlight.Operator)

	return &ast.ExprStat{
		Range: ast.NodeRange{Start: start, End: s.Prev()},
		Expr:  expr,
	}, Ok
}
