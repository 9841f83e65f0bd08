package parser

import (
	"github.com/gyxos-logan/angel-lsp/internal/ast"
	"github.com/gyxos-logan/angel-lsp/internal/highlight"
	"github.com/gyxos-logan/angel-lsp/internal/token"
)

// ============================================================================
// 虚拟记号合成
// ============================================================================

// synthesizeOp 返回当前游标处的运算符记号
//
// 词法分析保持 '>' 单独成符；在运算符位置上，'>' 与严格相邻的
// 后续记号合成 '>='、'>>'、'>>='、'>>>'、'>>>='，'!' 与紧随的 'is'
// 合成 '!is'。合成记号共享覆盖底层范围的位置，不插入输入序列。
func synthesizeOp(s *State) *token.Token {
	tok := s.Next()
	if tok.Is(">") {
		t1 := s.Next(1)
		if !token.Adjacent(tok, t1) {
			return tok
		}
		if t1.Is(">") {
			t2 := s.Next(2)
			if token.Adjacent(t1, t2) {
				if t2.Is(">") {
					t3 := s.Next(3)
					if token.Adjacent(t2, t3) && t3.Is("=") {
						return token.NewVirtual(">>>=", tok, t1, t2, t3)
					}
					return token.NewVirtual(">>>", tok, t1, t2)
				}
				if t2.Is("=") {
					return token.NewVirtual(">>=", tok, t1, t2)
				}
			}
			return token.NewVirtual(">>", tok, t1)
		}
		if t1.Is("=") {
			return token.NewVirtual(">=", tok, t1)
		}
		return tok
	}
	if tok.Is("!") {
		t1 := s.Next(1)
		if token.Adjacent(tok, t1) && t1.Is("is") {
			return token.NewVirtual("!is", tok, t1)
		}
	}
	return tok
}

// commitOp 提交一个（可能是虚拟的）运算符记号
func commitOp(s *State, op *token.Token) {
	if op.Virtual {
		s.CommitVirtual(op, highlight.Operator)
	} else {
		s.Commit(highlight.Operator)
	}
}

// ============================================================================
// 表达式
// ============================================================================

// parseExpr 表达式：二元运算符分隔的项列表（右倾结构）
// EXPR ::= EXPRTERM {EXPROP EXPRTERM}
//
// 运算符优先级不在此处理；语义分析用调度场算法重排操作数。
func parseExpr(s *State) (*ast.Expr, Res) {
	start := s.Next()
	head, res := parseExprTerm(s)
	if res != Ok {
		return nil, res
	}

	n := &ast.Expr{Head: head}
	op := synthesizeOp(s)
	if op.Property.IsExprOp() {
		commitOp(s, op)
		tail, res := parseExpr(s)
		if res != Ok {
			s.Error("Expected expression term")
		} else {
			n.Op = op
			n.Tail = tail
		}
	}

	n.Range = ast.NodeRange{Start: start, End: s.Prev()}
	return n, Ok
}

// parseExprTerm 表达式项
// EXPRTERM ::= ([TYPE '='] INITLIST) | ({preOp} EXPRVALUE {postOp})
func parseExprTerm(s *State) (ast.ExprTerm, Res) {
	start := s.Next()

	// 变体 1：裸初始化列表
	if start.Is("{") {
		il, res := parseInitList(s)
		if res != Ok {
			return nil, res
		}
		return &ast.InitListTerm{
			Range: ast.NodeRange{Start: start, End: s.Prev()},
			List:  il,
		}, Ok
	}

	// 变体 1：TYPE '=' INITLIST（推测，失败回退到变体 2）
	if ty, res := parseType(s); res == Ok {
		if s.Next().Is("=") && s.Next(1).Is("{") {
			s.Commit(highlight.Operator)
			il, res := parseInitList(s)
			if res != Ok {
				return nil, Pending
			}
			return &ast.InitListTerm{
				Range: ast.NodeRange{Start: start, End: s.Prev()},
				Type:  ty,
				List:  il,
			}, Ok
		}
		s.Backtrack(start)
	}

	// 变体 2：{preOp} EXPRVALUE {postOp}
	var preOps []*token.Token
	for s.Next().Property.IsExprPreOp {
		preOps = append(preOps, s.Next())
		s.Commit(highlight.Operator)
	}

	value, res := parseExprValue(s)
	if res != Ok {
		if len(preOps) > 0 {
			if res == Mismatch {
				s.Error("Expected expression value")
			}
			return nil, Pending
		}
		return nil, res
	}

	n := &ast.ValueTerm{PreOps: preOps, Value: value}
	for {
		post, res := parseExprPostOp(s)
		if res != Ok || post == nil {
			break
		}
		n.PostOps = append(n.PostOps, post)
	}

	n.Range = ast.NodeRange{Start: start, End: s.Prev()}
	return n, Ok
}

// parseExprValue 表达式值，按固定顺序尝试：
// void、Cast、括号、字面量、Lambda、FuncCall、ConstructCall、VarAccess
func parseExprValue(s *State) (ast.ExprValue, Res) {
	tok := s.Next()

	switch {
	case tok.Is("void"):
		s.Commit(highlight.Builtin)
		return &ast.VoidExpr{
			Range: ast.NodeRange{Start: tok, End: tok},
			Token: tok,
		}, Ok

	case tok.Is("cast"):
		return parseCast(s)

	case tok.Is("("):
		s.Commit(highlight.Operator)
		a, res := parseAssign(s)
		if res != Ok {
			s.Error("Expected expression")
			return nil, Pending
		}
		s.Expect(")", highlight.Operator)
		return &ast.ParenAssign{
			Range:  ast.NodeRange{Start: tok, End: s.Prev()},
			Assign: a,
		}, Ok

	case tok.Kind == token.Number:
		s.Commit(highlight.Number)
		return &ast.Literal{Range: ast.NodeRange{Start: tok, End: tok}, Token: tok}, Ok

	case tok.Kind == token.String:
		s.Commit(highlight.String)
		return &ast.Literal{Range: ast.NodeRange{Start: tok, End: tok}, Token: tok}, Ok

	case tok.Is("true"), tok.Is("false"), tok.Is("null"):
		s.Commit(highlight.Builtin)
		return &ast.Literal{Range: ast.NodeRange{Start: tok, End: tok}, Token: tok}, Ok

	case tok.Is("function") && isLambdaAhead(s):
		return parseLambda(s)
	}

	// 函数调用：[SCOPE] IDENT ARGLIST
	snapshot := s.Next()
	scope := parseScope(s)
	if s.Next().IsIdentifier() && s.Next(1).Is("(") {
		ident := s.Next()
		s.Commit(highlight.Function)
		args, res := parseArgList(s)
		if res != Ok {
			return nil, Pending
		}
		return &ast.FuncCall{
			Range: ast.NodeRange{Start: snapshot, End: s.Prev()},
			Scope: scope,
			Ident: ident,
			Args:  args,
		}, Ok
	}
	s.Backtrack(snapshot)

	// 构造调用：TYPE ARGLIST（基本类型、模板实例等非裸标识符类型）
	if ty, res := parseType(s); res == Ok {
		if s.Next().Is("(") {
			args, res := parseArgList(s)
			if res != Ok {
				return nil, Pending
			}
			return &ast.ConstructCall{
				Range: ast.NodeRange{Start: snapshot, End: s.Prev()},
				Type:  ty,
				Args:  args,
			}, Ok
		}
		s.Backtrack(snapshot)
	}

	// 变量访问：[SCOPE] IDENT
	scope = parseScope(s)
	if s.Next().IsIdentifier() {
		ident := s.Next()
		s.Commit(highlight.Variable)
		return &ast.VarAccess{
			Range: ast.NodeRange{Start: snapshot, End: s.Prev()},
			Scope: scope,
			Ident: ident,
		}, Ok
	}
	if scope != nil {
		s.Error("Expected identifier")
		return nil, Pending
	}

	return nil, Mismatch
}

// parseCast 类型转换
// CAST ::= 'cast' '<' TYPE '>' '(' ASSIGN ')'
func parseCast(s *State) (*ast.Cast, Res) {
	start := s.Next()
	s.Commit(highlight.Keyword)

	if !s.Expect("<", highlight.Operator) {
		return nil, Pending
	}
	ty, res := parseType(s)
	if res != Ok {
		s.Error("Expected type")
		return nil, Pending
	}
	if !s.Expect(">", highlight.Operator) {
		return nil, Pending
	}
	if !s.Expect("(", highlight.Operator) {
		return nil, Pending
	}
	a, res := parseAssign(s)
	if res != Ok {
		s.Error("Expected expression")
		return nil, Pending
	}
	s.Expect(")", highlight.Operator)

	return &ast.Cast{
		Range: ast.NodeRange{Start: start, End: s.Prev()},
		Type:  ty,
		Expr:  a,
	}, Ok
}

// isLambdaAhead 向前检测 'function' '(' ... ')' '{' 序列
//
// 括号内容只向前扫过、不配平嵌套括号；该启发式成立的前提是
// lambda 形参表内不会出现括号。
func isLambdaAhead(s *State) bool {
	if !s.Next().Is("function") || !s.Next(1).Is("(") {
		return false
	}
	for i := 2; ; i++ {
		tok := s.Next(i)
		if tok.IsEnd() {
			return false
		}
		if tok.Is(")") {
			return s.Next(i + 1).Is("{")
		}
	}
}

// parseLambda 匿名函数
// LAMBDA ::= 'function' '(' [[TYPE] [IDENT] {',' [TYPE] [IDENT]}] ')' STATBLOCK
//
// 形参的类型与名字都可省略；裸标识符后紧跟分隔符时按参数名处理。
func parseLambda(s *State) (*ast.Lambda, Res) {
	start := s.Next()
	s.Commit(highlight.Keyword)

	n := &ast.Lambda{}
	if !s.Expect("(", highlight.Operator) {
		return nil, Pending
	}

	if s.Next().Is(")") {
		s.Commit(highlight.Operator)
	} else {
		for {
			p := &ast.LambdaParam{}
			pStart := s.Next()
			snapshot := s.Next()

			ty, res := parseType(s)
			if res == Ok {
				if s.Next().IsIdentifier() {
					p.Type = ty
					p.Ident = s.Next()
					s.Commit(highlight.Parameter)
				} else if isPlainTypeName(ty) && (s.Next().Is(",") || s.Next().Is(")")) {
					s.Backtrack(snapshot)
					p.Ident = s.Next()
					s.Commit(highlight.Parameter)
				} else {
					p.Type = ty
				}
			} else if !s.Next().Is(",") && !s.Next().Is(")") {
				s.Error("Expected parameter")
				s.Step()
			}
			p.Range = ast.NodeRange{Start: pStart, End: s.Prev()}
			n.Params = append(n.Params, p)

			if ctl := expectContinuousOrClose(s, ",", ")", true); ctl != loopContinue {
				break
			}
		}
	}

	body, res := parseStatBlock(s)
	if res != Ok {
		s.Error("Expected statement block")
		return nil, Pending
	}
	n.Body = body

	n.Range = ast.NodeRange{Start: start, End: s.Prev()}
	return n, Ok
}

// parseExprPostOp 表达式后缀运算
// POSTOP ::= ('.' (FUNCCALL | IDENT)) | ('[' [ARGS] ']') | ARGLIST | '++' | '--'
func parseExprPostOp(s *State) (ast.ExprPostOp, Res) {
	tok := s.Next()

	switch {
	case tok.Is("."):
		s.Commit(highlight.Operator)
		if !s.Next().IsIdentifier() {
			s.Error("Expected identifier")
			return nil, Pending
		}
		ident := s.Next()
		if s.Next(1).Is("(") {
			s.Commit(highlight.Function)
			args, res := parseArgList(s)
			if res != Ok {
				return nil, Pending
			}
			return &ast.PostMethodCall{
				Range: ast.NodeRange{Start: tok, End: s.Prev()},
				Ident: ident,
				Args:  args,
			}, Ok
		}
		s.Commit(highlight.Variable)
		return &ast.PostMember{
			Range: ast.NodeRange{Start: tok, End: s.Prev()},
			Ident: ident,
		}, Ok

	case tok.Is("["):
		s.Commit(highlight.Operator)
		args := parseArgsUntil(s, tok, "]")
		return &ast.PostIndex{
			Range: ast.NodeRange{Start: tok, End: s.Prev()},
			Args:  args,
		}, Ok

	case tok.Is("("):
		args, res := parseArgList(s)
		if res != Ok {
			return nil, Pending
		}
		return &ast.PostCall{
			Range: ast.NodeRange{Start: tok, End: s.Prev()},
			Args:  args,
		}, Ok

	case tok.Property.IsExprPostOp:
		s.Commit(highlight.Operator)
		return &ast.PostIncDec{
			Range: ast.NodeRange{Start: tok, End: tok},
			Op:    tok,
		}, Ok
	}

	return nil, Mismatch
}

// ============================================================================
// 赋值与条件
// ============================================================================

// parseAssign 赋值表达式（右结合）
// ASSIGN ::= CONDITION [ASSIGNOP ASSIGN]
func parseAssign(s *State) (*ast.Assign, Res) {
	start := s.Next()
	cond, res := parseCondition(s)
	if res != Ok {
		return nil, res
	}

	n := &ast.Assign{Condition: cond}
	op := synthesizeOp(s)
	if op.Property.IsAssignOp {
		commitOp(s, op)
		next, res := parseAssign(s)
		if res != Ok {
			s.Error("Expected expression")
		} else {
			n.Op = op
			n.Next = next
		}
	}

	n.Range = ast.NodeRange{Start: start, End: s.Prev()}
	return n, Ok
}

// parseCondition 条件表达式
// CONDITION ::= EXPR ['?' ASSIGN ':' ASSIGN]
//
// 三目分支只有在两侧都解析成功时才被记录。
func parseCondition(s *State) (*ast.Condition, Res) {
	start := s.Next()
	expr, res := parseExpr(s)
	if res != Ok {
		return nil, res
	}

	n := &ast.Condition{Expr: expr}
	if s.Next().Is("?") {
		s.Commit(highlight.Operator)
		ta, res := parseAssign(s)
		if res != Ok {
			s.Error("Expected expression")
			n.Range = ast.NodeRange{Start: start, End: s.Prev()}
			return n, Ok
		}
		if !s.Expect(":", highlight.Operator) {
			n.Range = ast.NodeRange{Start: start, End: s.Prev()}
			return n, Ok
		}
		fa, res := parseAssign(s)
		if res != Ok {
			s.Error("Expected expression")
			n.Range = ast.NodeRange{Start: start, End: s.Prev()}
			return n, Ok
		}
		n.TrueAssign = ta
		n.FalseAssign = fa
	}

	n.Range = ast.NodeRange{Start: start, End: s.Prev()}
	return n, Ok
}

// ============================================================================
// 初始化列表与实参表
// ============================================================================

// parseInitList 初始化列表
// INITLIST ::= '{' [ASSIGN|INITLIST] {',' [ASSIGN|INITLIST]} '}'
func parseInitList(s *State) (*ast.InitList, Res) {
	start := s.Next()
	if !start.Is("{") {
		return nil, Mismatch
	}
	s.Commit(highlight.Operator)

	n := &ast.InitList{}
	for !s.IsEnd() {
		if s.Next().Is("}") {
			s.Commit(highlight.Operator)
			break
		}
		if s.Next().Is(",") {
			// 空项
			s.Commit(highlight.Operator)
			continue
		}
		if s.Next().Is("{") {
			il, res := parseInitList(s)
			if res == Ok {
				n.Items = append(n.Items, il)
			}
		} else {
			a, res := parseAssign(s)
			if res != Ok {
				s.Error("Expected expression")
				s.Step()
				continue
			}
			n.Items = append(n.Items, a)
		}
		if ctl := expectContinuousOrClose(s, ",", "}", true); ctl != loopContinue {
			break
		}
	}

	n.Range = ast.NodeRange{Start: start, End: s.Prev()}
	return n, Ok
}

// parseArgList 实参列表
// ARGLIST ::= '(' [[IDENT ':'] ASSIGN {',' [IDENT ':'] ASSIGN}] ')'
func parseArgList(s *State) (*ast.ArgList, Res) {
	start := s.Next()
	if !start.Is("(") {
		return nil, Mismatch
	}
	s.Commit(highlight.Operator)
	return parseArgsUntil(s, start, ")"), Ok
}

// parseArgsUntil 实参序列，开括号已提交，收尾于 close
//
// 函数调用（')'）与下标访问（']'）共用。
func parseArgsUntil(s *State, open *token.Token, close string) *ast.ArgList {
	n := &ast.ArgList{}
	if s.Next().Is(close) {
		s.Commit(highlight.Operator)
		n.Range = ast.NodeRange{Start: open, End: s.Prev()}
		return n
	}

	for !s.IsEnd() {
		arg := &ast.Arg{}
		argStart := s.Next()

		// 命名实参 name: value
		if s.Next().IsIdentifier() && s.Next(1).Is(":") {
			arg.Name = s.Next()
			s.Commit(highlight.Parameter)
			s.Commit(highlight.Operator)
		}

		a, res := parseAssign(s)
		if res != Ok {
			s.Error("Expected expression")
			s.Step()
			if s.Prev().Is(close) {
				break
			}
			continue
		}
		arg.Value = a
		arg.Range = ast.NodeRange{Start: argStart, End: s.Prev()}
		n.Args = append(n.Args, arg)

		if ctl := expectContinuousOrClose(s, ",", close, true); ctl != loopContinue {
			break
		}
	}

	n.Range = ast.NodeRange{Start: open, End: s.Prev()}
	return n
}
