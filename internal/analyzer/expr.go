package analyzer

import (
	"strings"

	"github.com/gyxos-logan/angel-lsp/internal/ast"
	"github.com/gyxos-logan/angel-lsp/internal/highlight"
	"github.com/gyxos-logan/angel-lsp/internal/symbols"
	"github.com/gyxos-logan/angel-lsp/internal/token"
)

// ============================================================================
// 表达式分析
// ============================================================================
//
// 语法阶段产出的是平铺的 {项, 运算符, 项, ...} 序列；这里用调度场
// 算法按优先级重排后归约，使语义分析成为运算符优先级的唯一权威。
//
// ============================================================================

// operand 归约栈上的操作数：类型（可为 nil）与源范围
type operand struct {
	t   *symbols.ResolvedType
	rng ast.NodeRange
}

// exprItem 调度场的输入项：项或运算符二选一
type exprItem struct {
	term *operand
	op   *token.Token
}

// opPrecedence 运算符优先级（数值越大结合越紧）
//
// 运算符集合是封闭的；synthesizeOp 只会产出表中的文本。
func opPrecedence(text string) int {
	switch text {
	case "**":
		return 0
	case "*", "/", "%":
		return -1
	case "+", "-":
		return -2
	case "<<", ">>", ">>>":
		return -3
	case "&":
		return -4
	case "^":
		return -5
	case "|":
		return -6
	case "<", "<=", ">", ">=":
		return -7
	case "==", "!=", "is", "!is", "xor", "^^":
		return -8
	case "and", "&&":
		return -9
	case "or", "||":
		return -10
	}
	return -10
}

func itemPrecedence(it exprItem) int {
	if it.term != nil {
		return 1
	}
	return opPrecedence(it.op.Text)
}

// analyzeExpr 分析表达式：摊平 → 调度场重排 → 归约
func (a *Analyzer) analyzeExpr(scope *symbols.Scope, expr *ast.Expr) *symbols.ResolvedType {
	if expr == nil {
		return nil
	}

	// 摊平右倾结构；项按源码顺序分析，诊断次序与源码一致
	var items []exprItem
	for cur := expr; cur != nil; cur = cur.Tail {
		t := a.analyzeExprTerm(scope, cur.Head)
		var rng ast.NodeRange
		if cur.Head != nil {
			rng = cur.Head.NodeRange()
		}
		items = append(items, exprItem{term: &operand{t: t, rng: rng}})
		if cur.Op == nil {
			break
		}
		items = append(items, exprItem{op: cur.Op})
	}

	// 调度场：输入优先级高于栈顶时入栈，否则弹栈顶到输出
	var stack, output []exprItem
	for _, it := range items {
		p := itemPrecedence(it)
		for len(stack) > 0 && p <= itemPrecedence(stack[len(stack)-1]) {
			output = append(output, stack[len(stack)-1])
			stack = stack[:len(stack)-1]
		}
		stack = append(stack, it)
	}
	for len(stack) > 0 {
		output = append(output, stack[len(stack)-1])
		stack = stack[:len(stack)-1]
	}

	// 归约：运算符弹出两个操作数，执行二元运算分析后压回结果
	var opnds []*operand
	for _, it := range output {
		if it.term != nil {
			opnds = append(opnds, it.term)
			continue
		}
		if len(opnds) < 2 {
			// 解析失败留下的残缺序列
			continue
		}
		rhs := opnds[len(opnds)-1]
		lhs := opnds[len(opnds)-2]
		opnds = opnds[:len(opnds)-2]
		opnds = append(opnds, a.analyzeBinaryOp(scope, it.op, lhs, rhs))
	}

	if len(opnds) == 0 {
		return nil
	}
	return opnds[len(opnds)-1].t
}

// analyzeExprTerm 表达式项
func (a *Analyzer) analyzeExprTerm(scope *symbols.Scope, term ast.ExprTerm) *symbols.ResolvedType {
	switch n := term.(type) {
	case *ast.InitListTerm:
		if n.Type != nil {
			a.analyzeType(scope, n.Type)
		}
		return a.analyzeInitList(scope, n.List)

	case *ast.ValueTerm:
		t := a.analyzeExprValue(scope, n.Value)
		for _, post := range n.PostOps {
			t = a.analyzePostOp(scope, t, post)
		}
		// 前缀运算从右到左生效
		for i := len(n.PreOps) - 1; i >= 0; i-- {
			t = a.applyPreOp(n.PreOps[i], t)
		}
		return t
	}
	return nil
}

// applyPreOp 前缀运算对类型的影响
func (a *Analyzer) applyPreOp(op *token.Token, t *symbols.ResolvedType) *symbols.ResolvedType {
	if t == nil {
		return nil
	}
	switch op.Text {
	case "!", "not":
		return symbols.ResolvedBool
	case "@":
		return &symbols.ResolvedType{
			Type:              t.Type,
			Func:              t.Func,
			TemplateTranslate: t.TemplateTranslate,
			IsHandler:         true,
		}
	}
	// -, +, ~, ++, -- 保持原类型
	return t
}

// analyzeExprValue 表达式值
func (a *Analyzer) analyzeExprValue(scope *symbols.Scope, value ast.ExprValue) *symbols.ResolvedType {
	switch n := value.(type) {
	case *ast.VoidExpr:
		return symbols.ResolvedVoid

	case *ast.Literal:
		return a.analyzeLiteral(n)

	case *ast.ParenAssign:
		return a.analyzeAssign(scope, n.Assign)

	case *ast.Cast:
		a.analyzeAssign(scope, n.Expr)
		return a.analyzeType(scope, n.Type)

	case *ast.Lambda:
		return a.analyzeLambda(scope, n)

	case *ast.VarAccess:
		return a.analyzeVarAccess(scope, n)

	case *ast.FuncCall:
		return a.analyzeFuncCall(scope, n)

	case *ast.ConstructCall:
		t := a.analyzeType(scope, n.Type)
		var ident *token.Token
		if n.Type != nil {
			ident = n.Type.DataType
		}
		return a.analyzeConstructorCall(scope, t, ident, n.Args)
	}
	return nil
}

// analyzeLiteral 字面量的类型
//
// 无后缀的小数是 double，'f' 后缀是 float；各种进制的整数都是 int。
// null 字面量不产出类型（未指定，按未知传播）。
func (a *Analyzer) analyzeLiteral(n *ast.Literal) *symbols.ResolvedType {
	tok := n.Token
	switch tok.Kind {
	case token.Number:
		if tok.NumberKind == token.NumberFloat {
			if strings.HasSuffix(tok.Text, "f") || strings.HasSuffix(tok.Text, "F") {
				return symbols.ResolveType(symbols.TypeFloat)
			}
			return symbols.ResolvedDouble
		}
		return symbols.ResolvedInt

	case token.String:
		if sym, _ := a.global.LookupWithParents("string"); sym != nil {
			if t, ok := sym.(*symbols.Type); ok {
				return symbols.ResolveType(t)
			}
		}
		return nil
	}

	switch tok.Text {
	case "true", "false":
		return symbols.ResolvedBool
	}
	// null：类型留空
	return nil
}

// analyzeLambda 匿名函数：函数体在自身作用域中分析
//
// 返回类型自上下文的推断未实现，lambda 表达式不产出类型。
func (a *Analyzer) analyzeLambda(scope *symbols.Scope, n *ast.Lambda) *symbols.ResolvedType {
	body := scope.AnonymousChild(n)
	for _, p := range n.Params {
		if p.Ident == nil {
			continue
		}
		var pt *symbols.ResolvedType
		if p.Type != nil {
			pt = a.analyzeType(scope, p.Type)
		}
		body.Insert(&symbols.Variable{
			Name:        p.Ident.Text,
			DeclToken:   p.Ident,
			Type:        pt,
			IsParameter: true,
			DeclScope:   body,
		})
	}
	a.analyzeStatBlockInto(body, n.Body)
	return nil
}

// analyzeVarAccess 变量访问
func (a *Analyzer) analyzeVarAccess(scope *symbols.Scope, n *ast.VarAccess) *symbols.ResolvedType {
	search := scope
	shallow := false
	if n.Scope != nil {
		search = a.analyzeScope(scope, n.Scope)
		if search == nil {
			return nil
		}
		shallow = true
	}
	if n.Ident == nil {
		return nil
	}

	sym := lookupSymbol(search, n.Ident.Text, shallow)
	switch hit := sym.(type) {
	case nil:
		a.state.ErrorAt(n.Ident, "'"+n.Ident.Text+"' is not defined")
		return nil

	case *symbols.Variable:
		scope.AddReference(n.Ident, hit)
		a.reclassifyVariable(n.Ident, hit)
		return hit.Type

	case *symbols.Function:
		scope.AddReference(n.Ident, hit)
		a.state.Reclassify(n.Ident, highlight.Function)
		return &symbols.ResolvedType{Func: hit}

	case *symbols.Type:
		scope.AddReference(n.Ident, hit)
		a.reclassifyType(n.Ident, hit)
		return symbols.ResolveType(hit)
	}
	return nil
}

// reclassifyVariable 按符号性质改判变量记号
func (a *Analyzer) reclassifyVariable(tok *token.Token, v *symbols.Variable) {
	if v.IsParameter {
		a.state.Reclassify(tok, highlight.Parameter)
		return
	}
	if v.DeclScope != nil {
		if _, isEnum := v.DeclScope.LinkedNode.(*ast.Enum); isEnum {
			a.state.Reclassify(tok, highlight.EnumMember)
			return
		}
	}
	a.state.Reclassify(tok, highlight.Variable)
}

// analyzePostOp 后缀运算
func (a *Analyzer) analyzePostOp(scope *symbols.Scope, t *symbols.ResolvedType, post ast.ExprPostOp) *symbols.ResolvedType {
	switch n := post.(type) {
	case *ast.PostMember:
		return a.analyzeMemberAccess(scope, t, n)

	case *ast.PostMethodCall:
		return a.analyzeMethodCall(scope, t, n.Ident, n.Args)

	case *ast.PostIndex:
		// 下标访问改写为 opIndex 方法调用
		return a.analyzeOperatorAliasCall(scope, t, "opIndex", nil, n.Args, n.Range)

	case *ast.PostCall:
		return a.analyzeValueCall(scope, t, n)

	case *ast.PostIncDec:
		return t
	}
	return t
}

// analyzeMemberAccess 字段访问 value.name
func (a *Analyzer) analyzeMemberAccess(scope *symbols.Scope, t *symbols.ResolvedType, n *ast.PostMember) *symbols.ResolvedType {
	if t == nil || n.Ident == nil {
		return nil
	}
	if t.Type == nil || t.Type.Members == nil {
		a.state.ErrorAt(n.Ident, "'"+t.Name()+"' has no members")
		return nil
	}

	sym := t.Type.Members.Lookup(n.Ident.Text)
	switch hit := sym.(type) {
	case nil:
		a.state.ErrorAt(n.Ident, "'"+n.Ident.Text+"' is not defined")
		return nil

	case *symbols.Variable:
		if !a.isAllowedToAccessMember(scope, hit) {
			a.state.ErrorAt(n.Ident, "'"+n.Ident.Text+"' is not public member")
		}
		scope.AddReference(n.Ident, hit)
		a.reclassifyVariable(n.Ident, hit)
		return applyTranslation(hit.Type, t.TemplateTranslate)

	case *symbols.Function:
		// 方法组：取引用而非调用
		scope.AddReference(n.Ident, hit)
		a.state.Reclassify(n.Ident, highlight.Function)
		return &symbols.ResolvedType{Func: hit}
	}
	return nil
}

// isAllowedToAccessMember 成员访问权限
//
// public 随处可见；private/protected 只允许在定义作用域
// （及其嵌套作用域）内访问。
func (a *Analyzer) isAllowedToAccessMember(scope *symbols.Scope, v *symbols.Variable) bool {
	if v.Access == ast.AccessNone {
		return true
	}
	for cur := scope; cur != nil; cur = cur.Parent {
		if cur == v.DeclScope {
			return true
		}
	}
	return false
}

// applyTranslation 在模板替换下改写类型
//
// 成员的类型解析到模板形参（DeclToken 是形参记号）时，
// 用实例化处的翻译表替换。
func applyTranslation(t *symbols.ResolvedType, trans symbols.TemplateTranslation) *symbols.ResolvedType {
	if t == nil || trans == nil || t.Type == nil || t.Type.DeclToken == nil {
		return t
	}
	if sub, ok := trans[t.Type.DeclToken]; ok {
		return sub
	}
	return t
}

// ============================================================================
// 二元运算符
// ============================================================================

// 运算符别名表：数学、位运算、比较、赋值。LHS 是基本类型而 RHS 是
// 用户类型时，在 RHS 上调用 '_r' 反射变体，使用户类型能从任一侧
// 重载与基本类型的运算。
var mathOpAlias = map[string]string{
	"+": "opAdd", "-": "opSub", "*": "opMul",
	"/": "opDiv", "%": "opMod", "**": "opPow",
}

var bitOpAlias = map[string]string{
	"&": "opAnd", "|": "opOr", "^": "opXor",
	"<<": "opShl", ">>": "opShr", ">>>": "opShrU",
}

var assignOpAlias = map[string]string{
	"=": "opAssign", "+=": "opAddAssign", "-=": "opSubAssign",
	"*=": "opMulAssign", "/=": "opDivAssign", "%=": "opModAssign",
	"**=": "opPowAssign", "&=": "opAndAssign", "|=": "opOrAssign",
	"^=": "opXorAssign", "<<=": "opShlAssign", ">>=": "opShrAssign",
	">>>=": "opUShrAssign",
}

// analyzeBinaryOp 二元运算分析
func (a *Analyzer) analyzeBinaryOp(scope *symbols.Scope, op *token.Token, lhs, rhs *operand) *operand {
	rng := ast.NodeRange{Start: lhs.rng.Start, End: rhs.rng.End}
	if lhs.rng.Start == nil {
		rng = rhs.rng
	}
	out := func(t *symbols.ResolvedType) *operand {
		return &operand{t: t, rng: rng}
	}

	// 未知操作数静默传播
	if lhs.t == nil || rhs.t == nil {
		return out(nil)
	}

	prop := op.Property
	switch {
	case prop.IsLogicOp:
		// 逻辑运算强制两侧为 bool，不做别名分发
		a.requireBool(op, lhs)
		a.requireBool(op, rhs)
		return out(symbols.ResolvedBool)

	case prop.IsCompOp:
		return out(a.analyzeCompOp(scope, op, lhs, rhs))

	case prop.IsMathOp:
		return out(a.analyzeMathOrBitOp(scope, op, lhs, rhs, mathOpAlias[op.Text]))

	case prop.IsBitOp:
		return out(a.analyzeMathOrBitOp(scope, op, lhs, rhs, bitOpAlias[op.Text]))
	}
	return out(nil)
}

func (a *Analyzer) requireBool(op *token.Token, o *operand) {
	if o.t != nil && !canTypeConvert(o.t, symbols.ResolvedBool) {
		a.diagAt(o.rng, "Type mismatch: '"+o.t.Name()+"' is not convertible to 'bool'")
	}
}

// analyzeCompOp 比较运算：结果是 bool
//
// 相等性别名 opEquals，排序别名 opCmp；is / !is 是引用比较，
// 不做别名分发。
func (a *Analyzer) analyzeCompOp(scope *symbols.Scope, op *token.Token, lhs, rhs *operand) *symbols.ResolvedType {
	switch op.Text {
	case "is", "!is":
		return symbols.ResolvedBool
	}

	if isNumeric(lhs.t) && isNumeric(rhs.t) {
		return symbols.ResolvedBool
	}
	if canTypeConvert(rhs.t, lhs.t) && bothSystem(lhs.t, rhs.t) {
		return symbols.ResolvedBool
	}

	alias := "opCmp"
	if op.Text == "==" || op.Text == "!=" {
		alias = "opEquals"
	}
	a.dispatchAlias(scope, op, lhs, rhs, alias)
	return symbols.ResolvedBool
}

func bothSystem(x, y *symbols.ResolvedType) bool {
	return x != nil && y != nil && x.Type != nil && y.Type != nil &&
		x.Type.IsSystemType && y.Type.IsSystemType
}

// analyzeMathOrBitOp 算术/位运算
//
// 两侧都是数值基本类型时结果取公共数值类型，否则改写为别名方法。
func (a *Analyzer) analyzeMathOrBitOp(scope *symbols.Scope, op *token.Token, lhs, rhs *operand, alias string) *symbols.ResolvedType {
	if isNumeric(lhs.t) && isNumeric(rhs.t) {
		return commonNumberType(lhs.t, rhs.t)
	}
	return a.dispatchAlias(scope, op, lhs, rhs, alias)
}

// dispatchAlias 把二元运算改写为别名方法调用
//
// LHS 是用户类型：lhs.alias(rhs)；LHS 是基本类型而 RHS 是用户
// 类型：rhs.alias_r(lhs)。
func (a *Analyzer) dispatchAlias(scope *symbols.Scope, op *token.Token, lhs, rhs *operand, alias string) *symbols.ResolvedType {
	owner, arg := lhs, rhs
	name := alias
	if isPrimitive(lhs.t) && !isPrimitive(rhs.t) {
		owner, arg = rhs, lhs
		name = alias + "_r"
	}

	if owner.t == nil || owner.t.Type == nil || owner.t.Type.Members == nil {
		a.diagAt(owner.rng, "Operator '"+op.Text+"' of '"+typeNameOf(owner.t)+"' is not defined")
		return nil
	}
	fn, ok := owner.t.Type.Members.Lookup(name).(*symbols.Function)
	if !ok {
		a.diagAt(owner.rng, "Operator '"+op.Text+"' of '"+owner.t.Name()+"' is not defined")
		return nil
	}
	return a.checkFunctionMatch(scope, op, fn,
		[]*symbols.ResolvedType{arg.t},
		[]token.Location{arg.rng.Location()},
		owner.t.TemplateTranslate)
}

func typeNameOf(t *symbols.ResolvedType) string {
	if t == nil {
		return "?"
	}
	return t.Name()
}

func isNumeric(t *symbols.ResolvedType) bool {
	return t != nil && t.Type != nil && t.Type.IsNumberType && !t.IsHandler
}

func isPrimitive(t *symbols.ResolvedType) bool {
	return t != nil && t.Type != nil && t.Type.IsSystemType
}

// numberRank 数值类型的提升梯度
func numberRank(t *symbols.Type) int {
	switch t {
	case symbols.TypeDouble:
		return 5
	case symbols.TypeFloat:
		return 4
	case symbols.TypeInt64, symbols.TypeUint64:
		return 3
	default:
		return 2
	}
}

// commonNumberType 两个数值类型的公共类型
func commonNumberType(x, y *symbols.ResolvedType) *symbols.ResolvedType {
	if numberRank(x.Type) >= numberRank(y.Type) {
		return x
	}
	return y
}

// ============================================================================
// 赋值与条件
// ============================================================================

// analyzeAssign 赋值表达式（右结合）
func (a *Analyzer) analyzeAssign(scope *symbols.Scope, n *ast.Assign) *symbols.ResolvedType {
	if n == nil {
		return nil
	}
	lhs := a.analyzeCondition(scope, n.Condition)
	if n.Op == nil || n.Next == nil {
		return lhs
	}
	rhs := a.analyzeAssign(scope, n.Next)
	return a.analyzeAssignOp(scope, n, lhs, rhs)
}

// analyzeAssignOp 赋值运算
//
// 两侧数值：结果为左侧类型；'=' 且右侧可转换：左侧类型；
// 其余改写为 opAssign / opAddAssign / ... 别名。
func (a *Analyzer) analyzeAssignOp(scope *symbols.Scope, n *ast.Assign, lhs, rhs *symbols.ResolvedType) *symbols.ResolvedType {
	if lhs == nil || rhs == nil {
		return lhs
	}
	if isNumeric(lhs) && isNumeric(rhs) {
		return lhs
	}
	if n.Op.Text == "=" && canTypeConvert(rhs, lhs) {
		return lhs
	}

	alias := assignOpAlias[n.Op.Text]
	lhsOp := &operand{t: lhs, rng: n.Condition.Range}
	rhsOp := &operand{t: rhs, rng: n.Next.Range}
	return a.dispatchAlias(scope, n.Op, lhsOp, rhsOp, alias)
}

// analyzeCondition 条件表达式
//
// 三目分支存在时，条件须可转换为 bool，结果取真分支的类型。
func (a *Analyzer) analyzeCondition(scope *symbols.Scope, n *ast.Condition) *symbols.ResolvedType {
	if n == nil {
		return nil
	}
	condType := a.analyzeExpr(scope, n.Expr)
	if n.TrueAssign == nil || n.FalseAssign == nil {
		return condType
	}

	if condType != nil && !canTypeConvert(condType, symbols.ResolvedBool) {
		a.diagAt(n.Expr.Range, "Type mismatch: '"+condType.Name()+"' is not convertible to 'bool'")
	}
	trueType := a.analyzeAssign(scope, n.TrueAssign)
	falseType := a.analyzeAssign(scope, n.FalseAssign)
	if trueType != nil {
		return trueType
	}
	return falseType
}
