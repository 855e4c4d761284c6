package resolver

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/esplang/espc/ast"
	"github.com/esplang/espc/diag"
	"github.com/esplang/espc/execctx"
)

// evalRun executes a RUN block immediately when all of its inputs are
// resolved, or defers it when any input requires collected object data. A
// deferred operation is serialized into the context and its target resolves
// to a sentinel the scanner runtime fills in.
func (e *engine) evalRun(run *ast.RunBlock) value {
	if e.mustDefer(run) {
		e.deferRun(run)
		return deferredVal()
	}

	switch run.Op {
	case ast.RunConcat:
		return e.evalConcat(run)
	case ast.RunSplit:
		return e.evalSplit(run)
	case ast.RunSubstring:
		return e.evalSubstring(run)
	case ast.RunRegexCapture:
		return e.evalRegexCapture(run)
	case ast.RunArithmetic:
		return e.evalArithmetic(run)
	case ast.RunCount:
		return e.evalCount(run)
	case ast.RunUnique:
		return e.evalUnique(run)
	case ast.RunMerge:
		return e.evalMerge(run)
	case ast.RunExtract:
		// EXTRACT always needs collected data; mustDefer covers it. Reaching
		// here means the block had no OBJ parameter, which semantic analysis
		// rejects.
		e.errorAt(diag.RuntimeOperationError, run.Span,
			"EXTRACT for %q has no OBJ parameter", run.Target)
		return deferredVal()
	}
	e.errorAt(diag.RuntimeOperationError, run.Span,
		"unsupported runtime operation %s", run.Op)
	return deferredVal()
}

// mustDefer reports whether the block depends on collected data: an OBJ
// extraction parameter, or a variable that itself resolved to a deferred
// sentinel.
func (e *engine) mustDefer(run *ast.RunBlock) bool {
	for i := range run.Params {
		p := &run.Params[i]
		switch p.Kind {
		case ast.ObjectExtractionParam:
			return true
		case ast.VariableParam:
			if v, ok := e.resolved[p.Name]; ok && v.deferred {
				return true
			}
		case ast.LiteralParam, ast.ArithmeticParam:
			if p.Value.IsVarRef() {
				if v, ok := e.resolved[p.Value.Var]; ok && v.deferred {
					return true
				}
			}
		}
	}
	return false
}

// deferRun serializes the operation for post-collection evaluation.
func (e *engine) deferRun(run *ast.RunBlock) {
	op := execctx.DeferredOperation{
		Target:    run.Target,
		Operation: run.Op.String(),
	}
	for i := range run.Params {
		p := &run.Params[i]
		dp := execctx.DeferredParam{}
		switch p.Kind {
		case ast.LiteralParam:
			dp.Kind = "literal"
			dp.Value = e.exportParamValue(p)
		case ast.VariableParam:
			dp.Kind = "variable"
			dp.Variable = p.Name
		case ast.ObjectExtractionParam:
			dp.Kind = "object_extraction"
			dp.ObjectID = p.ObjectID
			dp.Field = p.Field
		case ast.PatternParam:
			dp.Kind = "pattern"
			dp.Text = p.Text
		case ast.DelimiterParam:
			dp.Kind = "delimiter"
			dp.Text = p.Text
		case ast.CharacterParam:
			dp.Kind = "character"
			dp.Text = p.Text
		case ast.StartParam:
			dp.Kind = "start"
			n := p.Number
			dp.Number = &n
		case ast.LengthParam:
			dp.Kind = "length"
			n := p.Number
			dp.Number = &n
		case ast.ArithmeticParam:
			dp.Kind = "arithmetic"
			dp.Operator = p.ArithOp.String()
			dp.Value = e.exportParamValue(p)
		}
		op.Params = append(op.Params, dp)
	}
	e.deferred = append(e.deferred, op)
}

func (e *engine) exportParamValue(p *ast.RunParam) *execctx.Value {
	if p.Value.IsVarRef() {
		// Substitute already-resolved variables so the runtime receives
		// concrete inputs wherever possible.
		if v, ok := e.resolved[p.Value.Var]; ok && !v.deferred {
			out := v.export()
			return &out
		}
		return &execctx.Value{Type: "variable", Value: p.Value.Var}
	}
	if v, err := fromLiteral(p.Value); err == nil {
		out := v.export()
		return &out
	}
	return nil
}

// paramValue resolves a data parameter to a concrete value.
func (e *engine) paramValue(run *ast.RunBlock, p *ast.RunParam) (value, bool) {
	switch p.Kind {
	case ast.LiteralParam, ast.ArithmeticParam:
		if p.Value.IsVarRef() {
			return e.lookupValue(p.Value.Var, p.Span)
		}
		v, err := fromLiteral(p.Value)
		if err != nil {
			e.errorAt(diag.RuntimeOperationError, p.Span, "RUN %s: %v", run.Target, err)
			return value{}, false
		}
		return v, true
	case ast.VariableParam:
		return e.lookupValue(p.Name, p.Span)
	}
	return value{}, false
}

func (e *engine) stringParams(run *ast.RunBlock) ([]string, bool) {
	var out []string
	for i := range run.Params {
		p := &run.Params[i]
		if p.Kind != ast.LiteralParam && p.Kind != ast.VariableParam {
			continue
		}
		v, ok := e.paramValue(run, p)
		if !ok {
			return nil, false
		}
		s, ok := v.asString()
		if !ok {
			e.errorAt(diag.RuntimeOperationError, p.Span,
				"RUN %s %s: operand is %s, expected string", run.Target, run.Op, v.typeName())
			return nil, false
		}
		out = append(out, s)
	}
	return out, true
}

func (e *engine) evalConcat(run *ast.RunBlock) value {
	parts, ok := e.stringParams(run)
	if !ok {
		return deferredVal()
	}
	return stringVal(strings.Join(parts, ""))
}

func (e *engine) evalSplit(run *ast.RunBlock) value {
	inputs, ok := e.stringParams(run)
	if !ok || len(inputs) != 1 {
		return deferredVal()
	}
	sep := ""
	for i := range run.Params {
		p := &run.Params[i]
		if p.Kind == ast.DelimiterParam || p.Kind == ast.CharacterParam {
			sep = p.Text
		}
	}
	parts := strings.Split(inputs[0], sep)
	items := make([]value, len(parts))
	for i, part := range parts {
		items[i] = stringVal(part)
	}
	return collectionVal(ast.TypeString, items)
}

func (e *engine) evalSubstring(run *ast.RunBlock) value {
	inputs, ok := e.stringParams(run)
	if !ok || len(inputs) != 1 {
		return deferredVal()
	}
	start, length := int64(0), int64(-1)
	for i := range run.Params {
		p := &run.Params[i]
		switch p.Kind {
		case ast.StartParam:
			start = p.Number
		case ast.LengthParam:
			length = p.Number
		}
	}

	runes := []rune(inputs[0])
	if start < 0 || start > int64(len(runes)) {
		e.errorAt(diag.RuntimeOperationError, run.Span,
			"SUBSTRING start %d is out of range for input of length %d", start, len(runes))
		return deferredVal()
	}
	end := int64(len(runes))
	if length >= 0 && start+length < end {
		end = start + length
	}
	return stringVal(string(runes[start:end]))
}

func (e *engine) evalRegexCapture(run *ast.RunBlock) value {
	inputs, ok := e.stringParams(run)
	if !ok || len(inputs) != 1 {
		return deferredVal()
	}
	pattern := ""
	for i := range run.Params {
		if p := &run.Params[i]; p.Kind == ast.PatternParam {
			pattern = p.Text
		}
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		e.errorAt(diag.RuntimeOperationError, run.Span,
			"REGEX_CAPTURE pattern does not compile: %v", err)
		return deferredVal()
	}
	match := re.FindStringSubmatch(inputs[0])
	switch {
	case match == nil:
		return stringVal("")
	case len(match) > 1:
		return stringVal(match[1])
	default:
		return stringVal(match[0])
	}
}

// evalArithmetic folds the chain in exact decimal arithmetic, then narrows:
// an integer-pure chain yields int, any float operand yields float.
func (e *engine) evalArithmetic(run *ast.RunBlock) value {
	acc := decimal.Zero
	float := false
	started := false

	apply := func(op ast.ArithmeticOp, operand decimal.Decimal) bool {
		switch op {
		case ast.ArithAdd:
			acc = acc.Add(operand)
		case ast.ArithSubtract:
			acc = acc.Sub(operand)
		case ast.ArithMultiply:
			acc = acc.Mul(operand)
		case ast.ArithDivide, ast.ArithModulo:
			if operand.IsZero() {
				return false
			}
			if op == ast.ArithDivide {
				if float {
					acc = acc.DivRound(operand, 18)
				} else {
					// Integer division truncates toward zero.
					q, _ := acc.QuoRem(operand, 0)
					acc = q
				}
			} else {
				_, r := acc.QuoRem(operand, 0)
				acc = r
			}
		}
		return true
	}

	toDecimal := func(v value) (decimal.Decimal, bool) {
		switch v.typ {
		case ast.TypeInt:
			return decimal.NewFromInt(v.num), true
		case ast.TypeFloat:
			return decimal.NewFromFloat(v.fl), true
		}
		return decimal.Decimal{}, false
	}

	for i := range run.Params {
		p := &run.Params[i]
		switch p.Kind {
		case ast.LiteralParam, ast.VariableParam:
			v, ok := e.paramValue(run, p)
			if !ok {
				return deferredVal()
			}
			d, ok := toDecimal(v)
			if !ok {
				e.errorAt(diag.RuntimeOperationError, p.Span,
					"ARITHMETIC operand is %s, expected numeric", v.typeName())
				return deferredVal()
			}
			if v.typ == ast.TypeFloat {
				float = true
			}
			acc = d
			started = true
		case ast.ArithmeticParam:
			v, ok := e.paramValue(run, p)
			if !ok {
				return deferredVal()
			}
			d, ok := toDecimal(v)
			if !ok {
				e.errorAt(diag.RuntimeOperationError, p.Span,
					"ARITHMETIC operand is %s, expected numeric", v.typeName())
				return deferredVal()
			}
			if v.typ == ast.TypeFloat {
				float = true
			}
			if !apply(p.ArithOp, d) {
				e.errorAt(diag.DivisionByZero, p.Span,
					"ARITHMETIC for %q divides by zero", run.Target)
				return deferredVal()
			}
		}
	}
	if !started {
		e.errorAt(diag.RuntimeOperationError, run.Span,
			"ARITHMETIC for %q has no starting operand", run.Target)
		return deferredVal()
	}

	if float {
		f, _ := acc.Float64()
		return floatVal(f)
	}
	return intVal(acc.IntPart())
}

func (e *engine) collectionParam(run *ast.RunBlock) (value, bool) {
	for i := range run.Params {
		p := &run.Params[i]
		if p.Kind != ast.VariableParam && p.Kind != ast.LiteralParam {
			continue
		}
		v, ok := e.paramValue(run, p)
		if !ok {
			return value{}, false
		}
		if !v.collection {
			e.errorAt(diag.RuntimeOperationError, p.Span,
				"RUN %s %s: operand is %s, expected a collection", run.Target, run.Op, v.typeName())
			return value{}, false
		}
		return v, true
	}
	e.errorAt(diag.RuntimeOperationError, run.Span,
		"RUN %s %s: missing collection operand", run.Target, run.Op)
	return value{}, false
}

func (e *engine) evalCount(run *ast.RunBlock) value {
	coll, ok := e.collectionParam(run)
	if !ok {
		return deferredVal()
	}
	return intVal(int64(len(coll.items)))
}

// evalUnique deduplicates preserving first-seen order.
func (e *engine) evalUnique(run *ast.RunBlock) value {
	coll, ok := e.collectionParam(run)
	if !ok {
		return deferredVal()
	}
	seen := map[any]bool{}
	var items []value
	for _, item := range coll.items {
		key := item.scalarValue()
		if seen[key] {
			continue
		}
		seen[key] = true
		items = append(items, item)
	}
	return collectionVal(coll.typ, items)
}

func (e *engine) evalMerge(run *ast.RunBlock) value {
	var items []value
	elem := ast.TypeString
	first := true
	for i := range run.Params {
		p := &run.Params[i]
		if p.Kind != ast.VariableParam && p.Kind != ast.LiteralParam {
			continue
		}
		v, ok := e.paramValue(run, p)
		if !ok {
			return deferredVal()
		}
		if !v.collection {
			e.errorAt(diag.RuntimeOperationError, p.Span,
				"MERGE operand is %s, expected a collection", v.typeName())
			return deferredVal()
		}
		if first {
			elem = v.typ
			first = false
		} else if v.typ != elem {
			e.errorAt(diag.RuntimeOperationError, p.Span,
				"MERGE operands must share one element type; found %s and %s", elem, v.typ)
			return deferredVal()
		}
		items = append(items, v.items...)
	}
	return collectionVal(elem, items)
}
