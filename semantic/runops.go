package semantic

import (
	"github.com/esplang/espc/ast"
	"github.com/esplang/espc/diag"
)

// checkRun validates a RUN block against its operation signature and checks
// the declared target type against the operation's result type.
func (a *analyzer) checkRun(r *ast.RunBlock) {
	switch r.Op {
	case ast.RunConcat:
		a.checkConcat(r)
	case ast.RunSplit:
		a.checkSplit(r)
	case ast.RunSubstring:
		a.checkSubstring(r)
	case ast.RunRegexCapture:
		a.checkRegexCapture(r)
	case ast.RunArithmetic:
		a.checkArithmetic(r)
	case ast.RunCount:
		a.checkCount(r)
	case ast.RunUnique:
		a.checkUnique(r)
	case ast.RunMerge:
		a.checkMerge(r)
	case ast.RunExtract:
		a.checkExtract(r)
	}

	a.checkTargetType(r)
}

// checkTargetType compares an explicit VAR declaration of the target against
// the operation's result type.
func (a *analyzer) checkTargetType(r *ast.RunBlock) {
	sym, ok := a.tables.Global.Variable(r.Target)
	if !ok {
		return // implicitly declared target takes the result type
	}
	decl, ok := sym.Decl.(*ast.VariableDecl)
	if !ok {
		return
	}
	result := a.types.runResultType(r)
	if result.Unknown || result.Collection {
		// Collection results have no declarable surface type; an explicit
		// VAR declaration is not checked against them.
		return
	}
	// Widening int to float is fine; narrowing float to int is not.
	agrees := result.Base == decl.Type ||
		(decl.Type == ast.TypeFloat && result.Base == ast.TypeInt) ||
		((decl.Type == ast.TypeVersion || decl.Type == ast.TypeEvrString || decl.Type == ast.TypeBinary) && result.Base == ast.TypeString)
	if !agrees {
		a.report(diag.Errorf(diag.RuntimeOperationError, r.Span,
			"RUN %s assigns %s to variable %q declared as %s",
			r.Op, result.Base, r.Target, decl.Type).
			With("target", r.Target).
			With("operation", r.Op.String()))
	}
}

// operandType types a data-carrying RUN parameter. Introducer parameters
// (pattern, delimiter, start, ...) are not operands.
func (a *analyzer) operandType(p *ast.RunParam, context ast.DataType) TypeInfo {
	switch p.Kind {
	case ast.LiteralParam:
		return a.inferLiteral(p, context)
	case ast.VariableParam:
		return a.types.variableType(p.Name)
	case ast.ObjectExtractionParam:
		return a.types.objectFieldType(p.ObjectID, p.Field)
	case ast.ArithmeticParam:
		if p.Value.IsVarRef() {
			return a.types.variableType(p.Value.Var)
		}
		return a.inferLiteral(p, context)
	}
	return unknownType()
}

// inferLiteral types a literal parameter using operation context. When the
// context cannot pin an ambiguous numeric literal, int is preferred over
// float and a warning is emitted.
func (a *analyzer) inferLiteral(p *ast.RunParam, context ast.DataType) TypeInfo {
	v := p.Value
	if v.IsVarRef() {
		return a.types.variableType(v.Var)
	}
	t, ok := v.LiteralType()
	if !ok {
		return unknownType()
	}
	if t == ast.TypeInt && context == ast.TypeFloat {
		// Numeric context accepts the integer literal as-is; the chain purity
		// rule decides the final width.
		return scalar(ast.TypeInt)
	}
	if t == ast.TypeInt && context == ast.TypeString {
		a.report(diag.Warnf(diag.AmbiguousLiteralType, p.Span,
			"numeric literal in string context is kept as int; write a backtick string to force string typing"))
	}
	return scalar(t)
}

// dataParams returns the operand parameters (literal, VAR, OBJ) of a block.
func dataParams(r *ast.RunBlock) []*ast.RunParam {
	var out []*ast.RunParam
	for i := range r.Params {
		switch r.Params[i].Kind {
		case ast.LiteralParam, ast.VariableParam, ast.ObjectExtractionParam:
			out = append(out, &r.Params[i])
		}
	}
	return out
}

func (a *analyzer) signatureError(r *ast.RunBlock, format string, args ...any) {
	a.report(diag.Errorf(diag.RuntimeOperationError, r.Span, format, args...).
		With("target", r.Target).
		With("operation", r.Op.String()))
}

// checkConcat: all operands string, at least two of them.
func (a *analyzer) checkConcat(r *ast.RunBlock) {
	operands := dataParams(r)
	if len(operands) < 2 {
		a.signatureError(r, "CONCAT requires at least 2 string operands, got %d", len(operands))
		return
	}
	for _, p := range operands {
		t := a.operandType(p, ast.TypeString)
		if !t.Unknown && (t.Collection || t.Base != ast.TypeString) {
			a.signatureError(r, "CONCAT operand must be string, got %s", t)
		}
	}
}

// checkSplit: one string input plus exactly one delimiter or character.
func (a *analyzer) checkSplit(r *ast.RunBlock) {
	operands := dataParams(r)
	if len(operands) != 1 {
		a.signatureError(r, "SPLIT requires exactly 1 string input, got %d", len(operands))
	} else if t := a.operandType(operands[0], ast.TypeString); !t.Unknown && (t.Collection || t.Base != ast.TypeString) {
		a.signatureError(r, "SPLIT input must be string, got %s", t)
	}

	separators := 0
	for i := range r.Params {
		if r.Params[i].Kind == ast.DelimiterParam || r.Params[i].Kind == ast.CharacterParam {
			separators++
		}
	}
	if separators != 1 {
		a.signatureError(r, "SPLIT requires exactly one delimiter or character parameter, got %d", separators)
	}
}

// checkSubstring: string input, start, optional length.
func (a *analyzer) checkSubstring(r *ast.RunBlock) {
	operands := dataParams(r)
	if len(operands) != 1 {
		a.signatureError(r, "SUBSTRING requires exactly 1 string input, got %d", len(operands))
	} else if t := a.operandType(operands[0], ast.TypeString); !t.Unknown && (t.Collection || t.Base != ast.TypeString) {
		a.signatureError(r, "SUBSTRING input must be string, got %s", t)
	}

	starts, lengths := 0, 0
	for i := range r.Params {
		switch r.Params[i].Kind {
		case ast.StartParam:
			starts++
		case ast.LengthParam:
			lengths++
		}
	}
	if starts != 1 {
		a.signatureError(r, "SUBSTRING requires exactly one start parameter")
	}
	if lengths > 1 {
		a.signatureError(r, "SUBSTRING accepts at most one length parameter")
	}
}

// checkRegexCapture: string input plus a pattern. Pattern validity is the
// scanner runtime's concern; the text is stored verbatim.
func (a *analyzer) checkRegexCapture(r *ast.RunBlock) {
	operands := dataParams(r)
	if len(operands) != 1 {
		a.signatureError(r, "REGEX_CAPTURE requires exactly 1 string input, got %d", len(operands))
	} else if t := a.operandType(operands[0], ast.TypeString); !t.Unknown && (t.Collection || t.Base != ast.TypeString) {
		a.signatureError(r, "REGEX_CAPTURE input must be string, got %s", t)
	}

	patterns := 0
	for i := range r.Params {
		if r.Params[i].Kind == ast.PatternParam {
			patterns++
		}
	}
	if patterns != 1 {
		a.signatureError(r, "REGEX_CAPTURE requires exactly one pattern parameter, got %d", patterns)
	}
}

// checkArithmetic: a numeric start value followed by (op, numeric) pairs.
func (a *analyzer) checkArithmetic(r *ast.RunBlock) {
	if len(r.Params) == 0 {
		a.signatureError(r, "ARITHMETIC requires a starting operand")
		return
	}

	sawStart := false
	for i := range r.Params {
		p := &r.Params[i]
		switch p.Kind {
		case ast.LiteralParam, ast.VariableParam, ast.ObjectExtractionParam:
			if sawStart {
				a.signatureError(r, "ARITHMETIC allows only one starting operand; chain further values with +, -, *, /, %%")
				return
			}
			sawStart = true
			if t := a.operandType(p, ast.TypeFloat); !t.Unknown && (t.Collection || !t.Base.IsNumeric()) {
				a.signatureError(r, "ARITHMETIC operand must be numeric, got %s", t)
			}
		case ast.ArithmeticParam:
			if !sawStart {
				a.signatureError(r, "ARITHMETIC chain operator before the starting operand")
				return
			}
			if t := a.operandType(p, ast.TypeFloat); !t.Unknown && (t.Collection || !t.Base.IsNumeric()) {
				a.signatureError(r, "ARITHMETIC operand must be numeric, got %s", t)
			}
		default:
			a.signatureError(r, "ARITHMETIC does not accept %s parameters", paramKindText(p.Kind))
			return
		}
	}
	if !sawStart {
		a.signatureError(r, "ARITHMETIC requires a starting operand")
	}
}

// checkCount: one collection operand.
func (a *analyzer) checkCount(r *ast.RunBlock) {
	operands := dataParams(r)
	if len(operands) != 1 {
		a.signatureError(r, "COUNT requires exactly 1 collection operand, got %d", len(operands))
		return
	}
	if t := a.operandType(operands[0], ast.TypeString); !t.Unknown && !t.Collection {
		a.signatureError(r, "COUNT operand must be a collection, got %s", t)
	}
}

// checkUnique: one collection operand; the result keeps the element type.
func (a *analyzer) checkUnique(r *ast.RunBlock) {
	operands := dataParams(r)
	if len(operands) != 1 {
		a.signatureError(r, "UNIQUE requires exactly 1 collection operand, got %d", len(operands))
		return
	}
	if t := a.operandType(operands[0], ast.TypeString); !t.Unknown && !t.Collection {
		a.signatureError(r, "UNIQUE operand must be a collection, got %s", t)
	}
}

// checkMerge: two or more collections of identical element type.
func (a *analyzer) checkMerge(r *ast.RunBlock) {
	operands := dataParams(r)
	if len(operands) < 2 {
		a.signatureError(r, "MERGE requires at least 2 collection operands, got %d", len(operands))
		return
	}
	var elem *ast.DataType
	for _, p := range operands {
		t := a.operandType(p, ast.TypeString)
		if t.Unknown {
			continue
		}
		if !t.Collection {
			a.signatureError(r, "MERGE operand must be a collection, got %s", t)
			continue
		}
		if elem == nil {
			base := t.Base
			elem = &base
		} else if *elem != t.Base {
			a.signatureError(r, "MERGE operands must share one element type; found %s and %s", *elem, t.Base)
		}
	}
}

// checkExtract: exactly one OBJ id field parameter and nothing else.
func (a *analyzer) checkExtract(r *ast.RunBlock) {
	if len(r.Params) != 1 || r.Params[0].Kind != ast.ObjectExtractionParam {
		a.signatureError(r, "EXTRACT requires exactly one OBJ object field parameter")
	}
}

func paramKindText(k ast.RunParamKind) string {
	switch k {
	case ast.LiteralParam:
		return "literal"
	case ast.VariableParam:
		return "VAR"
	case ast.ObjectExtractionParam:
		return "OBJ"
	case ast.PatternParam:
		return "pattern"
	case ast.DelimiterParam:
		return "delimiter"
	case ast.CharacterParam:
		return "character"
	case ast.StartParam:
		return "start"
	case ast.LengthParam:
		return "length"
	case ast.ArithmeticParam:
		return "arithmetic"
	default:
		return "unknown"
	}
}
