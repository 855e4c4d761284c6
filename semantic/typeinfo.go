package semantic

import (
	"github.com/esplang/espc/ast"
	"github.com/esplang/espc/symbols"
)

// TypeInfo is the static type of a value position: a base data type plus a
// collection flag. Collections only arise as results of SPLIT, UNIQUE, and
// MERGE runtime operations; the surface type system has no collection
// literal.
type TypeInfo struct {
	Base       ast.DataType
	Collection bool
	// Unknown marks positions whose type cannot be pinned statically (e.g. a
	// deferred EXTRACT against a module-backed object). Unknown positions are
	// not reported as errors.
	Unknown bool
}

func (t TypeInfo) String() string {
	if t.Unknown {
		return "unknown"
	}
	if t.Collection {
		return "collection<" + t.Base.String() + ">"
	}
	return t.Base.String()
}

func scalar(t ast.DataType) TypeInfo     { return TypeInfo{Base: t} }
func collection(t ast.DataType) TypeInfo { return TypeInfo{Base: t, Collection: true} }
func unknownType() TypeInfo              { return TypeInfo{Unknown: true} }

// typeResolver computes static types for variables and RUN results. Results
// are memoized; dependency cycles are already rejected by reference
// validation, but the resolver still guards against them to stay total.
type typeResolver struct {
	tables  *symbols.Tables
	memo    map[string]TypeInfo
	walking map[string]bool
}

func newTypeResolver(tables *symbols.Tables) *typeResolver {
	return &typeResolver{
		tables:  tables,
		memo:    map[string]TypeInfo{},
		walking: map[string]bool{},
	}
}

// variableType returns the static type of a variable or RUN target.
func (r *typeResolver) variableType(name string) TypeInfo {
	if t, ok := r.memo[name]; ok {
		return t
	}
	if r.walking[name] {
		return unknownType()
	}
	r.walking[name] = true
	defer delete(r.walking, name)

	t := r.computeVariableType(name)
	r.memo[name] = t
	return t
}

func (r *typeResolver) computeVariableType(name string) TypeInfo {
	// A RUN target's type is the operation's result type; it wins over the
	// declared VAR type for collection-producing operations, which have no
	// declarable surface type.
	if sym, ok := r.tables.Global.RunTarget(name); ok {
		if run, ok := sym.Decl.(*ast.RunBlock); ok {
			return r.runResultType(run)
		}
	}
	if sym, ok := r.tables.Global.Variable(name); ok {
		if decl, ok := sym.Decl.(*ast.VariableDecl); ok {
			return scalar(decl.Type)
		}
	}
	return unknownType()
}

// valueType types a literal or variable reference in operation context.
func (r *typeResolver) valueType(v ast.Value) TypeInfo {
	switch v.Kind {
	case ast.StringValueKind:
		return scalar(ast.TypeString)
	case ast.IntValueKind:
		return scalar(ast.TypeInt)
	case ast.FloatValueKind:
		return scalar(ast.TypeFloat)
	case ast.BoolValueKind:
		return scalar(ast.TypeBoolean)
	case ast.VarRefKind:
		return r.variableType(v.Var)
	}
	return unknownType()
}

// objectFieldType types an OBJ id field extraction from the field's declared
// value.
func (r *typeResolver) objectFieldType(objectID, field string) TypeInfo {
	sym, ok := r.tables.Global.Object(objectID)
	if !ok {
		return unknownType()
	}
	decl, ok := sym.Decl.(*ast.ObjectDecl)
	if !ok {
		return unknownType()
	}
	for _, el := range decl.Elements {
		switch e := el.(type) {
		case *ast.FieldObjectElement:
			if e.Name == field {
				return r.valueType(e.Value)
			}
		case *ast.ParamsObjectElement:
			for _, f := range e.Fields {
				if f.Name == field {
					return r.valueType(f.Value)
				}
			}
		case *ast.SelectObjectElement:
			for _, f := range e.Fields {
				if f.Name == field {
					return r.valueType(f.Value)
				}
			}
		}
	}
	return unknownType()
}

// runResultType computes the result type of a RUN operation.
func (r *typeResolver) runResultType(run *ast.RunBlock) TypeInfo {
	switch run.Op {
	case ast.RunConcat, ast.RunSubstring, ast.RunRegexCapture:
		return scalar(ast.TypeString)
	case ast.RunSplit:
		return collection(ast.TypeString)
	case ast.RunCount:
		return scalar(ast.TypeInt)
	case ast.RunArithmetic:
		// An integer-pure chain yields int; any float makes it float.
		result := scalar(ast.TypeInt)
		for i := range run.Params {
			p := &run.Params[i]
			var t TypeInfo
			switch p.Kind {
			case ast.LiteralParam, ast.ArithmeticParam:
				t = r.valueType(p.Value)
			case ast.VariableParam:
				t = r.variableType(p.Name)
			case ast.ObjectExtractionParam:
				t = r.objectFieldType(p.ObjectID, p.Field)
			default:
				continue
			}
			if t.Unknown {
				continue
			}
			if t.Base == ast.TypeFloat && !t.Collection {
				result = scalar(ast.TypeFloat)
			}
		}
		return result
	case ast.RunUnique, ast.RunMerge:
		for i := range run.Params {
			p := &run.Params[i]
			if p.Kind == ast.VariableParam {
				if t := r.variableType(p.Name); t.Collection {
					return t
				}
			}
		}
		return collection(ast.TypeString)
	case ast.RunExtract:
		for i := range run.Params {
			p := &run.Params[i]
			if p.Kind == ast.ObjectExtractionParam {
				return r.objectFieldType(p.ObjectID, p.Field)
			}
		}
		return unknownType()
	}
	return unknownType()
}
