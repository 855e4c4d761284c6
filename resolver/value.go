package resolver

import (
	"fmt"

	"github.com/esplang/espc/ast"
	"github.com/esplang/espc/execctx"
)

// value is the resolver's working representation of a fully resolved value.
// Collections arise only from SPLIT/UNIQUE/MERGE results; deferred values are
// sentinels filled by the scanner runtime after collection.
type value struct {
	typ        ast.DataType
	collection bool
	deferred   bool

	str   string
	num   int64
	fl    float64
	boolv bool
	items []value
}

func stringVal(s string) value { return value{typ: ast.TypeString, str: s} }
func intVal(i int64) value     { return value{typ: ast.TypeInt, num: i} }
func floatVal(f float64) value { return value{typ: ast.TypeFloat, fl: f} }
func boolVal(b bool) value     { return value{typ: ast.TypeBoolean, boolv: b} }
func deferredVal() value       { return value{deferred: true} }

func collectionVal(elem ast.DataType, items []value) value {
	return value{typ: elem, collection: true, items: items}
}

// fromLiteral converts an AST literal; the caller guarantees it is not a
// variable reference.
func fromLiteral(v ast.Value) (value, error) {
	switch v.Kind {
	case ast.StringValueKind:
		return stringVal(v.Str), nil
	case ast.IntValueKind:
		return intVal(v.Int), nil
	case ast.FloatValueKind:
		return floatVal(v.Float), nil
	case ast.BoolValueKind:
		return boolVal(v.Bool), nil
	}
	return value{}, fmt.Errorf("cannot convert %s to a resolved value", v.Kind)
}

// convertTo coerces the value to the declared type. The numeric pair is
// mutually convertible; string-typed declarations (version, evr_string,
// binary) accept string values. Anything else must match exactly.
func (v value) convertTo(t ast.DataType) (value, bool) {
	if v.deferred || v.collection {
		return v, true
	}
	if v.typ == t {
		return v, true
	}
	switch {
	case t == ast.TypeFloat && v.typ == ast.TypeInt:
		return floatVal(float64(v.num)), true
	case t == ast.TypeInt && v.typ == ast.TypeFloat:
		if v.fl == float64(int64(v.fl)) {
			return intVal(int64(v.fl)), true
		}
		return v, false
	case (t == ast.TypeVersion || t == ast.TypeEvrString || t == ast.TypeBinary) && v.typ == ast.TypeString:
		out := v
		out.typ = t
		return out, true
	}
	return v, false
}

// typeName renders the value's type for documents and diagnostics.
func (v value) typeName() string {
	if v.deferred {
		return "deferred"
	}
	if v.collection {
		return "collection<" + v.typ.String() + ">"
	}
	return v.typ.String()
}

// export converts the working value to the document form.
func (v value) export() execctx.Value {
	if v.deferred {
		return execctx.Value{Type: "deferred", Value: nil, Deferred: true}
	}
	if v.collection {
		items := make([]any, len(v.items))
		for i, item := range v.items {
			items[i] = item.scalarValue()
		}
		return execctx.Value{Type: v.typeName(), Value: items}
	}
	return execctx.Value{Type: v.typeName(), Value: v.scalarValue()}
}

func (v value) scalarValue() any {
	switch v.typ {
	case ast.TypeInt:
		return v.num
	case ast.TypeFloat:
		return v.fl
	case ast.TypeBoolean:
		return v.boolv
	default:
		return v.str
	}
}

// asString renders string-kinded values (string, version, evr_string,
// binary carry their text in str).
func (v value) asString() (string, bool) {
	if v.collection || v.deferred {
		return "", false
	}
	switch v.typ {
	case ast.TypeString, ast.TypeVersion, ast.TypeEvrString, ast.TypeBinary:
		return v.str, true
	}
	return "", false
}
