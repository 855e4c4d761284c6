package ast

import (
	"fmt"
	"strconv"
)

// ValueKind discriminates the Value union.
type ValueKind int

const (
	StringValueKind ValueKind = iota
	IntValueKind
	FloatValueKind
	BoolValueKind
	VarRefKind
)

func (k ValueKind) String() string {
	switch k {
	case StringValueKind:
		return "string"
	case IntValueKind:
		return "int"
	case FloatValueKind:
		return "float"
	case BoolValueKind:
		return "boolean"
	case VarRefKind:
		return "variable"
	default:
		return "unknown"
	}
}

// Value is a tagged union over the literal kinds that appear in the AST, plus
// the VariableReference placeholder that the resolver substitutes away.
type Value struct {
	Kind  ValueKind
	Str   string
	Int   int64
	Float float64
	Bool  bool
	Var   string
}

// StringValue creates a string literal value.
func StringValue(s string) Value {
	return Value{Kind: StringValueKind, Str: s}
}

// IntValue creates an integer literal value.
func IntValue(i int64) Value {
	return Value{Kind: IntValueKind, Int: i}
}

// FloatValue creates a float literal value.
func FloatValue(f float64) Value {
	return Value{Kind: FloatValueKind, Float: f}
}

// BoolValue creates a boolean literal value.
func BoolValue(b bool) Value {
	return Value{Kind: BoolValueKind, Bool: b}
}

// VarRef creates a variable reference placeholder.
func VarRef(name string) Value {
	return Value{Kind: VarRefKind, Var: name}
}

// IsVarRef reports whether the value is an unresolved variable reference.
func (v Value) IsVarRef() bool {
	return v.Kind == VarRefKind
}

// LiteralType returns the data type of a literal value. Variable references
// have no literal type; the second result is false for them.
func (v Value) LiteralType() (DataType, bool) {
	switch v.Kind {
	case StringValueKind:
		return TypeString, true
	case IntValueKind:
		return TypeInt, true
	case FloatValueKind:
		return TypeFloat, true
	case BoolValueKind:
		return TypeBoolean, true
	}
	return TypeString, false
}

// String renders the value in source form.
func (v Value) String() string {
	switch v.Kind {
	case StringValueKind:
		return "`" + v.Str + "`"
	case IntValueKind:
		return strconv.FormatInt(v.Int, 10)
	case FloatValueKind:
		return strconv.FormatFloat(v.Float, 'g', -1, 64)
	case BoolValueKind:
		return strconv.FormatBool(v.Bool)
	case VarRefKind:
		return "VAR " + v.Var
	default:
		return fmt.Sprintf("<invalid value kind %d>", v.Kind)
	}
}
