// Package semantic checks type/operation compatibility, RUN operation
// signatures, SET operand validity, and filter-state validity over the
// validated AST.
package semantic

import "github.com/esplang/espc/ast"

// Compatible reports whether the (type, operation) pair is in the allowed
// compatibility matrix. The matrix is closed: anything not listed here is
// rejected.
func Compatible(t ast.DataType, op ast.Operation) bool {
	switch t {
	case ast.TypeString:
		// Strings admit every operation family.
		return true
	case ast.TypeInt, ast.TypeFloat:
		switch op {
		case ast.OpEquals, ast.OpNotEqual,
			ast.OpGreaterThan, ast.OpLessThan, ast.OpGreaterEqual, ast.OpLessEqual,
			ast.OpSubsetOf, ast.OpSupersetOf:
			return true
		}
	case ast.TypeBoolean:
		return op == ast.OpEquals || op == ast.OpNotEqual
	case ast.TypeBinary:
		return op == ast.OpEquals || op == ast.OpNotEqual || op == ast.OpContains
	case ast.TypeRecord:
		return op == ast.OpEquals || op == ast.OpNotEqual
	case ast.TypeVersion, ast.TypeEvrString:
		switch op {
		case ast.OpEquals, ast.OpNotEqual,
			ast.OpGreaterThan, ast.OpLessThan, ast.OpGreaterEqual, ast.OpLessEqual:
			return true
		}
	}
	return false
}

// SupportedOperations lists the operations a type admits, for diagnostics.
func SupportedOperations(t ast.DataType) []ast.Operation {
	all := []ast.Operation{
		ast.OpEquals, ast.OpNotEqual,
		ast.OpGreaterThan, ast.OpLessThan, ast.OpGreaterEqual, ast.OpLessEqual,
		ast.OpCaseInsensitiveEquals, ast.OpCaseInsensitiveNotEqual,
		ast.OpContains, ast.OpNotContains,
		ast.OpStartsWith, ast.OpNotStartsWith,
		ast.OpEndsWith, ast.OpNotEndsWith,
		ast.OpPatternMatch, ast.OpMatches,
		ast.OpSubsetOf, ast.OpSupersetOf,
	}
	var out []ast.Operation
	for _, op := range all {
		if Compatible(t, op) {
			out = append(out, op)
		}
	}
	return out
}
