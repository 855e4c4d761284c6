package token

// reservedKeywords is the closed set of words that cannot be used as
// identifiers; only words in this table are lexed as KEYWORD. Data types
// (string, int, ...) are not reserved: the parser classifies them from IDENT
// tokens.
var reservedKeywords = map[string]struct{}{
	// Block structure
	"META": {}, "META_END": {},
	"DEF": {}, "DEF_END": {},
	"VAR":   {},
	"STATE": {}, "STATE_END": {},
	"OBJECT": {}, "OBJECT_END": {},
	"CTN": {}, "CTN_END": {},
	"CRI": {}, "CRI_END": {},
	"SET": {}, "SET_END": {},
	"RUN": {}, "RUN_END": {},
	"FILTER": {}, "FILTER_END": {},
	"TEST": {},

	// Lowercase block delimiters
	"parameters": {}, "parameters_end": {},
	"select": {}, "select_end": {},
	"record": {}, "record_end": {},

	// References
	"STATE_REF":  {},
	"OBJECT_REF": {},
	"SET_REF":    {},
	"OBJ":        {},

	// Logical operators
	"AND": {}, "OR": {}, "NOT": {}, "ONE": {},

	// Boolean literals
	"true": {}, "false": {},

	// Set operations
	"union": {}, "intersection": {}, "complement": {},

	// Filter actions
	"include": {}, "exclude": {},

	// Test components
	"any": {}, "all": {}, "none": {},
	"at_least_one": {}, "only_one": {}, "none_satisfy": {},

	// Word-form operations
	"ieq": {}, "ine": {},
	"contains": {}, "not_contains": {},
	"starts": {}, "not_starts": {},
	"ends": {}, "not_ends": {},
	"pattern_match": {}, "matches": {},
	"subset_of": {}, "superset_of": {},

	// Runtime operations
	"CONCAT": {}, "SPLIT": {}, "SUBSTRING": {}, "REGEX_CAPTURE": {},
	"ARITHMETIC": {}, "COUNT": {}, "UNIQUE": {}, "MERGE": {}, "EXTRACT": {},
	"END": {},

	// RUN parameter introducers
	"literal": {}, "pattern": {}, "delimiter": {}, "character": {},
	"start": {}, "length": {},

	// Object elements
	"behavior": {}, "module": {},
	"module_name": {}, "module_version": {}, "module_command": {}, "module_type": {},
}

// IsReservedKeyword reports whether word is in the reserved keyword table.
func IsReservedKeyword(word string) bool {
	_, ok := reservedKeywords[word]
	return ok
}
