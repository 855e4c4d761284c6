package execctx

import (
	"encoding/json"

	"github.com/goccy/go-yaml"
	"github.com/google/uuid"
)

// documentNamespace is the UUID namespace for execution context ids.
var documentNamespace = uuid.MustParse("7a1e41c2-9f6b-4c62-8d7e-2f0b6f5a9c11")

// DocumentIDFor derives the document id from the source bytes. The id is a
// name-based UUID so that compiling the same bytes twice yields the same
// document, keeping the whole context byte-stable.
func DocumentIDFor(source []byte) string {
	return uuid.NewSHA1(documentNamespace, source).String()
}

// EncodeYAML renders the context as YAML. Field order follows struct order,
// so the output is stable across runs.
func EncodeYAML(ctx *ExecutionContext) ([]byte, error) {
	return yaml.Marshal(ctx)
}

// EncodeJSON renders the context as indented JSON.
func EncodeJSON(ctx *ExecutionContext) ([]byte, error) {
	return json.MarshalIndent(ctx, "", "  ")
}
