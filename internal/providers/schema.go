package providers

import (
	"encoding/json"
	"fmt"

	"github.com/invopop/jsonschema"
)

// Schema names a JSON schema the model's reply must satisfy.
type Schema struct {
	Name       string
	Definition any
}

// SchemaFor reflects a strict JSON schema from T: every non-omitempty field
// is required and additional properties are rejected.
func SchemaFor[T any](name string) *Schema {
	r := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	var v T
	s := r.Reflect(v)
	s.Version = ""
	s.ID = ""
	return &Schema{Name: name, Definition: s}
}

// Instructions renders the schema as prompt text.
func (s *Schema) Instructions() string {
	data, err := json.MarshalIndent(s.Definition, "", "  ")
	if err != nil {
		data = []byte("{}")
	}
	return fmt.Sprintf("Respond with ONLY a JSON object named %q matching this JSON schema. No markdown, no explanation.\n%s", s.Name, data)
}
