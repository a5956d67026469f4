package flowchart

import (
	"encoding/json"
	"strings"

	"github.com/invopop/jsonschema"
	"github.com/pkg/errors"
	"github.com/xeipuuv/gojsonschema"
)

const schemaDraft = "http://json-schema.org/draft-07/schema#"

// Schema describes the JSON form of a Diagram.
func Schema() *jsonschema.Schema {
	r := &jsonschema.Reflector{
		DoNotReference: true,
	}
	s := r.Reflect(&Diagram{})
	s.Version = schemaDraft
	s.Title = "knode diagram"
	return s
}

// Validate checks that doc is a Diagram document. The error lists every
// violation.
func Validate(doc []byte) error {
	schema, err := json.Marshal(Schema())
	if err != nil {
		return errors.Wrap(err, "could not marshal schema")
	}

	result, err := gojsonschema.Validate(
		gojsonschema.NewBytesLoader(schema),
		gojsonschema.NewBytesLoader(doc),
	)
	if err != nil {
		return errors.Wrap(err, "failed to validate diagram")
	}
	if result.Valid() {
		return nil
	}

	var descriptions []string
	for _, desc := range result.Errors() {
		descriptions = append(descriptions, desc.String())
	}
	return errors.Errorf("invalid diagram:\n- %s", strings.Join(descriptions, "\n- "))
}
