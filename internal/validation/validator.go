package validation

import "github.com/Kajalmeshram11/workflow-engine/pkg/schema"

// ToolLookup is the subset of the tool registry the validator needs.
// May be nil to skip tool existence checks.
type ToolLookup interface {
	Has(name string) bool
}

// GraphValidator orchestrates the two-stage validation pipeline:
// 1. Structural (JSON Schema)
// 2. Semantic (duplicate names, edge references, tool refs, reachability)
type GraphValidator struct {
	jsonSchema *JSONSchemaValidator
	tools      ToolLookup
}

// NewGraphValidator creates a GraphValidator.
// lookup may be nil to skip tool existence checks.
func NewGraphValidator(lookup ToolLookup) (*GraphValidator, error) {
	jsv, err := NewJSONSchemaValidator()
	if err != nil {
		return nil, err
	}
	return &GraphValidator{
		jsonSchema: jsv,
		tools:      lookup,
	}, nil
}

// Validate runs the full pipeline and returns an aggregated result.
// Structural errors short-circuit: the semantic stage is skipped.
func (gv *GraphValidator) Validate(def *schema.GraphDefinition) *schema.ValidationResult {
	if def == nil {
		r := &schema.ValidationResult{}
		r.AddError("/", schema.ErrCodeValidation, "graph definition is nil")
		return r
	}

	// Stage 1: Structural (JSON Schema).
	result := &schema.ValidationResult{}
	if err := gv.jsonSchema.ValidateDefinition(def); err != nil {
		result.AddError("/", schema.ErrCodeValidation, err.Error())
		return result
	}

	// Stage 2: Semantic.
	result.Merge(validateSemantic(def, gv.tools))

	return result
}

// ValidateDefinition returns a typed error if the definition is invalid.
func (gv *GraphValidator) ValidateDefinition(def *schema.GraphDefinition) error {
	return gv.Validate(def).ToError()
}
