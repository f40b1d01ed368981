package tools

import (
	"fmt"
	"math"
)

// Type is a JSON-schema primitive type name.
type Type string

const (
	TypeString  Type = "string"
	TypeInteger Type = "integer"
	TypeNumber  Type = "number"
	TypeBoolean Type = "boolean"
	TypeArray   Type = "array"
	TypeObject  Type = "object"
)

func (t Type) valid() bool {
	switch t {
	case TypeString, TypeInteger, TypeNumber, TypeBoolean, TypeArray, TypeObject:
		return true
	}
	return false
}

// Parameter declares one named argument of a tool.
type Parameter struct {
	Name        string
	Type        Type
	Description string
	Required    bool
	// Default is applied when an optional argument is omitted. Nil means no default.
	Default any
	// Items is the element type of array parameters.
	Items Type
}

// Schema is the model-facing description of one tool.
type Schema struct {
	Name        string
	Description string
	Parameters  []Parameter
}

func newSchema(fd *FunctionDeclaration) Schema {
	return Schema{
		Name:        fd.Name,
		Description: fd.Description,
		Parameters:  append([]Parameter(nil), fd.Parameters...),
	}
}

// JSONSchema renders the parameters as a JSON-schema object.
func (s Schema) JSONSchema() map[string]any {
	properties := make(map[string]any, len(s.Parameters))
	required := []string{}
	for _, p := range s.Parameters {
		prop := map[string]any{
			"type": string(p.Type),
		}
		if p.Description != "" {
			prop["description"] = p.Description
		}
		if p.Default != nil {
			prop["default"] = p.Default
		}
		if p.Type == TypeArray {
			items := p.Items
			if items == "" {
				items = TypeString
			}
			prop["items"] = map[string]any{"type": string(items)}
		}
		properties[p.Name] = prop
		if p.Required {
			required = append(required, p.Name)
		}
	}

	return map[string]any{
		"type":       "object",
		"properties": properties,
		"required":   required,
	}
}

// checkArguments enforces required parameters and types, and fills defaults in place.
func checkArguments(params []Parameter, args map[string]any) error {
	for _, p := range params {
		v, present := args[p.Name]
		if !present || v == nil {
			if p.Required {
				return fmt.Errorf("missing required argument %q", p.Name)
			}
			if p.Default != nil {
				args[p.Name] = p.Default
			} else {
				delete(args, p.Name)
			}
			continue
		}
		if !matchesType(p.Type, v) {
			return fmt.Errorf("argument %q must be of type %s, got %T", p.Name, p.Type, v)
		}
		if p.Type == TypeArray && p.Items != "" {
			for i, item := range v.([]any) {
				if !matchesType(p.Items, item) {
					return fmt.Errorf("argument %q[%d] must be of type %s, got %T", p.Name, i, p.Items, item)
				}
			}
		}
	}
	return nil
}

func matchesType(t Type, v any) bool {
	switch t {
	case TypeString:
		_, ok := v.(string)
		return ok
	case TypeNumber:
		_, ok := v.(float64)
		return ok
	case TypeInteger:
		f, ok := v.(float64)
		return ok && f == math.Trunc(f)
	case TypeBoolean:
		_, ok := v.(bool)
		return ok
	case TypeArray:
		_, ok := v.([]any)
		return ok
	case TypeObject:
		_, ok := v.(map[string]any)
		return ok
	}
	return false
}
