package llm

import (
	"google.golang.org/genai"

	"github.com/AaronL1011/mechmate-sub000/internal/assistant"
)

func toDeclarations(functions []assistant.FunctionSpec) []*genai.FunctionDeclaration {
	out := make([]*genai.FunctionDeclaration, 0, len(functions))
	for _, f := range functions {
		decl := &genai.FunctionDeclaration{
			Name:        f.Name,
			Description: f.Description,
		}
		if len(f.Params) > 0 {
			decl.Parameters = toSchema(f.Params)
		}
		out = append(out, decl)
	}
	return out
}

func toSchema(params []assistant.Param) *genai.Schema {
	schema := &genai.Schema{Type: genai.TypeObject, Properties: make(map[string]*genai.Schema, len(params))}
	for _, p := range params {
		prop := &genai.Schema{Description: p.Description, Enum: p.Enum}
		switch p.Type {
		case assistant.TypeInteger:
			prop.Type = genai.TypeInteger
		case assistant.TypeNumber:
			prop.Type = genai.TypeNumber
		case assistant.TypeBoolean:
			prop.Type = genai.TypeBoolean
		case assistant.TypeDate:
			prop.Type = genai.TypeString
			prop.Format = "date"
		case assistant.TypeStringArray:
			prop.Type = genai.TypeArray
			prop.Items = &genai.Schema{Type: genai.TypeString}
		default:
			prop.Type = genai.TypeString
			if len(p.Enum) > 0 {
				prop.Format = "enum"
			}
		}
		schema.Properties[p.Name] = prop
		if p.Required {
			schema.Required = append(schema.Required, p.Name)
		}
	}
	return schema
}
