package assistant

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/AaronL1011/mechmate-sub000/internal/apperr"
)

// FunctionCall is a parsed request from the model to run a catalog function.
type FunctionCall struct {
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
}

// RawToolCall is a tool call as the model returned it. Arguments is a map
// or a JSON-encoded object.
type RawToolCall struct {
	Name      string
	Arguments any
}

// Reply is one model turn.
type Reply struct {
	Text      string
	ToolCalls []RawToolCall
}

// ResponseParser extracts function calls from a reply. It returns no calls
// and no error when it finds nothing it recognises.
type ResponseParser interface {
	Parse(reply Reply) ([]FunctionCall, error)
}

// ParserChain tries parsers in order; the first that yields calls wins.
type ParserChain []ResponseParser

// DefaultParsers prefers structured tool calls over markers in the text.
func DefaultParsers() ParserChain {
	return ParserChain{StructuredParser{}, MarkerParser{}}
}

func (c ParserChain) Parse(reply Reply) ([]FunctionCall, error) {
	for _, p := range c {
		calls, err := p.Parse(reply)
		if err != nil {
			return nil, apperr.Wrap(apperr.KindExternalCapabilityFailure, "parse model reply", err)
		}
		if len(calls) > 0 {
			return calls, nil
		}
	}
	return nil, nil
}

// StructuredParser reads the reply's native tool calls.
type StructuredParser struct{}

func (StructuredParser) Parse(reply Reply) ([]FunctionCall, error) {
	calls := make([]FunctionCall, 0, len(reply.ToolCalls))
	for i, raw := range reply.ToolCalls {
		if strings.TrimSpace(raw.Name) == "" {
			return nil, fmt.Errorf("tool call %d has no name", i)
		}
		arguments, err := decodeArguments(raw.Arguments)
		if err != nil {
			return nil, fmt.Errorf("tool call %q: %w", raw.Name, err)
		}
		calls = append(calls, FunctionCall{Name: raw.Name, Arguments: arguments})
	}
	return calls, nil
}

var (
	functionCallTag = regexp.MustCompile(`(?s)<function_call>\s*(.*?)\s*</function_call>`)
	jsonFence       = regexp.MustCompile("(?s)```json\\s*(.*?)\\s*```")
)

// MarkerParser finds calls embedded in reply text, either in
// <function_call> tags or in fenced json blocks carrying a "name". A tag
// with a malformed body is an error; a fenced block that is not a call
// object is ignored.
type MarkerParser struct{}

func (MarkerParser) Parse(reply Reply) ([]FunctionCall, error) {
	var calls []FunctionCall
	for _, m := range functionCallTag.FindAllStringSubmatch(reply.Text, -1) {
		call, err := decodeMarker(m[1])
		if err != nil {
			return nil, fmt.Errorf("function_call tag: %w", err)
		}
		calls = append(calls, call)
	}
	if len(calls) > 0 {
		return calls, nil
	}

	for _, m := range jsonFence.FindAllStringSubmatch(reply.Text, -1) {
		var probe map[string]json.RawMessage
		if err := json.Unmarshal([]byte(m[1]), &probe); err != nil {
			continue
		}
		if _, ok := probe["name"]; !ok {
			continue
		}
		call, err := decodeMarker(m[1])
		if err != nil {
			return nil, fmt.Errorf("json block: %w", err)
		}
		calls = append(calls, call)
	}
	return calls, nil
}

func decodeMarker(body string) (FunctionCall, error) {
	var envelope struct {
		Name      string `json:"name"`
		Arguments any    `json:"arguments"`
	}
	if err := json.Unmarshal([]byte(body), &envelope); err != nil {
		return FunctionCall{}, fmt.Errorf("decode call: %w", err)
	}
	if strings.TrimSpace(envelope.Name) == "" {
		return FunctionCall{}, fmt.Errorf("call has no name")
	}
	arguments, err := decodeArguments(envelope.Arguments)
	if err != nil {
		return FunctionCall{}, fmt.Errorf("call %q: %w", envelope.Name, err)
	}
	return FunctionCall{Name: envelope.Name, Arguments: arguments}, nil
}

func decodeArguments(v any) (map[string]any, error) {
	switch a := v.(type) {
	case nil:
		return map[string]any{}, nil
	case map[string]any:
		return a, nil
	case string:
		if strings.TrimSpace(a) == "" {
			return map[string]any{}, nil
		}
		var out map[string]any
		if err := json.Unmarshal([]byte(a), &out); err != nil {
			return nil, fmt.Errorf("arguments are not a JSON object: %w", err)
		}
		if out == nil {
			out = map[string]any{}
		}
		return out, nil
	default:
		return nil, fmt.Errorf("arguments have type %T, want object", v)
	}
}
