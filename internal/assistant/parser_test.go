package assistant

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AaronL1011/mechmate-sub000/internal/apperr"
)

func TestParserChain(t *testing.T) {
	tests := []struct {
		name    string
		reply   Reply
		want    []FunctionCall
		wantErr bool
	}{
		{
			name:  "plain text",
			reply: Reply{Text: "Your Civic is due for an oil change."},
		},
		{
			name:  "structured map arguments",
			reply: Reply{ToolCalls: []RawToolCall{{Name: "get_task", Arguments: map[string]any{"id": 3.0}}}},
			want:  []FunctionCall{{Name: "get_task", Arguments: map[string]any{"id": 3.0}}},
		},
		{
			name:  "structured string arguments",
			reply: Reply{ToolCalls: []RawToolCall{{Name: "list_overdue_tasks", Arguments: ""}, {Name: "get_task", Arguments: `{"id": 4}`}}},
			want: []FunctionCall{
				{Name: "list_overdue_tasks", Arguments: map[string]any{}},
				{Name: "get_task", Arguments: map[string]any{"id": 4.0}},
			},
		},
		{
			name:  "structured wins over markers",
			reply: Reply{Text: `<function_call>{"name":"delete_task","arguments":{"id":1}}</function_call>`, ToolCalls: []RawToolCall{{Name: "get_task", Arguments: map[string]any{"id": 1.0}}}},
			want:  []FunctionCall{{Name: "get_task", Arguments: map[string]any{"id": 1.0}}},
		},
		{
			name:  "function_call tag",
			reply: Reply{Text: "Let me check.\n<function_call>\n{\"name\": \"search_equipment\", \"arguments\": {\"query\": \"civic\"}}\n</function_call>"},
			want:  []FunctionCall{{Name: "search_equipment", Arguments: map[string]any{"query": "civic"}}},
		},
		{
			name:  "fenced json block",
			reply: Reply{Text: "```json\n{\"name\": \"list_tasks\", \"arguments\": \"{\\\"status\\\": \\\"overdue\\\"}\"}\n```"},
			want:  []FunctionCall{{Name: "list_tasks", Arguments: map[string]any{"status": "overdue"}}},
		},
		{
			name:  "fenced json that is not a call",
			reply: Reply{Text: "Here is the record:\n```json\n{\"id\": 3, \"title\": \"Oil change\"}\n```"},
		},
		{
			name:    "malformed tag",
			reply:   Reply{Text: "<function_call>{name: get_task}</function_call>"},
			wantErr: true,
		},
		{
			name:    "arguments not an object",
			reply:   Reply{ToolCalls: []RawToolCall{{Name: "get_task", Arguments: []any{1.0}}}},
			wantErr: true,
		},
		{
			name:    "nameless call",
			reply:   Reply{ToolCalls: []RawToolCall{{Arguments: map[string]any{}}}},
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls, err := DefaultParsers().Parse(tt.reply)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, apperr.ErrExternalCapabilityFailure)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, calls)
		})
	}
}
