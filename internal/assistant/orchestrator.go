package assistant

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/AaronL1011/mechmate-sub000/internal/apperr"
	"github.com/AaronL1011/mechmate-sub000/internal/model"
)

// Role is the author of a conversation message.
type Role string

const (
	RoleSystem Role = "system"
	RoleUser   Role = "user"
	RoleModel  Role = "model"
	RoleTool   Role = "tool"
)

// Message is one entry of the running conversation. Model messages may
// carry Calls; tool messages carry the Name and Result of one call.
type Message struct {
	Role   Role
	Text   string
	Calls  []FunctionCall
	Name   string
	Result map[string]any
}

// Model is the language model capability: one synchronous call per turn.
type Model interface {
	Complete(ctx context.Context, messages []Message, functions []FunctionSpec) (Reply, error)
}

// ProposalResponse is returned to whoever sent the natural-language request.
type ProposalResponse struct {
	Success              bool                `json:"success"`
	Action               *model.ActionResult `json:"action,omitempty"`
	ActionID             string              `json:"action_id,omitempty"`
	Message              string              `json:"message,omitempty"`
	Error                string              `json:"error,omitempty"`
	RequiresConfirmation bool                `json:"requires_confirmation,omitempty"`
	RequiresMoreInfo     bool                `json:"requires_more_info,omitempty"`
}

// Orchestrator runs the bounded propose loop.
type Orchestrator struct {
	model         Model
	executor      *Executor
	pending       PendingStore
	parsers       ParserChain
	functions     []FunctionSpec
	maxIterations int
	now           func() time.Time
	logger        *zap.Logger
}

func NewOrchestrator(m Model, executor *Executor, pending PendingStore, maxIterations int, logger *zap.Logger) *Orchestrator {
	if maxIterations <= 0 {
		maxIterations = 3
	}
	return &Orchestrator{
		model:         m,
		executor:      executor,
		pending:       pending,
		parsers:       DefaultParsers(),
		functions:     Catalog(),
		maxIterations: maxIterations,
		now:           time.Now,
		logger:        logger,
	}
}

// Propose turns text into a plain answer or a pending action. Queries the
// model asks for are run and fed back; the first mutation ends the loop.
// Nothing is retried.
func (o *Orchestrator) Propose(ctx context.Context, text string) (ProposalResponse, error) {
	const op = "propose"
	if strings.TrimSpace(text) == "" {
		err := apperr.InvalidArguments(op, "text must not be empty")
		return ProposalResponse{Error: err.Error()}, err
	}

	messages := []Message{
		{Role: RoleSystem, Text: systemPrompt(o.now())},
		{Role: RoleUser, Text: text},
	}

	for iteration := 0; iteration < o.maxIterations; iteration++ {
		reply, err := o.model.Complete(ctx, messages, o.functions)
		if err != nil {
			o.logger.Warn("model call failed", zap.Int("iteration", iteration), zap.Error(err))
			return failed(apperr.Wrap(apperr.KindExternalCapabilityFailure, op, err))
		}

		calls, err := o.parsers.Parse(reply)
		if err != nil {
			o.logger.Warn("unparseable model reply", zap.Int("iteration", iteration), zap.Error(err))
			return failed(err)
		}
		if len(calls) == 0 {
			return ProposalResponse{Success: true, Message: strings.TrimSpace(reply.Text)}, nil
		}

		messages = append(messages, Message{Role: RoleModel, Text: reply.Text, Calls: calls})
		for _, call := range calls {
			out, err := o.executor.Execute(ctx, call.Name, call.Arguments)
			if err != nil {
				o.logger.Info("function call failed",
					zap.String("function", call.Name), zap.Int("iteration", iteration), zap.Error(err))
				return failed(err)
			}

			if out.Action != nil {
				token, err := o.pending.Put(*out.Action)
				if err != nil {
					return failed(err)
				}
				o.logger.Info("action proposed",
					zap.String("function", call.Name),
					zap.String("action_id", token),
					zap.String("entity", string(out.Action.Entity)),
					zap.String("type", string(out.Action.Type)))
				return ProposalResponse{
					Success:              true,
					Action:               out.Action,
					ActionID:             token,
					Message:              out.Action.ConfirmationMessage,
					RequiresConfirmation: out.Action.RequiresConfirmation,
				}, nil
			}

			result, err := toolResult(out.Result)
			if err != nil {
				return failed(apperr.Wrap(apperr.KindInternal, op, err))
			}
			messages = append(messages, Message{Role: RoleTool, Name: call.Name, Result: result})
		}
	}

	err := apperr.New(apperr.KindIterationBudgetExhausted, op, "no answer after %d model turns", o.maxIterations)
	o.logger.Info("iteration budget exhausted", zap.Int("max_iterations", o.maxIterations))
	return ProposalResponse{
		RequiresMoreInfo: true,
		Message:          "I need more information to do that. Could you be more specific?",
		Error:            err.Error(),
	}, err
}

func failed(err error) (ProposalResponse, error) {
	return ProposalResponse{Error: apperr.UserMessage(err)}, err
}

// toolResult converts a query result into the generic JSON shape models take.
func toolResult(v any) (map[string]any, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode tool result: %w", err)
	}
	var generic any
	if err := json.Unmarshal(raw, &generic); err != nil {
		return nil, fmt.Errorf("decode tool result: %w", err)
	}
	return map[string]any{"result": generic}, nil
}

func systemPrompt(now time.Time) string {
	return fmt.Sprintf(`You are MechMate, an assistant that keeps track of equipment maintenance.
Today is %s.
Use the query functions to look up equipment, tasks and history before answering.
To change anything, call exactly one mutation function; the user confirms every change before it is applied.
Never invent IDs: look them up first. Dates use YYYY-MM-DD.
When nothing needs to be looked up or changed, answer in plain text.`, model.DateOf(now))
}
