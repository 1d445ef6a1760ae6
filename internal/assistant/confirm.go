package assistant

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/AaronL1011/mechmate-sub000/internal/apperr"
	"github.com/AaronL1011/mechmate-sub000/internal/model"
	"github.com/AaronL1011/mechmate-sub000/internal/service"
)

// ConfirmRequest is the user's decision on a pending action.
type ConfirmRequest struct {
	Token      string         `json:"action_id"`
	Confirmed  bool           `json:"confirmed"`
	EditedData map[string]any `json:"edited_data,omitempty"`
	Feedback   string         `json:"feedback,omitempty"`
}

// ConfirmationResponse reports what confirming did.
type ConfirmationResponse struct {
	Success  bool   `json:"success"`
	Result   any    `json:"result,omitempty"`
	Message  string `json:"message,omitempty"`
	Error    string `json:"error,omitempty"`
	Feedback string `json:"feedback,omitempty"`
}

// Confirmer applies or discards pending actions.
type Confirmer struct {
	pending PendingStore
	svc     Services
	now     func() time.Time
	logger  *zap.Logger
}

func NewConfirmer(pending PendingStore, svc Services, logger *zap.Logger) *Confirmer {
	return &Confirmer{pending: pending, svc: svc, now: time.Now, logger: logger}
}

// Confirm redeems req.Token once. Edits are merged over the proposal before
// it is applied.
func (c *Confirmer) Confirm(ctx context.Context, req ConfirmRequest) (ConfirmationResponse, error) {
	log := c.logger.With(zap.String("action_id", req.Token))
	if req.Feedback != "" {
		log.Info("confirmation feedback", zap.String("feedback", req.Feedback))
	}

	entry, err := c.pending.Take(req.Token)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			err = apperr.New(apperr.KindNotFound, apperr.OpConfirm, "action %q not found", req.Token)
		}
		return c.failed(req, err)
	}
	if entry.Expired(c.now()) {
		log.Info("pending action expired", zap.Time("expired_at", entry.ExpiresAt))
		return c.failed(req, apperr.New(apperr.KindExpired, apperr.OpConfirm, "action %q expired", req.Token))
	}

	if !req.Confirmed {
		log.Info("action cancelled", zap.String("entity", string(entry.Action.Entity)), zap.String("type", string(entry.Action.Type)))
		return ConfirmationResponse{Success: true, Message: "Cancelled, nothing was changed.", Feedback: req.Feedback}, nil
	}

	payload, err := model.MergeEdits(entry.Action.Data, req.EditedData)
	if err != nil {
		return c.failed(req, apperr.InvalidArguments(apperr.OpConfirm, "edited data: %v", err))
	}
	if err := payload.Validate(); err != nil {
		return c.failed(req, apperr.InvalidArguments(apperr.OpConfirm, "%v", err))
	}

	result, message, err := c.apply(ctx, payload)
	if err != nil {
		log.Warn("applying action failed", zap.Error(err))
		return c.failed(req, err)
	}
	log.Info("action applied", zap.String("entity", string(payload.Entity())), zap.String("type", string(payload.Type())))
	return ConfirmationResponse{Success: true, Result: result, Message: message, Feedback: req.Feedback}, nil
}

func (c *Confirmer) failed(req ConfirmRequest, err error) (ConfirmationResponse, error) {
	return ConfirmationResponse{Error: apperr.UserMessage(err), Feedback: req.Feedback}, err
}

func (c *Confirmer) apply(ctx context.Context, payload model.ActionPayload) (any, string, error) {
	switch p := payload.(type) {
	case model.CreateEquipment:
		e, err := c.svc.Equipment.Create(ctx, p)
		if err != nil {
			return nil, "", err
		}
		return e, fmt.Sprintf("Added %s (#%d).", e.Name, e.ID), nil
	case model.UpdateEquipment:
		e, err := c.svc.Equipment.Update(ctx, p.ID, p.Updates)
		if err != nil {
			return nil, "", err
		}
		return e, fmt.Sprintf("Updated %s.", e.Name), nil
	case model.DeleteEquipment:
		if err := c.svc.Equipment.Delete(ctx, p.ID); err != nil {
			return nil, "", err
		}
		return map[string]uint{"id": p.ID}, fmt.Sprintf("Deleted equipment #%d.", p.ID), nil
	case model.CreateTask:
		t, err := c.svc.Tasks.CreateTask(ctx, p)
		if err != nil {
			return nil, "", err
		}
		return t, fmt.Sprintf("Added task %q (#%d)%s.", t.Title, t.ID, dueSuffix(*t)), nil
	case model.UpdateTask:
		t, err := c.svc.Tasks.UpdateTask(ctx, p.ID, p.Updates)
		if err != nil {
			return nil, "", err
		}
		return t, fmt.Sprintf("Updated task %q%s.", t.Title, dueSuffix(*t)), nil
	case model.DeleteTask:
		if err := c.svc.Tasks.DeleteTask(ctx, p.ID); err != nil {
			return nil, "", err
		}
		return map[string]uint{"id": p.ID}, fmt.Sprintf("Deleted task #%d.", p.ID), nil
	case model.CompleteTask:
		completion := service.Completion{
			CompletedUsageValue: p.CompletedUsageValue,
			Notes:               p.Notes,
			Cost:                p.Cost,
			ServiceProvider:     p.ServiceProvider,
			PartsUsed:           p.PartsUsed,
		}
		if p.CompletedDate != nil {
			completion.CompletedDate = *p.CompletedDate
		}
		res, err := c.svc.Maintenance.CompleteTask(ctx, p.TaskID, completion)
		if err != nil {
			return nil, "", err
		}
		return res, fmt.Sprintf("Recorded %q as done%s.", res.UpdatedTask.Title, dueSuffix(res.UpdatedTask)), nil
	case model.DeleteMaintenanceLog:
		if err := c.svc.Maintenance.DeleteLog(ctx, p.ID); err != nil {
			return nil, "", err
		}
		return map[string]uint{"id": p.ID}, fmt.Sprintf("Deleted maintenance log #%d.", p.ID), nil
	default:
		return nil, "", apperr.New(apperr.KindInternal, apperr.OpConfirm, "unsupported action %s %s", payload.Type(), payload.Entity())
	}
}

func dueSuffix(t model.Task) string {
	switch {
	case t.NextDueDate != nil && t.NextDueUsageValue != nil:
		return fmt.Sprintf(", next due %s or at %s", model.DateOf(t.NextDueDate.UTC()), number(*t.NextDueUsageValue))
	case t.NextDueDate != nil:
		return fmt.Sprintf(", next due %s", model.DateOf(t.NextDueDate.UTC()))
	case t.NextDueUsageValue != nil:
		return fmt.Sprintf(", next due at %s", number(*t.NextDueUsageValue))
	default:
		return ""
	}
}
