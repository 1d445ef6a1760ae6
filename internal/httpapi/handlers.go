package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/AaronL1011/mechmate-sub000/internal/apperr"
	"github.com/AaronL1011/mechmate-sub000/internal/assistant"
	"github.com/AaronL1011/mechmate-sub000/internal/service"
)

const maxBody = 1 << 20

type ProposeRequest struct {
	Text string `json:"text"`
}

type DueResponse struct {
	Today      string             `json:"today"`
	WindowDays int                `json:"window_days"`
	Overdue    []service.TaskView `json:"overdue"`
	Upcoming   []service.TaskView `json:"upcoming"`
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, statusFor(err), map[string]any{"success": false, "error": apperr.UserMessage(err)})
}

// statusFor maps error kinds to HTTP status codes.
func statusFor(err error) int {
	switch apperr.KindOf(err) {
	case "":
		return http.StatusOK
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindExpired:
		return http.StatusGone
	case apperr.KindInvalidArguments, apperr.KindUnknownFunction:
		return http.StatusBadRequest
	case apperr.KindValidationFailed, apperr.KindIterationBudgetExhausted:
		return http.StatusUnprocessableEntity
	case apperr.KindExternalCapabilityFailure:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func decodeBody(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return apperr.InvalidArguments("decode request", "request body is empty")
		}
		return apperr.InvalidArguments("decode request", "invalid JSON: %v", err)
	}
	return nil
}

func (a *App) proposeHandler(w http.ResponseWriter, r *http.Request) {
	var req ProposeRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	resp, err := a.Proposer.Propose(r.Context(), req.Text)
	if err != nil {
		a.logFailure("propose failed", err)
	}
	writeJSON(w, statusFor(err), resp)
}

func (a *App) confirmHandler(w http.ResponseWriter, r *http.Request) {
	var req assistant.ConfirmRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.Token == "" {
		writeError(w, apperr.InvalidArguments("confirm", "action_id is required"))
		return
	}
	resp, err := a.Confirmer.Confirm(r.Context(), req)
	if err != nil {
		a.logFailure("confirm failed", err)
	}
	writeJSON(w, statusFor(err), resp)
}

func (a *App) dueHandler(w http.ResponseWriter, r *http.Request) {
	days := -1
	if raw := r.URL.Query().Get("days"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeError(w, apperr.InvalidArguments("due tasks", "days must be a non-negative number"))
			return
		}
		days = n
	}
	report, err := a.Due.DueReport(r.Context(), days)
	if err != nil {
		a.logFailure("due report failed", err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, DueResponse{
		Today:      report.Today.String(),
		WindowDays: report.WindowDays,
		Overdue:    orEmpty(report.Overdue),
		Upcoming:   orEmpty(report.Upcoming),
	})
}

func (a *App) listEquipmentHandler(w http.ResponseWriter, r *http.Request) {
	items, err := a.Equipment.List(r.Context(), r.URL.Query().Get("type"))
	if err != nil {
		a.logFailure("list equipment failed", err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": orEmpty(items)})
}

func (a *App) logFailure(msg string, err error) {
	if apperr.KindOf(err) == apperr.KindInternal {
		a.Logger.Error(msg, zap.Error(err))
		return
	}
	a.Logger.Info(msg, zap.String("kind", string(apperr.KindOf(err))), zap.Error(err))
}

func orEmpty[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
