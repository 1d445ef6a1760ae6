// Package httpapi exposes the assistant and due report over HTTP.
package httpapi

import (
	"context"

	"go.uber.org/zap"

	"github.com/AaronL1011/mechmate-sub000/internal/assistant"
	"github.com/AaronL1011/mechmate-sub000/internal/model"
	"github.com/AaronL1011/mechmate-sub000/internal/service"
)

type Proposer interface {
	Propose(ctx context.Context, text string) (assistant.ProposalResponse, error)
}

type Confirmer interface {
	Confirm(ctx context.Context, req assistant.ConfirmRequest) (assistant.ConfirmationResponse, error)
}

type DueReporter interface {
	DueReport(ctx context.Context, days int) (service.DueReport, error)
}

type EquipmentLister interface {
	List(ctx context.Context, equipmentType string) ([]model.Equipment, error)
}

// App holds the handlers' dependencies.
type App struct {
	Proposer  Proposer
	Confirmer Confirmer
	Due       DueReporter
	Equipment EquipmentLister
	Logger    *zap.Logger
}
