package commands

import (
	"context"
	"time"

	"github.com/de-tools/ledger-atlas/pkg/models/domain"
	"github.com/de-tools/ledger-atlas/pkg/runtime/terminal/export"
)

const commandTimeout = 60 * time.Second

// Service computes financials for the commands.
type Service interface {
	Refresh(ctx context.Context, entity domain.Entity) (domain.FinancialsSnapshot, error)
	Portfolio(ctx context.Context, entities []domain.Entity) (domain.PortfolioSnapshot, error)
}

// Runtime resolves the command dependencies once flags have been parsed.
type Runtime interface {
	Service() (Service, error)
	Entities() ([]domain.Entity, error)
	Reporter() *export.Reporter
}
