package terminal

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/de-tools/ledger-atlas/pkg/models/domain"
	"github.com/de-tools/ledger-atlas/pkg/services/config"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockService struct {
	mock.Mock
}

func (m *mockService) Refresh(ctx context.Context, entity domain.Entity) (domain.FinancialsSnapshot, error) {
	args := m.Called(ctx, entity)
	return args.Get(0).(domain.FinancialsSnapshot), args.Error(1)
}

func (m *mockService) Portfolio(ctx context.Context, entities []domain.Entity) (domain.PortfolioSnapshot, error) {
	args := m.Called(ctx, entities)
	return args.Get(0).(domain.PortfolioSnapshot), args.Error(1)
}

func testSettings() *config.Settings {
	return &config.Settings{
		Log: config.LogSettings{Level: "error", Format: "json", Output: "stderr"},
		Schedule: config.ScheduleSettings{
			Entities: []config.EntitySettings{
				{Kind: "project", ID: "P-1"},
				{Kind: "contract", ID: "C-9", Bookings: []string{"B-1"}},
			},
		},
	}
}

func run(t *testing.T, service *mockService, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cli := NewCLI(Options{Service: service, Settings: testSettings(), Output: &out})
	cli.SetArgs(args)
	err := cli.Execute()
	return out.String(), err
}

func TestEntityCommand(t *testing.T) {
	service := &mockService{}
	want := domain.Entity{
		Kind:        domain.EntityKindProject,
		ID:          "P-1",
		BookingIDs:  []string{"B-1", "B-2"},
		QuotationID: "Q-1",
	}
	service.On("Refresh", mock.Anything, want).Return(domain.FinancialsSnapshot{
		Reconciliation: domain.Reconciliation{
			Entity: want,
			Totals: domain.FinancialTotals{Revenue: decimal.RequireFromString("1500")},
		},
		State: domain.FinancialsStateReady,
	}, nil).Once()

	out, err := run(t, service, "entity", "--id", "P-1", "--bookings", "B-1,B-2", "--quotation", "Q-1", "--currency", "EUR")
	require.NoError(t, err)
	assert.Contains(t, out, "Financials for project P-1")
	assert.Contains(t, out, "€1,500.00")
	service.AssertExpectations(t)
}

func TestEntityCommand_Errors(t *testing.T) {
	t.Run("missing id and bookings", func(t *testing.T) {
		service := &mockService{}
		_, err := run(t, service, "entity", "--kind", "contract")
		require.Error(t, err)
		service.AssertNotCalled(t, "Refresh", mock.Anything, mock.Anything)
	})

	t.Run("unknown kind", func(t *testing.T) {
		_, err := run(t, &mockService{}, "entity", "--kind", "invoice", "--id", "X")
		require.ErrorContains(t, err, "unknown entity kind")
	})

	t.Run("service failure", func(t *testing.T) {
		service := &mockService{}
		service.On("Refresh", mock.Anything, mock.Anything).
			Return(domain.FinancialsSnapshot{}, errors.New("boom")).Once()
		_, err := run(t, service, "entity", "--id", "P-1")
		require.ErrorContains(t, err, "failed to compute financials: boom")
	})
}

func TestPortfolioCommand(t *testing.T) {
	refreshed := time.Date(2025, 6, 30, 12, 0, 0, 0, time.UTC)

	t.Run("configured entities", func(t *testing.T) {
		service := &mockService{}
		entities := []domain.Entity{
			{Kind: domain.EntityKindProject, ID: "P-1"},
			{Kind: domain.EntityKindContract, ID: "C-9", BookingIDs: []string{"B-1"}},
		}
		service.On("Portfolio", mock.Anything, entities).Return(domain.PortfolioSnapshot{
			Entries: []domain.Reconciliation{
				{Entity: entities[0]},
				{Entity: entities[1]},
			},
			RefreshedAt: refreshed,
		}, nil).Once()

		out, err := run(t, service, "portfolio")
		require.NoError(t, err)
		assert.Contains(t, out, "Portfolio financials (2 entities)")
		assert.Contains(t, out, "=== contract C-9 [bookings: B-1] ===")
		service.AssertExpectations(t)
	})

	t.Run("entity flags", func(t *testing.T) {
		service := &mockService{}
		entities := []domain.Entity{{Kind: domain.EntityKindContract, ID: "C-1"}}
		service.On("Portfolio", mock.Anything, entities).Return(domain.PortfolioSnapshot{
			Entries:     []domain.Reconciliation{{Entity: entities[0]}},
			RefreshedAt: refreshed,
		}, nil).Once()

		_, err := run(t, service, "portfolio", "--entity", "contract:C-1")
		require.NoError(t, err)
		service.AssertExpectations(t)
	})

	t.Run("malformed entity flag", func(t *testing.T) {
		_, err := run(t, &mockService{}, "portfolio", "--entity", "P-1")
		require.ErrorContains(t, err, "expected kind:id")
	})
}
