package commands

import (
	"context"
	"errors"
	"fmt"

	"github.com/de-tools/ledger-atlas/pkg/adapters"
	"github.com/de-tools/ledger-atlas/pkg/models/api"
	"github.com/spf13/cobra"
)

type EntityCmd struct {
	runtime   Runtime
	kind      string
	id        string
	bookings  []string
	quotation string
	items     bool
}

func NewEntityCmd(runtime Runtime) *cobra.Command {
	ec := &EntityCmd{runtime: runtime}

	cmd := &cobra.Command{
		Use:   "entity",
		Short: "Reconcile the financials of a project or contract",
		Example: `  ledger entity --kind project --id P-1001 --quotation Q-77
  ledger entity --kind contract --bookings B-1,B-2 --items`,
		RunE: ec.run,
	}

	cmd.Flags().StringVar(&ec.kind, "kind", "project", "Entity kind (project, contract)")
	cmd.Flags().StringVar(&ec.id, "id", "", "Project or contract number")
	cmd.Flags().StringSliceVar(&ec.bookings, "bookings", nil, "Linked booking ids")
	cmd.Flags().StringVar(&ec.quotation, "quotation", "", "Unexecuted quotation id")
	cmd.Flags().BoolVar(&ec.items, "items", false, "List billing items, virtual ones included")

	return cmd
}

func (ec *EntityCmd) run(cmd *cobra.Command, _ []string) error {
	entity, err := adapters.MapEntityApiToDomain(api.Entity{
		Kind:        ec.kind,
		ID:          ec.id,
		BookingIDs:  ec.bookings,
		QuotationID: ec.quotation,
	})
	if err != nil {
		return err
	}

	service, err := ec.runtime.Service()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), commandTimeout)
	defer cancel()

	snapshot, err := service.Refresh(ctx, entity)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("financials for %s timed out after %s", entity.Key(), commandTimeout)
		}
		return fmt.Errorf("failed to compute financials: %w", err)
	}

	return ec.runtime.Reporter().Financials(snapshot, ec.items)
}
