package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/de-tools/ledger-atlas/pkg/models/domain"
	"github.com/spf13/cobra"
)

type PortfolioCmd struct {
	runtime  Runtime
	entities []string
}

func NewPortfolioCmd(runtime Runtime) *cobra.Command {
	pc := &PortfolioCmd{runtime: runtime}

	cmd := &cobra.Command{
		Use:   "portfolio",
		Short: "Reconcile several entities with one fetch per ledger",
		Long: `Reconciles the configured portfolio (schedule.entities), or the entities
given with --entity in the form kind:id.`,
		RunE: pc.run,
	}

	cmd.Flags().StringSliceVar(&pc.entities, "entity", nil, "Entity as kind:id, repeatable")

	return cmd
}

func (pc *PortfolioCmd) run(cmd *cobra.Command, _ []string) error {
	entities, err := pc.resolveEntities()
	if err != nil {
		return err
	}
	if len(entities) == 0 {
		return fmt.Errorf("no entities: pass --entity or configure schedule.entities")
	}

	service, err := pc.runtime.Service()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), commandTimeout)
	defer cancel()

	snapshot, err := service.Portfolio(ctx, entities)
	if err != nil {
		return fmt.Errorf("failed to compute portfolio financials: %w", err)
	}

	return pc.runtime.Reporter().Portfolio(snapshot)
}

func (pc *PortfolioCmd) resolveEntities() ([]domain.Entity, error) {
	if len(pc.entities) == 0 {
		return pc.runtime.Entities()
	}
	return ParseEntities(pc.entities)
}

// ParseEntities parses kind:id pairs such as "project:P-1".
func ParseEntities(values []string) ([]domain.Entity, error) {
	entities := make([]domain.Entity, 0, len(values))
	for _, v := range values {
		kindPart, id, ok := strings.Cut(v, ":")
		id = strings.TrimSpace(id)
		if !ok || id == "" {
			return nil, fmt.Errorf("invalid entity %q, expected kind:id", v)
		}
		kind, err := domain.ParseEntityKind(kindPart)
		if err != nil {
			return nil, err
		}
		entities = append(entities, domain.Entity{Kind: kind, ID: id})
	}
	return entities, nil
}
