package financials

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/de-tools/ledger-atlas/pkg/adapters"
	"github.com/de-tools/ledger-atlas/pkg/models/api"
	"github.com/de-tools/ledger-atlas/pkg/models/domain"
	"github.com/de-tools/ledger-atlas/pkg/models/store"
	"github.com/de-tools/ledger-atlas/pkg/services/financials"
	"github.com/de-tools/ledger-atlas/pkg/store/snapshot"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

const (
	// noID in the {id} path segment addresses an entity known only by its bookings.
	noID = "_"

	maxPortfolioEntities = 200
	maxRequestBody       = 1 << 20
)

type Service interface {
	Financials(ctx context.Context, entity domain.Entity) (domain.FinancialsSnapshot, error)
	Refresh(ctx context.Context, entity domain.Entity) (domain.FinancialsSnapshot, error)
	Portfolio(ctx context.Context, entities []domain.Entity) (domain.PortfolioSnapshot, error)
}

type SnapshotHistory interface {
	Latest(ctx context.Context, kind, entityID string) (*store.FinancialSnapshot, error)
	History(ctx context.Context, kind, entityID string, limit int) ([]store.FinancialSnapshot, error)
}

type Recomputer interface {
	Trigger(ctx context.Context) domain.WorkflowRun
	LastRun() (domain.WorkflowRun, bool)
}

type Handler struct {
	service    Service
	history    SnapshotHistory
	recomputer Recomputer
}

// NewHandler wires the financials endpoints. history and recomputer are
// optional; their endpoints answer 404 when absent.
func NewHandler(service Service, history SnapshotHistory, recomputer Recomputer) *Handler {
	return &Handler{
		service:    service,
		history:    history,
		recomputer: recomputer,
	}
}

func (h *Handler) GetFinancials(w http.ResponseWriter, r *http.Request) {
	h.entityFinancials(w, r, h.service.Financials)
}

func (h *Handler) RefreshFinancials(w http.ResponseWriter, r *http.Request) {
	h.entityFinancials(w, r, h.service.Refresh)
}

func (h *Handler) entityFinancials(
	w http.ResponseWriter,
	r *http.Request,
	load func(context.Context, domain.Entity) (domain.FinancialsSnapshot, error),
) {
	ctx := r.Context()
	logger := zerolog.Ctx(ctx)

	entity, err := entityFromRequest(r)
	if err != nil {
		writeError(ctx, w, http.StatusBadRequest, err)
		return
	}

	snapshot, err := load(ctx, entity)
	if errors.Is(err, financials.ErrSuperseded) {
		writeError(ctx, w, http.StatusConflict, fmt.Errorf("entity %s changed while computing, retry", entity.Key()))
		return
	}
	if err != nil {
		logger.Error().
			Err(err).
			Str("entity", entity.Key()).
			Msg("failed to compute financials")
		writeError(ctx, w, http.StatusInternalServerError, fmt.Errorf("failed to compute financials"))
		return
	}

	writeJSON(ctx, w, http.StatusOK, adapters.MapSnapshotDomainToApi(snapshot))
}

func (h *Handler) ComputePortfolio(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := zerolog.Ctx(ctx)

	var req api.PortfolioRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody)).Decode(&req); err != nil {
		writeError(ctx, w, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return
	}
	if len(req.Entities) > maxPortfolioEntities {
		writeError(ctx, w, http.StatusBadRequest, fmt.Errorf("at most %d entities per request", maxPortfolioEntities))
		return
	}

	entities := make([]domain.Entity, 0, len(req.Entities))
	for i, e := range req.Entities {
		entity, err := adapters.MapEntityApiToDomain(e)
		if err != nil {
			writeError(ctx, w, http.StatusBadRequest, fmt.Errorf("entities[%d]: %w", i, err))
			return
		}
		entities = append(entities, entity)
	}

	snapshot, err := h.service.Portfolio(ctx, entities)
	if err != nil {
		logger.Error().Err(err).Int("entities", len(entities)).Msg("failed to compute portfolio")
		writeError(ctx, w, http.StatusInternalServerError, fmt.Errorf("failed to compute portfolio"))
		return
	}

	writeJSON(ctx, w, http.StatusOK, adapters.MapPortfolioDomainToApi(snapshot))
}

func (h *Handler) GetHistory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := zerolog.Ctx(ctx)

	if h.history == nil {
		writeError(ctx, w, http.StatusNotFound, fmt.Errorf("snapshot history is not enabled"))
		return
	}

	kind, err := domain.ParseEntityKind(chi.URLParam(r, "kind"))
	if err != nil {
		writeError(ctx, w, http.StatusBadRequest, err)
		return
	}
	id := chi.URLParam(r, "id")

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if limit, err = strconv.Atoi(raw); err != nil || limit < 0 {
			writeError(ctx, w, http.StatusBadRequest, fmt.Errorf("invalid limit %q", raw))
			return
		}
	}

	snapshots, err := h.history.History(ctx, string(kind), id, limit)
	if err != nil {
		logger.Error().Err(err).Str("entity_id", id).Msg("failed to load snapshot history")
		writeError(ctx, w, http.StatusInternalServerError, fmt.Errorf("failed to load snapshot history"))
		return
	}
	if len(snapshots) == 0 {
		writeError(ctx, w, http.StatusNotFound, fmt.Errorf("no snapshots recorded for %s %s", kind, id))
		return
	}

	response := make([]api.Snapshot, 0, len(snapshots))
	for _, s := range snapshots {
		response = append(response, adapters.MapSnapshotStoreToApi(s))
	}
	writeJSON(ctx, w, http.StatusOK, response)
}

// GetLatest serves the most recent stored snapshot. It answers without calling
// the ledger service.
func (h *Handler) GetLatest(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := zerolog.Ctx(ctx)

	if h.history == nil {
		writeError(ctx, w, http.StatusNotFound, fmt.Errorf("snapshot history is not enabled"))
		return
	}

	kind, err := domain.ParseEntityKind(chi.URLParam(r, "kind"))
	if err != nil {
		writeError(ctx, w, http.StatusBadRequest, err)
		return
	}
	id := chi.URLParam(r, "id")

	stored, err := h.history.Latest(ctx, string(kind), id)
	if errors.Is(err, snapshot.ErrNotFound) {
		writeError(ctx, w, http.StatusNotFound, fmt.Errorf("no snapshots recorded for %s %s", kind, id))
		return
	}
	if err != nil {
		logger.Error().Err(err).Str("entity_id", id).Msg("failed to load latest snapshot")
		writeError(ctx, w, http.StatusInternalServerError, fmt.Errorf("failed to load latest snapshot"))
		return
	}

	writeJSON(ctx, w, http.StatusOK, adapters.MapSnapshotStoreToApi(*stored))
}

func (h *Handler) Recompute(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.recomputer == nil {
		writeError(ctx, w, http.StatusNotFound, fmt.Errorf("scheduled recompute is not enabled"))
		return
	}
	writeJSON(ctx, w, http.StatusOK, adapters.MapWorkflowRunDomainToApi(h.recomputer.Trigger(ctx)))
}

func (h *Handler) LastRecompute(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.recomputer == nil {
		writeError(ctx, w, http.StatusNotFound, fmt.Errorf("scheduled recompute is not enabled"))
		return
	}
	run, ok := h.recomputer.LastRun()
	if !ok {
		writeError(ctx, w, http.StatusNotFound, fmt.Errorf("no recompute has run yet"))
		return
	}
	writeJSON(ctx, w, http.StatusOK, adapters.MapWorkflowRunDomainToApi(run))
}

func entityFromRequest(r *http.Request) (domain.Entity, error) {
	id := chi.URLParam(r, "id")
	if id == noID {
		id = ""
	}

	query := r.URL.Query()
	var bookings []string
	if raw := query.Get("bookings"); raw != "" {
		bookings = strings.Split(raw, ",")
	}

	return adapters.MapEntityApiToDomain(api.Entity{
		Kind:        chi.URLParam(r, "kind"),
		ID:          id,
		BookingIDs:  bookings,
		QuotationID: query.Get("quotation"),
	})
}

func writeJSON(ctx context.Context, w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Msg("failed to encode response")
	}
}

func writeError(ctx context.Context, w http.ResponseWriter, status int, err error) {
	var maxBytes *http.MaxBytesError
	if errors.As(err, &maxBytes) {
		status = http.StatusRequestEntityTooLarge
	}
	writeJSON(ctx, w, status, api.Error{Message: err.Error()})
}
