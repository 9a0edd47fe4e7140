package financials

import "github.com/go-chi/chi/v5"

// Register mounts the financials endpoints on r.
func (h *Handler) Register(r chi.Router) {
	r.Route("/entities/{kind}/{id}/financials", func(r chi.Router) {
		r.Get("/", h.GetFinancials)
		r.Post("/refresh", h.RefreshFinancials)
		r.Get("/history", h.GetHistory)
		r.Get("/latest", h.GetLatest)
	})
	r.Post("/portfolio/financials", h.ComputePortfolio)
	r.Post("/portfolio/recompute", h.Recompute)
	r.Get("/portfolio/recompute", h.LastRecompute)
}
