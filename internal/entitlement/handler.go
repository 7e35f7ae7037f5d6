// AngelaMos | 2026
// handler.go

package entitlement

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/carterperez-dev/entitlements/internal/core"
)

type Handler struct {
	service   *Service
	validator *validator.Validate
}

func NewHandler(service *Service) *Handler {
	return &Handler{
		service:   service,
		validator: validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (h *Handler) RegisterRoutes(
	r chi.Router,
	authenticator func(http.Handler) http.Handler,
) {
	r.Route("/communities/{communityID}", func(r chi.Router) {
		r.Use(authenticator)

		r.Get("/entitlements", h.GetEntitlements)
		r.Post("/access", h.CheckAccess)
	})
}

func (h *Handler) GetEntitlements(w http.ResponseWriter, r *http.Request) {
	communityID := chi.URLParam(r, "communityID")
	if communityID == "" {
		core.BadRequest(w, "community id is required")
		return
	}

	ents, err := h.service.GetEntitlements(r.Context(), communityID)
	if err != nil {
		core.InternalServerError(w, err)
		return
	}

	core.OK(w, EntitlementsResponse{Entitlements: ents})
}

// CheckAccess gates one feature or a batch; either way the service
// performs a single entitlement fetch.
func (h *Handler) CheckAccess(w http.ResponseWriter, r *http.Request) {
	communityID := chi.URLParam(r, "communityID")
	if communityID == "" {
		core.BadRequest(w, "community id is required")
		return
	}

	var req CheckAccessRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.BadRequest(w, "invalid request body")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return
	}

	features := make([]Feature, 0, len(req.Features)+1)
	if req.Feature != "" {
		features = append(features, Feature(req.Feature))
	}
	for _, f := range req.Features {
		features = append(features, Feature(f))
	}

	results, err := h.service.CheckAccessBatch(r.Context(), communityID, features)
	if err != nil {
		if errors.Is(err, core.ErrInvalidInput) {
			core.BadRequest(w, "unknown feature")
			return
		}
		core.InternalServerError(w, err)
		return
	}

	core.OK(w, CheckAccessResponse{Results: results})
}
