// AngelaMos | 2026
// handler.go

package billing

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/carterperez-dev/entitlements/internal/core"
)

type Handler struct {
	processor *Processor
	validator *validator.Validate
}

func NewHandler(processor *Processor) *Handler {
	return &Handler{
		processor: processor,
		validator: validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/webhooks/billing", h.HandleWebhook)
}

type WebhookResponse struct {
	Outcome Outcome `json:"outcome"`
}

func (h *Handler) HandleWebhook(w http.ResponseWriter, r *http.Request) {
	var env Envelope
	if err := json.NewDecoder(r.Body).Decode(&env); err != nil {
		core.BadRequest(w, "invalid request body")
		return
	}

	if err := h.validator.Struct(env); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return
	}

	outcome, err := h.processor.Process(r.Context(), env)
	switch outcome {
	case OutcomeRejected:
		// No diagnostic detail for forged envelopes.
		core.BadRequest(w, "invalid signature")
	case OutcomeFailed:
		core.InternalServerError(w, err)
	default:
		core.OK(w, WebhookResponse{Outcome: outcome})
	}
}
