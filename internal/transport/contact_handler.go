package transport

import (
	"net/http"

	"goldsmith-supplies/internal/mailer"
	"goldsmith-supplies/internal/middleware"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// ContactRequest is a contact-form submission. Only name, email and message
// are mandatory.
type ContactRequest struct {
	Name    string `json:"name" validate:"required"`
	Email   string `json:"email" validate:"required,email"`
	Company string `json:"company"`
	Subject string `json:"subject"`
	Message string `json:"message" validate:"required"`
}

// ContactHandler forwards contact-form messages to the shop mailbox.
type ContactHandler struct {
	mailer mailer.Mailer
	logger *zap.Logger
}

// NewContactHandler creates a new ContactHandler
func NewContactHandler(m mailer.Mailer, logger *zap.Logger) *ContactHandler {
	return &ContactHandler{
		mailer: m,
		logger: logger,
	}
}

// RegisterRoutes registers the public contact route.
func (h *ContactHandler) RegisterRoutes(r chi.Router, rateLimit func(http.Handler) http.Handler) {
	r.Route("/api/contact", func(r chi.Router) {
		if rateLimit != nil {
			r.Use(rateLimit)
		}
		r.Post("/", h.Send)
	})
}

// Send handles POST /api/contact.
func (h *ContactHandler) Send(w http.ResponseWriter, r *http.Request) {
	var req ContactRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		h.logger.Debug("Contact validation failed", zap.Error(err))

		if validationErrors := middleware.FormatValidationErrors(err); len(validationErrors) > 0 {
			middleware.RespondWithValidationErrors(w, validationErrors)
			return
		}
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	err := h.mailer.SendContactMessage(mailer.ContactMessage{
		Name:    req.Name,
		Email:   req.Email,
		Company: req.Company,
		Subject: req.Subject,
		Message: req.Message,
	})
	if err != nil {
		if err == mailer.ErrNotConfigured {
			middleware.RespondWithError(w, http.StatusInternalServerError, "email service is not configured on the server")
			return
		}
		h.logger.Error("Failed to send contact message", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to send message")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, map[string]string{"message": "your message has been sent successfully"})
}
