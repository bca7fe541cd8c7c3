package payments

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/solace-health/solace-platform/internal/identity"
	"github.com/solace-health/solace-platform/internal/locks"
	"github.com/solace-health/solace-platform/pkg/logging"
)

// Handler serves POST /process-refund.
type Handler struct {
	coordinator *Coordinator
	logger      *logging.Logger
}

func NewHandler(coordinator *Coordinator, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{coordinator: coordinator, logger: logger}
}

type refundRequest struct {
	PaymentIntentID string `json:"payment_intent_id"`
	Reason          string `json:"reason"`
	// AmountCents, when present, requests a partial refund.
	AmountCents *int32 `json:"amount,omitempty"`
}

type refundResponse struct {
	Success        bool   `json:"success"`
	RefundID       string `json:"refund_id"`
	AmountRefunded int32  `json:"amount_refunded"`
	Status         string `json:"status"`
}

type errorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// ProcessRefund handles POST /process-refund. Therapist-only.
func (h *Handler) ProcessRefund(w http.ResponseWriter, r *http.Request) {
	user, ok := identity.FromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}
	actorID, err := uuid.Parse(user.ID)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "invalid session subject")
		return
	}

	var req refundRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	if req.PaymentIntentID == "" {
		writeError(w, http.StatusBadRequest, "payment_intent_id is required")
		return
	}
	if req.Reason == "" {
		writeError(w, http.StatusBadRequest, "reason is required")
		return
	}

	outcome, err := h.coordinator.Refund(r.Context(), req.PaymentIntentID, req.Reason, req.AmountCents, actorID)
	if err != nil {
		h.logger.Error("refund failed",
			"error", err,
			"payment_intent", req.PaymentIntentID,
			"user_id", user.ID,
		)
		writeError(w, refundStatusForError(err), refundUserMessage(err))
		return
	}

	writeJSON(w, http.StatusOK, refundResponse{
		Success:        true,
		RefundID:       outcome.RefundID,
		AmountRefunded: outcome.AmountRefunded,
		Status:         outcome.Status,
	})
}

type refundHistoryResponse struct {
	Success bool            `json:"success"`
	Refunds []PaymentRefund `json:"refunds"`
}

// ListAppointmentRefunds handles GET /appointments/{id}/refunds for
// either party to the appointment.
func (h *Handler) ListAppointmentRefunds(w http.ResponseWriter, r *http.Request) {
	user, ok := identity.FromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}
	actorID, err := uuid.Parse(user.ID)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "invalid session subject")
		return
	}
	apptID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid appointment id")
		return
	}

	refunds, err := h.coordinator.History(r.Context(), apptID, actorID)
	if err != nil {
		h.logger.Error("refund history failed",
			"error", err,
			"appointment_id", apptID,
			"user_id", user.ID,
		)
		writeError(w, refundStatusForError(err), refundHistoryMessage(err))
		return
	}

	writeJSON(w, http.StatusOK, refundHistoryResponse{Success: true, Refunds: refunds})
}

func refundHistoryMessage(err error) string {
	switch {
	case errors.Is(err, ErrNotFound):
		return "appointment not found"
	case errors.Is(err, ErrPermissionDenied):
		return "only a party to the appointment can view its refunds"
	default:
		return "could not list refunds"
	}
}

func refundStatusForError(err error) int {
	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrPermissionDenied):
		return http.StatusForbidden
	case errors.Is(err, ErrAlreadyRefunded), errors.Is(err, locks.ErrLocked):
		return http.StatusConflict
	case errors.Is(err, ErrInvalidAmount):
		return http.StatusBadRequest
	case errors.Is(err, ErrRefundProcessor):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func refundUserMessage(err error) string {
	switch {
	case errors.Is(err, ErrNotFound):
		return "no appointment found for this payment"
	case errors.Is(err, ErrPermissionDenied):
		return "only the appointment's therapist can issue a refund"
	case errors.Is(err, ErrAlreadyRefunded):
		return "this payment has already been refunded"
	case errors.Is(err, ErrInvalidAmount):
		return "refund amount must be positive and at most the original charge"
	case errors.Is(err, ErrRefundProcessor):
		return "the payment processor rejected the refund, nothing was changed"
	case errors.Is(err, locks.ErrLocked):
		return "this appointment is being modified by another request, try again"
	default:
		return "could not process refund"
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Success: false, Error: message})
}
