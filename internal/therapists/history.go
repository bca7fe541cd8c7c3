package therapists

import (
	"database/sql"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/solace-health/solace-platform/internal/identity"
	"github.com/solace-health/solace-platform/pkg/logging"
)

// HistoryHandler serves therapist-facing read endpoints over the audit
// tables (refund history joined with the appointments they settled).
type HistoryHandler struct {
	db     *sql.DB
	logger *logging.Logger
}

// NewHistoryHandler creates a new history handler.
func NewHistoryHandler(db *sql.DB, logger *logging.Logger) *HistoryHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &HistoryHandler{db: db, logger: logger}
}

// RefundListItem represents a refund in list responses.
type RefundListItem struct {
	ID              string  `json:"id"`
	PaymentIntentID string  `json:"payment_intent_id"`
	AppointmentID   *string `json:"appointment_id,omitempty"`
	ClientName      *string `json:"client_name,omitempty"`
	AmountCents     int     `json:"amount_cents"`
	Reason          string  `json:"reason"`
	Status          string  `json:"status"`
	CreatedAt       string  `json:"created_at"`
}

// RefundsListResponse is a page of refunds.
type RefundsListResponse struct {
	Refunds []RefundListItem `json:"refunds"`
	Count   int              `json:"count"`
	Offset  int              `json:"offset"`
	Limit   int              `json:"limit"`
}

// ListRefunds returns the acting therapist's refund history.
// GET /therapist/refunds
func (h *HistoryHandler) ListRefunds(w http.ResponseWriter, r *http.Request) {
	actor, ok := identity.FromContext(r.Context())
	if !ok {
		http.Error(w, "unauthenticated", http.StatusUnauthorized)
		return
	}
	actorID, err := uuid.Parse(actor.ID)
	if err != nil {
		http.Error(w, "invalid user id", http.StatusUnauthorized)
		return
	}

	limit := 50
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if v, err := strconv.Atoi(limitStr); err == nil && v > 0 && v <= 100 {
			limit = v
		}
	}
	offset := 0
	if offsetStr := r.URL.Query().Get("offset"); offsetStr != "" {
		if v, err := strconv.Atoi(offsetStr); err == nil && v >= 0 {
			offset = v
		}
	}

	query := `
		SELECT pr.id, pr.payment_intent_id, a.id, u.display_name,
		       pr.amount_cents, pr.reason, pr.status, pr.created_at
		FROM payment_refunds pr
		JOIN therapist_profiles tp ON tp.user_id = $1
		LEFT JOIN appointments a ON a.payment_intent_id = pr.payment_intent_id AND a.therapist_id = tp.id
		LEFT JOIN users u ON u.id = a.client_id
		WHERE pr.refunded_by = $1
		ORDER BY pr.created_at DESC
		LIMIT $2 OFFSET $3
	`
	rows, err := h.db.QueryContext(r.Context(), query, actorID, limit, offset)
	if err != nil {
		h.logger.Error("failed to list refunds", "error", err, "user_id", actorID)
		http.Error(w, "failed to list refunds", http.StatusInternalServerError)
		return
	}
	defer rows.Close()

	refunds := make([]RefundListItem, 0, limit)
	for rows.Next() {
		var item RefundListItem
		if err := rows.Scan(
			&item.ID,
			&item.PaymentIntentID,
			&item.AppointmentID,
			&item.ClientName,
			&item.AmountCents,
			&item.Reason,
			&item.Status,
			&item.CreatedAt,
		); err != nil {
			h.logger.Error("failed to scan refund row", "error", err)
			http.Error(w, "failed to list refunds", http.StatusInternalServerError)
			return
		}
		refunds = append(refunds, item)
	}
	if err := rows.Err(); err != nil {
		h.logger.Error("refund rows iteration failed", "error", err)
		http.Error(w, "failed to list refunds", http.StatusInternalServerError)
		return
	}

	response := RefundsListResponse{
		Refunds: refunds,
		Count:   len(refunds),
		Offset:  offset,
		Limit:   limit,
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}
