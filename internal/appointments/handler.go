package appointments

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/solace-health/solace-platform/internal/identity"
	"github.com/solace-health/solace-platform/internal/locks"
	"github.com/solace-health/solace-platform/pkg/logging"
)

// Handler serves the appointment endpoints. All routes sit behind
// bearer auth; the acting user comes from the request context.
type Handler struct {
	store  *Store
	logger *logging.Logger
}

func NewHandler(store *Store, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{store: store, logger: logger}
}

type createAppointmentRequest struct {
	TherapistID string `json:"therapist_id"`
	ClientID    string `json:"client_id,omitempty"`
	ServiceID   string `json:"service_id,omitempty"`
	DateTime    string `json:"date_time"`
	FreeCredit  bool   `json:"free_credit,omitempty"`
}

type updateStatusRequest struct {
	Status Status  `json:"status"`
	Reason *string `json:"reason,omitempty"`
}

// RescheduleRequest is the wire body for POST /reschedule-appointment.
type RescheduleRequest struct {
	AppointmentID string `json:"appointment_id"`
	NewDateTime   string `json:"new_date_time"`
	Reason        string `json:"reason,omitempty"`
}

// RescheduleResponse is the wire reply for POST /reschedule-appointment.
// CancellationFee is in cents and is surfaced for collection, not
// charged by the endpoint.
type RescheduleResponse struct {
	Success          bool   `json:"success"`
	NewAppointmentID string `json:"new_appointment_id,omitempty"`
	CancellationFee  int32  `json:"cancellation_fee"`
	Message          string `json:"message,omitempty"`
	Error            string `json:"error,omitempty"`
}

type errorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// List handles GET /appointments.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	user, ok := identity.FromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}
	userID, err := uuid.Parse(user.ID)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "invalid session subject")
		return
	}

	views, err := h.store.FetchAppointments(r.Context(), userID)
	if err != nil {
		h.logger.Error("appointment fetch failed", "error", err, "user_id", user.ID)
		writeError(w, http.StatusInternalServerError, "could not load appointments")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "appointments": views})
}

// Get handles GET /appointments/{id}. Only a party to the appointment
// may read it; the effective price resolves the booking snapshot with a
// service-price fallback for legacy rows.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	user, ok := identity.FromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}
	userID, err := uuid.Parse(user.ID)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "invalid session subject")
		return
	}
	apptID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid appointment id")
		return
	}

	view, err := h.store.GetAppointment(r.Context(), apptID, userID)
	if err != nil {
		h.logger.Error("appointment get failed", "error", err, "appointment_id", apptID, "user_id", user.ID)
		writeError(w, statusForError(err), userMessage(err, "could not load appointment"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":               true,
		"appointment":           view,
		"effective_price_cents": view.EffectivePriceCents(),
	})
}

// Create handles POST /appointments. Clients book for themselves;
// therapists may book on a client's behalf by naming client_id.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	user, ok := identity.FromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	var req createAppointmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	therapistID, err := uuid.Parse(req.TherapistID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "therapist_id is required")
		return
	}
	dt, err := time.Parse(time.RFC3339, req.DateTime)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid date_time format")
		return
	}

	clientID, err := uuid.Parse(user.ID)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "invalid session subject")
		return
	}
	if req.ClientID != "" && user.Role == identity.RoleTherapist {
		clientID, err = uuid.Parse(req.ClientID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid client_id format")
			return
		}
	}

	params := BookParams{
		TherapistID: therapistID,
		ClientID:    clientID,
		DateTime:    dt,
		FreeCredit:  req.FreeCredit,
	}
	if req.ServiceID != "" {
		serviceID, err := uuid.Parse(req.ServiceID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid service_id format")
			return
		}
		params.ServiceID = &serviceID
	}

	appt, err := h.store.CreateAppointment(r.Context(), params)
	if err != nil {
		h.logger.Error("appointment create failed", "error", err, "user_id", user.ID)
		writeError(w, statusForError(err), userMessage(err, "could not create appointment"))
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"success": true, "appointment": appt})
}

// UpdateStatus handles PATCH /appointments/{id}/status. Status changes
// never compute or apply fees.
func (h *Handler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
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
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid appointment id")
		return
	}

	var req updateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}

	appt, err := h.store.UpdateAppointmentStatus(r.Context(), id, req.Status, req.Reason, actorID)
	if err != nil {
		h.logger.Error("appointment status update failed", "error", err, "appointment_id", id, "user_id", user.ID)
		writeError(w, statusForError(err), userMessage(err, "could not update appointment"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "appointment": appt})
}

// Reschedule handles POST /reschedule-appointment.
func (h *Handler) Reschedule(w http.ResponseWriter, r *http.Request) {
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

	var req RescheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	appointmentID, err := uuid.Parse(req.AppointmentID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "appointment_id is required")
		return
	}
	newDT, err := time.Parse(time.RFC3339, req.NewDateTime)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid new_date_time format")
		return
	}

	result, err := h.store.RescheduleAppointment(r.Context(), appointmentID, newDT, req.Reason, actorID)
	if err != nil {
		h.logger.Error("reschedule failed", "error", err, "appointment_id", appointmentID, "user_id", user.ID)
		writeError(w, statusForError(err), userMessage(err, "could not reschedule appointment"))
		return
	}

	message := "Appointment rescheduled"
	if result.FeeCents > 0 {
		message = fmt.Sprintf("Appointment rescheduled. A cancellation fee of $%.2f applies.", float64(result.FeeCents)/100)
	}
	writeJSON(w, http.StatusOK, RescheduleResponse{
		Success:          true,
		NewAppointmentID: result.NewAppointmentID.String(),
		CancellationFee:  result.FeeCents,
		Message:          message,
	})
}

func statusForError(err error) int {
	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrPermissionDenied):
		return http.StatusForbidden
	case errors.Is(err, ErrPastAppointment),
		errors.Is(err, ErrDateTimeNotFuture),
		errors.Is(err, ErrInvalidStatus):
		return http.StatusBadRequest
	case errors.Is(err, ErrAlreadyFinalized),
		errors.Is(err, locks.ErrLocked):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// userMessage maps sentinel errors to copy safe to show the user.
// Anything unrecognized gets the fallback; internals stay in the logs.
func userMessage(err error, fallback string) string {
	switch {
	case errors.Is(err, ErrNotFound):
		return "appointment not found"
	case errors.Is(err, ErrPermissionDenied):
		return "you do not have permission to modify this appointment"
	case errors.Is(err, ErrPastAppointment):
		return "this appointment has already passed"
	case errors.Is(err, ErrDateTimeNotFuture):
		return "the new appointment time must be in the future"
	case errors.Is(err, ErrInvalidStatus):
		return "invalid appointment status"
	case errors.Is(err, ErrAlreadyFinalized):
		return "this appointment has already been completed or cancelled"
	case errors.Is(err, locks.ErrLocked):
		return "this appointment is being modified by another request, try again"
	default:
		return fallback
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
