/*
handlers.go - HTTP handlers for the cash desk API

PURPOSE:
  HTTP request/response plumbing only. Parsing, caller extraction, and
  status-code mapping live here; every rule lives in the services.

ENDPOINTS:
  GET    /api/cash/health  Health probe (no identity required)
  GET    /api/cash         List transactions (scoped)
  POST   /api/cash         Create transaction (duplicate-guarded)
  GET    /api/cash/{id}    Get transaction
  PUT    /api/cash/{id}    Partial update
  DELETE /api/cash/{id}    Hard delete
  GET    /api/handover     Master's ready-order listing

ERROR HANDLING:
  Domain errors map to status codes in one place (writeDomainError):
  - 400: validation failures
  - 403: policy denials (generic body, never confirms existence)
  - 404: missing resource
  - 409: duplicate payment purpose (body carries the colliding id)
  - 500: everything else, opaque to the caller

SEE ALSO:
  - dto.go: Request/response structures
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/warp/cashdesk/auth"
	"github.com/warp/cashdesk/cash"
	"github.com/warp/cashdesk/handover"
)

// Handler holds the services the HTTP layer delegates to.
type Handler struct {
	Ledger   *cash.Ledger
	Handover *handover.Service
}

func NewHandler(ledger *cash.Ledger, handoverSvc *handover.Service) *Handler {
	return &Handler{Ledger: ledger, Handover: handoverSvc}
}

// =============================================================================
// CASH HANDLERS
// =============================================================================

// Health is the liveness probe for the cash module.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"success":   true,
		"message":   "cash module is healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// ListCash returns one page of transactions visible to the caller.
func (h *Handler) ListCash(w http.ResponseWriter, r *http.Request) {
	caller, ok := auth.CallerFrom(r.Context())
	if !ok {
		writeError(w, http.StatusForbidden, "access denied")
		return
	}

	filter, err := listFilterFromQuery(r)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	result, err := h.Ledger.List(r.Context(), caller, filter)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	items := make([]TransactionDTO, len(result.Items))
	for i, tx := range result.Items {
		items[i] = toTransactionDTO(tx)
	}
	writeJSON(w, http.StatusOK, ListResponse{
		Items:      items,
		Total:      result.Total,
		Page:       result.Page,
		Limit:      result.Limit,
		TotalPages: result.TotalPages,
	})
}

// GetCash returns a single transaction.
func (h *Handler) GetCash(w http.ResponseWriter, r *http.Request) {
	caller, ok := auth.CallerFrom(r.Context())
	if !ok {
		writeError(w, http.StatusForbidden, "access denied")
		return
	}
	id, err := idParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "id must be an integer")
		return
	}

	tx, err := h.Ledger.Get(r.Context(), caller, id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toTransactionDTO(*tx))
}

// CreateCash creates a transaction.
func (h *Handler) CreateCash(w http.ResponseWriter, r *http.Request) {
	caller, ok := auth.CallerFrom(r.Context())
	if !ok {
		writeError(w, http.StatusForbidden, "access denied")
		return
	}

	var req CreateCashRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	tx, err := h.Ledger.Create(r.Context(), actorFromRequest(r, caller), cash.CreateInput{
		Kind:           cash.Kind(req.Kind),
		Amount:         req.Amount,
		City:           req.City,
		Note:           req.Note,
		ReceiptDocURL:  req.ReceiptDocURL,
		PaymentPurpose: req.PaymentPurpose,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toTransactionDTO(*tx))
}

// UpdateCash applies a partial update.
func (h *Handler) UpdateCash(w http.ResponseWriter, r *http.Request) {
	caller, ok := auth.CallerFrom(r.Context())
	if !ok {
		writeError(w, http.StatusForbidden, "access denied")
		return
	}
	id, err := idParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "id must be an integer")
		return
	}

	var req UpdateCashRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	in := cash.UpdateInput{
		Amount:         req.Amount,
		City:           req.City,
		Note:           req.Note,
		ReceiptDocURL:  req.ReceiptDocURL,
		PaymentPurpose: req.PaymentPurpose,
	}
	if req.Kind != nil {
		kind := cash.Kind(*req.Kind)
		in.Kind = &kind
	}

	tx, err := h.Ledger.Update(r.Context(), actorFromRequest(r, caller), id, in)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toTransactionDTO(*tx))
}

// DeleteCash removes a transaction.
func (h *Handler) DeleteCash(w http.ResponseWriter, r *http.Request) {
	caller, ok := auth.CallerFrom(r.Context())
	if !ok {
		writeError(w, http.StatusForbidden, "access denied")
		return
	}
	id, err := idParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "id must be an integer")
		return
	}

	if err := h.Ledger.Delete(r.Context(), actorFromRequest(r, caller), id); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "cash transaction deleted",
	})
}

// =============================================================================
// HANDOVER HANDLERS
// =============================================================================

// ListHandover returns the calling master's ready-order listing.
func (h *Handler) ListHandover(w http.ResponseWriter, r *http.Request) {
	caller, ok := auth.CallerFrom(r.Context())
	if !ok {
		writeError(w, http.StatusForbidden, "access denied")
		return
	}

	page, limit, err := pageParams(r)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	result, err := h.Handover.ListForMaster(r.Context(), caller, handover.ListFilter{
		Status: r.URL.Query().Get("status"),
		Page:   page,
		Limit:  limit,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}

	items := make([]HandoverOrderDTO, len(result.Items))
	for i, o := range result.Items {
		items[i] = toHandoverOrderDTO(o)
	}
	writeJSON(w, http.StatusOK, HandoverListResponse{
		Items:      items,
		Total:      result.Total,
		Page:       result.Page,
		Limit:      result.Limit,
		TotalPages: result.TotalPages,
	})
}

// =============================================================================
// REQUEST PARSING
// =============================================================================

func idParam(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
}

// listFilterFromQuery parses the cash listing query. `type` and `name` alias
// each other (name is the legacy parameter); type wins when both are set.
func listFilterFromQuery(r *http.Request) (cash.ListFilter, error) {
	q := r.URL.Query()

	kind := q.Get("type")
	if kind == "" {
		kind = q.Get("name")
	}

	page, limit, err := pageParams(r)
	if err != nil {
		return cash.ListFilter{}, err
	}

	return cash.ListFilter{
		Kind:  kind,
		City:  q.Get("city"),
		Page:  page,
		Limit: limit,
	}, nil
}

func pageParams(r *http.Request) (page, limit int, err error) {
	q := r.URL.Query()
	if raw := q.Get("page"); raw != "" {
		page, err = strconv.Atoi(raw)
		if err != nil {
			return 0, 0, &cash.ValidationError{Field: "page", Message: "must be an integer"}
		}
	}
	if raw := q.Get("limit"); raw != "" {
		limit, err = strconv.Atoi(raw)
		if err != nil {
			return 0, 0, &cash.ValidationError{Field: "limit", Message: "must be an integer"}
		}
	}
	return page, limit, nil
}

func actorFromRequest(r *http.Request, caller auth.Caller) cash.Actor {
	ip := r.Header.Get("X-Forwarded-For")
	if ip == "" {
		ip = r.RemoteAddr
	} else if i := strings.IndexByte(ip, ','); i >= 0 {
		ip = strings.TrimSpace(ip[:i])
	}
	return cash.Actor{
		Caller:    caller,
		SourceIP:  ip,
		UserAgent: r.UserAgent(),
	}
}

// =============================================================================
// RESPONSE HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{Error: message})
}

// writeDomainError maps domain errors to status codes in one place.
func writeDomainError(w http.ResponseWriter, err error) {
	var ve *cash.ValidationError
	if errors.As(err, &ve) {
		writeError(w, http.StatusBadRequest, ve.Error())
		return
	}
	var ce *cash.ConflictError
	if errors.As(err, &ce) {
		writeJSON(w, http.StatusConflict, ErrorResponse{
			Error:      "duplicate payment purpose",
			ExistingID: ce.ExistingID,
		})
		return
	}
	switch {
	case errors.Is(err, auth.ErrForbidden):
		// Generic on purpose: a denial never confirms the resource exists.
		writeError(w, http.StatusForbidden, "access denied")
	case errors.Is(err, cash.ErrNotFound):
		writeError(w, http.StatusNotFound, "cash transaction not found")
	default:
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}
