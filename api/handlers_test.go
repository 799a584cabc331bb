/*
handlers_test.go - HTTP-level tests through the full router

Tests for:
- Identity headers and the 403 wall
- Status-code mapping (400/403/404/409)
- Create/get/update/delete round trips over the wire
- Listing: type|name aliasing, pagination
- Handover listing
*/
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/cashdesk/cash"
	"github.com/warp/cashdesk/handover"
	"github.com/warp/cashdesk/store/sqlite"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestRouter(t *testing.T) (*chi.Mux, *sqlite.Store) {
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	ledger := cash.NewLedger(store, nil, logger)
	handoverSvc := handover.NewService(store, logger)

	return NewRouter(NewHandler(ledger, handoverSvc)), store
}

func operatorHeaders(id int64) map[string]string {
	return map[string]string{
		"X-Caller-Id":    fmt.Sprintf("%d", id),
		"X-Caller-Login": "op",
		"X-Caller-Role":  "operator",
		"X-Caller-Name":  "Test Operator",
	}
}

func adminHeaders() map[string]string {
	return map[string]string{
		"X-Caller-Id":    "1",
		"X-Caller-Login": "admin",
		"X-Caller-Role":  "admin",
		"X-Caller-Name":  "Admin",
	}
}

func masterHeaders(id int64) map[string]string {
	return map[string]string{
		"X-Caller-Id":    fmt.Sprintf("%d", id),
		"X-Caller-Login": "master",
		"X-Caller-Role":  "master",
		"X-Caller-Name":  "Test Master",
	}
}

func doRequest(t *testing.T, router http.Handler, method, path string, headers map[string]string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func createReq(city, purpose string) CreateCashRequest {
	return CreateCashRequest{
		Kind:           "income",
		Amount:         decimal.RequireFromString("1500.00"),
		City:           city,
		PaymentPurpose: purpose,
	}
}

// =============================================================================
// IDENTITY WALL
// =============================================================================

func TestHealth_NoIdentityRequired(t *testing.T) {
	router, _ := newTestRouter(t)
	rec := doRequest(t, router, "GET", "/api/cash/health", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestListCash_MissingIdentity_Forbidden(t *testing.T) {
	router, _ := newTestRouter(t)
	rec := doRequest(t, router, "GET", "/api/cash", nil, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestListCash_UnknownRole_Forbidden(t *testing.T) {
	router, _ := newTestRouter(t)
	headers := map[string]string{"X-Caller-Id": "1", "X-Caller-Role": "superadmin"}
	rec := doRequest(t, router, "GET", "/api/cash", headers, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

// =============================================================================
// CREATE
// =============================================================================

func TestCreateCash_Created(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := doRequest(t, router, "POST", "/api/cash", operatorHeaders(7), createReq("Moscow", "Order #10"))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	dto := decodeBody[TransactionDTO](t, rec)
	assert.NotZero(t, dto.ID)
	assert.Equal(t, "income", dto.Kind)
	assert.Equal(t, "1500.00", dto.Amount)
	assert.Equal(t, "Moscow", dto.City)
	assert.Equal(t, "Test Operator", dto.CreatedBy)
	assert.NotEmpty(t, dto.CreatedAt)
}

func TestCreateCash_InvalidAmount_BadRequest(t *testing.T) {
	router, _ := newTestRouter(t)

	req := createReq("Moscow", "")
	req.Amount = decimal.RequireFromString("0")
	rec := doRequest(t, router, "POST", "/api/cash", operatorHeaders(7), req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateCash_MalformedBody_BadRequest(t *testing.T) {
	router, _ := newTestRouter(t)

	req := httptest.NewRequest("POST", "/api/cash", bytes.NewReader([]byte("{not json")))
	for k, v := range operatorHeaders(7) {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateCash_DuplicateOrder_ConflictWithExistingID(t *testing.T) {
	router, _ := newTestRouter(t)

	first := doRequest(t, router, "POST", "/api/cash", operatorHeaders(7), createReq("Moscow", "Order #42"))
	require.Equal(t, http.StatusCreated, first.Code)
	firstDTO := decodeBody[TransactionDTO](t, first)

	second := doRequest(t, router, "POST", "/api/cash", operatorHeaders(8), createReq("Kazan", "Order #42"))
	require.Equal(t, http.StatusConflict, second.Code)

	errBody := decodeBody[ErrorResponse](t, second)
	assert.Equal(t, firstDTO.ID, errBody.ExistingID)
}

// =============================================================================
// GET / UPDATE / DELETE
// =============================================================================

func TestGetCash_Missing_NotFound(t *testing.T) {
	router, _ := newTestRouter(t)
	rec := doRequest(t, router, "GET", "/api/cash/9999", adminHeaders(), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetCash_NonNumericID_BadRequest(t *testing.T) {
	router, _ := newTestRouter(t)
	rec := doRequest(t, router, "GET", "/api/cash/abc", adminHeaders(), nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetCash_ForeignRow_Forbidden(t *testing.T) {
	router, _ := newTestRouter(t)

	created := doRequest(t, router, "POST", "/api/cash", operatorHeaders(7), createReq("Moscow", ""))
	require.Equal(t, http.StatusCreated, created.Code)
	dto := decodeBody[TransactionDTO](t, created)

	rec := doRequest(t, router, "GET", fmt.Sprintf("/api/cash/%d", dto.ID), operatorHeaders(8), nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestUpdateCash_PartialUpdate(t *testing.T) {
	router, _ := newTestRouter(t)

	created := doRequest(t, router, "POST", "/api/cash", operatorHeaders(7), createReq("Moscow", ""))
	require.Equal(t, http.StatusCreated, created.Code)
	dto := decodeBody[TransactionDTO](t, created)

	note := "adjusted after recount"
	rec := doRequest(t, router, "PUT", fmt.Sprintf("/api/cash/%d", dto.ID),
		operatorHeaders(7), UpdateCashRequest{Note: &note})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	updated := decodeBody[TransactionDTO](t, rec)
	assert.Equal(t, note, updated.Note)
	assert.Equal(t, "1500.00", updated.Amount)
	assert.Equal(t, "Moscow", updated.City)
}

func TestDeleteCash_ThenGone(t *testing.T) {
	router, _ := newTestRouter(t)

	created := doRequest(t, router, "POST", "/api/cash", operatorHeaders(7), createReq("Moscow", ""))
	require.Equal(t, http.StatusCreated, created.Code)
	dto := decodeBody[TransactionDTO](t, created)

	path := fmt.Sprintf("/api/cash/%d", dto.ID)
	rec := doRequest(t, router, "DELETE", path, operatorHeaders(7), nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(t, router, "GET", path, adminHeaders(), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doRequest(t, router, "DELETE", path, operatorHeaders(7), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDeleteCash_MasterRole_Forbidden(t *testing.T) {
	router, _ := newTestRouter(t)
	rec := doRequest(t, router, "DELETE", "/api/cash/1", masterHeaders(3), nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

// =============================================================================
// LISTING
// =============================================================================

func TestListCash_TypeAndNameAlias(t *testing.T) {
	router, _ := newTestRouter(t)

	income := createReq("Moscow", "")
	require.Equal(t, http.StatusCreated,
		doRequest(t, router, "POST", "/api/cash", adminHeaders(), income).Code)

	expense := createReq("Moscow", "")
	expense.Kind = "expense"
	require.Equal(t, http.StatusCreated,
		doRequest(t, router, "POST", "/api/cash", adminHeaders(), expense).Code)

	// Legacy parameter
	rec := doRequest(t, router, "GET", "/api/cash?name=expense", adminHeaders(), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decodeBody[ListResponse](t, rec)
	require.Equal(t, 1, list.Total)
	assert.Equal(t, "expense", list.Items[0].Kind)

	// type wins when both are supplied
	rec = doRequest(t, router, "GET", "/api/cash?type=income&name=expense", adminHeaders(), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list = decodeBody[ListResponse](t, rec)
	require.Equal(t, 1, list.Total)
	assert.Equal(t, "income", list.Items[0].Kind)
}

func TestListCash_Pagination(t *testing.T) {
	router, _ := newTestRouter(t)

	for i := 0; i < 25; i++ {
		rec := doRequest(t, router, "POST", "/api/cash", adminHeaders(), createReq("Moscow", ""))
		require.Equal(t, http.StatusCreated, rec.Code)
	}

	rec := doRequest(t, router, "GET", "/api/cash?page=2&limit=10", adminHeaders(), nil)
	require.Equal(t, http.StatusOK, rec.Code)

	list := decodeBody[ListResponse](t, rec)
	assert.Equal(t, 25, list.Total)
	assert.Equal(t, 2, list.Page)
	assert.Equal(t, 10, list.Limit)
	assert.Equal(t, 3, list.TotalPages)
	assert.Len(t, list.Items, 10)

	// Out-of-range limit is rejected, not clamped.
	rec = doRequest(t, router, "GET", "/api/cash?limit=101", adminHeaders(), nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListCash_CityScopedDirector_ForbiddenCityIsEmpty(t *testing.T) {
	router, _ := newTestRouter(t)

	require.Equal(t, http.StatusCreated,
		doRequest(t, router, "POST", "/api/cash", adminHeaders(), createReq("Tver", "")).Code)

	directorHeaders := map[string]string{
		"X-Caller-Id":     "2",
		"X-Caller-Login":  "dir",
		"X-Caller-Role":   "director",
		"X-Caller-Name":   "Test Director",
		"X-Caller-Cities": "Moscow, Kazan",
	}
	rec := doRequest(t, router, "GET", "/api/cash?city=Tver", directorHeaders, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	list := decodeBody[ListResponse](t, rec)
	assert.Equal(t, 0, list.Total)
	assert.Empty(t, list.Items)
}

// =============================================================================
// HANDOVER
// =============================================================================

func TestListHandover_MasterOnly(t *testing.T) {
	router, store := newTestRouter(t)

	err := store.SaveHandoverOrder(context.Background(), handover.Order{
		MasterID:         3,
		MasterName:       "Test Master",
		City:             "Moscow",
		Amount:           decimal.RequireFromString("2500.00"),
		SubmissionStatus: handover.StatusNotSubmitted,
		ClosedAt:         time.Date(2026, time.August, 1, 12, 0, 0, 0, time.UTC),
	}, "ready")
	require.NoError(t, err)

	rec := doRequest(t, router, "GET", "/api/handover", masterHeaders(3), nil)
	require.Equal(t, http.StatusOK, rec.Code)

	list := decodeBody[HandoverListResponse](t, rec)
	require.Equal(t, 1, list.Total)
	assert.Equal(t, "2500.00", list.Items[0].Amount)
	assert.Equal(t, "not_submitted", list.Items[0].SubmissionStatus)

	// Any other role is denied, including admin.
	rec = doRequest(t, router, "GET", "/api/handover", adminHeaders(), nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	// Another master sees nothing.
	rec = doRequest(t, router, "GET", "/api/handover", masterHeaders(4), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list = decodeBody[HandoverListResponse](t, rec)
	assert.Equal(t, 0, list.Total)
}

func TestListHandover_UnknownStatus_BadRequest(t *testing.T) {
	router, _ := newTestRouter(t)
	rec := doRequest(t, router, "GET", "/api/handover?status=pending", masterHeaders(3), nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
