/*
handover_test.go - Tests for the master handover listing

Tests for:
- Role gating (master only)
- Implicit restriction to the caller's own orders
- Submission-status filtering, including legacy NULL rows
- Ordering and pagination
*/
package handover_test

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/cashdesk/auth"
	"github.com/warp/cashdesk/cash"
	"github.com/warp/cashdesk/handover"
	"github.com/warp/cashdesk/store/sqlite"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestService(t *testing.T) (*handover.Service, *sqlite.Store) {
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return handover.NewService(store, logger), store
}

func masterCaller(id int64) auth.Caller {
	return auth.Caller{UserID: id, Login: "master", Role: auth.RoleMaster, DisplayName: "Test Master"}
}

func saveOrder(t *testing.T, store *sqlite.Store, masterID int64, status handover.SubmissionStatus, workStatus string, closedAt time.Time) {
	t.Helper()
	err := store.SaveHandoverOrder(context.Background(), handover.Order{
		MasterID:         masterID,
		MasterName:       "Test Master",
		City:             "Moscow",
		Amount:           decimal.RequireFromString("2500.00"),
		SubmissionStatus: status,
		ClosedAt:         closedAt,
	}, workStatus)
	require.NoError(t, err)
}

func day(d int) time.Time {
	return time.Date(2026, time.August, d, 12, 0, 0, 0, time.UTC)
}

// =============================================================================
// ROLE GATING
// =============================================================================

func TestListForMaster_NonMasterRoles_Denied(t *testing.T) {
	svc, _ := newTestService(t)
	for _, role := range []auth.Role{
		auth.RoleAdmin, auth.RoleDirector,
		auth.RoleCallCentreAdmin, auth.RoleCallCentreOperator, auth.RoleOperator,
	} {
		_, err := svc.ListForMaster(context.Background(),
			auth.Caller{UserID: 1, Role: role}, handover.ListFilter{})
		assert.ErrorIs(t, err, auth.ErrForbidden, "role %s", role)
	}
}

// =============================================================================
// SCOPING AND FILTERING
// =============================================================================

func TestListForMaster_OnlyOwnReadyOrders(t *testing.T) {
	// GIVEN: Ready orders for two masters plus an unfinished one
	svc, store := newTestService(t)
	saveOrder(t, store, 7, handover.StatusNotSubmitted, "ready", day(1))
	saveOrder(t, store, 7, handover.StatusApproved, "ready", day(2))
	saveOrder(t, store, 8, handover.StatusNotSubmitted, "ready", day(3))
	saveOrder(t, store, 7, handover.StatusNotSubmitted, "in_progress", day(4))

	// WHEN: Master 7 lists
	res, err := svc.ListForMaster(context.Background(), masterCaller(7), handover.ListFilter{})
	require.NoError(t, err)

	// THEN: Only their own two ready orders appear
	assert.Equal(t, 2, res.Total)
	for _, o := range res.Items {
		assert.Equal(t, int64(7), o.MasterID)
	}
}

func TestListForMaster_StatusFilter(t *testing.T) {
	svc, store := newTestService(t)
	saveOrder(t, store, 7, handover.StatusNotSubmitted, "ready", day(1))
	saveOrder(t, store, 7, handover.StatusUnderReview, "ready", day(2))
	saveOrder(t, store, 7, handover.StatusApproved, "ready", day(3))
	saveOrder(t, store, 7, "", "ready", day(4)) // legacy row, NULL status

	cases := []struct {
		status string
		want   int
	}{
		{"", 4},
		{"all", 4},
		{"not_submitted", 2}, // explicit rows plus legacy NULL
		{"under_review", 1},
		{"approved", 1},
		{"rejected", 0},
	}
	for _, tc := range cases {
		res, err := svc.ListForMaster(context.Background(), masterCaller(7),
			handover.ListFilter{Status: tc.status})
		require.NoError(t, err, "status %q", tc.status)
		assert.Equal(t, tc.want, res.Total, "status %q", tc.status)
	}
}

func TestListForMaster_LegacyNullStatus_SurfacesAsNotSubmitted(t *testing.T) {
	svc, store := newTestService(t)
	saveOrder(t, store, 7, "", "ready", day(1))

	res, err := svc.ListForMaster(context.Background(), masterCaller(7), handover.ListFilter{})
	require.NoError(t, err)
	require.Len(t, res.Items, 1)
	assert.Equal(t, handover.StatusNotSubmitted, res.Items[0].SubmissionStatus)
}

func TestListForMaster_UnknownStatus_Rejected(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.ListForMaster(context.Background(), masterCaller(7),
		handover.ListFilter{Status: "pending"})
	require.Error(t, err)
	assert.True(t, cash.IsValidation(err))
}

// =============================================================================
// ORDERING AND PAGINATION
// =============================================================================

func TestListForMaster_NewestClosingDateFirst(t *testing.T) {
	svc, store := newTestService(t)
	saveOrder(t, store, 7, handover.StatusNotSubmitted, "ready", day(1))
	saveOrder(t, store, 7, handover.StatusNotSubmitted, "ready", day(3))
	saveOrder(t, store, 7, handover.StatusNotSubmitted, "ready", day(2))

	res, err := svc.ListForMaster(context.Background(), masterCaller(7), handover.ListFilter{})
	require.NoError(t, err)
	require.Len(t, res.Items, 3)
	assert.Equal(t, day(3), res.Items[0].ClosedAt)
	assert.Equal(t, day(2), res.Items[1].ClosedAt)
	assert.Equal(t, day(1), res.Items[2].ClosedAt)
}

func TestListForMaster_Pagination(t *testing.T) {
	svc, store := newTestService(t)
	for d := 1; d <= 5; d++ {
		saveOrder(t, store, 7, handover.StatusNotSubmitted, "ready", day(d))
	}

	res, err := svc.ListForMaster(context.Background(), masterCaller(7),
		handover.ListFilter{Page: 2, Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, 5, res.Total)
	assert.Equal(t, 3, res.TotalPages)
	require.Len(t, res.Items, 2)
	assert.Equal(t, day(3), res.Items[0].ClosedAt)
	assert.Equal(t, day(2), res.Items[1].ClosedAt)

	_, err = svc.ListForMaster(context.Background(), masterCaller(7),
		handover.ListFilter{Limit: 101})
	require.Error(t, err)
	assert.True(t, cash.IsValidation(err))
}
