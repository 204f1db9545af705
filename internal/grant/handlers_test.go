package grant

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/dhilipwind-Hospital/Health-Care-sub000/internal/auth"
	"github.com/dhilipwind-Hospital/Health-Care-sub000/pkg/logger"
	"github.com/dhilipwind-Hospital/Health-Care-sub000/pkg/types"
)

// MockService is a mock implementation of GrantService
type MockService struct {
	mock.Mock
}

func (m *MockService) Request(ctx context.Context, doctor *types.UserClaims, input *types.AccessRequestInput, requesterIP string) (*types.PatientAccessGrant, error) {
	args := m.Called(ctx, doctor, input, requesterIP)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.PatientAccessGrant), args.Error(1)
}

func (m *MockService) Approve(ctx context.Context, grantID, approvalToken, approverIP string) (*types.PatientAccessGrant, error) {
	args := m.Called(ctx, grantID, approvalToken, approverIP)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.PatientAccessGrant), args.Error(1)
}

func (m *MockService) Reject(ctx context.Context, grantID, rejectionToken string) (*types.PatientAccessGrant, error) {
	args := m.Called(ctx, grantID, rejectionToken)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.PatientAccessGrant), args.Error(1)
}

func (m *MockService) Revoke(ctx context.Context, grantID, requestedByPatientID string) (*types.PatientAccessGrant, error) {
	args := m.Called(ctx, grantID, requestedByPatientID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.PatientAccessGrant), args.Error(1)
}

func (m *MockService) Sweep(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockService) CheckActive(ctx context.Context, doctorID, patientID string) (*types.ActiveGrantContext, error) {
	args := m.Called(ctx, doctorID, patientID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.ActiveGrantContext), args.Error(1)
}

func (m *MockService) ListForDoctor(ctx context.Context, doctorID string, status types.GrantStatus) ([]*types.GrantView, error) {
	args := m.Called(ctx, doctorID, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*types.GrantView), args.Error(1)
}

func (m *MockService) ListForPatient(ctx context.Context, patientID string, includeExpired bool) ([]*types.GrantView, error) {
	args := m.Called(ctx, patientID, includeExpired)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*types.GrantView), args.Error(1)
}

func passThrough(c *gin.Context) { c.Next() }

func setupTestRouter(service *MockService, claims *types.UserClaims) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()

	handlers := NewHandlers(service, logger.New("debug"))
	handlers.RegisterRoutes(router, Middlewares{
		RequireAuth: func(c *gin.Context) {
			if claims == nil {
				c.JSON(http.StatusUnauthorized, gin.H{"error": "UNAUTHORIZED"})
				c.Abort()
				return
			}
			c.Set(auth.ContextUserClaims, claims)
			c.Next()
		},
		Tenant:       passThrough,
		TenantOption: passThrough,
		RateLimit:    passThrough,
	})

	return router
}

func TestRequestAccess_Created(t *testing.T) {
	service := &MockService{}
	claims := &types.UserClaims{UserID: "doctor-1", Role: types.RoleDoctor, OrganizationID: "org-a"}

	g := pendingGrant()
	g.CreatedAt = time.Now()
	service.On("Request", mock.Anything, claims, mock.AnythingOfType("*types.AccessRequestInput"), mock.Anything).
		Return(g, nil)

	router := setupTestRouter(service, claims)

	body := []byte(`{"patient_id":"patient-1","reason":"Cardiology follow-up for referred patient","duration":"3_days","urgency":"normal"}`)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/access-requests", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Contains(t, w.Body.String(), "grant-1")
	// Single-use tokens never appear in any response body
	assert.NotContains(t, w.Body.String(), "approval-token")
	assert.NotContains(t, w.Body.String(), "rejection-token")
}

func TestRequestAccess_RejectsNonDoctor(t *testing.T) {
	service := &MockService{}
	claims := &types.UserClaims{UserID: "patient-1", Role: types.RolePatient, OrganizationID: "org-b"}

	router := setupTestRouter(service, claims)

	body := []byte(`{"patient_id":"patient-2","reason":"a sufficiently long reason","duration":"24_hours","urgency":"normal"}`)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/access-requests", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
	service.AssertNotCalled(t, "Request", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestRequestAccess_InvalidPayload(t *testing.T) {
	service := &MockService{}
	claims := &types.UserClaims{UserID: "doctor-1", Role: types.RoleDoctor, OrganizationID: "org-a"}

	router := setupTestRouter(service, claims)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/access-requests", bytes.NewReader([]byte(`{"reason":"short"}`)))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRequestAccess_DuplicateConflict(t *testing.T) {
	service := &MockService{}
	claims := &types.UserClaims{UserID: "doctor-1", Role: types.RoleDoctor, OrganizationID: "org-a"}

	service.On("Request", mock.Anything, claims, mock.Anything, mock.Anything).
		Return(nil, types.NewConflictError(types.ErrCodeDuplicateGrant, "An open access request for this patient already exists",
			map[string]interface{}{"existing_request_id": "grant-9"}))

	router := setupTestRouter(service, claims)

	body := []byte(`{"patient_id":"patient-1","reason":"Cardiology follow-up for referred patient","duration":"3_days","urgency":"normal"}`)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/access-requests", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "grant-9")
}

func TestApproveGrant_TokenInPath(t *testing.T) {
	service := &MockService{}

	expires := time.Now().Add(72 * time.Hour)
	g := pendingGrant()
	g.Status = types.GrantApproved
	g.ExpiresAt = &expires
	g.UpdatedAt = time.Now()

	service.On("Approve", mock.Anything, "grant-1", "the-approval-token", mock.Anything).Return(g, nil)

	// Approval links work without authentication
	router := setupTestRouter(service, nil)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/access-requests/grant-1/approve/the-approval-token", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Access granted")
	service.AssertCalled(t, "Approve", mock.Anything, "grant-1", "the-approval-token", mock.Anything)
}

func TestApproveGrant_CollapsedNotFound(t *testing.T) {
	service := &MockService{}
	service.On("Approve", mock.Anything, "grant-1", "bad-token", mock.Anything).
		Return(nil, types.NewNotFoundError(types.ErrCodeGrantNotFound, "Access request not found or already processed"))

	router := setupTestRouter(service, nil)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/access-requests/grant-1/approve/bad-token", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "not found or already processed")
}

func TestRejectGrant_TokenInPath(t *testing.T) {
	service := &MockService{}

	g := pendingGrant()
	g.Status = types.GrantRejected
	g.UpdatedAt = time.Now()

	service.On("Reject", mock.Anything, "grant-1", "the-rejection-token").Return(g, nil)

	router := setupTestRouter(service, nil)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/access-requests/grant-1/reject/the-rejection-token", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "rejected")
}

func TestRevokeGrant_PatientOnly(t *testing.T) {
	service := &MockService{}
	claims := &types.UserClaims{UserID: "patient-1", Role: types.RolePatient, OrganizationID: "org-b"}

	g := pendingGrant()
	g.Status = types.GrantRevoked
	g.UpdatedAt = time.Now()

	service.On("Revoke", mock.Anything, "grant-1", "patient-1").Return(g, nil)

	router := setupTestRouter(service, claims)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/patient/access-grants/grant-1/revoke", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	service.AssertCalled(t, "Revoke", mock.Anything, "grant-1", "patient-1")
}

func TestListMyGrants_IncludeExpiredFlag(t *testing.T) {
	service := &MockService{}
	claims := &types.UserClaims{UserID: "patient-1", Role: types.RolePatient, OrganizationID: "org-b"}

	service.On("ListForPatient", mock.Anything, "patient-1", true).Return([]*types.GrantView{}, nil)

	router := setupTestRouter(service, claims)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/patient/access-grants?include_expired=true", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	service.AssertCalled(t, "ListForPatient", mock.Anything, "patient-1", true)
}

func TestListMyRequests_StatusFilter(t *testing.T) {
	service := &MockService{}
	claims := &types.UserClaims{UserID: "doctor-1", Role: types.RoleDoctor, OrganizationID: "org-a"}

	service.On("ListForDoctor", mock.Anything, "doctor-1", types.GrantPending).Return([]*types.GrantView{}, nil)

	router := setupTestRouter(service, claims)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/access-requests?status=pending", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}
