package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"vehicle-financing/internal/common/auth"
	apperrors "vehicle-financing/internal/common/errors"
	"vehicle-financing/internal/common/logger"
	"vehicle-financing/internal/common/validation"
	"vehicle-financing/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// ==========================
// Mocks
// ==========================

type MockAuthService struct{ mock.Mock }

func (m *MockAuthService) Login(ctx context.Context, username, password string) (*auth.Token, error) {
	args := m.Called(ctx, username, password)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*auth.Token), args.Error(1)
}

type MockVehicleStore struct{ mock.Mock }

func (m *MockVehicleStore) List(ctx context.Context) ([]models.Vehicle, error) {
	args := m.Called(ctx)
	return args.Get(0).([]models.Vehicle), args.Error(1)
}

func (m *MockVehicleStore) Save(ctx context.Context, v *models.Vehicle) (*models.Vehicle, error) {
	args := m.Called(ctx, v)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Vehicle), args.Error(1)
}

type MockValuations struct{ mock.Mock }

func (m *MockValuations) Simulate(ctx context.Context, vin string) (*models.Valuation, error) {
	args := m.Called(ctx, vin)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Valuation), args.Error(1)
}

func (m *MockValuations) ListByVehicle(ctx context.Context, vehicleID int64) ([]models.Valuation, error) {
	args := m.Called(ctx, vehicleID)
	return args.Get(0).([]models.Valuation), args.Error(1)
}

type MockLoanService struct{ mock.Mock }

func (m *MockLoanService) Create(ctx context.Context, req models.LoanApplicationRequest) (*models.Loan, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Loan), args.Error(1)
}

func (m *MockLoanService) UpdateStatus(ctx context.Context, loanID int64, status models.LoanStatus, comment string) (*models.Loan, error) {
	args := m.Called(ctx, loanID, status, comment)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Loan), args.Error(1)
}

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

// ==========================
// Test Harness
// ==========================

type harness struct {
	router   http.Handler
	tokens   *auth.TokenIssuer
	auth     *MockAuthService
	vehicles *MockVehicleStore
	vals     *MockValuations
	loans    *MockLoanService
}

func newHarness(t *testing.T, readiness map[string]Pinger) *harness {
	t.Helper()
	v, err := validation.New()
	require.NoError(t, err)

	h := &harness{
		tokens:   auth.NewTokenIssuer("test-secret", time.Hour, "vehicle-financing"),
		auth:     &MockAuthService{},
		vehicles: &MockVehicleStore{},
		vals:     &MockValuations{},
		loans:    &MockLoanService{},
	}
	h.router = NewRouter(Deps{
		Auth:          h.auth,
		Authenticator: h.tokens,
		Vehicles:      h.vehicles,
		Valuations:    h.vals,
		History:       h.vals,
		Loans:         h.loans,
		Validator:     v,
		Readiness:     readiness,
		Logger:        logger.NewTestLogger(t),
	})
	return h
}

func (h *harness) token(t *testing.T, id int64, role models.Role) string {
	t.Helper()
	signed, _, err := h.tokens.Issue(&models.User{ID: id, Username: string(role), Role: role})
	require.NoError(t, err)
	return signed
}

func (h *harness) do(t *testing.T, method, path, token, body string) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewReader([]byte(body)))
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.router.ServeHTTP(rec, req)

	var decoded map[string]interface{}
	_ = json.Unmarshal(rec.Body.Bytes(), &decoded)
	return rec, decoded
}

// ==========================
// Auth
// ==========================

func TestLogin(t *testing.T) {
	h := newHarness(t, nil)
	h.auth.On("Login", mock.Anything, "admin", "password").
		Return(&auth.Token{AccessToken: "jwt", TokenType: "Bearer"}, nil)
	h.auth.On("Login", mock.Anything, "admin", "wrong").
		Return(nil, apperrors.NewInvalidCredentialsError())

	rec, body := h.do(t, http.MethodPost, "/api/v1/auth/login", "", `{"username":"admin","password":"password"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "success", body["status"])
	assert.Equal(t, "jwt", body["data"].(map[string]interface{})["access_token"])

	rec, body = h.do(t, http.MethodPost, "/api/v1/auth/login", "", `{"username":"admin","password":"wrong"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "fail", body["status"])
	assert.Nil(t, body["data"])

	rec, _ = h.do(t, http.MethodPost, "/api/v1/auth/login", "", `{"username":"admin"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// ==========================
// Vehicles
// ==========================

func TestCreateVehicle(t *testing.T) {
	h := newHarness(t, nil)
	payload := `{"vin":"jh4ka7561pc008269","make":"Acura","model":"Legend","year":1993,"mileage":120000,"baseAmount":5000000,"sellingPrice":7000000}`

	h.vehicles.On("Save", mock.Anything, mock.MatchedBy(func(v *models.Vehicle) bool {
		return v.VIN == "JH4KA7561PC008269" && v.BaseAmount.Equal(decimal.NewFromInt(5000000))
	})).Return(&models.Vehicle{ID: 1, VIN: "JH4KA7561PC008269"}, nil).Once()

	t.Run("dealer registers", func(t *testing.T) {
		rec, body := h.do(t, http.MethodPost, "/api/v1/vehicles", h.token(t, 2, models.RoleDealer), payload)
		assert.Equal(t, http.StatusCreated, rec.Code)
		assert.Equal(t, "Vehicle created successfully", body["message"])
	})

	t.Run("customer is forbidden", func(t *testing.T) {
		rec, body := h.do(t, http.MethodPost, "/api/v1/vehicles", h.token(t, 3, models.RoleCustomer), payload)
		assert.Equal(t, http.StatusForbidden, rec.Code)
		assert.Equal(t, "fail", body["status"])
	})

	t.Run("anonymous is unauthorized", func(t *testing.T) {
		rec, _ := h.do(t, http.MethodPost, "/api/v1/vehicles", "", payload)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("duplicate vin conflicts", func(t *testing.T) {
		h.vehicles.On("Save", mock.Anything, mock.Anything).
			Return(nil, apperrors.NewVehicleAlreadyExistsError("JH4KA7561PC008269")).Once()
		rec, body := h.do(t, http.MethodPost, "/api/v1/vehicles", h.token(t, 1, models.RoleAdmin), payload)
		assert.Equal(t, http.StatusConflict, rec.Code)
		assert.Equal(t, "vehicle already exists", body["message"])
	})

	t.Run("invalid vin rejected", func(t *testing.T) {
		rec, _ := h.do(t, http.MethodPost, "/api/v1/vehicles", h.token(t, 1, models.RoleAdmin),
			`{"vin":"IOQ","make":"Acura","model":"Legend","year":1993,"mileage":1,"baseAmount":1,"sellingPrice":1}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestListVehicles(t *testing.T) {
	h := newHarness(t, nil)
	h.vehicles.On("List", mock.Anything).Return([]models.Vehicle{{ID: 1}, {ID: 2}}, nil)

	rec, body := h.do(t, http.MethodGet, "/api/v1/vehicles", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, body["data"], 2)
}

// ==========================
// Valuations
// ==========================

func TestSimulateValuation(t *testing.T) {
	h := newHarness(t, nil)
	h.vals.On("Simulate", mock.Anything, "JH4KA7561PC008269").Return(&models.Valuation{
		ID:              9,
		VIN:             "JH4KA7561PC008269",
		ValuationAmount: decimal.RequireFromString("4750000.00"),
	}, nil)
	h.vals.On("Simulate", mock.Anything, "UNKNOWN").Return(nil, apperrors.NewVehicleNotFoundError("vin: UNKNOWN"))
	h.vals.On("Simulate", mock.Anything, "FLAKY").
		Return(nil, apperrors.NewVehicleDataFetchFailedError(errors.New("status 503")))

	rec, body := h.do(t, http.MethodGet, "/api/v1/vehicles/valuation?vin=JH4KA7561PC008269", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "4750000", body["data"].(map[string]interface{})["valuationAmount"])

	rec, _ = h.do(t, http.MethodGet, "/api/v1/vehicles/valuation?vin=jh4ka7561pc008269", "", "")
	assert.Equal(t, http.StatusOK, rec.Code, "a VIN registered in lower case is valued by the same string")

	rec, _ = h.do(t, http.MethodGet, "/api/v1/vehicles/valuation", "", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = h.do(t, http.MethodGet, "/api/v1/vehicles/valuation?vin=UNKNOWN", "", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, body = h.do(t, http.MethodGet, "/api/v1/vehicles/valuation?vin=FLAKY", "", "")
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, "error", body["status"])
	assert.Equal(t, "vehicle data fetch failed", body["message"])
}

func TestListValuations(t *testing.T) {
	h := newHarness(t, nil)
	h.vals.On("ListByVehicle", mock.Anything, int64(4)).Return([]models.Valuation{{ID: 1}}, nil)

	rec, body := h.do(t, http.MethodGet, "/api/v1/vehicles/4/valuations", h.token(t, 1, models.RoleAdmin), "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, body["data"], 1)
}

// ==========================
// Loans
// ==========================

func TestApplyForLoan(t *testing.T) {
	h := newHarness(t, nil)
	customer := h.token(t, 3, models.RoleCustomer)

	h.loans.On("Create", mock.Anything, mock.MatchedBy(func(req models.LoanApplicationRequest) bool {
		return req.UserID == 3 && req.VehicleID == 1
	})).Return(&models.Loan{ID: 11, UserID: 3, VehicleID: 1, Status: models.LoanStatusPending}, nil)

	payload := `{"vehicleId":1,"amountRequested":2500000,"monthlyIncome":300000,"monthlyDebt":50000,"creditScore":720,"age":34}`

	rec, body := h.do(t, http.MethodPost, "/api/v1/loan/apply", customer, payload)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "Loan application created successfully", body["message"])
	assert.Equal(t, "pending", body["data"].(map[string]interface{})["status"])

	rec, _ = h.do(t, http.MethodPost, "/api/v1/loan/apply", customer,
		`{"vehicleId":1,"userId":4,"amountRequested":1,"monthlyIncome":1,"monthlyDebt":0,"creditScore":720,"age":34}`)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec, _ = h.do(t, http.MethodPost, "/api/v1/loan/apply", h.token(t, 1, models.RoleAdmin), payload)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestApplyForLoan_Ineligible(t *testing.T) {
	h := newHarness(t, nil)
	h.loans.On("Create", mock.Anything, mock.Anything).
		Return(nil, apperrors.NewApplicantNotEligibleError([]string{"credit_score"}))

	rec, body := h.do(t, http.MethodPost, "/api/v1/loan/apply", h.token(t, 3, models.RoleCustomer),
		`{"vehicleId":1,"amountRequested":2500000,"monthlyIncome":300000,"monthlyDebt":50000,"creditScore":500,"age":34}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "applicant not eligible", body["message"])
	assert.Equal(t, "credit_score", body["developerMessage"])
}

func TestReviewLoan(t *testing.T) {
	h := newHarness(t, nil)
	admin := h.token(t, 1, models.RoleAdmin)
	comment := "ok"

	h.loans.On("UpdateStatus", mock.Anything, int64(11), models.LoanStatusApproved, "ok").
		Return(&models.Loan{ID: 11, Status: models.LoanStatusApproved, Comment: &comment}, nil)
	h.loans.On("UpdateStatus", mock.Anything, int64(99), models.LoanStatusRejected, "").
		Return(nil, apperrors.NewLoanNotFoundError("loanId: 99"))

	rec, body := h.do(t, http.MethodPatch, "/api/v1/loan/review", admin, `{"loanId":11,"loanStatus":"approved","comments":" ok "}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "approved", body["data"].(map[string]interface{})["status"])

	rec, _ = h.do(t, http.MethodPatch, "/api/v1/loan/review", admin, `{"loanId":99,"loanStatus":"rejected"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, _ = h.do(t, http.MethodPatch, "/api/v1/loan/review", admin, `{"loanId":11,"loanStatus":"archived"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = h.do(t, http.MethodPatch, "/api/v1/loan/review", h.token(t, 3, models.RoleCustomer), `{"loanId":11,"loanStatus":"approved"}`)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

// ==========================
// Probes
// ==========================

func TestProbes(t *testing.T) {
	h := newHarness(t, map[string]Pinger{
		"postgres": pingFunc(func(context.Context) error { return nil }),
		"redis":    pingFunc(func(context.Context) error { return errors.New("connection refused") }),
	})

	rec, _ := h.do(t, http.MethodGet, "/health", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, body := h.do(t, http.MethodGet, "/ready", "", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "up", body["postgres"])
	assert.Equal(t, "down", body["redis"])

	rec, _ = h.do(t, http.MethodGet, "/metrics", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRequestIDPropagated(t *testing.T) {
	h := newHarness(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(requestIDHeader, "req-1")
	rec := httptest.NewRecorder()
	h.router.ServeHTTP(rec, req)
	assert.Equal(t, "req-1", rec.Header().Get(requestIDHeader))

	rec = httptest.NewRecorder()
	h.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.NotEmpty(t, rec.Header().Get(requestIDHeader))
}
