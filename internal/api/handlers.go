package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"vehicle-financing/internal/common/auth"
	apperrors "vehicle-financing/internal/common/errors"
	"vehicle-financing/internal/common/logger"
	"vehicle-financing/internal/common/validation"
	"vehicle-financing/internal/models"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"
)

const maxBodyBytes = 1 << 20

type AuthService interface {
	Login(ctx context.Context, username, password string) (*auth.Token, error)
}

type VehicleStore interface {
	List(ctx context.Context) ([]models.Vehicle, error)
	Save(ctx context.Context, v *models.Vehicle) (*models.Vehicle, error)
}

type ValuationSimulator interface {
	Simulate(ctx context.Context, vin string) (*models.Valuation, error)
}

type ValuationHistory interface {
	ListByVehicle(ctx context.Context, vehicleID int64) ([]models.Valuation, error)
}

// LoanService is satisfied by *loan.Lifecycle.
type LoanService interface {
	Create(ctx context.Context, req models.LoanApplicationRequest) (*models.Loan, error)
	UpdateStatus(ctx context.Context, loanID int64, status models.LoanStatus, comment string) (*models.Loan, error)
}

type Handlers struct {
	auth       AuthService
	vehicles   VehicleStore
	valuations ValuationSimulator
	history    ValuationHistory
	loans      LoanService
	validator  *validation.Validator
	log        logger.Logger
	now        func() time.Time
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type vehicleRequest struct {
	VIN          string          `json:"vin"`
	Make         string          `json:"make"`
	Model        string          `json:"model"`
	Year         int             `json:"year"`
	Mileage      int             `json:"mileage"`
	BaseAmount   decimal.Decimal `json:"baseAmount"`
	SellingPrice decimal.Decimal `json:"sellingPrice"`
}

type reviewRequest struct {
	LoanID     int64  `json:"loanId"`
	LoanStatus string `json:"loanStatus"`
	Comments   string `json:"comments"`
}

func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := h.decode(r, validation.SchemaLogin, &req); err != nil {
		respondError(w, h.logFor(r), err)
		return
	}

	token, err := h.auth.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		respondError(w, h.logFor(r), err)
		return
	}
	respondData(w, http.StatusOK, "", token)
}

func (h *Handlers) CreateVehicle(w http.ResponseWriter, r *http.Request) {
	var req vehicleRequest
	if err := h.decode(r, validation.SchemaVehicleCreate, &req); err != nil {
		respondError(w, h.logFor(r), err)
		return
	}

	vehicle, err := h.vehicles.Save(r.Context(), &models.Vehicle{
		VIN:          models.NormalizeVIN(req.VIN),
		Make:         req.Make,
		Model:        req.Model,
		Year:         req.Year,
		Mileage:      req.Mileage,
		BaseAmount:   req.BaseAmount.RoundBank(2),
		SellingPrice: req.SellingPrice.RoundBank(2),
		CreatedAt:    h.now().UTC(),
	})
	if err != nil {
		respondError(w, h.logFor(r), err)
		return
	}

	h.logFor(r).Info("vehicle registered", map[string]interface{}{"vehicleId": vehicle.ID, "vin": vehicle.VIN})
	respondData(w, http.StatusCreated, "Vehicle created successfully", vehicle)
}

func (h *Handlers) ListVehicles(w http.ResponseWriter, r *http.Request) {
	vehicles, err := h.vehicles.List(r.Context())
	if err != nil {
		respondError(w, h.logFor(r), err)
		return
	}
	respondData(w, http.StatusOK, "", vehicles)
}

func (h *Handlers) SimulateValuation(w http.ResponseWriter, r *http.Request) {
	vin := models.NormalizeVIN(r.URL.Query().Get("vin"))
	if vin == "" {
		respondError(w, h.logFor(r), apperrors.NewValidationError("VIN is required", "query parameter vin is empty"))
		return
	}

	valuation, err := h.valuations.Simulate(r.Context(), vin)
	if err != nil {
		respondError(w, h.logFor(r), err)
		return
	}
	respondData(w, http.StatusOK, "Vehicle valuation retrieved and saved successfully", valuation)
}

func (h *Handlers) ListValuations(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil || id <= 0 {
		respondError(w, h.logFor(r), apperrors.NewValidationError("invalid vehicle id", mux.Vars(r)["id"]))
		return
	}

	valuations, err := h.history.ListByVehicle(r.Context(), id)
	if err != nil {
		respondError(w, h.logFor(r), err)
		return
	}
	respondData(w, http.StatusOK, "", valuations)
}

// ApplyForLoan creates an application for the calling customer. A userId
// in the body must match the caller.
func (h *Handlers) ApplyForLoan(w http.ResponseWriter, r *http.Request) {
	var req models.LoanApplicationRequest
	if err := h.decode(r, validation.SchemaLoanApplication, &req); err != nil {
		respondError(w, h.logFor(r), err)
		return
	}

	principal, ok := auth.PrincipalFrom(r.Context())
	if !ok {
		respondError(w, h.logFor(r), apperrors.NewUnauthorizedError("no principal"))
		return
	}
	switch {
	case req.UserID == 0:
		req.UserID = principal.UserID
	case req.UserID != principal.UserID:
		respondError(w, h.logFor(r), apperrors.NewForbiddenError(fmt.Sprintf("user %d cannot apply for user %d", principal.UserID, req.UserID)))
		return
	}

	loan, err := h.loans.Create(r.Context(), req)
	if err != nil {
		respondError(w, h.logFor(r), err)
		return
	}
	respondData(w, http.StatusCreated, "Loan application created successfully", loan)
}

func (h *Handlers) ReviewLoan(w http.ResponseWriter, r *http.Request) {
	var req reviewRequest
	if err := h.decode(r, validation.SchemaLoanReview, &req); err != nil {
		respondError(w, h.logFor(r), err)
		return
	}

	loan, err := h.loans.UpdateStatus(r.Context(), req.LoanID, models.LoanStatus(req.LoanStatus), strings.TrimSpace(req.Comments))
	if err != nil {
		respondError(w, h.logFor(r), err)
		return
	}
	respondData(w, http.StatusOK, "Loan status updated successfully", loan)
}

func (h *Handlers) logFor(r *http.Request) logger.Logger {
	return logger.FromContext(r.Context(), h.log)
}

// decode validates the body against schema and unmarshals it into dst.
func (h *Handlers) decode(r *http.Request, schema string, dst interface{}) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		return apperrors.NewValidationError("failed to read request body", err.Error())
	}
	defer r.Body.Close()

	if err := h.validator.Validate(schema, body).Err(); err != nil {
		return err
	}
	if err := json.Unmarshal(body, dst); err != nil {
		return apperrors.NewValidationError("malformed request body", err.Error())
	}
	return nil
}

func forbidden(p *auth.Principal) error {
	return apperrors.NewForbiddenError(fmt.Sprintf("role %s may not access this resource", p.Role))
}
