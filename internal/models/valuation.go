package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Valuation is an immutable record of one estimate. The lookup attributes are
// copied in so the record survives later changes to the vehicle.
type Valuation struct {
	ID              int64           `json:"id"`
	VehicleID       int64           `json:"vehicleId"`
	VIN             string          `json:"vin"`
	Manufacturer    string          `json:"manufacturer"`
	Model           string          `json:"model"`
	Year            int             `json:"year"`
	Class           string          `json:"class"`
	ValuationAmount decimal.Decimal `json:"valuationAmount"`
	ValuationDate   time.Time       `json:"valuationDate"`
	CreatedAt       time.Time       `json:"createdAt"`
	UpdatedAt       time.Time       `json:"updatedAt"`
}
