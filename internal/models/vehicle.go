package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Vehicle is a registered vehicle. VIN is unique across vehicles.
type Vehicle struct {
	ID           int64           `json:"id"`
	VIN          string          `json:"vin"`
	Make         string          `json:"make"`
	Model        string          `json:"model"`
	Year         int             `json:"year"`
	Mileage      int             `json:"mileage"`
	BaseAmount   decimal.Decimal `json:"baseAmount"`
	SellingPrice decimal.Decimal `json:"sellingPrice"`
	CreatedAt    time.Time       `json:"createdAt"`
}

// NormalizeVIN is the stored form of a VIN: trimmed and upper-cased.
func NormalizeVIN(vin string) string {
	return strings.ToUpper(strings.TrimSpace(vin))
}

// VehicleAttributes is what the external VIN lookup reports about a vehicle.
// Year is numeric; a lookup that cannot produce one fails instead.
type VehicleAttributes struct {
	VIN          string `json:"vin"`
	Manufacturer string `json:"manufacturer"`
	Model        string `json:"model"`
	Year         int    `json:"year"`
	Class        string `json:"class"`
}
