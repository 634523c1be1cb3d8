package simulatevaluation

type Input struct {
	VIN string `json:"vin"`
}

type Output struct {
	ValuationID     int64  `json:"valuationId"`
	VehicleID       int64  `json:"vehicleId"`
	VIN             string `json:"vin"`
	Manufacturer    string `json:"manufacturer"`
	Model           string `json:"model"`
	Year            int    `json:"year"`
	Class           string `json:"class"`
	ValuationAmount string `json:"valuationAmount"`
	ValuationDate   string `json:"valuationDate"`
}
