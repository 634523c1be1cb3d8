// Package search publishes valuation history to Elasticsearch.
package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	apperrors "vehicle-financing/internal/common/errors"
	"vehicle-financing/internal/models"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
)

// ValuationMapping is the index mapping for valuation documents.
var ValuationMapping = []byte(`{
  "mappings": {
    "properties": {
      "valuation_id":     {"type": "long"},
      "vehicle_id":       {"type": "long"},
      "vin":              {"type": "keyword"},
      "manufacturer":     {"type": "keyword"},
      "model":            {"type": "keyword"},
      "year":             {"type": "integer"},
      "class":            {"type": "keyword"},
      "valuation_amount": {"type": "scaled_float", "scaling_factor": 100},
      "valuation_date":   {"type": "date"}
    }
  }
}`)

type valuationDocument struct {
	ValuationID     int64     `json:"valuation_id"`
	VehicleID       int64     `json:"vehicle_id"`
	VIN             string    `json:"vin"`
	Manufacturer    string    `json:"manufacturer"`
	Model           string    `json:"model"`
	Year            int       `json:"year"`
	Class           string    `json:"class"`
	ValuationAmount float64   `json:"valuation_amount"`
	ValuationDate   time.Time `json:"valuation_date"`
}

// ValuationIndexer writes one document per valuation, keyed by valuation ID.
type ValuationIndexer struct {
	es    *elasticsearch.Client
	index string
}

func NewValuationIndexer(es *elasticsearch.Client, index string) *ValuationIndexer {
	return &ValuationIndexer{es: es, index: index}
}

func (i *ValuationIndexer) IndexValuation(ctx context.Context, v *models.Valuation) error {
	amount, _ := v.ValuationAmount.Float64()
	body, err := json.Marshal(valuationDocument{
		ValuationID:     v.ID,
		VehicleID:       v.VehicleID,
		VIN:             v.VIN,
		Manufacturer:    v.Manufacturer,
		Model:           v.Model,
		Year:            v.Year,
		Class:           v.Class,
		ValuationAmount: amount,
		ValuationDate:   v.ValuationDate,
	})
	if err != nil {
		return apperrors.NewSearchIndexFailedError(i.index, err)
	}

	req := esapi.IndexRequest{
		Index:      i.index,
		DocumentID: strconv.FormatInt(v.ID, 10),
		Body:       bytes.NewReader(body),
	}
	res, err := req.Do(ctx, i.es)
	if err != nil {
		return apperrors.NewSearchIndexFailedError(i.index, err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return apperrors.NewSearchIndexFailedError(i.index, fmt.Errorf("index response: %s", res.Status()))
	}
	return nil
}
