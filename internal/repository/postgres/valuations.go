package postgres

import (
	"context"
	"database/sql"

	apperrors "vehicle-financing/internal/common/errors"
	"vehicle-financing/internal/models"
)

type ValuationRepository struct {
	db *sql.DB
}

func NewValuationRepository(db *sql.DB) *ValuationRepository {
	return &ValuationRepository{db: db}
}

// Save inserts a valuation. Valuations are never updated.
func (r *ValuationRepository) Save(ctx context.Context, v *models.Valuation) (*models.Valuation, error) {
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO valuations (
			vehicle_id, vin, manufacturer, model, year, class,
			valuation_amount, valuation_date, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id`,
		v.VehicleID, v.VIN, v.Manufacturer, v.Model, v.Year, v.Class,
		v.ValuationAmount, v.ValuationDate, v.CreatedAt, v.UpdatedAt,
	).Scan(&v.ID)
	if err != nil {
		return nil, apperrors.NewDatabaseInsertFailedError(err)
	}
	return v, nil
}

// ListByVehicle returns a vehicle's valuation history, newest first.
func (r *ValuationRepository) ListByVehicle(ctx context.Context, vehicleID int64) ([]models.Valuation, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, vehicle_id, vin, manufacturer, model, year, class,
		       valuation_amount, valuation_date, created_at, updated_at
		FROM valuations
		WHERE vehicle_id = $1
		ORDER BY valuation_date DESC, id DESC`, vehicleID)
	if err != nil {
		return nil, apperrors.NewQueryExecutionFailedError("list_valuations", err)
	}
	defer rows.Close()

	out := make([]models.Valuation, 0)
	for rows.Next() {
		var v models.Valuation
		if err := rows.Scan(&v.ID, &v.VehicleID, &v.VIN, &v.Manufacturer, &v.Model, &v.Year, &v.Class,
			&v.ValuationAmount, &v.ValuationDate, &v.CreatedAt, &v.UpdatedAt); err != nil {
			return nil, apperrors.NewQueryExecutionFailedError("list_valuations", err)
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewQueryExecutionFailedError("list_valuations", err)
	}
	return out, nil
}
