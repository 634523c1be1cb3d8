package postgres

import (
	"context"
	"database/sql"
	"errors"

	apperrors "vehicle-financing/internal/common/errors"
	"vehicle-financing/internal/models"
)

const vehicleColumns = `id, vin, make, model, year, mileage, base_amount, selling_price, created_at`

type VehicleRepository struct {
	db *sql.DB
}

func NewVehicleRepository(db *sql.DB) *VehicleRepository {
	return &VehicleRepository{db: db}
}

func (r *VehicleRepository) FindByID(ctx context.Context, id int64) (*models.Vehicle, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+vehicleColumns+` FROM vehicles WHERE id = $1`, id)
	return r.scanOne(row, "find_vehicle_by_id")
}

func (r *VehicleRepository) FindByVIN(ctx context.Context, vin string) (*models.Vehicle, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+vehicleColumns+` FROM vehicles WHERE vin = $1`, vin)
	return r.scanOne(row, "find_vehicle_by_vin")
}

// List returns every vehicle, oldest first.
func (r *VehicleRepository) List(ctx context.Context) ([]models.Vehicle, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+vehicleColumns+` FROM vehicles ORDER BY id`)
	if err != nil {
		return nil, apperrors.NewQueryExecutionFailedError("list_vehicles", err)
	}
	defer rows.Close()

	vehicles := make([]models.Vehicle, 0)
	for rows.Next() {
		var v models.Vehicle
		if err := scanVehicle(rows, &v); err != nil {
			return nil, apperrors.NewQueryExecutionFailedError("list_vehicles", err)
		}
		vehicles = append(vehicles, v)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewQueryExecutionFailedError("list_vehicles", err)
	}
	return vehicles, nil
}

// Save inserts a vehicle without an ID and updates one with an ID. A VIN
// that is already registered yields a VEHICLE_ALREADY_EXISTS error.
func (r *VehicleRepository) Save(ctx context.Context, v *models.Vehicle) (*models.Vehicle, error) {
	if v.ID == 0 {
		err := r.db.QueryRowContext(ctx, `
			INSERT INTO vehicles (vin, make, model, year, mileage, base_amount, selling_price)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			RETURNING id, created_at`,
			v.VIN, v.Make, v.Model, v.Year, v.Mileage, v.BaseAmount, v.SellingPrice,
		).Scan(&v.ID, &v.CreatedAt)
		if err != nil {
			if isUniqueViolation(err) {
				return nil, apperrors.NewVehicleAlreadyExistsError(v.VIN)
			}
			return nil, apperrors.NewDatabaseInsertFailedError(err)
		}
		return v, nil
	}

	_, err := r.db.ExecContext(ctx, `
		UPDATE vehicles
		SET vin = $2, make = $3, model = $4, year = $5, mileage = $6, base_amount = $7, selling_price = $8
		WHERE id = $1`,
		v.ID, v.VIN, v.Make, v.Model, v.Year, v.Mileage, v.BaseAmount, v.SellingPrice,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, apperrors.NewVehicleAlreadyExistsError(v.VIN)
		}
		return nil, apperrors.NewQueryExecutionFailedError("update_vehicle", err)
	}
	return v, nil
}

func (r *VehicleRepository) scanOne(row *sql.Row, queryType string) (*models.Vehicle, error) {
	var v models.Vehicle
	if err := scanVehicle(row, &v); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, apperrors.NewQueryExecutionFailedError(queryType, err)
	}
	return &v, nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanVehicle(s scanner, v *models.Vehicle) error {
	if err := s.Scan(&v.ID, &v.VIN, &v.Make, &v.Model, &v.Year, &v.Mileage,
		&v.BaseAmount, &v.SellingPrice, &v.CreatedAt); err != nil {
		return err
	}
	return nil
}

