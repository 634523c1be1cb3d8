package postgres

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	apperrors "vehicle-financing/internal/common/errors"
	"vehicle-financing/internal/common/logger"
	"vehicle-financing/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Test Helpers
// ==========================

var createdAt = time.Date(2024, time.January, 2, 3, 4, 5, 0, time.UTC)

func newMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db, mock
}

func vehicleRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "vin", "make", "model", "year", "mileage", "base_amount", "selling_price", "created_at"})
}

// ==========================
// Migrate
// ==========================

func TestMigrate(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS users").WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, Migrate(context.Background(), db))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMigrate_Error(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectExec("CREATE TABLE").WillReturnError(errors.New("permission denied"))

	err := Migrate(context.Background(), db)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "apply schema")
}

// ==========================
// Vehicles
// ==========================

func TestVehicleRepository_FindByID(t *testing.T) {
	tests := []struct {
		name      string
		setupMock func(sqlmock.Sqlmock)
		wantNil   bool
		wantErr   bool
	}{
		{
			name: "found",
			setupMock: func(m sqlmock.Sqlmock) {
				m.ExpectQuery("SELECT (.+) FROM vehicles WHERE id = \\$1").
					WithArgs(int64(1)).
					WillReturnRows(vehicleRows().AddRow(1, "JH4KA7561PC008269", "Acura", "Legend", 1993, 120000, "5000000.00", "7000000.00", createdAt))
			},
		},
		{
			name: "not found",
			setupMock: func(m sqlmock.Sqlmock) {
				m.ExpectQuery("SELECT (.+) FROM vehicles WHERE id = \\$1").
					WithArgs(int64(1)).
					WillReturnRows(vehicleRows())
			},
			wantNil: true,
		},
		{
			name: "query error",
			setupMock: func(m sqlmock.Sqlmock) {
				m.ExpectQuery("SELECT (.+) FROM vehicles").
					WithArgs(int64(1)).
					WillReturnError(errors.New("connection reset"))
			},
			wantNil: true,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock := newMock(t)
			tt.setupMock(mock)

			v, err := NewVehicleRepository(db).FindByID(context.Background(), 1)

			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, &apperrors.StandardError{Code: apperrors.ErrCodeQueryExecutionFailed})
			} else {
				require.NoError(t, err)
			}
			if tt.wantNil {
				assert.Nil(t, v)
			} else {
				require.NotNil(t, v)
				assert.Equal(t, "JH4KA7561PC008269", v.VIN)
				assert.Equal(t, 1993, v.Year)
				assert.True(t, v.BaseAmount.Equal(decimal.NewFromInt(5000000)))
				assert.True(t, v.SellingPrice.Equal(decimal.NewFromInt(7000000)))
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestVehicleRepository_FindByVIN(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectQuery("SELECT (.+) FROM vehicles WHERE vin = \\$1").
		WithArgs("1HGCM82633A123456").
		WillReturnRows(vehicleRows().AddRow(2, "1HGCM82633A123456", "Honda", "Accord", 2003, 90000, "3000000.00", "4500000.00", createdAt))

	v, err := NewVehicleRepository(db).FindByVIN(context.Background(), "1HGCM82633A123456")
	require.NoError(t, err)
	assert.Equal(t, int64(2), v.ID)
	assert.Equal(t, "Honda", v.Make)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestVehicleRepository_List(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectQuery("SELECT (.+) FROM vehicles ORDER BY id").
		WillReturnRows(vehicleRows().
			AddRow(1, "JH4KA7561PC008269", "Acura", "Legend", 1993, 120000, "5000000.00", "7000000.00", createdAt).
			AddRow(2, "1HGCM82633A123456", "Honda", "Accord", 2003, 90000, "3000000.00", "4500000.00", createdAt))

	vehicles, err := NewVehicleRepository(db).List(context.Background())
	require.NoError(t, err)
	require.Len(t, vehicles, 2)
	assert.Equal(t, "Legend", vehicles[0].Model)
	assert.Equal(t, "Accord", vehicles[1].Model)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestVehicleRepository_List_Empty(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectQuery("SELECT (.+) FROM vehicles").WillReturnRows(vehicleRows())

	vehicles, err := NewVehicleRepository(db).List(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, vehicles)
	assert.Empty(t, vehicles)
}

func TestVehicleRepository_Save(t *testing.T) {
	newVehicle := func() *models.Vehicle {
		return &models.Vehicle{
			VIN: "2T1BURHE6FC123456", Make: "Toyota", Model: "Corolla", Year: 2015, Mileage: 30000,
			BaseAmount: decimal.NewFromInt(8000000), SellingPrice: decimal.NewFromInt(9500000),
		}
	}

	t.Run("insert", func(t *testing.T) {
		db, mock := newMock(t)
		v := newVehicle()
		mock.ExpectQuery("INSERT INTO vehicles").
			WithArgs(v.VIN, v.Make, v.Model, v.Year, v.Mileage, v.BaseAmount, v.SellingPrice).
			WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(3, createdAt))

		saved, err := NewVehicleRepository(db).Save(context.Background(), v)
		require.NoError(t, err)
		assert.Equal(t, int64(3), saved.ID)
		assert.Equal(t, createdAt, saved.CreatedAt)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("duplicate vin", func(t *testing.T) {
		db, mock := newMock(t)
		mock.ExpectQuery("INSERT INTO vehicles").
			WillReturnError(&pq.Error{Code: "23505", Message: "duplicate key value violates unique constraint"})

		_, err := NewVehicleRepository(db).Save(context.Background(), newVehicle())
		assert.ErrorIs(t, err, apperrors.ErrVehicleAlreadyExists)
		assert.Equal(t, apperrors.KindConflict, apperrors.KindOf(err))
	})

	t.Run("insert failure", func(t *testing.T) {
		db, mock := newMock(t)
		mock.ExpectQuery("INSERT INTO vehicles").WillReturnError(errors.New("disk full"))

		_, err := NewVehicleRepository(db).Save(context.Background(), newVehicle())
		assert.ErrorIs(t, err, &apperrors.StandardError{Code: apperrors.ErrCodeDatabaseInsertFailed})
	})

	t.Run("update", func(t *testing.T) {
		db, mock := newMock(t)
		v := newVehicle()
		v.ID = 3
		v.Mileage = 31000
		mock.ExpectExec("UPDATE vehicles").
			WithArgs(int64(3), v.VIN, v.Make, v.Model, v.Year, 31000, v.BaseAmount, v.SellingPrice).
			WillReturnResult(sqlmock.NewResult(0, 1))

		_, err := NewVehicleRepository(db).Save(context.Background(), v)
		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

// ==========================
// Users
// ==========================

func userRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "username", "password_hash", "first_name", "last_name", "role", "email", "phone", "created_at"})
}

func TestUserRepository_Find(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectQuery("SELECT (.+) FROM users WHERE id = \\$1").
		WithArgs(int64(5)).
		WillReturnRows(userRows().AddRow(5, "customer", "$2a$10$hash", "Customer", "User", "customer", nil, "+2348000000000", createdAt))
	mock.ExpectQuery("SELECT (.+) FROM users WHERE username = \\$1").
		WithArgs("ghost").
		WillReturnRows(userRows())

	repo := NewUserRepository(db)

	u, err := repo.FindByID(context.Background(), 5)
	require.NoError(t, err)
	assert.Equal(t, models.RoleCustomer, u.Role)
	assert.Equal(t, "", u.Email)
	assert.Equal(t, "+2348000000000", u.Phone)

	missing, err := repo.FindByUsername(context.Background(), "ghost")
	require.NoError(t, err)
	assert.Nil(t, missing)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_Create(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		db, mock := newMock(t)
		mock.ExpectQuery("INSERT INTO users").
			WithArgs("dealer", "hash", "Dealer", "User", "dealer", sql.NullString{String: "dealer@example.com", Valid: true}, sql.NullString{}).
			WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(9, createdAt))

		u, err := NewUserRepository(db).Create(context.Background(), &models.User{
			Username: "dealer", PasswordHash: "hash", FirstName: "Dealer", LastName: "User",
			Role: models.RoleDealer, Email: "dealer@example.com",
		})
		require.NoError(t, err)
		assert.Equal(t, int64(9), u.ID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("invalid role never reaches the database", func(t *testing.T) {
		db, mock := newMock(t)

		_, err := NewUserRepository(db).Create(context.Background(), &models.User{Username: "x", Role: "root"})
		assert.Equal(t, apperrors.KindValidationFailure, apperrors.KindOf(err))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("duplicate username", func(t *testing.T) {
		db, mock := newMock(t)
		mock.ExpectQuery("INSERT INTO users").WillReturnError(&pq.Error{Code: "23505"})

		_, err := NewUserRepository(db).Create(context.Background(), &models.User{Username: "admin", Role: models.RoleAdmin})
		assert.ErrorIs(t, err, apperrors.ErrUserAlreadyExists)
	})
}

// ==========================
// Loans
// ==========================

func TestLoanRepository_FindByID(t *testing.T) {
	cols := []string{"id", "vehicle_id", "user_id", "amount_requested", "status", "application_date", "comment", "created_at", "updated_at"}

	db, mock := newMock(t)
	mock.ExpectQuery("SELECT (.+) FROM loan_applications WHERE id = \\$1").
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows(cols).AddRow(7, 1, 2, "4500000.50", "approved", createdAt, "looks good", createdAt, createdAt))
	mock.ExpectQuery("SELECT (.+) FROM loan_applications WHERE id = \\$1").
		WithArgs(int64(8)).
		WillReturnRows(sqlmock.NewRows(cols).AddRow(8, 1, 2, "10.00", "pending", createdAt, nil, createdAt, createdAt))
	mock.ExpectQuery("SELECT (.+) FROM loan_applications WHERE id = \\$1").
		WithArgs(int64(9)).
		WillReturnRows(sqlmock.NewRows(cols))

	repo := NewLoanRepository(db, logger.NewTestLogger(t))

	loan, err := repo.FindByID(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, models.LoanStatusApproved, loan.Status)
	assert.Equal(t, "looks good", loan.CommentText())
	assert.Equal(t, "4500000.50", loan.AmountRequested.StringFixed(2))

	loan, err = repo.FindByID(context.Background(), 8)
	require.NoError(t, err)
	assert.Nil(t, loan.Comment)

	loan, err = repo.FindByID(context.Background(), 9)
	require.NoError(t, err)
	assert.Nil(t, loan)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLoanRepository_Save_Insert(t *testing.T) {
	db, mock := newMock(t)
	loan := &models.Loan{
		VehicleID:       1,
		UserID:          2,
		AmountRequested: decimal.RequireFromString("4500000.50"),
		Status:          models.LoanStatusPending,
		ApplicationDate: time.Date(2024, time.January, 2, 0, 0, 0, 0, time.UTC),
		CreatedAt:       createdAt,
		UpdatedAt:       createdAt,
	}

	mock.ExpectQuery("INSERT INTO loan_applications").
		WithArgs(int64(1), int64(2), loan.AmountRequested, "pending", loan.ApplicationDate, sql.NullString{}, createdAt, createdAt).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(11))
	mock.ExpectExec("INSERT INTO audit_log").
		WithArgs("loan_created", "loan_application", "11", sqlmock.AnyArg(), createdAt).
		WillReturnResult(sqlmock.NewResult(1, 1))

	saved, err := NewLoanRepository(db, logger.NewTestLogger(t)).Save(context.Background(), loan)
	require.NoError(t, err)
	assert.Equal(t, int64(11), saved.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLoanRepository_Save_Update(t *testing.T) {
	comment := "verified"
	loan := &models.Loan{ID: 11, VehicleID: 1, UserID: 2, Status: models.LoanStatusApproved, Comment: &comment, UpdatedAt: createdAt}

	t.Run("updated", func(t *testing.T) {
		db, mock := newMock(t)
		mock.ExpectExec("UPDATE loan_applications").
			WithArgs(int64(11), "approved", sql.NullString{String: "verified", Valid: true}, createdAt).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec("INSERT INTO audit_log").
			WithArgs("loan_status_updated", "loan_application", "11", sqlmock.AnyArg(), createdAt).
			WillReturnError(errors.New("audit table locked"))

		_, err := NewLoanRepository(db, logger.NewTestLogger(t)).Save(context.Background(), loan)
		require.NoError(t, err, "audit failures must not fail the save")
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("row vanished", func(t *testing.T) {
		db, mock := newMock(t)
		mock.ExpectExec("UPDATE loan_applications").WillReturnResult(sqlmock.NewResult(0, 0))

		_, err := NewLoanRepository(db, logger.NewTestLogger(t)).Save(context.Background(), loan)
		assert.ErrorIs(t, err, apperrors.ErrLoanNotFound)
	})
}

func TestLoanRepository_Save_RejectsUnknownStatus(t *testing.T) {
	db, mock := newMock(t)

	_, err := NewLoanRepository(db, logger.NewNoOpLogger()).Save(context.Background(), &models.Loan{Status: "archived"})

	assert.ErrorIs(t, err, apperrors.ErrInvalidLoanStatus)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// ==========================
// Valuations
// ==========================

func TestValuationRepository_Save(t *testing.T) {
	db, mock := newMock(t)
	v := &models.Valuation{
		VehicleID: 3, VIN: "2T1BURHE6FC123456", Manufacturer: "Toyota", Model: "Corolla", Year: 2015,
		Class: "Sedan/Saloon", ValuationAmount: decimal.RequireFromString("8640000.00"),
		ValuationDate: createdAt, CreatedAt: createdAt, UpdatedAt: createdAt,
	}
	mock.ExpectQuery("INSERT INTO valuations").
		WithArgs(int64(3), v.VIN, "Toyota", "Corolla", 2015, "Sedan/Saloon", v.ValuationAmount, createdAt, createdAt, createdAt).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(21))

	saved, err := NewValuationRepository(db).Save(context.Background(), v)
	require.NoError(t, err)
	assert.Equal(t, int64(21), saved.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestValuationRepository_ListByVehicle(t *testing.T) {
	db, mock := newMock(t)
	cols := []string{"id", "vehicle_id", "vin", "manufacturer", "model", "year", "class", "valuation_amount", "valuation_date", "created_at", "updated_at"}
	mock.ExpectQuery("SELECT (.+) FROM valuations").
		WithArgs(int64(3)).
		WillReturnRows(sqlmock.NewRows(cols).
			AddRow(22, 3, "VIN", "Toyota", "Corolla", 2015, "suv", "9504000.00", createdAt, createdAt, createdAt).
			AddRow(21, 3, "VIN", "Toyota", "Corolla", 2015, "sedan", "8640000.00", createdAt, createdAt, createdAt))

	history, err := NewValuationRepository(db).ListByVehicle(context.Background(), 3)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, int64(22), history[0].ID)
	assert.Equal(t, "8640000.00", history[1].ValuationAmount.StringFixed(2))
}
