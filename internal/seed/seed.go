// Package seed loads the demo vehicles and accounts. Running it twice is
// harmless: existing VINs and usernames are skipped.
package seed

import (
	"context"
	"fmt"
	"time"

	"vehicle-financing/internal/common/auth"
	"vehicle-financing/internal/common/logger"
	"vehicle-financing/internal/models"

	"github.com/shopspring/decimal"
)

const DefaultPassword = "password"

type VehicleStore interface {
	FindByVIN(ctx context.Context, vin string) (*models.Vehicle, error)
	Save(ctx context.Context, v *models.Vehicle) (*models.Vehicle, error)
}

type UserStore interface {
	FindByUsername(ctx context.Context, username string) (*models.User, error)
	Create(ctx context.Context, u *models.User) (*models.User, error)
}

var Vehicles = []models.Vehicle{
	{VIN: "JH4KA7561PC008269", Make: "Acura", Model: "Legend", Year: 1993, Mileage: 120000,
		BaseAmount: decimal.NewFromInt(5000000), SellingPrice: decimal.NewFromInt(7000000)},
	{VIN: "1HGCM82633A123456", Make: "Honda", Model: "Accord", Year: 2003, Mileage: 90000,
		BaseAmount: decimal.NewFromInt(3000000), SellingPrice: decimal.NewFromInt(4500000)},
	{VIN: "2T1BURHE6FC123456", Make: "Toyota", Model: "Corolla", Year: 2015, Mileage: 30000,
		BaseAmount: decimal.NewFromInt(8000000), SellingPrice: decimal.NewFromInt(9500000)},
}

var Users = []models.User{
	{Username: "admin", FirstName: "user", LastName: "admin", Role: models.RoleAdmin},
	{Username: "dealer", FirstName: "user", LastName: "dealer", Role: models.RoleDealer},
	{Username: "customer", FirstName: "user", LastName: "customer", Role: models.RoleCustomer},
}

// Result counts what a run inserted.
type Result struct {
	Vehicles int
	Users    int
}

type Seeder struct {
	vehicles   VehicleStore
	users      UserStore
	bcryptCost int
	log        logger.Logger
}

func NewSeeder(vehicles VehicleStore, users UserStore, bcryptCost int, log logger.Logger) *Seeder {
	return &Seeder{vehicles: vehicles, users: users, bcryptCost: bcryptCost, log: log}
}

func (s *Seeder) Run(ctx context.Context) (Result, error) {
	var res Result
	now := time.Now().UTC()

	for _, v := range Vehicles {
		v.VIN = models.NormalizeVIN(v.VIN)
		existing, err := s.vehicles.FindByVIN(ctx, v.VIN)
		if err != nil {
			return res, fmt.Errorf("seed vehicle %s: %w", v.VIN, err)
		}
		if existing != nil {
			continue
		}
		v.CreatedAt = now
		if _, err := s.vehicles.Save(ctx, &v); err != nil {
			return res, fmt.Errorf("seed vehicle %s: %w", v.VIN, err)
		}
		res.Vehicles++
	}

	for _, u := range Users {
		existing, err := s.users.FindByUsername(ctx, u.Username)
		if err != nil {
			return res, fmt.Errorf("seed user %s: %w", u.Username, err)
		}
		if existing != nil {
			continue
		}
		hash, err := auth.HashPassword(DefaultPassword, s.bcryptCost)
		if err != nil {
			return res, fmt.Errorf("seed user %s: %w", u.Username, err)
		}
		u.PasswordHash = hash
		u.CreatedAt = now
		if _, err := s.users.Create(ctx, &u); err != nil {
			return res, fmt.Errorf("seed user %s: %w", u.Username, err)
		}
		res.Users++
	}

	s.log.Info("Seed data loaded", map[string]interface{}{
		"vehiclesInserted": res.Vehicles,
		"usersInserted":    res.Users,
	})
	return res, nil
}
