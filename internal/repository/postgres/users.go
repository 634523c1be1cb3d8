package postgres

import (
	"context"
	"database/sql"
	"errors"

	apperrors "vehicle-financing/internal/common/errors"
	"vehicle-financing/internal/models"
)

const userColumns = `id, username, password_hash, first_name, last_name, role, email, phone, created_at`

type UserRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) FindByID(ctx context.Context, id int64) (*models.User, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	return scanUser(row, "find_user_by_id")
}

func (r *UserRepository) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE username = $1`, username)
	return scanUser(row, "find_user_by_username")
}

// Create inserts a new user. The role must be valid and the username unused.
func (r *UserRepository) Create(ctx context.Context, u *models.User) (*models.User, error) {
	if !u.Role.Valid() {
		return nil, apperrors.NewValidationError("invalid role", string(u.Role))
	}

	err := r.db.QueryRowContext(ctx, `
		INSERT INTO users (username, password_hash, first_name, last_name, role, email, phone)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at`,
		u.Username, u.PasswordHash, u.FirstName, u.LastName, string(u.Role),
		nullString(u.Email), nullString(u.Phone),
	).Scan(&u.ID, &u.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, apperrors.NewUserAlreadyExistsError(u.Username)
		}
		return nil, apperrors.NewDatabaseInsertFailedError(err)
	}
	return u, nil
}

func scanUser(row *sql.Row, queryType string) (*models.User, error) {
	var (
		u     models.User
		role  string
		email sql.NullString
		phone sql.NullString
	)
	err := row.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.FirstName, &u.LastName,
		&role, &email, &phone, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, apperrors.NewQueryExecutionFailedError(queryType, err)
	}
	u.Role = models.Role(role)
	u.Email = email.String
	u.Phone = phone.String
	return &u, nil
}
