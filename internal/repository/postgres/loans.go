package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strconv"

	apperrors "vehicle-financing/internal/common/errors"
	"vehicle-financing/internal/common/logger"
	"vehicle-financing/internal/models"
)

const loanColumns = `id, vehicle_id, user_id, amount_requested, status, application_date, comment, created_at, updated_at`

// LoanRepository persists loan applications and writes an audit_log entry
// for every change. Audit failures are logged, not returned.
type LoanRepository struct {
	db  *sql.DB
	log logger.Logger
}

func NewLoanRepository(db *sql.DB, log logger.Logger) *LoanRepository {
	return &LoanRepository{db: db, log: log}
}

func (r *LoanRepository) FindByID(ctx context.Context, id int64) (*models.Loan, error) {
	var (
		l       models.Loan
		status  string
		comment sql.NullString
	)
	err := r.db.QueryRowContext(ctx, `SELECT `+loanColumns+` FROM loan_applications WHERE id = $1`, id).
		Scan(&l.ID, &l.VehicleID, &l.UserID, &l.AmountRequested, &status,
			&l.ApplicationDate, &comment, &l.CreatedAt, &l.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, apperrors.NewQueryExecutionFailedError("find_loan_by_id", err)
	}
	l.Status = models.LoanStatus(status)
	if comment.Valid {
		l.Comment = &comment.String
	}
	return &l, nil
}

// Save inserts a loan without an ID and overwrites status and comment of
// one with an ID. Statuses outside the enumeration are rejected before any
// statement runs.
func (r *LoanRepository) Save(ctx context.Context, l *models.Loan) (*models.Loan, error) {
	if !l.Status.Valid() {
		return nil, apperrors.NewInvalidLoanStatusError(string(l.Status))
	}

	var comment sql.NullString
	if l.Comment != nil {
		comment = sql.NullString{String: *l.Comment, Valid: true}
	}

	if l.ID == 0 {
		err := r.db.QueryRowContext(ctx, `
			INSERT INTO loan_applications (
				vehicle_id, user_id, amount_requested, status,
				application_date, comment, created_at, updated_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			RETURNING id`,
			l.VehicleID, l.UserID, l.AmountRequested, string(l.Status),
			l.ApplicationDate, comment, l.CreatedAt, l.UpdatedAt,
		).Scan(&l.ID)
		if err != nil {
			return nil, apperrors.NewDatabaseInsertFailedError(err)
		}
		r.audit(ctx, "loan_created", l)
		return l, nil
	}

	res, err := r.db.ExecContext(ctx, `
		UPDATE loan_applications
		SET status = $2, comment = $3, updated_at = $4
		WHERE id = $1`,
		l.ID, string(l.Status), comment, l.UpdatedAt,
	)
	if err != nil {
		return nil, apperrors.NewQueryExecutionFailedError("update_loan_status", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return nil, apperrors.NewLoanNotFoundError("loanId: " + strconv.FormatInt(l.ID, 10))
	}
	r.audit(ctx, "loan_status_updated", l)
	return l, nil
}

func (r *LoanRepository) audit(ctx context.Context, event string, l *models.Loan) {
	details, err := json.Marshal(map[string]interface{}{
		"vehicleId": l.VehicleID,
		"userId":    l.UserID,
		"status":    l.Status,
		"comment":   l.CommentText(),
	})
	if err != nil {
		details = []byte("{}")
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO audit_log (event_type, resource_type, resource_id, details, created_at)
		VALUES ($1, $2, $3, $4, $5)`,
		event, "loan_application", strconv.FormatInt(l.ID, 10), details, l.UpdatedAt,
	)
	if err != nil {
		r.log.Warn("audit log insert failed", map[string]interface{}{
			"error":  err.Error(),
			"loanId": l.ID,
			"event":  event,
		})
	}
}
