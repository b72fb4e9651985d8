package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/Dan9191/loan-assessment/internal/models"
)

// Store is the persistence surface used by the services. Assessments are
// append-only: there is no update or delete.
type Store interface {
	CreateUser(ctx context.Context, user *models.User) error
	FindUserByEmail(ctx context.Context, email string) (*models.User, error)
	FindUserByID(ctx context.Context, id int64) (*models.User, error)

	CreateAssessment(ctx context.Context, a *models.Assessment) error
	GetAssessment(ctx context.Context, id int64) (*models.Assessment, error)
	ListAssessmentsByUser(ctx context.Context, userID int64) ([]models.Assessment, error)
	SearchAssessments(ctx context.Context, filter string) ([]models.SearchResult, error)
	ScanAssessments(ctx context.Context, filter string, fn func(models.SearchResult) error) error

	Ping(ctx context.Context) error
}

const uniqueViolation = "23505"

// Repository provides database operations
type Repository struct {
	db *sql.DB
}

// NewRepository initializes a new repository
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Ping checks the database connection
func (r *Repository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// CreateUser creates a new user in the database
func (r *Repository) CreateUser(ctx context.Context, user *models.User) error {
	if user.Role == "" {
		user.Role = models.RoleUser
	}
	query := `
		INSERT INTO loan.users (username, email, password_hash, role, created_at)
		VALUES ($1, $2, $3, $4, CURRENT_TIMESTAMP)
		RETURNING id, created_at`
	err := r.db.QueryRowContext(ctx, query, user.Username, user.Email, user.PasswordHash, user.Role).
		Scan(&user.ID, &user.CreatedAt)
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return fmt.Errorf("failed to create user: %w", models.ErrUserExists)
	}
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// FindUserByEmail retrieves a user by email
func (r *Repository) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `
		SELECT id, username, email, password_hash, role, created_at
		FROM loan.users
		WHERE email = $1`
	return r.findUser(ctx, query, email)
}

// FindUserByID retrieves a user by id
func (r *Repository) FindUserByID(ctx context.Context, id int64) (*models.User, error) {
	query := `
		SELECT id, username, email, password_hash, role, created_at
		FROM loan.users
		WHERE id = $1`
	return r.findUser(ctx, query, id)
}

func (r *Repository) findUser(ctx context.Context, query string, arg any) (*models.User, error) {
	user := &models.User{}
	err := r.db.QueryRowContext(ctx, query, arg).
		Scan(&user.ID, &user.Username, &user.Email, &user.PasswordHash, &user.Role, &user.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	return user, nil
}

const assessmentColumns = `
	a.id, a.user_id, a.applicant_name, a.no_of_dependents, a.education, a.self_employed,
	a.income_annum, a.loan_amount, a.loan_term, a.cibil_score,
	a.residential_assets_value, a.commercial_assets_value, a.luxury_assets_value, a.bank_asset_value,
	a.loan_status, a.risk_level, a.probability, a.created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAssessment(row rowScanner, a *models.Assessment, extra ...any) error {
	dest := []any{
		&a.ID, &a.UserID, &a.ApplicantName, &a.Dependents, &a.Education, &a.SelfEmployed,
		&a.AnnualIncome, &a.LoanAmount, &a.LoanTerm, &a.CreditScore,
		&a.ResidentialAssetsValue, &a.CommercialAssetsValue, &a.LuxuryAssetsValue, &a.BankAssetsValue,
		&a.LoanStatus, &a.RiskLevel, &a.Probability, &a.CreatedAt,
	}
	return row.Scan(append(dest, extra...)...)
}

// CreateAssessment inserts an assessment and fills in its id and creation time
func (r *Repository) CreateAssessment(ctx context.Context, a *models.Assessment) error {
	query := `
		INSERT INTO loan.assessments (
			user_id, applicant_name, no_of_dependents, education, self_employed,
			income_annum, loan_amount, loan_term, cibil_score,
			residential_assets_value, commercial_assets_value, luxury_assets_value, bank_asset_value,
			loan_status, risk_level, probability, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, CURRENT_TIMESTAMP)
		RETURNING id, created_at`
	err := r.db.QueryRowContext(ctx, query,
		a.UserID, a.ApplicantName, a.Dependents, a.Education, a.SelfEmployed,
		a.AnnualIncome, a.LoanAmount, a.LoanTerm, a.CreditScore,
		a.ResidentialAssetsValue, a.CommercialAssetsValue, a.LuxuryAssetsValue, a.BankAssetsValue,
		string(a.LoanStatus), string(a.RiskLevel), a.Probability,
	).Scan(&a.ID, &a.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create assessment: %w", err)
	}
	return nil
}

// GetAssessment retrieves an assessment by id
func (r *Repository) GetAssessment(ctx context.Context, id int64) (*models.Assessment, error) {
	query := `SELECT ` + assessmentColumns + `
		FROM loan.assessments a
		WHERE a.id = $1`
	a := &models.Assessment{}
	err := scanAssessment(r.db.QueryRowContext(ctx, query, id), a)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get assessment: %w", err)
	}
	return a, nil
}

// ListAssessmentsByUser returns a user's assessments in insertion order
func (r *Repository) ListAssessmentsByUser(ctx context.Context, userID int64) ([]models.Assessment, error) {
	query := `SELECT ` + assessmentColumns + `
		FROM loan.assessments a
		WHERE a.user_id = $1
		ORDER BY a.id`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list assessments: %w", err)
	}
	defer rows.Close()

	list := []models.Assessment{}
	for rows.Next() {
		var a models.Assessment
		if err := scanAssessment(rows, &a); err != nil {
			return nil, fmt.Errorf("failed to scan assessment: %w", err)
		}
		list = append(list, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list assessments: %w", err)
	}
	return list, nil
}

// ScanAssessments streams assessments joined with their owner's username.
// A non-empty filter keeps rows whose username, loan status or risk level
// contains it (case-sensitive). fn is called while the cursor is open; an
// error from fn stops the scan and is returned as is.
func (r *Repository) ScanAssessments(ctx context.Context, filter string, fn func(models.SearchResult) error) error {
	query := `SELECT ` + assessmentColumns + `, COALESCE(u.username, '')
		FROM loan.assessments a
		LEFT JOIN loan.users u ON u.id = a.user_id
		WHERE $1 = ''
			OR strpos(u.username, $1) > 0
			OR strpos(a.loan_status, $1) > 0
			OR strpos(a.risk_level, $1) > 0
		ORDER BY a.id`
	rows, err := r.db.QueryContext(ctx, query, filter)
	if err != nil {
		return fmt.Errorf("failed to search assessments: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var res models.SearchResult
		if err := scanAssessment(rows, &res.Assessment, &res.Username); err != nil {
			return fmt.Errorf("failed to scan assessment: %w", err)
		}
		if err := fn(res); err != nil {
			return err
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to search assessments: %w", err)
	}
	return nil
}

// SearchAssessments collects the result of ScanAssessments
func (r *Repository) SearchAssessments(ctx context.Context, filter string) ([]models.SearchResult, error) {
	return collect(ctx, r, filter)
}

func collect(ctx context.Context, s Store, filter string) ([]models.SearchResult, error) {
	results := []models.SearchResult{}
	err := s.ScanAssessments(ctx, filter, func(res models.SearchResult) error {
		results = append(results, res)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return results, nil
}
