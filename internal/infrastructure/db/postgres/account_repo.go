package postgres

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/quaykit/identity-service/internal/domain"
)

// AccountRepo persists accounts in the accounts table. Emails are stored
// normalized and a unique index on email enforces one account per address.
type AccountRepo struct {
	db *sql.DB
}

func NewAccountRepo(db *sql.DB) *AccountRepo {
	return &AccountRepo{db: db}
}

// ---------- helpers ----------

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

const accountColumns = `id, email, name, password_hash, password_changed_at, created_at`

func scanAccount(row *sql.Row) (accountRow, error) {
	var ar accountRow
	err := row.Scan(
		&ar.ID,
		&ar.Email,
		&ar.Name,
		&ar.PasswordHash,
		&ar.PasswordChangedAt,
		&ar.CreatedAt,
	)
	return ar, err
}

func toDomainAccount(ar accountRow) domain.Account {
	return domain.Account{
		ID:           ar.ID,
		Email:        ar.Email,
		Name:         ar.Name,
		PasswordHash: ar.PasswordHash,
		CreatedAt:    ar.CreatedAt,
	}
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// ---------- auth.AccountRepo ----------

func (r *AccountRepo) GetByEmail(ctx context.Context, email string) (domain.Account, error) {
	email = normalizeEmail(email)
	if email == "" {
		return domain.Account{}, domain.ErrMissingField("email")
	}

	const q = `
SELECT ` + accountColumns + `
FROM accounts
WHERE email = $1
LIMIT 1;
`
	ar, err := scanAccount(r.db.QueryRowContext(ctx, q, email))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Account{}, domain.ErrAccountNotFound()
		}
		return domain.Account{}, domain.ErrDBUnavailable(err)
	}
	return toDomainAccount(ar), nil
}

func (r *AccountRepo) GetByID(ctx context.Context, id string) (domain.Account, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return domain.Account{}, domain.ErrMissingField("id")
	}

	const q = `
SELECT ` + accountColumns + `
FROM accounts
WHERE id = $1
LIMIT 1;
`
	ar, err := scanAccount(r.db.QueryRowContext(ctx, q, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Account{}, domain.ErrAccountNotFound()
		}
		return domain.Account{}, domain.ErrDBUnavailable(err)
	}
	return toDomainAccount(ar), nil
}

func (r *AccountRepo) Create(ctx context.Context, a domain.Account) (domain.Account, error) {
	a.Email = normalizeEmail(a.Email)
	if a.ID == "" {
		return domain.Account{}, domain.ErrMissingField("id")
	}
	if a.Email == "" {
		return domain.Account{}, domain.ErrMissingField("email")
	}
	if a.PasswordHash == "" {
		return domain.Account{}, domain.ErrMissingField("password_hash")
	}

	const q = `
INSERT INTO accounts (id, email, name, password_hash)
VALUES ($1, $2, $3, $4)
RETURNING ` + accountColumns + `;
`
	var ar accountRow
	err := r.db.QueryRowContext(ctx, q, a.ID, a.Email, a.Name, a.PasswordHash).Scan(
		&ar.ID,
		&ar.Email,
		&ar.Name,
		&ar.PasswordHash,
		&ar.PasswordChangedAt,
		&ar.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.Account{}, domain.ErrEmailAlreadyExists()
		}
		return domain.Account{}, domain.ErrDBUnavailable(err)
	}
	return toDomainAccount(ar), nil
}

func (r *AccountRepo) UpdatePasswordHash(ctx context.Context, accountID string, newHash string) error {
	accountID = strings.TrimSpace(accountID)
	if accountID == "" {
		return domain.ErrMissingField("account_id")
	}
	if newHash == "" {
		return domain.ErrMissingField("password_hash")
	}

	const q = `
UPDATE accounts
SET password_hash = $2,
    password_changed_at = NOW()
WHERE id = $1;
`
	res, err := r.db.ExecContext(ctx, q, accountID, newHash)
	if err != nil {
		return domain.ErrDBUnavailable(err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return domain.ErrAccountNotFound()
	}
	return nil
}
