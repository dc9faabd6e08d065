package accounts

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/tubekeeper/internal/common"
	"github.com/dmitrijs2005/tubekeeper/internal/dbx"
	"github.com/dmitrijs2005/tubekeeper/internal/server/models"
)

const accountColumns = `id, username, email, full_name, password_hash,
		avatar_id, avatar_url, cover_image_id, cover_image_url,
		refresh_token, created_at, updated_at`

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row rowScanner) (*models.Account, error) {
	a := &models.Account{}
	var refresh sql.NullString

	err := row.Scan(&a.ID, &a.Username, &a.Email, &a.FullName, &a.PasswordHash,
		&a.Avatar.ObjectID, &a.Avatar.URL, &a.CoverImage.ObjectID, &a.CoverImage.URL,
		&refresh, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	if refresh.Valid {
		a.RefreshToken = &refresh.String
	}
	return a, nil
}

// Create inserts account and fills in its timestamps. A duplicate username
// or email yields common.ErrorConflict.
func (r *PostgresRepository) Create(ctx context.Context, account *models.Account) (*models.Account, error) {

	query :=
		`INSERT INTO accounts (id, username, email, full_name, password_hash,
		     avatar_id, avatar_url, cover_image_id, cover_image_url)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 RETURNING created_at, updated_at
		 `

	err := r.db.QueryRowContext(ctx, query,
		account.ID, account.Username, account.Email, account.FullName, account.PasswordHash,
		account.Avatar.ObjectID, account.Avatar.URL,
		account.CoverImage.ObjectID, account.CoverImage.URL,
	).Scan(&account.CreatedAt, &account.UpdatedAt)

	if err != nil {
		if dbx.IsUniqueViolation(err) {
			return nil, fmt.Errorf("%w: username or email already taken", common.ErrorConflict)
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return account, nil
}

// Exists reports whether either username or email is already taken.
func (r *PostgresRepository) Exists(ctx context.Context, username, email string) (bool, error) {
	query :=
		`SELECT EXISTS (SELECT 1 FROM accounts WHERE username = $1 OR email = $2)`

	var exists bool
	if err := r.db.QueryRowContext(ctx, query, username, email).Scan(&exists); err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return exists, nil
}

// FindByUsernameOrEmail matches identifier against both columns.
func (r *PostgresRepository) FindByUsernameOrEmail(ctx context.Context, identifier string) (*models.Account, error) {
	query :=
		`SELECT ` + accountColumns + ` FROM accounts
		 WHERE username = $1 OR email = $1
		 LIMIT 1
		 `
	return scanAccount(r.db.QueryRowContext(ctx, query, identifier))
}

func (r *PostgresRepository) FindByID(ctx context.Context, id string) (*models.Account, error) {
	query :=
		`SELECT ` + accountColumns + ` FROM accounts
		 WHERE id = $1
		 `
	return scanAccount(r.db.QueryRowContext(ctx, query, id))
}

// FindByIDForUpdate locks the row until the surrounding transaction ends.
// It must be called with a *sql.Tx.
func (r *PostgresRepository) FindByIDForUpdate(ctx context.Context, id string) (*models.Account, error) {
	query :=
		`SELECT ` + accountColumns + ` FROM accounts
		 WHERE id = $1
		 FOR UPDATE
		 `
	return scanAccount(r.db.QueryRowContext(ctx, query, id))
}

// exec runs a single-row UPDATE and returns common.ErrorNotFound when no row
// was affected.
func (r *PostgresRepository) exec(ctx context.Context, query string, args ...any) error {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}

func (r *PostgresRepository) SetRefreshToken(ctx context.Context, id string, token string) error {
	query :=
		`UPDATE accounts SET refresh_token = $2, updated_at = now()
		 WHERE id = $1
		 `
	return r.exec(ctx, query, id, token)
}

// RotateRefreshToken replaces current with next only while current is still
// stored. It reports false when another rotation or a logout won the race.
func (r *PostgresRepository) RotateRefreshToken(ctx context.Context, id, current, next string) (bool, error) {
	query :=
		`UPDATE accounts SET refresh_token = $3, updated_at = now()
		 WHERE id = $1 AND refresh_token = $2
		 `
	err := r.exec(ctx, query, id, current, next)
	if errors.Is(err, common.ErrorNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (r *PostgresRepository) ClearRefreshToken(ctx context.Context, id string) error {
	query :=
		`UPDATE accounts SET refresh_token = NULL, updated_at = now()
		 WHERE id = $1
		 `
	return r.exec(ctx, query, id)
}

func (r *PostgresRepository) UpdatePasswordHash(ctx context.Context, id, hash string) error {
	query :=
		`UPDATE accounts SET password_hash = $2, updated_at = now()
		 WHERE id = $1
		 `
	return r.exec(ctx, query, id, hash)
}

func (r *PostgresRepository) UpdateFullName(ctx context.Context, id, fullName string) (*models.Account, error) {
	query :=
		`UPDATE accounts SET full_name = $2, updated_at = now()
		 WHERE id = $1
		 RETURNING ` + accountColumns
	return scanAccount(r.db.QueryRowContext(ctx, query, id, fullName))
}

// UpdateMedia overwrites the id and url of slot and returns the updated row.
func (r *PostgresRepository) UpdateMedia(ctx context.Context, id string, slot models.MediaSlot, media models.Media) (*models.Account, error) {
	var query string
	switch slot {
	case models.SlotAvatar:
		query = `UPDATE accounts SET avatar_id = $2, avatar_url = $3, updated_at = now()
		 WHERE id = $1
		 RETURNING ` + accountColumns
	case models.SlotCoverImage:
		query = `UPDATE accounts SET cover_image_id = $2, cover_image_url = $3, updated_at = now()
		 WHERE id = $1
		 RETURNING ` + accountColumns
	default:
		return nil, fmt.Errorf("unknown media slot %q", slot)
	}
	return scanAccount(r.db.QueryRowContext(ctx, query, id, media.ObjectID, media.URL))
}

// Delete removes the account and returns the row as it was, so callers can
// release its media.
func (r *PostgresRepository) Delete(ctx context.Context, id string) (*models.Account, error) {
	query :=
		`DELETE FROM accounts
		 WHERE id = $1
		 RETURNING ` + accountColumns
	return scanAccount(r.db.QueryRowContext(ctx, query, id))
}
