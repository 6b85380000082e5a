package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/dbx"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
)

const userColumns = `id, email, phone, password_hash, external_identity_id, display_name, created_at, updated_at`

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

type scanner interface {
	Scan(dest ...any) error
}

func scanUser(row scanner) (*models.User, error) {
	u := &models.User{}
	err := row.Scan(&u.ID, &u.Email, &u.Phone, &u.PasswordHash, &u.ExternalID, &u.DisplayName, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return u, nil
}

func (r *PostgresRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {

	query :=
		`INSERT INTO users (id, email, phone, password_hash, external_identity_id, display_name)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING created_at, updated_at
		 `

	err := r.db.QueryRowContext(ctx, query,
		user.ID, user.Email, user.Phone, user.PasswordHash, user.ExternalID, user.DisplayName).
		Scan(&user.CreatedAt, &user.UpdatedAt)

	if err != nil {
		if dbx.IsUniqueViolation(err) {
			return nil, common.ErrAlreadyExists
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return user, nil
}

// FindByIdentifier matches the identifier against email or phone. An email
// match wins over a phone match.
func (r *PostgresRepository) FindByIdentifier(ctx context.Context, identifier string) (*models.User, error) {
	query :=
		`SELECT ` + userColumns + ` FROM users
		 WHERE email = $1 OR phone = $1
		 ORDER BY CASE WHEN email = $1 THEN 0 ELSE 1 END
		 LIMIT 1
		 `

	return scanUser(r.db.QueryRowContext(ctx, query, identifier))
}

func (r *PostgresRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	query :=
		`SELECT ` + userColumns + ` FROM users
		 WHERE email = $1
		 `

	return scanUser(r.db.QueryRowContext(ctx, query, email))
}

// UpdateExternalIdentity overwrites the external subject and display name of
// the user owning email. Password hash and phone are left as they are.
func (r *PostgresRepository) UpdateExternalIdentity(ctx context.Context, email, externalID, displayName string) (*models.User, error) {
	query :=
		`UPDATE users SET external_identity_id = $2, display_name = $3, updated_at = now()
		 WHERE email = $1
		 RETURNING ` + userColumns + `
		 `

	return scanUser(r.db.QueryRowContext(ctx, query, email, models.NullString(externalID), models.NullString(displayName)))
}
