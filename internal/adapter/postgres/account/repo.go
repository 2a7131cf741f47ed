// Package account implements read access to platform accounts and their
// roles. Accounts are paged by primary key so that batch jobs never hold more
// than one page in memory.
package account

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	postgres "github.com/Chirantan-Dey/quiz-master/internal/adapter/postgres"
	"github.com/Chirantan-Dey/quiz-master/internal/domain"
)

// Repo provides account persistence backed by PostgreSQL.
type Repo struct {
	pool *pgxpool.Pool
}

// New creates a new account repository.
func New(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

func selectAccounts() sq.SelectBuilder {
	return postgres.Builder.
		Select(
			"a.id", "a.email", "a.active", "a.full_name", "a.qualification", "a.birth_date",
			"COALESCE(array_agg(r.name ORDER BY r.name) FILTER (WHERE r.name IS NOT NULL), '{}') AS roles",
		).
		From("accounts a").
		LeftJoin("account_roles ar ON ar.account_id = a.id").
		LeftJoin("roles r ON r.id = ar.role_id").
		GroupBy("a.id")
}

// ---------------------------------------------------------------------------
// Read operations
// ---------------------------------------------------------------------------

// ListPage returns up to f.Limit accounts with id > f.AfterID ordered by id.
// An empty slice means the scan is complete.
func (r *Repo) ListPage(ctx context.Context, f domain.AccountFilter) ([]domain.Account, error) {
	if f.Limit <= 0 {
		return nil, fmt.Errorf("list accounts: %w", domain.NewValidationError("limit", "must be positive"))
	}

	b := selectAccounts().
		Where(sq.Gt{"a.id": f.AfterID}).
		OrderBy("a.id").
		Limit(uint64(f.Limit))

	if f.AccountID != nil {
		b = b.Where(sq.Eq{"a.id": *f.AccountID})
	}
	if f.ActiveOnly {
		b = b.Where(sq.Eq{"a.active": true})
	}
	if f.Role != nil {
		b = b.Where(`EXISTS (
			SELECT 1 FROM account_roles far JOIN roles fr ON fr.id = far.role_id
			WHERE far.account_id = a.id AND fr.name = ?)`, string(*f.Role))
	}
	if f.InactiveSince != nil {
		b = b.Where(`NOT EXISTS (
			SELECT 1 FROM attempts t WHERE t.account_id = a.id AND t.attempted_at >= ?)`, *f.InactiveSince)
	}

	rows, err := postgres.Query(ctx, r.pool, b)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", postgres.MapError(err))
	}
	defer rows.Close()

	accounts, err := scanAccounts(rows)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", postgres.MapError(err))
	}
	return accounts, nil
}

// GetByID returns one account with its roles.
func (r *Repo) GetByID(ctx context.Context, id int64) (*domain.Account, error) {
	return r.getOne(ctx, sq.Eq{"a.id": id}, fmt.Sprintf("account %d", id))
}

// GetByEmail looks an account up by its normalized email.
func (r *Repo) GetByEmail(ctx context.Context, email string) (*domain.Account, error) {
	email = domain.NormalizeEmail(email)
	return r.getOne(ctx, sq.Eq{"a.email": email}, "account "+email)
}

func (r *Repo) getOne(ctx context.Context, where sq.Sqlizer, label string) (*domain.Account, error) {
	rows, err := postgres.Query(ctx, r.pool, selectAccounts().Where(where))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", label, postgres.MapError(err))
	}
	defer rows.Close()

	accounts, err := scanAccounts(rows)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", label, postgres.MapError(err))
	}
	if len(accounts) == 0 {
		return nil, fmt.Errorf("%s: %w", label, domain.ErrNotFound)
	}
	return &accounts[0], nil
}

// ---------------------------------------------------------------------------
// Write operations
// ---------------------------------------------------------------------------

const grantRoleSQL = `
INSERT INTO account_roles (account_id, role_id)
SELECT $1, r.id FROM roles r WHERE r.name = $2
ON CONFLICT DO NOTHING`

// Create inserts an account and links the given roles.
func (r *Repo) Create(ctx context.Context, a domain.Account) (*domain.Account, error) {
	a.Email = domain.NormalizeEmail(a.Email)

	b := postgres.Builder.
		Insert("accounts").
		Columns("email", "active", "full_name", "qualification", "birth_date").
		Values(a.Email, a.Active, a.FullName, a.Qualification, a.BirthDate).
		Suffix("RETURNING id")

	sql, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("create account: %w", err)
	}
	if err := postgres.QuerierFromCtx(ctx, r.pool).QueryRow(ctx, sql, args...).Scan(&a.ID); err != nil {
		return nil, fmt.Errorf("create account %s: %w", a.Email, postgres.MapError(err))
	}

	for _, role := range a.Roles {
		if err := r.GrantRole(ctx, a.ID, role); err != nil {
			return nil, err
		}
	}
	return &a, nil
}

// GrantRole links a role to an account. Granting an existing role is a no-op.
func (r *Repo) GrantRole(ctx context.Context, accountID int64, role domain.Role) error {
	if !role.IsValid() {
		return fmt.Errorf("grant role: %w", domain.NewValidationError("role", "unknown role"))
	}

	_, err := postgres.QuerierFromCtx(ctx, r.pool).Exec(ctx, grantRoleSQL, accountID, string(role))
	if err != nil {
		return fmt.Errorf("grant %s to account %d: %w", role, accountID, postgres.MapError(err))
	}
	return nil
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

func scanAccounts(rows pgx.Rows) ([]domain.Account, error) {
	accounts := make([]domain.Account, 0)
	for rows.Next() {
		var (
			a     domain.Account
			roles []string
		)
		if err := rows.Scan(&a.ID, &a.Email, &a.Active, &a.FullName, &a.Qualification, &a.BirthDate, &roles); err != nil {
			return nil, err
		}
		a.Roles = make([]domain.Role, len(roles))
		for i, name := range roles {
			a.Roles[i] = domain.Role(name)
		}
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}
