package postgres

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vitaltrack/health-tracker/internal/core/domain"
	"github.com/vitaltrack/health-tracker/internal/core/ports"
)

const userColumns = `id, email, name, password_hash, role, height_cm, birthday, phone, tax_id, address, created_at, updated_at`

type UserRepository struct {
	pool *pgxpool.Pool
}

func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

func (r *UserRepository) Create(ctx context.Context, user *domain.User) (*domain.User, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	row := r.pool.QueryRow(ctx, `
		INSERT INTO users (id, email, name, password_hash, role, height_cm, birthday, phone, tax_id, address, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING `+userColumns,
		user.ID, user.Email, user.Name, user.PasswordHash, string(user.Role),
		user.HeightCm, dateArg(user.Birthday), user.Phone, user.TaxID, user.Address,
		user.CreatedAt, user.UpdatedAt,
	)
	created, err := scanUser(row)
	if err != nil {
		if isUniqueViolation(err, constraintUserEmail) {
			return nil, domain.ErrEmailExists
		}
		return nil, domain.NewStorageError("insert user", err)
	}
	return created, nil
}

func (r *UserRepository) FindByID(ctx context.Context, id string) (*domain.User, error) {
	return r.findOne(ctx, "find user by id", `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.findOne(ctx, "find user by email", `SELECT `+userColumns+` FROM users WHERE email = $1`, email)
}

func (r *UserRepository) findOne(ctx context.Context, op, query string, arg any) (*domain.User, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	user, err := scanUser(r.pool.QueryRow(ctx, query, arg))
	if err != nil {
		if isNoRows(err) {
			return nil, domain.ErrUserNotFound
		}
		return nil, domain.NewStorageError(op, err)
	}
	return user, nil
}

func (r *UserRepository) Update(ctx context.Context, user *domain.User) (*domain.User, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	row := r.pool.QueryRow(ctx, `
		UPDATE users
		SET email = $2, name = $3, height_cm = $4, birthday = $5, phone = $6, tax_id = $7, address = $8, updated_at = $9
		WHERE id = $1
		RETURNING `+userColumns,
		user.ID, user.Email, user.Name, user.HeightCm, dateArg(user.Birthday),
		user.Phone, user.TaxID, user.Address, user.UpdatedAt,
	)
	updated, err := scanUser(row)
	if err != nil {
		switch {
		case isNoRows(err):
			return nil, domain.ErrUserNotFound
		case isUniqueViolation(err, constraintUserEmail):
			return nil, domain.ErrEmailExists
		}
		return nil, domain.NewStorageError("update user", err)
	}
	return updated, nil
}

func (r *UserRepository) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	return r.exec(ctx, "update password",
		`UPDATE users SET password_hash = $2, updated_at = now() WHERE id = $1`, id, passwordHash)
}

func (r *UserRepository) Delete(ctx context.Context, id string) error {
	return r.exec(ctx, "delete user", `DELETE FROM users WHERE id = $1`, id)
}

func (r *UserRepository) SetRole(ctx context.Context, id string, role domain.Role) error {
	return r.exec(ctx, "set role",
		`UPDATE users SET role = $2, updated_at = now() WHERE id = $1`, id, string(role))
}

// exec runs a single-row write and reports ErrUserNotFound when no row matched.
func (r *UserRepository) exec(ctx context.Context, op, query string, args ...any) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	tag, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return domain.NewStorageError(op, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

func (r *UserRepository) RoleOf(ctx context.Context, id string) (domain.Role, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var role string
	if err := r.pool.QueryRow(ctx, `SELECT role FROM users WHERE id = $1`, id).Scan(&role); err != nil {
		if isNoRows(err) {
			return "", domain.ErrUserNotFound
		}
		return "", domain.NewStorageError("read role", err)
	}
	return domain.ParseRole(role), nil
}

func (r *UserRepository) List(ctx context.Context, f ports.ListUsersFilter) ([]*domain.User, int64, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	where := ""
	args := []any{}
	if s := strings.TrimSpace(f.Search); s != "" {
		where = ` WHERE email ILIKE $1 OR name ILIKE $1`
		args = append(args, "%"+escapeLike(s)+"%")
	}

	var total int64
	if err := r.pool.QueryRow(ctx, `SELECT count(*) FROM users`+where, args...).Scan(&total); err != nil {
		return nil, 0, domain.NewStorageError("count users", err)
	}

	n := len(args)
	query := `SELECT ` + userColumns + ` FROM users` + where +
		` ORDER BY created_at DESC, id LIMIT $` + strconv.Itoa(n+1) + ` OFFSET $` + strconv.Itoa(n+2)
	args = append(args, f.Limit, (f.Page-1)*f.Limit)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, domain.NewStorageError("list users", err)
	}
	users, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*domain.User, error) {
		return scanUser(row)
	})
	if err != nil {
		return nil, 0, domain.NewStorageError("list users", err)
	}
	return users, total, nil
}

func scanUser(row pgx.Row) (*domain.User, error) {
	var (
		u        domain.User
		role     string
		birthday *time.Time
	)
	err := row.Scan(&u.ID, &u.Email, &u.Name, &u.PasswordHash, &role, &u.HeightCm, &birthday,
		&u.Phone, &u.TaxID, &u.Address, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	u.Role = domain.ParseRole(role)
	if birthday != nil {
		d := domain.NewDate(*birthday)
		u.Birthday = &d
	}
	return &u, nil
}

func dateArg(d *domain.Date) *time.Time {
	if d == nil || d.IsZero() {
		return nil
	}
	t := d.Time()
	return &t
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
