package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/TharinduDesh/incidenthub/internal/domain/user"
	"github.com/TharinduDesh/incidenthub/internal/observability"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrEmailTaken = errors.New("email already in use")

	// Covers both "wrong token" and "expired token": callers must not
	// be able to tell the two apart.
	ErrTokenInvalid = errors.New("invalid or expired token")
)

const userColumns = `id, email, password_hash, name, role, phone, address,
	is_verified, last_login_at,
	verification_token, verification_expires_at,
	reset_token, reset_expires_at,
	created_at, updated_at`

type UsersRepo struct {
	pool *pgxpool.Pool
	prom *observability.Prom
}

func NewUsersRepo(pool *pgxpool.Pool, prom *observability.Prom) *UsersRepo {
	return &UsersRepo{pool: pool, prom: prom}
}

func (r *UsersRepo) observe(op string, fn func() error) error {
	if r.prom != nil {
		return r.prom.ObserveDB(op, fn)
	}
	return fn()
}

func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError

	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return true
	}
	return false
}

func (r *UsersRepo) Create(ctx context.Context, u user.User) error {
	return r.createWith(ctx, r.pool, u, "users.create")
}

// CreateTx inserts inside an existing transaction, so signup can
// commit the user row and its verification-email job atomically.
func (r *UsersRepo) CreateTx(ctx context.Context, tx pgx.Tx, u user.User) error {
	return r.createWith(ctx, tx, u, "users.create_tx")
}

type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

func (r *UsersRepo) createWith(ctx context.Context, q execer, u user.User, op string) error {
	var verToken, resetToken *string
	var verExp, resetExp *time.Time

	if u.Verification != nil {
		verToken = &u.Verification.Value
		verExp = &u.Verification.ExpiresAt
	}
	if u.Reset != nil {
		resetToken = &u.Reset.Value
		resetExp = &u.Reset.ExpiresAt
	}

	err := r.observe(op, func() error {
		_, err := q.Exec(ctx, `INSERT INTO users (
			id, email, password_hash, name, role, phone, address,
			is_verified, last_login_at,
			verification_token, verification_expires_at,
			reset_token, reset_expires_at,
			created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)`,
			u.ID, u.Email, u.PasswordHash, u.Name, string(u.Role), u.Phone, u.Address,
			u.IsVerified, u.LastLoginAt,
			verToken, verExp,
			resetToken, resetExp,
			u.CreatedAt, u.UpdatedAt,
		)
		return err
	})

	if err != nil {
		if IsUniqueViolation(err) {
			return ErrEmailTaken
		}
		return err
	}

	return nil
}

func (r *UsersRepo) GetByEmail(ctx context.Context, email string) (user.User, error) {
	return r.getWhere(ctx, "users.get_by_email", "email = $1", email)
}

func (r *UsersRepo) GetByID(ctx context.Context, id string) (user.User, error) {
	return r.getWhere(ctx, "users.get_by_id", "id = $1", id)
}

func (r *UsersRepo) getWhere(ctx context.Context, op, cond string, arg any) (user.User, error) {
	var u user.User
	var err error

	err = r.observe(op, func() error {
		row := r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE `+cond, arg)
		u, err = scanUser(row)
		return err
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return user.User{}, user.ErrNotFound
		}
		return user.User{}, err
	}

	return u, nil
}

// ConsumeVerificationToken flips the matching, unexpired account to
// verified and clears the token fields in a single statement. The
// read-and-clear is atomic: two concurrent submissions of the same
// code can never both succeed.
func (r *UsersRepo) ConsumeVerificationToken(ctx context.Context, code string) (user.User, error) {
	var u user.User
	var err error

	err = r.observe("users.consume_verification", func() error {
		row := r.pool.QueryRow(ctx, `
			UPDATE users
			SET is_verified = TRUE,
			    verification_token = NULL,
			    verification_expires_at = NULL,
			    updated_at = NOW()
			WHERE verification_token = $1
			  AND verification_expires_at > NOW()
			RETURNING `+userColumns,
			code)
		u, err = scanUser(row)
		return err
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return user.User{}, ErrTokenInvalid
		}
		return user.User{}, err
	}

	return u, nil
}

// SetResetToken stores a fresh password-reset token, replacing any
// outstanding one.
func (r *UsersRepo) SetResetToken(ctx context.Context, id, token string, expiresAt time.Time) error {
	var tag pgconn.CommandTag
	var err error

	err = r.observe("users.set_reset_token", func() error {
		tag, err = r.pool.Exec(ctx, `
			UPDATE users
			SET reset_token = $2,
			    reset_expires_at = $3,
			    updated_at = NOW()
			WHERE id = $1`,
			id, token, expiresAt)
		return err
	})

	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return user.ErrNotFound
	}
	return nil
}

// ConsumeResetToken swaps in the new password hash and clears the
// reset fields atomically, same contract as ConsumeVerificationToken.
func (r *UsersRepo) ConsumeResetToken(ctx context.Context, token, newHash string) (user.User, error) {
	var u user.User
	var err error

	err = r.observe("users.consume_reset", func() error {
		row := r.pool.QueryRow(ctx, `
			UPDATE users
			SET password_hash = $2,
			    reset_token = NULL,
			    reset_expires_at = NULL,
			    updated_at = NOW()
			WHERE reset_token = $1
			  AND reset_expires_at > NOW()
			RETURNING `+userColumns,
			token, newHash)
		u, err = scanUser(row)
		return err
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return user.User{}, ErrTokenInvalid
		}
		return user.User{}, err
	}

	return u, nil
}

func (r *UsersRepo) TouchLastLogin(ctx context.Context, id string) error {
	return r.observe("users.touch_last_login", func() error {
		_, err := r.pool.Exec(ctx, `
			UPDATE users
			SET last_login_at = NOW(), updated_at = NOW()
			WHERE id = $1`, id)
		return err
	})
}

func (r *UsersRepo) List(ctx context.Context) ([]user.User, error) {
	var out []user.User

	err := r.observe("users.list", func() error {
		rows, err := r.pool.Query(ctx, `SELECT `+userColumns+` FROM users ORDER BY created_at ASC`)

		if err != nil {
			return err
		}

		defer rows.Close()

		for rows.Next() {
			u, err := scanUser(rows)
			if err != nil {
				return err
			}
			out = append(out, u)
		}

		return rows.Err()
	})

	if err != nil {
		return nil, err
	}

	if out == nil {
		out = []user.User{}
	}

	return out, nil
}

// UpdateFields describes a partial update. Nil pointers are left
// untouched.
type UserUpdate struct {
	Email        *string
	Name         *string
	Role         *user.Role
	Phone        *string
	Address      *string
	PasswordHash *string
}

func (upd UserUpdate) empty() bool {
	return upd.Email == nil && upd.Name == nil && upd.Role == nil &&
		upd.Phone == nil && upd.Address == nil && upd.PasswordHash == nil
}

var ErrNoFieldsToUpdate = errors.New("no fields to update")

func (r *UsersRepo) Update(ctx context.Context, id string, upd UserUpdate) (user.User, error) {
	if upd.empty() {
		return user.User{}, ErrNoFieldsToUpdate
	}

	sets := []string{"updated_at = NOW()"}
	args := []any{id}
	pos := 2

	add := func(col string, val any) {
		sets = append(sets, fmt.Sprintf("%s = $%d", col, pos))
		args = append(args, val)
		pos++
	}

	if upd.Email != nil {
		add("email", *upd.Email)
	}
	if upd.Name != nil {
		add("name", *upd.Name)
	}
	if upd.Role != nil {
		add("role", string(*upd.Role))
	}
	if upd.Phone != nil {
		add("phone", *upd.Phone)
	}
	if upd.Address != nil {
		add("address", *upd.Address)
	}
	if upd.PasswordHash != nil {
		add("password_hash", *upd.PasswordHash)
	}

	query := `UPDATE users SET ` + strings.Join(sets, ", ") +
		` WHERE id = $1 RETURNING ` + userColumns

	var u user.User
	var err error

	err = r.observe("users.update", func() error {
		row := r.pool.QueryRow(ctx, query, args...)
		u, err = scanUser(row)
		return err
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return user.User{}, user.ErrNotFound
		}
		if IsUniqueViolation(err) {
			return user.User{}, ErrEmailTaken
		}
		return user.User{}, err
	}

	return u, nil
}

func (r *UsersRepo) Delete(ctx context.Context, id string) error {
	var tag pgconn.CommandTag
	var err error

	err = r.observe("users.delete", func() error {
		tag, err = r.pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
		return err
	})

	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return user.ErrNotFound
	}
	return nil
}

func (r *UsersRepo) CountByRole(ctx context.Context, role user.Role) (int, error) {
	var n int

	err := r.observe("users.count_by_role", func() error {
		return r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM users WHERE role = $1`, string(role)).Scan(&n)
	})

	if err != nil {
		return 0, err
	}

	return n, nil
}

func (r *UsersRepo) BeginTx(ctx context.Context) (pgx.Tx, error) {
	return r.pool.BeginTx(ctx, pgx.TxOptions{})
}

func scanUser(row pgx.Row) (user.User, error) {
	var u user.User
	var role string
	var verToken, resetToken *string
	var verExp, resetExp *time.Time

	err := row.Scan(
		&u.ID, &u.Email, &u.PasswordHash, &u.Name, &role, &u.Phone, &u.Address,
		&u.IsVerified, &u.LastLoginAt,
		&verToken, &verExp,
		&resetToken, &resetExp,
		&u.CreatedAt, &u.UpdatedAt,
	)

	if err != nil {
		return user.User{}, err
	}

	u.Role = user.Role(role)

	if verToken != nil && verExp != nil {
		u.Verification = &user.OneTimeToken{Value: *verToken, ExpiresAt: *verExp}
	}
	if resetToken != nil && resetExp != nil {
		u.Reset = &user.OneTimeToken{Value: *resetToken, ExpiresAt: *resetExp}
	}

	return u, nil
}
