package sqlxrepos

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/24vibes/vibes/core"
	"github.com/24vibes/vibes/core/colleague"
	"github.com/24vibes/vibes/core/user"
)

const userColumns = `id, email, colleague_id, is_admin, is_active, linked_at, updated_at, last_login`

type userRepository struct {
	db core.DB
}

var (
	_ user.Repository    = (*userRepository)(nil) // interface compliance check
	_ colleague.Mappings = (*userRepository)(nil)
)

func NewUserRepository(db core.DB) *userRepository {
	return &userRepository{db: db}
}

func (repo userRepository) Create(ctx context.Context, usr user.User) (user.User, error) {
	q := `INSERT INTO users (` + userColumns + `)
		VALUES (:id, :email, :colleague_id, :is_admin, :is_active, :linked_at, :updated_at, :last_login)`
	if _, err := sqlx.NamedExecContext(ctx, repo.db, q, usr); err != nil {
		return user.User{}, errors.Wrap(err, "inserting user")
	}
	return usr, nil
}

func (repo userRepository) Update(ctx context.Context, usr user.User) (user.User, error) {
	q := `UPDATE users SET email = :email, colleague_id = :colleague_id, is_admin = :is_admin,
		is_active = :is_active, linked_at = :linked_at, updated_at = :updated_at, last_login = :last_login
		WHERE id = :id`
	res, err := sqlx.NamedExecContext(ctx, repo.db, q, usr)
	if err != nil {
		return user.User{}, errors.Wrap(err, "updating user")
	}
	if err = checkAffected(res, user.ErrNotFound); err != nil {
		return user.User{}, err
	}
	return usr, nil
}

func (repo userRepository) GetByID(ctx context.Context, id string) (user.User, error) {
	var usr user.User
	q := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	if err := repo.db.GetContext(ctx, &usr, q, id); err != nil {
		return user.User{}, trapNoRowsErr(err, user.ErrNotFound, "selecting user")
	}
	return usr, nil
}

func (repo userRepository) GetByEmail(ctx context.Context, email string) (user.User, error) {
	var usr user.User
	q := `SELECT ` + userColumns + ` FROM users WHERE LOWER(email) = LOWER($1) ORDER BY linked_at DESC LIMIT 1`
	if err := repo.db.GetContext(ctx, &usr, q, email); err != nil {
		return user.User{}, trapNoRowsErr(err, user.ErrNotFound, "selecting user by email")
	}
	return usr, nil
}

func (repo userRepository) QueryAll(ctx context.Context) ([]user.User, error) {
	users := make([]user.User, 0)
	q := `SELECT ` + userColumns + ` FROM users ORDER BY linked_at DESC`
	if err := repo.db.SelectContext(ctx, &users, q); err != nil {
		return nil, errors.Wrap(err, "selecting users")
	}
	return users, nil
}

func (repo userRepository) ColleagueIDForUser(ctx context.Context, userID string) (string, error) {
	var id string
	if err := repo.db.GetContext(ctx, &id, `SELECT colleague_id FROM users WHERE id = $1`, userID); err != nil {
		return "", trapNoRowsErr(err, user.ErrNotFound, "selecting user colleague")
	}
	return id, nil
}
