package sqlxrepos

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/24vibes/vibes/core"
	"github.com/24vibes/vibes/core/colleague"
)

const colleagueColumns = `id, email, name, display_name, department, position, location, avatar,
	onboarding_completed, joined, created_at, updated_at`

const insertColleague = `INSERT INTO colleagues (` + colleagueColumns + `)
	VALUES (:id, :email, :name, :display_name, :department, :position, :location, :avatar,
		:onboarding_completed, :joined, :created_at, :updated_at)`

type colleagueRepository struct {
	db core.DB
}

var _ colleague.Repository = (*colleagueRepository)(nil) // interface compliance check

func NewColleagueRepository(db core.DB) *colleagueRepository {
	return &colleagueRepository{db: db}
}

func (repo colleagueRepository) QueryAll(ctx context.Context) ([]colleague.Colleague, error) {
	colleagues := make([]colleague.Colleague, 0)
	q := `SELECT ` + colleagueColumns + ` FROM colleagues ORDER BY created_at, id`
	if err := repo.db.SelectContext(ctx, &colleagues, q); err != nil {
		return nil, errors.Wrap(err, "selecting colleagues")
	}
	return colleagues, nil
}

func (repo colleagueRepository) Count(ctx context.Context) (int, error) {
	var n int
	err := repo.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM colleagues`)
	return n, errors.Wrap(err, "counting colleagues")
}

func (repo colleagueRepository) GetByID(ctx context.Context, id string) (colleague.Colleague, error) {
	var c colleague.Colleague
	q := `SELECT ` + colleagueColumns + ` FROM colleagues WHERE id = $1`
	if err := repo.db.GetContext(ctx, &c, q, id); err != nil {
		return colleague.Colleague{}, trapNoRowsErr(err, colleague.ErrNotFound, "selecting colleague")
	}
	return c, nil
}

func (repo colleagueRepository) FindByEmail(ctx context.Context, email string, caseInsensitive bool) ([]colleague.Colleague, error) {
	where := `email = $1`
	if caseInsensitive {
		where = `LOWER(email) = LOWER($1)`
	}
	colleagues := make([]colleague.Colleague, 0)
	q := `SELECT ` + colleagueColumns + ` FROM colleagues WHERE ` + where + ` ORDER BY created_at, id`
	if err := repo.db.SelectContext(ctx, &colleagues, q, email); err != nil {
		return nil, errors.Wrap(err, "selecting colleagues by email")
	}
	return colleagues, nil
}

func (repo colleagueRepository) Create(ctx context.Context, c colleague.Colleague) (colleague.Colleague, error) {
	if _, err := sqlx.NamedExecContext(ctx, repo.db, insertColleague, c); err != nil {
		return colleague.Colleague{}, errors.Wrap(err, "inserting colleague")
	}
	return c, nil
}

func (repo colleagueRepository) Update(ctx context.Context, c colleague.Colleague) (colleague.Colleague, error) {
	q := `UPDATE colleagues SET email = :email, name = :name, display_name = :display_name,
		department = :department, position = :position, location = :location, avatar = :avatar,
		onboarding_completed = :onboarding_completed, joined = :joined, updated_at = :updated_at
		WHERE id = :id`
	res, err := sqlx.NamedExecContext(ctx, repo.db, q, c)
	if err != nil {
		return colleague.Colleague{}, errors.Wrap(err, "updating colleague")
	}
	if err = checkAffected(res, colleague.ErrNotFound); err != nil {
		return colleague.Colleague{}, err
	}
	return c, nil
}

func (repo colleagueRepository) ReplaceAll(ctx context.Context, roster []colleague.Colleague) error {
	return inTx(ctx, repo.db, func(tx core.DBExecutor) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM colleagues`); err != nil {
			return errors.Wrap(err, "deleting colleagues")
		}
		for _, c := range roster {
			if _, err := sqlx.NamedExecContext(ctx, tx, insertColleague, c); err != nil {
				return errors.Wrap(err, "inserting colleague "+c.Email)
			}
		}
		return nil
	})
}
