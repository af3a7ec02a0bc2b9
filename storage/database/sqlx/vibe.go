package sqlxrepos

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/24vibes/vibes/core"
	"github.com/24vibes/vibes/core/vibe"
)

const vibeColumns = `id, message, sender, recipient, category, personal_message, template_id,
	sender_name, sender_department, sender_avatar, recipient_name, recipient_department, recipient_avatar, created_at`

type vibeRepository struct {
	db core.DB
}

var _ vibe.Repository = (*vibeRepository)(nil) // interface compliance check

func NewVibeRepository(db core.DB) *vibeRepository {
	return &vibeRepository{db: db}
}

func (repo vibeRepository) Create(ctx context.Context, v vibe.Vibe) (vibe.Vibe, error) {
	q := `INSERT INTO vibes (` + vibeColumns + `)
		VALUES (:id, :message, :sender, :recipient, :category, :personal_message, :template_id,
			:sender_name, :sender_department, :sender_avatar, :recipient_name, :recipient_department,
			:recipient_avatar, :created_at)`
	if _, err := sqlx.NamedExecContext(ctx, repo.db, q, v); err != nil {
		return vibe.Vibe{}, errors.Wrap(err, "inserting vibe")
	}
	if v.Reactions == nil {
		v.Reactions = make([]vibe.Reaction, 0)
	}
	return v, nil
}

func (repo vibeRepository) Get(ctx context.Context, id string) (vibe.Vibe, error) {
	if !isUUID(id) {
		return vibe.Vibe{}, vibe.ErrNotFound
	}
	var v vibe.Vibe
	q := `SELECT ` + vibeColumns + ` FROM vibes WHERE id = $1`
	if err := repo.db.GetContext(ctx, &v, q, id); err != nil {
		return vibe.Vibe{}, trapNoRowsErr(err, vibe.ErrNotFound, "selecting vibe")
	}
	vibes := []vibe.Vibe{v}
	if err := repo.loadReactions(ctx, vibes); err != nil {
		return vibe.Vibe{}, err
	}
	return vibes[0], nil
}

func (repo vibeRepository) Query(ctx context.Context, filter vibe.QueryFilter) ([]vibe.Vibe, error) {
	var (
		conds []string
		args  []interface{}
	)
	where := func(cond string, arg interface{}) {
		args = append(args, arg)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}
	if filter.Sender != "" {
		where("LOWER(sender) = $%d", filter.Sender)
	}
	if filter.Recipient != "" {
		where("LOWER(recipient) = $%d", filter.Recipient)
	}
	if filter.Category != "" {
		where("category = $%d", filter.Category)
	}
	if !filter.From.IsZero() {
		where("created_at >= $%d", filter.From.UTC())
	}
	if !filter.To.IsZero() {
		where("created_at <= $%d", filter.To.UTC())
	}

	q := `SELECT ` + vibeColumns + ` FROM vibes`
	if len(conds) > 0 {
		q += ` WHERE ` + strings.Join(conds, " AND ")
	}
	q += ` ORDER BY created_at DESC, id`

	vibes := make([]vibe.Vibe, 0)
	if err := repo.db.SelectContext(ctx, &vibes, q, args...); err != nil {
		return nil, errors.Wrap(err, "selecting vibes")
	}
	if err := repo.loadReactions(ctx, vibes); err != nil {
		return nil, err
	}
	return vibes, nil
}

func (repo vibeRepository) loadReactions(ctx context.Context, vibes []vibe.Vibe) error {
	if len(vibes) == 0 {
		return nil
	}
	ids := make([]string, 0, len(vibes))
	idx := make(map[string]int, len(vibes))
	for i := range vibes {
		vibes[i].Reactions = make([]vibe.Reaction, 0)
		ids = append(ids, vibes[i].ID)
		idx[vibes[i].ID] = i
	}

	var reactions []vibe.Reaction
	q := `SELECT vibe_id, user_id, emoji, created_at FROM vibe_reactions
		WHERE vibe_id = ANY($1::uuid[]) ORDER BY created_at, user_id`
	if err := repo.db.SelectContext(ctx, &reactions, q, pq.Array(ids)); err != nil {
		return errors.Wrap(err, "selecting reactions")
	}
	for _, r := range reactions {
		if i, ok := idx[r.VibeID]; ok {
			vibes[i].Reactions = append(vibes[i].Reactions, r)
		}
	}
	return nil
}

func (repo vibeRepository) SetReaction(ctx context.Context, r vibe.Reaction) error {
	q := `INSERT INTO vibe_reactions (vibe_id, user_id, emoji, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (vibe_id, user_id) DO UPDATE SET emoji = EXCLUDED.emoji, created_at = EXCLUDED.created_at`
	if _, err := repo.db.ExecContext(ctx, q, r.VibeID, r.UserID, r.Emoji, r.CreatedAt.UTC()); err != nil {
		return errors.Wrap(err, "upserting reaction")
	}
	return nil
}

func (repo vibeRepository) DeleteReaction(ctx context.Context, vibeID, userID string) error {
	q := `DELETE FROM vibe_reactions WHERE vibe_id = $1 AND user_id = $2`
	if _, err := repo.db.ExecContext(ctx, q, vibeID, userID); err != nil {
		return errors.Wrap(err, "deleting reaction")
	}
	return nil
}
