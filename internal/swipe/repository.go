package swipe

import (
	"context"
	"database/sql"
	"time"

	"go-match/internal/apperr"
)

// Repository is the append-only swipe ledger plus the candidate query the
// explore feed is built on. Rows are never updated or deleted.
type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Record(ctx context.Context, actorID, targetID int, action Action) (*Swipe, error) {
	s := &Swipe{ActorID: actorID, TargetID: targetID, Action: action}
	query := `INSERT INTO swipes (actor_id, target_id, action)
	          VALUES ($1, $2, $3) RETURNING id, created_at`

	err := r.db.QueryRowContext(ctx, query, actorID, targetID, action).Scan(&s.ID, &s.CreatedAt)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return s, nil
}

// LikedTargets returns every target the actor has ever liked. A like is a
// permanent exclusion from explore, so there is no time filter here.
func (r *Repository) LikedTargets(ctx context.Context, actorID int) ([]int, error) {
	query := `SELECT DISTINCT target_id FROM swipes WHERE actor_id = $1 AND action = 'like'`
	return r.targetIDs(ctx, query, actorID)
}

// RecentlyPassedTargets returns targets passed within the trailing window.
func (r *Repository) RecentlyPassedTargets(ctx context.Context, actorID int, window time.Duration) ([]int, error) {
	query := `SELECT DISTINCT target_id FROM swipes
	          WHERE actor_id = $1 AND action = 'pass' AND created_at > $2`
	return r.targetIDs(ctx, query, actorID, time.Now().Add(-window))
}

func (r *Repository) targetIDs(ctx context.Context, query string, args ...any) ([]int, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	defer rows.Close()

	var ids []int
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return nil, apperr.Internal(err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// HasMutualLike reports whether both (a likes b) and (b likes a) exist in the
// ledger, regardless of ordering or any pass rows in between.
func (r *Repository) HasMutualLike(ctx context.Context, a, b int) (bool, error) {
	query := `SELECT
	    EXISTS (SELECT 1 FROM swipes WHERE actor_id = $1 AND target_id = $2 AND action = 'like')
	AND EXISTS (SELECT 1 FROM swipes WHERE actor_id = $2 AND target_id = $1 AND action = 'like')`

	var mutual bool
	if err := r.db.QueryRowContext(ctx, query, a, b).Scan(&mutual); err != nil {
		return false, apperr.Internal(err)
	}
	return mutual, nil
}

// ListCandidates returns a random page of users matching the gender pool,
// minus the excluded ids. Random order is fine for a discovery feed; the
// exclusion set is what must never be violated.
func (r *Repository) ListCandidates(ctx context.Context, genders []string, exclude []int, limit, offset int) ([]Candidate, error) {
	query := `SELECT id, username, gender, online FROM users
	          WHERE gender = ANY($1) AND NOT (id = ANY($2))
	          ORDER BY random()
	          LIMIT $3 OFFSET $4`

	rows, err := r.db.QueryContext(ctx, query, genders, exclude, limit, offset)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	defer rows.Close()

	out := make([]Candidate, 0)
	for rows.Next() {
		var c Candidate
		if err := rows.Scan(&c.ID, &c.Username, &c.Gender, &c.Online); err != nil {
			return nil, apperr.Internal(err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
