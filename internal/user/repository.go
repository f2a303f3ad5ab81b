package user

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"go-match/internal/apperr"
)

type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) CreateUser(ctx context.Context, u *User) (*User, error) {
	var id int
	query := `INSERT INTO users (username, password, gender, interested_in)
	          VALUES ($1, $2, $3, $4) RETURNING id`

	err := r.db.QueryRowContext(ctx, query, u.Username, u.Password, u.Gender, u.InterestedIn).Scan(&id)
	if err != nil {
		return nil, apperr.Internal(err)
	}

	u.ID = id
	return u, nil
}

func (r *Repository) GetByUsername(ctx context.Context, username string) (*User, error) {
	u := &User{}
	query := `SELECT id, username, password, gender, interested_in, online, last_seen_at
	          FROM users WHERE username = $1`

	err := r.db.QueryRowContext(ctx, query, username).
		Scan(&u.ID, &u.Username, &u.Password, &u.Gender, &u.InterestedIn, &u.Online, &u.LastSeenAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.ErrUserNotFound
		}
		return nil, apperr.Internal(err)
	}

	return u, nil
}

func (r *Repository) GetByID(ctx context.Context, id int) (*User, error) {
	u := &User{}
	query := `SELECT id, username, password, gender, interested_in, online, last_seen_at
	          FROM users WHERE id = $1`

	err := r.db.QueryRowContext(ctx, query, id).
		Scan(&u.ID, &u.Username, &u.Password, &u.Gender, &u.InterestedIn, &u.Online, &u.LastSeenAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.ErrUserNotFound
		}
		return nil, apperr.Internal(err)
	}

	return u, nil
}

// SetOnline records a presence transition. last_seen_at is only touched when
// the user goes offline, so it always means "last time they disconnected".
func (r *Repository) SetOnline(ctx context.Context, id int, online bool, at time.Time) error {
	var err error
	if online {
		_, err = r.db.ExecContext(ctx, `UPDATE users SET online = TRUE WHERE id = $1`, id)
	} else {
		_, err = r.db.ExecContext(ctx,
			`UPDATE users SET online = FALSE, last_seen_at = $2 WHERE id = $1`, id, at)
	}
	if err != nil {
		return apperr.Internal(err)
	}
	return nil
}

func (r *Repository) SearchUsers(ctx context.Context, query string) ([]User, error) {
	// Limit to 10 to keep it fast
	q := `SELECT id, username, gender, online FROM users WHERE username ILIKE $1 LIMIT 10`
	rows, err := r.db.QueryContext(ctx, q, "%"+query+"%")
	if err != nil {
		return nil, apperr.Internal(err)
	}
	defer rows.Close()

	var users []User
	for rows.Next() {
		var u User
		if err := rows.Scan(&u.ID, &u.Username, &u.Gender, &u.Online); err != nil {
			return nil, apperr.Internal(err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}
