package swipe

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go-match/internal/apperr"
	"go-match/internal/quota"
	"go-match/internal/user"
)

const (
	defaultPageSize = 20
	maxPageSize     = 50
)

// Ledger is the slice of the swipe repository the engine needs.
type Ledger interface {
	Record(ctx context.Context, actorID, targetID int, action Action) (*Swipe, error)
	LikedTargets(ctx context.Context, actorID int) ([]int, error)
	RecentlyPassedTargets(ctx context.Context, actorID int, window time.Duration) ([]int, error)
	HasMutualLike(ctx context.Context, a, b int) (bool, error)
	ListCandidates(ctx context.Context, genders []string, exclude []int, limit, offset int) ([]Candidate, error)
}

// Users resolves user ids to profiles.
type Users interface {
	GetByID(ctx context.Context, id int) (*user.User, error)
}

// Notifier pushes a mutual-match signal to both users' private channels.
type Notifier interface {
	MatchFound(a, b int)
}

type Service struct {
	ledger       Ledger
	users        Users
	quota        quota.Checker
	notifier     Notifier
	passCooldown time.Duration
	logger       *slog.Logger
}

func NewService(ledger Ledger, users Users, q quota.Checker, n Notifier, passCooldown time.Duration, logger *slog.Logger) *Service {
	return &Service{
		ledger:       ledger,
		users:        users,
		quota:        q,
		notifier:     n,
		passCooldown: passCooldown,
		logger:       logger,
	}
}

// Explore returns a randomized page of candidates for the user: filtered to
// the gender they declared interest in, minus everyone they ever liked,
// everyone they passed within the cool-down window, and themselves.
func (s *Service) Explore(ctx context.Context, userID, page, pageSize int) ([]Candidate, error) {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	var genders []string
	switch u.InterestedIn {
	case user.InterestMale:
		genders = []string{user.GenderMale}
	case user.InterestFemale:
		genders = []string{user.GenderFemale}
	case user.InterestBoth:
		genders = []string{user.GenderMale, user.GenderFemale}
	default:
		// Unknown preference fails closed: empty feed, not an error.
		return []Candidate{}, nil
	}

	liked, err := s.ledger.LikedTargets(ctx, userID)
	if err != nil {
		return nil, err
	}
	passed, err := s.ledger.RecentlyPassedTargets(ctx, userID, s.passCooldown)
	if err != nil {
		return nil, err
	}

	exclude := make([]int, 0, len(liked)+len(passed)+1)
	exclude = append(exclude, userID)
	exclude = append(exclude, liked...)
	exclude = append(exclude, passed...)

	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}

	return s.ledger.ListCandidates(ctx, genders, exclude, pageSize, pageSize*(page-1))
}

// Swipe records a like/pass decision and, on a like, checks for a mutual
// match. Both users are notified when a match is found.
func (s *Service) Swipe(ctx context.Context, actorID, targetID int, action Action) (*Result, error) {
	if !action.Valid() {
		return nil, apperr.ErrUnknownAction
	}
	if actorID == targetID {
		return nil, apperr.ErrInvalidTarget
	}

	if _, err := s.users.GetByID(ctx, targetID); err != nil {
		if errors.Is(err, apperr.ErrUserNotFound) {
			return nil, apperr.ErrTargetNotFound
		}
		return nil, err
	}

	if err := s.quota.Allow(ctx, actorID); err != nil {
		return nil, err
	}

	rec, err := s.ledger.Record(ctx, actorID, targetID, action)
	if err != nil {
		return nil, err
	}

	res := &Result{Swipe: rec}
	if action == ActionLike {
		mutual, err := s.ledger.HasMutualLike(ctx, actorID, targetID)
		if err != nil {
			// The swipe is already on the ledger; losing the match signal
			// here would be worse than reporting it late, so surface the
			// error to the caller.
			return nil, err
		}
		if mutual {
			res.Matched = true
			s.notifier.MatchFound(actorID, targetID)
			s.logger.Info("mutual match", "user_a", actorID, "user_b", targetID)
		}
	}
	return res, nil
}
