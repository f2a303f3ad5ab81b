package swipe

import "time"

type Action string

const (
	ActionLike Action = "like"
	ActionPass Action = "pass"
)

func (a Action) Valid() bool {
	return a == ActionLike || a == ActionPass
}

type Swipe struct {
	ID        int       `json:"id"`
	ActorID   int       `json:"actor_id"`
	TargetID  int       `json:"target_id"`
	Action    Action    `json:"action"`
	CreatedAt time.Time `json:"created_at"`
}

// Candidate is a profile shown in the explore feed.
type Candidate struct {
	ID       int    `json:"id"`
	Username string `json:"username"`
	Gender   string `json:"gender"`
	Online   bool   `json:"online"`
}

type SwipeRequest struct {
	TargetID int    `json:"target_id" validate:"required"`
	Action   string `json:"action" validate:"required,oneof=like pass"`
}

// Result is what a recorded swipe reports back. Matched is true when this
// swipe completed a mutual like.
type Result struct {
	Swipe   *Swipe `json:"swipe"`
	Matched bool   `json:"matched"`
}
