package game

import (
	"math/rand"
	"time"
)

// Move is a discrete intent issued by the opponent controller.
type Move int

const (
	MoveNone Move = iota
	MoveUp
	MoveDown
)

// Opponent controller tuning. The reaction delay keeps the CPU from
// tracking the ball perfectly every tick; the dead zone stops the paddle
// from jittering around the target.
const (
	reactionMin = 10 * time.Millisecond
	reactionMax = 80 * time.Millisecond
	deadZone    = 20.0
)

// Opponent decides moves for the right paddle in single-player sessions.
// It is a pure function of the snapshot apart from the reaction-delay
// timestamp and its RNG.
type Opponent struct {
	rng          *rand.Rand
	nextDecision time.Time
}

// NewOpponent creates an opponent controller with a seeded RNG.
func NewOpponent(seed int64) *Opponent {
	return &Opponent{rng: rand.New(rand.NewSource(seed))}
}

// Move returns the opponent's intent for this tick. Decisions are gated by a
// randomized reaction interval; between decisions it returns MoveNone even
// when the ball position would warrant a move.
func (o *Opponent) Move(now time.Time, snap Snapshot) Move {
	if snap.Status != PhasePlaying.String() {
		return MoveNone
	}
	if now.Before(o.nextDecision) {
		return MoveNone
	}
	o.nextDecision = now.Add(reactionMin + time.Duration(o.rng.Int63n(int64(reactionMax-reactionMin))))

	center := snap.Player2.Y + PaddleHeight/2
	diff := snap.Ball.Y - center
	switch {
	case diff < -deadZone:
		return MoveUp
	case diff > deadZone:
		return MoveDown
	default:
		return MoveNone
	}
}
