package game

import "math"

// Vec2 is a field-relative position.
type Vec2 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// PaddleState is one paddle's serialized state.
type PaddleState struct {
	Y     float64 `json:"y"`
	Score int     `json:"score"`
}

// ScorePair mirrors the scores in the shape the client scoreboard expects.
type ScorePair struct {
	Player1 int `json:"player1"`
	Player2 int `json:"player2"`
}

// SpeedConfig reports the session's effective speeds and multipliers.
type SpeedConfig struct {
	PaddleSpeed           float64 `json:"paddleSpeed"`
	BallSpeed             float64 `json:"ballSpeed"`
	PaddleSpeedMultiplier float64 `json:"paddleSpeedMultiplier"`
	BallSpeedMultiplier   float64 `json:"ballSpeedMultiplier"`
}

// Snapshot is an immutable copy of the simulation state in the exact shape
// sent to clients. It shares no references with the engine.
type Snapshot struct {
	Ball      Vec2        `json:"ball"`
	Player1   PaddleState `json:"player1"`
	Player2   PaddleState `json:"player2"`
	Status    string      `json:"gameStatus"`
	Countdown int         `json:"countdown"`
	Winner    *string     `json:"winner"`
	Score     ScorePair   `json:"score"`
	Config    SpeedConfig `json:"config"`
}

// Snapshot returns the current state for serialization.
func (e *Engine) Snapshot() Snapshot {
	var winner *string
	if e.phase == PhaseGameOver && e.winner != 0 {
		name := e.winner.String()
		winner = &name
	}
	return Snapshot{
		Ball:      Vec2{X: e.ballX, Y: e.ballY},
		Player1:   PaddleState{Y: e.paddle1Y, Score: e.score1},
		Player2:   PaddleState{Y: e.paddle2Y, Score: e.score2},
		Status:    e.phase.String(),
		Countdown: int(math.Ceil(e.countdownLeft)),
		Winner:    winner,
		Score:     ScorePair{Player1: e.score1, Player2: e.score2},
		Config: SpeedConfig{
			PaddleSpeed:           e.paddleSpeed(),
			BallSpeed:             e.ballSpeed(),
			PaddleSpeedMultiplier: e.paddleSpeedMult,
			BallSpeedMultiplier:   e.ballSpeedMult,
		},
	}
}
