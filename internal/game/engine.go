// Package game implements the authoritative Pong simulation: ball physics,
// paddle movement, scoring, win detection, and the CPU opponent. It contains
// no networking code; the session layer drives it through Update, MovePaddle,
// and the match-control methods, and reads state back through Snapshot.
package game

import (
	"math"
	"math/rand"
	"time"
)

// Phase is the simulation's top-level state.
type Phase int

const (
	PhaseCountdown Phase = iota
	PhasePlaying
	PhaseGameOver
)

// String returns the wire name of the phase.
func (p Phase) String() string {
	switch p {
	case PhaseCountdown:
		return "countdown"
	case PhasePlaying:
		return "playing"
	case PhaseGameOver:
		return "gameOver"
	default:
		return "unknown"
	}
}

// PlayerID identifies one of the two paddles.
// Player1 is the left paddle, Player2 the right.
type PlayerID int

const (
	Player1 PlayerID = 1
	Player2 PlayerID = 2
)

// String returns the wire name of the player.
func (p PlayerID) String() string {
	switch p {
	case Player1:
		return "player1"
	case Player2:
		return "player2"
	default:
		return ""
	}
}

// Direction is a paddle movement request.
type Direction int

const (
	DirNone Direction = iota
	DirUp
	DirDown
)

// Engine owns one match's authoritative state. It is not safe for concurrent
// use: the owning session must serialize all calls on its tick goroutine.
type Engine struct {
	ballX, ballY   float64
	ballVX, ballVY float64

	paddle1Y, paddle2Y float64
	score1, score2     int

	phase         Phase
	countdownLeft float64 // seconds, meaningful only in PhaseCountdown
	winner        PlayerID
	serveDir      float64 // -1 serves toward player 1, +1 toward player 2

	// Session-scoped speed config. Multipliers are relative to the base
	// speeds; rallyMult escalates per paddle hit and resets each point.
	ballSpeedMult   float64
	paddleSpeedMult float64
	rallyMult       float64

	rng        *rand.Rand
	lastUpdate time.Time
}

// NewEngine creates an engine in the Countdown phase. Two engines built with
// the same seed and driven with identical Update timestamps produce identical
// trajectories.
func NewEngine(seed int64) *Engine {
	e := &Engine{
		ballSpeedMult:   1,
		paddleSpeedMult: 1,
		rng:             rand.New(rand.NewSource(seed)),
	}
	e.resetMatch()
	return e
}

// StartNewMatch resets scores and positions and enters Countdown.
// This is the only way out of GameOver.
func (e *Engine) StartNewMatch() {
	e.resetMatch()
}

// StartCountdown forces a serve reset into Countdown. It does not touch
// scores and is ignored in GameOver (a finished match needs StartNewMatch).
func (e *Engine) StartCountdown() {
	if e.phase == PhaseGameOver {
		return
	}
	e.startServe(e.serveDir)
}

// Update advances the simulation to now. The integration delta is clamped to
// maxDeltaTicks so a stalled scheduler cannot teleport the ball; the
// countdown uses raw wall-clock time so it stays accurate under irregular
// tick delivery.
func (e *Engine) Update(now time.Time) {
	if e.lastUpdate.IsZero() {
		e.lastUpdate = now
		return
	}
	elapsed := now.Sub(e.lastUpdate)
	if elapsed <= 0 {
		return
	}
	e.lastUpdate = now

	switch e.phase {
	case PhaseCountdown:
		e.countdownLeft -= elapsed.Seconds()
		if e.countdownLeft <= 0 {
			e.countdownLeft = 0
			e.phase = PhasePlaying
			e.serve()
		}
	case PhasePlaying:
		dt := elapsed.Seconds() * TickRate
		if dt > maxDeltaTicks {
			dt = maxDeltaTicks
		}
		e.stepBall(dt)
	case PhaseGameOver:
		// Nothing moves until a new match starts.
	}
}

// MovePaddle moves a paddle one step in the given direction, clamped to the
// field. No-op outside Playing and for unknown players or directions, since
// those can only come from malformed network input.
func (e *Engine) MovePaddle(p PlayerID, d Direction) {
	if e.phase != PhasePlaying {
		return
	}
	var dy float64
	switch d {
	case DirUp:
		dy = -e.paddleSpeed()
	case DirDown:
		dy = e.paddleSpeed()
	default:
		return
	}
	maxY := FieldHeight - PaddleHeight
	switch p {
	case Player1:
		e.paddle1Y = clampF(e.paddle1Y+dy, 0, maxY)
	case Player2:
		e.paddle2Y = clampF(e.paddle2Y+dy, 0, maxY)
	}
}

// SetBallSpeed sets the session's ball speed to the given base value,
// rescaling the live velocity so the ball keeps its direction mid-flight.
// Non-positive values are ignored.
func (e *Engine) SetBallSpeed(speed float64) {
	if speed <= 0 {
		return
	}
	e.ballSpeedMult = speed / BaseBallSpeed
	mag := math.Hypot(e.ballVX, e.ballVY)
	if mag > 0 {
		target := e.ballSpeed() * e.rallyMult
		e.ballVX = e.ballVX / mag * target
		e.ballVY = e.ballVY / mag * target
	}
}

// SetPaddleSpeed sets the session's paddle speed to the given base value.
// Non-positive values are ignored.
func (e *Engine) SetPaddleSpeed(speed float64) {
	if speed <= 0 {
		return
	}
	e.paddleSpeedMult = speed / BasePaddleSpeed
}

// Phase returns the current simulation phase.
func (e *Engine) Phase() Phase {
	return e.phase
}

// Winner returns the winning player, or 0 before GameOver.
func (e *Engine) Winner() PlayerID {
	return e.winner
}

// Scores returns the current score pair.
func (e *Engine) Scores() (int, int) {
	return e.score1, e.score2
}

func (e *Engine) resetMatch() {
	e.score1, e.score2 = 0, 0
	e.winner = 0
	centerY := (FieldHeight - PaddleHeight) / 2
	e.paddle1Y, e.paddle2Y = centerY, centerY
	e.startServe(-1)
}

func (e *Engine) startServe(dir float64) {
	e.phase = PhaseCountdown
	e.countdownLeft = CountdownSeconds
	e.ballX = FieldWidth / 2
	e.ballY = FieldHeight / 2
	e.ballVX, e.ballVY = 0, 0
	e.rallyMult = 1
	e.serveDir = dir
}

// serve computes the ball velocity from the current speed config when the
// countdown elapses.
func (e *Engine) serve() {
	angle := (e.rng.Float64() - 0.5) * 2 * serveAngleSpread
	speed := e.ballSpeed() * e.rallyMult
	e.ballVX = e.serveDir * math.Cos(angle) * speed
	e.ballVY = math.Sin(angle) * speed
}

func (e *Engine) stepBall(dt float64) {
	e.ballX += e.ballVX * dt
	e.ballY += e.ballVY * dt

	// Reflect off top/bottom walls.
	if e.ballY <= 0 {
		e.ballY = 0
		e.ballVY = -e.ballVY
	}
	if e.ballY >= FieldHeight {
		e.ballY = FieldHeight
		e.ballVY = -e.ballVY
	}

	e.resolvePaddles()
	e.resolveScore()

	// Clamp after everything so tunneling is never observable.
	e.ballX = clampF(e.ballX, 0, FieldWidth)
	e.ballY = clampF(e.ballY, 0, FieldHeight)
}

// resolvePaddles tests each paddle face only when the ball is moving toward
// it, so a single tick can never resolve both paddles.
func (e *Engine) resolvePaddles() {
	if e.ballVX < 0 && e.ballX <= PaddleWidth {
		if e.ballY >= e.paddle1Y && e.ballY <= e.paddle1Y+PaddleHeight {
			e.reflect(e.paddle1Y, 1)
			e.ballX = PaddleWidth + 1
		}
	} else if e.ballVX > 0 && e.ballX >= FieldWidth-PaddleWidth {
		if e.ballY >= e.paddle2Y && e.ballY <= e.paddle2Y+PaddleHeight {
			e.reflect(e.paddle2Y, -1)
			e.ballX = FieldWidth - PaddleWidth - 1
		}
	}
}

// reflect recomputes the ball velocity from the normalized hit offset along
// the paddle: a center hit returns the ball flat, edge hits deflect up to 45
// degrees. Each hit escalates the rally multiplier.
func (e *Engine) reflect(paddleY, dir float64) {
	hit := clampF((e.ballY-paddleY)/PaddleHeight, 0, 1)
	angle := (hit - 0.5) * (math.Pi / 2)

	e.rallyMult = math.Min(e.rallyMult*rallyIncrement, maxRallyMultiplier)

	speed := e.ballSpeed() * e.rallyMult
	e.ballVX = dir * math.Cos(angle) * speed
	e.ballVY = math.Sin(angle) * speed
}

func (e *Engine) resolveScore() {
	switch {
	case e.ballX < 0:
		e.score2++
		e.afterPoint(Player2, -1)
	case e.ballX > FieldWidth:
		e.score1++
		e.afterPoint(Player1, 1)
	}
}

// afterPoint ends the match the instant the scorer reaches WinScore,
// otherwise resets for a serve toward the player who conceded.
func (e *Engine) afterPoint(scorer PlayerID, concededDir float64) {
	won := (scorer == Player1 && e.score1 >= WinScore) ||
		(scorer == Player2 && e.score2 >= WinScore)
	if won {
		e.phase = PhaseGameOver
		e.winner = scorer
		e.ballX, e.ballY = FieldWidth/2, FieldHeight/2
		e.ballVX, e.ballVY = 0, 0
		return
	}
	e.startServe(concededDir)
}

func (e *Engine) ballSpeed() float64 {
	return BaseBallSpeed * e.ballSpeedMult
}

func (e *Engine) paddleSpeed() float64 {
	return BasePaddleSpeed * e.paddleSpeedMult
}

func clampF(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
