package game

// Field and object dimensions. These must match the client exactly for
// visual correctness, so they are fixed rather than configurable.
const (
	FieldWidth   = 960.0
	FieldHeight  = 540.0
	PaddleWidth  = 20.0
	PaddleHeight = 120.0
	BallDiameter = 12.0
)

// Default gameplay settings
const (
	BaseBallSpeed    = 6.0 // units per nominal tick
	BasePaddleSpeed  = 8.0 // units per move command
	WinScore         = 3
	CountdownSeconds = 3.0
	TickRate         = 60 // nominal ticks per second
)

// Tuning constants
const (
	maxDeltaTicks      = 5.0  // integration clamp after a stall
	rallyIncrement     = 1.05 // ball speed gain per paddle hit
	maxRallyMultiplier = 5.0
	serveAngleSpread   = 0.5 // max |serve angle| in radians
)
