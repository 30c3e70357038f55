package session

import (
	"encoding/json"
	"fmt"

	"pongarena/internal/game"
)

// Command is the decoded form of one inbound client message. Commands are
// queued per session and applied between ticks, never concurrently with an
// in-progress engine update.
type Command interface {
	command()
}

// MoveCommand moves one paddle a step up or down.
type MoveCommand struct {
	Player    game.PlayerID
	Direction game.Direction
}

func (MoveCommand) command() {}

// SettingsCommand updates the session's speed configuration.
// Either field may be nil, meaning "leave unchanged".
type SettingsCommand struct {
	BallSpeed   *float64
	PaddleSpeed *float64
}

func (SettingsCommand) command() {}

// NewMatchCommand resets the match to a fresh countdown with zeroed scores.
type NewMatchCommand struct{}

func (NewMatchCommand) command() {}

// StartCountdownCommand forces the serve countdown explicitly.
type StartCountdownCommand struct{}

func (StartCountdownCommand) command() {}

// inboundMessage is the raw wire shape. Older clients discriminate on
// "type", newer ones on "action"; both are accepted.
type inboundMessage struct {
	Action      string   `json:"action"`
	Type        string   `json:"type"`
	Direction   string   `json:"direction"`
	Player      string   `json:"player"`
	BallSpeed   *float64 `json:"ballSpeed"`
	PaddleSpeed *float64 `json:"paddleSpeed"`
}

// DecodeCommand parses a raw client frame into a Command.
func DecodeCommand(raw []byte) (Command, error) {
	var msg inboundMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		return nil, fmt.Errorf("decode message: %w", err)
	}

	kind := msg.Action
	if kind == "" {
		kind = msg.Type
	}

	switch kind {
	case "move":
		var dir game.Direction
		switch msg.Direction {
		case "up":
			dir = game.DirUp
		case "down":
			dir = game.DirDown
		default:
			return nil, fmt.Errorf("move: unknown direction %q", msg.Direction)
		}
		// The player field is optional; in AI mode clients omit it.
		player := game.Player1
		if msg.Player == "player2" {
			player = game.Player2
		}
		return MoveCommand{Player: player, Direction: dir}, nil

	case "settings":
		if msg.BallSpeed == nil && msg.PaddleSpeed == nil {
			return nil, fmt.Errorf("settings: no fields set")
		}
		return SettingsCommand{BallSpeed: msg.BallSpeed, PaddleSpeed: msg.PaddleSpeed}, nil

	case "startNewMatch":
		return NewMatchCommand{}, nil

	case "startGame":
		return StartCountdownCommand{}, nil
	}
	return nil, fmt.Errorf("unknown message kind %q", kind)
}
