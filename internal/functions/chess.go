package functions

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/notnil/chess"
	"github.com/notnil/chess/uci"

	"github.com/m2tx/benchagent/internal/tools"
)

// ChessEngine asks a UCI engine binary, such as stockfish, for the best move.
type ChessEngine struct {
	path string
	// one engine process at a time
	mu sync.Mutex
}

func NewChessEngine(path string) *ChessEngine {
	if path == "" {
		path = "stockfish"
	}
	return &ChessEngine{path: path}
}

// BestMove is an engine recommendation in both notations.
type BestMove struct {
	UCI        string `json:"uci"`
	Algebraic  string `json:"algebraic"`
	SideToMove string `json:"side_to_move"`
}

func parseFEN(fen string) (*chess.Game, error) {
	opt, err := chess.FEN(strings.TrimSpace(fen))
	if err != nil {
		return nil, fmt.Errorf("invalid FEN: %w", err)
	}
	game := chess.NewGame(opt)
	if len(game.ValidMoves()) == 0 {
		return nil, fmt.Errorf("the position has no legal moves (%s)", game.Position().Status())
	}
	return game, nil
}

func (e *ChessEngine) BestMove(ctx context.Context, fen string, thinkTime time.Duration) (*BestMove, error) {
	game, err := parseFEN(fen)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	eng, err := uci.New(e.path)
	if err != nil {
		return nil, fmt.Errorf("start engine %q: %w", e.path, err)
	}
	defer eng.Close()

	if err := eng.Run(uci.CmdUCI, uci.CmdIsReady, uci.CmdUCINewGame); err != nil {
		return nil, fmt.Errorf("init engine: %w", err)
	}
	if err := eng.Run(uci.CmdPosition{Position: game.Position()}, uci.CmdGo{MoveTime: thinkTime}); err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}

	move := eng.SearchResults().BestMove
	if move == nil {
		return nil, errors.New("the engine returned no move")
	}

	return &BestMove{
		UCI:        move.String(),
		Algebraic:  chess.AlgebraicNotation{}.Encode(game.Position(), move),
		SideToMove: game.Position().Turn().Name(),
	}, nil
}

func CreateAnalyzeChessFunctionDeclaration(engine *ChessEngine) *tools.FunctionDeclaration {
	return &tools.FunctionDeclaration{
		Name: "analyze_chess",
		Description: "Analyzes a chess position given in FEN and returns the best next move in algebraic notation. " +
			"Read the position from the image first and make sure the side to move is correct.",
		Parameters: []tools.Parameter{
			{Name: "fen", Type: tools.TypeString, Description: "The position in Forsyth-Edwards Notation.", Required: true},
			{Name: "think_time", Type: tools.TypeNumber, Description: "Engine thinking time in seconds.", Default: 2.0},
		},
		Call: func(ctx context.Context, args map[string]any) (any, error) {
			seconds, _ := tools.Float(args, "think_time")
			if seconds <= 0 || seconds > 30 {
				return nil, fmt.Errorf("think_time must be between 0 and 30 seconds, got %v", seconds)
			}

			best, err := engine.BestMove(ctx, tools.String(args, "fen"), time.Duration(seconds*float64(time.Second)))
			if err != nil {
				return nil, fmt.Errorf("analyze_chess: %w", err)
			}
			return best, nil
		},
	}
}
