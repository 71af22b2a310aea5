// Package engine 回合状态机：接受客户端动作，驱动瞬时阶段直到下一个等待输入的阶段
package engine

import (
	"slices"

	"go.uber.org/zap"

	"github.com/wfunc/monopoly-server/internal/errors"
	"github.com/wfunc/monopoly-server/internal/game/board"
	"github.com/wfunc/monopoly-server/internal/game/cards"
	"github.com/wfunc/monopoly-server/internal/game/controller"
	"github.com/wfunc/monopoly-server/internal/game/dice"
	"github.com/wfunc/monopoly-server/internal/game/state"
)

// Rules 对局规则
type Rules struct {
	InitialCash  int
	InitialField int
	GoCash       int
	JailFine     int
	MaxJailRolls int
	MinPlayers   int
	MaxPlayers   int
	DiceCount    int
	DiceSides    int
}

// DefaultRules 经典规则
func DefaultRules() Rules {
	return Rules{
		InitialCash:  1500,
		InitialField: board.GoField,
		GoCash:       200,
		JailFine:     50,
		MaxJailRolls: 3,
		MinPlayers:   2,
		MaxPlayers:   state.MaxSeats,
		DiceCount:    2,
		DiceSides:    6,
	}
}

// Options 引擎构造参数
type Options struct {
	Rules    Rules
	Host     string // 有权执行 add_player 的身份
	Board    *board.Board
	Dice     dice.Source
	Shuffler dice.Shuffler // 牌堆与顺位洗牌
	Logger   *zap.Logger
}

// Engine 回合状态机。非并发安全，由调用方保证一次只处理一个动作。
type Engine struct {
	rules    Rules
	host     string
	game     *state.Game
	ctl      *controller.Controller
	decks    map[cards.DeckKind]*cards.Deck
	shuffler dice.Shuffler
	logger   *zap.Logger
	table    map[Stage]handler

	stage       Stage
	specialRent cards.SpecialRent
	extraRoll   dice.Roll
	trace       []Stage
}

// New 创建引擎，阶段为 pre_game
func New(opts Options) *Engine {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Board == nil {
		opts.Board = board.Classic()
	}
	if opts.Shuffler == nil {
		opts.Shuffler = dice.NoShuffle{}
	}

	game := state.New(opts.Board)
	d := dice.New(opts.Rules.DiceCount, opts.Rules.DiceSides, opts.Dice)
	e := &Engine{
		rules:    opts.Rules,
		host:     opts.Host,
		game:     game,
		ctl:      controller.New(game, d, opts.Rules.GoCash, opts.Logger.Named("controller")),
		shuffler: opts.Shuffler,
		logger:   opts.Logger,
		decks: map[cards.DeckKind]*cards.Deck{
			cards.Chance:         cards.NewDeck(cards.Chance, opts.Shuffler),
			cards.CommunityChest: cards.NewDeck(cards.CommunityChest, opts.Shuffler),
		},
	}
	e.table = e.handlers()
	e.enter(StagePreGame)
	return e
}

// Handle 处理一个动作直到下一个等待输入的阶段。
// 返回 nil 表示动作被接受；被忽略的动作返回 errors.IsIgnored 为真的错误且不修改任何状态。
func (e *Engine) Handle(a Action) error {
	if !a.Verb.Known() {
		e.logger.Debug("未知动作", zap.String("action", string(a.Verb)))
		return errors.Newf(errors.ErrUnknownAction, "%s", a.Verb)
	}
	if !slices.Contains(e.PossibleActionsFor(a.Actor), a.Verb) {
		e.logger.Debug("忽略未授权动作",
			zap.String("action", string(a.Verb)),
			zap.String("stage", e.stage.String()),
		)
		return errors.Newf(errors.ErrActionNotPermitted, "%s 在 %s 阶段不可执行", a.Verb, e.stage)
	}

	from := e.stage
	var (
		next Stage
		err  error
	)
	switch a.Verb {
	case ActionAddPlayer:
		next, err = e.addPlayer(a)
	case ActionUpdatePlayer:
		next, err = e.updatePlayer(a)
	case ActionStartGame:
		next, err = e.startGame()
	default:
		var ok bool
		next, ok = inputTransitions[transitionKey{e.stage, a.Verb}]
		if !ok {
			e.logger.Warn("阶段缺少转换",
				zap.String("stage", e.stage.String()),
				zap.String("action", string(a.Verb)),
			)
			return errors.Newf(errors.ErrUnexpectedState, "%s/%s", e.stage, a.Verb)
		}
	}
	if err != nil {
		return err
	}

	e.trace = []Stage{from}
	return e.run(next)
}

// run 依次执行瞬时阶段，直到进入等待输入的阶段
func (e *Engine) run(stage Stage) error {
	for !stage.AwaitsInput() {
		e.trace = append(e.trace, stage)
		h, ok := e.table[stage]
		if !ok {
			return errors.Newf(errors.ErrGameStateError, "阶段 %s 没有处理函数", stage)
		}
		next, err := h()
		if err != nil {
			e.logger.Error("阶段执行失败", zap.String("stage", stage.String()), zap.Error(err))
			return errors.New(errors.ErrGameStateError, stage.String()).WithCause(err)
		}
		stage = next
	}
	e.trace = append(e.trace, stage)
	e.enter(stage)
	return nil
}

// enter 记录阶段并向每位玩家重新发布可执行动作
func (e *Engine) enter(stage Stage) {
	if e.stage != stage {
		e.logger.Debug("阶段变更", zap.String("from", e.stage.String()), zap.String("to", stage.String()))
	}
	e.stage = stage
	if _, err := e.ctl.Update(state.SectionMisc, state.MiscStage, "", stage.String()); err != nil {
		e.logger.Error("记录阶段失败", zap.Error(err))
	}
	for _, p := range e.game.Players() {
		e.ctl.Notify(p.ID, state.MiscPossibleActions, verbNames(e.PossibleActionsFor(p.ID)))
	}
}

// PossibleActionsFor 请求者当前可执行的动作
func (e *Engine) PossibleActionsFor(actor string) []Verb {
	p := Perspective{
		Stage:        e.stage,
		IsHost:       actor != "" && actor == e.host,
		MaxJailRolls: e.rules.MaxJailRolls,
	}
	if player, ok := e.game.Player(actor); ok {
		p.Seated = true
		p.JailTurns = player.JailTurns
		p.JailCards = player.JailCards
		if current, ok := e.game.OnTurn(); ok {
			p.OnTurn = current.ID == actor
		}
	}
	return PossibleActions(p)
}

// Stage 当前阶段
func (e *Engine) Stage() Stage {
	return e.stage
}

// Transitions 最近一次被接受的动作经过的阶段
func (e *Engine) Transitions() []Stage {
	return slices.Clone(e.trace)
}

// Game 只读访问游戏聚合
func (e *Engine) Game() *state.Game {
	return e.game
}

// Host 有权加入玩家的身份
func (e *Engine) Host() string {
	return e.host
}

// Rules 对局规则
func (e *Engine) Rules() Rules {
	return e.rules
}

// Flush 取出待投递的消息
func (e *Engine) Flush() []controller.Envelope {
	return e.ctl.Flush()
}

// Snapshot 完整状态
func (e *Engine) Snapshot() []state.Change {
	return e.game.Snapshot()
}

func (e *Engine) actor() (state.Player, error) {
	p, ok := e.game.OnTurn()
	if !ok {
		return state.Player{}, errors.New(errors.ErrGameNotStarted, "没有行动玩家")
	}
	return p, nil
}
