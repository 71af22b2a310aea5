// Package game 对局会话：串行处理客户端动作，并把投递的变更写入对局流水
package game

import (
	"context"
	"runtime/debug"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/wfunc/monopoly-server/internal/errors"
	"github.com/wfunc/monopoly-server/internal/game/controller"
	"github.com/wfunc/monopoly-server/internal/game/dice"
	"github.com/wfunc/monopoly-server/internal/game/engine"
	"github.com/wfunc/monopoly-server/internal/game/state"
	"github.com/wfunc/monopoly-server/internal/logger"
	"github.com/wfunc/monopoly-server/internal/models"
	"github.com/wfunc/monopoly-server/internal/repository"
)

// SessionConfig 会话配置
type SessionConfig struct {
	Rules         engine.Rules
	Seed          int64 // 0 表示随机种子
	Logger        *zap.Logger
	Repo          repository.MatchRepository // 为空时不记录对局流水
	JournalBuffer int
}

// Session 一局游戏。动作在互斥锁内运行到下一个等待输入的阶段，不会交错。
type Session struct {
	mu      sync.Mutex
	matchID string
	host    string
	seed    int64
	engine  *engine.Engine
	journal *Journal
	logger  *zap.Logger

	status       string
	players      int
	closed       bool
	startTime    time.Time
	lastActivity time.Time
}

// SessionView 会话的只读视图
type SessionView struct {
	MatchID      string         `json:"match_id"`
	Stage        string         `json:"stage"`
	Status       string         `json:"status"`
	Players      []state.Player `json:"players"`
	PlayerOrder  []int          `json:"player_order"`
	OnTurn       *int           `json:"on_turn,omitempty"`
	LastRoll     []int          `json:"last_roll"`
	Owners       map[int]int    `json:"owners"` // 格子 → 座位
	StartTime    time.Time      `json:"start_time"`
	LastActivity time.Time      `json:"last_activity"`
}

// NewSession 创建会话，配置了仓储时同时创建对局记录
func NewSession(ctx context.Context, cfg *SessionConfig) (*Session, error) {
	rng, seed, err := dice.NewRand(cfg.Seed)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrUnknown, "生成随机种子失败")
	}
	return newSession(ctx, cfg, seed, rng, rng)
}

func newSession(ctx context.Context, cfg *SessionConfig, seed int64, src dice.Source, shuffler dice.Shuffler) (*Session, error) {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}

	matchID := uuid.NewString()
	host := uuid.NewString()
	log = log.With(zap.String("match_id", matchID))
	now := time.Now()

	s := &Session{
		matchID: matchID,
		host:    host,
		seed:    seed,
		logger:  log,
		status:  state.StatusLobby,
		engine: engine.New(engine.Options{
			Rules:    cfg.Rules,
			Host:     host,
			Dice:     src,
			Shuffler: shuffler,
			Logger:   log.Named("engine"),
		}),
		startTime:    now,
		lastActivity: now,
	}

	if cfg.Repo != nil {
		s.journal = NewJournal(cfg.Repo, matchID, cfg.JournalBuffer, log.Named("journal"))
		match := &models.Match{
			Status: models.MatchStatusLobby,
			Seed:   seed,
			Rules:  rulesData(cfg.Rules),
		}
		if err := s.journal.Open(ctx, match); err != nil {
			return nil, err
		}
	}

	s.record(s.engine.Flush())
	log.Info("创建对局", zap.Int64("seed", seed), zap.Bool("journal", s.journal != nil))
	return s, nil
}

func rulesData(r engine.Rules) models.JSONData {
	return models.JSONData{
		"initial_cash":   r.InitialCash,
		"initial_field":  r.InitialField,
		"go_cash":        r.GoCash,
		"jail_fine":      r.JailFine,
		"max_jail_rolls": r.MaxJailRolls,
		"min_players":    r.MinPlayers,
		"max_players":    r.MaxPlayers,
		"dice_count":     r.DiceCount,
		"dice_sides":     r.DiceSides,
	}
}

// MatchID 对局标识
func (s *Session) MatchID() string {
	return s.matchID
}

// Seed 随机种子
func (s *Session) Seed() int64 {
	return s.seed
}

// Dispatch 处理一个动作并返回本次产生的全部待投递消息。
// 无论动作被接受、被忽略还是处理失败，已排队的消息都会返回，客户端视图与聚合保持一致。
func (s *Session) Dispatch(ctx context.Context, a engine.Action) (out []controller.Envelope, err error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrTimeout, "动作已取消")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, errors.New(errors.ErrGameStateError, "对局已结束")
	}

	defer func() {
		if r := recover(); r != nil {
			logger.LogPanic(r, debug.Stack())
			s.logger.Error("动作处理崩溃",
				zap.String("action", string(a.Verb)),
				zap.String("stage", s.engine.Stage().String()),
				zap.Any("panic", r))
			out = s.flush()
			err = errors.Newf(errors.ErrGameStateError, "处理动作 %s 时崩溃", a.Verb)
		}
	}()

	err = s.engine.Handle(a)
	out = s.flush()

	switch {
	case err == nil:
		s.logger.Debug("动作已处理",
			zap.String("action", string(a.Verb)),
			zap.String("stage", s.engine.Stage().String()),
			zap.Int("changes", len(out)))
	case errors.IsIgnored(err):
		s.logger.Debug("动作被忽略", zap.String("action", string(a.Verb)), zap.Error(err))
	default:
		s.logger.Warn("动作处理失败", zap.String("action", string(a.Verb)), zap.Error(err))
	}
	return out, err
}

// Join 由主机身份为连接加入一名玩家
func (s *Session) Join(ctx context.Context, playerID string) ([]controller.Envelope, error) {
	return s.Dispatch(ctx, engine.Action{
		Actor:      s.host,
		Verb:       engine.ActionAddPlayer,
		Parameters: map[string]any{engine.ParamPlayerUUID: playerID},
	})
}

// flush 取出消息并交给对局流水，须持有锁
func (s *Session) flush() []controller.Envelope {
	out := s.engine.Flush()
	s.record(out)
	s.lastActivity = time.Now()
	return out
}

func (s *Session) record(out []controller.Envelope) {
	g := s.engine.Game()
	status, players := g.Status(), g.PlayerCount()
	if s.journal != nil {
		s.journal.Record(out)
		if status != s.status {
			s.journal.Status(status)
		}
		if players != s.players {
			s.journal.Players(players)
		}
	}
	if status != s.status {
		logger.LogGameEvent("status_changed", s.matchID, map[string]interface{}{
			"from":    s.status,
			"to":      status,
			"players": players,
		})
	}
	s.status, s.players = status, players
}

// PossibleActions 玩家当前可执行的动作
func (s *Session) PossibleActions(playerID string) []engine.Verb {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.engine.PossibleActionsFor(playerID)
}

// Snapshot 以变更记录形式返回的完整状态
func (s *Session) Snapshot() []state.Change {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.engine.Snapshot()
}

// View 会话的只读视图
func (s *Session) View() SessionView {
	s.mu.Lock()
	defer s.mu.Unlock()

	g := s.engine.Game()
	view := SessionView{
		MatchID:      s.matchID,
		Stage:        s.engine.Stage().String(),
		Status:       g.Status(),
		Players:      g.Players(),
		PlayerOrder:  g.TurnOrder(),
		LastRoll:     g.LastRoll(),
		Owners:       make(map[int]int),
		StartTime:    s.startTime,
		LastActivity: s.lastActivity,
	}
	if view.PlayerOrder == nil {
		view.PlayerOrder = []int{}
	}
	if view.LastRoll == nil {
		view.LastRoll = []int{}
	}
	if p, ok := g.OnTurn(); ok {
		seat := p.Seat
		view.OnTurn = &seat
	}
	for _, f := range g.Board().Fields() {
		if owner := g.Owner(f.Index); owner != "" {
			if p, ok := g.Player(owner); ok {
				view.Owners[f.Index] = p.Seat
			}
		}
	}
	return view
}

// Close 结束对局并等待对局流水写完
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	if s.journal != nil {
		s.journal.Status(models.MatchStatusFinished)
	}
	s.mu.Unlock()

	if s.journal != nil {
		s.journal.Close()
	}
	logger.LogGameEvent("match_closed", s.matchID, map[string]interface{}{
		"players":  s.players,
		"duration": time.Since(s.startTime).String(),
	})
}
