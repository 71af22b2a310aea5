package game

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/wfunc/monopoly-server/internal/game/controller"
	"github.com/wfunc/monopoly-server/internal/logger"
	"github.com/wfunc/monopoly-server/internal/models"
	"github.com/wfunc/monopoly-server/internal/repository"
)

const (
	defaultJournalBuffer = 256
	journalWriteTimeout  = 5 * time.Second
)

// journalEntry 一次写入任务，players < 0 表示人数未变化
type journalEntry struct {
	events  []*models.MatchEvent
	status  string
	players int
}

// Journal 对局流水。投递给客户端的变更记录经缓冲通道交给后台协程写库，
// 阶段处理过程中不发生任何存储 I/O。
type Journal struct {
	repo    repository.MatchRepository
	matchID string
	logger  *zap.Logger

	mu      sync.Mutex
	closed  bool
	entries chan journalEntry
	done    chan struct{}

	seq     int64 // 仅在会话锁内递增
	dropped atomic.Int64
}

// NewJournal 创建对局流水，buffer 为缓冲的写入任务数
func NewJournal(repo repository.MatchRepository, matchID string, buffer int, log *zap.Logger) *Journal {
	if buffer <= 0 {
		buffer = defaultJournalBuffer
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Journal{
		repo:    repo,
		matchID: matchID,
		logger:  log.With(zap.String("match_id", matchID)),
		entries: make(chan journalEntry, buffer),
		done:    make(chan struct{}),
	}
}

// Open 创建对局记录并启动后台写入
func (j *Journal) Open(ctx context.Context, match *models.Match) error {
	match.MatchID = j.matchID
	if err := j.repo.Create(ctx, match); err != nil {
		return err
	}
	go j.run()
	return nil
}

// Record 排队一批已投递的变更记录，缓冲已满时丢弃并告警
func (j *Journal) Record(batch []controller.Envelope) {
	if len(batch) == 0 {
		return
	}

	events := make([]*models.MatchEvent, 0, len(batch))
	for _, env := range batch {
		value, err := json.Marshal(env.Value)
		if err != nil {
			j.logger.Warn("变更值无法序列化",
				zap.String("section", string(env.Section)),
				zap.Any("item", env.Item),
				zap.Error(err))
			value = nil
		}
		j.seq++
		events = append(events, &models.MatchEvent{
			MatchID:   j.matchID,
			Sequence:  j.seq,
			Recipient: env.To,
			Section:   string(env.Section),
			Item:      fmt.Sprint(env.Item),
			Attribute: env.Attribute,
			Value:     value,
		})
	}
	j.enqueue(journalEntry{events: events, players: -1})
}

// Status 排队对局状态变更
func (j *Journal) Status(status string) {
	j.enqueue(journalEntry{status: status, players: -1})
}

// Players 排队入座人数变更
func (j *Journal) Players(n int) {
	j.enqueue(journalEntry{players: n})
}

// Dropped 因缓冲已满被丢弃的写入任务数
func (j *Journal) Dropped() int64 {
	return j.dropped.Load()
}

func (j *Journal) enqueue(e journalEntry) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.closed {
		return
	}

	select {
	case j.entries <- e:
	default:
		j.dropped.Add(1)
		j.logger.Warn("对局流水缓冲已满，丢弃记录",
			zap.Int("events", len(e.events)),
			zap.String("status", e.status))
	}
}

// Close 停止接收并等待已排队的记录写完
func (j *Journal) Close() {
	j.mu.Lock()
	if j.closed {
		j.mu.Unlock()
		return
	}
	j.closed = true
	close(j.entries)
	j.mu.Unlock()

	<-j.done
}

func (j *Journal) run() {
	defer close(j.done)
	for e := range j.entries {
		ctx, cancel := context.WithTimeout(context.Background(), journalWriteTimeout)
		j.write(ctx, e)
		cancel()
	}
}

func (j *Journal) write(ctx context.Context, e journalEntry) {
	if len(e.events) > 0 {
		start := time.Now()
		err := j.repo.AppendEvents(ctx, e.events)
		logger.LogDatabaseOperation("append_events", "match_events", time.Since(start), err)
	}
	if e.status != "" {
		start := time.Now()
		err := j.repo.UpdateStatus(ctx, j.matchID, e.status)
		logger.LogDatabaseOperation("update_status", "matches", time.Since(start), err)
	}
	if e.players >= 0 {
		start := time.Now()
		err := j.repo.UpdatePlayers(ctx, j.matchID, e.players)
		logger.LogDatabaseOperation("update_players", "matches", time.Since(start), err)
	}
}
