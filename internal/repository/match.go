package repository

import (
	"context"
	stderrors "errors"
	"time"

	"gorm.io/gorm"

	"github.com/wfunc/monopoly-server/internal/errors"
	"github.com/wfunc/monopoly-server/internal/models"
)

// eventBatchSize 批量写入事件的单批条数
const eventBatchSize = 200

// MatchRepository 对局流水仓储接口
type MatchRepository interface {
	BaseRepository
	Create(ctx context.Context, match *models.Match) error
	UpdateStatus(ctx context.Context, matchID, status string) error
	UpdatePlayers(ctx context.Context, matchID string, players int) error
	AppendEvents(ctx context.Context, events []*models.MatchEvent) error
	FindByMatchID(ctx context.Context, matchID string) (*models.Match, error)
	List(ctx context.Context, p *Pagination) ([]*models.Match, error)
	ListEvents(ctx context.Context, matchID string, p *Pagination) ([]*models.MatchEvent, error)
	LastSequence(ctx context.Context, matchID string) (int64, error)
}

// matchRepo 对局流水仓储实现
type matchRepo struct {
	*BaseRepo
}

// NewMatchRepository 创建对局流水仓储
func NewMatchRepository(db *gorm.DB) MatchRepository {
	return &matchRepo{
		BaseRepo: NewBaseRepo(db),
	}
}

// Create 创建对局
func (r *matchRepo) Create(ctx context.Context, match *models.Match) error {
	if err := r.db.WithContext(ctx).Create(match).Error; err != nil {
		return errors.Wrap(err, errors.ErrDatabaseInsert, "创建对局失败")
	}
	return nil
}

// UpdateStatus 更新对局状态，进入对局与结束时记录时间
func (r *matchRepo) UpdateStatus(ctx context.Context, matchID, status string) error {
	updates := map[string]interface{}{"status": status}
	now := time.Now()
	switch status {
	case models.MatchStatusPlaying:
		updates["started_at"] = now
	case models.MatchStatusFinished:
		updates["finished_at"] = now
	}
	return r.update(ctx, matchID, updates)
}

// UpdatePlayers 更新入座人数
func (r *matchRepo) UpdatePlayers(ctx context.Context, matchID string, players int) error {
	return r.update(ctx, matchID, map[string]interface{}{"players": players})
}

func (r *matchRepo) update(ctx context.Context, matchID string, updates map[string]interface{}) error {
	result := r.db.WithContext(ctx).
		Model(&models.Match{}).
		Where("match_id = ?", matchID).
		Updates(updates)
	if result.Error != nil {
		return errors.Wrap(result.Error, errors.ErrDatabaseUpdate, matchID)
	}
	if result.RowsAffected == 0 {
		return errors.New(errors.ErrNotFound, matchID)
	}
	return nil
}

// AppendEvents 在一个事务内追加事件并刷新对局的更新时间，任一条失败则整批回滚
func (r *matchRepo) AppendEvents(ctx context.Context, events []*models.MatchEvent) error {
	if len(events) == 0 {
		return nil
	}
	matchID := events[0].MatchID
	return r.Transaction(ctx, func(tx *gorm.DB) error {
		result := tx.Model(&models.Match{}).
			Where("match_id = ?", matchID).
			Update("updated_at", time.Now())
		if result.Error != nil {
			return errors.Wrap(result.Error, errors.ErrDatabaseUpdate, matchID)
		}
		if result.RowsAffected == 0 {
			return errors.New(errors.ErrNotFound, matchID)
		}
		if err := tx.CreateInBatches(events, eventBatchSize).Error; err != nil {
			return errors.Wrap(err, errors.ErrDatabaseInsert, "写入对局事件失败")
		}
		return nil
	})
}

// FindByMatchID 根据对局标识查找
func (r *matchRepo) FindByMatchID(ctx context.Context, matchID string) (*models.Match, error) {
	var match models.Match
	err := r.db.WithContext(ctx).
		Where("match_id = ?", matchID).
		First(&match).Error
	if stderrors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errors.New(errors.ErrNotFound, matchID)
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrDatabaseQuery, matchID)
	}
	return &match, nil
}

// List 按创建时间倒序分页列出对局
func (r *matchRepo) List(ctx context.Context, p *Pagination) ([]*models.Match, error) {
	var matches []*models.Match
	query := r.db.WithContext(ctx).Model(&models.Match{})
	if err := findPage(query, p, "created_at desc, id desc", &matches); err != nil {
		return nil, err
	}
	return matches, nil
}

// ListEvents 按序号分页列出对局事件
func (r *matchRepo) ListEvents(ctx context.Context, matchID string, p *Pagination) ([]*models.MatchEvent, error) {
	var events []*models.MatchEvent
	query := r.db.WithContext(ctx).
		Model(&models.MatchEvent{}).
		Where("match_id = ?", matchID)
	if err := findPage(query, p, "sequence asc", &events); err != nil {
		return nil, err
	}
	return events, nil
}

// LastSequence 对局最后一条事件的序号，没有事件时为 0
func (r *matchRepo) LastSequence(ctx context.Context, matchID string) (int64, error) {
	var last int64
	err := r.db.WithContext(ctx).
		Model(&models.MatchEvent{}).
		Where("match_id = ?", matchID).
		Select("COALESCE(MAX(sequence), 0)").
		Scan(&last).Error
	if err != nil {
		return 0, errors.Wrap(err, errors.ErrDatabaseQuery, matchID)
	}
	return last, nil
}
