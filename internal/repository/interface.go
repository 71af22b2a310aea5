package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/wfunc/monopoly-server/internal/errors"
)

// 分页限制，与查询接口的参数校验保持一致
const (
	DefaultPageSize = 10
	MaxPageSize     = 100
)

// BaseRepository 基础仓储接口
type BaseRepository interface {
	// GetDB 获取数据库实例
	GetDB() *gorm.DB
	// Transaction 在事务中执行，fn 返回错误时整体回滚
	Transaction(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Pagination 分页参数，查询后回填总数
type Pagination struct {
	Page     int   `json:"page"`
	PageSize int   `json:"page_size"`
	Total    int64 `json:"total"`
}

// NewPagination 创建分页参数，越界的值收敛到默认值或上限
func NewPagination(page, pageSize int) *Pagination {
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	if pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}
	return &Pagination{
		Page:     page,
		PageSize: pageSize,
	}
}

// Offset 计算偏移量
func (p *Pagination) Offset() int {
	return (p.Page - 1) * p.PageSize
}

// Pages 总页数
func (p *Pagination) Pages() int {
	if p.Total == 0 {
		return 0
	}
	return int((p.Total + int64(p.PageSize) - 1) / int64(p.PageSize))
}

// Paginate 分页查询
func Paginate(p *Pagination) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Offset(p.Offset()).Limit(p.PageSize)
	}
}

// findPage 统计 query 的总数并取出当前页；query 需已带上 Model 与条件
func findPage(query *gorm.DB, p *Pagination, order string, dest interface{}) error {
	base := query.Session(&gorm.Session{})
	if err := base.Count(&p.Total).Error; err != nil {
		return errors.Wrap(err, errors.ErrDatabaseQuery, "统计失败")
	}
	if err := base.Order(order).Scopes(Paginate(p)).Find(dest).Error; err != nil {
		return errors.Wrap(err, errors.ErrDatabaseQuery, "分页查询失败")
	}
	return nil
}

// BaseRepo 基础仓储实现
type BaseRepo struct {
	db *gorm.DB
}

// NewBaseRepo 创建基础仓储
func NewBaseRepo(db *gorm.DB) *BaseRepo {
	return &BaseRepo{db: db}
}

// GetDB 获取数据库实例
func (r *BaseRepo) GetDB() *gorm.DB {
	return r.db
}

// Transaction 执行事务。fn 返回的业务错误保留原错误码，其余归为更新失败
func (r *BaseRepo) Transaction(ctx context.Context, fn func(tx *gorm.DB) error) error {
	if err := r.db.WithContext(ctx).Transaction(fn); err != nil {
		if _, ok := err.(*errors.AppError); ok {
			return err
		}
		return errors.Wrap(err, errors.ErrDatabaseUpdate, "事务执行失败")
	}
	return nil
}
