package database

import (
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/wfunc/monopoly-server/internal/errors"
	"github.com/wfunc/monopoly-server/internal/logger"
	"github.com/wfunc/monopoly-server/internal/models"
)

// AutoMigrate 迁移全局数据库
func AutoMigrate() error {
	if DB == nil {
		return errors.New(errors.ErrDatabaseConnect, "数据库未初始化")
	}
	return Migrate(DB, logger.GetModuleLogger("database"))
}

// Migrate 迁移对局流水表。SQLite 文件库在迁移期间持有文件锁，避免多个进程同时迁移。
func Migrate(db *gorm.DB, log *zap.Logger) error {
	if path := sqlitePath(db); path != "" {
		CleanupStaleLocks(path, log)
		lockFile, err := acquireMigrationLock(path, log)
		if err != nil {
			log.Error("无法获取迁移锁", zap.Error(err))
			return errors.Wrap(err, errors.ErrDatabaseQuery, "获取迁移锁失败")
		}
		defer releaseMigrationLock(lockFile, log)
	}

	log.Info("开始数据库迁移...")
	for _, model := range []interface{}{
		&models.Match{},
		&models.MatchEvent{},
	} {
		if err := db.AutoMigrate(model); err != nil {
			log.Error("迁移失败",
				zap.String("model", fmt.Sprintf("%T", model)),
				zap.Error(err),
			)
			return errors.Wrap(err, errors.ErrDatabaseQuery, "迁移失败")
		}
		log.Debug("迁移成功", zap.String("model", fmt.Sprintf("%T", model)))
	}
	log.Info("数据库迁移完成")
	return nil
}
