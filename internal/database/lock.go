package database

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	lockSuffix   = ".migration.lock"
	lockAttempts = 30
	lockStale    = 5 * time.Minute
)

// acquireMigrationLock 获取迁移锁
func acquireMigrationLock(dbPath string, log *zap.Logger) (*os.File, error) {
	lockPath := dbPath + lockSuffix

	for i := 0; i < lockAttempts; i++ {
		lockFile, err := os.OpenFile(lockPath, os.O_CREATE|os.O_EXCL|os.O_RDWR, 0o644)
		if err == nil {
			log.Debug("获取迁移锁成功", zap.String("lock", lockPath))
			return lockFile, nil
		}

		if info, err := os.Stat(lockPath); err == nil && time.Since(info.ModTime()) > lockStale {
			log.Warn("迁移锁文件过期，尝试删除", zap.String("lock", lockPath))
			os.Remove(lockPath)
			continue
		}

		log.Debug("等待迁移锁...", zap.Int("attempt", i+1))
		time.Sleep(time.Second)
	}

	return nil, fmt.Errorf("无法获取迁移锁，可能有其他进程正在执行迁移: %s", lockPath)
}

// releaseMigrationLock 释放迁移锁
func releaseMigrationLock(lockFile *os.File, log *zap.Logger) {
	if lockFile == nil {
		return
	}
	lockPath := lockFile.Name()
	lockFile.Close()
	os.Remove(lockPath)
	log.Debug("释放迁移锁", zap.String("lock", lockPath))
}

// sqlitePath SQLite 数据库文件路径，内存库与其他驱动返回空
func sqlitePath(db *gorm.DB) string {
	if db == nil || db.Dialector.Name() != "sqlite" {
		return ""
	}
	sqlDB, err := db.DB()
	if err != nil {
		return ""
	}
	var (
		seq        int
		name, file string
	)
	if err := sqlDB.QueryRow("PRAGMA database_list").Scan(&seq, &name, &file); err != nil {
		return ""
	}
	return file
}

// CleanupStaleLocks 清理数据库文件旁过期的锁文件
func CleanupStaleLocks(dbPath string, log *zap.Logger) {
	matches, _ := filepath.Glob(dbPath + "*" + lockSuffix)
	for _, lockFile := range matches {
		if info, err := os.Stat(lockFile); err == nil && time.Since(info.ModTime()) > 2*lockStale {
			log.Info("清理过期锁文件", zap.String("file", lockFile))
			os.Remove(lockFile)
		}
	}
}
