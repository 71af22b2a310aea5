package repository

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/wfunc/monopoly-server/internal/models"
)

// TestDB 创建迁移好的内存测试数据库，测试结束时关闭
func TestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	// 内存库每个连接都是独立的数据库
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(&models.Match{}, &models.MatchEvent{}))

	t.Cleanup(func() { CleanupTestDB(db) })
	return db
}

// CleanupTestDB 清理测试数据库
func CleanupTestDB(db *gorm.DB) {
	sqlDB, _ := db.DB()
	if sqlDB != nil {
		sqlDB.Close()
	}
}

// SeedMatch 创建一局对局及 n 条广播事件
func SeedMatch(t *testing.T, repo MatchRepository, matchID string, n int) *models.Match {
	t.Helper()
	ctx := context.Background()

	match := &models.Match{MatchID: matchID, Status: models.MatchStatusLobby}
	require.NoError(t, repo.Create(ctx, match))

	events := make([]*models.MatchEvent, n)
	for i := range events {
		value, err := json.Marshal(i * 100)
		require.NoError(t, err)
		events[i] = &models.MatchEvent{
			MatchID:   matchID,
			Sequence:  int64(i + 1),
			Section:   "players",
			Item:      "0",
			Attribute: "cash",
			Value:     value,
		}
	}
	require.NoError(t, repo.AppendEvents(ctx, events))
	return match
}
