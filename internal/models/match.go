package models

import (
	"time"
)

// 对局状态
const (
	MatchStatusLobby    = "lobby"
	MatchStatusPlaying  = "playing"
	MatchStatusFinished = "finished"
)

// Match 对局记录，仅用于审计回放，不支持从中恢复对局
type Match struct {
	BaseModel
	MatchID    string     `gorm:"uniqueIndex;size:64;not null" json:"match_id"`
	Status     string     `gorm:"size:20;default:'lobby';index" json:"status"`
	Players    int        `gorm:"default:0" json:"players"`
	Seed       int64      `json:"seed"`
	Rules      JSONData   `gorm:"type:text" json:"rules"`
	StartedAt  *time.Time `json:"started_at,omitempty"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

// TableName 指定表名
func (Match) TableName() string {
	return "matches"
}

// MatchEvent 投递给客户端的一条变更或事件
type MatchEvent struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	MatchID   string    `gorm:"size:64;not null;uniqueIndex:idx_match_events_seq,priority:1" json:"match_id"`
	Sequence  int64     `gorm:"not null;uniqueIndex:idx_match_events_seq,priority:2" json:"sequence"`
	Recipient string    `gorm:"size:64" json:"recipient,omitempty"` // 空表示广播
	Section   string    `gorm:"size:16;not null;index" json:"section"`
	Item      string    `gorm:"size:32" json:"item"`
	Attribute string    `gorm:"size:32" json:"attribute,omitempty"`
	Value     RawJSON   `gorm:"type:text" json:"value"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName 指定表名
func (MatchEvent) TableName() string {
	return "match_events"
}
