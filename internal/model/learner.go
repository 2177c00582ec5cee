package model

import (
	"time"
)

// MasteryStatus 单个学习目标上的掌握状态
type MasteryStatus string

const (
	StatusNotStarted MasteryStatus = "not_started"
	StatusInProgress MasteryStatus = "in_progress"
	StatusStruggling MasteryStatus = "struggling"
	StatusPartial    MasteryStatus = "partial"
	StatusMastered   MasteryStatus = "mastered"
)

func (s MasteryStatus) Valid() bool {
	switch s {
	case StatusNotStarted, StatusInProgress, StatusStruggling, StatusPartial, StatusMastered:
		return true
	}
	return false
}

// LearnerProfile 学习者档案。Version 用于乐观并发控制：
// 保存时 WHERE version = 旧值，未命中说明档案已被并发修改。
type LearnerProfile struct {
	LearnerID   string                   `gorm:"primaryKey;type:varchar(64)" json:"learnerId"`
	Preferences map[string]string        `gorm:"serializer:json;type:json" json:"preferences"`
	LOStatus    map[string]MasteryStatus `gorm:"serializer:json;type:json" json:"loStatus"`
	Version     int64                    `gorm:"not null;default:0" json:"version"`
	History     []PerformanceEntry       `gorm:"foreignKey:LearnerID;references:LearnerID" json:"history,omitempty"`
	CreatedAt   time.Time                `json:"createdAt"`
	UpdatedAt   time.Time                `json:"updatedAt"`
}

func (LearnerProfile) TableName() string {
	return "learner_profiles"
}

// NewLearnerProfile 首次见到某学习者时创建空档案
func NewLearnerProfile(learnerID string) *LearnerProfile {
	return &LearnerProfile{
		LearnerID:   learnerID,
		Preferences: map[string]string{},
		LOStatus:    map[string]MasteryStatus{},
	}
}

// PerformanceEntry 活动结果日志，只追加不修改
type PerformanceEntry struct {
	ID         uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	LearnerID  string    `gorm:"index;type:varchar(64);not null" json:"learnerId"`
	ActivityID string    `gorm:"type:varchar(36);not null" json:"activityId"`
	LOID       string    `gorm:"column:lo_id;index;type:varchar(36);not null" json:"loId"`
	Score      float64   `gorm:"not null" json:"score"`
	Completed  bool      `gorm:"not null" json:"completed"`
	Timestamp  time.Time `gorm:"not null" json:"timestamp"`
}

func (PerformanceEntry) TableName() string {
	return "performance_entries"
}
