package model

import (
	"time"

	"gorm.io/gorm"
)

// Difficulty 内容难度（序数：easy < medium < hard）
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// DifficultyRank 难度排序权重，选择器按该权重升序取题
var DifficultyRank = map[Difficulty]int{
	DifficultyEasy:   0,
	DifficultyMedium: 1,
	DifficultyHard:   2,
}

func (d Difficulty) Valid() bool {
	_, ok := DifficultyRank[d]
	return ok
}

// ContentType 内容形态
type ContentType string

const (
	ContentGame      ContentType = "game"
	ContentVideo     ContentType = "video"
	ContentWorksheet ContentType = "worksheet"
	ContentText      ContentType = "text"
	ContentQuiz      ContentType = "quiz"
)

var validContentTypes = map[ContentType]bool{
	ContentGame:      true,
	ContentVideo:     true,
	ContentWorksheet: true,
	ContentText:      true,
	ContentQuiz:      true,
}

func (t ContentType) Valid() bool {
	return validContentTypes[t]
}

// LearningObjective 学习目标，课程图谱的原子单元。
// Prerequisites 形成有向无环图，快照构建时校验。
type LearningObjective struct {
	ID            string         `gorm:"primaryKey;type:varchar(36)" json:"id"`
	Subject       string         `gorm:"size:100;not null" json:"subject"`
	Strand        string         `gorm:"size:100" json:"strand"`
	Description   string         `gorm:"type:text" json:"description"`
	Prerequisites []string       `gorm:"serializer:json;type:json" json:"prerequisites"`
	Order         int            `gorm:"column:display_order;default:0" json:"order"`
	CreatedAt     time.Time      `json:"createdAt"`
	UpdatedAt     time.Time      `json:"updatedAt"`
	DeletedAt     gorm.DeletedAt `gorm:"index" json:"-"`
}

func (LearningObjective) TableName() string {
	return "learning_objectives"
}

// ContentItem 具体学习资源（活动），可覆盖多个学习目标
type ContentItem struct {
	ID                string         `gorm:"primaryKey;type:varchar(36)" json:"id"`
	Title             string         `gorm:"size:255;not null" json:"title"`
	Type              ContentType    `gorm:"size:50;not null" json:"type"`
	Difficulty        Difficulty     `gorm:"size:20;not null" json:"difficulty"`
	CoveredLOs        []string       `gorm:"serializer:json;type:json" json:"coveredLos"`
	TargetPreferences []string       `gorm:"serializer:json;type:json" json:"targetPreferences"`
	AssetKey          string         `gorm:"size:500" json:"assetKey"` // 附件在对象存储中的 key，可为空
	Order             int            `gorm:"column:display_order;default:0" json:"order"`
	CreatedAt         time.Time      `json:"createdAt"`
	UpdatedAt         time.Time      `json:"updatedAt"`
	DeletedAt         gorm.DeletedAt `gorm:"index" json:"-"`
}

func (ContentItem) TableName() string {
	return "content_items"
}
