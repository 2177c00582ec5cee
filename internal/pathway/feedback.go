package pathway

import (
	"time"

	"pathway_backend/internal/model"
)

// Thresholds 掌握判定阈值。0.85/0.50 是默认值，可由配置覆盖。
type Thresholds struct {
	Mastery  float64 // score >= Mastery -> mastered
	Struggle float64 // score <  Struggle -> struggling
}

func DefaultThresholds() Thresholds {
	return Thresholds{Mastery: 0.85, Struggle: 0.50}
}

// Outcome 一次活动结果，分数已归一化到 [0,1]
type Outcome struct {
	ActivityID string
	LOID       string
	Score      float64
	Completed  bool
	At         time.Time
}

// FeedbackProcessor 把活动结果翻译成掌握状态迁移
type FeedbackProcessor struct {
	catalog    *Catalog
	thresholds Thresholds
}

func NewFeedbackProcessor(catalog *Catalog, thresholds Thresholds) *FeedbackProcessor {
	if thresholds.Mastery <= 0 {
		thresholds = DefaultThresholds()
	}
	return &FeedbackProcessor{catalog: catalog, thresholds: thresholds}
}

// Process 校验结果、追加履历并应用状态机，返回该目标的新状态。
// 校验全部发生在任何修改之前：非法结果不会在档案上留下痕迹。
// 合法结果无论是否改变状态都会进履历，保证审计链完整。
// 已 mastered 的目标保持 mastered（常规流程单调，重学走显式接口）。
func (p *FeedbackProcessor) Process(st *LearnerState, out Outcome) (model.MasteryStatus, error) {
	if out.Score < 0 || out.Score > 1 {
		return "", &ValidationError{Field: "score", Reason: "must be within [0,1]"}
	}
	if out.LOID == "" {
		return "", &ValidationError{Field: "loId", Reason: "required"}
	}
	if p.catalog.LOByID(out.LOID) == nil {
		return "", &ValidationError{Field: "loId", Reason: "unknown objective " + out.LOID}
	}

	at := out.At
	if at.IsZero() {
		at = time.Now()
	}
	st.RecordOutcome(model.PerformanceEntry{
		ActivityID: out.ActivityID,
		LOID:       out.LOID,
		Score:      out.Score,
		Completed:  out.Completed,
		Timestamp:  at,
	})

	current := st.StatusOf(out.LOID)
	if current == model.StatusMastered {
		return model.StatusMastered, nil
	}

	// 首次结果先把目标拉进 in_progress，再按同一套阈值评定本次分数
	if current == model.StatusNotStarted {
		st.SetStatus(out.LOID, model.StatusInProgress)
	}

	next := p.evaluate(out.Score)
	st.SetStatus(out.LOID, next)
	return next, nil
}

func (p *FeedbackProcessor) evaluate(score float64) model.MasteryStatus {
	switch {
	case score >= p.thresholds.Mastery:
		return model.StatusMastered
	case score < p.thresholds.Struggle:
		return model.StatusStruggling
	default:
		return model.StatusPartial
	}
}
