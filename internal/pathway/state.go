package pathway

import (
	"pathway_backend/internal/model"
)

// PreferenceModality 档案里主导形态偏好所在的类别键
const PreferenceModality = "modality"

// LearnerState 档案的类型化读写入口。所有修改只作用于内存中的
// 档案对象，持久化由调用方显式触发。
type LearnerState struct {
	profile *model.LearnerProfile
}

func NewLearnerState(profile *model.LearnerProfile) *LearnerState {
	if profile.LOStatus == nil {
		profile.LOStatus = map[string]model.MasteryStatus{}
	}
	if profile.Preferences == nil {
		profile.Preferences = map[string]string{}
	}
	return &LearnerState{profile: profile}
}

func (s *LearnerState) Profile() *model.LearnerProfile {
	return s.profile
}

// StatusOf 缺省为 not_started
func (s *LearnerState) StatusOf(loID string) model.MasteryStatus {
	if st, ok := s.profile.LOStatus[loID]; ok {
		return st
	}
	return model.StatusNotStarted
}

func (s *LearnerState) SetStatus(loID string, status model.MasteryStatus) {
	s.profile.LOStatus[loID] = status
}

// RecordOutcome 追加一条履历，履历只增不删
func (s *LearnerState) RecordOutcome(entry model.PerformanceEntry) {
	entry.LearnerID = s.profile.LearnerID
	s.profile.History = append(s.profile.History, entry)
}

func (s *LearnerState) Preference(category string) (string, bool) {
	v, ok := s.profile.Preferences[category]
	return v, ok
}

// LastEntryFor 该目标最近一条履历，没有则返回 nil。
// 履历按时间顺序追加，从尾部找第一条即可。
func (s *LearnerState) LastEntryFor(loID string) *model.PerformanceEntry {
	for i := len(s.profile.History) - 1; i >= 0; i-- {
		if s.profile.History[i].LOID == loID {
			return &s.profile.History[i]
		}
	}
	return nil
}

// lastEntryIndex 该目标最近一条履历在日志中的序号，用于补救排序；-1 表示无履历
func (s *LearnerState) lastEntryIndex(loID string) int {
	for i := len(s.profile.History) - 1; i >= 0; i-- {
		if s.profile.History[i].LOID == loID {
			return i
		}
	}
	return -1
}
