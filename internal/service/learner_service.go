package service

import (
	"pathway_backend/internal/model"
	"pathway_backend/internal/repository"
	"pathway_backend/internal/util"
	"pathway_backend/pkg/monitoring"
)

// LearnerService 学习者档案的读写。档案由结果提交隐式创建，
// 这里对未知学习者返回空档案而不是 404。
type LearnerService struct {
	Repo *repository.ProfileRepository
}

func NewLearnerService(repo *repository.ProfileRepository) *LearnerService {
	return &LearnerService{Repo: repo}
}

// GetProfile 未知学习者返回零值档案（version 0，未落库）
func (s *LearnerService) GetProfile(learnerID string) (*model.LearnerProfile, error) {
	profile, err := s.Repo.Load(learnerID)
	if err != nil {
		return nil, err
	}
	if profile == nil {
		profile = model.NewLearnerProfile(learnerID)
	}
	return profile, nil
}

// UpdatePreferences 覆盖式写偏好，与结果提交共用乐观锁
func (s *LearnerService) UpdatePreferences(learnerID string, prefs map[string]string) (*model.LearnerProfile, error) {
	var lastErr error
	for attempt := 0; attempt < saveRetries; attempt++ {
		profile, err := s.Repo.Load(learnerID)
		if err != nil {
			return nil, err
		}
		if profile == nil {
			profile = model.NewLearnerProfile(learnerID)
		}

		for k, v := range prefs {
			profile.Preferences[k] = v
		}

		if err := s.Repo.Save(profile); err != nil {
			if err == util.ErrProfileConflict {
				monitoring.SaveConflicts.Inc()
				lastErr = err
				continue
			}
			return nil, err
		}
		return profile, nil
	}
	return nil, lastErr
}

// History 分页的成绩履历，最近在前
func (s *LearnerService) History(learnerID string, page, limit int) ([]model.PerformanceEntry, int64, error) {
	return s.Repo.History(learnerID, page, limit)
}
