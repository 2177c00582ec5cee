package service

import (
	"context"
	"os"
	"testing"

	"pathway_backend/internal/config"
	"pathway_backend/internal/model"
	"pathway_backend/internal/pathway"
	"pathway_backend/internal/util"
	"pathway_backend/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestMain(m *testing.M) {
	logger.Log = zap.NewNop()
	os.Exit(m.Run())
}

// memoryProfileStore 带版本校验的内存档案库
type memoryProfileStore struct {
	profiles map[string]*model.LearnerProfile
	// 前 failSaves 次 Save 强制返回冲突，用于模拟并发写
	failSaves int
	saveCalls int
}

func newMemoryProfileStore() *memoryProfileStore {
	return &memoryProfileStore{profiles: map[string]*model.LearnerProfile{}}
}

func (s *memoryProfileStore) Load(learnerID string) (*model.LearnerProfile, error) {
	stored, ok := s.profiles[learnerID]
	if !ok {
		return nil, nil
	}
	cp := *stored
	cp.Preferences = map[string]string{}
	for k, v := range stored.Preferences {
		cp.Preferences[k] = v
	}
	cp.LOStatus = map[string]model.MasteryStatus{}
	for k, v := range stored.LOStatus {
		cp.LOStatus[k] = v
	}
	cp.History = append([]model.PerformanceEntry{}, stored.History...)
	return &cp, nil
}

func (s *memoryProfileStore) Save(profile *model.LearnerProfile) error {
	s.saveCalls++
	if s.saveCalls <= s.failSaves {
		return util.ErrProfileConflict
	}

	stored, ok := s.profiles[profile.LearnerID]
	if !ok {
		profile.Version = 1
	} else {
		if stored.Version != profile.Version {
			return util.ErrProfileConflict
		}
		profile.Version++
	}

	cp := *profile
	s.profiles[profile.LearnerID] = &cp
	return nil
}

type fixedCatalogProvider struct {
	catalog *pathway.Catalog
	version string
}

func (p *fixedCatalogProvider) Snapshot() (*pathway.Catalog, string, error) {
	return p.catalog, p.version, nil
}

func testCatalog(t *testing.T) *pathway.Catalog {
	t.Helper()
	los := []model.LearningObjective{
		{ID: "lo_a", Subject: "math", Prerequisites: []string{}, Order: 1},
		{ID: "lo_b", Subject: "math", Prerequisites: []string{"lo_a"}, Order: 2},
	}
	items := []model.ContentItem{
		{ID: "vid_a", Title: "Intro video", Type: model.ContentVideo, Difficulty: model.DifficultyEasy, CoveredLOs: []string{"lo_a"}, TargetPreferences: []string{"visual"}, Order: 1},
		{ID: "game_a", Title: "Practice game", Type: model.ContentGame, Difficulty: model.DifficultyMedium, CoveredLOs: []string{"lo_a"}, TargetPreferences: []string{"interactive"}, Order: 2},
		{ID: "ws_b", Title: "Worksheet", Type: model.ContentWorksheet, Difficulty: model.DifficultyEasy, CoveredLOs: []string{"lo_b"}, TargetPreferences: []string{}, Order: 3},
	}
	catalog, err := pathway.BuildCatalog(los, items)
	require.NoError(t, err)
	return catalog
}

func newTestService(t *testing.T, store ProfileStore) *PathwayService {
	t.Helper()
	provider := &fixedCatalogProvider{catalog: testCatalog(t), version: "v1"}
	return NewPathwayService(provider, store, nil, config.EngineConfig{})
}

func TestGenerateSegmentForNewLearner(t *testing.T) {
	store := newMemoryProfileStore()
	svc := newTestService(t, store)

	resp, err := svc.GenerateSegment(context.Background(), "stu_1", 0, 0, false)
	require.NoError(t, err)

	require.Len(t, resp.Entries, 1)
	assert.Equal(t, "lo_a", resp.Entries[0].Objective.ID)
	assert.False(t, resp.Entries[0].Remediation)
	assert.Empty(t, resp.Signal)
	assert.Equal(t, "v1", resp.CatalogVersion)
	// 生成路径不落库
	assert.Empty(t, store.profiles)
}

func TestGenerateSegmentHonorsPreference(t *testing.T) {
	store := newMemoryProfileStore()
	profile := model.NewLearnerProfile("stu_1")
	profile.Preferences[pathway.PreferenceModality] = "visual"
	require.NoError(t, store.Save(profile))

	svc := newTestService(t, store)
	resp, err := svc.GenerateSegment(context.Background(), "stu_1", 1, 2, false)
	require.NoError(t, err)

	require.Len(t, resp.Entries, 1)
	items := resp.Entries[0].Items
	require.Len(t, items, 2)
	assert.Equal(t, "vid_a", items[0].ID)
	assert.Equal(t, "game_a", items[1].ID)
}

func TestGenerateSegmentAllMastered(t *testing.T) {
	store := newMemoryProfileStore()
	profile := model.NewLearnerProfile("stu_1")
	profile.LOStatus["lo_a"] = model.StatusMastered
	profile.LOStatus["lo_b"] = model.StatusMastered
	require.NoError(t, store.Save(profile))

	svc := newTestService(t, store)
	resp, err := svc.GenerateSegment(context.Background(), "stu_1", 1, 2, false)
	require.NoError(t, err)

	assert.Empty(t, resp.Entries)
	assert.Equal(t, string(pathway.SignalNoEligibleObjectives), resp.Signal)
}

func TestGenerateSegmentEnrichment(t *testing.T) {
	store := newMemoryProfileStore()
	profile := model.NewLearnerProfile("stu_1")
	profile.LOStatus["lo_a"] = model.StatusMastered
	profile.LOStatus["lo_b"] = model.StatusMastered
	require.NoError(t, store.Save(profile))

	svc := newTestService(t, store)
	resp, err := svc.GenerateSegment(context.Background(), "stu_1", 2, 2, true)
	require.NoError(t, err)

	require.NotEmpty(t, resp.Entries)
	for _, entry := range resp.Entries {
		assert.True(t, entry.Enrichment)
	}
}

func TestGenerateSegmentReportsContentGaps(t *testing.T) {
	los := []model.LearningObjective{
		{ID: "lo_bare", Subject: "math", Prerequisites: []string{}, Order: 1},
	}
	items := []model.ContentItem{
		// 覆盖校验要求每个内容至少指向一个目标，这里给目标本身
		// 不配任何内容需要一个带内容的第二目标来通过构建
		{ID: "txt_x", Title: "Notes", Type: model.ContentText, Difficulty: model.DifficultyEasy, CoveredLOs: []string{"lo_other"}, TargetPreferences: []string{}, Order: 1},
	}
	los = append(los, model.LearningObjective{ID: "lo_other", Subject: "math", Prerequisites: []string{}, Order: 2})
	catalog, err := pathway.BuildCatalog(los, items)
	require.NoError(t, err)

	svc := NewPathwayService(&fixedCatalogProvider{catalog: catalog, version: "v1"},
		newMemoryProfileStore(), nil, config.EngineConfig{MaxLOsPerSegment: 2})

	resp, err := svc.GenerateSegment(context.Background(), "stu_1", 2, 2, false)
	require.NoError(t, err)

	assert.Equal(t, []string{"lo_bare"}, resp.ContentGaps)
	require.Len(t, resp.Entries, 1)
	assert.Equal(t, "lo_other", resp.Entries[0].Objective.ID)
}

func TestSubmitOutcomeCreatesProfile(t *testing.T) {
	store := newMemoryProfileStore()
	svc := newTestService(t, store)

	status, err := svc.SubmitOutcome(context.Background(), "stu_new", OutcomeRequest{
		LOID: "lo_a", ActivityID: "vid_a", Score: 0.9, Completed: true,
	})
	require.NoError(t, err)
	assert.Equal(t, model.StatusMastered, status)

	stored := store.profiles["stu_new"]
	require.NotNil(t, stored)
	assert.Equal(t, int64(1), stored.Version)
	assert.Equal(t, model.StatusMastered, stored.LOStatus["lo_a"])
	assert.Len(t, stored.History, 1)
}

func TestSubmitOutcomeRetriesOnConflict(t *testing.T) {
	store := newMemoryProfileStore()
	store.failSaves = 1
	svc := newTestService(t, store)

	status, err := svc.SubmitOutcome(context.Background(), "stu_1", OutcomeRequest{
		LOID: "lo_a", ActivityID: "vid_a", Score: 0.3, Completed: true,
	})
	require.NoError(t, err)
	assert.Equal(t, model.StatusStruggling, status)
	assert.Equal(t, 2, store.saveCalls)
	// 重试不会把同一条履历记两次
	assert.Len(t, store.profiles["stu_1"].History, 1)
}

// racingFirstSaveStore 模拟两个首次写入并发：本方第一次 Save 前
// 对手已经插入档案，本方撞唯一键后仓储层报 ErrProfileConflict
type racingFirstSaveStore struct {
	*memoryProfileStore
	raced bool
}

func (s *racingFirstSaveStore) Save(profile *model.LearnerProfile) error {
	if !s.raced {
		s.raced = true
		rival := model.NewLearnerProfile(profile.LearnerID)
		rival.LOStatus["lo_b"] = model.StatusPartial
		if err := s.memoryProfileStore.Save(rival); err != nil {
			return err
		}
		return util.ErrProfileConflict
	}
	return s.memoryProfileStore.Save(profile)
}

func TestSubmitOutcomeRetriesWhenFirstInsertLosesRace(t *testing.T) {
	store := &racingFirstSaveStore{memoryProfileStore: newMemoryProfileStore()}
	svc := newTestService(t, store)

	status, err := svc.SubmitOutcome(context.Background(), "stu_1", OutcomeRequest{
		LOID: "lo_a", ActivityID: "vid_a", Score: 0.9, Completed: true,
	})
	require.NoError(t, err)
	assert.Equal(t, model.StatusMastered, status)

	// 重试后基于对手已落库的档案合并，而不是报 500
	stored := store.profiles["stu_1"]
	require.NotNil(t, stored)
	assert.Equal(t, int64(2), stored.Version)
	assert.Equal(t, model.StatusMastered, stored.LOStatus["lo_a"])
	assert.Equal(t, model.StatusPartial, stored.LOStatus["lo_b"])
	assert.Len(t, stored.History, 1)
}

func TestSubmitOutcomeGivesUpAfterRetries(t *testing.T) {
	store := newMemoryProfileStore()
	store.failSaves = 100
	svc := newTestService(t, store)

	_, err := svc.SubmitOutcome(context.Background(), "stu_1", OutcomeRequest{
		LOID: "lo_a", ActivityID: "vid_a", Score: 0.7, Completed: true,
	})
	assert.ErrorIs(t, err, util.ErrProfileConflict)
	assert.Equal(t, saveRetries, store.saveCalls)
}

func TestSubmitOutcomeRejectsInvalidInput(t *testing.T) {
	store := newMemoryProfileStore()
	svc := newTestService(t, store)

	_, err := svc.SubmitOutcome(context.Background(), "stu_1", OutcomeRequest{
		LOID: "lo_a", ActivityID: "vid_a", Score: 1.5, Completed: true,
	})
	assert.Error(t, err)

	_, err = svc.SubmitOutcome(context.Background(), "stu_1", OutcomeRequest{
		LOID: "lo_missing", ActivityID: "vid_a", Score: 0.5, Completed: true,
	})
	assert.Error(t, err)

	// 两次都校验失败，档案不该被创建
	assert.Empty(t, store.profiles)
	assert.Equal(t, 0, store.saveCalls)
}

func TestReteach(t *testing.T) {
	store := newMemoryProfileStore()
	profile := model.NewLearnerProfile("stu_1")
	profile.LOStatus["lo_a"] = model.StatusMastered
	require.NoError(t, store.Save(profile))

	svc := newTestService(t, store)

	require.NoError(t, svc.Reteach(context.Background(), "stu_1", "lo_a"))
	assert.Equal(t, model.StatusInProgress, store.profiles["stu_1"].LOStatus["lo_a"])

	// 非 mastered 不允许重学
	assert.ErrorIs(t, svc.Reteach(context.Background(), "stu_1", "lo_b"), util.ErrNotMastered)
	// 未知目标
	assert.ErrorIs(t, svc.Reteach(context.Background(), "stu_1", "lo_missing"), util.ErrObjectiveNotFound)
	// 未知学习者
	assert.ErrorIs(t, svc.Reteach(context.Background(), "stu_missing", "lo_a"), util.ErrNotMastered)
}

func TestSubmitThenGenerateRoundTrip(t *testing.T) {
	store := newMemoryProfileStore()
	svc := newTestService(t, store)
	ctx := context.Background()

	status, err := svc.SubmitOutcome(ctx, "stu_1", OutcomeRequest{
		LOID: "lo_a", ActivityID: "vid_a", Score: 0.9, Completed: true,
	})
	require.NoError(t, err)
	require.Equal(t, model.StatusMastered, status)

	resp, err := svc.GenerateSegment(ctx, "stu_1", 1, 2, false)
	require.NoError(t, err)
	require.Len(t, resp.Entries, 1)
	assert.Equal(t, "lo_b", resp.Entries[0].Objective.ID)
}

func TestApplyEngineConfigRejectsInvertedThresholds(t *testing.T) {
	svc := newTestService(t, newMemoryProfileStore())

	svc.ApplyEngineConfig(config.EngineConfig{MasteryThreshold: 0.4, StruggleThreshold: 0.6})
	assert.Equal(t, 0.85, svc.currentEngineCfg().MasteryThreshold)

	svc.ApplyEngineConfig(config.EngineConfig{MasteryThreshold: 0.9, StruggleThreshold: 0.6})
	assert.Equal(t, 0.9, svc.currentEngineCfg().MasteryThreshold)
	assert.Equal(t, 0.6, svc.currentEngineCfg().StruggleThreshold)
}
