package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"pathway_backend/internal/config"
	"pathway_backend/internal/model"
	"pathway_backend/internal/pathway"
	"pathway_backend/internal/util"
	"pathway_backend/pkg/logger"
	"pathway_backend/pkg/monitoring"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// 乐观锁冲突的重试次数。学习者之间相互独立，冲突只来自同一
// 学习者的并发提交，重试几次就够了。
const saveRetries = 3

// CatalogProvider 在线课程快照来源
type CatalogProvider interface {
	Snapshot() (*pathway.Catalog, string, error)
}

// ProfileStore 档案读写契约。Load 未知学习者返回 (nil, nil)；
// Save 在版本落后时返回 util.ErrProfileConflict。
type ProfileStore interface {
	Load(learnerID string) (*model.LearnerProfile, error)
	Save(profile *model.LearnerProfile) error
}

// PathwayService 路径生成与结果回流的编排层：引擎本身无 I/O，
// 这里负责取快照、取档案、跑引擎、落库和缓存。
type PathwayService struct {
	Catalogs CatalogProvider
	Profiles ProfileStore
	Redis    *redis.Client // 可为 nil（测试或未配置缓存）

	mu        sync.RWMutex
	engineCfg config.EngineConfig
}

func NewPathwayService(catalogs CatalogProvider, profiles ProfileStore, rdb *redis.Client, engineCfg config.EngineConfig) *PathwayService {
	config.ApplyEngineDefaults(&engineCfg)
	return &PathwayService{
		Catalogs:  catalogs,
		Profiles:  profiles,
		Redis:     rdb,
		engineCfg: engineCfg,
	}
}

// ApplyEngineConfig 配置热更新入口（configwatcher 回调）
func (s *PathwayService) ApplyEngineConfig(engineCfg config.EngineConfig) {
	config.ApplyEngineDefaults(&engineCfg)
	if engineCfg.StruggleThreshold >= engineCfg.MasteryThreshold {
		logger.Log.Error("rejecting engine config reload: struggle threshold above mastery threshold",
			zap.Float64("mastery", engineCfg.MasteryThreshold),
			zap.Float64("struggle", engineCfg.StruggleThreshold))
		return
	}
	s.mu.Lock()
	s.engineCfg = engineCfg
	s.mu.Unlock()
	logger.Log.Info("engine config reloaded",
		zap.Float64("masteryThreshold", engineCfg.MasteryThreshold),
		zap.Float64("struggleThreshold", engineCfg.StruggleThreshold))
}

func (s *PathwayService) currentEngineCfg() config.EngineConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.engineCfg
}

// SegmentEntry 一段路径里的一个目标及其选中的活动
type SegmentEntry struct {
	Objective   model.LearningObjective `json:"objective"`
	Items       []model.ContentItem     `json:"items"`
	Remediation bool                    `json:"remediation"`
	Enrichment  bool                    `json:"enrichment,omitempty"`
}

// SegmentResponse 一次路径请求的完整结果。Signal 标记空结果的
// 原因（课程学完/无内容），是正常终态而不是错误。
type SegmentResponse struct {
	LearnerID      string         `json:"learnerId"`
	CatalogVersion string         `json:"catalogVersion"`
	Entries        []SegmentEntry `json:"entries"`
	ContentGaps    []string       `json:"contentGaps,omitempty"`
	Signal         string         `json:"signal,omitempty"`
}

// GenerateSegment 生成下一段学习路径。整个计算跑在课程快照和
// 档案的一次性读取之上，调用内原子。结果按（学习者、档案版本、
// 快照版本、参数）缓存，档案一变键就变，无需显式失效。
func (s *PathwayService) GenerateSegment(ctx context.Context, learnerID string, maxLOs, maxItems int, includeEnrichment bool) (*SegmentResponse, error) {
	catalog, catalogVersion, err := s.Catalogs.Snapshot()
	if err != nil {
		return nil, err
	}

	cfg := s.currentEngineCfg()
	if maxLOs <= 0 {
		maxLOs = cfg.MaxLOsPerSegment
	}
	if maxItems <= 0 {
		maxItems = cfg.MaxItemsPerLO
	}

	profile, err := s.Profiles.Load(learnerID)
	if err != nil {
		return nil, err
	}
	if profile == nil {
		// 首次见到该学习者：空档案参与计算，首个结果提交时才落库
		profile = model.NewLearnerProfile(learnerID)
	}

	cacheKey := fmt.Sprintf("pathway:segment:%s:%s:%d:%d:%d:%t",
		learnerID, catalogVersion, profile.Version, maxLOs, maxItems, includeEnrichment)
	if cached := s.cacheGet(ctx, cacheKey); cached != nil {
		return cached, nil
	}

	st := pathway.NewLearnerState(profile)
	resolver := pathway.NewResolver(catalog)
	selectorCfg := pathway.DefaultSelectorConfig()
	selectorCfg.MaxItems = maxItems
	selector := pathway.NewSelector(catalog, selectorCfg)

	resp := &SegmentResponse{
		LearnerID:      learnerID,
		CatalogVersion: catalogVersion,
		Entries:        []SegmentEntry{},
	}

	eligible := resolver.Eligible(st)
	if len(eligible) == 0 {
		resp.Signal = string(pathway.SignalNoEligibleObjectives)
		monitoring.EmptySignals.WithLabelValues(resp.Signal).Inc()
	}

	for _, lo := range eligible {
		if len(resp.Entries) >= maxLOs {
			break
		}
		items, sig := selector.Select(lo.ID, st, maxItems)
		if sig == pathway.SignalNoContentAvailable {
			// 越过无内容的目标，但把缺口标出来给课程作者
			resp.ContentGaps = append(resp.ContentGaps, lo.ID)
			monitoring.EmptySignals.WithLabelValues(string(sig)).Inc()
			continue
		}
		status := st.StatusOf(lo.ID)
		resp.Entries = append(resp.Entries, SegmentEntry{
			Objective:   lo,
			Items:       items,
			Remediation: status == model.StatusStruggling || status == model.StatusPartial,
		})
	}

	if len(resp.Entries) == 0 && resp.Signal == "" {
		// 有可选目标但全部没有内容
		resp.Signal = string(pathway.SignalNoContentAvailable)
	}

	if includeEnrichment {
		for _, lo := range resolver.Enrichment(st) {
			if len(resp.Entries) >= maxLOs*2 {
				break
			}
			items, sig := selector.Select(lo.ID, st, maxItems)
			if sig == pathway.SignalNoContentAvailable {
				continue
			}
			resp.Entries = append(resp.Entries, SegmentEntry{
				Objective:  lo,
				Items:      items,
				Enrichment: true,
			})
		}
	}

	monitoring.SegmentsGenerated.Inc()
	s.cacheSet(ctx, cacheKey, resp, time.Duration(cfg.SegmentCacheTTL)*time.Second)

	return resp, nil
}

// OutcomeRequest 活动结果提交
type OutcomeRequest struct {
	LOID       string  `json:"loId" binding:"required"`
	ActivityID string  `json:"activityId" binding:"required"`
	Score      float64 `json:"score"`
	Completed  bool    `json:"completed"`
}

// SubmitOutcome 回流一次活动结果：读档案、跑状态机、乐观写回。
// 版本冲突时整体重读重放，最多 saveRetries 次。
func (s *PathwayService) SubmitOutcome(ctx context.Context, learnerID string, req OutcomeRequest) (model.MasteryStatus, error) {
	catalog, _, err := s.Catalogs.Snapshot()
	if err != nil {
		return "", err
	}

	cfg := s.currentEngineCfg()
	processor := pathway.NewFeedbackProcessor(catalog, pathway.Thresholds{
		Mastery:  cfg.MasteryThreshold,
		Struggle: cfg.StruggleThreshold,
	})

	var lastErr error
	for attempt := 0; attempt < saveRetries; attempt++ {
		profile, err := s.Profiles.Load(learnerID)
		if err != nil {
			return "", err
		}
		if profile == nil {
			profile = model.NewLearnerProfile(learnerID)
		}

		st := pathway.NewLearnerState(profile)
		status, err := processor.Process(st, pathway.Outcome{
			ActivityID: req.ActivityID,
			LOID:       req.LOID,
			Score:      req.Score,
			Completed:  req.Completed,
			At:         time.Now(),
		})
		if err != nil {
			// 校验失败，档案未被触碰，直接拒绝请求
			return "", err
		}

		if err := s.Profiles.Save(profile); err != nil {
			if err == util.ErrProfileConflict {
				monitoring.SaveConflicts.Inc()
				lastErr = err
				continue
			}
			return "", err
		}

		monitoring.OutcomesProcessed.WithLabelValues(string(status)).Inc()
		return status, nil
	}

	return "", lastErr
}

// Reteach 显式重学：把已掌握的目标拉回 in_progress，
// 这是 mastered 状态唯一的出口。
func (s *PathwayService) Reteach(ctx context.Context, learnerID, loID string) error {
	catalog, _, err := s.Catalogs.Snapshot()
	if err != nil {
		return err
	}
	if catalog.LOByID(loID) == nil {
		return util.ErrObjectiveNotFound
	}

	var lastErr error
	for attempt := 0; attempt < saveRetries; attempt++ {
		profile, err := s.Profiles.Load(learnerID)
		if err != nil {
			return err
		}
		if profile == nil {
			return util.ErrNotMastered
		}

		st := pathway.NewLearnerState(profile)
		if st.StatusOf(loID) != model.StatusMastered {
			return util.ErrNotMastered
		}
		st.SetStatus(loID, model.StatusInProgress)

		if err := s.Profiles.Save(profile); err != nil {
			if err == util.ErrProfileConflict {
				monitoring.SaveConflicts.Inc()
				lastErr = err
				continue
			}
			return err
		}
		return nil
	}
	return lastErr
}

func (s *PathwayService) cacheGet(ctx context.Context, key string) *SegmentResponse {
	if s.Redis == nil {
		return nil
	}
	val, err := s.Redis.Get(ctx, key).Result()
	if err != nil {
		if err != redis.Nil {
			logger.Log.Warn("segment cache read failed", zap.Error(err))
		}
		return nil
	}
	var resp SegmentResponse
	if err := json.Unmarshal([]byte(val), &resp); err != nil {
		return nil
	}
	return &resp
}

func (s *PathwayService) cacheSet(ctx context.Context, key string, resp *SegmentResponse, ttl time.Duration) {
	if s.Redis == nil {
		return
	}
	data, err := json.Marshal(resp)
	if err != nil {
		return
	}
	if err := s.Redis.Set(ctx, key, data, ttl).Err(); err != nil {
		logger.Log.Warn("segment cache write failed", zap.Error(err))
	}
}
