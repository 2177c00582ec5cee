package pathway

import (
	"pathway_backend/internal/model"
)

// SelectorConfig 选择器的全部可调项。原型里这些表散落在模块级
// 常量里，这里显式作为构造参数传入，避免进程级隐式状态。
type SelectorConfig struct {
	// MaxItems 单个目标默认选取条数上限
	MaxItems int
	// PreferenceOrders 学习者主导偏好 -> 优先形态序列
	PreferenceOrders map[string][]model.ContentType
	// VarietyOrder 多样性补位用的固定形态优先级，与偏好表刻意不同
	VarietyOrder []model.ContentType
}

// DefaultSelectorConfig 内置偏好表
func DefaultSelectorConfig() SelectorConfig {
	return SelectorConfig{
		MaxItems: 2,
		PreferenceOrders: map[string][]model.ContentType{
			"visual":      {model.ContentVideo, model.ContentQuiz, model.ContentGame},
			"textual":     {model.ContentText, model.ContentWorksheet},
			"interactive": {model.ContentGame, model.ContentQuiz, model.ContentVideo},
		},
		VarietyOrder: []model.ContentType{
			model.ContentGame,
			model.ContentWorksheet,
			model.ContentVideo,
			model.ContentQuiz,
			model.ContentText,
		},
	}
}

// Selector 为单个可选目标挑选一小组有序、不重复、难度合适的内容
type Selector struct {
	catalog *Catalog
	cfg     SelectorConfig
}

func NewSelector(catalog *Catalog, cfg SelectorConfig) *Selector {
	if cfg.MaxItems <= 0 {
		cfg.MaxItems = 2
	}
	return &Selector{catalog: catalog, cfg: cfg}
}

// Select 三段式确定性选择：偏好 -> 多样性 -> 兜底。
// maxItems <= 0 时用配置默认值。
// 目标完全没有内容时返回空列表和 SignalNoContentAvailable，
// 路径照常越过该目标，但提示课程作者存在缺口。
func (s *Selector) Select(loID string, st *LearnerState, maxItems int) ([]model.ContentItem, Signal) {
	if maxItems <= 0 {
		maxItems = s.cfg.MaxItems
	}

	all := s.catalog.ContentForLO(loID)
	if len(all) == 0 {
		return []model.ContentItem{}, SignalNoContentAvailable
	}

	status := st.StatusOf(loID)
	pool, avoid := s.applyRemediation(all, loID, st, status)
	if len(pool) == 0 {
		// 补救过滤把内容全筛掉时退回完整集合，宁可偏难也不中断补救
		pool = all
	}

	selected := make([]model.ContentItem, 0, maxItems)
	used := make(map[string]bool)
	typeTaken := make(map[model.ContentType]bool)

	take := func(item model.ContentItem) {
		selected = append(selected, item)
		used[item.ID] = true
		typeTaken[item.Type] = true
	}

	// 第一段：主导偏好。按偏好表顺序找第一个有货的形态，取其最容易的一条。
	// 补救要避开的形态在这里直接跳过，哪怕它正是学习者的偏好
	if pref, ok := st.Preference(PreferenceModality); ok {
		if order, known := s.cfg.PreferenceOrders[pref]; known {
			for _, t := range order {
				if t == avoid {
					continue
				}
				if item, found := easiestOfType(pool, t, used); found {
					take(item)
					break
				}
			}
		}
	}

	// 第二段：多样性。沿固定形态优先级补齐未出现过的形态，避开形态同样跳过
	for _, t := range s.cfg.VarietyOrder {
		if len(selected) >= maxItems {
			break
		}
		if typeTaken[t] || t == avoid {
			continue
		}
		if item, found := easiestOfType(pool, t, used); found {
			take(item)
		}
	}

	// 第三段：兜底。还不满就按难度补最容易的剩余项，允许形态重复，
	// 避开的形态也只有到这里才允许进入（池序已把它们排到尾部）
	for i := range pool {
		if len(selected) >= maxItems {
			break
		}
		if !used[pool[i].ID] {
			take(pool[i])
		}
	}

	return selected, SignalOK
}

// applyRemediation 在三段选择之前施加补救修饰：
// struggling 只保留 easy/medium，最近一次失败的形态排到池尾并作为
// avoid 返回，偏好段和多样性段据此绕开它，只有兜底段可以取用；
// partial 把 medium 排到前面作为练习巩固。
func (s *Selector) applyRemediation(items []model.ContentItem, loID string, st *LearnerState, status model.MasteryStatus) ([]model.ContentItem, model.ContentType) {
	switch status {
	case model.StatusStruggling:
		var avoid model.ContentType
		if last := st.LastEntryFor(loID); last != nil {
			if attempted := s.catalog.ItemByID(last.ActivityID); attempted != nil {
				avoid = attempted.Type
			}
		}
		var preferred, demoted []model.ContentItem
		for _, item := range items {
			if item.Difficulty == model.DifficultyHard {
				continue
			}
			if avoid != "" && item.Type == avoid {
				// 换一种方式讲，不重复刚失败的形态
				demoted = append(demoted, item)
				continue
			}
			preferred = append(preferred, item)
		}
		if len(preferred) == 0 {
			// 该目标只剩刚失败的形态，解除避让，别让学习者没路可走
			return demoted, ""
		}
		return append(preferred, demoted...), avoid

	case model.StatusPartial:
		var medium, rest []model.ContentItem
		for _, item := range items {
			if item.Difficulty == model.DifficultyMedium {
				medium = append(medium, item)
			} else {
				rest = append(rest, item)
			}
		}
		return append(medium, rest...), ""
	}

	return items, ""
}

// easiestOfType 池子已按难度升序，取第一条未用过的指定形态
func easiestOfType(pool []model.ContentItem, t model.ContentType, used map[string]bool) (model.ContentItem, bool) {
	for _, item := range pool {
		if item.Type == t && !used[item.ID] {
			return item, true
		}
	}
	return model.ContentItem{}, false
}
