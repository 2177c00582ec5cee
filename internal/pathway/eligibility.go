package pathway

import (
	"sort"

	"pathway_backend/internal/model"
)

// Resolver 依据课程快照和学习者状态计算可选目标集合
type Resolver struct {
	catalog *Catalog
}

func NewResolver(catalog *Catalog) *Resolver {
	return &Resolver{catalog: catalog}
}

// eligible 结构性可选：未掌握，且所有前置均已掌握
func (r *Resolver) isEligible(st *LearnerState, lo *model.LearningObjective) bool {
	if st.StatusOf(lo.ID) == model.StatusMastered {
		return false
	}
	for _, p := range lo.Prerequisites {
		if st.StatusOf(p) != model.StatusMastered {
			return false
		}
	}
	return true
}

// Eligible 返回当前可以继续学习的目标，顺序确定：
// 补救候选（struggling/partial）在前，按最近一次履历从新到旧；
// 其余（not_started/in_progress）按课程声明顺序。
// 空结果是正常终态（课程学完或无根目标），由调用方携带
// SignalNoEligibleObjectives 返回。
func (r *Resolver) Eligible(st *LearnerState) []model.LearningObjective {
	var remediation []model.LearningObjective
	var fresh []model.LearningObjective

	for _, lo := range r.catalog.AllLOs() {
		if !r.isEligible(st, &lo) {
			continue
		}
		switch st.StatusOf(lo.ID) {
		case model.StatusStruggling, model.StatusPartial:
			remediation = append(remediation, lo)
		default:
			fresh = append(fresh, lo)
		}
	}

	// 补救优先：先补缺口再推进新内容，避免欠账滚雪球
	sort.SliceStable(remediation, func(i, j int) bool {
		return st.lastEntryIndex(remediation[i].ID) > st.lastEntryIndex(remediation[j].ID)
	})

	return append(remediation, fresh...)
}

// RemediationCandidates 当前处于 struggling/partial 的可选目标
func (r *Resolver) RemediationCandidates(st *LearnerState) []model.LearningObjective {
	var out []model.LearningObjective
	for _, lo := range r.Eligible(st) {
		switch st.StatusOf(lo.ID) {
		case model.StatusStruggling, model.StatusPartial:
			out = append(out, lo)
		}
	}
	return out
}

// Enrichment 已掌握的目标，可作为拓展内容附加在常规路径之外
func (r *Resolver) Enrichment(st *LearnerState) []model.LearningObjective {
	var out []model.LearningObjective
	for _, lo := range r.catalog.AllLOs() {
		if st.StatusOf(lo.ID) == model.StatusMastered {
			out = append(out, lo)
		}
	}
	return out
}
