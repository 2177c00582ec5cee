package pathway

import (
	"sort"

	"pathway_backend/internal/model"
)

// Catalog 课程快照：构建时完成全部校验，构建后只读。
// 目标按声明顺序（display_order、创建时间、ID）排列，
// 每个目标下的内容按难度升序、声明顺序排列。
type Catalog struct {
	los         []model.LearningObjective
	loByID      map[string]*model.LearningObjective
	itemByID    map[string]*model.ContentItem
	contentByLO map[string][]model.ContentItem
}

// BuildCatalog 校验并构建课程快照。
// 失败条件：重复 ID、悬挂引用（前置或 coveredLos 指向不存在的目标）、
// 前置关系成环、内容未覆盖任何目标。
func BuildCatalog(los []model.LearningObjective, items []model.ContentItem) (*Catalog, error) {
	c := &Catalog{
		loByID:      make(map[string]*model.LearningObjective, len(los)),
		itemByID:    make(map[string]*model.ContentItem, len(items)),
		contentByLO: make(map[string][]model.ContentItem),
	}

	c.los = make([]model.LearningObjective, len(los))
	copy(c.los, los)
	sortDeclarationOrder(c.los)

	for i := range c.los {
		lo := &c.los[i]
		if lo.ID == "" {
			return nil, &ValidationError{Field: "objective.id", Reason: "empty id"}
		}
		if _, dup := c.loByID[lo.ID]; dup {
			return nil, &ValidationError{Field: "objective.id", Reason: "duplicate id " + lo.ID}
		}
		c.loByID[lo.ID] = lo
	}

	// 前置引用必须指向已知目标
	for i := range c.los {
		lo := &c.los[i]
		for _, p := range lo.Prerequisites {
			if _, ok := c.loByID[p]; !ok {
				return nil, &DanglingRefError{SourceKind: "objective", SourceID: lo.ID, RefID: p}
			}
		}
	}

	if err := c.checkAcyclic(); err != nil {
		return nil, err
	}

	sorted := make([]model.ContentItem, len(items))
	copy(sorted, items)
	sort.SliceStable(sorted, func(i, j int) bool {
		if model.DifficultyRank[sorted[i].Difficulty] != model.DifficultyRank[sorted[j].Difficulty] {
			return model.DifficultyRank[sorted[i].Difficulty] < model.DifficultyRank[sorted[j].Difficulty]
		}
		if sorted[i].Order != sorted[j].Order {
			return sorted[i].Order < sorted[j].Order
		}
		return sorted[i].ID < sorted[j].ID
	})

	for i := range sorted {
		item := &sorted[i]
		if item.ID == "" {
			return nil, &ValidationError{Field: "content.id", Reason: "empty id"}
		}
		if _, dup := c.itemByID[item.ID]; dup {
			return nil, &ValidationError{Field: "content.id", Reason: "duplicate id " + item.ID}
		}
		if !item.Type.Valid() {
			return nil, &ValidationError{Field: "content.type", Reason: "unknown type " + string(item.Type)}
		}
		if !item.Difficulty.Valid() {
			return nil, &ValidationError{Field: "content.difficulty", Reason: "unknown difficulty " + string(item.Difficulty)}
		}
		if len(item.CoveredLOs) == 0 {
			return nil, &ValidationError{Field: "content.coveredLos", Reason: "content " + item.ID + " covers no objective"}
		}
		for _, loID := range item.CoveredLOs {
			if _, ok := c.loByID[loID]; !ok {
				return nil, &DanglingRefError{SourceKind: "content", SourceID: item.ID, RefID: loID}
			}
		}
		c.itemByID[item.ID] = item
		for _, loID := range item.CoveredLOs {
			c.contentByLO[loID] = append(c.contentByLO[loID], *item)
		}
	}

	return c, nil
}

// checkAcyclic 深度优先遍历，用递归栈标记检测环
func (c *Catalog) checkAcyclic() error {
	const (
		white = 0 // 未访问
		grey  = 1 // 在递归栈上
		black = 2 // 已完成
	)
	color := make(map[string]int, len(c.los))

	var stack []string
	var visit func(id string) *CycleError
	visit = func(id string) *CycleError {
		color[id] = grey
		stack = append(stack, id)
		for _, p := range c.loByID[id].Prerequisites {
			switch color[p] {
			case grey:
				// 回边：截取栈上从 p 开始的环
				start := 0
				for i, s := range stack {
					if s == p {
						start = i
						break
					}
				}
				cycle := append([]string{}, stack[start:]...)
				return &CycleError{Path: append(cycle, p)}
			case white:
				if err := visit(p); err != nil {
					return err
				}
			}
		}
		stack = stack[:len(stack)-1]
		color[id] = black
		return nil
	}

	for i := range c.los {
		if color[c.los[i].ID] == white {
			if err := visit(c.los[i].ID); err != nil {
				return err
			}
		}
	}
	return nil
}

// LOByID 按 ID 查目标，不存在返回 nil
func (c *Catalog) LOByID(id string) *model.LearningObjective {
	return c.loByID[id]
}

// ItemByID 按 ID 查内容，不存在返回 nil
func (c *Catalog) ItemByID(id string) *model.ContentItem {
	return c.itemByID[id]
}

// ContentForLO 返回覆盖该目标的内容，难度升序
func (c *Catalog) ContentForLO(loID string) []model.ContentItem {
	return c.contentByLO[loID]
}

// AllLOs 全部目标，声明顺序
func (c *Catalog) AllLOs() []model.LearningObjective {
	return c.los
}

func sortDeclarationOrder(los []model.LearningObjective) {
	sort.SliceStable(los, func(i, j int) bool {
		if los[i].Order != los[j].Order {
			return los[i].Order < los[j].Order
		}
		if !los[i].CreatedAt.Equal(los[j].CreatedAt) {
			return los[i].CreatedAt.Before(los[j].CreatedAt)
		}
		return los[i].ID < los[j].ID
	})
}
