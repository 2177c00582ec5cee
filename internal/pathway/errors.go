package pathway

import (
	"fmt"
	"strings"
)

// CycleError 前置关系图中存在环，快照构建失败
type CycleError struct {
	Path []string // 环上的目标 ID，按遍历顺序
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("curriculum: prerequisite cycle detected: %s", strings.Join(e.Path, " -> "))
}

// DanglingRefError 引用了不存在的学习目标
type DanglingRefError struct {
	SourceKind string // "objective" 或 "content"
	SourceID   string
	RefID      string
}

func (e *DanglingRefError) Error() string {
	return fmt.Sprintf("curriculum: %s %q references unknown objective %q", e.SourceKind, e.SourceID, e.RefID)
}

// ValidationError 非法输入（分数越界、未知目标等），拒绝请求且不修改任何状态
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Signal 非错误的终态提示，随空结果返回而不是抛错
type Signal string

const (
	SignalOK                   Signal = ""
	SignalNoEligibleObjectives Signal = "NO_ELIGIBLE_OBJECTIVES"
	SignalNoContentAvailable   Signal = "NO_CONTENT_AVAILABLE"
)
