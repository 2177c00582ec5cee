package service

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"

	"pathway_backend/internal/model"
	"pathway_backend/internal/pathway"
	"pathway_backend/internal/repository"
	"pathway_backend/internal/util"
	"pathway_backend/pkg/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// CurriculumService 课程作者侧的增删改查，以及已发布快照的持有者。
// 数据库里的课程是草稿，Publish 校验（DAG、引用）通过后才替换
// 在线快照；校验失败继续用旧快照对外服务。
type CurriculumService struct {
	Repo    *repository.CurriculumRepository
	Storage *StorageService

	mu       sync.RWMutex
	snapshot *pathway.Catalog
	version  string
}

func NewCurriculumService(repo *repository.CurriculumRepository, storage *StorageService) *CurriculumService {
	return &CurriculumService{Repo: repo, Storage: storage}
}

// Snapshot 当前已发布快照。从未发布过返回 ErrCatalogNotReady。
func (s *CurriculumService) Snapshot() (*pathway.Catalog, string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.snapshot == nil {
		return nil, "", util.ErrCatalogNotReady
	}
	return s.snapshot, s.version, nil
}

// Publish 从数据库重建并校验快照。前置图有环或悬挂引用时
// 返回引擎的构建错误，不替换在线快照。
func (s *CurriculumService) Publish() (string, error) {
	los, items, err := s.Repo.LoadAll()
	if err != nil {
		return "", err
	}

	catalog, err := pathway.BuildCatalog(los, items)
	if err != nil {
		return "", err
	}

	version := uuid.New().String()[:8]

	s.mu.Lock()
	s.snapshot = catalog
	s.version = version
	s.mu.Unlock()

	logger.Log.Info("curriculum snapshot published",
		zap.String("version", version),
		zap.Int("objectives", len(los)),
		zap.Int("contentItems", len(items)))

	return version, nil
}

type ObjectiveRequest struct {
	ID            string   `json:"id"`
	Subject       string   `json:"subject" binding:"required"`
	Strand        string   `json:"strand"`
	Description   string   `json:"description"`
	Prerequisites []string `json:"prerequisites"`
	Order         int      `json:"order"`
}

func (s *CurriculumService) CreateObjective(req ObjectiveRequest) (*model.LearningObjective, error) {
	lo := &model.LearningObjective{
		ID:            req.ID,
		Subject:       req.Subject,
		Strand:        req.Strand,
		Description:   req.Description,
		Prerequisites: req.Prerequisites,
		Order:         req.Order,
	}
	if lo.ID == "" {
		lo.ID = uuid.New().String()
	}
	if lo.Prerequisites == nil {
		lo.Prerequisites = []string{}
	}
	if err := s.Repo.CreateObjective(lo); err != nil {
		return nil, err
	}
	return lo, nil
}

func (s *CurriculumService) GetObjective(id string) (*model.LearningObjective, error) {
	return s.Repo.FindObjectiveByID(id)
}

func (s *CurriculumService) ListObjectives(subject string) ([]model.LearningObjective, error) {
	return s.Repo.ListObjectives(subject)
}

func (s *CurriculumService) UpdateObjective(id string, req ObjectiveRequest) (*model.LearningObjective, error) {
	lo, err := s.Repo.FindObjectiveByID(id)
	if err != nil {
		return nil, err
	}

	lo.Subject = req.Subject
	lo.Strand = req.Strand
	lo.Description = req.Description
	lo.Order = req.Order
	if req.Prerequisites != nil {
		lo.Prerequisites = req.Prerequisites
	}

	if err := s.Repo.UpdateObjective(lo); err != nil {
		return nil, err
	}
	return lo, nil
}

// DeleteObjective 拒绝删除仍被引用的目标，避免草稿一发布就报悬挂引用
func (s *CurriculumService) DeleteObjective(id string) error {
	los, items, err := s.Repo.LoadAll()
	if err != nil {
		return err
	}
	for _, lo := range los {
		for _, p := range lo.Prerequisites {
			if p == id {
				return util.ErrObjectiveReferenced
			}
		}
	}
	for _, item := range items {
		for _, covered := range item.CoveredLOs {
			if covered == id {
				return util.ErrObjectiveReferenced
			}
		}
	}
	return s.Repo.DeleteObjective(id)
}

type ContentItemRequest struct {
	ID                string   `json:"id"`
	Title             string   `json:"title" binding:"required"`
	Type              string   `json:"type" binding:"required"`
	Difficulty        string   `json:"difficulty" binding:"required"`
	CoveredLOs        []string `json:"coveredLos" binding:"required"`
	TargetPreferences []string `json:"targetPreferences"`
	Order             int      `json:"order"`
}

func (s *CurriculumService) CreateContentItem(req ContentItemRequest) (*model.ContentItem, error) {
	item := &model.ContentItem{
		ID:                req.ID,
		Title:             req.Title,
		Type:              model.ContentType(req.Type),
		Difficulty:        model.Difficulty(req.Difficulty),
		CoveredLOs:        req.CoveredLOs,
		TargetPreferences: req.TargetPreferences,
		Order:             req.Order,
	}
	if item.ID == "" {
		item.ID = uuid.New().String()
	}
	if item.TargetPreferences == nil {
		item.TargetPreferences = []string{}
	}
	if !item.Type.Valid() {
		return nil, &pathway.ValidationError{Field: "type", Reason: "unknown content type " + req.Type}
	}
	if !item.Difficulty.Valid() {
		return nil, &pathway.ValidationError{Field: "difficulty", Reason: "unknown difficulty " + req.Difficulty}
	}
	if len(item.CoveredLOs) == 0 {
		return nil, &pathway.ValidationError{Field: "coveredLos", Reason: "must cover at least one objective"}
	}
	if err := s.Repo.CreateContentItem(item); err != nil {
		return nil, err
	}
	return item, nil
}

func (s *CurriculumService) GetContentItem(id string) (*model.ContentItem, error) {
	return s.Repo.FindContentItemByID(id)
}

func (s *CurriculumService) ListContentItems(page, limit int) ([]model.ContentItem, int64, error) {
	return s.Repo.ListContentItems(page, limit)
}

func (s *CurriculumService) UpdateContentItem(id string, req ContentItemRequest) (*model.ContentItem, error) {
	item, err := s.Repo.FindContentItemByID(id)
	if err != nil {
		return nil, err
	}

	item.Title = req.Title
	item.Type = model.ContentType(req.Type)
	item.Difficulty = model.Difficulty(req.Difficulty)
	item.Order = req.Order
	if req.CoveredLOs != nil {
		item.CoveredLOs = req.CoveredLOs
	}
	if req.TargetPreferences != nil {
		item.TargetPreferences = req.TargetPreferences
	}

	if !item.Type.Valid() {
		return nil, &pathway.ValidationError{Field: "type", Reason: "unknown content type " + req.Type}
	}
	if !item.Difficulty.Valid() {
		return nil, &pathway.ValidationError{Field: "difficulty", Reason: "unknown difficulty " + req.Difficulty}
	}

	if err := s.Repo.UpdateContentItem(item); err != nil {
		return nil, err
	}
	return item, nil
}

func (s *CurriculumService) DeleteContentItem(id string) error {
	return s.Repo.DeleteContentItem(id)
}

// UploadAsset 为内容挂附件（习题 PDF、视频文件等），存对象存储
func (s *CurriculumService) UploadAsset(ctx context.Context, contentID, filename string, reader io.Reader, size int64, contentType string) (string, error) {
	item, err := s.Repo.FindContentItemByID(contentID)
	if err != nil {
		return "", err
	}

	key := fmt.Sprintf("content/%s/%s", contentID, filename)
	url, err := s.Storage.Upload(ctx, key, reader, size, contentType)
	if err != nil {
		return "", err
	}

	item.AssetKey = key
	if err := s.Repo.UpdateContentItem(item); err != nil {
		return "", err
	}
	return url, nil
}

type curriculumFile struct {
	Objectives []struct {
		ID            string   `yaml:"id"`
		Subject       string   `yaml:"subject"`
		Strand        string   `yaml:"strand"`
		Description   string   `yaml:"description"`
		Prerequisites []string `yaml:"prerequisites"`
	} `yaml:"objectives"`
	Content []struct {
		ID                string   `yaml:"id"`
		Title             string   `yaml:"title"`
		Type              string   `yaml:"type"`
		Difficulty        string   `yaml:"difficulty"`
		CoveredLOs        []string `yaml:"coveredLos"`
		TargetPreferences []string `yaml:"targetPreferences"`
	} `yaml:"content"`
}

// ImportFromFile 从 YAML 课程文件导入，声明顺序取文件内顺序。
// 只在库为空时用于首次引导，避免覆盖作者后续的修改。
func (s *CurriculumService) ImportFromFile(path string) error {
	count, err := s.Repo.CountObjectives()
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	var file curriculumFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("parse curriculum file: %w", err)
	}

	for i, o := range file.Objectives {
		prereqs := o.Prerequisites
		if prereqs == nil {
			prereqs = []string{}
		}
		lo := &model.LearningObjective{
			ID:            o.ID,
			Subject:       o.Subject,
			Strand:        o.Strand,
			Description:   o.Description,
			Prerequisites: prereqs,
			Order:         i + 1,
		}
		if err := s.Repo.CreateObjective(lo); err != nil {
			return err
		}
	}

	for i, c := range file.Content {
		prefs := c.TargetPreferences
		if prefs == nil {
			prefs = []string{}
		}
		item := &model.ContentItem{
			ID:                c.ID,
			Title:             c.Title,
			Type:              model.ContentType(c.Type),
			Difficulty:        model.Difficulty(c.Difficulty),
			CoveredLOs:        c.CoveredLOs,
			TargetPreferences: prefs,
			Order:             i + 1,
		}
		if err := s.Repo.CreateContentItem(item); err != nil {
			return err
		}
	}

	logger.Log.Info("curriculum imported from file",
		zap.String("path", path),
		zap.Int("objectives", len(file.Objectives)),
		zap.Int("contentItems", len(file.Content)))

	return nil
}
