package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/splitroute/splitroute/internal/cache"
	"github.com/splitroute/splitroute/internal/metrics"
	"github.com/splitroute/splitroute/internal/model"
	"github.com/splitroute/splitroute/internal/repository"
)

// ErrProjectNotFound is returned when no project exists for a code.
var ErrProjectNotFound = errors.New("project not found")

// ProjectStore is the persistence surface ProjectService needs.
// *repository.Repository implements it.
type ProjectStore interface {
	GetProjectByCode(ctx context.Context, code string) (*model.Project, error)
	GetProjectByID(ctx context.Context, id string) (*model.Project, error)
	CreateProject(ctx context.Context, p *model.Project) error
	UpdateProject(ctx context.Context, p *model.Project) error
	IncrementClickCount(ctx context.Context, id string) error
}

// ProjectService fronts project reads with the process-local cache and
// applies weight normalization on the write path.
type ProjectService struct {
	repo    ProjectStore
	cache   *cache.ProjectCache
	metrics metrics.Recorder
}

// NewProjectService creates a ProjectService. A nil recorder falls
// back to no-op metrics.
func NewProjectService(repo ProjectStore, projectCache *cache.ProjectCache, recorder metrics.Recorder) *ProjectService {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	return &ProjectService{
		repo:    repo,
		cache:   projectCache,
		metrics: recorder,
	}
}

// GetByCode resolves a short code to its project, cache first.
// This is the hot path for redirects.
func (s *ProjectService) GetByCode(ctx context.Context, code string) (*model.Project, error) {
	if p := s.cache.Get(code); p != nil {
		s.metrics.IncProjectCacheHit()
		return p, nil
	}
	s.metrics.IncProjectCacheMiss()

	p, err := s.repo.GetProjectByCode(ctx, code)
	if err != nil {
		if errors.Is(err, repository.ErrProjectNotFound) {
			return nil, ErrProjectNotFound
		}
		return nil, err
	}

	s.cache.Set(code, p)
	return p, nil
}

// GetByID retrieves a project by ID for reporting endpoints.
func (s *ProjectService) GetByID(ctx context.Context, id string) (*model.Project, error) {
	p, err := s.repo.GetProjectByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrProjectNotFound) {
			return nil, ErrProjectNotFound
		}
		return nil, err
	}
	return p, nil
}

// Save normalizes variant weights and persists the project, rejecting
// over-allocated weights before anything is written. The cache entry
// is invalidated on every write.
func (s *ProjectService) Save(ctx context.Context, p *model.Project, isNew bool) error {
	normalized, err := NormalizeWeights(p.Variants)
	if err != nil {
		return err
	}
	p.Variants = normalized

	now := time.Now().UTC()
	p.UpdatedAt = now

	if isNew {
		if p.CreatedAt.IsZero() {
			p.CreatedAt = now
		}
		if err := s.repo.CreateProject(ctx, p); err != nil {
			return fmt.Errorf("create project: %w", err)
		}
	} else {
		if err := s.repo.UpdateProject(ctx, p); err != nil {
			if errors.Is(err, repository.ErrProjectNotFound) {
				return ErrProjectNotFound
			}
			return fmt.Errorf("update project: %w", err)
		}
	}

	s.cache.Invalidate(p.Code)
	return nil
}

// IncrementClickAsync bumps the project click counter without blocking
// the redirect. Fire and forget; a lost increment is accepted.
func (s *ProjectService) IncrementClickAsync(projectID string) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = s.repo.IncrementClickCount(ctx, projectID)
	}()
}
