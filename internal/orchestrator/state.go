package orchestrator

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/shaiso/sweep/internal/domain"
)

// RunState — прогресс текущего запуска в памяти.
//
// RunState пишет только управляющая горутина оркестратора, а читает
// HTTP API, поэтому доступ защищён мьютексом. На диск RunState не
// сохраняется: после перезапуска прогресс заново выводится из marker'ов.
type RunState struct {
	mu sync.RWMutex

	runID     uuid.UUID
	startedAt time.Time
	ceiling   int
	admission string

	order    []string // порядок проектов
	projects map[string]*domain.ProjectProgress
}

// NewRunState создаёт RunState для списка проектов.
func NewRunState(runID uuid.UUID, projects []domain.Project) *RunState {
	s := &RunState{
		runID:     runID,
		startedAt: time.Now(),
		projects:  make(map[string]*domain.ProjectProgress, len(projects)),
	}
	for _, p := range projects {
		s.order = append(s.order, p.Root)
		s.projects[p.Root] = &domain.ProjectProgress{
			Name:   p.Name,
			Root:   p.Root,
			Status: domain.ProjectStatusPending,
		}
	}
	return s
}

// SetAdmission запоминает состояние admission и потолок параллельности.
func (s *RunState) SetAdmission(state string, ceiling int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.admission = state
	s.ceiling = ceiling
}

// Start переводит проект в RUNNING.
func (s *RunState) Start(root string, total, pending int) {
	s.update(root, func(p *domain.ProjectProgress) {
		now := time.Now()
		p.Status = domain.ProjectStatusRunning
		p.TotalSteps = total
		p.Pending = pending
		p.StartedAt = &now
	})
}

// StepLaunched учитывает запущенный шаг.
func (s *RunState) StepLaunched(root string) {
	s.update(root, func(p *domain.ProjectProgress) {
		p.Launched++
		p.Pending--
	})
}

// StepSkipped учитывает шаг, marker которого появился перед запуском.
func (s *RunState) StepSkipped(root string) {
	s.update(root, func(p *domain.ProjectProgress) {
		p.Skipped++
		p.Pending--
	})
}

// Draining переводит проект в DRAINING.
func (s *RunState) Draining(root string) {
	s.update(root, func(p *domain.ProjectProgress) {
		p.Status = domain.ProjectStatusDraining
	})
}

// Finish переводит проект в финальный статус.
func (s *RunState) Finish(root string, status domain.ProjectStatus, err error) {
	s.update(root, func(p *domain.ProjectProgress) {
		now := time.Now()
		p.Status = status
		p.FinishedAt = &now
		if err != nil {
			p.Error = err.Error()
		}
	})
}

// Skip помечает проект как уже выполненный.
func (s *RunState) Skip(root string, total int) {
	s.update(root, func(p *domain.ProjectProgress) {
		now := time.Now()
		p.Status = domain.ProjectStatusSkipped
		p.TotalSteps = total
		p.Pending = 0
		p.FinishedAt = &now
	})
}

func (s *RunState) update(root string, fn func(p *domain.ProjectProgress)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.projects[root]; ok {
		fn(p)
	}
}

// Snapshot возвращает копию прогресса.
func (s *RunState) Snapshot() domain.Progress {
	s.mu.RLock()
	defer s.mu.RUnlock()

	progress := domain.Progress{
		RunID:       s.runID.String(),
		StartedAt:   s.startedAt,
		Concurrency: s.ceiling,
		Admission:   s.admission,
		Projects:    make([]domain.ProjectProgress, 0, len(s.order)),
	}
	for _, root := range s.order {
		progress.Projects = append(progress.Projects, *s.projects[root])
	}
	return progress
}
