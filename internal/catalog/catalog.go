// Package catalog разбирает step file проекта и определяет,
// какие шаги уже выполнены (StepCatalog).
//
// Шаг считается выполненным, если в директории проекта есть его
// result marker. Marker'ы с неизвестными ID игнорируются: они могут
// остаться от старого или перенумерованного запуска.
package catalog

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/viant/afs"

	"github.com/shaiso/sweep/internal/domain"
)

// Catalog — шаги проекта и их состояние на момент загрузки.
type Catalog struct {
	// All — все шаги в порядке step file.
	All []domain.Step

	// Pending — шаги без result marker, в порядке step file.
	Pending []domain.Step
}

// AllIDs возвращает ID всех шагов.
func (c *Catalog) AllIDs() []int {
	return ids(c.All)
}

// PendingIDs возвращает ID невыполненных шагов.
func (c *Catalog) PendingIDs() []int {
	return ids(c.Pending)
}

// PendingWeights возвращает веса невыполненных шагов (параллельно PendingIDs).
func (c *Catalog) PendingWeights() []float64 {
	weights := make([]float64, len(c.Pending))
	for i, s := range c.Pending {
		weights[i] = s.Weight
	}
	return weights
}

func ids(steps []domain.Step) []int {
	out := make([]int, len(steps))
	for i, s := range steps {
		out[i] = s.ID
	}
	return out
}

// Store читает step file и marker'ы проекта.
type Store struct {
	fs     afs.Service
	layout domain.Layout
}

// NewStore создаёт Store.
func NewStore(fs afs.Service, layout domain.Layout) *Store {
	return &Store{fs: fs, layout: layout}
}

// Load разбирает step file проекта и исключает выполненные шаги.
func (s *Store) Load(ctx context.Context, project domain.Project) (*Catalog, error) {
	path := project.Path(s.layout.StepFile)
	data, err := s.fs.DownloadWithURL(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	steps, err := Parse(bytes.NewReader(data))
	if err != nil {
		var pErr *ParseError
		if errors.As(err, &pErr) {
			pErr.Path = path
		}
		return nil, err
	}

	done, err := s.Completed(ctx, project)
	if err != nil {
		return nil, err
	}

	cat := &Catalog{All: steps}
	for _, step := range steps {
		if !done[step.ID] {
			cat.Pending = append(cat.Pending, step)
		}
	}
	return cat, nil
}

// Completed возвращает ID шагов, для которых есть result marker.
func (s *Store) Completed(ctx context.Context, project domain.Project) (map[int]bool, error) {
	objects, err := s.fs.List(ctx, project.Root)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", project.Root, err)
	}

	done := make(map[int]bool)
	for i, obj := range objects {
		if i == 0 || obj.IsDir() {
			continue
		}
		if id, ok := s.layout.ParseMarker(obj.Name()); ok {
			done[id] = true
		}
	}
	return done, nil
}

// MarkerExists проверяет наличие result marker шага прямо сейчас.
func (s *Store) MarkerExists(ctx context.Context, project domain.Project, stepID int) (bool, error) {
	path := filepath.Join(project.Root, s.layout.MarkerName(stepID))
	ok, err := s.fs.Exists(ctx, path)
	if err != nil {
		return false, fmt.Errorf("check %s: %w", path, err)
	}
	return ok, nil
}
