package catalog

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/viant/afs"

	"github.com/shaiso/sweep/internal/domain"
)

func setupProject(t *testing.T, stepFile string, markers ...string) domain.Project {
	t.Helper()
	layout := domain.DefaultLayout()
	dir := t.TempDir()

	if err := os.WriteFile(filepath.Join(dir, layout.StepFile), []byte(stepFile), 0o644); err != nil {
		t.Fatal(err)
	}
	for _, m := range markers {
		if err := os.WriteFile(filepath.Join(dir, m), []byte("0\n"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return domain.NewProject(dir)
}

func TestLoad_NoMarkers(t *testing.T) {
	project := setupProject(t, "1 100\n2 250\n3 50\n")
	store := NewStore(afs.New(), domain.DefaultLayout())

	cat, err := store.Load(context.Background(), project)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !reflect.DeepEqual(cat.AllIDs(), []int{1, 2, 3}) {
		t.Errorf("unexpected all ids: %v", cat.AllIDs())
	}
	if !reflect.DeepEqual(cat.PendingIDs(), []int{1, 2, 3}) {
		t.Errorf("unexpected pending ids: %v", cat.PendingIDs())
	}
	if !reflect.DeepEqual(cat.PendingWeights(), []float64{100, 250, 50}) {
		t.Errorf("unexpected pending weights: %v", cat.PendingWeights())
	}
}

func TestLoad_MarkerRemovesStep(t *testing.T) {
	project := setupProject(t, "1 100\n2 250\n3 50\n", "case_frequency_2.csv")
	store := NewStore(afs.New(), domain.DefaultLayout())

	cat, err := store.Load(context.Background(), project)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !reflect.DeepEqual(cat.PendingIDs(), []int{1, 3}) {
		t.Errorf("expected pending [1 3], got %v", cat.PendingIDs())
	}
	if !reflect.DeepEqual(cat.PendingWeights(), []float64{100, 50}) {
		t.Errorf("expected weights [100 50], got %v", cat.PendingWeights())
	}
	if len(cat.All) != 3 {
		t.Errorf("all steps must be kept, got %d", len(cat.All))
	}
}

func TestLoad_UnknownAndForeignMarkersIgnored(t *testing.T) {
	project := setupProject(t, "100\n250\n",
		"case_frequency_99.csv",      // неизвестный шаг
		"case_frequency_abc.csv",     // не число
		"case_frequency_1.csv.names", // header, не marker
		"case_t1_log.txt",            // лог
	)
	store := NewStore(afs.New(), domain.DefaultLayout())

	cat, err := store.Load(context.Background(), project)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(cat.PendingIDs(), []int{1, 2}) {
		t.Errorf("expected pending [1 2], got %v", cat.PendingIDs())
	}
}

func TestLoad_MalformedReportsPath(t *testing.T) {
	project := setupProject(t, "1 100 5\n")
	store := NewStore(afs.New(), domain.DefaultLayout())

	_, err := store.Load(context.Background(), project)
	if !errors.Is(err, ErrMalformedStepFile) {
		t.Fatalf("expected ErrMalformedStepFile, got %v", err)
	}

	var pErr *ParseError
	if !errors.As(err, &pErr) {
		t.Fatalf("expected ParseError, got %T", err)
	}
	if pErr.Path != project.Path(domain.DefaultLayout().StepFile) {
		t.Errorf("expected path in error, got %q", pErr.Path)
	}
}

func TestMarkerExists(t *testing.T) {
	project := setupProject(t, "100\n", "case_frequency_1.csv")
	store := NewStore(afs.New(), domain.DefaultLayout())
	ctx := context.Background()

	ok, err := store.MarkerExists(ctx, project, 1)
	if err != nil || !ok {
		t.Errorf("expected marker for step 1, got %v, %v", ok, err)
	}

	ok, err = store.MarkerExists(ctx, project, 2)
	if err != nil || ok {
		t.Errorf("expected no marker for step 2, got %v, %v", ok, err)
	}
}
