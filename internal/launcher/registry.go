package launcher

import (
	"sort"
	"sync"

	"github.com/shaiso/sweep/internal/domain"
)

// Registry — процессы, запущенные этим планировщиком.
//
// Заполняется при запуске и обновляется горутиной, ожидающей завершения
// процесса. Все методы безопасны для конкурентного вызова.
type Registry struct {
	mu        sync.Mutex
	instances map[int]domain.Instance // step id → instance
	exited    map[int]error           // step id → результат Wait
}

// NewRegistry создаёт пустой Registry.
func NewRegistry() *Registry {
	return &Registry{
		instances: make(map[int]domain.Instance),
		exited:    make(map[int]error),
	}
}

func (r *Registry) add(inst domain.Instance) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.instances[inst.StepID] = inst
	delete(r.exited, inst.StepID)
}

func (r *Registry) markExited(stepID int, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.exited[stepID] = err
}

// Running возвращает instance'ы, процесс которых ещё не завершился.
// Порядок — по step id.
func (r *Registry) Running() []domain.Instance {
	r.mu.Lock()
	defer r.mu.Unlock()

	var running []domain.Instance
	for id, inst := range r.instances {
		if _, done := r.exited[id]; !done {
			running = append(running, inst)
		}
	}
	sort.Slice(running, func(i, j int) bool { return running[i].StepID < running[j].StepID })
	return running
}

// ExitStatus — состояние процесса шага по данным registry.
type ExitStatus struct {
	Exited bool
	Err    error // результат Wait; nil при нулевом коде выхода
}

// Exit возвращает состояние процесса шага.
// false — шаг этим планировщиком не запускался.
func (r *Registry) Exit(stepID int) (ExitStatus, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.instances[stepID]; !ok {
		return ExitStatus{}, false
	}
	err, exited := r.exited[stepID]
	return ExitStatus{Exited: exited, Err: err}, true
}

// Instance возвращает instance шага.
func (r *Registry) Instance(stepID int) (domain.Instance, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	inst, ok := r.instances[stepID]
	return inst, ok
}

// Forget удаляет записи о завершённых процессах (между проектами).
func (r *Registry) Forget() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id := range r.exited {
		delete(r.instances, id)
		delete(r.exited, id)
	}
}
