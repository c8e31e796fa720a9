package scheduler

import (
	"sort"

	"github.com/shaiso/sweep/internal/domain"
)

// Order возвращает шаги, отсортированные по весу по убыванию.
//
// Самые тяжёлые шаги запускаются первыми: их потребление ресурсов
// становится оценкой peak_rss для всех последующих admission.
// Сортировка устойчива, входной срез не изменяется.
func Order(steps []domain.Step) []domain.Step {
	ordered := make([]domain.Step, len(steps))
	copy(ordered, steps)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Weight > ordered[j].Weight
	})
	return ordered
}
