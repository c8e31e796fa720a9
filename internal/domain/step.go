package domain

import "strconv"

// Step — одна единица работы (одна частота sweep'а).
//
// Состояние завершения не хранится во Step: шаг считается выполненным,
// если в директории проекта существует его result marker (см. Layout.MarkerName).
type Step struct {
	// ID — номер шага, уникальный внутри проекта (может идти не подряд).
	ID int `json:"id"`

	// Weight — вес шага (частота в Hz). Определяет приоритет и служит
	// грубой оценкой потребления ресурсов.
	Weight float64 `json:"weight"`
}

// FormatWeight форматирует вес без лишних нулей ("250", "12.5").
func (s Step) FormatWeight() string {
	return strconv.FormatFloat(s.Weight, 'f', -1, 64)
}
