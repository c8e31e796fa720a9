// Package resource читает состояние ресурсов машины.
//
// Структура:
//   - sampler.go — снимок памяти и загрузки CPU (ResourceSampler)
//   - process.go — таблица процессов worker'ов (RSS, загрузка CPU процессом)
//
// Данные берутся из /proc через github.com/prometheus/procfs.
// Все измерения приблизительные: admission — это ограничение темпа,
// а не жёсткая гарантия.
package resource
