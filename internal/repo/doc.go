// Package repo хранит журнал запусков в Postgres (pgx).
//
// Таблицы:
//   - sweep_runs   — один запуск планировщика
//   - sweep_events — события запуска (step.launched, worker.crashed, ...)
//
// Журнал необязателен и не участвует в планировании: pending шаги
// всегда выводятся из result marker'ов.
package repo
