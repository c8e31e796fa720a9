// Package api — read-only HTTP API планировщика.
//
// Структура:
//   - handler.go          — Handler и его зависимости
//   - routes.go           — регистрация маршрутов
//   - middleware.go       — logging, recovery
//   - response.go         — JSON-ответы и обработка ошибок
//   - progress_handler.go — /progress, /projects/{name}
//   - journal_handler.go  — /runs (нужен журнал в Postgres)
//
// API ничего не меняет: запуск управляется только командой sweep run.
package api
