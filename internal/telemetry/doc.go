// Package telemetry обеспечивает наблюдаемость планировщика.
//
// Включает:
//   - logging.go — structured logging через slog
//   - metrics.go — Prometheus метрики
//
// Метрики регистрируются в default registry и доступны на /metrics,
// если задан listen address (см. config.Config.ListenAddr).
package telemetry
