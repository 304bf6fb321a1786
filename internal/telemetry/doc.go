// Package telemetry обеспечивает наблюдаемость системы.
//
// Включает:
//   - logging.go — structured logging через slog
//   - metrics.go — Prometheus метрики доставки
//
// Счётчики доставки ведутся на процессор (label processor): доставлено,
// неудачные попытки, retry, drop, деактивации. Глубина каждого store
// публикуется gauge'ем courier_store_depth. Метрики экспортируются
// хостом на /metrics endpoint.
package telemetry
