// Package api содержит HTTP API сервер.
//
// Структура:
//   - handler.go           — Handler с DI (реестры, logger)
//   - routes.go            — регистрация маршрутов
//   - middleware.go        — middleware (logging, recovery)
//   - response.go          — унифицированные JSON-ответы и обработка ошибок
//   - dto.go               — Data Transfer Objects (request/response)
//   - processor_handler.go — обработчики для /processors
//   - store_handler.go     — обработчики для /stores
//
// API предоставляет REST endpoints для управления процессорами
// и message store'ами: список, активация, деактивация, постановка
// сообщений в очередь.
package api
