// Package redisq реализует message store поверх Redis Streams.
//
// Структура:
//   - client.go — создание клиента (REDIS_URL, ping при старте)
//   - store.go  — реализация store.Store поверх stream'а
//
// Каждый store — отдельный stream с consumer group. Worker
// процессора забирает головную запись через XREADGROUP: сначала
// недоставленные записи из PEL (переживают рестарт consumer'а),
// затем новые. Подтверждение доставки выполняет XACK и удаляет
// запись из stream'а — доставка at-least-once.
//
// Повреждённые (poison) записи подтверждаются и выбрасываются
// с ошибкой в логе, чтобы не блокировать голову очереди.
package redisq
