// Package store определяет контракт message store и in-memory реализацию.
//
// Структура:
//   - store.go    — интерфейсы Store, Consumer, Producer
//   - memory.go   — потокобезопасный store в памяти процесса
//   - registry.go — реестр именованных store'ов
//   - errors.go   — ошибки пакета
//
// Контракт доставки (at-least-once, подтверждение после успеха):
//   - FetchNext отдаёт голову очереди, не удаляя её
//   - Acknowledge удаляет подтверждённое сообщение
//   - до Acknowledge повторный FetchNext возвращает то же сообщение
//
// Реализации поверх внешних систем живут в соседних пакетах:
// mq (RabbitMQ), repo (PostgreSQL), redisq (Redis Streams).
package store
