// Package mq реализует message store поверх RabbitMQ.
//
// Структура:
//   - connection.go — управление соединением (reconnect, graceful shutdown)
//   - topology.go   — объявление exchange, очередей и DLQ
//   - store.go      — реализация store.Store поверх очереди
//
// Store работает в pull-модели: worker процессора сам забирает
// головное сообщение (basic.get, без auto-ack) и подтверждает его
// после успешной доставки. Неподтверждённое сообщение невидимо для
// других consumer'ов, но возвращается в очередь при закрытии
// consumer'а или разрыве канала — доставка at-least-once.
//
// Exchanges:
//   - courier.messages — сообщения store'ов, routing key = имя очереди
//   - courier.dlq      — повреждённые (poison) сообщения
package mq
