// Package sequence определяет именованные обработчики сообщений.
//
// Sequence — точка расширения форвардера: в неё уходит сообщение
// в ключевых местах жизненного цикла доставки.
//
// Виды привязки (параметры процессора):
//   - reply.sequence      — успешный ответ endpoint'а
//   - fault.sequence      — ошибка доставки
//   - deactivate.sequence — деактивация процессора
//
// Встроенные реализации:
//   - NewLogSequence   — пишет сообщение в лог
//   - NewStoreSequence — перекладывает сообщение в другой store (DLQ-паттерн)
package sequence
