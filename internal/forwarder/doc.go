// Package forwarder реализует worker надёжной доставки сообщений.
//
// # Обзор
//
// Service — ядро Courier: worker, который забирает сообщения из
// message store по одному и доводит каждое до терминального исхода.
// Service отвечает за:
//
//   - Получение головы очереди через store.Consumer (fetch без удаления)
//   - Блокирующую отправку на endpoint с ожиданием ответа
//   - Retry с фиксированной паузой при повторяемых ошибках
//   - Классификацию ошибок на повторяемые и неповторяемые
//   - Подтверждение (Acknowledge) строго после успеха или сброса
//   - Деактивацию владеющего процессора при исчерпании попыток
//
// Один Service обслуживает ровно один store и один endpoint. Внутри
// вызова сообщения обрабатываются строго последовательно, голова
// очереди блокирует остальные до своего терминального исхода.
//
// # Жизненный цикл вызова
//
// Run(ctx) — один блокирующий вызов на внешний триггер (интервал или
// cron). Внутри — цикл в семантике do-while:
//
//  1. Сброс состояния цикла: attemptCount = 0, succeeded = false
//  2. Если процессор деактивирован — терминация и выход
//  3. Fetch; пустой store в cron-режиме завершает вызов
//  4. Цикл доставки сообщения до терминального исхода
//  5. Пейсинг: cron-пауза, досып коротких интервалов, возврат
//     потока планировщику после кванта в 1s
//
// # Терминальные исходы сообщения
//
//   - Delivered — ответ без ошибки или one-way: ack, счётчик в 0
//   - Dropped — предел попыток при включённом drop: ack, счётчик в 0,
//     процессор работает дальше
//   - Deactivated — предел попыток без drop: терминация worker'а и
//     деактивация процессора, сообщение остаётся в store
//   - NonRetryable — текст ошибки совпал с настроенным токеном:
//     повторов не будет (детали различаются для ошибки отправки и
//     ответа с маркером, см. dispatch.go)
//
// # Состояние
//
// attemptCount и succeeded принадлежат горутине Run. terminated —
// atomic.Bool, переключается в true навсегда: повторный запуск
// терминированного worker'а возможен только пересозданием экземпляра.
//
// # Ошибки
//
// Пакет различает два уровня ошибок:
//   - Ошибки доставки (send, ошибочный статус) — обрабатываются
//     политикой retry внутри цикла
//   - Ошибки инфраструктуры цикла (ack, sequence) — логируются,
//     цикл завершается без подтверждения, сообщение будет
//     перечитано следующим вызовом
package forwarder
