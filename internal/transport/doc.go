// Package transport реализует блокирующую доставку сообщений по HTTP.
//
// BlockingSender отправляет сообщение на endpoint и ждёт ответ:
//   - 2xx с телом      → ответное сообщение
//   - 202/204          → nil (one-way доставка, ответа не будет)
//   - 4xx/5xx          → ответное сообщение с флагом SenderError
//   - сетевая ошибка   → error
//
// Статусы из Message.NonErrorStatus ошибкой не считаются.
//
// На каждый endpoint с ненулевым BreakerThreshold лениво создаётся
// circuit breaker: после N подряд неудач отправки перестают доходить
// до endpoint'а до истечения reset-таймаута.
package transport
