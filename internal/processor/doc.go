// Package processor управляет жизненным циклом message processor'ов.
//
// # Обзор
//
// Processor — единица хостинга Courier: связывает store, endpoint и
// worker доставки (internal/forwarder) и вызывает worker по своему
// расписанию. Processor отвечает за:
//
//   - Горутину расписания (фиксированный интервал или cron)
//   - Активацию и деактивацию по запросу API и CLI
//   - Пересоздание worker'а при реактивации (чистое состояние цикла)
//   - Освобождение consumer'а store при остановке
//
// Каждый processor владеет ровно одним worker'ом в каждый момент
// времени; вызовы Run строго последовательны, параллельной доставки
// из одного store внутри процессора не бывает.
//
// # Жизненный цикл
//
//	p, err := processor.New(processor.Config{
//	    Name:      "orders-forwarder",
//	    Params:    params,
//	    Store:     st,
//	    Sender:    sender,
//	    Endpoints: endpoints,
//	    Active:    true,
//	    Logger:    logger,
//	})
//
//	if err := p.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer p.Stop()
//
//	p.Deactivate() // доставка остановлена, сообщения копятся в store
//	p.Activate()   // новый worker, доставка продолжается
//
// Деактивация не теряет сообщения: неподтверждённые остаются в store
// до следующей активации. Терминированный worker не возобновляется —
// Activate ставит на его место новый экземпляр, прежний consumer
// закрывается.
//
// # Деактивация со стороны worker'а
//
// Worker сам деактивирует владельца при исчерпании бюджета попыток
// (без drop-политики) и при панике в цикле доставки. Для процессора
// это та же операция Deactivate, что и у API.
//
// # Registry
//
// Реестр именованных processor'ов. API и CLI находят процессоры
// только через него.
package processor
