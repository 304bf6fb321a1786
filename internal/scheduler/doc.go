// Package scheduler вычисляет моменты запуска процессоров.
//
// Каждый процессор вызывает свой worker либо с фиксированным
// интервалом, либо по cron-выражению. Trigger инкапсулирует оба
// варианта и отдаёт следующий момент запуска.
//
// Структура:
//   - trigger.go — тип Trigger (интервал или cron)
//   - cron.go    — парсинг cron-выражений и вычисление следующего времени
//
// Использование:
//
//	trig, err := scheduler.NewTrigger(30*time.Second, "")
//	if err != nil {
//	    return err
//	}
//
//	// В цикле процессора
//	next := trig.Next(time.Now())
//	wait := time.Until(next)
//
// Ожидание делает сам процессор: пакет только считает время и
// не держит горутин.
package scheduler
