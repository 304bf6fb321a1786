package domain

// ProcessorStatus — статус message processor'а.
//
// Жизненный цикл:
//
//	ACTIVE → PAUSED (deactivate: оператор или исчерпание попыток)
//	PAUSED → ACTIVE (activate: только оператор)
type ProcessorStatus string

const (
	// ProcessorStatusActive — процессор работает и доставляет сообщения.
	ProcessorStatusActive ProcessorStatus = "ACTIVE"

	// ProcessorStatusPaused — процессор остановлен, сообщения копятся в store.
	ProcessorStatusPaused ProcessorStatus = "PAUSED"
)

// String возвращает строковое представление ProcessorStatus.
func (s ProcessorStatus) String() string {
	return string(s)
}

// ParseProcessorStatus парсит строку в ProcessorStatus.
func ParseProcessorStatus(s string) ProcessorStatus {
	switch s {
	case "ACTIVE":
		return ProcessorStatusActive
	case "PAUSED":
		return ProcessorStatusPaused
	default:
		return ProcessorStatusPaused
	}
}
