package forwarder

import (
	"strconv"
	"strings"

	"github.com/shaiso/Courier/internal/domain"
)

// OutcomeKind — классификация результата попытки доставки.
type OutcomeKind int

const (
	// OutcomeSuccess — доставка удалась.
	OutcomeSuccess OutcomeKind = iota

	// OutcomeRetryable — доставка не удалась, имеет смысл повторить.
	OutcomeRetryable

	// OutcomeNonRetryable — доставка не удалась и повтор бесполезен.
	OutcomeNonRetryable
)

// String возвращает строковое представление OutcomeKind.
func (k OutcomeKind) String() string {
	switch k {
	case OutcomeSuccess:
		return "success"
	case OutcomeRetryable:
		return "retryable"
	case OutcomeNonRetryable:
		return "non-retryable"
	default:
		return "unknown"
	}
}

// Outcome — результат классификации одной попытки доставки.
// Потребляется сразу, нигде не сохраняется.
type Outcome struct {
	Kind   OutcomeKind
	Reason string
}

// defaultErrorStatusLiterals — статусы вне диапазонов 4xx/5xx,
// которые всё равно считаются ошибкой доставки.
var defaultErrorStatusLiterals = []string{"301"}

// NonRetryable возвращает true, если текст ошибки содержит любой из
// токенов. Сопоставление подстрочное: токен "404" совпадёт и с
// "HTTP 404 Not Found", и с "code=4041".
func NonRetryable(errText string, tokens []string) bool {
	if errText == "" {
		return false
	}
	for _, tok := range tokens {
		if tok != "" && strings.Contains(errText, tok) {
			return true
		}
	}
	return false
}

// ErrorStatus возвращает true, если текст статуса означает ошибку
// доставки: начинается с "4" или "5" либо равен одному из literals.
// nil literals означает дефолтный набор {"301"}.
func ErrorStatus(statusText string, literals []string) bool {
	if literals == nil {
		literals = defaultErrorStatusLiterals
	}
	if strings.HasPrefix(statusText, "4") || strings.HasPrefix(statusText, "5") {
		return true
	}
	for _, lit := range literals {
		if statusText == lit {
			return true
		}
	}
	return false
}

// ClassifySendError классифицирует ошибку блокирующей отправки.
func ClassifySendError(err error, tokens []string) Outcome {
	if err == nil {
		return Outcome{Kind: OutcomeSuccess}
	}
	text := err.Error()
	if NonRetryable(text, tokens) {
		return Outcome{Kind: OutcomeNonRetryable, Reason: text}
	}
	return Outcome{Kind: OutcomeRetryable, Reason: text}
}

// ClassifyReply классифицирует ответ endpoint'а.
//
// Ответ с маркером ошибки отправки классифицируется по тексту ошибки
// (подстрочное совпадение токенов), остальные — по HTTP-статусу.
// nil-ответ (one-way доставка) — успех.
func ClassifyReply(reply *domain.Message, tokens []string) Outcome {
	if reply == nil {
		return Outcome{Kind: OutcomeSuccess, Reason: "one-way delivery"}
	}
	if reply.SenderError {
		if NonRetryable(reply.ErrorMessage, tokens) {
			return Outcome{Kind: OutcomeNonRetryable, Reason: reply.ErrorMessage}
		}
		return Outcome{Kind: OutcomeRetryable, Reason: reply.ErrorMessage}
	}
	status := strconv.Itoa(reply.StatusCode)
	if ErrorStatus(status, nil) {
		return Outcome{Kind: OutcomeRetryable, Reason: "error status " + status}
	}
	return Outcome{Kind: OutcomeSuccess}
}
