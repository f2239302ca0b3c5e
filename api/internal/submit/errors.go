package submit

import (
	"errors"
	"fmt"
)

// Kind - класс ошибки отправки.
type Kind int

const (
	KindServiceError Kind = iota + 1
	KindNetworkError
	KindMalformedResponse
)

func (k Kind) String() string {
	switch k {
	case KindServiceError:
		return "service_error"
	case KindNetworkError:
		return "network_error"
	case KindMalformedResponse:
		return "malformed_response"
	default:
		return "unknown"
	}
}

// Сообщения по умолчанию, если сервис не сказал ничего внятного.
const (
	GenericServiceMessage   = "Не удалось решить задание, попробуйте ещё раз"
	GenericNetworkMessage   = "Сервис недоступен, проверьте соединение"
	GenericMalformedMessage = "Сервис вернул некорректный ответ"
)

// Error - ошибка Submission Unit. Message пригоден для показа пользователю.
type Error struct {
	Kind    Kind
	Status  int
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("solve %s (%d): %s", e.Kind, e.Status, e.Message)
	}
	if e.Err != nil {
		return fmt.Sprintf("solve %s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("solve %s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf достаёт Kind из цепочки; 0 если это не *Error.
func KindOf(err error) Kind {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	return 0
}
