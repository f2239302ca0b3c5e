// Package view is the task-submission state machine that sits between the
// presentation layer and the acquisition, submission and history units.
//
// State changes happen only in transition, a pure function of the current
// State and one Event. The Controller owns the State, runs the side effects
// transition asks for and publishes a View after every visible change.
package view

import (
	"errors"

	"reshalka/api/internal/acquire"
	"reshalka/api/internal/solve"
	"reshalka/api/internal/submit"
)

type StateName string

const (
	Capture        StateName = "capture"
	ImageSelected  StateName = "image_selected"
	Analyzing      StateName = "analyzing"
	Result         StateName = "result"
	ViewingHistory StateName = "viewing_history"
)

type ErrorKind int

const (
	InvalidInput ErrorKind = iota + 1
	NetworkError
	ServiceError
	MalformedResponse
)

func (k ErrorKind) String() string {
	switch k {
	case InvalidInput:
		return "invalid_input"
	case NetworkError:
		return "network_error"
	case ServiceError:
		return "service_error"
	case MalformedResponse:
		return "malformed_response"
	default:
		return "unknown"
	}
}

// Failure - ошибка, показываемая пользователю.
type Failure struct {
	Kind    ErrorKind
	Message string
}

const (
	MsgNotAnImage = "Это не изображение. Пришлите фото задания (JPG, PNG — до 10 МБ)."
	MsgReadFailed = "Не удалось загрузить фото, попробуйте ещё раз."
)

// State is the controller-owned snapshot. Image lives only in ImageSelected
// and Analyzing; Solution only in Result and ViewingHistory.
type State struct {
	Name      StateName
	Image     solve.EncodedImage
	Solution  *solve.Solution
	HistoryID string
	Failure   *Failure

	// Token of the in-flight submission, zero when none.
	Token     submit.Token
	lastToken submit.Token
	// Ticket of the newest acquisition; older completions are dropped.
	acquireSeq uint64
}

func Initial() State { return State{Name: Capture} }

func failureFromAcquire(err error) *Failure {
	if errors.Is(err, acquire.ErrInvalidInput) {
		return &Failure{Kind: InvalidInput, Message: MsgNotAnImage}
	}
	return &Failure{Kind: NetworkError, Message: MsgReadFailed}
}

func failureFromSubmit(err error) *Failure {
	var se *submit.Error
	if !errors.As(err, &se) {
		return &Failure{Kind: NetworkError, Message: submit.GenericNetworkMessage}
	}
	f := &Failure{Message: se.Message}
	switch se.Kind {
	case submit.KindServiceError:
		f.Kind = ServiceError
	case submit.KindMalformedResponse:
		f.Kind = MalformedResponse
	default:
		f.Kind = NetworkError
	}
	return f
}
