// Package solve holds the types shared by the bot and the Solve Service:
// the encoded task image and the structured step-by-step solution.
package solve

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"reshalka/api/internal/util"
)

// EncodedImage - самоописывающий data URL вида data:<mime>;base64,<payload>.
type EncodedImage string

func (img EncodedImage) String() string { return string(img) }

// MediaType возвращает MIME из префикса data URL.
func (img EncodedImage) MediaType() string {
	mime, _, err := util.SplitDataURL(string(img))
	if err != nil {
		return ""
	}
	return mime
}

// Bytes декодирует полезную нагрузку.
func (img EncodedImage) Bytes() ([]byte, error) {
	b, _, err := util.DecodeImagePayload(string(img))
	return b, err
}

// Solution - ответ сервиса решения. Порядок Steps - порядок рассуждения,
// его нельзя менять или схлопывать дубликаты.
type Solution struct {
	Subject string   `json:"subject"`
	Task    string   `json:"task"`
	Steps   []string `json:"steps"`
	Answer  string   `json:"answer"`
}

var (
	ErrMissingField = errors.New("solution: missing field")
	ErrNoSteps      = errors.New("solution: steps are empty")
)

// Validate проверяет, что все четыре поля заполнены и шагов хотя бы один.
func (s Solution) Validate() error {
	switch {
	case strings.TrimSpace(s.Subject) == "":
		return fmt.Errorf("%w: subject", ErrMissingField)
	case strings.TrimSpace(s.Task) == "":
		return fmt.Errorf("%w: task", ErrMissingField)
	case strings.TrimSpace(s.Answer) == "":
		return fmt.Errorf("%w: answer", ErrMissingField)
	case len(s.Steps) == 0:
		return ErrNoSteps
	}
	return nil
}

// Clone копирует Steps, чтобы держатели копии не делили backing array.
func (s Solution) Clone() Solution {
	out := s
	out.Steps = append([]string(nil), s.Steps...)
	return out
}

// Фоллбэк, когда модель ответила не-JSON.
const (
	FallbackSubject = "Общее"
	FallbackTask    = "Задание с фото"
	FallbackAnswer  = "См. решение выше"
)

// FromModelOutput превращает текст модели в Solution. Снимает ```-обёртку;
// если JSON не разобрался - возвращает фоллбэк с сырым текстом единственным шагом.
// Недостающие поля добиваются фоллбэком. parsed=false означает, что JSON не разобран.
func FromModelOutput(content string) (sol Solution, parsed bool) {
	content = util.StripCodeFences(content)

	if err := json.Unmarshal([]byte(content), &sol); err != nil {
		return Solution{
			Subject: FallbackSubject,
			Task:    FallbackTask,
			Steps:   []string{content},
			Answer:  FallbackAnswer,
		}, false
	}

	if strings.TrimSpace(sol.Subject) == "" {
		sol.Subject = FallbackSubject
	}
	if strings.TrimSpace(sol.Task) == "" {
		sol.Task = FallbackTask
	}
	if strings.TrimSpace(sol.Answer) == "" {
		sol.Answer = FallbackAnswer
	}
	if len(sol.Steps) == 0 {
		sol.Steps = []string{content}
	}
	return sol, true
}
