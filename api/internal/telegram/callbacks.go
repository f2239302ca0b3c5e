package telegram

import (
	"strings"

	"reshalka/api/internal/view"
)

const (
	cbSubmit        = "submit"
	cbClearImage    = "clear_image"
	cbNewTask       = "new_task"
	cbClearHistory  = "clear_history"
	cbHistoryPrefix = "hist:"
)

// parseCallback переводит data inline-кнопки в намерение пользователя.
func parseCallback(data string) (view.Event, bool) {
	switch data {
	case cbSubmit:
		return view.Submit{}, true
	case cbClearImage:
		return view.ClearImage{}, true
	case cbNewTask:
		return view.NewTask{}, true
	case cbClearHistory:
		return view.ClearHistory{}, true
	}
	if id, ok := strings.CutPrefix(data, cbHistoryPrefix); ok && id != "" {
		return view.ClickHistoryItem{ID: id}, true
	}
	return nil, false
}
