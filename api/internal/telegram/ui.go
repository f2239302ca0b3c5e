package telegram

import (
	"fmt"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"reshalka/api/internal/history"
	"reshalka/api/internal/solve"
	"reshalka/api/internal/util"
	"reshalka/api/internal/view"
)

const (
	maxMessageRunes = 3900
	maxButtonRunes  = 40
)

// Screen - одно сообщение бота: текст в Markdown и (необязательная) клавиатура.
type Screen struct {
	Text     string
	Keyboard *tgbotapi.InlineKeyboardMarkup
}

// Render строит сообщение для текущего состояния контроллера.
func Render(v view.View, now time.Time) Screen {
	var sc Screen
	switch v.State {
	case view.Capture:
		sc = renderCapture(v, now)
	case view.ImageSelected:
		sc = renderSelected(v)
	case view.Analyzing:
		sc = Screen{Text: "⏳ Анализирую задание…"}
	case view.Result, view.ViewingHistory:
		sc = renderSolution(v)
	default:
		sc = Screen{Text: "Пришлите фото задания."}
	}
	sc.Text = util.Truncate(sc.Text, maxMessageRunes)
	return sc
}

func renderCapture(v view.View, now time.Time) Screen {
	var b strings.Builder
	b.WriteString("📸 Пришлите фото задания — решу его пошагово.\nJPG, PNG — до 10 МБ.")
	writeFailure(&b, v.Failure)

	if len(v.History) == 0 {
		return Screen{Text: b.String()}
	}
	b.WriteString("\n\n*История решений*")
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(v.History)+1)
	for i, it := range v.History {
		icon := solve.ParseSubject(it.Subject).Icon().Emoji()
		fmt.Fprintf(&b, "\n%d. %s %s · %s\n    %s", i+1, icon, esc(it.Subject), ageRu(it.Timestamp, now), esc(it.Preview))
		label := icon + " " + util.Truncate(it.Preview, maxButtonRunes)
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData(label, cbHistoryPrefix+it.ID)))
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("🗑 Очистить", cbClearHistory)))
	kb := tgbotapi.NewInlineKeyboardMarkup(rows...)
	return Screen{Text: b.String(), Keyboard: &kb}
}

func renderSelected(v view.View) Screen {
	var b strings.Builder
	b.WriteString("✅ Фото принято. Нажмите «Решить задание» или пришлите другое фото.")
	writeFailure(&b, v.Failure)
	kb := tgbotapi.NewInlineKeyboardMarkup(tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("🧠 Решить задание", cbSubmit),
		tgbotapi.NewInlineKeyboardButtonData("✖️ Убрать фото", cbClearImage),
	))
	return Screen{Text: b.String(), Keyboard: &kb}
}

func renderSolution(v view.View) Screen {
	var b strings.Builder
	if v.State == view.ViewingHistory {
		b.WriteString("🕘 _Из истории_\n\n")
	}
	if sol := v.Solution; sol != nil {
		fmt.Fprintf(&b, "%s *%s*\n\n", solve.ParseSubject(sol.Subject).Icon().Emoji(), esc(sol.Subject))
		fmt.Fprintf(&b, "*Задание:* %s\n\n*Решение:*", esc(sol.Task))
		for i, step := range sol.Steps {
			fmt.Fprintf(&b, "\n%d. %s", i+1, esc(step))
		}
		fmt.Fprintf(&b, "\n\n*Ответ:* %s", esc(sol.Answer))
	}
	writeFailure(&b, v.Failure)
	kb := tgbotapi.NewInlineKeyboardMarkup(tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("📸 Новое задание", cbNewTask),
	))
	return Screen{Text: b.String(), Keyboard: &kb}
}

func writeFailure(b *strings.Builder, f *view.Failure) {
	if f == nil {
		return
	}
	b.WriteString("\n\n⚠️ ")
	b.WriteString(esc(f.Message))
}

// ageRu - «только что», «3 ч назад», «вчера», «5 дн назад».
func ageRu(t, now time.Time) string {
	unit, n := history.Age(t, now)
	switch unit {
	case history.JustNow:
		return "только что"
	case history.Hours:
		return fmt.Sprintf("%d ч назад", n)
	case history.Yesterday:
		return "вчера"
	default:
		return fmt.Sprintf("%d дн назад", n)
	}
}

// лёгкое экранирование для Markdown
func esc(s string) string {
	s = strings.ReplaceAll(s, "`", "'")
	s = strings.ReplaceAll(s, "_", "\\_")
	s = strings.ReplaceAll(s, "*", "\\*")
	s = strings.ReplaceAll(s, "[", "\\[")
	return s
}
