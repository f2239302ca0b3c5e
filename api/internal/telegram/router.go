package telegram

import (
	"context"
	"net/http"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"reshalka/api/internal/acquire"
	"reshalka/api/internal/history"
	"reshalka/api/internal/submit"
	"reshalka/api/internal/view"
)

// Bot - то, что роутер использует из tgbotapi.BotAPI.
type Bot interface {
	FileLinker
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

type Options struct {
	Solver        submit.Solver
	MaxImageBytes int64
	SubmitTimeout time.Duration
	SessionTTL    time.Duration
	Log           *zap.Logger
}

type Router struct {
	Bot      Bot
	Sessions *Sessions

	acq   *acquire.Acquirer
	opt   Options
	log   *zap.Logger
	httpc *http.Client
	now   func() time.Time
}

func NewRouter(bot Bot, opt Options) *Router {
	if opt.Log == nil {
		opt.Log = zap.NewNop()
	}
	if opt.SessionTTL <= 0 {
		opt.SessionTTL = 6 * time.Hour
	}
	r := &Router{
		Bot:   bot,
		acq:   acquire.New(opt.MaxImageBytes),
		opt:   opt,
		log:   opt.Log,
		httpc: httpClient(),
		now:   time.Now,
	}
	r.Sessions = NewSessions(opt.SessionTTL, r.newController, r.renderLoop)
	return r
}

func (r *Router) newController(ctx context.Context, chatID int64, views chan<- view.View) *view.Controller {
	r.log.Info("session started", zap.Int64("chat_id", chatID))
	return view.New(view.Config{
		Acquirer:      r.acq,
		Solver:        r.opt.Solver,
		History:       history.New(),
		SubmitTimeout: r.opt.SubmitTimeout,
		Log:           r.log.With(zap.Int64("chat_id", chatID)),
		OnChange: func(v view.View) {
			select {
			case views <- v:
			case <-ctx.Done():
			}
		},
	})
}

func (r *Router) renderLoop(ctx context.Context, chatID int64, views <-chan view.View) {
	for {
		select {
		case <-ctx.Done():
			r.log.Info("session closed", zap.Int64("chat_id", chatID))
			return
		case v := <-views:
			r.show(chatID, v)
		}
	}
}

func (r *Router) HandleUpdate(upd tgbotapi.Update) {
	// callback-кнопки
	if upd.CallbackQuery != nil {
		r.handleCallback(*upd.CallbackQuery)
		return
	}
	msg := upd.Message
	if msg == nil {
		return
	}
	cid := msg.Chat.ID

	switch {
	case msg.IsCommand():
		r.HandleCommand(msg)
	case len(msg.Photo) > 0:
		r.Sessions.Get(cid).SelectFile(photoFile(r.Bot, r.httpc, msg.Photo))
	case msg.Document != nil:
		r.Sessions.Get(cid).DropFile(documentFile(r.Bot, r.httpc, msg.Document))
	default:
		r.send(cid, "Пришлите фото задания — решу его пошагово. /history — история решений.")
	}
}

func (r *Router) HandleCommand(msg *tgbotapi.Message) {
	cid := msg.Chat.ID
	switch msg.Command() {
	case "start", "new":
		r.Sessions.Get(cid).NewTask()
	case "history":
		r.showCurrent(cid)
	case "clear":
		r.Sessions.Get(cid).ClearHistory()
	default:
		r.send(cid, "Неизвестная команда. Доступны: /new, /history, /clear")
	}
}

func (r *Router) handleCallback(cb tgbotapi.CallbackQuery) {
	_, _ = r.Bot.Request(tgbotapi.NewCallback(cb.ID, "")) // ack
	if cb.Message == nil {
		return
	}
	ev, ok := parseCallback(cb.Data)
	if !ok {
		r.log.Debug("unknown callback", zap.String("data", cb.Data))
		return
	}
	r.Sessions.Get(cb.Message.Chat.ID).Dispatch(ev)
}

func (r *Router) showCurrent(chatID int64) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	v, err := r.Sessions.Get(chatID).Snapshot(ctx)
	if err != nil {
		r.log.Warn("snapshot failed", zap.Int64("chat_id", chatID), zap.Error(err))
		return
	}
	r.show(chatID, v)
}

func (r *Router) show(chatID int64, v view.View) {
	sc := Render(v, r.now())
	msg := tgbotapi.NewMessage(chatID, sc.Text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	if sc.Keyboard != nil {
		msg.ReplyMarkup = *sc.Keyboard
	}
	if _, err := r.Bot.Send(msg); err != nil {
		// Markdown мог не разобраться из-за текста модели, повторяем без разметки
		r.log.Warn("send failed, retrying as plain text", zap.Int64("chat_id", chatID), zap.String("state", string(v.State)), zap.Error(err))
		msg.ParseMode = ""
		if _, err := r.Bot.Send(msg); err != nil {
			r.log.Error("send failed", zap.Int64("chat_id", chatID), zap.Error(err))
		}
	}
}

func (r *Router) send(chatID int64, text string) {
	if _, err := r.Bot.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		r.log.Warn("send failed", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}
