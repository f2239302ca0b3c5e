package telegram

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"

	"reshalka/api/internal/view"
)

type session struct {
	ctrl   *view.Controller
	cancel context.CancelFunc
	done   chan struct{}
}

func (s *session) stop() {
	s.cancel()
	<-s.done
}

// Sessions - по одному контроллеру на чат. Сессия живёт ttl с последнего обращения;
// при вытеснении цикл контроллера останавливается, история пропадает.
type Sessions struct {
	mu      sync.Mutex
	items   *cache.Cache
	ttl     time.Duration
	newCtrl func(ctx context.Context, chatID int64, views chan<- view.View) *view.Controller
	render  func(ctx context.Context, chatID int64, views <-chan view.View)
}

func NewSessions(
	ttl time.Duration,
	newCtrl func(ctx context.Context, chatID int64, views chan<- view.View) *view.Controller,
	render func(ctx context.Context, chatID int64, views <-chan view.View),
) *Sessions {
	s := &Sessions{
		items:   cache.New(ttl, ttl/4+time.Second),
		ttl:     ttl,
		newCtrl: newCtrl,
		render:  render,
	}
	s.items.OnEvicted(func(_ string, v interface{}) {
		if ss, ok := v.(*session); ok {
			// не держим janitor, пока дорабатывает контроллер
			go ss.stop()
		}
	})
	return s
}

// Get возвращает контроллер чата, создавая и запуская его при первом обращении.
func (s *Sessions) Get(chatID int64) *view.Controller {
	key := strconv.FormatInt(chatID, 10)

	s.mu.Lock()
	defer s.mu.Unlock()
	if v, ok := s.items.Get(key); ok {
		ss := v.(*session)
		s.items.Set(key, ss, s.ttl)
		return ss.ctrl
	}
	// Get не видит просроченную запись, а Set перезаписал бы её без OnEvicted.
	s.items.DeleteExpired()

	ctx, cancel := context.WithCancel(context.Background())
	views := make(chan view.View, 32)
	ss := &session{
		ctrl:   s.newCtrl(ctx, chatID, views),
		cancel: cancel,
		done:   make(chan struct{}),
	}
	go func() {
		defer close(ss.done)
		var wg sync.WaitGroup
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.render(ctx, chatID, views)
		}()
		_ = ss.ctrl.Run(ctx)
		wg.Wait()
	}()
	s.items.Set(key, ss, s.ttl)
	return ss.ctrl
}

func (s *Sessions) Len() int { return s.items.ItemCount() }

// Close останавливает все сессии.
func (s *Sessions) Close() {
	s.mu.Lock()
	s.items.DeleteExpired()
	items := s.items.Items()
	s.items.Flush()
	s.mu.Unlock()
	for _, it := range items {
		if ss, ok := it.Object.(*session); ok {
			ss.stop()
		}
	}
}
