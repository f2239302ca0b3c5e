package view

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"reshalka/api/internal/acquire"
	"reshalka/api/internal/history"
	"reshalka/api/internal/solve"
	"reshalka/api/internal/submit"
)

var ErrStopped = errors.New("view: controller stopped")

type Acquirer interface {
	Acquire(ctx context.Context, f acquire.File) (solve.EncodedImage, error)
}

// View is what the presentation layer renders. It is a copy; mutating it
// does not affect the controller.
type View struct {
	State     StateName
	Image     solve.EncodedImage
	Solution  *solve.Solution
	HistoryID string
	Failure   *Failure
	History   []history.Item
	// Cause is the name of the event that produced this view.
	Cause string
}

func (v View) Busy() bool      { return v.State == Analyzing }
func (v View) CanSubmit() bool { return v.State == ImageSelected }

type Config struct {
	Acquirer      Acquirer
	Solver        submit.Solver
	History       *history.History
	SubmitTimeout time.Duration
	Log           *zap.Logger
	// OnChange is called from the controller goroutine after every visible change.
	OnChange func(View)
}

// Controller owns one session's State. All mutation happens on the goroutine
// running Run; intents and completions reach it through a channel.
type Controller struct {
	acq      Acquirer
	solver   submit.Solver
	hist     *history.History
	timeout  time.Duration
	log      *zap.Logger
	onChange func(View)

	events chan Event
	done   chan struct{}
	wg     sync.WaitGroup

	state    State
	inflight map[submit.Token]context.CancelFunc
}

func New(cfg Config) *Controller {
	c := &Controller{
		acq:      cfg.Acquirer,
		solver:   cfg.Solver,
		hist:     cfg.History,
		timeout:  cfg.SubmitTimeout,
		log:      cfg.Log,
		onChange: cfg.OnChange,
		events:   make(chan Event, 32),
		done:     make(chan struct{}),
		state:    Initial(),
		inflight: make(map[submit.Token]context.CancelFunc),
	}
	if c.acq == nil {
		c.acq = acquire.New(0)
	}
	if c.hist == nil {
		c.hist = history.New()
	}
	if c.timeout <= 0 {
		c.timeout = submit.DefaultTimeout
	}
	if c.log == nil {
		c.log = zap.NewNop()
	}
	if c.onChange == nil {
		c.onChange = func(View) {}
	}
	return c
}

// Run processes events until ctx is cancelled. It must be called once.
func (c *Controller) Run(ctx context.Context) error {
	defer func() {
		close(c.done)
		for _, cancel := range c.inflight {
			cancel()
		}
		c.wg.Wait()
	}()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev := <-c.events:
			c.handle(ctx, ev)
		}
	}
}

// Dispatch queues ev. It returns false once the controller has stopped.
func (c *Controller) Dispatch(ev Event) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.events <- ev:
		return true
	case <-c.done:
		return false
	}
}

func (c *Controller) SelectFile(f acquire.File)  { c.Dispatch(SelectFile{File: f}) }
func (c *Controller) DropFile(f acquire.File)    { c.Dispatch(DropFile{File: f}) }
func (c *Controller) ClearImage()                { c.Dispatch(ClearImage{}) }
func (c *Controller) Submit()                    { c.Dispatch(Submit{}) }
func (c *Controller) NewTask()                   { c.Dispatch(NewTask{}) }
func (c *Controller) ClickHistoryItem(id string) { c.Dispatch(ClickHistoryItem{ID: id}) }
func (c *Controller) ClearHistory()              { c.Dispatch(ClearHistory{}) }

// Snapshot returns the current view without changing anything.
func (c *Controller) Snapshot(ctx context.Context) (View, error) {
	reply := make(chan View, 1)
	if !c.Dispatch(snapshotReq{reply: reply}) {
		return View{}, ErrStopped
	}
	select {
	case v := <-reply:
		return v, nil
	case <-c.done:
		return View{}, ErrStopped
	case <-ctx.Done():
		return View{}, ctx.Err()
	}
}

func (c *Controller) handle(ctx context.Context, ev Event) {
	switch e := ev.(type) {
	case snapshotReq:
		e.reply <- c.view(e.name())
		return
	case ClickHistoryItem:
		it, ok := c.hist.Get(e.ID)
		if !ok {
			c.log.Debug("history item not found", zap.String("id", e.ID))
			return
		}
		ev = openHistoryItem{Item: it}
	case SubmissionDone:
		if cancel, ok := c.inflight[e.Token]; ok {
			cancel()
			delete(c.inflight, e.Token)
		}
	}

	prev := c.state.Name
	next, effects, visible := transition(c.state, ev)
	c.state = next
	for _, ef := range effects {
		c.run(ctx, ef)
	}

	if !visible {
		if done, ok := ev.(SubmissionDone); ok {
			c.log.Debug("stale submission dropped", zap.Uint64("token", uint64(done.Token)))
		}
		return
	}
	c.log.Debug("transition",
		zap.String("event", ev.name()),
		zap.String("from", string(prev)),
		zap.String("to", string(next.Name)))
	c.onChange(c.view(ev.name()))
}

func (c *Controller) run(ctx context.Context, ef effect) {
	switch e := ef.(type) {
	case startAcquire:
		c.wg.Add(1)
		go func() {
			defer c.wg.Done()
			img, err := c.acq.Acquire(ctx, e.File)
			if err != nil {
				c.log.Info("file rejected", zap.Error(err))
			}
			c.Dispatch(ImageAcquired{Seq: e.Seq, Image: img, Err: err})
		}()

	case startSubmit:
		subCtx, cancel := context.WithTimeout(ctx, c.timeout)
		c.inflight[e.Token] = cancel
		c.wg.Add(1)
		go func() {
			defer c.wg.Done()
			done := submit.Submit(subCtx, c.solver, e.Token, e.Image)
			if done.Err != nil {
				c.log.Warn("submission failed", zap.Uint64("token", uint64(e.Token)), zap.Error(done.Err))
			}
			c.Dispatch(SubmissionDone{Completion: done})
		}()

	case cancelSubmit:
		if cancel, ok := c.inflight[e.Token]; ok {
			cancel()
			delete(c.inflight, e.Token)
		}

	case recordSolution:
		it := c.hist.Record(e.Solution.Subject, e.Solution.Task, e.Solution)
		c.log.Info("solution recorded", zap.String("id", it.ID), zap.String("subject", it.Subject))

	case wipeHistory:
		c.hist.Clear()
	}
}

func (c *Controller) view(cause string) View {
	s := c.state
	v := View{
		State:     s.Name,
		Image:     s.Image,
		HistoryID: s.HistoryID,
		History:   c.hist.List(),
		Cause:     cause,
	}
	if s.Solution != nil {
		sol := s.Solution.Clone()
		v.Solution = &sol
	}
	if s.Failure != nil {
		f := *s.Failure
		v.Failure = &f
	}
	return v
}
