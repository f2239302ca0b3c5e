package view

import (
	"reshalka/api/internal/acquire"
	"reshalka/api/internal/history"
	"reshalka/api/internal/solve"
	"reshalka/api/internal/submit"
)

// Event is an intent from the presentation layer or a completion of
// asynchronous work.
type Event interface{ name() string }

// Intents.
type (
	SelectFile       struct{ File acquire.File }
	DropFile         struct{ File acquire.File }
	ClearImage       struct{}
	Submit           struct{}
	NewTask          struct{}
	ClickHistoryItem struct{ ID string }
	ClearHistory     struct{}
)

// Completions.
type (
	ImageAcquired struct {
		Seq   uint64
		Image solve.EncodedImage
		Err   error
	}
	SubmissionDone struct{ submit.Completion }
)

// Внутренние события контроллера.
type (
	openHistoryItem struct{ Item history.Item }
	snapshotReq     struct{ reply chan View }
)

func (SelectFile) name() string       { return "select_file" }
func (DropFile) name() string         { return "drop_file" }
func (ClearImage) name() string       { return "clear_image" }
func (Submit) name() string           { return "submit" }
func (NewTask) name() string          { return "new_task" }
func (ClickHistoryItem) name() string { return "click_history_item" }
func (ClearHistory) name() string     { return "clear_history" }
func (ImageAcquired) name() string    { return "image_acquired" }
func (SubmissionDone) name() string   { return "submission_done" }
func (openHistoryItem) name() string  { return "click_history_item" }
func (snapshotReq) name() string      { return "snapshot" }

// Effects requested by transition.
type effect interface{ isEffect() }

type (
	startAcquire struct {
		Seq  uint64
		File acquire.File
	}
	startSubmit struct {
		Token submit.Token
		Image solve.EncodedImage
	}
	cancelSubmit   struct{ Token submit.Token }
	recordSolution struct{ Solution solve.Solution }
	wipeHistory    struct{}
)

func (startAcquire) isEffect()   {}
func (startSubmit) isEffect()    {}
func (cancelSubmit) isEffect()   {}
func (recordSolution) isEffect() {}
func (wipeHistory) isEffect()    {}
