package view

import "reshalka/api/internal/acquire"

// transition applies ev to s. visible=false means nothing the presentation
// layer shows has changed: the event was ignored or only started background work.
func transition(s State, ev Event) (next State, effects []effect, visible bool) {
	switch e := ev.(type) {
	case SelectFile:
		return beginAcquire(s, e.File)
	case DropFile:
		return beginAcquire(s, e.File)

	case ImageAcquired:
		if e.Seq != s.acquireSeq {
			return s, nil, false
		}
		if e.Err != nil {
			// выбор файла не меняет состояние; во время анализа ошибку некуда показать
			if s.Name == Analyzing {
				return s, nil, false
			}
			s.Failure = failureFromAcquire(e.Err)
			return s, nil, true
		}
		if s.Name == Analyzing {
			effects = append(effects, cancelSubmit{Token: s.Token})
		}
		s = reset(s, ImageSelected)
		s.Image = e.Image
		return s, effects, true

	case ClearImage:
		if s.Name != ImageSelected {
			return s, nil, false
		}
		return reset(s, Capture), nil, true

	case Submit:
		if s.Name != ImageSelected || s.Image == "" {
			return s, nil, false
		}
		s.lastToken++
		s.Token = s.lastToken
		s.Name = Analyzing
		s.Failure = nil
		return s, []effect{startSubmit{Token: s.Token, Image: s.Image}}, true

	case SubmissionDone:
		if s.Name != Analyzing || e.Token != s.Token {
			return s, nil, false
		}
		if e.Err != nil {
			s.Name = ImageSelected
			s.Token = 0
			s.Failure = failureFromSubmit(e.Err)
			return s, nil, true
		}
		sol := e.Solution.Clone()
		s = reset(s, Result)
		s.Solution = &sol
		return s, []effect{recordSolution{Solution: sol}}, true

	case NewTask:
		if s.Name == Analyzing {
			effects = append(effects, cancelSubmit{Token: s.Token})
		}
		return reset(s, Capture), effects, true

	case openHistoryItem:
		switch s.Name {
		case Capture, Result, ViewingHistory:
		default:
			return s, nil, false
		}
		sol := e.Item.Solution.Clone()
		s = reset(s, ViewingHistory)
		s.Solution = &sol
		s.HistoryID = e.Item.ID
		return s, nil, true

	case ClearHistory:
		return s, []effect{wipeHistory{}}, true
	}
	return s, nil, false
}

func beginAcquire(s State, f acquire.File) (State, []effect, bool) {
	s.acquireSeq++
	return s, []effect{startAcquire{Seq: s.acquireSeq, File: f}}, false
}

// reset переводит в name, отбрасывая изображение, решение, ошибку и токен.
// Незавершённые чтения файлов тоже становятся устаревшими.
func reset(s State, name StateName) State {
	return State{
		Name:       name,
		lastToken:  s.lastToken,
		acquireSeq: s.acquireSeq + 1,
	}
}
