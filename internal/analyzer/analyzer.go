package analyzer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"DialogHarness/internal/dialog"
	"DialogHarness/internal/report"
	"DialogHarness/internal/user"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const defaultMaxTurns = 20

// UserAgent — симулированный пользователь, которого ведёт анализатор.
type UserAgent interface {
	dialog.Agent
	IsTerminated() bool
	Evaluate() user.Evaluation
	Goal() user.Goal
}

// Store сохраняет результаты прогона.
type Store interface {
	SaveRun(ctx context.Context, r report.Run) error
	SaveDialogue(ctx context.Context, d report.Dialogue) error
}

// Ensure interface compliance
var (
	_ UserAgent = (*user.Pipeline)(nil)
	_ Store     = (*report.SQLiteStore)(nil)
)

// DialogueResult — итог одного диалога.
type DialogueResult struct {
	Goal       string
	Evaluation user.Evaluation
	Transcript *Transcript
}

// Report — метрики прогона. Доли в процентах.
type Report struct {
	RunID          string
	Model          string
	StartedAt      time.Time
	Dialogs        int
	SuccessRate    float64
	CompleteRate   float64
	BookRate       float64
	AvgTurns       float64
	EmptyResponses int
	Dialogues      []DialogueResult
}

type Analyzer struct {
	user     UserAgent
	logger   *zap.SugaredLogger
	store    Store
	maxTurns int
}

type Option func(*Analyzer)

func WithLogger(l *zap.SugaredLogger) Option {
	return func(a *Analyzer) {
		if l != nil {
			a.logger = l
		}
	}
}

// WithStore включает сохранение прогонов.
func WithStore(s Store) Option {
	return func(a *Analyzer) { a.store = s }
}

// WithMaxTurns ограничивает число ходов в диалоге; неположительное значение игнорируется.
func WithMaxTurns(n int) Option {
	return func(a *Analyzer) {
		if n > 0 {
			a.maxTurns = n
		}
	}
}

func New(u UserAgent, opts ...Option) *Analyzer {
	a := &Analyzer{user: u, logger: zap.NewNop().Sugar(), maxTurns: defaultMaxTurns}
	for _, o := range opts {
		o(a)
	}
	return a
}

// SampleDialog прогоняет один диалог и возвращает его запись.
func (a *Analyzer) SampleDialog(ctx context.Context, sys dialog.Agent) (*Transcript, error) {
	res, err := a.run(ctx, sys, uuid.NewString())
	if err != nil {
		return nil, err
	}
	for i, t := range res.Transcript.Turns {
		a.logger.Infow("turn", "n", i, "user", t.User, "sys", t.System)
	}
	return res.Transcript, nil
}

// ComprehensiveAnalyze прогоняет totalDialog диалогов с системой sys и считает метрики.
// Ошибки отдельных ходов не прерывают прогон: они видны как пустые ответы системы.
func (a *Analyzer) ComprehensiveAnalyze(ctx context.Context, sys dialog.Agent, modelName string, totalDialog int) (*Report, error) {
	if totalDialog <= 0 {
		return nil, fmt.Errorf("total dialog must be positive, got %d", totalDialog)
	}
	rep := &Report{RunID: uuid.NewString(), Model: modelName, StartedAt: time.Now()}
	a.logger.Infow("analysis started", "run", rep.RunID, "model", modelName, "dialogs", totalDialog)

	var success, complete, booked, turns int
	for i := range totalDialog {
		res, err := a.run(ctx, sys, fmt.Sprintf("%s-%d", rep.RunID, i))
		if err != nil {
			return nil, err
		}
		rep.Dialogues = append(rep.Dialogues, *res)
		ev := res.Evaluation
		if ev.Success {
			success++
		}
		if ev.Complete {
			complete++
		}
		if ev.Booked {
			booked++
		}
		turns += res.Transcript.Len()
		rep.EmptyResponses += res.Transcript.EmptyResponses()
		a.logger.Infow("dialogue finished",
			"n", i,
			"goal", res.Goal,
			"success", ev.Success,
			"complete", ev.Complete,
			"booked", ev.Booked,
			"turns", res.Transcript.Len(),
		)
	}

	rep.Dialogs = totalDialog
	rep.SuccessRate = percent(success, totalDialog)
	rep.CompleteRate = percent(complete, totalDialog)
	rep.BookRate = percent(booked, totalDialog)
	rep.AvgTurns = float64(turns) / float64(totalDialog)

	a.logger.Infow("analysis finished",
		"model", modelName,
		"dialogs", rep.Dialogs,
		"success_rate", fmt.Sprintf("%.1f%%", rep.SuccessRate),
		"complete_rate", fmt.Sprintf("%.1f%%", rep.CompleteRate),
		"book_rate", fmt.Sprintf("%.1f%%", rep.BookRate),
		"avg_turns", fmt.Sprintf("%.2f", rep.AvgTurns),
		"empty_responses", rep.EmptyResponses,
	)

	if a.store != nil {
		if err := a.save(ctx, rep); err != nil {
			return rep, err
		}
	}
	return rep, nil
}

func (a *Analyzer) run(ctx context.Context, sys dialog.Agent, id string) (*DialogueResult, error) {
	a.user.InitSession()
	sys.InitSession()

	tr := NewTranscript(id)
	observation := ""
	for range a.maxTurns {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		utterance := a.user.Response(ctx, observation)
		observation = sys.Response(ctx, utterance)
		tr.Append(utterance, observation)
		if a.user.IsTerminated() {
			break
		}
	}
	if !a.user.IsTerminated() {
		a.logger.Warnw("dialogue hit turn limit", "id", id, "max_turns", a.maxTurns)
	}
	return &DialogueResult{
		Goal:       a.user.Goal().String(),
		Evaluation: a.user.Evaluate(),
		Transcript: tr,
	}, nil
}

func (a *Analyzer) save(ctx context.Context, rep *Report) error {
	err := a.store.SaveRun(ctx, report.Run{
		ID:             rep.RunID,
		Model:          rep.Model,
		StartedAt:      rep.StartedAt,
		Dialogs:        rep.Dialogs,
		SuccessRate:    rep.SuccessRate,
		CompleteRate:   rep.CompleteRate,
		BookRate:       rep.BookRate,
		AvgTurns:       rep.AvgTurns,
		EmptyResponses: rep.EmptyResponses,
	})
	if err != nil {
		return fmt.Errorf("save run: %w", err)
	}
	var errs []error
	for i, d := range rep.Dialogues {
		rd := report.Dialogue{
			RunID:    rep.RunID,
			Index:    i,
			Goal:     d.Goal,
			Success:  d.Evaluation.Success,
			Complete: d.Evaluation.Complete,
			Booked:   d.Evaluation.Booked,
			Turns:    make([]report.Turn, 0, d.Transcript.Len()),
		}
		for j, t := range d.Transcript.Turns {
			rd.Turns = append(rd.Turns, report.Turn{Index: j, User: t.User, System: t.System})
		}
		if err := a.store.SaveDialogue(ctx, rd); err != nil {
			errs = append(errs, fmt.Errorf("save dialogue %d: %w", i, err))
		}
	}
	return errors.Join(errs...)
}

func percent(v, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(v) * 100 / float64(total)
}
