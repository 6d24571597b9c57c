package user

import (
	"context"

	"DialogHarness/internal/dialog"

	"go.uber.org/zap"
)

// NLU разбирает реплику собеседника в диалоговые акты.
type NLU interface {
	Parse(text string) []dialog.Act
}

// StateTracker накапливает состояние диалога по актам собеседника.
type StateTracker interface {
	Init()
	Update(acts []dialog.Act)
}

// Policy выбирает акты пользователя и оценивает достижение цели.
type Policy interface {
	Init()
	Predict(sysActs []dialog.Act) []dialog.Act
	IsTerminated() bool
	Evaluate() Evaluation
	Goal() Goal
}

// Ensure interface compliance
var (
	_ dialog.Agent = (*Pipeline)(nil)
	_ Policy       = (*RulePolicy)(nil)
)

// Pipeline — агент пользователя NLU -> DST -> Policy -> NLG. Любую стадию, кроме политики,
// можно не задавать: без NLU политика видит пустой список актов, без DST состояние не ведётся,
// без NLG реплика пустая.
type Pipeline struct {
	name   string
	nlu    NLU
	dst    StateTracker
	policy Policy
	nlg    dialog.Generator
	logger *zap.SugaredLogger
}

// NewPipeline собирает агента. dst может быть nil.
func NewPipeline(nlu NLU, dst StateTracker, policy Policy, nlg dialog.Generator, name string, logger *zap.SugaredLogger) *Pipeline {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Pipeline{name: name, nlu: nlu, dst: dst, policy: policy, nlg: nlg, logger: logger.Named(name)}
}

func (p *Pipeline) Name() string { return p.name }

// Response формирует реплику пользователя на реплику системы.
func (p *Pipeline) Response(ctx context.Context, observation string) string {
	var acts []dialog.Act
	if p.nlu != nil {
		acts = p.nlu.Parse(observation)
	}
	if p.dst != nil {
		p.dst.Update(acts)
	}
	out := p.policy.Predict(acts)
	if p.nlg == nil {
		return ""
	}
	text, err := p.nlg.Generate(ctx, out)
	if err != nil {
		p.logger.Warnw("user generation failed", "error", err, "acts", out)
		return ""
	}
	p.logger.Infow("user", "text", text)
	return text
}

// InitSession сбрасывает все стадии и выбирает новую цель.
func (p *Pipeline) InitSession() {
	if p.dst != nil {
		p.dst.Init()
	}
	p.policy.Init()
}

func (p *Pipeline) IsTerminated() bool { return p.policy.IsTerminated() }

func (p *Pipeline) Evaluate() Evaluation { return p.policy.Evaluate() }

func (p *Pipeline) Goal() Goal { return p.policy.Goal() }
