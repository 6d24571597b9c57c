package user

import (
	"slices"

	"DialogHarness/internal/dialog"
)

// Evaluation — итог диалога с точки зрения цели пользователя.
type Evaluation struct {
	Success     bool `json:"success"`
	Complete    bool `json:"complete"` // получены все запрошенные слоты
	Booked      bool `json:"booked"`   // сделаны все нужные брони
	Domains     int  `json:"domains"`
	DomainsDone int  `json:"domains_done"`
}

type progress struct {
	goal    DomainGoal
	opened  bool
	name    string
	got     map[string]string
	ref     string
	noOffer bool
}

func (p *progress) missing() []string {
	var out []string
	for _, s := range p.goal.Reqt {
		if _, ok := p.got[s]; !ok {
			out = append(out, s)
		}
	}
	return out
}

func (p *progress) done() bool {
	return p.name != "" && len(p.missing()) == 0 && (!p.goal.Book || p.ref != "")
}

// RulePolicy — политика пользователя на правилах: сообщает ограничения домена, отвечает на
// вопросы системы, дозапрашивает недостающие слоты, просит бронь и прощается в конце.
type RulePolicy struct {
	goals *GoalGenerator

	goal       Goal
	progress   []*progress
	cur        int
	terminated bool
}

func NewRulePolicy(goals *GoalGenerator) *RulePolicy {
	p := &RulePolicy{goals: goals}
	p.Init()
	return p
}

// Init выбирает новую цель и сбрасывает прогресс.
func (p *RulePolicy) Init() {
	p.goal = p.goals.Next()
	p.progress = make([]*progress, 0, len(p.goal.Domains))
	for _, d := range p.goal.Domains {
		p.progress = append(p.progress, &progress{goal: d, got: make(map[string]string)})
	}
	p.cur = 0
	p.terminated = false
}

// Goal возвращает копию текущей цели.
func (p *RulePolicy) Goal() Goal { return p.goal.Clone() }

func (p *RulePolicy) IsTerminated() bool { return p.terminated }

// Predict выбирает акты пользователя в ответ на акты системы.
func (p *RulePolicy) Predict(sysActs []dialog.Act) []dialog.Act {
	if p.terminated {
		return []dialog.Act{bye()}
	}
	cur := p.progress[p.cur]

	sysBye := false
	var requests []string
	for _, a := range sysActs {
		if a.IsGeneral() {
			if a.Intent == dialog.IntentBye {
				sysBye = true
			}
			continue
		}
		target := p.lookup(a.Domain)
		switch a.Intent {
		case dialog.IntentRecommend, dialog.IntentInform:
			if a.Slot == "Name" {
				target.name = a.Value
				continue
			}
			if slices.Contains(target.goal.Reqt, a.Slot) {
				target.got[a.Slot] = a.Value
			}
		case dialog.IntentBook:
			target.ref = a.Value
		case dialog.IntentNoOffer:
			target.noOffer = true
		case dialog.IntentRequest:
			if target == cur {
				requests = append(requests, a.Slot)
			}
		}
	}

	if sysBye || cur.noOffer {
		return p.finish()
	}
	if !cur.opened {
		return p.open(cur)
	}
	if len(requests) > 0 {
		out := make([]dialog.Act, 0, len(requests))
		for _, slot := range requests {
			value, ok := cur.goal.Info[slot]
			if !ok {
				value = dialog.DontCare
			}
			out = append(out, dialog.NewAct(dialog.IntentInform, cur.goal.Domain, slot, value))
		}
		return out
	}
	if cur.name == "" {
		if c := constraints(cur.goal); len(c) > 0 {
			return c
		}
		return p.open(cur)
	}
	if missing := cur.missing(); len(missing) > 0 {
		out := make([]dialog.Act, 0, len(missing))
		for _, slot := range missing {
			out = append(out, dialog.NewAct(dialog.IntentRequest, cur.goal.Domain, slot, "?"))
		}
		return out
	}
	if cur.goal.Book && cur.ref == "" {
		return []dialog.Act{dialog.NewAct(dialog.IntentRequest, cur.goal.Domain, "Ref", "?")}
	}

	if p.cur+1 < len(p.progress) {
		p.cur++
		return p.open(p.progress[p.cur])
	}
	return p.finish()
}

// Evaluate оценивает диалог по накопленному прогрессу.
func (p *RulePolicy) Evaluate() Evaluation {
	ev := Evaluation{Domains: len(p.progress), Complete: true, Booked: true}
	for _, pr := range p.progress {
		if len(pr.missing()) > 0 || pr.name == "" {
			ev.Complete = false
		}
		if pr.goal.Book && pr.ref == "" {
			ev.Booked = false
		}
		if pr.done() {
			ev.DomainsDone++
		}
	}
	ev.Success = ev.Domains > 0 && ev.DomainsDone == ev.Domains
	return ev
}

// lookup находит прогресс домена; акты без домена или с чужим доменом относятся к текущему.
func (p *RulePolicy) lookup(domain string) *progress {
	if domain != "" {
		for _, pr := range p.progress {
			if pr.goal.Domain == domain {
				return pr
			}
		}
	}
	return p.progress[p.cur]
}

func (p *RulePolicy) open(pr *progress) []dialog.Act {
	pr.opened = true
	out := []dialog.Act{dialog.NewAct(dialog.IntentInform, pr.goal.Domain, dialog.None, dialog.None)}
	return append(out, constraints(pr.goal)...)
}

func (p *RulePolicy) finish() []dialog.Act {
	p.terminated = true
	return []dialog.Act{bye()}
}

func constraints(g DomainGoal) []dialog.Act {
	out := make([]dialog.Act, 0, len(g.Info))
	for _, slot := range g.InfoSlots() {
		out = append(out, dialog.NewAct(dialog.IntentInform, g.Domain, slot, g.Info[slot]))
	}
	return out
}

func bye() dialog.Act {
	return dialog.NewAct(dialog.IntentBye, dialog.DomainGeneral, dialog.None, dialog.None)
}
