package dst

import (
	"maps"

	"DialogHarness/internal/dialog"
)

// State — снимок состояния диалога.
type State struct {
	ActiveDomain string
	// Belief — ограничения пользователя: домен -> слот -> значение.
	Belief map[string]map[string]string
	// Requested — слоты, которые пользователь запросил в последней реплике.
	Requested map[string][]string
	// Acts — последние разобранные акты пользователя с подставленным доменом.
	Acts []dialog.Act
	// Bye — пользователь попрощался.
	Bye bool
}

// Rule — трекер состояния на правилах: накапливает Inform, фиксирует Request последнего хода.
type Rule struct {
	state State
}

func NewRule() *Rule {
	r := &Rule{}
	r.Init()
	return r
}

// Init сбрасывает состояние перед новым диалогом.
func (r *Rule) Init() {
	r.state = State{
		Belief:    make(map[string]map[string]string),
		Requested: make(map[string][]string),
	}
}

// Update применяет акты очередной реплики. Акты без домена относятся к активному домену.
func (r *Rule) Update(acts []dialog.Act) {
	r.state.Requested = make(map[string][]string)
	r.state.Acts = r.state.Acts[:0]

	for _, a := range acts {
		if a.IsGeneral() {
			if a.Intent == dialog.IntentBye {
				r.state.Bye = true
			}
			r.state.Acts = append(r.state.Acts, a)
			continue
		}
		if a.Domain == "" {
			a.Domain = r.state.ActiveDomain
		} else {
			r.state.ActiveDomain = a.Domain
		}
		r.state.Acts = append(r.state.Acts, a)
		if a.Domain == "" {
			continue
		}
		switch a.Intent {
		case dialog.IntentInform:
			if a.Slot == dialog.None {
				r.ensure(a.Domain)
				continue
			}
			r.ensure(a.Domain)[a.Slot] = a.Value
		case dialog.IntentRequest:
			r.state.Requested[a.Domain] = append(r.state.Requested[a.Domain], a.Slot)
		}
	}
}

func (r *Rule) ensure(domain string) map[string]string {
	b, ok := r.state.Belief[domain]
	if !ok {
		b = make(map[string]string)
		r.state.Belief[domain] = b
	}
	return b
}

// State возвращает копию состояния, которую можно менять без влияния на трекер.
func (r *Rule) State() State {
	s := State{
		ActiveDomain: r.state.ActiveDomain,
		Belief:       make(map[string]map[string]string, len(r.state.Belief)),
		Requested:    make(map[string][]string, len(r.state.Requested)),
		Acts:         append([]dialog.Act(nil), r.state.Acts...),
		Bye:          r.state.Bye,
	}
	for d, b := range r.state.Belief {
		s.Belief[d] = maps.Clone(b)
	}
	for d, req := range r.state.Requested {
		s.Requested[d] = append([]string(nil), req...)
	}
	return s
}
