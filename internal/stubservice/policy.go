package stubservice

import (
	"fmt"
	"sync"

	"DialogHarness/internal/dialog"
	"DialogHarness/internal/dst"

	"go.uber.org/zap"
)

// NLU разбирает реплику пользователя в акты.
type NLU interface {
	Parse(text string) []dialog.Act
}

// requiredSlots — ограничения, без которых система не предлагает сущность.
var requiredSlots = map[string][]string{
	"Hotel":      {"Area", "Price"},
	"Restaurant": {"Food", "Area"},
	"Attraction": {"Type", "Area"},
}

type session struct {
	tracker *dst.Rule
	offered map[string]Entity
}

// Responder — системная политика на правилах. Состояние ведётся по идентификатору разговора.
type Responder struct {
	db     *Database
	nlu    NLU
	logger *zap.SugaredLogger

	mu       sync.Mutex
	sessions map[string]*session
	refs     int
}

func NewResponder(db *Database, nlu NLU, logger *zap.SugaredLogger) *Responder {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Responder{db: db, nlu: nlu, logger: logger, sessions: make(map[string]*session)}
}

// Reply разбирает реплику пользователя, обновляет состояние разговора id и возвращает акты системы.
func (r *Responder) Reply(id, text string) []dialog.Act {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[id]
	if !ok {
		s = &session{tracker: dst.NewRule(), offered: make(map[string]Entity)}
		r.sessions[id] = s
	}
	s.tracker.Update(r.nlu.Parse(text))
	st := s.tracker.State()

	if st.Bye {
		delete(r.sessions, id)
		return []dialog.Act{general(dialog.IntentBye)}
	}
	domain := st.ActiveDomain
	if domain == "" {
		return []dialog.Act{general(dialog.IntentGreet)}
	}
	belief := st.Belief[domain]

	if requested := st.Requested[domain]; len(requested) > 0 {
		e, ok := r.offer(s, domain, belief)
		if !ok {
			return []dialog.Act{dialog.NewAct(dialog.IntentNoOffer, domain, dialog.None, dialog.None)}
		}
		out := make([]dialog.Act, 0, len(requested)+1)
		for _, slot := range requested {
			if slot == "Ref" {
				r.refs++
				out = append(out, dialog.NewAct(dialog.IntentBook, domain, "Ref", fmt.Sprintf("REF%05d", r.refs)))
				continue
			}
			if v, ok := e[slot]; ok {
				out = append(out, dialog.NewAct(dialog.IntentInform, domain, slot, v))
			}
		}
		return append(out, general(dialog.IntentReqmore))
	}

	for _, slot := range requiredSlots[domain] {
		if _, ok := belief[slot]; !ok {
			return []dialog.Act{dialog.NewAct(dialog.IntentRequest, domain, slot, "?")}
		}
	}

	e, ok := r.offer(s, domain, belief)
	if !ok {
		return []dialog.Act{dialog.NewAct(dialog.IntentNoOffer, domain, dialog.None, dialog.None)}
	}
	return []dialog.Act{
		dialog.NewAct(dialog.IntentRecommend, domain, "Name", e["Name"]),
		dialog.NewAct(dialog.IntentInform, domain, "Area", e["Area"]),
		general(dialog.IntentReqmore),
	}
}

// Sessions возвращает число открытых разговоров.
func (r *Responder) Sessions() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// offer возвращает уже предложенную сущность, если она всё ещё подходит, иначе первую подходящую.
func (r *Responder) offer(s *session, domain string, belief map[string]string) (Entity, bool) {
	if e, ok := s.offered[domain]; ok && e.Matches(belief) {
		return e, true
	}
	found := r.db.Query(domain, belief)
	if len(found) == 0 {
		r.logger.Infow("no entity matches", "domain", domain, "constraints", belief)
		return nil, false
	}
	s.offered[domain] = found[0]
	return found[0], true
}

func general(intent string) dialog.Act {
	return dialog.NewAct(intent, dialog.DomainGeneral, dialog.None, dialog.None)
}
