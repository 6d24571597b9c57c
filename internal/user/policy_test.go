package user

import (
	"math/rand"
	"testing"

	"DialogHarness/internal/dialog"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const hotelGoal = `
- domains:
    - domain: Hotel
      info: {Price: cheap, Area: north}
      reqt: [Phone]
      book: true
`

const twoDomainGoal = `
- domains:
    - domain: Hotel
      info: {Area: north}
      reqt: []
    - domain: Restaurant
      info: {Food: italian}
      reqt: [Phone]
`

func policyFor(t *testing.T, goals string) *RulePolicy {
	t.Helper()
	gen, err := NewGoalGenerator(rand.New(rand.NewSource(1)), []byte(goals))
	require.NoError(t, err)
	return NewRulePolicy(gen)
}

func act(intent, domain, slot, value string) dialog.Act {
	return dialog.NewAct(intent, domain, slot, value)
}

func TestRulePolicy_FullHotelDialogue(t *testing.T) {
	p := policyFor(t, hotelGoal)

	assert.Equal(t, []dialog.Act{
		act("Inform", "Hotel", "none", "none"),
		act("Inform", "Hotel", "Area", "north"),
		act("Inform", "Hotel", "Price", "cheap"),
	}, p.Predict(nil))

	assert.Equal(t, []dialog.Act{act("Inform", "Hotel", "Stars", "dontcare")},
		p.Predict([]dialog.Act{act("Request", "Hotel", "Stars", "?")}))

	assert.Equal(t, []dialog.Act{act("Request", "Hotel", "Phone", "?")},
		p.Predict([]dialog.Act{
			act("Recommend", "Hotel", "Name", "Worth House"),
			act("Inform", "", "Area", "north"),
			act("reqmore", "general", "none", "none"),
		}))

	assert.Equal(t, []dialog.Act{act("Request", "Hotel", "Ref", "?")},
		p.Predict([]dialog.Act{act("Inform", "", "Phone", "01223 316074")}))
	assert.False(t, p.IsTerminated())

	assert.Equal(t, []dialog.Act{act("bye", "general", "none", "none")},
		p.Predict([]dialog.Act{act("Book", "", "Ref", "REF00001")}))
	assert.True(t, p.IsTerminated())

	assert.Equal(t, Evaluation{Success: true, Complete: true, Booked: true, Domains: 1, DomainsDone: 1}, p.Evaluate())
}

func TestRulePolicy_RestatesWhenNothingUsable(t *testing.T) {
	p := policyFor(t, hotelGoal)
	p.Predict(nil)

	got := p.Predict(nil)
	assert.Equal(t, []dialog.Act{
		act("Inform", "Hotel", "Area", "north"),
		act("Inform", "Hotel", "Price", "cheap"),
	}, got)
	assert.False(t, p.IsTerminated())
}

func TestRulePolicy_NoOfferEndsDialogue(t *testing.T) {
	p := policyFor(t, hotelGoal)
	p.Predict(nil)

	got := p.Predict([]dialog.Act{act("NoOffer", "Hotel", "none", "none")})
	assert.Equal(t, []dialog.Act{act("bye", "general", "none", "none")}, got)
	assert.True(t, p.IsTerminated())

	ev := p.Evaluate()
	assert.False(t, ev.Success)
	assert.False(t, ev.Complete)
	assert.False(t, ev.Booked)
}

func TestRulePolicy_MovesToNextDomain(t *testing.T) {
	p := policyFor(t, twoDomainGoal)
	p.Predict(nil)

	got := p.Predict([]dialog.Act{act("Recommend", "Hotel", "Name", "Ashley Hotel")})
	assert.Equal(t, []dialog.Act{
		act("Inform", "Restaurant", "none", "none"),
		act("Inform", "Restaurant", "Food", "italian"),
	}, got)

	ev := p.Evaluate()
	assert.Equal(t, 2, ev.Domains)
	assert.Equal(t, 1, ev.DomainsDone)
	assert.False(t, ev.Success)
}

func TestRulePolicy_SystemByeTerminates(t *testing.T) {
	p := policyFor(t, hotelGoal)
	p.Predict(nil)
	p.Predict([]dialog.Act{act("bye", "general", "none", "none")})
	assert.True(t, p.IsTerminated())

	p.Init()
	assert.False(t, p.IsTerminated())
}

func TestGoalGenerator(t *testing.T) {
	a, err := NewGoalGenerator(rand.New(rand.NewSource(7)), nil)
	require.NoError(t, err)
	b, err := NewGoalGenerator(rand.New(rand.NewSource(7)), nil)
	require.NoError(t, err)
	require.Greater(t, a.Len(), 1)

	for range 10 {
		assert.Equal(t, a.Next(), b.Next())
	}

	g := a.Next()
	g.Domains[0].Info["Area"] = "mutated"
	for range 20 {
		for _, d := range a.Next().Domains {
			assert.NotEqual(t, "mutated", d.Info["Area"])
		}
	}

	_, err = NewGoalGenerator(nil, []byte("[]"))
	assert.Error(t, err)
	_, err = NewGoalGenerator(nil, []byte("- domains: []"))
	assert.Error(t, err)
	_, err = LoadGoalGenerator(nil, "/nonexistent/goals.yaml")
	assert.Error(t, err)
}
