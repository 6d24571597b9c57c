package dst

import (
	"testing"

	"DialogHarness/internal/dialog"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRule_TracksBeliefAcrossTurns(t *testing.T) {
	r := NewRule()

	r.Update([]dialog.Act{
		dialog.NewAct("Inform", "Hotel", "none", "none"),
		dialog.NewAct("Inform", "", "Area", "north"),
	})
	r.Update([]dialog.Act{
		dialog.NewAct("Inform", "", "Price", "cheap"),
		dialog.NewAct("Request", "", "Phone", "?"),
	})

	s := r.State()
	assert.Equal(t, "Hotel", s.ActiveDomain)
	assert.Equal(t, map[string]string{"Area": "north", "Price": "cheap"}, s.Belief["Hotel"])
	assert.Equal(t, []string{"Phone"}, s.Requested["Hotel"])
	require.Len(t, s.Acts, 2)
	assert.Equal(t, "Hotel", s.Acts[0].Domain)
	assert.False(t, s.Bye)

	r.Update([]dialog.Act{dialog.NewAct("bye", "general", "", "")})
	s = r.State()
	assert.True(t, s.Bye)
	assert.Empty(t, s.Requested)
}

func TestRule_StateIsACopy(t *testing.T) {
	r := NewRule()
	r.Update([]dialog.Act{dialog.NewAct("Inform", "Restaurant", "Food", "italian")})

	s := r.State()
	s.Belief["Restaurant"]["Food"] = "chinese"
	assert.Equal(t, "italian", r.State().Belief["Restaurant"]["Food"])
}

func TestRule_InitResets(t *testing.T) {
	r := NewRule()
	r.Update([]dialog.Act{dialog.NewAct("Inform", "Hotel", "Area", "east")})
	r.Init()

	s := r.State()
	assert.Empty(t, s.Belief)
	assert.Empty(t, s.ActiveDomain)
}

func TestRule_IgnoresDomainlessActsWithoutContext(t *testing.T) {
	r := NewRule()
	r.Update([]dialog.Act{dialog.NewAct("Inform", "", "Area", "east")})
	assert.Empty(t, r.State().Belief)
}
