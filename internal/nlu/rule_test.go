package nlu

import (
	"testing"

	"DialogHarness/internal/dialog"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRuleNLU_UserUtterances(t *testing.T) {
	n, err := New(ModeUser)
	require.NoError(t, err)

	tests := []struct {
		text string
		want []dialog.Act
	}{
		{"I need a hotel", []dialog.Act{dialog.NewAct("Inform", "Hotel", "none", "none")}},
		{"I am looking for a restaurant. I would like italian food.", []dialog.Act{
			dialog.NewAct("Inform", "Restaurant", "none", "none"),
			dialog.NewAct("Inform", "", "Food", "italian"),
		}},
		{"It should be in the north. The price range should be cheap.", []dialog.Act{
			dialog.NewAct("Inform", "", "Area", "north"),
			dialog.NewAct("Inform", "", "Price", "cheap"),
		}},
		{"I don't care about the stars.", []dialog.Act{dialog.NewAct("Inform", "", "Stars", "dontcare")}},
		{"What is the phone number? Can you book it for me?", []dialog.Act{
			dialog.NewAct("Request", "", "Phone", "?"),
			dialog.NewAct("Request", "", "Ref", "?"),
		}},
		{"Thank you, goodbye.", []dialog.Act{dialog.NewAct("bye", "general", "none", "none")}},
		{"", nil},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			assert.Equal(t, tt.want, n.Parse(tt.text))
		})
	}
}

func TestRuleNLU_SystemUtterances(t *testing.T) {
	n, err := New(ModeSystem)
	require.NoError(t, err)

	got := n.Parse("I would recommend Acorn Guest House, it is a hotel that matches your request. It is in the north area. Is there anything else I can help with?")
	assert.Equal(t, []dialog.Act{
		dialog.NewAct("Recommend", "Hotel", "Name", "Acorn Guest House"),
		dialog.NewAct("Inform", "", "Area", "north"),
		dialog.NewAct("reqmore", "general", "none", "none"),
	}, got)

	got = n.Parse("What price range would you like for the hotel?")
	assert.Equal(t, []dialog.Act{dialog.NewAct("Request", "Hotel", "Price", "?")}, got)

	got = n.Parse("Booking was successful. The reference number is ABCD1234.")
	assert.Equal(t, []dialog.Act{dialog.NewAct("Book", "", "Ref", "ABCD1234")}, got)
}

func TestRuleNLU_BadRules(t *testing.T) {
	_, err := New("nope")
	assert.Error(t, err)

	_, err = FromYAML([]byte("rules:\n  - {intent: Inform, pattern: '('}\n"))
	assert.Error(t, err)

	_, err = FromYAML([]byte("rules:\n  - {pattern: 'x'}\n"))
	assert.Error(t, err)
}
