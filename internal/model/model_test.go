package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAcceptance_DecodesEachTag(t *testing.T) {
	tests := []struct {
		in   string
		want AcceptanceRule
	}{
		{`{"type":"checkbox"}`, Checkbox{}},
		{`{"type":"minutes","baseline":20}`, Minutes{Baseline: 20}},
		{`{"type":"text","minWords":40}`, Text{MinWords: 40}},
		{`{"type":"quiz","minScore":0.75}`, QuizCheck{MinScore: 0.75}},
		{`{"type":"problem","minScore":0.7,"kind":"code","prompt":"sum"}`, Problem{MinScore: 0.7, Kind: ProblemCode, Prompt: "sum"}},
		{`{"type":"essay"}`, nil},
		{`null`, nil},
	}
	for _, tc := range tests {
		t.Run(tc.in, func(t *testing.T) {
			var a Acceptance
			require.NoError(t, json.Unmarshal([]byte(tc.in), &a))
			assert.Equal(t, tc.want, a.Rule)
		})
	}
}

func TestAcceptance_EncodesTaggedObject(t *testing.T) {
	b, err := json.Marshal(Accept(Minutes{Baseline: 20}))
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"minutes","baseline":20}`, string(b))

	b, err = json.Marshal(Acceptance{})
	require.NoError(t, err)
	assert.Equal(t, "null", string(b))
}

func TestThresholdDefaults(t *testing.T) {
	assert.Equal(t, 0.6, QuizCheck{}.Threshold())
	assert.Equal(t, 0.7, Problem{}.Threshold())
	assert.Equal(t, 0.5, Problem{MinScore: 0.5}.Threshold())
}

func TestDayKey(t *testing.T) {
	assert.Equal(t, "2025-09-04", DayKey("2025-09-04", 1))
	assert.Equal(t, "2025-09-04--3", DayKey("2025-09-04", 3))

	date, idx, ok := ParseDayKey("2025-09-04--12")
	require.True(t, ok)
	assert.Equal(t, "2025-09-04", date)
	assert.Equal(t, 12, idx)

	_, idx, ok = ParseDayKey("2025-09-04")
	require.True(t, ok)
	assert.Equal(t, 1, idx)

	for _, bad := range []string{"calendar", "2025-09-04--", "2025-09-04--0", "2025-9-4"} {
		_, _, ok := ParseDayKey(bad)
		assert.False(t, ok, bad)
	}
}

func TestParseKindAndBaselines(t *testing.T) {
	assert.Equal(t, KindStudy, ParseKind(" Study "))
	assert.Equal(t, KindGeneric, ParseKind("gardening"))

	assert.Equal(t, 20, PracticeConfig{}.FitnessBaseline())
	assert.Equal(t, 25, PracticeConfig{YogaMinutes: 15}.FitnessBaseline())
	assert.Equal(t, 10, PracticeConfig{}.HobbyBaseline())
	assert.Equal(t, 40, PracticeConfig{}.ReflectionWords())
}
