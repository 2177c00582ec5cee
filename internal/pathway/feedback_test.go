package pathway

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pathway_backend/internal/model"
)

func feedbackFixture(t *testing.T) (*FeedbackProcessor, *LearnerState) {
	t.Helper()
	cat, err := BuildCatalog([]model.LearningObjective{lo("lo_a", 1)}, nil)
	require.NoError(t, err)
	return NewFeedbackProcessor(cat, DefaultThresholds()), NewLearnerState(model.NewLearnerProfile("learner-1"))
}

func TestProcessThresholds(t *testing.T) {
	cases := []struct {
		score float64
		want  model.MasteryStatus
	}{
		{0.9, model.StatusMastered},
		{0.85, model.StatusMastered},
		{0.84, model.StatusPartial},
		{0.5, model.StatusPartial},
		{0.49, model.StatusStruggling},
		{0.0, model.StatusStruggling},
		{1.0, model.StatusMastered},
	}
	for _, tc := range cases {
		p, st := feedbackFixture(t)
		got, err := p.Process(st, Outcome{ActivityID: "act", LOID: "lo_a", Score: tc.score, Completed: true})
		require.NoError(t, err)
		assert.Equal(t, tc.want, got, "score %v", tc.score)
		assert.Equal(t, tc.want, st.StatusOf("lo_a"))
	}
}

func TestProcessAppendsHistoryAlways(t *testing.T) {
	p, st := feedbackFixture(t)

	_, err := p.Process(st, Outcome{ActivityID: "a1", LOID: "lo_a", Score: 0.6})
	require.NoError(t, err)
	_, err = p.Process(st, Outcome{ActivityID: "a2", LOID: "lo_a", Score: 0.6})
	require.NoError(t, err)

	// 状态没变，履历照样增加
	history := st.Profile().History
	require.Len(t, history, 2)
	assert.Equal(t, "a1", history[0].ActivityID)
	assert.Equal(t, "a2", history[1].ActivityID)
	assert.Equal(t, "learner-1", history[0].LearnerID)
	assert.False(t, history[0].Timestamp.IsZero())
}

func TestProcessInvalidScoreNoMutation(t *testing.T) {
	p, st := feedbackFixture(t)

	for _, score := range []float64{-0.1, 1.1, 2} {
		_, err := p.Process(st, Outcome{ActivityID: "a1", LOID: "lo_a", Score: score})
		var verr *ValidationError
		require.ErrorAs(t, err, &verr)
	}

	assert.Empty(t, st.Profile().History)
	assert.Equal(t, model.StatusNotStarted, st.StatusOf("lo_a"))
}

func TestProcessUnknownObjectiveNoMutation(t *testing.T) {
	p, st := feedbackFixture(t)

	_, err := p.Process(st, Outcome{ActivityID: "a1", LOID: "ghost", Score: 0.7})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Empty(t, st.Profile().History)
}

func TestProcessMasteryMonotonic(t *testing.T) {
	p, st := feedbackFixture(t)

	got, err := p.Process(st, Outcome{ActivityID: "a1", LOID: "lo_a", Score: 0.9})
	require.NoError(t, err)
	require.Equal(t, model.StatusMastered, got)

	// 掌握后再低的分数也不降级，但结果仍进履历
	got, err = p.Process(st, Outcome{ActivityID: "a2", LOID: "lo_a", Score: 0.1})
	require.NoError(t, err)
	assert.Equal(t, model.StatusMastered, got)
	assert.Equal(t, model.StatusMastered, st.StatusOf("lo_a"))
	assert.Len(t, st.Profile().History, 2)
}

func TestProcessCustomThresholds(t *testing.T) {
	cat, err := BuildCatalog([]model.LearningObjective{lo("lo_a", 1)}, nil)
	require.NoError(t, err)
	p := NewFeedbackProcessor(cat, Thresholds{Mastery: 0.7, Struggle: 0.3})
	st := NewLearnerState(model.NewLearnerProfile("l"))

	got, err := p.Process(st, Outcome{ActivityID: "a", LOID: "lo_a", Score: 0.75})
	require.NoError(t, err)
	assert.Equal(t, model.StatusMastered, got)
}

func TestProcessKeepsExplicitTimestamp(t *testing.T) {
	p, st := feedbackFixture(t)
	at := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	_, err := p.Process(st, Outcome{ActivityID: "a", LOID: "lo_a", Score: 0.6, At: at})
	require.NoError(t, err)
	assert.Equal(t, at, st.Profile().History[0].Timestamp)
}
