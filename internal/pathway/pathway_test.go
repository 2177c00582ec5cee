package pathway

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pathway_backend/internal/model"
)

// 端到端：三个目标的链式课程，从零开始走到补救
func TestEndToEndPathway(t *testing.T) {
	cat, err := BuildCatalog(
		[]model.LearningObjective{
			lo("lo_a", 1),
			lo("lo_b", 2, "lo_a"),
			lo("lo_c", 3, "lo_a", "lo_b"),
		},
		[]model.ContentItem{
			item("vid_a", model.ContentVideo, model.DifficultyEasy, 1, "lo_a"),
			item("game_a", model.ContentGame, model.DifficultyMedium, 2, "lo_a"),
			item("ws_b", model.ContentWorksheet, model.DifficultyEasy, 3, "lo_b"),
		},
	)
	require.NoError(t, err)

	resolver := NewResolver(cat)
	selector := NewSelector(cat, DefaultSelectorConfig())
	feedback := NewFeedbackProcessor(cat, DefaultThresholds())

	profile := model.NewLearnerProfile("learner-1")
	profile.Preferences[PreferenceModality] = "visual"
	st := NewLearnerState(profile)

	// 初始只有根目标可选
	require.Equal(t, []string{"lo_a"}, ids(resolver.Eligible(st)))

	// visual 偏好：先 easy video，再多样性补 medium game
	selected, sig := selector.Select("lo_a", st, 2)
	require.Equal(t, SignalOK, sig)
	require.Equal(t, []string{"vid_a", "game_a"}, itemIDs(selected))

	// 高分掌握 lo_a，解锁 lo_b
	status, err := feedback.Process(st, Outcome{ActivityID: "vid_a", LOID: "lo_a", Score: 0.9, Completed: true})
	require.NoError(t, err)
	require.Equal(t, model.StatusMastered, status)
	require.Equal(t, []string{"lo_b"}, ids(resolver.Eligible(st)))

	// lo_b 没有偏好命中，多样性段给出 worksheet
	selected, sig = selector.Select("lo_b", st, 2)
	require.Equal(t, SignalOK, sig)
	require.Equal(t, []string{"ws_b"}, itemIDs(selected))

	// 低分进入 struggling，lo_b 以补救身份留在队首，lo_c 仍不可选
	status, err = feedback.Process(st, Outcome{ActivityID: "ws_b", LOID: "lo_b", Score: 0.3, Completed: true})
	require.NoError(t, err)
	require.Equal(t, model.StatusStruggling, status)

	eligible := ids(resolver.Eligible(st))
	require.Equal(t, []string{"lo_b"}, eligible)
	assert.NotContains(t, eligible, "lo_c")

	// 补救通过后 lo_c 才开放
	_, err = feedback.Process(st, Outcome{ActivityID: "ws_b", LOID: "lo_b", Score: 0.88, Completed: true})
	require.NoError(t, err)
	require.Equal(t, []string{"lo_c"}, ids(resolver.Eligible(st)))

	// 履历完整：三次提交三条记录
	assert.Len(t, st.Profile().History, 3)
}
