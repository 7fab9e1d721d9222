package adapter

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dvera/autopilot/pkg/schema"
)

func TestTrySelectors_FirstSuccessWins(t *testing.T) {
	tracker := NewTracker()
	var tried []string

	selector, err := TrySelectors(context.Background(), tracker,
		[]string{"#primary", "#fallback"},
		func(_ context.Context, s string) error {
			tried = append(tried, s)
			return nil
		})

	require.NoError(t, err)
	assert.Equal(t, "#primary", selector)
	assert.Equal(t, []string{"#primary"}, tried)
}

func TestTrySelectors_FallsThroughInOrder(t *testing.T) {
	tracker := NewTracker()

	selector, err := TrySelectors(context.Background(), tracker,
		[]string{"#a", "#b", "#c"},
		func(_ context.Context, s string) error {
			if s != "#c" {
				return errors.New("not visible")
			}
			return nil
		})

	require.NoError(t, err)
	assert.Equal(t, "#c", selector)

	snap := tracker.Snapshot()
	selectors := snap["selectors"].(map[string]SelectorMetric)
	assert.Equal(t, int64(1), selectors["#a"].Failure)
	assert.Equal(t, int64(1), selectors["#b"].Failure)
	assert.Equal(t, int64(1), selectors["#c"].Success)
}

func TestTrySelectors_AllFail(t *testing.T) {
	_, err := TrySelectors(context.Background(), NewTracker(),
		[]string{"#a", "#b"},
		func(context.Context, string) error { return errors.New("nope") })

	var perr *schema.PilotError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, schema.ErrCodeExecution, perr.Code)
	assert.Contains(t, perr.Message, "2 selector candidates")
}

func TestTrySelectors_EmptyCandidates(t *testing.T) {
	_, err := TrySelectors(context.Background(), NewTracker(), nil,
		func(context.Context, string) error { return nil })

	var perr *schema.PilotError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, schema.ErrCodeValidation, perr.Code)
}

func TestTrySelectors_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := TrySelectors(ctx, nil, []string{"#a"},
		func(context.Context, string) error { return nil })

	var perr *schema.PilotError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, schema.ErrCodeCancelled, perr.Code)
}
