package progress

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSequencerAdvancesInOrder(t *testing.T) {
	t.Parallel()

	var q Sequencer
	gen := q.Start(time.Now())
	assert.Equal(t, Observation, q.Stage())

	want := []Stage{Pattern, Evaluation, Clarity}
	for _, stage := range want {
		assert.True(t, q.Advance(gen))
		assert.Equal(t, stage, q.Stage())
	}
}

func TestSequencerHoldsFinalStage(t *testing.T) {
	t.Parallel()

	var q Sequencer
	gen := q.Start(time.Now())
	for i := 0; i < 10; i++ {
		q.Advance(gen)
	}
	assert.Equal(t, Clarity, q.Stage(), "final stage holds until settle")
}

func TestStaleGenerationTickIgnored(t *testing.T) {
	t.Parallel()

	var q Sequencer
	old := q.Start(time.Now())
	q.Reset()
	fresh := q.Start(time.Now())

	assert.False(t, q.Advance(old), "tick from a previous send must miss")
	assert.Equal(t, Observation, q.Stage())
	assert.True(t, q.Advance(fresh))
}

func TestSettleOwesMinimumVisibleTime(t *testing.T) {
	t.Parallel()

	var q Sequencer
	start := time.Now()
	q.Start(start)

	owed := q.Settle(start.Add(100 * time.Millisecond))
	assert.Equal(t, 200*time.Millisecond, owed)
	assert.Equal(t, Complete, q.Stage())
}

func TestSettleAfterMinimumOwesNothing(t *testing.T) {
	t.Parallel()

	var q Sequencer
	start := time.Now()
	q.Start(start)

	owed := q.Settle(start.Add(time.Second))
	assert.Zero(t, owed)
}

func TestSettleIdleIsNoOp(t *testing.T) {
	t.Parallel()

	var q Sequencer
	assert.Zero(t, q.Settle(time.Now()))
	assert.Equal(t, Idle, q.Stage())
}

func TestResetPreservesGeneration(t *testing.T) {
	t.Parallel()

	var q Sequencer
	gen := q.Start(time.Now())
	q.Reset()

	assert.Equal(t, Idle, q.Stage())
	assert.Equal(t, gen, q.Generation())
	assert.False(t, q.Advance(gen), "idle sequencer ignores ticks")
}

func TestStageLabels(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "Observing", Observation.String())
	assert.Equal(t, "Reaching clarity", Clarity.String())
	assert.Empty(t, Idle.String())
	assert.True(t, Pattern.Running())
	assert.False(t, Complete.Running())
}
