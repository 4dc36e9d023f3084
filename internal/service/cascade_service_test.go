package service

import (
	"testing"

	"github.com/mkravtsov/traineeflow/internal/event"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCascade(f *fixture) CascadeService {
	return NewCascadeService(f.catalog, f.progress, f.results)
}

func TestCascade_NoTrajectoryIsNoOp(t *testing.T) {
	f := newFixture()
	f.results.addResult(fixtureCompany, fixtureTrainee, 101, true)

	events, err := newCascade(f).Run(fixtureCompany, fixtureTrainee, 101)
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestCascade_PartialSessionDoesNotComplete(t *testing.T) {
	f := newFixture()
	tlp := f.assignProgress()
	f.openStoredStage(tlp, 10, false)
	f.results.addResult(fixtureCompany, fixtureTrainee, 101, true)
	// 102 not passed yet.

	events, err := newCascade(f).Run(fixtureCompany, fixtureTrainee, 101)
	require.NoError(t, err)
	assert.Empty(t, events)
	assert.False(t, tlp.StageProgresses[0].SessionProgresses[0].IsCompleted)
}

func TestCascade_SessionAndStageComplete(t *testing.T) {
	f := newFixture()
	tlp := f.assignProgress()
	f.openStoredStage(tlp, 10, false)
	f.results.addResult(fixtureCompany, fixtureTrainee, 101, true)
	f.results.addResult(fixtureCompany, fixtureTrainee, 102, true)

	events, err := newCascade(f).Run(fixtureCompany, fixtureTrainee, 102)
	require.NoError(t, err)

	types := make([]event.Type, len(events))
	for i, ev := range events {
		types[i] = ev.Type
	}
	assert.Equal(t, []event.Type{event.SessionCompleted, event.StageCompleted}, types)

	assert.True(t, tlp.StageProgresses[0].SessionProgresses[0].IsCompleted)
	assert.True(t, tlp.StageProgresses[0].IsCompleted)
	assert.NotNil(t, tlp.StageProgresses[0].CompletedAt)
	// Stage 2 is untouched.
	assert.False(t, tlp.StageProgresses[1].IsCompleted)
}

func TestCascade_ClosedStageIsNotEvaluated(t *testing.T) {
	f := newFixture()
	tlp := f.assignProgress()
	// Passing results exist but the stage was never opened.
	f.results.addResult(fixtureCompany, fixtureTrainee, 101, true)
	f.results.addResult(fixtureCompany, fixtureTrainee, 102, true)

	events, err := newCascade(f).Run(fixtureCompany, fixtureTrainee, 102)
	require.NoError(t, err)
	assert.Empty(t, events)
	assert.False(t, tlp.StageProgresses[0].SessionProgresses[0].IsCompleted)
}

func TestCascade_RerunEmitsNothing(t *testing.T) {
	f := newFixture()
	tlp := f.assignProgress()
	f.openStoredStage(tlp, 10, false)
	f.results.addResult(fixtureCompany, fixtureTrainee, 101, true)
	f.results.addResult(fixtureCompany, fixtureTrainee, 102, true)

	cascade := newCascade(f)
	events, err := cascade.Run(fixtureCompany, fixtureTrainee, 102)
	require.NoError(t, err)
	require.Len(t, events, 2)

	// Completion is monotonic: a second passing submission for the same test
	// crosses no boundary again.
	events, err = cascade.Run(fixtureCompany, fixtureTrainee, 102)
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestCascade_AttestationUnlockedOnLastStage(t *testing.T) {
	f := newFixture()
	tlp := f.assignProgress()
	f.openStoredStage(tlp, 10, true) // stage 1 fully done
	f.openStoredStage(tlp, 11, false)
	f.results.addResult(fixtureCompany, fixtureTrainee, 103, true)

	events, err := newCascade(f).Run(fixtureCompany, fixtureTrainee, 103)
	require.NoError(t, err)

	types := make([]event.Type, len(events))
	for i, ev := range events {
		types[i] = ev.Type
	}
	assert.Equal(t, []event.Type{event.SessionCompleted, event.StageCompleted, event.AttestationUnlocked}, types)
	assert.Equal(t, uint(50), events[2].UnitID)
	assert.Equal(t, "Final Review", events[2].UnitName)
}

func TestCascade_LostRaceKeepsEventsExactlyOnce(t *testing.T) {
	f := newFixture()
	tlp := f.assignProgress()
	f.openStoredStage(tlp, 10, false)
	f.results.addResult(fixtureCompany, fixtureTrainee, 101, true)
	f.results.addResult(fixtureCompany, fixtureTrainee, 102, true)
	// A concurrent submission wins the session-completion write.
	f.progress.sessionUpdateConflicts = 1

	events, err := newCascade(f).Run(fixtureCompany, fixtureTrainee, 102)
	require.NoError(t, err)

	// The losing run must not re-announce the session, but it still observes
	// the completed session and crosses the stage boundary itself.
	types := make([]event.Type, len(events))
	for i, ev := range events {
		types[i] = ev.Type
	}
	assert.Equal(t, []event.Type{event.StageCompleted}, types)
	assert.True(t, tlp.StageProgresses[0].IsCompleted)
}
