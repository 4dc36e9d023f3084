package service

import (
	"errors"
	"testing"

	"github.com/mkravtsov/traineeflow/internal/apperr"
	"github.com/mkravtsov/traineeflow/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newGate(f *fixture) AccessGateService {
	return NewAccessGateService(f.access, f.catalog, f.progress, f.results)
}

func TestCanTakeTest_TenantBoundaryBeatsGrant(t *testing.T) {
	f := newFixture()
	foreign := &model.Test{ID: 500, CompanyID: 2, Title: "Foreign", IsActive: true}
	// Even a grant row pointing at the foreign test must not open the door.
	f.access.grants = append(f.access.grants, model.TestAccess{
		ID: 1, CompanyID: fixtureCompany, TraineeID: fixtureTrainee, TestID: 500, IsActive: true,
	})

	decision, err := newGate(f).CanTakeTest(fixtureCompany, fixtureTrainee, foreign)
	require.NoError(t, err)
	assert.False(t, decision.Allowed)
	assert.True(t, errors.Is(decision.Reason, apperr.ErrAccessDenied))
}

func TestCanTakeTest_DeactivatedTestDenied(t *testing.T) {
	f := newFixture()
	f.grantAccess(101)
	f.tests.tests[101].IsActive = false

	// The grant would otherwise allow; deactivation wins.
	decision, err := newGate(f).CanTakeTest(fixtureCompany, fixtureTrainee, f.tests.tests[101])
	require.NoError(t, err)
	assert.False(t, decision.Allowed)
	assert.True(t, errors.Is(decision.Reason, apperr.ErrAccessDenied))
	assert.Contains(t, decision.Reason.Error(), "deactivated")
}

func TestCanTakeTest_GrantAllowsWithoutTrajectory(t *testing.T) {
	f := newFixture()
	f.grantAccess(103)

	decision, err := newGate(f).CanTakeTest(fixtureCompany, fixtureTrainee, f.tests.tests[103])
	require.NoError(t, err)
	assert.True(t, decision.Allowed)
}

func TestCanTakeTest_GrantIgnoresClosedStage(t *testing.T) {
	f := newFixture()
	f.assignProgress() // everything closed
	f.grantAccess(101)

	decision, err := newGate(f).CanTakeTest(fixtureCompany, fixtureTrainee, f.tests.tests[101])
	require.NoError(t, err)
	assert.True(t, decision.Allowed)
}

func TestCanTakeTest_ClosedStageDenied(t *testing.T) {
	f := newFixture()
	f.assignProgress()

	decision, err := newGate(f).CanTakeTest(fixtureCompany, fixtureTrainee, f.tests.tests[101])
	require.NoError(t, err)
	assert.False(t, decision.Allowed)
	assert.True(t, errors.Is(decision.Reason, apperr.ErrAccessDenied))
	assert.Contains(t, decision.Reason.Error(), "not opened")
}

func TestCanTakeTest_OpenedStageAllows(t *testing.T) {
	f := newFixture()
	tlp := f.assignProgress()
	f.openStoredStage(tlp, 10, false)

	decision, err := newGate(f).CanTakeTest(fixtureCompany, fixtureTrainee, f.tests.tests[101])
	require.NoError(t, err)
	assert.True(t, decision.Allowed)
}

func TestCanTakeTest_NoGrantNoTrajectory(t *testing.T) {
	f := newFixture()

	decision, err := newGate(f).CanTakeTest(fixtureCompany, fixtureTrainee, f.tests.tests[101])
	require.NoError(t, err)
	assert.False(t, decision.Allowed)
	assert.True(t, errors.Is(decision.Reason, apperr.ErrAccessDenied))
}

func TestCanTakeTest_AttemptLimit(t *testing.T) {
	f := newFixture()
	f.grantAccess(101)
	f.tests.tests[101].MaxAttempts = 2
	f.results.addResult(fixtureCompany, fixtureTrainee, 101, false)

	gate := newGate(f)
	decision, err := gate.CanTakeTest(fixtureCompany, fixtureTrainee, f.tests.tests[101])
	require.NoError(t, err)
	assert.True(t, decision.Allowed, "one attempt left")

	f.results.addResult(fixtureCompany, fixtureTrainee, 101, false)
	decision, err = gate.CanTakeTest(fixtureCompany, fixtureTrainee, f.tests.tests[101])
	require.NoError(t, err)
	assert.False(t, decision.Allowed)
	assert.True(t, errors.Is(decision.Reason, apperr.ErrAttemptsExhausted))
}

func TestCanTakeTest_ZeroMaxAttemptsIsUnlimited(t *testing.T) {
	f := newFixture()
	f.grantAccess(101)
	for i := 0; i < 25; i++ {
		f.results.addResult(fixtureCompany, fixtureTrainee, 101, false)
	}

	decision, err := newGate(f).CanTakeTest(fixtureCompany, fixtureTrainee, f.tests.tests[101])
	require.NoError(t, err)
	assert.True(t, decision.Allowed)
}

func TestCanTakeTest_IsPure(t *testing.T) {
	f := newFixture()
	tlp := f.assignProgress()
	f.openStoredStage(tlp, 10, false)
	grantsBefore := len(f.access.grants)
	resultsBefore := len(f.results.results)

	_, err := newGate(f).CanTakeTest(fixtureCompany, fixtureTrainee, f.tests.tests[101])
	require.NoError(t, err)
	assert.Equal(t, grantsBefore, len(f.access.grants))
	assert.Equal(t, resultsBefore, len(f.results.results))
	assert.False(t, tlp.StageProgresses[0].IsCompleted)
}
