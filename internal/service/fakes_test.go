package service

import (
	"github.com/mkravtsov/traineeflow/internal/apperr"
	"github.com/mkravtsov/traineeflow/internal/event"
	"github.com/mkravtsov/traineeflow/internal/model"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// In-memory repository fakes. They mirror the persistence contracts the
// services rely on, including gorm.ErrRecordNotFound for misses and the
// version check on progress updates.

type fakeCatalogRepo struct {
	paths        map[uint]*model.LearningPath
	attestations map[uint]*model.Attestation
	nextID       uint
}

func newFakeCatalogRepo() *fakeCatalogRepo {
	return &fakeCatalogRepo{
		paths:        make(map[uint]*model.LearningPath),
		attestations: make(map[uint]*model.Attestation),
		nextID:       1000,
	}
}

func (r *fakeCatalogRepo) CreateLearningPath(path *model.LearningPath) error {
	r.nextID++
	path.ID = r.nextID
	for i := range path.Stages {
		r.nextID++
		path.Stages[i].ID = r.nextID
		path.Stages[i].LearningPathID = path.ID
		for j := range path.Stages[i].Sessions {
			r.nextID++
			path.Stages[i].Sessions[j].ID = r.nextID
			path.Stages[i].Sessions[j].StageID = path.Stages[i].ID
			for k := range path.Stages[i].Sessions[j].TestLinks {
				r.nextID++
				path.Stages[i].Sessions[j].TestLinks[k].ID = r.nextID
				path.Stages[i].Sessions[j].TestLinks[k].SessionID = path.Stages[i].Sessions[j].ID
			}
		}
	}
	r.paths[path.ID] = path
	return nil
}

func (r *fakeCatalogRepo) FindLearningPathByID(companyID, id uint) (*model.LearningPath, error) {
	path, ok := r.paths[id]
	if !ok || path.CompanyID != companyID {
		return nil, gorm.ErrRecordNotFound
	}
	return path, nil
}

func (r *fakeCatalogRepo) DeactivateLearningPath(companyID, id uint) error {
	if path, ok := r.paths[id]; ok && path.CompanyID == companyID {
		path.IsActive = false
	}
	return nil
}

func (r *fakeCatalogRepo) FindSessionTests(sessionID uint) ([]model.SessionTest, error) {
	for _, path := range r.paths {
		for _, stage := range path.Stages {
			for _, session := range stage.Sessions {
				if session.ID == sessionID {
					return session.TestLinks, nil
				}
			}
		}
	}
	return nil, nil
}

func (r *fakeCatalogRepo) FindSessionsContainingTest(companyID, testID uint) ([]model.Session, error) {
	var sessions []model.Session
	for _, path := range r.paths {
		if path.CompanyID != companyID {
			continue
		}
		for _, stage := range path.Stages {
			for _, session := range stage.Sessions {
				for _, link := range session.TestLinks {
					if link.TestID == testID {
						sessions = append(sessions, session)
						break
					}
				}
			}
		}
	}
	return sessions, nil
}

func (r *fakeCatalogRepo) CreateAttestation(att *model.Attestation) error {
	r.nextID++
	att.ID = r.nextID
	r.attestations[att.ID] = att
	return nil
}

type fakeTestRepo struct {
	tests  map[uint]*model.Test
	nextID uint
}

func newFakeTestRepo() *fakeTestRepo {
	return &fakeTestRepo{tests: make(map[uint]*model.Test), nextID: 100}
}

func (r *fakeTestRepo) Create(test *model.Test) error {
	r.nextID++
	test.ID = r.nextID
	for i := range test.Questions {
		r.nextID++
		test.Questions[i].ID = r.nextID
		test.Questions[i].TestID = test.ID
	}
	r.tests[test.ID] = test
	return nil
}

func (r *fakeTestRepo) FindByID(companyID, id uint) (*model.Test, error) {
	test, ok := r.tests[id]
	if !ok || test.CompanyID != companyID {
		return nil, gorm.ErrRecordNotFound
	}
	return test, nil
}

func (r *fakeTestRepo) FindByIDWithQuestions(companyID, id uint) (*model.Test, error) {
	return r.FindByID(companyID, id)
}

func (r *fakeTestRepo) Deactivate(companyID, id uint) error {
	if test, ok := r.tests[id]; ok && test.CompanyID == companyID {
		test.IsActive = false
	}
	return nil
}

// fakeProgressRepo enforces the optimistic version check the real repository
// implements with a conditional UPDATE. Reads return deep copies so a stale
// in-memory row genuinely conflicts. sessionUpdateConflicts simulates a
// concurrent writer winning the race on the next session update.
type fakeProgressRepo struct {
	tlps                   map[uint]*model.TraineeLearningPath
	nextID                 uint
	sessionUpdateConflicts int
	stageTreeConflicts     int
}

func newFakeProgressRepo() *fakeProgressRepo {
	return &fakeProgressRepo{tlps: make(map[uint]*model.TraineeLearningPath), nextID: 5000}
}

func (r *fakeProgressRepo) CreateTree(tlp *model.TraineeLearningPath) error {
	r.nextID++
	tlp.ID = r.nextID
	for i := range tlp.StageProgresses {
		r.nextID++
		tlp.StageProgresses[i].ID = r.nextID
		tlp.StageProgresses[i].TraineeLearningPathID = tlp.ID
		for j := range tlp.StageProgresses[i].SessionProgresses {
			r.nextID++
			tlp.StageProgresses[i].SessionProgresses[j].ID = r.nextID
			tlp.StageProgresses[i].SessionProgresses[j].StageProgressID = tlp.StageProgresses[i].ID
		}
	}
	r.tlps[tlp.ID] = copyTLP(tlp)
	return nil
}

func (r *fakeProgressRepo) FindActiveByTrainee(companyID, traineeID uint) (*model.TraineeLearningPath, error) {
	for _, tlp := range r.tlps {
		if tlp.CompanyID == companyID && tlp.TraineeID == traineeID && tlp.IsActive {
			return copyTLP(tlp), nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeProgressRepo) FindStageProgressByID(id uint) (*model.StageProgress, error) {
	if sp := r.storedStageProgress(id); sp != nil {
		cp := *sp
		cp.SessionProgresses = append([]model.SessionProgress(nil), sp.SessionProgresses...)
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeProgressRepo) FindSessionProgressByID(id uint) (*model.SessionProgress, error) {
	if sp := r.storedSessionProgress(id); sp != nil {
		cp := *sp
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeProgressRepo) UpdateTraineeLearningPath(tlp *model.TraineeLearningPath) error {
	stored, ok := r.tlps[tlp.ID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	stored.AttestationCompleted = tlp.AttestationCompleted
	stored.IsActive = tlp.IsActive
	return nil
}

func (r *fakeProgressRepo) UpdateStageProgress(sp *model.StageProgress) error {
	stored := r.storedStageProgress(sp.ID)
	if stored == nil {
		return gorm.ErrRecordNotFound
	}
	if stored.Version != sp.Version {
		return apperr.ErrConcurrentModification
	}
	stored.IsOpened = sp.IsOpened
	stored.IsCompleted = sp.IsCompleted
	stored.OpenedAt = sp.OpenedAt
	stored.CompletedAt = sp.CompletedAt
	stored.Version++
	sp.Version++
	return nil
}

func (r *fakeProgressRepo) UpdateSessionProgress(sp *model.SessionProgress) error {
	stored := r.storedSessionProgress(sp.ID)
	if stored == nil {
		return gorm.ErrRecordNotFound
	}
	if r.sessionUpdateConflicts > 0 {
		r.sessionUpdateConflicts--
		// Another writer completed the row first.
		stored.IsCompleted = true
		stored.Version++
		return apperr.ErrConcurrentModification
	}
	if stored.Version != sp.Version {
		return apperr.ErrConcurrentModification
	}
	stored.IsOpened = sp.IsOpened
	stored.IsCompleted = sp.IsCompleted
	stored.OpenedAt = sp.OpenedAt
	stored.CompletedAt = sp.CompletedAt
	stored.Version++
	sp.Version++
	return nil
}

// UpdateStageTree mirrors the transactional write: every version check runs
// before anything is applied, so a conflict leaves all rows untouched.
func (r *fakeProgressRepo) UpdateStageTree(sp *model.StageProgress) error {
	storedStage := r.storedStageProgress(sp.ID)
	if storedStage == nil {
		return gorm.ErrRecordNotFound
	}
	if r.stageTreeConflicts > 0 {
		r.stageTreeConflicts--
		return apperr.ErrConcurrentModification
	}
	if storedStage.Version != sp.Version {
		return apperr.ErrConcurrentModification
	}
	storedSessions := make([]*model.SessionProgress, len(sp.SessionProgresses))
	for i := range sp.SessionProgresses {
		stored := r.storedSessionProgress(sp.SessionProgresses[i].ID)
		if stored == nil {
			return gorm.ErrRecordNotFound
		}
		if stored.Version != sp.SessionProgresses[i].Version {
			return apperr.ErrConcurrentModification
		}
		storedSessions[i] = stored
	}

	storedStage.IsOpened = sp.IsOpened
	storedStage.IsCompleted = sp.IsCompleted
	storedStage.OpenedAt = sp.OpenedAt
	storedStage.CompletedAt = sp.CompletedAt
	storedStage.Version++
	sp.Version++
	for i, stored := range storedSessions {
		in := &sp.SessionProgresses[i]
		stored.IsOpened = in.IsOpened
		stored.IsCompleted = in.IsCompleted
		stored.OpenedAt = in.OpenedAt
		stored.CompletedAt = in.CompletedAt
		stored.Version++
		in.Version++
	}
	return nil
}

func (r *fakeProgressRepo) DeleteTree(tlpID uint) error {
	delete(r.tlps, tlpID)
	return nil
}

func (r *fakeProgressRepo) storedStageProgress(id uint) *model.StageProgress {
	for _, tlp := range r.tlps {
		for i := range tlp.StageProgresses {
			if tlp.StageProgresses[i].ID == id {
				return &tlp.StageProgresses[i]
			}
		}
	}
	return nil
}

func (r *fakeProgressRepo) storedSessionProgress(id uint) *model.SessionProgress {
	for _, tlp := range r.tlps {
		for i := range tlp.StageProgresses {
			for j := range tlp.StageProgresses[i].SessionProgresses {
				if tlp.StageProgresses[i].SessionProgresses[j].ID == id {
					return &tlp.StageProgresses[i].SessionProgresses[j]
				}
			}
		}
	}
	return nil
}

func copyTLP(t *model.TraineeLearningPath) *model.TraineeLearningPath {
	c := *t
	c.StageProgresses = make([]model.StageProgress, len(t.StageProgresses))
	for i, sp := range t.StageProgresses {
		cs := sp
		cs.SessionProgresses = append([]model.SessionProgress(nil), sp.SessionProgresses...)
		c.StageProgresses[i] = cs
	}
	return &c
}

type fakeResultRepo struct {
	results []model.TestResult
	nextID  uint
}

func newFakeResultRepo() *fakeResultRepo {
	return &fakeResultRepo{nextID: 9000}
}

func (r *fakeResultRepo) Create(result *model.TestResult) error {
	r.nextID++
	result.ID = r.nextID
	r.results = append(r.results, *result)
	return nil
}

func (r *fakeResultRepo) CountByTraineeAndTest(companyID, traineeID, testID uint) (int64, error) {
	var count int64
	for _, res := range r.results {
		if res.CompanyID == companyID && res.TraineeID == traineeID && res.TestID == testID {
			count++
		}
	}
	return count, nil
}

func (r *fakeResultRepo) HasPassing(companyID, traineeID, testID uint) (bool, error) {
	for _, res := range r.results {
		if res.CompanyID == companyID && res.TraineeID == traineeID && res.TestID == testID && res.IsPassed {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeResultRepo) FindAllByTraineeAndTest(companyID, traineeID, testID uint) ([]model.TestResult, error) {
	var out []model.TestResult
	for _, res := range r.results {
		if res.CompanyID == companyID && res.TraineeID == traineeID && res.TestID == testID {
			out = append(out, res)
		}
	}
	return out, nil
}

func (r *fakeResultRepo) DeleteForTests(companyID, traineeID uint, testIDs []uint) error {
	ids := make(map[uint]struct{}, len(testIDs))
	for _, id := range testIDs {
		ids[id] = struct{}{}
	}
	var kept []model.TestResult
	for _, res := range r.results {
		_, affected := ids[res.TestID]
		if affected && res.CompanyID == companyID && res.TraineeID == traineeID {
			continue
		}
		kept = append(kept, res)
	}
	r.results = kept
	return nil
}

func (r *fakeResultRepo) addResult(companyID, traineeID, testID uint, passed bool) {
	r.nextID++
	r.results = append(r.results, model.TestResult{
		ID:        r.nextID,
		CompanyID: companyID,
		TraineeID: traineeID,
		TestID:    testID,
		IsPassed:  passed,
	})
}

type fakeAccessRepo struct {
	grants []model.TestAccess
	nextID uint
}

func newFakeAccessRepo() *fakeAccessRepo {
	return &fakeAccessRepo{nextID: 7000}
}

func (r *fakeAccessRepo) Create(grant *model.TestAccess) error {
	r.nextID++
	grant.ID = r.nextID
	r.grants = append(r.grants, *grant)
	return nil
}

func (r *fakeAccessRepo) FindActive(companyID, traineeID, testID uint) (*model.TestAccess, error) {
	for i := range r.grants {
		g := &r.grants[i]
		if g.CompanyID == companyID && g.TraineeID == traineeID && g.TestID == testID && g.IsActive {
			cp := *g
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeAccessRepo) Revoke(companyID, grantID uint) error {
	for i := range r.grants {
		if r.grants[i].ID == grantID && r.grants[i].CompanyID == companyID {
			r.grants[i].IsActive = false
		}
	}
	return nil
}

func (r *fakeAccessRepo) DeleteForTests(companyID, traineeID uint, testIDs []uint) error {
	ids := make(map[uint]struct{}, len(testIDs))
	for _, id := range testIDs {
		ids[id] = struct{}{}
	}
	var kept []model.TestAccess
	for _, g := range r.grants {
		_, affected := ids[g.TestID]
		if affected && g.CompanyID == companyID && g.TraineeID == traineeID {
			continue
		}
		kept = append(kept, g)
	}
	r.grants = kept
	return nil
}

type fakeAttestationRepo struct {
	attestations map[uint]*model.Attestation
	results      []model.AttestationResult
	nextID       uint
}

func newFakeAttestationRepo() *fakeAttestationRepo {
	return &fakeAttestationRepo{attestations: make(map[uint]*model.Attestation), nextID: 8000}
}

func (r *fakeAttestationRepo) FindByID(companyID, id uint) (*model.Attestation, error) {
	att, ok := r.attestations[id]
	if !ok || att.CompanyID != companyID {
		return nil, gorm.ErrRecordNotFound
	}
	return att, nil
}

func (r *fakeAttestationRepo) CreateResult(result *model.AttestationResult) error {
	r.nextID++
	result.ID = r.nextID
	r.results = append(r.results, *result)
	return nil
}

func (r *fakeAttestationRepo) FindResult(companyID, attestationID, traineeID uint) (*model.AttestationResult, error) {
	for i := len(r.results) - 1; i >= 0; i-- {
		res := r.results[i]
		if res.CompanyID == companyID && res.AttestationID == attestationID && res.TraineeID == traineeID {
			return &res, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

type fakeNotifier struct {
	events []event.Event
}

func (n *fakeNotifier) Publish(ev event.Event) {
	n.events = append(n.events, ev)
}

func (n *fakeNotifier) types() []event.Type {
	out := make([]event.Type, len(n.events))
	for i, ev := range n.events {
		out[i] = ev.Type
	}
	return out
}

// --- shared fixture ---

const (
	fixtureCompany uint = 1
	fixtureTrainee uint = 7
	fixtureMentor  uint = 42
)

// fixture wires every fake into one canonical tenant: a two-stage learning
// path, stage "Basics" (order 1) holding session "Intro" with tests 101 and
// 102, stage "Advanced" (order 2) holding session "Deep Dive" with test 103,
// terminated by attestation 50.
type fixture struct {
	catalog     *fakeCatalogRepo
	tests       *fakeTestRepo
	progress    *fakeProgressRepo
	results     *fakeResultRepo
	access      *fakeAccessRepo
	attestation *fakeAttestationRepo
	notifier    *fakeNotifier

	path *model.LearningPath
}

func newFixture() *fixture {
	f := &fixture{
		catalog:     newFakeCatalogRepo(),
		tests:       newFakeTestRepo(),
		progress:    newFakeProgressRepo(),
		results:     newFakeResultRepo(),
		access:      newFakeAccessRepo(),
		attestation: newFakeAttestationRepo(),
		notifier:    &fakeNotifier{},
	}

	for _, id := range []uint{101, 102, 103} {
		f.tests.tests[id] = &model.Test{
			ID:             id,
			CompanyID:      fixtureCompany,
			Title:          "Test " + string(rune('A'+id-101)),
			ThresholdScore: 1.5,
			MaxScore:       2,
			IsActive:       true,
			Questions: []model.Question{
				{ID: id * 10, TestID: id, Text: "Capital?", Type: model.QuestionTypeText, CorrectAnswer: datatypes.JSON(`"Astana"`), Points: 1, OrderInTest: 1},
				{ID: id*10 + 1, TestID: id, Text: "Pick one", Type: model.QuestionTypeSingleChoice, Options: datatypes.JSON(`["red","green","blue"]`), CorrectAnswer: datatypes.JSON(`"green"`), Points: 1, OrderInTest: 2},
			},
		}
	}

	attID := uint(50)
	f.attestation.attestations[attID] = &model.Attestation{ID: attID, CompanyID: fixtureCompany, Name: "Final Review"}

	f.path = &model.LearningPath{
		ID:            1,
		CompanyID:     fixtureCompany,
		Name:          "Backend Onboarding",
		AttestationID: &attID,
		Attestation:   f.attestation.attestations[attID],
		IsActive:      true,
		Stages: []model.Stage{
			{
				ID: 10, CompanyID: fixtureCompany, LearningPathID: 1, Name: "Basics", OrderNumber: 1,
				Sessions: []model.Session{
					{
						ID: 20, CompanyID: fixtureCompany, StageID: 10, Name: "Intro", OrderNumber: 1,
						TestLinks: []model.SessionTest{
							{ID: 30, SessionID: 20, TestID: 101, OrderNumber: 1},
							{ID: 31, SessionID: 20, TestID: 102, OrderNumber: 2},
						},
					},
				},
			},
			{
				ID: 11, CompanyID: fixtureCompany, LearningPathID: 1, Name: "Advanced", OrderNumber: 2,
				Sessions: []model.Session{
					{
						ID: 21, CompanyID: fixtureCompany, StageID: 11, Name: "Deep Dive", OrderNumber: 1,
						TestLinks: []model.SessionTest{
							{ID: 32, SessionID: 21, TestID: 103, OrderNumber: 1},
						},
					},
				},
			},
		},
	}
	for i := range f.path.Stages {
		for j := range f.path.Stages[i].Sessions {
			for k := range f.path.Stages[i].Sessions[j].TestLinks {
				link := &f.path.Stages[i].Sessions[j].TestLinks[k]
				link.Test = *f.tests.tests[link.TestID]
			}
		}
	}
	f.catalog.paths[f.path.ID] = f.path
	return f
}

// assignProgress creates the trainee's progress tree for the fixture path,
// everything closed.
func (f *fixture) assignProgress() *model.TraineeLearningPath {
	tlp := &model.TraineeLearningPath{
		CompanyID:      fixtureCompany,
		TraineeID:      fixtureTrainee,
		LearningPathID: f.path.ID,
		IsActive:       true,
	}
	for _, stage := range f.path.Stages {
		sp := model.StageProgress{CompanyID: fixtureCompany, StageID: stage.ID}
		for _, session := range stage.Sessions {
			sp.SessionProgresses = append(sp.SessionProgresses, model.SessionProgress{CompanyID: fixtureCompany, SessionID: session.ID})
		}
		tlp.StageProgresses = append(tlp.StageProgresses, sp)
	}
	if err := f.progress.CreateTree(tlp); err != nil {
		panic(err)
	}
	return f.progress.tlps[tlp.ID]
}

// openStoredStage flips the stored progress rows directly, bypassing the
// service under test.
func (f *fixture) openStoredStage(tlp *model.TraineeLearningPath, stageID uint, completed bool) {
	for i := range tlp.StageProgresses {
		sp := &tlp.StageProgresses[i]
		if sp.StageID != stageID {
			continue
		}
		sp.IsOpened = true
		sp.IsCompleted = completed
		for j := range sp.SessionProgresses {
			sp.SessionProgresses[j].IsOpened = true
			sp.SessionProgresses[j].IsCompleted = completed
		}
	}
}

func (f *fixture) grantAccess(testID uint) {
	f.access.grants = append(f.access.grants, model.TestAccess{
		ID:        600 + testID,
		CompanyID: fixtureCompany,
		TraineeID: fixtureTrainee,
		TestID:    testID,
		GrantedBy: fixtureMentor,
		IsActive:  true,
	})
}
