// Package event defines the discrete progression events handed to the
// notification collaborator. Delivery and message formatting are entirely the
// collaborator's concern; this package only describes what happened.
package event

import (
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

type Type string

const (
	StageOpened         Type = "stage_opened"
	SessionCompleted    Type = "session_completed"
	StageCompleted      Type = "stage_completed"
	TestPassed          Type = "test_passed"
	TestFailed          Type = "test_failed"
	AttestationUnlocked Type = "attestation_unlocked"
)

// Event carries enough context for the collaborator to render a message.
// UnitID identifies the stage, session, test or attestation the event is
// about.
type Event struct {
	ID         uuid.UUID `json:"id"`
	Type       Type      `json:"type"`
	CompanyID  uint      `json:"company_id"`
	TraineeID  uint      `json:"trainee_id"`
	UnitID     uint      `json:"unit_id"`
	UnitName   string    `json:"unit_name,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

func New(t Type, companyID, traineeID, unitID uint, unitName string) Event {
	return Event{
		ID:         uuid.New(),
		Type:       t,
		CompanyID:  companyID,
		TraineeID:  traineeID,
		UnitID:     unitID,
		UnitName:   unitName,
		OccurredAt: time.Now(),
	}
}

// Notifier hands events to the messaging collaborator.
type Notifier interface {
	Publish(ev Event)
}

// LogNotifier is the default sink, writing events to the structured log. The
// real messaging collaborator replaces it at wiring time.
type LogNotifier struct{}

func NewLogNotifier() Notifier {
	return &LogNotifier{}
}

func (n *LogNotifier) Publish(ev Event) {
	log.Info().
		Str("event_id", ev.ID.String()).
		Str("type", string(ev.Type)).
		Uint("company_id", ev.CompanyID).
		Uint("trainee_id", ev.TraineeID).
		Uint("unit_id", ev.UnitID).
		Str("unit_name", ev.UnitName).
		Msg("progression_event")
}
