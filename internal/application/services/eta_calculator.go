package services

import (
	"math"
	"sort"
	"time"

	"github.com/zatekoja/Clinicqueuedesign/internal/domain/entities"
	"github.com/zatekoja/Clinicqueuedesign/internal/domain/repositories"
)

const (
	// MinAvgServiceMinutes and MaxAvgServiceMinutes bound both the configured
	// average service time and the observed rolling average.
	MinAvgServiceMinutes = 5
	MaxAvgServiceMinutes = 60
)

// ETACalculator predicts call times for every active token of a session from
// a fresh token-ledger snapshot. It holds no mutable state; the same inputs
// always produce the same snapshot, so recalculation is idempotent and safe
// to run concurrently with itself.
type ETACalculator struct {
	sampleWindow int
	minSamples   int
	now          func() time.Time
}

// NewETACalculator creates a new ETA calculator. sampleWindow bounds how many
// recent completed consultations feed the observed average; minSamples is the
// noise floor below which the configured average is used unchanged.
func NewETACalculator(sampleWindow, minSamples int) *ETACalculator {
	return &ETACalculator{
		sampleWindow: sampleWindow,
		minSamples:   minSamples,
		now:          time.Now,
	}
}

// NewETACalculatorWithClock creates an ETA calculator with a custom clock for
// deterministic tests
func NewETACalculatorWithClock(sampleWindow, minSamples int, now func() time.Time) *ETACalculator {
	return &ETACalculator{
		sampleWindow: sampleWindow,
		minSamples:   minSamples,
		now:          now,
	}
}

// SampleWindow returns how many completed consultations the observed average
// reads, for callers sizing their ledger query
func (c *ETACalculator) SampleWindow() int {
	return c.sampleWindow
}

// ObservedAverage computes the rolling average service duration in minutes
// from recently completed consultations, most recent first. Requires at least
// minSamples qualifying consultations; the result is clamped to
// [MinAvgServiceMinutes, MaxAvgServiceMinutes] and rounded to one decimal.
// Returns false when there are too few samples.
func (c *ETACalculator) ObservedAverage(consultations []*entities.Consultation) (float64, bool) {
	var (
		total float64
		count int
	)

	for _, consultation := range consultations {
		if count >= c.sampleWindow {
			break
		}
		minutes, ok := consultation.DurationMinutes()
		if !ok {
			continue
		}
		total += minutes
		count++
	}

	if count < c.minSamples {
		return 0, false
	}

	avg := total / float64(count)
	if avg < MinAvgServiceMinutes {
		avg = MinAvgServiceMinutes
	}
	if avg > MaxAvgServiceMinutes {
		avg = MaxAvgServiceMinutes
	}

	return math.Round(avg*10) / 10, true
}

// Recalculate builds a queue state snapshot for the session from its active
// tokens and recent completed consultations, and returns the ETA writes that
// actually changed. Tokens already called, recalled, or visited keep their
// stored ETA untouched; for everything else the ETA is
// max(now, sessionStart) plus a position-, priority-, and buffer-derived
// offset. Ties are broken by ascending token number.
func (c *ETACalculator) Recalculate(
	session *entities.Session,
	tokens []*entities.Token,
	consultations []*entities.Consultation,
) (*entities.QueueState, []repositories.TokenETAUpdate) {
	now := c.now()

	avgMinutes := float64(session.AvgServiceMinutes)
	observedApplied := false
	if observed, ok := c.ObservedAverage(consultations); ok {
		avgMinutes = observed
		observedApplied = true
	}

	ordered := make([]*entities.Token, len(tokens))
	copy(ordered, tokens)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].TokenNumber < ordered[j].TokenNumber
	})

	currentPointer := 0
	if session.CurrentTokenNumber != nil {
		currentPointer = *session.CurrentTokenNumber
	} else if len(ordered) > 0 {
		currentPointer = ordered[0].TokenNumber
	}

	base := session.StartTime
	if now.After(base) {
		base = now
	}

	entries := make([]entities.QueueEntry, 0, len(ordered))
	var updates []repositories.TokenETAUpdate

	for _, token := range ordered {
		eta := token.ETA

		switch token.Status {
		case entities.TokenStatusCalled, entities.TokenStatusRecalled, entities.TokenStatusVisited:
			// Actively being served; the stored ETA stands.
		default:
			position := token.TokenNumber - currentPointer
			if position < 0 {
				position = 0
			}

			offsetMinutes := float64(position)*avgMinutes -
				float64(token.Priority)*avgMinutes +
				float64(token.DynamicBufferMinutes)
			if offsetMinutes < 0 {
				offsetMinutes = 0
			}

			computed := base.Add(time.Duration(offsetMinutes * float64(time.Minute)))
			eta = &computed

			if token.ETA == nil || !token.ETA.Equal(computed) {
				updates = append(updates, repositories.TokenETAUpdate{
					TokenID:   token.ID,
					BookingID: token.BookingID,
					ETA:       computed,
				})
			}
		}

		entries = append(entries, entities.QueueEntry{
			TokenID:     token.ID,
			TokenNumber: token.TokenNumber,
			Status:      token.Status,
			ETA:         eta,
			PatientID:   token.PatientID,
			BookingID:   token.BookingID,
			RecallCount: token.RecallCount,
		})
	}

	state := &entities.QueueState{
		SessionID:          session.ID,
		Status:             session.Status,
		CurrentTokenNumber: session.CurrentTokenNumber,
		AvgServiceMinutes:  avgMinutes,
		ObservedApplied:    observedApplied,
		Entries:            entries,
		GeneratedAt:        now,
	}

	return state, updates
}
