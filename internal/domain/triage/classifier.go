package triage

import "time"

// Inputs are the clinical observations the classifier scores. PainLevel
// is deliberately a pointer: an unrecorded pain score fails every pain
// check rather than reading as zero.
type Inputs struct {
	Consciousness Consciousness
	Airway        Airway
	Breathing     Breathing
	Circulation   Circulation
	Mobility      Mobility
	PainLevel     *int
	HasRedFlags   bool
}

// CalculateLevel scores a triage assessment into a level from 1 (most
// severe) to 5. The cascade is first-match-wins: once a higher-severity
// clause matches, no lower clause is consulted, so a level-1 condition
// always wins regardless of what else is present.
func CalculateLevel(in Inputs) int {
	switch {
	case in.Consciousness == ConsciousnessUnresponsive,
		in.Airway == AirwayObstructed,
		in.Breathing == BreathingApneic,
		in.Circulation == CirculationArrest,
		in.HasRedFlags:
		return 1

	case in.Consciousness == ConsciousnessRespondsToPain,
		in.Airway == AirwayCompromised,
		in.Breathing == BreathingDistressed,
		in.Circulation == CirculationDecompensated,
		painAtLeast(in.PainLevel, 8):
		return 2

	case in.Consciousness == ConsciousnessRespondsToVoice,
		in.Airway == AirwayAtRisk,
		in.Breathing == BreathingLabored,
		in.Circulation == CirculationCompensated,
		painAtLeast(in.PainLevel, 5):
		return 3

	case painAtLeast(in.PainLevel, 2),
		in.Mobility == MobilityAssisted:
		return 4

	default:
		return 5
	}
}

func painAtLeast(pain *int, threshold int) bool {
	return pain != nil && *pain >= threshold
}

// Abnormal-vitals thresholds. A reading outside these bands flags the
// encounter for clinician review; absent readings never flag.
const (
	tempLowC    = 35.0
	tempHighC   = 40.0
	sysBPLow    = 90
	sysBPHigh   = 180
	hrLow       = 50
	hrHigh      = 130
	rrLow       = 10
	rrHigh      = 30
	spo2Low     = 92
	glucoseLow  = 60.0
	glucoseHigh = 400.0
)

// HasAbnormalVitals reports whether any recorded vital sign falls outside
// the accepted range. Missing fields degrade silently to "not abnormal";
// callers needing strict validation must pre-validate.
func HasAbnormalVitals(v Vitals) bool {
	if v.Temperature != nil && (*v.Temperature < tempLowC || *v.Temperature > tempHighC) {
		return true
	}
	if v.BPSystolic != nil && (*v.BPSystolic < sysBPLow || *v.BPSystolic > sysBPHigh) {
		return true
	}
	if v.HeartRate != nil && (*v.HeartRate < hrLow || *v.HeartRate > hrHigh) {
		return true
	}
	if v.RespiratoryRate != nil && (*v.RespiratoryRate < rrLow || *v.RespiratoryRate > rrHigh) {
		return true
	}
	if v.OxygenSaturation != nil && *v.OxygenSaturation < spo2Low {
		return true
	}
	if v.Glucose != nil && (*v.Glucose < glucoseLow || *v.Glucose > glucoseHigh) {
		return true
	}
	return false
}

// maxWaitMinutes is the wait-time SLA per triage level.
var maxWaitMinutes = map[int]int{
	1: 0,
	2: 10,
	3: 30,
	4: 60,
	5: 120,
}

// MaxWaitMinutes returns the SLA for a level, or -1 for an unknown level.
func MaxWaitMinutes(level int) int {
	if m, ok := maxWaitMinutes[level]; ok {
		return m
	}
	return -1
}

// WaitTime returns the whole minutes a patient has waited for a doctor:
// from triage end (or triage start if the assessment is still open) until
// seen-by-doctor, or until now if not yet seen.
func WaitTime(t *Triage, now time.Time) int {
	start := t.TriageStartTime
	if t.TriageEndTime != nil {
		start = *t.TriageEndTime
	}
	end := now
	if t.SeenByDoctorTime != nil {
		end = *t.SeenByDoctorTime
	}
	return int(end.Sub(start).Minutes())
}

// IsWaitTimeExceeded reports whether the patient has waited past the SLA
// for their level. Only meaningful once triage is completed; open or
// cancelled encounters never report exceeded.
func IsWaitTimeExceeded(t *Triage, now time.Time) bool {
	if t.Status != StatusCompleted {
		return false
	}
	max, ok := maxWaitMinutes[t.Level]
	if !ok {
		return false
	}
	return WaitTime(t, now) > max
}
