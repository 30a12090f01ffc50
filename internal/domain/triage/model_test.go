package triage

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestTriage_Reclassify(t *testing.T) {
	tr := &Triage{
		Consciousness: ConsciousnessAlert,
		PainLevel:     intp(6),
	}
	tr.Reclassify()
	if tr.Level != 3 {
		t.Errorf("level = %d, want 3", tr.Level)
	}
	if tr.Category != "urgent" {
		t.Errorf("category = %q, want urgent", tr.Category)
	}
	if tr.HasRedFlags {
		t.Error("hasRedFlags should be false without red flags")
	}

	tr.RedFlags = []string{"stridor"}
	tr.Reclassify()
	if tr.Level != 1 {
		t.Errorf("level after red flag = %d, want 1", tr.Level)
	}
	if !tr.HasRedFlags {
		t.Error("hasRedFlags should track redFlags")
	}
}

func TestTriage_Validate(t *testing.T) {
	tr := &Triage{TriageNumber: "TR260001", Consciousness: ConsciousnessAlert}
	tr.Reclassify()
	if err := tr.Validate(); err != nil {
		t.Fatalf("valid record rejected: %v", err)
	}

	// hasRedFlags drifting from redFlags is a programmer error.
	tr.HasRedFlags = true
	if err := tr.Validate(); err == nil {
		t.Error("expected error for inconsistent hasRedFlags")
	}
	tr.HasRedFlags = false

	// A hand-set level that disagrees with the classifier must fail fast.
	tr.Level = 2
	if err := tr.Validate(); err == nil {
		t.Error("expected error for hand-set level")
	}

	tr.Level = 0
	if err := tr.Validate(); err == nil {
		t.Error("expected error for out-of-range level")
	}
}

func TestCategoryAndColorTablesAreComplete(t *testing.T) {
	for level := 1; level <= 5; level++ {
		if CategoryForLevel(level) == "" {
			t.Errorf("no category for level %d", level)
		}
		if ColorForLevel(level) == "" {
			t.Errorf("no color for level %d", level)
		}
	}
}

func TestStatusLabels(t *testing.T) {
	for _, s := range []Status{StatusWaiting, StatusInProgress, StatusCompleted, StatusCancelled} {
		if s.Label() == string(s) {
			t.Errorf("status %s has no display label", s)
		}
	}
	if got := Status("bogus").Label(); got != "bogus" {
		t.Errorf("unknown status label = %q, want raw value", got)
	}
}

func TestTriage_JSONContract(t *testing.T) {
	now := time.Date(2026, 2, 1, 8, 0, 0, 0, time.UTC)
	tr := &Triage{
		ID:              uuid.New(),
		TriageNumber:    "TR260042",
		PatientID:       uuid.New(),
		ChiefComplaint:  "shortness of breath",
		Consciousness:   ConsciousnessAlert,
		Breathing:       BreathingLabored,
		Vitals:          Vitals{OxygenSaturation: intp(90)},
		RedFlags:        []string{},
		Status:          StatusInProgress,
		TriageStartTime: now,
	}
	tr.Reclassify()

	data, err := json.Marshal(tr)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var m map[string]interface{}
	if err := json.Unmarshal(data, &m); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	// Wire field names are a contract with the UI layer.
	for _, field := range []string{"id", "triageNumber", "patientId", "chiefComplaint",
		"vitals", "redFlags", "hasRedFlags", "level", "category", "status", "triageStartTime"} {
		if _, ok := m[field]; !ok {
			t.Errorf("missing wire field %q", field)
		}
	}
	if m["level"].(float64) != 3 {
		t.Errorf("level = %v, want 3", m["level"])
	}

	var decoded Triage
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("round trip: %v", err)
	}
	if decoded.TriageNumber != tr.TriageNumber || decoded.Level != tr.Level {
		t.Error("round trip lost fields")
	}
	if decoded.Vitals.OxygenSaturation == nil || *decoded.Vitals.OxygenSaturation != 90 {
		t.Error("round trip lost vitals")
	}
}
