package snapshot

import (
	"reflect"
	"testing"
	"time"
)

func date(year, month, day int) *time.Time {
	d := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	return &d
}

func warningCodes(warnings []Warning) []string {
	codes := make([]string, len(warnings))
	for i, w := range warnings {
		codes[i] = w.Code
	}
	return codes
}

func TestBuildCleanInput(t *testing.T) {
	persons := []Person{
		{ID: "Q2", Name: "B"},
		{ID: "Q1", Name: "A", Birth: date(1820, 1, 1), Death: date(1880, 1, 1)},
	}
	works := []Work{
		{ID: "W1", Title: "First", Attributions: []Attribution{
			{PersonID: "Q1", Relation: AttributionAuthor},
			{PersonID: "Q2", Relation: AttributionNotableWork},
		}},
	}

	snap, warnings := Build(persons, works)
	if len(warnings) != 0 {
		t.Fatalf("Build() warnings = %v, want none", warnings)
	}
	if snap.PersonCount() != 2 || snap.WorkCount() != 1 {
		t.Fatalf("snapshot has %d persons and %d works, want 2 and 1", snap.PersonCount(), snap.WorkCount())
	}

	got := snap.Persons()
	if got[0].ID != "Q1" || got[1].ID != "Q2" {
		t.Errorf("Persons() order = [%s %s], want sorted by id", got[0].ID, got[1].ID)
	}

	p, ok := snap.Person("Q1")
	if !ok || p.Name != "A" {
		t.Errorf("Person(Q1) = %v, %v", p, ok)
	}
	if _, ok := snap.Person("Q9"); ok {
		t.Error("Person(Q9) found, want miss")
	}
}

func TestBuildQuarantinesInvertedDates(t *testing.T) {
	persons := []Person{
		{ID: "Q1", Birth: date(1880, 1, 1), Death: date(1820, 1, 1)},
		{ID: "Q2", Birth: date(1820, 1, 1), Death: date(1880, 1, 1)},
	}

	snap, warnings := Build(persons, nil)
	if snap.PersonCount() != 1 {
		t.Fatalf("PersonCount() = %d, want 1 (inverted record dropped)", snap.PersonCount())
	}
	if _, ok := snap.Person("Q1"); ok {
		t.Error("Person(Q1) found, want quarantined")
	}
	if !reflect.DeepEqual(warningCodes(warnings), []string{WarnInvertedDates}) {
		t.Fatalf("warning codes = %v, want [%s]", warningCodes(warnings), WarnInvertedDates)
	}
}

func TestBuildDropsDanglingAttributions(t *testing.T) {
	persons := []Person{{ID: "Q1"}}
	works := []Work{
		{ID: "W1", Attributions: []Attribution{
			{PersonID: "Q1", Relation: AttributionAuthor},
			{PersonID: "Q404", Relation: AttributionAuthor},
		}},
	}

	snap, warnings := Build(persons, works)
	if !reflect.DeepEqual(warningCodes(warnings), []string{WarnDanglingAttribution}) {
		t.Fatalf("warning codes = %v, want [%s]", warningCodes(warnings), WarnDanglingAttribution)
	}

	kept := snap.Works()[0].Attributions
	if len(kept) != 1 || kept[0].PersonID != "Q1" {
		t.Fatalf("kept attributions = %v, want only Q1", kept)
	}
}

func TestBuildCollapsesDuplicateAttributions(t *testing.T) {
	persons := []Person{{ID: "Q1"}}
	works := []Work{
		{ID: "W1", Attributions: []Attribution{
			{PersonID: "Q1", Relation: AttributionAuthor},
			{PersonID: "Q1", Relation: AttributionNotableWork},
		}},
	}

	snap, warnings := Build(persons, works)
	if !reflect.DeepEqual(warningCodes(warnings), []string{WarnDuplicateAttribution}) {
		t.Fatalf("warning codes = %v, want [%s]", warningCodes(warnings), WarnDuplicateAttribution)
	}

	kept := snap.Works()[0].Attributions
	if len(kept) != 1 {
		t.Fatalf("kept %d attributions, want 1", len(kept))
	}
	// First occurrence wins, including its relation tag.
	if kept[0].Relation != AttributionAuthor {
		t.Errorf("kept relation = %s, want %s", kept[0].Relation, AttributionAuthor)
	}
}

func TestBuildKeepsFirstDuplicateRecords(t *testing.T) {
	persons := []Person{
		{ID: "Q1", Name: "first"},
		{ID: "Q1", Name: "second"},
	}
	works := []Work{
		{ID: "W1", Title: "first"},
		{ID: "W1", Title: "second"},
	}

	snap, warnings := Build(persons, works)
	if !reflect.DeepEqual(warningCodes(warnings), []string{WarnDuplicatePerson, WarnDuplicateWork}) {
		t.Fatalf("warning codes = %v, want duplicate person and work", warningCodes(warnings))
	}

	p, _ := snap.Person("Q1")
	if p.Name != "first" {
		t.Errorf("kept person name = %q, want first occurrence", p.Name)
	}
	if w := snap.Works()[0]; w.Title != "first" {
		t.Errorf("kept work title = %q, want first occurrence", w.Title)
	}
}

func TestPersonsReturnsCopy(t *testing.T) {
	snap, _ := Build([]Person{{ID: "Q1", Name: "A"}}, nil)

	got := snap.Persons()
	got[0].Name = "mutated"

	again, _ := snap.Person("Q1")
	if again.Name != "A" {
		t.Fatalf("snapshot person mutated through Persons() copy: %q", again.Name)
	}
}
