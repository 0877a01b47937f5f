package speaker_test

import (
	"testing"

	"github.com/MrWong99/scribe/internal/speaker"
	"github.com/MrWong99/scribe/pkg/persist"
)

func TestRegistry(t *testing.T) {
	t.Parallel()

	r := speaker.New()
	if got := r.Name("S1"); got != "S1" {
		t.Errorf("Name of unnamed = %q, want label", got)
	}
	r.SetName("S1", "  Alice ")
	if got := r.Name("S1"); got != "Alice" {
		t.Errorf("Name = %q, want Alice", got)
	}

	if r.AddCharacteristic("S1", "   ") {
		t.Error("blank characteristic accepted")
	}
	r.AddCharacteristic("S1", "soft-spoken")
	r.AddCharacteristic("S1", "chairperson")
	if !r.RemoveCharacteristic("S1", 0) {
		t.Fatal("RemoveCharacteristic(0) failed")
	}
	if r.RemoveCharacteristic("S1", 5) || r.RemoveCharacteristic("S9", 0) {
		t.Error("out-of-range removal reported success")
	}

	list := r.List([]string{"S1", "S2"})
	if len(list) != 2 || list[0].Name != "Alice" || len(list[0].Characteristics) != 1 || list[0].Characteristics[0] != "chairperson" {
		t.Errorf("List = %+v", list)
	}
	if list[1].Label != "S2" || list[1].Name != "" {
		t.Errorf("List[1] = %+v", list[1])
	}
}

func TestEntriesAreCopies(t *testing.T) {
	t.Parallel()

	r := speaker.New()
	r.Load(map[string]persist.Speaker{"S1": {Name: "Bob", Characteristics: []string{"a"}}})
	e := r.Entries()
	e["S1"].Characteristics[0] = "changed"
	if got := r.Entries()["S1"].Characteristics[0]; got != "a" {
		t.Errorf("registry mutated through Entries: %q", got)
	}
}
