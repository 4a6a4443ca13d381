package taxonomy

import (
	"math"
	"testing"
)

func TestValid_AcceptsEveryTablePair(t *testing.T) {
	for _, cat := range Categories() {
		for _, sub := range Subtypes(cat) {
			if !Valid(cat, sub) {
				t.Errorf("expected %s.%s to be valid", cat, sub)
			}
		}
	}
}

func TestValid_RejectsCrossCategoryPairs(t *testing.T) {
	cases := []struct {
		cat Category
		sub Subtype
	}{
		{Episodic, SubtypeWorkflow},
		{Semantic, SubtypeEvent},
		{Procedural, SubtypeBoundaries},
		{Preference, SubtypeDebugging},
		{Category("unknown"), SubtypeEvent},
		{Episodic, Subtype("unknown")},
	}
	for _, c := range cases {
		if Valid(c.cat, c.sub) {
			t.Errorf("expected %s.%s to be invalid", c.cat, c.sub)
		}
	}
}

func TestProfiles_SumToApproximatelyOne(t *testing.T) {
	for _, intent := range []Intent{IntentHowTo, IntentWhatHappened, IntentWhatIs, IntentDebug, IntentGeneral} {
		sum := 0.0
		for _, w := range ProfileFor(intent) {
			sum += w
		}
		if math.Abs(sum-1.0) > 0.01 {
			t.Errorf("profile for %s sums to %f, want ~1.0", intent, sum)
		}
	}
}

func TestProfiles_KeysAreValidPairs(t *testing.T) {
	for _, intent := range []Intent{IntentHowTo, IntentWhatHappened, IntentWhatIs, IntentDebug, IntentGeneral} {
		for key := range ProfileFor(intent) {
			if key == WorkingMemoryKey {
				continue
			}
			found := false
			for _, cat := range Categories() {
				for _, sub := range Subtypes(cat) {
					if Key(cat, sub) == key {
						found = true
					}
				}
			}
			if !found {
				t.Errorf("profile for %s has key %q outside the taxonomy", intent, key)
			}
		}
	}
}

func TestProfileFor_UnknownIntentFallsBackToGeneral(t *testing.T) {
	p := ProfileFor(Intent("nonsense"))
	if p[WorkingMemoryKey] != profiles[IntentGeneral][WorkingMemoryKey] {
		t.Fatal("expected unknown intent to fall back to the general profile")
	}
}
