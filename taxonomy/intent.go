package taxonomy

// Intent is one of the five query intents DetectIntent can classify.
type Intent string

const (
	IntentHowTo        Intent = "how-to"
	IntentWhatHappened Intent = "what-happened"
	IntentWhatIs       Intent = "what-is"
	IntentDebug        Intent = "debug"
	IntentGeneral      Intent = "general"
)

// WorkingMemoryKey is the weight-profile key for the working-memory share.
const WorkingMemoryKey = "working-memory"

// Profile maps a retrieval target (WorkingMemoryKey or a "<category>.<subtype>"
// key) to its relative weight for a given intent. Weights sum to
// approximately 1.0 but are not renormalized by this package; callers treat
// the sum as a soft target.
type Profile map[string]float64

// profiles holds the five default intent profiles.
var profiles = map[Intent]Profile{
	IntentHowTo: {
		WorkingMemoryKey:                 0.25,
		Key(Procedural, SubtypeWorkflow): 0.25,
		Key(Procedural, SubtypePattern):  0.15,
		Key(Semantic, SubtypeProject):    0.15,
		Key(Semantic, SubtypeEntity):     0.10,
		Key(Preference, SubtypeStyle):    0.05,
		Key(Episodic, SubtypeDecision):   0.05,
	},
	IntentWhatHappened: {
		WorkingMemoryKey:                   0.20,
		Key(Episodic, SubtypeDecision):     0.30,
		Key(Episodic, SubtypeEvent):        0.20,
		Key(Episodic, SubtypeOutcome):      0.15,
		Key(Semantic, SubtypeProject):      0.10,
		Key(Episodic, SubtypeConversation): 0.05,
	},
	IntentWhatIs: {
		WorkingMemoryKey:                  0.20,
		Key(Semantic, SubtypeEntity):      0.30,
		Key(Semantic, SubtypeProject):     0.20,
		Key(Semantic, SubtypeDomain):      0.15,
		Key(Semantic, SubtypeEnvironment): 0.10,
		Key(Episodic, SubtypeDecision):    0.05,
	},
	IntentDebug: {
		WorkingMemoryKey:                  0.30,
		Key(Procedural, SubtypeDebugging): 0.25,
		Key(Episodic, SubtypeOutcome):     0.20,
		Key(Semantic, SubtypeEnvironment): 0.10,
		Key(Semantic, SubtypeEntity):      0.10,
		Key(Preference, SubtypeTools):     0.05,
	},
	IntentGeneral: {
		WorkingMemoryKey:                      0.35,
		Key(Semantic, SubtypeProject):         0.15,
		Key(Episodic, SubtypeDecision):        0.15,
		Key(Semantic, SubtypeEntity):          0.10,
		Key(Procedural, SubtypeWorkflow):      0.10,
		Key(Preference, SubtypeCommunication): 0.10,
		Key(Semantic, SubtypeUser):            0.05,
	},
}

// ProfileFor returns the weight profile for intent, defaulting to the
// "general" profile for any value this package doesn't recognize.
func ProfileFor(intent Intent) Profile {
	if p, ok := profiles[intent]; ok {
		return p
	}
	return profiles[IntentGeneral]
}

// ValidIntent reports whether intent is one of the five recognized values.
func ValidIntent(intent Intent) bool {
	switch intent {
	case IntentHowTo, IntentWhatHappened, IntentWhatIs, IntentDebug, IntentGeneral:
		return true
	default:
		return false
	}
}
