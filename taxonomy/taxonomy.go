// Package taxonomy holds the fixed category/subtype enumeration and the
// intent-to-weight profiles used by retrieval. All data here is
// compile-time constant; nothing in this package mutates at runtime.
package taxonomy

import "fmt"

// Category is one of the four top-level long-term memory categories.
type Category string

const (
	Episodic   Category = "episodic"
	Semantic   Category = "semantic"
	Procedural Category = "procedural"
	Preference Category = "preference"
)

// Subtype is a category-scoped memory subtype.
type Subtype string

const (
	// episodic
	SubtypeEvent        Subtype = "event"
	SubtypeDecision     Subtype = "decision"
	SubtypeConversation Subtype = "conversation"
	SubtypeOutcome      Subtype = "outcome"

	// semantic
	SubtypeUser        Subtype = "user"
	SubtypeProject     Subtype = "project"
	SubtypeEnvironment Subtype = "environment"
	SubtypeDomain      Subtype = "domain"
	SubtypeEntity      Subtype = "entity"

	// procedural
	SubtypeWorkflow  Subtype = "workflow"
	SubtypePattern   Subtype = "pattern"
	SubtypeToolUsage Subtype = "tool-usage"
	SubtypeDebugging Subtype = "debugging"

	// preference
	SubtypeCommunication Subtype = "communication"
	SubtypeStyle         Subtype = "style"
	SubtypeTools         Subtype = "tools"
	SubtypeBoundaries    Subtype = "boundaries"
)

// table enumerates, for each category, the subtypes valid within it.
var table = map[Category]map[Subtype]bool{
	Episodic: {
		SubtypeEvent:        true,
		SubtypeDecision:     true,
		SubtypeConversation: true,
		SubtypeOutcome:      true,
	},
	Semantic: {
		SubtypeUser:        true,
		SubtypeProject:     true,
		SubtypeEnvironment: true,
		SubtypeDomain:      true,
		SubtypeEntity:      true,
	},
	Procedural: {
		SubtypeWorkflow:  true,
		SubtypePattern:   true,
		SubtypeToolUsage: true,
		SubtypeDebugging: true,
	},
	Preference: {
		SubtypeCommunication: true,
		SubtypeStyle:         true,
		SubtypeTools:         true,
		SubtypeBoundaries:    true,
	},
}

// Valid reports whether (category, subtype) is a legal pair.
func Valid(category Category, subtype Subtype) bool {
	subs, ok := table[category]
	if !ok {
		return false
	}
	return subs[subtype]
}

// Key returns the "<category>.<subtype>" key used in weight profiles.
func Key(category Category, subtype Subtype) string {
	return fmt.Sprintf("%s.%s", category, subtype)
}

// Categories returns all categories, in a stable order.
func Categories() []Category {
	return []Category{Episodic, Semantic, Procedural, Preference}
}

// Subtypes returns the subtypes valid for category, in a stable order.
func Subtypes(category Category) []Subtype {
	switch category {
	case Episodic:
		return []Subtype{SubtypeEvent, SubtypeDecision, SubtypeConversation, SubtypeOutcome}
	case Semantic:
		return []Subtype{SubtypeUser, SubtypeProject, SubtypeEnvironment, SubtypeDomain, SubtypeEntity}
	case Procedural:
		return []Subtype{SubtypeWorkflow, SubtypePattern, SubtypeToolUsage, SubtypeDebugging}
	case Preference:
		return []Subtype{SubtypeCommunication, SubtypeStyle, SubtypeTools, SubtypeBoundaries}
	default:
		return nil
	}
}
