// Package intent classifies validated questions and dispatches them to
// answer strategies, tracking the small per-user state machine behind
// multi-turn schedule lookups.
package intent

import "context"

// Intent is a closed category describing what kind of help a message is
// requesting. The tags mirror the classifier's vocabulary.
type Intent string

const (
	ScheduleLookup   Intent = "schedule_lookup"
	CreativeIdea     Intent = "creative_idea"
	CreativeTeamName Intent = "creative_team_name"
	Smalltalk        Intent = "smalltalk"
	KnowledgeBase    Intent = "rag_faq"
	Unclear          Intent = "unclear"
)

// ScheduleEntry is one row of a student's intensive schedule as returned
// by the identifier lookup.
type ScheduleEntry struct {
	FullName  string
	GroupName string
	Intensive string
	Date      string
	Time      string
	Location  string
}

// Strategy is the narrow interface to the external answer-generation
// collaborators: the vector-search engine for knowledge and lookups, an
// LLM for creative text. Calls may perform network I/O and must respect
// the context.
type Strategy interface {
	// ClassifyIntent maps free text to an intent tag. Unknown tags are
	// treated as KnowledgeBase by the router, not as errors.
	ClassifyIntent(ctx context.Context, text string) (Intent, error)

	// LookupIdentifier resolves a full name to schedule entries. An empty
	// result means the name was not found.
	LookupIdentifier(ctx context.Context, fullName string) ([]ScheduleEntry, error)

	// AnswerSchedule formats found schedule entries into a reply.
	AnswerSchedule(entries []ScheduleEntry) string

	AnswerCreativeIdea(ctx context.Context, text string) (string, error)
	AnswerTeamName(ctx context.Context, text string) (string, error)
	AnswerSmalltalk(ctx context.Context, text string) (string, error)
	AnswerKnowledge(ctx context.Context, text string) (string, error)

	// SecurityDeflection returns the joke reply sent to flagged input.
	SecurityDeflection(ctx context.Context) string
}
