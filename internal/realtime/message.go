package realtime

type Event string

const (
	EventSessionCreated   Event = "SessionCreated"
	EventSessionDeleted   Event = "SessionDeleted"
	EventQueryTextChanged Event = "QueryTextChanged"
	EventQueryStarted     Event = "QueryStarted"
	EventQueryExecuted    Event = "QueryExecuted"
	EventSchemaRefreshed  Event = "SchemaRefreshed"
	EventTablePreviewed   Event = "TablePreviewed"
	EventDatabaseReset    Event = "DatabaseReset"
	EventSessionChanged   Event = "SessionChanged"

	EventCatalogLoaded      Event = "CatalogLoaded"
	EventChallengeLoaded    Event = "ChallengeLoaded"
	EventChallengeReady     Event = "ChallengeReady"
	EventSubmissionGraded   Event = "SubmissionGraded"
	EventHintRevealed       Event = "HintRevealed"
	EventAttemptReset       Event = "AttemptReset"
	EventProgressionChanged Event = "ProgressionChanged"
	EventChallengeChanged   Event = "ChallengeChanged"
)

const (
	ChannelSession   = "session"
	ChannelChallenge = "challenge"
)

// Message carries one state snapshot to subscribers. Origin identifies the
// studio process that produced it when messages travel over a bus.
type Message struct {
	Channel string `json:"channel"`
	Event   Event  `json:"event"`
	Seq     uint64 `json:"seq"`
	Origin  string `json:"origin,omitempty"`
	Data    any    `json:"data,omitempty"`
}

// Publisher receives state-change messages. Implementations must not block.
type Publisher interface {
	Publish(msg Message)
}

// Discard drops every message.
type Discard struct{}

func (Discard) Publish(Message) {}
