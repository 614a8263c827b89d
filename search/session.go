package search

// Phase is where a search session is in its lifecycle.
type Phase string

const (
	PhaseIdle       Phase = "idle"
	PhaseConnecting Phase = "connecting"
	PhaseRunning    Phase = "running"
	PhaseComplete   Phase = "complete"
	PhaseError      Phase = "error"
)

// Terminal reports whether the phase accepts no further events.
func (p Phase) Terminal() bool {
	return p == PhaseComplete || p == PhaseError
}

// Tabs a query can be scoped to.
const (
	TabAll       = "all"
	TabAIMode    = "ai-mode"
	TabDocuments = "documents"
	TabContracts = "contracts"
)

var validTabs = map[string]struct{}{
	TabAll:       {},
	TabAIMode:    {},
	TabDocuments: {},
	TabContracts: {},
}

// Session is one submitted query and everything streamed back for it.
type Session struct {
	ID      string     // correlation id carried by every event for this query
	Query   string     // trimmed query text
	Tab     string     // category filter
	Phase   Phase      // lifecycle phase
	Results []Contract // in arrival order
	Status  string     // user-facing status line
	Total   int        // total reported by the complete event
}

func (s Session) clone() Session {
	out := s
	out.Results = append([]Contract(nil), s.Results...)
	return out
}
