package domain

// QueryState is a step in the per-query state machine:
// RECEIVED → INTENT_EXTRACTED → AGGREGATED → COMPOSED → [AUGMENTED] → RETURNED,
// with FAILED reachable from aggregation or an internal fault.
type QueryState string

const (
	StateReceived        QueryState = "RECEIVED"
	StateIntentExtracted QueryState = "INTENT_EXTRACTED"
	StateAggregated      QueryState = "AGGREGATED"
	StateComposed        QueryState = "COMPOSED"
	StateAugmented       QueryState = "AUGMENTED"
	StateReturned        QueryState = "RETURNED"
	StateFailed          QueryState = "FAILED"
)

var transitions = map[QueryState][]QueryState{
	StateReceived:        {StateIntentExtracted, StateFailed},
	StateIntentExtracted: {StateAggregated, StateFailed},
	StateAggregated:      {StateComposed, StateFailed},
	StateComposed:        {StateAugmented, StateReturned, StateFailed},
	StateAugmented:       {StateReturned, StateFailed},
	StateFailed:          {StateReturned},
}

// CanTransition reports whether moving from s to next is allowed.
func (s QueryState) CanTransition(next QueryState) bool {
	for _, t := range transitions[s] {
		if t == next {
			return true
		}
	}
	return false
}
