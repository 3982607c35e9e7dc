package chatports

// Metrics receives engine counters. Outcome is one of "ok", "transport",
// "format", "semantic" or "exhausted".
type Metrics interface {
	ObserveAttempt(status int)
	ObserveCorrection()
	ObserveOutcome(outcome string)
}
