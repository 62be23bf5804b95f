package metrics

import "testing"

func TestObserveBeforeInitIsSafe(t *testing.T) {
	// Collectors are nil until Init; every helper must tolerate that.
	ObserveRun("success")
	ObserveCandidates("jsonld", 3)
	ObserveWritten(1)
	ObserveSkipped(1)
	ObserveUpsertFailure()
	ObserveStrategyFailure("feed")
	ObserveRenderSeconds(1.5)
	ObserveRateLimitRejection()
}

func TestInitIdempotent(t *testing.T) {
	Init()
	Init() // second call must not re-register collectors

	ObserveRun("success")
	ObserveCandidates("jsonld", 3)
	ObserveRenderSeconds(0.7)
}
