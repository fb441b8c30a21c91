// Package audit replays a workspace's recent history and reports contributors who changed files governed by a
// README without having read the README revision in force at the time.
//
// It exposes CommandBuilder for wiring the check Cobra command, Service for driving a check programmatically,
// AcknowledgementResolver for the per-README staleness decision, and ViolationReporter for deduplicated output.
package audit
