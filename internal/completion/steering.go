package completion

import "sync"

// SteeringMessage is injected mid-turn: delivered once outstanding tool
// dispatch for the current batch has been requested, optionally
// skipping any tools the turn has not yet resolved.
type SteeringMessage struct {
	Content            string
	Role               string
	SkipRemainingTools bool
}

// FollowUpMessage is queued to run as a new turn once the current one
// reaches PhaseComplete.
type FollowUpMessage struct {
	Content string
	Role    string
}

// SteeringQueue lets a session inject steering or follow-up messages
// into a running or about-to-start turn. Safe for concurrent use; a
// Runner checks it once per tool-dispatch boundary and once at turn
// end.
type SteeringQueue struct {
	mu       sync.Mutex
	steering []SteeringMessage
	followUp []FollowUpMessage
}

// NewSteeringQueue returns an empty queue.
func NewSteeringQueue() *SteeringQueue {
	return &SteeringQueue{}
}

// Steer queues msg to interrupt the current turn at its next
// tool-dispatch boundary.
func (q *SteeringQueue) Steer(msg SteeringMessage) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.steering = append(q.steering, msg)
}

// FollowUp queues msg to run as the session's next turn.
func (q *SteeringQueue) FollowUp(msg FollowUpMessage) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.followUp = append(q.followUp, msg)
}

// TakeSteering drains and returns every queued steering message.
func (q *SteeringQueue) TakeSteering() []SteeringMessage {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.steering) == 0 {
		return nil
	}
	out := q.steering
	q.steering = nil
	return out
}

// TakeFollowUps drains and returns every queued follow-up message.
func (q *SteeringQueue) TakeFollowUps() []FollowUpMessage {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.followUp) == 0 {
		return nil
	}
	out := q.followUp
	q.followUp = nil
	return out
}

// HasPending reports whether any steering or follow-up message is
// queued right now.
func (q *SteeringQueue) HasPending() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.steering) > 0 || len(q.followUp) > 0
}

// HasFollowUps reports whether a follow-up message is queued, without
// draining it — the caller still needs TakeFollowUps to retrieve the
// content for the next turn.
func (q *SteeringQueue) HasFollowUps() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.followUp) > 0
}
