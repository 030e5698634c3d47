// Package queue defines message payloads exchanged over the message broker
// and the background consumer that converges counters.
package queue

// CounterQueueName is the durable queue carrying counter-refresh events.
const CounterQueueName = "counter.refresh"

// Entity and field names used in CounterEvent.
const (
	EntityUser    = "user"
	EntityPost    = "post"
	EntityComment = "comment"

	FieldViews      = "views"
	FieldStars      = "stars"
	FieldFollowers  = "followers"
	FieldFollowings = "followings"
)

// CounterEvent asks the consumer to refresh one counter on one record. For
// user counters UserID identifies the record; for posts and comments ID does.
// Delta is the signed change for star/follow counters and is ignored for
// views, which always increment by one.
type CounterEvent struct {
	Entity string `json:"entity"`
	ID     int64  `json:"id,omitempty"`
	UserID string `json:"user_id,omitempty"`
	Field  string `json:"field"`
	Delta  int    `json:"delta,omitempty"`
}
