package holder

import "time"

// EventType distinguishes the two notification kinds.
type EventType string

const (
	EventResult EventType = "result"
	EventError  EventType = "error"
)

// Event is a single notification of a Holder, merged into one stream.
type Event[R any] struct {
	Type      EventType
	Holder    string
	Result    R
	Source    string
	Err       error
	Timestamp time.Time
}

// Watch subscribes fn to both notification kinds of h. The returned function
// removes both subscriptions.
func Watch[P, R any](h *Holder[P, R], fn func(Event[R])) (unsubscribe func()) {
	unsubResult := h.OnResultChanged(func(result R) {
		fn(Event[R]{
			Type:      EventResult,
			Holder:    h.Name(),
			Result:    result,
			Timestamp: time.Now().UTC(),
		})
	})
	unsubError := h.OnError(func(source string, err error) {
		fn(Event[R]{
			Type:      EventError,
			Holder:    h.Name(),
			Source:    source,
			Err:       err,
			Timestamp: time.Now().UTC(),
		})
	})
	return func() {
		unsubResult()
		unsubError()
	}
}
