package snapshot

import (
	"errors"
	"fmt"

	"github.com/chrisglass/windmobile/internal/holder"
)

// Persist saves every new result of h under name. Save failures are reported
// to logFn (optional). The returned function stops persisting.
func Persist[P, R any](s *Store, name string, h *holder.Holder[P, R], logFn func(level, msg string)) (stop func()) {
	return h.OnResultChanged(func(result R) {
		if err := SaveJSON(s, name, result); err != nil && logFn != nil {
			logFn("warning", fmt.Sprintf("snapshot: %v", err))
		}
	})
}

// Restore seeds h with the snapshot stored under name through LoadLastResult.
// It reports whether h now holds a result: a missing snapshot or one that
// decodes to an absent value (e.g. a stored null) yields false. A missing
// snapshot is not an error.
func Restore[P, R any](s *Store, name string, h *holder.Holder[P, R]) (bool, error) {
	v, _, err := LoadJSON[R](s, name)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	h.LoadLastResult(v)
	_, ok := h.LastResult()
	return ok, nil
}
