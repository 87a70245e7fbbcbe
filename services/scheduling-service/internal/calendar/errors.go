package calendar

import (
	"fmt"
	"net/http"
)

// ProviderQueryError is returned when the calendar provider cannot be reached
// or answers with a non-2xx status. Status is zero for transport failures.
type ProviderQueryError struct {
	Op      string
	Status  int
	Message string
	Err     error
}

func (e *ProviderQueryError) Error() string {
	switch {
	case e.Status != 0 && e.Message != "":
		return fmt.Sprintf("calendar %s: %d %s: %s", e.Op, e.Status, http.StatusText(e.Status), e.Message)
	case e.Status != 0:
		return fmt.Sprintf("calendar %s: %d %s", e.Op, e.Status, http.StatusText(e.Status))
	case e.Err != nil:
		return fmt.Sprintf("calendar %s: %v", e.Op, e.Err)
	default:
		return fmt.Sprintf("calendar %s failed", e.Op)
	}
}

func (e *ProviderQueryError) Unwrap() error {
	return e.Err
}
