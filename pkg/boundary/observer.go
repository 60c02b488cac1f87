package boundary

import (
	"time"

	"github.com/Goden-Gun/resilience-lib/pkg/apperr"
)

// Observer receives boundary lifecycle events. It lets callers hook metrics
// without this package depending on a metrics backend.
type Observer interface {
	ObserveCatch(boundary string, d apperr.Details)
	ObserveRetry(boundary string, attempt int, delay time.Duration)
	ObserveRecovery(boundary string, attempts int)
	ObserveExhausted(boundary string, attempts int)
}

type nopObserver struct{}

func (nopObserver) ObserveCatch(string, apperr.Details)     {}
func (nopObserver) ObserveRetry(string, int, time.Duration) {}
func (nopObserver) ObserveRecovery(string, int)             {}
func (nopObserver) ObserveExhausted(string, int)            {}

func observerOrNop(o Observer) Observer {
	if o == nil {
		return nopObserver{}
	}
	return o
}
