package scan

import "context"

// Outcome carries the result of an asynchronous scan.
type Outcome struct {
	Result *Result
	Err    error
}

// ScanAsync runs Scan on its own goroutine and delivers the outcome on the
// returned channel, which receives exactly one value. Cancelling ctx only
// stops the wait: a recognition already in progress runs to completion and
// the engine returns to Ready on its own.
func (o *Orchestrator) ScanAsync(ctx context.Context) <-chan Outcome {
	out := make(chan Outcome, 1)
	done := make(chan Outcome, 1)

	go func() {
		res, err := o.Scan(context.WithoutCancel(ctx))
		done <- Outcome{Result: res, Err: err}
	}()

	go func() {
		select {
		case oc := <-done:
			out <- oc
		case <-ctx.Done():
			out <- Outcome{Err: ctx.Err()}
		}
	}()
	return out
}
