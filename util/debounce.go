package util

import (
	"context"
	"time"
)

// DebounceEvent contains the last event fired to the input channel
type DebounceEvent struct {
	Counter int64
	Data    interface{}
}

// Debounce returns two channels for input and output. An event is emitted on
// clean once no input has been received for wait
func Debounce(haltCtx context.Context, wait time.Duration) (noisy chan interface{}, clean chan DebounceEvent) {
	noisy = make(chan interface{})
	clean = make(chan DebounceEvent, 1) // do not block our goroutine

	go func() {
		var lastTime time.Time
		var counter int64
		var data interface{}

		ticker := time.NewTicker(wait / 2)
		defer ticker.Stop()

		for {
			select {
			case data = <-noisy:
				lastTime = time.Now()
				counter++
			case <-ticker.C:
				if !lastTime.IsZero() && time.Since(lastTime) > wait {
					select {
					case clean <- DebounceEvent{
						Counter: counter,
						Data:    data,
					}:
					case <-haltCtx.Done():
						return
					}

					lastTime = time.Time{}
					counter = 0
				}
			case <-haltCtx.Done():
				return
			}
		}
	}()

	return
}
