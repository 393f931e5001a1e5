package util

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func collect(ctx context.Context, out <-chan DebounceEvent) <-chan []DebounceEvent {
	done := make(chan []DebounceEvent, 1)
	go func() {
		received := make([]DebounceEvent, 0, 2)
		for {
			select {
			case ev := <-out:
				received = append(received, ev)
			case <-ctx.Done():
				done <- received
				return
			}
		}
	}()
	return done
}

func TestDebounce(t *testing.T) { // -race passes
	ctx, cancel := context.WithTimeout(context.Background(), time.Millisecond*200)
	defer cancel()

	in, out := Debounce(ctx, time.Millisecond*25)
	rounds := int64(10)
	result := collect(ctx, out)

	for i := int64(1); i <= rounds; i++ {
		in <- i
		time.Sleep(time.Millisecond * 5)
	}

	received := <-result
	require.Len(t, received, 1)
	require.Equal(t, rounds, received[0].Data.(int64))
	require.Equal(t, rounds, received[0].Counter)
}

func TestMultipleDebounce(t *testing.T) { // -race passes
	ctx, cancel := context.WithTimeout(context.Background(), time.Millisecond*200)
	defer cancel()

	in, out := Debounce(ctx, time.Millisecond*10)
	result := collect(ctx, out)

	in <- "A"
	time.Sleep(time.Millisecond * 50)
	in <- "B"

	received := <-result
	require.Len(t, received, 2)
	require.Equal(t, "A", received[0].Data.(string))
	require.Equal(t, "B", received[1].Data.(string))
}
