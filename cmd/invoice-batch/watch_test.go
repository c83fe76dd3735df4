package main

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestConsumeWatchAfterErrorsClose(t *testing.T) {
	events := make(chan string, 2)
	errs := make(chan error, 1)
	errs <- errors.New("overflow")
	close(errs)
	events <- "/in/a.pdf"

	var seen []string
	done := make(chan struct{})
	go func() {
		defer close(done)
		consumeWatch(context.Background(), events, errs, slog.Default(), func(p string) {
			seen = append(seen, p)
			if len(seen) == 1 {
				events <- "/in/b.pdf"
				close(events)
			}
		})
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("consumeWatch did not return after events closed")
	}
	assert.Equal(t, []string{"/in/a.pdf", "/in/b.pdf"}, seen)
}

func TestConsumeWatchStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		consumeWatch(ctx, make(chan string), make(chan error), slog.Default(), func(string) {})
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("consumeWatch ignored cancellation")
	}
}
