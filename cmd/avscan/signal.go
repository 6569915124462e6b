package main

import "context"

// onDone runs fn once if ctx ends before release is called. release waits
// for the watcher to exit.
func onDone(ctx context.Context, fn func()) (release func()) {
	done := make(chan struct{})
	exited := make(chan struct{})
	go func() {
		defer close(exited)
		select {
		case <-ctx.Done():
			fn()
		case <-done:
		}
	}()
	return func() {
		close(done)
		<-exited
	}
}
