// Package worker runs the background backup process.
//
// A Worker owns one run: it prepares the backup directory, opens the
// journal and ledger, logs the mode banner and drives exactly one
// scheduler (event watcher or periodic scanner) until its context is
// cancelled.
//
// Example usage:
//
//	settings, err := config.Load("")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	w, err := worker.New(settings, logger.Default())
//	if err != nil {
//	    log.Fatal(err)
//	}
//	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
//	defer stop()
//	err = w.Run(ctx)
package worker

import "time"

// Option configures a Worker.
type Option func(*options)

type options struct {
	console     string
	now         func() time.Time
	flushOnStop bool
	ready       func()
}

// WithConsole sets the console log destination (stdout, stderr, or file path).
func WithConsole(output string) Option {
	return func(o *options) { o.console = output }
}

// WithClock overrides the clock used for version folder names.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// WithFlushOnStop backs up pending event-mode changes on shutdown instead
// of abandoning them.
func WithFlushOnStop(flush bool) Option {
	return func(o *options) { o.flushOnStop = flush }
}

// WithReady registers a callback invoked once the scheduler is live.
func WithReady(fn func()) Option {
	return func(o *options) { o.ready = fn }
}
