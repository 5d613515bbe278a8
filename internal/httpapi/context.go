package httpapi

import "context"

// serverBaseCtx is the process-level context handlers join with each request
// context, so daemon shutdown cancels in-flight generates and probes.
var serverBaseCtx = context.Background()

// SetBaseContext installs the process-level base context. Nil resets to
// Background.
func SetBaseContext(ctx context.Context) {
	if ctx == nil {
		serverBaseCtx = context.Background()
		return
	}
	serverBaseCtx = ctx
}

// joinContexts returns a context canceled when either input is done. The
// cancel func must be called when the handler returns to release the
// goroutine.
func joinContexts(a, b context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		select {
		case <-a.Done():
			cancel()
		case <-b.Done():
			cancel()
		}
	}()
	return ctx, cancel
}
