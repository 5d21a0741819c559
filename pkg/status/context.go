package status

import "context"

// contextKey is an unexported type for context keys to avoid collisions
type contextKey string

const channelKey contextKey = "status-channel"

// WithChannel returns a context carrying the update channel. The channel
// should be buffered so senders never block.
func WithChannel(ctx context.Context, ch chan<- Update) context.Context {
	return context.WithValue(ctx, channelKey, ch)
}

// getChannel returns the update channel from ctx, or nil if none is set
func getChannel(ctx context.Context) chan<- Update {
	if ctx == nil {
		return nil
	}
	ch, ok := ctx.Value(channelKey).(chan<- Update)
	if !ok {
		return nil
	}
	return ch
}

// HasChannel reports whether ctx carries an update channel
func HasChannel(ctx context.Context) bool {
	return getChannel(ctx) != nil
}
