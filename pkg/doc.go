// Package pkg holds what every layer of softmsc shares: the component
// tagged [log/slog] front end and the sentinel errors.
//
// Log calls are cheap when the level is disabled, so the control and
// bulk paths call them unconditionally:
//
//	pkg.LogDebug(pkg.ComponentControl, "address applied", "address", 5)
//
// On target the logger writes into a [github.com/ardnew/softmsc/pkg/sink.Sink]
// drained outside the USB interrupt:
//
//	pkg.SetLogger(pkg.NewLogger(logSink, nil))
//
// Host-side code matches the sentinels with [errors.Is]; a stalled bulk
// IN pipe, for example, wraps [ErrStall].
package pkg
