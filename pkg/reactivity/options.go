package reactivity

import "log/slog"

// Options configures graph construction.
type Options struct {
	// AcceptPartialDAG attaches structural problems to the returned graph
	// instead of failing the call.
	AcceptPartialDAG bool
	// IgnoreNames are never reported as uses, in addition to the Python
	// builtins (names the kernel injects, for example).
	IgnoreNames []string
	// Logger is the structured logger (optional, uses discard if nil).
	Logger *slog.Logger
}

func (o Options) logger() *slog.Logger {
	if o.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return o.Logger
}

func (o Options) ignored() map[string]struct{} {
	if len(o.IgnoreNames) == 0 {
		return nil
	}
	set := make(map[string]struct{}, len(o.IgnoreNames))
	for _, name := range o.IgnoreNames {
		set[name] = struct{}{}
	}
	return set
}
