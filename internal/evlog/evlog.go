// Package evlog holds the shared slog vocabulary for event-flow packages so
// bridge, fsentity, and instrument emit uniformly keyed attributes.
package evlog

import "log/slog"

func Event(name string) slog.Attr { return slog.String("event", name) }

func Channel(name string) slog.Attr { return slog.String("channel", name) }

func Source(label string) slog.Attr { return slog.String("source", label) }

func Err(err error) slog.Attr { return slog.String("err", err.Error()) }

// Discard returns a logger that drops everything, for tests and callers
// that want a component silent.
func Discard() *slog.Logger { return slog.New(slog.DiscardHandler) }
