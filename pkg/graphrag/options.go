package graphrag

import (
	"dario.cat/mergo"
)

// Options select the databases an operation reads from and writes to. An
// empty database means the configured default database.
type Options struct {
	ReadDatabase  string
	WriteDatabase string
	// AllLevels generates community reports for every hierarchy level
	// instead of only level 0.
	AllLevels bool
}

type Option func(*Options)

func WithReadDatabase(db string) Option {
	return func(o *Options) {
		o.ReadDatabase = db
	}
}

func WithWriteDatabase(db string) Option {
	return func(o *Options) {
		o.WriteDatabase = db
	}
}

func WithAllLevels() Option {
	return func(o *Options) {
		o.AllLevels = true
	}
}

// resolveOptions applies opts and fills anything left unset from defaults.
func resolveOptions(defaults Options, opts ...Option) (Options, error) {
	var o Options
	for _, opt := range opts {
		opt(&o)
	}
	if err := mergo.Merge(&o, defaults); err != nil {
		return Options{}, err
	}
	return o, nil
}
