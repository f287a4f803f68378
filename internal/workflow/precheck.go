package workflow

import "context"

// Precheck is a tagged variant: exactly one of Command or Func is set.
// Command entries run through the shell; Func entries run in-process. The
// tag removes any need for runtime type inspection in the executor.
type Precheck struct {
	Name    string `yaml:"name"`
	Command string `yaml:"command,omitempty"`

	Func func(ctx context.Context) error `yaml:"-"`
}

// IsCommand reports whether the precheck runs through the shell.
func (p Precheck) IsCommand() bool {
	return p.Command != ""
}
