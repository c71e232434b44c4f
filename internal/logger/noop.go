package logger

// NoOp discards everything. Used by tests and as a nil-safe default.
type NoOp struct{}

func NewNoOp() Interface { return NoOp{} }

func (NoOp) Debug(string, ...any)             {}
func (NoOp) Info(string, ...any)              {}
func (NoOp) Warn(string, ...any)              {}
func (NoOp) Error(string, ...any)             {}
func (n NoOp) With(...any) Interface          { return n }
func (n NoOp) WithComponent(string) Interface { return n }
func (NoOp) Sync() error                      { return nil }
