package pvpchess

import "fmt"

// Failure kinds. Every client-visible failure is a *CommandError whose Kind
// is one of these, so errors.Is(err, ErrRole) works on the returned error.
var (
    ErrAuth          = errf("authentication failed")
    ErrNotFound      = errf("game not found")
    ErrIllegalMove   = errf("illegal move")
    ErrTerminalState = errf("game already over")
    ErrRole          = errf("role not permitted")
    ErrStore         = errf("store failure")
    ErrBadRequest    = errf("bad request")
    ErrSeatTaken     = errf("seat already taken")
)

// CommandError is a rejected command. Text is what the client is told.
type CommandError struct {
    Kind  error
    Text  string
    Cause error
}

func (e *CommandError) Error() string {
    if e.Cause != nil { return fmt.Sprintf("%s: %s: %v", e.Kind, e.Text, e.Cause) }
    return fmt.Sprintf("%s: %s", e.Kind, e.Text)
}

func (e *CommandError) Unwrap() []error {
    if e.Cause != nil { return []error{e.Kind, e.Cause} }
    return []error{e.Kind}
}

type staticErr string
func (e staticErr) Error() string { return string(e) }
func errf(s string) error { return staticErr(s) }
