package pvpchan

import "github.com/park285/Cheese-chess-server/pkg/chessdto"

// Session is one live client connection as the registry sees it.
// Send must not block: implementations queue the message or fail with
// ErrSessionClosed.
type Session interface {
    ID() string
    Send(msg *chessdto.ServerMessage) error
}

// Errors
var (
    ErrSessionClosed = errf("session closed")
)

type staticErr string
func (e staticErr) Error() string { return string(e) }
func errf(s string) error { return staticErr(s) }
