// Package session identifies one end-to-end analyzer run (spec.md
// §9's recommendation to wrap process-wide tables in a Context): a
// UUID correlating --debug dumps, the --write backup suffix, and the
// session field of the debugserver's DebugDump message, replacing
// ad-hoc timestamp naming.
package session

import (
	"time"

	"github.com/google/uuid"
)

// Session is one analyzer run.
type Session struct {
	ID      uuid.UUID
	Started time.Time
}

// New starts a fresh session.
func New() *Session {
	return &Session{ID: uuid.New(), Started: time.Now()}
}

// String renders the session's short correlation id, the first
// 8 hex characters of the UUID — enough to disambiguate concurrent
// runs in a log stream without the visual noise of the full UUID.
func (s *Session) String() string {
	return s.ID.String()[:8]
}

// BackupSuffix names the --write backup file for this session:
// ".<shortid>.<timestamp>.bak".
func (s *Session) BackupSuffix() string {
	return "." + s.String() + "." + time.Now().Format("20060102T150405") + ".bak"
}
