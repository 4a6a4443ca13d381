package storegw

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// AppendAccessLog records a retrieval. Writes are best-effort: a failure
// never fails the triggering recall, so this method swallows its own write
// error rather than surfacing one. Access counts and the log can drift
// under crash.
func (g *Gateway) AppendAccessLog(ctx context.Context, entry AccessLogEntry) {
	if entry.AccessID == "" {
		entry.AccessID = uuid.NewString()
	}
	entry.AccessedAt = time.Now()

	_ = g.withWrite(ctx, func() error {
		g.auxMu.Lock()
		defer g.auxMu.Unlock()
		g.accessLog = append(g.accessLog, entry)
		return nil
	})
}

// AccessLogForUser returns every access-log row for userID, oldest first.
func (g *Gateway) AccessLogForUser(ctx context.Context, userID string) []AccessLogEntry {
	g.auxMu.Lock()
	defer g.auxMu.Unlock()
	var out []AccessLogEntry
	for _, e := range g.accessLog {
		if e.UserID == userID {
			out = append(out, e)
		}
	}
	return out
}
