// Package transcript persists conversation item logs.
//
// A transcript is the ordered list of items of one Realtime session, saved
// under the session id. Items are stored one record per key in their wire
// encoding, wrapped in a msgpack [Record]. [Badger] keeps transcripts on disk
// and [Memory] keeps them in process for tests.
//
// Transcripts can be exported as JSON documents to a [Sink]: a local
// directory ([DirSink]) or an S3-compatible bucket ([S3Sink]).
package transcript

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	rt "github.com/haivivi/realtalk/pkg/openai-realtime"
)

// ErrNotFound is returned when a session has no saved transcript.
var ErrNotFound = errors.New("transcript: not found")

// Session describes a saved transcript.
type Session struct {
	ID        string    `json:"id" msgpack:"id"`
	Items     int       `json:"items" msgpack:"items"`
	CreatedAt time.Time `json:"created_at" msgpack:"created_at"`
	UpdatedAt time.Time `json:"updated_at" msgpack:"updated_at"`
}

// Store saves and loads transcripts. Implementations are safe for
// concurrent use.
type Store interface {
	// Save replaces the transcript of sessionID with items.
	Save(ctx context.Context, sessionID string, items []rt.Item) error

	// Load returns the items of sessionID in saved order. It returns
	// ErrNotFound if nothing was saved.
	Load(ctx context.Context, sessionID string) ([]rt.Item, error)

	// Sessions lists saved transcripts, most recently updated first.
	Sessions(ctx context.Context) ([]Session, error)

	// Delete removes the transcript of sessionID. It returns ErrNotFound
	// if nothing was saved.
	Delete(ctx context.Context, sessionID string) error

	// Close releases any resources held by the store.
	Close() error
}

// Session ids become key segments and file names.
func checkID(id string) error {
	if id == "" {
		return errors.New("transcript: empty session id")
	}
	if strings.ContainsAny(id, "/\\") || id == "." || id == ".." {
		return fmt.Errorf("transcript: invalid session id %q", id)
	}
	return nil
}

// Key layout:
//
//	m/{session}            -> msgpack Session
//	s/{session}/i/{seq}    -> msgpack Record, seq zero-padded
func metaKey(id string) []byte { return []byte("m/" + id) }

func itemPrefix(id string) []byte { return []byte("s/" + id + "/i/") }

func itemKey(id string, seq int) []byte {
	return fmt.Appendf(itemPrefix(id), "%010d", seq)
}

var metaPrefix = []byte("m/")
