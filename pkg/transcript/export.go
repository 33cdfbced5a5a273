package transcript

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	rt "github.com/haivivi/realtalk/pkg/openai-realtime"
)

// Document is the exported form of a transcript.
type Document struct {
	Session Session     `json:"session"`
	Items   rt.ItemList `json:"items"`
}

// FileName returns the object name of an exported session.
func FileName(sessionID string) string {
	return sessionID + ".json"
}

// Export writes the transcript of sessionID to sink as FileName(sessionID).
func Export(ctx context.Context, store Store, sessionID string, sink Sink) error {
	items, err := store.Load(ctx, sessionID)
	if err != nil {
		return err
	}
	doc := Document{Session: Session{ID: sessionID, Items: len(items)}, Items: items}
	sessions, err := store.Sessions(ctx)
	if err != nil {
		return err
	}
	for _, s := range sessions {
		if s.ID == sessionID {
			doc.Session = s
			break
		}
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("transcript: marshal %s: %w", sessionID, err)
	}
	return sink.Put(ctx, FileName(sessionID), bytes.NewReader(data))
}

// Import reads FileName(sessionID) from sink and saves it into store.
func Import(ctx context.Context, store Store, sessionID string, sink Sink) (*Document, error) {
	rc, err := sink.Open(ctx, FileName(sessionID))
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	var doc Document
	if err := json.NewDecoder(rc).Decode(&doc); err != nil {
		return nil, fmt.Errorf("transcript: decode %s: %w", sessionID, err)
	}
	if err := store.Save(ctx, sessionID, doc.Items); err != nil {
		return nil, err
	}
	return &doc, nil
}

// OpenSink returns the sink for dest: "s3://bucket/prefix" for S3 with
// cfg, anything else is a local directory.
func OpenSink(dest string, cfg S3Config) (Sink, error) {
	rest, ok := strings.CutPrefix(dest, "s3://")
	if !ok {
		return NewDirSink(dest)
	}
	bucket, prefix, _ := strings.Cut(rest, "/")
	if bucket == "" {
		return nil, fmt.Errorf("transcript: missing bucket in %q", dest)
	}
	return NewS3Sink(NewS3Client(cfg), bucket, prefix), nil
}
