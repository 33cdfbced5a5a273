package transcript

import (
	"fmt"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	rt "github.com/haivivi/realtalk/pkg/openai-realtime"
)

// Record is the stored form of one item. Item holds the wire JSON so that
// records survive changes to the Go types.
type Record struct {
	Seq     int       `msgpack:"seq"`
	Type    string    `msgpack:"type"`
	SavedAt time.Time `msgpack:"saved_at"`
	Item    []byte    `msgpack:"item"`
}

// NewRecord wraps item for storage.
func NewRecord(seq int, item rt.Item, now time.Time) (*Record, error) {
	data, err := rt.EncodeItem(item)
	if err != nil {
		return nil, fmt.Errorf("transcript: encode item %d: %w", seq, err)
	}
	return &Record{
		Seq:     seq,
		Type:    item.ItemType(),
		SavedAt: now.UTC(),
		Item:    data,
	}, nil
}

// Decode returns the stored item.
func (r *Record) Decode() (rt.Item, error) {
	item, err := rt.DecodeItem(r.Item)
	if err != nil {
		return nil, fmt.Errorf("transcript: decode item %d: %w", r.Seq, err)
	}
	return item, nil
}

func marshalRecord(r *Record) ([]byte, error) {
	return msgpack.Marshal(r)
}

func unmarshalRecord(data []byte) (*Record, error) {
	var r Record
	if err := msgpack.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("transcript: unmarshal record: %w", err)
	}
	return &r, nil
}

// encodeItems turns items into msgpack records.
func encodeItems(items []rt.Item, now time.Time) ([][]byte, error) {
	out := make([][]byte, 0, len(items))
	for i, item := range items {
		r, err := NewRecord(i, item, now)
		if err != nil {
			return nil, err
		}
		data, err := marshalRecord(r)
		if err != nil {
			return nil, fmt.Errorf("transcript: marshal record %d: %w", i, err)
		}
		out = append(out, data)
	}
	return out, nil
}

func decodeItem(data []byte) (rt.Item, error) {
	r, err := unmarshalRecord(data)
	if err != nil {
		return nil, err
	}
	return r.Decode()
}

// StripAudio returns copies of items with message audio removed.
// Transcripts of audio parts are kept.
func StripAudio(items []rt.Item) []rt.Item {
	out := make([]rt.Item, len(items))
	for i, item := range items {
		m, ok := item.(*rt.Message)
		if !ok {
			out[i] = item
			continue
		}
		m = rt.CloneItem(m).(*rt.Message)
		for j := range m.Content {
			m.Content[j].Audio = nil
		}
		out[i] = m
	}
	return out
}
