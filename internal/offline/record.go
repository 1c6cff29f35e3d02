package offline

import (
	"encoding/json"
	"fmt"
	"time"
)

// Record is one pending mutation. Records are never edited in place.
type Record struct {
	ID        string
	Action    Action
	CreatedAt time.Time
}

type wireRecord struct {
	ID        string          `json:"id"`
	Type      Kind            `json:"type"`
	Data      json.RawMessage `json:"data"`
	Timestamp int64           `json:"timestamp"`
}

// MarshalJSON encodes the record as {id, type, data, timestamp} with the
// timestamp in Unix milliseconds.
func (r Record) MarshalJSON() ([]byte, error) {
	if r.Action == nil {
		return nil, fmt.Errorf("record %s: nil action", r.ID)
	}
	data, err := json.Marshal(r.Action)
	if err != nil {
		return nil, fmt.Errorf("record %s: encode data: %w", r.ID, err)
	}
	return json.Marshal(wireRecord{
		ID:        r.ID,
		Type:      r.Action.Kind(),
		Data:      data,
		Timestamp: r.CreatedAt.UnixMilli(),
	})
}

func (r *Record) UnmarshalJSON(b []byte) error {
	var w wireRecord
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	if w.ID == "" {
		return fmt.Errorf("%w: record without id", ErrInvalidAction)
	}
	action, err := decodeAction(w.Type, w.Data)
	if err != nil {
		return fmt.Errorf("record %s: %w", w.ID, err)
	}
	*r = Record{
		ID:        w.ID,
		Action:    action,
		CreatedAt: time.UnixMilli(w.Timestamp).UTC(),
	}
	return nil
}

func decodeAction(kind Kind, data json.RawMessage) (Action, error) {
	var (
		action Action
		err    error
	)
	switch kind {
	case KindStudySession:
		var s StudySession
		err = json.Unmarshal(data, &s)
		action = s
	case KindFlashcardProgress:
		var r FlashcardReview
		err = json.Unmarshal(data, &r)
		action = r
	case KindXPUpdate:
		var u XPUpdate
		err = json.Unmarshal(data, &u)
		action = u
	default:
		return nil, fmt.Errorf("%w %q", ErrUnknownKind, kind)
	}
	if err != nil {
		return nil, fmt.Errorf("decode %s data: %w", kind, err)
	}
	if err := action.Validate(); err != nil {
		return nil, err
	}
	return action, nil
}

func encodeQueue(records []Record) (string, error) {
	if records == nil {
		records = []Record{}
	}
	b, err := json.Marshal(records)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// decodeQueue parses a persisted queue. Entries that cannot be decoded are
// returned raw in rejected; duplicate ids keep the first occurrence.
func decodeQueue(raw string) (records []Record, rejected []json.RawMessage, err error) {
	var entries []json.RawMessage
	if err := json.Unmarshal([]byte(raw), &entries); err != nil {
		return nil, nil, err
	}
	seen := make(map[string]struct{}, len(entries))
	for _, entry := range entries {
		var rec Record
		if err := json.Unmarshal(entry, &rec); err != nil {
			rejected = append(rejected, entry)
			continue
		}
		if _, dup := seen[rec.ID]; dup {
			continue
		}
		seen[rec.ID] = struct{}{}
		records = append(records, rec)
	}
	return records, rejected, nil
}
