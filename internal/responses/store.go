package responses

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cockroachdb/pebble"
	pebblestore "github.com/rzbill/pulse/internal/storage/pebble"
)

// Response is one persisted survey-response document.
type Response struct {
	ID            string                 `json:"id"`
	Tenant        string                 `json:"tenant"`
	Survey        string                 `json:"surveyId"`
	Answers       map[string]interface{} `json:"answers"`
	Meta          map[string]string      `json:"meta,omitempty"`
	SubmittedAtMs int64                  `json:"submittedAtMs"`
}

// ErrCorruptRecord reports a stored document that failed CRC or decode.
var ErrCorruptRecord = errors.New("responses: corrupt record")

// Store persists response documents in Pebble, ordered per (tenant,survey)
// by an append sequence.
type Store struct {
	db *pebblestore.DB

	mu      sync.Mutex
	lastSeq map[string]uint64
}

// NewStore returns a Store over the given database.
func NewStore(db *pebblestore.DB) *Store {
	return &Store{db: db, lastSeq: map[string]uint64{}}
}

func bucketKey(tenant, survey string) string { return tenant + "|" + survey }

// nextSeq assigns the next sequence for a (tenant,survey) pair, loading the
// persisted high-water mark on first use. Caller must hold s.mu.
func (s *Store) nextSeq(tenant, survey string) (uint64, error) {
	bk := bucketKey(tenant, survey)
	seq, ok := s.lastSeq[bk]
	if !ok {
		if b, err := s.db.Get(keyMeta(tenant, survey)); err == nil && len(b) >= 8 {
			seq = binary.BigEndian.Uint64(b[:8])
		} else if err != nil && !errors.Is(err, pebble.ErrNotFound) {
			return 0, err
		}
	}
	seq++
	s.lastSeq[bk] = seq
	return seq, nil
}

// Insert assigns the document's ID and submission time and commits it
// atomically with the sequence metadata. The document is durable when Insert
// returns nil; notification happens strictly afterwards.
func (s *Store) Insert(ctx context.Context, resp *Response) error {
	if resp == nil {
		return errors.New("responses: nil document")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	seq, err := s.nextSeq(resp.Tenant, resp.Survey)
	if err != nil {
		return err
	}
	resp.ID = fmt.Sprintf("%016x", seq)
	if resp.SubmittedAtMs == 0 {
		resp.SubmittedAtMs = time.Now().UnixMilli()
	}

	payload, err := json.Marshal(resp)
	if err != nil {
		return err
	}
	var header [8]byte
	binary.BigEndian.PutUint64(header[:], uint64(resp.SubmittedAtMs))

	b := s.db.NewBatch()
	defer b.Close()
	if err := b.Set(keyEntry(resp.Tenant, resp.Survey, seq), encodeRecord(header[:], payload), nil); err != nil {
		return err
	}
	var meta [8]byte
	binary.BigEndian.PutUint64(meta[:], seq)
	if err := b.Set(keyMeta(resp.Tenant, resp.Survey), meta[:], nil); err != nil {
		return err
	}
	if err := s.db.CommitBatch(ctx, b); err != nil {
		// Roll the in-memory sequence back so a retry does not leave a gap.
		s.lastSeq[bucketKey(resp.Tenant, resp.Survey)] = seq - 1
		return err
	}
	return nil
}

// ListOptions controls List.
type ListOptions struct {
	// Limit caps the number of returned documents. Zero means 100.
	Limit int
	// Reverse returns newest documents first.
	Reverse bool
}

// List returns the persisted documents of a (tenant,survey) pair in sequence
// order.
func (s *Store) List(tenant, survey string, opts ListOptions) ([]Response, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = 100
	}
	prefix := keyEntryPrefix(tenant, survey)
	it, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: prefix,
		UpperBound: keyUpperBound(prefix),
	})
	if err != nil {
		return nil, err
	}
	defer it.Close()

	out := make([]Response, 0, limit)
	advance := func() bool {
		if opts.Reverse {
			return it.Prev()
		}
		return it.Next()
	}
	var ok bool
	if opts.Reverse {
		ok = it.Last()
	} else {
		ok = it.First()
	}
	for ; ok && len(out) < limit; ok = advance() {
		dec, valid := decodeRecord(it.Value())
		if !valid {
			return nil, ErrCorruptRecord
		}
		var resp Response
		if err := json.Unmarshal(dec.Payload, &resp); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCorruptRecord, err)
		}
		out = append(out, resp)
	}
	return out, it.Error()
}
