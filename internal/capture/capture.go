// Package capture records telemetry snapshots to a CBOR stream for offline
// inspection and replay.
package capture

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/fxamacker/cbor/v2"

	"github.com/tetragramaton/ruiden-go/internal/ruiden"
)

// Record is one captured snapshot.
type Record struct {
	At   time.Time          `cbor:"1,keyasint"`
	Info ruiden.Information `cbor:"2,keyasint"`
}

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error

	encMode, err = cbor.EncOptions{
		Sort:        cbor.SortCanonical,
		IndefLength: cbor.IndefLengthForbidden,
		Time:        cbor.TimeRFC3339Nano,
	}.EncMode()
	if err != nil {
		panic(fmt.Sprintf("capture: cbor encoder mode: %v", err))
	}

	decMode, err = cbor.DecOptions{
		DupMapKey: cbor.DupMapKeyQuiet,
	}.DecMode()
	if err != nil {
		panic(fmt.Sprintf("capture: cbor decoder mode: %v", err))
	}
}

// Recorder appends records to a file. It is safe for concurrent use.
type Recorder struct {
	mu      sync.Mutex
	file    *os.File
	encoder *cbor.Encoder
	closed  bool
}

// Open creates path if needed and appends to it.
func Open(path string) (*Recorder, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open capture: %w", err)
	}
	return &Recorder{file: f, encoder: encMode.NewEncoder(f)}, nil
}

// Record appends one snapshot. Records after Close are dropped.
func (r *Recorder) Record(at time.Time, info ruiden.Information) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil
	}
	return r.encoder.Encode(Record{At: at, Info: info})
}

// Close closes the file. It is safe to call Close multiple times.
func (r *Recorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil
	}
	r.closed = true
	return r.file.Close()
}

// ReadAll decodes every record in the stream.
func ReadAll(rd io.Reader) ([]Record, error) {
	dec := decMode.NewDecoder(rd)
	var out []Record
	for {
		var rec Record
		err := dec.Decode(&rec)
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return out, fmt.Errorf("decode record %d: %w", len(out), err)
		}
		out = append(out, rec)
	}
}

// ReadFile is ReadAll over the file at path.
func ReadFile(path string) ([]Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadAll(f)
}
