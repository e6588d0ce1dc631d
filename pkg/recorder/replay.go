package recorder

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/vango-dev/vcore/pkg/protocol"
	"github.com/vango-dev/vcore/pkg/render"
)

// ErrBadRecording is returned for data that is not a recording.
var ErrBadRecording = errors.New("recorder: not a recording")

// Entry is one recorded frame.
type Entry struct {
	Direction Direction
	Elapsed   time.Duration
	Frame     *protocol.Frame
}

// Read parses a whole recording.
func Read(r io.Reader) ([]Entry, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Parse decodes recording bytes into entries.
func Parse(data []byte) ([]Entry, error) {
	if len(data) < len(magic)+1 || string(data[:len(magic)]) != magic {
		return nil, ErrBadRecording
	}
	if v := data[len(magic)]; v != version {
		return nil, fmt.Errorf("recorder: unsupported version %d", v)
	}
	d := protocol.NewDecoder(data[len(magic)+1:])
	var entries []Entry
	for !d.EOF() {
		dir, err := d.ReadByte()
		if err != nil {
			return entries, err
		}
		if Direction(dir) > Out {
			return entries, fmt.Errorf("entry %d: %w", len(entries), ErrBadRecording)
		}
		ms, err := d.ReadUvarint()
		if err != nil {
			return entries, fmt.Errorf("entry %d: %w", len(entries), err)
		}
		raw, err := d.ReadLenBytes()
		if err != nil {
			return entries, fmt.Errorf("entry %d: %w", len(entries), err)
		}
		f, err := protocol.DecodeFrame(raw)
		if err != nil {
			return entries, fmt.Errorf("entry %d: %w", len(entries), err)
		}
		entries = append(entries, Entry{
			Direction: Direction(dir),
			Elapsed:   time.Duration(ms) * time.Millisecond,
			Frame:     f,
		})
	}
	return entries, nil
}

// Replay applies every outgoing edits frame to doc in order and returns the
// number of batches applied.
func Replay(entries []Entry, doc *render.Document) (int, error) {
	n := 0
	for i, e := range entries {
		if e.Direction != Out || e.Frame.Type != protocol.FrameEdits {
			continue
		}
		batch, err := protocol.DecodeEdits(e.Frame.Payload)
		if err != nil {
			return n, fmt.Errorf("entry %d: %w", i, err)
		}
		if err := doc.Apply(batch.Edits); err != nil {
			return n, fmt.Errorf("entry %d (seq %d): %w", i, batch.Seq, err)
		}
		n++
	}
	return n, nil
}
