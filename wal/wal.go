// Package wal implements the crash-recovery write-ahead log: a
// per-height append-only file that preserves the invariant that a
// correct node never signs two conflicting messages for the same
// (height, round, kind) across a restart.
//
// There is no WAL precedent in the reference stack this module is
// grounded on -- raw append-only file I/O is plain standard library
// (os.File, bufio), consistent with how the rest of the ambient stack
// only reaches for a third-party library where one does real work
// (structured logging, config parsing, CLI); framing and fsync
// discipline are simple enough that a library would only add
// indirection.
package wal

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/circlefin/malachite-sub001/codec"
	"github.com/circlefin/malachite-sub001/consensus"
	"github.com/circlefin/malachite-sub001/host"
	"github.com/circlefin/malachite-sub001/internal/round"
)

// entry kind tags, written as the first byte of every WAL record.
const (
	kindVote byte = iota + 1
	kindProposal
	kindTimeout
	kindProposedValue
)

// File is the on-disk, per-height WAL described by §4.7: one file,
// truncated at the start of every new height, fsynced before Append
// returns.
type File struct {
	dir   string
	codec codec.Codec

	mu     sync.Mutex
	height consensus.Height
	f      *os.File
	w      *bufio.Writer
}

var _ host.WAL = (*File)(nil)

// Open prepares a WAL rooted at dataDir (the file itself lives at
// <dataDir>/wal/consensus.wal). Call StartHeight before the first
// Append.
func Open(dataDir string, c codec.Codec) (*File, error) {
	dir := filepath.Join(dataDir, "wal")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("wal: mkdir %s: %w", dir, err)
	}
	return &File{dir: dir, codec: c}, nil
}

func (w *File) path() string { return filepath.Join(w.dir, "consensus.wal") }

// StartHeight truncates the WAL file to begin logging height h afresh,
// per §4.7's "overwritten from the start on each new height".
func (w *File) StartHeight(h consensus.Height) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.f != nil {
		if err := w.closeLocked(); err != nil {
			return err
		}
	}
	f, err := os.OpenFile(w.path(), os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("wal: open %s: %w", w.path(), err)
	}
	w.f = f
	w.w = bufio.NewWriter(f)
	w.height = h
	return nil
}

// ReadEntries reads the WAL file under dataDir and returns the entries
// it holds in file order, for feeding back through the driver per
// §4.7's replay step. An empty or missing file is not an error: it
// means there is nothing to replay.
func ReadEntries(dataDir string, c codec.Codec) ([]host.WALEntry, error) {
	p := filepath.Join(dataDir, "wal", "consensus.wal")
	f, err := os.Open(p)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("wal: open %s for replay: %w", p, err)
	}
	defer f.Close()

	var entries []host.WALEntry
	r := bufio.NewReader(f)
	for {
		e, err := readEntry(r, c)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return entries, fmt.Errorf("wal: replay %s: %w", p, err)
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// Close flushes and closes the underlying file.
func (w *File) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.closeLocked()
}

func (w *File) closeLocked() error {
	if w.f == nil {
		return nil
	}
	if err := w.w.Flush(); err != nil {
		w.f.Close()
		return fmt.Errorf("wal: flush: %w", err)
	}
	err := w.f.Close()
	w.f = nil
	w.w = nil
	if err != nil {
		return fmt.Errorf("wal: close: %w", err)
	}
	return nil
}

// Append encodes entry through the pluggable wire codec, writes it to
// the WAL, and fsyncs before returning -- the durability point the
// core relies on never being skipped (§4.7: "WalAppend must be durable
// before the core resumes").
func (w *File) Append(entry host.WALEntry) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.f == nil {
		return errors.New("wal: Append called before StartHeight")
	}

	kind, payload, err := w.encode(entry)
	if err != nil {
		return fmt.Errorf("wal: encode entry: %w", err)
	}
	if err := writeRecord(w.w, kind, payload); err != nil {
		return fmt.Errorf("wal: write entry: %w", err)
	}
	if err := w.w.Flush(); err != nil {
		return fmt.Errorf("wal: flush: %w", err)
	}
	if err := w.f.Sync(); err != nil {
		return fmt.Errorf("wal: fsync: %w", err)
	}
	return nil
}

func (w *File) encode(entry host.WALEntry) (byte, []byte, error) {
	switch entry.Kind {
	case host.WALConsensusVote:
		b, err := w.codec.EncodeVote(*entry.Vote)
		return kindVote, b, err
	case host.WALConsensusProposal:
		b, err := w.codec.EncodeProposal(*entry.Proposal)
		return kindProposal, b, err
	case host.WALTimeout:
		return kindTimeout, encodeTimeout(*entry.Timeout), nil
	case host.WALProposedValue:
		bv, ok := entry.Proposed.Value.(consensus.BytesValue)
		if entry.Proposed.Value != nil && !ok {
			return 0, nil, fmt.Errorf("proposed value type %T is not a BytesValue", entry.Proposed.Value)
		}
		b, err := w.codec.EncodeProposedValue(codec.ProposedValue{
			Height: entry.Proposed.Height, Round: entry.Proposed.Round, Value: bv, Valid: entry.Proposed.Valid,
		})
		return kindProposedValue, b, err
	default:
		return 0, nil, fmt.Errorf("unknown WAL entry kind %v", entry.Kind)
	}
}

func readEntry(r *bufio.Reader, c codec.Codec) (host.WALEntry, error) {
	kind, payload, err := readRecord(r)
	if err != nil {
		return host.WALEntry{}, err
	}
	switch kind {
	case kindVote:
		sv, err := c.DecodeVote(payload)
		if err != nil {
			return host.WALEntry{}, err
		}
		return host.WALEntry{Kind: host.WALConsensusVote, Vote: &sv}, nil
	case kindProposal:
		sp, err := c.DecodeProposal(payload)
		if err != nil {
			return host.WALEntry{}, err
		}
		return host.WALEntry{Kind: host.WALConsensusProposal, Proposal: &sp}, nil
	case kindTimeout:
		t, err := decodeTimeout(payload)
		if err != nil {
			return host.WALEntry{}, err
		}
		return host.WALEntry{Kind: host.WALTimeout, Timeout: &t}, nil
	case kindProposedValue:
		pv, err := c.DecodeProposedValue(payload)
		if err != nil {
			return host.WALEntry{}, err
		}
		var v consensus.Value
		if pv.Value != nil {
			v = consensus.BytesValue(pv.Value)
		}
		return host.WALEntry{Kind: host.WALProposedValue, Proposed: &host.ProposedValueEntry{
			Height: pv.Height, Round: pv.Round, Value: v, Valid: pv.Valid,
		}}, nil
	default:
		return host.WALEntry{}, fmt.Errorf("wal: unknown entry kind byte %d", kind)
	}
}

// writeRecord and readRecord frame one entry as
// [1-byte kind][4-byte big-endian length][payload]. There is no
// network wire message for a WAL entry itself (§6's codec trait covers
// only the messages listed there), so framing is fixed rather than
// pluggable; the payload bytes inside each frame come from the
// pluggable codec.
func writeRecord(w io.Writer, kind byte, payload []byte) error {
	var hdr [5]byte
	hdr[0] = kind
	binary.BigEndian.PutUint32(hdr[1:], uint32(len(payload)))
	if _, err := w.Write(hdr[:]); err != nil {
		return err
	}
	_, err := w.Write(payload)
	return err
}

func readRecord(r io.Reader) (byte, []byte, error) {
	var hdr [5]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return 0, nil, err
	}
	n := binary.BigEndian.Uint32(hdr[1:])
	payload := make([]byte, n)
	if _, err := io.ReadFull(r, payload); err != nil {
		return 0, nil, err
	}
	return hdr[0], payload, nil
}

func encodeTimeout(t host.TimeoutEntry) []byte {
	var b [9]byte
	b[0] = byte(t.Kind)
	binary.BigEndian.PutUint64(b[1:], uint64(t.Round))
	return b[:]
}

func decodeTimeout(b []byte) (host.TimeoutEntry, error) {
	if len(b) != 9 {
		return host.TimeoutEntry{}, fmt.Errorf("wal: malformed timeout entry: %d bytes", len(b))
	}
	return host.TimeoutEntry{
		Kind:  round.TimeoutKind(b[0]),
		Round: consensus.Round(binary.BigEndian.Uint64(b[1:])),
	}, nil
}
