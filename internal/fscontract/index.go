package fscontract

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sys/unix"

	"github.com/osiris-data/osiris/internal/model"
	streamyerrors "github.com/osiris-data/osiris/pkg/errors"
)

// RunIndexWriter appends run records to the global, per-pipeline, and
// per-manifest indexes under a cross-process advisory lock, so two
// concurrent runs appending to the same index file never interleave
// partial lines.
type RunIndexWriter struct {
	layout Layout
}

// NewRunIndexWriter constructs a RunIndexWriter for the given layout.
func NewRunIndexWriter(layout Layout) *RunIndexWriter {
	return &RunIndexWriter{layout: layout}
}

// Append validates and appends record to the global index, the record's
// per-pipeline index, and its per-manifest index. A manifest_hash
// containing a colon is rejected before any file is touched.
func (w *RunIndexWriter) Append(record model.RunRecord) error {
	if strings.Contains(record.ManifestHash, ":") {
		return streamyerrors.NewIndexError("InvalidHashFormat", w.layout.GlobalIndexPath(),
			fmt.Errorf("manifest_hash %q contains a colon", record.ManifestHash))
	}

	line, err := json.Marshal(record)
	if err != nil {
		return streamyerrors.NewIndexError("CorruptRecord", "", err)
	}
	line = append(line, '\n')

	for _, path := range []string{
		w.layout.GlobalIndexPath(),
		w.layout.PipelineIndexPath(record.PipelineSlug),
		w.layout.ManifestIndexPath(record.ManifestHash),
	} {
		if err := appendLocked(path, line); err != nil {
			return streamyerrors.NewIndexError("CorruptRecord", path, err)
		}
	}
	return nil
}

func appendLocked(path string, line []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX); err != nil {
		return err
	}
	defer unix.Flock(int(f.Fd()), unix.LOCK_UN)

	if _, err := f.Write(line); err != nil {
		return err
	}
	return f.Sync()
}

// RunIndexReader reads run records from the index, tolerating a partial
// trailing line left by a writer that crashed mid-append.
type RunIndexReader struct {
	layout Layout
}

// NewRunIndexReader constructs a RunIndexReader for the given layout.
func NewRunIndexReader(layout Layout) *RunIndexReader {
	return &RunIndexReader{layout: layout}
}

// ReadAll reads every well-formed record from a JSONL index file,
// ignoring any trailing partial line. An unparsable line followed by
// further records is reported as a CorruptRecord IndexError.
func ReadAll(path string) ([]model.RunRecord, error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, streamyerrors.NewIndexError("CorruptRecord", path, err)
	}
	defer f.Close()

	var records []model.RunRecord
	var corrupt error
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(strings.TrimSpace(string(line))) == 0 {
			continue
		}
		if corrupt != nil {
			return nil, streamyerrors.NewIndexError("CorruptRecord", path, corrupt)
		}
		var record model.RunRecord
		if err := json.Unmarshal(line, &record); err != nil {
			// Tolerate a partial/corrupt trailing line; anything mid-file is
			// a real corruption the caller should still see.
			corrupt = err
			continue
		}
		records = append(records, record)
	}
	return records, nil
}

// FindPrevious returns the most recent completed run with the given
// manifest hash, excluding currentRunID, looked up via the per-manifest
// index. manifestHash is normalized before the lookup so legacy
// "sha256:"-prefixed data still resolves, while the index itself is
// always written pure-hex.
func (r *RunIndexReader) FindPrevious(manifestHash, currentRunID string) (*model.RunRecord, error) {
	hash := NormalizeManifestHash(manifestHash)
	records, err := ReadAll(r.layout.ManifestIndexPath(hash))
	if err != nil {
		return nil, err
	}

	var best *model.RunRecord
	for i := range records {
		rec := records[i]
		if rec.RunID == currentRunID {
			continue
		}
		if rec.Status != model.RunCompleted {
			continue
		}
		if best == nil || rec.EndedAt.After(best.EndedAt) {
			best = &rec
		}
	}
	return best, nil
}
