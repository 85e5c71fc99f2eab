// Package cache stores compiler output on disk, keyed by the source text and
// the settings that produced it.
package cache

import (
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/cespare/xxhash/v2"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/xplshn/nsc/pkg/diag"
	"github.com/xplshn/nsc/pkg/token"
)

// Increment when Entry changes shape.
const schemaVersion uint16 = 1

// Cache is a directory of msgpack entries. A nil *Cache is a valid cache that
// never hits. Safe for concurrent use.
type Cache struct {
	mu  sync.RWMutex
	dir string
}

// Diag is a diagnostic as stored on disk.
type Diag struct {
	Severity uint8
	Line     int
	Column   int
	EndLine  int
	EndCol   int
	Message  string
	Flag     string
}

// Entry is the cached result of one successful compilation.
type Entry struct {
	Schema      uint16
	Backend     string
	Output      []byte
	Diagnostics []Diag
}

// Open uses dir, creating it if needed. An empty dir selects the user cache
// directory.
func Open(dir string) (*Cache, error) {
	if dir == "" {
		base, err := os.UserCacheDir()
		if err != nil {
			return nil, err
		}
		dir = filepath.Join(base, "nsc")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &Cache{dir: dir}, nil
}

func (c *Cache) Dir() string { return c.dir }

// Key hashes the source together with a configuration fingerprint.
func Key(source []byte, fingerprint string) string {
	h := xxhash.New()
	_, _ = h.Write(source)
	_, _ = h.WriteString("\x00")
	_, _ = h.WriteString(fingerprint)
	return strconv.FormatUint(h.Sum64(), 16)
}

func (c *Cache) pathFor(key string) string {
	return filepath.Join(c.dir, "out", key+".mp")
}

// Put writes e under key, replacing any previous entry atomically.
func (c *Cache) Put(key string, e *Entry) (err error) {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	p := c.pathFor(key)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return err
	}
	f, err := os.CreateTemp(filepath.Dir(p), "tmp-*")
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = f.Close()
			_ = os.Remove(f.Name())
		}
	}()

	e.Schema = schemaVersion
	if err = msgpack.NewEncoder(f).Encode(e); err != nil {
		return err
	}
	if err = f.Close(); err != nil {
		return err
	}
	return os.Rename(f.Name(), p)
}

// Get loads the entry stored under key. A missing entry or one written by
// another schema version is a miss, not an error.
func (c *Cache) Get(key string) (*Entry, bool, error) {
	if c == nil {
		return nil, false, nil
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	f, err := os.Open(c.pathFor(key))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, err
	}
	defer f.Close()

	var e Entry
	if err := msgpack.NewDecoder(f).Decode(&e); err != nil {
		return nil, false, err
	}
	if e.Schema != schemaVersion {
		return nil, false, nil
	}
	return &e, true, nil
}

// Clear removes every stored entry.
func (c *Cache) Clear() error {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return os.RemoveAll(filepath.Join(c.dir, "out"))
}

// FromLog converts the diagnostics of a log for storage.
func FromLog(log *diag.Log) []Diag {
	out := make([]Diag, 0, log.Len())
	for _, d := range log.Items() {
		out = append(out, Diag{
			Severity: uint8(d.Severity),
			Line:     d.Span.Start.Line,
			Column:   d.Span.Start.Column,
			EndLine:  d.Span.End.Line,
			EndCol:   d.Span.End.Column,
			Message:  d.Message,
			Flag:     d.Flag,
		})
	}
	return out
}

// Replay rebuilds a log from stored diagnostics.
func (e *Entry) Replay() *diag.Log {
	log := diag.NewLog()
	for _, d := range e.Diagnostics {
		log.Add(diag.Diagnostic{
			Severity: diag.Severity(d.Severity),
			Span: token.Span{
				Start: token.Pos{Line: d.Line, Column: d.Column},
				End:   token.Pos{Line: d.EndLine, Column: d.EndCol},
			},
			Message: d.Message,
			Flag:    d.Flag,
		})
	}
	return log
}
