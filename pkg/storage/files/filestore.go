package files

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
)

// knownExtensions lists the extensions the resolver probes, in order.
var knownExtensions = []string{"json", "yaml", "yml", "xml", "md"}

// entityStore persists one entity type as one file per record inside
// its own subdirectory. Records are resolved by id in two phases:
// first the plain "{id}.{ext}" names, then any "{id}.<label>.{ext}"
// name a user created by hand. Renaming a file that way, or converting
// it to another supported format, must not break lookups.
type entityStore[T any] struct {
	dir    string
	format string

	mu     sync.RWMutex
	nextID uint
}

type storeMeta struct {
	NextID uint `json:"next_id"`
}

func newEntityStore[T any](root, name, format string) (*entityStore[T], error) {
	dir := filepath.Join(root, name)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create entity directory: %w", err)
	}
	e := &entityStore[T]{dir: dir, format: format}
	if err := e.loadMeta(); err != nil {
		return nil, fmt.Errorf("load %s metadata: %w", name, err)
	}
	return e, nil
}

func (e *entityStore[T]) metaPath() string {
	return filepath.Join(e.dir, "_meta.json")
}

// loadMeta restores the id counter. A missing or corrupt meta file is
// rebuilt from the record files present, so an id already on disk is
// never reissued.
func (e *entityStore[T]) loadMeta() error {
	var m storeMeta
	raw, err := os.ReadFile(e.metaPath())
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return err
	default:
		if jerr := json.Unmarshal(raw, &m); jerr != nil {
			m.NextID = 0
		}
	}

	max, err := e.scanMaxID()
	if err != nil {
		return err
	}
	e.nextID = m.NextID
	if max+1 > e.nextID {
		e.nextID = max + 1
	}
	if e.nextID == 0 {
		e.nextID = 1
	}
	return e.saveMetaLocked()
}

func (e *entityStore[T]) saveMetaLocked() error {
	raw, err := json.MarshalIndent(storeMeta{NextID: e.nextID}, "", "  ")
	if err != nil {
		return err
	}
	return writeFileAtomic(e.metaPath(), raw)
}

// scanMaxID returns the highest record id present in the directory.
func (e *entityStore[T]) scanMaxID() (uint, error) {
	ids, err := e.listIDs()
	if err != nil {
		return 0, err
	}
	var max uint
	for _, id := range ids {
		if id > max {
			max = id
		}
	}
	return max, nil
}

// allocID hands out the next record id and persists the counter
// immediately. A record that is never written afterwards leaves a gap,
// which is tolerated.
func (e *entityStore[T]) allocID() (uint, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	id := e.nextID
	e.nextID++
	if err := e.saveMetaLocked(); err != nil {
		return 0, err
	}
	return id, nil
}

// find resolves the file holding a record id: exact names first, then
// the labelled form. The trailing dot in the prefix keeps id 1 from
// matching files of id 10.
func (e *entityStore[T]) find(id uint) (string, bool) {
	for _, ext := range knownExtensions {
		path := filepath.Join(e.dir, fmt.Sprintf("%d.%s", id, ext))
		if _, err := os.Stat(path); err == nil {
			return path, true
		}
	}
	prefix := strconv.FormatUint(uint64(id), 10) + "."
	entries, err := os.ReadDir(e.dir)
	if err != nil {
		return "", false
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if strings.HasPrefix(name, prefix) && hasKnownExtension(name) {
			return filepath.Join(e.dir, name), true
		}
	}
	return "", false
}

func hasKnownExtension(name string) bool {
	ext := strings.TrimPrefix(filepath.Ext(name), ".")
	for _, known := range knownExtensions {
		if ext == known {
			return true
		}
	}
	return false
}

func formatOf(path string) string {
	ext := strings.TrimPrefix(filepath.Ext(path), ".")
	if ext == "yml" {
		return "yaml"
	}
	return ext
}

func (e *entityStore[T]) save(id uint, v *T) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.saveLocked(id, v)
}

// saveLocked writes the record, keeping the name and format of an
// existing file so user renames and format conversions survive
// updates.
func (e *entityStore[T]) saveLocked(id uint, v *T) error {
	path := filepath.Join(e.dir, fmt.Sprintf("%d.%s", id, e.format))
	if existing, ok := e.find(id); ok {
		path = existing
	}
	data, err := encode(v, formatOf(path))
	if err != nil {
		return fmt.Errorf("encode record %d: %w", id, err)
	}
	return writeFileAtomic(path, data)
}

func (e *entityStore[T]) load(id uint) (*T, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.loadLocked(id)
}

func (e *entityStore[T]) loadLocked(id uint) (*T, error) {
	path, ok := e.find(id)
	if !ok {
		return nil, fs.ErrNotExist
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var v T
	if err := decode(raw, formatOf(path), &v); err != nil {
		return nil, fmt.Errorf("decode %s: %w", filepath.Base(path), err)
	}
	return &v, nil
}

// mutate applies fn to the stored record and writes the result back
// under the write lock, so read-modify-write cycles are linearized
// within this process.
func (e *entityStore[T]) mutate(id uint, fn func(*T) error) (*T, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	v, err := e.loadLocked(id)
	if err != nil {
		return nil, err
	}
	if err := fn(v); err != nil {
		return nil, err
	}
	if err := e.saveLocked(id, v); err != nil {
		return nil, err
	}
	return v, nil
}

// listIDs collects the record ids present, each at most once even when
// a record has both a plain and a labelled file.
func (e *entityStore[T]) listIDs() ([]uint, error) {
	entries, err := os.ReadDir(e.dir)
	if err != nil {
		return nil, err
	}
	seen := make(map[uint]bool)
	var ids []uint
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if strings.HasPrefix(name, "_") || strings.HasPrefix(name, ".") {
			continue
		}
		if !hasKnownExtension(name) {
			continue
		}
		idPart, _, ok := strings.Cut(name, ".")
		if !ok {
			continue
		}
		n, err := strconv.ParseUint(idPart, 10, 64)
		if err != nil {
			continue
		}
		if id := uint(n); !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

// loadAll returns every record ordered by id.
func (e *entityStore[T]) loadAll() ([]T, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	ids, err := e.listIDs()
	if err != nil {
		return nil, err
	}
	out := make([]T, 0, len(ids))
	for _, id := range ids {
		v, err := e.loadLocked(id)
		if err != nil {
			return nil, err
		}
		out = append(out, *v)
	}
	return out, nil
}

func (e *entityStore[T]) delete(id uint) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	path, ok := e.find(id)
	if !ok {
		return fs.ErrNotExist
	}
	return os.Remove(path)
}

// writeFileAtomic writes via a temp file in the same directory and
// renames it into place, so readers never observe a half-written
// record.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return nil
}
