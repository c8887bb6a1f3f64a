package storage

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/natefinch/atomic"
	"go.uber.org/zap"
)

const (
	dirPerms      = 0o755
	defaultExt    = ".txt"
	opPut         = "put"
	opCreate      = "create"
	opGet         = "get"
	opList        = "list"
	opDelete      = "delete"
	opUpdate      = "update"
	opDeleteWhere = "delete_where"
)

// Observer receives one callback per namespace operation.
type Observer interface {
	ObserveStoreOp(namespace, op string, err error, duration time.Duration)
}

// Option customises a Namespace.
type Option func(*Namespace)

// WithCreateOnList makes List create the namespace directory when it is missing.
func WithCreateOnList() Option {
	return func(n *Namespace) { n.createOnList = true }
}

// WithLocking toggles per-path locking for writes and read-modify-write cycles.
func WithLocking(enabled bool) Option {
	return func(n *Namespace) { n.locking = enabled }
}

// WithObserver attaches an operation observer, typically the metrics service.
func WithObserver(o Observer) Option {
	return func(n *Namespace) { n.observer = o }
}

// WithLogger sets the logger used for swallowed best-effort failures.
func WithLogger(l *zap.Logger) Option {
	return func(n *Namespace) {
		if l != nil {
			n.logger = l
		}
	}
}

// Namespace maps record identifiers to "<dir>/<id>.txt" files.
// Identifiers are validated on every call and rejected before the filesystem is touched.
type Namespace struct {
	name         string
	dir          string
	ext          string
	createOnList bool
	locking      bool
	locks        *pathLocks
	observer     Observer
	logger       *zap.Logger
}

// NewNamespace binds a namespace called name to dir. The directory is created lazily.
func NewNamespace(name, dir string, opts ...Option) *Namespace {
	n := &Namespace{
		name:    name,
		dir:     filepath.Clean(dir),
		ext:     defaultExt,
		locking: true,
		locks:   newPathLocks(),
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Sub returns a nested namespace stored in a subdirectory. It shares locks, observer and logger
// but never creates its directory on List.
func (n *Namespace) Sub(name string) *Namespace {
	return &Namespace{
		name:     n.name + "/" + name,
		dir:      filepath.Join(n.dir, name),
		ext:      n.ext,
		locking:  n.locking,
		locks:    n.locks,
		observer: n.observer,
		logger:   n.logger,
	}
}

// Name returns the namespace label.
func (n *Namespace) Name() string { return n.name }

// Dir returns the namespace directory.
func (n *Namespace) Dir() string { return n.dir }

// Put creates or fully overwrites the record file.
func (n *Namespace) Put(id string, content []byte) (err error) {
	defer n.observe(opPut, time.Now(), &err)

	path, err := n.resolve(opPut, id)
	if err != nil {
		return err
	}
	if err := n.ensureDir(opPut, id); err != nil {
		return err
	}

	unlock := n.lock(path)
	defer unlock()

	return n.write(opPut, id, path, content)
}

// Create writes a new record and fails with ErrExists when the file is already present.
func (n *Namespace) Create(id string, content []byte) (err error) {
	defer n.observe(opCreate, time.Now(), &err)

	path, err := n.resolve(opCreate, id)
	if err != nil {
		return err
	}
	if err := n.ensureDir(opCreate, id); err != nil {
		return err
	}

	unlock := n.lock(path)
	defer unlock()

	if _, statErr := os.Stat(path); statErr == nil {
		return newError(opCreate, id, ErrExists)
	} else if !errors.Is(statErr, fs.ErrNotExist) {
		return newError(opCreate, id, statErr)
	}
	return n.write(opCreate, id, path, content)
}

// Get reads the whole record. A missing record is reported as found == false, not as an error.
func (n *Namespace) Get(id string) (content []byte, found bool, err error) {
	defer n.observe(opGet, time.Now(), &err)

	path, err := n.resolve(opGet, id)
	if err != nil {
		return nil, false, err
	}
	content, err = os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, newError(opGet, id, err)
	}
	return content, true, nil
}

// Exists reports whether the record file is present.
func (n *Namespace) Exists(id string) (bool, error) {
	path, err := n.resolve(opGet, id)
	if err != nil {
		return false, err
	}
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, newError(opGet, id, err)
	}
	return true, nil
}

// List returns the identifiers of every record file, sorted lexically.
// A missing directory yields an empty list.
func (n *Namespace) List() (ids []string, err error) {
	defer n.observe(opList, time.Now(), &err)

	entries, err := os.ReadDir(n.dir)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, newError(opList, "", err)
		}
		if n.createOnList {
			if mkErr := os.MkdirAll(n.dir, dirPerms); mkErr != nil {
				return nil, newError(opList, "", mkErr)
			}
		}
		return []string{}, nil
	}

	ids = make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if !strings.HasSuffix(name, n.ext) {
			continue
		}
		id := strings.TrimSuffix(name, n.ext)
		if ValidateID(id) != nil {
			continue
		}
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

// Delete removes the record. It returns false when there was nothing to remove.
func (n *Namespace) Delete(id string) (deleted bool, err error) {
	defer n.observe(opDelete, time.Now(), &err)

	path, err := n.resolve(opDelete, id)
	if err != nil {
		return false, err
	}

	unlock := n.lock(path)
	defer unlock()

	if err := os.Remove(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, newError(opDelete, id, err)
	}
	return true, nil
}

// DeleteWhere removes every record whose id matches. Individual failures are logged and
// skipped; the number of removed records is returned.
func (n *Namespace) DeleteWhere(match func(id string) bool) int {
	var err error
	defer n.observe(opDeleteWhere, time.Now(), &err)

	ids, err := n.List()
	if err != nil {
		n.logger.Warn("best-effort cleanup skipped", zap.String("namespace", n.name), zap.Error(err))
		return 0
	}

	removed := 0
	for _, id := range ids {
		if !match(id) {
			continue
		}
		ok, delErr := n.Delete(id)
		if delErr != nil {
			n.logger.Warn("best-effort cleanup failed", zap.String("namespace", n.name), zap.String("id", id), zap.Error(delErr))
			continue
		}
		if ok {
			removed++
		}
	}
	return removed
}

// Update applies fn to the current content and writes the result back.
// The whole cycle runs under the per-path lock; a missing record yields ErrNotFound.
func (n *Namespace) Update(id string, fn func(current []byte) ([]byte, error)) (err error) {
	defer n.observe(opUpdate, time.Now(), &err)

	path, err := n.resolve(opUpdate, id)
	if err != nil {
		return err
	}

	unlock := n.lock(path)
	defer unlock()

	current, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return newError(opUpdate, id, ErrNotFound)
		}
		return newError(opUpdate, id, err)
	}

	next, err := fn(current)
	if err != nil {
		return newError(opUpdate, id, err)
	}
	return n.write(opUpdate, id, path, next)
}

func (n *Namespace) resolve(op, id string) (string, error) {
	if err := ValidateID(id); err != nil {
		return "", newError(op, id, err)
	}
	path := filepath.Join(n.dir, id+n.ext)
	rel, err := filepath.Rel(n.dir, path)
	if err != nil || rel != id+n.ext {
		return "", newError(op, id, ErrInvalidID)
	}
	return path, nil
}

func (n *Namespace) ensureDir(op, id string) error {
	if err := os.MkdirAll(n.dir, dirPerms); err != nil {
		return newError(op, id, fmt.Errorf("create namespace directory: %w", err))
	}
	return nil
}

func (n *Namespace) write(op, id, path string, content []byte) error {
	if err := atomic.WriteFile(path, bytes.NewReader(content)); err != nil {
		return newError(op, id, err)
	}
	return nil
}

func (n *Namespace) lock(path string) func() {
	if !n.locking {
		return func() {}
	}
	return n.locks.lock(path)
}

func (n *Namespace) observe(op string, start time.Time, err *error) {
	if n.observer == nil {
		return
	}
	n.observer.ObserveStoreOp(n.name, op, *err, time.Since(start))
}
