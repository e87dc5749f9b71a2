// Package storage provisions the backing locations for the benchmark's
// index and taxonomy stores. A Dir is either filesystem-backed under the
// configured work root, or volatile (in-memory), selected per kind from
// configuration.
package storage

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"

	ixerrors "github.com/idxbench/idxbench/internal/errors"
	"github.com/idxbench/idxbench/internal/runcfg"
)

// Backend selects how a Dir is backed.
type Backend string

const (
	// BackendMem is a volatile in-memory location, fresh on every provision.
	BackendMem Backend = "mem"
	// BackendFS is a filesystem location under the work root.
	BackendFS Backend = "fs"
)

// Configuration keys and defaults.
const (
	WorkDirKey     = "work.dir"
	DefaultWorkDir = "work"
	lockFileName   = ".provision.lock"
)

// Dir is a provisioned storage location for one kind ("index" or
// "taxonomy"). Filesystem dirs hold a cross-process lock for their lifetime
// so two harness processes cannot share a work directory.
type Dir struct {
	kind    string
	backend Backend
	path    string // filesystem dirs only
	lock    *flock.Flock
	closed  bool
}

// Provision chooses and (re)creates the backing location for kind. The
// backend comes from the "directory.<kind>" key (default volatile). When
// eraseExisting is set, a filesystem location has its contents removed
// before being recreated; volatile locations start empty by construction.
func Provision(cfg *runcfg.Config, kind string, eraseExisting bool) (*Dir, error) {
	backend := Backend(cfg.String("directory."+kind, string(BackendMem)))
	switch backend {
	case BackendMem:
		return &Dir{kind: kind, backend: BackendMem}, nil

	case BackendFS:
		root := cfg.String(WorkDirKey, DefaultWorkDir)
		path := filepath.Join(root, kind)
		if eraseExisting {
			if err := os.RemoveAll(path); err != nil {
				return nil, ixerrors.StorageError(
					fmt.Sprintf("erase %s directory %s", kind, path), err)
			}
		}
		if err := os.MkdirAll(path, 0o755); err != nil {
			return nil, ixerrors.StorageError(
				fmt.Sprintf("create %s directory %s", kind, path), err)
		}

		lock := flock.New(filepath.Join(path, lockFileName))
		acquired, err := lock.TryLock()
		if err != nil {
			return nil, ixerrors.StorageError(
				fmt.Sprintf("lock %s directory %s", kind, path), err)
		}
		if !acquired {
			return nil, ixerrors.New(ixerrors.ErrCodeDirLocked,
				fmt.Sprintf("%s directory %s is locked by another process", kind, path), nil).
				WithDetail("path", path)
		}
		return &Dir{kind: kind, backend: BackendFS, path: path, lock: lock}, nil

	default:
		return nil, ixerrors.New(ixerrors.ErrCodeConfigInvalid,
			fmt.Sprintf("unknown backend %q for directory.%s (want %q or %q)",
				backend, kind, BackendMem, BackendFS), nil)
	}
}

// Kind returns the provisioned kind ("index" or "taxonomy").
func (d *Dir) Kind() string { return d.kind }

// Backend returns the backing selection.
func (d *Dir) Backend() Backend { return d.backend }

// IsMem reports whether the dir is volatile.
func (d *Dir) IsMem() bool { return d.backend == BackendMem }

// Path returns the filesystem path, or "" for volatile dirs.
func (d *Dir) Path() string { return d.path }

// IndexPath returns the location a bleve index should live at, or "" for
// volatile dirs (the engine opens a memory-only index instead).
func (d *Dir) IndexPath() string {
	if d.IsMem() {
		return ""
	}
	return filepath.Join(d.path, "index.bleve")
}

// TaxonomyDSN returns the SQLite DSN for the taxonomy store backed by this
// dir. Volatile dirs get a private in-memory database, fresh and empty by
// construction.
func (d *Dir) TaxonomyDSN() string {
	if d.IsMem() {
		return ":memory:"
	}
	return filepath.Join(d.path, "taxonomy.db")
}

// SizeBytes walks a filesystem dir and sums file sizes. Volatile dirs
// report zero.
func (d *Dir) SizeBytes() uint64 {
	if d.IsMem() {
		return 0
	}
	var total uint64
	_ = filepath.WalkDir(d.path, func(_ string, entry fs.DirEntry, err error) error {
		if err != nil || entry.IsDir() {
			return nil
		}
		if info, ierr := entry.Info(); ierr == nil {
			total += uint64(info.Size())
		}
		return nil
	})
	return total
}

// Close releases the directory lock. Safe to call more than once.
func (d *Dir) Close() error {
	if d.closed {
		return nil
	}
	d.closed = true
	if d.lock != nil {
		return d.lock.Unlock()
	}
	return nil
}
