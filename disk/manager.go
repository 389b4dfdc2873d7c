// Package disk is the raw page and log byte I/O collaborator: it knows
// nothing about records, keys or transactions, only about (file-handle,
// page-number) addressed fixed-size pages and a single append-only log
// file, grounded on thetarby-helindb/disk.Manager.
package disk

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"ridgedb/disk/pages"
)

var ErrFileNotOpen = errors.New("disk: file handle not open")

// Manager owns every heap/index file that belongs to one database
// directory plus the database's single shared log file.
type Manager struct {
	dir      string
	pageSize int

	mu        sync.Mutex
	files     map[int32]*os.File
	nextPage  map[int32]int64 // next page number to allocate per file handle
	nextFile  int32
	names     map[int32]string

	logFile *os.File
}

// NewManager opens (creating if absent) a database directory and its log
// file. dir is created with os.MkdirAll so callers don't need to stage it.
func NewManager(dir string, pageSize int) (*Manager, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("disk: creating database dir: %w", err)
	}

	logFile, err := os.OpenFile(filepath.Join(dir, "wal.log"), os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, fmt.Errorf("disk: opening log file: %w", err)
	}

	return &Manager{
		dir:      dir,
		pageSize: pageSize,
		files:    map[int32]*os.File{},
		nextPage: map[int32]int64{},
		names:    map[int32]string{},
		logFile:  logFile,
	}, nil
}

func (m *Manager) PageSize() int { return m.pageSize }

// OpenFile opens (creating if absent) a named data file under the database
// directory and returns a stable file-handle for use in pages.PageID.
func (m *Manager) OpenFile(name string) (int32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	f, err := os.OpenFile(filepath.Join(m.dir, name), os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return 0, fmt.Errorf("disk: opening %s: %w", name, err)
	}

	handle := m.nextFile
	m.nextFile++

	stat, err := f.Stat()
	if err != nil {
		return 0, fmt.Errorf("disk: stat %s: %w", name, err)
	}

	m.files[handle] = f
	m.names[handle] = name
	m.nextPage[handle] = stat.Size() / int64(m.pageSize)
	return handle, nil
}

// AllocationMarker returns the number of pages already allocated for a
// file handle — the boundary recovery's analyze pass compares a NEWPAGE
// record's target page number against.
func (m *Manager) AllocationMarker(fileHandle int32) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.nextPage[fileHandle]
}

// ReserveUpTo advances the allocation marker for fileHandle to at least
// pageNum+1, used by recovery when a NEWPAGE record names a page beyond
// what the file header on disk reflects (the transaction that allocated it
// crashed before the header was persisted).
func (m *Manager) ReserveUpTo(fileHandle int32, pageNum int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if pageNum+1 > m.nextPage[fileHandle] {
		m.nextPage[fileHandle] = pageNum + 1
	}
}

// NewPage allocates the next page number for fileHandle without writing to
// disk; the caller is responsible for writing real content.
func (m *Manager) NewPage(fileHandle int32) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.files[fileHandle]; !ok {
		return 0, ErrFileNotOpen
	}
	pn := m.nextPage[fileHandle]
	m.nextPage[fileHandle] = pn + 1
	return pn, nil
}

// Truncate discards a file's content and resets its allocation marker to
// zero, used to rebuild an index file from scratch since index contents
// are never logged and so cannot be trusted after a crash.
func (m *Manager) Truncate(fileHandle int32) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	f, ok := m.files[fileHandle]
	if !ok {
		return ErrFileNotOpen
	}
	if err := f.Truncate(0); err != nil {
		return fmt.Errorf("disk: truncating handle %d: %w", fileHandle, err)
	}
	m.nextPage[fileHandle] = 0
	return nil
}

func (m *Manager) ReadPage(id pages.PageID, dest []byte) error {
	m.mu.Lock()
	f, ok := m.files[id.FileHandle]
	m.mu.Unlock()
	if !ok {
		return ErrFileNotOpen
	}

	off := int64(m.pageSize) * id.PageNum
	n, err := f.ReadAt(dest[:m.pageSize], off)
	if err != nil && err != io.EOF {
		return fmt.Errorf("disk: reading page %+v: %w", id, err)
	}
	for i := n; i < m.pageSize; i++ {
		dest[i] = 0
	}
	return nil
}

func (m *Manager) WritePage(data []byte, id pages.PageID) error {
	m.mu.Lock()
	f, ok := m.files[id.FileHandle]
	m.mu.Unlock()
	if !ok {
		return ErrFileNotOpen
	}

	if len(data) != m.pageSize {
		return fmt.Errorf("disk: page write size mismatch: got %d want %d", len(data), m.pageSize)
	}

	off := int64(m.pageSize) * id.PageNum
	if _, err := f.WriteAt(data, off); err != nil {
		return fmt.Errorf("disk: writing page %+v: %w", id, err)
	}
	return nil
}

// LogWriter exposes the shared log file for wal.LogManager to append to.
func (m *Manager) LogWriter() io.WriteSeeker { return m.logFile }

// LogReader exposes the shared log file for recovery's sequential scan.
func (m *Manager) LogReader() io.ReadSeeker { return m.logFile }

// LogPath is the on-disk path of the database's log file, used by the
// engine to hand wal.SealSegment a path to archive.
func (m *Manager) LogPath() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return filepath.Join(m.dir, "wal.log")
}

// LogSize reports the current size of the log file, used to decide
// whether a log segment is due for sealing.
func (m *Manager) LogSize() (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stat, err := m.logFile.Stat()
	if err != nil {
		return 0, fmt.Errorf("disk: stat log file: %w", err)
	}
	return stat.Size(), nil
}

func (m *Manager) Sync() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, f := range m.files {
		if err := f.Sync(); err != nil {
			return err
		}
	}
	return m.logFile.Sync()
}

func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	var firstErr error
	for _, f := range m.files {
		if err := f.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if err := m.logFile.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}

// FileName returns the on-disk file name registered for a handle, used by
// recovery and by error messages.
func (m *Manager) FileName(handle int32) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.names[handle]
}
