package wal

import (
	"fmt"
	"io"
	"sync"

	"ridgedb/disk/pages"

	"github.com/sirupsen/logrus"
)

// LogManager owns a fixed-size log buffer and the global LSN counter,
// grounded on thetarby-helindb/disk/wal.LogManager's bufM-guarded
// currLsn/persistentLsn pair, simplified to a synchronous flush-on-full
// buffer (the teacher's background GroupWriter flusher is not carried
// forward — see DESIGN.md).
type LogManager struct {
	mu sync.Mutex

	buf        []byte
	bufCap     int
	globalLSN  int64
	bufLSN     pages.LSN
	persistLSN pages.LSN

	w   io.WriteSeeker
	log *logrus.Entry
}

func NewLogManager(w io.WriteSeeker, bufCap int) *LogManager {
	return &LogManager{
		buf:    make([]byte, 0, bufCap),
		bufCap: bufCap,
		w:      w,
		log:    logrus.WithField("component", "wal"),
	}
}

// AddLogToBuffer serializes rec, assigns its LSN, and appends it to the
// buffer; if the buffer cannot hold it, the buffer is flushed first.
func (l *LogManager) AddLogToBuffer(rec *Record) (pages.LSN, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.globalLSN++
	rec.LSN = pages.LSN(l.globalLSN)
	encoded := rec.Encode()

	if len(l.buf)+len(encoded) > l.bufCap {
		if err := l.flushLocked(); err != nil {
			return rec.LSN, err
		}
	}

	if len(encoded) > l.bufCap {
		// a record larger than the whole buffer is written straight through.
		if _, err := l.w.Write(encoded); err != nil {
			return rec.LSN, fmt.Errorf("wal: writing oversized record: %w", err)
		}
		l.persistLSN = rec.LSN
		return rec.LSN, nil
	}

	l.buf = append(l.buf, encoded...)
	l.bufLSN = rec.LSN
	return rec.LSN, nil
}

// FlushLogToDisk writes the buffer's content to the log file, clears it,
// and advances persist-LSN to the LSN of the last record the flushed
// bytes actually contained.
func (l *LogManager) FlushLogToDisk() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.flushLocked()
}

func (l *LogManager) flushLocked() error {
	if len(l.buf) == 0 {
		return nil
	}
	if _, err := l.w.Write(l.buf); err != nil {
		return fmt.Errorf("wal: flushing log buffer: %w", err)
	}
	l.buf = l.buf[:0]
	l.persistLSN = l.bufLSN
	l.log.Debug("flushed log buffer")
	return nil
}

// PersistLSN returns the highest LSN whose bytes have actually been
// written to the log file, trusted by the buffer pool's WAL-before-data
// check before evicting a dirty page.
func (l *LogManager) PersistLSN() pages.LSN {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.persistLSN
}
