// Copyright 2025 KrakLabs
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published
// by the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.
//
// For commercial licensing, contact: licensing@kraklabs.com
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/codelibrarian/codelibrarian/internal/config"
)

// IndexQueue guards against two 'index' runs mutating the same project's
// database at once: the post-commit hook backgrounds an index run after
// every commit, and without a lock a burst of commits would pile up
// concurrent writers against a single-connection SQLite store.
type IndexQueue struct {
	lockPath string
	lockFile *os.File
}

// LockInfo describes the current lock holder.
type LockInfo struct {
	PID       int
	StartedAt time.Time
}

// NewIndexQueue creates an IndexQueue rooted at the project's
// .codelibrarian directory.
func NewIndexQueue(root string) (*IndexQueue, error) {
	dir := filepath.Join(root, config.ProjectDir)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create %s: %w", dir, err)
	}
	return &IndexQueue{lockPath: filepath.Join(dir, "index.lock")}, nil
}

// TryAcquireLock attempts to acquire the index lock without blocking.
func (q *IndexQueue) TryAcquireLock() (bool, error) {
	f, err := os.OpenFile(q.lockPath, os.O_CREATE|os.O_RDWR, 0600)
	if err != nil {
		return false, fmt.Errorf("open lock file: %w", err)
	}

	if err := syscall.Flock(int(f.Fd()), syscall.LOCK_EX|syscall.LOCK_NB); err != nil {
		_ = f.Close()
		if err == syscall.EWOULDBLOCK {
			return false, nil
		}
		return false, fmt.Errorf("flock: %w", err)
	}

	if err := f.Truncate(0); err != nil {
		_ = f.Close()
		return false, fmt.Errorf("truncate lock file: %w", err)
	}
	if _, err := f.Seek(0, 0); err != nil {
		_ = f.Close()
		return false, fmt.Errorf("seek lock file: %w", err)
	}
	if _, err := fmt.Fprintf(f, "%d %d\n", os.Getpid(), time.Now().Unix()); err != nil {
		_ = f.Close()
		return false, fmt.Errorf("write lock file: %w", err)
	}

	q.lockFile = f
	return true, nil
}

// ReleaseLock releases the index lock.
func (q *IndexQueue) ReleaseLock() {
	if q.lockFile != nil {
		_ = syscall.Flock(int(q.lockFile.Fd()), syscall.LOCK_UN)
		_ = q.lockFile.Close()
		q.lockFile = nil
	}
}

// GetLockInfo returns information about the current lock holder, if any.
func (q *IndexQueue) GetLockInfo() (*LockInfo, error) {
	data, err := os.ReadFile(q.lockPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var pid int
	var timestamp int64
	if _, err := fmt.Sscanf(string(data), "%d %d", &pid, &timestamp); err != nil {
		return nil, fmt.Errorf("parse lock info: %w", err)
	}

	return &LockInfo{PID: pid, StartedAt: time.Unix(timestamp, 0)}, nil
}

// IsLockStale reports whether the lock's owning process no longer exists.
func (q *IndexQueue) IsLockStale() bool {
	info, err := q.GetLockInfo()
	if err != nil || info == nil {
		return false
	}

	proc, err := os.FindProcess(info.PID)
	if err != nil {
		return true
	}
	return proc.Signal(syscall.Signal(0)) != nil
}

// FormatDuration formats a duration for human-readable output.
func FormatDuration(d time.Duration) string {
	if d < time.Minute {
		return strconv.Itoa(int(d.Seconds())) + "s"
	}
	if d < time.Hour {
		return strconv.Itoa(int(d.Minutes())) + "m " + strconv.Itoa(int(d.Seconds())%60) + "s"
	}
	return strconv.Itoa(int(d.Hours())) + "h " + strconv.Itoa(int(d.Minutes())%60) + "m"
}
