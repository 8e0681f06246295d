// Package fileutil provides filename and directory-scan helpers shared by
// the recording supervisor and the space admission controller.
package fileutil

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode"
)

// DefaultStreamToken replaces a stream name that is empty after sanitization.
const DefaultStreamToken = "stream"

// fallbackPrefix names sessions when no flight log exists to borrow a name from.
const fallbackPrefix = "session"

// SanitizeStreamName makes a stream name safe for use in file paths.
// Path separators, reserved characters, and whitespace become underscores;
// leading and trailing dots and spaces are trimmed.
func SanitizeStreamName(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	for _, r := range name {
		switch {
		case unicode.IsSpace(r):
			b.WriteByte('_')
		case strings.ContainsRune(`/\:*?"<>|`, r):
			b.WriteByte('_')
		default:
			b.WriteRune(r)
		}
	}
	cleaned := strings.Trim(b.String(), ". ")
	if cleaned == "" {
		return DefaultStreamToken
	}
	return cleaned
}

// NewestFlightLogBase returns the stem of the most recently modified *.BIN
// flight log in dir, or "" when none exists.
func NewestFlightLogBase(dir string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", nil
		}
		return "", fmt.Errorf("read flight log dir: %w", err)
	}

	var newest string
	var newestMod time.Time
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if !strings.EqualFold(filepath.Ext(name), ".bin") {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if newest == "" || info.ModTime().After(newestMod) {
			newest = name
			newestMod = info.ModTime()
		}
	}
	if newest == "" {
		return "", nil
	}
	return strings.TrimSuffix(newest, filepath.Ext(newest)), nil
}

// FallbackSessionBase derives a session name by scanning existing recordings
// in videoDir for the fallback prefix and incrementing the highest counter.
func FallbackSessionBase(videoDir string) (string, error) {
	entries, err := os.ReadDir(videoDir)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return "", fmt.Errorf("read video dir: %w", err)
	}

	highest := 0
	for _, entry := range entries {
		name := entry.Name()
		if !strings.HasPrefix(name, fallbackPrefix+"_") {
			continue
		}
		rest := strings.TrimPrefix(name, fallbackPrefix+"_")
		var counter int
		if _, err := fmt.Sscanf(rest, "%04d", &counter); err != nil {
			continue
		}
		if counter > highest {
			highest = counter
		}
	}
	return fmt.Sprintf("%s_%04d", fallbackPrefix, highest+1), nil
}

// OldestVideo returns the oldest completed .mp4 in dir by modification time.
// Files whose names start with any prefix in exclude are skipped so that
// in-progress recordings are never candidates. Returns "" when no candidate
// exists.
func OldestVideo(dir string, exclude []string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", nil
		}
		return "", fmt.Errorf("read video dir: %w", err)
	}

	var oldest string
	var oldestMod time.Time
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if !strings.EqualFold(filepath.Ext(name), ".mp4") {
			continue
		}
		if matchesPrefix(name, exclude) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if oldest == "" || info.ModTime().Before(oldestMod) {
			oldest = name
			oldestMod = info.ModTime()
		}
	}
	if oldest == "" {
		return "", nil
	}
	return filepath.Join(dir, oldest), nil
}

func matchesPrefix(name string, prefixes []string) bool {
	for _, prefix := range prefixes {
		if prefix == "" {
			continue
		}
		if strings.HasPrefix(name, filepath.Base(prefix)) {
			return true
		}
	}
	return false
}
