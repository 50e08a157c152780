// Package checksum signs snapshot files with a sha256 sidecar so a tampered
// or half-written workbook is caught before a later stage resumes from it.
package checksum

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"strings"
)

// SidecarExt is appended to a file name to get its checksum file.
const SidecarExt = ".sha256"

// ErrMismatch is returned when a file no longer matches its sidecar.
var ErrMismatch = errors.New("checksum mismatch")

// Sum returns the hex sha256 of data.
func Sum(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

// Matcher compares data against one expected checksum.
type Matcher struct {
	expected string
}

func NewMatcher(expected string) *Matcher {
	return &Matcher{expected: strings.ToLower(strings.TrimSpace(expected))}
}

// Match checks if data hashes to the expected checksum.
func (m *Matcher) Match(data []byte) (bool, error) {
	if m.expected == "" {
		return false, errors.New("expected checksum is not set")
	}
	return Sum(data) == m.expected, nil
}

// WriteSidecar stores the checksum of data next to path.
func WriteSidecar(path string, data []byte) (string, error) {
	sum := Sum(data)
	if err := os.WriteFile(path+SidecarExt, []byte(sum+"\n"), 0644); err != nil {
		return "", err
	}
	return sum, nil
}

// VerifySidecar checks data against the sidecar of path. A missing sidecar is
// not an error; files copied in by hand have none.
func VerifySidecar(path string, data []byte) error {
	raw, err := os.ReadFile(path + SidecarExt)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	fields := strings.Fields(string(raw))
	if len(fields) == 0 {
		return fmt.Errorf("%s: empty checksum file", path)
	}
	ok, err := NewMatcher(fields[0]).Match(data)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%s: %w", path, ErrMismatch)
	}
	return nil
}
