package utils

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// EnsureDir ensures the provided directory exists.
func EnsureDir(dir string) error {
	return os.MkdirAll(dir, 0o755)
}

// SafeWriteFile writes data to a temp file and atomically renames it into place.
func SafeWriteFile(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("atomic rename: %w", err)
	}
	return nil
}

// PrettyJSON marshals a value as indented JSON.
func PrettyJSON(v any) ([]byte, error) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal json: %w", err)
	}
	return b, nil
}

// FreePath returns dir/base+suffix, or dir/base__N+suffix with the smallest
// N >= 2 that neither exists on disk nor appears in reserved. The chosen path
// is added to reserved when it is non-nil. The second result reports whether
// a collision was avoided.
func FreePath(dir, base, suffix string, reserved map[string]bool) (string, bool) {
	free := func(p string) bool {
		if reserved[p] {
			return false
		}
		_, err := os.Stat(p)
		return os.IsNotExist(err)
	}
	p := filepath.Join(dir, base+suffix)
	moved := false
	for idx := 2; !free(p); idx++ {
		p = filepath.Join(dir, fmt.Sprintf("%s__%d%s", base, idx, suffix))
		moved = true
	}
	if reserved != nil {
		reserved[p] = true
	}
	return p, moved
}

// Slug lowercases s and keeps [a-z0-9], mapping separators to '-'.
// Empty results become fallback.
func Slug(s, fallback string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	var b strings.Builder
	for _, r := range s {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		} else if r == ' ' || r == '-' || r == '_' || r == '.' {
			b.WriteRune('-')
		}
	}
	out := strings.Trim(b.String(), "-")
	if out == "" {
		return fallback
	}
	return out
}
