package loader

import (
	"crypto/sha256"
	"encoding/hex"
	"path/filepath"
)

// Source identifies where a dataset comes from: a file path or an uploaded
// byte stream. Two sources with the same Key share one parsed table.
type Source struct {
	Path string
	Name string
	Data []byte

	digest string
}

// FromPath returns a source for a file on disk.
func FromPath(path string) Source {
	p := filepath.Clean(path)
	return Source{Path: p, Name: filepath.Base(p)}
}

// FromBytes returns a source for uploaded content. name is only used for
// format detection and messages.
func FromBytes(name string, data []byte) Source {
	s := Source{Name: name, Data: data}
	s.digest = digest(data)
	return s
}

// Key is the cache identity: the cleaned path for files, the content hash
// plus the name-derived format for uploads.
func (s Source) Key() string {
	if s.Data == nil && s.Path != "" {
		return "path:" + s.Path
	}
	d := s.digest
	if d == "" {
		d = digest(s.Data)
	}
	return "sha256:" + d + "/" + formatHint(s.Name, s.Data)
}

func (s Source) String() string {
	if s.Path != "" {
		return s.Path
	}
	if s.Name != "" {
		return s.Name
	}
	return "upload"
}

func digest(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}
