// Package imgrepo models the image-repository collaborator named here:
// read_image with conditional-GET-by-serial-number semantics, and
// file_exists. Two implementations are provided: a local filesystem one and
// an S3-backed one, both satisfying the same Repository
// interface.
package imgrepo

import (
	"errors"
	"strconv"
	"time"
)

// Kind distinguishes the two file classes file_exists is asked about.
type Kind int

const (
	KindImage Kind = iota
	KindFile
)

// ErrNotFound is returned by ReadImage/FileExists for an unknown path.
var ErrNotFound = errors.New("imgrepo: not found")

// Result is what ReadImage returns when the path's current serial number
// differs from the caller's in_serial.
type Result struct {
	Unchanged bool
	Buffer []byte
	NewSerial int64
	LastModified time.Time
	IsPNG bool
}

// Repository is the façade consumed by the image handler and by RIVA's
// image-cache pipeline.
type Repository interface {
	// ReadImage returns Result{Unchanged: true} if inSerial already matches
	// the path's current serial number, otherwise the full buffer and new serial.
	ReadImage(path string, inSerial int64, userToken string) (Result, error)

	// FileExists reports whether path exists as the given Kind.
	FileExists(path string, kind Kind) bool
}

// SerialTag formats a serial number in the CQCRepoSerNum convention used
// for both If-Modified-Since and ETag-style headers.
func SerialTag(serial int64) string {
	return formatSerial(serial)
}

// ParseSerialTag extracts the serial number from a CQCRepoSerNum:<n> header
// value. ok is false if the value isn't in that form.
func ParseSerialTag(value string) (serial int64, ok bool) {
	const prefix = "CQCRepoSerNum:"
	if len(value) <= len(prefix) || value[:len(prefix)] != prefix {
		return 0, false
	}
	return parseSerial(value[len(prefix):])
}

func formatSerial(n int64) string {
	return "CQCRepoSerNum:" + strconv.FormatInt(n, 10)
}

func parseSerial(s string) (int64, bool) {
	n, err:= strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}
