package docpath

import (
	"regexp"
	"strings"

	"thing-counter/internal/shared/errors"
)

const (
	// UsersCollection is the root collection holding one document per user
	UsersCollection = "users"
	// CountersCollection is the per-user subcollection holding counters
	CountersCollection = "counters"
)

// CounterPath is a parsed `users/{uid}/counters[/{counterId}]` path
type CounterPath struct {
	UID       string
	CounterID string
	Segments  []string
}

// IsCollection reports whether the path names the counters subcollection
func (p *CounterPath) IsCollection() bool {
	return p.CounterID == ""
}

// String renders the path in its canonical relative form
func (p *CounterPath) String() string {
	if p.IsCollection() {
		return CollectionPath(p.UID)
	}
	return DocumentPath(p.UID, p.CounterID)
}

var (
	// projects/{PROJECT_ID}/databases/{DATABASE_ID}/documents/{DOCUMENT_PATH}
	fullPathRegex = regexp.MustCompile(`^projects/([^/]+)/databases/([^/]+)/documents/(.*)$`)

	validIDPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)
)

// ParseCounterPath accepts either a relative path (`users/u1/counters`) or a
// fully qualified Firestore resource name and returns its components.
func ParseCounterPath(path string) (*CounterPath, error) {
	path = strings.Trim(path, "/")
	if path == "" {
		return nil, errors.NewValidationError("path cannot be empty").WithCause(errors.ErrInvalidPath)
	}
	if m := fullPathRegex.FindStringSubmatch(path); len(m) == 4 {
		path = m[3]
	}

	segments := Split(path)
	if len(segments) != 3 && len(segments) != 4 {
		return nil, invalidPath(path, "expected users/{uid}/counters[/{counterId}]")
	}
	if segments[0] != UsersCollection || segments[2] != CountersCollection {
		return nil, invalidPath(path, "expected users/{uid}/counters[/{counterId}]")
	}
	for i, s := range segments {
		if !IsValidID(s) {
			return nil, invalidPath(path, "invalid path segment").WithDetail("position", i)
		}
	}

	cp := &CounterPath{UID: segments[1], Segments: segments}
	if len(segments) == 4 {
		cp.CounterID = segments[3]
	}
	return cp, nil
}

func invalidPath(path, msg string) *errors.AppError {
	return errors.NewValidationError(msg).
		WithCause(errors.ErrInvalidPath).
		WithDetail("provided_path", path)
}

// Split splits a slash separated path dropping empty segments
func Split(path string) []string {
	var out []string
	for _, s := range strings.Split(path, "/") {
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

// CollectionPath returns `users/{uid}/counters`
func CollectionPath(uid string) string {
	return UsersCollection + "/" + uid + "/" + CountersCollection
}

// DocumentPath returns `users/{uid}/counters/{counterId}`
func DocumentPath(uid, counterID string) string {
	return CollectionPath(uid) + "/" + counterID
}

// IsValidID checks a path segment
func IsValidID(id string) bool {
	if id == "" || len(id) > 1500 {
		return false
	}
	return validIDPattern.MatchString(id)
}
