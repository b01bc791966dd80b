package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

var (
	// ErrInvalidArgument marks caller misuse (bad identifiers, malformed
	// filter keys, non-serializable payloads). Surfaced before any SQL runs.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrStorage marks an underlying engine fault (connection loss,
	// constraint violation). The store never retries; callers decide.
	ErrStorage = errors.New("storage failure")
)

// Document is an open JSON object, the unit of storage for everything
// that is not a promoted user column.
type Document map[string]interface{}

// Query narrows and orders a collection scan. Filters are equality-only and
// matched against the JSON body through a string cast. An empty OrderBy
// sorts by creation time, newest first.
type Query struct {
	Filters  map[string]interface{}
	OrderBy  string
	OrderDir string // "ASC" or "DESC"; defaults to "DESC"
	Limit    int    // 0 means no limit
}

// Store is the document-database-shaped contract over the three entity kinds:
// singleton user records, per-user sub-collection documents, and global
// documents. Every call is a self-contained fetch/mutate/commit unit; single
// record gets return (nil, nil) when the target is absent.
type Store interface {
	GetUser(userID string) (Document, error)
	SetUser(userID string, fields Document) error
	UpdateUser(userID string, partial Document) error
	DeleteUser(userID string) error

	GetUserDoc(userID, collection, docID string) (Document, error)
	SetUserDoc(userID, collection, docID string, data Document) (string, error)
	AddUserDoc(userID, collection string, data Document) (string, error)
	UpdateUserDoc(userID, collection, docID string, partial Document) error
	DeleteUserDoc(userID, collection, docID string) error
	QueryUserDocs(userID, collection string, q Query) ([]Document, error)

	GetGlobalDoc(collection, docID string) (Document, error)
	SetGlobalDoc(collection, docID string, data Document) (string, error)
	AddGlobalDoc(collection string, data Document) (string, error)
	UpdateGlobalDoc(collection, docID string, partial Document) error
	DeleteGlobalDoc(collection, docID string) error
	QueryGlobalDocs(collection string, q Query) ([]Document, error)

	// QueryCollectionGroup scans a named collection across all users, the
	// relational stand-in for a Firestore collection-group query. Returned
	// documents carry "_id" and "_user_id".
	QueryCollectionGroup(collection string, q Query) ([]Document, error)
}

// promotedUserFields are the user-record keys mirrored into their own
// indexed columns. They remain present in the JSON body as well.
var promotedUserFields = []string{"email", "display_name", "photo_url", "phone_number"}

var identRe = regexp.MustCompile(`^[A-Za-z0-9_]+$`)

func validateID(kind, id string) error {
	if id == "" {
		return fmt.Errorf("%w: empty %s", ErrInvalidArgument, kind)
	}
	if len(id) > 128 {
		return fmt.Errorf("%w: %s exceeds 128 characters", ErrInvalidArgument, kind)
	}
	return nil
}

func validateCollection(collection string) error {
	if collection == "" || !identRe.MatchString(collection) {
		return fmt.Errorf("%w: collection name %q", ErrInvalidArgument, collection)
	}
	return nil
}

// validateKey guards keys that end up inside a data->>'key' expression.
func validateKey(key string) error {
	if !identRe.MatchString(key) {
		return fmt.Errorf("%w: field key %q", ErrInvalidArgument, key)
	}
	return nil
}

func validateQuery(q Query) error {
	for k := range q.Filters {
		if err := validateKey(k); err != nil {
			return err
		}
	}
	if q.OrderBy != "" {
		if err := validateKey(q.OrderBy); err != nil {
			return err
		}
	}
	switch strings.ToUpper(q.OrderDir) {
	case "", "ASC", "DESC":
	default:
		return fmt.Errorf("%w: order direction %q", ErrInvalidArgument, q.OrderDir)
	}
	return nil
}

func (q Query) direction() string {
	if strings.EqualFold(q.OrderDir, "ASC") {
		return "ASC"
	}
	return "DESC"
}

func encodeData(data Document) ([]byte, error) {
	if data == nil {
		data = Document{}
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("%w: payload not JSON-serializable: %v", ErrInvalidArgument, err)
	}
	return raw, nil
}

func decodeData(raw []byte) Document {
	doc := Document{}
	if len(raw) > 0 {
		// A decode failure means the row was corrupted outside the store;
		// treat the body as empty rather than failing the read.
		_ = json.Unmarshal(raw, &doc)
	}
	return doc
}

// shallowMerge overlays incoming keys one level deep. Nested objects present
// in both are replaced wholesale, never recursively combined.
func shallowMerge(existing, partial Document) Document {
	merged := make(Document, len(existing)+len(partial))
	for k, v := range existing {
		merged[k] = v
	}
	for k, v := range partial {
		merged[k] = v
	}
	return merged
}

// stringifyFilterValue normalizes a typed filter value through the same
// text-cast path Postgres applies to data->>'key', so numeric and boolean
// equality behaves identically on both implementations.
func stringifyFilterValue(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case json.Number:
		return t.String()
	default:
		return fmt.Sprintf("%v", t)
	}
}

// newDocID generates a caller-independent document identifier. A random
// 128-bit token keeps collision probability negligible, so no uniqueness
// probe happens before insert.
func newDocID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

func stringField(data Document, key string) *string {
	if v, ok := data[key]; ok {
		if s, ok := v.(string); ok {
			return &s
		}
	}
	return nil
}
