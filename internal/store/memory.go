package store

import (
	"sort"
	"sync"
	"time"
)

// Memory is an in-process Store used as a substitute for the relational
// implementation in tests. It mirrors the contract exactly: replace-vs-merge,
// upsert-on-absent-update, string-cast filter equality, text ordering on JSON
// fields, and cascade delete.
type Memory struct {
	mu      sync.Mutex
	users   map[string]*memUser
	docs    map[string]*memDoc // key: userID + "/" + collection + "/" + docID
	globals map[string]*memDoc // key: collection + "/" + docID
	last    time.Time
}

type memUser struct {
	data     Document
	promoted map[string]string
	created  time.Time
	updated  time.Time
}

type memDoc struct {
	userID     string
	collection string
	docID      string
	data       Document
	created    time.Time
	updated    time.Time
}

func NewMemory() *Memory {
	return &Memory{
		users:   make(map[string]*memUser),
		docs:    make(map[string]*memDoc),
		globals: make(map[string]*memDoc),
	}
}

// now returns a strictly increasing timestamp so insertion order is always
// reflected in created_at ordering.
func (m *Memory) now() time.Time {
	t := time.Now().UTC()
	if !t.After(m.last) {
		t = m.last.Add(time.Microsecond)
	}
	m.last = t
	return t
}

// copyDoc round-trips through JSON, both to deep-copy and to normalize value
// types the same way the relational store does (numbers become float64).
func copyDoc(data Document) (Document, error) {
	raw, err := encodeData(data)
	if err != nil {
		return nil, err
	}
	return decodeData(raw), nil
}

// --- User records ---

func (m *Memory) GetUser(userID string) (Document, error) {
	if err := validateID("user id", userID); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[userID]
	if !ok {
		return nil, nil
	}

	doc, err := copyDoc(u.data)
	if err != nil {
		return nil, err
	}
	for k, v := range u.promoted {
		doc[k] = v
	}
	doc["created_at"] = u.created.Format(time.RFC3339Nano)
	doc["updated_at"] = u.updated.Format(time.RFC3339Nano)
	return doc, nil
}

func (m *Memory) SetUser(userID string, fields Document) error {
	if err := validateID("user id", userID); err != nil {
		return err
	}
	data, err := copyDoc(fields)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	u, ok := m.users[userID]
	if !ok {
		u = &memUser{promoted: map[string]string{}, created: now}
		m.users[userID] = u
	}
	u.data = data
	promoteFields(u.promoted, data)
	u.updated = now
	return nil
}

func (m *Memory) UpdateUser(userID string, partial Document) error {
	if err := validateID("user id", userID); err != nil {
		return err
	}
	incoming, err := copyDoc(partial)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	u, ok := m.users[userID]
	if !ok {
		u = &memUser{data: incoming, promoted: map[string]string{}, created: now}
		promoteFields(u.promoted, incoming)
		u.updated = now
		m.users[userID] = u
		return nil
	}

	u.data = shallowMerge(u.data, incoming)
	promoteFields(u.promoted, incoming)
	u.updated = now
	return nil
}

func (m *Memory) DeleteUser(userID string) error {
	if err := validateID("user id", userID); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.users, userID)
	for key, d := range m.docs {
		if d.userID == userID {
			delete(m.docs, key)
		}
	}
	return nil
}

// --- User sub-collection documents ---

func (m *Memory) GetUserDoc(userID, collection, docID string) (Document, error) {
	if err := validateDocTriple(userID, collection, docID); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	d, ok := m.docs[userID+"/"+collection+"/"+docID]
	if !ok {
		return nil, nil
	}
	doc, err := copyDoc(d.data)
	if err != nil {
		return nil, err
	}
	doc["_id"] = docID
	return doc, nil
}

func (m *Memory) SetUserDoc(userID, collection, docID string, data Document) (string, error) {
	if err := validateDocTriple(userID, collection, docID); err != nil {
		return "", err
	}
	body, err := copyDoc(data)
	if err != nil {
		return "", err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	key := userID + "/" + collection + "/" + docID
	now := m.now()
	if d, ok := m.docs[key]; ok {
		d.data = body
		d.updated = now
		return docID, nil
	}
	m.docs[key] = &memDoc{
		userID: userID, collection: collection, docID: docID,
		data: body, created: now, updated: now,
	}
	return docID, nil
}

func (m *Memory) AddUserDoc(userID, collection string, data Document) (string, error) {
	return m.SetUserDoc(userID, collection, newDocID(), data)
}

func (m *Memory) UpdateUserDoc(userID, collection, docID string, partial Document) error {
	if err := validateDocTriple(userID, collection, docID); err != nil {
		return err
	}
	incoming, err := copyDoc(partial)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	key := userID + "/" + collection + "/" + docID
	now := m.now()
	if d, ok := m.docs[key]; ok {
		d.data = shallowMerge(d.data, incoming)
		d.updated = now
		return nil
	}
	m.docs[key] = &memDoc{
		userID: userID, collection: collection, docID: docID,
		data: incoming, created: now, updated: now,
	}
	return nil
}

func (m *Memory) DeleteUserDoc(userID, collection, docID string) error {
	if err := validateDocTriple(userID, collection, docID); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.docs, userID+"/"+collection+"/"+docID)
	return nil
}

func (m *Memory) QueryUserDocs(userID, collection string, q Query) ([]Document, error) {
	if err := validateID("user id", userID); err != nil {
		return nil, err
	}
	if err := validateCollection(collection); err != nil {
		return nil, err
	}
	if err := validateQuery(q); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	var matched []*memDoc
	for _, d := range m.docs {
		if d.userID == userID && d.collection == collection && matchesFilters(d.data, q.Filters) {
			matched = append(matched, d)
		}
	}
	return finishQuery(matched, q, false)
}

// --- Global documents ---

func (m *Memory) GetGlobalDoc(collection, docID string) (Document, error) {
	if err := validateGlobalPair(collection, docID); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	d, ok := m.globals[collection+"/"+docID]
	if !ok {
		return nil, nil
	}
	doc, err := copyDoc(d.data)
	if err != nil {
		return nil, err
	}
	doc["_id"] = docID
	return doc, nil
}

func (m *Memory) SetGlobalDoc(collection, docID string, data Document) (string, error) {
	if err := validateGlobalPair(collection, docID); err != nil {
		return "", err
	}
	body, err := copyDoc(data)
	if err != nil {
		return "", err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	key := collection + "/" + docID
	now := m.now()
	if d, ok := m.globals[key]; ok {
		d.data = body
		d.updated = now
		return docID, nil
	}
	m.globals[key] = &memDoc{
		collection: collection, docID: docID,
		data: body, created: now, updated: now,
	}
	return docID, nil
}

func (m *Memory) AddGlobalDoc(collection string, data Document) (string, error) {
	return m.SetGlobalDoc(collection, newDocID(), data)
}

func (m *Memory) UpdateGlobalDoc(collection, docID string, partial Document) error {
	if err := validateGlobalPair(collection, docID); err != nil {
		return err
	}
	incoming, err := copyDoc(partial)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	key := collection + "/" + docID
	now := m.now()
	if d, ok := m.globals[key]; ok {
		d.data = shallowMerge(d.data, incoming)
		d.updated = now
		return nil
	}
	m.globals[key] = &memDoc{
		collection: collection, docID: docID,
		data: incoming, created: now, updated: now,
	}
	return nil
}

func (m *Memory) DeleteGlobalDoc(collection, docID string) error {
	if err := validateGlobalPair(collection, docID); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.globals, collection+"/"+docID)
	return nil
}

func (m *Memory) QueryGlobalDocs(collection string, q Query) ([]Document, error) {
	if err := validateCollection(collection); err != nil {
		return nil, err
	}
	if err := validateQuery(q); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	var matched []*memDoc
	for _, d := range m.globals {
		if d.collection == collection && matchesFilters(d.data, q.Filters) {
			matched = append(matched, d)
		}
	}
	return finishQuery(matched, q, false)
}

func (m *Memory) QueryCollectionGroup(collection string, q Query) ([]Document, error) {
	if err := validateCollection(collection); err != nil {
		return nil, err
	}
	if err := validateQuery(q); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	var matched []*memDoc
	for _, d := range m.docs {
		if d.collection == collection && matchesFilters(d.data, q.Filters) {
			matched = append(matched, d)
		}
	}
	return finishQuery(matched, q, true)
}

// --- helpers ---

func promoteFields(promoted map[string]string, fields Document) {
	for _, key := range promotedUserFields {
		if v, ok := fields[key]; ok {
			if s, ok := v.(string); ok {
				promoted[key] = s
			}
		}
	}
}

func matchesFilters(data Document, filters map[string]interface{}) bool {
	for k, want := range filters {
		got, ok := data[k]
		if !ok {
			return false
		}
		if stringifyFilterValue(got) != stringifyFilterValue(want) {
			return false
		}
	}
	return true
}

// finishQuery sorts and truncates like the SQL path: JSON fields compare as
// text (missing values last on ASC, first on DESC, matching Postgres NULL
// placement), otherwise created_at descending.
func finishQuery(matched []*memDoc, q Query, includeUser bool) ([]Document, error) {
	desc := q.direction() == "DESC"
	if q.OrderBy != "" {
		sort.SliceStable(matched, func(i, j int) bool {
			vi, oki := matched[i].data[q.OrderBy]
			vj, okj := matched[j].data[q.OrderBy]
			if oki != okj {
				if desc {
					return !oki
				}
				return oki
			}
			si, sj := stringifyFilterValue(vi), stringifyFilterValue(vj)
			if desc {
				return si > sj
			}
			return si < sj
		})
	} else {
		sort.SliceStable(matched, func(i, j int) bool {
			return matched[i].created.After(matched[j].created)
		})
	}

	if q.Limit > 0 && len(matched) > q.Limit {
		matched = matched[:q.Limit]
	}

	out := make([]Document, 0, len(matched))
	for _, d := range matched {
		doc, err := copyDoc(d.data)
		if err != nil {
			return nil, err
		}
		doc["_id"] = d.docID
		if includeUser {
			doc["_user_id"] = d.userID
		}
		out = append(out, doc)
	}
	return out, nil
}

var _ Store = (*Memory)(nil)
var _ Store = (*Postgres)(nil)
