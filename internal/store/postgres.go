package store

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Postgres implements Store on a relational engine. Each operation scopes its
// own transaction; read-modify-write merges hold a row lock so concurrent
// partial updates to the same triple cannot lose writes.
type Postgres struct {
	db *gorm.DB
}

func NewPostgres(db *gorm.DB) *Postgres {
	return &Postgres{db: db}
}

// Models returns the gorm model pointers the store needs migrated.
func Models() []interface{} {
	return []interface{}{
		&UserRecord{},
		&UserDocument{},
		&GlobalDocument{},
	}
}

func storageErr(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrStorage, op, err)
}

// --- User records ---

func (s *Postgres) GetUser(userID string) (Document, error) {
	if err := validateID("user id", userID); err != nil {
		return nil, err
	}

	var rec UserRecord
	err := s.db.First(&rec, "id = ?", userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, storageErr("get user", err)
	}
	return userRecordDocument(&rec), nil
}

func (s *Postgres) SetUser(userID string, fields Document) error {
	if err := validateID("user id", userID); err != nil {
		return err
	}
	raw, err := encodeData(fields)
	if err != nil {
		return err
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		var rec UserRecord
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&rec, "id = ?", userID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return tx.Create(newUserRecord(userID, fields, raw)).Error
		}
		if err != nil {
			return err
		}

		updates := map[string]interface{}{"data": datatypes.JSON(raw)}
		applyPromoted(updates, fields)
		return tx.Model(&rec).Updates(updates).Error
	})
	if err != nil {
		return storageErr("set user", err)
	}
	return nil
}

func (s *Postgres) UpdateUser(userID string, partial Document) error {
	if err := validateID("user id", userID); err != nil {
		return err
	}
	raw, err := encodeData(partial)
	if err != nil {
		return err
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		var rec UserRecord
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&rec, "id = ?", userID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// Absent targets promote to a full create, matching set semantics.
			return tx.Create(newUserRecord(userID, partial, raw)).Error
		}
		if err != nil {
			return err
		}

		merged := shallowMerge(decodeData(rec.Data), partial)
		mergedRaw, err := encodeData(merged)
		if err != nil {
			return err
		}
		updates := map[string]interface{}{"data": datatypes.JSON(mergedRaw)}
		applyPromoted(updates, partial)
		return tx.Model(&rec).Updates(updates).Error
	})
	if err != nil {
		if errors.Is(err, ErrInvalidArgument) {
			return err
		}
		return storageErr("update user", err)
	}
	return nil
}

func (s *Postgres) DeleteUser(userID string) error {
	if err := validateID("user id", userID); err != nil {
		return err
	}

	// The cascade is the one multi-statement sequence: both deletes commit
	// together or not at all.
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", userID).Delete(&UserDocument{}).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", userID).Delete(&UserRecord{}).Error
	})
	if err != nil {
		return storageErr("delete user", err)
	}
	return nil
}

// --- User sub-collection documents ---

func (s *Postgres) GetUserDoc(userID, collection, docID string) (Document, error) {
	if err := validateDocTriple(userID, collection, docID); err != nil {
		return nil, err
	}

	var rec UserDocument
	err := s.db.First(&rec, "user_id = ? AND collection = ? AND doc_id = ?", userID, collection, docID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, storageErr("get user doc", err)
	}

	doc := decodeData(rec.Data)
	doc["_id"] = rec.DocID
	return doc, nil
}

func (s *Postgres) SetUserDoc(userID, collection, docID string, data Document) (string, error) {
	if err := validateDocTriple(userID, collection, docID); err != nil {
		return "", err
	}
	raw, err := encodeData(data)
	if err != nil {
		return "", err
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		var rec UserDocument
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&rec, "user_id = ? AND collection = ? AND doc_id = ?", userID, collection, docID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return tx.Create(&UserDocument{
				UserID:     userID,
				Collection: collection,
				DocID:      docID,
				Data:       datatypes.JSON(raw),
			}).Error
		}
		if err != nil {
			return err
		}
		return tx.Model(&rec).Update("data", datatypes.JSON(raw)).Error
	})
	if err != nil {
		return "", storageErr("set user doc", err)
	}
	return docID, nil
}

func (s *Postgres) AddUserDoc(userID, collection string, data Document) (string, error) {
	return s.SetUserDoc(userID, collection, newDocID(), data)
}

func (s *Postgres) UpdateUserDoc(userID, collection, docID string, partial Document) error {
	if err := validateDocTriple(userID, collection, docID); err != nil {
		return err
	}
	raw, err := encodeData(partial)
	if err != nil {
		return err
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		var rec UserDocument
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&rec, "user_id = ? AND collection = ? AND doc_id = ?", userID, collection, docID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return tx.Create(&UserDocument{
				UserID:     userID,
				Collection: collection,
				DocID:      docID,
				Data:       datatypes.JSON(raw),
			}).Error
		}
		if err != nil {
			return err
		}

		merged := shallowMerge(decodeData(rec.Data), partial)
		mergedRaw, err := encodeData(merged)
		if err != nil {
			return err
		}
		return tx.Model(&rec).Update("data", datatypes.JSON(mergedRaw)).Error
	})
	if err != nil {
		if errors.Is(err, ErrInvalidArgument) {
			return err
		}
		return storageErr("update user doc", err)
	}
	return nil
}

func (s *Postgres) DeleteUserDoc(userID, collection, docID string) error {
	if err := validateDocTriple(userID, collection, docID); err != nil {
		return err
	}
	err := s.db.Where("user_id = ? AND collection = ? AND doc_id = ?", userID, collection, docID).
		Delete(&UserDocument{}).Error
	if err != nil {
		return storageErr("delete user doc", err)
	}
	return nil
}

func (s *Postgres) QueryUserDocs(userID, collection string, q Query) ([]Document, error) {
	if err := validateID("user id", userID); err != nil {
		return nil, err
	}
	if err := validateCollection(collection); err != nil {
		return nil, err
	}
	if err := validateQuery(q); err != nil {
		return nil, err
	}

	db := s.db.Model(&UserDocument{}).Where("user_id = ? AND collection = ?", userID, collection)
	db = applyJSONQuery(db, q)

	var rows []UserDocument
	if err := db.Find(&rows).Error; err != nil {
		return nil, storageErr("query user docs", err)
	}

	out := make([]Document, 0, len(rows))
	for _, r := range rows {
		doc := decodeData(r.Data)
		doc["_id"] = r.DocID
		out = append(out, doc)
	}
	return out, nil
}

// --- Global documents ---

func (s *Postgres) GetGlobalDoc(collection, docID string) (Document, error) {
	if err := validateGlobalPair(collection, docID); err != nil {
		return nil, err
	}

	var rec GlobalDocument
	err := s.db.First(&rec, "collection = ? AND doc_id = ?", collection, docID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, storageErr("get global doc", err)
	}

	doc := decodeData(rec.Data)
	doc["_id"] = rec.DocID
	return doc, nil
}

func (s *Postgres) SetGlobalDoc(collection, docID string, data Document) (string, error) {
	if err := validateGlobalPair(collection, docID); err != nil {
		return "", err
	}
	raw, err := encodeData(data)
	if err != nil {
		return "", err
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		var rec GlobalDocument
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&rec, "collection = ? AND doc_id = ?", collection, docID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return tx.Create(&GlobalDocument{
				Collection: collection,
				DocID:      docID,
				Data:       datatypes.JSON(raw),
			}).Error
		}
		if err != nil {
			return err
		}
		return tx.Model(&rec).Update("data", datatypes.JSON(raw)).Error
	})
	if err != nil {
		return "", storageErr("set global doc", err)
	}
	return docID, nil
}

func (s *Postgres) AddGlobalDoc(collection string, data Document) (string, error) {
	return s.SetGlobalDoc(collection, newDocID(), data)
}

func (s *Postgres) UpdateGlobalDoc(collection, docID string, partial Document) error {
	if err := validateGlobalPair(collection, docID); err != nil {
		return err
	}
	raw, err := encodeData(partial)
	if err != nil {
		return err
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		var rec GlobalDocument
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&rec, "collection = ? AND doc_id = ?", collection, docID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return tx.Create(&GlobalDocument{
				Collection: collection,
				DocID:      docID,
				Data:       datatypes.JSON(raw),
			}).Error
		}
		if err != nil {
			return err
		}

		merged := shallowMerge(decodeData(rec.Data), partial)
		mergedRaw, err := encodeData(merged)
		if err != nil {
			return err
		}
		return tx.Model(&rec).Update("data", datatypes.JSON(mergedRaw)).Error
	})
	if err != nil {
		if errors.Is(err, ErrInvalidArgument) {
			return err
		}
		return storageErr("update global doc", err)
	}
	return nil
}

func (s *Postgres) DeleteGlobalDoc(collection, docID string) error {
	if err := validateGlobalPair(collection, docID); err != nil {
		return err
	}
	err := s.db.Where("collection = ? AND doc_id = ?", collection, docID).Delete(&GlobalDocument{}).Error
	if err != nil {
		return storageErr("delete global doc", err)
	}
	return nil
}

func (s *Postgres) QueryGlobalDocs(collection string, q Query) ([]Document, error) {
	if err := validateCollection(collection); err != nil {
		return nil, err
	}
	if err := validateQuery(q); err != nil {
		return nil, err
	}

	db := s.db.Model(&GlobalDocument{}).Where("collection = ?", collection)
	db = applyJSONQuery(db, q)

	var rows []GlobalDocument
	if err := db.Find(&rows).Error; err != nil {
		return nil, storageErr("query global docs", err)
	}

	out := make([]Document, 0, len(rows))
	for _, r := range rows {
		doc := decodeData(r.Data)
		doc["_id"] = r.DocID
		out = append(out, doc)
	}
	return out, nil
}

func (s *Postgres) QueryCollectionGroup(collection string, q Query) ([]Document, error) {
	if err := validateCollection(collection); err != nil {
		return nil, err
	}
	if err := validateQuery(q); err != nil {
		return nil, err
	}

	db := s.db.Model(&UserDocument{}).Where("collection = ?", collection)
	db = applyJSONQuery(db, q)

	var rows []UserDocument
	if err := db.Find(&rows).Error; err != nil {
		return nil, storageErr("query collection group", err)
	}

	out := make([]Document, 0, len(rows))
	for _, r := range rows {
		doc := decodeData(r.Data)
		doc["_id"] = r.DocID
		doc["_user_id"] = r.UserID
		out = append(out, doc)
	}
	return out, nil
}

// --- helpers ---

// applyJSONQuery translates filter/sort/limit into JSON-path SQL. Keys have
// already been validated against identRe, so interpolating them is safe.
func applyJSONQuery(db *gorm.DB, q Query) *gorm.DB {
	for k, v := range q.Filters {
		db = db.Where(fmt.Sprintf("data->>'%s' = ?", k), stringifyFilterValue(v))
	}
	if q.OrderBy != "" {
		db = db.Order(fmt.Sprintf("data->>'%s' %s", q.OrderBy, q.direction()))
	} else {
		db = db.Order("created_at DESC")
	}
	if q.Limit > 0 {
		db = db.Limit(q.Limit)
	}
	return db
}

func newUserRecord(userID string, fields Document, raw []byte) *UserRecord {
	return &UserRecord{
		ID:          userID,
		Email:       stringField(fields, "email"),
		DisplayName: stringField(fields, "display_name"),
		PhotoURL:    stringField(fields, "photo_url"),
		PhoneNumber: stringField(fields, "phone_number"),
		Data:        datatypes.JSON(raw),
	}
}

// applyPromoted refreshes promoted columns whose keys appear in the incoming
// fields. Keys absent from the payload leave their columns untouched.
func applyPromoted(updates map[string]interface{}, fields Document) {
	for _, key := range promotedUserFields {
		if v, ok := fields[key]; ok {
			if s, ok := v.(string); ok {
				updates[key] = s
			}
		}
	}
}

// userRecordDocument flattens a user row back into a single document.
// Promoted columns win on key collision and timestamps come back normalized.
func userRecordDocument(rec *UserRecord) Document {
	doc := decodeData(rec.Data)
	if rec.Email != nil {
		doc["email"] = *rec.Email
	}
	if rec.DisplayName != nil {
		doc["display_name"] = *rec.DisplayName
	}
	if rec.PhotoURL != nil {
		doc["photo_url"] = *rec.PhotoURL
	}
	if rec.PhoneNumber != nil {
		doc["phone_number"] = *rec.PhoneNumber
	}
	doc["created_at"] = rec.CreatedAt.UTC().Format(time.RFC3339Nano)
	doc["updated_at"] = rec.UpdatedAt.UTC().Format(time.RFC3339Nano)
	return doc
}

func validateDocTriple(userID, collection, docID string) error {
	if err := validateID("user id", userID); err != nil {
		return err
	}
	if err := validateCollection(collection); err != nil {
		return err
	}
	return validateID("doc id", docID)
}

func validateGlobalPair(collection, docID string) error {
	if err := validateCollection(collection); err != nil {
		return err
	}
	return validateID("doc id", docID)
}
