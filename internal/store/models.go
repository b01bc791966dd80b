package store

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// UserRecord is the singleton per-identity row. The promoted columns mirror
// same-named keys inside Data for indexed filtering; Data stays the source
// of truth for everything else.
type UserRecord struct {
	ID          string         `gorm:"primaryKey;size:128" json:"id"`
	Email       *string        `gorm:"size:255;index" json:"email"`
	DisplayName *string        `gorm:"size:255" json:"display_name"`
	PhotoURL    *string        `gorm:"type:text" json:"photo_url"`
	PhoneNumber *string        `gorm:"size:32" json:"phone_number"`
	Data        datatypes.JSON `gorm:"type:jsonb;default:'{}'" json:"data"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

func (UserRecord) TableName() string { return "users" }

// UserDocument is one document in a per-user sub-collection. Rows are always
// addressed by the (user_id, collection, doc_id) triple; the uuid primary key
// only satisfies the storage engine.
type UserDocument struct {
	ID         uuid.UUID      `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"-"`
	UserID     string         `gorm:"size:128;not null;uniqueIndex:idx_user_docs_triple,priority:1;index:idx_user_docs_scope,priority:1" json:"user_id"`
	Collection string         `gorm:"size:100;not null;uniqueIndex:idx_user_docs_triple,priority:2;index:idx_user_docs_scope,priority:2" json:"collection"`
	DocID      string         `gorm:"size:128;not null;uniqueIndex:idx_user_docs_triple,priority:3" json:"doc_id"`
	Data       datatypes.JSON `gorm:"type:jsonb;default:'{}'" json:"data"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
}

func (UserDocument) TableName() string { return "user_documents" }

// GlobalDocument is a non-user-scoped document in a named collection.
type GlobalDocument struct {
	ID         uuid.UUID      `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"-"`
	Collection string         `gorm:"size:100;not null;uniqueIndex:idx_global_docs_pair,priority:1" json:"collection"`
	DocID      string         `gorm:"size:128;not null;uniqueIndex:idx_global_docs_pair,priority:2" json:"doc_id"`
	Data       datatypes.JSON `gorm:"type:jsonb;default:'{}'" json:"data"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
}

func (GlobalDocument) TableName() string { return "global_documents" }
