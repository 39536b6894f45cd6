package knowledge

import (
	"time"

	"github.com/pgvector/pgvector-go"
)

const StatusReady = "ready"

// Chunk is an embedded knowledge-base fragment. This core only reads chunks;
// ingestion and embedding of documents happens elsewhere.
type Chunk struct {
	ID       uint64 `gorm:"primaryKey;autoIncrement"`
	TenantID string `gorm:"type:varchar(36);index;not null"`

	Content   string          `gorm:"type:text;not null"`
	Status    string          `gorm:"type:varchar(16);index;not null"`
	Embedding pgvector.Vector `gorm:"type:vector(1536)"`

	CreatedAt time.Time
}

func (Chunk) TableName() string { return "knowledge_chunks" }
