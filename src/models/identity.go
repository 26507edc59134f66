package models

// A permanent record that a piece of content from another storage engine
// was migrated into this one. Keyed by the original (source) id; written
// once per item and then only idempotently re-upserted, so re-running a
// migration finds existing targets instead of creating duplicates.
type ContentMapping struct {
	SourceID    string      `db:"source_id"`
	ContentType ContentType `db:"content_type"`
	ContentID   string      `db:"content_id"`
}

func (m *ContentMapping) Ref() ContentRef {
	return ContentRef{Type: m.ContentType, ID: m.ContentID}
}
