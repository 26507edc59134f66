package mongostore

import (
	"context"

	"github.com/openedx/forum/src/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type mappingDoc struct {
	SourceID    string             `bson:"_id"`
	ContentType models.ContentType `bson:"content_type"`
	ContentID   string             `bson:"content_id"`
}

func (s *Store) MapIdentity(ctx context.Context, sourceID string, ref models.ContentRef) error {
	_, err := s.mappings.ReplaceOne(ctx,
		bson.M{"_id": sourceID},
		mappingDoc{SourceID: sourceID, ContentType: ref.Type, ContentID: ref.ID},
		options.Replace().SetUpsert(true),
	)
	return err
}

func (s *Store) LookupIdentity(ctx context.Context, sourceID string) (models.ContentRef, error) {
	var doc mappingDoc
	err := s.mappings.FindOne(ctx, bson.M{"_id": sourceID}).Decode(&doc)
	if err != nil {
		return models.ContentRef{}, translateNoDocuments(err)
	}
	return models.ContentRef{Type: doc.ContentType, ID: doc.ContentID}, nil
}
