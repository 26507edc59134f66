package forumdata

import (
	"context"

	"github.com/openedx/forum/src/models"
)

// Content is the narrow view of a thread or comment that engine-independent
// services need: its identity and its shared author/course/anonymity fields.
// Both models.Thread and models.Comment satisfy it.
type Content interface {
	Ref() models.ContentRef
	Content() *models.ContentFields
}

// Fetches whichever kind of content the ref points at.
func GetContent(ctx context.Context, s Store, ref models.ContentRef) (Content, error) {
	switch ref.Type {
	case models.ContentTypeThread:
		return s.GetThread(ctx, ref.ID)
	case models.ContentTypeComment:
		return s.GetComment(ctx, ref.ID)
	default:
		return nil, validationf("unknown content type %q", ref.Type)
	}
}
