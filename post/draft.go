package post

import (
	"github.com/keshan-spec/drivelife-app-core/upload"
)

// TaggedEntity is one taggable-entity reference attached to a post.
type TaggedEntity struct {
	EntityID string `json:"entity_id"`
	Type     string `json:"type"`
	Name     string `json:"name"`
}

// Draft is the aggregate submitted as the authoritative create-post call.
// Immutable once submission starts.
type Draft struct {
	UserID         string
	Caption        string
	Location       string
	TaggedEntities []TaggedEntity
	Media          []upload.ManifestEntry
}
