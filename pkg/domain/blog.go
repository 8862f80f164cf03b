package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// BlogPost is an article in the blogposts collection. Imported posts are
// keyed by SourceURL; hand-written ones leave it empty.
type BlogPost struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	Slug        string             `bson:"slug" json:"slug"`
	Title       string             `bson:"title" json:"title"`
	Excerpt     string             `bson:"excerpt" json:"excerpt"`
	Content     string             `bson:"content" json:"content,omitempty"`
	Author      string             `bson:"author,omitempty" json:"author,omitempty"`
	Tags        []string           `bson:"tags,omitempty" json:"tags,omitempty"`
	CoverImage  string             `bson:"coverImage,omitempty" json:"coverImage,omitempty"`
	SourceURL   string             `bson:"sourceUrl,omitempty" json:"sourceUrl,omitempty"`
	PublishedAt time.Time          `bson:"publishedAt" json:"publishedAt"`
	ImportedAt  time.Time          `bson:"importedAt,omitempty" json:"importedAt,omitempty"`
}
