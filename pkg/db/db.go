package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"altiora-site/pkg/domain"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Collection names. One collection per page family.
const (
	CollectionWeb3Services = "web3Services"
	CollectionAIMLServices = "ai-ml-services"
	CollectionMainPages    = "mainpages"
	CollectionProjects     = "projects"
	CollectionContacts     = "contactmessages"
	CollectionBlogPosts    = "blogposts"
)

// ErrNotFound is returned when a lookup matches no document.
var ErrNotFound = errors.New("document not found")

// Client wraps the MongoDB client and database connection
type Client struct {
	mongoClient *mongo.Client
	database    *mongo.Database
	connectErr  error
}

// NewClient creates a new database client. Connection errors surface from Connect.
func NewClient(connectionString, databaseName string) *Client {
	clientOptions := options.Client().
		ApplyURI(connectionString).
		SetServerSelectionTimeout(10 * time.Second)

	mongoClient, err := mongo.Connect(context.Background(), clientOptions)
	if err != nil {
		return &Client{connectErr: err}
	}

	return &Client{
		mongoClient: mongoClient,
		database:    mongoClient.Database(databaseName),
	}
}

// Connect verifies the connection with a ping.
func (c *Client) Connect(ctx context.Context) error {
	if c.mongoClient == nil {
		if c.connectErr != nil {
			return fmt.Errorf("mongo client not initialized: %w", c.connectErr)
		}
		return fmt.Errorf("mongo client not initialized")
	}
	return c.mongoClient.Ping(ctx, nil)
}

// Ping reports whether the server is reachable.
func (c *Client) Ping(ctx context.Context) error {
	return c.Connect(ctx)
}

// Close closes the MongoDB connection
func (c *Client) Close(ctx context.Context) error {
	if c.mongoClient == nil {
		return nil
	}
	return c.mongoClient.Disconnect(ctx)
}

func (c *Client) collection(name string) (*mongo.Collection, error) {
	if c.database == nil {
		return nil, fmt.Errorf("database not initialized")
	}
	return c.database.Collection(name), nil
}

// UpsertResult tells whether an upsert created a new document.
type UpsertResult struct {
	Inserted bool
	Modified bool
}

// UpsertDocument writes doc into collection, matching on key == value.
// Content fields and updatedAt are replaced on every run; createdAt is only
// written when the document is first inserted, so re-running is idempotent.
func (c *Client) UpsertDocument(ctx context.Context, collectionName, key string, value interface{}, doc interface{}) (UpsertResult, error) {
	coll, err := c.collection(collectionName)
	if err != nil {
		return UpsertResult{}, err
	}

	fields, err := toSetFields(doc)
	if err != nil {
		return UpsertResult{}, err
	}

	now := time.Now().UTC()
	fields["updatedAt"] = now

	update := bson.M{
		"$set":         fields,
		"$setOnInsert": bson.M{"createdAt": now},
	}

	res, err := coll.UpdateOne(ctx, bson.M{key: value}, update, options.Update().SetUpsert(true))
	if err != nil {
		return UpsertResult{}, fmt.Errorf("upsert %s %s=%v: %w", collectionName, key, value, err)
	}
	return UpsertResult{Inserted: res.UpsertedCount > 0, Modified: res.ModifiedCount > 0}, nil
}

// toSetFields flattens doc into a $set document without _id and createdAt.
func toSetFields(doc interface{}) (bson.M, error) {
	raw, err := bson.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("marshal document: %w", err)
	}
	var fields bson.M
	if err := bson.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("unmarshal document: %w", err)
	}
	delete(fields, "_id")
	delete(fields, "createdAt")
	return fields, nil
}

// SaveContact inserts a new contact submission and returns its id.
func (c *Client) SaveContact(ctx context.Context, contact *domain.Contact) (primitive.ObjectID, error) {
	coll, err := c.collection(CollectionContacts)
	if err != nil {
		return primitive.NilObjectID, err
	}

	now := time.Now().UTC()
	if contact.CreatedAt.IsZero() {
		contact.CreatedAt = now
	}
	contact.UpdatedAt = now
	if contact.Status == "" {
		contact.Status = domain.ContactStatusNew
	}
	if contact.Attachments == nil {
		contact.Attachments = []domain.Attachment{}
	}

	res, err := coll.InsertOne(ctx, contact)
	if err != nil {
		return primitive.NilObjectID, fmt.Errorf("insert contact: %w", err)
	}
	id, ok := res.InsertedID.(primitive.ObjectID)
	if !ok {
		return primitive.NilObjectID, fmt.Errorf("unexpected inserted id type %T", res.InsertedID)
	}
	contact.ID = id
	return id, nil
}

// MarkContactEmails records which notification emails were accepted by SMTP.
func (c *Client) MarkContactEmails(ctx context.Context, id primitive.ObjectID, adminSent, autoReplySent bool) error {
	coll, err := c.collection(CollectionContacts)
	if err != nil {
		return err
	}
	_, err = coll.UpdateByID(ctx, id, bson.M{"$set": bson.M{
		"adminEmailSent": adminSent,
		"autoReplySent":  autoReplySent,
		"updatedAt":      time.Now().UTC(),
	}})
	if err != nil {
		return fmt.Errorf("update contact %s: %w", id.Hex(), err)
	}
	return nil
}

// GetAllContacts returns every contact submission, oldest first.
func (c *Client) GetAllContacts(ctx context.Context) ([]domain.Contact, error) {
	coll, err := c.collection(CollectionContacts)
	if err != nil {
		return nil, err
	}

	cursor, err := coll.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("failed to query contacts: %w", err)
	}
	defer cursor.Close(ctx)

	var contacts []domain.Contact
	if err := cursor.All(ctx, &contacts); err != nil {
		return nil, fmt.Errorf("decode contacts: %w", err)
	}
	return contacts, nil
}

// FindPage returns the service page with the given slug from collectionName.
func (c *Client) FindPage(ctx context.Context, collectionName, slug string) (*domain.ServicePage, error) {
	var page domain.ServicePage
	if err := c.findOne(ctx, collectionName, bson.M{"slug": slug}, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// FindProject returns a project by slug.
func (c *Client) FindProject(ctx context.Context, slug string) (*domain.Project, error) {
	var p domain.Project
	if err := c.findOne(ctx, CollectionProjects, bson.M{"slug": slug}, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// ListProjects returns all projects, newest first.
func (c *Client) ListProjects(ctx context.Context) ([]domain.Project, error) {
	coll, err := c.collection(CollectionProjects)
	if err != nil {
		return nil, err
	}
	cursor, err := coll.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}))
	if err != nil {
		return nil, fmt.Errorf("failed to query projects: %w", err)
	}
	defer cursor.Close(ctx)

	projects := []domain.Project{}
	if err := cursor.All(ctx, &projects); err != nil {
		return nil, fmt.Errorf("decode projects: %w", err)
	}
	return projects, nil
}

// FindBlogPost returns a blog post by slug.
func (c *Client) FindBlogPost(ctx context.Context, slug string) (*domain.BlogPost, error) {
	var p domain.BlogPost
	if err := c.findOne(ctx, CollectionBlogPosts, bson.M{"slug": slug}, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// ListBlogPosts returns one page of posts, newest first, without the body.
func (c *Client) ListBlogPosts(ctx context.Context, limit, skip int64) ([]domain.BlogPost, error) {
	coll, err := c.collection(CollectionBlogPosts)
	if err != nil {
		return nil, err
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "publishedAt", Value: -1}}).
		SetLimit(limit).
		SetSkip(skip).
		SetProjection(bson.M{"content": 0})

	cursor, err := coll.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query blog posts: %w", err)
	}
	defer cursor.Close(ctx)

	posts := []domain.BlogPost{}
	if err := cursor.All(ctx, &posts); err != nil {
		return nil, fmt.Errorf("decode blog posts: %w", err)
	}
	return posts, nil
}

// SaveBlogPost upserts an imported post keyed by its source URL.
func (c *Client) SaveBlogPost(ctx context.Context, post *domain.BlogPost) error {
	if post.SourceURL == "" {
		return c.upsertBySlug(ctx, post)
	}
	_, err := c.UpsertDocument(ctx, CollectionBlogPosts, "sourceUrl", post.SourceURL, post)
	return err
}

func (c *Client) upsertBySlug(ctx context.Context, post *domain.BlogPost) error {
	if post.Slug == "" {
		return fmt.Errorf("blog post needs a slug or a source URL")
	}
	_, err := c.UpsertDocument(ctx, CollectionBlogPosts, "slug", post.Slug, post)
	return err
}

// GetAllBlogSourceURLs fetches all imported source URLs as a set.
func (c *Client) GetAllBlogSourceURLs(ctx context.Context) (map[string]bool, error) {
	coll, err := c.collection(CollectionBlogPosts)
	if err != nil {
		return nil, err
	}

	filter := bson.M{"sourceUrl": bson.M{"$exists": true, "$ne": ""}}
	cursor, err := coll.Find(ctx, filter, options.Find().SetProjection(bson.M{"sourceUrl": 1, "_id": 0}))
	if err != nil {
		return nil, fmt.Errorf("failed to query URLs: %w", err)
	}
	defer cursor.Close(ctx)

	urlSet := make(map[string]bool)
	for cursor.Next(ctx) {
		var result struct {
			SourceURL string `bson:"sourceUrl"`
		}
		if err := cursor.Decode(&result); err != nil {
			continue // Skip invalid documents
		}
		if result.SourceURL != "" {
			urlSet[result.SourceURL] = true
		}
	}

	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("cursor error: %w", err)
	}

	return urlSet, nil
}

// SlugEntry is a slug and when its document last changed.
type SlugEntry struct {
	Slug      string    `bson:"slug"`
	UpdatedAt time.Time `bson:"updatedAt"`
}

// ListSlugs returns the slug and updatedAt of every document in collectionName.
func (c *Client) ListSlugs(ctx context.Context, collectionName string) ([]SlugEntry, error) {
	coll, err := c.collection(collectionName)
	if err != nil {
		return nil, err
	}
	opts := options.Find().
		SetProjection(bson.M{"slug": 1, "updatedAt": 1, "_id": 0}).
		SetSort(bson.D{{Key: "slug", Value: 1}})

	cursor, err := coll.Find(ctx, bson.M{"slug": bson.M{"$exists": true, "$ne": ""}}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s slugs: %w", collectionName, err)
	}
	defer cursor.Close(ctx)

	var entries []SlugEntry
	if err := cursor.All(ctx, &entries); err != nil {
		return nil, fmt.Errorf("decode %s slugs: %w", collectionName, err)
	}
	return entries, nil
}

func (c *Client) findOne(ctx context.Context, collectionName string, filter bson.M, out interface{}) error {
	coll, err := c.collection(collectionName)
	if err != nil {
		return err
	}
	err = coll.FindOne(ctx, filter).Decode(out)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("find in %s: %w", collectionName, err)
	}
	return nil
}
