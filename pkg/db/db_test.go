package db

import (
	"context"
	"fmt"
	"testing"
	"time"

	"altiora-site/pkg/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
)

const testMongoURI = "mongodb://localhost:27017"

// setupDatabase connects to a local mongod and hands out a throwaway database.
func setupDatabase(t *testing.T) (*Client, context.Context) {
	t.Helper()
	if testing.Short() {
		t.Skip("Skipping integration test")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	t.Cleanup(cancel)

	name := fmt.Sprintf("altiora_test_%d", time.Now().UnixNano())
	client := NewClient(testMongoURI, name)
	pingCtx, pingCancel := context.WithTimeout(ctx, 3*time.Second)
	defer pingCancel()
	if err := client.Connect(pingCtx); err != nil {
		t.Skipf("mongo not reachable at %s: %v", testMongoURI, err)
	}

	t.Cleanup(func() {
		_ = client.database.Drop(context.Background())
		_ = client.Close(context.Background())
	})
	return client, ctx
}

func TestToSetFieldsDropsIdentity(t *testing.T) {
	doc := struct {
		ID        string `bson:"_id,omitempty"`
		Slug      string `bson:"slug"`
		CreatedAt string `bson:"createdAt"`
	}{ID: "x", Slug: "defi", CreatedAt: "then"}

	fields, err := toSetFields(doc)
	require.NoError(t, err)
	assert.Equal(t, "defi", fields["slug"])
	assert.NotContains(t, fields, "_id")
	assert.NotContains(t, fields, "createdAt")
}

func TestIntegration_UpsertDocumentKeepsCreatedAt(t *testing.T) {
	client, ctx := setupDatabase(t)

	page := &domain.ServicePage{Slug: "defi-development", Title: "DeFi Development"}
	first, err := client.UpsertDocument(ctx, CollectionWeb3Services, "slug", page.Slug, page)
	require.NoError(t, err)
	assert.True(t, first.Inserted)

	stored, err := client.FindPage(ctx, CollectionWeb3Services, page.Slug)
	require.NoError(t, err)
	createdAt, updatedAt := stored.CreatedAt, stored.UpdatedAt
	require.False(t, createdAt.IsZero())

	// Mongo dates are millisecond precision.
	time.Sleep(20 * time.Millisecond)

	page.Title = "DeFi Development Services"
	second, err := client.UpsertDocument(ctx, CollectionWeb3Services, "slug", page.Slug, page)
	require.NoError(t, err)
	assert.False(t, second.Inserted)
	assert.True(t, second.Modified)

	coll, err := client.collection(CollectionWeb3Services)
	require.NoError(t, err)
	count, err := coll.CountDocuments(ctx, bson.M{"slug": page.Slug})
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)

	stored, err = client.FindPage(ctx, CollectionWeb3Services, page.Slug)
	require.NoError(t, err)
	assert.Equal(t, "DeFi Development Services", stored.Title)
	assert.True(t, stored.CreatedAt.Equal(createdAt), "createdAt moved: %v -> %v", createdAt, stored.CreatedAt)
	assert.True(t, stored.UpdatedAt.After(updatedAt), "updatedAt not advanced: %v -> %v", updatedAt, stored.UpdatedAt)
}

func TestIntegration_SaveContactAndMarkEmails(t *testing.T) {
	client, ctx := setupDatabase(t)

	contact := &domain.Contact{
		FirstName: "Ada",
		LastName:  "Lovelace",
		Email:     "ada@example.com",
		Country:   "GB",
		Message:   "We need a smart contract audit.",
	}
	id, err := client.SaveContact(ctx, contact)
	require.NoError(t, err)
	assert.False(t, id.IsZero())
	assert.Equal(t, id, contact.ID)

	require.NoError(t, client.MarkContactEmails(ctx, id, true, false))

	contacts, err := client.GetAllContacts(ctx)
	require.NoError(t, err)
	require.Len(t, contacts, 1)
	got := contacts[0]
	assert.Equal(t, domain.ContactStatusNew, got.Status)
	assert.True(t, got.AdminEmailSent)
	assert.False(t, got.AutoReplySent)
	assert.NotNil(t, got.Attachments)
	assert.Empty(t, got.Attachments)
	assert.False(t, got.UpdatedAt.Before(got.CreatedAt))

	coll, err := client.collection(CollectionContacts)
	require.NoError(t, err)
	var raw bson.M
	require.NoError(t, coll.FindOne(ctx, bson.M{"_id": id}).Decode(&raw))
	assert.Equal(t, bson.A{}, raw["attachments"], "attachments stored as an empty array, not null")
}

func TestIntegration_ListBlogPostsNewestFirstWithoutContent(t *testing.T) {
	client, ctx := setupDatabase(t)

	base := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	// Inserted out of order so the sort is what orders them.
	for _, seed := range []struct {
		slug string
		days int
	}{{"oldest", 0}, {"newest", 2}, {"middle", 1}} {
		post := &domain.BlogPost{
			Slug:        seed.slug,
			Title:       "Post " + seed.slug,
			Excerpt:     "short",
			Content:     "<p>full body</p>",
			PublishedAt: base.AddDate(0, 0, seed.days),
		}
		require.NoError(t, client.SaveBlogPost(ctx, post))
	}

	posts, err := client.ListBlogPosts(ctx, 10, 0)
	require.NoError(t, err)
	require.Len(t, posts, 3)
	var slugs []string
	for _, p := range posts {
		slugs = append(slugs, p.Slug)
		assert.Empty(t, p.Content, "list projection should drop content for %s", p.Slug)
		assert.Equal(t, "short", p.Excerpt)
	}
	assert.Equal(t, []string{"newest", "middle", "oldest"}, slugs)

	page, err := client.ListBlogPosts(ctx, 1, 1)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "middle", page[0].Slug)

	full, err := client.FindBlogPost(ctx, "newest")
	require.NoError(t, err)
	assert.Equal(t, "<p>full body</p>", full.Content)
}
