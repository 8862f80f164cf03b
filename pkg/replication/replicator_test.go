package replication

import (
	"context"
	"os"
	"testing"
	"time"

	"altiora-site/pkg/db"
	"altiora-site/pkg/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestBuildIDInQuery(t *testing.T) {
	assert.Equal(t, "SELECT id FROM contact_message WHERE id IN ($1)", buildIDInQuery(1))
	assert.Equal(t, "SELECT id FROM contact_message WHERE id IN ($1, $2, $3)", buildIDInQuery(3))
}

func TestSplitBatches(t *testing.T) {
	contacts := make([]domain.Contact, 7)
	batches := splitBatches(contacts, 3)
	require.Len(t, batches, 3)
	assert.Len(t, batches[0], 3)
	assert.Len(t, batches[2], 1)
	assert.Empty(t, splitBatches(nil, 3))
}

func TestFilterNew(t *testing.T) {
	a, b := primitive.NewObjectID(), primitive.NewObjectID()
	batch := []domain.Contact{{ID: a}, {ID: b}, {}}

	got := filterNew(batch, map[string]bool{a.Hex(): true})
	require.Len(t, got, 1)
	assert.Equal(t, b, got[0].ID)
}

func TestRowArgs(t *testing.T) {
	c := domain.Contact{
		ID:          primitive.NewObjectID(),
		FirstName:   "Priya",
		PhoneCode:   "+91",
		PhoneNumber: "98765 43210",
		CreatedAt:   time.Date(2025, 7, 4, 0, 0, 0, 0, time.UTC),
	}
	args, err := rowArgs(c)
	require.NoError(t, err)
	require.Len(t, args, 14)
	assert.Equal(t, c.ID.Hex(), args[0])
	assert.Equal(t, "+91 98765 43210", args[6])
	assert.Equal(t, "[]", args[8])
	assert.Equal(t, domain.ContactStatusNew, args[9])
}

func TestNewReplicatorRequiresClients(t *testing.T) {
	_, err := NewReplicator(Config{})
	assert.Error(t, err)
	_, err = NewReplicator(Config{Mongo: staticSource(nil)})
	assert.Error(t, err)
}

type staticSource []domain.Contact

func (s staticSource) GetAllContacts(context.Context) ([]domain.Contact, error) { return s, nil }

// Runs against a real database when POSTGRES_TEST_DSN is set.
func TestReplicateContacts_Postgres(t *testing.T) {
	dsn := os.Getenv("POSTGRES_TEST_DSN")
	if testing.Short() || dsn == "" {
		t.Skip("set POSTGRES_TEST_DSN to run against Postgres")
	}
	ctx := context.Background()
	pg := db.NewPostgresClient(db.PostgresConfig{DSN: dsn})
	require.NoError(t, pg.Connect(ctx))
	defer pg.Close()

	src := staticSource{
		{ID: primitive.NewObjectID(), FirstName: "A", Email: "a@example.com", CreatedAt: time.Now(), UpdatedAt: time.Now()},
		{ID: primitive.NewObjectID(), FirstName: "B", Email: "b@example.com", CreatedAt: time.Now(), UpdatedAt: time.Now()},
	}
	r, err := NewReplicator(Config{Mongo: src, Postgres: pg, BatchSize: 1})
	require.NoError(t, err)

	first, err := r.ReplicateContacts(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, first.Inserted)

	second, err := r.ReplicateContacts(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, second.Inserted)
	assert.Equal(t, 2, second.Skipped)

	for _, c := range src {
		_, _ = pg.DB().ExecContext(ctx, "DELETE FROM contact_message WHERE id = $1", c.ID.Hex())
	}
}
