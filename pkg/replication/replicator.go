// Package replication copies contact submissions from MongoDB into a
// Postgres table (plain Postgres or Supabase) for reporting.
package replication

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"altiora-site/pkg/db"
	"altiora-site/pkg/domain"
	"altiora-site/pkg/logging"
	"altiora-site/pkg/worker"

	"github.com/goccy/go-json"
)

// ContactTable is the Postgres table contacts are exported into.
const ContactTable = "contact_message"

const (
	defaultBatchSize = 100
	defaultWorkers   = 5
)

// ContactSource lists every stored submission.
type ContactSource interface {
	GetAllContacts(ctx context.Context) ([]domain.Contact, error)
}

// Config wires the replication dependencies.
type Config struct {
	Mongo     ContactSource
	Postgres  db.DBProvider
	BatchSize int
	Workers   int
}

// Replicator copies contacts from MongoDB to Postgres. It is a one-shot
// "copy everything" run; rows that already exist are skipped.
type Replicator struct {
	mongo     ContactSource
	pg        db.DBProvider
	batchSize int
	workers   int
}

// Stats reports one run.
type Stats struct {
	Read     int
	Inserted int
	Skipped  int
}

func NewReplicator(cfg Config) (*Replicator, error) {
	if cfg.Mongo == nil {
		return nil, fmt.Errorf("mongo client is required")
	}
	if cfg.Postgres == nil {
		return nil, fmt.Errorf("postgres client is required")
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = defaultBatchSize
	}
	if cfg.Workers <= 0 {
		cfg.Workers = defaultWorkers
	}
	return &Replicator{
		mongo:     cfg.Mongo,
		pg:        cfg.Postgres,
		batchSize: cfg.BatchSize,
		workers:   cfg.Workers,
	}, nil
}

// ReplicateContacts reads all contacts from Mongo and inserts the ones not
// yet present into contact_message, keyed by the Mongo id.
func (r *Replicator) ReplicateContacts(ctx context.Context) (Stats, error) {
	log := logging.Ctx(ctx)

	if err := r.ensureSchema(ctx); err != nil {
		return Stats{}, err
	}

	contacts, err := r.mongo.GetAllContacts(ctx)
	if err != nil {
		return Stats{}, fmt.Errorf("read contacts: %w", err)
	}
	log.Info().Int("contacts", len(contacts)).Int("batch_size", r.batchSize).Msg("loaded contacts from mongo")

	batches := splitBatches(contacts, r.batchSize)
	results, sum := worker.Process(ctx, worker.NewManager(r.workers), batches, r.processBatch)

	stats := Stats{Read: len(contacts)}
	var firstErr error
	for _, res := range results {
		if res.Err != nil {
			if firstErr == nil {
				firstErr = res.Err
			}
			continue
		}
		stats.Inserted += res.Value
		stats.Skipped += len(res.Job) - res.Value
	}

	log.Info().
		Int("read", stats.Read).
		Int("inserted", stats.Inserted).
		Int("skipped", stats.Skipped).
		Int("failed_batches", sum.Failed).
		Msg("contact export finished")
	return stats, firstErr
}

func splitBatches(contacts []domain.Contact, size int) [][]domain.Contact {
	var out [][]domain.Contact
	for start := 0; start < len(contacts); start += size {
		end := start + size
		if end > len(contacts) {
			end = len(contacts)
		}
		out = append(out, contacts[start:end])
	}
	return out
}

// processBatch inserts the contacts of batch that Postgres does not have yet
// and returns how many were inserted.
func (r *Replicator) processBatch(ctx context.Context, batch []domain.Contact) (int, error) {
	existing, err := r.existingIDs(ctx, batch)
	if err != nil {
		return 0, err
	}
	toInsert := filterNew(batch, existing)
	if len(toInsert) == 0 {
		return 0, nil
	}
	if err := r.insertTx(ctx, toInsert); err != nil {
		return 0, err
	}
	logging.Ctx(ctx).Debug().Int("inserted", len(toInsert)).Int("existing", len(existing)).Msg("batch exported")
	return len(toInsert), nil
}

const schemaDDL = `
CREATE TABLE IF NOT EXISTS contact_message (
  id TEXT PRIMARY KEY,
  first_name TEXT NOT NULL DEFAULT '',
  last_name TEXT NOT NULL DEFAULT '',
  email TEXT NOT NULL DEFAULT '',
  company TEXT NOT NULL DEFAULT '',
  country TEXT NOT NULL DEFAULT '',
  phone TEXT NOT NULL DEFAULT '',
  message TEXT NOT NULL DEFAULT '',
  attachments JSONB NOT NULL DEFAULT '[]'::jsonb,
  status TEXT NOT NULL DEFAULT 'new',
  admin_email_sent BOOLEAN NOT NULL DEFAULT false,
  auto_reply_sent BOOLEAN NOT NULL DEFAULT false,
  created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
  updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);`

func (r *Replicator) ensureSchema(ctx context.Context) error {
	if r.pg.DB() == nil {
		return fmt.Errorf("postgres DB not connected")
	}
	if _, err := r.pg.DB().ExecContext(ctx, schemaDDL); err != nil {
		return fmt.Errorf("create contact_message table: %w", err)
	}
	return nil
}

func (r *Replicator) existingIDs(ctx context.Context, batch []domain.Contact) (map[string]bool, error) {
	ids := make([]interface{}, 0, len(batch))
	for _, c := range batch {
		if !c.ID.IsZero() {
			ids = append(ids, c.ID.Hex())
		}
	}
	if len(ids) == 0 {
		return map[string]bool{}, nil
	}

	rows, err := r.pg.DB().QueryContext(ctx, buildIDInQuery(len(ids)), ids...)
	if err != nil {
		return nil, fmt.Errorf("query existing ids: %w", err)
	}
	defer rows.Close()

	set := make(map[string]bool, len(ids))
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan id: %w", err)
		}
		set[id] = true
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return set, nil
}

// buildIDInQuery returns SELECT id ... WHERE id IN ($1, ..., $n).
func buildIDInQuery(n int) string {
	var b strings.Builder
	b.WriteString("SELECT id FROM contact_message WHERE id IN (")
	for i := 1; i <= n; i++ {
		if i > 1 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "$%d", i)
	}
	b.WriteString(")")
	return b.String()
}

func filterNew(batch []domain.Contact, existing map[string]bool) []domain.Contact {
	out := make([]domain.Contact, 0, len(batch))
	for _, c := range batch {
		if c.ID.IsZero() || existing[c.ID.Hex()] {
			continue
		}
		out = append(out, c)
	}
	return out
}

const insertQuery = `
INSERT INTO contact_message (
  id, first_name, last_name, email, company, country, phone, message,
  attachments, status, admin_email_sent, auto_reply_sent, created_at, updated_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9::jsonb, $10, $11, $12, $13, $14)
ON CONFLICT (id) DO NOTHING`

func (r *Replicator) insertTx(ctx context.Context, batch []domain.Contact) error {
	tx, err := r.pg.DB().BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, c := range batch {
		args, err := rowArgs(c)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, insertQuery, args...); err != nil {
			return fmt.Errorf("insert contact id=%s: %w", c.ID.Hex(), err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// rowArgs maps a contact onto the insert placeholders.
func rowArgs(c domain.Contact) ([]interface{}, error) {
	attachments := c.Attachments
	if attachments == nil {
		attachments = []domain.Attachment{}
	}
	attJSON, err := json.Marshal(attachments)
	if err != nil {
		return nil, fmt.Errorf("encode attachments of %s: %w", c.ID.Hex(), err)
	}
	status := c.Status
	if status == "" {
		status = domain.ContactStatusNew
	}
	return []interface{}{
		c.ID.Hex(), c.FirstName, c.LastName, c.Email, c.Company, c.Country, c.Phone(), c.Message,
		string(attJSON), status, c.AdminEmailSent, c.AutoReplySent, c.CreatedAt, c.UpdatedAt,
	}, nil
}
