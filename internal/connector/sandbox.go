package connector

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"crmbridge/internal/query"
)

var _ Connector = (*SandboxClient)(nil)

// SandboxClient is a postgres-backed stand-in for the live CRM, used for
// offline development and demos. Records live as jsonb rows; filters are the
// strings the query builder emits, evaluated locally with query.Match.
type SandboxClient struct {
	pool *pgxpool.Pool
}

// NewSandbox opens the sandbox database and makes sure its schema exists.
func NewSandbox(ctx context.Context, dsn string) (*SandboxClient, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("creating sandbox pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging sandbox database: %w", err)
	}
	c := &SandboxClient{pool: pool}
	if err := c.ensureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return c, nil
}

func (c *SandboxClient) Close() {
	c.pool.Close()
}

func (c *SandboxClient) ensureSchema(ctx context.Context) error {
	ddl := `
CREATE TABLE IF NOT EXISTS sandbox_entities (
    logical_name TEXT PRIMARY KEY,
    metadata     JSONB NOT NULL
);

CREATE TABLE IF NOT EXISTS sandbox_records (
    entity_set TEXT NOT NULL,
    id         TEXT NOT NULL,
    data       JSONB NOT NULL DEFAULT '{}',
    CONSTRAINT uq_sandbox_record UNIQUE (entity_set, id)
);

CREATE INDEX IF NOT EXISTS idx_sandbox_records_set ON sandbox_records (entity_set);
`
	if _, err := c.pool.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("ensuring sandbox schema: %w", err)
	}
	return nil
}

func (c *SandboxClient) QueryEntities(ctx context.Context, entitySet string, opts QueryOptions) ([]Record, error) {
	rows, err := c.pool.Query(ctx,
		`SELECT id, data FROM sandbox_records WHERE entity_set = $1`, entitySet)
	if err != nil {
		return nil, fmt.Errorf("querying sandbox records: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var id string
		var data []byte
		if err := rows.Scan(&id, &data); err != nil {
			return nil, fmt.Errorf("scanning sandbox record: %w", err)
		}
		rec := Record{}
		if err := json.Unmarshal(data, &rec); err != nil {
			return nil, fmt.Errorf("unmarshaling sandbox record %s: %w", id, err)
		}
		if opts.Filter != "" {
			ok, err := query.Match(opts.Filter, rec)
			if err != nil {
				return nil, fmt.Errorf("evaluating filter: %w", err)
			}
			if !ok {
				continue
			}
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating sandbox records: %w", err)
	}

	sortRecords(records, opts.OrderBy)
	if opts.Top > 0 && len(records) > opts.Top {
		records = records[:opts.Top]
	}
	if len(opts.Select) > 0 {
		for i, rec := range records {
			records[i] = projectRecord(rec, opts.Select)
		}
	}
	return records, nil
}

func (c *SandboxClient) CreateEntity(ctx context.Context, entitySet string, data Record) (Record, error) {
	idField := query.IDField(entitySet)
	id, _ := data[idField].(string)
	if id == "" {
		id = uuid.NewString()
	}

	rec := Record{idField: id}
	for k, v := range data {
		rec[k] = v
	}
	encoded, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("marshaling record: %w", err)
	}
	_, err = c.pool.Exec(ctx,
		`INSERT INTO sandbox_records (entity_set, id, data) VALUES ($1, $2, $3)`,
		entitySet, id, encoded)
	if err != nil {
		return nil, fmt.Errorf("inserting sandbox record: %w", err)
	}
	return rec, nil
}

func (c *SandboxClient) UpdateEntity(ctx context.Context, entitySet, id string, data Record) error {
	patch, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshaling patch: %w", err)
	}
	tag, err := c.pool.Exec(ctx,
		`UPDATE sandbox_records SET data = data || $3 WHERE entity_set = $1 AND id = $2`,
		entitySet, id, patch)
	if err != nil {
		return fmt.Errorf("updating sandbox record: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("record %s(%s): %w", entitySet, id, ErrNotFound)
	}
	return nil
}

func (c *SandboxClient) DeleteEntity(ctx context.Context, entitySet, id string) error {
	tag, err := c.pool.Exec(ctx,
		`DELETE FROM sandbox_records WHERE entity_set = $1 AND id = $2`,
		entitySet, id)
	if err != nil {
		return fmt.Errorf("deleting sandbox record: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("record %s(%s): %w", entitySet, id, ErrNotFound)
	}
	return nil
}

func (c *SandboxClient) ListEntityDefinitions(ctx context.Context) ([]EntityMetadata, error) {
	rows, err := c.pool.Query(ctx, `SELECT metadata FROM sandbox_entities ORDER BY logical_name`)
	if err != nil {
		return nil, fmt.Errorf("listing sandbox entity definitions: %w", err)
	}
	defer rows.Close()

	var defs []EntityMetadata
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("scanning sandbox entity: %w", err)
		}
		var meta EntityMetadata
		if err := json.Unmarshal(data, &meta); err != nil {
			return nil, fmt.Errorf("unmarshaling sandbox entity: %w", err)
		}
		// Summaries only: attribute payloads load through GetEntityMetadata.
		meta.Attributes = nil
		meta.OneToMany = nil
		meta.ManyToOne = nil
		meta.ManyToMany = nil
		defs = append(defs, meta)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating sandbox entities: %w", err)
	}
	return defs, nil
}

func (c *SandboxClient) GetEntityMetadata(ctx context.Context, logicalName string, opts MetadataOptions) (*EntityMetadata, error) {
	var data []byte
	err := c.pool.QueryRow(ctx,
		`SELECT metadata FROM sandbox_entities WHERE logical_name = $1`, logicalName).Scan(&data)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("entity %s: %w", logicalName, ErrNotFound)
		}
		return nil, fmt.Errorf("fetching sandbox metadata for %s: %w", logicalName, err)
	}
	var meta EntityMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("unmarshaling sandbox metadata for %s: %w", logicalName, err)
	}
	if !opts.IncludeAttributes {
		meta.Attributes = nil
	}
	return &meta, nil
}

func (c *SandboxClient) GetAttributeMetadata(ctx context.Context, entityLogicalName, attributeLogicalName string, opts MetadataOptions) (*AttributeMetadata, error) {
	meta, err := c.GetEntityMetadata(ctx, entityLogicalName, MetadataOptions{IncludeAttributes: true, IncludeOptionSets: opts.IncludeOptionSets})
	if err != nil {
		return nil, err
	}
	for i := range meta.Attributes {
		if meta.Attributes[i].LogicalName == attributeLogicalName {
			attr := meta.Attributes[i]
			if !opts.IncludeOptionSets {
				attr.OptionSet = nil
			}
			return &attr, nil
		}
	}
	return nil, fmt.Errorf("attribute %s.%s: %w", entityLogicalName, attributeLogicalName, ErrNotFound)
}

// SeedEntity stores a full metadata document for an entity in the sandbox.
func (c *SandboxClient) SeedEntity(ctx context.Context, meta EntityMetadata) error {
	encoded, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("marshaling entity metadata: %w", err)
	}
	_, err = c.pool.Exec(ctx, `
INSERT INTO sandbox_entities (logical_name, metadata) VALUES ($1, $2)
ON CONFLICT (logical_name) DO UPDATE SET metadata = EXCLUDED.metadata`,
		meta.LogicalName, encoded)
	if err != nil {
		return fmt.Errorf("seeding entity %s: %w", meta.LogicalName, err)
	}
	return nil
}

func sortRecords(records []Record, orderBy string) {
	field, desc := parseOrderBy(orderBy)
	if field == "" {
		return
	}
	sort.SliceStable(records, func(i, j int) bool {
		a := fmt.Sprintf("%v", records[i][field])
		b := fmt.Sprintf("%v", records[j][field])
		if desc {
			return a > b
		}
		return a < b
	})
}

func parseOrderBy(orderBy string) (field string, desc bool) {
	parts := strings.Fields(orderBy)
	if len(parts) == 0 {
		return "", false
	}
	return parts[0], len(parts) > 1 && strings.EqualFold(parts[1], "desc")
}

func projectRecord(rec Record, fields []string) Record {
	out := Record{}
	for _, f := range fields {
		if v, ok := rec[f]; ok {
			out[f] = v
		}
	}
	return out
}
