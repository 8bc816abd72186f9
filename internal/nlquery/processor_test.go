package nlquery

import (
	"context"
	"errors"
	"testing"

	"crmbridge/internal/connector"
	"crmbridge/internal/lexicon"
)

type fakeConnector struct {
	entitySet string
	opts      connector.QueryOptions
	records   []connector.Record
	err       error
}

var _ connector.Connector = (*fakeConnector)(nil)

func (f *fakeConnector) QueryEntities(_ context.Context, entitySet string, opts connector.QueryOptions) ([]connector.Record, error) {
	f.entitySet = entitySet
	f.opts = opts
	return f.records, f.err
}

func (f *fakeConnector) CreateEntity(_ context.Context, _ string, _ connector.Record) (connector.Record, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeConnector) UpdateEntity(_ context.Context, _, _ string, _ connector.Record) error {
	return errors.New("not implemented")
}

func (f *fakeConnector) DeleteEntity(_ context.Context, _, _ string) error {
	return errors.New("not implemented")
}

func (f *fakeConnector) ListEntityDefinitions(_ context.Context) ([]connector.EntityMetadata, error) {
	return nil, nil
}

func (f *fakeConnector) GetEntityMetadata(_ context.Context, _ string, _ connector.MetadataOptions) (*connector.EntityMetadata, error) {
	return nil, connector.ErrNotFound
}

func (f *fakeConnector) GetAttributeMetadata(_ context.Context, _, _ string, _ connector.MetadataOptions) (*connector.AttributeMetadata, error) {
	return nil, connector.ErrNotFound
}

func newTestProcessor(fake *fakeConnector) *Processor {
	parser := NewParser(lexicon.MustLoad(), false)
	return NewProcessor(parser, fake, Defaults{})
}

func TestProcess(t *testing.T) {
	t.Run("list with filter and defaults", func(t *testing.T) {
		fake := &fakeConnector{records: []connector.Record{{"name": "Contoso"}}}
		p := newTestProcessor(fake)

		res := p.Process(context.Background(), "listar contas cidade igual Lisboa")
		if !res.Success || res.Entity != "accounts" || res.Count != 1 {
			t.Fatalf("got %+v", res)
		}
		if fake.opts.Filter != "address1_city eq 'lisboa'" {
			t.Fatalf("got filter %q", fake.opts.Filter)
		}
		if fake.opts.Top != 50 || fake.opts.OrderBy != "createdon desc" {
			t.Fatalf("got opts %+v", fake.opts)
		}
	})

	t.Run("limit overrides the page size", func(t *testing.T) {
		fake := &fakeConnector{}
		p := newTestProcessor(fake)

		p.Process(context.Background(), "listar casos top 5")
		if fake.entitySet != "incidents" || fake.opts.Top != 5 {
			t.Fatalf("got set %q opts %+v", fake.entitySet, fake.opts)
		}
	})

	t.Run("count fetches a capped id projection", func(t *testing.T) {
		fake := &fakeConnector{records: make([]connector.Record, 7)}
		p := newTestProcessor(fake)

		res := p.Process(context.Background(), "quantos casos")
		if !res.Success || res.Count != 7 || res.Results != nil {
			t.Fatalf("got %+v", res)
		}
		if fake.opts.Top != 1000 || len(fake.opts.Select) != 1 || fake.opts.Select[0] != "incidentid" {
			t.Fatalf("got opts %+v", fake.opts)
		}
	})

	t.Run("get narrows to one record", func(t *testing.T) {
		fake := &fakeConnector{}
		p := newTestProcessor(fake)

		p.Process(context.Background(), "buscar contato nome igual Ana")
		if fake.opts.Top != 1 {
			t.Fatalf("got opts %+v", fake.opts)
		}
	})

	t.Run("no entity is a structured failure", func(t *testing.T) {
		fake := &fakeConnector{}
		p := newTestProcessor(fake)

		res := p.Process(context.Background(), "listar tudo")
		if res.Success || res.Message == "" {
			t.Fatalf("got %+v", res)
		}
		if fake.entitySet != "" {
			t.Fatalf("connector must not be called, queried %q", fake.entitySet)
		}
	})

	t.Run("connector failure is a structured failure", func(t *testing.T) {
		fake := &fakeConnector{err: errors.New("boom")}
		p := newTestProcessor(fake)

		res := p.Process(context.Background(), "listar contas")
		if res.Success || res.Entity != "accounts" || res.Message == "" {
			t.Fatalf("got %+v", res)
		}
	})
}
