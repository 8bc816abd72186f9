package mcp

import (
	"context"
	"testing"
	"time"

	"crmbridge/internal/assistant"
	"crmbridge/internal/connector"
	"crmbridge/internal/lexicon"
	"crmbridge/internal/metadata"
	"crmbridge/internal/nlquery"
	"crmbridge/internal/shorthand"
)

type fakeConnector struct {
	records []connector.Record
}

var _ connector.Connector = (*fakeConnector)(nil)

func (f *fakeConnector) QueryEntities(_ context.Context, _ string, _ connector.QueryOptions) ([]connector.Record, error) {
	return f.records, nil
}

func (f *fakeConnector) CreateEntity(_ context.Context, _ string, data connector.Record) (connector.Record, error) {
	return data, nil
}

func (f *fakeConnector) UpdateEntity(_ context.Context, _, _ string, _ connector.Record) error {
	return nil
}

func (f *fakeConnector) DeleteEntity(_ context.Context, _, _ string) error {
	return nil
}

func (f *fakeConnector) ListEntityDefinitions(_ context.Context) ([]connector.EntityMetadata, error) {
	return []connector.EntityMetadata{{
		LogicalName:          "account",
		EntitySetName:        "accounts",
		PrimaryIdAttribute:   "accountid",
		PrimaryNameAttribute: "name",
	}}, nil
}

func (f *fakeConnector) GetEntityMetadata(_ context.Context, logicalName string, _ connector.MetadataOptions) (*connector.EntityMetadata, error) {
	if logicalName != "account" {
		return nil, connector.ErrNotFound
	}
	return &connector.EntityMetadata{
		LogicalName:          "account",
		EntitySetName:        "accounts",
		PrimaryIdAttribute:   "accountid",
		PrimaryNameAttribute: "name",
		Attributes: []connector.AttributeMetadata{
			{LogicalName: "accountid", AttributeType: "Uniqueidentifier", IsPrimaryId: true},
			{LogicalName: "name", AttributeType: "String", IsPrimaryName: true},
		},
	}, nil
}

func (f *fakeConnector) GetAttributeMetadata(_ context.Context, entityLogicalName, attributeLogicalName string, _ connector.MetadataOptions) (*connector.AttributeMetadata, error) {
	if entityLogicalName != "account" || attributeLogicalName != "name" {
		return nil, connector.ErrNotFound
	}
	return &connector.AttributeMetadata{LogicalName: "name", AttributeType: "String"}, nil
}

func newTestServer(t *testing.T, fake *fakeConnector) *Server {
	t.Helper()
	lex := lexicon.MustLoad()
	cache := metadata.NewCache(fake, lex, time.Hour)
	sh := shorthand.NewProcessor(fake, cache, lex, shorthand.Defaults{})
	nl := nlquery.NewProcessor(nlquery.NewParser(lex, false), fake, nlquery.Defaults{})
	asst := assistant.New(fake, cache, lex, assistant.Options{})
	t.Cleanup(asst.Close)
	return NewServer(sh, nl, asst, cache, "test")
}

func TestHandleCommand(t *testing.T) {
	s := newTestServer(t, &fakeConnector{records: []connector.Record{{"name": "Contoso"}}})

	t.Run("empty command is rejected", func(t *testing.T) {
		if _, _, err := s.handleCommand(context.Background(), nil, CommandInput{}); err == nil {
			t.Fatalf("expected error")
		}
	})

	t.Run("valid command executes", func(t *testing.T) {
		_, res, err := s.handleCommand(context.Background(), nil, CommandInput{Command: "account:list"})
		if err != nil {
			t.Fatalf("handleCommand: %v", err)
		}
		if !res.Success || res.Count != 1 {
			t.Fatalf("got %+v", res)
		}
	})

	t.Run("malformed command is a structured failure, not an error", func(t *testing.T) {
		_, res, err := s.handleCommand(context.Background(), nil, CommandInput{Command: "nonsense"})
		if err != nil {
			t.Fatalf("handleCommand: %v", err)
		}
		if res.Success || res.Message == "" {
			t.Fatalf("got %+v", res)
		}
	})
}

func TestHandleNaturalQuery(t *testing.T) {
	s := newTestServer(t, &fakeConnector{records: []connector.Record{{"name": "Contoso"}}})

	if _, _, err := s.handleNaturalQuery(context.Background(), nil, NaturalQueryInput{}); err == nil {
		t.Fatalf("expected error for empty query")
	}

	_, res, err := s.handleNaturalQuery(context.Background(), nil, NaturalQueryInput{Query: "listar contas"})
	if err != nil {
		t.Fatalf("handleNaturalQuery: %v", err)
	}
	if !res.Success || res.Entity != "accounts" {
		t.Fatalf("got %+v", res)
	}
}

func TestAssistantHandlers(t *testing.T) {
	s := newTestServer(t, &fakeConnector{})
	ctx := context.Background()

	_, started, err := s.handleAssistantStart(ctx, nil, AssistantStartInput{})
	if err != nil || started.SessionID == "" || started.Message == "" {
		t.Fatalf("got %+v, %v", started, err)
	}

	if _, _, err := s.handleAssistantInput(ctx, nil, AssistantInputInput{}); err == nil {
		t.Fatalf("expected error for missing session id")
	}

	_, step, err := s.handleAssistantInput(ctx, nil, AssistantInputInput{SessionID: started.SessionID, Input: "contas"})
	if err != nil || step.Completed || step.Message == "" {
		t.Fatalf("got %+v, %v", step, err)
	}

	_, ended, err := s.handleAssistantEnd(ctx, nil, AssistantEndInput{SessionID: started.SessionID})
	if err != nil || !ended.Ended {
		t.Fatalf("got %+v, %v", ended, err)
	}
	_, ended, err = s.handleAssistantEnd(ctx, nil, AssistantEndInput{SessionID: started.SessionID})
	if err != nil || ended.Ended {
		t.Fatalf("got %+v, %v", ended, err)
	}
}

func TestMetadataHandlers(t *testing.T) {
	s := newTestServer(t, &fakeConnector{})
	ctx := context.Background()

	t.Run("list entities", func(t *testing.T) {
		_, out, err := s.handleListEntities(ctx, nil, ListEntitiesInput{})
		if err != nil {
			t.Fatalf("handleListEntities: %v", err)
		}
		if len(out.Entities) != 1 || out.Entities[0].Name != "account" {
			t.Fatalf("got %+v", out)
		}
	})

	t.Run("entity details", func(t *testing.T) {
		if _, _, err := s.handleEntityDetails(ctx, nil, EntityDetailsInput{}); err == nil {
			t.Fatalf("expected error for missing name")
		}
		_, schema, err := s.handleEntityDetails(ctx, nil, EntityDetailsInput{Name: "contas", IncludeAttributes: true})
		if err != nil {
			t.Fatalf("handleEntityDetails: %v", err)
		}
		if schema.LogicalName != "account" || len(schema.Attributes) != 2 {
			t.Fatalf("got %+v", schema)
		}
	})

	t.Run("attribute details", func(t *testing.T) {
		if _, _, err := s.handleAttributeDetails(ctx, nil, AttributeDetailsInput{Entity: "contas"}); err == nil {
			t.Fatalf("expected error for missing attribute")
		}
		_, attr, err := s.handleAttributeDetails(ctx, nil, AttributeDetailsInput{Entity: "contas", Attribute: "name"})
		if err != nil {
			t.Fatalf("handleAttributeDetails: %v", err)
		}
		if attr.LogicalName != "name" {
			t.Fatalf("got %+v", attr)
		}
	})

	t.Run("search entities", func(t *testing.T) {
		if _, _, err := s.handleSearchEntities(ctx, nil, SearchEntitiesInput{}); err == nil {
			t.Fatalf("expected error for missing text")
		}
		_, out, err := s.handleSearchEntities(ctx, nil, SearchEntitiesInput{Text: "account"})
		if err != nil || len(out.Entities) != 1 {
			t.Fatalf("got %+v, %v", out, err)
		}
	})

	t.Run("search attributes", func(t *testing.T) {
		_, out, err := s.handleSearchAttributes(ctx, nil, SearchAttributesInput{Entity: "contas", Text: "name"})
		if err != nil {
			t.Fatalf("handleSearchAttributes: %v", err)
		}
		if len(out.Attributes) != 1 || out.Attributes[0].LogicalName != "name" {
			t.Fatalf("got %+v", out.Attributes)
		}
	})

	t.Run("data model", func(t *testing.T) {
		_, model, err := s.handleDataModel(ctx, nil, DataModelInput{})
		if err != nil {
			t.Fatalf("handleDataModel: %v", err)
		}
		if len(model.Entities) != 1 || model.Entities[0].PrimaryIdField != "accountid" {
			t.Fatalf("got %+v", model)
		}
	})
}
