package mcp

import (
	"context"
	"fmt"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"crmbridge/internal/assistant"
	"crmbridge/internal/metadata"
	"crmbridge/internal/nlquery"
	"crmbridge/internal/shorthand"
)

type CommandInput struct {
	Command string `json:"command" jsonschema:"shorthand command, e.g. account:list cidade=Lisboa"`
}

type NaturalQueryInput struct {
	Query string `json:"query" jsonschema:"free-text query in Portuguese, e.g. listar contas de Lisboa"`
}

type AssistantStartInput struct{}

type AssistantStartOutput struct {
	SessionID string `json:"sessionId"`
	Message   string `json:"message"`
}

type AssistantInputInput struct {
	SessionID string `json:"sessionId" jsonschema:"session id returned by assistant_start"`
	Input     string `json:"input" jsonschema:"the user's answer for the current step"`
}

type AssistantEndInput struct {
	SessionID string `json:"sessionId" jsonschema:"session id to end"`
}

type AssistantEndOutput struct {
	Ended bool `json:"ended"`
}

type ListEntitiesInput struct {
	Refresh bool `json:"refresh,omitempty" jsonschema:"force a metadata refresh"`
}

type ListEntitiesOutput struct {
	Entities []metadata.EntitySummary `json:"entities"`
}

type EntityDetailsInput struct {
	Name              string `json:"name" jsonschema:"entity name, singular or plural, synonyms accepted"`
	IncludeAttributes bool   `json:"includeAttributes,omitempty" jsonschema:"include the attribute list"`
	IncludeOptionSets bool   `json:"includeOptionSets,omitempty" jsonschema:"include option set values"`
	Refresh           bool   `json:"refresh,omitempty" jsonschema:"bypass the cache"`
}

type AttributeDetailsInput struct {
	Entity           string `json:"entity" jsonschema:"entity name"`
	Attribute        string `json:"attribute" jsonschema:"attribute logical name"`
	IncludeOptionSet bool   `json:"includeOptionSet,omitempty" jsonschema:"include option set values when the type has one"`
}

type SearchEntitiesInput struct {
	Text string `json:"text" jsonschema:"search text"`
}

type SearchAttributesInput struct {
	Entity string `json:"entity" jsonschema:"entity name"`
	Text   string `json:"text" jsonschema:"search text"`
}

type SearchAttributesOutput struct {
	Attributes []metadata.Attribute `json:"attributes"`
}

type DataModelInput struct {
	Entities []string `json:"entities,omitempty" jsonschema:"entity names; empty means every known entity"`
}

func (s *Server) registerTools() {
	sdk.AddTool(s.mcp, &sdk.Tool{
		Name:        "crm_command",
		Description: "Run a shorthand CRM command: entity:action [id] [field=value ...]. Actions: list, get, create, update, delete, count, fields. Count is approximate, capped at 1000.",
	}, s.handleCommand)

	sdk.AddTool(s.mcp, &sdk.Tool{
		Name:        "crm_query_natural",
		Description: "Run a free-text CRM query in Portuguese, e.g. 'listar contas de Lisboa top 10'",
	}, s.handleNaturalQuery)

	sdk.AddTool(s.mcp, &sdk.Tool{
		Name:        "assistant_start",
		Description: "Start an interactive query-building session",
	}, s.handleAssistantStart)

	sdk.AddTool(s.mcp, &sdk.Tool{
		Name:        "assistant_input",
		Description: "Send the user's next answer to an interactive query session",
	}, s.handleAssistantInput)

	sdk.AddTool(s.mcp, &sdk.Tool{
		Name:        "assistant_end",
		Description: "End an interactive query session",
	}, s.handleAssistantEnd)

	sdk.AddTool(s.mcp, &sdk.Tool{
		Name:        "list_entities",
		Description: "List the organization's entities with display names",
	}, s.handleListEntities)

	sdk.AddTool(s.mcp, &sdk.Tool{
		Name:        "get_entity_details",
		Description: "Get an entity's schema, optionally with attributes and option sets",
	}, s.handleEntityDetails)

	sdk.AddTool(s.mcp, &sdk.Tool{
		Name:        "get_attribute_details",
		Description: "Get one attribute's schema directly from the CRM",
	}, s.handleAttributeDetails)

	sdk.AddTool(s.mcp, &sdk.Tool{
		Name:        "search_entities",
		Description: "Search entities by name",
	}, s.handleSearchEntities)

	sdk.AddTool(s.mcp, &sdk.Tool{
		Name:        "search_attributes",
		Description: "Search an entity's attributes by name",
	}, s.handleSearchAttributes)

	sdk.AddTool(s.mcp, &sdk.Tool{
		Name:        "generate_data_model",
		Description: "Summarize entities, key attributes, and relationships as a compact data model",
	}, s.handleDataModel)
}

func (s *Server) handleCommand(ctx context.Context, req *sdk.CallToolRequest, input CommandInput) (*sdk.CallToolResult, shorthand.Result, error) {
	if input.Command == "" {
		return nil, shorthand.Result{}, fmt.Errorf("command is required")
	}
	return nil, s.shorthand.Process(ctx, input.Command), nil
}

func (s *Server) handleNaturalQuery(ctx context.Context, req *sdk.CallToolRequest, input NaturalQueryInput) (*sdk.CallToolResult, nlquery.Result, error) {
	if input.Query == "" {
		return nil, nlquery.Result{}, fmt.Errorf("query is required")
	}
	return nil, s.nl.Process(ctx, input.Query), nil
}

func (s *Server) handleAssistantStart(ctx context.Context, req *sdk.CallToolRequest, input AssistantStartInput) (*sdk.CallToolResult, AssistantStartOutput, error) {
	id, message := s.assistant.Start()
	return nil, AssistantStartOutput{SessionID: id, Message: message}, nil
}

func (s *Server) handleAssistantInput(ctx context.Context, req *sdk.CallToolRequest, input AssistantInputInput) (*sdk.CallToolResult, assistant.StepResult, error) {
	if input.SessionID == "" {
		return nil, assistant.StepResult{}, fmt.Errorf("sessionId is required")
	}
	return nil, s.assistant.ProcessInput(ctx, input.SessionID, input.Input), nil
}

func (s *Server) handleAssistantEnd(ctx context.Context, req *sdk.CallToolRequest, input AssistantEndInput) (*sdk.CallToolResult, AssistantEndOutput, error) {
	if input.SessionID == "" {
		return nil, AssistantEndOutput{}, fmt.Errorf("sessionId is required")
	}
	return nil, AssistantEndOutput{Ended: s.assistant.EndSession(input.SessionID)}, nil
}

func (s *Server) handleListEntities(ctx context.Context, req *sdk.CallToolRequest, input ListEntitiesInput) (*sdk.CallToolResult, ListEntitiesOutput, error) {
	entities, err := s.cache.ListEntities(ctx, input.Refresh)
	if err != nil {
		return nil, ListEntitiesOutput{}, err
	}
	return nil, ListEntitiesOutput{Entities: entities}, nil
}

func (s *Server) handleEntityDetails(ctx context.Context, req *sdk.CallToolRequest, input EntityDetailsInput) (*sdk.CallToolResult, metadata.EntitySchema, error) {
	if input.Name == "" {
		return nil, metadata.EntitySchema{}, fmt.Errorf("name is required")
	}
	schema, err := s.cache.GetEntityDetails(ctx, input.Name, metadata.DetailOptions{
		IncludeAttributes: input.IncludeAttributes,
		IncludeOptionSets: input.IncludeOptionSets,
		Refresh:           input.Refresh,
	})
	if err != nil {
		return nil, metadata.EntitySchema{}, err
	}
	return nil, *schema, nil
}

func (s *Server) handleAttributeDetails(ctx context.Context, req *sdk.CallToolRequest, input AttributeDetailsInput) (*sdk.CallToolResult, metadata.Attribute, error) {
	if input.Entity == "" || input.Attribute == "" {
		return nil, metadata.Attribute{}, fmt.Errorf("entity and attribute are required")
	}
	attr, err := s.cache.GetAttributeDetails(ctx, input.Entity, input.Attribute, input.IncludeOptionSet)
	if err != nil {
		return nil, metadata.Attribute{}, err
	}
	return nil, *attr, nil
}

func (s *Server) handleSearchEntities(ctx context.Context, req *sdk.CallToolRequest, input SearchEntitiesInput) (*sdk.CallToolResult, ListEntitiesOutput, error) {
	if input.Text == "" {
		return nil, ListEntitiesOutput{}, fmt.Errorf("text is required")
	}
	entities, err := s.cache.SearchEntities(ctx, input.Text)
	if err != nil {
		return nil, ListEntitiesOutput{}, err
	}
	return nil, ListEntitiesOutput{Entities: entities}, nil
}

func (s *Server) handleSearchAttributes(ctx context.Context, req *sdk.CallToolRequest, input SearchAttributesInput) (*sdk.CallToolResult, SearchAttributesOutput, error) {
	if input.Entity == "" {
		return nil, SearchAttributesOutput{}, fmt.Errorf("entity is required")
	}
	attributes, err := s.cache.SearchAttributes(ctx, input.Entity, input.Text)
	if err != nil {
		return nil, SearchAttributesOutput{}, err
	}
	return nil, SearchAttributesOutput{Attributes: attributes}, nil
}

func (s *Server) handleDataModel(ctx context.Context, req *sdk.CallToolRequest, input DataModelInput) (*sdk.CallToolResult, metadata.DataModel, error) {
	model, err := s.cache.GenerateDataModel(ctx, input.Entities)
	if err != nil {
		return nil, metadata.DataModel{}, err
	}
	return nil, *model, nil
}
