package metadata

import (
	"context"
	"fmt"
)

// DataModel is a compact description of a set of entities, meant for an agent
// to orient itself in an unfamiliar organization.
type DataModel struct {
	Entities []DataModelEntity `json:"entities"`
}

type DataModelEntity struct {
	Name             string         `json:"name"`
	DisplayName      string         `json:"displayName"`
	PrimaryIdField   string         `json:"primaryIdField"`
	PrimaryNameField string         `json:"primaryNameField,omitempty"`
	KeyAttributes    []Attribute    `json:"keyAttributes"`
	Relationships    []Relationship `json:"relationships"`
}

// GenerateDataModel builds a data model for the named entities, or for every
// cached entity when names is empty. Key attributes are the primary id and
// name fields plus every required attribute.
func (c *Cache) GenerateDataModel(ctx context.Context, names []string) (*DataModel, error) {
	if len(names) == 0 {
		summaries, err := c.ListEntities(ctx, false)
		if err != nil {
			return nil, err
		}
		for _, summary := range summaries {
			names = append(names, summary.Name)
		}
	}

	model := &DataModel{Entities: make([]DataModelEntity, 0, len(names))}
	for _, name := range names {
		schema, err := c.GetEntityDetails(ctx, name, DetailOptions{IncludeAttributes: true})
		if err != nil {
			return nil, fmt.Errorf("building data model: %w", err)
		}

		entity := DataModelEntity{
			Name:             schema.LogicalName,
			DisplayName:      schema.DisplayName,
			PrimaryIdField:   schema.PrimaryIdField,
			PrimaryNameField: schema.PrimaryNameField,
			KeyAttributes:    make([]Attribute, 0),
			Relationships:    schema.Relationships,
		}
		for _, attr := range schema.Attributes {
			if attr.IsPrimaryId || attr.IsPrimaryName || attr.Required {
				entity.KeyAttributes = append(entity.KeyAttributes, attr)
			}
		}
		model.Entities = append(model.Entities, entity)
	}
	return model, nil
}
