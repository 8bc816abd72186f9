package connector

import (
	"context"
	"errors"
)

// ErrNotFound is returned when an entity, record, or attribute does not exist
// on the remote side. Callers treat it as a normal outcome, not a failure.
var ErrNotFound = errors.New("not found")

// Record is one CRM row as returned by the Web API.
type Record map[string]any

// QueryOptions carry the OData system query options for a retrieve.
type QueryOptions struct {
	Select  []string
	Filter  string
	OrderBy string
	Top     int
	Expand  string
}

// MetadataOptions control how much of an entity's schema a metadata call
// retrieves.
type MetadataOptions struct {
	IncludeAttributes bool
	IncludeOptionSets bool
}

// Connector is the CRM Web API collaborator. Implementations own their auth
// and retry behavior; errors surface here already wrapped with remote context.
type Connector interface {
	// QueryEntities retrieves records from a pluralized entity set.
	QueryEntities(ctx context.Context, entitySet string, opts QueryOptions) ([]Record, error)
	CreateEntity(ctx context.Context, entitySet string, data Record) (Record, error)
	UpdateEntity(ctx context.Context, entitySet, id string, data Record) error
	DeleteEntity(ctx context.Context, entitySet, id string) error

	// ListEntityDefinitions retrieves summary metadata for every entity,
	// without attributes.
	ListEntityDefinitions(ctx context.Context) ([]EntityMetadata, error)
	// GetEntityMetadata retrieves one entity's schema document by its
	// singular logical name. Returns ErrNotFound if the entity is unknown.
	GetEntityMetadata(ctx context.Context, logicalName string, opts MetadataOptions) (*EntityMetadata, error)
	// GetAttributeMetadata retrieves one attribute's schema document.
	// Returns ErrNotFound if the attribute is absent.
	GetAttributeMetadata(ctx context.Context, entityLogicalName, attributeLogicalName string, opts MetadataOptions) (*AttributeMetadata, error)
}

// EntityMetadata mirrors the Web API's raw entity definition shape.
type EntityMetadata struct {
	LogicalName           string                 `json:"LogicalName"`
	DisplayName           Label                  `json:"DisplayName"`
	DisplayCollectionName Label                  `json:"DisplayCollectionName"`
	EntitySetName         string                 `json:"EntitySetName"`
	PrimaryIdAttribute    string                 `json:"PrimaryIdAttribute"`
	PrimaryNameAttribute  string                 `json:"PrimaryNameAttribute"`
	IsCustomEntity        bool                   `json:"IsCustomEntity"`
	Attributes            []AttributeMetadata    `json:"Attributes"`
	OneToMany             []RelationshipMetadata `json:"OneToManyRelationships"`
	ManyToOne             []RelationshipMetadata `json:"ManyToOneRelationships"`
	ManyToMany            []RelationshipMetadata `json:"ManyToManyRelationships"`
}

// AttributeMetadata mirrors the Web API's raw attribute definition shape.
type AttributeMetadata struct {
	LogicalName   string     `json:"LogicalName"`
	DisplayName   Label      `json:"DisplayName"`
	Description   Label      `json:"Description"`
	AttributeType string     `json:"AttributeType"`
	RequiredLevel Required   `json:"RequiredLevel"`
	IsPrimaryId   bool       `json:"IsPrimaryId"`
	IsPrimaryName bool       `json:"IsPrimaryName"`
	MaxLength     int        `json:"MaxLength,omitempty"`
	Precision     int        `json:"Precision,omitempty"`
	MinValue      *float64   `json:"MinValue,omitempty"`
	MaxValue      *float64   `json:"MaxValue,omitempty"`
	OptionSet     *OptionSet `json:"OptionSet,omitempty"`
}

// RelationshipMetadata mirrors the Web API's raw relationship shape.
type RelationshipMetadata struct {
	SchemaName             string `json:"SchemaName"`
	ReferencedEntity       string `json:"ReferencedEntity"`
	ReferencingEntity      string `json:"ReferencingEntity"`
	ReferencingAttribute   string `json:"ReferencingAttribute"`
	NavigationPropertyName string `json:"ReferencingEntityNavigationPropertyName"`
	Entity1LogicalName     string `json:"Entity1LogicalName"`
	Entity2LogicalName     string `json:"Entity2LogicalName"`
}

// OptionSet is an enumerated set of labeled integer values.
type OptionSet struct {
	Name    string   `json:"Name"`
	Options []Option `json:"Options"`
}

type Option struct {
	Value int   `json:"Value"`
	Label Label `json:"Label"`
}

// Label is the localized-label wrapper the Web API uses for display strings.
type Label struct {
	UserLocalizedLabel *LocalizedLabel `json:"UserLocalizedLabel"`
}

type LocalizedLabel struct {
	Label string `json:"Label"`
}

type Required struct {
	Value string `json:"Value"`
}

// Text returns the localized label text, or "" when no label is set.
func (l Label) Text() string {
	if l.UserLocalizedLabel == nil {
		return ""
	}
	return l.UserLocalizedLabel.Label
}

// IsRequired reports whether the required level demands a value.
func (r Required) IsRequired() bool {
	return r.Value == "ApplicationRequired" || r.Value == "SystemRequired"
}
