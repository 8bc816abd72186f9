package metadata

import "crmbridge/internal/connector"

// AttributeType tags the kind of an entity attribute. The values follow the
// Web API's AttributeTypeCode names.
type AttributeType string

const (
	TypeString           AttributeType = "String"
	TypeMemo             AttributeType = "Memo"
	TypeInteger          AttributeType = "Integer"
	TypeDecimal          AttributeType = "Decimal"
	TypeMoney            AttributeType = "Money"
	TypeDouble           AttributeType = "Double"
	TypeBoolean          AttributeType = "Boolean"
	TypePicklist         AttributeType = "Picklist"
	TypeStatus           AttributeType = "Status"
	TypeState            AttributeType = "State"
	TypeLookup           AttributeType = "Lookup"
	TypeCustomer         AttributeType = "Customer"
	TypeOwner            AttributeType = "Owner"
	TypeDateTime         AttributeType = "DateTime"
	TypeUniqueidentifier AttributeType = "Uniqueidentifier"
	TypeImage            AttributeType = "Image"
)

// HasOptionSet reports whether attributes of this type carry an option set.
func (t AttributeType) HasOptionSet() bool {
	switch t {
	case TypePicklist, TypeStatus, TypeState, TypeBoolean:
		return true
	}
	return false
}

type RelationshipKind string

const (
	ManyToOne  RelationshipKind = "ManyToOne"
	OneToMany  RelationshipKind = "OneToMany"
	ManyToMany RelationshipKind = "ManyToMany"
)

// EntitySchema is the cached schema record for one entity. AttributesLoaded
// distinguishes a bare entry (attributes never fetched) from an entity that
// genuinely has zero attributes.
type EntitySchema struct {
	LogicalName           string         `json:"logicalName"`
	DisplayName           string         `json:"displayName"`
	DisplayCollectionName string         `json:"displayCollectionName"`
	EntitySetName         string         `json:"entitySetName"`
	PrimaryIdField        string         `json:"primaryIdField"`
	PrimaryNameField      string         `json:"primaryNameField,omitempty"`
	IsCustom              bool           `json:"isCustom"`
	AttributesLoaded      bool           `json:"-"`
	Attributes            []Attribute    `json:"attributes,omitempty"`
	Relationships         []Relationship `json:"relationships,omitempty"`
}

// Attribute is one field on an entity. OptionSet is present only for
// Picklist/Status/State/Boolean attributes.
type Attribute struct {
	LogicalName   string        `json:"logicalName"`
	DisplayName   string        `json:"displayName"`
	Description   string        `json:"description,omitempty"`
	Type          AttributeType `json:"type"`
	Required      bool          `json:"required"`
	IsPrimaryId   bool          `json:"isPrimaryId,omitempty"`
	IsPrimaryName bool          `json:"isPrimaryName,omitempty"`
	MaxLength     int           `json:"maxLength,omitempty"`
	Precision     int           `json:"precision,omitempty"`
	MinValue      *float64      `json:"minValue,omitempty"`
	MaxValue      *float64      `json:"maxValue,omitempty"`
	OptionSet     *OptionSet    `json:"optionSet,omitempty"`
}

type Relationship struct {
	Name               string           `json:"name"`
	Kind               RelationshipKind `json:"kind"`
	ReferencedEntity   string           `json:"referencedEntity,omitempty"`
	ReferencingEntity  string           `json:"referencingEntity,omitempty"`
	NavigationProperty string           `json:"navigationProperty,omitempty"`
	// LookupField is set only for ManyToOne relationships.
	LookupField string `json:"lookupField,omitempty"`
}

type OptionSet struct {
	Name    string        `json:"name,omitempty"`
	Options []OptionValue `json:"options"`
}

type OptionValue struct {
	Value int    `json:"value"`
	Label string `json:"label"`
}

// EntitySummary is the list-entities projection of a schema record.
type EntitySummary struct {
	Name                  string `json:"name"`
	DisplayName           string `json:"displayName"`
	DisplayCollectionName string `json:"displayCollectionName"`
}

func schemaFromConnector(meta *connector.EntityMetadata, attributesLoaded bool) *EntitySchema {
	schema := &EntitySchema{
		LogicalName:           meta.LogicalName,
		DisplayName:           meta.DisplayName.Text(),
		DisplayCollectionName: meta.DisplayCollectionName.Text(),
		EntitySetName:         meta.EntitySetName,
		PrimaryIdField:        meta.PrimaryIdAttribute,
		PrimaryNameField:      meta.PrimaryNameAttribute,
		IsCustom:              meta.IsCustomEntity,
		AttributesLoaded:      attributesLoaded,
	}
	if attributesLoaded {
		schema.Attributes = make([]Attribute, 0, len(meta.Attributes))
		for i := range meta.Attributes {
			schema.Attributes = append(schema.Attributes, attributeFromConnector(&meta.Attributes[i]))
		}
		schema.Relationships = relationshipsFromConnector(meta)
	}
	return schema
}

func attributeFromConnector(raw *connector.AttributeMetadata) Attribute {
	attr := Attribute{
		LogicalName:   raw.LogicalName,
		DisplayName:   raw.DisplayName.Text(),
		Description:   raw.Description.Text(),
		Type:          AttributeType(raw.AttributeType),
		Required:      raw.RequiredLevel.IsRequired(),
		IsPrimaryId:   raw.IsPrimaryId,
		IsPrimaryName: raw.IsPrimaryName,
		MaxLength:     raw.MaxLength,
		Precision:     raw.Precision,
		MinValue:      raw.MinValue,
		MaxValue:      raw.MaxValue,
	}
	if raw.OptionSet != nil && attr.Type.HasOptionSet() {
		set := &OptionSet{Name: raw.OptionSet.Name}
		for _, opt := range raw.OptionSet.Options {
			set.Options = append(set.Options, OptionValue{Value: opt.Value, Label: opt.Label.Text()})
		}
		attr.OptionSet = set
	}
	return attr
}

func relationshipsFromConnector(meta *connector.EntityMetadata) []Relationship {
	rels := make([]Relationship, 0, len(meta.ManyToOne)+len(meta.OneToMany)+len(meta.ManyToMany))
	for _, r := range meta.ManyToOne {
		rels = append(rels, Relationship{
			Name:               r.SchemaName,
			Kind:               ManyToOne,
			ReferencedEntity:   r.ReferencedEntity,
			ReferencingEntity:  r.ReferencingEntity,
			NavigationProperty: r.NavigationPropertyName,
			LookupField:        r.ReferencingAttribute,
		})
	}
	for _, r := range meta.OneToMany {
		rels = append(rels, Relationship{
			Name:               r.SchemaName,
			Kind:               OneToMany,
			ReferencedEntity:   r.ReferencedEntity,
			ReferencingEntity:  r.ReferencingEntity,
			NavigationProperty: r.NavigationPropertyName,
		})
	}
	for _, r := range meta.ManyToMany {
		rels = append(rels, Relationship{
			Name:              r.SchemaName,
			Kind:              ManyToMany,
			ReferencedEntity:  r.Entity1LogicalName,
			ReferencingEntity: r.Entity2LogicalName,
		})
	}
	return rels
}
