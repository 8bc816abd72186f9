package connector

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

var _ Connector = (*DataverseClient)(nil)

// DataverseClient talks to a Dataverse-style Web API over HTTP. Token
// acquisition is out of scope here: the caller hands in a bearer token (or a
// token source) it obtained elsewhere.
type DataverseClient struct {
	baseURL string
	token   string
	http    *http.Client
}

// NewDataverse builds a client for the organization at orgURL, e.g.
// "https://org.crm.dynamics.com".
func NewDataverse(orgURL, token string) *DataverseClient {
	return &DataverseClient{
		baseURL: strings.TrimRight(orgURL, "/") + "/api/data/v9.2",
		token:   token,
		http:    &http.Client{Timeout: 60 * time.Second},
	}
}

func (c *DataverseClient) QueryEntities(ctx context.Context, entitySet string, opts QueryOptions) ([]Record, error) {
	values := url.Values{}
	if len(opts.Select) > 0 {
		values.Set("$select", strings.Join(opts.Select, ","))
	}
	if opts.Filter != "" {
		values.Set("$filter", opts.Filter)
	}
	if opts.OrderBy != "" {
		values.Set("$orderby", opts.OrderBy)
	}
	if opts.Top > 0 {
		values.Set("$top", strconv.Itoa(opts.Top))
	}
	if opts.Expand != "" {
		values.Set("$expand", opts.Expand)
	}

	endpoint := c.baseURL + "/" + entitySet
	if encoded := values.Encode(); encoded != "" {
		endpoint += "?" + encoded
	}

	var payload struct {
		Value []Record `json:"value"`
	}
	if err := c.do(ctx, http.MethodGet, endpoint, nil, &payload); err != nil {
		return nil, fmt.Errorf("querying %s: %w", entitySet, err)
	}
	return payload.Value, nil
}

func (c *DataverseClient) CreateEntity(ctx context.Context, entitySet string, data Record) (Record, error) {
	endpoint := c.baseURL + "/" + entitySet
	var created Record
	if err := c.do(ctx, http.MethodPost, endpoint, data, &created); err != nil {
		return nil, fmt.Errorf("creating %s record: %w", entitySet, err)
	}
	return created, nil
}

func (c *DataverseClient) UpdateEntity(ctx context.Context, entitySet, id string, data Record) error {
	endpoint := fmt.Sprintf("%s/%s(%s)", c.baseURL, entitySet, id)
	if err := c.do(ctx, http.MethodPatch, endpoint, data, nil); err != nil {
		return fmt.Errorf("updating %s(%s): %w", entitySet, id, err)
	}
	return nil
}

func (c *DataverseClient) DeleteEntity(ctx context.Context, entitySet, id string) error {
	endpoint := fmt.Sprintf("%s/%s(%s)", c.baseURL, entitySet, id)
	if err := c.do(ctx, http.MethodDelete, endpoint, nil, nil); err != nil {
		return fmt.Errorf("deleting %s(%s): %w", entitySet, id, err)
	}
	return nil
}

func (c *DataverseClient) ListEntityDefinitions(ctx context.Context) ([]EntityMetadata, error) {
	endpoint := c.baseURL + "/EntityDefinitions?$select=LogicalName,DisplayName,DisplayCollectionName,EntitySetName,PrimaryIdAttribute,PrimaryNameAttribute,IsCustomEntity"
	var payload struct {
		Value []EntityMetadata `json:"value"`
	}
	if err := c.do(ctx, http.MethodGet, endpoint, nil, &payload); err != nil {
		return nil, fmt.Errorf("listing entity definitions: %w", err)
	}
	return payload.Value, nil
}

func (c *DataverseClient) GetEntityMetadata(ctx context.Context, logicalName string, opts MetadataOptions) (*EntityMetadata, error) {
	endpoint := fmt.Sprintf("%s/EntityDefinitions(LogicalName='%s')", c.baseURL, logicalName)
	if opts.IncludeAttributes {
		endpoint += "?$expand=Attributes,OneToManyRelationships,ManyToOneRelationships,ManyToManyRelationships"
	}
	var meta EntityMetadata
	if err := c.do(ctx, http.MethodGet, endpoint, nil, &meta); err != nil {
		return nil, fmt.Errorf("fetching metadata for %s: %w", logicalName, err)
	}
	return &meta, nil
}

func (c *DataverseClient) GetAttributeMetadata(ctx context.Context, entityLogicalName, attributeLogicalName string, opts MetadataOptions) (*AttributeMetadata, error) {
	endpoint := fmt.Sprintf("%s/EntityDefinitions(LogicalName='%s')/Attributes(LogicalName='%s')",
		c.baseURL, entityLogicalName, attributeLogicalName)
	if opts.IncludeOptionSets {
		// Option sets only exist behind the type-specific cast segments.
		endpoint += "?$expand=OptionSet"
	}
	var attr AttributeMetadata
	if err := c.do(ctx, http.MethodGet, endpoint, nil, &attr); err != nil {
		return nil, fmt.Errorf("fetching attribute %s.%s: %w", entityLogicalName, attributeLogicalName, err)
	}
	return &attr, nil
}

func (c *DataverseClient) do(ctx context.Context, method, endpoint string, body, out any) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request body: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("OData-MaxVersion", "4.0")
	req.Header.Set("OData-Version", "4.0")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if method == http.MethodPost {
		req.Header.Set("Prefer", "return=representation")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("remote returned %d: %s", resp.StatusCode, strings.TrimSpace(string(detail)))
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}
