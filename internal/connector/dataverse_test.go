package connector

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestQueryEntities(t *testing.T) {
	var gotReq *http.Request
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotReq = r.Clone(context.Background())
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"value": []map[string]any{{"name": "Contoso"}},
		})
	}))
	defer server.Close()

	c := NewDataverse(server.URL, "test-token")
	records, err := c.QueryEntities(context.Background(), "accounts", QueryOptions{
		Select:  []string{"name", "revenue"},
		Filter:  "address1_city eq 'Lisboa'",
		OrderBy: "name asc",
		Top:     10,
	})
	if err != nil {
		t.Fatalf("QueryEntities: %v", err)
	}
	if len(records) != 1 || records[0]["name"] != "Contoso" {
		t.Fatalf("got %+v", records)
	}

	if gotReq.URL.Path != "/api/data/v9.2/accounts" {
		t.Fatalf("got path %q", gotReq.URL.Path)
	}
	q := gotReq.URL.Query()
	if q.Get("$filter") != "address1_city eq 'Lisboa'" || q.Get("$top") != "10" {
		t.Fatalf("got query %v", q)
	}
	if q.Get("$select") != "name,revenue" || q.Get("$orderby") != "name asc" {
		t.Fatalf("got query %v", q)
	}
	if gotReq.Header.Get("Authorization") != "Bearer test-token" {
		t.Fatalf("got auth %q", gotReq.Header.Get("Authorization"))
	}
	if gotReq.Header.Get("OData-Version") != "4.0" {
		t.Fatalf("got OData-Version %q", gotReq.Header.Get("OData-Version"))
	}
}

func TestCreateEntity(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("got method %q", r.Method)
		}
		if r.Header.Get("Prefer") != "return=representation" {
			t.Errorf("got Prefer %q", r.Header.Get("Prefer"))
		}
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		body["accountid"] = "new-id"
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(body)
	}))
	defer server.Close()

	c := NewDataverse(server.URL, "t")
	created, err := c.CreateEntity(context.Background(), "accounts", Record{"name": "Contoso"})
	if err != nil {
		t.Fatalf("CreateEntity: %v", err)
	}
	if created["accountid"] != "new-id" || created["name"] != "Contoso" {
		t.Fatalf("got %+v", created)
	}
}

func TestUpdateAndDelete(t *testing.T) {
	var gotMethod, gotPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod, gotPath = r.Method, r.URL.Path
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	c := NewDataverse(server.URL, "t")

	if err := c.UpdateEntity(context.Background(), "accounts", "123", Record{"name": "Renamed"}); err != nil {
		t.Fatalf("UpdateEntity: %v", err)
	}
	if gotMethod != http.MethodPatch || gotPath != "/api/data/v9.2/accounts(123)" {
		t.Fatalf("got %s %s", gotMethod, gotPath)
	}

	if err := c.DeleteEntity(context.Background(), "accounts", "123"); err != nil {
		t.Fatalf("DeleteEntity: %v", err)
	}
	if gotMethod != http.MethodDelete {
		t.Fatalf("got %s", gotMethod)
	}
}

func TestGetEntityMetadata(t *testing.T) {
	var gotURL string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotURL = r.URL.String()
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(EntityMetadata{LogicalName: "account", EntitySetName: "accounts"})
	}))
	defer server.Close()

	c := NewDataverse(server.URL, "t")
	meta, err := c.GetEntityMetadata(context.Background(), "account", MetadataOptions{IncludeAttributes: true})
	if err != nil {
		t.Fatalf("GetEntityMetadata: %v", err)
	}
	if meta.LogicalName != "account" {
		t.Fatalf("got %+v", meta)
	}
	if !strings.Contains(gotURL, "EntityDefinitions(LogicalName='account')") {
		t.Fatalf("got url %q", gotURL)
	}
	if !strings.Contains(gotURL, "$expand=Attributes") {
		t.Fatalf("expected attribute expansion, got %q", gotURL)
	}
}

func TestRemoteErrors(t *testing.T) {
	t.Run("404 maps to ErrNotFound", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		}))
		defer server.Close()

		c := NewDataverse(server.URL, "t")
		_, err := c.GetEntityMetadata(context.Background(), "widget", MetadataOptions{})
		if !errors.Is(err, ErrNotFound) {
			t.Fatalf("got %v", err)
		}
	})

	t.Run("error body is surfaced", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":{"message":"Invalid $filter"}}`))
		}))
		defer server.Close()

		c := NewDataverse(server.URL, "t")
		_, err := c.QueryEntities(context.Background(), "accounts", QueryOptions{Filter: "bogus"})
		if err == nil || !strings.Contains(err.Error(), "Invalid $filter") {
			t.Fatalf("got %v", err)
		}
		if !strings.Contains(err.Error(), "400") {
			t.Fatalf("got %v", err)
		}
	})
}
