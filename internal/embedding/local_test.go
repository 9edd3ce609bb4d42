package embedding

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestLocalClientEmbed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Model string `json:"model"`
			Input string `json:"input"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("Failed to decode request: %v", err)
		}
		if req.Model != "test-model" {
			t.Errorf("Expected model test-model, got %q", req.Model)
		}
		if req.Input != "hello world" {
			t.Errorf("Expected input text, got %q", req.Input)
		}

		json.NewEncoder(w).Encode(map[string][][]float32{
			"embeddings": {{0.1, 0.2, 0.3}},
		})
	}))
	defer server.Close()

	client := NewLocalClient(WithBaseURL(server.URL), WithModel("test-model"))
	vec, err := client.Embed(context.Background(), "hello world")
	if err != nil {
		t.Fatalf("Failed to embed: %v", err)
	}
	if len(vec) != 3 || vec[0] != 0.1 || vec[2] != 0.3 {
		t.Errorf("Unexpected vector: %v", vec)
	}
}

func TestLocalClientServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not found", http.StatusNotFound)
	}))
	defer server.Close()

	_, err := NewLocalClient(WithBaseURL(server.URL)).Embed(context.Background(), "x")
	if err == nil {
		t.Fatalf("Expected an error on 404")
	}
	if !strings.Contains(err.Error(), "404") || !strings.Contains(err.Error(), "model not found") {
		t.Errorf("Expected status and body excerpt in error, got %v", err)
	}
}

func TestLocalClientEmptyEmbeddings(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string][][]float32{"embeddings": {}})
	}))
	defer server.Close()

	_, err := NewLocalClient(WithBaseURL(server.URL)).Embed(context.Background(), "x")
	if err == nil {
		t.Fatalf("Expected an error on an empty embeddings list")
	}
}

func TestLocalClientUnreachable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	_, err := NewLocalClient(WithBaseURL(server.URL)).Embed(context.Background(), "x")
	if err == nil {
		t.Fatalf("Expected an error when the server is unreachable")
	}
}
