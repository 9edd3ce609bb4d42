package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ldi/tally/pkg/models"
)

func TestSendSuccessOnAccepted(t *testing.T) {
	var got Payload
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("Expected POST, got %s", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("Expected application/json, got %q", ct)
		}
		body, err := io.ReadAll(r.Body)
		if err != nil {
			t.Errorf("Failed to read body: %v", err)
		}
		if err := json.Unmarshal(body, &got); err != nil {
			t.Errorf("Failed to decode payload: %v", err)
		}
		w.WriteHeader(http.StatusAccepted)
	}))
	defer server.Close()

	client := NewClient(server.URL)
	payload := Payload{
		HTMLContent: "<html>report</html>",
		Tasks:       []models.Snapshot{{TaskName: "Write report"}},
		ToUser:      []string{"lead@example.com"},
		CCUser:      []string{},
	}

	if err := client.Send(context.Background(), payload); err != nil {
		t.Fatalf("Expected success on 202, got %v", err)
	}
	if got.HTMLContent != payload.HTMLContent {
		t.Errorf("Payload htmlContent mismatch: %q", got.HTMLContent)
	}
	if len(got.Tasks) != 1 || got.Tasks[0].TaskName != "Write report" {
		t.Errorf("Payload tasks mismatch: %+v", got.Tasks)
	}
	if len(got.ToUser) != 1 || got.ToUser[0] != "lead@example.com" {
		t.Errorf("Payload to_user mismatch: %+v", got.ToUser)
	}
}

func TestSendNon202IsAnError(t *testing.T) {
	for _, status := range []int{http.StatusOK, http.StatusNoContent, http.StatusInternalServerError} {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(status)
		}))

		err := NewClient(server.URL).Send(context.Background(), Payload{})
		server.Close()

		var derr *Error
		if !errors.As(err, &derr) {
			t.Fatalf("status %d: expected *Error, got %v", status, err)
		}
		if derr.StatusCode != status {
			t.Errorf("Expected status %d in error, got %d", status, derr.StatusCode)
		}
	}
}

func TestSendEmptyURL(t *testing.T) {
	err := NewClient("").Send(context.Background(), Payload{})
	var derr *Error
	if !errors.As(err, &derr) {
		t.Fatalf("Expected *Error for a missing URL, got %v", err)
	}
	if derr.StatusCode != 0 {
		t.Errorf("Expected status 0 when no request was made, got %d", derr.StatusCode)
	}
}

func TestSendConnectionFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close() // Nothing is listening anymore.

	err := NewClient(server.URL).Send(context.Background(), Payload{})
	var derr *Error
	if !errors.As(err, &derr) {
		t.Fatalf("Expected *Error on connection failure, got %v", err)
	}
	if derr.StatusCode != 0 {
		t.Errorf("Expected status 0 on connection failure, got %d", derr.StatusCode)
	}
	if derr.Unwrap() == nil {
		t.Errorf("Expected a wrapped transport error")
	}
}
