package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/3vilTid/Catalogue-Web-App/internal/fault"
)

func TestClient_Invoke(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("Content-Type = %q", ct)
		}
		var req struct {
			Function   string            `json:"function"`
			Parameters []json.RawMessage `json:"parameters"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decoding request: %v", err)
		}
		if req.Function != "getTabData" || len(req.Parameters) != 2 {
			t.Errorf("request = %+v", req)
		}
		w.Write([]byte(`{"items":[1,2]}`))
	}))
	defer srv.Close()

	got, err := New(srv.URL).Invoke(context.Background(), "getTabData", []any{1, "main"})
	if err != nil {
		t.Fatalf("Invoke() error = %v", err)
	}
	if string(got) != `{"items":[1,2]}` {
		t.Errorf("Invoke() = %s", got)
	}
}

func TestClient_NilArgsSendEmptyList(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req map[string]json.RawMessage
		json.NewDecoder(r.Body).Decode(&req)
		if string(req["parameters"]) != "[]" {
			t.Errorf("parameters = %s, want []", req["parameters"])
		}
		w.Write([]byte(`null`))
	}))
	defer srv.Close()

	if _, err := New(srv.URL).Invoke(context.Background(), "getAppData", nil); err != nil {
		t.Fatalf("Invoke() error = %v", err)
	}
}

func TestClient_Errors(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		timeout time.Duration
		want    error
	}{
		{
			name:    "server error",
			handler: func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusInternalServerError) },
			want:    fault.ErrNetworkFailure,
		},
		{
			name:    "not json",
			handler: func(w http.ResponseWriter, r *http.Request) { w.Write([]byte("<html>")) },
			want:    fault.ErrNetworkFailure,
		},
		{
			name: "timeout",
			handler: func(w http.ResponseWriter, r *http.Request) {
				<-r.Context().Done()
			},
			timeout: 20 * time.Millisecond,
			want:    fault.ErrTimeout,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			_, err := New(srv.URL, WithTimeout(tt.timeout)).Invoke(context.Background(), "getAppData", nil)
			if !errors.Is(err, tt.want) {
				t.Errorf("Invoke() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestClient_TimeoutIsNetworkFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	_, err := New(srv.URL, WithTimeout(10*time.Millisecond)).Invoke(context.Background(), "slow", nil)
	if !errors.Is(err, fault.ErrTimeout) || !errors.Is(err, fault.ErrNetworkFailure) {
		t.Errorf("Invoke() error = %v, want ErrTimeout and ErrNetworkFailure", err)
	}
}

func TestClient_Unconfigured(t *testing.T) {
	c := New("  ")
	if _, err := c.Invoke(context.Background(), "getAppData", nil); !errors.Is(err, fault.ErrUnconfigured) {
		t.Errorf("Invoke() error = %v, want ErrUnconfigured", err)
	}
	if _, err := c.ImageURL("abc"); !errors.Is(err, fault.ErrUnconfigured) {
		t.Errorf("ImageURL() error = %v, want ErrUnconfigured", err)
	}
}

func TestClient_ConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := New(url).Invoke(context.Background(), "getAppData", nil)
	if !errors.Is(err, fault.ErrNetworkFailure) {
		t.Errorf("Invoke() error = %v, want ErrNetworkFailure", err)
	}
	if errors.Is(err, fault.ErrTimeout) {
		t.Errorf("connection refused reported as timeout: %v", err)
	}
}

func TestClient_ImageURL(t *testing.T) {
	tests := []struct {
		base string
		id   string
		want string
	}{
		{"https://script.google.com/macros/s/abc/exec", "file1", "https://script.google.com/macros/s/abc/exec?img=file1"},
		{"https://script.google.com/macros/s/abc", "a b&c", "https://script.google.com/macros/s/abc/exec?img=a+b%26c"},
	}
	for _, tt := range tests {
		got, err := New(tt.base).ImageURL(tt.id)
		if err != nil {
			t.Fatalf("ImageURL() error = %v", err)
		}
		if got != tt.want {
			t.Errorf("ImageURL(%q) = %q, want %q", tt.id, got, tt.want)
		}
	}
}

func TestGo(t *testing.T) {
	ok := InvokerFunc(func(ctx context.Context, name string, args []any) (json.RawMessage, error) {
		return json.RawMessage(`"pong"`), nil
	})
	failing := InvokerFunc(func(ctx context.Context, name string, args []any) (json.RawMessage, error) {
		return nil, fault.ErrNetworkFailure
	})

	var result json.RawMessage
	var failure error
	<-Go(context.Background(), ok, "ping", nil,
		func(r json.RawMessage) { result = r },
		func(err error) { failure = err },
	)
	if string(result) != `"pong"` || failure != nil {
		t.Errorf("success path: result = %s, failure = %v", result, failure)
	}

	result, failure = nil, nil
	<-Go(context.Background(), failing, "ping", nil,
		func(r json.RawMessage) { result = r },
		func(err error) { failure = err },
	)
	if result != nil || !errors.Is(failure, fault.ErrNetworkFailure) {
		t.Errorf("failure path: result = %s, failure = %v", result, failure)
	}

	// Missing continuations are skipped.
	<-Go(context.Background(), failing, "ping", nil, nil, nil)
}
