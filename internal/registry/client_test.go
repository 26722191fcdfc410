package registry

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"orgsync/internal/catalog"
	"orgsync/internal/config"
	"orgsync/internal/queue"
	"orgsync/internal/services"
)

func newTestClient(t *testing.T, serverURL string) *HTTPClient {
	t.Helper()
	cfg := config.Default()
	cfg.Registry.BaseURL = serverURL
	cfg.Registry.Token = "test-token"
	client := NewClient(&cfg)
	client.initialInterval = time.Millisecond
	return client
}

func TestFetchSuccess(t *testing.T) {
	var gotPath, gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"codigo":"244","nome":"MINISTÉRIO DA GESTÃO","sigla":"MGI","codigoPai":"26","ativo":true}`))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	record, err := client.Fetch(context.Background(), queue.KindOrganization, "244")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}

	if gotPath != "/orgao/244" {
		t.Fatalf("path = %q", gotPath)
	}
	if gotAuth != "Bearer test-token" {
		t.Fatalf("authorization = %q", gotAuth)
	}
	if record.Code != "244" || record.Kind != queue.KindOrganization {
		t.Fatalf("unexpected record: %+v", record)
	}

	fields := record.Fields()
	if fields[catalog.FieldName] != "Ministério da Gestão" {
		t.Fatalf("normalized name = %q", fields[catalog.FieldName])
	}
	if fields[catalog.FieldActive] != "true" {
		t.Fatalf("active = %q", fields[catalog.FieldActive])
	}
}

func TestFetchNotFound(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	_, err := client.Fetch(context.Background(), queue.KindUnit, "999")
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
	if calls.Load() != 1 {
		t.Fatalf("404 was retried %d times", calls.Load())
	}
}

func TestFetchRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"codigo":"10","nome":"Unidade","ativo":true}`))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	record, err := client.Fetch(context.Background(), queue.KindUnit, "10")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if calls.Load() != 3 {
		t.Fatalf("calls = %d, want 3", calls.Load())
	}
	if record.Name != "Unidade" {
		t.Fatalf("name = %q", record.Name)
	}
}

func TestFetchExhaustsRetryBudget(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	_, err := client.Fetch(context.Background(), queue.KindUnit, "10")
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("err = %v, want ErrTransient", err)
	}
	if calls.Load() != int32(client.maxTries) {
		t.Fatalf("calls = %d, want %d", calls.Load(), client.maxTries)
	}
}

func TestFetchClientErrorNotRetried(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "bad code", http.StatusBadRequest)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	_, err := client.Fetch(context.Background(), queue.KindUnit, "abc")
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("err = %v, want ErrValidation", err)
	}
	if calls.Load() != 1 {
		t.Fatalf("400 was retried %d times", calls.Load())
	}
}

func TestFetchRejectsUnknownKind(t *testing.T) {
	client := newTestClient(t, "http://127.0.0.1:0")
	_, err := client.Fetch(context.Background(), queue.EntityKind("agency"), "1")
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("err = %v, want ErrValidation", err)
	}
}

func TestNormalizeName(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"MINISTÉRIO DA FAZENDA", "Ministério da Fazenda"},
		{"SECRETARIA DE GESTÃO E INOVAÇÃO", "Secretaria de Gestão e Inovação"},
		{"  COORDENAÇÃO   DOS   SERVIÇOS ", "Coordenação dos Serviços"},
		{"Casa Civil", "Casa Civil"},
		{"", ""},
		{"ABC-123", "Abc-123"},
	}
	for _, tc := range cases {
		if got := NormalizeName(tc.in); got != tc.want {
			t.Errorf("NormalizeName(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
