package notifications_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"orgsync/internal/config"
	"orgsync/internal/notifications"
	"orgsync/internal/queue"
)

func TestNewServiceReturnsNoopWhenTopicMissing(t *testing.T) {
	cfg := config.Default()
	cfg.Notifications.NtfyTopic = ""
	svc := notifications.NewService(&cfg)
	if err := svc.NotifyDaemonStarted(context.Background()); err != nil {
		t.Fatalf("expected noop notifier to return nil, got %v", err)
	}
}

func TestNtfyServiceFormatsPayloads(t *testing.T) {
	tests := []struct {
		name           string
		notify         func(svc notifications.Service) error
		expectTitle    string
		expectMessage  string
		expectTags     string
		expectPriority string
	}{
		{
			name: "conflict detected",
			notify: func(svc notifications.Service) error {
				return svc.NotifyConflictDetected(context.Background(), queue.KindOrganization, "244", []string{"name", "acronym"})
			},
			expectTitle:    "Orgsync - Conflict",
			expectMessage:  "Conflict on organization 244: name, acronym\nManual resolution required",
			expectTags:     "orgsync,conflict,review",
			expectPriority: "high",
		},
		{
			name: "item failed",
			notify: func(svc notifications.Service) error {
				return svc.NotifyItemFailed(context.Background(), queue.KindUnit, "9001", "registry timeout")
			},
			expectTitle:    "Orgsync - Sync Failed",
			expectMessage:  "Gave up on unit 9001: registry timeout",
			expectTags:     "orgsync,failed,alert",
			expectPriority: "high",
		},
		{
			name: "clean batch",
			notify: func(svc notifications.Service) error {
				return svc.NotifyBatchCompleted(context.Background(), 12, 0, 0, 42*time.Second)
			},
			expectTitle:   "Orgsync - Batch Complete",
			expectMessage: "Batch complete: 12 items synced in 42s",
			expectTags:    "orgsync,batch,completed",
		},
		{
			name: "batch with failures",
			notify: func(svc notifications.Service) error {
				return svc.NotifyBatchCompleted(context.Background(), 10, 1, 2, 90*time.Second)
			},
			expectTitle:   "Orgsync - Batch Complete (attention needed)",
			expectMessage: "Batch complete: 10 synced, 1 failed, 2 conflicts in 1m30s",
			expectTags:    "orgsync,batch,completed",
		},
		{
			name: "daemon started",
			notify: func(svc notifications.Service) error {
				return svc.NotifyDaemonStarted(context.Background())
			},
			expectTitle:   "Orgsync - Started",
			expectMessage: "Sync daemon started",
			expectTags:    "orgsync,daemon,started",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var captured struct {
				title    string
				tags     string
				priority string
				body     string
			}

			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.Method != http.MethodPost {
					t.Fatalf("unexpected method: %s", r.Method)
				}
				captured.title = r.Header.Get("Title")
				captured.tags = r.Header.Get("Tags")
				captured.priority = r.Header.Get("Priority")
				body, err := io.ReadAll(r.Body)
				if err != nil {
					t.Fatalf("read body: %v", err)
				}
				captured.body = string(body)
				_ = r.Body.Close()
				w.WriteHeader(http.StatusOK)
			}))
			defer server.Close()

			cfg := config.Default()
			cfg.Notifications.NtfyTopic = server.URL
			cfg.Notifications.RequestTimeout = 5

			svc := notifications.NewService(&cfg)
			if err := tc.notify(svc); err != nil {
				t.Fatalf("notification returned error: %v", err)
			}

			if captured.title != tc.expectTitle {
				t.Fatalf("expected title %q, got %q", tc.expectTitle, captured.title)
			}
			if captured.body != tc.expectMessage {
				t.Fatalf("expected message %q, got %q", tc.expectMessage, captured.body)
			}
			if captured.tags != tc.expectTags {
				t.Fatalf("expected tags %q, got %q", tc.expectTags, captured.tags)
			}
			if captured.priority != tc.expectPriority {
				t.Fatalf("expected priority %q, got %q", tc.expectPriority, captured.priority)
			}
		})
	}
}

func TestNtfyServiceReportsServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "topic unavailable", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	cfg := config.Default()
	cfg.Notifications.NtfyTopic = server.URL

	svc := notifications.NewService(&cfg)
	if err := svc.TestNotification(context.Background()); err == nil {
		t.Fatal("expected error from failing ntfy endpoint")
	}
}
