package services_test

import (
	"errors"
	"strings"
	"testing"

	"orgsync/internal/services"
)

func TestWrapTagsMarker(t *testing.T) {
	base := errors.New("connection refused")
	err := services.Wrap(services.ErrTransient, "registry", "fetch", "code 1234", base)

	if !errors.Is(err, services.ErrTransient) {
		t.Fatal("expected transient marker")
	}
	if !errors.Is(err, base) {
		t.Fatal("expected wrapped cause to survive")
	}
	for _, want := range []string{"registry", "fetch", "code 1234"} {
		if !strings.Contains(err.Error(), want) {
			t.Fatalf("error message missing %q: %v", want, err)
		}
	}
}

func TestWrapDefaultsToTransient(t *testing.T) {
	err := services.Wrap(nil, "queue", "claim", "", nil)
	if !errors.Is(err, services.ErrTransient) {
		t.Fatal("nil marker should default to transient")
	}
}

func TestRetryable(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"transient", services.Wrap(services.ErrTransient, "registry", "fetch", "", nil), true},
		{"plain", errors.New("some failure"), true},
		{"validation", services.Wrap(services.ErrValidation, "registry", "fetch", "", nil), false},
		{"configuration", services.Wrap(services.ErrConfiguration, "config", "load", "", nil), false},
		{"not found", services.Wrap(services.ErrNotFound, "registry", "fetch", "", nil), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := services.Retryable(tc.err); got != tc.want {
				t.Fatalf("Retryable(%v) = %v, want %v", tc.err, got, tc.want)
			}
		})
	}
}
