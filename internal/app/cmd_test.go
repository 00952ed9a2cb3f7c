package app

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"testing"
)

func TestNewRootCommand_Subcommands(t *testing.T) {
	root := NewRootCommand(&bytes.Buffer{})

	var names []string
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	sort.Strings(names)

	want := []string{"healthcheck", "migrate", "seed", "serve", "worker"}
	for _, w := range want {
		found := false
		for _, n := range names {
			if n == w {
				found = true
			}
		}
		if !found {
			t.Errorf("subcommand %q not registered, got %v", w, names)
		}
	}
}

func TestRun_UnknownCommand_ReturnsError(t *testing.T) {
	err := Run(context.Background(), &bytes.Buffer{}, []string{"unknown"})
	if err == nil || !strings.Contains(err.Error(), "unknown command") {
		t.Fatalf("expected unknown command error, got %v", err)
	}
}

func TestRun_MigrateRejectsInvalidDirection(t *testing.T) {
	setTestEnv(t)
	restoreDefaultLogger(t)
	err := Run(context.Background(), &bytes.Buffer{}, []string{"migrate", "sideways"})
	if err == nil {
		t.Fatal("expected error for invalid migrate direction")
	}
}

func TestRun_WithMissingEnv_ReturnsError(t *testing.T) {
	restoreDefaultLogger(t)
	t.Setenv("DATABASE_URL", "")
	t.Setenv("JWT_SECRET", "")
	t.Setenv("JWT_REFRESH_SECRET", "")

	for _, args := range [][]string{{}, {"serve"}, {"worker"}, {"seed"}, {"migrate"}} {
		var buf bytes.Buffer
		if err := Run(context.Background(), &buf, args); err == nil {
			t.Errorf("Run(%v) with missing env should return error", args)
		}
	}
}

func TestRun_ServeFailsWhenDatabaseUnreachable(t *testing.T) {
	setTestEnv(t)
	restoreDefaultLogger(t)

	var buf bytes.Buffer
	err := Run(context.Background(), &buf, []string{"serve"})
	if err == nil || !strings.Contains(err.Error(), "database") {
		t.Fatalf("expected database error, got %v", err)
	}
}

func TestRun_Healthcheck(t *testing.T) {
	healthy := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/health" {
			http.NotFound(w, r)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer healthy.Close()

	unhealthy := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer unhealthy.Close()

	if err := Run(context.Background(), &bytes.Buffer{}, []string{"healthcheck", "--url", healthy.URL + "/health"}); err != nil {
		t.Errorf("healthy endpoint: %v", err)
	}
	err := Run(context.Background(), &bytes.Buffer{}, []string{"healthcheck", "--url", unhealthy.URL + "/health"})
	if err == nil || !strings.Contains(err.Error(), "503") {
		t.Errorf("unhealthy endpoint: %v", err)
	}
}
