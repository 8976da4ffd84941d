package workflow_test

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"epublift/internal/api"
	"epublift/internal/config"
	"epublift/internal/poller"
	"epublift/internal/transport"
	"epublift/internal/workflow"
	"epublift/internal/workspace"
)

const testToken = "0123456789abcdef0123456789abcdef"

// fakeService simulates the remote conversion API for one book with
// scripted ingest and conversion status sequences.
type fakeService struct {
	t *testing.T

	profileStatus  int
	ingestSteps    []string
	convertStates  []string
	artifact       []byte
	expectedUpload []byte

	mu          sync.Mutex
	creates     int
	uploads     int
	converts    int
	deletes     int
	ingestPolls int
	statusPolls int
	deletedID   string

	server *httptest.Server
}

func newFakeService(t *testing.T) *fakeService {
	t.Helper()
	s := &fakeService{
		t:             t,
		profileStatus: http.StatusOK,
		ingestSteps:   []string{"convert"},
		convertStates: []string{"ok"},
		artifact:      []byte{0x50, 0x4b, 0x03, 0x04, 0x00, 0xff, 0x42},
	}
	s.server = httptest.NewServer(http.HandlerFunc(s.handle))
	t.Cleanup(s.server.Close)
	return s
}

func (s *fakeService) handle(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	username, _, _ := r.BasicAuth()
	if username != testToken {
		s.t.Errorf("request %s %s missing token auth", r.Method, r.URL.Path)
	}

	switch {
	case r.URL.Path == "/api/profile":
		w.WriteHeader(s.profileStatus)
	case r.Method == http.MethodPost && r.URL.Path == "/api/books":
		s.creates++
		fmt.Fprint(w, `{"book":{"id":"book-1","bookflows":[{"id":"flow-1"}]}}`)
	case r.Method == http.MethodPost && r.URL.Path == "/api/bookflows/flow-1/files/document":
		s.uploads++
		var envelope struct {
			Filetype     string `json:"filetype"`
			SkipAnalysis bool   `json:"skip_analysis"`
			File         string `json:"file"`
		}
		if err := json.NewDecoder(r.Body).Decode(&envelope); err != nil {
			s.t.Errorf("decode upload envelope: %v", err)
		}
		if envelope.Filetype != "epub" || !envelope.SkipAnalysis {
			s.t.Errorf("unexpected envelope fields: %+v", envelope)
		}
		if s.expectedUpload != nil {
			decoded, err := base64.StdEncoding.DecodeString(envelope.File)
			if err != nil || !bytes.Equal(decoded, s.expectedUpload) {
				s.t.Errorf("uploaded payload mismatch (err=%v)", err)
			}
		}
		w.WriteHeader(http.StatusOK)
	case r.Method == http.MethodGet && r.URL.Path == "/api/bookflows/flow-1":
		idx := s.ingestPolls
		if idx >= len(s.ingestSteps) {
			idx = len(s.ingestSteps) - 1
		}
		s.ingestPolls++
		fmt.Fprintf(w, `{"bookflow":{"step":%q}}`, s.ingestSteps[idx])
	case r.Method == http.MethodPost && r.URL.Path == "/api/bookflows/flow-1/convert":
		s.converts++
		fmt.Fprintf(w, `{"download_url":%q}`, s.server.URL+"/download/flow-1")
	case r.URL.Path == "/download/flow-1/status":
		idx := s.statusPolls
		if idx >= len(s.convertStates) {
			idx = len(s.convertStates) - 1
		}
		s.statusPolls++
		fmt.Fprintf(w, `{"status":%q}`, s.convertStates[idx])
	case r.URL.Path == "/download/flow-1":
		_, _ = w.Write(s.artifact)
	case r.Method == http.MethodDelete && strings.HasPrefix(r.URL.Path, "/api/books/"):
		s.deletes++
		s.deletedID = strings.TrimPrefix(r.URL.Path, "/api/books/")
		w.WriteHeader(http.StatusOK)
	default:
		s.t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		w.WriteHeader(http.StatusNotFound)
	}
}

type fixture struct {
	runner *workflow.Runner
	ws     *workspace.Workspace
	cfg    *config.Config
	input  []byte
}

func newFixture(t *testing.T, service *fakeService, mutate func(*config.Config)) *fixture {
	t.Helper()

	input := []byte("original epub bytes \x00\xff")
	service.expectedUpload = input
	inputPath := filepath.Join(t.TempDir(), "my-book.epub")
	if err := os.WriteFile(inputPath, input, 0o644); err != nil {
		t.Fatalf("write input: %v", err)
	}

	cfg := config.Default()
	cfg.API.Host = service.server.URL
	cfg.API.Token = testToken
	cfg.InputFile = inputPath
	if mutate != nil {
		mutate(&cfg)
	}

	ws, err := workspace.New(t.TempDir(), nil)
	if err != nil {
		t.Fatalf("create workspace: %v", err)
	}
	t.Cleanup(func() { _ = ws.Release() })

	client := api.NewClient(transport.NewNative(testToken, 5*time.Second), service.server.URL)
	p := &poller.Poller{
		Interval:    time.Millisecond,
		MaxAttempts: cfg.Workflow.PollMaxAttempts,
		Sleep:       func(ctx context.Context, d time.Duration) error { return ctx.Err() },
	}

	runner, err := workflow.New(client, &cfg, p, ws, nil, nil)
	if err != nil {
		t.Fatalf("build runner: %v", err)
	}
	return &fixture{runner: runner, ws: ws, cfg: &cfg, input: input}
}

func TestRunFullSuccessDeletesRemoteJob(t *testing.T) {
	service := newFakeService(t)
	service.ingestSteps = []string{"processing", "processing", "convert"}
	service.convertStates = []string{"processing", "ok"}
	fx := newFixture(t, service, nil)

	result, err := fx.runner.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	wantOutput := filepath.Join(filepath.Dir(fx.cfg.InputFile), "my-book-flow-1.epub")
	if result.OutputPath != wantOutput {
		t.Fatalf("output path %q, want %q", result.OutputPath, wantOutput)
	}
	saved, err := os.ReadFile(result.OutputPath)
	if err != nil {
		t.Fatalf("read artifact: %v", err)
	}
	if !bytes.Equal(saved, service.artifact) {
		t.Fatalf("artifact corrupted: %x", saved)
	}
	if result.Book.ID != "book-1" || result.Book.BookflowID != "flow-1" {
		t.Fatalf("unexpected book identifiers: %+v", result.Book)
	}
	if result.Kept {
		t.Fatal("result should not be marked kept")
	}

	if service.deletes != 1 || service.deletedID != "book-1" {
		t.Fatalf("expected exactly one DELETE for book-1, got %d (%q)", service.deletes, service.deletedID)
	}
	if service.ingestPolls != 3 {
		t.Fatalf("expected exactly 3 ingest polls, got %d", service.ingestPolls)
	}
	if service.uploads != 1 || service.converts != 1 {
		t.Fatalf("expected single upload and convert, got %d/%d", service.uploads, service.converts)
	}
}

func TestRunKeepRemoteSkipsDeletion(t *testing.T) {
	service := newFakeService(t)
	fx := newFixture(t, service, func(cfg *config.Config) {
		cfg.Workflow.KeepRemote = true
	})

	result, err := fx.runner.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if service.deletes != 0 {
		t.Fatalf("expected zero DELETE calls, got %d", service.deletes)
	}
	if !result.Kept {
		t.Fatal("result should be marked kept")
	}
	want := service.server.URL + "/bookflow/flow-1/convert"
	if result.ContinuationURL != want {
		t.Fatalf("continuation url %q, want %q", result.ContinuationURL, want)
	}
}

func TestRunAuthFailureStopsBeforeCreation(t *testing.T) {
	service := newFakeService(t)
	service.profileStatus = http.StatusUnauthorized
	fx := newFixture(t, service, nil)

	_, err := fx.runner.Run(context.Background())
	if !errors.Is(err, workflow.ErrAuthentication) {
		t.Fatalf("expected authentication error, got %v", err)
	}
	if service.creates != 0 {
		t.Fatalf("book must not be created after auth failure, got %d creates", service.creates)
	}
	if service.deletes != 0 {
		t.Fatalf("no DELETE expected, got %d", service.deletes)
	}
}

func TestRunIngestFailureLeavesRemoteJob(t *testing.T) {
	service := newFakeService(t)
	service.ingestSteps = []string{"processing", "processing_failed"}
	fx := newFixture(t, service, nil)

	_, err := fx.runner.Run(context.Background())
	if !errors.Is(err, workflow.ErrRemote) {
		t.Fatalf("expected remote failure, got %v", err)
	}
	if !workflow.IsRemoteFailure(err) {
		t.Fatal("IsRemoteFailure should report true")
	}
	if service.creates != 1 || service.uploads != 1 {
		t.Fatalf("expected create+upload before failure, got %d/%d", service.creates, service.uploads)
	}
	if service.converts != 0 {
		t.Fatalf("conversion must not be triggered, got %d", service.converts)
	}
	if service.deletes != 0 {
		t.Fatalf("failed runs must not delete the remote job, got %d", service.deletes)
	}
}

func TestRunConversionFailureLeavesRemoteJob(t *testing.T) {
	service := newFakeService(t)
	service.convertStates = []string{"processing", "failed"}
	fx := newFixture(t, service, nil)

	_, err := fx.runner.Run(context.Background())
	if !errors.Is(err, workflow.ErrRemote) {
		t.Fatalf("expected remote failure, got %v", err)
	}
	if service.deletes != 0 {
		t.Fatalf("failed runs must not delete the remote job, got %d", service.deletes)
	}
}

func TestRunPollBudgetExhaustion(t *testing.T) {
	service := newFakeService(t)
	service.ingestSteps = []string{"processing"}
	fx := newFixture(t, service, func(cfg *config.Config) {
		cfg.Workflow.PollMaxAttempts = 3
	})

	_, err := fx.runner.Run(context.Background())
	if !errors.Is(err, poller.ErrBudgetExhausted) {
		t.Fatalf("expected budget exhaustion, got %v", err)
	}
	if !errors.Is(err, workflow.ErrTransport) {
		t.Fatalf("exhaustion should classify as transport error, got %v", err)
	}
	if service.ingestPolls != 3 {
		t.Fatalf("expected 3 polls before giving up, got %d", service.ingestPolls)
	}
	if service.deletes != 0 {
		t.Fatalf("no DELETE after exhaustion, got %d", service.deletes)
	}
}

func TestRunWorkspaceRemovedOnBothPaths(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		service := newFakeService(t)
		fx := newFixture(t, service, nil)
		if _, err := fx.runner.Run(context.Background()); err != nil {
			t.Fatalf("run: %v", err)
		}
		if err := fx.ws.Release(); err != nil {
			t.Fatalf("release: %v", err)
		}
		if _, err := os.Stat(fx.ws.Dir()); !os.IsNotExist(err) {
			t.Fatalf("workspace survived success path: %v", err)
		}
	})

	t.Run("failure", func(t *testing.T) {
		service := newFakeService(t)
		service.ingestSteps = []string{"processing_failed"}
		fx := newFixture(t, service, nil)
		if _, err := fx.runner.Run(context.Background()); err == nil {
			t.Fatal("expected failure")
		}
		if err := fx.ws.Release(); err != nil {
			t.Fatalf("release: %v", err)
		}
		if _, err := os.Stat(fx.ws.Dir()); !os.IsNotExist(err) {
			t.Fatalf("workspace survived failure path: %v", err)
		}
	})
}
