package main

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/iwvelando/requisition-analyzer/internal/config"
	"github.com/iwvelando/requisition-analyzer/internal/model"
	"github.com/iwvelando/requisition-analyzer/internal/server"
	"github.com/iwvelando/requisition-analyzer/pkg/constants"
	"go.uber.org/zap"
)

const (
	exampleCatalog = "../../examples/catalog.yaml"
	exampleItems   = "../../examples/requisition.csv"
)

func TestInitializeLogger(t *testing.T) {
	tests := []struct {
		name     string
		cfg      config.LoggingConfig
		override string
		wantErr  bool
	}{
		{name: "defaults", cfg: config.LoggingConfig{}},
		{name: "console debug", cfg: config.LoggingConfig{Level: "debug", Format: "console"}},
		{name: "override wins", cfg: config.LoggingConfig{Level: "bogus"}, override: "warn"},
		{name: "bad level", cfg: config.LoggingConfig{Level: "loud"}, wantErr: true},
		{name: "bad format", cfg: config.LoggingConfig{Format: "xml"}, wantErr: true},
		{name: "file output", cfg: config.LoggingConfig{OutputFile: filepath.Join(t.TempDir(), "logs", "app.log")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, err := initializeLogger(tt.cfg, tt.override)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("initializeLogger() error = %v", err)
			}
			_ = logger.Sync()
		})
	}
}

func TestMergeLogging(t *testing.T) {
	base := config.LoggingConfig{Level: "info", Format: "console"}
	got := mergeLogging(base, config.LoggingConfig{Format: "json", OutputFile: "api.log"})
	want := config.LoggingConfig{Level: "info", Format: "json", OutputFile: "api.log"}
	if got != want {
		t.Fatalf("mergeLogging() = %+v, want %+v", got, want)
	}
}

func TestIssueToken(t *testing.T) {
	now := time.Now()
	token, err := issueToken("secret", "alice:Pharmacist", time.Hour, now)
	if err != nil {
		t.Fatalf("issueToken() error = %v", err)
	}
	p, err := server.ParseToken([]byte("secret"), token)
	if err != nil {
		t.Fatalf("ParseToken() error = %v", err)
	}
	if p.UserID != "alice" || p.Role != model.RolePharmacist {
		t.Fatalf("unexpected principal %+v", p)
	}

	for _, userRole := range []string{"alice", ":admin", "alice:owner"} {
		if _, err := issueToken("secret", userRole, time.Hour, now); err == nil {
			t.Errorf("issueToken(%q) expected error", userRole)
		}
	}
	if _, err := issueToken("", "alice:admin", time.Hour, now); err == nil {
		t.Error("expected error without a secret")
	}
}

func testConfiguration(t *testing.T, yaml string) *config.Configuration {
	t.Helper()
	conf, err := config.LoadConfigurationFromReader(strings.NewReader(yaml))
	if err != nil {
		t.Fatalf("failed to load configuration: %v", err)
	}
	return conf
}

func analyzeExample(t *testing.T, conf *config.Configuration, catalogImport string) *model.AnalysisReport {
	t.Helper()
	ctx := context.Background()
	dbs := &databases{}
	t.Cleanup(func() {
		if err := dbs.Close(); err != nil {
			t.Errorf("failed to close databases: %v", err)
		}
	})

	manager, err := buildManager(ctx, zap.NewNop(), conf, dbs, catalogImport)
	if err != nil {
		t.Fatalf("buildManager() error = %v", err)
	}

	var buf bytes.Buffer
	if _, err := analyzeFile(ctx, manager, exampleItems, "", constants.OutputFormatJSON, "R", &buf); err != nil {
		t.Fatalf("analyzeFile() error = %v", err)
	}
	var report model.AnalysisReport
	if err := json.Unmarshal(buf.Bytes(), &report); err != nil {
		t.Fatalf("output is not a JSON report: %v", err)
	}
	return &report
}

func checkRestock(t *testing.T, report *model.AnalysisReport) {
	t.Helper()
	if len(report.Results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(report.Results))
	}
	if got := report.TotalCost.StringFixed(2); got != "831.00" {
		t.Errorf("expected total cost 831.00, got %s", got)
	}
	if got := report.TotalSavings.StringFixed(2); got != "86.00" {
		t.Errorf("expected total savings 86.00, got %s", got)
	}
	want := "Split order: source Ibuprofen 400mg from PharmaCo; source Metformin 850mg & Omeprazole 20mg from MedSupply SA"
	if report.BestStrategy != want {
		t.Errorf("unexpected strategy %q", report.BestStrategy)
	}
}

func TestAnalyzeWithCatalog(t *testing.T) {
	conf := testConfiguration(t, "quotes:\n  catalogFile: "+exampleCatalog+"\n  retry:\n    attempts: 2\n")
	checkRestock(t, analyzeExample(t, conf, ""))
}

func TestAnalyzeWithSharedSQLite(t *testing.T) {
	conf := testConfiguration(t, `
quotes:
  source: sqlite
  dsn: ":memory:"
store:
  backend: sqlite
  dsn: ":memory:"
`)
	checkRestock(t, analyzeExample(t, conf, exampleCatalog))
}

func TestAnalyzeFileFormats(t *testing.T) {
	conf := testConfiguration(t, "quotes:\n  catalogFile: "+exampleCatalog+"\n")
	ctx := context.Background()
	manager, err := buildManager(ctx, zap.NewNop(), conf, &databases{}, "")
	if err != nil {
		t.Fatalf("buildManager() error = %v", err)
	}

	var pretty bytes.Buffer
	if _, err := analyzeFile(ctx, manager, exampleItems, "Ward A", constants.OutputFormatPretty, "R", &pretty); err != nil {
		t.Fatalf("analyzeFile() error = %v", err)
	}
	if !strings.Contains(pretty.String(), "PharmaCo") {
		t.Errorf("expected the depot plan in pretty output, got:\n%s", pretty.String())
	}

	var csvOut bytes.Buffer
	if _, err := analyzeFile(ctx, manager, exampleItems, "", constants.OutputFormatCSV, "R", &csvOut); err != nil {
		t.Fatalf("analyzeFile() error = %v", err)
	}
	if lines := strings.Count(strings.TrimSpace(csvOut.String()), "\n") + 1; lines != 5 {
		t.Errorf("expected 5 CSV lines, got %d", lines)
	}

	reqs, err := manager.List(ctx, model.Principal{UserID: localUser, Role: model.RoleAdmin})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(reqs) != 2 || reqs[0].Title != "Ward A" || reqs[1].Title != "requisition" {
		t.Fatalf("unexpected requisitions %+v", reqs)
	}

	if _, err := analyzeFile(ctx, manager, "missing.csv", "", constants.OutputFormatJSON, "R", &bytes.Buffer{}); err == nil {
		t.Fatal("expected error for a missing medication list")
	}
}

func TestBuildManagerErrors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"missing catalog", "quotes:\n  catalogFile: nope.yaml\n"},
		{"unknown source", "quotes:\n  source: fax\n"},
		{"unknown store", "quotes:\n  catalogFile: " + exampleCatalog + "\nstore:\n  backend: paper\n"},
		{"bad weighting", "analysis:\n  savingsWeighting: median\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dbs := &databases{}
			defer dbs.Close()
			if _, err := buildManager(context.Background(), zap.NewNop(), testConfiguration(t, tt.yaml), dbs, ""); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}
