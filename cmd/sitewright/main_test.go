package main

import (
	"bytes"
	"context"
	"flag"
	"net/http/httptest"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/hyperjump/sitewright/internal/cli"
	"github.com/hyperjump/sitewright/internal/config"
	"github.com/hyperjump/sitewright/internal/models"
	"github.com/hyperjump/sitewright/internal/orchestrator"
	"github.com/hyperjump/sitewright/internal/ranking"
	"github.com/hyperjump/sitewright/internal/server"
)

const restaurantTemplate = `{"id":"restaurant","title":"Restaurant","categories":["restaurant"],"tags":["menu"],"content":[
  {"id":"s1","elType":"section","elements":[{"id":"c1","elType":"column","elements":[
    {"id":"h1","elType":"widget","widgetType":"heading","settings":{"title":"{{HEADLINE}}"}},
    {"id":"t1","elType":"widget","widgetType":"text-editor","settings":{"editor":"{{ABOUT_TEXT}}"}}]}]}]}`

const lawTemplate = `{"id":"law","title":"Law Firm","categories":["law_firm"],"content":[
  {"id":"s","elType":"section","elements":[{"id":"w","elType":"widget","widgetType":"heading","settings":{"title":"{{BUSINESS_NAME}}"}}]}]}`

func bistro() models.BusinessProfile {
	return models.BusinessProfile{
		Name:        "Bistro Lua",
		Category:    "restaurant",
		Description: "Cozy bistro with seasonal food",
	}
}

func TestReorderArgs(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		expected []string
	}{
		{
			name:     "flags after paths are moved first",
			args:     []string{"./templates", "-config", "c.yaml"},
			expected: []string{"-config", "c.yaml", "./templates"},
		},
		{
			name:     "flags first returns unchanged",
			args:     []string{"-debug", "a.json"},
			expected: []string{"-debug", "a.json"},
		},
		{
			name:     "paths only returns unchanged",
			args:     []string{"a.json", "b.json"},
			expected: []string{"a.json", "b.json"},
		},
		{
			name:     "empty args returns unchanged",
			args:     []string{},
			expected: []string{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := reorderArgs(tt.args)
			if !reflect.DeepEqual(got, tt.expected) {
				t.Errorf("reorderArgs() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestSplitList(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"", nil},
		{"catering", []string{"catering"}},
		{" catering , private events,, ", []string{"catering", "private events"}},
	}
	for _, tt := range tests {
		if got := splitList(tt.in); !reflect.DeepEqual(got, tt.want) {
			t.Errorf("splitList(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestLoadConfig_usesExplicitPath(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.yaml")
	content := `
server:
  host: "127.0.0.1"
  port: 9000
storage:
  database_path: ":memory:"
`
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	t.Setenv(config.EnvServerPort, "9100")

	cfg, resolved, err := loadConfig(configPath)
	if err != nil {
		t.Fatal(err)
	}
	if resolved != configPath {
		t.Errorf("resolved path = %s, want %s", resolved, configPath)
	}
	if cfg.Server.Host != "127.0.0.1" || cfg.Server.Port != 9100 {
		t.Errorf("env should override the file port: %+v", cfg.Server)
	}
}

func TestLoadConfig_prefersCwdConfigWhenDefaultPath(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(configPath, []byte("debug: true\n"), 0600); err != nil {
		t.Fatal(err)
	}
	origWd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = os.Chdir(origWd) }()
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}

	cfg, resolved, err := loadConfig(defaultConfigPath)
	if err != nil {
		t.Fatal(err)
	}
	// On macOS, cwd can be /private/var/... while t.TempDir() is /var/...; compare canonical paths.
	resolvedCanon, _ := filepath.EvalSymlinks(resolved)
	configPathCanon, _ := filepath.EvalSymlinks(configPath)
	if resolvedCanon != configPathCanon {
		t.Errorf("resolved path = %s, want %s", resolvedCanon, configPathCanon)
	}
	if !cfg.Debug {
		t.Error("debug should be true from cwd config.yaml")
	}
}

func TestLoadConfig_missingDefaultUsesDefaults(t *testing.T) {
	if fileExists(defaultConfigPath) {
		t.Skip("a system config exists")
	}
	origWd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = os.Chdir(origWd) }()
	if err := os.Chdir(t.TempDir()); err != nil {
		t.Fatal(err)
	}

	cfg, resolved, err := loadConfig(defaultConfigPath)
	if err != nil {
		t.Fatal(err)
	}
	if resolved != "" {
		t.Errorf("resolved path = %q, want empty", resolved)
	}
	if cfg.Server.Port != 8080 || cfg.Generation.TopK != 3 {
		t.Errorf("defaults not applied: %+v", cfg)
	}
}

func TestLoadConfig_missingExplicitPath(t *testing.T) {
	if _, _, err := loadConfig(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for a missing explicit config")
	}
}

func TestProfileFlags(t *testing.T) {
	dir := t.TempDir()
	yamlPath := filepath.Join(dir, "bistro.yaml")
	content := `
name: Bistro Lua
category: restaurant
description: Cozy bistro
services: [Lunch, Dinner]
target_audience: families
contact:
  phone: "555-0100"
`
	if err := os.WriteFile(yamlPath, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	pf := addProfileFlags(fs)
	if err := fs.Parse([]string{"-profile", yamlPath, "-location", "Lisbon", "-services", "Brunch"}); err != nil {
		t.Fatal(err)
	}
	p, err := pf.profile()
	if err != nil {
		t.Fatal(err)
	}
	if p.Name != "Bistro Lua" || p.TargetAudience != "families" || p.Contact == nil || p.Contact.Phone != "555-0100" {
		t.Errorf("profile from file: %+v", p)
	}
	if p.Location != "Lisbon" || !reflect.DeepEqual(p.Services, []string{"Brunch"}) {
		t.Errorf("flags should override the file: %+v", p)
	}
}

func TestLoadProfile_JSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "p.json")
	if err := os.WriteFile(path, []byte(`{"name":"Ana Law","category":"law_firm","description":"Family law"}`), 0600); err != nil {
		t.Fatal(err)
	}
	p, err := loadProfile(path)
	if err != nil {
		t.Fatal(err)
	}
	if p.Name != "Ana Law" || p.Category != "law_firm" {
		t.Errorf("profile: %+v", p)
	}
}

func TestLoadPreferences(t *testing.T) {
	prefs, err := loadPreferences("")
	if err != nil || prefs.TemplateID != "" {
		t.Fatalf("empty path: %+v, %v", prefs, err)
	}
	path := filepath.Join(t.TempDir(), "prefs.json")
	body := `{"template_id":"restaurant","palette":{"primary":"#ff0000"},"replacements":[{"old":"Welcome","new":"Hello"}]}`
	if err := os.WriteFile(path, []byte(body), 0600); err != nil {
		t.Fatal(err)
	}
	prefs, err = loadPreferences(path)
	if err != nil {
		t.Fatal(err)
	}
	if prefs.TemplateID != "restaurant" || prefs.Palette == nil || prefs.Palette.Primary != "#ff0000" || len(prefs.Replacements) != 1 {
		t.Errorf("preferences: %+v", prefs)
	}
}

// testComponents wires the application against a temp template directory and
// an in-memory database.
func testComponents(t *testing.T) (*Components, *config.Config) {
	t.Helper()
	dir := t.TempDir()
	for name, body := range map[string]string{
		"restaurant.json": restaurantTemplate,
		"law.json":        lawTemplate,
		"broken.json":     `{"id":`,
	} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0600); err != nil {
			t.Fatal(err)
		}
	}
	cfg := &config.Config{}
	config.ApplyDefaults(cfg)
	cfg.Storage.DatabasePath = ":memory:"
	cfg.Templates.Directories = []string{dir, filepath.Join(dir, "missing")}

	components, err := initializeComponents(context.Background(), cfg, zap.NewNop())
	if err != nil {
		t.Fatalf("initializeComponents: %v", err)
	}
	t.Cleanup(components.Close)
	return components, cfg
}

func TestInitializeComponents(t *testing.T) {
	components, _ := testComponents(t)
	if got := components.Catalog.Len(); got != 2 {
		t.Fatalf("catalog size: got %d, want 2", got)
	}
	count, err := components.Storage.CountTemplates(context.Background())
	if err != nil || count != 2 {
		t.Errorf("stored templates: got %d, %v", count, err)
	}

	profile := bistro()
	results := components.Catalog.MatchBest(context.Background(), &profile, ranking.MatchOptions{TopK: 1})
	if len(results) != 1 || results[0].Document.ID != "restaurant" {
		t.Fatalf("best match: got %+v", results)
	}

	res := components.Orchestrator.Generate(context.Background(), orchestrator.Request{Profile: profile}, nil)
	if res.Err != nil {
		t.Fatalf("Generate: %v", res.Err)
	}
	if res.Report.MatchedTemplateID != "restaurant" {
		t.Errorf("matched: got %s", res.Report.MatchedTemplateID)
	}

	mfs, err := components.Registry.Gather()
	if err != nil {
		t.Fatal(err)
	}
	var catalogSize float64 = -1
	for _, mf := range mfs {
		if mf.GetName() == "sitewright_catalog_templates" {
			catalogSize = mf.GetMetric()[0].GetGauge().GetValue()
		}
	}
	if catalogSize != 2 {
		t.Errorf("catalog gauge: got %v, want 2", catalogSize)
	}
}

func TestImportPath(t *testing.T) {
	components, _ := testComponents(t)
	dir := t.TempDir()
	file := filepath.Join(dir, "cafe.json")
	if err := os.WriteFile(file, []byte(`{"id":"cafe","title":"Cafe","categories":["cafe"],"content":[]}`), 0600); err != nil {
		t.Fatal(err)
	}

	n, err := importPath(context.Background(), components.Catalog, file)
	if err != nil || n != 1 {
		t.Fatalf("importPath(file) = %d, %v", n, err)
	}
	n, err = importPath(context.Background(), components.Catalog, dir)
	if err != nil || n != 1 {
		t.Fatalf("importPath(dir) = %d, %v", n, err)
	}
	if _, err := importPath(context.Background(), components.Catalog, filepath.Join(dir, "none.json")); err == nil {
		t.Error("expected error for a missing path")
	}
	if components.Catalog.Len() != 3 {
		t.Errorf("catalog size: got %d, want 3", components.Catalog.Len())
	}
}

func TestViaHTTP(t *testing.T) {
	components, cfg := testComponents(t)
	srv := server.NewServer(components.Catalog, components.Orchestrator, cfg, server.WithStore(components.Storage))
	ts := httptest.NewServer(srv.Routes())
	defer ts.Close()

	var matchResp struct {
		Results []server.MatchItem `json:"results"`
	}
	if err := postJSON(ts.URL+"/api/v1/match", server.MatchRequest{Profile: bistro(), TopK: 2}, &matchResp); err != nil {
		t.Fatalf("postJSON(match): %v", err)
	}
	if len(matchResp.Results) != 2 || matchResp.Results[0].TemplateID != "restaurant" {
		t.Fatalf("match results: %+v", matchResp.Results)
	}
	var buf bytes.Buffer
	if err := encodeMatchItems(&buf, matchResp.Results, cli.OutputText); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "ID: restaurant") {
		t.Errorf("match text output:\n%s", buf.String())
	}

	res, err := generateViaHTTP(ts.URL, orchestrator.Request{Profile: bistro()})
	if err != nil {
		t.Fatalf("generateViaHTTP: %v", err)
	}
	if res.Status != models.StageDone || res.Document == nil || res.Document.ID != "restaurant" {
		t.Fatalf("result: status=%s doc=%v", res.Status, res.Document)
	}
	if res.Content == nil || res.Content.Headline == "" {
		t.Error("content should be decoded")
	}

	res, err = generateViaHTTP(ts.URL, orchestrator.Request{
		Profile:     bistro(),
		Preferences: orchestrator.Preferences{TemplateID: "missing"},
	})
	if err != nil {
		t.Fatalf("generateViaHTTP(missing template): %v", err)
	}
	if res.Err == nil || res.Status != models.StageFailed || res.Report.RunID == "" {
		t.Errorf("failed run should carry its report and error: %+v", res)
	}

	if err := postJSON(ts.URL+"/api/v1/match", map[string]string{"profile": "x"}, &matchResp); err == nil {
		t.Error("expected error for a bad request")
	}
}
