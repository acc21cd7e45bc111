package keyword

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/hyperjump/sitewright/internal/document"
)

func template(t *testing.T, raw string) *document.Document {
	t.Helper()
	doc, err := document.Parse([]byte(raw))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	return doc
}

const restaurantRaw = `{"id":"restaurant","title":"Bistrô Classic","categories":["restaurant"],"tags":["menu","reservations"],
  "content":[{"elType":"section","elements":[{"elType":"column","elements":[
    {"elType":"widget","widgetType":"heading","settings":{"title":"{{HEADLINE}} seasonal dishes and wine"}}]}]}]}`

const lawRaw = `{"id":"law","title":"Counsel","categories":["law_firm"],"tags":["consultation"],
  "content":[{"elType":"section","elements":[{"elType":"column","elements":[
    {"elType":"widget","widgetType":"text-editor","settings":{"editor":"Trusted legal advice for families"}}]}]}]}`

func newIndexed(t *testing.T) *BleveIndex {
	t.Helper()
	idx, err := NewMemIndex()
	if err != nil {
		t.Fatalf("NewMemIndex: %v", err)
	}
	t.Cleanup(func() { _ = idx.Close() })
	ctx := context.Background()
	for _, raw := range []string{restaurantRaw, lawRaw} {
		if err := idx.Index(ctx, template(t, raw)); err != nil {
			t.Fatalf("Index: %v", err)
		}
	}
	return idx
}

func TestBleveIndex_SearchFindsContent(t *testing.T) {
	idx := newIndexed(t)
	ctx := context.Background()

	results, err := idx.Search(ctx, "seasonal wine", 10, nil)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 || results[0].ID != "restaurant" {
		t.Fatalf("expected restaurant only, got %+v", results)
	}

	results, err = idx.Search(ctx, "legal advice", 10, nil)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) == 0 || results[0].ID != "law" {
		t.Errorf("expected law first, got %+v", results)
	}
}

func TestBleveIndex_PlaceholderNamesNotIndexed(t *testing.T) {
	idx := newIndexed(t)
	results, err := idx.Search(context.Background(), "headline", 10, nil)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("expected placeholder names to be stripped, got %+v", results)
	}
}

func TestBleveIndex_AccentsAndCategories(t *testing.T) {
	idx := newIndexed(t)
	ctx := context.Background()

	results, err := idx.Search(ctx, "bistro", 10, nil)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) == 0 || results[0].ID != "restaurant" {
		t.Errorf("expected folded title match, got %+v", results)
	}

	results, err = idx.Search(ctx, "law firm", 10, nil)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) == 0 || results[0].ID != "law" {
		t.Errorf("expected category words to match, got %+v", results)
	}
}

func TestBleveIndex_TitleBoost(t *testing.T) {
	idx := newIndexed(t)
	results, err := idx.Search(context.Background(), "bistrô menu", 10, &SearchOptions{TitleBoost: 3})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 || results[0].ID != "restaurant" {
		t.Fatalf("expected restaurant only, got %+v", results)
	}
	if results[0].Score <= 0 {
		t.Errorf("expected positive score, got %v", results[0].Score)
	}
}

func TestBleveIndex_Fuzzy(t *testing.T) {
	idx := newIndexed(t)
	results, err := idx.Search(context.Background(), "restarant", 10, &SearchOptions{FuzzyEnabled: true, Fuzziness: 1})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) == 0 || results[0].ID != "restaurant" {
		t.Errorf("expected fuzzy match, got %+v", results)
	}
}

func TestBleveIndex_EmptyQuery(t *testing.T) {
	idx := newIndexed(t)
	results, err := idx.Search(context.Background(), "   ", 10, nil)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("expected no results, got %d", len(results))
	}
}

func TestBleveIndex_Delete(t *testing.T) {
	idx := newIndexed(t)
	ctx := context.Background()

	if err := idx.Delete(ctx, "law"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	results, err := idx.Search(ctx, "legal", 10, nil)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("expected 0 results after delete, got %d", len(results))
	}
	if n, _ := idx.DocCount(); n != 1 {
		t.Errorf("expected 1 template left, got %d", n)
	}
}

func TestNewBleveIndex_ReopensExisting(t *testing.T) {
	dir := t.TempDir()
	indexPath := filepath.Join(dir, "sub", "bleve")

	idx, err := NewBleveIndex(indexPath)
	if err != nil {
		t.Fatalf("NewBleveIndex: %v", err)
	}
	if err := idx.Index(context.Background(), template(t, lawRaw)); err != nil {
		t.Fatalf("Index: %v", err)
	}
	if err := idx.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if _, err := os.Stat(indexPath); err != nil {
		t.Errorf("index path should exist: %v", err)
	}

	idx2, err := NewBleveIndex(indexPath)
	if err != nil {
		t.Fatalf("NewBleveIndex (open existing): %v", err)
	}
	defer func() {
		_ = idx2.Close()
	}()
	if n, _ := idx2.DocCount(); n != 1 {
		t.Errorf("expected reopened index to keep 1 template, got %d", n)
	}
}
