package database

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestAssetsUpsertAndPrune(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	db, _ := setupTestDB(t)
	ctx := context.Background()
	mod := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	tx, err := db.BeginBatch()
	if err != nil {
		t.Fatalf("BeginBatch failed: %v", err)
	}
	for _, a := range []Asset{
		{Path: "products/a.jpg", Kind: AssetKindImage, Size: 10, ModTime: mod, FileHash: "h1"},
		{Path: "docs/b.pdf", Kind: AssetKindDocument, Size: 20, ModTime: mod},
	} {
		if err := db.UpsertAsset(tx, &a); err != nil {
			t.Fatalf("UpsertAsset failed: %v", err)
		}
	}
	if err := db.EndBatch(tx, nil); err != nil {
		t.Fatalf("EndBatch failed: %v", err)
	}

	got, err := db.GetAsset(ctx, "products/a.jpg")
	if err != nil {
		t.Fatalf("GetAsset failed: %v", err)
	}
	if got.Kind != AssetKindImage || got.Size != 10 || !got.ModTime.Equal(mod) || got.FileHash != "h1" {
		t.Errorf("GetAsset = %+v", got)
	}

	if _, err := db.GetAsset(ctx, "missing.jpg"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetAsset(missing) error = %v, want ErrNotFound", err)
	}

	// updated_at has second resolution
	time.Sleep(1100 * time.Millisecond)
	cutoff := time.Now()

	tx, err = db.BeginBatch()
	if err != nil {
		t.Fatalf("BeginBatch failed: %v", err)
	}
	if err := db.UpsertAsset(tx, &Asset{Path: "products/a.jpg", Kind: AssetKindImage, Size: 11, ModTime: mod}); err != nil {
		t.Fatalf("UpsertAsset failed: %v", err)
	}
	removed, err := db.DeleteMissingAssets(tx, cutoff)
	if endErr := db.EndBatch(tx, err); endErr != nil {
		t.Fatalf("EndBatch failed: %v", endErr)
	}
	if removed != 1 {
		t.Errorf("DeleteMissingAssets removed %d, want 1", removed)
	}

	n, _ := db.AssetCount(ctx)
	if n != 1 {
		t.Errorf("AssetCount = %d, want 1", n)
	}
}
