package main

import (
	"context"
	"log"
	"os"
	"path/filepath"
	"strings"

	"voxelcraft.ai/knitting/internal/persistence/indexdb"
	"voxelcraft.ai/knitting/internal/sim/catalogs"
)

// openRuntimeIndex opens the sqlite read index and loads the rule set into
// it. KNIT_INDEX_BACKEND=none disables it like -disable_db.
func openRuntimeIndex(ctx context.Context, dataDir string, disableDB bool, cats *catalogs.Catalogs, logger *log.Logger) (*indexdb.SQLiteIndex, error) {
	if disableDB {
		return nil, nil
	}
	switch strings.ToLower(strings.TrimSpace(os.Getenv("KNIT_INDEX_BACKEND"))) {
	case "none", "off", "disabled":
		logger.Printf("index backend disabled (KNIT_INDEX_BACKEND)")
		return nil, nil
	}

	idx, err := indexdb.OpenSQLite(filepath.Join(dataDir, "index", "knitting.sqlite"))
	if err != nil {
		return nil, err
	}
	if err := idx.UpsertRules(ctx, cats.Conversions, cats.Mods); err != nil {
		_ = idx.Close()
		return nil, err
	}
	return idx, nil
}
