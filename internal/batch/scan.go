package batch

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/okian/docrisk/pkg/logger"
)

// Scan walks dir and returns every supported document in lexical order.
// A document's OCR text is read from a sibling file with the same base name
// and a .txt extension, when present.
func Scan(ctx context.Context, dir string) ([]Item, error) {
	logger.Get().Info(ctx, "scanning for documents", logger.String("dir", dir))

	var items []Item
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() || !supported(path) {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		item := Item{Path: path, Modified: info.ModTime()}
		sidecar := strings.TrimSuffix(path, filepath.Ext(path)) + sidecarExt
		if st, err := os.Stat(sidecar); err == nil && !st.IsDir() {
			item.TextPath = sidecar
		}
		items = append(items, item)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", dir, err)
	}

	sort.Slice(items, func(i, j int) bool { return items[i].Path < items[j].Path })
	logger.Get().Info(ctx, "documents found", logger.Int("count", len(items)))
	return items, nil
}

func supported(path string) bool {
	_, ok := supportedExts[strings.ToLower(filepath.Ext(path))]
	return ok
}
