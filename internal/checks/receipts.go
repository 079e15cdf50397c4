package checks

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

var receiptSkipDirs = map[string]bool{
	".git":         true,
	"node_modules": true,
	"vendor":       true,
	"__pycache__":  true,
	".venv":        true,
}

// Receipts scores 100 when at least one valid proof-pack receipt exists.
// A receipt is any *.receipt.json file in the tree, or any .json file under
// .assay/receipts/, whose content parses as a JSON object. Invalid files are
// ignored rather than failing the check.
func Receipts(root string) Result {
	var count int
	var first string

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if receiptSkipDirs[d.Name()] {
				return filepath.SkipDir
			}
			return nil
		}
		if !isReceiptPath(root, path) {
			return nil
		}
		if !validReceipt(path) {
			return nil
		}
		if first == "" {
			first = rel(root, path)
		}
		count++
		return nil
	})
	if err != nil || count == 0 {
		return Result{Detail: "no receipts found"}
	}
	return Result{
		Score:    100,
		Evidence: first,
		Detail:   fmt.Sprintf("%d receipt(s)", count),
		Count:    count,
	}
}

func isReceiptPath(root, path string) bool {
	name := filepath.Base(path)
	if strings.HasSuffix(name, ".receipt.json") {
		return true
	}
	if !strings.HasSuffix(name, ".json") {
		return false
	}
	receiptDir := filepath.Join(root, ".assay", "receipts")
	return strings.HasPrefix(path, receiptDir+string(filepath.Separator))
}

// validReceipt reports whether the file parses as a JSON object.
func validReceipt(path string) bool {
	data, err := os.ReadFile(path)
	if err != nil {
		return false
	}
	var obj map[string]any
	return json.Unmarshal(data, &obj) == nil
}
