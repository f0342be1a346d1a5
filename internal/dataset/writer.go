package dataset

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Output file names expected by the trainer.
const (
	TrainFile = "train.jsonl"
	ValidFile = "valid.jsonl"
	TestFile  = "test.jsonl"
)

// Files lists the paths written for a dataset.
type Files struct {
	Train string `json:"train"`
	Valid string `json:"valid"`
	Test  string `json:"test"`
}

// Write serializes the splits as JSONL under dir. All three files are staged
// before any of them replaces its predecessor, so a failed write leaves the
// previous dataset in place.
func Write(dir string, ds Dataset) (Files, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Files{}, fmt.Errorf("create output dir: %w", err)
	}

	files := Files{
		Train: filepath.Join(dir, TrainFile),
		Valid: filepath.Join(dir, ValidFile),
		Test:  filepath.Join(dir, TestFile),
	}

	splits := []struct {
		path     string
		examples []Example
	}{
		{files.Train, ds.Train},
		{files.Valid, ds.Valid},
		{files.Test, ds.Test},
	}

	temps := make([]string, 0, len(splits))
	discard := func() {
		for _, tmp := range temps {
			os.Remove(tmp)
		}
	}

	for _, split := range splits {
		if err := checkTarget(split.path); err != nil {
			return Files{}, err
		}
	}
	for _, split := range splits {
		tmp, err := stageJSONL(split.path, split.examples)
		if err != nil {
			discard()
			return Files{}, err
		}
		temps = append(temps, tmp)
	}

	for i, split := range splits {
		if err := os.Rename(temps[i], split.path); err != nil {
			discard()
			return Files{}, fmt.Errorf("rename %s: %w", split.path, err)
		}
	}

	return files, nil
}

// checkTarget rejects output paths that a rename could not replace.
func checkTarget(path string) error {
	info, err := os.Lstat(path)
	switch {
	case os.IsNotExist(err):
		return nil
	case err != nil:
		return fmt.Errorf("stat %s: %w", path, err)
	case !info.Mode().IsRegular():
		return fmt.Errorf("%s exists and is not a regular file", path)
	}
	return nil
}

// stageJSONL writes examples to a temp file next to path and returns its name.
func stageJSONL(path string, examples []Example) (name string, err error) {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return "", fmt.Errorf("create temp file for %s: %w", path, err)
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	w := bufio.NewWriter(tmp)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	for _, example := range examples {
		if err = enc.Encode(example); err != nil {
			return "", fmt.Errorf("encode example: %w", err)
		}
	}
	if err = w.Flush(); err != nil {
		return "", fmt.Errorf("flush %s: %w", path, err)
	}
	if err = tmp.Close(); err != nil {
		return "", fmt.Errorf("close %s: %w", path, err)
	}
	if err = os.Chmod(tmp.Name(), 0o644); err != nil {
		return "", fmt.Errorf("chmod %s: %w", path, err)
	}
	return tmp.Name(), nil
}
