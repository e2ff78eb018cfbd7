package publish

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-pkgz/lgr"

	"github.com/elonfeng/signalradar/pkg/trend"
)

// Publisher writes the CSV artifact to every configured destination.
type Publisher struct {
	paths []string
}

// NewPublisher creates a publisher writing to csvPath and, when siteDir is set, to siteDir/siteFile.
func NewPublisher(csvPath, siteDir, siteFile string) *Publisher {
	paths := []string{csvPath}
	if siteDir != "" {
		paths = append(paths, filepath.Join(siteDir, siteFile))
	}
	return &Publisher{paths: paths}
}

// Paths returns the destinations in write order.
func (p *Publisher) Paths() []string { return append([]string(nil), p.paths...) }

// Publish renders the signals once and replaces every destination file.
func (p *Publisher) Publish(signals []trend.Signal) error {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, signals); err != nil {
		return err
	}
	for _, path := range p.paths {
		if err := writeFileAtomic(path, buf.Bytes()); err != nil {
			return err
		}
		lgr.Printf("[INFO] wrote %s (%d rows)", path, len(signals))
	}
	return nil
}

// writeFileAtomic creates parent directories and swaps the file in with a rename.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create dir %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("create temp file in %s: %w", dir, err)
	}
	defer os.Remove(tmp.Name()) // no-op after a successful rename

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", tmp.Name(), err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", tmp.Name(), err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return fmt.Errorf("chmod %s: %w", tmp.Name(), err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("rename to %s: %w", path, err)
	}
	return nil
}
