package maps

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

var ErrNoInstallDir = errors.New("catalog has no directory to install into")

// Installer copies map manifests into a catalog's directory. The copy runs
// on its own goroutine; the reload and the completion callback are handed to
// post so they run on the caller's control flow.
type Installer struct {
	Catalog *Catalog
	Post    func(func())
}

// Install copies src into the catalog directory and calls done with the
// result once the catalog has been reloaded.
func (in Installer) Install(src string, done func(error)) {
	dir := in.Catalog.Dir()
	if dir == "" {
		in.Post(func() { done(ErrNoInstallDir) })
		return
	}
	go func() {
		err := copyFile(src, filepath.Join(dir, filepath.Base(src)))
		in.Post(func() {
			if err == nil {
				err = in.Catalog.Reload()
			}
			done(err)
		})
	}()
}

func copyFile(src, dst string) (err error) {
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("create map dir: %w", err)
	}
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open map: %w", err)
	}
	defer in.Close()

	tmp := dst + ".tmp"
	out, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("create map: %w", err)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(tmp)
		return fmt.Errorf("copy map: %w", err)
	}
	if err := out.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("copy map: %w", err)
	}
	return os.Rename(tmp, dst)
}
