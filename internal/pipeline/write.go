package pipeline

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/cespare/xxhash/v2"

	"github.com/Faultbox/heightmesh/pkg/formats"
	"github.com/Faultbox/heightmesh/pkg/mesh"
)

// atomicWrite calls write with a temporary path next to path and renames
// the result into place once write succeeds. The temporary name keeps the
// extension of path so that extension-driven writers behave the same.
func atomicWrite(path string, write func(tmp string) error) error {
	dir := filepath.Dir(path)
	f, err := os.CreateTemp(dir, ".heightmesh-*-"+filepath.Base(path))
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmp := f.Name()
	f.Close()

	if err := write(tmp); err != nil {
		os.Remove(tmp)
		return err
	}
	// CreateTemp makes the file private.
	if err := os.Chmod(tmp, 0o644); err != nil {
		os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("renaming output: %w", err)
	}
	return nil
}

// writeMesh encodes m to path and returns the xxhash64 of the bytes
// written.
func writeMesh(path string, m *mesh.Mesh, format formats.MeshFormat) (uint64, error) {
	digest := xxhash.New()
	err := atomicWrite(path, func(tmp string) error {
		f, err := os.Create(tmp)
		if err != nil {
			return err
		}
		defer f.Close()

		bw := bufio.NewWriterSize(f, 1<<20)
		if err := formats.EncodeMesh(io.MultiWriter(bw, digest), m, format); err != nil {
			return fmt.Errorf("encoding %s: %w", format, err)
		}
		if err := bw.Flush(); err != nil {
			return err
		}
		return f.Close()
	})
	if err != nil {
		return 0, err
	}
	return digest.Sum64(), nil
}

// FileDigest returns the xxhash64 of a file's contents.
func FileDigest(path string) (uint64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	d := xxhash.New()
	if _, err := io.Copy(d, f); err != nil {
		return 0, err
	}
	return d.Sum64(), nil
}
