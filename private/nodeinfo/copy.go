// Copyright 2026 Anapaya Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//   http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package nodeinfo

import (
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/permledger/noded/pkg/private/serrors"
)

// descriptor is one discovered node-info file.
type descriptor struct {
	path    string
	modTime time.Time
}

// listDescriptors returns the descriptor files directly inside dir, with
// their modification timestamps.
func listDescriptors(dir string) ([]descriptor, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, serrors.Wrap("reading directory", err, "dir", dir)
	}
	var files []descriptor
	for _, entry := range entries {
		if entry.IsDir() || !isDescriptor(entry.Name()) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			return nil, serrors.Wrap("stating file", err, "name", entry.Name())
		}
		files = append(files, descriptor{
			path:    filepath.Join(dir, entry.Name()),
			modTime: info.ModTime(),
		})
	}
	return files, nil
}

// atomicCopy copies src to dst such that a concurrent reader of dst never
// observes partial contents: the bytes are written to a uniquely-named
// temporary file in dst's directory, which is then renamed over dst. The
// rename overwrites an existing destination file. On failure the temporary
// file is removed best-effort and the error is returned.
func atomicCopy(src, dst string) error {
	info, err := os.Stat(src)
	if err != nil {
		return serrors.Wrap("stating source", err, "src", src)
	}
	in, err := os.Open(src)
	if err != nil {
		return serrors.Wrap("opening source", err, "src", src)
	}
	defer in.Close()

	tmp, err := os.CreateTemp(filepath.Dir(dst), ".nodeinfo-*.tmp")
	if err != nil {
		return serrors.Wrap("creating temporary file", err, "dir", filepath.Dir(dst))
	}
	tmpName := tmp.Name()
	if _, err := io.Copy(tmp, in); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return serrors.Wrap("copying contents", err, "src", src, "tmp", tmpName)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return serrors.Wrap("closing temporary file", err, "tmp", tmpName)
	}
	// Preserve the source attributes on the copy.
	if err := os.Chmod(tmpName, info.Mode()); err != nil {
		os.Remove(tmpName)
		return serrors.Wrap("setting mode", err, "tmp", tmpName)
	}
	if err := os.Chtimes(tmpName, time.Now(), info.ModTime()); err != nil {
		os.Remove(tmpName)
		return serrors.Wrap("setting timestamps", err, "tmp", tmpName)
	}
	if err := os.Rename(tmpName, dst); err != nil {
		os.Remove(tmpName)
		return serrors.Wrap("renaming into place", err, "tmp", tmpName, "dst", dst)
	}
	return nil
}

func mkdirAll(dir string) error {
	return os.MkdirAll(dir, 0755)
}
