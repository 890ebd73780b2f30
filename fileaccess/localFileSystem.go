// Copyright 2018, RadiantBlue Technologies, Inc.
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

package fileaccess

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// FSAccess implements FileAccess over a local directory tree
type FSAccess struct{}

func (fs *FSAccess) filePath(rootPath string, path string) string {
	return filepath.Join(rootPath, filepath.FromSlash(path))
}

// ListObjects lists files below prefix, relative to rootPath and slash-separated
func (fs *FSAccess) ListObjects(rootPath string, prefix string) ([]string, error) {
	result := []string{}

	rootOnly := filepath.Clean(rootPath)
	fullPath := fs.filePath(rootPath, prefix)

	err := filepath.Walk(fullPath, func(pathFound string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() {
			rel, err := filepath.Rel(rootOnly, pathFound)
			if err != nil {
				return err
			}
			result = append(result, filepath.ToSlash(rel))
		}
		return nil
	})
	if os.IsNotExist(err) {
		return result, nil
	}
	sort.Strings(result)
	return result, err
}

// ReadObject implements FileAccess
func (fs *FSAccess) ReadObject(rootPath string, path string) ([]byte, error) {
	return os.ReadFile(fs.filePath(rootPath, path))
}

// WriteObject creates any missing parent directories, then writes the file
func (fs *FSAccess) WriteObject(rootPath string, path string, data []byte) error {
	fullPath := fs.filePath(rootPath, path)
	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return err
	}
	return os.WriteFile(fullPath, data, 0644)
}

// ReadJSON implements FileAccess
func (fs *FSAccess) ReadJSON(rootPath string, path string, itemsPtr interface{}, emptyIfNotFound bool) error {
	fileData, err := fs.ReadObject(rootPath, path)
	if err != nil {
		if emptyIfNotFound && fs.IsNotFoundError(err) {
			return nil
		}
		return err
	}

	return json.Unmarshal(fileData, itemsPtr)
}

// WriteJSON implements FileAccess
func (fs *FSAccess) WriteJSON(rootPath string, path string, itemsPtr interface{}) error {
	fileData, err := json.MarshalIndent(itemsPtr, "", "  ")
	if err != nil {
		return err
	}

	return fs.WriteObject(rootPath, path, fileData)
}

// IsNotFoundError implements FileAccess
func (fs *FSAccess) IsNotFoundError(err error) bool {
	return os.IsNotExist(err) || (err != nil && strings.Contains(err.Error(), "no such file"))
}
