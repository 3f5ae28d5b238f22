// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package fixture

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/exp/maps"
)

// PreAllocDir is the name of the directory below the fixture root holding
// the pre-allocation group files.
const PreAllocDir = "pre_alloc"

// DefaultCacheSize is the default number of pre-allocation group files kept
// in memory.
const DefaultCacheSize = 64

// Source provides access to the fixtures below a root directory.
type Source struct {
	root     string
	preAlloc *lru.Cache[string, []byte]
}

// Open creates a source for the fixtures below the given root directory.
func Open(root string, cacheSize int) (*Source, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("failed to open fixture directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("fixture root %s is not a directory", root)
	}
	if cacheSize <= 0 {
		cacheSize = DefaultCacheSize
	}
	cache, _ := lru.New[string, []byte](cacheSize) // can only fail for non-positive size
	return &Source{root: root, preAlloc: cache}, nil
}

// Root returns the root directory of this source.
func (s *Source) Root() string {
	return s.root
}

// Tests loads all test cases of all fixture files below the root directory
// whose id matches the given filter. A nil filter selects all tests. The
// result is sorted by test id.
func (s *Source) Tests(filter *regexp.Regexp) ([]*TestCase, error) {
	var res []*TestCase
	seen := map[string]string{}
	err := filepath.WalkDir(s.root, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if entry.IsDir() {
			if path != s.root && entry.Name() == PreAllocDir {
				return filepath.SkipDir
			}
			return nil
		}
		if !strings.HasSuffix(entry.Name(), ".json") {
			return nil
		}
		tests, err := LoadFile(path)
		if err != nil {
			return err
		}
		for _, test := range tests {
			if filter != nil && !filter.MatchString(test.ID) {
				continue
			}
			if other, found := seen[test.ID]; found {
				return fmt.Errorf("test %s defined in %s and %s", test.ID, other, path)
			}
			seen[test.ID] = path
			res = append(res, test)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(res, func(i, j int) bool { return res[i].ID < res[j].ID })
	return res, nil
}

// PreAlloc returns the content of the pre-allocation group file of the given
// hash. The returned slice must not be modified.
func (s *Source) PreAlloc(hash string) ([]byte, error) {
	if content, found := s.preAlloc.Get(hash); found {
		return content, nil
	}
	if hash == "" || strings.ContainsAny(hash, `/\:`) || hash == "." || hash == ".." {
		return nil, fmt.Errorf("invalid pre-allocation hash %q", hash)
	}
	path := filepath.Join(s.root, PreAllocDir, hash+".json")
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read pre-allocation group %s: %w", hash, err)
	}
	if !json.Valid(content) {
		return nil, fmt.Errorf("pre-allocation group %s is not valid JSON", hash)
	}
	s.preAlloc.Add(hash, content)
	return content, nil
}

// LoadFile reads the test cases of a single fixture file, sorted by id.
func LoadFile(path string) ([]*TestCase, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(path, content)
}

// Parse decodes the test cases of a fixture file, sorted by id. The path is
// only used for reporting.
func Parse(path string, content []byte) ([]*TestCase, error) {
	var tests map[string]*TestCase
	if err := json.Unmarshal(content, &tests); err != nil {
		return nil, fmt.Errorf("failed to parse fixture file %s: %w", path, err)
	}
	ids := maps.Keys(tests)
	sort.Strings(ids)
	res := make([]*TestCase, 0, len(ids))
	for _, id := range ids {
		test := tests[id]
		if test == nil {
			return nil, fmt.Errorf("%s: test %s is empty", path, id)
		}
		if err := test.validate(); err != nil {
			return nil, fmt.Errorf("%s: test %s: %w", path, id, err)
		}
		test.ID = id
		test.File = path
		res = append(res, test)
	}
	return res, nil
}
