// Copyright 2020 PingCAP, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// See the License for the specific language governing permissions and
// limitations under the License.

package export

import (
	"strings"

	"github.com/scylladb/go-set/strset"
)

// TableFilter decides which tables of a schema are exported. Names are
// compared case-insensitively.
type TableFilter struct {
	include *strset.Set
	exclude *strset.Set
}

// NewTableFilter builds a filter. An empty include list admits every table
// not excluded.
func NewTableFilter(include, exclude []string) *TableFilter {
	return &TableFilter{
		include: upperSet(include),
		exclude: upperSet(exclude),
	}
}

func upperSet(names []string) *strset.Set {
	s := strset.NewWithSize(len(names))
	for _, n := range names {
		n = strings.TrimSpace(n)
		if n != "" {
			s.Add(strings.ToUpper(n))
		}
	}
	return s
}

// MatchTable reports whether table passes the filter.
func (f *TableFilter) MatchTable(table string) bool {
	name := strings.ToUpper(table)
	if f.exclude.Has(name) {
		return false
	}
	return f.include.IsEmpty() || f.include.Has(name)
}

func filterTables(tables []string, filter *TableFilter) (kept, ignored []string) {
	kept = make([]string, 0, len(tables))
	for _, t := range tables {
		if filter.MatchTable(t) {
			kept = append(kept, t)
		} else {
			ignored = append(ignored, t)
		}
	}
	return kept, ignored
}
