// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package exceptions

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Table is the serialized form of a client's exception mapping.
//
//	strict: true
//	rules:
//	  - pattern: "invalid merkle root"
//	    category: BlockException.INVALID_STATE_ROOT
//	  - pattern: "^insufficient funds .*"
//	    regex: true
//	    category: TransactionException.INSUFFICIENT_ACCOUNT_FUNDS
type Table struct {
	Strict bool   `yaml:"strict"`
	Rules  []Rule `yaml:"rules"`
}

// ParseTable decodes a YAML encoded exception table.
func ParseTable(data []byte) (Table, error) {
	var table Table
	if err := yaml.Unmarshal(data, &table); err != nil {
		return Table{}, fmt.Errorf("invalid exception table: %w", err)
	}
	return table, nil
}

// LoadTable reads a YAML encoded exception table from the given file.
func LoadTable(path string) (Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Table{}, err
	}
	table, err := ParseTable(data)
	if err != nil {
		return Table{}, fmt.Errorf("%s: %w", path, err)
	}
	return table, nil
}

// Matcher compiles the rules of the table.
func (t Table) Matcher() (*Matcher, error) {
	return NewMatcher(t.Rules)
}
