// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package group

import (
	"fmt"
	"strconv"
	"strings"
)

// Identifier names the logical client group a test is executed in. Its
// textual form is either a bare pre-alloc group hash or a hash followed by a
// subgroup index, separated by a colon, e.g. "0xabc:2".
type Identifier string

// NewSubgroup creates the identifier of the given subgroup of a base hash.
func NewSubgroup(baseHash string, index int) Identifier {
	return Identifier(fmt.Sprintf("%s:%d", baseHash, index))
}

func (i Identifier) String() string {
	return string(i)
}

// BaseHash returns the pre-alloc group hash the identifier is derived from.
func (i Identifier) BaseHash() string {
	return ExtractBaseHash(string(i))
}

// Subgroup returns the subgroup index of the identifier. The second result is
// false if the identifier has no subgroup part or the part is not a number.
func (i Identifier) Subgroup() (int, bool) {
	_, rest, found := strings.Cut(string(i), ":")
	if !found {
		return 0, false
	}
	index, err := strconv.Atoi(rest)
	if err != nil {
		return 0, false
	}
	return index, true
}

// ExtractBaseHash returns the text before the first ':' of the given
// identifier, or the identifier itself if it contains no ':'. Note that the
// identifier ":" thus yields an empty base hash.
func ExtractBaseHash(identifier string) string {
	base, _, _ := strings.Cut(identifier, ":")
	return base
}

// ExecutionContext is the context a single test is executed in. Contexts
// may additionally implement GroupNamer if the facility distributing tests
// to workers assigned an explicit group to the test.
type ExecutionContext interface {
	// TestID returns the identifier of the test executed in this context.
	TestID() string
}

// GroupNamer is the optional grouping facility of an ExecutionContext.
type GroupNamer interface {
	// GroupName returns the name of the group the test was assigned to, or
	// an empty string if there is none.
	GroupName() (string, error)
}

// Resolve computes the identifier of the group the test running in the given
// context belongs to. If the context carries a group name, it is returned
// unmodified. Otherwise, including all cases where the group name can not be
// obtained, the pre-alloc hash of the test is the identifier.
func Resolve(ctx ExecutionContext, preAllocHash string) Identifier {
	if ctx == nil {
		panic("group: nil execution context")
	}
	if name := groupName(ctx); name != "" {
		return Identifier(name)
	}
	return Identifier(preAllocHash)
}

func groupName(ctx ExecutionContext) (name string) {
	namer, ok := ctx.(GroupNamer)
	if !ok {
		return ""
	}
	defer func() {
		if recover() != nil {
			name = ""
		}
	}()
	name, err := namer.GroupName()
	if err != nil {
		return ""
	}
	return name
}

// Context is a plain ExecutionContext with an optional group name.
type Context struct {
	ID    string
	Group string
}

func (c Context) TestID() string {
	return c.ID
}

func (c Context) GroupName() (string, error) {
	return c.Group, nil
}
