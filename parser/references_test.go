package parser

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolveDefinitionThenReference(t *testing.T) {
	table := newReferenceTable(functionTable)

	name, err := table.resolve("(1) foo")
	assert.NoError(t, err)
	assert.Equal(t, "foo", name)

	name, err = table.resolve("(1)")
	assert.NoError(t, err)
	assert.Equal(t, "foo", name)
}

func TestResolveUndefinedReference(t *testing.T) {
	table := newReferenceTable(functionTable)

	_, err := table.resolve("(2)")

	var undefined *UndefinedReferenceError
	assert.True(t, errors.As(err, &undefined))
	assert.Equal(t, "(2)", undefined.Ref)
	assert.Equal(t, "fn", undefined.Table)
	assert.EqualError(t, err, "(2) not found in fn table")
}

func TestResolveFirstDefinitionWins(t *testing.T) {
	table := newReferenceTable(fileTable)

	_, err := table.resolve("(1) first.c")
	assert.NoError(t, err)

	name, err := table.resolve("(1) second.c")
	assert.NoError(t, err)
	assert.Equal(t, "second.c", name)

	name, err = table.resolve("(1)")
	assert.NoError(t, err)
	assert.Equal(t, "first.c", name)
}

func TestResolvePlainNames(t *testing.T) {
	table := newReferenceTable(objectTable)

	for _, token := range []string{"main", "/usr/lib/libc.so.6", "operator()(int)", "???"} {
		name, err := table.resolve(token)
		assert.NoError(t, err)
		assert.Equal(t, token, name)
	}

	assert.Empty(t, table.entries)
}

func TestResolveKeepsSpacesInNames(t *testing.T) {
	table := newReferenceTable(functionTable)

	name, err := table.resolve("(3) std::vector<int, std::allocator<int> >::push_back(int const&)")
	assert.NoError(t, err)
	assert.Equal(t, "std::vector<int, std::allocator<int> >::push_back(int const&)", name)
}

func TestResolveTablesAreIndependent(t *testing.T) {
	files := newReferenceTable(fileTable)
	functions := newReferenceTable(functionTable)

	_, err := files.resolve("(1) file1.c")
	assert.NoError(t, err)

	_, err = functions.resolve("(1)")
	assert.Error(t, err)
}
