package parser

import "regexp"

const (
	objectTable   = "ob"
	fileTable     = "fl"
	functionTable = "fn"
)

// "(12) name" defines reference 12, "(12)" alone refers back to it.
var referenceRx = regexp.MustCompile(`^(\([0-9]+\))(?: (.+))?`)

type referenceTable struct {
	name    string
	entries map[string]string
}

func newReferenceTable(name string) *referenceTable {
	return &referenceTable{
		name:    name,
		entries: map[string]string{},
	}
}

// resolve expands a compressed name. Definitions are write-once: a second
// "(N) other" keeps the first name for later "(N)" lookups but still
// returns "other" to the caller.
func (t *referenceTable) resolve(token string) (string, error) {
	groups := referenceRx.FindStringSubmatch(token)
	if groups == nil {
		return token, nil
	}

	ref, name := groups[1], groups[2]
	if name != "" {
		if _, found := t.entries[ref]; !found {
			t.entries[ref] = name
		}
		return name, nil
	}

	name, found := t.entries[ref]
	if !found {
		return "", &UndefinedReferenceError{Table: t.name, Ref: ref}
	}
	return name, nil
}
