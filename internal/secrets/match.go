// Package secrets locates and loads the credentials section that belongs to a
// configured adapter.
//
// Credentials live in a separate file from the adapter settings, under
// sections named `<subsystem>::<id>`, for example `[database::mydb]`. Both
// parts match case-insensitively and ignore surrounding whitespace, so
// `[ Database :: MyDB ]` also matches subsystem "database", id "mydb".
package secrets

import (
	"fmt"
	"strings"

	gtaerrors "github.com/grandtrade/gta/internal/errors"
)

// Separator splits a secrets section id into subsystem and main id.
const Separator = "::"

// SectionLister is the part of a parsed file that matching needs.
type SectionLister interface {
	SectionIDs() []string
}

// CompositeID returns the canonical secrets section id for an adapter.
func CompositeID(subsystem, mainID string) string {
	return subsystem + Separator + mainID
}

// SplitID splits a secrets section id. ok is false unless the id has exactly
// two parts.
func SplitID(sectionID string) (subsystem, mainID string, ok bool) {
	parts := strings.Split(sectionID, Separator)
	if len(parts) != 2 {
		return "", "", false
	}
	return parts[0], parts[1], true
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func matches(sectionID, subsystem, mainID string) bool {
	sub, id, ok := SplitID(sectionID)
	if !ok {
		return false
	}
	return normalize(sub) == normalize(subsystem) && normalize(id) == normalize(mainID)
}

// FindMatchingSecretsID returns the first section id, in file order, that
// matches subsystem and mainID. Ids without exactly one separator are skipped.
func FindMatchingSecretsID(sections SectionLister, subsystem, mainID string) (string, bool) {
	for _, id := range sections.SectionIDs() {
		if matches(id, subsystem, mainID) {
			return id, true
		}
	}
	return "", false
}

// FindUniqueSecretsID is the strict form of FindMatchingSecretsID: no match
// is ErrCredentialsNotFound and more than one is ErrAmbiguousSecrets.
func FindUniqueSecretsID(sections SectionLister, subsystem, mainID string) (string, error) {
	var found []string
	for _, id := range sections.SectionIDs() {
		if matches(id, subsystem, mainID) {
			found = append(found, id)
		}
	}

	switch len(found) {
	case 0:
		return "", fmt.Errorf("%w: no [%s] section", gtaerrors.ErrCredentialsNotFound, CompositeID(subsystem, mainID))
	case 1:
		return found[0], nil
	default:
		return "", fmt.Errorf("%w: %s matched by [%s]", gtaerrors.ErrAmbiguousSecrets,
			CompositeID(subsystem, mainID), strings.Join(found, "], ["))
	}
}
