package session

import (
	"strings"

	deckerr "github.com/shehryarbajwa/deckard-mini/internal/errors"
)

// Source is where an uploaded translation comes from
type Source interface {
	name() string
	content() []byte
}

// LocalFile is a translation picked on the operator's machine
type LocalFile struct {
	Name    string
	Content []byte
}

func (f LocalFile) name() string { return f.Name }

func (f LocalFile) content() []byte {
	if f.Content == nil {
		return []byte{}
	}
	return f.Content
}

// RemoteFile is a translation the upstream fetches by name
type RemoteFile string

func (f RemoteFile) name() string    { return string(f) }
func (f RemoteFile) content() []byte { return nil }

// CheckPOName accepts names ending in .po, whatever the case
func CheckPOName(name string) error {
	if name == "" || !strings.HasSuffix(strings.ToUpper(name), ".PO") {
		return deckerr.NotPOFile(name)
	}
	return nil
}
