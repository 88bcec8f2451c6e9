package elfaes

import (
	"fmt"
	"strconv"
	"strings"

	elfaeserr "github.com/elfaes-go/elfaes/errors"
)

// ObjectIdentifier is the canonical (objectName, objectId) pair that
// namespaces exactly one business object. Wire form:
//
//	oid[{objectName}__{objectId}]{schemaVersion}
type ObjectIdentifier struct {
	ObjectName    string
	ObjectID      string
	SchemaVersion int
}

// NewObjectIdentifier builds an identifier with the current schema
// version (1), the common case for callers constructing fresh ones.
func NewObjectIdentifier(objectName, objectID string) ObjectIdentifier {
	return ObjectIdentifier{ObjectName: objectName, ObjectID: objectID, SchemaVersion: 1}
}

func (o ObjectIdentifier) String() string {
	return fmt.Sprintf("oid[%s__%s]%d", o.ObjectName, o.ObjectID, o.SchemaVersion)
}

// ParseObjectIdentifier parses the strict wire form. There is no
// legacy prefix for ObjectIdentifier (unlike VersionToken) — malformed
// input always fails InvalidInput.
func ParseObjectIdentifier(s string) (ObjectIdentifier, error) {
	const prefix = "oid["
	if !strings.HasPrefix(s, prefix) {
		return ObjectIdentifier{}, elfaeserr.New(elfaeserr.CodeIdentityInvalid, elfaeserr.KindInvalidInput,
			fmt.Sprintf("object identifier %q missing %q prefix", s, prefix))
	}
	rest := s[len(prefix):]
	closeIdx := strings.IndexByte(rest, ']')
	if closeIdx < 0 {
		return ObjectIdentifier{}, elfaeserr.New(elfaeserr.CodeIdentityInvalid, elfaeserr.KindInvalidInput,
			fmt.Sprintf("object identifier %q missing closing bracket", s))
	}
	body := rest[:closeIdx]
	versionPart := rest[closeIdx+1:]
	if versionPart == "" {
		return ObjectIdentifier{}, elfaeserr.New(elfaeserr.CodeIdentityInvalid, elfaeserr.KindInvalidInput,
			fmt.Sprintf("object identifier %q missing schema version", s))
	}
	schemaVersion, err := strconv.Atoi(versionPart)
	if err != nil {
		return ObjectIdentifier{}, elfaeserr.Wrap(elfaeserr.CodeIdentityInvalid, elfaeserr.KindInvalidInput,
			fmt.Sprintf("object identifier %q has non-numeric schema version", s), err)
	}
	nameID := strings.SplitN(body, "__", 2)
	if len(nameID) != 2 || nameID[0] == "" || nameID[1] == "" {
		return ObjectIdentifier{}, elfaeserr.New(elfaeserr.CodeIdentityInvalid, elfaeserr.KindInvalidInput,
			fmt.Sprintf("object identifier %q must contain objectName__objectId", s))
	}
	return ObjectIdentifier{ObjectName: nameID[0], ObjectID: nameID[1], SchemaVersion: schemaVersion}, nil
}

// VersionIdentifier pairs a stream identifier with the last known
// version. Version == -1 means "no events yet".
type VersionIdentifier struct {
	StreamIdentifier string
	Version          int64
}

// NoEvents is the sentinel Version meaning "stream has no events yet".
const NoEvents int64 = -1

// VersionToken fully qualifies a pointer to one event within one
// object's stream. Wire form:
//
//	vt[{objectName}__{objectId}__{streamIndex:d4}__{eventVersion:d4}]{schemaVersion}
//
// The legacy prefix "versionToken[...]" is accepted on parse but never
// produced by String.
type VersionToken struct {
	ObjectName    string
	ObjectID      string
	StreamIndex   int
	EventVersion  int64
	SchemaVersion int
}

func (t VersionToken) String() string {
	return fmt.Sprintf("vt[%s__%s__%04d__%04d]%d",
		t.ObjectName, t.ObjectID, t.StreamIndex, t.EventVersion, t.SchemaVersion)
}

const (
	versionTokenPrefix       = "vt["
	versionTokenLegacyPrefix = "versionToken["
)

// ParseVersionToken parses either the canonical "vt[...]" form or the
// legacy "versionToken[...]" form.
func ParseVersionToken(s string) (VersionToken, error) {
	var rest string
	switch {
	case strings.HasPrefix(s, versionTokenPrefix):
		rest = s[len(versionTokenPrefix):]
	case strings.HasPrefix(s, versionTokenLegacyPrefix):
		rest = s[len(versionTokenLegacyPrefix):]
	default:
		return VersionToken{}, elfaeserr.New(elfaeserr.CodeTokenInvalid, elfaeserr.KindInvalidInput,
			fmt.Sprintf("version token %q missing a recognized prefix", s))
	}
	closeIdx := strings.IndexByte(rest, ']')
	if closeIdx < 0 {
		return VersionToken{}, elfaeserr.New(elfaeserr.CodeTokenInvalid, elfaeserr.KindInvalidInput,
			fmt.Sprintf("version token %q missing closing bracket", s))
	}
	body := rest[:closeIdx]
	versionPart := rest[closeIdx+1:]
	if versionPart == "" {
		return VersionToken{}, elfaeserr.New(elfaeserr.CodeTokenInvalid, elfaeserr.KindInvalidInput,
			fmt.Sprintf("version token %q missing schema version", s))
	}
	schemaVersion, err := strconv.Atoi(versionPart)
	if err != nil {
		return VersionToken{}, elfaeserr.Wrap(elfaeserr.CodeTokenInvalid, elfaeserr.KindInvalidInput,
			fmt.Sprintf("version token %q has non-numeric schema version", s), err)
	}
	parts := strings.Split(body, "__")
	if len(parts) != 4 {
		return VersionToken{}, elfaeserr.New(elfaeserr.CodeTokenInvalid, elfaeserr.KindInvalidInput,
			fmt.Sprintf("version token %q must contain objectName__objectId__streamIndex__eventVersion", s))
	}
	streamIndex, err := strconv.Atoi(parts[2])
	if err != nil {
		return VersionToken{}, elfaeserr.Wrap(elfaeserr.CodeTokenInvalid, elfaeserr.KindInvalidInput,
			fmt.Sprintf("version token %q has non-numeric stream index", s), err)
	}
	eventVersion, err := strconv.ParseInt(parts[3], 10, 64)
	if err != nil {
		return VersionToken{}, elfaeserr.Wrap(elfaeserr.CodeTokenInvalid, elfaeserr.KindInvalidInput,
			fmt.Sprintf("version token %q has non-numeric event version", s), err)
	}
	if parts[0] == "" || parts[1] == "" {
		return VersionToken{}, elfaeserr.New(elfaeserr.CodeTokenInvalid, elfaeserr.KindInvalidInput,
			fmt.Sprintf("version token %q has empty objectName or objectId", s))
	}
	return VersionToken{
		ObjectName:    parts[0],
		ObjectID:      parts[1],
		StreamIndex:   streamIndex,
		EventVersion:  eventVersion,
		SchemaVersion: schemaVersion,
	}, nil
}
