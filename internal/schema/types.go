package schema

import (
	"strings"

	"github.com/google/uuid"

	"github.com/atlekbai/query_lowering/internal/ir"
)

// QuoteIdent quotes a SQL identifier, escaping embedded double quotes.
func QuoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// attributeNamespace scopes the name-based ids of attributes that do not
// come from the database.
var attributeNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("urn:lowering:attribute"))

// AttributeID returns the stable id of an attribute defined outside the
// database, so file-loaded dictionaries keep their ids across restarts.
func AttributeID(name string) uuid.UUID {
	return uuid.NewSHA1(attributeNamespace, []byte(name))
}

// AttributeDef is one entry of the attribute-type dictionary.
type AttributeDef struct {
	ID   uuid.UUID
	Name string
	Type ir.PrimitiveType
}

// fileFormat is the YAML layout read by LoadFile:
//
//	attributes:
//	  duration: float
//	  status: string
type fileFormat struct {
	Attributes map[string]string `yaml:"attributes"`
}
