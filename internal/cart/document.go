package cart

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/fjod/botstore/internal/domain"
)

const schemaVersion = 1

var (
	ErrCorruptDocument    = errors.New("corrupt cart document")
	ErrUnsupportedVersion = errors.New("unsupported cart document version")
)

// document is the persisted form of a cart.
type document struct {
	Version int               `json:"version"`
	Items   []domain.CartLine `json:"items"`
}

func encode(lines []domain.CartLine) ([]byte, error) {
	if lines == nil {
		lines = []domain.CartLine{}
	}
	return json.Marshal(document{Version: schemaVersion, Items: lines})
}

// decode accepts the versioned document and the legacy bare array of lines.
// The result is checked against the cart invariants; anything that violates
// them is reported as corrupt rather than repaired.
func decode(data []byte) ([]domain.CartLine, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("%w: empty", ErrCorruptDocument)
	}

	var lines []domain.CartLine
	switch trimmed[0] {
	case '[':
		if err := json.Unmarshal(trimmed, &lines); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCorruptDocument, err)
		}
	case '{':
		var doc document
		if err := json.Unmarshal(trimmed, &doc); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCorruptDocument, err)
		}
		if doc.Version != schemaVersion {
			return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, doc.Version)
		}
		lines = doc.Items
	default:
		return nil, fmt.Errorf("%w: unexpected token %q", ErrCorruptDocument, trimmed[0])
	}

	seen := make(map[int64]struct{}, len(lines))
	for _, l := range lines {
		if l.Quantity < 1 {
			return nil, fmt.Errorf("%w: product %d has quantity %d", ErrCorruptDocument, l.ID, l.Quantity)
		}
		if l.Price.IsNegative() {
			return nil, fmt.Errorf("%w: product %d has negative price", ErrCorruptDocument, l.ID)
		}
		if _, dup := seen[l.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate product %d", ErrCorruptDocument, l.ID)
		}
		seen[l.ID] = struct{}{}
	}
	return lines, nil
}
