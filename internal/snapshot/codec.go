// Package snapshot persists the reconstructed category graph so that
// synchronization never has to re-read the dump.
package snapshot

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/dbsmedya/catalogsync/internal/graph"
)

// ErrNotFound is returned when no snapshot has been written yet.
var ErrNotFound = errors.New("snapshot not found")

// Encode writes g as a JSON object mapping each category name to the array
// of its product names. Category order is preserved.
func Encode(w io.Writer, g *graph.Graph) error {
	bw := bufio.NewWriter(w)

	if g.Len() == 0 {
		if _, err := bw.WriteString("{}\n"); err != nil {
			return err
		}
		return bw.Flush()
	}

	if _, err := bw.WriteString("{\n"); err != nil {
		return err
	}
	i := 0
	err := g.Each(func(category string, products []string) error {
		key, err := json.Marshal(category)
		if err != nil {
			return err
		}
		list, err := json.MarshalIndent(products, "  ", "  ")
		if err != nil {
			return err
		}
		sep := ",\n"
		if i == g.Len()-1 {
			sep = "\n"
		}
		i++
		_, err = fmt.Fprintf(bw, "  %s: %s%s", key, list, sep)
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}
	if _, err := bw.WriteString("}\n"); err != nil {
		return err
	}
	return bw.Flush()
}

// Decode reads a snapshot written by Encode, keeping category order.
// Categories with no products are dropped.
func Decode(r io.Reader) (*graph.Graph, error) {
	dec := json.NewDecoder(r)

	if err := expectDelim(dec, '{'); err != nil {
		return nil, err
	}

	g := graph.New()
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("failed to read category name: %w", err)
		}
		category, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("expected category name, got %v", tok)
		}

		var products []string
		if err := dec.Decode(&products); err != nil {
			return nil, fmt.Errorf("failed to read products of %q: %w", category, err)
		}
		g.Add(category, products...)
	}

	if err := expectDelim(dec, '}'); err != nil {
		return nil, err
	}
	g.Prune()
	return g, nil
}

func expectDelim(dec *json.Decoder, want json.Delim) error {
	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("malformed snapshot: %w", err)
	}
	if d, ok := tok.(json.Delim); !ok || d != want {
		return fmt.Errorf("malformed snapshot: expected %q, got %v", want, tok)
	}
	return nil
}
