package scanner

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/vmihailenco/msgpack/v5"
)

// EncodeJSON writes the catalog as indented JSON.
func EncodeJSON(w io.Writer, c *Catalog) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(c); err != nil {
		return fmt.Errorf("encode catalog as json: %w", err)
	}
	return nil
}

// EncodeMsgpack writes the catalog as MessagePack using the same field
// names as the JSON form.
func EncodeMsgpack(w io.Writer, c *Catalog) error {
	enc := msgpack.NewEncoder(w)
	if err := enc.Encode(c); err != nil {
		return fmt.Errorf("encode catalog as msgpack: %w", err)
	}
	return nil
}

// MarshalMsgpack returns the MessagePack form of the catalog.
func MarshalMsgpack(c *Catalog) ([]byte, error) {
	data, err := msgpack.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("encode catalog as msgpack: %w", err)
	}
	return data, nil
}

// DecodeMsgpack reads a catalog written by EncodeMsgpack or MarshalMsgpack.
func DecodeMsgpack(r io.Reader) (*Catalog, error) {
	var c Catalog
	if err := msgpack.NewDecoder(r).Decode(&c); err != nil {
		return nil, fmt.Errorf("decode msgpack catalog: %w", err)
	}
	return &c, nil
}
