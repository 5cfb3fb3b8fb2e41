package report

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/vmihailenco/msgpack/v5"
)

// JSONWriter writes the document as JSON.
type JSONWriter struct {
	Indent string
}

func (w *JSONWriter) Extension() string { return "json" }

func (w *JSONWriter) Write(out io.Writer, doc *Document) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", w.Indent)
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("failed to encode json report: %w", err)
	}
	return nil
}

// MsgpackWriter writes the document as MessagePack.
type MsgpackWriter struct{}

func (w *MsgpackWriter) Extension() string { return "msgpack" }

func (w *MsgpackWriter) Write(out io.Writer, doc *Document) error {
	enc := msgpack.NewEncoder(out)
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("failed to encode msgpack report: %w", err)
	}
	return nil
}

// ReadMsgpack decodes a document written by MsgpackWriter.
func ReadMsgpack(in io.Reader) (*Document, error) {
	var doc Document
	if err := msgpack.NewDecoder(in).Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to decode msgpack report: %w", err)
	}
	return &doc, nil
}
