package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/ssargent/freyjadoc/pkg/document"
)

// writeDocument writes one document as indented JSON or a key/value table
func writeDocument(w io.Writer, doc document.Document, format string) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(doc)
	case "table":
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		for _, k := range doc.Keys() {
			fmt.Fprintf(tw, "%s:\t%s\n", k, formatValue(doc[k]))
		}
		return tw.Flush()
	}
	return fmt.Errorf("unknown output format %q", format)
}

// writeDocuments writes one JSON document per line, or one table row per document
func writeDocuments(w io.Writer, docs []document.Document, format string) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		for _, doc := range docs {
			if err := enc.Encode(doc); err != nil {
				return err
			}
		}
		return nil
	case "table":
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tNAME\tSUMMARY")
		for _, doc := range docs {
			fmt.Fprintf(tw, "%s\t%s\t%s\n", formatValue(doc["id"]), formatValue(doc["name"]), formatValue(doc["summary"]))
		}
		return tw.Flush()
	}
	return fmt.Errorf("unknown output format %q", format)
}

func formatValue(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case []interface{}, document.Document, map[string]interface{}:
		b, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprint(t)
		}
		return string(b)
	}
	return fmt.Sprint(v)
}
