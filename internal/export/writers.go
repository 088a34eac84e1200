package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

func WriteCSV(w io.Writer, t *Trace) error {
	cw := csv.NewWriter(w)

	header := append([]string{"time"}, t.Columns...)
	if err := cw.Write(header); err != nil {
		return err
	}

	for i, row := range t.Rows {
		rec := []string{strconv.FormatFloat(t.Times[i], 'f', 6, 64)}
		for _, val := range row {
			rec = append(rec, strconv.FormatFloat(val, 'f', 6, 64))
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

func WriteJSON(w io.Writer, t *Trace) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(t)
}

// WriteSVG plots the trace's default column against time.
func WriteSVG(w io.Writer, t *Trace) error {
	svg := TraceToSVG(t, t.DefaultColumn(), 800, 400, "#00ff88")
	if svg == "" {
		return fmt.Errorf("trace has fewer than two samples")
	}
	_, err := io.WriteString(w, svg)
	return err
}

// Format names accepted by Write.
var Formats = []string{"csv", "json", "svg"}

// Write dispatches on format.
func Write(w io.Writer, t *Trace, format string) error {
	switch strings.ToLower(format) {
	case "csv":
		return WriteCSV(w, t)
	case "json":
		return WriteJSON(w, t)
	case "svg":
		return WriteSVG(w, t)
	default:
		return fmt.Errorf("unknown export format: %s", format)
	}
}

// SaveFile writes the trace to path, picking the format from its extension.
func SaveFile(path string, t *Trace) error {
	format := strings.TrimPrefix(filepath.Ext(path), ".")
	if format == "" {
		return fmt.Errorf("cannot infer export format from %q", path)
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := Write(f, t, format); err != nil {
		f.Close()
		os.Remove(path)
		return err
	}
	return f.Close()
}
