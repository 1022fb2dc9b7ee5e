// Package ingest reads supported document formats and splits them into chunks.
package ingest

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"

	"docqa/internal/chunker"
	"docqa/internal/domain"
)

var _ domain.Ingestor = (*Ingestor)(nil)

// Supported document types, keyed by lower-cased extension without the dot.
const (
	TypeText     = "txt"
	TypeMarkdown = "md"
	TypeCSV      = "csv"
	TypePDF      = "pdf"
)

// Ingestor reads files from disk and chunks them according to their type.
type Ingestor struct {
	text domain.Chunker
	rows *chunker.RowChunker
}

// New creates an Ingestor. Text, markdown and PDF content goes through text;
// CSV rows go through rows.
func New(text domain.Chunker, rows *chunker.RowChunker) *Ingestor {
	if text == nil {
		text = chunker.NewSentenceChunker(0, chunker.DefaultOverlapSentences)
	}
	if rows == nil {
		rows = chunker.NewRowChunker(0)
	}
	return &Ingestor{text: text, rows: rows}
}

// DocType returns the document type of path: its lower-cased extension without the dot.
func DocType(path string) string {
	return strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
}

// Supported reports whether path has an extension the Ingestor can read.
func Supported(path string) bool {
	switch DocType(path) {
	case TypeText, TypeMarkdown, TypeCSV, TypePDF:
		return true
	}
	return false
}

// Ingest reads path and returns its chunk texts in document order.
func (in *Ingestor) Ingest(ctx context.Context, path string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !Supported(path) {
		return nil, &domain.UnsupportedFormatError{Path: path, Ext: filepath.Ext(path)}
	}
	if DocType(path) == TypeCSV {
		rows, err := readCSV(path)
		if err != nil {
			return nil, err
		}
		return in.rows.ChunkRows(rows), nil
	}
	doc, err := Load(path)
	if err != nil {
		return nil, err
	}
	return in.text.Chunk(doc.Content), nil
}

// Load reads a text, markdown or PDF file into a Document.
func Load(path string) (domain.Document, error) {
	doc := domain.Document{Path: path, Type: DocType(path)}
	var err error
	switch doc.Type {
	case TypeText:
		doc.Content, err = readText(path)
	case TypeMarkdown:
		doc.Content, err = readText(path)
		doc.Content = StripMarkdown(doc.Content)
	case TypePDF:
		doc.Content, err = readPDF(path)
	default:
		return doc, &domain.UnsupportedFormatError{Path: path, Ext: filepath.Ext(path)}
	}
	if err != nil {
		return doc, err
	}
	return doc, nil
}

func readText(path string) (string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	return string(bytes.TrimPrefix(b, []byte("\uFEFF"))), nil
}

func readCSV(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	var rows [][]string
	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parse csv %s: %w", path, err)
		}
		rows = append(rows, rec)
	}
	if len(rows) > 0 && len(rows[0]) > 0 {
		rows[0][0] = strings.TrimPrefix(rows[0][0], "\uFEFF")
	}
	return rows, nil
}

func readPDF(path string) (string, error) {
	f, rdr, err := pdf.Open(path)
	if err != nil {
		if f != nil {
			_ = f.Close()
		}
		return "", fmt.Errorf("open pdf %s: %w", path, err)
	}
	defer f.Close()

	b, err := rdr.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("extract pdf text %s: %w", path, err)
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, b); err != nil {
		return "", fmt.Errorf("read pdf text %s: %w", path, err)
	}
	return buf.String(), nil
}
