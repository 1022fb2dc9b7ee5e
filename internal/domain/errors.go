package domain

import (
	"errors"
	"fmt"
)

// Error taxonomy shared by every stage of the pipeline.
var (
	// ErrSchema indicates a message payload that does not match its type.
	ErrSchema = errors.New("message schema violation")

	// ErrDimensionMismatch indicates an embedding whose length differs from the store.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")

	// ErrProviderMismatch indicates vectors produced by a different embedding provider
	// than the one recorded in the store. Matches ErrDimensionMismatch as well.
	ErrProviderMismatch = fmt.Errorf("%w: embedding provider differs from store", ErrDimensionMismatch)

	// ErrEmptyStore indicates a search against a store with no vectors.
	ErrEmptyStore = errors.New("no documents indexed yet")

	// ErrCorruptStore indicates persisted index and metadata disagree.
	// The store has to be rebuilt by hand.
	ErrCorruptStore = errors.New("vector store is corrupt")

	// ErrUnsupportedFormat indicates a file type the ingestion stage cannot read.
	ErrUnsupportedFormat = errors.New("unsupported file format")

	// ErrGeneration indicates the answer generator failed.
	ErrGeneration = errors.New("generation failed")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrLengthMismatch indicates parallel slices of different lengths.
	ErrLengthMismatch = errors.New("chunks and embeddings length mismatch")
)

// SchemaError describes why a message could not be constructed.
type SchemaError struct {
	Type   string
	Field  string
	Reason string
}

func (e *SchemaError) Error() string {
	switch {
	case e.Field != "":
		return fmt.Sprintf("%s payload: field %q %s", e.Type, e.Field, e.Reason)
	case e.Type != "":
		return fmt.Sprintf("%s payload: %s", e.Type, e.Reason)
	default:
		return "message: " + e.Reason
	}
}

func (e *SchemaError) Is(target error) bool { return target == ErrSchema }

// DimensionMismatchError reports the expected and actual embedding length.
type DimensionMismatchError struct {
	Want int
	Got  int
}

func (e *DimensionMismatchError) Error() string {
	return fmt.Sprintf("embedding dimension mismatch: store has %d, got %d", e.Want, e.Got)
}

func (e *DimensionMismatchError) Is(target error) bool { return target == ErrDimensionMismatch }

// CorruptStoreError points at the persisted file that failed to load.
type CorruptStoreError struct {
	Path   string
	Reason string
}

func (e *CorruptStoreError) Error() string {
	return fmt.Sprintf("vector store is corrupt (%s): %s", e.Path, e.Reason)
}

func (e *CorruptStoreError) Is(target error) bool { return target == ErrCorruptStore }

// UnsupportedFormatError names the file whose extension has no reader.
type UnsupportedFormatError struct {
	Path string
	Ext  string
}

func (e *UnsupportedFormatError) Error() string {
	return fmt.Sprintf("unsupported file format %q: %s", e.Ext, e.Path)
}

func (e *UnsupportedFormatError) Is(target error) bool { return target == ErrUnsupportedFormat }
