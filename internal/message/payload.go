package message

import "docqa/internal/domain"

// Type names the kind of a message on the wire.
type Type string

// Message types. The set is closed: every Payload implementation maps to exactly one.
const (
	TypeIngest   Type = "ingest"
	TypeIndex    Type = "index"
	TypeRetrieve Type = "retrieve"
	TypeGenerate Type = "generate"
	TypeAnswer   Type = "answer"
	TypeError    Type = "error"
)

// requiredFields lists the payload keys that must be present on the wire per type.
var requiredFields = map[Type][]string{
	TypeIngest:   {"doc_type", "file_path"},
	TypeIndex:    {"chunks", "embeddings"},
	TypeRetrieve: {"query"},
	TypeGenerate: {"question", "context"},
	TypeAnswer:   {"answer"},
	TypeError:    {"error"},
}

// Payload is the body of a message. Only the types in this package implement it.
type Payload interface {
	Type() Type
	validate() error
}

// Ingest asks the ingestion stage to read and chunk a file.
type Ingest struct {
	DocType  string `json:"doc_type"`
	FilePath string `json:"file_path"`
}

// Index carries chunk texts and their embeddings to the indexing stage.
type Index struct {
	Chunks     []string    `json:"chunks"`
	Embeddings [][]float32 `json:"embeddings"`
	SourceFile string      `json:"source_file,omitempty"`
}

// Retrieve asks the retrieval stage for context matching a query.
type Retrieve struct {
	Query string `json:"query"`
	TopK  int    `json:"top_k,omitempty"`
}

// Generate hands a question and its retrieved context to the generator.
type Generate struct {
	Question string   `json:"question"`
	Context  []string `json:"context"`
}

// Answer is the final response of a request.
type Answer struct {
	Answer      string   `json:"answer"`
	ContextUsed []string `json:"context_used,omitempty"`
}

// Error reports a failure of one stage. FilePath is set for per-file failures.
type Error struct {
	Message  string `json:"error"`
	FilePath string `json:"file_path,omitempty"`
}

func (Ingest) Type() Type   { return TypeIngest }
func (Index) Type() Type    { return TypeIndex }
func (Retrieve) Type() Type { return TypeRetrieve }
func (Generate) Type() Type { return TypeGenerate }
func (Answer) Type() Type   { return TypeAnswer }
func (Error) Type() Type    { return TypeError }

func (p Ingest) validate() error {
	if p.DocType == "" {
		return missing(TypeIngest, "doc_type")
	}
	if p.FilePath == "" {
		return missing(TypeIngest, "file_path")
	}
	return nil
}

func (p Index) validate() error {
	if p.Chunks == nil {
		return missing(TypeIndex, "chunks")
	}
	if p.Embeddings == nil {
		return missing(TypeIndex, "embeddings")
	}
	if len(p.Chunks) != len(p.Embeddings) {
		return &domain.SchemaError{Type: string(TypeIndex), Field: "embeddings", Reason: "must be parallel to chunks"}
	}
	return nil
}

func (p Retrieve) validate() error {
	if p.Query == "" {
		return missing(TypeRetrieve, "query")
	}
	return nil
}

func (p Generate) validate() error {
	if p.Question == "" {
		return missing(TypeGenerate, "question")
	}
	if p.Context == nil {
		return missing(TypeGenerate, "context")
	}
	return nil
}

func (p Answer) validate() error {
	// An empty answer is legal; the key only has to be present on the wire.
	return nil
}

func (p Error) validate() error {
	if p.Message == "" {
		return missing(TypeError, "error")
	}
	return nil
}

func missing(t Type, field string) error {
	return &domain.SchemaError{Type: string(t), Field: field, Reason: "is required"}
}

// newPayload returns a pointer to the zero payload for t, ready for decoding.
func newPayload(t Type) (any, bool) {
	switch t {
	case TypeIngest:
		return &Ingest{}, true
	case TypeIndex:
		return &Index{}, true
	case TypeRetrieve:
		return &Retrieve{}, true
	case TypeGenerate:
		return &Generate{}, true
	case TypeAnswer:
		return &Answer{}, true
	case TypeError:
		return &Error{}, true
	}
	return nil, false
}

func deref(p any) Payload {
	switch v := p.(type) {
	case *Ingest:
		return *v
	case *Index:
		return *v
	case *Retrieve:
		return *v
	case *Generate:
		return *v
	case *Answer:
		return *v
	case *Error:
		return *v
	}
	return nil
}
