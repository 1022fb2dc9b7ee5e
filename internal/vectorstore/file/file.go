// Package file implements the default vector store: a flat binary index and a
// JSON metadata array in one directory, rewritten in full after every append.
package file

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sync"

	"docqa/internal/domain"
	"docqa/internal/vectorstore"
)

// File names inside the store directory.
const (
	IndexFile    = "vector_index.bin"
	MetadataFile = "chunk_metadata.json"
	LockFile     = "store.lock"
)

const (
	indexMagic   = "DQVI"
	indexVersion = 1
)

var _ vectorstore.Storage = (*Storage)(nil)

// Storage is a directory-backed store. Every operation reloads the persisted
// state under a lock, so several processes can share one directory.
type Storage struct {
	dir  string
	mu   sync.RWMutex
	lock *vectorstore.FileLock
}

// Open prepares dir and validates whatever is already persisted there.
func Open(dir string) (*Storage, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create store directory: %w", err)
	}
	lock, err := vectorstore.OpenLock(filepath.Join(dir, LockFile))
	if err != nil {
		return nil, err
	}
	s := &Storage{dir: dir, lock: lock}
	if _, err := s.read(); err != nil {
		_ = lock.Close()
		return nil, err
	}
	return s, nil
}

// Dir returns the store directory.
func (s *Storage) Dir() string { return s.dir }

func (s *Storage) Append(_ context.Context, records []domain.ChunkRecord, vectors [][]float32, provider string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.lock.Lock(); err != nil {
		return err
	}
	defer s.lock.Unlock()

	state, err := load(s.dir)
	if err != nil {
		return err
	}
	dim, err := state.CheckAppend(records, vectors, provider)
	if err != nil {
		return err
	}
	if len(vectors) == 0 {
		return nil
	}
	return save(s.dir, state, state.Appended(records, vectors, provider, dim))
}

func (s *Storage) Search(_ context.Context, query []float32, k int, provider string) ([]domain.SearchResult, error) {
	state, err := s.read()
	if err != nil {
		return nil, err
	}
	return state.Search(query, k, provider)
}

func (s *Storage) Stats(_ context.Context) (vectorstore.Stats, error) {
	state, err := s.read()
	if err != nil {
		return vectorstore.Stats{}, err
	}
	return state.Stats(), nil
}

func (s *Storage) Close() error { return s.lock.Close() }

// read loads the persisted state under shared locks.
func (s *Storage) read() (*vectorstore.Flat, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.lock.RLock(); err != nil {
		return nil, err
	}
	defer s.lock.RUnlock()
	return load(s.dir)
}

func load(dir string) (*vectorstore.Flat, error) {
	indexPath := filepath.Join(dir, IndexFile)
	metaPath := filepath.Join(dir, MetadataFile)

	state, err := readIndex(indexPath)
	indexMissing := errors.Is(err, os.ErrNotExist)
	if err != nil && !indexMissing {
		return nil, err
	}
	records, err := readMetadata(metaPath)
	metaMissing := errors.Is(err, os.ErrNotExist)
	if err != nil && !metaMissing {
		return nil, err
	}

	switch {
	case indexMissing && len(records) > 0:
		return nil, &domain.CorruptStoreError{Path: indexPath, Reason: fmt.Sprintf("missing while metadata holds %d records", len(records))}
	case indexMissing:
		return &vectorstore.Flat{}, nil
	case metaMissing && state.Len() > 0:
		return nil, &domain.CorruptStoreError{Path: metaPath, Reason: fmt.Sprintf("missing while index holds %d vectors", state.Len())}
	}
	state.Records = records
	if !state.Consistent() {
		return nil, &domain.CorruptStoreError{
			Path:   dir,
			Reason: fmt.Sprintf("index holds %d vectors, metadata %d records", len(state.Vectors), len(state.Records)),
		}
	}
	return state, nil
}

// save replaces the persisted pair with next. Both files are staged before
// either is renamed; if the metadata rename fails the index is rolled back to prev.
func save(dir string, prev, next *vectorstore.Flat) error {
	indexPath := filepath.Join(dir, IndexFile)
	metaPath := filepath.Join(dir, MetadataFile)

	records := next.Records
	if records == nil {
		records = []domain.ChunkRecord{}
	}
	meta, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("encode metadata: %w", err)
	}
	indexTmp, err := writeTemp(indexPath, encodeIndex(next))
	if err != nil {
		return fmt.Errorf("persist index: %w", err)
	}
	metaTmp, err := writeTemp(metaPath, meta)
	if err != nil {
		os.Remove(indexTmp)
		return fmt.Errorf("persist metadata: %w", err)
	}
	if err := os.Rename(indexTmp, indexPath); err != nil {
		os.Remove(indexTmp)
		os.Remove(metaTmp)
		return fmt.Errorf("persist index: %w", err)
	}
	if err := os.Rename(metaTmp, metaPath); err != nil {
		os.Remove(metaTmp)
		if rerr := restoreIndex(indexPath, prev); rerr != nil {
			return fmt.Errorf("persist metadata: %w (index rollback failed: %v)", err, rerr)
		}
		return fmt.Errorf("persist metadata: %w", err)
	}
	return nil
}

// restoreIndex puts back the index that matched the metadata still on disk.
func restoreIndex(path string, prev *vectorstore.Flat) error {
	if prev.Len() == 0 {
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return err
		}
		return nil
	}
	tmp, err := writeTemp(path, encodeIndex(prev))
	if err != nil {
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return err
	}
	return nil
}

// encodeIndex stores: magic, version, dim, count, provider length, provider,
// then count*dim little-endian float32 values in insertion order.
func encodeIndex(state *vectorstore.Flat) []byte {
	var buf bytes.Buffer
	buf.Grow(24 + len(state.Provider) + 4*state.Dimension*len(state.Vectors))
	buf.WriteString(indexMagic)
	putU32 := func(v uint32) { _ = binary.Write(&buf, binary.LittleEndian, v) }
	putU32(indexVersion)
	putU32(uint32(state.Dimension))
	putU32(uint32(len(state.Vectors)))
	putU32(uint32(len(state.Provider)))
	buf.WriteString(state.Provider)
	for _, v := range state.Vectors {
		buf.Write(vectorstore.EncodeVector(v))
	}
	return buf.Bytes()
}

func readIndex(path string) (*vectorstore.Flat, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	corrupt := func(reason string) error { return &domain.CorruptStoreError{Path: path, Reason: reason} }

	r := bytes.NewReader(data)
	magic := make([]byte, len(indexMagic))
	if _, err := io.ReadFull(r, magic); err != nil || string(magic) != indexMagic {
		return nil, corrupt("bad magic")
	}
	var header [4]uint32
	if err := binary.Read(r, binary.LittleEndian, &header); err != nil {
		return nil, corrupt("truncated header")
	}
	version, dim, count, providerLen := header[0], header[1], header[2], header[3]
	if version != indexVersion {
		return nil, corrupt(fmt.Sprintf("unsupported version %d", version))
	}
	if int64(providerLen) > int64(r.Len()) {
		return nil, corrupt("truncated provider")
	}
	provider := make([]byte, providerLen)
	if _, err := io.ReadFull(r, provider); err != nil {
		return nil, corrupt("truncated provider")
	}
	want := uint64(count) * uint64(dim) * 4
	if want != uint64(r.Len()) || want > math.MaxInt {
		return nil, corrupt(fmt.Sprintf("expected %d vector bytes, found %d", want, r.Len()))
	}
	rest := data[len(data)-r.Len():]
	vectors := make([][]float32, count)
	stride := int(dim) * 4
	for i := range vectors {
		vec, err := vectorstore.DecodeVector(rest[i*stride : (i+1)*stride])
		if err != nil {
			return nil, corrupt(err.Error())
		}
		vectors[i] = vec
	}
	return &vectorstore.Flat{Dimension: int(dim), Provider: string(provider), Vectors: vectors}, nil
}

func readMetadata(path string) ([]domain.ChunkRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var records []domain.ChunkRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, &domain.CorruptStoreError{Path: path, Reason: err.Error()}
	}
	return records, nil
}

// writeTemp writes data to a synced temp file next to path and returns its name.
func writeTemp(path string, data []byte) (string, error) {
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return "", err
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(tmp)
		return "", err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmp)
		return "", err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return "", err
	}
	return tmp, nil
}
