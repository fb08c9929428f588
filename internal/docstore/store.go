// Package docstore reads and writes workflow documents on disk.
package docstore

import (
	"bytes"
	_ "embed"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/strongdm/labelpatch/internal/workflow"
)

// ErrMalformed marks input that is not JSON or does not have workflow shape.
var ErrMalformed = stderrors.New("malformed workflow")

//go:embed workflow.schema.json
var workflowSchemaRaw []byte

// Store loads a workflow from path and writes one back.
type Store interface {
	Load(path string) (*workflow.Document, error)
	Save(path string, doc *workflow.Document) error
}

type FileStore struct {
	schema *jsonschema.Schema
}

var _ Store = (*FileStore)(nil)

func NewFileStore() (*FileStore, error) {
	schema, err := compileWorkflowSchema()
	if err != nil {
		return nil, err
	}
	return &FileStore{schema: schema}, nil
}

func compileWorkflowSchema() (*jsonschema.Schema, error) {
	c := jsonschema.NewCompiler()
	c.Draft = jsonschema.Draft2020
	if err := c.AddResource("workflow.schema.json", bytes.NewReader(workflowSchemaRaw)); err != nil {
		return nil, err
	}
	return c.Compile("workflow.schema.json")
}

func (s *FileStore) Load(path string) (*workflow.Document, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read workflow %s", path)
	}
	if err := s.check(b); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	doc, err := workflow.Decode(b)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %v", path, ErrMalformed, err)
	}
	return doc, nil
}

func (s *FileStore) check(b []byte) error {
	var v any
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	if err := dec.Decode(&v); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if dec.More() {
		return fmt.Errorf("%w: trailing data after JSON document", ErrMalformed)
	}
	if s.schema == nil {
		return nil
	}
	if err := s.schema.Validate(v); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return nil
}

// Save encodes doc with tab indentation and replaces path atomically. An
// existing file keeps its permissions.
func (s *FileStore) Save(path string, doc *workflow.Document) error {
	b, err := doc.Bytes()
	if err != nil {
		return errors.Wrapf(err, "encode workflow %s", path)
	}
	mode := fs.FileMode(0o644)
	if st, err := os.Stat(path); err == nil {
		mode = st.Mode().Perm()
	}
	return writeFileAtomic(path, b, mode)
}

func writeFileAtomic(path string, b []byte, mode fs.FileMode) error {
	dir, base := filepath.Split(path)
	if dir == "" {
		dir = "."
	}
	id, err := NewRunID()
	if err != nil {
		return err
	}
	tmp := filepath.Join(dir, "."+base+"."+id+".tmp")
	f, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_EXCL, mode)
	if err != nil {
		return errors.Wrapf(err, "create temp file for %s", path)
	}
	if _, err := f.Write(b); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return errors.Wrapf(err, "write %s", tmp)
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return errors.Wrapf(err, "sync %s", tmp)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return errors.Wrapf(err, "close %s", tmp)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return errors.Wrapf(err, "replace %s", path)
	}
	return nil
}
