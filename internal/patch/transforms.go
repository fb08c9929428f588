package patch

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/strongdm/labelpatch/internal/topology"
	"github.com/strongdm/labelpatch/internal/workflow"
)

// Transform mutates a decoded workflow between load and save.
type Transform interface {
	ID() string
	Apply(doc *workflow.Document) error
}

// TransformRegistry stores transforms to apply in registration order.
type TransformRegistry struct {
	transforms []Transform
}

func NewTransformRegistry() *TransformRegistry { return &TransformRegistry{} }

func (r *TransformRegistry) Register(t Transform) {
	if r == nil || t == nil {
		return
	}
	r.transforms = append(r.transforms, t)
}

func (r *TransformRegistry) List() []Transform {
	if r == nil || len(r.transforms) == 0 {
		return nil
	}
	return append([]Transform{}, r.transforms...)
}

// Prepare applies every registered transform to doc, stopping at the first
// failure.
func Prepare(doc *workflow.Document, reg *TransformRegistry) error {
	for _, t := range reg.List() {
		if err := t.Apply(doc); err != nil {
			return fmt.Errorf("transform %s: %w", t.ID(), err)
		}
	}
	return nil
}

// LabelTransform runs Patch with a fixed table and keeps the last result.
type LabelTransform struct {
	Table  *topology.Table
	Logger *zap.Logger

	Last *Result
}

func (t *LabelTransform) ID() string { return "insert_test_labels" }

func (t *LabelTransform) Apply(doc *workflow.Document) error {
	res, err := Patch(doc, t.Table, t.Logger)
	if err != nil {
		return err
	}
	t.Last = res
	return nil
}

// DefaultRegistry returns a registry holding only the label transform.
func DefaultRegistry(table *topology.Table, log *zap.Logger) (*TransformRegistry, *LabelTransform) {
	lt := &LabelTransform{Table: table, Logger: log}
	reg := NewTransformRegistry()
	reg.Register(lt)
	return reg, lt
}
