package docstore

import (
	"crypto/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

var (
	idMu      sync.Mutex
	idEntropy = ulid.Monotonic(rand.Reader, 0)
)

// NewRunID returns a ULID. IDs from one process sort in creation order, so
// the run id logged for an invocation precedes every temp file it names.
func NewRunID() (string, error) {
	idMu.Lock()
	defer idMu.Unlock()
	id, err := ulid.New(ulid.Timestamp(time.Now().UTC()), idEntropy)
	if err != nil {
		return "", err
	}
	return id.String(), nil
}
