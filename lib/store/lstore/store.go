package lstore

import (
	"github.com/ValentinKolb/eKV/lib/store"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/puzpuzpuz/xsync/v3"
)

var Logger = logger.GetLogger("store")

type storeImpl struct {
	data *xsync.MapOf[string, []byte]
}

// NewLocalStore creates a new local store instance.
// This store implementation is not distributed and only works on a single node.
// Values are kept in memory and are lost when the process exits.
func NewLocalStore() store.IStore {
	return &storeImpl{
		data: xsync.NewMapOf[string, []byte](),
	}
}

// --------------------------------------------------------------------------
// Interface Methods (docu see store/interface.go)
// --------------------------------------------------------------------------

func (s *storeImpl) Set(key string, value []byte) error {
	if value == nil {
		value = []byte{}
	}
	if _, replaced := s.data.LoadAndStore(key, value); replaced {
		Logger.Debugf("replaced value for key %q (%d bytes)", key, len(value))
	}
	return nil
}

func (s *storeImpl) Get(key string) ([]byte, bool, error) {
	val, ok := s.data.Load(key)
	return val, ok, nil
}

func (s *storeImpl) Has(key string) (bool, error) {
	_, ok := s.data.Load(key)
	return ok, nil
}

func (s *storeImpl) Size() (int, error) {
	return s.data.Size(), nil
}
