package server

import (
	"encoding/hex"
	"fmt"

	"github.com/ValentinKolb/eKV/lib/store"
	"github.com/ValentinKolb/eKV/rpc/codec"
	"github.com/ValentinKolb/eKV/rpc/common"
)

// NewIStoreServerAdapter creates the adapter for the store commands.
// The constant responses are compressed once with cdc and reused for every
// request. A nil metrics disables accounting.
func NewIStoreServerAdapter(cdc codec.ICodec, strictHex bool, metrics *common.ServerMetrics) (IRPCServerAdapter, error) {
	adapter := &iStoreServerAdapterImpl{strictHex: strictHex, metrics: metrics}

	for _, r := range []struct {
		dst   *[]byte
		plain string
	}{
		{&adapter.respOK, common.ResponseOK},
		{&adapter.respNotFound, common.ResponseNotFound},
		{&adapter.respFarewell, common.ResponseFarewell},
		{&adapter.respError, common.ResponseError},
	} {
		compressed, err := cdc.Compress([]byte(r.plain))
		if err != nil {
			return nil, fmt.Errorf("failed to compress response %q with %s: %w", r.plain, cdc.Name(), err)
		}
		*r.dst = compressed
	}

	return adapter, nil
}

type iStoreServerAdapterImpl struct {
	strictHex bool
	metrics   *common.ServerMetrics

	respOK       []byte
	respNotFound []byte
	respFarewell []byte
	respError    []byte
}

func (adapter *iStoreServerAdapterImpl) Handle(cmd common.Command, store store.IStore) ([]byte, bool) {
	// Check for nil store
	if store == nil {
		Logger.Errorf("handler: store is nil")
		adapter.countError()
		return adapter.respError, false
	}

	// Handle different command types
	switch cmd.CmdType {
	case common.CmdTSet:
		adapter.count(func(m *common.ServerMetrics) { m.RequestsSet.Inc() })

		value, err := hex.DecodeString(cmd.Value)
		if err != nil {
			if adapter.strictHex {
				Logger.Debugf("rejecting SET %s: %v", cmd.Key, err)
				adapter.countError()
				return adapter.respError, false
			}
			// lenient mode stores an empty value
			Logger.Debugf("SET %s with malformed hex, storing empty value: %v", cmd.Key, err)
			value = []byte{}
		}

		if err := store.Set(cmd.Key, value); err != nil {
			Logger.Errorf("SET %s failed: %v", cmd.Key, err)
			adapter.countError()
			return adapter.respError, false
		}
		return adapter.respOK, false

	case common.CmdTGet:
		adapter.count(func(m *common.ServerMetrics) { m.RequestsGet.Inc() })

		value, ok, err := store.Get(cmd.Key)
		if err != nil {
			Logger.Errorf("GET %s failed: %v", cmd.Key, err)
			adapter.countError()
			return adapter.respError, false
		}
		if !ok {
			adapter.count(func(m *common.ServerMetrics) { m.GetMisses.Inc() })
			return adapter.respNotFound, false
		}
		return value, false

	case common.CmdTBye:
		adapter.count(func(m *common.ServerMetrics) { m.RequestsBye.Inc() })
		return adapter.respFarewell, true

	default:
		adapter.count(func(m *common.ServerMetrics) { m.RequestsInvalid.Inc() })
		return adapter.respError, false
	}
}

func (adapter *iStoreServerAdapterImpl) count(f func(m *common.ServerMetrics)) {
	if adapter.metrics != nil {
		f(adapter.metrics)
	}
}

func (adapter *iStoreServerAdapterImpl) countError() {
	adapter.count(func(m *common.ServerMetrics) { m.RequestErrors.Inc() })
}
