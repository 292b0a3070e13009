package client

import (
	"encoding/hex"
	"errors"
	"fmt"
	"io"

	"github.com/ValentinKolb/eKV/lib/store"
	"github.com/ValentinKolb/eKV/rpc/codec"
	"github.com/ValentinKolb/eKV/rpc/common"
	"github.com/ValentinKolb/eKV/rpc/transport"
)

// ErrProtocol is returned when the server answers with an unexpected response
var ErrProtocol = errors.New("unexpected server response")

// NewRPCStore creates a new RPC store
// The function takes a config, a transport and a codec as parameters.
// Values are compressed with the codec before they are sent and decompressed
// after they are received, the server stores them as they are.
func NewRPCStore(
	config common.ClientConfig,
	transport transport.IRPCClientTransport,
	codec codec.ICodec,
) (*RPCStore, error) {

	// Connect the transport
	err := transport.Connect(config)
	if err != nil {
		return nil, err
	}

	// Return the RPC store
	return &RPCStore{
		rpcClientAdapter{
			config:    config,
			transport: transport,
			codec:     codec,
		},
	}, nil
}

// RPCStore is a store.IStore backed by a remote eKV server
type RPCStore struct {
	rpcClientAdapter
}

var _ store.IStore = (*RPCStore)(nil)

// --------------------------------------------------------------------------
// Interface Methods (docu see the store package in interface.go)
// --------------------------------------------------------------------------

func (i *RPCStore) Set(key string, value []byte) error {
	compressed, err := i.codec.Compress(value)
	if err != nil {
		return err
	}
	resp, err := i.invokeRPCRequest(common.NewSetCommand(key, hex.EncodeToString(compressed)))
	if err != nil {
		return err
	}
	return expect(resp, common.ResponseOK)
}

func (i *RPCStore) Get(key string) ([]byte, bool, error) {
	resp, err := i.invokeRPCRequest(common.NewGetCommand(key))
	if err != nil {
		return nil, false, err
	}
	switch string(resp) {
	case common.ResponseNotFound:
		return nil, false, nil
	case common.ResponseError:
		return nil, false, fmt.Errorf("RPC Client - GET %s: server error", key)
	}
	return resp, true, nil
}

func (i *RPCStore) Has(key string) (bool, error) {
	_, ok, err := i.Get(key)
	return ok, err
}

// Size is not part of the wire protocol
func (i *RPCStore) Size() (int, error) {
	return 0, store.NewError(store.RetCUnsupportedOperation, "size is not supported by the remote protocol")
}

// --------------------------------------------------------------------------
// Session Methods
// --------------------------------------------------------------------------

// Exec sends one console line and returns the decoded response.
// The value of a well-formed SET line is compressed and hex encoded first,
// every other line is sent unchanged so the server can reject it.
// If the response cannot be decoded, the raw bytes are returned with the error.
func (i *RPCStore) Exec(line string) (string, error) {
	cmd := common.ParseCommand([]byte(line))

	var req []byte
	if cmd.CmdType == common.CmdTSet {
		compressed, err := i.codec.Compress([]byte(cmd.Value))
		if err != nil {
			return "", err
		}
		req, err = common.NewSetCommand(cmd.Key, hex.EncodeToString(compressed)).Encode()
		if err != nil {
			return "", err
		}
	} else {
		req = append([]byte(line), common.LineDelimiter)
	}

	resp, err := i.send(req)
	return string(resp), err
}

// Bye ends the session. The server closes the connection after answering.
func (i *RPCStore) Bye() error {
	resp, err := i.invokeRPCRequest(common.NewByeCommand())
	if err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	if err != nil {
		return nil
	}
	return expect(resp, common.ResponseFarewell)
}

// Close closes the underlying transport
func (i *RPCStore) Close() error {
	return i.transport.Close()
}

func expect(resp []byte, want string) error {
	if string(resp) == want {
		return nil
	}
	if string(resp) == common.ResponseError {
		return fmt.Errorf("RPC Client - server error")
	}
	return fmt.Errorf("%w: %q, expected %q", ErrProtocol, resp, want)
}
