package client

import (
	"fmt"

	"github.com/ValentinKolb/eKV/rpc/codec"
	"github.com/ValentinKolb/eKV/rpc/common"
	"github.com/ValentinKolb/eKV/rpc/transport"
	"github.com/lni/dragonboat/v4/logger"
)

var (
	Logger = logger.GetLogger("client")
)

// rpcClientAdapter is a struct that stores all data needed for an implementation of an RPC client
type rpcClientAdapter struct {
	config    common.ClientConfig
	transport transport.IRPCClientTransport
	codec     codec.ICodec
}

// complete reports whether resp is a whole compressed response
func (a *rpcClientAdapter) complete(resp []byte) bool {
	_, err := a.codec.Decompress(resp)
	return err == nil
}

// invokeRPCRequest is a helper function used by the RPC client to send commands
// It encodes the command, sends it and returns the decompressed response.
// The raw response is returned together with an error if it could not be
// decompressed.
func (a *rpcClientAdapter) invokeRPCRequest(cmd common.Command) ([]byte, error) {
	reqBytes, err := cmd.Encode()
	if err != nil {
		return nil, err
	}
	return a.send(reqBytes)
}

// send writes a raw request line and decompresses the response
func (a *rpcClientAdapter) send(reqBytes []byte) ([]byte, error) {
	respBytes, err := a.transport.Send(reqBytes, a.complete)
	if err != nil {
		Logger.Debugf("request %q failed after %d response bytes: %v", reqBytes, len(respBytes), err)
		return respBytes, err
	}

	plain, err := a.codec.Decompress(respBytes)
	if err != nil {
		return respBytes, fmt.Errorf("RPC Client - invalid %s response: %w", a.codec.Name(), err)
	}
	return plain, nil
}
