package rpc

import (
	"context"
	"fmt"
	"time"

	"github.com/ipfs/go-cid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/protobuf/types/known/structpb"

	"xdao.co/zpass/credential"
	"xdao.co/zpass/hashing"
	"xdao.co/zpass/receipt"
	"xdao.co/zpass/zkcrypto"
	"xdao.co/zpass/zpass"
)

// Client calls a remote Signer service. Errors carry the server's zerr kind
// and rule when the server supplied them.
type Client struct {
	cc     *grpc.ClientConn
	client SignerClient

	// Timeout applies per RPC when non-zero.
	Timeout time.Duration
}

type DialOptions struct {
	// MaxMsgBytes sets both send/recv max sizes when non-zero.
	MaxMsgBytes int

	// Extra is appended to the default dial options.
	Extra []grpc.DialOption
}

// Dial creates a client for target over an insecure channel. The connection
// is established lazily on the first call.
func Dial(target string, opts DialOptions) (*Client, error) {
	dialOpts := []grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	}
	if opts.MaxMsgBytes > 0 {
		dialOpts = append(dialOpts,
			grpc.WithDefaultCallOptions(
				grpc.MaxCallRecvMsgSize(opts.MaxMsgBytes),
				grpc.MaxCallSendMsgSize(opts.MaxMsgBytes),
			),
		)
	}
	dialOpts = append(dialOpts, opts.Extra...)

	cc, err := grpc.NewClient(target, dialOpts...)
	if err != nil {
		return nil, err
	}
	return &Client{cc: cc, client: NewSignerClient(cc)}, nil
}

func (c *Client) Close() error {
	if c == nil || c.cc == nil {
		return nil
	}
	return c.cc.Close()
}

func (c *Client) call(ctx context.Context, method string, fields map[string]*structpb.Value) (*structpb.Struct, error) {
	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}
	var trailer metadata.MD
	out, err := c.client.Call(ctx, method, response(fields), grpc.Trailer(&trailer))
	if err != nil {
		return nil, fromStatus(err, trailer)
	}
	return out, nil
}

func withNetwork(n zkcrypto.Network, fields map[string]*structpb.Value) map[string]*structpb.Value {
	fields["network"] = structpb.NewStringValue(n.String())
	return fields
}

func (c *Client) HashTokens(ctx context.Context, n zkcrypto.Network, tokens []string) ([]string, error) {
	out, err := c.call(ctx, "HashTokens", withNetwork(n, map[string]*structpb.Value{"tokens": stringList(tokens)}))
	if err != nil {
		return nil, err
	}
	return replyStrings(out, "leaves")
}

func (c *Client) MerkleRoot(ctx context.Context, n zkcrypto.Network, tokens []string) (string, error) {
	out, err := c.call(ctx, "MerkleRoot", withNetwork(n, map[string]*structpb.Value{"tokens": stringList(tokens)}))
	if err != nil {
		return "", err
	}
	return replyString(out, "root")
}

func (c *Client) MerkleTree(ctx context.Context, n zkcrypto.Network, tokens []string) ([][]string, error) {
	out, err := c.call(ctx, "MerkleTree", withNetwork(n, map[string]*structpb.Value{"tokens": stringList(tokens)}))
	if err != nil {
		return nil, err
	}
	raw := out.GetFields()["levels"].GetListValue()
	if raw == nil {
		return nil, fmt.Errorf("rpc: reply has no levels")
	}
	levels := make([][]string, len(raw.GetValues()))
	for i, lv := range raw.GetValues() {
		level, err := stringsOf(lv, "levels")
		if err != nil {
			return nil, err
		}
		levels[i] = level
	}
	return levels, nil
}

func (c *Client) MerkleProof(ctx context.Context, n zkcrypto.Network, tokens []string, index int) ([]string, error) {
	out, err := c.call(ctx, "MerkleProof", withNetwork(n, map[string]*structpb.Value{
		"tokens": stringList(tokens),
		"index":  structpb.NewNumberValue(float64(index)),
	}))
	if err != nil {
		return nil, err
	}
	return replyStrings(out, "proof")
}

func (c *Client) SignRoot(ctx context.Context, n zkcrypto.Network, privateKey, root string) (*zpass.SignResponse, error) {
	out, err := c.call(ctx, "SignRoot", withNetwork(n, map[string]*structpb.Value{
		"private_key": structpb.NewStringValue(privateKey),
		"root":        structpb.NewStringValue(root),
	}))
	if err != nil {
		return nil, err
	}
	return replySign(out)
}

// SignCredential sends data, a JSON object of name/token pairs, unchanged so
// the server sees its key order.
func (c *Client) SignCredential(ctx context.Context, n zkcrypto.Network, privateKey string, data []byte, alg hashing.Algorithm) (*zpass.SignResponse, error) {
	out, err := c.call(ctx, "SignCredential", withNetwork(n, map[string]*structpb.Value{
		"private_key":     structpb.NewStringValue(privateKey),
		"algorithm":       structpb.NewStringValue(alg.String()),
		"credential_json": structpb.NewStringValue(string(data)),
	}))
	if err != nil {
		return nil, err
	}
	return replySign(out)
}

func (c *Client) SignCredentialPairs(ctx context.Context, n zkcrypto.Network, privateKey string, pairs []credential.Pair, alg hashing.Algorithm) (*zpass.SignResponse, error) {
	entries := make([]*structpb.Value, len(pairs))
	for i, p := range pairs {
		entries[i] = structpb.NewStructValue(response(map[string]*structpb.Value{
			"name":  structpb.NewStringValue(p.Name),
			"token": structpb.NewStringValue(p.Token),
		}))
	}
	out, err := c.call(ctx, "SignCredential", withNetwork(n, map[string]*structpb.Value{
		"private_key": structpb.NewStringValue(privateKey),
		"algorithm":   structpb.NewStringValue(alg.String()),
		"entries":     structpb.NewListValue(&structpb.ListValue{Values: entries}),
	}))
	if err != nil {
		return nil, err
	}
	return replySign(out)
}

func (c *Client) Verify(ctx context.Context, n zkcrypto.Network, signature, address, message string) (bool, error) {
	out, err := c.call(ctx, "Verify", withNetwork(n, map[string]*structpb.Value{
		"signature": structpb.NewStringValue(signature),
		"address":   structpb.NewStringValue(address),
		"message":   structpb.NewStringValue(message),
	}))
	if err != nil {
		return false, err
	}
	v, ok := out.GetFields()["valid"].GetKind().(*structpb.Value_BoolValue)
	if !ok {
		return false, fmt.Errorf("rpc: reply has no valid flag")
	}
	return v.BoolValue, nil
}

// TokenToField sends no token member when token is nil.
func (c *Client) TokenToField(ctx context.Context, n zkcrypto.Network, token *string) (string, error) {
	fields := map[string]*structpb.Value{}
	if token != nil {
		fields["token"] = structpb.NewStringValue(*token)
	}
	out, err := c.call(ctx, "TokenToField", withNetwork(n, fields))
	if err != nil {
		return "", err
	}
	return replyString(out, "field")
}

// GetReceipt fetches an archived receipt and checks that it hashes to id.
func (c *Client) GetReceipt(ctx context.Context, id cid.Cid) (receipt.Receipt, error) {
	if !id.Defined() {
		return receipt.Receipt{}, receipt.ErrInvalidCID
	}
	out, err := c.call(ctx, "GetReceipt", map[string]*structpb.Value{"cid": structpb.NewStringValue(id.String())})
	if err != nil {
		return receipt.Receipt{}, err
	}
	f := out.GetFields()
	r := receipt.Receipt{
		Type:      f["type"].GetStringValue(),
		Network:   f["network"].GetStringValue(),
		Algorithm: f["algorithm"].GetStringValue(),
		Hash:      f["hash"].GetStringValue(),
		Address:   f["address"].GetStringValue(),
		Signature: f["signature"].GetStringValue(),
	}
	got, err := r.CID()
	if err != nil {
		return receipt.Receipt{}, err
	}
	if got != id {
		return receipt.Receipt{}, receipt.ErrCIDMismatch
	}
	return r, nil
}

func replyString(out *structpb.Struct, key string) (string, error) {
	v, ok := out.GetFields()[key].GetKind().(*structpb.Value_StringValue)
	if !ok {
		return "", fmt.Errorf("rpc: reply has no %s", key)
	}
	return v.StringValue, nil
}

func replyStrings(out *structpb.Struct, key string) ([]string, error) {
	return stringsOf(out.GetFields()[key], key)
}

func stringsOf(v *structpb.Value, key string) ([]string, error) {
	list := v.GetListValue()
	if list == nil {
		return nil, fmt.Errorf("rpc: reply has no %s", key)
	}
	out := make([]string, len(list.GetValues()))
	for i, item := range list.GetValues() {
		s, ok := item.GetKind().(*structpb.Value_StringValue)
		if !ok {
			return nil, fmt.Errorf("rpc: %s[%d] is not a string", key, i)
		}
		out[i] = s.StringValue
	}
	return out, nil
}

func replySign(out *structpb.Struct) (*zpass.SignResponse, error) {
	var res zpass.SignResponse
	for key, dst := range map[string]*string{
		"signature": &res.Signature,
		"hash":      &res.Hash,
		"address":   &res.Address,
		"receipt":   &res.Receipt,
	} {
		s, err := replyString(out, key)
		if err != nil {
			return nil, err
		}
		*dst = s
	}
	return &res, nil
}
