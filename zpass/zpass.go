// Package zpass is the stateless entry point for hashing, Merkle and signing
// operations. Every function selects its parameter set from network and
// keeps no state between calls.
package zpass

import (
	"io"

	"go.uber.org/zap"

	"xdao.co/zpass/credential"
	"xdao.co/zpass/hashing"
	"xdao.co/zpass/literal"
	"xdao.co/zpass/merkle"
	"xdao.co/zpass/receipt"
	"xdao.co/zpass/signer"
	"xdao.co/zpass/zerr"
	"xdao.co/zpass/zkcrypto"
)

type options struct {
	log   *zap.Logger
	rng   io.Reader
	store receipt.Store
}

// Option configures a single call.
type Option func(*options)

// WithLogger routes diagnostics to l.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.log = l
		}
	}
}

// WithRand sets the randomness source for nonces and key generation.
func WithRand(r io.Reader) Option { return func(o *options) { o.rng = r } }

// WithReceiptStore archives a receipt for every signature produced.
func WithReceiptStore(s receipt.Store) Option { return func(o *options) { o.store = s } }

func resolve(opts []Option) options {
	o := options{log: zap.NewNop()}
	for _, fn := range opts {
		fn(&o)
	}
	return o
}

// SignResponse is the result of signing a credential.
type SignResponse struct {
	Signature string `json:"signature"`
	Hash      string `json:"hash"`
	Address   string `json:"address"`
	// Receipt is the CID of the canonical receipt for this signature.
	Receipt string `json:"receipt"`
}

// Account is a freshly generated key pair.
type Account struct {
	PrivateKey string `json:"private_key"`
	Address    string `json:"address"`
}

func provider(network zkcrypto.Network) (zkcrypto.Provider, error) {
	return zkcrypto.Get(network)
}

// HashTokensToFixedSize8 hashes each token into a Merkle leaf and pads the
// result with "0field" up to eight entries.
func HashTokensToFixedSize8(tokens []string, network zkcrypto.Network, opts ...Option) ([]string, error) {
	p, err := provider(network)
	if err != nil {
		return nil, err
	}
	leaves, err := merkle.HashInputsToFixedSize8(p, tokens)
	if err != nil {
		resolve(opts).log.Debug("leaf hashing failed", zap.Int("tokens", len(tokens)), zap.Error(err))
		return nil, err
	}
	return fieldStrings(leaves), nil
}

func MerkleRoot(tokens []string, network zkcrypto.Network, opts ...Option) (string, error) {
	t, err := tree(tokens, network, opts)
	if err != nil {
		return "", err
	}
	return t.Root().String(), nil
}

// MerkleTree returns every level of the tree, leaves first.
func MerkleTree(tokens []string, network zkcrypto.Network, opts ...Option) ([][]string, error) {
	t, err := tree(tokens, network, opts)
	if err != nil {
		return nil, err
	}
	levels := t.Levels()
	out := make([][]string, len(levels))
	for i, l := range levels {
		out[i] = fieldStrings(l)
	}
	return out, nil
}

// MerkleProof returns the sibling path for the leaf at index.
func MerkleProof(tokens []string, index int, network zkcrypto.Network, opts ...Option) ([]string, error) {
	t, err := tree(tokens, network, opts)
	if err != nil {
		return nil, err
	}
	proof, err := t.Proof(index)
	if err != nil {
		return nil, err
	}
	return fieldStrings(proof), nil
}

// VerifyMerkleProof folds proof over leaf and compares with root. All three
// are "<decimal>field" strings.
func VerifyMerkleProof(leaf string, proof []string, root string, network zkcrypto.Network) (bool, error) {
	p, err := provider(network)
	if err != nil {
		return false, err
	}
	leafF, err := p.ParseField(leaf)
	if err != nil {
		return false, err
	}
	rootF, err := p.ParseField(root)
	if err != nil {
		return false, err
	}
	path := make([]zkcrypto.Field, len(proof))
	for i, s := range proof {
		if path[i], err = p.ParseField(s); err != nil {
			return false, err
		}
	}
	got, err := merkle.FoldProof(p, leafF, path)
	if err != nil {
		return false, err
	}
	return got.Equal(rootF), nil
}

// SignMerkleRoot signs root, a "<decimal>field" string, and returns the
// signature.
func SignMerkleRoot(privateKey, root string, network zkcrypto.Network, opts ...Option) (string, error) {
	res, err := SignRoot(privateKey, root, network, opts...)
	if err != nil {
		return "", err
	}
	return res.Signature, nil
}

// SignRoot is SignMerkleRoot returning the full response. Hash is the root.
func SignRoot(privateKey, root string, network zkcrypto.Network, opts ...Option) (*SignResponse, error) {
	o := resolve(opts)
	p, err := provider(network)
	if err != nil {
		return nil, err
	}
	res, err := newSigner(p, o).SignRoot(privateKey, root)
	if err != nil {
		return nil, err
	}
	id, err := archive(o, network, "", res)
	if err != nil {
		return nil, err
	}
	return &SignResponse{Signature: res.Signature, Hash: res.Hash, Address: res.Address, Receipt: id}, nil
}

// SignCredential reads a JSON object of name/token pairs, hashes it with alg
// and signs the digest. Non-string JSON values are skipped.
func SignCredential(privateKey string, data []byte, alg hashing.Algorithm, network zkcrypto.Network, opts ...Option) (*SignResponse, error) {
	o := resolve(opts)
	p, err := provider(network)
	if err != nil {
		return nil, err
	}
	cred, err := credential.FromJSON(p, data, o.log)
	if err != nil {
		return nil, err
	}
	return signCredential(p, o, privateKey, cred, alg, network)
}

// SignCredentialPairs is SignCredential for callers that already hold the
// name/token pairs in order.
func SignCredentialPairs(privateKey string, pairs []credential.Pair, alg hashing.Algorithm, network zkcrypto.Network, opts ...Option) (*SignResponse, error) {
	o := resolve(opts)
	p, err := provider(network)
	if err != nil {
		return nil, err
	}
	cred, err := credential.FromPairs(p, pairs)
	if err != nil {
		return nil, err
	}
	return signCredential(p, o, privateKey, cred, alg, network)
}

// VerifySignedCredential reports whether signature signs message under
// address. Malformed inputs are errors, a valid but wrong signature is false.
func VerifySignedCredential(signature, address, message string, network zkcrypto.Network) (bool, error) {
	p, err := provider(network)
	if err != nil {
		return false, err
	}
	return signer.New(p).Verify(signature, address, message)
}

// TokenToField converts token to a field string. nil and "" give "0field".
func TokenToField(token *string, network zkcrypto.Network) (string, error) {
	p, err := provider(network)
	if err != nil {
		return "", err
	}
	f, err := literal.TokenToField(p, token)
	if err != nil {
		return "", err
	}
	return f.String(), nil
}

// NewAccount generates a private key from rng (crypto/rand when nil) and
// returns it with its address.
func NewAccount(network zkcrypto.Network, rng io.Reader) (*Account, error) {
	p, err := provider(network)
	if err != nil {
		return nil, err
	}
	key, err := p.NewPrivateKey(rng)
	if err != nil {
		return nil, err
	}
	addr, err := p.DeriveAddress(key)
	if err != nil {
		return nil, err
	}
	return &Account{PrivateKey: key.String(), Address: addr.String()}, nil
}

// Receipt builds the receipt for a signed credential response.
func Receipt(resp *SignResponse, alg hashing.Algorithm, network zkcrypto.Network) receipt.Receipt {
	return receipt.New(network.String(), alg.String(), resp.Hash, resp.Address, resp.Signature)
}

func signCredential(p zkcrypto.Provider, o options, privateKey string, cred *credential.Credential, alg hashing.Algorithm, network zkcrypto.Network) (*SignResponse, error) {
	res, err := newSigner(p, o).SignCredential(privateKey, cred, alg)
	if err != nil {
		return nil, err
	}
	id, err := archive(o, network, alg.String(), res)
	if err != nil {
		return nil, err
	}
	return &SignResponse{Signature: res.Signature, Hash: res.Hash, Address: res.Address, Receipt: id}, nil
}

// archive computes the receipt CID and stores the receipt when a store is
// configured.
func archive(o options, network zkcrypto.Network, alg string, res *signer.Result) (string, error) {
	r := receipt.New(network.String(), alg, res.Hash, res.Address, res.Signature)
	if o.store == nil {
		id, err := r.CID()
		if err != nil {
			return "", zerr.Wrap(zerr.KindInput, zerr.RuleReceipt, "encode receipt", err)
		}
		return id.String(), nil
	}
	id, err := receipt.Archive(o.store, r)
	if err != nil {
		return "", zerr.Wrap(zerr.KindInput, zerr.RuleReceipt, "archive receipt", err)
	}
	o.log.Debug("receipt archived", zap.String("cid", id.String()))
	return id.String(), nil
}

func newSigner(p zkcrypto.Provider, o options) *signer.Signer {
	return signer.New(p, signer.WithLogger(o.log), signer.WithRand(o.rng))
}

func tree(tokens []string, network zkcrypto.Network, opts []Option) (*merkle.Tree, error) {
	p, err := provider(network)
	if err != nil {
		return nil, err
	}
	t, err := merkle.FromTokens(p, tokens)
	if err != nil {
		resolve(opts).log.Debug("merkle build failed", zap.Int("tokens", len(tokens)), zap.Error(err))
		return nil, err
	}
	return t, nil
}

func fieldStrings(fs []zkcrypto.Field) []string {
	out := make([]string, len(fs))
	for i, f := range fs {
		out[i] = f.String()
	}
	return out
}
