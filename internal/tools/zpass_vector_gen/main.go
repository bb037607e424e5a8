package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"xdao.co/zpass/credential"
	"xdao.co/zpass/hashing"
	"xdao.co/zpass/zkcrypto"
	"xdao.co/zpass/zpass"
)

var defaultTokens = []string{
	"aleo1rhgdu77hgyqd3xjj8ucu3jj9r2krwz6mnzyd80gncr5fxcwlh5rsvzp9px",
	"123field",
	"23u8",
	"33u128",
	"123123scalar",
	"0group",
}

type merkleVector struct {
	Tokens []string   `json:"tokens"`
	Leaves []string   `json:"leaves"`
	Levels [][]string `json:"levels"`
	Root   string     `json:"root"`
	Proofs [][]string `json:"proofs"`
}

type signVector struct {
	Algorithm string `json:"algorithm"`
	zpass.SignResponse
}

type vectors struct {
	Network     string            `json:"network"`
	PrivateKey  string            `json:"private_key"`
	Merkle      merkleVector      `json:"merkle"`
	TokenFields map[string]string `json:"token_fields"`
	Credential  []credential.Pair `json:"credential"`
	Signatures  []signVector      `json:"signatures"`
}

// fixed returns a reader of n copies of b. Signatures are reproducible only
// because the nonce comes from here.
func fixed(b byte, n int) *bytes.Reader { return bytes.NewReader(bytes.Repeat([]byte{b}, n)) }

func main() {
	network := flag.String("network", "testnet", "testnet or mainnet")
	flag.Parse()

	n, err := zkcrypto.ParseNetwork(*network)
	if err != nil {
		panic(err)
	}
	tokens := flag.Args()
	if len(tokens) == 0 {
		tokens = defaultTokens
	}
	v, err := generate(n, tokens)
	if err != nil {
		panic(err)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func generate(n zkcrypto.Network, tokens []string) (*vectors, error) {
	acct, err := zpass.NewAccount(n, fixed(0xA1, zkcrypto.SeedSize))
	if err != nil {
		return nil, err
	}
	v := &vectors{Network: n.String(), PrivateKey: acct.PrivateKey, TokenFields: map[string]string{}}

	m := merkleVector{Tokens: tokens}
	if m.Leaves, err = zpass.HashTokensToFixedSize8(tokens, n); err != nil {
		return nil, err
	}
	if m.Levels, err = zpass.MerkleTree(tokens, n); err != nil {
		return nil, err
	}
	m.Root = m.Levels[len(m.Levels)-1][0]
	for i := range m.Leaves {
		proof, err := zpass.MerkleProof(tokens, i, n)
		if err != nil {
			return nil, err
		}
		m.Proofs = append(m.Proofs, proof)
	}
	v.Merkle = m

	for _, tok := range []string{"", "12345", "American", "zpass"} {
		f, err := zpass.TokenToField(&tok, n)
		if err != nil {
			return nil, err
		}
		v.TokenFields[tok] = f
	}

	v.Credential = []credential.Pair{
		{Name: "issuer", Token: "aleo1ekyuzclmcw3aj7qncsxxaapxem82mgrd8zadgrrvl5k705zx6q9s7usuqy"},
		{Name: "subject", Token: "aleo14w44zfrehup9g894j7tgeyz5gsjuxn0nfn09vd2fvpznrg85rs8skywkte"},
		{Name: "dob", Token: "20000101scalar"},
	}
	for _, alg := range hashing.Algorithms {
		res, err := zpass.SignCredentialPairs(acct.PrivateKey, v.Credential, alg, n, zpass.WithRand(fixed(0x5A, 64)))
		if err != nil {
			return nil, err
		}
		v.Signatures = append(v.Signatures, signVector{Algorithm: alg.String(), SignResponse: *res})
	}
	return v, nil
}
