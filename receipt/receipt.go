// Package receipt records what a signing call produced as canonical bytes
// and addresses those bytes by CID.
//
// A receipt is not a signed object. It is a content-addressed summary that
// lets callers refer to one signing result by a single identifier.
package receipt

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/ipfs/go-cid"
	"github.com/multiformats/go-multihash"
)

// Type is the value of the "type" member of every receipt.
const Type = "zpass.receipt.v1"

// Receipt summarizes one signature. Field order is the canonical order.
type Receipt struct {
	Type      string `json:"type"`
	Network   string `json:"network"`
	Algorithm string `json:"algorithm,omitempty"`
	Hash      string `json:"hash"`
	Address   string `json:"address"`
	Signature string `json:"signature"`
}

// New returns a receipt with Type set. algorithm is empty for Merkle roots.
func New(network, algorithm, hash, address, signature string) Receipt {
	return Receipt{
		Type:      Type,
		Network:   network,
		Algorithm: algorithm,
		Hash:      hash,
		Address:   address,
		Signature: signature,
	}
}

// Bytes returns the canonical encoding: compact JSON, members in struct
// order, no trailing newline.
func (r Receipt) Bytes() ([]byte, error) {
	if r.Type != Type {
		return nil, fmt.Errorf("receipt: unexpected type %q", r.Type)
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(r); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

// CID returns the CIDv1 (raw, sha2-256) of the canonical bytes.
func (r Receipt) CID() (cid.Cid, error) {
	b, err := r.Bytes()
	if err != nil {
		return cid.Undef, err
	}
	return CIDOf(b)
}

// Parse decodes canonical receipt bytes. Bytes that do not re-encode
// identically are rejected.
func Parse(b []byte) (Receipt, error) {
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.DisallowUnknownFields()
	var r Receipt
	if err := dec.Decode(&r); err != nil {
		return Receipt{}, fmt.Errorf("receipt: %w", err)
	}
	canon, err := r.Bytes()
	if err != nil {
		return Receipt{}, err
	}
	if !bytes.Equal(canon, b) {
		return Receipt{}, ErrNotCanonical
	}
	return r, nil
}

// CIDOf returns a CIDv1 using the raw multicodec and a sha2-256 multihash.
func CIDOf(data []byte) (cid.Cid, error) {
	sum, err := multihash.Sum(data, multihash.SHA2_256, -1)
	if err != nil {
		return cid.Undef, err
	}
	return cid.NewCidV1(cid.Raw, sum), nil
}
