// Package zerr defines the structured error taxonomy shared by every zpass
// package.
//
// Callers should branch on Kind/RuleID rather than matching error strings.
package zerr

import (
	"errors"
	"fmt"
)

// Kind is a stable category for programmatic error handling.
type Kind string

const (
	KindTypeParse        Kind = "TypeParse"
	KindIdentifier       Kind = "Identifier"
	KindUnsupportedValue Kind = "UnsupportedValue"
	KindCrypto           Kind = "Crypto"
	KindInput            Kind = "Input"
	KindMerkle           Kind = "Merkle"
	KindSelfVerification Kind = "SelfVerification"
)

// Stable rule identifiers.
const (
	RuleTypeSyntax       = "ZPASS-TYPE-001"
	RuleTypeRange        = "ZPASS-TYPE-002"
	RuleTypeFallback     = "ZPASS-TYPE-003"
	RuleIdentSyntax      = "ZPASS-IDENT-001"
	RuleIdentReserved    = "ZPASS-IDENT-002"
	RuleJSONUnsupported  = "ZPASS-JSON-001"
	RuleJSONShape        = "ZPASS-JSON-002"
	RuleCryptoKey        = "ZPASS-CRYPTO-001"
	RuleCryptoAddress    = "ZPASS-CRYPTO-002"
	RuleCryptoSignature  = "ZPASS-CRYPTO-003"
	RuleCryptoHash       = "ZPASS-CRYPTO-004"
	RuleCryptoRandomness = "ZPASS-CRYPTO-005"
	RuleInputKeyPrefix   = "ZPASS-INPUT-001"
	RuleInputRootSuffix  = "ZPASS-INPUT-002"
	RuleInputAlgorithm   = "ZPASS-INPUT-003"
	RuleInputNetwork     = "ZPASS-INPUT-004"
	RuleInputRequest     = "ZPASS-INPUT-005"
	RuleMerkleEmpty      = "ZPASS-MERKLE-001"
	RuleMerkleOddLevel   = "ZPASS-MERKLE-002"
	RuleMerkleIndex      = "ZPASS-MERKLE-003"
	RuleReceipt          = "ZPASS-RECEIPT-001"
	RuleSelfVerify       = "ZPASS-SIGN-900"
)

// Error is the structured error type returned by zpass packages.
//
// RuleID names the violated rule. Message is for humans; do not match on it.
// Token and Target are set for type parse failures.
type Error struct {
	Kind    Kind
	RuleID  string
	Message string
	Token   string
	Target  string
	Cause   error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// New returns a structured error without a cause.
func New(kind Kind, ruleID, msg string) error {
	return &Error{Kind: kind, RuleID: ruleID, Message: msg}
}

// Newf is New with a format string.
func Newf(kind Kind, ruleID, format string, args ...any) error {
	return New(kind, ruleID, fmt.Sprintf(format, args...))
}

// Wrap returns a structured error around cause. A nil cause behaves like New.
func Wrap(kind Kind, ruleID, msg string, cause error) error {
	if cause == nil {
		return New(kind, ruleID, msg)
	}
	return &Error{Kind: kind, RuleID: ruleID, Message: msg, Cause: cause}
}

// TypeParse reports that token could not be read as target.
func TypeParse(ruleID, token, target string, cause error) error {
	return &Error{
		Kind:    KindTypeParse,
		RuleID:  ruleID,
		Message: fmt.Sprintf("cannot parse %q as %s", token, target),
		Token:   token,
		Target:  target,
		Cause:   cause,
	}
}

// IsKind reports whether err is (or wraps) a *Error with the given Kind.
func IsKind(err error, kind Kind) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Kind == kind
}

// KindOf returns the Kind of a structured error.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if !errors.As(err, &e) {
		return "", false
	}
	return e.Kind, true
}

// RuleID returns the stable RuleID for a structured error, or "" if unknown.
func RuleID(err error) string {
	var e *Error
	if !errors.As(err, &e) {
		return ""
	}
	return e.RuleID
}

// IsFatal reports whether err means the signing stack itself is unsound.
// A fatal error must not be retried and the process should stop serving.
func IsFatal(err error) bool {
	return IsKind(err, KindSelfVerification)
}
