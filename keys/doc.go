// Package keys is a local-first store for zpass private keys.
//
// Keys live under ~/.zpass/keys/<name>/root.key as their "APrivateKey1..."
// text form, one per file, mode 0600. Role keys are derived
// deterministically from a root key and stored under roles/<role>.key.
// The store never talks to the network.
package keys
