package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"go.uber.org/zap"

	"xdao.co/zpass/config"
	"xdao.co/zpass/hashing"
	"xdao.co/zpass/keys"
	"xdao.co/zpass/observability"
	"xdao.co/zpass/receipt"
	"xdao.co/zpass/rpc"
	"xdao.co/zpass/zerr"
	"xdao.co/zpass/zkcrypto"
	"xdao.co/zpass/zpass"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func run(args []string, in io.Reader, out io.Writer, errOut io.Writer) int {
	if len(args) == 0 {
		printUsage(errOut)
		return 2
	}

	switch args[0] {
	case "hash":
		return cmdHash(args[1:], out, errOut)
	case "merkle":
		return cmdMerkle(args[1:], out, errOut)
	case "sign-root":
		return cmdSignRoot(args[1:], out, errOut)
	case "sign":
		return cmdSign(args[1:], in, out, errOut)
	case "verify":
		return cmdVerify(args[1:], out, errOut)
	case "field":
		return cmdField(args[1:], out, errOut)
	case "account":
		return cmdAccount(args[1:], out, errOut)
	case "help", "-h", "--help":
		printUsage(out)
		return 0
	default:
		fmt.Fprintf(errOut, "unknown command: %s\n\n", args[0])
		printUsage(errOut)
		return 2
	}
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "zpass: credential hashing, Merkle commitments and signatures")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  zpass hash [common] <token>...")
	fmt.Fprintln(w, "  zpass merkle root|tree [common] <token>...")
	fmt.Fprintln(w, "  zpass merkle proof --index <i> [common] <token>...")
	fmt.Fprintln(w, "  zpass sign-root --root <Nfield> <signer> [common]")
	fmt.Fprintln(w, "  zpass sign [--alg <alg>] [--receipts <dir>] <signer> [common] <credential.json|->")
	fmt.Fprintln(w, "  zpass verify --signature <sign1...> --address <aleo1...> --message <Nfield> [common]")
	fmt.Fprintln(w, "  zpass field [common] [<token>]")
	fmt.Fprintln(w, "  zpass account new [--save <name>] [--force] [common]")
	fmt.Fprintln(w, "  zpass account derive --from <name> --role <role> [--force] [common]")
	fmt.Fprintln(w, "  zpass account list [common]")
	fmt.Fprintln(w, "  zpass account show --name <name> [--role <role>] [common]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Common flags:")
	fmt.Fprintln(w, "  --config <file>   YAML config (ZPASS_* env vars override)")
	fmt.Fprintln(w, "  --network <n>     testnet|mainnet (default from config)")
	fmt.Fprintln(w, "  --remote <addr>   call a zpass-signerd instead of computing locally")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Signer flags (one of):")
	fmt.Fprintln(w, "  --private-key <APrivateKey1...> | --key-file <path> | --signer <name> [--signer-role <role>]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Notes:")
	fmt.Fprintln(w, "  - algorithms: poseidon2, bhp1024, sha3_256, keccak256")
	fmt.Fprintln(w, "  - sign and sign-root print a JSON response with the receipt CID")
	fmt.Fprintln(w, "  - exit status 3 means a signature failed self-verification; stop using this build")
}

// common holds flags shared by every subcommand.
type common struct {
	configPath string
	network    string
	remote     string

	cfg *config.Config
	net zkcrypto.Network
	log *zap.Logger
}

func (c *common) register(fs *flag.FlagSet) {
	fs.StringVar(&c.configPath, "config", "", "Config file (YAML)")
	fs.StringVar(&c.network, "network", "", "Network: testnet or mainnet")
	fs.StringVar(&c.remote, "remote", "", "zpass-signerd address; empty computes locally")
}

// load resolves config, network and logger after flag parsing.
func (c *common) load(errOut io.Writer) int {
	cfg, err := config.Load(c.configPath)
	if err != nil {
		fmt.Fprintf(errOut, "config: %v\n", err)
		return 2
	}
	c.cfg = cfg
	c.net = cfg.NetworkID()
	if c.network != "" {
		if c.net, err = zkcrypto.ParseNetwork(c.network); err != nil {
			fmt.Fprintf(errOut, "invalid --network: %v\n", err)
			return 2
		}
	}
	if c.log, err = observability.SetupLogger(cfg.Log); err != nil {
		fmt.Fprintf(errOut, "logger: %v\n", err)
		return 1
	}
	return 0
}

// backend runs operations locally or against a daemon.
type backend interface {
	HashTokens(ctx context.Context, n zkcrypto.Network, tokens []string) ([]string, error)
	MerkleRoot(ctx context.Context, n zkcrypto.Network, tokens []string) (string, error)
	MerkleTree(ctx context.Context, n zkcrypto.Network, tokens []string) ([][]string, error)
	MerkleProof(ctx context.Context, n zkcrypto.Network, tokens []string, index int) ([]string, error)
	SignRoot(ctx context.Context, n zkcrypto.Network, privateKey, root string) (*zpass.SignResponse, error)
	SignCredential(ctx context.Context, n zkcrypto.Network, privateKey string, data []byte, alg hashing.Algorithm) (*zpass.SignResponse, error)
	Verify(ctx context.Context, n zkcrypto.Network, signature, address, message string) (bool, error)
	TokenToField(ctx context.Context, n zkcrypto.Network, token *string) (string, error)
	Close() error
}

type local struct{ opts []zpass.Option }

func (l local) HashTokens(_ context.Context, n zkcrypto.Network, tokens []string) ([]string, error) {
	return zpass.HashTokensToFixedSize8(tokens, n, l.opts...)
}
func (l local) MerkleRoot(_ context.Context, n zkcrypto.Network, tokens []string) (string, error) {
	return zpass.MerkleRoot(tokens, n, l.opts...)
}
func (l local) MerkleTree(_ context.Context, n zkcrypto.Network, tokens []string) ([][]string, error) {
	return zpass.MerkleTree(tokens, n, l.opts...)
}
func (l local) MerkleProof(_ context.Context, n zkcrypto.Network, tokens []string, index int) ([]string, error) {
	return zpass.MerkleProof(tokens, index, n, l.opts...)
}
func (l local) SignRoot(_ context.Context, n zkcrypto.Network, key, root string) (*zpass.SignResponse, error) {
	return zpass.SignRoot(key, root, n, l.opts...)
}
func (l local) SignCredential(_ context.Context, n zkcrypto.Network, key string, data []byte, alg hashing.Algorithm) (*zpass.SignResponse, error) {
	return zpass.SignCredential(key, data, alg, n, l.opts...)
}
func (l local) Verify(_ context.Context, n zkcrypto.Network, sig, addr, msg string) (bool, error) {
	return zpass.VerifySignedCredential(sig, addr, msg, n)
}
func (l local) TokenToField(_ context.Context, n zkcrypto.Network, token *string) (string, error) {
	return zpass.TokenToField(token, n)
}
func (local) Close() error { return nil }

func (c *common) backend(receiptsDir string) (backend, error) {
	if c.remote != "" {
		client, err := rpc.Dial(c.remote, rpc.DialOptions{})
		if err != nil {
			return nil, err
		}
		client.Timeout = c.cfg.Timeout
		return client, nil
	}
	opts := []zpass.Option{zpass.WithLogger(c.log)}
	if receiptsDir == "" {
		receiptsDir = c.cfg.ReceiptsDir
	}
	if receiptsDir != "" {
		store, err := receipt.NewDirStore(receiptsDir)
		if err != nil {
			return nil, err
		}
		opts = append(opts, zpass.WithReceiptStore(store))
	}
	return local{opts: opts}, nil
}

func (c *common) keyStore() (*keys.Store, error) {
	return keys.Open(c.cfg.KeysDir)
}

// fail prints err and maps it to an exit status.
func fail(errOut io.Writer, what string, err error) int {
	if zerr.IsFatal(err) {
		fmt.Fprintf(errOut, "FATAL %s: %v\n", what, err)
		return 3
	}
	if rule := zerr.RuleID(err); rule != "" {
		fmt.Fprintf(errOut, "%s: [%s] %v\n", what, rule, err)
		return 1
	}
	fmt.Fprintf(errOut, "%s: %v\n", what, err)
	return 1
}

func writeJSON(out io.Writer, v any) int {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return 1
	}
	return 0
}

func cmdHash(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("hash", flag.ContinueOnError)
	fs.SetOutput(errOut)
	var c common
	c.register(fs)
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if rc := c.load(errOut); rc != 0 {
		return rc
	}
	b, err := c.backend("")
	if err != nil {
		return fail(errOut, "backend", err)
	}
	defer b.Close()

	leaves, err := b.HashTokens(context.Background(), c.net, fs.Args())
	if err != nil {
		return fail(errOut, "hash", err)
	}
	for _, l := range leaves {
		_, _ = fmt.Fprintln(out, l)
	}
	return 0
}

func cmdMerkle(args []string, out io.Writer, errOut io.Writer) int {
	if len(args) == 0 {
		fmt.Fprintln(errOut, "usage: zpass merkle <subcommand> ...")
		fmt.Fprintln(errOut, "subcommands: root, tree, proof")
		return 2
	}
	sub := args[0]
	switch sub {
	case "root", "tree", "proof":
	default:
		fmt.Fprintf(errOut, "unknown merkle subcommand: %s\n", sub)
		return 2
	}

	fs := flag.NewFlagSet("merkle "+sub, flag.ContinueOnError)
	fs.SetOutput(errOut)
	var c common
	c.register(fs)
	index := -1
	if sub == "proof" {
		fs.IntVar(&index, "index", -1, "Leaf index (0-7)")
	}
	if err := fs.Parse(args[1:]); err != nil {
		return 2
	}
	if sub == "proof" && index < 0 {
		fmt.Fprintln(errOut, "missing --index")
		return 2
	}
	if rc := c.load(errOut); rc != 0 {
		return rc
	}
	b, err := c.backend("")
	if err != nil {
		return fail(errOut, "backend", err)
	}
	defer b.Close()

	ctx := context.Background()
	tokens := fs.Args()
	switch sub {
	case "root":
		root, err := b.MerkleRoot(ctx, c.net, tokens)
		if err != nil {
			return fail(errOut, "merkle root", err)
		}
		_, _ = fmt.Fprintln(out, root)
		return 0
	case "tree":
		levels, err := b.MerkleTree(ctx, c.net, tokens)
		if err != nil {
			return fail(errOut, "merkle tree", err)
		}
		return writeJSON(out, levels)
	default:
		proof, err := b.MerkleProof(ctx, c.net, tokens, index)
		if err != nil {
			return fail(errOut, "merkle proof", err)
		}
		return writeJSON(out, proof)
	}
}

// signerFlags selects the signing key.
type signerFlags struct {
	privateKey string
	keyFile    string
	signer     string
	signerRole string
}

func (s *signerFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&s.privateKey, "private-key", "", "Private key (APrivateKey1...)")
	fs.StringVar(&s.keyFile, "key-file", "", "Path to a key file written by 'zpass account'")
	fs.StringVar(&s.signer, "signer", "", "Stored key name")
	fs.StringVar(&s.signerRole, "signer-role", "", "With --signer, use a derived role key")
}

func (s *signerFlags) resolve(c *common) (string, error) {
	if s.privateKey != "" {
		return s.privateKey, nil
	}
	p, err := zkcrypto.Get(c.net)
	if err != nil {
		return "", err
	}
	ks, err := c.keyStore()
	if err != nil {
		return "", err
	}
	key, err := ks.Resolve(p, "", s.keyFile, s.signer, s.signerRole)
	if err != nil {
		return "", err
	}
	return key.String(), nil
}

func cmdSignRoot(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("sign-root", flag.ContinueOnError)
	fs.SetOutput(errOut)
	var c common
	var sf signerFlags
	var root string
	var receiptsDir string
	c.register(fs)
	sf.register(fs)
	fs.StringVar(&root, "root", "", "Merkle root (<decimal>field)")
	fs.StringVar(&receiptsDir, "receipts", "", "Archive the receipt in this directory")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if root == "" {
		fmt.Fprintln(errOut, "missing --root")
		return 2
	}
	if rc := c.load(errOut); rc != 0 {
		return rc
	}
	key, err := sf.resolve(&c)
	if err != nil {
		return fail(errOut, "signer", err)
	}
	b, err := c.backend(receiptsDir)
	if err != nil {
		return fail(errOut, "backend", err)
	}
	defer b.Close()

	res, err := b.SignRoot(context.Background(), c.net, key, root)
	if err != nil {
		return fail(errOut, "sign-root", err)
	}
	return writeJSON(out, res)
}

func cmdSign(args []string, in io.Reader, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("sign", flag.ContinueOnError)
	fs.SetOutput(errOut)
	var c common
	var sf signerFlags
	var algName string
	var receiptsDir string
	c.register(fs)
	sf.register(fs)
	fs.StringVar(&algName, "alg", "", "Hash algorithm (default from config)")
	fs.StringVar(&receiptsDir, "receipts", "", "Archive the receipt in this directory")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(errOut, "usage: zpass sign [flags] <credential.json|->")
		return 2
	}
	if rc := c.load(errOut); rc != 0 {
		return rc
	}
	alg := c.cfg.Algorithm()
	if algName != "" {
		var err error
		if alg, err = hashing.ParseAlgorithm(algName); err != nil {
			fmt.Fprintf(errOut, "invalid --alg: %v\n", err)
			return 2
		}
	}

	var data []byte
	var err error
	if fs.Arg(0) == "-" {
		data, err = io.ReadAll(in)
	} else {
		data, err = os.ReadFile(fs.Arg(0))
	}
	if err != nil {
		fmt.Fprintf(errOut, "read credential: %v\n", err)
		return 1
	}

	key, err := sf.resolve(&c)
	if err != nil {
		return fail(errOut, "signer", err)
	}
	b, err := c.backend(receiptsDir)
	if err != nil {
		return fail(errOut, "backend", err)
	}
	defer b.Close()

	res, err := b.SignCredential(context.Background(), c.net, key, data, alg)
	if err != nil {
		return fail(errOut, "sign", err)
	}
	return writeJSON(out, res)
}

func cmdVerify(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("verify", flag.ContinueOnError)
	fs.SetOutput(errOut)
	var c common
	var sig, addr, msg string
	c.register(fs)
	fs.StringVar(&sig, "signature", "", "Signature (sign1...)")
	fs.StringVar(&addr, "address", "", "Signer address (aleo1...)")
	fs.StringVar(&msg, "message", "", "Signed digest (<decimal>field)")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if sig == "" || addr == "" || msg == "" {
		fmt.Fprintln(errOut, "usage: zpass verify --signature <sig> --address <addr> --message <Nfield>")
		return 2
	}
	if rc := c.load(errOut); rc != 0 {
		return rc
	}
	b, err := c.backend("")
	if err != nil {
		return fail(errOut, "backend", err)
	}
	defer b.Close()

	ok, err := b.Verify(context.Background(), c.net, sig, addr, msg)
	if err != nil {
		return fail(errOut, "verify", err)
	}
	if !ok {
		_, _ = fmt.Fprintln(out, "INVALID")
		return 1
	}
	_, _ = fmt.Fprintln(out, "OK")
	return 0
}

func cmdField(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("field", flag.ContinueOnError)
	fs.SetOutput(errOut)
	var c common
	c.register(fs)
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() > 1 {
		fmt.Fprintln(errOut, "usage: zpass field [<token>]")
		return 2
	}
	if rc := c.load(errOut); rc != 0 {
		return rc
	}
	var token *string
	if fs.NArg() == 1 {
		t := fs.Arg(0)
		token = &t
	}
	b, err := c.backend("")
	if err != nil {
		return fail(errOut, "backend", err)
	}
	defer b.Close()

	f, err := b.TokenToField(context.Background(), c.net, token)
	if err != nil {
		return fail(errOut, "field", err)
	}
	_, _ = fmt.Fprintln(out, f)
	return 0
}

func cmdAccount(args []string, out io.Writer, errOut io.Writer) int {
	if len(args) == 0 {
		printAccountUsage(errOut)
		return 2
	}
	switch args[0] {
	case "new":
		return cmdAccountNew(args[1:], out, errOut)
	case "derive":
		return cmdAccountDerive(args[1:], out, errOut)
	case "list":
		return cmdAccountList(args[1:], out, errOut)
	case "show":
		return cmdAccountShow(args[1:], out, errOut)
	case "help", "-h", "--help":
		printAccountUsage(out)
		return 0
	default:
		fmt.Fprintf(errOut, "unknown account subcommand: %s\n\n", args[0])
		printAccountUsage(errOut)
		return 2
	}
}

func printAccountUsage(w io.Writer) {
	fmt.Fprintln(w, "zpass account: local key management")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  zpass account new [--save <name>] [--force]")
	fmt.Fprintln(w, "  zpass account derive --from <name> --role <role> [--force]")
	fmt.Fprintln(w, "  zpass account list")
	fmt.Fprintln(w, "  zpass account show --name <name> [--role <role>]")
}

func cmdAccountNew(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("account new", flag.ContinueOnError)
	fs.SetOutput(errOut)
	var c common
	var save string
	var force bool
	c.register(fs)
	fs.StringVar(&save, "save", "", "Store the key under this name")
	fs.BoolVar(&force, "force", false, "Overwrite an existing key file")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if save != "" {
		if err := keys.CheckName(save); err != nil {
			fmt.Fprintf(errOut, "invalid --save: %v\n", err)
			return 2
		}
	}
	if rc := c.load(errOut); rc != 0 {
		return rc
	}

	acct, err := zpass.NewAccount(c.net, nil)
	if err != nil {
		return fail(errOut, "account new", err)
	}
	if save == "" {
		return writeJSON(out, acct)
	}

	p, err := zkcrypto.Get(c.net)
	if err != nil {
		return fail(errOut, "account new", err)
	}
	key, err := p.ParsePrivateKey(acct.PrivateKey)
	if err != nil {
		return fail(errOut, "account new", err)
	}
	ks, err := c.keyStore()
	if err != nil {
		return fail(errOut, "keys", err)
	}
	path, err := ks.Save(save, key, force)
	if err != nil {
		return fail(errOut, "write key", err)
	}
	fmt.Fprintf(out, "Created account: %s\n", acct.Address)
	fmt.Fprintf(out, "Stored at: %s\n", path)
	return 0
}

func cmdAccountDerive(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("account derive", flag.ContinueOnError)
	fs.SetOutput(errOut)
	var c common
	var from, role string
	var force bool
	c.register(fs)
	fs.StringVar(&from, "from", "", "Root key name")
	fs.StringVar(&role, "role", "", "Role identifier (e.g. issuer, auditor)")
	fs.BoolVar(&force, "force", false, "Overwrite an existing key file")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if from == "" || role == "" {
		fmt.Fprintln(errOut, "usage: zpass account derive --from <name> --role <role>")
		return 2
	}
	if err := keys.CheckName(from); err != nil {
		fmt.Fprintf(errOut, "invalid --from: %v\n", err)
		return 2
	}
	if err := keys.CheckRole(role); err != nil {
		fmt.Fprintf(errOut, "invalid --role: %v\n", err)
		return 2
	}
	if rc := c.load(errOut); rc != 0 {
		return rc
	}
	p, err := zkcrypto.Get(c.net)
	if err != nil {
		return fail(errOut, "account derive", err)
	}
	ks, err := c.keyStore()
	if err != nil {
		return fail(errOut, "keys", err)
	}
	key, path, err := ks.Derive(p, from, role, force)
	if err != nil {
		return fail(errOut, "derive role key", err)
	}
	addr, err := p.DeriveAddress(key)
	if err != nil {
		return fail(errOut, "derive role key", err)
	}
	fmt.Fprintf(out, "Created role account: %s\n", addr)
	fmt.Fprintf(out, "Stored at: %s\n", path)
	return 0
}

func cmdAccountList(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("account list", flag.ContinueOnError)
	fs.SetOutput(errOut)
	var c common
	c.register(fs)
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if rc := c.load(errOut); rc != 0 {
		return rc
	}
	ks, err := c.keyStore()
	if err != nil {
		return fail(errOut, "keys", err)
	}
	entries, err := ks.List()
	if err != nil {
		return fail(errOut, "list keys", err)
	}
	for _, e := range entries {
		fmt.Fprintf(out, "%s\n", e.Name)
		for _, r := range e.Roles {
			fmt.Fprintf(out, "  - %s\n", r)
		}
	}
	return 0
}

func cmdAccountShow(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("account show", flag.ContinueOnError)
	fs.SetOutput(errOut)
	var c common
	var name, role string
	c.register(fs)
	fs.StringVar(&name, "name", "", "Stored key name")
	fs.StringVar(&role, "role", "", "Optional derived role")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if strings.TrimSpace(name) == "" {
		fmt.Fprintln(errOut, "missing --name")
		return 2
	}
	if rc := c.load(errOut); rc != 0 {
		return rc
	}
	p, err := zkcrypto.Get(c.net)
	if err != nil {
		return fail(errOut, "account show", err)
	}
	ks, err := c.keyStore()
	if err != nil {
		return fail(errOut, "keys", err)
	}
	key, err := ks.Load(p, name, role)
	if err != nil {
		return fail(errOut, "load key", err)
	}
	addr, err := p.DeriveAddress(key)
	if err != nil {
		return fail(errOut, "account show", err)
	}
	_, _ = fmt.Fprintln(out, addr)
	return 0
}
