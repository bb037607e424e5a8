package keys

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"xdao.co/zpass/zkcrypto"
)

type Store struct {
	Directory string
}

// Entry lists one stored root key and the roles derived from it.
type Entry struct {
	Name  string
	Roles []string
}

func DefaultDirectory() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".zpass", "keys"), nil
}

// Open returns a store rooted at dir, or at DefaultDirectory when dir is empty.
func Open(dir string) (*Store, error) {
	if dir == "" {
		var err error
		if dir, err = DefaultDirectory(); err != nil {
			return nil, err
		}
	}
	return &Store{Directory: dir}, nil
}

func (s *Store) rootPath(name string) string {
	return filepath.Join(s.Directory, name, "root.key")
}

func (s *Store) rolePath(name, role string) string {
	return filepath.Join(s.Directory, name, "roles", role+".key")
}

func checkToken(kind, v string) error {
	if v == "" {
		return fmt.Errorf("%s cannot be empty", kind)
	}
	for _, c := range v {
		if (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') || c == '-' || c == '_' {
			continue
		}
		return fmt.Errorf("invalid character %q in %s", c, kind)
	}
	return nil
}

func CheckName(name string) error { return checkToken("name", name) }

func CheckRole(role string) error { return checkToken("role", role) }

func writeKey(path string, key zkcrypto.PrivateKey, overwrite bool) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	flags := os.O_WRONLY | os.O_CREATE
	if overwrite {
		flags |= os.O_TRUNC
	} else {
		flags |= os.O_EXCL
	}
	f, err := os.OpenFile(path, flags, 0o600)
	if err != nil {
		return err
	}
	defer f.Close()
	if _, err := f.WriteString(key.String() + "\n"); err != nil {
		return err
	}
	return f.Close()
}

// ReadKeyFile parses a key file written by the store.
func ReadKeyFile(p zkcrypto.Provider, path string) (zkcrypto.PrivateKey, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return zkcrypto.PrivateKey{}, err
	}
	return p.ParsePrivateKey(strings.TrimSpace(string(b)))
}

// Save stores key as the root key called name and returns the file path.
func (s *Store) Save(name string, key zkcrypto.PrivateKey, overwrite bool) (string, error) {
	if err := CheckName(name); err != nil {
		return "", err
	}
	path := s.rootPath(name)
	return path, writeKey(path, key, overwrite)
}

// Derive derives and stores the role key for the root key called name.
func (s *Store) Derive(p zkcrypto.Provider, name, role string, overwrite bool) (zkcrypto.PrivateKey, string, error) {
	if err := CheckName(name); err != nil {
		return zkcrypto.PrivateKey{}, "", err
	}
	root, err := ReadKeyFile(p, s.rootPath(name))
	if err != nil {
		return zkcrypto.PrivateKey{}, "", err
	}
	key, err := DeriveRoleKey(p, root, role)
	if err != nil {
		return zkcrypto.PrivateKey{}, "", err
	}
	path := s.rolePath(name, role)
	if err := writeKey(path, key, overwrite); err != nil {
		return zkcrypto.PrivateKey{}, "", err
	}
	return key, path, nil
}

// Load reads the root key called name, or its role key when role is set.
func (s *Store) Load(p zkcrypto.Provider, name, role string) (zkcrypto.PrivateKey, error) {
	if err := CheckName(name); err != nil {
		return zkcrypto.PrivateKey{}, err
	}
	if role == "" {
		return ReadKeyFile(p, s.rootPath(name))
	}
	if err := CheckRole(role); err != nil {
		return zkcrypto.PrivateKey{}, err
	}
	return ReadKeyFile(p, s.rolePath(name, role))
}

// Resolve picks the signing key from, in order: a literal private key, a key
// file, or a stored key name with optional role.
func (s *Store) Resolve(p zkcrypto.Provider, privateKey, keyFile, name, role string) (zkcrypto.PrivateKey, error) {
	switch {
	case privateKey != "":
		return p.ParsePrivateKey(privateKey)
	case keyFile != "":
		return ReadKeyFile(p, keyFile)
	case name != "":
		return s.Load(p, name, role)
	}
	return zkcrypto.PrivateKey{}, errors.New("no signer provided")
}

// List returns stored keys sorted by name, each with its sorted roles.
func (s *Store) List() ([]Entry, error) {
	dirs, err := os.ReadDir(s.Directory)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var names []string
	for _, d := range dirs {
		if d.IsDir() {
			names = append(names, d.Name())
		}
	}
	sort.Strings(names)

	var out []Entry
	for _, name := range names {
		var roles []string
		files, rerr := os.ReadDir(filepath.Join(s.Directory, name, "roles"))
		if rerr == nil {
			for _, f := range files {
				if !f.IsDir() && strings.HasSuffix(f.Name(), ".key") {
					roles = append(roles, strings.TrimSuffix(f.Name(), ".key"))
				}
			}
			sort.Strings(roles)
		}
		out = append(out, Entry{Name: name, Roles: roles})
	}
	return out, nil
}
