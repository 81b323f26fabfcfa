// Package wrapsigner implements the offline admin signing tool. The
// registry never holds the private key: the admin signs the canonical
// mint payload here and hands the detached signature to whoever
// submits the mint request.
package wrapsigner

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/crypto/ssh"

	"wrapregistry/internal/registry/models"
	"wrapregistry/internal/registry/payload"
	id "wrapregistry/pkg/domain"
)

// Config holds one signer invocation.
type Config struct {
	Keygen      bool
	KeyPath     string
	Instance    string
	User        string
	Period      uint64
	Archetype   string
	ContentHash string
	ShowPayload bool
}

// ParseConfig parses flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	cfg := Config{KeyPath: "wrap-signer.key"}
	fs.BoolVar(&cfg.Keygen, "keygen", false, "generate a signing keypair and exit")
	fs.StringVar(&cfg.KeyPath, "key", cfg.KeyPath, "signing key file (hex seed or OpenSSH ed25519 key)")
	fs.StringVar(&cfg.Instance, "instance", "", "registry instance the signature binds to")
	fs.StringVar(&cfg.User, "user", "", "wrap recipient account")
	fs.Uint64Var(&cfg.Period, "period", 0, "issuance period")
	fs.StringVar(&cfg.Archetype, "archetype", "", "wrap archetype label")
	fs.StringVar(&cfg.ContentHash, "hash", "", "content hash (64 hex characters)")
	fs.BoolVar(&cfg.ShowPayload, "show-payload", false, "also print the canonical payload as hex")
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run executes one invocation and writes results to out.
func Run(cfg Config, out io.Writer) error {
	if out == nil {
		return errors.New("output is required")
	}
	if cfg.Keygen {
		return keygen(cfg.KeyPath, out)
	}
	return sign(cfg, out)
}

// keygen writes a fresh seed to the key file and prints the public key
// in the base64 form the initialize endpoint accepts.
func keygen(path string, out io.Writer) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("refusing to overwrite existing key file %s", path)
	}

	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return fmt.Errorf("generate keypair: %w", err)
	}

	seed := hex.EncodeToString(priv.Seed())
	if err := os.WriteFile(path, []byte(seed+"\n"), 0o600); err != nil {
		return fmt.Errorf("write key file: %w", err)
	}

	fmt.Fprintf(out, "public_key=%s\n", base64.StdEncoding.EncodeToString(pub))
	fmt.Fprintf(out, "key_file=%s\n", path)
	return nil
}

func sign(cfg Config, out io.Writer) error {
	instance, err := id.ParseInstanceID(cfg.Instance)
	if err != nil {
		return fmt.Errorf("instance: %w", err)
	}
	user, err := id.ParseAccountID(cfg.User)
	if err != nil {
		return fmt.Errorf("user: %w", err)
	}
	if cfg.Period == 0 {
		return errors.New("period must be a positive integer")
	}
	if err := models.ValidateArchetype(cfg.Archetype); err != nil {
		return fmt.Errorf("archetype: %w", err)
	}
	hash, err := models.ParseContentHash(cfg.ContentHash)
	if err != nil {
		return fmt.Errorf("hash: %w", err)
	}

	key, err := loadKey(cfg.KeyPath)
	if err != nil {
		return err
	}

	msg := payload.Canonicalize(instance, user, cfg.Period, cfg.Archetype, hash)
	sig := ed25519.Sign(key, msg)

	fmt.Fprintf(out, "signature=%s\n", base64.StdEncoding.EncodeToString(sig))
	if cfg.ShowPayload {
		fmt.Fprintf(out, "payload=%s\n", hex.EncodeToString(msg))
	}
	return nil
}

// loadKey reads an Ed25519 private key, accepting either the hex seed
// this tool generates or an OpenSSH ed25519 private key.
func loadKey(path string) (ed25519.PrivateKey, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read key file: %w", err)
	}

	trimmed := strings.TrimSpace(string(raw))
	if seed, err := hex.DecodeString(trimmed); err == nil && len(seed) == ed25519.SeedSize {
		return ed25519.NewKeyFromSeed(seed), nil
	}

	parsed, err := ssh.ParseRawPrivateKey(raw)
	if err != nil {
		return nil, fmt.Errorf("key file is neither a hex seed nor an OpenSSH key: %w", err)
	}
	switch key := parsed.(type) {
	case ed25519.PrivateKey:
		return key, nil
	case *ed25519.PrivateKey:
		return *key, nil
	default:
		return nil, fmt.Errorf("unsupported key type %T, want ed25519", parsed)
	}
}
