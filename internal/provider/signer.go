package provider

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"
)

// Signer produces the request signature a provider expects. Schemes are
// resolved by provider code so new providers plug in without touching the
// invoker.
type Signer interface {
	Sign(params map[string]string, secret string) string
}

// SignerRegistry maps provider codes to signing schemes, falling back to the
// default sorted-params digest.
type SignerRegistry struct {
	signers  map[string]Signer
	fallback Signer
}

func NewSignerRegistry() *SignerRegistry {
	return &SignerRegistry{
		signers:  make(map[string]Signer),
		fallback: SortedParamsSigner{},
	}
}

// Register binds a signing scheme to a provider code.
func (r *SignerRegistry) Register(code string, s Signer) {
	r.signers[strings.ToLower(code)] = s
}

// For returns the signer for a provider code.
func (r *SignerRegistry) For(code string) Signer {
	if s, ok := r.signers[strings.ToLower(code)]; ok {
		return s
	}
	return r.fallback
}

// SortedParamsSigner implements the shared-secret scheme every current
// provider speaks: parameters sorted by key, concatenated as key=value pairs
// joined with '&', the shared secret appended, hashed with SHA-256.
type SortedParamsSigner struct{}

func (SortedParamsSigner) Sign(params map[string]string, secret string) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sb strings.Builder
	for i, k := range keys {
		if i > 0 {
			sb.WriteByte('&')
		}
		sb.WriteString(k)
		sb.WriteByte('=')
		sb.WriteString(params[k])
	}
	sb.WriteString(secret)

	sum := sha256.Sum256([]byte(sb.String()))
	return hex.EncodeToString(sum[:])
}
