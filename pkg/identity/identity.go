// Copyright 2026 Anapaya Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//   http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package identity defines the types that describe node identities: X.500
// style well-known names, parties, anonymous parties and identity records
// that bind a party to a certificate chain rooted at a trust anchor.
package identity

import (
	"crypto"
	"crypto/sha256"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/hex"
	"strings"

	"github.com/permledger/noded/pkg/private/serrors"
)

// Name is a well-known identity name. It carries the components of an X.500
// distinguished name that are meaningful for identity resolution.
type Name struct {
	CommonName         string
	OrganizationalUnit string
	Organization       string
	Locality           string
	State              string
	Country            string
}

// NameFromPkix extracts the name components from an X.509 subject.
func NameFromPkix(subject pkix.Name) Name {
	first := func(s []string) string {
		if len(s) == 0 {
			return ""
		}
		return s[0]
	}
	return Name{
		CommonName:         subject.CommonName,
		OrganizationalUnit: first(subject.OrganizationalUnit),
		Organization:       first(subject.Organization),
		Locality:           first(subject.Locality),
		State:              first(subject.Province),
		Country:            first(subject.Country),
	}
}

// Pkix returns the name as an X.509 subject.
func (n Name) Pkix() pkix.Name {
	opt := func(s string) []string {
		if s == "" {
			return nil
		}
		return []string{s}
	}
	return pkix.Name{
		CommonName:         n.CommonName,
		OrganizationalUnit: opt(n.OrganizationalUnit),
		Organization:       opt(n.Organization),
		Locality:           opt(n.Locality),
		Province:           opt(n.State),
		Country:            opt(n.Country),
	}
}

// Components returns the non-empty name components, in the fixed order
// CN, OU, O, L, ST, C.
func (n Name) Components() []string {
	all := []string{
		n.CommonName,
		n.OrganizationalUnit,
		n.Organization,
		n.Locality,
		n.State,
		n.Country,
	}
	components := make([]string, 0, len(all))
	for _, c := range all {
		if c != "" {
			components = append(components, c)
		}
	}
	return components
}

// Equal reports whether the two names have identical components.
func (n Name) Equal(o Name) bool {
	return n == o
}

// IsZero reports whether all name components are empty.
func (n Name) IsZero() bool {
	return n == Name{}
}

func (n Name) String() string {
	prefixes := []string{"CN=", "OU=", "O=", "L=", "ST=", "C="}
	all := []string{
		n.CommonName,
		n.OrganizationalUnit,
		n.Organization,
		n.Locality,
		n.State,
		n.Country,
	}
	var parts []string
	for i, c := range all {
		if c != "" {
			parts = append(parts, prefixes[i]+c)
		}
	}
	return strings.Join(parts, ",")
}

// AbstractParty is implemented by parties that own a public key, whether or
// not they declare a well-known name.
type AbstractParty interface {
	// OwningKey returns the public key that owns the party.
	OwningKey() crypto.PublicKey
	// DeclaredName returns the name the party declares about itself, if any.
	DeclaredName() (Name, bool)
}

// Party is a well-known participant, identified by its name and owning key.
type Party struct {
	Name Name
	Key  crypto.PublicKey
}

func (p Party) OwningKey() crypto.PublicKey { return p.Key }

func (p Party) DeclaredName() (Name, bool) { return p.Name, true }

func (p Party) String() string { return p.Name.String() }

// AnonymousParty is a participant identified only by its owning key,
// concealing the well-known identity behind it.
type AnonymousParty struct {
	Key crypto.PublicKey
}

func (p AnonymousParty) OwningKey() crypto.PublicKey { return p.Key }

func (p AnonymousParty) DeclaredName() (Name, bool) { return Name{}, false }

// Fingerprint returns a stable hex-encoded digest of the public key, suitable
// as a map key. It fails for key types that cannot be marshalled into
// PKIX form.
func Fingerprint(key crypto.PublicKey) (string, error) {
	if key == nil {
		return "", serrors.New("nil public key")
	}
	raw, err := x509.MarshalPKIXPublicKey(key)
	if err != nil {
		return "", serrors.Wrap("marshalling public key", err)
	}
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:]), nil
}

// Record is one verified identity: the owning public key, the well-known
// name, and the certificate chain up to the trust root. The chain is ordered
// leaf first.
type Record struct {
	party       Party
	fingerprint string
	chain       []*x509.Certificate
}

// NewRecord builds an identity record from a leaf-first certificate chain.
// The party is derived from the leaf certificate's subject and public key.
func NewRecord(chain []*x509.Certificate) (Record, error) {
	if len(chain) == 0 {
		return Record{}, serrors.New("empty certificate chain")
	}
	leaf := chain[0]
	fingerprint, err := Fingerprint(leaf.PublicKey)
	if err != nil {
		return Record{}, serrors.Wrap("fingerprinting leaf key", err,
			"subject", leaf.Subject)
	}
	name := NameFromPkix(leaf.Subject)
	if name.IsZero() {
		return Record{}, serrors.New("leaf certificate carries no name",
			"subject", leaf.Subject)
	}
	c := make([]*x509.Certificate, len(chain))
	copy(c, chain)
	return Record{
		party:       Party{Name: name, Key: leaf.PublicKey},
		fingerprint: fingerprint,
		chain:       c,
	}, nil
}

// Party returns the party described by the record's leaf certificate.
func (r Record) Party() Party { return r.party }

// Name returns the well-known name of the record.
func (r Record) Name() Name { return r.party.Name }

// Key returns the owning public key.
func (r Record) Key() crypto.PublicKey { return r.party.Key }

// KeyFingerprint returns the fingerprint of the owning public key.
func (r Record) KeyFingerprint() string { return r.fingerprint }

// Certificate returns the leaf certificate.
func (r Record) Certificate() *x509.Certificate { return r.chain[0] }

// CertPath returns a copy of the certificate chain, leaf first.
func (r Record) CertPath() []*x509.Certificate {
	c := make([]*x509.Certificate, len(r.chain))
	copy(c, r.chain)
	return c
}
