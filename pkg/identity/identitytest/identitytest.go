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

// Package identitytest provides helpers for generating certificate
// hierarchies in tests.
package identitytest

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"math/big"
	"testing"
	"time"

	"github.com/permledger/noded/pkg/identity"
)

// Authority is a certificate together with its private key, so it can issue
// further certificates.
type Authority struct {
	Cert *x509.Certificate
	Key  *ecdsa.PrivateKey
}

// CertOptions controls certificate generation.
type CertOptions struct {
	// IsCA marks the certificate as able to issue further certificates.
	IsCA bool
	// NotBefore defaults to an hour in the past.
	NotBefore time.Time
	// NotAfter defaults to a day in the future.
	NotAfter time.Time
}

// NewTrustRoot generates a self-signed root authority with the given name.
func NewTrustRoot(t testing.TB, name identity.Name) Authority {
	t.Helper()
	key := newKey(t)
	template := newTemplate(t, name, CertOptions{IsCA: true})
	raw, err := x509.CreateCertificate(rand.Reader, template, template, &key.PublicKey, key)
	if err != nil {
		t.Fatalf("creating trust root: %v", err)
	}
	return Authority{Cert: parse(t, raw), Key: key}
}

// Issue creates a certificate with the given name, signed by the authority.
func (a Authority) Issue(t testing.TB, name identity.Name, opts CertOptions) Authority {
	t.Helper()
	key := newKey(t)
	template := newTemplate(t, name, opts)
	raw, err := x509.CreateCertificate(rand.Reader, template, a.Cert, &key.PublicKey, a.Key)
	if err != nil {
		t.Fatalf("issuing certificate: %v", err)
	}
	return Authority{Cert: parse(t, raw), Key: key}
}

// IssueCA creates an issuing certificate, e.g. a well-known party certificate
// that can extend its identity with confidential keys.
func (a Authority) IssueCA(t testing.TB, name identity.Name) Authority {
	t.Helper()
	return a.Issue(t, name, CertOptions{IsCA: true})
}

// IssueLeaf creates a non-issuing certificate.
func (a Authority) IssueLeaf(t testing.TB, name identity.Name) Authority {
	t.Helper()
	return a.Issue(t, name, CertOptions{})
}

// MustRecord builds an identity record from the given leaf-first chain.
func MustRecord(t testing.TB, chain ...*x509.Certificate) identity.Record {
	t.Helper()
	rec, err := identity.NewRecord(chain)
	if err != nil {
		t.Fatalf("building identity record: %v", err)
	}
	return rec
}

// Name returns a plausible well-known name for the given organization.
func Name(organization string) identity.Name {
	return identity.Name{
		Organization: organization,
		Locality:     "Zurich",
		Country:      "CH",
	}
}

func newKey(t testing.TB) *ecdsa.PrivateKey {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatalf("generating key: %v", err)
	}
	return key
}

func newTemplate(t testing.TB, name identity.Name, opts CertOptions) *x509.Certificate {
	t.Helper()
	serial, err := rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), 128))
	if err != nil {
		t.Fatalf("generating serial: %v", err)
	}
	notBefore := opts.NotBefore
	if notBefore.IsZero() {
		notBefore = time.Now().Add(-time.Hour)
	}
	notAfter := opts.NotAfter
	if notAfter.IsZero() {
		notAfter = time.Now().Add(24 * time.Hour)
	}
	template := &x509.Certificate{
		SerialNumber:          serial,
		Subject:               name.Pkix(),
		NotBefore:             notBefore,
		NotAfter:              notAfter,
		BasicConstraintsValid: true,
		KeyUsage:              x509.KeyUsageDigitalSignature,
	}
	if opts.IsCA {
		template.IsCA = true
		template.KeyUsage |= x509.KeyUsageCertSign
	}
	return template
}

func parse(t testing.TB, raw []byte) *x509.Certificate {
	t.Helper()
	cert, err := x509.ParseCertificate(raw)
	if err != nil {
		t.Fatalf("parsing certificate: %v", err)
	}
	return cert
}
