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

package identity

import (
	"crypto/x509"
	"fmt"
	"strings"
	"time"

	"github.com/permledger/noded/pkg/private/serrors"
)

// Certificate validation errors. Use errors.Is to classify validation
// failures.
var (
	// ErrExpired indicates a certificate in the chain is expired.
	ErrExpired = serrors.New("certificate expired")
	// ErrNotYetValid indicates a certificate in the chain is not yet valid.
	ErrNotYetValid = serrors.New("certificate not yet valid")
	// ErrInvalidParameters indicates the chain or a certificate in it is
	// structurally unusable.
	ErrInvalidParameters = serrors.New("invalid certificate parameters")
	// ErrPathInvalid indicates the chain does not form a valid path to the
	// trust anchor.
	ErrPathInvalid = serrors.New("certificate path invalid")
)

// Validator validates a leaf-first certificate chain against a trust anchor.
type Validator interface {
	Validate(chain []*x509.Certificate, trustAnchor *x509.Certificate) error
}

// PathValidator is the default Validator. It checks the validity window and
// key material of every certificate in the chain, verifies the issuing
// signature of every link pairwise, and requires the last certificate to be
// the trust anchor or directly issued by it.
type PathValidator struct {
	// Now returns the current time. If nil, time.Now is used.
	Now func() time.Time
}

func (v PathValidator) Validate(chain []*x509.Certificate, trustAnchor *x509.Certificate) error {
	if len(chain) == 0 {
		return serrors.Wrap("empty chain", ErrInvalidParameters)
	}
	if trustAnchor == nil {
		return serrors.Wrap("no trust anchor", ErrInvalidParameters)
	}
	now := time.Now()
	if v.Now != nil {
		now = v.Now()
	}
	for _, cert := range chain {
		if cert.PublicKey == nil {
			return serrors.Wrap("certificate without public key",
				ErrInvalidParameters, "subject", cert.Subject)
		}
		if _, err := Fingerprint(cert.PublicKey); err != nil {
			return serrors.Wrap("unsupported public key", ErrInvalidParameters,
				"subject", cert.Subject)
		}
		if now.Before(cert.NotBefore) {
			return serrors.Wrap("validity starts in the future", ErrNotYetValid,
				"subject", cert.Subject, "not_before", cert.NotBefore)
		}
		if now.After(cert.NotAfter) {
			return serrors.Wrap("validity has ended", ErrExpired,
				"subject", cert.Subject, "not_after", cert.NotAfter)
		}
	}
	for i := 0; i < len(chain)-1; i++ {
		if err := chain[i].CheckSignatureFrom(chain[i+1]); err != nil {
			return serrors.Wrap("verifying link", ErrPathInvalid, "err", err,
				"subject", chain[i].Subject, "issuer", chain[i+1].Subject)
		}
	}
	last := chain[len(chain)-1]
	if last.Equal(trustAnchor) {
		return nil
	}
	if err := last.CheckSignatureFrom(trustAnchor); err != nil {
		return serrors.Wrap("chain does not terminate at trust anchor",
			ErrPathInvalid, "err", err, "subject", last.Subject)
	}
	return nil
}

// ChainString renders the chain from root to leaf, one certificate per line
// with increasing indentation. Used for diagnostics when path validation
// fails.
func ChainString(chain []*x509.Certificate) string {
	var b strings.Builder
	for i := len(chain) - 1; i >= 0; i-- {
		indent := strings.Repeat("  ", len(chain)-1-i)
		fmt.Fprintf(&b, "%s%s\n", indent, chain[i].Subject)
	}
	return b.String()
}
