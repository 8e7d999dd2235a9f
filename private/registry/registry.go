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

// Package registry implements an in-memory identity registry. It validates
// identity certificate chains against a trust anchor, registers them, and
// resolves public keys, well-known names and anonymous parties to well-known
// parties.
//
// The registry keeps two concurrent indexes: key to identity and name to
// identity. The key index always maps a key to its fullest-known identity
// record and is overwritten on re-registration. The name index is
// first-registered-wins: the identity first registered under a name stays the
// well-known identity for that name.
package registry

import (
	"crypto"
	"crypto/x509"
	"errors"
	"strings"
	"sync"

	cache "github.com/patrickmn/go-cache"

	"github.com/permledger/noded/pkg/identity"
	"github.com/permledger/noded/pkg/log"
	"github.com/permledger/noded/pkg/metrics"
	"github.com/permledger/noded/pkg/private/serrors"
)

var (
	// ErrUnknownAnonymousParty indicates a query for a key that was never
	// registered.
	ErrUnknownAnonymousParty = serrors.New("unknown anonymous party")
	// ErrInconsistentParty indicates the declared name of a party does not
	// match the name resolved through its key. This is an invariant breach on
	// the caller side, not an expected runtime condition.
	ErrInconsistentParty = serrors.New("declared name does not match resolved identity")
	// ErrNotOwned indicates an anonymous identity whose issuing certificate
	// does not carry the expected party's key.
	ErrNotOwned = serrors.New("anonymous identity not issued by party")
)

// Registry is the in-memory identity registry. It is safe for concurrent
// use.
type Registry struct {
	trustAnchor *x509.Certificate
	validator   identity.Validator
	logger      log.Logger
	metrics     Metrics

	// byKey maps key fingerprints to identity.Record.
	byKey *cache.Cache
	// byName maps well-known name strings to identity.Record. Entries are
	// only ever inserted, never replaced.
	byName *cache.Cache

	// mu guards nameOrder. nameOrder keeps the insertion order of the name
	// index for deterministic iteration.
	mu        sync.Mutex
	nameOrder []string
}

// Option configures the registry.
type Option func(*Registry)

// WithLogger sets the logger. The default logger discards all entries.
func WithLogger(logger log.Logger) Option {
	return func(r *Registry) { r.logger = logger }
}

// WithValidator overrides the certificate path validator.
func WithValidator(v identity.Validator) Option {
	return func(r *Registry) { r.validator = v }
}

// WithMetrics sets the registry metrics.
func WithMetrics(m Metrics) Option {
	return func(r *Registry) { r.metrics = m }
}

// New creates a registry rooted at the given trust anchor and eagerly
// registers the initial identities. Identities registered later under a name
// already taken by an initial identity do not override it.
func New(trustAnchor *x509.Certificate, initial []identity.Record, opts ...Option) (*Registry, error) {
	if trustAnchor == nil {
		return nil, serrors.New("trust anchor must be set")
	}
	r := &Registry{
		trustAnchor: trustAnchor,
		validator:   identity.PathValidator{},
		logger:      log.Discard(),
		byKey:       cache.New(cache.NoExpiration, 0),
		byName:      cache.New(cache.NoExpiration, 0),
	}
	for _, opt := range opts {
		opt(r)
	}
	for _, rec := range initial {
		if _, err := r.VerifyAndRegister(rec); err != nil {
			return nil, serrors.Wrap("registering initial identity", err,
				"name", rec.Name())
		}
	}
	return r, nil
}

// TrustAnchor returns the root of trust the registry validates against.
func (r *Registry) TrustAnchor() *x509.Certificate {
	return r.trustAnchor
}

// VerifyAndRegister validates the identity's certificate chain against the
// trust anchor and registers it. If an earlier certificate in the chain
// carries the same well-known name as the leaf, the sub-chains ending at
// those certificates are registered first, so the first certificate bearing
// the name is always present.
//
// The returned record is the identity registered under the key of the leaf's
// issuer (chain position 1), or nil if no identity is registered under that
// key. Callers registering a confidential identity use it to learn the
// issuing well-known identity.
func (r *Registry) VerifyAndRegister(rec identity.Record) (*identity.Record, error) {
	chain := rec.CertPath()
	if err := r.validator.Validate(chain, r.trustAnchor); err != nil {
		if errors.Is(err, identity.ErrPathInvalid) {
			r.logger.Warn("Certificate path validation failed",
				"name", rec.Name(), "err", err,
				"chain", "\n"+identity.ChainString(chain))
		}
		r.registration(ResultErrValidate)
		return nil, err
	}
	// Walk from the root end towards the leaf. Every ancestor that already
	// carries the leaf's name is registered before the leaf. The sub-chains
	// are covered by the validation of the full chain.
	for i := len(chain) - 1; i >= 1; i-- {
		if !identity.NameFromPkix(chain[i].Subject).Equal(rec.Name()) {
			continue
		}
		ancestor, err := identity.NewRecord(chain[i:])
		if err != nil {
			r.registration(ResultErrParse)
			return nil, serrors.Wrap("building ancestor identity", err,
				"position", i)
		}
		r.insert(ancestor)
	}
	r.insert(rec)
	r.registration(ResultOkInserted)
	if len(chain) < 2 {
		return nil, nil
	}
	fingerprint, err := identity.Fingerprint(chain[1].PublicKey)
	if err != nil {
		return nil, nil
	}
	if obj, ok := r.byKey.Get(fingerprint); ok {
		parent := obj.(identity.Record)
		return &parent, nil
	}
	return nil, nil
}

// insert writes the record into both indexes. The key index is overwritten
// unconditionally, the name index only if the name is not yet taken.
func (r *Registry) insert(rec identity.Record) {
	r.byKey.Set(rec.KeyFingerprint(), rec, cache.NoExpiration)
	name := rec.Name().String()
	if err := r.byName.Add(name, rec, cache.NoExpiration); err == nil {
		r.mu.Lock()
		r.nameOrder = append(r.nameOrder, name)
		r.mu.Unlock()
	}
	r.logger.Debug("Registered identity", "name", name, "key", rec.KeyFingerprint())
}

// CertificateFromKey returns the identity record registered for the key.
func (r *Registry) CertificateFromKey(key crypto.PublicKey) (identity.Record, bool) {
	fingerprint, err := identity.Fingerprint(key)
	if err != nil {
		return identity.Record{}, false
	}
	obj, ok := r.byKey.Get(fingerprint)
	if !ok {
		return identity.Record{}, false
	}
	return obj.(identity.Record), true
}

// AllIdentities returns a snapshot of all registered identity records. The
// snapshot is safe to iterate without holding any lock and reflects no
// further mutations.
func (r *Registry) AllIdentities() []identity.Record {
	items := r.byKey.Items()
	recs := make([]identity.Record, 0, len(items))
	for _, item := range items {
		recs = append(recs, item.Object.(identity.Record))
	}
	return recs
}

// PartyFromKey returns the party embedded in the identity record for the key.
func (r *Registry) PartyFromKey(key crypto.PublicKey) (identity.Party, bool) {
	rec, ok := r.CertificateFromKey(key)
	if !ok {
		return identity.Party{}, false
	}
	return rec.Party(), true
}

// WellKnownPartyFromName returns the party registered under exactly that
// name.
func (r *Registry) WellKnownPartyFromName(name identity.Name) (identity.Party, bool) {
	obj, ok := r.byName.Get(name.String())
	if !ok {
		return identity.Party{}, false
	}
	return obj.(identity.Record).Party(), true
}

// WellKnownPartyFromAnonymous resolves a party to its well-known identity
// through the key index. Parties whose key was never registered resolve to
// nothing, even if they declare a well-known name themselves: every party
// must be proven to resolve through a known key.
//
// If the party declares a name that does not match the resolved identity,
// ErrInconsistentParty is returned.
func (r *Registry) WellKnownPartyFromAnonymous(
	party identity.AbstractParty,
) (identity.Party, bool, error) {

	rec, ok := r.CertificateFromKey(party.OwningKey())
	if !ok {
		return identity.Party{}, false, nil
	}
	if declared, hasName := party.DeclaredName(); hasName && !declared.Equal(rec.Name()) {
		return identity.Party{}, false, serrors.Wrap("resolving anonymous party",
			ErrInconsistentParty, "declared", declared, "resolved", rec.Name())
	}
	wellKnown, ok := r.WellKnownPartyFromName(rec.Name())
	if !ok {
		return identity.Party{}, false, nil
	}
	return wellKnown, true, nil
}

// RequireWellKnownPartyFromAnonymous is like WellKnownPartyFromAnonymous, but
// fails with ErrUnknownAnonymousParty if the party does not resolve.
func (r *Registry) RequireWellKnownPartyFromAnonymous(
	party identity.AbstractParty,
) (identity.Party, error) {

	wellKnown, ok, err := r.WellKnownPartyFromAnonymous(party)
	if err != nil {
		return identity.Party{}, err
	}
	if !ok {
		return identity.Party{}, serrors.Wrap("resolving party",
			ErrUnknownAnonymousParty)
	}
	return wellKnown, nil
}

// PartiesFromName returns all parties with a name component matching the
// query. In exact-match mode a component must equal the query verbatim, in
// substring mode a component must contain the query case-insensitively.
// Duplicates are collapsed and the first-registered order is preserved.
func (r *Registry) PartiesFromName(query string, exactMatch bool) []identity.Party {
	r.mu.Lock()
	names := append([]string(nil), r.nameOrder...)
	r.mu.Unlock()

	var parties []identity.Party
	seen := make(map[string]struct{})
	for _, name := range names {
		obj, ok := r.byName.Get(name)
		if !ok {
			continue
		}
		rec := obj.(identity.Record)
		if !matchName(rec.Name(), query, exactMatch) {
			continue
		}
		if _, dup := seen[rec.KeyFingerprint()]; dup {
			continue
		}
		seen[rec.KeyFingerprint()] = struct{}{}
		parties = append(parties, rec.Party())
	}
	return parties
}

func matchName(name identity.Name, query string, exactMatch bool) bool {
	for _, component := range name.Components() {
		if exactMatch && component == query {
			return true
		}
		if !exactMatch &&
			strings.Contains(strings.ToLower(component), strings.ToLower(query)) {
			return true
		}
	}
	return false
}

// AssertOwnership verifies that the anonymous party's identity was issued by
// the given well-known party. It fails with ErrUnknownAnonymousParty if the
// anonymous key was never registered, and with ErrNotOwned if the issuing
// certificate's key differs from the party's key.
func (r *Registry) AssertOwnership(party identity.Party, anonymous identity.AnonymousParty) error {
	rec, ok := r.CertificateFromKey(anonymous.Key)
	if !ok {
		return serrors.Wrap("asserting ownership", ErrUnknownAnonymousParty)
	}
	chain := rec.CertPath()
	if len(chain) < 2 {
		return serrors.Wrap("anonymous identity has no issuer certificate",
			ErrNotOwned, "name", rec.Name())
	}
	issuerFingerprint, err := identity.Fingerprint(chain[1].PublicKey)
	if err != nil {
		return serrors.Wrap("fingerprinting issuer key", err)
	}
	partyFingerprint, err := identity.Fingerprint(party.Key)
	if err != nil {
		return serrors.Wrap("fingerprinting party key", err)
	}
	if issuerFingerprint != partyFingerprint {
		return serrors.Wrap("issuer key mismatch", ErrNotOwned,
			"party", party.Name, "issued_by", identity.NameFromPkix(chain[1].Subject))
	}
	return nil
}

func (r *Registry) registration(result string) {
	if r.metrics.Registrations == nil {
		return
	}
	metrics.CounterInc(r.metrics.Registrations(result))
}
