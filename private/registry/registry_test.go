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

package registry_test

import (
	"sync"
	"testing"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/permledger/noded/pkg/identity"
	"github.com/permledger/noded/pkg/identity/identitytest"
	"github.com/permledger/noded/pkg/identity/mock_identity"
	"github.com/permledger/noded/pkg/log/testlog"
	"github.com/permledger/noded/pkg/metrics"
	"github.com/permledger/noded/private/registry"
)

func TestNewRequiresTrustAnchor(t *testing.T) {
	_, err := registry.New(nil, nil)
	assert.Error(t, err)
}

func TestNewRegistersInitialIdentities(t *testing.T) {
	root := identitytest.NewTrustRoot(t, identitytest.Name("Root"))
	bankA := root.IssueCA(t, identitytest.Name("Bank A"))

	r, err := registry.New(root.Cert, []identity.Record{
		identitytest.MustRecord(t, bankA.Cert),
	}, registry.WithLogger(testlog.NewLogger(t)))
	require.NoError(t, err)

	party, ok := r.WellKnownPartyFromName(identitytest.Name("Bank A"))
	assert.True(t, ok)
	assert.Equal(t, bankA.Cert.PublicKey, party.Key)

	// A second identity under the same name does not displace the initial
	// one.
	impostor := root.IssueCA(t, identitytest.Name("Bank A"))
	_, err = r.VerifyAndRegister(identitytest.MustRecord(t, impostor.Cert))
	require.NoError(t, err)
	party, ok = r.WellKnownPartyFromName(identitytest.Name("Bank A"))
	assert.True(t, ok)
	assert.Equal(t, bankA.Cert.PublicKey, party.Key)
}

func TestVerifyAndRegisterFirstWins(t *testing.T) {
	root := identitytest.NewTrustRoot(t, identitytest.Name("Root"))
	first := root.IssueCA(t, identitytest.Name("Bank A"))
	second := root.IssueCA(t, identitytest.Name("Bank A"))
	r := newRegistry(t, root)

	_, err := r.VerifyAndRegister(identitytest.MustRecord(t, first.Cert))
	require.NoError(t, err)
	_, err = r.VerifyAndRegister(identitytest.MustRecord(t, second.Cert))
	require.NoError(t, err)

	party, ok := r.WellKnownPartyFromName(identitytest.Name("Bank A"))
	assert.True(t, ok)
	assert.Equal(t, first.Cert.PublicKey, party.Key)

	// Both keys stay independently resolvable.
	_, ok = r.CertificateFromKey(first.Cert.PublicKey)
	assert.True(t, ok)
	rec, ok := r.CertificateFromKey(second.Cert.PublicKey)
	assert.True(t, ok)
	assert.Equal(t, second.Cert.PublicKey, rec.Key())
}

func TestVerifyAndRegisterBackFill(t *testing.T) {
	root := identitytest.NewTrustRoot(t, identitytest.Name("Root"))
	bankA := root.IssueCA(t, identitytest.Name("Bank A"))
	confidential := bankA.IssueLeaf(t, identitytest.Name("Bank A"))
	r := newRegistry(t, root)

	// The confidential identity is registered before the well-known one ever
	// was. The ancestor certificate carrying the name must be back-filled.
	parent, err := r.VerifyAndRegister(
		identitytest.MustRecord(t, confidential.Cert, bankA.Cert))
	require.NoError(t, err)
	require.NotNil(t, parent)
	assert.Equal(t, bankA.Cert.PublicKey, parent.Key())

	// The ancestor is resolvable via its own key.
	rec, ok := r.CertificateFromKey(bankA.Cert.PublicKey)
	assert.True(t, ok)
	assert.Equal(t, identitytest.Name("Bank A"), rec.Name())

	// The well-known name maps to the ancestor, not the confidential leaf.
	party, ok := r.WellKnownPartyFromName(identitytest.Name("Bank A"))
	assert.True(t, ok)
	assert.Equal(t, bankA.Cert.PublicKey, party.Key)
}

func TestVerifyAndRegisterParentIdentity(t *testing.T) {
	root := identitytest.NewTrustRoot(t, identitytest.Name("Root"))
	bankA := root.IssueCA(t, identitytest.Name("Bank A"))
	r := newRegistry(t, root)

	// No identity is registered under the issuer's key yet.
	parent, err := r.VerifyAndRegister(identitytest.MustRecord(t, bankA.Cert))
	require.NoError(t, err)
	assert.Nil(t, parent)

	// Registering the anchor makes it resolvable as parent.
	_, err = r.VerifyAndRegister(identitytest.MustRecord(t, root.Cert))
	require.NoError(t, err)
	parent, err = r.VerifyAndRegister(
		identitytest.MustRecord(t, bankA.Cert, root.Cert))
	require.NoError(t, err)
	require.NotNil(t, parent)
	assert.Equal(t, root.Cert.PublicKey, parent.Key())
}

func TestVerifyAndRegisterValidationFailure(t *testing.T) {
	root := identitytest.NewTrustRoot(t, identitytest.Name("Root"))
	bankA := root.IssueCA(t, identitytest.Name("Bank A"))

	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	validator := mock_identity.NewMockValidator(ctrl)
	validator.EXPECT().Validate(gomock.Any(), root.Cert).
		Return(identity.ErrPathInvalid)

	registrations := metrics.NewTestCounter()
	r, err := registry.New(root.Cert, nil,
		registry.WithValidator(validator),
		registry.WithLogger(testlog.NewLogger(t)),
		registry.WithMetrics(registry.Metrics{
			Registrations: func(result string) metrics.Counter {
				return registrations.With("result", result)
			},
		}),
	)
	require.NoError(t, err)

	_, err = r.VerifyAndRegister(identitytest.MustRecord(t, bankA.Cert))
	assert.ErrorIs(t, err, identity.ErrPathInvalid)
	_, ok := r.CertificateFromKey(bankA.Cert.PublicKey)
	assert.False(t, ok)
	assert.Equal(t, float64(1), metrics.CounterValue(
		registrations.With("result", registry.ResultErrValidate)))
}

func TestWellKnownPartyFromAnonymous(t *testing.T) {
	root := identitytest.NewTrustRoot(t, identitytest.Name("Root"))
	bankA := root.IssueCA(t, identitytest.Name("Bank A"))
	confidential := bankA.IssueLeaf(t, identitytest.Name("Bank A"))
	stranger := identitytest.NewTrustRoot(t, identitytest.Name("Stranger"))
	r := newRegistry(t, root)

	_, err := r.VerifyAndRegister(
		identitytest.MustRecord(t, confidential.Cert, bankA.Cert))
	require.NoError(t, err)

	// Anonymous key resolves to the well-known party.
	party, ok, err := r.WellKnownPartyFromAnonymous(
		identity.AnonymousParty{Key: confidential.Cert.PublicKey})
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, bankA.Cert.PublicKey, party.Key)

	// A key never registered resolves to nothing, without error.
	_, ok, err = r.WellKnownPartyFromAnonymous(
		identity.AnonymousParty{Key: stranger.Cert.PublicKey})
	require.NoError(t, err)
	assert.False(t, ok)

	// A declared name that contradicts the resolved identity is an invariant
	// breach.
	_, _, err = r.WellKnownPartyFromAnonymous(identity.Party{
		Name: identitytest.Name("Bank B"),
		Key:  confidential.Cert.PublicKey,
	})
	assert.ErrorIs(t, err, registry.ErrInconsistentParty)

	// A matching declared name resolves normally.
	party, ok, err = r.WellKnownPartyFromAnonymous(identity.Party{
		Name: identitytest.Name("Bank A"),
		Key:  confidential.Cert.PublicKey,
	})
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, bankA.Cert.PublicKey, party.Key)
}

func TestRequireWellKnownPartyFromAnonymous(t *testing.T) {
	root := identitytest.NewTrustRoot(t, identitytest.Name("Root"))
	stranger := identitytest.NewTrustRoot(t, identitytest.Name("Stranger"))
	r := newRegistry(t, root)

	_, err := r.RequireWellKnownPartyFromAnonymous(
		identity.AnonymousParty{Key: stranger.Cert.PublicKey})
	assert.ErrorIs(t, err, registry.ErrUnknownAnonymousParty)
}

func TestPartiesFromName(t *testing.T) {
	root := identitytest.NewTrustRoot(t, identitytest.Name("Root"))
	bankA := root.IssueCA(t, identitytest.Name("Bank A"))
	banker := root.IssueCA(t, identitytest.Name("BANKER"))
	notary := root.IssueCA(t, identitytest.Name("Notary"))
	r := newRegistry(t, root)

	for _, a := range []identitytest.Authority{bankA, banker, notary} {
		_, err := r.VerifyAndRegister(identitytest.MustRecord(t, a.Cert))
		require.NoError(t, err)
	}

	exact := r.PartiesFromName("Bank A", true)
	require.Len(t, exact, 1)
	assert.Equal(t, bankA.Cert.PublicKey, exact[0].Key)

	substring := r.PartiesFromName("bank", false)
	require.Len(t, substring, 2)
	assert.Equal(t, bankA.Cert.PublicKey, substring[0].Key)
	assert.Equal(t, banker.Cert.PublicKey, substring[1].Key)

	assert.Empty(t, r.PartiesFromName("bank", true))
}

func TestAssertOwnership(t *testing.T) {
	root := identitytest.NewTrustRoot(t, identitytest.Name("Root"))
	bankA := root.IssueCA(t, identitytest.Name("Bank A"))
	bankB := root.IssueCA(t, identitytest.Name("Bank B"))
	confidential := bankA.IssueLeaf(t, identitytest.Name("Bank A"))
	r := newRegistry(t, root)

	_, err := r.VerifyAndRegister(
		identitytest.MustRecord(t, confidential.Cert, bankA.Cert))
	require.NoError(t, err)
	_, err = r.VerifyAndRegister(identitytest.MustRecord(t, bankB.Cert))
	require.NoError(t, err)

	partyA := identity.Party{Name: identitytest.Name("Bank A"), Key: bankA.Cert.PublicKey}
	partyB := identity.Party{Name: identitytest.Name("Bank B"), Key: bankB.Cert.PublicKey}
	anonymous := identity.AnonymousParty{Key: confidential.Cert.PublicKey}

	assert.NoError(t, r.AssertOwnership(partyA, anonymous))
	assert.ErrorIs(t, r.AssertOwnership(partyB, anonymous), registry.ErrNotOwned)

	// An identity registered without an issuer certificate cannot prove
	// ownership.
	selfOwned := identity.AnonymousParty{Key: bankB.Cert.PublicKey}
	assert.ErrorIs(t, r.AssertOwnership(partyB, selfOwned), registry.ErrNotOwned)

	stranger := identitytest.NewTrustRoot(t, identitytest.Name("Stranger"))
	err = r.AssertOwnership(partyA,
		identity.AnonymousParty{Key: stranger.Cert.PublicKey})
	assert.ErrorIs(t, err, registry.ErrUnknownAnonymousParty)
}

func TestAllIdentities(t *testing.T) {
	root := identitytest.NewTrustRoot(t, identitytest.Name("Root"))
	bankA := root.IssueCA(t, identitytest.Name("Bank A"))
	bankB := root.IssueCA(t, identitytest.Name("Bank B"))
	r := newRegistry(t, root)

	_, err := r.VerifyAndRegister(identitytest.MustRecord(t, bankA.Cert))
	require.NoError(t, err)
	all := r.AllIdentities()
	assert.Len(t, all, 1)

	// The snapshot does not reflect later registrations.
	_, err = r.VerifyAndRegister(identitytest.MustRecord(t, bankB.Cert))
	require.NoError(t, err)
	assert.Len(t, all, 1)
	assert.Len(t, r.AllIdentities(), 2)
}

func TestConcurrentRegistrationAndLookup(t *testing.T) {
	root := identitytest.NewTrustRoot(t, identitytest.Name("Root"))
	bankA := root.IssueCA(t, identitytest.Name("Bank A"))
	confidentials := make([]identitytest.Authority, 8)
	for i := range confidentials {
		confidentials[i] = bankA.IssueLeaf(t, identitytest.Name("Bank A"))
	}
	r := newRegistry(t, root)

	var wg sync.WaitGroup
	for _, c := range confidentials {
		wg.Add(1)
		go func(c identitytest.Authority) {
			defer wg.Done()
			_, err := r.VerifyAndRegister(
				identitytest.MustRecord(t, c.Cert, bankA.Cert))
			assert.NoError(t, err)
		}(c)
		wg.Add(1)
		go func(c identitytest.Authority) {
			defer wg.Done()
			// Lookups race with registration, they must never observe an
			// inconsistent record.
			if rec, ok := r.CertificateFromKey(c.Cert.PublicKey); ok {
				assert.Equal(t, identitytest.Name("Bank A"), rec.Name())
			}
		}(c)
	}
	wg.Wait()

	party, ok := r.WellKnownPartyFromName(identitytest.Name("Bank A"))
	assert.True(t, ok)
	assert.Equal(t, bankA.Cert.PublicKey, party.Key)
}

func newRegistry(t *testing.T, root identitytest.Authority) *registry.Registry {
	t.Helper()
	r, err := registry.New(root.Cert, nil,
		registry.WithLogger(testlog.NewLogger(t)))
	require.NoError(t, err)
	return r
}
