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

package identity_test

import (
	"crypto/x509"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/permledger/noded/pkg/identity"
	"github.com/permledger/noded/pkg/identity/identitytest"
)

func TestNameString(t *testing.T) {
	testCases := map[string]struct {
		name identity.Name
		want string
	}{
		"full": {
			name: identity.Name{
				CommonName:         "Services",
				OrganizationalUnit: "Payments",
				Organization:       "Bank A",
				Locality:           "London",
				State:              "Greater London",
				Country:            "GB",
			},
			want: "CN=Services,OU=Payments,O=Bank A,L=London,ST=Greater London,C=GB",
		},
		"sparse": {
			name: identity.Name{Organization: "Bank A", Locality: "London", Country: "GB"},
			want: "O=Bank A,L=London,C=GB",
		},
	}
	for name, tc := range testCases {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.name.String())
		})
	}
}

func TestNamePkixRoundTrip(t *testing.T) {
	name := identity.Name{Organization: "Bank A", Locality: "Zurich", Country: "CH"}
	assert.Equal(t, name, identity.NameFromPkix(name.Pkix()))
}

func TestNameComponents(t *testing.T) {
	name := identity.Name{Organization: "Bank A", Locality: "Zurich", Country: "CH"}
	assert.Equal(t, []string{"Bank A", "Zurich", "CH"}, name.Components())
}

func TestFingerprint(t *testing.T) {
	root := identitytest.NewTrustRoot(t, identitytest.Name("Root"))
	other := identitytest.NewTrustRoot(t, identitytest.Name("Root"))

	fp1, err := identity.Fingerprint(root.Cert.PublicKey)
	require.NoError(t, err)
	fp1Again, err := identity.Fingerprint(root.Cert.PublicKey)
	require.NoError(t, err)
	fp2, err := identity.Fingerprint(other.Cert.PublicKey)
	require.NoError(t, err)

	assert.Equal(t, fp1, fp1Again)
	assert.NotEqual(t, fp1, fp2)

	_, err = identity.Fingerprint(nil)
	assert.Error(t, err)
}

func TestNewRecord(t *testing.T) {
	root := identitytest.NewTrustRoot(t, identitytest.Name("Root"))
	party := root.IssueCA(t, identitytest.Name("Bank A"))

	rec, err := identity.NewRecord([]*x509.Certificate{party.Cert, root.Cert})
	require.NoError(t, err)
	assert.Equal(t, identitytest.Name("Bank A"), rec.Name())
	assert.Equal(t, party.Cert.PublicKey, rec.Key())
	assert.Equal(t, party.Cert, rec.Certificate())
	assert.Len(t, rec.CertPath(), 2)

	_, err = identity.NewRecord(nil)
	assert.Error(t, err)
}

func TestRecordCertPathIsCopy(t *testing.T) {
	root := identitytest.NewTrustRoot(t, identitytest.Name("Root"))
	party := root.IssueCA(t, identitytest.Name("Bank A"))
	rec := identitytest.MustRecord(t, party.Cert, root.Cert)

	path := rec.CertPath()
	path[0] = root.Cert
	assert.Equal(t, party.Cert, rec.Certificate())
}
