// Copyright (c) 2024 The BitFS developers
// Use of this source code is governed by the Open BSV License v5
// that can be found in the LICENSE file.

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"

	"github.com/bitfsorg/tiersplit-go/splitter"
)

func writeFile(path, content string) error {
	return os.WriteFile(path, []byte(content), 0600)
}

func TestExampleManifest(t *testing.T) {
	p, err := ExampleManifest().Params()
	require.NoError(t, err)

	assert.Equal(t, splitter.PriceBook{1_000_000_000, 1_500_000_000, 2_000_000_000}, p.Prices)
	assert.Empty(t, p.Asset)
	assert.NoError(t, p.Roles.Validate(splitter.ContractAddress([]byte("example"))))
}

func TestManifest_SaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "manifest.yaml")
	m := ExampleManifest()
	m.Asset = "token:gold"
	m.Salt = "launch-1"

	require.NoError(t, SaveManifest(path, m))
	got, err := LoadManifest(path)
	require.NoError(t, err)
	assert.Equal(t, m, got)

	p, err := got.Params()
	require.NoError(t, err)
	assert.Equal(t, []byte("launch-1"), p.Salt)
	assert.Equal(t, "token:gold", p.Asset)
}

func TestLoadManifest_Errors(t *testing.T) {
	_, err := LoadManifest(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, ErrManifestNotFound)

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, writeFile(path, "prices: [not, a, map]\n"))
	_, err = LoadManifest(path)
	assert.ErrorIs(t, err, ErrInvalidManifest)
}

func TestLoadManifest_YAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "manifest.yaml")
	require.NoError(t, writeFile(path, `
payer_admin: 1A1zP1eP5QGefi2DMPTfTL5SLmv7DivfNa
content_admin: "0x1111111111111111111111111111111111111111"
content_sub_admin: "0x2222222222222222222222222222222222222222"
revenue_share_wallet: "0x3333333333333333333333333333333333333333"
prices:
  basic: "1.5"
  Standard: "2"
  "2": "0.00000001"
`))
	m, err := LoadManifest(path)
	require.NoError(t, err)

	p, err := m.Params()
	require.NoError(t, err)
	assert.Equal(t, "0x62e907b15cbf27d5425399ebf6f0fb50ebb88f18", p.Roles.PayerAdmin.Hex())
	assert.Equal(t, splitter.PriceBook{150_000_000, 200_000_000, 1}, p.Prices)
}

func TestValidateManifest_CollectsEveryProblem(t *testing.T) {
	m := Manifest{
		PayerAdmin:   "nonsense",
		ContentAdmin: "0x0000000000000000000000000000000000000000",
		Prices: map[string]string{
			"basic":    "-1",
			"platinum": "3",
		},
		Asset: "native\x00",
	}

	err := ValidateManifest(m)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidManifest)

	// payer admin, content admin, sub admin, wallet, basic, platinum,
	// standard missing, premium missing, asset
	assert.Len(t, multierr.Errors(err), 9)
}

func TestValidateManifest_DuplicateApprover(t *testing.T) {
	m := ExampleManifest()
	m.ContentSubAdmin = m.ContentAdmin

	err := ValidateManifest(m)
	assert.ErrorIs(t, err, ErrInvalidManifest)
	assert.ErrorIs(t, err, splitter.ErrDuplicateApprover)
}

func TestValidateManifest_DuplicateTier(t *testing.T) {
	m := ExampleManifest()
	m.Prices["0"] = "11"

	err := ValidateManifest(m)
	assert.ErrorIs(t, err, ErrInvalidManifest)
	assert.Contains(t, err.Error(), "listed twice")
}
