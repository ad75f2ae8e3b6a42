// Copyright (c) 2024 The BitFS developers
// Use of this source code is governed by the Open BSV License v5
// that can be found in the LICENSE file.

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"

	"github.com/bitfsorg/tiersplit-go/identity"
	"github.com/bitfsorg/tiersplit-go/ledger"
	"github.com/bitfsorg/tiersplit-go/revshare"
	"github.com/bitfsorg/tiersplit-go/splitter"
)

// Manifest describes one contract deployment. Addresses accept base58 or
// 0x hex; prices are decimal coin amounts keyed by tier name.
type Manifest struct {
	PayerAdmin         string            `yaml:"payer_admin"`
	ContentAdmin       string            `yaml:"content_admin"`
	ContentSubAdmin    string            `yaml:"content_sub_admin"`
	RevenueShareWallet string            `yaml:"revenue_share_wallet"`
	Prices             map[string]string `yaml:"prices"`
	Asset              string            `yaml:"asset,omitempty"`
	Salt               string            `yaml:"salt,omitempty"`
}

// ExampleManifest returns a manifest with placeholder role holders and
// tier prices of 10, 15 and 20 coins.
func ExampleManifest() Manifest {
	holder := func(role splitter.Role) string {
		return identity.Derive([]byte("tiersplit/example/"), []byte(role.String())).Hex()
	}
	return Manifest{
		PayerAdmin:         holder(splitter.RolePayerAdmin),
		ContentAdmin:       holder(splitter.RoleContentAdmin),
		ContentSubAdmin:    holder(splitter.RoleContentSubAdmin),
		RevenueShareWallet: holder(splitter.RoleRevenueShareWallet),
		Prices: map[string]string{
			splitter.TierBasic.String():    "10",
			splitter.TierStandard.String(): "15",
			splitter.TierPremium.String():  "20",
		},
	}
}

// LoadManifest reads and decodes a YAML manifest. It does not validate it.
func LoadManifest(path string) (Manifest, error) {
	var m Manifest
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return m, fmt.Errorf("%w: %s", ErrManifestNotFound, path)
	}
	if err != nil {
		return m, fmt.Errorf("config: read manifest: %w", err)
	}
	if err := yaml.Unmarshal(data, &m); err != nil {
		return m, fmt.Errorf("%w: %w", ErrInvalidManifest, err)
	}
	return m, nil
}

// SaveManifest writes m to path as YAML, creating parent directories.
func SaveManifest(path string, m Manifest) error {
	data, err := yaml.Marshal(m)
	if err != nil {
		return fmt.Errorf("config: encode manifest: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("config: create directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("config: write manifest: %w", err)
	}
	return nil
}

// Params converts m into deployment parameters. Every problem is reported,
// combined with multierr; each one wraps ErrInvalidManifest.
func (m Manifest) Params() (splitter.Params, error) {
	var (
		p    splitter.Params
		errs error
	)

	role := func(name, value string) identity.Address {
		addr, err := identity.ParseNonZero(value)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("%w: %s: %w", ErrInvalidManifest, name, err))
		}
		return addr
	}
	p.Roles.PayerAdmin = role(splitter.RolePayerAdmin.String(), m.PayerAdmin)
	p.Roles.ContentAdmin = role(splitter.RoleContentAdmin.String(), m.ContentAdmin)
	p.Roles.ContentSubAdmin = role(splitter.RoleContentSubAdmin.String(), m.ContentSubAdmin)
	p.Roles.RevenueShareWallet = role(splitter.RoleRevenueShareWallet.String(), m.RevenueShareWallet)

	seen := make(map[splitter.Tier]bool, splitter.NumTiers)
	for name, value := range m.Prices {
		t, err := splitter.ParseTier(name)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("%w: prices: %w", ErrInvalidManifest, err))
			continue
		}
		if seen[t] {
			errs = multierr.Append(errs, fmt.Errorf("%w: prices: %s listed twice", ErrInvalidManifest, t))
			continue
		}
		seen[t] = true
		units, err := revshare.ParseCoins(value)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("%w: prices: %s: %w", ErrInvalidManifest, t, err))
			continue
		}
		p.Prices[t] = units
	}
	for _, t := range splitter.AllTiers() {
		if !seen[t] {
			errs = multierr.Append(errs, fmt.Errorf("%w: prices: %s missing", ErrInvalidManifest, t))
		}
	}

	if _, err := ledger.ForID(m.Asset); err != nil {
		errs = multierr.Append(errs, fmt.Errorf("%w: asset: %w", ErrInvalidManifest, err))
	}
	p.Asset = m.Asset
	if m.Salt != "" {
		p.Salt = []byte(m.Salt)
	}

	if errs == nil && p.Roles.ContentAdmin == p.Roles.ContentSubAdmin {
		errs = fmt.Errorf("%w: %w", ErrInvalidManifest, splitter.ErrDuplicateApprover)
	}
	return p, errs
}

// ValidateManifest returns every problem in m combined into one error.
func ValidateManifest(m Manifest) error {
	_, err := m.Params()
	return err
}
