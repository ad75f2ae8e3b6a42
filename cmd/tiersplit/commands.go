package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	ec "github.com/bsv-blockchain/go-sdk/primitives/ec"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/bitfsorg/tiersplit-go/config"
	"github.com/bitfsorg/tiersplit-go/envelope"
	"github.com/bitfsorg/tiersplit-go/httpapi"
	"github.com/bitfsorg/tiersplit-go/identity"
	"github.com/bitfsorg/tiersplit-go/ledger"
	"github.com/bitfsorg/tiersplit-go/revshare"
	"github.com/bitfsorg/tiersplit-go/splitter"
	"github.com/bitfsorg/tiersplit-go/store"
	"github.com/bitfsorg/tiersplit-go/x402"
)

func newFlags(a *app, name string) *pflag.FlagSet {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.SetOutput(a.out)
	return fs
}

func parse(fs *pflag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %w", errUsage, err)
	}
	if fs.NArg() > 0 {
		return fmt.Errorf("%w: unexpected arguments %v", errUsage, fs.Args())
	}
	return nil
}

func required(name, value string) error {
	if value == "" {
		return fmt.Errorf("%w: --%s is required", errUsage, name)
	}
	return nil
}

func (a *app) printJSON(v any) error {
	enc := json.NewEncoder(a.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// contract opens the contract named by s.
func (a *app) contract(s string) (*splitter.Contract, error) {
	if err := required("contract", s); err != nil {
		return nil, err
	}
	addr, err := identity.Parse(s)
	if err != nil {
		return nil, err
	}
	st, err := a.db()
	if err != nil {
		return nil, err
	}
	return splitter.Open(st, addr, splitter.WithLogger(a.log))
}

// passwordEnv supplies the key file password when --password-file is unset.
const passwordEnv = "TIERSPLIT_KEY_PASSWORD"

// keyFlags are the --keyfile and --password-file flags of a signing command.
type keyFlags struct {
	file         *string
	passwordFile *string
}

func addKeyFlags(fs *pflag.FlagSet, who string) keyFlags {
	return keyFlags{
		file:         fs.String("keyfile", "", who+" key file (see keygen --out)"),
		passwordFile: fs.String("password-file", "", "file holding the key file password (default $"+passwordEnv+")"),
	}
}

// password reads the key file password. A single trailing newline is dropped.
func password(file string) (string, error) {
	if file == "" {
		if pw := os.Getenv(passwordEnv); pw != "" {
			return pw, nil
		}
		return "", fmt.Errorf("%w: --password-file or $%s is required", errUsage, passwordEnv)
	}
	b, err := os.ReadFile(file)
	if err != nil {
		return "", err
	}
	pw := strings.TrimSuffix(strings.TrimSuffix(string(b), "\n"), "\r")
	if pw == "" {
		return "", envelope.ErrEmptyPassword
	}
	return pw, nil
}

// signer decrypts the key file into the caller address.
func (k keyFlags) signer() (identity.Address, error) {
	if err := required("keyfile", *k.file); err != nil {
		return identity.Zero, err
	}
	pw, err := password(*k.passwordFile)
	if err != nil {
		return identity.Zero, err
	}
	priv, err := envelope.ReadKeyFile(*k.file, pw)
	if err != nil {
		return identity.Zero, err
	}
	return identity.FromPublicKey(priv.PubKey()), nil
}

func (a *app) render(addr identity.Address) string {
	b58, err := addr.Base58(a.cfg.Mainnet())
	if err != nil {
		return addr.Hex()
	}
	return fmt.Sprintf("%s (%s)", b58, addr.Hex())
}

func cmdDeploy(a *app, args []string) error {
	fs := newFlags(a, "deploy")
	manifestPath := fs.String("manifest", "", "YAML deployment manifest")
	example := fs.Bool("example", false, "deploy the example manifest (10/15/20 coin tiers)")
	writeManifest := fs.String("write-manifest", "", "write the example manifest to this path and exit")
	if err := parse(fs, args); err != nil {
		return err
	}

	var m config.Manifest
	switch {
	case *writeManifest != "":
		return config.SaveManifest(*writeManifest, config.ExampleManifest())
	case *example:
		m = config.ExampleManifest()
	case *manifestPath != "":
		var err error
		if m, err = config.LoadManifest(*manifestPath); err != nil {
			return err
		}
	default:
		return fmt.Errorf("%w: one of --manifest, --example or --write-manifest is required", errUsage)
	}

	p, err := m.Params()
	if err != nil {
		return err
	}
	st, err := a.db()
	if err != nil {
		return err
	}
	c, err := splitter.Deploy(st, p, splitter.WithLogger(a.log))
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "contract %s\n", c.Address().Hex())
	fmt.Fprintf(a.out, "asset    %s\n", c.Asset().ID())
	return nil
}

// Status is the JSON document printed by the status command.
type Status struct {
	splitter.Snapshot
	ListPrices map[string]string `json:"list_prices_coins"`
	AmountsDue map[string]string `json:"amounts_due_coins"`
}

func cmdStatus(a *app, args []string) error {
	fs := newFlags(a, "status")
	contract := fs.String("contract", "", "contract address")
	if err := parse(fs, args); err != nil {
		return err
	}
	c, err := a.contract(*contract)
	if err != nil {
		return err
	}
	snap, err := c.Snapshot()
	if err != nil {
		return err
	}
	st := Status{Snapshot: snap, ListPrices: map[string]string{}, AmountsDue: map[string]string{}}
	for _, t := range splitter.AllTiers() {
		st.ListPrices[t.String()] = revshare.FormatCoins(snap.Prices[t])
		st.AmountsDue[t.String()] = revshare.FormatCoins(snap.Quotes[t])
	}
	return a.printJSON(st)
}

func cmdQuote(a *app, args []string) error {
	fs := newFlags(a, "quote")
	contract := fs.String("contract", "", "contract address")
	tier := fs.String("tier", "", "basic, standard or premium")
	if err := parse(fs, args); err != nil {
		return err
	}
	t, err := splitter.ParseTier(*tier)
	if err != nil {
		return err
	}
	c, err := a.contract(*contract)
	if err != nil {
		return err
	}
	list, err := c.Price(t)
	if err != nil {
		return err
	}
	due, err := c.QuotePrice(t)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "tier       %s\n", t)
	fmt.Fprintf(a.out, "list price %s\n", revshare.FormatCoins(list))
	fmt.Fprintf(a.out, "amount due %s (%d units)\n", revshare.FormatCoins(due), due)
	return nil
}

func cmdPay(a *app, args []string) error {
	fs := newFlags(a, "pay")
	contract := fs.String("contract", "", "contract address")
	key := addKeyFlags(fs, "payer")
	tier := fs.String("tier", "", "basic, standard or premium")
	amount := fs.String("amount", "", "coins to attach (default: the quoted amount)")
	if err := parse(fs, args); err != nil {
		return err
	}
	payer, err := key.signer()
	if err != nil {
		return err
	}
	t, err := splitter.ParseTier(*tier)
	if err != nil {
		return err
	}
	c, err := a.contract(*contract)
	if err != nil {
		return err
	}

	list, err := c.Price(t)
	if err != nil {
		return err
	}
	q, err := x402.NewQuote(c.Address(), t.String(), list, c.Asset().ID(), 0)
	if err != nil {
		return err
	}

	units := q.Price
	if *amount != "" {
		if units, err = revshare.ParseCoins(*amount); err != nil {
			return err
		}
	}
	if err := q.Check(t.String(), units); err != nil {
		return fmt.Errorf("%w: %w", splitter.ErrIncorrectPaymentAmount, err)
	}

	ev, err := c.MakePayment(payer, t, units)
	if err != nil {
		return err
	}
	return a.printJSON(ev)
}

func cmdApprove(a *app, args []string) error {
	fs := newFlags(a, "approve")
	contract := fs.String("contract", "", "contract address")
	key := addKeyFlags(fs, "approver")
	if err := parse(fs, args); err != nil {
		return err
	}
	caller, err := key.signer()
	if err != nil {
		return err
	}
	c, err := a.contract(*contract)
	if err != nil {
		return err
	}
	res, err := c.ApproveRelease(caller)
	if err != nil {
		return err
	}
	if res.Released {
		fmt.Fprintf(a.out, "approved as %s; released %s to the content admin\n", res.Role, revshare.FormatCoins(res.Amount))
	} else {
		fmt.Fprintf(a.out, "approved as %s; waiting for the other approver\n", res.Role)
	}
	return nil
}

func cmdSetPrice(a *app, args []string) error {
	fs := newFlags(a, "set-price")
	contract := fs.String("contract", "", "contract address")
	key := addKeyFlags(fs, "payer admin")
	tier := fs.String("tier", "", "basic, standard or premium")
	price := fs.String("price", "", "new list price in coins")
	if err := parse(fs, args); err != nil {
		return err
	}
	if err := required("price", *price); err != nil {
		return err
	}
	caller, err := key.signer()
	if err != nil {
		return err
	}
	t, err := splitter.ParseTier(*tier)
	if err != nil {
		return err
	}
	units, err := revshare.ParseCoins(*price)
	if err != nil {
		return err
	}
	c, err := a.contract(*contract)
	if err != nil {
		return err
	}
	if err := c.UpdatePrice(caller, t, units); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "%s list price is now %s\n", t, revshare.FormatCoins(units))
	return nil
}

func cmdSetRole(a *app, args []string) error {
	fs := newFlags(a, "set-role")
	contract := fs.String("contract", "", "contract address")
	key := addKeyFlags(fs, "authorized role holder's")
	role := fs.String("role", "", "payer-admin, content-admin, content-sub-admin or revenue-share-wallet")
	account := fs.String("account", "", "new holder address")
	if err := parse(fs, args); err != nil {
		return err
	}
	caller, err := key.signer()
	if err != nil {
		return err
	}
	r, err := splitter.ParseRole(*role)
	if err != nil {
		return err
	}
	next, err := identity.Parse(*account)
	if err != nil {
		return err
	}
	c, err := a.contract(*contract)
	if err != nil {
		return err
	}
	if err := c.UpdateRole(caller, r, next); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "%s is now %s\n", r, a.render(next))
	return nil
}

// ledgerFor opens the ledger of the asset named by id.
func (a *app) ledgerFor(id string) (*ledger.Ledger, error) {
	asset, err := ledger.ForID(id)
	if err != nil {
		return nil, err
	}
	st, err := a.db()
	if err != nil {
		return nil, err
	}
	return ledger.New(st, asset), nil
}

func cmdTransfer(a *app, args []string) error {
	fs := newFlags(a, "transfer")
	key := addKeyFlags(fs, "sender")
	to := fs.String("to", "", "recipient address")
	amount := fs.String("amount", "", "coins to send")
	asset := fs.String("asset", ledger.NativeAssetID, "asset identifier")
	if err := parse(fs, args); err != nil {
		return err
	}
	if err := required("amount", *amount); err != nil {
		return err
	}
	from, err := key.signer()
	if err != nil {
		return err
	}
	recipient, err := identity.Parse(*to)
	if err != nil {
		return err
	}
	units, err := revshare.ParseCoins(*amount)
	if err != nil {
		return err
	}
	l, err := a.ledgerFor(*asset)
	if err != nil {
		return err
	}
	st, err := a.db()
	if err != nil {
		return err
	}
	c, err := splitter.Open(st, recipient, splitter.WithLogger(a.log))
	switch {
	case err == nil:
		return c.Receive(from, units)
	case !errors.Is(err, splitter.ErrContractNotFound):
		return err
	}
	if err := l.Transfer(from, recipient, units); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "sent %s %s to %s\n", revshare.FormatCoins(units), l.Asset().ID(), a.render(recipient))
	return nil
}

func cmdMint(a *app, args []string) error {
	fs := newFlags(a, "mint")
	to := fs.String("to", "", "recipient address")
	amount := fs.String("amount", "", "coins to credit")
	asset := fs.String("asset", ledger.NativeAssetID, "asset identifier")
	if err := parse(fs, args); err != nil {
		return err
	}
	if err := required("amount", *amount); err != nil {
		return err
	}
	if a.cfg.Mainnet() {
		return errors.New("mint is disabled on mainnet")
	}
	recipient, err := identity.Parse(*to)
	if err != nil {
		return err
	}
	units, err := revshare.ParseCoins(*amount)
	if err != nil {
		return err
	}
	l, err := a.ledgerFor(*asset)
	if err != nil {
		return err
	}
	if err := l.Mint(recipient, units); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "minted %s %s to %s\n", revshare.FormatCoins(units), l.Asset().ID(), a.render(recipient))
	return nil
}

func cmdBalance(a *app, args []string) error {
	fs := newFlags(a, "balance")
	account := fs.String("account", "", "account address")
	asset := fs.String("asset", ledger.NativeAssetID, "asset identifier")
	if err := parse(fs, args); err != nil {
		return err
	}
	who, err := identity.Parse(*account)
	if err != nil {
		return err
	}
	l, err := a.ledgerFor(*asset)
	if err != nil {
		return err
	}
	bal, err := l.Balance(who)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "%s %s\n", revshare.FormatCoins(bal), l.Asset().ID())
	return nil
}

func cmdKeygen(a *app, args []string) error {
	fs := newFlags(a, "keygen")
	out := fs.String("out", "", "write the encrypted key to this file")
	passwordFile := fs.String("password-file", "", "file holding the key file password (default $"+passwordEnv+")")
	if err := parse(fs, args); err != nil {
		return err
	}
	if err := required("out", *out); err != nil {
		return err
	}
	pw, err := password(*passwordFile)
	if err != nil {
		return err
	}
	priv, err := ec.NewPrivateKey()
	if err != nil {
		return err
	}
	if err := envelope.WriteKeyFile(*out, priv, pw, envelope.DefaultKDFParams); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "keyfile %s\n", *out)
	fmt.Fprintf(a.out, "address %s\n", a.render(identity.FromPublicKey(priv.PubKey())))
	return nil
}

func cmdServe(a *app, args []string) error {
	fs := newFlags(a, "serve")
	listen := fs.String("listen", a.cfg.ListenAddr, "listen address")
	quoteTTL := fs.Duration("quote-ttl", 10*time.Minute, "lifetime of x402 quotes (0 disables expiry)")
	if err := parse(fs, args); err != nil {
		return err
	}
	st, err := a.db()
	if err != nil {
		return err
	}
	return serve(a, st, *listen, *quoteTTL)
}

func serve(a *app, st store.Store, listen string, quoteTTL time.Duration) error {
	ln, err := net.Listen("tcp", listen)
	if err != nil {
		return err
	}
	srv := &http.Server{
		Handler: httpapi.New(st,
			httpapi.WithLogger(a.log),
			httpapi.WithQuoteTTL(quoteTTL),
		).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() { errc <- srv.Serve(ln) }()
	a.log.Info("serving", zap.String("listen", ln.Addr().String()))
	fmt.Fprintf(a.out, "listening on %s\n", ln.Addr())

	select {
	case err := <-errc:
		return err
	case <-a.ctx.Done():
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		return err
	}
	if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
