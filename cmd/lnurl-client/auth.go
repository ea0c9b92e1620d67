package main

import (
	"encoding/hex"
	"fmt"

	"github.com/ellemouton/lnurl"
	"github.com/urfave/cli/v2"
)

var authCommand = &cli.Command{
	Name:        "auth",
	Usage:       "Log in with an LNURL-auth code",
	Description: `Sign an LNURL-auth challenge with the linking key derived for the service's domain`,
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:  "lnurl",
			Usage: "The LNURL-auth code.",
		},
		&cli.StringFlag{
			Name:    "seed",
			Usage:   "hex encoded 32 byte master key",
			EnvVars: []string{"LNURL_AUTH_SEED"},
		},
	},
	Action: authWithLNURL,
}

func authWithLNURL(ctx *cli.Context) error {
	seed, err := hex.DecodeString(ctx.String("seed"))
	if err != nil {
		return fmt.Errorf("invalid seed: %w", err)
	}

	key, err := lnurl.NewMasterKey(seed)
	if err != nil {
		return err
	}

	client, req, resp, err := fetch(ctx, ctx.String("lnurl"))
	if err != nil {
		return err
	}

	auth, ok := resp.(*lnurl.AuthResponse)
	if !ok {
		return fmt.Errorf("expected an auth challenge, got %s",
			resp.Tag())
	}

	if err := client.Authenticate(ctx.Context, req, auth, key); err != nil {
		return err
	}

	pub, err := key.LinkingPubKey(req.Domain())
	if err != nil {
		return err
	}

	fmt.Printf("Authenticated to %s as %x\n", req.Domain(),
		pub.SerializeCompressed())

	return nil
}
