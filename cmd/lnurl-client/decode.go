package main

import (
	"fmt"

	"github.com/ellemouton/lnurl"
	"github.com/skip2/go-qrcode"
	"github.com/urfave/cli/v2"
)

var decodeCommand = &cli.Command{
	Name:      "decode",
	Usage:     "Decode an LNURL or lightning address",
	ArgsUsage: "lnurl",
	Action: func(ctx *cli.Context) error {
		req, err := lnurl.Decode(ctx.Args().First())
		if err != nil {
			return err
		}

		fmt.Printf("url:   %s\nonion: %v\n", req.URL, req.IsOnion)

		return nil
	},
}

var encodeCommand = &cli.Command{
	Name:      "encode",
	Usage:     "Encode a URL as an LNURL",
	ArgsUsage: "url",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:  "qr",
			Usage: "write a QR code PNG of the LNURL to this file",
		},
	},
	Action: func(ctx *cli.Context) error {
		encoded, err := lnurl.EncodeURL(ctx.Args().First())
		if err != nil {
			return err
		}

		fmt.Printf("%s\nlightning:%s\n", encoded, encoded)

		if path := ctx.String("qr"); path != "" {
			return qrcode.WriteFile(
				"lightning:"+encoded, qrcode.Medium, 256, path,
			)
		}

		return nil
	},
}
