// Copyright 2024 The feedcore Authors
// This file is part of feedcore.
//
// feedcore is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// feedcore is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with feedcore. If not, see <http://www.gnu.org/licenses/>.

// feedcore is a command-line tool to publish, read and verify single-owner
// feeds against a local chunk store.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/log"
	"github.com/urfave/cli/v2"

	"github.com/swarmforge/feedcore/feed"
	"github.com/swarmforge/feedcore/manifest"
	"github.com/swarmforge/feedcore/signer"
	"github.com/swarmforge/feedcore/storage"
)

var (
	datadirFlag = &cli.StringFlag{
		Name:  "datadir",
		Usage: "directory of the local chunk store",
		Value: filepath.Join(os.Getenv("HOME"), ".feedcore"),
	}
	keyfileFlag = &cli.StringFlag{
		Name:  "keyfile",
		Usage: "file containing a hex-encoded private key (required for update)",
	}
	userFlag = &cli.StringFlag{
		Name:  "user",
		Usage: "hex address of the feed owner (defaults to the key's address)",
	}
	topicFlag = &cli.StringFlag{
		Name:     "topic",
		Usage:    "feed topic name",
		Required: true,
	}
	epochFlag = &cli.BoolFlag{
		Name:  "epoch",
		Usage: "use epoch-based indexing instead of a sequence counter",
	}
	verbosityFlag = &cli.IntFlag{
		Name:  "verbosity",
		Usage: "log verbosity (0-5)",
		Value: 3,
	}
)

func main() {
	app := &cli.App{
		Name:  "feedcore",
		Usage: "publish, read and verify single-owner feeds",
		Flags: []cli.Flag{datadirFlag, keyfileFlag, userFlag, verbosityFlag},
		Before: func(ctx *cli.Context) error {
			log.Root().SetHandler(log.LvlFilterHandler(log.Lvl(ctx.Int(verbosityFlag.Name)), log.StreamHandler(os.Stderr, log.TerminalFormat(true))))
			return nil
		},
		Commands: []*cli.Command{
			{
				Name:      "update",
				Usage:     "publish a new feed update",
				ArgsUsage: "<data>",
				Flags:     []cli.Flag{topicFlag, epochFlag},
				Action:    update,
			},
			{
				Name:      "read",
				Usage:     "read a feed update (latest, or a specific sequence index)",
				ArgsUsage: "[index]",
				Flags:     []cli.Flag{topicFlag, epochFlag},
				Action:    read,
			},
			{
				Name:      "verify",
				Usage:     "verify that a feed's update chain is retrievable",
				ArgsUsage: "[target index]",
				Flags:     []cli.Flag{topicFlag, epochFlag},
				Action:    verify,
			},
			{
				Name:   "manifest",
				Usage:  "store a feed manifest and print its address",
				Flags:  []cli.Flag{topicFlag, epochFlag},
				Action: makeManifest,
			},
		},
	}
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func openStore(ctx *cli.Context) (*storage.LDBStore, error) {
	return storage.NewLDBStore(filepath.Join(ctx.String(datadirFlag.Name), "chunks"))
}

func loadSigner(ctx *cli.Context) (signer.Signer, error) {
	keyfile := ctx.String(keyfileFlag.Name)
	if keyfile == "" {
		return nil, fmt.Errorf("--keyfile is required")
	}
	key, err := crypto.LoadECDSA(keyfile)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", signer.ErrInvalidKey, err)
	}
	return signer.New(key), nil
}

// resolveFeed builds the feed descriptor from flags. The owner resolution
// precedence is: explicit --user, then the address of --keyfile.
func resolveFeed(ctx *cli.Context) (feed.Feed, error) {
	feedType := feed.Sequence
	if ctx.Bool(epochFlag.Name) {
		feedType = feed.Epoch
	}
	topic := feed.NewTopic(ctx.String(topicFlag.Name))

	if user := ctx.String(userFlag.Name); user != "" {
		if !common.IsHexAddress(user) {
			return feed.Feed{}, fmt.Errorf("invalid user address %q", user)
		}
		return feed.New(topic, common.HexToAddress(user), feedType), nil
	}
	sg, err := loadSigner(ctx)
	if err != nil {
		return feed.Feed{}, fmt.Errorf("either --user or --keyfile must identify the feed owner")
	}
	return feed.New(topic, sg.Address(), feedType), nil
}

func update(ctx *cli.Context) error {
	if ctx.NArg() != 1 {
		return fmt.Errorf("usage: feedcore update --topic <name> <data>")
	}
	sg, err := loadSigner(ctx)
	if err != nil {
		return err
	}
	fd, err := resolveFeed(ctx)
	if err != nil {
		return err
	}
	store, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	handler := feed.NewHandler(store)
	var prior feed.Index
	if _, index, err := handler.ReadLatest(ctx.Context, fd); err == nil {
		prior = index
	} else if feed.Code(err) != feed.ErrFeedNotFound {
		return err
	}
	addr, index, err := handler.Update(ctx.Context, sg, fd, prior, []byte(ctx.Args().First()))
	if err != nil {
		return err
	}
	fmt.Printf("stored update %s at %s\n", index, addr.Hex())
	return nil
}

func read(ctx *cli.Context) error {
	fd, err := resolveFeed(ctx)
	if err != nil {
		return err
	}
	store, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	handler := feed.NewHandler(store)
	if ctx.NArg() == 1 {
		n, err := strconv.ParseUint(ctx.Args().First(), 10, 64)
		if err != nil {
			return fmt.Errorf("invalid sequence index %q", ctx.Args().First())
		}
		payload, err := handler.ReadAt(ctx.Context, fd, feed.SequenceIndex(n))
		if err != nil {
			return err
		}
		os.Stdout.Write(payload)
		return nil
	}
	payload, index, err := handler.ReadLatest(ctx.Context, fd)
	if err != nil {
		return err
	}
	log.Info("resolved latest update", "index", index)
	os.Stdout.Write(payload)
	return nil
}

func verify(ctx *cli.Context) error {
	fd, err := resolveFeed(ctx)
	if err != nil {
		return err
	}
	store, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	handler := feed.NewHandler(store)
	var target feed.Index
	if ctx.NArg() == 1 {
		n, err := strconv.ParseUint(ctx.Args().First(), 10, 64)
		if err != nil {
			return fmt.Errorf("invalid sequence index %q", ctx.Args().First())
		}
		target = feed.SequenceIndex(n)
	}
	ok, err := handler.IsRetrievable(ctx.Context, fd, target)
	if err != nil {
		return err
	}
	if !ok {
		fmt.Println("feed is NOT retrievable")
		os.Exit(1)
	}
	fmt.Println("feed is retrievable")
	return nil
}

func makeManifest(ctx *cli.Context) error {
	fd, err := resolveFeed(ctx)
	if err != nil {
		return err
	}
	store, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	addr, err := manifest.NewFeedManifest(ctx.Context, store, fd)
	if err != nil {
		return err
	}
	fmt.Println(addr.Hex())
	return nil
}
