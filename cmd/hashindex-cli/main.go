// Command hashindex-cli is a thin driver over the engine, useful for manual
// poking and scripted smoke tests. It is not part of the core: every
// invocation opens the engine (keeping any existing data), performs one
// operation, and closes it.
package main

import (
	"encoding/hex"
	"errors"
	"fmt"
	"os"

	"github.com/urfave/cli/v2"
	"k8s.io/klog/v2"

	"github.com/rpcpool/hashindex/continuity"
	"github.com/rpcpool/hashindex/engine"
	"github.com/rpcpool/hashindex/errs"
	"github.com/rpcpool/hashindex/testkey"
)

func main() {
	klog.InitFlags(nil)
	defer klog.Flush()

	app := &cli.App{
		Name:  "hashindex-cli",
		Usage: "poke at a hashindex database from the command line",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "root", Required: true, Usage: "database root directory"},
			&cli.IntFlag{Name: "log-size", Value: 4096, Usage: "log budget in entries before a merge triggers"},
			&cli.BoolFlag{Name: "readonly", Value: false},
		},
		Commands: []*cli.Command{
			replaceCmd,
			findCmd,
			iterCmd,
			forceMergeCmd,
			flushCmd,
			clearCmd,
		},
	}

	if err := app.Run(os.Args); err != nil {
		klog.Errorf("hashindex-cli: %v", err)
		os.Exit(1)
	}
}

func openEngine(c *cli.Context) (*engine.Engine[testkey.Key20, testkey.Value20], error) {
	return engine.Open[testkey.Key20, testkey.Value20](
		c.String("root"), 20, 20,
		testkey.DecodeKey20, testkey.DecodeValue20,
		engine.WithLogSize(c.Int("log-size")),
		engine.WithReadOnly(c.Bool("readonly")),
	)
}

func parseKey20(hexStr string) (testkey.Key20, error) {
	var k testkey.Key20
	b, err := hex.DecodeString(hexStr)
	if err != nil {
		return k, fmt.Errorf("decoding hex key: %w", err)
	}
	return testkey.DecodeKey20(b)
}

func parseValue20(hexStr string) (testkey.Value20, error) {
	var v testkey.Value20
	b, err := hex.DecodeString(hexStr)
	if err != nil {
		return v, fmt.Errorf("decoding hex value: %w", err)
	}
	return testkey.DecodeValue20(b)
}

var replaceCmd = &cli.Command{
	Name:  "replace",
	Usage: "insert or overwrite a key/value pair",
	Flags: []cli.Flag{
		&cli.StringFlag{Name: "key", Required: true, Usage: "40 hex chars"},
		&cli.StringFlag{Name: "value", Required: true, Usage: "40 hex chars"},
	},
	Action: func(c *cli.Context) error {
		eng, err := openEngine(c)
		if err != nil {
			return err
		}
		defer eng.Close()

		var k testkey.Key20
		var v testkey.Value20
		return continuity.New().
			Thenf("decode key", func() error {
				var err error
				k, err = parseKey20(c.String("key"))
				return err
			}).
			Thenf("decode value", func() error {
				var err error
				v, err = parseValue20(c.String("value"))
				return err
			}).
			Thenf("replace", func() error {
				return eng.Replace(k, v)
			}).
			Thenf("flush", func() error {
				return eng.Flush()
			}).
			Err()
	},
}

var findCmd = &cli.Command{
	Name:  "find",
	Usage: "look up a key",
	Flags: []cli.Flag{
		&cli.StringFlag{Name: "key", Required: true, Usage: "40 hex chars"},
	},
	Action: func(c *cli.Context) error {
		eng, err := openEngine(c)
		if err != nil {
			return err
		}
		defer eng.Close()

		k, err := parseKey20(c.String("key"))
		if err != nil {
			return err
		}
		v, err := eng.Find(k)
		if errors.Is(err, errs.ErrNotFound) {
			fmt.Println("not found")
			return nil
		}
		if err != nil {
			return err
		}
		fmt.Println(hex.EncodeToString(v.Encode()))
		return nil
	},
}

var iterCmd = &cli.Command{
	Name:  "iter",
	Usage: "print every (key, value) pair; shadowed index entries are not deduplicated",
	Action: func(c *cli.Context) error {
		eng, err := openEngine(c)
		if err != nil {
			return err
		}
		defer eng.Close()

		return eng.Iter(func(k testkey.Key20, v testkey.Value20) bool {
			fmt.Printf("%s %s\n", k.String(), hex.EncodeToString(v.Encode()))
			return true
		})
	},
}

var forceMergeCmd = &cli.Command{
	Name:  "force-merge",
	Usage: "fold the log into a fresh index immediately",
	Action: func(c *cli.Context) error {
		eng, err := openEngine(c)
		if err != nil {
			return err
		}
		defer eng.Close()
		return eng.ForceMerge()
	},
}

var flushCmd = &cli.Command{
	Name:  "flush",
	Usage: "fsync the log file",
	Action: func(c *cli.Context) error {
		eng, err := openEngine(c)
		if err != nil {
			return err
		}
		defer eng.Close()
		return eng.Flush()
	},
}

var clearCmd = &cli.Command{
	Name:  "clear",
	Usage: "reset the database to empty",
	Action: func(c *cli.Context) error {
		eng, err := openEngine(c)
		if err != nil {
			return err
		}
		defer eng.Close()
		return eng.Clear()
	},
}
