// Command msgmarshal exercises the marshal package from the command line:
// evaluate a MindScript source file and write its result to a byte string,
// or read a byte string back into a value and print it.
package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli"
	uuid "github.com/satori/go.uuid"
	"github.com/tliron/commonlog"

	ms "github.com/tekknolagi/janet"
	"github.com/tekknolagi/janet/marshal"
)

func main() {
	app := cli.NewApp()
	app.Name = "msgmarshal"
	app.Usage = "marshal and unmarshal MindScript values"
	app.Version = ms.Version

	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:  "config",
			Usage: "path to a marshal.toml file configuring the verifier",
		},
	}

	app.Commands = []cli.Command{
		{
			Name:      "eval",
			Usage:     "evaluate a script and write its result to a byte string",
			ArgsUsage: "<script.ms> <out>",
			Action:    cmdEval,
		},
		{
			Name:      "decode",
			Usage:     "read a byte string and print the decoded value",
			ArgsUsage: "<in>",
			Action:    cmdDecode,
		},
		{
			Name:      "roundtrip",
			Usage:     "evaluate a script, marshal it, unmarshal it back, and compare",
			ArgsUsage: "<script.ms>",
			Action:    cmdRoundtrip,
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "msgmarshal:", err)
		os.Exit(1)
	}
}

// codecFromContext builds a Codec from the --config flag, if given. A
// missing flag yields the zero-configuration Codec, appropriate only for
// trusted same-process use.
func codecFromContext(c *cli.Context) (*marshal.Codec, error) {
	path := c.GlobalString("config")
	if path == "" {
		return &marshal.Codec{}, nil
	}
	cfg, err := marshal.LoadConfig(path)
	if err != nil {
		return nil, err
	}
	codec := &marshal.Codec{Types: marshal.NewTypeRegistry()}
	if cfg.Verifier.Strict {
		cached, err := marshal.NewCachedVerifier(defaultVerify, cfg.Verifier.CacheSize)
		if err != nil {
			return nil, err
		}
		codec.Verify = cached.Verify
	}
	return codec, nil
}

// defaultVerify accepts any definition that carries bytecode or declares
// zero slots; it does not inspect the bytecode words themselves. It stands
// in for a host that has no real bytecode verifier wired up yet but still
// wants the strict code path exercised.
func defaultVerify(def *ms.FuncDef) bool {
	return len(def.Bytecode) > 0 || def.SlotCount == 0
}

func evalFile(path string) (ms.Value, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return ms.Null, fmt.Errorf("cannot read %s: %w", path, err)
	}
	ip := ms.NewInterpreter()
	ast, err := ms.ParseSExpr(string(src))
	if err != nil {
		return ms.Null, err
	}
	return ip.EvalAST(ast, ip.Global)
}

func cmdEval(c *cli.Context) error {
	if c.NArg() != 2 {
		return cli.NewExitError("usage: msgmarshal eval <script.ms> <out>", 2)
	}
	script, out := c.Args().Get(0), c.Args().Get(1)

	id, err := uuid.NewV4()
	if err != nil {
		return err
	}
	commonlog.NewInfoMessage(0, fmt.Sprintf("eval %s [%s]", script, id))

	v, err := evalFile(script)
	if err != nil {
		return err
	}
	codec, err := codecFromContext(c)
	if err != nil {
		return err
	}
	sink, err := codec.Marshal(v, nil, nil)
	if err != nil {
		return fmt.Errorf("marshal failed: %w", err)
	}
	return os.WriteFile(out, sink.Bytes(), 0o644)
}

func cmdDecode(c *cli.Context) error {
	if c.NArg() != 1 {
		return cli.NewExitError("usage: msgmarshal decode <in>", 2)
	}
	in := c.Args().Get(0)

	data, err := os.ReadFile(in)
	if err != nil {
		return fmt.Errorf("cannot read %s: %w", in, err)
	}
	codec, err := codecFromContext(c)
	if err != nil {
		return err
	}
	v, next, err := codec.Unmarshal(data, nil)
	if err != nil {
		return fmt.Errorf("unmarshal failed: %w", err)
	}
	fmt.Println(ms.FormatValue(v))
	if next != len(data) {
		fmt.Fprintf(os.Stderr, "msgmarshal: %d trailing byte(s) after value\n", len(data)-next)
	}
	return nil
}

func cmdRoundtrip(c *cli.Context) error {
	if c.NArg() != 1 {
		return cli.NewExitError("usage: msgmarshal roundtrip <script.ms>", 2)
	}
	script := c.Args().Get(0)

	id, err := uuid.NewV4()
	if err != nil {
		return err
	}
	commonlog.NewInfoMessage(0, fmt.Sprintf("roundtrip %s [%s]", script, id))

	v, err := evalFile(script)
	if err != nil {
		return err
	}
	codec, err := codecFromContext(c)
	if err != nil {
		return err
	}
	sink, err := codec.Marshal(v, nil, nil)
	if err != nil {
		return fmt.Errorf("marshal failed: %w", err)
	}
	decoded, next, err := codec.Unmarshal(sink.Bytes(), nil)
	if err != nil {
		return fmt.Errorf("unmarshal failed: %w", err)
	}
	if next != sink.Len() {
		return fmt.Errorf("roundtrip left %d trailing byte(s)", sink.Len()-next)
	}
	fmt.Printf("original:  %s\n", ms.FormatValue(v))
	fmt.Printf("decoded:   %s\n", ms.FormatValue(decoded))
	fmt.Printf("bytes:     %d\n", sink.Len())
	return nil
}
