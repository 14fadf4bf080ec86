package main

import (
	"fmt"
	"strings"

	"github.com/lemonberrylabs/numchain/pkg/api"
	"github.com/lemonberrylabs/numchain/pkg/chain"
	"github.com/lemonberrylabs/numchain/pkg/expr"
	"github.com/lemonberrylabs/numchain/pkg/host"
	"github.com/lemonberrylabs/numchain/pkg/numeric"
	"github.com/lemonberrylabs/numchain/pkg/parser"
	"github.com/lemonberrylabs/numchain/pkg/stdlib"
	"github.com/spf13/cobra"
)

// calc, classify and call take negative numbers as arguments, so cobra
// parses no flags for them; withOperands handles --color, --help and "--".
var calcCmd = &cobra.Command{
	Use:                "calc OP A B",
	Short:              "Apply an arithmetic operator to two values in wire text",
	Example:            "  numchain calc + 0.1 0.2\n  numchain calc ** 2n 100n\n  numchain calc % -7n 2n",
	DisableFlagParsing: true,
	RunE: withOperands(cobra.ExactArgs(3), func(cmd *cobra.Command, args []string) error {
		op, ok := numeric.ParseOp(args[0])
		if !ok {
			return fmt.Errorf("unknown operator '%s'", args[0])
		}
		a, err := numeric.Parse(args[1])
		if err != nil {
			return err
		}
		b, err := numeric.Parse(args[2])
		if err != nil {
			return err
		}
		result, err := numeric.Apply(op, a, b)
		if err != nil {
			return err
		}
		return printJSON(cmd, map[string]any{"result": result})
	}),
}

var classifyCmd = &cobra.Command{
	Use:                "classify VALUE",
	Short:              "Report the domain and predicates of a value",
	DisableFlagParsing: true,
	RunE: withOperands(cobra.ExactArgs(1), func(cmd *cobra.Command, args []string) error {
		v, err := numeric.Parse(args[0])
		if err != nil {
			return err
		}
		return printJSON(cmd, api.Classification(v))
	}),
}

var constantsCmd = &cobra.Command{
	Use:   "constants",
	Short: "List the named numeric constants",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := make(map[string]any)
		for _, name := range numeric.ConstantNames() {
			v, _ := numeric.Constant(name)
			out[name] = v
		}
		return printJSON(cmd, out)
	},
}

var parseCmd = &cobra.Command{
	Use:   "parse KIND TEXT",
	Short: "Coerce text to a number (kind: float, int, bigint, literal, wire)",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		radix, _ := cmd.Flags().GetInt("radix")
		result, err := api.ParseText(args[0], args[1], radix)
		if err != nil {
			return err
		}
		return printJSON(cmd, map[string]any{"result": result})
	},
}

var callCmd = &cobra.Command{
	Use:   "call NAME [ARG...]",
	Short: "Call a library function; arguments are YAML scalars (2n is a big integer)",
	Example: "  numchain call Math.max 1 5 3\n  numchain call BigInt.asUintN 8 255n\n" +
		"  numchain call Number.parseInt '\"ff\"' 16",
	DisableFlagParsing: true,
	RunE: withOperands(cobra.MinimumNArgs(1), func(cmd *cobra.Command, args []string) error {
		funcs := stdlib.NewRegistry()
		callArgs, err := host.FromYAML([]byte("[" + strings.Join(args[1:], ", ") + "]"))
		if err != nil {
			return fmt.Errorf("invalid arguments: %w", err)
		}
		result, err := funcs.CallFunction(args[0], callArgs.AsList())
		if err != nil {
			return err
		}
		return printJSON(cmd, map[string]any{"result": result})
	}),
}

// withOperands wraps run for a command that parses no flags. It applies
// --color, answers --help and -h with the usage text, and passes every
// other argument through as an operand. Arguments after "--" are always
// operands.
func withOperands(validate cobra.PositionalArgs, run func(*cobra.Command, []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		var operands []string
		for i, a := range args {
			switch {
			case a == "--":
				operands = append(operands, args[i+1:]...)
				return validateAndRun(cmd, operands, validate, run)
			case a == "--help" || a == "-h":
				return cmd.Help()
			case a == "--color" || strings.HasPrefix(a, "--color="):
				value := "true"
				if _, v, ok := strings.Cut(a, "="); ok {
					value = v
				}
				if err := cmd.Flag("color").Value.Set(value); err != nil {
					return fmt.Errorf("invalid value %q for --color: %w", value, err)
				}
			default:
				operands = append(operands, a)
			}
		}
		return validateAndRun(cmd, operands, validate, run)
	}
}

func validateAndRun(cmd *cobra.Command, args []string, validate cobra.PositionalArgs, run func(*cobra.Command, []string) error) error {
	if err := validate(cmd, args); err != nil {
		return err
	}
	return run(cmd, args)
}

var chainCmd = &cobra.Command{
	Use:   "chain",
	Short: "Evaluate a chain descriptor or path expression against a root document",
	Example: "  numchain chain --chain first-name.yaml --root school.json\n" +
		"  numchain chain --path 'Math.max?.(1, 5)' --globals",
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		chainFile, _ := cmd.Flags().GetString("chain")
		pathExpr, _ := cmd.Flags().GetString("path")
		rootFile, _ := cmd.Flags().GetString("root")
		globals, _ := cmd.Flags().GetBool("globals")
		strict, _ := cmd.Flags().GetBool("strict")
		if rootFile != "" && globals {
			return fmt.Errorf("--root and --globals are mutually exclusive")
		}

		if (chainFile == "") == (pathExpr == "") {
			return fmt.Errorf("exactly one of --chain or --path is required")
		}

		var c chain.Chain
		if pathExpr != "" {
			path, err := expr.ParsePath(pathExpr)
			if err != nil {
				return err
			}
			c = path.Chain()
		} else {
			src, err := readInput(chainFile, cmd.InOrStdin())
			if err != nil {
				return fmt.Errorf("reading chain: %w", err)
			}
			def, err := parser.Parse(src)
			if err != nil {
				return err
			}
			c = def.Chain
		}

		root := host.Undefined
		switch {
		case rootFile != "":
			data, err := readInput(rootFile, cmd.InOrStdin())
			if err != nil {
				return fmt.Errorf("reading root: %w", err)
			}
			if root, err = host.FromYAML(data); err != nil {
				return fmt.Errorf("root document: %w", err)
			}
		case globals:
			root = stdlib.NewRegistry().Globals()
		}

		r := &host.Resolver{Strict: strict}
		value, res, err := r.Evaluate(root, c)
		if err != nil {
			return err
		}
		out := map[string]any{
			"path":     c.String(),
			"hasValue": res.HasValue(),
			"steps":    res.Steps,
		}
		if res.HasValue() {
			out["value"] = value
		}
		return printJSON(cmd, out)
	},
}

func init() {
	parseCmd.Flags().Int("radix", 0, "Radix for kind int (2-36, 0 detects 0x)")

	chainCmd.Flags().String("chain", "", "Chain descriptor file, or - for stdin")
	chainCmd.Flags().String("path", "", "Path expression, e.g. students?.[0]?.name")
	chainCmd.Flags().String("root", "", "Root document file (YAML or JSON), or - for stdin")
	chainCmd.Flags().Bool("globals", false, "Evaluate against the library globals")
	chainCmd.Flags().Bool("strict", false, "Fail on missing properties instead of yielding undefined")
}
