package cmd

import (
	"flag"

	"github.com/etnz/fundtrade/docs"
	"github.com/posener/complete/v2"
	"github.com/posener/complete/v2/predict"
)

// Completion describes the command line for shell completion: the global
// flags and every subcommand with its own flags.
func Completion() *complete.Command {
	root := &complete.Command{
		Sub: map[string]*complete.Command{
			"help":     {},
			"flags":    {},
			"commands": {},
		},
		Flags: map[string]complete.Predictor{
			"config":  predict.Files("*.toml"),
			"db":      predict.Files("*.db"),
			"catalog": predict.Files("*.toml"),
			"remote":  predict.Something,
			"raw":     predict.Nothing,
		},
	}
	for _, c := range Commands() {
		fs := flag.NewFlagSet(c.Name(), flag.ContinueOnError)
		c.SetFlags(fs)
		sub := &complete.Command{Flags: map[string]complete.Predictor{}}
		fs.VisitAll(func(f *flag.Flag) { sub.Flags[f.Name] = predictFlag(f) })
		root.Sub[c.Name()] = sub
	}
	if names, err := docs.List(); err == nil {
		root.Sub["topic"].Args = predict.Set(names)
	}
	return root
}

func predictFlag(f *flag.Flag) complete.Predictor {
	if b, ok := f.Value.(interface{ IsBoolFlag() bool }); ok && b.IsBoolFlag() {
		return predict.Nothing
	}
	return predict.Something
}
