package cmd

import (
	"context"
	"flag"
	"fmt"

	"github.com/etnz/fundtrade/docs"
	"github.com/google/subcommands"
)

type topicCmd struct{}

func (*topicCmd) Name() string     { return "topic" }
func (*topicCmd) Synopsis() string { return "show the user manual" }
func (*topicCmd) Usage() string {
	return `ftc topic [<topic>...]

  Shows topics of the user manual. Without a topic, lists them all.
  "ftc topic '*'" shows the whole manual.
`
}

func (c *topicCmd) SetFlags(f *flag.FlagSet) {}

func (c *topicCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	topics := f.Args()
	if len(topics) == 0 {
		topics = []string{"readme"}
	}
	doc, err := docs.Topics(topics...)
	if err != nil {
		fmt.Fprintf(stderr, "Error reading the manual: %v\n", err)
		return subcommands.ExitFailure
	}
	printMarkdown(doc)
	return subcommands.ExitSuccess
}
