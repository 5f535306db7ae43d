// Package docs embeds the ftc user manual, one markdown file per topic.
package docs

import (
	"embed"
	"fmt"
	"io/fs"
	"path"
	"slices"
	"strings"
)

//go:embed *.md
var manual embed.FS

// index is the topic listing every other topic.
const index = "readme"

// Topic returns the markdown of a topic. "*" is every topic in order.
func Topic(name string) (string, error) {
	if name == "*" {
		names, err := List()
		if err != nil {
			return "", err
		}
		return Topics(names...)
	}
	content, err := manual.ReadFile(name + ".md")
	if err != nil {
		return "", fmt.Errorf("topic %q not found, see 'ftc topic' for the list: %w", name, err)
	}
	return string(content), nil
}

// Topics concatenates several topics.
func Topics(names ...string) (string, error) {
	var b strings.Builder
	for _, name := range names {
		content, err := Topic(name)
		if err != nil {
			return "", err
		}
		b.WriteString(content)
		b.WriteString("\n")
	}
	return b.String(), nil
}

// List returns the topic names in alphabetical order, the index excluded.
func List() ([]string, error) {
	entries, err := fs.ReadDir(manual, ".")
	if err != nil {
		return nil, err
	}
	var names []string
	for _, e := range entries {
		name := strings.TrimSuffix(e.Name(), path.Ext(e.Name()))
		if e.IsDir() || name == index {
			continue
		}
		names = append(names, name)
	}
	slices.Sort(names)
	return names, nil
}
