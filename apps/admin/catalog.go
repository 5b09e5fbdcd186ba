package main

import (
	"fmt"
	"strings"
)

// catalog prints the authored engine/skin catalog, optionally filtered to
// skins compatible with one engine.
func (cli *commandLine) catalog(engineID string) error {
	if engineID != "" {
		eng, err := cli.registry.Engine(strings.ToUpper(engineID))
		if err != nil {
			return err
		}
		fmt.Fprintf(cli.out, "%s  %s (%s)\n", eng.ID, eng.Name, eng.Interaction)
		for _, skin := range cli.registry.SkinsFor(eng.ID) {
			fmt.Fprintf(cli.out, "  %-10s  %s\n", skin.Theme, skin.Name)
		}
		return nil
	}

	fmt.Fprintln(cli.out, "Engines:")
	for _, eng := range cli.registry.Engines() {
		fmt.Fprintf(cli.out, "  %s  %-25s %-10s skins: %s\n",
			eng.ID, eng.Name, eng.Interaction, strings.Join(eng.CompatibleSkinThemes, ", "))
	}
	fmt.Fprintln(cli.out, "Skins:")
	for _, skin := range cli.registry.Skins() {
		fmt.Fprintf(cli.out, "  %-10s %-20s engines: %s\n",
			skin.Theme, skin.Name, strings.Join(skin.ApplicableEngines, ", "))
	}
	return nil
}
