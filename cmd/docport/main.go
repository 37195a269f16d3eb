/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package main

import (
	"github.com/ssargent/docport/cmd/docport/cmd"
	"github.com/ssargent/docport/pkg/di"
)

func main() {
	container := di.NewContainer()
	cmd.SetContainer(container)
	cmd.Execute()
}
