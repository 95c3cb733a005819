// Package main is the entry point for the qbmetrics CLI tool, which merges
// quiz bowl .qbj match records with their packets and ranks players by
// category.
package main

import "github.com/pable/go-qb-metrics/cmd"

func main() {
	cmd.Execute()
}
