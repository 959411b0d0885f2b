package main

import (
	cmd "github.com/getzep/graphrag/cmd/graphrag"
	"github.com/getzep/graphrag/internal"
)

var log = internal.GetLogger()

func main() {
	log.Debug("Starting graphrag")
	cmd.Execute()
}
