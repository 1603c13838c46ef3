// Command dphcar mines differentially private high-confidence association
// rules from a corpus of symbol sequences.
//
// Usage example:
//
//	dphcar generate --kind random -n 20 -t 1000 -o corpus.txt
//	dphcar mine corpus.txt --epsilon 1 --rule-length 3 -k 100 --logtostderr
//	dphcar sweep sweep.yaml -o results.csv
package main

import (
	"context"
	"os"
	"os/signal"

	"github.com/dphcar/dphcar/internal/cli"
	log "github.com/golang/glog"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := cli.NewRootCommand().ExecuteContext(ctx); err != nil {
		log.Exitf("dphcar: %v", err)
	}
}
