// Command distwt-dd builds a wavelet tree (or, with -wm, a wavelet
// matrix) using domain-decomposition construction: each simulated worker
// builds the full node-keyed subtree over its own local text slice, and
// the node->level merge step redistributes the result into level files.
package main

import (
	"github.com/pdinklag/distwt-sub000/internal/cliutil"
	"github.com/pdinklag/distwt-sub000/internal/engine"
)

func main() {
	cliutil.Main(cliutil.App("distwt-dd", "build a wavelet tree/matrix by domain decomposition", engine.DomainDecomp))
}
