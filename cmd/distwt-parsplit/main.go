// Command distwt-parsplit builds a wavelet tree (or, with -wm, a wavelet
// matrix) using parallel-split construction: each level's bit splits both
// the data and the active communicator, recursing into independent
// sub-communicators until each bottoms out in a sequential local build.
package main

import (
	"github.com/pdinklag/distwt-sub000/internal/cliutil"
	"github.com/pdinklag/distwt-sub000/internal/engine"
)

func main() {
	cliutil.Main(cliutil.App("distwt-parsplit", "build a wavelet tree/matrix by parallel split", engine.ParallelSplit))
}
