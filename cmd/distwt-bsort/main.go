// Command distwt-bsort builds a wavelet tree (or, with -wm, a wavelet
// matrix) using bucket-sort / level-concatenate construction: each level's
// bit vector is built in place while the local text is simultaneously
// bucketed and redistributed directly into the next level's fixed-size
// partition slot, folding the merge step into the redistribution itself.
package main

import (
	"github.com/pdinklag/distwt-sub000/internal/cliutil"
	"github.com/pdinklag/distwt-sub000/internal/engine"
)

func main() {
	cliutil.Main(cliutil.App("distwt-bsort", "build a wavelet tree/matrix by bucket sort / level concatenation", engine.BucketSort))
}
