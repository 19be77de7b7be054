// Package cluster is the thin substrate adapter (spec component C1): ranks,
// tagged point-to-point send/recv/isend, probe, barrier, all-reduce,
// ex-scan/scan, and communicator subgroups, plus per-process traffic and
// allocation instrumentation.
//
// There is no real MPI binding available to a Go program without cgo, so
// the substrate is realized as an in-process simulation: one goroutine per
// rank, a full mesh of gob-encoded pipes between every ordered pair of
// ranks, exactly the shape the teacher already uses to simulate a network
// of consensus nodes in a single process (see go/tlc/minnet/node.go's
// io.Pipe + bufio + encoding/gob peer links). Collectives are layered on
// top of plain point-to-point Send/Recv via a gather-to-comm-master,
// reduce-or-scan, broadcast-back pattern; only the *traffic accounting*
// for collectives additionally follows the butterfly reduction-broadcast
// tree model from spec.md §4.1, which is an observability decision and not
// a correctness requirement.
package cluster

import (
	"bufio"
	"encoding/gob"
	"fmt"
	"io"
	"math/bits"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Op is a reduction operator for AllReduce.
type Op int

const (
	Sum Op = iota
	Max
)

// Traffic accumulates this process's message-passing byte counts, split
// by whether the peer is modeled as being on the same simulated node
// (...Shm) or not, and by whether the bytes are real (Tx/Rx) or part of
// the simulated collective traffic model (TxEst/RxEst).
type Traffic struct {
	Tx, Rx       uint64
	TxShm, RxShm uint64
	TxEst, RxEst uint64
}

// reserved tags for internally-implemented collectives. Application code
// (levels, node ids, sort phases) always uses non-negative tags, so these
// never collide with it.
const (
	tagBarrier = -1 - iota
	tagAllReduce
	tagScan
	tagExScan
	tagScanScatter
	tagExScanScatter
)

type frame struct {
	Tag  int
	From int
	Data []byte
}

// link is the live connection from one rank to one peer rank.
type link struct {
	enc *gob.Encoder
	mu  sync.Mutex // serializes concurrent sends over one pipe
}

// fabric is the shared, process-wide state every rank's Cluster refers to:
// the full mesh of links and each rank's inbound message queues.
type fabric struct {
	size int

	out [][]*link // out[i][j]: link rank i uses to send to rank j

	mu      sync.Mutex
	cond    *sync.Cond
	inbox   []map[int][]frame // inbox[rank][tag] = FIFO queue of frames
	wpn     int               // workers per simulated node
}

// Comm names a subset of global ranks that currently recurse together; the
// position of a global rank within members is its local rank in this
// communicator.
type Comm struct {
	members []int
}

// WorldComm returns the communicator containing every rank 0..size-1.
func WorldComm(size int) Comm {
	m := make([]int, size)
	for i := range m {
		m[i] = i
	}
	return Comm{members: m}
}

// Subgroup returns the communicator over an explicit, already-sorted set
// of global ranks.
func Subgroup(globalRanks []int) Comm {
	m := append([]int(nil), globalRanks...)
	sort.Ints(m)
	return Comm{members: m}
}

func (c Comm) Size() int { return len(c.members) }

func (c Comm) localRank(globalRank int) int {
	for i, g := range c.members {
		if g == globalRank {
			return i
		}
	}
	return -1
}

// Cluster is one rank's view of the substrate: its identity, the active
// communicator, and its local traffic/allocation counters.
type Cluster struct {
	fab        *fabric
	globalRank int

	comm      Comm
	commStack []Comm

	traffic Traffic

	allocMu      sync.Mutex
	allocCurrent uint64
	allocMax     uint64

	// Outbox pins buffers used by outstanding ISends until the next
	// Barrier retires them, mirroring the teacher's manual new[]/delete[]
	// discipline (spec.md §9 "manual buffer lifetimes"). Go's GC makes
	// this unnecessary for memory safety, but keeping the discipline keeps
	// peak-allocation accounting meaningful and keeps the code legible to
	// a reader coming from the C++ original.
	outboxMu sync.Mutex
	outbox   [][]byte
}

// Launch starts size ranks, each running fn with its own *Cluster, and
// waits for all of them to return. wpn is the number of simulated workers
// sharing one simulated physical node (used only for Tx/Rx vs TxShm/RxShm
// accounting); pass size to model a single machine, or 1 to model every
// rank on its own node.
func Launch(size, wpn int, fn func(c *Cluster) error) error {
	if size < 1 {
		return fmt.Errorf("cluster: size must be >= 1, got %d", size)
	}
	if wpn <= 0 {
		wpn = size
	}

	fab := &fabric{size: size, wpn: wpn}
	fab.cond = sync.NewCond(&fab.mu)
	fab.inbox = make([]map[int][]frame, size)
	for i := range fab.inbox {
		fab.inbox[i] = make(map[int][]frame)
	}

	fab.out = make([][]*link, size)
	// One pipe per ordered (sender, receiver) pair; a dedicated goroutine
	// drains each pipe's read end into the receiver's inbox, the same
	// shape as the teacher's per-peer io.Pipe + gob.Decoder loop. These
	// drain loops run for the lifetime of the fabric and are never
	// individually joined, so they're plain goroutines rather than tracked
	// by the errgroup below.
	for i := 0; i < size; i++ {
		fab.out[i] = make([]*link, size)
		for j := 0; j < size; j++ {
			if i == j {
				continue
			}
			pr, pw := io.Pipe()
			bw := bufio.NewWriter(pw)
			fab.out[i][j] = &link{enc: gob.NewEncoder(bw)}
			// the writer must flush after every frame; wrap so Encode
			// calls are always followed by a Flush under the link's lock.
			fab.out[i][j].enc = gob.NewEncoder(&flushWriter{bw: bw, pw: pw})

			dec := gob.NewDecoder(bufio.NewReader(pr))
			recvFrom, deliverTo := i, j
			go func() {
				for {
					var f frame
					if err := dec.Decode(&f); err != nil {
						return
					}
					f.From = recvFrom
					fab.mu.Lock()
					fab.inbox[deliverTo][f.Tag] = append(fab.inbox[deliverTo][f.Tag], f)
					fab.cond.Broadcast()
					fab.mu.Unlock()
				}
			}()
		}
	}

	// One errgroup member per simulated worker: the first rank to fail
	// (a substrate error or an application panic) determines the whole
	// job's outcome, matching "any substrate error is fatal" (spec.md
	// §4.1/§7) more directly than a WaitGroup plus a shared error slice.
	var g errgroup.Group
	for r := 0; r < size; r++ {
		r := r
		g.Go(func() (err error) {
			c := &Cluster{fab: fab, globalRank: r, comm: WorldComm(size)}
			defer func() {
				if p := recover(); p != nil {
					err = fmt.Errorf("rank %d: fatal: %v", r, p)
				}
			}()
			return fn(c)
		})
	}
	return g.Wait()
}

type flushWriter struct {
	bw *bufio.Writer
	pw *io.PipeWriter
}

func (w *flushWriter) Write(p []byte) (int, error) {
	n, err := w.bw.Write(p)
	if err != nil {
		return n, err
	}
	return n, w.bw.Flush()
}

// Rank returns this process's local rank within the active communicator.
func (c *Cluster) Rank() int { return c.comm.localRank(c.globalRank) }

// GlobalRank returns the rank within the world communicator, unaffected
// by SetComm/Subgroup.
func (c *Cluster) GlobalRank() int { return c.globalRank }

// Size returns the number of workers in the active communicator.
func (c *Cluster) Size() int { return c.comm.Size() }

// WorkersPerNode reports how many simulated workers share one simulated
// node, used purely for traffic instrumentation.
func (c *Cluster) WorkersPerNode() int { return c.fab.wpn }

func (c *Cluster) sameNode(globalPeer int) bool {
	wpn := c.fab.wpn
	return c.globalRank/wpn == globalPeer/wpn
}

// SetComm swaps the active communicator, pushing the previous one onto an
// internal stack so a later call to Restore can bring it back. This
// mirrors the "communicator save/restore forming a stack" state machine
// from spec.md §4.12.
func (c *Cluster) SetComm(comm Comm) {
	c.commStack = append(c.commStack, c.comm)
	c.comm = comm
}

// Restore pops the communicator pushed by the matching SetComm.
func (c *Cluster) Restore() {
	n := len(c.commStack)
	c.commStack, c.comm = c.commStack[:n-1], c.commStack[n-1]
}

// Traffic returns a copy of this rank's accumulated traffic counters.
func (c *Cluster) Traffic() Traffic { return c.traffic }

// TrackAlloc/TrackFree feed the optional process-local allocation
// tracker described in spec.md §9. The construction packages do not call
// them, so AllocMax stays 0 unless a caller feeds the tracker itself.
func (c *Cluster) TrackAlloc(n uint64) {
	c.allocMu.Lock()
	c.allocCurrent += n
	if c.allocCurrent > c.allocMax {
		c.allocMax = c.allocCurrent
	}
	c.allocMu.Unlock()
}

func (c *Cluster) TrackFree(n uint64) {
	c.allocMu.Lock()
	c.allocCurrent -= n
	c.allocMu.Unlock()
}

func (c *Cluster) AllocMax() uint64 {
	c.allocMu.Lock()
	defer c.allocMu.Unlock()
	return c.allocMax
}

// Pin retains buf in the outbox until the next Barrier, modeling the
// "isend buffer owned by sender until a barrier confirms receipt"
// contract from spec.md §4.1.
func (c *Cluster) Pin(buf []byte) {
	c.outboxMu.Lock()
	c.outbox = append(c.outbox, buf)
	c.outboxMu.Unlock()
}

func (c *Cluster) retireOutbox() {
	c.outboxMu.Lock()
	c.outbox = nil
	c.outboxMu.Unlock()
}

func (c *Cluster) globalPeer(localPeer int) int {
	return c.comm.members[localPeer]
}

// SubRange builds the communicator covering local ranks [lo, hi) of the
// active communicator, for use with SetComm when a construction strategy
// recurses into a worker-range split (spec.md §4.12's parallel-split
// recursion).
func (c *Cluster) SubRange(lo, hi int) Comm {
	ranks := make([]int, 0, hi-lo)
	for i := lo; i < hi; i++ {
		ranks = append(ranks, c.globalPeer(i))
	}
	return Subgroup(ranks)
}

func (c *Cluster) countTx(globalPeer int, n int) {
	if c.sameNode(globalPeer) {
		c.traffic.TxShm += uint64(n)
	} else {
		c.traffic.Tx += uint64(n)
	}
}

func (c *Cluster) countRx(globalPeer int, n int) {
	if c.sameNode(globalPeer) {
		c.traffic.RxShm += uint64(n)
	} else {
		c.traffic.Rx += uint64(n)
	}
}

func (c *Cluster) sendRaw(data []byte, localTarget, tag int) {
	gp := c.globalPeer(localTarget)
	if gp == c.globalRank {
		// No loopback pipe is wired into the fabric (the full mesh only
		// links distinct ranks), but redistribution code routinely
		// computes a target equal to its own rank when data happens not
		// to move. MPI permits self-sends, so a self-send here enqueues
		// the frame directly into this rank's own inbox instead.
		fab := c.fab
		fab.mu.Lock()
		fab.inbox[gp][tag] = append(fab.inbox[gp][tag], frame{Tag: tag, From: gp, Data: data})
		fab.cond.Broadcast()
		fab.mu.Unlock()
		c.countTx(gp, len(data))
		return
	}
	l := c.fab.out[c.globalRank][gp]
	l.mu.Lock()
	err := l.enc.Encode(frame{Tag: tag, Data: data})
	l.mu.Unlock()
	if err != nil {
		panic(fmt.Sprintf("cluster: send to %d failed: %v", gp, err))
	}
	c.countTx(gp, len(data))
}

// popFrame removes and returns the oldest queued frame from source (or
// ANY source when source < 0) matching tag, blocking until one arrives.
func (c *Cluster) popFrame(localSource, tag int) frame {
	fab := c.fab
	fab.mu.Lock()
	defer fab.mu.Unlock()
	for {
		if localSource >= 0 {
			gp := c.globalPeer(localSource)
			q := fab.inbox[c.globalRank][tag]
			if len(q) > 0 && firstFrom(q, gp) >= 0 {
				idx := firstFrom(q, gp)
				f := q[idx]
				fab.inbox[c.globalRank][tag] = append(q[:idx], q[idx+1:]...)
				c.countRx(f.From, len(f.Data))
				return f
			}
		} else {
			q := fab.inbox[c.globalRank][tag]
			for idx, f := range q {
				if c.comm.localRank(f.From) >= 0 {
					fab.inbox[c.globalRank][tag] = append(q[:idx], q[idx+1:]...)
					c.countRx(f.From, len(f.Data))
					return f
				}
			}
		}
		fab.cond.Wait()
	}
}

func firstFrom(q []frame, globalFrom int) int {
	for i, f := range q {
		if f.From == globalFrom {
			return i
		}
	}
	return -1
}

// AnySource requests Probe/Recv from whichever peer sends first.
const AnySource = -1

// ProbeResult is the outcome of a blocking Probe: the byte size of the
// queued payload and the local rank of whoever sent it.
type ProbeResult struct {
	Size   int
	Sender int
}

// Probe blocks until a message tagged tag is available from source (or
// AnySource), without consuming it.
func (c *Cluster) Probe(source, tag int) ProbeResult {
	fab := c.fab
	fab.mu.Lock()
	defer fab.mu.Unlock()
	for {
		q := fab.inbox[c.globalRank][tag]
		if source >= 0 {
			gp := c.globalPeer(source)
			if idx := firstFrom(q, gp); idx >= 0 {
				return ProbeResult{Size: len(q[idx].Data), Sender: source}
			}
		} else {
			for _, f := range q {
				if lr := c.comm.localRank(f.From); lr >= 0 {
					return ProbeResult{Size: len(f.Data), Sender: lr}
				}
			}
		}
		fab.cond.Wait()
	}
}

// Barrier blocks every member of the active communicator until all have
// called Barrier, then retires each rank's outstanding-isend outbox.
func (c *Cluster) Barrier() {
	c.gatherToMaster(tagBarrier, []byte{0})
	c.broadcastFromMaster(tagBarrier, []byte{0})
	c.retireOutbox()
}

func (c *Cluster) gatherToMaster(tag int, local []byte) [][]byte {
	if c.Rank() == 0 {
		out := make([][]byte, c.Size())
		out[0] = local
		for i := 1; i < c.Size(); i++ {
			f := c.popFrame(i, tag)
			out[i] = f.Data
		}
		return out
	}
	c.sendRaw(local, 0, tag)
	return nil
}

func (c *Cluster) broadcastFromMaster(tag int, data []byte) []byte {
	if c.Rank() == 0 {
		for i := 1; i < c.Size(); i++ {
			c.sendRaw(data, i, tag)
		}
		return data
	}
	return c.popFrame(0, tag).Data
}

// accountButterfly models the log2(P) reduction-broadcast tree used purely
// to *estimate* collective traffic, per spec.md §4.1/§9; it does not
// affect the actual collective algorithm above.
func (c *Cluster) accountButterfly(msgSize int) {
	p := c.Size()
	r := c.Rank()
	if p <= 1 {
		return
	}
	logp := bits.Len(uint(p - 1))
	for level := 0; level < logp; level++ {
		q := 1 << level
		v := r / q
		if v%2 == 0 {
			if level+1 < logp && r+q < p {
				c.countTx(c.globalPeer(r+q), msgSize)
				c.countRx(c.globalPeer(r+q), msgSize)
			}
		}
		if level > 0 {
			qPrev := 1 << (level - 1)
			if r-qPrev >= 0 {
				c.countRx(c.globalPeer(r-qPrev), msgSize)
				c.countTx(c.globalPeer(r-qPrev), msgSize)
			}
		}
	}
	c.traffic.TxEst += uint64(logp * msgSize)
	c.traffic.RxEst += uint64(logp * msgSize)
}
