package cluster

import (
	"bytes"
	"encoding/gob"
	"fmt"
)

// Numeric lists the payload element types the construction engine ever
// ships over the wire: symbol codes and the various index/count widths
// used by histograms, offsets, and packed bit words.
type Numeric interface {
	~uint8 | ~uint16 | ~uint32 | ~uint64 | ~int
}

func marshal[T any](v []T) []byte {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(v); err != nil {
		panic(fmt.Sprintf("cluster: encode failed: %v", err))
	}
	return buf.Bytes()
}

func unmarshal[T any](data []byte) []T {
	var v []T
	if len(data) == 0 {
		return nil
	}
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&v); err != nil {
		panic(fmt.Sprintf("cluster: decode failed: %v", err))
	}
	return v
}

// Send blocks until buf has been handed to the substrate for delivery to
// target (a rank local to the active communicator), tagged tag.
func Send[T Numeric](c *Cluster, buf []T, target, tag int) {
	c.sendRaw(marshal(buf), target, tag)
}

// SendItems is Send without the Numeric restriction, for components (like
// the distributed sort) that ship arbitrary record types rather than bare
// index/count/bit words.
func SendItems[T any](c *Cluster, buf []T, target, tag int) {
	c.sendRaw(marshal(buf), target, tag)
}

// RecvItems is Recv without the Numeric restriction.
func RecvItems[T any](c *Cluster, count, source, tag int) []T {
	f := c.popFrame(source, tag)
	v := unmarshal[T](f.Data)
	if len(v) != count {
		panic(fmt.Sprintf("cluster: recv expected %d elements, got %d", count, len(v)))
	}
	return v
}

// ProbeItems behaves like Probe but is exposed for call sites already
// dealing in non-Numeric item types, for symmetry with SendItems/RecvItems.
func ProbeItems(c *Cluster, source, tag int) ProbeResult {
	return c.Probe(source, tag)
}

// Recv blocks until a count-element message tagged tag arrives from
// source, and returns it.
func Recv[T Numeric](c *Cluster, count, source, tag int) []T {
	f := c.popFrame(source, tag)
	v := unmarshal[T](f.Data)
	if len(v) != count {
		panic(fmt.Sprintf("cluster: recv expected %d elements, got %d", count, len(v)))
	}
	return v
}

// RecvAny behaves like Recv but accepts a message from any source,
// returning the sender's local rank alongside the payload.
func RecvAny[T Numeric](c *Cluster, tag int) (data []T, sender int) {
	f := c.popFrame(AnySource, tag)
	return unmarshal[T](f.Data), c.comm.localRank(f.From)
}

// ISend hands buf to the substrate without blocking for acknowledgement;
// the encoded bytes are pinned in the Cluster's outbox until the next
// Barrier, per the "buffer owned by sender until barrier" contract.
func ISend[T Numeric](c *Cluster, buf []T, target, tag int) {
	data := marshal(buf)
	c.Pin(data)
	c.sendRaw(data, target, tag)
}

// Probe is the generic-free blocking probe exposed directly on Cluster;
// it is repeated here only so call sites that already have a type
// parameter in scope can write cluster.Probe[uint64](c, ...) uniformly.
func Probe[T Numeric](c *Cluster, source, tag int) ProbeResult {
	return c.Probe(source, tag)
}

func reduce[T Numeric](op Op, a, b T) T {
	switch op {
	case Max:
		if b > a {
			return b
		}
		return a
	default: // Sum
		return a + b
	}
}

// AllReduce combines v element-wise across every member of the active
// communicator using op, and returns the combined vector to all members.
// Traffic is additionally charged the butterfly-tree cost model from
// spec.md §4.1, independent of the star-topology gather/broadcast used to
// actually compute the result.
func AllReduce[T Numeric](c *Cluster, v []T, op Op) []T {
	gathered := c.gatherToMaster(tagAllReduce, marshal(v))
	var out []byte
	if c.Rank() == 0 {
		acc := append([]T(nil), v...)
		for i := 1; i < c.Size(); i++ {
			other := unmarshal[T](gathered[i])
			for j := range acc {
				acc[j] = reduce(op, acc[j], other[j])
			}
		}
		out = marshal(acc)
	}
	out = c.broadcastFromMaster(tagAllReduce, out)
	c.accountButterfly(len(v)*sizeofHint[T]() + 8)
	return unmarshal[T](out)
}

// ExScan computes, per element, the exclusive prefix combination of v
// across ranks 0..Rank()-1, excluding this rank's own value (MPI_Exscan
// semantics). MPI leaves rank 0's result undefined; here rank 0 receives
// the zero vector.
func ExScan[T Numeric](c *Cluster, v []T, op Op) []T {
	return scanImpl(c, v, op, false)
}

// Scan computes the inclusive prefix combination of v across ranks
// 0..Rank() (matches MPI_Scan semantics).
func Scan[T Numeric](c *Cluster, v []T, op Op) []T {
	return scanImpl(c, v, op, true)
}

func scanImpl[T Numeric](c *Cluster, v []T, op Op, inclusive bool) []T {
	tag := tagExScan
	if inclusive {
		tag = tagScan
	}
	gathered := c.gatherToMaster(tag, marshal(v))
	var outAll [][]byte
	if c.Rank() == 0 {
		n := c.Size()
		width := len(v)
		prefix := make([][]T, n)
		running := make([]T, width)
		for i := 0; i < n; i++ {
			var cur []T
			if i == 0 {
				cur = v
			} else {
				cur = unmarshal[T](gathered[i])
			}
			before := append([]T(nil), running...)
			for j := range running {
				running[j] = reduce(op, running[j], cur[j])
			}
			if inclusive {
				prefix[i] = append([]T(nil), running...)
			} else {
				prefix[i] = before
			}
		}
		outAll = make([][]byte, n)
		for i := range prefix {
			outAll[i] = marshal(prefix[i])
		}
	}
	scatterTag := tagExScanScatter
	if inclusive {
		scatterTag = tagScanScatter
	}
	mine := scatterFromMaster(c, scatterTag, outAll)
	c.accountButterfly(len(v)*sizeofHint[T]() + 8)
	return unmarshal[T](mine)
}

// scatterFromMaster hands rank i's own slice from values (computed only
// on the master) back to rank i, for every i, including the master.
func scatterFromMaster(c *Cluster, tag int, values [][]byte) []byte {
	if c.Rank() == 0 {
		for i := 1; i < c.Size(); i++ {
			c.sendRaw(values[i], i, tag)
		}
		return values[0]
	}
	return c.popFrame(0, tag).Data
}

func sizeofHint[T Numeric]() int {
	var zero T
	switch any(zero).(type) {
	case uint8:
		return 1
	case uint16:
		return 2
	case uint32:
		return 4
	default:
		return 8
	}
}
