package pipeserver

import (
	"bqtools/internal/container"
	"bqtools/internal/record"
)

type containerSource struct{ r *container.Reader }

// FromContainer adapts a container reader. Every endpoint iterates its own
// span over the shared reader, which serves concurrent ReadAt calls.
func FromContainer(r *container.Reader) RangeSource { return containerSource{r: r} }

func (c containerSource) Metadata() record.Metadata { return c.r.Metadata() }
func (c containerSource) NumRecords() uint64 { return c.r.NumRecords() }

func (c containerSource) Range(start, end uint64) RangeIter { return c.r.Range(start, end) }
