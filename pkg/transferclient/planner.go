package transferclient

import (
	"iter"

	"github.com/sir_venger/resumable_lite/pkg/transferproto"
)

// Chunk — закрытый диапазон байт [Start, End].
type Chunk struct {
	Start int64
	End   int64
}

func (c Chunk) Size() int64 { return c.End - c.Start + 1 }

// Plan лениво режет [start, total) на смежные чанки не длиннее chunkSize.
// Каждый проход по последовательности начинается заново со start.
func Plan(start, total, chunkSize int64) iter.Seq[Chunk] {
	if chunkSize <= 0 {
		chunkSize = transferproto.DefaultChunkSize
	}
	start = max(start, 0)

	return func(yield func(Chunk) bool) {
		for s := start; s < total; s += chunkSize {
			if !yield(Chunk{Start: s, End: min(s+chunkSize, total) - 1}) {
				return
			}
		}
	}
}
