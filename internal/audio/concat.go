// Package audio stitches provider WAV segments into one track.
package audio

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"go.uber.org/zap"

	"github.com/RAWENTERISLIVE/music-ai/domain/entities"
)

const (
	// HeaderSize is the length of a canonical PCM WAV header
	HeaderSize = 44

	riffSizeOffset = 4
	dataSizeOffset = 40
)

// Concatenator joins WAV segments by keeping the first header and appending
// every data chunk. All segments are assumed to share one format.
type Concatenator struct {
	logger *zap.Logger
}

// NewConcatenator creates a new concatenator
func NewConcatenator(logger *zap.Logger) *Concatenator {
	return &Concatenator{logger: logger}
}

// Concatenate never fails. A single segment is returned as is; if stitching
// fails the first segment is returned alone and the result is marked degraded.
func (c *Concatenator) Concatenate(segments []entities.AudioSegment) entities.ConcatenatedAudio {
	if len(segments) == 0 {
		return entities.ConcatenatedAudio{}
	}

	if len(segments) == 1 {
		data := segments[0].Data
		return entities.ConcatenatedAudio{
			Data:         data,
			TotalSize:    len(data),
			SegmentCount: 1,
		}
	}

	data, err := join(segments)
	if err != nil {
		c.logger.Warn("Audio concatenation failed, using first segment only",
			zap.Int("segments", len(segments)),
			zap.Error(err))

		first := segments[0].Data
		return entities.ConcatenatedAudio{
			Data:         first,
			TotalSize:    len(first),
			SegmentCount: 1,
			Degraded:     true,
		}
	}

	c.logger.Debug("Audio segments concatenated",
		zap.Int("segments", len(segments)),
		zap.Int("total_size", len(data)))

	return entities.ConcatenatedAudio{
		Data:         data,
		TotalSize:    len(data),
		SegmentCount: len(segments),
	}
}

func join(segments []entities.AudioSegment) ([]byte, error) {
	dataLen := 0
	for i, seg := range segments {
		if len(seg.Data) < HeaderSize {
			return nil, fmt.Errorf("segment %d is %d bytes, shorter than a WAV header", i, len(seg.Data))
		}
		dataLen += len(seg.Data) - HeaderSize
	}

	if uint64(dataLen)+HeaderSize-8 > math.MaxUint32 {
		return nil, errors.New("concatenated audio exceeds the WAV size limit")
	}

	out := make([]byte, HeaderSize, HeaderSize+dataLen)
	copy(out, segments[0].Data[:HeaderSize])
	for _, seg := range segments {
		out = append(out, seg.Data[HeaderSize:]...)
	}

	binary.LittleEndian.PutUint32(out[riffSizeOffset:], uint32(HeaderSize+dataLen-8))
	binary.LittleEndian.PutUint32(out[dataSizeOffset:], uint32(dataLen))

	return out, nil
}
