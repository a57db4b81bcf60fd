package audio

import (
	"encoding/binary"
	"fmt"
	"io"
	"time"

	"github.com/hajimehoshi/oto"
)

const (
	channelNum      = 1
	bitDepthInBytes = 2
	bytesPerSample  = bitDepthInBytes * channelNum
)

// Line is where the emission loop writes interleaved 16-bit little-endian frames.
type Line interface {
	io.WriteCloser
	// Available returns the free space of the device buffer in bytes.
	Available() int
	// Size returns the device buffer size in bytes.
	Size() int
}

// ----- Oto ----- //

// OtoLine plays through the default audio device.
type OtoLine struct {
	context    *oto.Context
	player     *oto.Player
	sampleRate int
	size       int
	written    int64
	start      time.Time
}

var _ Line = (*OtoLine)(nil)

// NewOtoLine opens the device. Failing here is fatal for the caller.
func NewOtoLine(sampleRate, bufferSizeInBytes int) (*OtoLine, error) {
	context, err := oto.NewContext(sampleRate, channelNum, bitDepthInBytes, bufferSizeInBytes)
	if err != nil {
		return nil, fmt.Errorf("failed to open audio line: %w", err)
	}
	return &OtoLine{
		context:    context,
		player:     context.NewPlayer(),
		sampleRate: sampleRate,
		size:       bufferSizeInBytes,
	}, nil
}

// Write blocks while the device buffer is full.
func (l *OtoLine) Write(buf []byte) (int, error) {
	if l.start.IsZero() {
		l.start = time.Now()
	}
	n, err := l.player.Write(buf)
	l.written += int64(n)
	return n, err
}

// Available estimates the free space from the bytes written and the time elapsed.
func (l *OtoLine) Available() int {
	if l.start.IsZero() {
		return l.size
	}
	played := int64(time.Since(l.start).Seconds()*float64(l.sampleRate)) * bytesPerSample
	queued := l.written - played
	if queued < 0 {
		// underrun: the device played silence, restart the estimate
		l.start = time.Now().Add(-time.Duration(float64(l.written/bytesPerSample) / float64(l.sampleRate) * float64(time.Second)))
		queued = 0
	}
	free := l.size - int(queued)
	if free < 0 {
		return 0
	}
	return free
}

// Size returns the device buffer size in bytes.
func (l *OtoLine) Size() int { return l.size }

// Close closes the player and the device.
func (l *OtoLine) Close() error {
	if err := l.player.Close(); err != nil {
		return err
	}
	return l.context.Close()
}

// ----- Buffer ----- //

// BufferLine collects frames in memory. It never blocks and reports a full device
// buffer unless Starved is set.
type BufferLine struct {
	Frames  []int16
	Starved bool
	size    int
}

var _ Line = (*BufferLine)(nil)

// NewBufferLine returns an empty line pretending to have size bytes of buffer.
func NewBufferLine(size int) *BufferLine {
	return &BufferLine{size: size}
}

func (l *BufferLine) Write(buf []byte) (int, error) {
	for i := 0; i+1 < len(buf); i += bytesPerSample {
		l.Frames = append(l.Frames, int16(binary.LittleEndian.Uint16(buf[i:])))
	}
	return len(buf), nil
}

func (l *BufferLine) Available() int {
	if l.Starved {
		return l.size
	}
	return 0
}

func (l *BufferLine) Size() int { return l.size }

func (l *BufferLine) Close() error { return nil }
