package audio

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/hajimehoshi/go-mp3"
	"github.com/jfreymuth/oggvorbis"
)

// ErrUnsupportedFormat is returned by DecodeFile for containers it cannot read.
var ErrUnsupportedFormat = errors.New("audio: unsupported format (supported: wav, mp3, ogg vorbis)")

// DecodeFile reads a WAV, MP3 or Ogg Vorbis file. The format comes from the
// extension, or from the leading magic bytes when the extension is unknown.
func DecodeFile(path string) (*Clip, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("audio: open %s: %w", filepath.Base(path), err)
	}
	defer f.Close()

	format := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	switch format {
	case "wav", "mp3", "ogg", "oga":
	default:
		format, err = sniff(f)
		if err != nil {
			return nil, err
		}
	}

	switch format {
	case "wav":
		return ReadWAV(f)
	case "mp3":
		return decodeMP3(f)
	default:
		return decodeVorbis(f)
	}
}

func sniff(f *os.File) (string, error) {
	magic, _ := bufio.NewReader(f).Peek(4)
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return "", fmt.Errorf("audio: rewind: %w", err)
	}
	switch {
	case bytes.HasPrefix(magic, []byte("RIFF")):
		return "wav", nil
	case bytes.HasPrefix(magic, []byte("OggS")):
		return "ogg", nil
	case bytes.HasPrefix(magic, []byte("ID3")), len(magic) >= 2 && magic[0] == 0xFF && magic[1]&0xE0 == 0xE0:
		return "mp3", nil
	}
	return "", ErrUnsupportedFormat
}

// decodeMP3 reads an MP3 stream; go-mp3 always yields 16-bit stereo.
func decodeMP3(r io.Reader) (*Clip, error) {
	dec, err := mp3.NewDecoder(r)
	if err != nil {
		return nil, fmt.Errorf("audio: mp3: %w", err)
	}
	raw, err := io.ReadAll(dec)
	if err != nil {
		return nil, fmt.Errorf("audio: mp3 decode: %w", err)
	}

	samples := make([]float32, len(raw)/2)
	for i := range samples {
		v := int16(binary.LittleEndian.Uint16(raw[2*i:]))
		samples[i] = float32(v) / 32768
	}
	return &Clip{Samples: samples, SampleRate: dec.SampleRate(), Channels: 2}, nil
}

func decodeVorbis(r io.Reader) (*Clip, error) {
	pcm, format, err := oggvorbis.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("audio: ogg vorbis: %w", err)
	}
	if format == nil || format.Channels <= 0 || format.SampleRate <= 0 {
		return nil, fmt.Errorf("audio: invalid ogg vorbis stream")
	}
	return &Clip{Samples: pcm, SampleRate: format.SampleRate, Channels: format.Channels}, nil
}
