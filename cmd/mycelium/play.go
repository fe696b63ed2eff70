package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/hajimehoshi/oto/v2"
	"github.com/rs/zerolog"
	"github.com/urfave/cli/v3"

	"github.com/mycophonic/mycelium"
	"github.com/mycophonic/mycelium/codec"
	"github.com/mycophonic/mycelium/input"
	"github.com/mycophonic/mycelium/pitch"
	"github.com/mycophonic/mycelium/segments"
)

// batchFrames is the number of sample frames pushed through the
// pipeline per mixer batch.
const batchFrames = 512

var (
	errInvalidArgCount = errors.New("expected exactly one argument: file path")
	errTooManyChannels = errors.New("playback supports mono and stereo only")
)

func playCommand(log *zerolog.Logger) *cli.Command {
	return &cli.Command{
		Name:      "play",
		Usage:     "Decode an audio file, run it through the pipeline and play it",
		ArgsUsage: "<file>",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "YAML pipeline chain description",
			},
			&cli.FloatFlag{
				Name:  "volume",
				Value: 1,
				Usage: "gain multiplier",
			},
			&cli.FloatFlag{
				Name:  "pan",
				Value: 0,
				Usage: "stereo pan in [-1, 1]",
			},
			&cli.FloatFlag{
				Name:  "pitch",
				Value: 1,
				Usage: "pitch ratio (1.0 is unity)",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return runPlay(cmd, log)
		},
	}
}

func runPlay(cmd *cli.Command, log *zerolog.Logger) error {
	if cmd.NArg() != 1 {
		return fmt.Errorf("%w: got %d", errInvalidArgCount, cmd.NArg())
	}

	chain, err := loadChain(cmd)
	if err != nil {
		return err
	}

	path := cmd.Args().First()

	file, err := os.Open(path) //nolint:gosec // CLI tool opens user-specified audio files
	if err != nil {
		return fmt.Errorf("opening %s: %w", path, err)
	}
	defer file.Close()

	stream, err := input.Decode(file)
	if err != nil {
		return fmt.Errorf("decoding %s: %w", path, err)
	}

	log.Info().
		Int("rate", stream.SampleRate).
		Int("channels", stream.Channels).
		Stringer("encoding", stream.Encoding).
		Int("frames", stream.Frames()).
		Msg("decoded")

	rendered, err := render(stream, chain, log)
	if err != nil {
		return err
	}

	return play(rendered, stream)
}

// render drives the decoded stream through source -> effects -> drain
// batch by batch and returns the processed blob.
func render(stream *input.Stream, chain *chainConfig, log *zerolog.Logger) ([]byte, error) {
	if stream.Channels < 1 || stream.Channels > 2 {
		return nil, fmt.Errorf("%w: %d channels", errTooManyChannels, stream.Channels)
	}

	frameBytes, err := mycelium.SampleSize(stream.Encoding)
	if err != nil {
		return nil, err
	}
	frameBytes *= stream.Channels

	inChannel := stream.Channel(nil)
	outChannel := stream.Channel(nil)

	source, err := codec.NewSource(inChannel)
	if err != nil {
		return nil, err
	}

	drain, err := codec.NewDrain(outChannel)
	if err != nil {
		return nil, err
	}

	mixer := mycelium.NewMixer(stream.SampleRate, mycelium.WithLogger(*log))
	if err := mixer.Add(source); err != nil {
		return nil, err
	}

	// Each channel owns a working buffer; effects rewire the chain tail.
	tails := make([]*mycelium.Buffer, stream.Channels)
	for c := range tails {
		tails[c] = mycelium.NewBuffer(batchFrames)
		if err := source.SetBuffer(c, tails[c]); err != nil {
			return nil, err
		}
	}

	if chain.Pitch != 1 {
		for c := range tails {
			shifted := mycelium.NewBuffer(batchFrames)

			shifter, err := pitch.New(float32(chain.Pitch), stream.SampleRate)
			if err != nil {
				return nil, err
			}

			if err := shifter.SetBuffer(0, tails[c]); err != nil {
				return nil, err
			}

			if err := shifter.SetBuffer(1, shifted); err != nil {
				return nil, err
			}

			if err := mixer.Add(shifter); err != nil {
				return nil, err
			}

			tails[c] = shifted
		}
	}

	if chain.Volume != 1 || chain.Pan != 0 {
		general, err := segments.NewGeneral(float32(chain.Volume), float32(chain.Pan))
		if err != nil {
			return nil, err
		}

		// A mono stream feeds both sides of the pair; only the left
		// output joins the chain.
		for c := 0; c < 2; c++ {
			adjusted := mycelium.NewBuffer(batchFrames)

			if err := general.SetBuffer(c, tails[min(c, len(tails)-1)]); err != nil {
				return nil, err
			}

			if err := general.SetBuffer(2+c, adjusted); err != nil {
				return nil, err
			}

			if c < len(tails) {
				tails[c] = adjusted
			}
		}

		if err := mixer.Add(general); err != nil {
			return nil, err
		}
	}

	for c := range tails {
		if err := drain.SetBuffer(c, tails[c]); err != nil {
			return nil, err
		}
	}

	if err := mixer.Add(drain); err != nil {
		return nil, err
	}

	if err := mixer.Start(); err != nil {
		return nil, err
	}

	out := make([]byte, 0, len(stream.Data))
	window := make([]byte, batchFrames*frameBytes)

	for off := 0; off < len(stream.Data); off += len(window) {
		frames := min(len(window), len(stream.Data)-off) / frameBytes
		if frames == 0 {
			break
		}

		n := frames * frameBytes

		inChannel.Data = stream.Data[off : off+n]
		outChannel.Data = window[:n]

		if err := mixer.Mix(frames); err != nil {
			endErr := mixer.End()

			return nil, errors.Join(err, endErr)
		}

		out = append(out, window[:n]...)
	}

	if err := mixer.End(); err != nil {
		return nil, err
	}

	log.Debug().Int("bytes", len(out)).Msg("rendered")

	return out, nil
}

// play pushes the rendered blob to the default output device. Playback
// takes 16-bit samples only; streams in any other encoding (8, 24 or
// 32-bit or float WAV, 24-bit FLAC) are rejected.
func play(rendered []byte, stream *input.Stream) error {
	if stream.Encoding != mycelium.Int16 {
		return fmt.Errorf("%w: device output needs int16, got %s",
			mycelium.ErrUnknownEncoding, stream.Encoding)
	}

	otoCtx, ready, err := oto.NewContext(stream.SampleRate, stream.Channels, 2)
	if err != nil {
		return fmt.Errorf("opening audio device: %w", err)
	}
	<-ready

	player := otoCtx.NewPlayer(bytes.NewReader(rendered))
	defer player.Close()

	player.Play()

	for player.IsPlaying() {
		time.Sleep(10 * time.Millisecond)
	}

	return nil
}

func infoCommand() *cli.Command {
	return &cli.Command{
		Name:      "info",
		Usage:     "Print stream parameters and exit",
		ArgsUsage: "<file>",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if cmd.NArg() != 1 {
				return fmt.Errorf("%w: got %d", errInvalidArgCount, cmd.NArg())
			}

			path := cmd.Args().First()

			file, err := os.Open(path) //nolint:gosec // CLI tool opens user-specified audio files
			if err != nil {
				return fmt.Errorf("opening %s: %w", path, err)
			}
			defer file.Close()

			format, err := input.Identify(file)
			if err != nil {
				return err
			}

			stream, err := input.Decode(file)
			if err != nil {
				return fmt.Errorf("decoding %s: %w", path, err)
			}

			_, _ = fmt.Fprintf(os.Stderr, "format:      %s\n", format)
			_, _ = fmt.Fprintf(os.Stderr, "sample rate: %d Hz\n", stream.SampleRate)
			_, _ = fmt.Fprintf(os.Stderr, "encoding:    %s\n", stream.Encoding)
			_, _ = fmt.Fprintf(os.Stderr, "channels:    %d\n", stream.Channels)
			_, _ = fmt.Fprintf(os.Stderr, "frames:      %d\n", stream.Frames())

			return nil
		},
	}
}
