package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/go-audio/wav"
	"github.com/spf13/cobra"

	"github.com/pulsecheck/pulsecheck/constants"
	"github.com/pulsecheck/pulsecheck/model"
	"github.com/pulsecheck/pulsecheck/pipeline"
	"github.com/pulsecheck/pulsecheck/util"
)

var (
	analyzeGrid      string
	analyzeThreshold float64
)

func init() {
	analyzeCmd.Flags().StringVar(&analyzeGrid, "grid", constants.DefaultGridResolution, "grid resolution (8th or 16th)")
	analyzeCmd.Flags().Float64Var(&analyzeThreshold, "threshold", constants.DefaultTimingThresholdMs, "on-time threshold in ms")
	rootCmd.AddCommand(analyzeCmd)
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze <take.wav>",
	Short: "Scores a recorded take offline",
	Long:  `Scores a recorded take offline and prints the session report as JSON`,
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		analyze(args[0])
	},
}

func analyze(path string) {
	f, err := os.Open(path)
	if err != nil {
		panic("Could not open wav file because: " + err.Error())
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		panic("Could not decode wav file because: " + err.Error())
	}

	samples := toMonoFloats(buf.Data, buf.Format.NumChannels, buf.SourceBitDepth)
	p := pipeline.New(model.SessionConfig{
		GridResolution:    analyzeGrid,
		SampleRate:        buf.Format.SampleRate,
		TimingThresholdMs: analyzeThreshold,
	})

	const chunkSize = 2048
	for i := 0; i < len(samples); i += chunkSize {
		p.ProcessChunk(samples[i:util.Min(i+chunkSize, len(samples))])
	}
	p.Stop()

	out, err := json.MarshalIndent(p.GenerateReport(), "", "  ")
	if err != nil {
		panic("Could not marshal report because: " + err.Error())
	}
	fmt.Println(string(out))
}

// toMonoFloats normalizes integer PCM to [-1, 1], averaging channels
// down to mono.
func toMonoFloats(data []int, numChannels, bitDepth int) []float64 {
	if numChannels < 1 {
		numChannels = 1
	}
	if bitDepth == 0 {
		bitDepth = 16
	}
	scale := float64(int64(1) << (bitDepth - 1))

	samples := make([]float64, 0, len(data)/numChannels)
	for i := 0; i+numChannels <= len(data); i += numChannels {
		var sum float64
		for c := 0; c < numChannels; c++ {
			sum += float64(data[i+c])
		}
		samples = append(samples, sum/float64(numChannels)/scale)
	}
	return samples
}
