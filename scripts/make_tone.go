package main

import (
	"flag"
	"fmt"
	"math"
	"os"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/verbalabs/verba/pkg/audio"
)

func main() {
	out := flag.String("out", "testdata/tone.wav", "")
	freq := flag.Float64("freq", 440, "")
	amp := flag.Float64("amp", 0.3, "")
	rate := flag.Int("rate", audio.CaptureRate, "")
	seconds := flag.Float64("seconds", 2, "")
	flag.Parse()
	if *seconds <= 0 || *freq <= 0 || *rate <= 0 {
		fmt.Println("usage: make_tone -out=tone.wav [-freq=440] [-amp=0.3] [-rate=16000] [-seconds=2]")
		os.Exit(1)
	}

	n := int(*seconds * float64(*rate))
	samples := make([]float32, n)
	for i := range samples {
		samples[i] = float32(*amp * math.Sin(2*math.Pi*(*freq)*float64(i)/float64(*rate)))
	}

	f, err := os.Create(*out)
	if err != nil {
		fmt.Println("create error:", err)
		os.Exit(1)
	}
	enc := wav.NewEncoder(f, *rate, 16, 1, 1)
	data := make([]int, n)
	for i, v := range audio.Float32ToInt16(samples) {
		data[i] = int(v)
	}
	buf := &goaudio.IntBuffer{
		Data:           data,
		Format:         &goaudio.Format{NumChannels: 1, SampleRate: *rate},
		SourceBitDepth: 16,
	}
	if err := enc.Write(buf); err != nil {
		fmt.Println("write error:", err)
		os.Exit(1)
	}
	if err := enc.Close(); err != nil {
		fmt.Println("encode error:", err)
		os.Exit(1)
	}
	if err := f.Close(); err != nil {
		fmt.Println("close error:", err)
		os.Exit(1)
	}
	fmt.Println("wrote:", *out)
}
