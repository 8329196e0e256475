package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"speechlens/analysis"
	"speechlens/audio"
	"speechlens/beep"
	"speechlens/config"
	"speechlens/encoder"
	"speechlens/log"
	"speechlens/report"
	"speechlens/workflow"
)

// fakeMic opens captures on a FakeContext and remembers the latest one so the
// driver can wait for the WAV to drain.
type fakeMic struct {
	src *audio.Source

	mu   sync.Mutex
	last *audio.FakeCapture
}

func (f *fakeMic) Acquire(ctx context.Context) (audio.CaptureDevice, error) {
	dev, err := f.src.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	if fc, ok := dev.(*audio.FakeCapture); ok {
		f.mu.Lock()
		f.last = fc
		f.mu.Unlock()
	}
	return dev, nil
}

func (f *fakeMic) audioDone() <-chan struct{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.last == nil {
		return nil
	}
	return f.last.AudioDone()
}

func runTestMode(wavPath string, cfg config.Config, client *analysis.Client) {
	beep.Disable()

	fakeCtx, err := audio.NewFakeContext(wavPath, encoder.SampleRate, true)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading WAV: %v\n", err)
		os.Exit(1)
	}
	mic := &fakeMic{src: &audio.Source{
		Ctx:    fakeCtx,
		Config: audio.CaptureConfig{SampleRate: encoder.SampleRate, Channels: encoder.Channels},
	}}

	sink := newAuditSink(&consoleSink{out: os.Stdout, theme: report.DarkTheme})
	rec := workflow.New(mic, client, sink, workflow.WithFormat(cfg.Format))

	driveTest(context.Background(), os.Stdin, rec, mic)
	log.Info("test_mode_quit")
}

// driveTest reads one command per line:
//
//	START            begin recording
//	STOP             stop and submit in the background
//	WAIT             block until the last submission finished
//	WAIT_AUDIO_DONE  block until the WAV has been fully delivered
//	SLEEP <ms>
//	QUIT
func driveTest(ctx context.Context, in io.Reader, rec *workflow.Recorder, mic *fakeMic) {
	var submissions sync.WaitGroup
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		cmd := strings.TrimSpace(scanner.Text())
		switch {
		case cmd == "START":
			if err := rec.Start(ctx); err != nil {
				log.Warnf("test start: %v", err)
			}
		case cmd == "STOP":
			submissions.Add(1)
			go func() {
				defer submissions.Done()
				if _, err := rec.Stop(ctx); err != nil {
					log.Warnf("test stop: %v", err)
				}
			}()
		case cmd == "WAIT":
			submissions.Wait()
		case cmd == "WAIT_AUDIO_DONE":
			if ch := mic.audioDone(); ch != nil {
				<-ch
			}
		case cmd == "QUIT":
			submissions.Wait()
			return
		case strings.HasPrefix(cmd, "SLEEP "):
			if ms, err := strconv.Atoi(strings.TrimPrefix(cmd, "SLEEP ")); err == nil {
				time.Sleep(time.Duration(ms) * time.Millisecond)
			}
		}
	}
	submissions.Wait()
}
