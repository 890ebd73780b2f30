// Copyright 2018, RadiantBlue Technologies, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//   http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package batch

import (
	"context"
	"fmt"
	"time"

	"github.com/venicegeo/bf-atmcorr/scenes"
	"github.com/venicegeo/bf-atmcorr/util"
)

// Messages accepted by Scheduler.RunWhile
const (
	BeginBatchMessage = "begin"
	AbortBatchMessage = "abort"
)

const statusTimeFormat = "Mon Jan _2 15:04:05 2006"

// SourceFactory opens the scenes of one scheduled batch
type SourceFactory func(ctx context.Context) (scenes.Source, error)

// Scheduler runs a batch on a timer or on request
type Scheduler struct {
	Context
	Runner     *Runner
	NewSource  SourceFactory
	statusChan chan chan string
	// lastReport is only touched by the RunWhile goroutine
	lastReport *Report
}

// NewScheduler initializes a scheduler
func NewScheduler(runner *Runner, newSource SourceFactory) *Scheduler {
	return &Scheduler{Runner: runner, NewSource: newSource, statusChan: make(chan chan string, 10)}
}

type batchOutcome struct {
	report Report
	err    error
}

// RunWhile blocks, starting a batch every frequency or whenever
// BeginBatchMessage arrives on messageChan. AbortBatchMessage cancels a
// running batch. The loop exits when messageChan is closed, after any
// running batch has stopped.
func (s *Scheduler) RunWhile(messageChan <-chan string, frequency time.Duration) {
	util.LogInfo(s, fmt.Sprintf("Batch loop started with frequency %v", frequency))

	scheduleTimer := time.NewTimer(frequency)
	defer scheduleTimer.Stop()
	nextScheduledStartTime := time.Now().Add(frequency)

	var (
		done    chan batchOutcome
		cancel  context.CancelFunc
		started time.Time
	)
	startBatch := func() {
		if done != nil {
			util.LogInfo(s, "A batch is already running")
			return
		}
		var ctx context.Context
		ctx, cancel = context.WithCancel(context.Background())
		done = make(chan batchOutcome, 1)
		started = time.Now()
		go func(ctx context.Context, done chan<- batchOutcome) {
			source, err := s.NewSource(ctx)
			if err != nil {
				done <- batchOutcome{err: err}
				return
			}
			done <- batchOutcome{report: s.Runner.Run(ctx, source)}
		}(ctx, done)
	}

	for {
		select {
		case <-scheduleTimer.C:
			util.LogInfo(s, "Maximum time between batches elapsed.")
			startBatch()
			scheduleTimer.Reset(frequency)
			nextScheduledStartTime = time.Now().Add(frequency)
		case msg, ok := <-messageChan:
			if !ok {
				if done != nil {
					cancel()
					<-done
				}
				return
			}
			switch msg {
			case BeginBatchMessage:
				util.LogInfo(s, "User requested batch start.")
				startBatch()
			case AbortBatchMessage:
				if done != nil {
					util.LogInfo(s, "User requested batch cancel.")
					cancel()
				}
			}
		case outcome := <-done:
			cancel()
			done, cancel = nil, nil
			if outcome.err != nil {
				util.LogSimpleErr(s, "Could not open scenes for batch: ", outcome.err)
				outcome.report = Report{Started: started, Finished: time.Now(), SourceError: outcome.err}
			}
			s.lastReport = &outcome.report
		case respChan := <-s.statusChan:
			state := fmt.Sprintf("Sleeping until %v", nextScheduledStartTime.Format(statusTimeFormat))
			if done != nil {
				state = fmt.Sprintf("Running since %v", started.Format(statusTimeFormat))
			}
			previous := "\tNone"
			if s.lastReport != nil {
				previous = s.lastReport.String()
			}
			select {
			case respChan <- fmt.Sprintf("%v\nStatus: %s\nPrevious batch:\n%v", time.Now().Format(statusTimeFormat), state, previous):
			default:
			}
		}
	}
}

// GetStatus is a thread safe way to get information about the batch loop.
func (s *Scheduler) GetStatus() string {
	responseChan := make(chan string, 1)
	s.statusChan <- responseChan
	return <-responseChan
}
