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

// Package batch corrects a stream of scenes on a bounded worker pool.
//
// A scene failure is recorded and logged but never stops other scenes.
package batch

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/venicegeo/bf-atmcorr/dsf"
	"github.com/venicegeo/bf-atmcorr/model"
	"github.com/venicegeo/bf-atmcorr/scenes"
	"github.com/venicegeo/bf-atmcorr/util"
)

var (
	sceneDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "atmcorr_scene_duration_seconds",
		Help:    "Duration of scene corrections.",
		Buckets: prometheus.ExponentialBuckets(1, 2, 10),
	}, []string{"status"})
	scenesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "atmcorr_scenes_total",
		Help: "Number of corrected or failed scenes.",
	}, []string{"status"})
	modelSelections = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "atmcorr_model_selections_total",
		Help: "Number of scenes corrected with each aerosol model.",
	}, []string{"model"})
)

// Corrector corrects one scene
type Corrector interface {
	CorrectScene(ctx context.Context, scene *model.Scene) (*dsf.Result, error)
}

// Recorder persists the outcome of a scene
type Recorder func(ctx util.LogContext, result model.CorrectionResult) error

// Context is the logging context of a batch
type Context struct {
	sessionID string
	once      sync.Once
}

// AppName returns the application name
func (c *Context) AppName() string {
	return util.AppName
}

// SessionID returns a Session ID, creating it once
func (c *Context) SessionID() string {
	c.once.Do(func() {
		if c.sessionID == "" {
			c.sessionID, _ = util.PsuUUID()
		}
	})
	return c.sessionID
}

// LogRootDir returns an empty string
func (c *Context) LogRootDir() string {
	return ""
}

// Runner corrects every scene of a source
type Runner struct {
	Corrector Corrector
	// Writer is optional; nil skips writing outputs
	Writer *Writer
	// Record is optional; nil skips persisting outcomes
	Record       Recorder
	Workers      int
	SceneTimeout time.Duration
	// ReportErrors sends scene failures to Sentry
	ReportErrors bool
}

// SceneReport is the outcome of one scene
type SceneReport struct {
	SceneID  string
	Status   string
	Model    string
	AOT      float64
	Message  string
	Duration time.Duration
}

// Report is the outcome of a batch
type Report struct {
	Started  time.Time
	Finished time.Time
	Scenes   []SceneReport
	// SourceError is set when the source failed before reaching its end
	SourceError error
}

// Count returns the number of scenes with the given status
func (r Report) Count(status string) int {
	n := 0
	for _, scene := range r.Scenes {
		if scene.Status == status {
			n++
		}
	}
	return n
}

func (r Report) String() string {
	lines := []string{fmt.Sprintf("\tStarted: %v\n\tFinished: %v\n\tCorrected: %d\n\tFailed: %d",
		r.Started.Format(time.RFC3339), r.Finished.Format(time.RFC3339),
		r.Count(model.StatusCorrected), r.Count(model.StatusFailed))}
	if r.SourceError != nil {
		lines = append(lines, fmt.Sprintf("\tSource error: %v", r.SourceError))
	}
	for _, scene := range r.Scenes {
		if scene.Status == model.StatusFailed {
			lines = append(lines, fmt.Sprintf("\t%s: %s", scene.SceneID, scene.Message))
		}
	}
	return strings.Join(lines, "\n")
}

// Run drains source and corrects its scenes concurrently. Canceling ctx
// stops reading the source; scenes already started see the cancellation
// through their own context.
func (r *Runner) Run(ctx context.Context, source scenes.Source) Report {
	logCtx := &Context{}
	report := Report{Started: time.Now()}
	workers := r.Workers
	if workers < 1 {
		workers = 1
	}
	util.LogInfo(logCtx, fmt.Sprintf("Starting batch with %d workers", workers))

	jobs := make(chan *model.Scene)
	var (
		mutex sync.Mutex
		wg    sync.WaitGroup
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for scene := range jobs {
				sceneReport := r.correct(ctx, scene)
				mutex.Lock()
				report.Scenes = append(report.Scenes, sceneReport)
				mutex.Unlock()
			}
		}()
	}

	for {
		scene, err := source.Next(ctx)
		if err == io.EOF {
			break
		}
		if err != nil {
			report.SourceError = err
			util.LogSimpleErr(logCtx, "Scene source failed: ", err)
			break
		}
		select {
		case jobs <- scene:
			continue
		case <-ctx.Done():
			report.SourceError = ctx.Err()
			util.LogAlert(logCtx, fmt.Sprintf("Batch canceled before %s started", scene.ID))
		}
		break
	}
	close(jobs)
	wg.Wait()

	sort.Slice(report.Scenes, func(i, j int) bool { return report.Scenes[i].SceneID < report.Scenes[j].SceneID })
	report.Finished = time.Now()
	util.LogInfo(logCtx, "Batch finished\n"+report.String())
	return report
}

func (r *Runner) correct(ctx context.Context, scene *model.Scene) SceneReport {
	logCtx := &dsf.Context{SceneID: scene.ID}
	start := time.Now()
	if r.SceneTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.SceneTimeout)
		defer cancel()
	}

	record, err := r.process(ctx, logCtx, scene)
	sceneReport := SceneReport{SceneID: scene.ID, Status: record.Status, Message: record.Message, Duration: time.Since(start)}
	if record.AerosolSelection != nil {
		sceneReport.Model, sceneReport.AOT = record.AerosolSelection.Model, record.AerosolSelection.AOT
		modelSelections.WithLabelValues(sceneReport.Model).Inc()
	}
	if err != nil {
		util.LogSimpleErr(logCtx, fmt.Sprintf("Correction of %s failed: ", scene.ID), err)
		if r.ReportErrors {
			sentry.WithScope(func(scope *sentry.Scope) {
				scope.SetTag("scene", scene.ID)
				sentry.CaptureException(err)
			})
		}
	}
	if r.Record != nil {
		if recordErr := r.Record(logCtx, record); recordErr != nil {
			util.LogSimpleErr(logCtx, fmt.Sprintf("Could not record correction of %s: ", scene.ID), recordErr)
		}
	}

	sceneDuration.WithLabelValues(sceneReport.Status).Observe(sceneReport.Duration.Seconds())
	scenesTotal.WithLabelValues(sceneReport.Status).Inc()
	return sceneReport
}

func failedRecord(scene *model.Scene, err error) model.CorrectionResult {
	return model.CorrectionResult{
		SceneID:      scene.ID,
		ProductID:    scene.ProductID,
		Sensor:       scene.Sensor,
		AcquiredDate: scene.AcquiredDate,
		ProcessedAt:  time.Now().UTC(),
		Footprint:    scene.Footprint,
		Resolution:   scene.Resolution,
		Geometry:     scene.Geometry,
		Status:       model.StatusFailed,
		Message:      err.Error(),
	}
}

// process corrects and writes one scene. A panic inside the correction is
// returned as the scene's error.
func (r *Runner) process(ctx context.Context, logCtx util.LogContext, scene *model.Scene) (record model.CorrectionResult, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("Correction of %s panicked: %v", scene.ID, p)
			record = failedRecord(scene, err)
		}
	}()
	result, err := r.Corrector.CorrectScene(ctx, scene)
	if err != nil {
		return failedRecord(scene, err), err
	}
	record = result.Record(time.Now().UTC())
	if r.Writer != nil {
		if record.OutputBands, err = r.Writer.Write(ctx, logCtx, result); err != nil {
			return failedRecord(scene, err), err
		}
		if err = r.Writer.WriteFeature(record); err != nil {
			return failedRecord(scene, err), err
		}
	}
	return record, nil
}
