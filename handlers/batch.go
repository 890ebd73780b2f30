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

package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/venicegeo/bf-atmcorr/batch"
)

// StatusProvider reports the state of the batch loop
type StatusProvider interface {
	GetStatus() string
}

// BatchStatusHandler is a handler for /batch/
type BatchStatusHandler struct {
	Scheduler StatusProvider
}

func (h BatchStatusHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	fmt.Fprintln(w, h.Scheduler.GetStatus())
}

// BatchStartHandler sends a "begin" message to the batch loop and returns the new status
type BatchStartHandler struct {
	Scheduler   StatusProvider
	MessageChan chan<- string
}

func (h BatchStartHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	select {
	case h.MessageChan <- batch.BeginBatchMessage:
		fmt.Fprintln(w, "Begin batch request submitted.")
	default:
		fmt.Fprintln(w, "Error submitting request.")
	}
	fmt.Fprintln(w, h.Scheduler.GetStatus())
}

// BatchCancelHandler sends an "abort" message to the batch loop and returns the new status
type BatchCancelHandler struct {
	Scheduler   StatusProvider
	MessageChan chan<- string
}

func (h BatchCancelHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	select {
	case h.MessageChan <- batch.AbortBatchMessage:
		fmt.Fprintln(w, "Cancel request submitted.")
	default:
		fmt.Fprintln(w, "Error submitting cancel request.")
	}
	fmt.Fprintln(w, h.Scheduler.GetStatus())
}

var (
	httpDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name: "http_response_time_seconds",
		Help: "Duration of HTTP requests.",
	}, []string{"path"})
	httpRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Number of HTTP requests.",
	}, []string{"path"})
)

// PrometheusMiddleware records the duration and count of every request,
// labelled by route template when mounted with Router.Use
func PrometheusMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		path := r.URL.Path
		if route := mux.CurrentRoute(r); route != nil {
			if template, err := route.GetPathTemplate(); err == nil {
				path = template
			}
		}
		httpDuration.WithLabelValues(path).Observe(time.Since(start).Seconds())
		httpRequests.WithLabelValues(path).Inc()
	})
}
