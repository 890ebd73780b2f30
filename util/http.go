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

package util

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io/ioutil"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
)

var (
	httpClient     *http.Client
	httpClientOnce sync.Once
)

// HTTPClient returns the shared http.Client used for outgoing requests
func HTTPClient() *http.Client {
	httpClientOnce.Do(func() {
		httpClient = &http.Client{Timeout: 2 * time.Minute}
	})
	return httpClient
}

// HTTPErr is an error carrying the HTTP status it should be reported with
type HTTPErr struct {
	Status  int
	Message string
}

func (err HTTPErr) Error() string {
	return fmt.Sprintf("%d: %s", err.Status, err.Message)
}

// HTTPError logs and writes an error response
func HTTPError(request *http.Request, writer http.ResponseWriter, ctx LogContext, message string, status int) {
	LogAudit(ctx, LogAuditInput{
		Actor:    AppName,
		Action:   request.Method + " response",
		Actee:    request.URL.String(),
		Message:  fmt.Sprintf("Responding with HTTP %d: %s", status, message),
		Severity: NOTICE,
	})
	writer.Header().Set("Content-Type", "text/plain")
	writer.WriteHeader(status)
	writer.Write([]byte(message))
}

// ReqByObjJSON sends inputObj as JSON using the given method and decodes the
// JSON response into outputObj. authKey is sent as basic auth when present,
// either as "user:password" or as a bare key.
func ReqByObjJSON(ctx context.Context, method string, url string, authKey string, inputObj interface{}, outputObj interface{}) (*http.Response, error) {
	var body []byte
	if inputObj != nil {
		var err error
		if body, err = json.Marshal(inputObj); err != nil {
			return nil, errors.Wrap(err, "Could not marshal request body")
		}
	}

	request, err := http.NewRequest(method, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	request = request.WithContext(ctx)
	request.Header.Set("Content-Type", "application/json")
	request.Header.Set("Accept", "application/json")
	if authKey != "" {
		parts := strings.SplitN(authKey, ":", 2)
		if len(parts) == 2 {
			request.SetBasicAuth(parts[0], parts[1])
		} else {
			request.SetBasicAuth(authKey, "")
		}
	}

	response, err := HTTPClient().Do(request)
	if err != nil {
		return nil, err
	}
	defer response.Body.Close()

	responseBody, err := ioutil.ReadAll(response.Body)
	if err != nil {
		return response, err
	}
	if response.StatusCode < 200 || response.StatusCode > 299 {
		return response, HTTPErr{Status: response.StatusCode, Message: string(responseBody)}
	}
	if outputObj != nil {
		if err = json.Unmarshal(responseBody, outputObj); err != nil {
			return response, errors.Wrapf(err, "Could not unmarshal response from %s", url)
		}
	}
	return response, nil
}
