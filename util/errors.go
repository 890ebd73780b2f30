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

import "fmt"

// Error is a detailed error about a collaborator's response, with a
// simplified message suitable for end users
type Error struct {
	LogMsg     string
	SimpleMsg  string
	Response   string
	URL        string
	HTTPStatus int
}

// Log logs the full error and returns an error containing the simple message
func (err Error) Log(ctx LogContext, msg string) error {
	if msg != "" {
		msg = msg + ": "
	}
	LogAlert(ctx, fmt.Sprintf("%s%s (url=%s status=%d response=%s)", msg, err.LogMsg, err.URL, err.HTTPStatus, err.Response))
	return fmt.Errorf("%s", err.SimpleMsg)
}

func (err Error) Error() string {
	return err.SimpleMsg
}
