// Copyright 2016, RadiantBlue Technologies, Inc.
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
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// Environment variables
const (
	DOMAIN                     = "DOMAIN"
	ATMCORR_LUT_ROOT           = "ATMCORR_LUT_ROOT"
	ATMCORR_RSR_ROOT           = "ATMCORR_RSR_ROOT"
	ATMCORR_LUT_CACHE          = "ATMCORR_LUT_CACHE"
	ATMCORR_ANCILLARY_URL      = "ATMCORR_ANCILLARY_URL"
	ATMCORR_GAS_URL            = "ATMCORR_GAS_URL"
	ATMCORR_GAS_COEFFICIENTS   = "ATMCORR_GAS_COEFFICIENTS"
	ATMCORR_WORKERS            = "ATMCORR_WORKERS"
	ATMCORR_SCENE_TIMEOUT      = "ATMCORR_SCENE_TIMEOUT"
	ATMCORR_INPUT_ROOT         = "ATMCORR_INPUT_ROOT"
	ATMCORR_OUTPUT_ROOT        = "ATMCORR_OUTPUT_ROOT"
	ATMCORR_SETTINGS           = "ATMCORR_SETTINGS"
	ATMCORR_SCHEDULE_FREQUENCY = "ATMCORR_SCHEDULE_FREQUENCY"
	EARTHDATA_USER             = "EARTHDATA_u"
	EARTHDATA_PASSWORD         = "EARTHDATA_p"
	SENTRY_DSN                 = "SENTRY_DSN"
	AWS_REGION                 = "AWS_REGION"
)

const (
	defaultLUTRoot           = "data/LUT"
	defaultRSRRoot           = "data/RSR"
	defaultWorkers           = 4
	defaultSceneTimeout      = 10 * time.Minute
	defaultScheduleFrequency = 24 * time.Hour
	defaultAWSRegion         = "us-east-1"
)

// GetDomain returns a string for the DOMAIN environment variable
func GetDomain() string {
	domain, ok := os.LookupEnv(DOMAIN)
	if !ok {
		LogAlert(&BasicLogContext{}, "Didn't get domain from environment.")
	}
	return domain
}

// GetLUTRoot returns the directory or s3:// location holding the model tables
func GetLUTRoot() string {
	root, ok := os.LookupEnv(ATMCORR_LUT_ROOT)
	if !ok {
		LogInfo(&BasicLogContext{}, "Did not get LUT root from the environment. Using default: "+defaultLUTRoot)
		root = defaultLUTRoot
	}
	return root
}

// GetRSRRoot returns the directory or s3:// location holding spectral response files
func GetRSRRoot() string {
	root, ok := os.LookupEnv(ATMCORR_RSR_ROOT)
	if !ok {
		LogInfo(&BasicLogContext{}, "Did not get RSR root from the environment. Using default: "+defaultRSRRoot)
		root = defaultRSRRoot
	}
	return root
}

// GetLUTCacheDir returns the local directory used to cache remote model tables
func GetLUTCacheDir() string {
	dir, ok := os.LookupEnv(ATMCORR_LUT_CACHE)
	if !ok {
		dir = filepath.Join(os.TempDir(), "bf-atmcorr-lut")
	}
	return dir
}

// GetAncillaryURL returns a string for the ATMCORR_ANCILLARY_URL
// environment variable or generates one if needed
func GetAncillaryURL() string {
	ancillaryURL, ok := os.LookupEnv(ATMCORR_ANCILLARY_URL)
	if !ok {
		LogInfo(&BasicLogContext{}, "Did not get explicit ancillary URL from the environment. Using implied URL based on domain.")
		domain := GetDomain()
		if len(domain) == 0 {
			LogAlert(&BasicLogContext{}, "No domain in environment. Ancillary data will not be available.")
			return ""
		}
		ancillaryURL = fmt.Sprintf("https://bf-ancillary.%s/ancillary", domain)
	}
	return ancillaryURL
}

// GetGasURL returns the remote gas transmittance service URL; empty means
// the local model is used
func GetGasURL() string {
	return os.Getenv(ATMCORR_GAS_URL)
}

// GetGasCoefficientsPath returns the key, under the RSR root, of the
// absorption coefficient table used by the local gas transmittance model
func GetGasCoefficientsPath() string {
	path, ok := os.LookupEnv(ATMCORR_GAS_COEFFICIENTS)
	if !ok {
		path = "gas_coefficients.json"
	}
	return path
}

// GetEarthdataCredentials returns "user:password" from the environment, or
// an empty string if either is missing
func GetEarthdataCredentials() string {
	user, pass := os.Getenv(EARTHDATA_USER), os.Getenv(EARTHDATA_PASSWORD)
	if user == "" || pass == "" {
		return ""
	}
	return user + ":" + pass
}

// GetWorkerCount returns the number of scenes corrected concurrently
func GetWorkerCount() int {
	workers, err := strconv.Atoi(os.Getenv(ATMCORR_WORKERS))
	if err != nil || workers < 1 {
		return defaultWorkers
	}
	return workers
}

// GetSceneTimeout returns the deadline imposed on a single scene's correction
func GetSceneTimeout() time.Duration {
	timeout, err := time.ParseDuration(os.Getenv(ATMCORR_SCENE_TIMEOUT))
	if err != nil || timeout <= 0 {
		return defaultSceneTimeout
	}
	return timeout
}

// GetScheduleFrequency returns the maximum time between scheduled batch runs
func GetScheduleFrequency() time.Duration {
	duration, _ := time.ParseDuration(os.Getenv(ATMCORR_SCHEDULE_FREQUENCY))
	if duration < time.Minute {
		LogInfo(&BasicLogContext{}, fmt.Sprintf("Schedule frequency of %v is too small. Using default of %v.", duration, defaultScheduleFrequency))
		duration = defaultScheduleFrequency
	}
	return duration
}

// GetInputRoot returns the directory scanned for product directories
func GetInputRoot() string {
	root, ok := os.LookupEnv(ATMCORR_INPUT_ROOT)
	if !ok {
		LogAlert(&BasicLogContext{}, "Did not get input root from the environment. Scheduled batches will find no scenes.")
	}
	return root
}

// GetOutputRoot returns the directory or s3:// location corrected scenes are written to
func GetOutputRoot() string {
	root, ok := os.LookupEnv(ATMCORR_OUTPUT_ROOT)
	if !ok {
		root = "output"
	}
	return root
}

// GetSettingsPath returns the settings file used when none is given explicitly
func GetSettingsPath() string {
	return os.Getenv(ATMCORR_SETTINGS)
}

// GetSentryDSN returns the error-reporting endpoint, if any
func GetSentryDSN() string {
	return os.Getenv(SENTRY_DSN)
}

// GetAWSRegion returns the region used for S3 access
func GetAWSRegion() string {
	region, ok := os.LookupEnv(AWS_REGION)
	if !ok {
		region = defaultAWSRegion
	}
	return region
}
