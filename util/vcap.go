package util

import (
	"encoding/json"
	"fmt"
	"sort"
)

// VcapServices is a parsed VCAP_SERVICES JSON configuration, keyed by service label
type VcapServices map[string][]VcapService

// VcapService is a single bound service; only the fields used here are parsed
type VcapService struct {
	Name        string          `json:"name"`
	Label       string          `json:"label"`
	Credentials VcapCredentials `json:"credentials"`
}

// VcapCredentials holds a service's credentials block
type VcapCredentials map[string]interface{}

// ParseVcapServices parses raw VCAP_SERVICES JSON
func ParseVcapServices(data []byte) (VcapServices, error) {
	services := VcapServices{}
	if err := json.Unmarshal(data, &services); err != nil {
		return nil, err
	}
	return services, nil
}

// FindServiceByName returns the bound service with the given instance name, if any
func (s VcapServices) FindServiceByName(name string) *VcapService {
	for _, label := range s.labels() {
		for i := range s[label] {
			if s[label][i].Name == name {
				return &s[label][i]
			}
		}
	}
	return nil
}

// FindServiceByLabel returns the first bound service offered under label
func (s VcapServices) FindServiceByLabel(label string) *VcapService {
	if services := s[label]; len(services) > 0 {
		return &services[0]
	}
	return nil
}

// GetServiceNames lists the instance names of every bound service, sorted
func (s VcapServices) GetServiceNames() []string {
	names := []string{}
	for _, services := range s {
		for _, service := range services {
			names = append(names, service.Name)
		}
	}
	sort.Strings(names)
	return names
}

func (s VcapServices) labels() []string {
	labels := make([]string, 0, len(s))
	for label := range s {
		labels = append(labels, label)
	}
	sort.Strings(labels)
	return labels
}

// String recovers the string value at key
func (c VcapCredentials) String(key string) (string, error) {
	val, ok := c[key]
	if !ok {
		return "", fmt.Errorf("Credential key does not exist: %s", key)
	}
	valStr, ok := val.(string)
	if !ok {
		return "", fmt.Errorf("Could not convert value to string: key=%s, value=%v", key, val)
	}
	return valStr, nil
}

// Int recovers the integer value at key. JSON numbers decode as float64, so
// those are accepted when they hold a whole number.
func (c VcapCredentials) Int(key string) (int, error) {
	val, ok := c[key]
	if !ok {
		return 0, fmt.Errorf("Credential key does not exist: %s", key)
	}
	switch v := val.(type) {
	case int:
		return v, nil
	case float64:
		if v == float64(int(v)) {
			return int(v), nil
		}
	}
	return 0, fmt.Errorf("Could not convert value to int: key=%s, value=%v", key, val)
}
