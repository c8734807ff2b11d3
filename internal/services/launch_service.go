package services

import (
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"tutor-ai/internal/apis/dtos"
)

var (
	launchKeys    = []string{"user_id", "conversation_id", "agent", "message", "scenario"}
	launchParamRe = regexp.MustCompile(`(?:^|[?&])(user_id|conversation_id|agent|message|scenario)=([^&#]*)`)
)

const maxLaunchDecodes = 3

type LaunchService interface {
	Parse(rawQuery string) (*dtos.LaunchParams, uint32, error)
}

type launchService struct{}

func NewLaunchService() LaunchService {
	return &launchService{}
}

func (s *launchService) Parse(rawQuery string) (*dtos.LaunchParams, uint32, error) {
	params := ParseLaunchParams(rawQuery)
	return &params, http.StatusOK, nil
}

// ParseLaunchParams reads the deep-link parameters of a query string or full URL.
// Queries that fail strict parsing, or whose keys only appear after decoding, go
// through a regex scan of the repeatedly decoded string instead.
func ParseLaunchParams(raw string) dtos.LaunchParams {
	raw = strings.TrimSpace(raw)
	if i := strings.Index(raw, "?"); i >= 0 {
		raw = raw[i+1:]
	}
	if i := strings.Index(raw, "#"); i >= 0 {
		raw = raw[:i]
	}

	values, err := url.ParseQuery(raw)
	strict := launchFromValues(values)
	if err == nil && !hiddenKeys(raw, values) {
		return strict
	}

	recovered := dtos.LaunchParams{Recovered: true}
	for _, m := range launchParamRe.FindAllStringSubmatch(decodeRepeatedly(raw), -1) {
		value := m[2]
		if unescaped, err := url.QueryUnescape(value); err == nil {
			value = unescaped
		}
		setLaunchParam(&recovered, m[1], strings.TrimSpace(value))
	}

	// keep what strict parsing already got right
	for _, key := range launchKeys {
		if launchParam(recovered, key) == "" {
			setLaunchParam(&recovered, key, launchParam(strict, key))
		}
	}
	return recovered
}

// hiddenKeys reports a launch key that is missing from the parsed values but present once decoded
func hiddenKeys(raw string, values url.Values) bool {
	decoded := decodeRepeatedly(raw)
	if decoded == raw {
		return false
	}
	for _, key := range launchKeys {
		if values.Get(key) == "" && strings.Contains(decoded, key+"=") {
			return true
		}
	}
	return false
}

func decodeRepeatedly(s string) string {
	for i := 0; i < maxLaunchDecodes; i++ {
		decoded, err := url.PathUnescape(s)
		if err != nil || decoded == s {
			break
		}
		s = decoded
	}
	return s
}

func launchFromValues(values url.Values) dtos.LaunchParams {
	var p dtos.LaunchParams
	for _, key := range launchKeys {
		setLaunchParam(&p, key, strings.TrimSpace(values.Get(key)))
	}
	return p
}

func setLaunchParam(p *dtos.LaunchParams, key, value string) {
	switch key {
	case "user_id":
		p.UserID = value
	case "conversation_id":
		p.ConversationID = value
	case "agent":
		p.Agent = value
	case "message":
		p.Message = value
	case "scenario":
		p.Scenario = value
	}
}

func launchParam(p dtos.LaunchParams, key string) string {
	switch key {
	case "user_id":
		return p.UserID
	case "conversation_id":
		return p.ConversationID
	case "agent":
		return p.Agent
	case "message":
		return p.Message
	case "scenario":
		return p.Scenario
	}
	return ""
}
