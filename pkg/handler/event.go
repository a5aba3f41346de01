package handler

import (
	"strings"

	"github.com/tidwall/gjson"
)

// eventKind is the shape of an incoming invocation payload
type eventKind int

const (
	kindUnsupported eventKind = iota
	kindREST
	kindHTTP
	kindWarmup
)

func (k eventKind) String() string {
	switch k {
	case kindREST:
		return "rest"
	case kindHTTP:
		return "http"
	case kindWarmup:
		return "warmup"
	default:
		return "unsupported"
	}
}

const unknown = "UNKNOWN"

// classify works out the event type, method and path without decoding the whole payload.
// REST API (v1) events carry httpMethod and path, HTTP API (v2) events carry
// requestContext.http.method and rawPath, scheduled warm-up pings come from EventBridge.
func classify(raw []byte) (kind eventKind, method, path string) {

	method, path = unknown, unknown
	if !gjson.ValidBytes(raw) {
		return kindUnsupported, method, path
	}

	res := gjson.GetManyBytes(raw,
		"httpMethod",
		"path",
		"version",
		"requestContext.http.method",
		"rawPath",
		"source",
		"detail-type",
	)
	v1Method, v1Path, version, v2Method, v2Path, source, detailType :=
		res[0], res[1], res[2], res[3], res[4], res[5], res[6]

	switch {
	case version.Str == "2.0" || v2Method.Exists():
		kind = kindHTTP
		if v2Method.Str != "" {
			method = v2Method.Str
		}
		if v2Path.Str != "" {
			path = v2Path.Str
		}
	case v1Method.Exists():
		kind = kindREST
		if v1Method.Str != "" {
			method = v1Method.Str
		}
		if v1Path.Str != "" {
			path = v1Path.Str
		}
	case source.Str == "aws.events" || detailType.Str == "Scheduled Event":
		kind = kindWarmup
	default:
		kind = kindUnsupported
	}
	return kind, method, path
}

// lastSegment is the metric dimension for a path, never empty
func lastSegment(path string) string {
	if path == unknown {
		return "unknown"
	}
	if seg := path[strings.LastIndex(path, "/")+1:]; seg != "" {
		return seg
	}
	return "root"
}

// endpointMetric picks the single per-endpoint counter for a path, first match wins
func endpointMetric(path string) string {
	for _, ep := range endpoints {
		for _, s := range ep.substrings {
			if strings.Contains(path, s) {
				return ep.metric
			}
		}
	}
	return ""
}
