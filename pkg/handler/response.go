package handler

import (
	"encoding/base64"
	"encoding/json"
	"mime"
	"net/http"
	"strings"

	"github.com/aws/aws-lambda-go/events"
)

// Response is returned to API Gateway. It serialises to a shape accepted by both
// REST API and HTTP API integrations.
type Response struct {
	StatusCode        int                 `json:"statusCode"`
	Headers           map[string]string   `json:"headers"`
	MultiValueHeaders map[string][]string `json:"multiValueHeaders,omitempty"`
	Cookies           []string            `json:"cookies,omitempty"`
	Body              string              `json:"body"`
	IsBase64Encoded   bool                `json:"isBase64Encoded,omitempty"`
}

func fromREST(r events.APIGatewayProxyResponse) Response {
	return Response{
		StatusCode:        r.StatusCode,
		Headers:           r.Headers,
		MultiValueHeaders: r.MultiValueHeaders,
		Body:              r.Body,
		IsBase64Encoded:   r.IsBase64Encoded,
	}
}

func fromHTTP(r events.APIGatewayV2HTTPResponse) Response {
	return Response{
		StatusCode:        r.StatusCode,
		Headers:           r.Headers,
		MultiValueHeaders: r.MultiValueHeaders,
		Cookies:           r.Cookies,
		Body:              r.Body,
		IsBase64Encoded:   r.IsBase64Encoded,
	}
}

// header looks a header up in either header map, ignoring case
func (r Response) header(name string) string {
	for k, v := range r.Headers {
		if strings.EqualFold(k, name) {
			return v
		}
	}
	for k, v := range r.MultiValueHeaders {
		if strings.EqualFold(k, name) && len(v) > 0 {
			return v[0]
		}
	}
	return ""
}

// corsHeaders are sent with every response built by this package
var corsHeaders = map[string]string{
	"Content-Type":                 "application/json",
	"Access-Control-Allow-Origin":  "*",
	"Access-Control-Allow-Methods": "GET, POST, PUT, DELETE, OPTIONS",
	"Access-Control-Allow-Headers": "Content-Type, Authorization",
}

// errorBody is the fixed shape of a translated failure
type errorBody struct {
	Error     string `json:"error"`
	Message   string `json:"message"`
	RequestID string `json:"requestId"`
}

const genericMessage = "An error occurred"

func errorResponse(requestID string, err error, debug bool) Response {

	msg := genericMessage
	if debug && err != nil {
		msg = err.Error()
	}

	// marshalling three strings cannot fail
	body, _ := json.Marshal(errorBody{
		Error:     "Internal server error",
		Message:   msg,
		RequestID: requestID,
	})

	headers := make(map[string]string, len(corsHeaders))
	for k, v := range corsHeaders {
		headers[k] = v
	}

	return Response{
		StatusCode: http.StatusInternalServerError,
		Headers:    headers,
		Body:       string(body),
	}
}

// matchMedia reports whether contentType falls under one of patterns ("audio/*" style wildcards allowed)
func matchMedia(contentType string, patterns []string) bool {

	if contentType == "" {
		return false
	}
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mt = strings.ToLower(strings.TrimSpace(strings.Split(contentType, ";")[0]))
	}

	for _, p := range patterns {
		p = strings.ToLower(p)
		if strings.HasSuffix(p, "/*") {
			if strings.HasPrefix(mt, strings.TrimSuffix(p, "*")) {
				return true
			}
			continue
		}
		if mt == p {
			return true
		}
	}
	return false
}

// encodeBinary base64 encodes bodies of binary media types
func encodeBinary(r Response, patterns []string) Response {
	if len(patterns) == 0 || r.IsBase64Encoded || r.Body == "" {
		return r
	}
	if !matchMedia(r.header("Content-Type"), patterns) {
		return r
	}
	r.Body = base64.StdEncoding.EncodeToString([]byte(r.Body))
	r.IsBase64Encoded = true
	return r
}
