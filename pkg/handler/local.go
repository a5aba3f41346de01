package handler

import (
	"encoding/base64"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambdacontext"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ServeHTTP runs a plain HTTP request through Handle as if it came from an HTTP API,
// so the whole invocation path can be exercised without deploying.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {

	id := uuid.NewString()

	raw, err := h.toEvent(r, id)
	if err != nil {
		h.log.Error("could not build local event", zap.Error(err))
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	ctx := lambdacontext.NewContext(r.Context(), &lambdacontext.LambdaContext{AwsRequestID: id})
	resp, _ := h.Handle(ctx, raw)
	writeResponse(w, resp, h.log)
}

func (h *Handler) toEvent(r *http.Request, id string) (json.RawMessage, error) {

	body, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, err
	}

	headers := make(map[string]string, len(r.Header))
	for k, v := range r.Header {
		headers[strings.ToLower(k)] = strings.Join(v, ",")
	}

	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		ip = r.RemoteAddr
	}

	ev := events.APIGatewayV2HTTPRequest{
		Version:        "2.0",
		RouteKey:       "$default",
		RawPath:        r.URL.Path,
		RawQueryString: r.URL.RawQuery,
		Headers:        headers,
		RequestContext: events.APIGatewayV2HTTPRequestContext{
			DomainName: r.Host,
			RequestID:  id,
			Stage:      "$default",
			TimeEpoch:  h.now().UnixMilli(),
			HTTP: events.APIGatewayV2HTTPRequestContextHTTPDescription{
				Method:    r.Method,
				Path:      r.URL.Path,
				Protocol:  r.Proto,
				SourceIP:  ip,
				UserAgent: r.UserAgent(),
			},
		},
	}
	if utf8.Valid(body) {
		ev.Body = string(body)
	} else {
		ev.Body = base64.StdEncoding.EncodeToString(body)
		ev.IsBase64Encoded = true
	}

	return json.Marshal(ev)
}

func writeResponse(w http.ResponseWriter, resp Response, log *zap.Logger) {

	for k, v := range resp.Headers {
		w.Header().Set(k, v)
	}
	for k, vs := range resp.MultiValueHeaders {
		w.Header().Del(k)
		for _, v := range vs {
			w.Header().Add(k, v)
		}
	}
	for _, c := range resp.Cookies {
		w.Header().Add("Set-Cookie", c)
	}

	body := []byte(resp.Body)
	if resp.IsBase64Encoded {
		dec, err := base64.StdEncoding.DecodeString(resp.Body)
		if err != nil {
			log.Error("could not decode response body", zap.Error(err))
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		body = dec
	}

	w.WriteHeader(resp.StatusCode)
	w.Write(body)
}

var _ http.Handler = (*Handler)(nil)
