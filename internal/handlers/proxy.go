package handlers

import (
	"bufio"
	"bytes"
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/andybalholm/brotli"
	"github.com/pkoukk/tiktoken-go"
	"github.com/tidwall/gjson"

	"github.com/zenrelay/zenrelay/internal/router"
	"github.com/zenrelay/zenrelay/internal/rules"
)

// Headers never forwarded upstream. Content-Length is recomputed by
// net/http from the rewritten body; Accept-Encoding is stripped so the
// transport negotiates compression itself.
var hopHeaders = []string{
	"Accept-Encoding",
	"Connection",
	"Proxy-Connection",
	"Content-Length",
	"Keep-Alive",
	"Transfer-Encoding",
	"Upgrade",
}

type ProxyHandler struct {
	routes *router.Table
	client *http.Client
	apiKey string
	logger *slog.Logger
}

// NewProxyHandler wires the dispatch table and upstream client. apiKey, when
// non-empty, overrides the client-supplied Authorization header; otherwise
// credentials pass through untouched.
func NewProxyHandler(routes *router.Table, client *http.Client, apiKey string, logger *slog.Logger) *ProxyHandler {
	return &ProxyHandler{
		routes: routes,
		client: client,
		apiKey: apiKey,
		logger: logger,
	}
}

func (h *ProxyHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	route, ok := h.routes.Match(r.URL.Path)
	if !ok {
		h.httpError(w, http.StatusNotFound, "no route for %s", r.URL.Path)
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		h.httpError(w, http.StatusBadRequest, "failed to read request body: %v", err)
		return
	}

	rewritten, err := rules.Apply(body, route.Rules)
	if err != nil {
		h.httpError(w, http.StatusBadRequest, "request body rejected: %v", err)
		return
	}

	inputTokens := h.countInputTokens(string(rewritten))

	// The inbound context cancels the upstream exchange when the client
	// disconnects mid-stream.
	req, err := http.NewRequestWithContext(r.Context(), r.Method, route.Upstream, bytes.NewReader(rewritten))
	if err != nil {
		h.httpError(w, http.StatusInternalServerError, "failed to create upstream request: %v", err)
		return
	}

	req.Header = r.Header.Clone()
	for _, key := range hopHeaders {
		req.Header.Del(key)
	}

	if h.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+h.apiKey)
	}

	h.logger.Info("Proxying request",
		"flavor", route.Flavor,
		"model", gjson.GetBytes(rewritten, "model").String(),
		"url", route.Upstream,
		"input_tokens", inputTokens,
	)

	start := time.Now()

	resp, err := h.client.Do(req)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			h.logger.Debug("Client disconnected before upstream reply", "url", route.Upstream)
			return
		}

		status := http.StatusBadGateway
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			status = http.StatusGatewayTimeout
		}

		h.httpError(w, status, "upstream request failed: %v", err)

		return
	}
	defer resp.Body.Close()

	if isEventStream(resp.Header) {
		h.relayStream(w, resp, start, inputTokens)
	} else {
		h.relayBuffered(w, resp, start, inputTokens)
	}
}

// relayStream copies the upstream SSE body frame by frame, flushing per
// line so the client sees tokens as they arrive. Non-2xx statuses are
// relayed verbatim; the error body still streams through.
func (h *ProxyHandler) relayStream(w http.ResponseWriter, resp *http.Response, start time.Time, inputTokens int) {
	bodyReader, decompressed, err := h.decompressReader(resp)
	if err != nil {
		h.httpError(w, http.StatusBadGateway, "decompression error: %v", err)
		return
	}

	if closer, ok := bodyReader.(io.Closer); ok {
		defer closer.Close()
	}

	h.copyHeaders(w, resp, decompressed)
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(resp.StatusCode)

	var (
		frames     int
		totalBytes int
	)

	scanner := bufio.NewScanner(bodyReader)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := scanner.Text()

		n, _ := fmt.Fprintf(w, "%s\n", line)
		totalBytes += n

		if line == "" {
			frames++
		}

		h.flushResponse(w)
	}

	if err := scanner.Err(); err != nil {
		h.logger.Error("Stream relay interrupted", "error", err)
	}

	h.logger.Info("Completed streaming response",
		"status", resp.StatusCode,
		"frames", frames,
		"bytes", totalBytes,
		"duration", time.Since(start),
		"input_tokens", inputTokens,
	)
}

func (h *ProxyHandler) relayBuffered(w http.ResponseWriter, resp *http.Response, start time.Time, inputTokens int) {
	bodyReader, decompressed, err := h.decompressReader(resp)
	if err != nil {
		h.httpError(w, http.StatusBadGateway, "decompression error: %v", err)
		return
	}

	if closer, ok := bodyReader.(io.Closer); ok {
		defer closer.Close()
	}

	respBody, err := io.ReadAll(bodyReader)
	if err != nil {
		h.httpError(w, http.StatusBadGateway, "failed to read upstream response: %v", err)
		return
	}

	h.copyHeaders(w, resp, decompressed)
	w.WriteHeader(resp.StatusCode)
	w.Write(respBody)

	logFields := []any{
		"status", resp.StatusCode,
		"duration", time.Since(start),
		"input_tokens", inputTokens,
	}

	if usage := outputTokens(respBody); usage > 0 {
		logFields = append(logFields, "output_tokens", usage)
	}

	if resp.StatusCode >= http.StatusMultipleChoices {
		logFields = append(logFields, "body", truncate(string(respBody), 2048))
		h.logger.Error("Upstream error response", logFields...)
	} else {
		h.logger.Info("Completed response", logFields...)
	}
}

func (h *ProxyHandler) countInputTokens(text string) int {
	tke, err := tiktoken.GetEncoding("cl100k_base")
	if err != nil {
		h.logger.Error("Failed to get tiktoken encoding", "error", err)
		return 0
	}

	return len(tke.Encode(text, nil, nil))
}

// decompressReader unwraps gzip and brotli upstream bodies. Other
// encodings are relayed as-is with their Content-Encoding intact, so the
// client can still decode them.
func (h *ProxyHandler) decompressReader(resp *http.Response) (io.Reader, bool, error) {
	switch resp.Header.Get("Content-Encoding") {
	case "gzip":
		gzipReader, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, false, err
		}

		return gzipReader, true, nil
	case "br":
		return brotli.NewReader(resp.Body), true, nil
	}

	return resp.Body, false, nil
}

func (h *ProxyHandler) copyHeaders(w http.ResponseWriter, resp *http.Response, decompressed bool) {
	for key, values := range resp.Header {
		// Content-Length is recomputed; Content-Encoding no longer
		// describes the body once it has been decompressed here.
		if key == "Content-Length" || (decompressed && key == "Content-Encoding") {
			continue
		}

		for _, value := range values {
			w.Header().Add(key, value)
		}
	}
}

func (h *ProxyHandler) flushResponse(w http.ResponseWriter) {
	if flusher, ok := w.(http.Flusher); ok {
		flusher.Flush()
	}
}

func (h *ProxyHandler) httpError(w http.ResponseWriter, code int, format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	h.logger.Error("HTTP Error", "code", code, "message", msg)
	http.Error(w, msg, code)
}

func isEventStream(headers http.Header) bool {
	return strings.HasPrefix(headers.Get("Content-Type"), "text/event-stream")
}

// outputTokens pulls the completion token count out of either flavor's
// usage block for the access log.
func outputTokens(body []byte) int64 {
	if v := gjson.GetBytes(body, "usage.output_tokens"); v.Exists() {
		return v.Int()
	}

	return gjson.GetBytes(body, "usage.completion_tokens").Int()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}

	return s[:n] + "..."
}
