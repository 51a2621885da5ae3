package agent

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"soil-health-agent/tools"
)

func ollamaServer(t *testing.T, status int, body string, inspect func(chatRequest)) *httptest.Server {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req chatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decoding request: %v", err)
		}
		if inspect != nil {
			inspect(req)
		}
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestOllamaComplete_StructuredToolCalls(t *testing.T) {
	t.Parallel()

	var got chatRequest
	srv := ollamaServer(t, http.StatusOK, `{
		"message": {
			"role": "assistant",
			"content": "",
			"tool_calls": [{"function": {"name": "get_soil_npk", "arguments": {"location": "Mancherial"}}}]
		}
	}`, func(req chatRequest) { got = req })

	model := NewOllamaModel("llama3.1", srv.URL, discardLogger())
	toolset := []tools.Tool{tools.NewSoilTool(nil).AsTool()}
	reply, err := model.Complete(context.Background(), []Message{{Role: RoleUser, Content: "hi"}}, toolset)
	if err != nil {
		t.Fatalf("Complete returned error: %v", err)
	}

	if got.Model != "llama3.1" || got.Stream {
		t.Fatalf("unexpected request: model=%q stream=%v", got.Model, got.Stream)
	}
	if len(got.Tools) != 1 {
		t.Fatalf("expected one tool in request, got %d", len(got.Tools))
	}
	if len(reply.ToolCalls) != 1 || reply.ToolCalls[0].Function.Name != tools.SoilToolName {
		t.Fatalf("unexpected tool calls: %+v", reply.ToolCalls)
	}
	args, err := reply.ToolCalls[0].Function.DecodeArguments()
	if err != nil || args["location"] != "Mancherial" {
		t.Fatalf("arguments = %v (err %v)", args, err)
	}
}

func TestOllamaComplete_RecoversXMLToolCall(t *testing.T) {
	t.Parallel()

	srv := ollamaServer(t, http.StatusOK, `{
		"message": {
			"role": "assistant",
			"content": "Let me check.\n<function=get_weather_info>\n<parameter=location>\nMancherial\n</parameter>\n</function>"
		}
	}`, nil)

	reply, err := NewOllamaModel("m", srv.URL, discardLogger()).Complete(context.Background(), nil, nil)
	if err != nil {
		t.Fatalf("Complete returned error: %v", err)
	}

	if reply.Content != "Let me check." {
		t.Fatalf("content = %q", reply.Content)
	}
	if len(reply.ToolCalls) != 1 {
		t.Fatalf("expected recovered tool call, got %+v", reply.ToolCalls)
	}
	call := reply.ToolCalls[0]
	if call.ID != parsedToolCallID || call.Function.Name != tools.WeatherToolName {
		t.Fatalf("unexpected call %+v", call)
	}
	args, _ := call.Function.DecodeArguments()
	if args["location"] != "Mancherial" {
		t.Fatalf("arguments = %v", args)
	}
}

func TestOllamaComplete_UnparseableMarkupIsHidden(t *testing.T) {
	t.Parallel()

	srv := ollamaServer(t, http.StatusOK, `{"message":{"role":"assistant","content":"<function=get_soil_npk>"}}`, nil)

	reply, err := NewOllamaModel("m", srv.URL, discardLogger()).Complete(context.Background(), nil, nil)
	if err != nil {
		t.Fatalf("Complete returned error: %v", err)
	}
	if len(reply.ToolCalls) != 0 {
		t.Fatalf("unexpected tool calls %+v", reply.ToolCalls)
	}
	if reply.Content == "" || reply.Content == "<function=get_soil_npk>" {
		t.Fatalf("markup should be replaced, got %q", reply.Content)
	}
}

func TestOllamaComplete_StatusError(t *testing.T) {
	t.Parallel()

	srv := ollamaServer(t, http.StatusServiceUnavailable, `model is loading`, nil)

	_, err := NewOllamaModel("m", srv.URL, discardLogger()).Complete(context.Background(), nil, nil)

	var statusErr *StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("expected StatusError, got %v", err)
	}
	if statusErr.Code != http.StatusServiceUnavailable || statusErr.Body != "model is loading" {
		t.Fatalf("unexpected status error %+v", statusErr)
	}
	if !retryable(err) {
		t.Fatalf("503 should be retryable")
	}
}

func TestParseXMLToolCall_RequiresParameters(t *testing.T) {
	t.Parallel()

	if _, _, ok := parseXMLToolCall("<function=get_soil_npk></function>"); ok {
		t.Fatalf("call without parameters should not parse")
	}
	name, args, ok := parseXMLToolCall("<function=get_soil_npk><parameter=location> Pune </parameter>")
	if !ok || name != "get_soil_npk" || args["location"] != "Pune" {
		t.Fatalf("got name=%q args=%v ok=%v", name, args, ok)
	}
}
