package structuring

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/tmc/langchaingo/llms"
)

type stubModel struct {
	resp     *llms.ContentResponse
	err      error
	messages []llms.MessageContent
}

func (m *stubModel) GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	m.messages = messages
	if m.err != nil {
		return nil, m.err
	}
	return m.resp, nil
}

func (m *stubModel) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return "", errors.New("not used")
}

func messageText(m llms.MessageContent) string {
	var b strings.Builder
	for _, p := range m.Parts {
		if t, ok := p.(llms.TextContent); ok {
			b.WriteString(t.Text)
		}
	}
	return b.String()
}

func TestStructureReportReturnsCompletionVerbatim(t *testing.T) {
	stub := &stubModel{resp: &llms.ContentResponse{Choices: []*llms.ContentChoice{{Content: `{"report_id": "R1"}`}}}}
	c := NewWithModel(stub, 1)
	out, err := c.StructureReport(context.Background(), "CBC PANEL\nWBC 5.1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != `{"report_id": "R1"}` {
		t.Fatalf("unexpected output: %q", out)
	}
	if len(stub.messages) != 2 {
		t.Fatalf("expected system+user messages, got %d", len(stub.messages))
	}
	if !strings.Contains(messageText(stub.messages[1]), "CBC PANEL\nWBC 5.1") {
		t.Fatal("user message does not embed the raw text verbatim")
	}
	for _, field := range []string{"report_id", "patient_info", "ordering_physician_info", "specimen_details", "tests", "interpretation", "report_date", "laboratory_info"} {
		if !strings.Contains(messageText(stub.messages[0]), field) {
			t.Fatalf("schema instruction missing field %q", field)
		}
	}
}

func TestStructureReportServiceFailure(t *testing.T) {
	stub := &stubModel{err: errors.New("connection refused")}
	c := NewWithModel(stub, 1)
	out, err := c.StructureReport(context.Background(), "text")
	if !errors.Is(err, ErrCompletion) {
		t.Fatalf("expected ErrCompletion, got %v", err)
	}
	if out != "" {
		t.Fatalf("failure must not produce data, got %q", out)
	}
}

func TestStructureReportEmptyResponse(t *testing.T) {
	stub := &stubModel{resp: &llms.ContentResponse{}}
	c := NewWithModel(stub, 1)
	if _, err := c.StructureReport(context.Background(), "text"); !errors.Is(err, ErrCompletion) {
		t.Fatalf("expected ErrCompletion, got %v", err)
	}
}
