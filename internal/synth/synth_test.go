package synth

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/sageview/sageview/internal/aggregate"
	"github.com/sageview/sageview/internal/llm"
	"github.com/sageview/sageview/internal/search"
)

// scriptedClient returns queued responses/errors in call order.
type scriptedClient struct {
	responses []llm.Response
	errs      []error
	calls     int
	prompts   []string
}

func (s *scriptedClient) Generate(_ context.Context, req llm.Request) (llm.Response, error) {
	i := s.calls
	s.calls++
	s.prompts = append(s.prompts, req.Prompt)
	var err error
	if i < len(s.errs) {
		err = s.errs[i]
	}
	var resp llm.Response
	if i < len(s.responses) {
		resp = s.responses[i]
	}
	return resp, err
}

func (s *scriptedClient) Name() string { return "scripted" }

func oneSource() []aggregate.Source {
	return []aggregate.Source{{Index: 0, URL: "https://a.example", Title: "A", Text: "alpha facts"}}
}

func reasonOf(t *testing.T, err error) Reason {
	t.Helper()
	var f *Failure
	if !errors.As(err, &f) {
		t.Fatalf("expected *Failure, got %T: %v", err, err)
	}
	return f.Reason
}

func TestSynthesize_NoSources(t *testing.T) {
	s := &Synthesizer{Client: &scriptedClient{}}
	_, err := s.Synthesize(context.Background(), "q", nil, search.DepthShallow)
	if reasonOf(t, err) != ReasonNoSources {
		t.Fatalf("expected ReasonNoSources, got %v", err)
	}
}

func TestSynthesize_ShallowSuccess(t *testing.T) {
	client := &scriptedClient{responses: []llm.Response{{Text: "Answer [1, 2] text.", Finish: llm.FinishStop}}}
	s := &Synthesizer{Client: client}
	out, err := s.Synthesize(context.Background(), "q", oneSource(), search.DepthShallow)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if client.calls != 1 {
		t.Fatalf("expected single invocation, got %d", client.calls)
	}
	if !strings.Contains(out.Normalized, "[1] [2]") {
		t.Fatalf("expected normalized citations, got %q", out.Normalized)
	}
	if !strings.Contains(out.Markup, "data-citation-index='0'") {
		t.Fatalf("expected bound markup, got %q", out.Markup)
	}
}

func TestSynthesize_FinishReasonTaxonomy(t *testing.T) {
	cases := []struct {
		finish llm.FinishReason
		want   Reason
	}{
		{llm.FinishMaxTokens, ReasonTruncated},
		{llm.FinishSafety, ReasonSafetyBlocked},
		{llm.FinishRecitation, ReasonRecitationBlocked},
	}
	for _, c := range cases {
		s := &Synthesizer{Client: &scriptedClient{responses: []llm.Response{{Text: "partial", Finish: c.finish}}}}
		_, err := s.Synthesize(context.Background(), "q", oneSource(), search.DepthShallow)
		if got := reasonOf(t, err); got != c.want {
			t.Fatalf("finish %q: expected %q, got %q", c.finish, c.want, got)
		}
	}
}

func TestSynthesize_EmptyResponse(t *testing.T) {
	s := &Synthesizer{Client: &scriptedClient{responses: []llm.Response{{Text: "   ", Finish: llm.FinishStop}}}}
	_, err := s.Synthesize(context.Background(), "q", oneSource(), search.DepthShallow)
	if reasonOf(t, err) != ReasonEmptyResponse {
		t.Fatalf("expected ReasonEmptyResponse, got %v", err)
	}
}

func TestSynthesize_TransportErrorClassification(t *testing.T) {
	cases := []struct {
		err  error
		want Reason
	}{
		{errors.New("API key not valid"), ReasonAuth},
		{errors.New("429 Rate limit exceeded for model"), ReasonRateLimited},
		{errors.New("User location is not supported"), ReasonRegionRestricted},
		{errors.New("prompt exceeds the maximum token limit"), ReasonContextTooLarge},
		{errors.New("connection reset by peer"), ReasonUnknown},
	}
	for _, c := range cases {
		s := &Synthesizer{Client: &scriptedClient{errs: []error{c.err}}}
		_, err := s.Synthesize(context.Background(), "q", oneSource(), search.DepthShallow)
		if got := reasonOf(t, err); got != c.want {
			t.Fatalf("%v: expected %q, got %q", c.err, c.want, got)
		}
	}
}

func TestSynthesize_DeepConcatenatesChunks(t *testing.T) {
	client := &scriptedClient{responses: []llm.Response{
		{Text: "# Title\n\nAbstract [1].", Finish: llm.FinishStop},
		{Text: "## Literature Review\n\nAnalysis [1].", Finish: llm.FinishStop},
		{Text: "## Conclusion\n\nClosing [1].", Finish: llm.FinishStop},
	}}
	s := &Synthesizer{Client: client}
	out, err := s.Synthesize(context.Background(), "q", oneSource(), search.DepthDeep)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if client.calls != 3 {
		t.Fatalf("expected 3 chunk invocations, got %d", client.calls)
	}
	for _, want := range []string{"Abstract", "Literature Review", "Conclusion"} {
		if !strings.Contains(out.Raw, want) {
			t.Fatalf("expected %q in concatenated output, got %q", want, out.Raw)
		}
	}
	if !strings.Contains(out.Raw, "Abstract [1].\n\n## Literature Review") {
		t.Fatalf("expected blank-line separation, got %q", out.Raw)
	}
}

func TestSynthesize_DeepFirstChunkFailureFailsAll(t *testing.T) {
	client := &scriptedClient{responses: []llm.Response{{Text: "", Finish: llm.FinishStop}}}
	s := &Synthesizer{Client: client}
	_, err := s.Synthesize(context.Background(), "q", oneSource(), search.DepthDeep)
	if reasonOf(t, err) != ReasonEmptyResponse {
		t.Fatalf("expected first-chunk failure to surface, got %v", err)
	}
	if client.calls != 1 {
		t.Fatalf("expected no further chunks after first failure, got %d calls", client.calls)
	}
}

func TestSynthesize_DeepLaterChunkFailureDegrades(t *testing.T) {
	client := &scriptedClient{
		responses: []llm.Response{
			{Text: "# Title\n\nIntro [1].", Finish: llm.FinishStop},
			{},
			{Text: "## Conclusion [1].", Finish: llm.FinishStop},
		},
		errs: []error{nil, errors.New("429 quota"), nil},
	}
	s := &Synthesizer{Client: client}
	out, err := s.Synthesize(context.Background(), "q", oneSource(), search.DepthDeep)
	if err != nil {
		t.Fatalf("expected graceful degradation, got %v", err)
	}
	if !strings.Contains(out.Raw, "Intro") || !strings.Contains(out.Raw, "Conclusion") {
		t.Fatalf("expected surviving chunks, got %q", out.Raw)
	}
	if strings.Contains(out.Raw, "Literature") {
		t.Fatalf("did not expect failed chunk content")
	}
}
