package extraction

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/johnrirwin/gemlisting/internal/cache"
	"github.com/johnrirwin/gemlisting/internal/gemapi"
	"github.com/johnrirwin/gemlisting/internal/media"
	"github.com/johnrirwin/gemlisting/internal/models"
	"github.com/johnrirwin/gemlisting/internal/testutil"
)

type fakeAPI struct {
	resp      *models.ExtractionResponse
	err       error
	fileCalls int
	urlCalls  int
	lastURL   string
}

func (f *fakeAPI) ExtractFromFile(ctx context.Context, file *media.File, onProgress gemapi.ProgressFunc) (*models.ExtractionResponse, error) {
	f.fileCalls++
	if onProgress != nil {
		onProgress(50)
		onProgress(100)
	}
	return f.resp, f.err
}

func (f *fakeAPI) ExtractFromURL(ctx context.Context, reportURL string) (*models.ExtractionResponse, error) {
	f.urlCalls++
	f.lastURL = reportURL
	return f.resp, f.err
}

func certificate() *media.File {
	return media.FromBytes("gia.pdf", "application/pdf", models.MediaKindCertificate, []byte("%PDF-1.7"))
}

func TestUserMessage(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"fetch failed: ECONNREFUSED", MessageServiceUnavailable},
		{"getaddrinfo ENOTFOUND ocr.internal", MessageServiceUnavailable},
		{"Unknown error occurred", MessageServiceUnavailable},
		{"Network Error", MessageServiceUnavailable},
		{`Post "http://ocr:8000": dial tcp: connection refused`, MessageServiceUnavailable},
		{"", MessageServiceUnavailable},
		{"Unsupported file format", "Unsupported file format"},
		{"  Lab report is password protected ", "Lab report is password protected"},
	}

	for _, tt := range tests {
		if got := UserMessage(tt.in); got != tt.want {
			t.Errorf("UserMessage(%q)=%q want=%q", tt.in, got, tt.want)
		}
	}
}

func TestFromFile_Success(t *testing.T) {
	api := &fakeAPI{resp: &models.ExtractionResponse{
		Success: true,
		Data:    &models.ExtractedMetadata{ReportNumber: "2141438167", LabName: "GIA"},
	}}
	client := NewClient(api, nil, testutil.NullLogger())

	var progress []int
	result := client.FromFile(context.Background(), certificate(), func(p int) { progress = append(progress, p) })

	if !result.OK() {
		t.Fatalf("expected success, got message %q", result.Message)
	}
	if result.Metadata.ReportNumber != "2141438167" {
		t.Errorf("reportNumber=%q", result.Metadata.ReportNumber)
	}
	if len(progress) != 2 || progress[1] != 100 {
		t.Errorf("progress=%v", progress)
	}
	if _, ok := StateOf(result).(Succeeded); !ok {
		t.Errorf("StateOf()=%T want Succeeded", StateOf(result))
	}
}

func TestFromFile_ServiceUnavailable(t *testing.T) {
	api := &fakeAPI{resp: &models.ExtractionResponse{Success: false, Message: "fetch failed: ECONNREFUSED"}}
	client := NewClient(api, nil, testutil.NullLogger())

	result := client.FromFile(context.Background(), certificate(), nil)
	if result.OK() {
		t.Fatal("expected failure")
	}
	if result.Message != MessageServiceUnavailable {
		t.Errorf("message=%q", result.Message)
	}
	failed, ok := StateOf(result).(Failed)
	if !ok || failed.Message != MessageServiceUnavailable {
		t.Errorf("StateOf()=%#v", StateOf(result))
	}
}

func TestFromFile_TransportErrorIsRecoverable(t *testing.T) {
	api := &fakeAPI{err: errors.New(`POST /api/gems/extract-lab-report failed: dial tcp 127.0.0.1:5000: connect: connection refused`)}
	client := NewClient(api, nil, testutil.NullLogger())

	result := client.FromFile(context.Background(), certificate(), nil)
	if result.OK() || result.Message != MessageServiceUnavailable {
		t.Fatalf("result=%+v", result)
	}
}

func TestFromFile_BackendMessagePassesThrough(t *testing.T) {
	api := &fakeAPI{err: &gemapi.APIError{StatusCode: 400, Message: "Only PDF, JPG and PNG lab reports are supported"}}
	client := NewClient(api, nil, testutil.NullLogger())

	result := client.FromFile(context.Background(), certificate(), nil)
	if result.Message != "Only PDF, JPG and PNG lab reports are supported" {
		t.Fatalf("message=%q", result.Message)
	}
}

func TestFromFile_EmptySuccessIsFailure(t *testing.T) {
	tests := []struct {
		name string
		resp *models.ExtractionResponse
	}{
		{"nil data", &models.ExtractionResponse{Success: true}},
		{"blank fields", &models.ExtractionResponse{Success: true, Data: &models.ExtractedMetadata{LabName: " "}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := NewClient(&fakeAPI{resp: tt.resp}, nil, testutil.NullLogger())
			result := client.FromFile(context.Background(), certificate(), nil)
			if result.OK() || result.Message != MessageNoData {
				t.Fatalf("result=%+v", result)
			}
		})
	}
}

func TestFromStored_CachesByStorageKey(t *testing.T) {
	api := &fakeAPI{resp: &models.ExtractionResponse{
		Success: true,
		Data:    &models.ExtractedMetadata{GemType: "Ruby", Treatments: models.LooseList{"Heat"}},
	}}
	resultCache := cache.NewMemory(time.Hour)
	client := NewClient(api, resultCache, testutil.NullLogger())

	d := models.StoredCertificateDescriptor{S3Key: "lab-reports/a.pdf", URL: "https://cdn.example/lab-reports/a.pdf"}

	first := client.FromStored(context.Background(), d)
	second := client.FromStored(context.Background(), d)

	if !first.OK() || !second.OK() {
		t.Fatalf("first=%+v second=%+v", first, second)
	}
	if api.urlCalls != 1 {
		t.Errorf("urlCalls=%d want=1", api.urlCalls)
	}
	if api.lastURL != d.URL {
		t.Errorf("url=%q", api.lastURL)
	}
	if second.Metadata.GemType != "Ruby" || len(second.Metadata.Treatments) != 1 {
		t.Errorf("cached metadata=%+v", second.Metadata)
	}

	client.Forget(d.S3Key)
	client.FromStored(context.Background(), d)
	if api.urlCalls != 2 {
		t.Errorf("urlCalls=%d want=2 after Forget", api.urlCalls)
	}
}

func TestFromStored_FailuresAreNotCached(t *testing.T) {
	api := &fakeAPI{resp: &models.ExtractionResponse{Success: false, Message: "socket hang up"}}
	resultCache := cache.NewMemory(time.Hour)
	client := NewClient(api, resultCache, testutil.NullLogger())

	d := models.StoredCertificateDescriptor{S3Key: "lab-reports/b.pdf", URL: "https://cdn.example/b.pdf"}
	client.FromStored(context.Background(), d)
	client.FromStored(context.Background(), d)

	if api.urlCalls != 2 {
		t.Errorf("urlCalls=%d want=2", api.urlCalls)
	}
}
